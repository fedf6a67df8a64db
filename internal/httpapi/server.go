package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"moodybell/internal/control"
	"moodybell/internal/eventbus"
	logx "moodybell/pkg/logx"
)

// Config configures the HTTP surface.
type Config struct {
	Addr string
	// Token, when set, is required as "Authorization: Bearer <token>" on /api.
	Token        string
	AllowOrigins []string

	// RingRate is manual ring requests per second per client IP; 0 disables the limit.
	RingRate  float64
	RingBurst int

	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration

	Profile ProfileConfig
}

type Server struct {
	cfg       Config
	svc       *control.Service
	bus       eventbus.Bus
	log       logx.Logger
	engine    *gin.Engine
	ringLimit *ipLimiter
}

func New(cfg Config, svc *control.Service, bus eventbus.Bus, log logx.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":5000"
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Server{
		cfg:       cfg,
		svc:       svc,
		bus:       bus,
		log:       log.With(logx.String("comp", "http")),
		ringLimit: newIPLimiter(cfg.RingRate, cfg.RingBurst),
	}

	r := gin.New()
	r.Use(s.recovery(), s.requestLog(), cors.New(corsConfig(cfg.AllowOrigins)))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := r.Group("/api")
	if cfg.Token != "" {
		api.Use(bearerAuth(cfg.Token))
	}
	s.mount(api)
	mountPprof(r, cfg)
	s.engine = r
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info("http listening", logx.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		s.log.Warn("http shutdown", logx.Err(err))
		_ = srv.Close()
	}
	<-errCh
	return nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
