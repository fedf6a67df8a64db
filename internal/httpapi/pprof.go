package httpapi

import (
	"net/http"
	hpprof "net/http/pprof"
	"runtime"

	"github.com/gin-gonic/gin"
)

// ProfileConfig exposes net/http/pprof under /debug/pprof on the API
// listener. The bearer token, when set, guards it like /api.
type ProfileConfig struct {
	Enabled bool

	// 0 keeps the Go default.
	MutexProfileFraction int
	BlockProfileRate     int
}

func (p ProfileConfig) applyRates() {
	if p.MutexProfileFraction > 0 {
		runtime.SetMutexProfileFraction(p.MutexProfileFraction)
	}
	if p.BlockProfileRate > 0 {
		runtime.SetBlockProfileRate(p.BlockProfileRate)
	}
}

func mountPprof(r *gin.Engine, cfg Config) {
	if !cfg.Profile.Enabled {
		return
	}
	cfg.Profile.applyRates()

	g := r.Group("/debug/pprof")
	if cfg.Token != "" {
		g.Use(bearerAuth(cfg.Token))
	}
	// pprof.Index serves the named profiles from the path suffix
	g.GET("/*profile", func(c *gin.Context) {
		switch c.Param("profile") {
		case "/cmdline":
			hpprof.Cmdline(c.Writer, c.Request)
		case "/profile":
			hpprof.Profile(c.Writer, c.Request)
		case "/symbol":
			hpprof.Symbol(c.Writer, c.Request)
		case "/trace":
			hpprof.Trace(c.Writer, c.Request)
		default:
			hpprof.Index(c.Writer, c.Request)
		}
	})
	g.POST("/symbol", gin.WrapF(hpprof.Symbol))
	r.GET("/debug/pprof", func(c *gin.Context) {
		c.Redirect(http.StatusPermanentRedirect, "/debug/pprof/")
	})
}
