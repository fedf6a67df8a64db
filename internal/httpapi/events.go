package httpapi

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"moodybell/internal/activity"
	"moodybell/internal/eventbus"
	"moodybell/internal/model"
)

const sseKeepAlive = 25 * time.Second

// events streams bus events as server-sent events until the client leaves.
func (s *Server) events(c *gin.Context) {
	if s.bus == nil {
		c.JSON(503, gin.H{"error": "events unavailable"})
		return
	}
	ch, unsubscribe := s.bus.Subscribe(64)
	defer unsubscribe()

	loc := s.svc.Location()
	ping := time.NewTicker(sseKeepAlive)
	defer ping.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-ping.C:
			c.SSEvent("ping", model.FormatLocal(time.Now(), loc))
			return true
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, eventPayload(ev, loc))
			return true
		}
	})
}

func eventPayload(ev eventbus.Event, loc *time.Location) any {
	if e, ok := ev.Data.(activity.Entry); ok {
		return logEntry{Timestamp: model.FormatLocal(e.Timestamp, loc), Message: e.Message, Type: e.Severity}
	}
	return gin.H{"time": model.FormatLocal(ev.Time, loc), "data": ev.Data}
}
