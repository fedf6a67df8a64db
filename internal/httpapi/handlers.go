package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const defaultLogLimit = 50

func (s *Server) mount(r gin.IRoutes) {
	r.GET("/status", resolve(s.status))
	r.POST("/mute", resolve(s.setMute))
	r.POST("/ring", s.ringLimit.middleware(), resolve(s.ring))
	r.GET("/logs", resolve(s.logs))

	r.GET("/schedules", resolve(s.listSchedules))
	r.POST("/schedules", resolveStatus(http.StatusCreated, s.createSchedule))
	r.GET("/schedules/:id", resolve(s.getSchedule))
	r.PUT("/schedules/:id", resolve(s.updateSchedule))
	r.DELETE("/schedules/:id", resolve(s.deleteSchedule))

	r.GET("/mute-schedules", resolve(s.listWindows))
	r.POST("/mute-schedules", resolveStatus(http.StatusCreated, s.createWindow))
	r.GET("/mute-schedules/:id", resolve(s.getWindow))
	r.PUT("/mute-schedules/:id", resolve(s.updateWindow))
	r.DELETE("/mute-schedules/:id", resolve(s.deleteWindow))
	r.POST("/mute-schedules/:id/override", resolve(s.overrideWindow))

	r.GET("/events", s.events)
}

func (s *Server) status(c *gin.Context) (any, *apiError) {
	st, err := s.svc.Status(c.Request.Context())
	if err != nil {
		return nil, errorFrom(s.log, err)
	}
	return newStatusResponse(st, s.svc.Location()), nil
}

func (s *Server) setMute(c *gin.Context) (any, *apiError) {
	var req muteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, badRequest(err.Error())
	}
	if req.Muted == nil {
		return nil, badRequest("muted is required")
	}
	res, err := s.svc.SetMute(c.Request.Context(), *req.Muted, req.OverrideSchedule)
	if err != nil {
		return nil, errorFrom(s.log, err)
	}
	overridden := make([]int64, 0, len(res.Overridden))
	for _, w := range res.Overridden {
		overridden = append(overridden, w.ID)
	}
	return gin.H{"muted": res.Muted, "overridden": overridden}, nil
}

func (s *Server) ring(c *gin.Context) (any, *apiError) {
	var req ringRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		return nil, badRequest(err.Error())
	}
	n := s.svc.ManualDefaultRings()
	if req.NumRings != nil {
		n = *req.NumRings
		if n < 1 {
			return nil, badRequest("num_rings must be positive")
		}
	}
	out, err := s.svc.RingNow(c.Request.Context(), n)
	if err != nil {
		return nil, errorFrom(s.log, err)
	}
	status := "ringing"
	if out.Suppressed() {
		status = "muted"
	}
	return gin.H{"status": status, "state": out.State.String(), "num_rings": out.NumRings}, nil
}

func (s *Server) logs(c *gin.Context) (any, *apiError) {
	limit := defaultLogLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, badRequest("invalid limit")
		}
		limit = n
	}
	return newLogEntries(s.svc.Logs(limit), s.svc.Location()), nil
}

func (s *Server) listSchedules(c *gin.Context) (any, *apiError) {
	list, err := s.svc.ListSchedules(c.Request.Context())
	if err != nil {
		return nil, errorFrom(s.log, err)
	}
	return list, nil
}

func (s *Server) getSchedule(c *gin.Context) (any, *apiError) {
	id, apiErr := paramID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	sc, err := s.svc.GetSchedule(c.Request.Context(), id)
	if err != nil {
		return nil, errorFrom(s.log, err)
	}
	return sc, nil
}

func (s *Server) createSchedule(c *gin.Context) (any, *apiError) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, badRequest(err.Error())
	}
	in, apiErr := req.schedule()
	if apiErr != nil {
		return nil, apiErr
	}
	sc, err := s.svc.CreateSchedule(c.Request.Context(), in)
	if err != nil {
		return nil, errorFrom(s.log, err)
	}
	return sc, nil
}

func (s *Server) updateSchedule(c *gin.Context) (any, *apiError) {
	id, apiErr := paramID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, badRequest(err.Error())
	}
	sc, err := s.svc.UpdateSchedule(c.Request.Context(), id, req.patch())
	if err != nil {
		return nil, errorFrom(s.log, err)
	}
	return sc, nil
}

func (s *Server) deleteSchedule(c *gin.Context) (any, *apiError) {
	id, apiErr := paramID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := s.svc.DeleteSchedule(c.Request.Context(), id); err != nil {
		return nil, errorFrom(s.log, err)
	}
	return gin.H{"status": "deleted"}, nil
}

func (s *Server) listWindows(c *gin.Context) (any, *apiError) {
	list, err := s.svc.ListWindows(c.Request.Context())
	if err != nil {
		return nil, errorFrom(s.log, err)
	}
	return newWindowList(list), nil
}

func (s *Server) getWindow(c *gin.Context) (any, *apiError) {
	id, apiErr := paramID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	w, err := s.svc.GetWindow(c.Request.Context(), id)
	if err != nil {
		return nil, errorFrom(s.log, err)
	}
	return newWindowResponse(w), nil
}

func (s *Server) createWindow(c *gin.Context) (any, *apiError) {
	var req windowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, badRequest(err.Error())
	}
	loc := s.svc.Location()
	in, apiErr := req.window(loc)
	if apiErr != nil {
		return nil, apiErr
	}
	w, err := s.svc.CreateWindow(c.Request.Context(), in)
	if err != nil {
		return nil, errorFrom(s.log, err)
	}
	return newWindowResponse(w), nil
}

func (s *Server) updateWindow(c *gin.Context) (any, *apiError) {
	id, apiErr := paramID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	var req windowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, badRequest(err.Error())
	}
	loc := s.svc.Location()
	p, apiErr := req.patch(loc)
	if apiErr != nil {
		return nil, apiErr
	}
	w, err := s.svc.UpdateWindow(c.Request.Context(), id, p)
	if err != nil {
		return nil, errorFrom(s.log, err)
	}
	return newWindowResponse(w), nil
}

func (s *Server) deleteWindow(c *gin.Context) (any, *apiError) {
	id, apiErr := paramID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := s.svc.DeleteWindow(c.Request.Context(), id); err != nil {
		return nil, errorFrom(s.log, err)
	}
	return gin.H{"status": "deleted"}, nil
}

func (s *Server) overrideWindow(c *gin.Context) (any, *apiError) {
	id, apiErr := paramID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	w, err := s.svc.OverrideWindow(c.Request.Context(), id)
	if err != nil {
		return nil, errorFrom(s.log, err)
	}
	return gin.H{"status": "overridden", "id": w.ID, "name": w.Name}, nil
}
