// Package web exposes the calibration engine over the dashboard's JSON
// API. It is a thin façade: all semantics live in the mapping package,
// and a rejected request never mutates engine state.
package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"keylights/debug"
	"keylights/mapping"
	"keylights/midi"
)

// Server wires the engine and the MIDI device manager to HTTP handlers.
type Server struct {
	engine  *mapping.Engine
	devices *midi.DeviceManager
	session uuid.UUID

	// onChange runs after every committed mutation (used to persist the
	// calibration). May be nil.
	onChange func()
}

// NewServer creates a server around an engine. devices may be nil when no
// MIDI subsystem is running (tests, headless tools).
func NewServer(engine *mapping.Engine, devices *midi.DeviceManager, onChange func()) *Server {
	return &Server{
		engine:   engine,
		devices:  devices,
		session:  uuid.New(),
		onChange: onChange,
	}
}

// Router builds the gin engine with all API routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	// The dashboard may be served from a different origin during development.
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	cal := r.Group("/api/calibration")
	{
		cal.GET("/mapping", s.getMapping)
		cal.GET("/validate", s.getValidation)
		cal.POST("/config", s.postConfig)
		cal.POST("/mode", s.postMode)
		cal.POST("/offset", s.postGlobalOffset)
		cal.POST("/key-offset", s.postKeyOffset)
		cal.DELETE("/key-offset/:note", s.deleteKeyOffset)
		cal.POST("/override", s.postOverride)
		cal.DELETE("/override/:note", s.deleteOverride)
		cal.DELETE("/overrides", s.deleteAllOverrides)
	}
	r.GET("/api/midi-input/devices", s.getDevices)
	r.POST("/api/hardware-test/leds-on", s.postLEDsOn)

	return r
}

// Run starts the HTTP listener (blocking).
func (s *Server) Run(addr string) error {
	debug.Log("web", "listening on %s", addr)
	return s.Router().Run(addr)
}

func (s *Server) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// fail maps engine errors to status codes: validation failures are the
// caller's fault, anything else is ours.
func fail(c *gin.Context, err error) {
	var ce *mapping.ConfigError
	var re *mapping.RequestError
	if errors.As(err, &ce) || errors.As(err, &re) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func (s *Server) getMapping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"session": s.session.String(),
		"version": s.engine.Version(),
		"mapping": s.engine.EffectiveMapping(),
	})
}

func (s *Server) getValidation(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Validate())
}

func (s *Server) postConfig(c *gin.Context) {
	var req struct {
		PianoSize *int `json:"pianoSize"`
		LEDCount  *int `json:"ledCount"`
		StartLED  *int `json:"startLed"`
		EndLED    *int `json:"endLed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.PianoSize != nil {
		if err := s.engine.SetPianoSize(*req.PianoSize); err != nil {
			fail(c, err)
			return
		}
	}
	if req.LEDCount != nil {
		if err := s.engine.SetLEDCount(*req.LEDCount); err != nil {
			fail(c, err)
			return
		}
	}
	if req.StartLED != nil || req.EndLED != nil {
		r := s.engine.Range()
		if req.StartLED != nil {
			r.Start = *req.StartLED
		}
		if req.EndLED != nil {
			r.End = *req.EndLED
		}
		if err := s.engine.SetLEDRange(r); err != nil {
			fail(c, err)
			return
		}
	}
	s.changed()
	s.getMapping(c)
}

func (s *Server) postMode(c *gin.Context) {
	var req struct {
		Mode             string `json:"mode"`
		LEDsPerKey       *int   `json:"ledsPerKey"`
		BaseOffset       *int   `json:"baseOffset"`
		IncludeBlackKeys *bool  `json:"includeBlackKeys"`
		ApplyMapping     bool   `json:"applyMapping"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := s.engine.Distribution()
	if req.Mode != "" {
		cfg.Mode = mapping.Mode(req.Mode)
	}
	if req.LEDsPerKey != nil {
		cfg.LEDsPerKey = *req.LEDsPerKey
	}
	if req.BaseOffset != nil {
		cfg.BaseOffset = *req.BaseOffset
	}
	if req.IncludeBlackKeys != nil {
		cfg.IncludeBlackKeys = *req.IncludeBlackKeys
	}
	if err := s.engine.SetDistribution(cfg, req.ApplyMapping); err != nil {
		fail(c, err)
		return
	}
	s.changed()
	s.getMapping(c)
}

func (s *Server) postGlobalOffset(c *gin.Context) {
	var req struct {
		Global int `json:"global"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.SetGlobalOffset(req.Global); err != nil {
		fail(c, err)
		return
	}
	s.changed()
	s.getMapping(c)
}

func (s *Server) postKeyOffset(c *gin.Context) {
	var req struct {
		Note   uint8 `json:"note"`
		Offset int   `json:"offset"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.SetKeyOffset(req.Note, req.Offset); err != nil {
		fail(c, err)
		return
	}
	s.changed()
	s.getMapping(c)
}

func (s *Server) deleteKeyOffset(c *gin.Context) {
	note, err := mapping.ParseNote(c.Param("note"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.engine.DeleteKeyOffset(note); err != nil {
		fail(c, err)
		return
	}
	s.changed()
	s.getMapping(c)
}

func (s *Server) postOverride(c *gin.Context) {
	var req struct {
		Note uint8 `json:"note"`
		LEDs []int `json:"leds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	eff, rec, err := s.engine.SetOverride(req.Note, req.LEDs)
	if err != nil {
		fail(c, err)
		return
	}
	debug.Log("web", "override %s -> %v", mapping.NoteName(req.Note), req.LEDs)
	s.changed()
	c.JSON(http.StatusOK, gin.H{
		"session":      s.session.String(),
		"version":      s.engine.Version(),
		"mapping":      eff,
		"reallocation": rec,
	})
}

func (s *Server) deleteOverride(c *gin.Context) {
	note, err := mapping.ParseNote(c.Param("note"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	eff, err := s.engine.ClearOverride(note)
	if err != nil {
		fail(c, err)
		return
	}
	s.changed()
	c.JSON(http.StatusOK, gin.H{
		"session": s.session.String(),
		"version": s.engine.Version(),
		"mapping": eff,
	})
}

func (s *Server) deleteAllOverrides(c *gin.Context) {
	eff, err := s.engine.ClearAllOverrides()
	if err != nil {
		fail(c, err)
		return
	}
	s.changed()
	c.JSON(http.StatusOK, gin.H{
		"session": s.session.String(),
		"version": s.engine.Version(),
		"mapping": eff,
	})
}

func (s *Server) getDevices(c *gin.Context) {
	names := []string{}
	if s.devices != nil {
		names = s.devices.PortNames()
	}
	c.JSON(http.StatusOK, gin.H{"devices": names})
}

// postLEDsOn returns the indices that would light for a set of held notes.
// Actuating the physical strip is the hardware layer's job.
func (s *Server) postLEDsOn(c *gin.Context) {
	var req struct {
		Notes []uint8 `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	eff := s.engine.EffectiveMapping()
	leds := []int{}
	seen := make(map[int]bool)
	for _, note := range req.Notes {
		for _, led := range eff[note] {
			if !seen[led] {
				seen[led] = true
				leds = append(leds, led)
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"leds": leds})
}
