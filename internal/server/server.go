// Package server exposes the HTTP surface: the call trigger API, the
// telephony webhooks, the media-stream WebSocket endpoint, and ops routes.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/callerwork/callerd/internal/engine"
	"github.com/callerwork/callerd/internal/metrics"
	"github.com/callerwork/callerd/internal/telephony"
)

// CallService is the orchestrator surface the HTTP layer needs. Satisfied by
// *engine.Orchestrator.
type CallService interface {
	StartCall(ctx context.Context, phone string) (string, error)
	HandleAnswer(phone string) string
	HandleDigits(phone, digits string) string
	HandleStream(ws *websocket.Conn)
}

// Server is the HTTP front end.
type Server struct {
	router   *gin.Engine
	calls    CallService
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// New creates the server and registers its routes.
func New(calls CallService, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		calls:  calls,
		logger: logger.With().Str("component", "server").Logger(),
		upgrader: websocket.Upgrader{
			// The telephony provider connects without a browser origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/", s.handleRoot)
	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/api/call", s.handleTriggerCall)
	r.POST("/voice", s.handleVoice)
	r.POST("/select", s.handleSelect)
	r.GET("/media", s.handleMedia)

	s.router = r
	return s
}

// Handler returns the underlying HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("http server listening")
	return s.router.Run(addr)
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "callerd",
		"status":  "running",
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type triggerCallRequest struct {
	Phone string `json:"phone" form:"phone"`
}

// handleTriggerCall starts an outbound call. Provider failures map to
// structured errors; this is the only surface where call failures reach the
// API caller.
func (s *Server) handleTriggerCall(c *gin.Context) {
	var req triggerCallRequest
	if err := c.ShouldBind(&req); err != nil || req.Phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone number is required"})
		return
	}

	sid, err := s.calls.StartCall(c.Request.Context(), req.Phone)
	if err != nil {
		s.writeCallError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "call initiated",
		"call_sid": sid,
	})
}

func (s *Server) writeCallError(c *gin.Context, err error) {
	var apiErr *telephony.APIError
	code := 0
	if errors.As(err, &apiErr) {
		code = apiErr.Code
	}

	switch {
	case errors.Is(err, engine.ErrMissingPhone):
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone number is required"})
	case errors.Is(err, telephony.ErrAuth):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":  "telephony credentials rejected",
			"detail": err.Error(),
			"code":   code,
		})
	case errors.Is(err, telephony.ErrInvalidDestination):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "invalid destination number",
			"detail": err.Error(),
			"code":   code,
		})
	case errors.Is(err, telephony.ErrUnverifiedDestination):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "destination not verified for this account",
			"detail": err.Error(),
			"code":   code,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "failed to place call",
			"detail": err.Error(),
		})
	}
}

// handleVoice is the call-answer webhook; it replies with the voice document
// the provider executes.
func (s *Server) handleVoice(c *gin.Context) {
	phone := c.Query("phone")
	doc := s.calls.HandleAnswer(phone)
	c.Data(http.StatusOK, "text/xml", []byte(doc))
}

// handleSelect is the digit-menu webhook. A missing Digits field resolves to
// the default persona downstream.
func (s *Server) handleSelect(c *gin.Context) {
	phone := c.Query("phone")
	digits := c.PostForm("Digits")
	doc := s.calls.HandleDigits(phone, digits)
	c.Data(http.StatusOK, "text/xml", []byte(doc))
}

// handleMedia upgrades to the media-stream WebSocket and hands the
// connection to the orchestrator for the call's lifetime.
func (s *Server) handleMedia(c *gin.Context) {
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer ws.Close()

	s.calls.HandleStream(ws)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Media frames are far too chatty to log per-request.
		if c.Request.URL.Path == "/media" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		metrics.RequestCount.WithLabelValues(c.Request.Method, c.FullPath(), strconv.Itoa(status)).Inc()
		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}
