// Package web exposes the core operations over HTTP: trigger a check or a
// booking, list persisted results, health and metrics. Operations run
// synchronously; a check or booking request holds its connection until the
// browser flow completes.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/darren-wangg/court-booker-sub000/internal/models"
	"github.com/darren-wangg/court-booker-sub000/internal/slots"
	"github.com/darren-wangg/court-booker-sub000/internal/store"
)

// Core is the automation entry point the handlers call into.
type Core interface {
	CheckAvailability(ctx context.Context, accountID string) models.CheckResult
	BookTimeSlot(ctx context.Context, accountID string, req models.BookingRequest) models.BookingResult
}

// ResultLister reads persisted results. *store.Store satisfies it, including
// the nil "persistence disabled" form.
type ResultLister interface {
	Recent(ctx context.Context, kind string, limit int) ([]store.Record, error)
}

type Deps struct {
	Core     Core
	Results  ResultLister
	Registry *prometheus.Registry // scrape metrics; nil disables /metrics
	Log      *slog.Logger
}

// NewRouter builds the HTTP surface. The caller owns the listener.
func NewRouter(deps Deps) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.Default())
	engine.Use(requestLogger(deps.Log))

	s := &server{deps: deps}

	engine.GET("/healthz", s.health)
	if deps.Registry != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	api := engine.Group("/api")
	{
		api.POST("/check", s.check)
		api.POST("/book", s.book)
		api.GET("/results", s.results)
	}

	return engine
}

type server struct {
	deps Deps
}

func (s *server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type checkRequest struct {
	AccountID string `json:"accountId"`
}

func (s *server) check(c *gin.Context) {
	var req checkRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
			return
		}
	}

	result := s.deps.Core.CheckAvailability(c.Request.Context(), req.AccountID)
	c.JSON(http.StatusOK, result)
}

type bookRequest struct {
	AccountID string `json:"accountId"`
	Date      string `json:"date" binding:"required"`
	StartHour int    `json:"startHour"`
}

func (s *server) book(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	booking, err := buildBookingRequest(req.Date, req.StartHour)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := s.deps.Core.BookTimeSlot(c.Request.Context(), req.AccountID, booking)
	c.JSON(http.StatusOK, result)
}

func (s *server) results(c *gin.Context) {
	kind := c.Query("kind")
	if kind != "" && kind != store.KindCheck && kind != store.KindBooking {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown kind %q", kind)})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid limit %q", raw)})
			return
		}
		limit = parsed
	}

	records, err := s.deps.Results.Recent(c.Request.Context(), kind, limit)
	if err != nil {
		s.deps.Log.Error("listing results failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing results failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": records})
}

// buildBookingRequest turns the wire form (ISO date plus a 24-hour start)
// into the core's request.
func buildBookingRequest(date string, startHour int) (models.BookingRequest, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return models.BookingRequest{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}
	return slots.RequestFor(day, startHour)
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		} else if c.Writer.Status() >= http.StatusBadRequest {
			level = slog.LevelWarn
		}
		log.Log(c.Request.Context(), level, "request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}
