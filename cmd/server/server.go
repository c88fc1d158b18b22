package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nshruti113/url-risk-dashboard/internal/config"
	"github.com/nshruti113/url-risk-dashboard/internal/detection"
	"github.com/nshruti113/url-risk-dashboard/internal/ingest"
	"github.com/nshruti113/url-risk-dashboard/internal/metrics"
	"github.com/nshruti113/url-risk-dashboard/internal/ml"
	"github.com/nshruti113/url-risk-dashboard/internal/models"
	"github.com/nshruti113/url-risk-dashboard/internal/rules"
	"github.com/nshruti113/url-risk-dashboard/internal/storage"
)

// statusReporter is implemented by providers that can describe their state.
type statusReporter interface {
	Status() ml.Status
}

type Server struct {
	cfg      config.Config
	store    storage.Store
	provider ml.Provider
	detector *detection.Detector
	metrics  *metrics.Metrics
	registry *prometheus.Registry
	hub      *Hub
	mapper   ingest.Mapper
	router   *gin.Engine
	logger   *slog.Logger
}

func NewServer(cfg config.Config, store storage.Store, provider ml.Provider, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry)

	engine, err := rules.NewEngine(cfg.Rules.CacheSize, logger)
	if err != nil {
		return nil, fmt.Errorf("create rule engine: %w", err)
	}

	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		cfg:      cfg,
		store:    store,
		provider: provider,
		metrics:  m,
		registry: registry,
		hub:      NewHub(m.WebsocketClients, logger),
		router:   router,
		logger:   logger,
	}
	adapter := ml.NewAdapter(provider, cfg.Model.FallbackProbability, logger)
	s.detector = detection.NewDetector(engine, adapter, detection.Options{
		FallbackProbability: cfg.Model.FallbackProbability,
		Workers:             cfg.Detection.Workers,
		Observer:            s,
		Logger:              logger,
	})

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	// Enable CORS
	s.router.Use(corsMiddleware())

	api := s.router.Group("/api")
	{
		// Analysis
		api.POST("/analyze/urls", s.analyzeURLs)
		api.POST("/analyze/events", s.analyzeEvents)
		api.POST("/analyze/csv", s.analyzeCSV)

		// Model
		api.GET("/model/status", s.getModelStatus)

		// Alerts
		api.GET("/alerts/recent", s.getRecentAlerts)

		// Dashboard stats
		api.GET("/stats/summary", s.getSummaryStats)
		api.GET("/stats/history", s.getStatsHistory)
	}

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	// WebSocket endpoint
	s.router.GET("/ws", s.handleWebSocket)
}

type analyzeURLsRequest struct {
	URLs []string `json:"urls" binding:"required"`
}

type analyzeEventsRequest struct {
	Events []map[string]any `json:"events" binding:"required"`
}

// analyzeURLs scores a list of URL strings.
func (s *Server) analyzeURLs(c *gin.Context) {
	var req analyzeURLsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !s.checkBatchSize(c, len(req.URLs)) {
		return
	}

	batch := s.detector.AnalyzeURLs(c.Request.Context(), req.URLs)
	c.JSON(http.StatusOK, batch)
}

// analyzeEvents scores and correlates access-log events posted as JSON.
func (s *Server) analyzeEvents(c *gin.Context) {
	var req analyzeEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !s.checkBatchSize(c, len(req.Events)) {
		return
	}

	batch := s.detector.AnalyzeEvents(c.Request.Context(), s.mapper.FromMaps(req.Events))
	c.JSON(http.StatusOK, batch)
}

// analyzeCSV accepts a CSV access log, either as a multipart "file" field or
// as the raw request body.
func (s *Server) analyzeCSV(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.Server.MaxUploadBytes)

	var body io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "multipart upload needs a file field"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		defer f.Close()
		body = f
	}

	events, err := s.mapper.ReadCSV(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !s.checkBatchSize(c, len(events)) {
		return
	}

	batch := s.detector.AnalyzeEvents(c.Request.Context(), events)
	c.JSON(http.StatusOK, batch)
}

func (s *Server) checkBatchSize(c *gin.Context, n int) bool {
	if n > s.cfg.Server.MaxBatchSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("batch of %d exceeds the limit of %d", n, s.cfg.Server.MaxBatchSize),
		})
		return false
	}
	return true
}

// getModelStatus reports whether the classifier artifacts are loaded.
func (s *Server) getModelStatus(c *gin.Context) {
	st := ml.Status{}
	if r, ok := s.provider.(statusReporter); ok {
		st = r.Status()
	}
	s.metrics.SetModelLoaded(st.Loaded)

	mode := "ml"
	if !st.Loaded {
		mode = "fallback"
	}
	c.JSON(http.StatusOK, gin.H{
		"model":                st,
		"mode":                 mode,
		"fallback_probability": s.cfg.Model.FallbackProbability,
	})
}

// getRecentAlerts returns the newest alerts.
func (s *Server) getRecentAlerts(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return
	}

	alerts, err := s.store.RecentAlerts(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
	})
}

// getSummaryStats returns dashboard summary statistics
func (s *Server) getSummaryStats(c *gin.Context) {
	ctx := c.Request.Context()
	current, _ := s.store.Stats(ctx, time.Now())
	recent, _ := s.store.RecentAlerts(ctx, 1)

	status := "NORMAL"
	if len(recent) > 0 && time.Since(recent[0].Timestamp) < time.Minute {
		status = "UNDER_ATTACK"
	}

	summary := gin.H{
		"status":            status,
		"urls_analyzed":     0,
		"degraded_batches":  0,
		"unique_identities": 0,
	}
	if current != nil {
		summary["urls_analyzed"] = current.URLsAnalyzed
		summary["degraded_batches"] = current.DegradedBatches
		summary["unique_identities"] = current.UniqueIdentities
		summary["levels"] = current.Levels
		summary["top_identities"] = current.TopIdentities
		summary["top_rules"] = current.TopRules
	}

	c.JSON(http.StatusOK, summary)
}

// getStatsHistory returns per-minute stats for the last hour
func (s *Server) getStatsHistory(c *gin.Context) {
	history := make([]*models.WindowStats, 0)

	now := time.Now()
	for i := 0; i < 60; i++ {
		stats, err := s.store.Stats(c.Request.Context(), now.Add(-time.Duration(i)*time.Minute))
		if err == nil {
			history = append(history, stats)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"stats": history,
	})
}

// handleWebSocket handles WebSocket connections for real-time updates
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade error", "error", err)
		return
	}

	s.hub.add(conn)
	defer s.hub.remove(conn)
	s.logger.Info("WebSocket client connected", "remote", conn.RemoteAddr().String())

	// Keep connection alive
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.logger.Debug("WebSocket closed", "error", err)
			return
		}
	}
}

// ObserveURLBatch reports a finished URL batch.
func (s *Server) ObserveURLBatch(ctx context.Context, b *detection.URLBatch) {
	s.report(ctx, b.Stats(), b.Alerts(s.cfg.Detection.AlertLevel), gin.H{
		"kind":     detection.KindURLs,
		"batch_id": b.ID,
		"degraded": b.Degraded,
		"warnings": b.Warnings,
		"urls":     len(b.Assessments),
	})
}

// ObserveEventBatch reports a finished event batch.
func (s *Server) ObserveEventBatch(ctx context.Context, b *detection.EventBatch) {
	s.report(ctx, b.Stats(), b.Alerts(s.cfg.Detection.AlertLevel), gin.H{
		"kind":     detection.KindEvents,
		"batch_id": b.ID,
		"degraded": b.Degraded,
		"warnings": b.Warnings,
		"urls":     len(b.Assessments),
		"findings": len(b.Findings),
		"summary":  b.Summary,
	})
}

func (s *Server) report(ctx context.Context, stats models.BatchStats, alerts []models.Alert, feed gin.H) {
	s.metrics.ObserveBatch(stats, time.Since(stats.At))
	if err := s.store.RecordBatch(ctx, stats); err != nil {
		s.logger.Error("Error recording batch stats", "batch_id", stats.BatchID, "error", err)
	}

	for _, alert := range alerts {
		if err := s.store.PublishAlert(ctx, alert); err != nil {
			s.metrics.IncrementAlerts("failed")
			s.logger.Error("Error publishing alert", "alert_id", alert.ID, "error", err)
		} else {
			s.metrics.IncrementAlerts("published")
		}
		s.hub.Broadcast(Message{Type: "alert", Payload: alert})
	}
	s.hub.Broadcast(Message{Type: "batch", Payload: feed})

	if len(alerts) > 0 {
		s.logger.Warn("Alerts raised", "batch_id", stats.BatchID, "alerts", len(alerts))
	}
}

// startStatsBroadcaster pushes the current minute's stats to live-feed
// clients until ctx is done.
func (s *Server) startStatsBroadcaster(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Server.StatsInterval)
	defer ticker.Stop()

	s.logger.Info("Stats broadcaster started", "interval", s.cfg.Server.StatsInterval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if s.hub.Len() == 0 {
			continue
		}
		stats, err := s.store.Stats(ctx, time.Now())
		if err != nil {
			continue
		}
		s.hub.Broadcast(Message{Type: "metrics", Payload: stats})
	}
}

// requestLogger writes one structured line per request.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client", c.ClientIP())
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
