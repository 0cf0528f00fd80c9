// Package server exposes claim verification over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Surjit27/Clairvox/internal/extract"
	"github.com/Surjit27/Clairvox/internal/metrics"
	"github.com/Surjit27/Clairvox/internal/model"
	"github.com/Surjit27/Clairvox/internal/worker"
)

// VerifyRequest is the body of POST /v1/verify
type VerifyRequest struct {
	Claim string `json:"claim" binding:"required"`
}

// BatchRequest is the body of POST /v1/verify/batch
type BatchRequest struct {
	Claims []string `json:"claims" binding:"required,min=1,dive,required"`
}

// AnalyzeRequest is the body of POST /v1/analyze
type AnalyzeRequest struct {
	Answer string `json:"answer" binding:"required"`
}

// BatchResponse lists results in request order
type BatchResponse struct {
	Results []*model.ConfidenceResult `json:"results"`
}

// ErrorResponse is returned for rejected requests
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Server serves the verification API
type Server struct {
	verifier    worker.Verifier
	concurrency int
	maxBatch    int
	logger      *zap.Logger
	metrics     *metrics.Metrics
	router      *gin.Engine
	srv         *http.Server
}

// New creates a server and its routes
func New(cfg model.Config, verifier worker.Verifier, logger *zap.Logger, m *metrics.Metrics) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		verifier:    verifier,
		concurrency: cfg.Worker.Concurrency,
		maxBatch:    cfg.Server.MaxBatch,
		logger:      logger,
		metrics:     m,
	}
	s.router = s.routes()
	s.srv = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))

	r.GET("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v1 := r.Group("/v1")
	v1.POST("/verify", s.handleVerify)
	v1.POST("/verify/batch", s.handleBatch)
	v1.POST("/analyze", s.handleAnalyze)
	return r
}

// Start listens until the server is shut down
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

// Stop drains in-flight requests
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleVerify handles POST /v1/verify
func (s *Server) handleVerify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Claim) == "" {
		badRequest(c, "claim is required", "INVALID_REQUEST")
		return
	}
	c.JSON(http.StatusOK, s.verifier.Verify(c.Request.Context(), req.Claim))
}

// handleBatch handles POST /v1/verify/batch
func (s *Server) handleBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "claims must be a non-empty list of strings", "INVALID_REQUEST")
		return
	}
	if len(req.Claims) > s.maxBatch {
		badRequest(c, fmt.Sprintf("at most %d claims per batch", s.maxBatch), "BATCH_TOO_LARGE")
		return
	}
	s.respondBatch(c, req.Claims)
}

// handleAnalyze handles POST /v1/analyze: segment an answer, verify each claim
func (s *Server) handleAnalyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "answer is required", "INVALID_REQUEST")
		return
	}
	claims := extract.Segment(req.Answer)
	if len(claims) > s.maxBatch {
		claims = claims[:s.maxBatch]
	}
	s.respondBatch(c, claims)
}

func (s *Server) respondBatch(c *gin.Context, claims []string) {
	batch := worker.NewBatchVerifier(s.verifier, s.concurrency)
	resp := BatchResponse{Results: make([]*model.ConfidenceResult, 0, len(claims))}
	for _, r := range batch.VerifyClaims(c.Request.Context(), claims) {
		if r.Error != nil {
			s.logger.Warn("batch aborted", zap.Error(r.Error))
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: r.Error.Error(), Code: "CANCELLED"})
			return
		}
		resp.Results = append(resp.Results, r.Result)
	}
	c.JSON(http.StatusOK, resp)
}

func badRequest(c *gin.Context, msg, code string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: code})
}

// requestLogger logs one line per request
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}
