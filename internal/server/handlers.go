package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/truthlens/internal/model"
	"github.com/ppiankov/truthlens/internal/pipeline"
)

// healthProbeTimeout bounds the upstream call made by a deep health check
const healthProbeTimeout = 5 * time.Second

type checkRequest struct {
	Content     string            `json:"content"`
	ContentType model.ContentType `json:"contentType"`
}

// submission converts the request body, treating a missing type as text
func (r checkRequest) submission() model.Submission {
	ct := r.ContentType
	if ct == "" {
		ct = model.ContentTypeText
	}
	return model.Submission{Content: r.Content, ContentType: ct}
}

func bindSubmission(c *gin.Context) (model.Submission, bool) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return model.Submission{}, false
	}

	sub := req.submission()
	if err := sub.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": pipeline.ErrorMessage(err)})
		return model.Submission{}, false
	}
	return sub, true
}

// POST /api/analyze-content
func (s *Server) handleAnalyze(c *gin.Context) {
	sub, ok := bindSubmission(c)
	if !ok {
		return
	}
	if s.opts.Analyzer == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Analysis service is not configured"})
		return
	}

	result, err := s.opts.Analyzer.Analyze(c.Request.Context(), sub)
	if err != nil {
		s.logger.Warn("analyze-content failed", "contentType", sub.ContentType, "err", err)
		c.JSON(upstreamStatus(err, http.StatusTooManyRequests, http.StatusPaymentRequired),
			gin.H{"error": errorMessage(err, "Failed to analyze content")})
		return
	}

	c.JSON(http.StatusOK, result)
}

// POST /api/verify-with-perplexity
func (s *Server) handleVerify(c *gin.Context) {
	sub, ok := bindSubmission(c)
	if !ok {
		return
	}
	if s.opts.Verifier == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Verification service is not configured"})
		return
	}

	sources, err := s.opts.Verifier.Verify(c.Request.Context(), sub)
	if err != nil {
		s.logger.Warn("verify-with-perplexity failed", "contentType", sub.ContentType, "err", err)
		c.JSON(upstreamStatus(err, http.StatusTooManyRequests),
			gin.H{"error": errorMessage(err, "Failed to verify content")})
		return
	}

	c.JSON(http.StatusOK, sources)
}

// POST /api/check
func (s *Server) handleCheck(c *gin.Context) {
	sub, ok := bindSubmission(c)
	if !ok {
		return
	}

	result, err := s.opts.Orchestrator.Submit(c.Request.Context(), sub)
	if err != nil {
		c.JSON(checkStatus(err), gin.H{"error": checkMessage(err)})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GET /api/state
func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.opts.Orchestrator.Snapshot())
}

// POST /api/reset
func (s *Server) handleReset(c *gin.Context) {
	s.opts.Orchestrator.Reset()
	c.JSON(http.StatusOK, s.opts.Orchestrator.Snapshot())
}

// GET /api/history
func (s *Server) handleHistoryList(c *gin.Context) {
	c.JSON(http.StatusOK, s.opts.History.List())
}

// GET /api/history/:id
func (s *Server) handleHistoryGet(c *gin.Context) {
	entry, ok := s.opts.History.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "History entry not found"})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// DELETE /api/history/:id
func (s *Server) handleHistoryDelete(c *gin.Context) {
	s.opts.History.Delete(c.Request.Context(), c.Param("id"))
	c.Status(http.StatusNoContent)
}

// DELETE /api/history
func (s *Server) handleHistoryClear(c *gin.Context) {
	s.opts.History.Clear(c.Request.Context())
	c.Status(http.StatusNoContent)
}

// POST /api/history/:id/select
func (s *Server) handleHistorySelect(c *gin.Context) {
	entry, ok := s.opts.History.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "History entry not found"})
		return
	}

	sub := model.Submission{Content: entry.Content, ContentType: entry.ContentType}
	if err := s.opts.Orchestrator.Show(sub, entry.Result); err != nil {
		c.JSON(checkStatus(err), gin.H{"error": checkMessage(err)})
		return
	}

	c.JSON(http.StatusOK, s.opts.Orchestrator.Snapshot())
}

// GET /api/health
func (s *Server) handleHealth(c *gin.Context) {
	entries := 0
	if s.opts.History != nil {
		entries = s.opts.History.Len()
	}
	body := gin.H{
		"status":         "ok",
		"version":        s.opts.Version,
		"verification":   s.opts.Verifier != nil,
		"historyEntries": entries,
	}

	// ?deep=true asks the analysis provider too
	if deep, _ := strconv.ParseBool(c.Query("deep")); deep {
		if r, ok := s.opts.Analyzer.(reachabilityChecker); ok {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthProbeTimeout)
			defer cancel()
			body["analysisReachable"] = r.Reachable(ctx)
		}
	}
	c.JSON(http.StatusOK, body)
}

// reachabilityChecker is implemented by analyzers that can test their upstream
type reachabilityChecker interface {
	Reachable(ctx context.Context) bool
}

// upstreamStatus maps an error from a single upstream call. Only the listed
// upstream statuses pass through; every other failure is a 500.
func upstreamStatus(err error, passthrough ...int) int {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest
	}

	var se *model.ServiceError
	if errors.As(err, &se) {
		for _, code := range passthrough {
			if se.StatusCode == code {
				return code
			}
		}
	}
	return http.StatusInternalServerError
}

// checkStatus maps an orchestrated submission error
func checkStatus(err error) int {
	var (
		ve *model.ValidationError
		se *model.ServiceError
		pe *model.ParseError
	)
	switch {
	case errors.Is(err, pipeline.ErrBusy), errors.Is(err, pipeline.ErrDiscarded):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &se):
		if se.StatusCode >= 400 {
			return se.StatusCode
		}
		return http.StatusBadGateway
	case errors.As(err, &pe):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func checkMessage(err error) string {
	if errors.Is(err, pipeline.ErrBusy) || errors.Is(err, pipeline.ErrDiscarded) {
		return err.Error()
	}
	return pipeline.ErrorMessage(err)
}

// errorMessage returns the user-facing text for a classified error, or
// fallback for anything else
func errorMessage(err error, fallback string) string {
	var (
		ve *model.ValidationError
		se *model.ServiceError
		pe *model.ParseError
	)
	if errors.As(err, &ve) || errors.As(err, &se) || errors.As(err, &pe) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return pipeline.ErrorMessage(err)
	}
	return fallback
}
