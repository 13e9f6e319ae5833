package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/agentic-research/devsentinel/internal/analysis"
	"github.com/agentic-research/devsentinel/internal/lint"
	"github.com/gin-gonic/gin"
)

// HealthResponse is the body of GET /.
type HealthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

// HandleHealth handles GET /.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "DevSentinel Brain is Active", Model: h.cfg.LLM.Model})
}

// HandleIngestStyle handles POST /ingest-style. A JSON body is either a
// string or {"content": ...}; any other content type is the guide itself.
// The previous guide is replaced.
func (h *Handlers) HandleIngestStyle(c *gin.Context) {
	log := h.logger(c)
	if h.styles == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Detail: "style guide store not configured"})
		return
	}

	limit := int64(h.cfg.Server.MaxCodeLength) * 4 // bytes, worst case UTF-8
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, limit+1))
	if err != nil {
		h.fail(c, "read style guide", err)
		return
	}
	if int64(len(raw)) > limit {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Detail: "style guide too large"})
		return
	}

	content := string(raw)
	if strings.HasPrefix(c.ContentType(), "application/json") {
		if content, err = decodeIngest(raw); err != nil {
			log.WithError(err).Warn("invalid request body")
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: "invalid request body: " + err.Error()})
			return
		}
	}
	if utf8.RuneCountInString(content) > h.cfg.Server.MaxCodeLength {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: "content too long"})
		return
	}

	n, err := h.styles.Ingest(c.Request.Context(), content)
	if err != nil {
		h.fail(c, "ingest style guide", err)
		return
	}
	if n == 0 {
		c.JSON(http.StatusOK, gin.H{"status": "empty_content"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "chunks_indexed": n})
}

// decodeIngest accepts either a bare JSON string or an IngestRequest.
func decodeIngest(raw []byte) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var req IngestRequest
	err := json.Unmarshal(raw, &req)
	return req.Content, err
}

// HandleReview handles POST /review.
func (h *Handlers) HandleReview(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	if h.reviewer == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Detail: "LLM reviewer not configured"})
		return
	}
	h.logger(c).WithField("file", req.FilePath).Info("received review request")

	resp, err := h.reviewer.Review(c.Request.Context(), h.reviewInput(c, req, true))
	if err != nil {
		h.metrics.llmErrors.WithLabelValues("review").Inc()
		h.fail(c, "review", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleSecurityScan handles POST /security-scan.
func (h *Handlers) HandleSecurityScan(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	if h.reviewer == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Detail: "LLM reviewer not configured"})
		return
	}
	h.logger(c).WithField("file", req.FilePath).Info("security scan requested")

	resp, err := h.reviewer.SecurityScan(c.Request.Context(), h.reviewInput(c, req, false))
	if err != nil {
		h.metrics.llmErrors.WithLabelValues("security_scan").Inc()
		h.fail(c, "security scan", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleRoast handles POST /roast.
func (h *Handlers) HandleRoast(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	if h.reviewer == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Detail: "LLM reviewer not configured"})
		return
	}

	roast, err := h.reviewer.Roast(c.Request.Context(), h.reviewInput(c, req, false))
	if err != nil {
		h.metrics.llmErrors.WithLabelValues("roast").Inc()
		h.fail(c, "roast", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roast": roast})
}

// HandleComplexity handles POST /complexity. Unsupported and unparsable
// files answer 200 with an empty function list.
func (h *Handlers) HandleComplexity(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	h.logger(c).WithField("file", req.FilePath).Info("complexity analysis requested")
	c.JSON(http.StatusOK, h.analyze(c.Request.Context(), req).report)
}

// StructureResponse is the body of POST /structure.
type StructureResponse struct {
	analysis.Summary
	Text string `json:"summary"`
}

// HandleStructure handles POST /structure.
func (h *Handlers) HandleStructure(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	s := h.analyze(c.Request.Context(), req).summary
	c.JSON(http.StatusOK, StructureResponse{Summary: s, Text: s.String()})
}

// LintResponse is the body of POST /lint.
type LintResponse struct {
	Findings []lint.Finding `json:"findings"`
}

// HandleLint handles POST /lint. Unsupported files answer with no findings.
func (h *Handlers) HandleLint(c *gin.Context) {
	if h.linter == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Detail: "linter not configured"})
		return
	}
	req, ok := h.bind(c)
	if !ok {
		return
	}
	findings, err := h.linter.Lint(c.Request.Context(), []byte(req.FullFileContent), req.FilePath)
	if err != nil {
		h.fail(c, "lint", err)
		return
	}
	if findings == nil {
		findings = []lint.Finding{}
	}
	c.JSON(http.StatusOK, LintResponse{Findings: findings})
}
