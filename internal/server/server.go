// Package server exposes analysis and LLM review over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/agentic-research/devsentinel/internal/analysis"
	"github.com/agentic-research/devsentinel/internal/config"
	"github.com/agentic-research/devsentinel/internal/lint"
	"github.com/agentic-research/devsentinel/internal/review"
	"github.com/agentic-research/devsentinel/internal/styleguide"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const requestIDHeader = "X-Request-ID"

// Handlers serves the HTTP API. Every dependency is injected and shared
// across requests.
type Handlers struct {
	analyzer *analysis.Analyzer
	linter   *lint.Linter
	styles   *styleguide.Store
	reviewer *review.Reviewer
	cache    *resultCache
	metrics  *metrics
	cfg      *config.Config
	log      logrus.FieldLogger
}

// NewHandlers wires the API. styles and reviewer may be nil, in which case
// the endpoints that need them answer 503.
func NewHandlers(cfg *config.Config, a *analysis.Analyzer, styles *styleguide.Store, reviewer *review.Reviewer, log logrus.FieldLogger) *Handlers {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if a == nil {
		a = analysis.New(analysis.WithLogger(log), analysis.WithBudget(cfg.Analysis.Budget))
	}
	linter, err := lint.New(a.Registry(), lint.DefaultRules(), log)
	if err != nil {
		log.WithError(err).Error("lint rules disabled")
	}
	return &Handlers{
		analyzer: a,
		linter:   linter,
		styles:   styles,
		reviewer: reviewer,
		cache:    newResultCache(cfg.Server.CacheSize),
		metrics:  newMetrics(),
		cfg:      cfg,
		log:      log,
	}
}

// Router builds the gin engine with every route registered.
func (h *Handlers) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestContext())

	r.GET("/", h.HandleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.metrics.registry, promhttp.HandlerOpts{})))
	r.POST("/ingest-style", h.HandleIngestStyle)
	r.POST("/review", h.HandleReview)
	r.POST("/roast", h.HandleRoast)
	r.POST("/security-scan", h.HandleSecurityScan)
	r.POST("/complexity", h.HandleComplexity)
	r.POST("/structure", h.HandleStructure)
	r.POST("/lint", h.HandleLint)
	return r
}

// Serve runs the API until ctx is cancelled, then shuts down gracefully.
func (h *Handlers) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              h.cfg.Server.Addr(),
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		h.log.WithField("addr", srv.Addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		h.log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

// requestContext tags every request with an ID and records its metrics.
func (h *Handlers) requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Set("log", h.log.WithField("request_id", id))

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		h.metrics.requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		h.metrics.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func (h *Handlers) logger(c *gin.Context) logrus.FieldLogger {
	if v, ok := c.Get("log"); ok {
		if l, ok := v.(logrus.FieldLogger); ok {
			return l
		}
	}
	return h.log
}

// FileRequest is the body of every per-file endpoint.
type FileRequest struct {
	FullFileContent string `json:"full_file_content"`
	FilePath        string `json:"file_path"`
}

// fileRequestBody is what FileRequest is bound from. The content is a
// pointer so a missing field fails validation while "" is accepted. The
// tags are hard ceilings; configured limits are checked in bind.
type fileRequestBody struct {
	FullFileContent *string `json:"full_file_content" binding:"required,max=1000000"`
	FilePath        string  `json:"file_path" binding:"required,max=4096"`
}

// IngestRequest is the JSON form of a style guide upload.
type IngestRequest struct {
	Content string `json:"content"`
}

// ErrorResponse mirrors the detail-style error body clients expect.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func (h *Handlers) bind(c *gin.Context) (FileRequest, bool) {
	var body fileRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger(c).WithError(err).Warn("invalid request body")
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: "invalid request body: " + err.Error()})
		return FileRequest{}, false
	}
	req := FileRequest{FullFileContent: *body.FullFileContent, FilePath: body.FilePath}
	if n := utf8.RuneCountInString(req.FullFileContent); n > h.cfg.Server.MaxCodeLength {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Detail: "full_file_content exceeds " + strconv.Itoa(h.cfg.Server.MaxCodeLength) + " characters",
		})
		return req, false
	}
	if n := utf8.RuneCountInString(req.FilePath); n > h.cfg.Server.MaxPathLength {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Detail: "file_path exceeds " + strconv.Itoa(h.cfg.Server.MaxPathLength) + " characters",
		})
		return req, false
	}
	return req, true
}

// fail answers 500 with secrets stripped from the message.
func (h *Handlers) fail(c *gin.Context, task string, err error) {
	h.logger(c).WithError(err).Errorf("%s failed", task)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: review.RedactSecrets(err.Error())})
}

func (h *Handlers) analyze(ctx context.Context, req FileRequest) analyzed {
	key := cacheKey(req.FilePath, req.FullFileContent)
	if v, ok := h.cache.get(key); ok {
		h.metrics.cache.WithLabelValues("hit").Inc()
		return v
	}
	if h.cache != nil {
		h.metrics.cache.WithLabelValues("miss").Inc()
	}

	s, r := h.analyzer.Analyze(ctx, []byte(req.FullFileContent), req.FilePath)
	if s.Truncated || r.Truncated {
		h.metrics.truncated.WithLabelValues(s.Language).Inc()
	}
	if r.Omitted > 0 {
		h.metrics.omitted.WithLabelValues(r.Language).Add(float64(r.Omitted))
	}

	v := analyzed{summary: s, report: r}
	// A cancelled request surfaces as a parse error; only clean results are
	// a function of the input alone.
	if ctx.Err() == nil && s.Kind != analysis.SummaryParseError && r.Error == "" {
		h.cache.add(key, v)
	}
	return v
}

func (h *Handlers) reviewInput(c *gin.Context, req FileRequest, withRules bool) review.Input {
	a := h.analyze(c.Request.Context(), req)
	in := review.Input{
		Path:      req.FilePath,
		Code:      req.FullFileContent,
		Language:  a.summary.Language,
		Structure: a.summary.String(),
	}
	if withRules {
		in.StyleRules = h.styleRules(c, req)
	}
	h.logger(c).WithField("structure", in.Structure).Info("AST context")
	return in
}

func (h *Handlers) styleRules(c *gin.Context, req FileRequest) []string {
	_, ext, _ := h.analyzer.Registry().ForPath(req.FilePath)
	if h.styles == nil {
		return []string{styleguide.DefaultRules(ext)}
	}
	query := req.FullFileContent
	if n := h.cfg.Style.QueryChars; n > 0 {
		if r := []rune(query); len(r) > n {
			query = string(r[:n])
		}
	}
	return h.styles.Rules(c.Request.Context(), query, ext, h.cfg.Style.Results)
}
