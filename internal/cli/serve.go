package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanglvm/quest-eval/internal/corpus"
	"github.com/khanglvm/quest-eval/internal/evaluation"
	"github.com/khanglvm/quest-eval/internal/metrics"
	"github.com/khanglvm/quest-eval/internal/report"
	"github.com/khanglvm/quest-eval/internal/search"
	"github.com/khanglvm/quest-eval/internal/version"
)

const shutdownTimeout = 10 * time.Second

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// NewServeCmd creates the 'serve' command for the HTTP report server.
func NewServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve reports and records over HTTP",
		Long: `Start an HTTP server exposing the cached aggregate reports, individual
evaluation records, full-text search and Prometheus metrics.

Endpoints:
  • GET /healthz                              build information
  • GET /reports/:kind?quest=&format=&refresh= summary, detailed or failures report
  • GET /records/:quest/:category/:file       one evaluation record
  • GET /search?q=&verdict=&quest=&limit=     full-text search over records
  • GET /metrics                              Prometheus metrics

Reports are served from the same cache the report command uses.`,
		Example: `  quest-eval serve
  quest-eval serve --addr :9090
  curl 'localhost:8080/reports/failures?quest=basics&format=markdown'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), app, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")

	return cmd
}

// server holds the handlers' dependencies.
type server struct {
	reports  *report.Service
	loader   *corpus.Loader
	records  *evaluation.Store
	index    *search.Indexer
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

// runServe starts the HTTP server and shuts it down gracefully when ctx is
// cancelled (SIGINT/SIGTERM at the root command).
func runServe(ctx context.Context, app *App, addr string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := app.ValidConfig(); err != nil {
		return err
	}
	logger := app.Logger()

	db := app.Storage()
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.MustNewMetrics(reg)

	reports, err := app.ReportService(db, m)
	if err != nil {
		return err
	}

	index, err := search.NewIndexer(logger)
	if err != nil {
		return fmt.Errorf("failed to create search index: %w", err)
	}
	defer index.Close()

	records := app.Records()
	n, err := index.IndexStore(app.Loader(), records)
	if err != nil {
		logger.Warn("search index incomplete", zap.Error(err))
	}
	logger.Info("indexed evaluation records", zap.Int("count", n))

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr: addr,
		Handler: newRouter(&server{
			reports:  reports,
			loader:   app.Loader(),
			records:  records,
			index:    index,
			gatherer: reg,
			logger:   logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe()
	}()
	fmt.Fprintf(app.Out, "Serving on %s (Ctrl+C to stop)\n", addr)

	select {
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}
}

func newRouter(s *server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealth)
	r.GET("/reports/:kind", s.handleReport)
	r.GET("/records/:quest/:category/:file", s.handleRecord)
	r.GET("/search", s.handleSearch)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	return r
}

func (s *server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.GetInfo()})
}

func (s *server) handleReport(c *gin.Context) {
	kind, err := report.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_KIND"})
		return
	}
	format, err := report.ParseFormat(c.DefaultQuery("format", "json"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_FORMAT"})
		return
	}
	refresh, _ := strconv.ParseBool(c.Query("refresh"))

	quest := c.Query("quest")
	if quest != "" {
		refs, err := s.loader.List(corpus.Filter{Quest: quest})
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "CORPUS_UNAVAILABLE"})
			return
		}
		if len(refs) == 0 {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("unknown quest: %s", quest), Code: "UNKNOWN_QUEST"})
			return
		}
	}

	rep, err := s.reports.Get(c.Request.Context(), kind, quest, refresh)
	if err != nil {
		s.logger.Error("report failed", zap.String("kind", string(kind)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "REPORT_FAILED"})
		return
	}

	if format == report.FormatJSON {
		c.JSON(http.StatusOK, rep)
		return
	}
	var b strings.Builder
	if err := report.Render(&b, rep, format); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "RENDER_FAILED"})
		return
	}
	c.Data(http.StatusOK, format.ContentType(), []byte(b.String()))
}

func (s *server) handleRecord(c *gin.Context) {
	ref := corpus.Ref{
		Quest:    c.Param("quest"),
		Category: c.Param("category"),
		File:     c.Param("file"),
	}
	for _, part := range []string{ref.Quest, ref.Category, ref.File} {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `/\`) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid example path", Code: "INVALID_PATH"})
			return
		}
	}

	rec, err := s.records.Load(ref)
	if err != nil {
		if evaluation.IsNoRecord(err) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "no evaluation record for " + ref.Key(), Code: "NOT_FOUND"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "RECORD_UNREADABLE"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *server) handleSearch(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer", Code: "INVALID_LIMIT"})
			return
		}
		limit = n
	}

	results, err := s.index.Search(c.Query("q"), search.Options{
		Quest:   c.Query("quest"),
		Verdict: strings.ToUpper(c.Query("verdict")),
		Limit:   limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "SEARCH_FAILED"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}
