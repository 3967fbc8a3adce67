// Package server exposes report generation over HTTP: a JSON API and a small
// browser UI.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"fundamental/analyst-app/artifact"
	"fundamental/analyst-app/core"
	"fundamental/analyst-app/services/report_service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

//go:embed templates/*.html
var templatesFS embed.FS

type ReportService interface {
	Generate(ctx context.Context, req report_service.ReportRequest) (*report_service.Report, error)
	Download(runID string) (*report_service.ReportFile, error)
}

type handler struct {
	svc ReportService
}

// NewRouter builds the gin engine with CORS open to all origins.
func NewRouter(svc ReportService) *gin.Engine {
	r := gin.Default()
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	r.Use(cors.New(config))

	tmpl := template.Must(template.New("").ParseFS(templatesFS, "templates/*.html"))
	r.SetHTMLTemplate(tmpl)

	h := &handler{svc: svc}
	r.GET("/healthz", h.healthz)
	r.POST("/fundamental-report", h.generateReport)
	r.GET("/reports/:run_id/download", h.downloadReport)
	r.GET("/", h.index)
	r.POST("/analyze", h.analyze)
	return r
}

// Run serves handler on addr until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		core.Logger().Info("http server listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	core.Logger().Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (h *handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) generateReport(c *gin.Context) {
	var req report_service.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	report, err := h.svc.Generate(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *handler) downloadReport(c *gin.Context) {
	runID := c.Param("run_id")
	if _, err := uuid.Parse(runID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	file, err := h.svc.Download(runID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.FileName}))
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(file.Text))
}

// pageData feeds index.html. The API keys are echoed into the form so they last
// for the browser session; they are not kept on the server.
type pageData struct {
	Company      string
	LLMAPIKey    string
	SearchAPIKey string
	Error        string
	Report       *report_service.Report
	DownloadName string
}

func (h *handler) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", pageData{})
}

func (h *handler) analyze(c *gin.Context) {
	page := pageData{
		Company:      strings.TrimSpace(c.PostForm("company_name")),
		LLMAPIKey:    strings.TrimSpace(c.PostForm("llm_api_key")),
		SearchAPIKey: strings.TrimSpace(c.PostForm("serper_api_key")),
	}
	report, err := h.svc.Generate(c.Request.Context(), report_service.ReportRequest{
		CompanyName: page.Company,
		Credentials: report_service.Credentials{LLMAPIKey: page.LLMAPIKey, SearchAPIKey: page.SearchAPIKey},
	})
	if err != nil {
		logError(c, err)
		page.Error = err.Error()
		c.HTML(statusFor(err), "index.html", page)
		return
	}
	page.Report = report
	page.DownloadName = report_service.DownloadName(report.Company)
	c.HTML(http.StatusOK, "index.html", page)
}

func statusFor(err error) int {
	switch {
	case report_service.IsInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, artifact.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	logError(c, err)
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func logError(c *gin.Context, err error) {
	core.Logger().Error("request failed",
		slog.String("method", c.Request.Method),
		slog.String("path", c.FullPath()),
		slog.String("error", err.Error()),
	)
}
