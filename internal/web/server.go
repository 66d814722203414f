// Package web serves the event listing over HTTP: an HTML search page, a
// JSON API, iCalendar downloads, a health check and Prometheus metrics.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pfrederiksen/fisica-eventos/internal/logger"
	"github.com/pfrederiksen/fisica-eventos/internal/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// NewServer creates the gin engine with all routes configured. gatherer
// backs /metrics; nil uses the default registry.
func NewServer(handler *Handler, m *metrics.Metrics, gatherer prometheus.Gatherer) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(requestLogger(m))
	r.Use(gin.Recovery())
	r.SetHTMLTemplate(templates)

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	setupRoutes(r, handler, gatherer)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, gatherer prometheus.Gatherer) {
	r.GET("/", handler.Index)
	r.GET("/eventos.ics", handler.Calendar)

	api := r.Group("/api")
	{
		api.GET("/eventos", handler.ListEvents)
		api.GET("/regioes", handler.ListRegions)
	}

	r.GET("/health", handler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// requestLogger logs every request through the structured logger and
// records its latency.
func requestLogger(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		latency := time.Since(start)
		m.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), latency)

		fields := logger.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": latency.Milliseconds(),
			"client_ip":  c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			logger.Error("request failed", fields, c.Errors.Last())
			return
		}
		logger.Debug("request served", fields)
	}
}

// Serve runs the HTTP server on addr until ctx is cancelled, then shuts it
// down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// A wildcard query fetches every source in sequence.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", logger.Fields{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serving HTTP: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}
	return nil
}
