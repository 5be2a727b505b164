// Package handler は社員ディレクトリと位置情報台帳の HTTP API を提供します。
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/ogurasousui/employee-location-tracker/internal/core/employee"
	"github.com/ogurasousui/employee-location-tracker/internal/core/location"
	"github.com/ogurasousui/employee-location-tracker/internal/platform/metrics"
)

// Dependencies はルーターの構築に必要な依存です。
type Dependencies struct {
	Employees employee.UseCase
	Locations location.UseCase
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	// Gatherer が nil の場合 /metrics は登録しません。
	Gatherer prometheus.Gatherer
}

// NewRouter は API 全体のハンドラを構築します。
func NewRouter(deps Dependencies) http.Handler {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log, deps.Metrics))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, http.StatusOK, map[string]string{"status": "ok"}, "")
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/employees", NewEmployeeHandler(deps.Employees, deps.Locations, log, deps.Metrics).Routes)
	r.Route("/locations", NewLocationHandler(deps.Locations, log, deps.Metrics).Routes)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	return otelhttp.NewHandler(r, "http.server")
}
