package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 逆ジオコーディングの結果区分です。
const (
	GeocodeHit      = "cache_hit"
	GeocodeResolved = "resolved"
	GeocodeFallback = "fallback"
)

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Metrics はアプリケーションの Prometheus メトリクスをまとめます。
// nil のレシーバに対する記録は何もしません。
type Metrics struct {
	HTTPRequestDuration *prometheus.HistogramVec
	EmployeesCreated    prometheus.Counter
	LocationsRecorded   *prometheus.CounterVec
	GeocodeResults      *prometheus.CounterVec
	DBQueryDuration     prometheus.Histogram
}

// New は reg にメトリクスを登録して返します。
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "elt_http_request_duration_seconds",
			Help:    "Duration of HTTP API requests",
			Buckets: latencyBuckets,
		}, []string{"method", "route", "status"}),
		EmployeesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "elt_employees_created_total",
			Help: "Total number of employees created",
		}),
		LocationsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "elt_locations_recorded_total",
			Help: "Total number of location fixes recorded",
		}, []string{"source"}),
		GeocodeResults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "elt_geocode_results_total",
			Help: "Reverse geocoding outcomes",
		}, []string{"outcome"}),
		DBQueryDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "elt_db_query_duration_seconds",
			Help:    "Duration of PostgreSQL queries",
			Buckets: latencyBuckets,
		}),
	}
}

// ObserveHTTPRequest は HTTP リクエストの所要時間を記録します。
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// IncrementEmployeesCreated は社員作成数を加算します。
func (m *Metrics) IncrementEmployeesCreated() {
	if m == nil {
		return
	}
	m.EmployeesCreated.Inc()
}

// IncrementLocationsRecorded は取得元ごとの測位記録数を加算します。
func (m *Metrics) IncrementLocationsRecorded(source string) {
	if m == nil {
		return
	}
	m.LocationsRecorded.WithLabelValues(source).Inc()
}

// IncrementGeocode は逆ジオコーディングの結果を加算します。
func (m *Metrics) IncrementGeocode(outcome string) {
	if m == nil {
		return
	}
	m.GeocodeResults.WithLabelValues(outcome).Inc()
}

// ObserveDBQuery はクエリの所要時間を記録します。
func (m *Metrics) ObserveDBQuery(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DBQueryDuration.Observe(elapsed.Seconds())
}
