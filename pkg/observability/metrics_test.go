package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_Registers(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.CompilationTotal.WithLabelValues("ok").Inc()
	m.ObserveCache("compiled", true)

	families, err := registry.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "apicatalog_compilation_total")
	assert.Contains(t, names, "apicatalog_cache_hits_total")

	assert.Panics(t, func() { NewMetrics(registry) }, "double registration must fail")
}

func TestMetrics_Helpers(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveStorage("put", "sqlite", time.Now(), nil)
	m.ObserveStorage("get", "sqlite", time.Now(), errors.New("gone"))
	m.ObserveCache("redis", false)
	m.ObserveCache("redis", true)
	m.ObserveCache("redis", true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StorageOperationsTotal.WithLabelValues("put", "sqlite", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StorageOperationsTotal.WithLabelValues("get", "sqlite", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("redis")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal.WithLabelValues("redis")))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() {
		nilMetrics.ObserveCache("redis", true)
		nilMetrics.ObserveStorage("put", "sqlite", time.Now(), nil)
	})
}

func TestHTTPMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	router := mux.NewRouter()
	router.Use(HTTPMetricsMiddleware(m))
	router.HandleFunc("/descriptions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("missing"))
	})

	for _, id := range []string{"a", "b"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/descriptions/"+id, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/descriptions/{id}", "404")))
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.CatalogKinds.Set(18)

	router := mux.NewRouter()
	RegisterMetricsEndpoint(router, registry)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "apicatalog_catalog_kinds 18"))
}
