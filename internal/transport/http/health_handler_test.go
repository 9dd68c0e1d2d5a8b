package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exportcheck/internal/config"
	"exportcheck/internal/customers"
	"exportcheck/internal/files"
	"exportcheck/internal/operations"
	"exportcheck/internal/services"
	"exportcheck/internal/shared/testutil"
)

type fakeRuns struct {
	busy  bool
	stats map[operations.RunStatus]int
}

func (f fakeRuns) Busy() bool                          { return f.busy }
func (f fakeRuns) Stats() map[operations.RunStatus]int { return f.stats }

type fakeHub struct{ clients int }

func (f fakeHub) ClientCount() int { return f.clients }
func (f fakeHub) GetHubMetrics() map[string]interface{} {
	return map[string]interface{}{"clients": f.clients}
}

func newHealthRouter(t *testing.T, paths *config.Paths) http.Handler {
	logger, _ := testutil.NewTestLogger(t)
	runs := fakeRuns{stats: map[operations.RunStatus]int{operations.RunStatusCompleted: 2}}
	svc := services.NewHealthService("1.2.3", "", paths, runs, fakeHub{clients: 1}, files.NewDirectoryChecker(logger), 3, logger)
	h := NewHealthHandler(svc, logger)

	r := chi.NewRouter()
	r.Mount("/api/health", h.Routes())
	r.Get("/api/version", h.Version)
	r.Get("/api/stats", h.Stats)
	r.Mount("/api/metrics", NewMetricsHandler(runs, fakeHub{clients: 1}).Routes())
	return r
}

func get(handler http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthHandler(t *testing.T) {
	paths := config.NewPaths(t.TempDir())
	require.NoError(t, paths.EnsureDirectories())
	router := newHealthRouter(t, paths)

	t.Run("health", func(t *testing.T) {
		rec := get(router, "/api/health")
		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, "1.2.3", body["version"])
	})

	t.Run("ready", func(t *testing.T) {
		rec := get(router, "/api/health/ready")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ready", decodeBody(t, rec)["status"])
	})

	t.Run("live", func(t *testing.T) {
		rec := get(router, "/api/health/live")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alive", decodeBody(t, rec)["status"])
	})

	t.Run("version", func(t *testing.T) {
		body := decodeBody(t, get(router, "/api/version"))
		assert.Equal(t, config.AppName, body["name"])
		assert.Equal(t, "1.2.3", body["version"])
	})

	t.Run("stats", func(t *testing.T) {
		body := decodeBody(t, get(router, "/api/stats"))
		assert.EqualValues(t, 1, body["websocket_clients"])
		assert.EqualValues(t, 3, body["customers"])
		assert.EqualValues(t, 2, body["runs"].(map[string]interface{})["completed"])
	})

	t.Run("metrics", func(t *testing.T) {
		body := decodeBody(t, get(router, "/api/metrics"))
		assert.EqualValues(t, 2, body["runs_total"])
		assert.EqualValues(t, 1, body["websocket"].(map[string]interface{})["clients"])
	})
}

func TestHealthHandler_NotReadyWithoutDownloads(t *testing.T) {
	paths := config.NewPaths(t.TempDir())
	router := newHealthRouter(t, paths)

	rec := get(router, "/api/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", decodeBody(t, rec)["status"])
}

func TestCustomersHandler(t *testing.T) {
	h := NewCustomersHandler(customers.New("Zeta", "acme", "Beta"), nil)

	rec := httptest.NewRecorder()
	h.ListCustomers(rec, httptest.NewRequest(http.MethodGet, "/api/customers", nil))
	body := decodeBody(t, rec)
	assert.EqualValues(t, 3, body["count"])
	assert.Equal(t, []interface{}{"acme", "Beta", "Zeta"}, body["customers"])

	rec = httptest.NewRecorder()
	h.ListKinds(rec, httptest.NewRequest(http.MethodGet, "/api/export-kinds", nil))
	body = decodeBody(t, rec)
	assert.Equal(t, []interface{}{"contact", "sticket"}, body["export_kinds"])
	assert.Equal(t, []interface{}{"CERT", "PROD"}, body["environments"])
}

func TestCustomersHandler_NoList(t *testing.T) {
	h := NewCustomersHandler(nil, nil)
	rec := httptest.NewRecorder()
	h.ListCustomers(rec, httptest.NewRequest(http.MethodGet, "/api/customers", nil))
	body := decodeBody(t, rec)
	assert.EqualValues(t, 0, body["count"])
	assert.Empty(t, body["customers"])
}
