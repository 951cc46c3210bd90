package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guaxindiba/firenotify/internal/dedup"
	"github.com/guaxindiba/firenotify/internal/directory"
	"github.com/guaxindiba/firenotify/internal/ingest"
	"github.com/guaxindiba/firenotify/internal/logger"
	"github.com/guaxindiba/firenotify/internal/observability/metrics"
	"github.com/guaxindiba/firenotify/internal/rowstore"
	"github.com/guaxindiba/firenotify/internal/timefmt"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent int
	fail error
}

func (r *recordingNotifier) Send(_ context.Context, _, _, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.sent++
	return nil
}

type testServer struct {
	controller *Controller
	notifier   *recordingNotifier
	store      *rowstore.MemStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := ingest.DefaultConfig()

	store := rowstore.NewMemStore()
	store.CreateTable(cfg.HistoryTable, cfg.HistoryHeader())
	store.CreateTable(cfg.DirectoryTable, cfg.DirectoryHeader())
	_, err := store.Append(context.Background(), cfg.DirectoryTable, []string{"R1", "brigada-r1@example.org"})
	require.NoError(t, err)

	normalizer, err := timefmt.New(timefmt.DefaultTimezone)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m, err := metrics.NewIngest(reg)
	require.NoError(t, err)

	log := logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
	notifier := &recordingNotifier{}
	orch := ingest.NewOrchestrator(
		cfg,
		normalizer,
		store,
		dedup.NewChecker(store, cfg.HistoryTable, cfg.DedupColumns()),
		directory.NewResolver(store, cfg.DirectoryTable, cfg.DirectoryCols, 0),
		notifier,
		m,
		log,
		nil,
	)

	return &testServer{
		controller: New(orch, log, reg),
		notifier:   notifier,
		store:      store,
	}
}

func (ts *testServer) get(t *testing.T, params map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?"+q.Encode(), nil)
	rec := httptest.NewRecorder()
	ts.controller.Echo.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body: %s", rec.Body.String())
	return rec, body
}

func validParams() map[string]string {
	return map[string]string{
		"regionId":  "R1",
		"timestamp": "08/12/2025 20:00",
		"lat":       "-22.9",
		"lng":       "-43.2",
	}
}

func TestIngestEvent_Success(t *testing.T) {
	ts := newTestServer(t)

	rec, body := ts.get(t, validParams())

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, http.StatusOK, body["status"])
	assert.Equal(t, "Record stored and email sent", body["message"])
	assert.Equal(t, "R1", body["regionId"])
	assert.EqualValues(t, 1, body["row"])
	assert.Equal(t, "brigada-r1@example.org", body["responsibleEmail"])
	assert.Equal(t, "https://www.google.com/maps/search/?api=1&query=-22.9,-43.2", body["mapsLink"])
	assert.NotContains(t, body, "duplicate")
	assert.NotContains(t, body, "error")
}

func TestIngestEvent_Duplicate(t *testing.T) {
	ts := newTestServer(t)

	rec, _ := ts.get(t, validParams())
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := ts.get(t, validParams())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["duplicate"])
	assert.Equal(t, "Duplicate event ignored (already notified)", body["message"])
	assert.EqualValues(t, 1, body["row"])
	assert.Equal(t, 1, ts.notifier.sent)
}

func TestIngestEvent_MissingParam(t *testing.T) {
	ts := newTestServer(t)

	params := validParams()
	delete(params, "lat")
	rec, body := ts.get(t, params)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.EqualValues(t, http.StatusBadRequest, body["status"])
	assert.Contains(t, body["error"], "Missing one or more required params")
	assert.NotContains(t, body, "row")
}

func TestIngestEvent_BadTimestamp(t *testing.T) {
	ts := newTestServer(t)

	params := validParams()
	params["timestamp"] = "2025-12-08T20:00:00Z"
	rec, body := ts.get(t, params)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "dd/mm/yyyy")
}

func TestIngestEvent_Unroutable(t *testing.T) {
	ts := newTestServer(t)

	params := validParams()
	params["regionId"] = "R9"
	rec, body := ts.get(t, params)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.EqualValues(t, http.StatusNotFound, body["status"])
	assert.Equal(t, "No responsible email found for region", body["error"])
	assert.Equal(t, "R9", body["regionId"])
	assert.EqualValues(t, 1, body["row"])

	rows, err := ts.store.ReadAll(context.Background(), "historico")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ingest.StatusNoResponsibleFound, rows[1][4])
}

func TestIngestEvent_NotifyFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.notifier.fail = errors.New("smtp unreachable")

	rec, body := ts.get(t, validParams())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.EqualValues(t, http.StatusInternalServerError, body["status"])
	assert.Contains(t, body["error"], "smtp unreachable")
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	ts.controller.Echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec, _ := ts.get(t, validParams())
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mrec := httptest.NewRecorder()
	ts.controller.Echo.ServeHTTP(mrec, req)

	assert.Equal(t, http.StatusOK, mrec.Code)
	assert.Contains(t, mrec.Body.String(), "firenotify_ingest_requests_total")
	assert.Contains(t, mrec.Body.String(), "firenotify_notifications_sent_total")
}

type panickingHandler struct{}

func (panickingHandler) Handle(context.Context, ingest.Request) ingest.Result {
	panic("boom")
}

func TestPanicSurfacesAsJSONError(t *testing.T) {
	log := logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
	c := New(panickingHandler{}, log, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.EqualValues(t, http.StatusInternalServerError, body["status"])
	assert.NotEmpty(t, body["error"])
}

func TestUnknownRouteReturnsJSON(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	ts.controller.Echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
}
