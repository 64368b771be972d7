package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/leadmailer/internal/domain"
	"github.com/shaiso/leadmailer/internal/leads"
	"github.com/shaiso/leadmailer/internal/memstore"
)

type fakeCycler struct {
	report  *domain.CycleReport
	last    *domain.CycleReport
	running bool
	calls   int
	ctxErr  error
}

func (c *fakeCycler) RunCycle(ctx context.Context) *domain.CycleReport {
	c.calls++
	c.ctxErr = ctx.Err()
	return c.report
}

func (c *fakeCycler) Running() bool                   { return c.running }
func (c *fakeCycler) LastReport() *domain.CycleReport { return c.last }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	store  *memstore.Store
	cycler *fakeCycler
	server *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memstore.New()
	qualifier, err := leads.NewQualifier(leads.Config{
		Store: store,
		Rule:  domain.DelayRule{Value: 1, Unit: domain.DelayUnitDays, TargetTime: "10:00"},
	})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "leadmailer_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	cycler := &fakeCycler{report: &domain.CycleReport{ID: "c-1", Status: domain.CycleStatusCompleted, Sent: 2}}
	h := NewHandler(Config{
		Cycler:       cycler,
		Qualifier:    qualifier,
		Unsubscriber: store,
		Gatherer:     reg,
		ServiceName:  "Acme",
		Logger:       discardLogger(),
	})

	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)

	return &testEnv{store: store, cycler: cycler, server: srv}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	}
	return resp, decoded
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	env.cycler.running = true

	resp, body := env.do(t, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, true, data["cycle_in_flight"])
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "leadmailer_test_total 1")
}

func TestTriggerCycle(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/cycles", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, env.cycler.calls)
	assert.NoError(t, env.cycler.ctxErr)
	data := body["data"].(map[string]any)
	assert.Equal(t, "c-1", data["id"])
	assert.Equal(t, float64(2), data["sent"])
}

func TestTriggerCycle_Skipped(t *testing.T) {
	env := newTestEnv(t)
	env.cycler.report = &domain.CycleReport{Status: domain.CycleStatusSkipped, Reason: "in flight"}

	resp, _ := env.do(t, http.MethodPost, "/api/v1/cycles", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestTriggerCycle_Failed(t *testing.T) {
	env := newTestEnv(t)
	env.cycler.report = &domain.CycleReport{Status: domain.CycleStatusFailed, Reason: "db down"}

	resp, body := env.do(t, http.MethodPost, "/api/v1/cycles", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "db down", body["data"].(map[string]any)["reason"])
}

func TestLastCycle(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/api/v1/cycles/last", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	env.cycler.last = &domain.CycleReport{ID: "c-9", Status: domain.CycleStatusCompleted}
	resp, body := env.do(t, http.MethodGet, "/api/v1/cycles/last", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "c-9", body["data"].(map[string]any)["id"])
}

func TestQualifyLead(t *testing.T) {
	env := newTestEnv(t)
	lead := domain.Lead{Email: "a@x.com", Classification: "novo_cadastro", Timezone: "UTC"}
	require.NoError(t, env.store.SaveLead(context.Background(), &lead))

	resp, body := env.do(t, http.MethodPost, "/api/v1/leads/1/qualify", "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, true, data["delayed_send_eligible"])
	assert.NotEmpty(t, data["next_send_at"])
}

func TestQualifyLead_Errors(t *testing.T) {
	env := newTestEnv(t)
	lead := domain.Lead{Email: "gone@x.com", Unsubscribed: true}
	require.NoError(t, env.store.SaveLead(context.Background(), &lead))

	resp, _ := env.do(t, http.MethodPost, "/api/v1/leads/abc/qualify", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/api/v1/leads/99/qualify", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, string(ErrCodeNotFound), body["error"].(map[string]any)["code"])

	resp, body = env.do(t, http.MethodPost, "/api/v1/leads/1/qualify", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, string(ErrCodeUnsubscribed), body["error"].(map[string]any)["code"])
}

func TestRearmLead(t *testing.T) {
	env := newTestEnv(t)
	past := time.Now().Add(-time.Hour)
	lead := domain.Lead{Email: "a@x.com", Timezone: "UTC", NextSendAt: &past, EmailSent: true, DelayedSendEligible: true}
	require.NoError(t, env.store.SaveLead(context.Background(), &lead))

	resp, body := env.do(t, http.MethodPost, "/api/v1/leads/1/rearm", `{"value": 2, "unit": "hours"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["data"].(map[string]any)["email_sent"])

	resp, _ = env.do(t, http.MethodPost, "/api/v1/leads/1/rearm", `{"value": 2, "unit": "months"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/api/v1/leads/1/rearm", `{"value": 0, "unit": "hours"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, string(ErrCodeSendTimeInPast), body["error"].(map[string]any)["code"])

	resp, _ = env.do(t, http.MethodPost, "/api/v1/leads/1/rearm", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnsubscribe(t *testing.T) {
	env := newTestEnv(t)
	lead := domain.Lead{Email: "a@x.com"}
	require.NoError(t, env.store.SaveLead(context.Background(), &lead))
	token, err := env.store.GetOrCreateUnsubscribeToken(context.Background(), lead.ID)
	require.NoError(t, err)

	resp, _ := env.do(t, http.MethodGet, "/unsubscribe?token="+token, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	stored, err := env.store.GetLead(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.True(t, stored.Unsubscribed)

	resp, _ = env.do(t, http.MethodGet, "/unsubscribe?token=nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/unsubscribe", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_NotFoundAndMethod(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/v1/cycles", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRecovery(t *testing.T) {
	h := Recovery(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), string(ErrCodeInternalError))
}
