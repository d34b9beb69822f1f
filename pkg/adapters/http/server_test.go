package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/hfsm"
	"github.com/aretw0/hfsm/internal/testutils"
	"github.com/aretw0/hfsm/pkg/adapters/memory"
	"github.com/aretw0/hfsm/pkg/domain"
	"github.com/aretw0/hfsm/pkg/observability"
	"github.com/aretw0/hfsm/pkg/session"
)

func setup(t *testing.T, engineOpts []hfsm.Option, opts ...Option) http.Handler {
	t.Helper()
	eng, err := hfsm.FromGraph(testutils.SampleGraph(t), engineOpts...)
	require.NoError(t, err)
	return NewHandler(session.NewManager(eng, memory.NewStore()), opts...)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndInfo(t *testing.T) {
	h := setup(t, nil)

	w := do(t, h, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, h, "GET", "/info", "")
	info := decodeBody[map[string]string](t, w)
	assert.Equal(t, "hfsm-http", info["app"])
	assert.Equal(t, strings.TrimSpace(hfsm.Version), info["version"])
}

func TestGetGraph(t *testing.T) {
	h := setup(t, nil)

	w := do(t, h, "GET", "/graph", "")
	require.Equal(t, http.StatusOK, w.Code)
	doc := decodeBody[map[string]any](t, w)
	assert.Equal(t, "app", doc["root"])
	assert.Len(t, doc["nodes"], len(testutils.SampleIDs))

	w = do(t, h, "GET", "/graph?format=mermaid", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "graph TD"))

	w = do(t, h, "GET", "/graph?format=dot", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "digraph hfsm")

	w = do(t, h, "GET", "/graph?format=png", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, "GET", "/graph?format=mermaid&machine_id=ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTransition(t *testing.T) {
	h := setup(t, nil)

	w := do(t, h, "POST", "/transition", `{"arrows": ["app:home/open"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody[TransitionResponse](t, w)
	assert.Equal(t, domain.FSMState{"app": "app:settings", "app:settings": "app:settings:audio"}, resp.State)
	assert.Equal(t, domain.Change{From: "app:home", To: "app:settings"}, resp.Diff.Changed["app"])

	// Structured steps and an explicit state.
	w = do(t, h, "POST", "/transition", `{
		"state": {"app": "app:settings", "app:settings": "app:settings:audio"},
		"arrows": [[["app:settings:audio", "next"]]]
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp = decodeBody[TransitionResponse](t, w)
	assert.Equal(t, domain.NodeID("app:settings:video"), resp.State["app:settings"])
}

func TestTransition_Errors(t *testing.T) {
	h := setup(t, nil)

	tests := []struct {
		name string
		body string
		code int
		kind string
	}{
		{"bad json", `{"arrows": `, http.StatusBadRequest, ""},
		{"bad arrow text", `{"arrows": ["no-slash"]}`, http.StatusBadRequest, ""},
		{"no arrow", `{"arrows": ["app:home/fly"]}`, http.StatusUnprocessableEntity, "no_arrow"},
		{"conflict", `{"arrows": ["app:home/open", "app:settings/close"]}`, http.StatusConflict, "conflict"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, "POST", "/transition", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
			if tt.kind != "" {
				assert.Equal(t, tt.kind, decodeBody[map[string]string](t, w)["kind"])
			}
		})
	}
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusCode(domain.ErrMachineNotFound))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusCode(&domain.NoArrowFoundError{}))
	assert.Equal(t, http.StatusConflict, StatusCode(&domain.ConflictError{}))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(&domain.InvalidGraphError{Reason: "x"}))
}

func TestMachines(t *testing.T) {
	h := setup(t, nil)

	w := do(t, h, "GET", "/machines", "")
	assert.JSONEq(t, `{"machines": []}`, w.Body.String())

	w = do(t, h, "GET", "/machines/m1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, "PUT", "/machines/m1", "")
	require.Equal(t, http.StatusOK, w.Code)
	started := decodeBody[MachineResponse](t, w)
	assert.Equal(t, "m1", started.MachineID)
	assert.Equal(t, domain.NodeID("app:home"), started.State["app"])

	w = do(t, h, "POST", "/machines/m1/arrows", `{"arrows": ["app:home/open"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decodeBody[session.Outcome](t, w)
	assert.Equal(t, domain.NodeID("app:settings"), out.State["app"])
	assert.Equal(t, domain.NodeID("app:home"), out.Previous["app"])

	w = do(t, h, "POST", "/machines/m1/arrows", `{"arrows": ["app:home/fly"]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, h, "GET", "/machines/m1", "")
	got := decodeBody[MachineResponse](t, w)
	assert.Equal(t, domain.NodeID("app:settings"), got.State["app"], "failed fire leaves state untouched")

	w = do(t, h, "GET", "/graph?format=mermaid&machine_id=m1", "")
	assert.Contains(t, w.Body.String(), "class app__settings active;")

	w = do(t, h, "GET", "/machines", "")
	assert.JSONEq(t, `{"machines": ["m1"]}`, w.Body.String())

	w = do(t, h, "DELETE", "/machines/m1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, "GET", "/machines/m1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBroadcast(t *testing.T) {
	h := setup(t, nil)

	w := do(t, h, "POST", "/broadcast", `{"machine_ids": ["a", "b"], "arrows": ["app:home/open"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody[struct {
		Outcomes map[string]session.Outcome `json:"outcomes"`
	}](t, w)
	require.Len(t, resp.Outcomes, 2)
	assert.Equal(t, domain.NodeID("app:settings"), resp.Outcomes["b"].State["app"])
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	h := setup(t, []hfsm.Option{hfsm.WithLifecycleHooks(metrics.Hooks())}, WithMetrics(reg))

	do(t, h, "POST", "/transition", `{"arrows": ["app:home/open"]}`)

	w := do(t, h, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `hfsm_transitions_total{result="ok"} 1`)
}

func TestSubscribeEvents_Machine(t *testing.T) {
	srv := httptest.NewServer(setup(t, nil))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/events?machine_id=m1&watch=app", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())

	// Changes app:settings only: filtered out by watch=app.
	fire(t, srv.URL+"/machines/m1/arrows", `{"arrows": ["app:settings:audio/next"]}`)
	fire(t, srv.URL+"/machines/m1/arrows", `{"arrows": ["app:home/open"]}`)

	var data string
	for lines.Scan() {
		if strings.HasPrefix(lines.Text(), "data: {") {
			data = strings.TrimPrefix(lines.Text(), "data: ")
			break
		}
	}
	var diff domain.StateDiff
	require.NoError(t, json.Unmarshal([]byte(data), &diff))
	assert.Equal(t, domain.Change{From: "app:home", To: "app:settings"}, diff.Changed["app"])
	assert.NotContains(t, diff.Changed, domain.NodeID("app:settings"))
}

func TestSubscribeEvents_NotWatchable(t *testing.T) {
	w := do(t, setup(t, nil), "GET", "/events", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func fire(t *testing.T, url, body string) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
