package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/roundtable"
	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/internal/testutil"
	"github.com/hupe1980/roundtable/metrics"
)

func newTestServer(t *testing.T, gw *testutil.ScriptedGateway) (*Server, *httptest.Server, *roundtable.Roundtable) {
	t.Helper()
	collector := metrics.NewCollector()
	rt, err := roundtable.New(func(o *roundtable.Options) {
		o.Gateway = gw
		o.Interval = 0
		o.Metrics = collector
	})
	require.NoError(t, err)

	s := New(rt, func(o *Options) { o.Metrics = collector })
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts, rt
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func readFrames(t *testing.T, r io.Reader) []string {
	t.Helper()
	var frames []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := sc.Text(); strings.HasPrefix(line, "data: ") {
			frames = append(frames, strings.TrimPrefix(line, "data: "))
		}
	}
	require.NoError(t, sc.Err())
	return frames
}

func TestChat_StreamsEvents(t *testing.T) {
	_, ts, rt := newTestServer(t, &testutil.ScriptedGateway{})

	resp := postJSON(t, ts.URL+"/api/chat", map[string]any{"topic": "best budget GPU", "turns": 3})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	frames := readFrames(t, resp.Body)
	require.Len(t, frames, 6)
	assert.Equal(t, "[DONE]", frames[5])

	var types []string
	for _, f := range frames[:5] {
		var ev struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal([]byte(f), &ev))
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{"start", "message", "message", "message", "complete"}, types)

	list, err := rt.Conversations(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestChat_MissingTopic(t *testing.T) {
	_, ts, _ := newTestServer(t, &testutil.ScriptedGateway{})

	resp := postJSON(t, ts.URL+"/api/chat", map[string]any{"turns": 3})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Topic is required", body.Error)
}

func TestChat_MethodNotAllowed(t *testing.T) {
	_, ts, _ := newTestServer(t, &testutil.ScriptedGateway{})

	resp, err := http.Get(ts.URL + "/api/chat")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestConversations(t *testing.T) {
	_, ts, rt := newTestServer(t, &testutil.ScriptedGateway{})

	id, _, err := rt.InvokeSync(context.Background(), roundtable.Request{Topic: "weather", Turns: 2})
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/api/conversations")
	require.NoError(t, err)
	defer resp.Body.Close()

	var list []core.ConversationSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, 2, list[0].MessageCount)

	resp, err = http.Get(ts.URL + "/api/conversations/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var rec core.ConversationRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	assert.Equal(t, "weather", rec.Topic)
	assert.Len(t, rec.Messages, 2)

	resp, err = http.Get(ts.URL + "/api/conversations/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestConversations_EmptyList(t *testing.T) {
	_, ts, _ := newTestServer(t, &testutil.ScriptedGateway{})

	resp, err := http.Get(ts.URL + "/api/conversations")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(body))
}

func TestStop_CancelsRunningConversations(t *testing.T) {
	gw := &testutil.ScriptedGateway{
		Reply: func(ctx context.Context, _ int, _ testutil.Call) string {
			<-ctx.Done()
			return "too late"
		},
	}
	s, ts, _ := newTestServer(t, gw)

	done := make(chan []string, 1)
	go func() {
		resp := postJSON(t, ts.URL+"/api/chat", map[string]any{"topic": "t", "turns": 3})
		defer resp.Body.Close()
		done <- readFrames(t, resp.Body)
	}()

	require.Eventually(t, func() bool { return s.Active() == 1 }, 5*time.Second, 10*time.Millisecond)

	resp := postJSON(t, ts.URL+"/api/stop", nil)
	defer resp.Body.Close()
	var body map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body["success"])

	select {
	case frames := <-done:
		require.Len(t, frames, 1)
		assert.Contains(t, frames[0], `"type":"start"`)
	case <-time.After(5 * time.Second):
		t.Fatal("chat stream did not end after stop")
	}
	assert.Equal(t, 0, s.Active())
}

func TestMetricsAndHealth(t *testing.T) {
	_, ts, _ := newTestServer(t, &testutil.ScriptedGateway{})

	resp := postJSON(t, ts.URL+"/api/chat", map[string]any{"topic": "t", "turns": 1})
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `roundtable_sessions_total{mode="fresh",status="completed"} 1`)

	resp, err = http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
