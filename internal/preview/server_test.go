package preview

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playground/internal/engine"
	"playground/internal/events"
	"playground/internal/markdown"
	"playground/internal/vfs"
	"playground/llm/llmtest"
)

type fixture struct {
	orch   *engine.Orchestrator
	bus    *events.EventBus
	server *httptest.Server
}

func newFixture(t *testing.T, scripts ...llmtest.Script) *fixture {
	t.Helper()
	bus := events.NewEventBus()
	orch := engine.New(llmtest.New(scripts...), vfs.NewStore(), vfs.NewMemorySandbox()).WithEventBus(bus)
	renderer, err := markdown.NewRenderer(0)
	require.NoError(t, err)

	srv := httptest.NewServer(New(orch, bus, renderer, nil).Handler())
	t.Cleanup(srv.Close)
	return &fixture{orch: orch, bus: bus, server: srv}
}

// idle returns a channel closed the next time the orchestrator goes idle.
func (f *fixture) idle() <-chan struct{} {
	ch := make(chan struct{})
	var once sync.Once
	f.bus.Subscribe(func(e events.Event) {
		if busy, _ := e.Data.(bool); !busy {
			once.Do(func() { close(ch) })
		}
	}, events.BusyChanged)
	return ch
}

func (f *fixture) post(t *testing.T, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(f.server.URL+"/api/messages", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}
}

func TestSendThenReadFiles(t *testing.T) {
	f := newFixture(t,
		llmtest.ToolCall(engine.ToolName, `{"type":"component","filePath":"components/Foo.vue"}`),
		llmtest.Text("<template>", "<p>Foo</p>", "</template>"),
	)

	idle := f.idle()
	resp := f.post(t, `{"content":"make a Foo component"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	waitFor(t, idle)

	var files []fileEntry
	getJSON(t, f.server.URL+"/api/files", &files)
	require.Len(t, files, 2)
	assert.Equal(t, "components/.gitkeep", files[0].Path)
	assert.Equal(t, "components/Foo.vue", files[1].Path)
	assert.Equal(t, len("<template><p>Foo</p></template>"), files[1].Size)

	raw, err := http.Get(f.server.URL + "/api/files/components/Foo.vue")
	require.NoError(t, err)
	defer raw.Body.Close()
	body, _ := io.ReadAll(raw.Body)
	assert.Equal(t, "<template><p>Foo</p></template>", string(body))

	missing, err := http.Get(f.server.URL + "/api/files/nope.vue")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	var state stateView
	getJSON(t, f.server.URL+"/api/state", &state)
	assert.False(t, state.Busy)
	assert.Equal(t, "idle", state.State)
	assert.Equal(t, 2, state.Files)
	require.NotNil(t, state.Generation)
	assert.Equal(t, "components/Foo.vue", state.Generation.Path)
	assert.Equal(t, "created components/Foo.vue (+1 -0)", state.Generation.Summary)
}

func TestMessagesAreRendered(t *testing.T) {
	f := newFixture(t, llmtest.Text("Use **props**", " here."))

	idle := f.idle()
	f.post(t, `{"content":"how?"}`)
	waitFor(t, idle)

	var msgs []messageView
	getJSON(t, f.server.URL+"/api/messages", &msgs)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "Use **props** here.", msgs[1].Content)
	assert.Contains(t, msgs[1].HTML, "<strong>props</strong>")
}

func TestSendRejections(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	slow := llmtest.Text("slow")
	slow.Before = func(int) {
		close(started)
		<-release
	}
	f := newFixture(t, slow)

	assert.Equal(t, http.StatusBadRequest, f.post(t, `{"content":`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, f.post(t, `{"content":"   "}`).StatusCode)

	idle := f.idle()
	assert.Equal(t, http.StatusAccepted, f.post(t, `{"content":"first"}`).StatusCode)
	waitFor(t, started)
	assert.Equal(t, http.StatusConflict, f.post(t, `{"content":"second"}`).StatusCode)

	close(release)
	waitFor(t, idle)
	assert.Len(t, f.orch.Messages(), 2)
}

func TestWebsocketStreamsEvents(t *testing.T) {
	f := newFixture(t,
		llmtest.ToolCall(engine.ToolName, `{"type":"style","filePath":"assets/main.css"}`),
		llmtest.Text("body {", "}"),
	)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var hello wsOutbound
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "subscribed", hello.Type)

	require.NoError(t, conn.WriteJSON(wsInbound{Type: "ping"}))
	var pong wsOutbound
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, "pong", pong.Type)

	require.NoError(t, conn.WriteJSON(wsInbound{Type: "send", Content: "styles please"}))

	var seen []string
	var chunks []string
	acked, finished := false, false
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for !acked || !finished {
		var msg map[string]any
		require.NoError(t, conn.ReadJSON(&msg))
		typ := msg["type"].(string)
		seen = append(seen, typ)
		switch typ {
		case "send_ack":
			acked = true
		case string(events.GenerationChunk):
			data := msg["data"].(map[string]any)
			chunks = append(chunks, data["delta"].(string))
		case string(events.GenerationFinished):
			finished = true
		}
	}

	assert.Contains(t, seen, string(events.FileCreated))
	assert.Equal(t, []string{"body {", "}"}, chunks)
}

func TestWebsocketRejectsUnknownType(t *testing.T) {
	f := newFixture(t)
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var hello wsOutbound
	require.NoError(t, conn.ReadJSON(&hello))

	require.NoError(t, conn.WriteJSON(wsInbound{Type: "dance"}))
	var out wsOutbound
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, "error", out.Type)
	assert.Equal(t, "invalid_argument", out.Code)
}

func TestListenAndServeStopsWithContext(t *testing.T) {
	orch := engine.New(llmtest.New(), vfs.NewStore(), vfs.NewMemorySandbox())
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- New(orch, events.NewEventBus(), nil, nil).ListenAndServe(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
