package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/webdesk/internal/domain/apps"
	"github.com/GriffinCanCode/webdesk/internal/domain/desktop"
	"github.com/GriffinCanCode/webdesk/internal/domain/session"
	"github.com/GriffinCanCode/webdesk/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/webdesk/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/webdesk/internal/providers/chat"
	"github.com/GriffinCanCode/webdesk/internal/providers/weather"
)

type mockChat struct {
	mock.Mock
	missingKey bool
}

func (m *mockChat) Configured() bool {
	return !m.missingKey
}

func (m *mockChat) Complete(ctx context.Context, messages []json.RawMessage) (chat.Message, error) {
	args := m.Called(ctx, messages)
	return args.Get(0).(chat.Message), args.Error(1)
}

type mockWeather struct {
	mock.Mock
}

func (m *mockWeather) Current(ctx context.Context, city string) (json.RawMessage, error) {
	args := m.Called(ctx, city)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

type testEnv struct {
	server   *httptest.Server
	sessions *session.Manager
	chat     *mockChat
	weather  *mockWeather
}

type frame struct {
	Type   string          `json:"type"`
	ID     string          `json:"id"`
	State  *desktop.State  `json:"state"`
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
	Error  string          `json:"error"`
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		sessions: session.NewManager(apps.Builtin(), session.DefaultConfig(), nil),
		chat:     new(mockChat),
		weather:  new(mockWeather),
	}

	router := gin.New()
	h := NewHandler(env.sessions, env.chat, env.weather, opts)
	router.GET("/api/desktop/sessions/:sid/stream", h.HandleConnection)

	env.server = httptest.NewServer(router)
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) url(sid string) string {
	return "ws" + strings.TrimPrefix(e.server.URL, "http") + "/api/desktop/sessions/" + sid + "/stream"
}

func (e *testEnv) newSession(t *testing.T) *session.Desktop {
	t.Helper()
	d, err := e.sessions.Create()
	require.NoError(t, err)
	return d
}

func (e *testEnv) dial(t *testing.T, sid string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(e.url(sid), nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func read(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

// readType skips frames until one of the given type arrives
func readType(t *testing.T, conn *websocket.Conn, typ string) frame {
	t.Helper()
	for i := 0; i < 20; i++ {
		if f := read(t, conn); f.Type == typ {
			return f
		}
	}
	t.Fatalf("no %q frame received", typ)
	return frame{}
}

func TestStreamSendsInitialState(t *testing.T) {
	env := newTestEnv(t, Options{})
	d := env.newSession(t)
	d.Store.OpenWindow("music")

	conn := env.dial(t, d.ID.String())

	f := read(t, conn)
	assert.Equal(t, TypeState, f.Type)
	require.NotNil(t, f.State)
	require.Len(t, f.State.Windows, 1)
	assert.Equal(t, "music", f.State.FocusedWindow)
}

func TestStreamUnknownSession(t *testing.T) {
	env := newTestEnv(t, Options{})

	_, resp, err := websocket.DefaultDialer.Dial(env.url("desk_missing"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStreamOriginCheck(t *testing.T) {
	env := newTestEnv(t, Options{Origins: []string{"http://desk.example.com"}})
	d := env.newSession(t)

	header := http.Header{"Origin": []string{"http://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(env.url(d.ID.String()), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "http://desk.example.com")
	conn, resp, err := websocket.DefaultDialer.Dial(env.url(d.ID.String()), header)
	require.NoError(t, err)
	resp.Body.Close()
	conn.Close()
}

func TestStreamCommands(t *testing.T) {
	env := newTestEnv(t, Options{})
	d := env.newSession(t)
	conn := env.dial(t, d.ID.String())
	read(t, conn) // initial state

	send(t, conn, map[string]any{
		"type":    TypeCommand,
		"id":      "1",
		"command": map[string]any{"op": desktop.OpOpenWindow, "app_id": "browser"},
	})
	f := readType(t, conn, TypeState)
	require.Len(t, f.State.Windows, 1)
	assert.Equal(t, "browser", f.State.FocusedWindow)
	assert.Equal(t, int64(11), f.State.Windows[0].Z)
	assert.Equal(t, f.State.Windows, d.Store.Windows())

	tests := []struct {
		name    string
		command any
	}{
		{"unknown op", map[string]any{"op": "teleport"}},
		{"missing app id", map[string]any{"op": desktop.OpCloseWindow}},
		{"unsafe app id", map[string]any{"op": desktop.OpCloseWindow, "app_id": "../etc"}},
		{"no command", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send(t, conn, map[string]any{"type": TypeCommand, "id": tt.name, "command": tt.command})
			f := read(t, conn)
			assert.Equal(t, TypeError, f.Type)
			assert.Equal(t, tt.name, f.ID)
			assert.NotEmpty(t, f.Error)
		})
	}
}

func TestStreamBroadcastsToAllConnections(t *testing.T) {
	env := newTestEnv(t, Options{})
	d := env.newSession(t)

	a := env.dial(t, d.ID.String())
	b := env.dial(t, d.ID.String())
	read(t, a)
	read(t, b)

	send(t, a, map[string]any{
		"type":    TypeCommand,
		"command": map[string]any{"op": desktop.OpToggleStartMenu},
	})

	assert.True(t, readType(t, a, TypeState).State.StartMenuOpen)
	assert.True(t, readType(t, b, TypeState).State.StartMenuOpen)

	// Changes made outside the stream are pushed too
	d.Store.TriggerShutdownScreen()
	assert.True(t, readType(t, b, TypeState).State.ShutdownScreenActive)
}

func TestStreamPingAndUnknownFrames(t *testing.T) {
	env := newTestEnv(t, Options{})
	d := env.newSession(t)
	conn := env.dial(t, d.ID.String())
	read(t, conn)

	send(t, conn, map[string]any{"type": TypePing, "id": "p1"})
	f := read(t, conn)
	assert.Equal(t, TypePong, f.Type)
	assert.Equal(t, "p1", f.ID)

	send(t, conn, map[string]any{"type": "dance"})
	f = read(t, conn)
	assert.Equal(t, TypeError, f.Type)
	assert.Equal(t, "unknown message type", f.Error)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	f = read(t, conn)
	assert.Equal(t, TypeError, f.Type)
	assert.Equal(t, "invalid frame", f.Error)
}

func TestStreamChat(t *testing.T) {
	env := newTestEnv(t, Options{})
	d := env.newSession(t)
	conn := env.dial(t, d.ID.String())
	read(t, conn)

	parts := `{"role":"user","content":[{"type":"text","text":"hello"}]}`
	env.chat.On("Complete", mock.Anything, mock.MatchedBy(func(msgs []json.RawMessage) bool {
		return len(msgs) == 1 && string(msgs[0]) == parts
	})).Return(chat.Message{Role: "assistant", Content: "hi there"}, nil).Once()

	send(t, conn, map[string]any{"type": TypeChat, "id": "c1", "messages": []json.RawMessage{json.RawMessage(parts)}})
	f := readType(t, conn, TypeChat)
	assert.Equal(t, "c1", f.ID)
	assert.Equal(t, http.StatusOK, f.Status)
	assert.JSONEq(t, `{"assistantMessage":{"role":"assistant","content":"hi there"}}`, string(f.Body))

	env.chat.AssertExpectations(t)
}

func TestStreamChatRejectsEmptyConversation(t *testing.T) {
	env := newTestEnv(t, Options{})
	d := env.newSession(t)
	conn := env.dial(t, d.ID.String())
	read(t, conn)

	for _, messages := range []any{nil, []any{}, "hello"} {
		send(t, conn, map[string]any{"type": TypeChat, "id": "c", "messages": messages})
		f := readType(t, conn, TypeChat)
		assert.Equal(t, http.StatusBadRequest, f.Status)
		assert.JSONEq(t, `{"error":"Invalid \"messages\" array."}`, string(f.Body))
	}

	env.chat.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestStreamChatMissingKey(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.chat.missingKey = true
	d := env.newSession(t)
	conn := env.dial(t, d.ID.String())
	read(t, conn)

	for _, messages := range []any{nil, []any{}, []map[string]string{{"role": "user", "content": "hi"}}} {
		send(t, conn, map[string]any{"type": TypeChat, "id": "c", "messages": messages})
		f := readType(t, conn, TypeChat)
		assert.Equal(t, http.StatusInternalServerError, f.Status)
		assert.JSONEq(t, `{"error":"OpenAI API key not configured"}`, string(f.Body))
	}

	env.chat.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestStreamChatUpstreamError(t *testing.T) {
	env := newTestEnv(t, Options{})
	d := env.newSession(t)
	conn := env.dial(t, d.ID.String())
	read(t, conn)

	env.chat.On("Complete", mock.Anything, mock.Anything).
		Return(chat.Message{}, &chat.UpstreamError{Status: http.StatusTooManyRequests, RetryAfter: 30}).Once()

	send(t, conn, map[string]any{
		"type":     TypeChat,
		"id":       "c2",
		"messages": []chat.Message{{Role: "user", Content: "again"}},
	})
	f := readType(t, conn, TypeChat)
	assert.Equal(t, http.StatusTooManyRequests, f.Status)

	var body map[string]any
	require.NoError(t, json.Unmarshal(f.Body, &body))
	assert.Equal(t, float64(30), body["retryAfter"])
}

func TestStreamChatCancelledOnClose(t *testing.T) {
	env := newTestEnv(t, Options{})
	d := env.newSession(t)
	conn := env.dial(t, d.ID.String())
	read(t, conn)

	started := make(chan struct{})
	cancelled := make(chan struct{})
	env.chat.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			close(started)
			<-ctx.Done()
			close(cancelled)
		}).
		Return(chat.Message{}, context.Canceled).Once()

	send(t, conn, map[string]any{
		"type":     TypeChat,
		"messages": []chat.Message{{Role: "user", Content: "slow"}},
	})

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("chat request not started")
	}

	conn.Close()

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("chat request not cancelled after close")
	}
}

func TestStreamWeather(t *testing.T) {
	env := newTestEnv(t, Options{})
	d := env.newSession(t)
	conn := env.dial(t, d.ID.String())
	read(t, conn)

	raw := json.RawMessage(`{"location":{"name":"Paris"},"current":{"temp_c":18}}`)
	env.weather.On("Current", mock.Anything, "Paris").Return(raw, nil).Once()
	env.weather.On("Current", mock.Anything, "Nowhereville").
		Return(nil, &weather.UpstreamError{Status: http.StatusBadRequest}).Once()

	send(t, conn, map[string]any{"type": TypeWeather, "id": "w1", "city": "Paris"})
	f := readType(t, conn, TypeWeather)
	assert.Equal(t, "w1", f.ID)
	assert.Equal(t, http.StatusOK, f.Status)
	assert.JSONEq(t, string(raw), string(f.Body))

	send(t, conn, map[string]any{"type": TypeWeather, "id": "w2", "city": "Nowhereville"})
	f = readType(t, conn, TypeWeather)
	assert.Equal(t, http.StatusBadRequest, f.Status)
	assert.JSONEq(t, `{"error":"Failed to fetch weather data"}`, string(f.Body))

	long := strings.Repeat("x", 500)
	env.weather.On("Current", mock.Anything, long).Return(raw, nil).Once()
	send(t, conn, map[string]any{"type": TypeWeather, "id": "w3", "city": long})
	f = readType(t, conn, TypeWeather)
	assert.Equal(t, http.StatusOK, f.Status)

	env.weather.AssertExpectations(t)
}

func TestStreamWeatherTraced(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	tracer := tracing.New("test", zap.New(core))
	defer tracer.Close()

	env := newTestEnv(t, Options{Tracer: tracer})
	d := env.newSession(t)
	conn := env.dial(t, d.ID.String())
	read(t, conn)

	traced := make(chan string, 1)
	env.weather.On("Current", mock.Anything, "Oslo").
		Run(func(args mock.Arguments) {
			traced <- tracing.TraceID(args.Get(0).(context.Context))
		}).
		Return(json.RawMessage(`{}`), nil).Once()

	send(t, conn, map[string]any{"type": TypeWeather, "id": "w1", "city": "Oslo"})
	f := readType(t, conn, TypeWeather)
	assert.Equal(t, http.StatusOK, f.Status)
	traceID := <-traced
	assert.NotEmpty(t, traceID)

	spans := func() []observer.LoggedEntry {
		return logs.FilterMessage("span completed").FilterField(zap.String("operation", "ws.weather")).All()
	}
	require.Eventually(t, func() bool { return len(spans()) == 1 }, 2*time.Second, 10*time.Millisecond)

	fields := spans()[0].ContextMap()
	assert.Equal(t, traceID, fields["trace_id"])
	assert.Equal(t, "Oslo", fields["city"])
	assert.Equal(t, "w1", fields["request_id"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
}

func TestStreamMetrics(t *testing.T) {
	metrics := monitoring.NewMetricsWith(prometheus.NewRegistry())
	env := newTestEnv(t, Options{Metrics: metrics})
	d := env.newSession(t)
	conn := env.dial(t, d.ID.String())
	read(t, conn)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.WSConnections))

	send(t, conn, map[string]any{"type": TypePing})
	read(t, conn)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.WSMessages.WithLabelValues("in", TypePing)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.WSMessages.WithLabelValues("out", TypePong)))

	send(t, conn, map[string]any{"type": "bogus"})
	read(t, conn)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.WSMessages.WithLabelValues("in", "unknown")))

	conn.Close()
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.WSConnections) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
