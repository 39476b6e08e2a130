package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/remixlab/remixd/internal/interfaces"
	"github.com/remixlab/remixd/internal/jobs"
	"github.com/remixlab/remixd/internal/models"
	"github.com/remixlab/remixd/internal/services/media"
)

// wireSnapshot mirrors the broadcast payload as read off the wire.
type wireSnapshot struct {
	Identifier string  `json:"identifier"`
	Variant    string  `json:"variant"`
	State      string  `json:"state"`
	Failed     bool    `json:"failed"`
	Cancelled  bool    `json:"cancelled"`
	Result     *string `json:"result"`
}

type wireMessage struct {
	Op   string `json:"op"`
	Data struct {
		wireSnapshot
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"data"`
}

type quickFetcher struct {
	calls int32
}

func (f *quickFetcher) Fetch(ctx context.Context, identifier string) (*interfaces.FetchedMedia, error) {
	atomic.AddInt32(&f.calls, 1)
	return &interfaces.FetchedMedia{Identifier: identifier, Title: "t", Path: "/tmp/" + identifier, Format: "mp3"}, nil
}

type quickTransformer struct{}

func (quickTransformer) Apply(ctx context.Context, m *interfaces.FetchedMedia, variant string) (*interfaces.TransformedMedia, error) {
	return &interfaces.TransformedMedia{Identifier: m.Identifier, Variant: variant, Title: m.Title, Path: m.Path, Format: m.Format}, nil
}

type quickPublisher struct{}

func (quickPublisher) Publish(ctx context.Context, m *interfaces.TransformedMedia) (string, error) {
	return "http://localhost/artifacts/" + m.Identifier + "-" + m.Variant, nil
}

// newTestServer wires the full websocket stack over fake media services.
func newTestServer(t *testing.T, fetcher interfaces.Fetcher) *httptest.Server {
	t.Helper()
	logger := arbor.NewLogger()

	connections := NewConnectionRegistry(logger)
	registry := jobs.NewRegistry(context.Background(), fetcher, quickTransformer{}, quickPublisher{}, connections, 4, logger)
	t.Cleanup(registry.Close)

	dispatcher := NewDispatcher(registry, media.NewYouTubeResolver(), logger)
	handler := NewWebSocketHandler(connections, dispatcher, registry, logger)

	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntilTerminal reads status messages until a terminal snapshot arrives.
func readUntilTerminal(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg wireMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Op == "STATUS" && msg.Data.State == "DONE" {
			return msg
		}
	}
}

func TestWebSocketStatusFanOut(t *testing.T) {
	fetcher := &quickFetcher{}
	server := newTestServer(t, fetcher)

	// The same video requested by URL and by bare ID resolves to one job.
	requests := []string{
		`{"op":"INIT","data":{"identifier":"https://www.youtube.com/watch?v=dQw4w9WgXcQ","variant":"resample_up"}}`,
		`{"op":"INIT","data":{"identifier":"dQw4w9WgXcQ","variant":"resample_up"}}`,
		`{"op":"INIT","data":{"identifier":"https://youtu.be/dQw4w9WgXcQ","variant":"resample_up"}}`,
	}

	conns := make([]*websocket.Conn, len(requests))
	for i, req := range requests {
		conns[i] = dial(t, server)
		require.NoError(t, conns[i].WriteMessage(websocket.TextMessage, []byte(req)))
	}

	for _, conn := range conns {
		msg := readUntilTerminal(t, conn)
		assert.Equal(t, "dQw4w9WgXcQ", msg.Data.Identifier)
		assert.Equal(t, "resample_up", msg.Data.Variant)
		assert.False(t, msg.Data.Failed)
		require.NotNil(t, msg.Data.Result)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))
}

func TestWebSocketInvalidMessageKeepsConnectionAlive(t *testing.T) {
	server := newTestServer(t, &quickFetcher{})
	conn := dial(t, server)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"op":"NOPE"}`)))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg wireMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "INTERNAL_ERROR", msg.Op)
	assert.Equal(t, models.ErrorCodeValidation, msg.Data.Code)

	// The connection survives the rejection and can run a job afterwards.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"op":"INIT","data":{"identifier":"dQw4w9WgXcQ","variant":"resample_down"}}`)))
	done := readUntilTerminal(t, conn)
	assert.False(t, done.Data.Failed)
}

func TestWebSocketLateSubscriberGetsSnapshotOnInit(t *testing.T) {
	server := newTestServer(t, &quickFetcher{})

	first := dial(t, server)
	require.NoError(t, first.WriteMessage(websocket.TextMessage,
		[]byte(`{"op":"INIT","data":{"identifier":"dQw4w9WgXcQ","variant":"resample_up"}}`)))
	readUntilTerminal(t, first)

	// A second INIT after completion starts nothing and is answered with the
	// terminal snapshot directly.
	second := dial(t, server)
	require.NoError(t, second.WriteMessage(websocket.TextMessage,
		[]byte(`{"op":"INIT","data":{"identifier":"dQw4w9WgXcQ","variant":"resample_up"}}`)))
	msg := readUntilTerminal(t, second)
	require.NotNil(t, msg.Data.Result)
}

func TestWebSocketStatusQuery(t *testing.T) {
	server := newTestServer(t, &quickFetcher{})
	conn := dial(t, server)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"op":"INIT","data":{"identifier":"dQw4w9WgXcQ","variant":"resample_up"}}`)))
	readUntilTerminal(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"op":"STATUS","data":{"identifier":"dQw4w9WgXcQ","variant":"resample_up"}}`)))
	msg := readUntilTerminal(t, conn)
	assert.Equal(t, "DONE", msg.Data.State)
}
