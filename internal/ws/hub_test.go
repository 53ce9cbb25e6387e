package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
)

type fakeSource struct {
	mu      sync.Mutex
	emit    func(any)
	stopped atomic.Int32
}

func (f *fakeSource) open(ctx context.Context, p Principal, emit func(any)) (func(), error) {
	f.mu.Lock()
	f.emit = emit
	f.mu.Unlock()
	emit([]string{"snapshot:" + p.Role})
	return func() { f.stopped.Add(1) }, nil
}

func (f *fakeSource) push(v any) {
	f.mu.Lock()
	emit := f.emit
	f.mu.Unlock()
	emit(v)
}

func startHub(t *testing.T, hub *Hub, p Principal) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(context.Background(), conn, p)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestHub_DefaultAndRequestedChannels(t *testing.T) {
	notifications, mine := &fakeSource{}, &fakeSource{}
	hub := NewHub(ChannelNotifications)
	hub.Handle(ChannelNotifications, notifications.open)
	hub.Handle(ChannelDonationsMine, mine.open)

	conn := startHub(t, hub, Principal{UserID: uuid.New(), Role: "donor"})

	frame := readFrame(t, conn)
	assert.Equal(t, ChannelNotifications, frame["type"])
	assert.Equal(t, []any{"snapshot:donor"}, frame["data"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "subscribe", "channel": ChannelDonationsMine}))
	frame = readFrame(t, conn)
	assert.Equal(t, ChannelDonationsMine, frame["type"])

	mine.push("live")
	frame = readFrame(t, conn)
	assert.Equal(t, ChannelDonationsMine, frame["type"])
	assert.Equal(t, "live", frame["data"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "subscribe", "channel": "donations.all"}))
	frame = readFrame(t, conn)
	assert.Equal(t, "error", frame["type"])

	assert.Equal(t, 1, hub.ClientCount())
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0 && notifications.stopped.Load() == 1 && mine.stopped.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_SourceErrorIsReported(t *testing.T) {
	hub := NewHub()
	hub.Handle(ChannelDonationsPickups, func(ctx context.Context, p Principal, emit func(any)) (func(), error) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "только для НКО")
	})
	conn := startHub(t, hub, Principal{UserID: uuid.New(), Role: "donor"})

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "subscribe", "channel": ChannelDonationsPickups}))
	frame := readFrame(t, conn)
	assert.Equal(t, "error", frame["type"])
	data, ok := frame["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "только для НКО", data["message"])
}

func TestHub_UnsubscribeStopsSource(t *testing.T) {
	src := &fakeSource{}
	hub := NewHub(ChannelNotifications)
	hub.Handle(ChannelNotifications, src.open)
	conn := startHub(t, hub, Principal{UserID: uuid.New()})

	readFrame(t, conn)
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "unsubscribe", "channel": ChannelNotifications}))
	require.Eventually(t, func() bool { return src.stopped.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Shutdown()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), src.stopped.Load())
}
