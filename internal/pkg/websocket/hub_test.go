package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func receive(t *testing.T, ch <-chan []byte) Event {
	t.Helper()
	select {
	case data := <-ch:
		var ev Event
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func TestHubPushesOnlyToRecipient(t *testing.T) {
	hub := startHub(t)
	alice := &Client{hub: hub, send: make(chan []byte, 4), userID: 1}
	bob := &Client{hub: hub, send: make(chan []byte, 4), userID: 2}
	hub.register <- alice
	hub.register <- bob

	hub.Push(1, Event{Type: EventNotification, Data: map[string]string{"title": "Approved"}})

	ev := receive(t, alice.send)
	assert.Equal(t, EventNotification, ev.Type)
	assert.Empty(t, bob.send)
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub := startHub(t)
	c := &Client{hub: hub, send: make(chan []byte, 1), userID: 3}
	hub.register <- c
	hub.unregister <- c

	_, ok := <-c.send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.ConnectionCount(3))
}

type fakeMarker struct {
	mu     sync.Mutex
	marked []int64
}

func (f *fakeMarker) MarkRead(_ context.Context, id, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, id)
	return nil
}

func (f *fakeMarker) MarkAllRead(context.Context, int64) (int64, error) { return 0, nil }

func (f *fakeMarker) UnreadCount(context.Context, int64) (int64, error) { return 4, nil }

func TestMessageHandlerMarksReadAndPushesCount(t *testing.T) {
	hub := startHub(t)
	c := &Client{hub: hub, send: make(chan []byte, 4), userID: 9}
	hub.register <- c

	marker := &fakeMarker{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewMessageHandler(hub, marker, zerolog.Nop()).Run(ctx)

	hub.inbound <- &ClientMessage{Type: MessageMarkRead, NotificationID: 42, UserID: 9}

	ev := receive(t, c.send)
	assert.Equal(t, EventUnreadCount, ev.Type)
	require.NotNil(t, ev.UnreadCount)
	assert.Equal(t, int64(4), *ev.UnreadCount)

	marker.mu.Lock()
	defer marker.mu.Unlock()
	assert.Equal(t, []int64{42}, marker.marked)
}

func TestOriginChecker(t *testing.T) {
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws/notifications", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	open := originChecker(nil)
	assert.True(t, open(req("https://evil.example")))

	check := originChecker([]string{"https://portal.scholarsphere.app", "http://localhost:3000"})
	assert.True(t, check(req("https://portal.scholarsphere.app")))
	assert.True(t, check(req("http://LOCALHOST:3000")))
	assert.True(t, check(req("")))
	assert.False(t, check(req("https://evil.example")))
	assert.False(t, check(req("http://localhost:4000")))
}
