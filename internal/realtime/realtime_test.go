package realtime

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/redis/go-redis/v9"
)

func recv(t *testing.T, ch chan ChangeEvent) ChangeEvent {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return ChangeEvent{}
}

func TestHubFanOut(t *testing.T) {
	hub := NewHub()
	a := hub.Subscribe(1)
	b := hub.Subscribe(1)

	hub.Publish(context.Background(), NewEvent(EventDeleted, "hki", 1, 2))

	for _, ch := range []chan ChangeEvent{a, b} {
		evt := recv(t, ch)
		if evt.Type != EventDeleted || len(evt.IDs) != 2 {
			t.Fatalf("unexpected event %+v", evt)
		}
	}

	hub.Unsubscribe(a)
	hub.Unsubscribe(a)
	if _, ok := <-a; ok {
		t.Fatalf("unsubscribed channel should be closed")
	}
	if hub.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.Subscribers())
	}
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe(1)
	hub.Publish(context.Background(), NewEvent(EventCreated, "hki", 1))
	hub.Publish(context.Background(), NewEvent(EventCreated, "hki", 2))

	if evt := recv(t, ch); evt.IDs[0] != 1 {
		t.Fatalf("expected first event kept, got %+v", evt)
	}
	select {
	case evt := <-ch:
		t.Fatalf("second event should have been dropped, got %+v", evt)
	default:
	}
}

func TestRedisRelayAcrossInstances(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run: %v", err)
	}
	defer mr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	newRelay := func() (*RedisRelay, *Hub) {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		hub := NewHub()
		relay := NewRedisRelay(client, hub, nil)
		if err := relay.Start(ctx); err != nil {
			t.Fatalf("start relay: %v", err)
		}
		return relay, hub
	}

	relayA, hubA := newRelay()
	_, hubB := newRelay()

	localA := hubA.Subscribe(4)
	remoteB := hubB.Subscribe(4)

	relayA.Publish(ctx, NewEvent(EventStatus, "hki", 9))

	if evt := recv(t, localA); evt.Type != EventStatus {
		t.Fatalf("local delivery: %+v", evt)
	}
	if evt := recv(t, remoteB); evt.Type != EventStatus || evt.IDs[0] != 9 {
		t.Fatalf("remote delivery: %+v", evt)
	}

	// the publishing instance must not see its own event a second time
	select {
	case evt := <-localA:
		t.Fatalf("duplicate local delivery: %+v", evt)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestStreamPushesEvents(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(Stream{Hub: hub})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, srv.URL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	var evt ChangeEvent
	if err := wsjson.Read(ctx, conn, &evt); err != nil {
		t.Fatalf("read ready: %v", err)
	}
	if evt.Type != EventReady {
		t.Fatalf("first frame should be ready, got %+v", evt)
	}

	hub.Publish(ctx, NewEvent(EventUpdated, "hki", 3))

	evt = ChangeEvent{}
	if err := wsjson.Read(ctx, conn, &evt); err != nil {
		t.Fatalf("read: %v", err)
	}
	if evt.Type != EventUpdated || evt.Resource != "hki" || evt.IDs[0] != 3 {
		t.Fatalf("unexpected event %+v", evt)
	}
}

func TestStreamClosesWhenHubCloses(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(Stream{Hub: hub})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, srv.URL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	var evt ChangeEvent
	if err := wsjson.Read(ctx, conn, &evt); err != nil {
		t.Fatalf("read ready: %v", err)
	}

	hub.Close()
	hub.Close()

	_, _, err = conn.Read(ctx)
	if status := websocket.CloseStatus(err); status != websocket.StatusGoingAway {
		t.Fatalf("expected going away close, got %v (%v)", status, err)
	}
	if hub.Subscribers() != 0 {
		t.Fatalf("closed hub should have no subscribers")
	}
	if _, ok := <-hub.Subscribe(1); ok {
		t.Fatalf("subscribing to a closed hub should yield a closed channel")
	}
	hub.Publish(ctx, NewEvent(EventCreated, "hki", 1))
}
