package eventbus

import (
	"testing"
	"time"

	"github.com/jxucoder/truthordare/model"
)

func TestSubscribePublishUnsubscribe(t *testing.T) {
	bus := NewInMemoryBus()
	ch := bus.Subscribe("s1")

	bus.Publish("s1", &Event{SessionID: "s1", Type: TypeState, State: model.SessionState{TurnCount: 3}})

	select {
	case got := <-ch:
		if got.State.TurnCount != 3 {
			t.Fatalf("unexpected turn count: %d", got.State.TurnCount)
		}
		if got.ID == 0 || got.CreatedAt.IsZero() {
			t.Fatalf("expected id and timestamp to be assigned: %+v", got)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("did not receive event")
	}

	bus.Unsubscribe("s1", ch)
	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed after unsubscribe")
	}
	if n := bus.Subscribers("s1"); n != 0 {
		t.Fatalf("expected no subscribers, got %d", n)
	}
}

func TestPublishIsScopedToSession(t *testing.T) {
	bus := NewInMemoryBus()
	a := bus.Subscribe("a")
	defer bus.Unsubscribe("a", a)

	bus.Publish("b", &Event{SessionID: "b", Type: TypeState})

	select {
	case ev := <-a:
		t.Fatalf("received event for another session: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDoesNotBlockOnSlowSubscriber(t *testing.T) {
	bus := NewInMemoryBus()
	ch := bus.Subscribe("s2")

	// Fill channel to capacity (64) without reading.
	for i := 0; i < 64; i++ {
		bus.Publish("s2", &Event{SessionID: "s2", Type: TypeState})
	}

	done := make(chan struct{})
	go func() {
		bus.Publish("s2", &Event{SessionID: "s2", Type: TypeState})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}
	bus.Unsubscribe("s2", ch)
}

func TestCloseDropsSubscribers(t *testing.T) {
	bus := NewInMemoryBus()
	ch := bus.Subscribe("s3")

	bus.Close("s3")

	ev, ok := <-ch
	if !ok || ev.Type != TypeClosed {
		t.Fatalf("expected closed event, got %+v (ok=%v)", ev, ok)
	}
	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed")
	}

	// Unsubscribing after Close must not panic on a double close.
	bus.Unsubscribe("s3", ch)
}
