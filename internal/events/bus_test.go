package events

import (
	"testing"
	"time"
)

func TestBus_SubscribeByType(t *testing.T) {
	bus := New(10)
	defer bus.Close()

	broken := bus.Subscribe(TypeSceneBroken)
	all := bus.Subscribe()

	bus.Publish(NewSceneCompiledEvent("p1", "s1", "hash", 90))
	bus.Publish(NewSceneBrokenEvent("p1", "s2", "Outro", "unexpected token", "code", "hash"))

	select {
	case ev := <-broken:
		be, ok := ev.(SceneBrokenEvent)
		if !ok {
			t.Fatalf("event type = %T, want SceneBrokenEvent", ev)
		}
		if be.SceneID != "s2" || be.ErrorMessage != "unexpected token" {
			t.Errorf("unexpected payload: %+v", be)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broken event")
	}

	// filtered subscriber must not see the compile event
	select {
	case ev := <-broken:
		t.Fatalf("unexpected extra event: %v", ev.EventType())
	default:
	}

	// catch-all sees both
	for i := 0; i < 2; i++ {
		select {
		case <-all:
		case <-time.After(time.Second):
			t.Fatal("catch-all subscriber missed an event")
		}
	}
}

func TestBus_PriorityNeverDrops(t *testing.T) {
	bus := New(1)
	defer bus.Close()

	priority := bus.SubscribePriority(TypeSceneBroken)

	done := make(chan struct{})
	received := 0
	go func() {
		for range priority {
			received++
			if received == 3 {
				close(done)
				return
			}
		}
	}()

	for i := 0; i < 3; i++ {
		bus.PublishPriority(NewSceneBrokenEvent("p1", "s1", "Intro", "err", "code", "h"))
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("priority subscriber received %d of 3 events", received)
	}
}

func TestBus_DropsWhenFull(t *testing.T) {
	bus := New(1)
	defer bus.Close()

	_ = bus.Subscribe()

	for i := 0; i < 5; i++ {
		bus.Publish(NewSceneCompiledEvent("p1", "s1", "h", 90))
	}

	if bus.DroppedCount() == 0 {
		t.Error("expected drops with an unread full buffer")
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New(10)
	defer bus.Close()

	ch := bus.Subscribe()
	bus.Unsubscribe(ch)

	if _, open := <-ch; open {
		t.Error("channel should be closed after unsubscribe")
	}
}
