package events

import (
	"testing"
	"time"
)

func TestBusFanOut(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	a, cancelA := bus.Subscribe(4)
	defer cancelA()
	b, cancelB := bus.Subscribe(4)
	defer cancelB()

	u := Unlock{UserID: "u1", AchievementID: "day_5k", Reward: 1000, CompletedAt: time.Now()}
	bus.Publish(u)

	for name, ch := range map[string]<-chan Unlock{"a": a, "b": b} {
		select {
		case got := <-ch:
			if got.AchievementID != "day_5k" {
				t.Errorf("subscriber %s: expected day_5k, got %s", name, got.AchievementID)
			}
		default:
			t.Errorf("subscriber %s: expected a delivered event", name)
		}
	}
}

func TestBusDropsForSlowSubscriber(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch, cancel := bus.Subscribe(1)
	defer cancel()

	bus.Publish(Unlock{AchievementID: "one"})
	bus.Publish(Unlock{AchievementID: "two"}) // buffer full, dropped

	got := <-ch
	if got.AchievementID != "one" {
		t.Errorf("expected the first event, got %s", got.AchievementID)
	}
	select {
	case extra := <-ch:
		t.Errorf("expected the second event dropped, got %s", extra.AchievementID)
	default:
	}
}

func TestBusCancel(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch, cancel := bus.Subscribe(1)
	cancel()
	cancel() // safe to call twice

	if _, ok := <-ch; ok {
		t.Error("expected channel closed after cancel")
	}

	// Publishing after cancel must not panic.
	bus.Publish(Unlock{AchievementID: "late"})
}

func TestBusClose(t *testing.T) {
	bus := NewBus()

	ch, _ := bus.Subscribe(1)
	bus.Close()

	if _, ok := <-ch; ok {
		t.Error("expected channel closed after bus close")
	}

	bus.Publish(Unlock{AchievementID: "ignored"})
	bus.Close() // idempotent

	late, cancel := bus.Subscribe(1)
	defer cancel()
	if _, ok := <-late; ok {
		t.Error("expected subscription on a closed bus to be closed immediately")
	}
}
