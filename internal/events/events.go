// Package events carries typed achievement-unlock notifications from the
// achievement engine to interested observers (push notifications, live
// UI feeds). Publishing never blocks the engine: a subscriber that falls
// behind loses events rather than stalling a claim or progress update.
package events

import (
	"sync"
	"time"

	"stepcity/internal/logger"
)

// Unlock is published exactly once per achievement, on the transition
// into the completed state.
type Unlock struct {
	UserID        string    `json:"user_id"`
	AchievementID string    `json:"achievement_id"`
	Reward        int64     `json:"reward"`
	CompletedAt   time.Time `json:"completed_at"`
}

// Bus is a fan-out publisher for unlock events.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Unlock
	nextID int
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Unlock)}
}

// Subscribe registers a new subscriber with the given channel buffer.
// The returned cancel function removes the subscription and closes the
// channel; it is safe to call more than once.
func (b *Bus) Subscribe(buffer int) (<-chan Unlock, func()) {
	if buffer < 1 {
		buffer = 1
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Unlock, buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// Publish delivers the event to all current subscribers without blocking.
func (b *Bus) Publish(u Unlock) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- u:
		default:
			logger.Get().Warnw("dropping unlock event for slow subscriber",
				"user_id", u.UserID,
				"achievement_id", u.AchievementID,
			)
		}
	}
}

// Close closes all subscriber channels. Publish becomes a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
