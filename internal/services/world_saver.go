package services

import (
	"sync"
	"time"

	"stepcity/internal/logger"
	"stepcity/internal/models"
)

// pendingSave is the latest snapshot scheduled for a user.
type pendingSave struct {
	timer       *time.Timer
	buildings   []models.Building
	decorations []models.Decoration
}

// WorldSaver coalesces rapid world saves per user. Each ScheduleSave
// replaces the user's pending snapshot and restarts the debounce window;
// only the latest snapshot at the end of the window is written. A write
// already in flight runs to completion and is never cancelled.
type WorldSaver struct {
	world    WorldServicer
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*pendingSave
	closed  bool
	wg      sync.WaitGroup
}

// NewWorldSaver creates a saver that delays writes by the given window.
func NewWorldSaver(world WorldServicer, debounce time.Duration) *WorldSaver {
	return &WorldSaver{
		world:    world,
		debounce: debounce,
		pending:  make(map[string]*pendingSave),
	}
}

// ScheduleSave queues a snapshot for the user, superseding any snapshot
// still waiting in the debounce window.
func (w *WorldSaver) ScheduleSave(userID string, buildings []models.Building, decorations []models.Decoration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	if p, ok := w.pending[userID]; ok {
		p.buildings = buildings
		p.decorations = decorations
		p.timer.Reset(w.debounce)
		return
	}

	p := &pendingSave{buildings: buildings, decorations: decorations}
	p.timer = time.AfterFunc(w.debounce, func() {
		w.fire(userID)
	})
	w.pending[userID] = p
}

// SaveNow writes the user's latest snapshot immediately, cancelling any
// pending debounced write for them.
func (w *WorldSaver) SaveNow(userID string, buildings []models.Building, decorations []models.Decoration) error {
	w.mu.Lock()
	if p, ok := w.pending[userID]; ok {
		p.timer.Stop()
		delete(w.pending, userID)
	}
	w.mu.Unlock()

	return w.world.Save(userID, buildings, decorations)
}

// Flush writes every pending snapshot immediately and waits for all
// in-flight writes to finish.
func (w *WorldSaver) Flush() {
	w.mu.Lock()
	drained := w.pending
	w.pending = make(map[string]*pendingSave)
	w.mu.Unlock()

	for userID, p := range drained {
		p.timer.Stop()
		w.save(userID, p.buildings, p.decorations)
	}
	w.wg.Wait()
}

// Close flushes all pending snapshots and stops accepting new ones.
func (w *WorldSaver) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.Flush()
}

// fire runs when a debounce window expires. The snapshot is removed from
// the pending map before writing so a save scheduled during the write
// starts a fresh window instead of being dropped. The wg registration
// happens under the lock so Flush cannot miss an in-flight write.
func (w *WorldSaver) fire(userID string) {
	w.mu.Lock()
	p, ok := w.pending[userID]
	if ok {
		delete(w.pending, userID)
		w.wg.Add(1)
	}
	w.mu.Unlock()
	if !ok {
		return
	}
	defer w.wg.Done()
	w.save(userID, p.buildings, p.decorations)
}

func (w *WorldSaver) save(userID string, buildings []models.Building, decorations []models.Decoration) {
	if err := w.world.Save(userID, buildings, decorations); err != nil {
		logger.Get().Errorw("debounced world save failed",
			"user_id", userID,
			"error", err.Error(),
		)
	}
}
