package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StepSaver is the slice of SessionManager the AutoSaver needs.
type StepSaver interface {
	SaveStep(ctx context.Context, registrationID string, step int, payload StepPayload) error
}

const defaultAutosaveWindow = 2 * time.Second

// AutoSaver debounces SaveStep calls per registration: rapid
// successive saves collapse into one persisted write after an idle
// window. A newer call cancels the pending one and restarts the
// window (debounce, not throttle).
type AutoSaver struct {
	saver  StepSaver
	window time.Duration
	log    *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingSave
	closed  bool
}

type pendingSave struct {
	timer   *time.Timer
	step    int
	payload StepPayload
}

func NewAutoSaver(saver StepSaver, window time.Duration, log *zap.Logger) *AutoSaver {
	if window <= 0 {
		window = defaultAutosaveWindow
	}
	return &AutoSaver{
		saver:   saver,
		window:  window,
		log:     log,
		pending: make(map[string]*pendingSave),
	}
}

// Queue schedules a save for the registration, replacing any save
// still waiting for its window.
func (a *AutoSaver) Queue(registrationID string, step int, payload StepPayload) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}

	if p, ok := a.pending[registrationID]; ok {
		p.timer.Stop()
		p.step = step
		p.payload = payload
		p.timer.Reset(a.window)
		return
	}

	p := &pendingSave{step: step, payload: payload}
	p.timer = time.AfterFunc(a.window, func() {
		a.fire(registrationID)
	})
	a.pending[registrationID] = p
}

// Flush persists every pending save immediately. Used on shutdown so
// an idle window never loses a keystroke batch.
func (a *AutoSaver) Flush(ctx context.Context) {
	a.mu.Lock()
	ids := make([]string, 0, len(a.pending))
	for id, p := range a.pending {
		p.timer.Stop()
		ids = append(ids, id)
	}
	a.mu.Unlock()

	for _, id := range ids {
		a.save(ctx, id)
	}
}

// Close flushes pending saves and rejects further queueing.
func (a *AutoSaver) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.Flush(context.Background())
}

func (a *AutoSaver) fire(registrationID string) {
	a.save(context.Background(), registrationID)
}

func (a *AutoSaver) save(ctx context.Context, registrationID string) {
	a.mu.Lock()
	p, ok := a.pending[registrationID]
	if ok {
		delete(a.pending, registrationID)
	}
	a.mu.Unlock()
	if !ok {
		return
	}

	if err := a.saver.SaveStep(ctx, registrationID, p.step, p.payload); err != nil {
		a.log.Error("autosave failed",
			zap.String("registration_id", registrationID),
			zap.Int("step", p.step),
			zap.Error(err))
	}
}
