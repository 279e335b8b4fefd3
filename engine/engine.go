// Package engine provides the prompt selection and session state logic of a
// single game screen. It depends only on the content.Store interface.
package engine

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jxucoder/truthordare/content"
	"github.com/jxucoder/truthordare/model"
)

const (
	// DefaultDrawDelay is the pause between a plain draw and its result.
	DefaultDrawDelay = 400 * time.Millisecond
	// DefaultSpinDuration is the length of the bottle animation.
	DefaultSpinDuration = 2100 * time.Millisecond
)

// Source yields uniform random numbers in [0, 1).
type Source interface {
	Float64() float64
}

// Scheduler runs f once after d has elapsed.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(d time.Duration, f func())

func (fn SchedulerFunc) AfterFunc(d time.Duration, f func()) { fn(d, f) }

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

// Recorder receives draw outcomes, typically for metrics.
type Recorder interface {
	RecordDraw(mode model.Mode, t model.EntryType, placeholder bool)
	RecordRejected(mode model.Mode)
}

type nopRecorder struct{}

func (nopRecorder) RecordDraw(model.Mode, model.EntryType, bool) {}
func (nopRecorder) RecordRejected(model.Mode)                    {}

// DrawRequest describes one draw. A zero Type picks truth or challenge at
// random; Spin selects a seat with the bottle before the prompt is drawn.
type DrawRequest struct {
	Type model.EntryType
	Spin bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the random source.
func WithRand(src Source) Option { return func(e *Engine) { e.rand = src } }

// WithScheduler sets the scheduler used for deferred commits.
func WithScheduler(s Scheduler) Option { return func(e *Engine) { e.sched = s } }

// WithMode sets the initial mode (default party).
func WithMode(m model.Mode) Option { return func(e *Engine) { e.state.Mode = m } }

// WithDrawDelay sets the delay of a plain draw.
func WithDrawDelay(d time.Duration) Option { return func(e *Engine) { e.drawDelay = d } }

// WithSpinDuration sets the delay of a draw that spins the bottle.
func WithSpinDuration(d time.Duration) Option { return func(e *Engine) { e.spinDuration = d } }

// WithObserver registers fn to receive a snapshot after every state change.
// fn is called with the engine locked and must not call back into it.
func WithObserver(fn func(model.SessionState)) Option { return func(e *Engine) { e.observer = fn } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithRecorder sets the draw outcome recorder.
func WithRecorder(r Recorder) Option { return func(e *Engine) { e.recorder = r } }

// Engine holds the state of one game screen. It is safe for concurrent use;
// all operations are serialized.
type Engine struct {
	store        content.Store
	rand         Source
	sched        Scheduler
	drawDelay    time.Duration
	spinDuration time.Duration
	observer     func(model.SessionState)
	logger       *zap.Logger
	recorder     Recorder

	mu    sync.Mutex
	state model.SessionState
	// epoch changes on every mode switch so that commits scheduled under
	// the previous mode are dropped.
	epoch uint64
}

// New creates an Engine in the Idle state.
func New(store content.Store, opts ...Option) *Engine {
	e := &Engine{
		store:        store,
		rand:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		sched:        timerScheduler{},
		drawDelay:    DefaultDrawDelay,
		spinDuration: DefaultSpinDuration,
		logger:       zap.NewNop(),
		recorder:     nopRecorder{},
		state:        model.SessionState{Mode: model.ModeParty},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns a snapshot of the current state.
func (e *Engine) State() model.SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// SetMode switches mode and returns to Idle. The turn count and the bottle
// rotation are kept.
func (e *Engine) SetMode(m model.Mode) model.SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.epoch++
	e.state.Mode = m
	e.state.Current = nil
	e.state.SelectedSeat = ""
	e.state.IsGenerating = false
	e.logger.Debug("mode changed", zap.String("mode", string(m)))
	return e.changed()
}

// Reset clears the current entry. Mode, turn count and seat are kept.
func (e *Engine) Reset() model.SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Current == nil {
		return e.state.Clone()
	}
	e.state.Current = nil
	return e.changed()
}

// Draw starts a draw and reports whether it was accepted. A draw is
// rejected without any state change while another one is in flight.
//
// The returned channel receives the committed state and is then closed. If
// the mode changes before the commit, the result is dropped and the channel
// is closed without a value.
func (e *Engine) Draw(req DrawRequest) (<-chan model.SessionState, bool) {
	e.mu.Lock()
	if e.state.IsGenerating {
		mode := e.state.Mode
		e.mu.Unlock()
		e.recorder.RecordRejected(mode)
		e.logger.Debug("draw rejected, another draw is in flight", zap.String("mode", string(mode)))
		return nil, false
	}

	e.state.IsGenerating = true
	delay := e.drawDelay
	var seat string
	if req.Spin {
		e.state.Rotation += spinDelta(e.rand.Float64())
		seat = SeatFor(e.state.Rotation)
		delay = e.spinDuration
	}
	epoch := e.epoch
	e.changed()
	e.mu.Unlock()

	done := make(chan model.SessionState, 1)
	e.sched.AfterFunc(delay, func() {
		e.commit(epoch, req, seat, done)
	})
	return done, true
}

func (e *Engine) commit(epoch uint64, req DrawRequest, seat string, done chan<- model.SessionState) {
	defer close(done)

	e.mu.Lock()
	defer e.mu.Unlock()

	if epoch != e.epoch {
		e.logger.Debug("dropping draw scheduled before mode change")
		return
	}

	typ := req.Type
	if !typ.Valid() {
		typ = e.flip()
	}
	entry := e.pick(e.store.Lookup(e.state.Mode, typ), typ)
	if req.Spin {
		e.state.SelectedSeat = seat
	}
	e.state.Current = &entry
	if !entry.Placeholder {
		e.state.TurnCount++
	} else {
		e.logger.Debug("empty pool",
			zap.String("mode", string(e.state.Mode)),
			zap.String("type", string(typ)),
		)
	}
	e.state.IsGenerating = false
	e.recorder.RecordDraw(e.state.Mode, typ, entry.Placeholder)

	done <- e.changed()
}

// flip picks truth or challenge with equal probability.
func (e *Engine) flip() model.EntryType {
	if e.rand.Float64() < 0.5 {
		return model.TypeTruth
	}
	return model.TypeChallenge
}

func (e *Engine) pick(pool []string, typ model.EntryType) model.PromptEntry {
	if len(pool) == 0 {
		return model.PromptEntry{Text: model.PlaceholderText, Type: typ, Placeholder: true}
	}
	i := int(math.Floor(e.rand.Float64() * float64(len(pool))))
	// Guard against sources that return exactly 1.
	i = min(max(i, 0), len(pool)-1)
	return model.PromptEntry{Text: pool[i], Type: typ}
}

// changed notifies the observer and returns the new snapshot. e.mu must be held.
func (e *Engine) changed() model.SessionState {
	snap := e.state.Clone()
	if e.observer != nil {
		e.observer(snap.Clone())
	}
	return snap
}
