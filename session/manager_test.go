package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jxucoder/truthordare/content"
	"github.com/jxucoder/truthordare/engine"
	"github.com/jxucoder/truthordare/eventbus"
	"github.com/jxucoder/truthordare/model"
)

var immediate = engine.SchedulerFunc(func(_ time.Duration, f func()) { f() })

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestManager(t *testing.T, cfg Config) (*Manager, *eventbus.InMemoryBus, *clock) {
	t.Helper()
	bus := eventbus.NewInMemoryBus()
	cfg.EngineOptions = append(cfg.EngineOptions, engine.WithScheduler(immediate))
	m := NewManager(content.Default(), bus, cfg, nil)
	c := &clock{now: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)}
	m.now = c.Now
	t.Cleanup(m.Stop)
	return m, bus, c
}

func TestCreateAndGet(t *testing.T) {
	m, _, _ := newTestManager(t, Config{})

	sess, err := m.Create(model.ModeCouple)
	require.NoError(t, err)
	assert.Len(t, sess.ID, 8)

	got, err := m.Get(sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)
	assert.Equal(t, model.ModeCouple, got.Engine().State().Mode)
	assert.Equal(t, 1, m.Len())

	_, err = m.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionsAreIndependent(t *testing.T) {
	m, _, _ := newTestManager(t, Config{})

	a, err := m.Create(model.ModeParty)
	require.NoError(t, err)
	b, err := m.Create(model.ModeParty)
	require.NoError(t, err)

	done, ok := a.Engine().Draw(engine.DrawRequest{})
	require.True(t, ok)
	<-done

	assert.Equal(t, 1, a.Engine().State().TurnCount)
	assert.Equal(t, 0, b.Engine().State().TurnCount)
}

func TestMaxSessions(t *testing.T) {
	m, _, _ := newTestManager(t, Config{MaxSessions: 2})

	_, err := m.Create(model.ModeParty)
	require.NoError(t, err)
	_, err = m.Create(model.ModeSolo)
	require.NoError(t, err)
	_, err = m.Create(model.ModeFamily)
	assert.ErrorIs(t, err, ErrTooManySessions)
}

func TestListOrdersByCreation(t *testing.T) {
	m, _, c := newTestManager(t, Config{})

	first, _ := m.Create(model.ModeParty)
	c.Advance(time.Second)
	second, _ := m.Create(model.ModeSolo)

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
}

func TestStateChangesArePublished(t *testing.T) {
	m, bus, _ := newTestManager(t, Config{})
	sess, err := m.Create(model.ModeFamily)
	require.NoError(t, err)

	ch := bus.Subscribe(sess.ID)
	sess.Engine().SetMode(model.ModeSolo)

	select {
	case ev := <-ch:
		assert.Equal(t, eventbus.TypeState, ev.Type)
		assert.Equal(t, sess.ID, ev.SessionID)
		assert.Equal(t, model.ModeSolo, ev.State.Mode)
	case <-time.After(time.Second):
		t.Fatal("no state event published")
	}
}

func TestCloseDisconnectsSubscribers(t *testing.T) {
	m, bus, _ := newTestManager(t, Config{})
	sess, _ := m.Create(model.ModeParty)
	ch := bus.Subscribe(sess.ID)

	require.NoError(t, m.Close(sess.ID))
	ev := <-ch
	assert.Equal(t, eventbus.TypeClosed, ev.Type)
	_, ok := <-ch
	assert.False(t, ok)

	assert.ErrorIs(t, m.Close(sess.ID), ErrNotFound)
	_, err := m.Get(sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReapClosesIdleSessions(t *testing.T) {
	m, _, c := newTestManager(t, Config{IdleTimeout: 10 * time.Minute})

	idle, _ := m.Create(model.ModeParty)
	c.Advance(8 * time.Minute)
	active, _ := m.Create(model.ModeSolo)
	c.Advance(5 * time.Minute)
	_, err := m.Get(active.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, m.reap())
	_, err = m.Get(idle.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Get(active.ID)
	assert.NoError(t, err)
}

func TestReaperLoopRuns(t *testing.T) {
	m, _, c := newTestManager(t, Config{IdleTimeout: time.Minute, ReapInterval: 10 * time.Millisecond})
	_, err := m.Create(model.ModeParty)
	require.NoError(t, err)
	c.Advance(2 * time.Minute)

	m.Start(context.Background())
	assert.Eventually(t, func() bool { return m.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSnapshot(t *testing.T) {
	m, _, c := newTestManager(t, Config{})
	sess, _ := m.Create(model.ModeParty)

	snap := sess.Snapshot()
	assert.Equal(t, sess.ID, snap.ID)
	assert.True(t, c.Now().Equal(snap.CreatedAt))
	assert.True(t, c.Now().Equal(snap.LastActive))
	assert.True(t, snap.State.Idle())
}
