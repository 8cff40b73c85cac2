package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock — ручные часы для таймеров флашера.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type countingSaver struct {
	calls atomic.Int64
	fail  atomic.Int64 // сколько следующих вызовов вернут ошибку
	hook  func()
}

func (s *countingSaver) Save(ctx context.Context) error {
	s.calls.Add(1)
	if s.hook != nil {
		h := s.hook
		s.hook = nil
		h()
	}
	if s.fail.Load() > 0 {
		s.fail.Add(-1)
		return errors.New("disk full")
	}
	return nil
}

const window = 10 * time.Second

func newTestFlusher() (*Flusher, *fakeClock, *countingSaver) {
	clock := &fakeClock{}
	saver := &countingSaver{}
	return newFlusher(saver.Save, window, clock.AfterFunc), clock, saver
}

func TestFlusherCoalescesWithinWindow(t *testing.T) {
	f, clock, saver := newTestFlusher()

	for i := 0; i < 5; i++ {
		f.MarkDirty()
		clock.Advance(time.Second)
	}
	assert.Equal(t, 1, clock.Active(), "one timer at most")
	assert.Zero(t, saver.calls.Load())

	clock.Advance(window)
	assert.Equal(t, int64(1), saver.calls.Load())
	assert.False(t, f.Pending())

	clock.Advance(10 * window)
	assert.Equal(t, int64(1), saver.calls.Load())
}

func TestFlusherSpacedMutationsFlushSeparately(t *testing.T) {
	f, clock, saver := newTestFlusher()

	for i := 0; i < 3; i++ {
		f.MarkDirty()
		clock.Advance(window + time.Second)
	}
	assert.Equal(t, int64(3), saver.calls.Load())
}

func TestFlusherRetriesAfterFailure(t *testing.T) {
	f, clock, saver := newTestFlusher()
	saver.fail.Store(1)

	f.MarkDirty()
	clock.Advance(window)
	assert.Equal(t, int64(1), saver.calls.Load())
	assert.True(t, f.Pending())
	assert.Equal(t, 1, clock.Active(), "re-armed after failure")

	clock.Advance(window)
	assert.Equal(t, int64(2), saver.calls.Load())
	assert.False(t, f.Pending())

	saves, failures := f.Stats()
	assert.Equal(t, 1, saves)
	assert.Equal(t, 1, failures)
}

func TestFlusherMutationDuringSave(t *testing.T) {
	f, clock, saver := newTestFlusher()
	saver.hook = f.MarkDirty

	f.MarkDirty()
	clock.Advance(window)
	assert.Equal(t, int64(1), saver.calls.Load())
	assert.True(t, f.Pending())

	clock.Advance(window)
	assert.Equal(t, int64(2), saver.calls.Load())
	assert.False(t, f.Pending())
}

func TestFlushNow(t *testing.T) {
	f, clock, saver := newTestFlusher()

	require.NoError(t, f.FlushNow(context.Background()))
	assert.Zero(t, saver.calls.Load(), "nothing to save")

	f.MarkDirty()
	require.NoError(t, f.FlushNow(context.Background()))
	assert.Equal(t, int64(1), saver.calls.Load())
	assert.Zero(t, clock.Active(), "pending timer cancelled")

	clock.Advance(window)
	assert.Equal(t, int64(1), saver.calls.Load())
}

func TestFlushNowFailureKeepsDirty(t *testing.T) {
	f, clock, saver := newTestFlusher()
	saver.fail.Store(1)

	f.MarkDirty()
	assert.Error(t, f.FlushNow(context.Background()))
	assert.True(t, f.Pending())

	clock.Advance(window)
	assert.Equal(t, int64(2), saver.calls.Load())
	assert.False(t, f.Pending())
}

func TestFlusherStop(t *testing.T) {
	f, clock, saver := newTestFlusher()

	f.MarkDirty()
	require.NoError(t, f.Stop(context.Background()))
	assert.Equal(t, int64(1), saver.calls.Load())

	f.MarkDirty()
	assert.Zero(t, clock.Active(), "no timers after stop")
	assert.True(t, f.Pending())
}

func TestFlusherRealTimer(t *testing.T) {
	var calls atomic.Int64
	f := NewFlusher(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, 20*time.Millisecond)

	for i := 0; i < 10; i++ {
		f.MarkDirty()
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), calls.Load())
}

func TestFlusherIgnoresLateTimerCallback(t *testing.T) {
	f, clock, saver := newTestFlusher()

	f.MarkDirty()
	first := clock.timers[0]

	// первый таймер уже сработал и ждёт, а его отменяют и взводят новый
	require.NoError(t, f.FlushNow(context.Background()))
	f.MarkDirty()
	require.Equal(t, 1, clock.Active())

	first.f()
	assert.Equal(t, int64(1), saver.calls.Load(), "late callback does not save")
	assert.Equal(t, 1, clock.Active(), "fresh timer kept")

	clock.Advance(window)
	assert.Equal(t, int64(2), saver.calls.Load())
	assert.Zero(t, clock.Active())

	f.MarkDirty()
	assert.Equal(t, 1, clock.Active(), "one timer at most")
}

func blockingSave(started chan<- struct{}) SaveFunc {
	return func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return ctx.Err()
	}
}

func TestFlusherBackgroundSaveIsBounded(t *testing.T) {
	clock := &fakeClock{}
	f := newFlusher(blockingSave(nil), window, clock.AfterFunc)
	f.saveTimeout = 20 * time.Millisecond

	f.MarkDirty()
	done := make(chan struct{})
	go func() {
		clock.Advance(window)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("background save ignored its timeout")
	}
	_, failures := f.Stats()
	assert.Equal(t, 1, failures)
	assert.True(t, f.Pending())
	assert.Equal(t, 1, clock.Active(), "re-armed after timeout")
}

func TestFlusherStopHonoursContextWhileSaveHangs(t *testing.T) {
	clock := &fakeClock{}
	started := make(chan struct{}, 1)
	f := newFlusher(blockingSave(started), window, clock.AfterFunc)
	f.saveTimeout = time.Hour

	f.MarkDirty()
	go clock.Advance(window)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	begin := time.Now()
	err := f.Stop(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(begin), time.Second)
	assert.True(t, f.Pending(), "unsaved state stays marked")
}
