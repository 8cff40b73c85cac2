package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStreaks struct {
	now   time.Time
	chunk int
}

func (f *fakeStreaks) ResetBrokenStreaks(now time.Time, chunk int) int {
	f.now, f.chunk = now, chunk
	return 3
}

type fakeSweeper struct{ calls int }

func (f *fakeSweeper) Sweep(now time.Time) int {
	f.calls++
	return 0
}

func TestSchedulerJobs(t *testing.T) {
	streaks := &fakeStreaks{}
	sweeper := &fakeSweeper{}
	flushes := 0
	fixed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	s := NewScheduler(SchedulerConfig{StreakResetChunk: 50}, streaks, sweeper, func(ctx context.Context) error {
		flushes++
		return errors.New("boom")
	})
	s.now = func() time.Time { return fixed }

	s.resetStreaks()
	assert.Equal(t, fixed, streaks.now)
	assert.Equal(t, 50, streaks.chunk)

	s.sweepCooldowns()
	assert.Equal(t, 1, sweeper.calls)

	s.safetyFlush(context.Background())
	assert.Equal(t, 1, flushes)
}

func TestSchedulerStartRejectsBadSpec(t *testing.T) {
	s := NewScheduler(SchedulerConfig{StreakResetSpec: "not a cron"}, &fakeStreaks{}, &fakeSweeper{}, func(context.Context) error { return nil })
	assert.Error(t, s.Start(context.Background()))
}

func TestSchedulerStartStop(t *testing.T) {
	s := NewScheduler(SchedulerConfig{Location: time.UTC}, &fakeStreaks{}, &fakeSweeper{}, func(context.Context) error { return nil })
	require.NoError(t, s.Start(context.Background()))
	assert.Len(t, s.cron.Entries(), 3)
	s.Stop()
}

func TestSweepFuncAdapter(t *testing.T) {
	var got time.Time
	var sw Sweeper = SweepFunc(func(now time.Time) int {
		got = now
		return 4
	})
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 4, sw.Sweep(fixed))
	assert.Equal(t, fixed, got)
}
