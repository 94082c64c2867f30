package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingSweeper struct {
	sweeps atomic.Int32
}

func (c *countingSweeper) Sweep(time.Time) int {
	c.sweeps.Add(1)
	return 1
}

func TestJanitorSweepsUntilCancelled(t *testing.T) {
	sweeper := &countingSweeper{}
	ctx, cancel := context.WithCancel(context.Background())

	done := StartSessionJanitor(ctx, sweeper, 5*time.Millisecond, zap.NewNop())
	assert.Eventually(t, func() bool { return sweeper.sweeps.Load() >= 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestJanitorDisabled(t *testing.T) {
	done := StartSessionJanitor(context.Background(), nil, time.Second, zap.NewNop())
	_, open := <-done
	assert.False(t, open)
}

func TestJournalWorkerSkipsDisabledJournal(t *testing.T) {
	assert.NotPanics(t, func() { StartJournalWorker(nil) })
}
