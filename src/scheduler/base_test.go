package scheduler_test

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"cryptofolio/src/scheduler"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestEverySpec(t *testing.T) {
	assert.Equal(t, "@every 30s", scheduler.EverySpec(30*time.Second))
}

func TestScheduledTaskSkipsOverlappingRuns(t *testing.T) {
	var running, maxRunning, runs int32
	task, err := scheduler.NewScheduledTask("@every 1s", quietLogger(), func() {
		n := atomic.AddInt32(&running, 1)
		for {
			m := atomic.LoadInt32(&maxRunning)
			if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
				break
			}
		}
		atomic.AddInt32(&runs, 1)
		time.Sleep(1500 * time.Millisecond)
		atomic.AddInt32(&running, -1)
	})
	require.NoError(t, err)

	time.Sleep(3500 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	task.Cancel(ctx)

	assert.GreaterOrEqual(t, atomic.LoadInt32(&runs), int32(1))
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxRunning))
}

func TestNewScheduledTaskRejectsBadSpec(t *testing.T) {
	_, err := scheduler.NewScheduledTask("not a spec", quietLogger(), func() {})
	assert.Error(t, err)
}
