package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/higher-endeavors/endeavors/internal/app/domain/device"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

type fakeSyncer struct {
	conns   []device.Connection
	failID  int64
	delay   time.Duration
	current int32
	peak    int32
	mu      sync.Mutex
	seen    []int64
}

func (f *fakeSyncer) SyncTargets(context.Context) ([]device.Connection, error) {
	return f.conns, nil
}

func (f *fakeSyncer) SyncConnection(_ context.Context, c device.Connection) (int, error) {
	cur := atomic.AddInt32(&f.current, 1)
	defer atomic.AddInt32(&f.current, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if cur <= p || atomic.CompareAndSwapInt32(&f.peak, p, cur) {
			break
		}
	}
	time.Sleep(f.delay)

	f.mu.Lock()
	f.seen = append(f.seen, c.ID)
	f.mu.Unlock()
	if c.ID == f.failID {
		return 0, errors.New("provider unavailable")
	}
	return 2, nil
}

func TestDeviceSync_BoundedAndTolerant(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := &fakeSyncer{failID: 3, delay: 10 * time.Millisecond}
	for i := int64(1); i <= 8; i++ {
		f.conns = append(f.conns, device.Connection{ID: i, Provider: device.ProviderStrava})
	}

	sum, err := NewDeviceSync(f, 2, logger.Discard()).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Connections: 8, Activities: 14, Failures: 1}, sum)
	assert.Len(t, f.seen, 8)
	assert.LessOrEqual(t, atomic.LoadInt32(&f.peak), int32(2))
}

func TestDeviceSync_Cancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := &fakeSyncer{conns: []device.Connection{{ID: 1}, {ID: 2}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDeviceSync(f, 1, logger.Discard()).RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.seen)
}

func TestScheduler_RunsAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(logger.Discard())
	var runs int32
	require.NoError(t, s.Add("tick", "@every 1s", func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}))
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
}

func TestScheduler_RejectsBadSpec(t *testing.T) {
	s := New(logger.Discard())
	assert.Error(t, s.Add("bad", "every now and then", func(context.Context) error { return nil }))
}
