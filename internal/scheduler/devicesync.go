package scheduler

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/higher-endeavors/endeavors/internal/app/domain/device"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

// Syncer pulls activities for polled device connections.
type Syncer interface {
	SyncTargets(ctx context.Context) ([]device.Connection, error)
	SyncConnection(ctx context.Context, conn device.Connection) (int, error)
}

// Summary describes one sync pass.
type Summary struct {
	Connections int
	Activities  int
	Failures    int
}

// DeviceSync syncs every polled connection with bounded concurrency. One
// connection failing does not stop the others.
type DeviceSync struct {
	syncer      Syncer
	concurrency int
	log         *logger.Logger
}

func NewDeviceSync(syncer Syncer, concurrency int, log *logger.Logger) *DeviceSync {
	if concurrency <= 0 {
		concurrency = 4
	}
	if log == nil {
		log = logger.NewDefault("device-sync")
	}
	return &DeviceSync{syncer: syncer, concurrency: concurrency, log: log}
}

// RunOnce performs a single pass.
func (d *DeviceSync) RunOnce(ctx context.Context) (Summary, error) {
	targets, err := d.syncer.SyncTargets(ctx)
	if err != nil {
		return Summary{}, err
	}

	var activities, failures int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for _, conn := range targets {
		conn := conn
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n, err := d.syncer.SyncConnection(gctx, conn)
			if err != nil {
				atomic.AddInt64(&failures, 1)
				d.log.WithError(err).
					WithField("connection_id", conn.ID).
					WithField("provider", conn.Provider).
					Warn("device sync failed")
				return nil
			}
			atomic.AddInt64(&activities, int64(n))
			return nil
		})
	}
	err = g.Wait()

	sum := Summary{Connections: len(targets), Activities: int(activities), Failures: int(failures)}
	d.log.WithField("connections", sum.Connections).
		WithField("activities", sum.Activities).
		WithField("failures", sum.Failures).
		Info("device sync pass complete")
	return sum, err
}

// Job adapts RunOnce for the scheduler.
func (d *DeviceSync) Job() JobFunc {
	return func(ctx context.Context) error {
		_, err := d.RunOnce(ctx)
		return err
	}
}
