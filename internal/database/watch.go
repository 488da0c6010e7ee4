package database

import (
	"context"
	"time"
)

// fatalPingFailures is how many consecutive failed health pings end the process.
const fatalPingFailures = 3

// Watch pings the pool every interval until ctx is done. After
// fatalPingFailures consecutive failures it calls onFatal once and returns;
// there is no reconnect.
func (p *Pool) Watch(ctx context.Context, interval time.Duration, onFatal func(error)) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, interval)
			err := p.db.PingContext(pingCtx)
			cancel()

			if err == nil {
				failures = 0
				continue
			}
			if ctx.Err() != nil {
				return
			}

			failures++
			p.log.WithError(err).WithField("consecutive_failures", failures).Warn("database health check failed")
			if failures >= fatalPingFailures {
				p.log.WithError(err).Error("database unreachable, giving up")
				onFatal(err)
				return
			}
		}
	}
}
