package monitor

import (
	"context"
	"errors"
	"time"
)

// DefaultInterval is how often Schedule runs a cycle.
const DefaultInterval = 24 * time.Hour

// Schedule runs a cycle immediately and then every interval until ctx is
// done. Cycles run on the calling goroutine, so they never overlap. cfg is
// called before each cycle so configuration changes take effect on the next
// run. onCycle, when set, receives each summary.
func (m *Monitor) Schedule(ctx context.Context, interval time.Duration, cfg func() Config, onCycle func(CycleSummary)) error {
	if interval <= 0 {
		interval = DefaultInterval
	}

	run := func() {
		summary, err := m.RunCycle(ctx, cfg())
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				m.logger.Error("monitoring cycle failed", "err", err)
			}
			return
		}
		if onCycle != nil {
			onCycle(summary)
		}
	}

	m.logger.Info("scheduled monitoring", "interval", interval)
	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			run()
		}
	}
}
