package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/compliance-chaser/internal/config"
)

const defaultCheckInterval = 15 * time.Minute

// Checker watches the chase backlog and raises alerts on a fixed cadence.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig
}

// NewChecker wires a collector and alerter under cfg.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{collector: collector, alerter: alerter, cfg: cfg}
}

func (c *Checker) interval() time.Duration {
	if c.cfg.CheckIntervalSecs <= 0 {
		return defaultCheckInterval
	}
	return time.Duration(c.cfg.CheckIntervalSecs) * time.Second
}

// Run checks once immediately, then once per interval until ctx is done.
func (c *Checker) Run(ctx context.Context) {
	every := c.interval()
	zap.L().Info("monitoring: backlog checker started",
		zap.Duration("every", every),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours),
	)

	c.Check(ctx)

	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			c.Check(ctx)
		case <-ctx.Done():
			zap.L().Info("monitoring: backlog checker stopped")
			return
		}
	}
}

// Check takes one snapshot, alerts on it, and returns it. A snapshot that
// cannot be collected is logged and yields nil.
func (c *Checker) Check(ctx context.Context) *Snapshot {
	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		if ctx.Err() == nil {
			zap.L().Error("monitoring: collect backlog snapshot", zap.Error(err))
		}
		return nil
	}

	fields := []zap.Field{
		zap.Int("tasks", snap.TasksTotal),
		zap.Int("due_reminder", snap.DueForReminder),
		zap.Int("due_escalation", snap.DueForEscalation),
		zap.Int("overdue", snap.Overdue),
		zap.Int("recent_failures", snap.RecentFailures),
	}

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) > 0 {
		fields = append(fields,
			zap.Int("alerts", len(alerts)),
			zap.Int("delivered", c.alerter.SendAlerts(ctx, alerts)),
		)
	}
	zap.L().Info("monitoring: backlog checked", fields...)
	return snap
}
