// Package liveness implements the Liveness Checker: a periodic
// internal heartbeat that round-trips through the Event Queue itself,
// proving the full install-trigger-to-dequeue path is still alive and
// surfacing degradation as a healthy/unhealthy/dead status.
//
// Grounded on the teacher's triggers/scheduler.go cron-ticker idiom —
// a *cron.Cron driving a single repeating job — reused here for the
// pulse timer instead of a user-defined workflow schedule.
package liveness

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/logimos/horton/internal/config"
	"github.com/logimos/horton/internal/queue"
)

// Status is the tri-state health classification described in spec §4.4.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDead      Status = "dead"
)

// Heartbeat is emitted every time a pulse round-trips successfully.
type Heartbeat struct {
	PulsedAt time.Time
	PulseLag time.Duration
}

// Health is emitted after every pulse, successful or not.
type Health struct {
	Status          Status
	LastHeartbeatAt time.Time
}

// Checker owns the pulse timer, the dequeue subscription, and the
// health classification.
type Checker struct {
	q      *queue.Queue
	logger *zap.Logger

	pulseInterval   time.Duration
	maxMissedPulses int

	mu              sync.Mutex
	lastHeartbeatAt time.Time

	onHeartbeat func(Heartbeat)
	onHealth    func(Health)

	c           *cron.Cron
	unsubscribe func()
}

// New constructs a Checker bound to q. onHeartbeat and onHealth may be
// nil.
func New(q *queue.Queue, opts config.LivenessCheckerOptions, logger *zap.Logger, onHeartbeat func(Heartbeat), onHealth func(Health)) *Checker {
	interval := time.Duration(opts.PulseIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 10 * time.Second
	}
	maxMissed := opts.MaxMissedPulses
	if maxMissed <= 0 {
		maxMissed = 3
	}

	return &Checker{
		q:               q,
		logger:          logger,
		pulseInterval:   interval,
		maxMissedPulses: maxMissed,
		onHeartbeat:     onHeartbeat,
		onHealth:        onHealth,
	}
}

// Start subscribes to internal:LIVENESS_PULSE notifications and
// begins the pulse timer. lastHeartbeatAt is seeded to now, so a
// checker that never receives a single pulse still degrades on
// schedule rather than reporting healthy forever.
func (c *Checker) Start(ctx context.Context) error {
	c.mu.Lock()
	c.lastHeartbeatAt = time.Now()
	c.mu.Unlock()

	c.unsubscribe = c.q.On(queue.InternalKey(config.OpLivenessPulse), func(n queue.Notification) {
		c.handlePulseNotification(context.Background(), n)
	})

	cr := cron.New(cron.WithSeconds())
	spec := fmt.Sprintf("@every %s", c.pulseInterval)
	if _, err := cr.AddFunc(spec, func() {
		if err := c.sendPulse(context.Background()); err != nil {
			c.logger.Warn("liveness: failed to send pulse", zap.Error(err))
		}
		c.emitHealth()
	}); err != nil {
		c.unsubscribe()
		return fmt.Errorf("liveness: schedule pulse: %w", err)
	}
	cr.Start()
	c.c = cr

	c.logger.Info("liveness checker started",
		zap.Duration("pulse_interval", c.pulseInterval),
		zap.Int("max_missed_pulses", c.maxMissedPulses))
	return nil
}

// Stop halts the pulse timer and unsubscribes from the queue.
func (c *Checker) Stop() {
	if c.c != nil {
		ctx := c.c.Stop()
		<-ctx.Done()
		c.c = nil
	}
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

func (c *Checker) sendPulse(ctx context.Context) error {
	return c.q.EnqueueInternal(ctx, config.OpLivenessPulse, map[string]interface{}{
		"pulsed_at": time.Now().Format(time.RFC3339Nano),
	})
}

func (c *Checker) handlePulseNotification(ctx context.Context, n queue.Notification) {
	err := c.q.Dequeue(ctx, n.RowID, func(row queue.Row) error {
		lag := time.Since(row.QueuedAt)
		c.recordHeartbeat(row.QueuedAt, lag)
		return nil
	})
	if err != nil {
		c.logger.Warn("liveness: pulse dequeue failed", zap.Error(err))
	}
}

func (c *Checker) recordHeartbeat(pulsedAt time.Time, lag time.Duration) {
	c.mu.Lock()
	now := time.Now()
	if now.After(c.lastHeartbeatAt) {
		c.lastHeartbeatAt = now
	}
	c.mu.Unlock()

	if c.onHeartbeat != nil {
		c.onHeartbeat(Heartbeat{PulsedAt: pulsedAt, PulseLag: lag})
	}
}

func (c *Checker) emitHealth() {
	c.mu.Lock()
	last := c.lastHeartbeatAt
	c.mu.Unlock()

	h := Health{
		Status:          classify(time.Since(last), c.pulseInterval, c.maxMissedPulses),
		LastHeartbeatAt: last,
	}
	if c.onHealth != nil {
		c.onHealth(h)
	}
}

// classify implements spec §4.4's threshold table as a pure function
// so it's testable without a timer or database.
func classify(sinceLastHeartbeat, pulseInterval time.Duration, maxMissedPulses int) Status {
	healthyBound := pulseInterval * time.Duration(maxMissedPulses)
	unhealthyBound := healthyBound * 3

	switch {
	case sinceLastHeartbeat <= healthyBound:
		return StatusHealthy
	case sinceLastHeartbeat <= unhealthyBound:
		return StatusUnhealthy
	default:
		return StatusDead
	}
}
