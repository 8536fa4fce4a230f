package escrow

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	DefaultSweepInterval = 10 * time.Minute
	DefaultFlowTTL       = 24 * time.Hour
)

// Janitor periodically evicts finished and abandoned flows from a registry.
type Janitor struct {
	cron     *cron.Cron
	registry *Registry
	interval time.Duration
	ttl      time.Duration
	logger   *zap.Logger
}

func NewJanitor(registry *Registry, interval, ttl time.Duration, logger *zap.Logger) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if ttl <= 0 {
		ttl = DefaultFlowTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{
		cron:     cron.New(),
		registry: registry,
		interval: interval,
		ttl:      ttl,
		logger:   logger,
	}
}

func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc("@every "+j.interval.String(), j.sweep); err != nil {
		return err
	}

	j.cron.Start()
	return nil
}

func (j *Janitor) sweep() {
	if n := j.registry.Sweep(j.ttl); n > 0 {
		j.logger.Info("stale escrow flows evicted", zap.Int("evicted", n), zap.Int("open", j.registry.Len()))
	}
}

func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}
