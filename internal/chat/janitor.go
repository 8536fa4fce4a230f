package chat

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const DefaultSweepInterval = 5 * time.Minute

// Janitor periodically drops idle sessions.
type Janitor struct {
	cron     *cron.Cron
	manager  *Manager
	interval time.Duration
	logger   *zap.Logger
}

func NewJanitor(manager *Manager, interval time.Duration, logger *zap.Logger) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{
		cron:     cron.New(),
		manager:  manager,
		interval: interval,
		logger:   logger,
	}
}

func (j *Janitor) Start() error {
	_, err := j.cron.AddFunc("@every "+j.interval.String(), j.sweep)
	if err != nil {
		return err
	}

	j.cron.Start()
	return nil
}

func (j *Janitor) sweep() {
	if n := j.manager.Sweep(); n > 0 {
		j.logger.Info("idle chat sessions closed", zap.Int("closed", n), zap.Int("open", j.manager.Len()))
	}
}

func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}
