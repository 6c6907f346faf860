package job

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const defaultRetentionSpec = "0 30 3 * * *"

type ProcessedEventPruner interface {
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// BillingRetention prunes processed billing event ids on a cron schedule.
// Redeliveries older than the window are no longer deduplicated.
type BillingRetention struct {
	cron    *cron.Cron
	pruner  ProcessedEventPruner
	window  time.Duration
	spec    string
	logger  *zap.Logger
	baseCtx context.Context
	now     func() time.Time
}

func NewBillingRetention(baseCtx context.Context, pruner ProcessedEventPruner, retentionDays int, spec string, logger *zap.Logger) *BillingRetention {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if retentionDays <= 0 {
		retentionDays = 90
	}
	if spec == "" {
		spec = defaultRetentionSpec
	}
	return &BillingRetention{
		cron:    cron.New(cron.WithSeconds()),
		pruner:  pruner,
		window:  time.Duration(retentionDays) * 24 * time.Hour,
		spec:    spec,
		logger:  logger,
		baseCtx: baseCtx,
		now:     time.Now,
	}
}

// Start registers the prune job and starts the scheduler. A nil pruner
// leaves the job disabled.
func (j *BillingRetention) Start() error {
	if j == nil || j.pruner == nil {
		return nil
	}
	if _, err := j.cron.AddFunc(j.spec, func() { j.prune(j.baseCtx) }); err != nil {
		return err
	}
	j.cron.Start()
	j.logger.Info("billing retention scheduled", zap.String("spec", j.spec), zap.Duration("window", j.window))
	return nil
}

// Stop waits for a running prune to finish.
func (j *BillingRetention) Stop() {
	if j == nil || j.pruner == nil {
		return
	}
	<-j.cron.Stop().Done()
	j.logger.Info("billing retention stopped")
}

func (j *BillingRetention) prune(ctx context.Context) {
	cutoff := j.now().Add(-j.window)
	n, err := j.pruner.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("prune billing events", zap.Error(err))
		return
	}
	j.logger.Info("pruned billing events", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
}
