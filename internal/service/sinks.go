package service

import (
	"context"

	"signal-bridge/internal/domain"
	"signal-bridge/internal/metrics"

	"go.uber.org/zap"
)

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type JournalWriter interface {
	Append(ctx context.Context, entry domain.JournalEntry) error
}

// sinks fans events out to the notifier and the trade journal. Both are
// optional and their failures never reach the caller.
type sinks struct {
	notifier Notifier
	journal  JournalWriter
	logger   *zap.Logger
}

func (s sinks) notify(ctx context.Context, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, text); err != nil {
		metrics.NotifyFailuresTotal.Inc()
		s.logger.Warn("notification failed", zap.Error(err))
	}
}

func (s sinks) record(ctx context.Context, entry domain.JournalEntry) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Append(ctx, entry); err != nil {
		s.logger.Warn("journal append failed", zap.String("status", entry.Status), zap.Error(err))
	}
}
