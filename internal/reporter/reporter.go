// Package reporter surfaces attempt outcomes to the operator: structured
// logs, optional Telegram notifications and an end-of-run summary.
package reporter

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"go-easyapply-automation/internal/models"
)

type Reporter interface {
	Report(ctx context.Context, o models.Outcome) error
	Summary(ctx context.Context, s Summary) error
}

// Summary describes a finished run.
type Summary struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Outcomes []models.Outcome
	// Err is the error that stopped the run, if any.
	Err error
}

func (s Summary) Counts() map[models.State]int {
	counts := map[models.State]int{}
	for _, o := range s.Outcomes {
		counts[o.State]++
	}
	return counts
}

// LogReporter writes every outcome as one structured log line.
type LogReporter struct {
	logger *zap.Logger
}

func NewLogReporter(logger *zap.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Report(_ context.Context, o models.Outcome) error {
	fields := []zap.Field{
		zap.String("attempt", o.ID),
		zap.Int("index", o.Index),
		zap.String("title", o.Title),
		zap.String("company", o.Company),
		zap.String("state", string(o.State)),
		zap.Int("steps", o.StepsCompleted),
		zap.Duration("took", o.Duration()),
	}
	if o.RelevanceScore != nil {
		fields = append(fields, zap.Float64("score", *o.RelevanceScore))
	}
	if o.ErrorKind != models.ErrNone {
		fields = append(fields, zap.String("reason", string(o.ErrorKind)))
	}
	if o.Detail != "" {
		fields = append(fields, zap.String("detail", o.Detail))
	}

	switch o.State {
	case models.StateSubmitted:
		r.logger.Info("✅ application submitted", fields...)
	case models.StateAbandoned:
		r.logger.Warn("💥 attempt abandoned", fields...)
	default:
		r.logger.Info("⏭️ job skipped", fields...)
	}
	return nil
}

func (r *LogReporter) Summary(_ context.Context, s Summary) error {
	counts := s.Counts()
	fields := []zap.Field{
		zap.String("run", s.RunID),
		zap.Int("attempts", len(s.Outcomes)),
		zap.Int("submitted", counts[models.StateSubmitted]),
		zap.Int("skipped", counts[models.StateSkipped]),
		zap.Int("abandoned", counts[models.StateAbandoned]),
		zap.Duration("took", s.Finished.Sub(s.Started)),
	}
	if s.Err != nil {
		r.logger.Error("🛑 run stopped", append(fields, zap.Error(s.Err))...)
		return nil
	}
	r.logger.Info("🏁 run finished", fields...)
	return nil
}

// Multi fans out to every reporter and joins their errors.
type Multi []Reporter

func (m Multi) Report(ctx context.Context, o models.Outcome) error {
	var errs []error
	for _, r := range m {
		if err := r.Report(ctx, o); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Summary(ctx context.Context, s Summary) error {
	var errs []error
	for _, r := range m {
		if err := r.Summary(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
