package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/tarkovlens/questscraper/internal/progress"
)

// Log writes progress events to a structured logger. Job milestones log at
// INFO, item errors at WARN, and per-item completions at DEBUG to keep large
// runs readable.
type Log struct {
	logger *zap.Logger
}

// NewLog builds a Log sink over the given logger.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

// Consume logs every event in the batch.
func (s *Log) Consume(_ context.Context, events []progress.Event) error {
	for _, evt := range events {
		fields := []zap.Field{
			zap.String("job_id", evt.JobID),
			zap.Time("ts", evt.TS),
		}
		if evt.QuestID != "" {
			fields = append(fields, zap.String("quest_id", evt.QuestID))
		}
		if evt.QuestName != "" {
			fields = append(fields, zap.String("quest_name", evt.QuestName))
		}
		if evt.Dur > 0 {
			fields = append(fields, zap.Duration("duration", evt.Dur))
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		switch evt.Stage {
		case progress.StageJobStart:
			s.logger.Info("scrape job started", fields...)
		case progress.StageJobDone:
			s.logger.Info("scrape job completed", fields...)
		case progress.StageJobFailed:
			s.logger.Error("scrape job failed", fields...)
		case progress.StageItemError:
			s.logger.Warn("quest processing failed", fields...)
		case progress.StageItemDone:
			s.logger.Debug("quest processed", fields...)
		}
	}
	return nil
}

// Close is a no-op; the logger is owned by the caller.
func (s *Log) Close(context.Context) error {
	return nil
}
