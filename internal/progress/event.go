// Package progress defines the event stream emitted by the scrape
// orchestrator and the hub that fans it out to observability sinks.
// Persistence of job logs does not flow through here; the hub exists so
// metrics and console logging never sit on the batch's critical path.
package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the milestone an Event represents.
type Stage string

// Supported progress stages.
const (
	StageJobStart  Stage = "JOB_START"
	StageJobDone   Stage = "JOB_DONE"
	StageJobFailed Stage = "JOB_FAILED"
	StageItemDone  Stage = "ITEM_DONE"
	StageItemError Stage = "ITEM_ERROR"
)

// Event captures a single milestone of a scrape run.
type Event struct {
	// JobID identifies the run.
	JobID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which lifecycle or item milestone occurred.
	Stage Stage
	// QuestID and QuestName scope item events.
	QuestID   string
	QuestName string
	// Dur captures per-item processing latency and job wall time.
	Dur time.Duration
	// Note lets emitters attach low-volume context (e.g. error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.JobID == "" {
		return errors.New("job id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageJobStart, StageJobDone, StageJobFailed:
	case StageItemDone, StageItemError:
		if e.QuestID == "" && e.QuestName == "" {
			return errors.New("item events require a quest reference")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
