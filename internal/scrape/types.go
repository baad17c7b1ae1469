// Package scrape defines core types shared across the extraction pipeline.
package scrape

import (
	"time"
)

// JobStatus represents the lifecycle state of a scrape job.
type JobStatus string

// Job status values persisted in the job store. A job is immutable once its
// status leaves JobStatusRunning.
const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// LogLevel classifies a job log entry.
type LogLevel string

// Log levels recorded on job log entries.
const (
	LogInfo    LogLevel = "info"
	LogSuccess LogLevel = "success"
	LogWarning LogLevel = "warning"
	LogError   LogLevel = "error"
)

// LogEntry is one append-only job log line, ordered by emission time.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     LogLevel       `json:"level"`
	Message   string         `json:"message"`
	QuestName string         `json:"quest_name,omitempty"`
	QuestID   string         `json:"quest_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Job is the metadata persisted for each batch run.
type Job struct {
	ID          string     `json:"id"`
	Status      JobStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	TotalItems  int        `json:"total_items"`
	Processed   int        `json:"processed_items"`
	Succeeded   int        `json:"successful_items"`
	Failed      int        `json:"failed_items"`
	Logs        []LogEntry `json:"logs"`
}

// ListEntry is one quest row discovered on the index page. Ephemeral; not
// persisted beyond the run that produced it.
type ListEntry struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Trader string `json:"trader"`
}

// Page is a raw fetched wiki page keyed by quest id. One row per quest,
// upserted on every (re)fetch; never deleted automatically.
type Page struct {
	QuestID     string     `json:"quest_id"`
	QuestName   string     `json:"quest_name"`
	URL         string     `json:"url"`
	HTML        string     `json:"html"`
	ContentHash string     `json:"content_hash,omitempty"`
	BlobURI     string     `json:"blob_uri,omitempty"`
	FetchedAt   time.Time  `json:"fetched_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	JobID       string     `json:"job_id,omitempty"`
}

// Objective is one entry of a quest's ordered objective list.
type Objective struct {
	ID          string   `json:"id"`
	Category    string   `json:"category"`
	Description string   `json:"description,omitempty"`
	Optional    bool     `json:"optional"`
	Maps        []string `json:"maps,omitempty"`
}

// ReputationDelta is a single trader standing change granted on turn-in.
type ReputationDelta struct {
	Trader string  `json:"trader"`
	Amount float64 `json:"amount"`
}

// ExtractedQuest is the heuristic extraction output for one wiki page.
// Every field below the identifiers is best-effort; absence is not an error.
// A re-extraction of the same quest supersedes (never merges into) the
// previous ExtractedQuest.
type ExtractedQuest struct {
	ID                  string            `json:"id"`
	Name                string            `json:"name"`
	URL                 string            `json:"url"`
	PreviousNames       []string          `json:"previous_names,omitempty"`
	PreviousLinks       []string          `json:"previous_links,omitempty"`
	LeadsTo             []string          `json:"leads_to,omitempty"`
	Level               *int              `json:"level,omitempty"`
	Trader              string            `json:"trader,omitempty"`
	Location            string            `json:"location,omitempty"`
	KappaRequired       *bool             `json:"kappa_required,omitempty"`
	LightkeeperRequired *bool             `json:"lightkeeper_required,omitempty"`
	Experience          *int              `json:"experience,omitempty"`
	Reputation          []ReputationDelta `json:"reputation,omitempty"`
	OtherRewards        []string          `json:"other_rewards,omitempty"`
	ImageURL            string            `json:"image_url,omitempty"`
	Objectives          []Objective       `json:"objectives,omitempty"`
	GuideSteps          []string          `json:"guide_steps,omitempty"`
	ExtractedAt         time.Time         `json:"extracted_at"`
	NeedsReextraction   bool              `json:"needs_reextraction"`
}

// TraderRef points at a trader in the authoritative roster.
type TraderRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// TaskRef points at another task, used for predecessor references.
type TaskRef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Trader string `json:"trader,omitempty"`
}

// Task is the reconciled, application-facing quest record.
type Task struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	WikiURL      string            `json:"wiki_url,omitempty"`
	Trader       TraderRef         `json:"trader"`
	Location     string            `json:"location,omitempty"`
	Level        int               `json:"level,omitempty"`
	Experience   int               `json:"experience,omitempty"`
	Predecessors []TaskRef         `json:"predecessors,omitempty"`
	Kappa        *bool             `json:"kappa_required,omitempty"`
	Lightkeeper  *bool             `json:"lightkeeper_required,omitempty"`
	Reputation   []ReputationDelta `json:"reputation,omitempty"`
	OtherRewards []string          `json:"other_rewards,omitempty"`
	ImageURL     string            `json:"image_url,omitempty"`
	Objectives   []Objective       `json:"objectives,omitempty"`
	GuideSteps   []string          `json:"guide_steps,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Trader is one entry of the authoritative trader roster.
type Trader struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Checkpoint records coarse batch progress so a crashed run can report how far
// it got without replaying logs. Cleared on terminal job status. Under the
// pooled mode CurrentIndex is approximate, not authoritative.
type Checkpoint struct {
	JobID         string    `json:"job_id"`
	CurrentIndex  int       `json:"current_index"`
	TotalItems    int       `json:"total_items"`
	LastQuestName string    `json:"last_quest_name,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FetchResult is the outcome of retrieving one page.
type FetchResult struct {
	URL          string
	StatusCode   int
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}
