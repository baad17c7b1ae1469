package sinks

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tarkovlens/questscraper/internal/progress"
)

// Prometheus exposes scrape-job progress as metrics. It tracks which jobs are
// currently running so the running gauge stays accurate across batches and
// restarts of the same job id.
type Prometheus struct {
	jobsStarted   prometheus.Counter
	jobsCompleted *prometheus.CounterVec
	jobsRunning   prometheus.Gauge
	itemsTotal    *prometheus.CounterVec
	itemDuration  prometheus.Histogram
	jobDuration   prometheus.Histogram

	mu      sync.Mutex
	running map[string]struct{}
}

// NewPrometheus registers the progress metrics on the given registerer.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	s := &Prometheus{
		jobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "questscraper",
			Subsystem: "jobs",
			Name:      "started_total",
			Help:      "Number of scrape jobs started.",
		}),
		jobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "questscraper",
			Subsystem: "jobs",
			Name:      "finished_total",
			Help:      "Number of scrape jobs finished, by outcome.",
		}, []string{"outcome"}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "questscraper",
			Subsystem: "jobs",
			Name:      "running",
			Help:      "Number of scrape jobs currently running.",
		}),
		itemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "questscraper",
			Subsystem: "items",
			Name:      "processed_total",
			Help:      "Number of quests processed, by result.",
		}, []string{"result"}),
		itemDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "questscraper",
			Subsystem: "items",
			Name:      "duration_seconds",
			Help:      "Per-quest processing latency.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "questscraper",
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Scrape job wall time.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
		}),
		running: make(map[string]struct{}),
	}
	collectors := []prometheus.Collector{
		s.jobsStarted, s.jobsCompleted, s.jobsRunning,
		s.itemsTotal, s.itemDuration, s.jobDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Consume updates metrics from a batch of events.
func (s *Prometheus) Consume(_ context.Context, events []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range events {
		switch evt.Stage {
		case progress.StageJobStart:
			s.jobsStarted.Inc()
			s.markRunning(evt.JobID)
		case progress.StageJobDone:
			s.jobsCompleted.WithLabelValues("completed").Inc()
			s.markFinished(evt.JobID)
			if evt.Dur > 0 {
				s.jobDuration.Observe(evt.Dur.Seconds())
			}
		case progress.StageJobFailed:
			s.jobsCompleted.WithLabelValues("failed").Inc()
			s.markFinished(evt.JobID)
			if evt.Dur > 0 {
				s.jobDuration.Observe(evt.Dur.Seconds())
			}
		case progress.StageItemDone:
			s.itemsTotal.WithLabelValues("ok").Inc()
			if evt.Dur > 0 {
				s.itemDuration.Observe(evt.Dur.Seconds())
			}
		case progress.StageItemError:
			s.itemsTotal.WithLabelValues("error").Inc()
			if evt.Dur > 0 {
				s.itemDuration.Observe(evt.Dur.Seconds())
			}
		}
	}
	return nil
}

func (s *Prometheus) markRunning(jobID string) {
	if _, ok := s.running[jobID]; ok {
		return
	}
	s.running[jobID] = struct{}{}
	s.jobsRunning.Inc()
}

func (s *Prometheus) markFinished(jobID string) {
	if _, ok := s.running[jobID]; !ok {
		return
	}
	delete(s.running, jobID)
	s.jobsRunning.Dec()
}

// Close is a no-op; the registry owns metric lifecycles.
func (s *Prometheus) Close(context.Context) error {
	return nil
}
