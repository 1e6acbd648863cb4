// Package stats keeps process-lifetime prediction counters.
package stats

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/kartoza/deepfake-detection/internal/detector"
)

// Snapshot is a consistent copy of the counters with derived values
type Snapshot struct {
	TotalPredictions      int     `json:"total_predictions"`
	AuthenticCount        int     `json:"authentic_count"`
	DeepfakeCount         int     `json:"deepfake_count"`
	AuthenticPercentage   float64 `json:"authentic_percentage"`
	DeepfakePercentage    float64 `json:"deepfake_percentage"`
	AverageConfidence     float64 `json:"average_confidence"`
	ProcessingTimeTotal   float64 `json:"processing_time_total"`
	AverageProcessingTime float64 `json:"average_processing_time"`
	UptimeSeconds         float64 `json:"uptime_seconds"`
	FilesPerHour          float64 `json:"files_per_hour"`
	LastUpdated           string  `json:"last_updated"`
}

// Statistics aggregates prediction results. It is safe for concurrent use.
type Statistics struct {
	mu sync.Mutex

	total          int
	authentic      int
	deepfake       int
	confidenceSum  float64
	processingTime float64
	started        time.Time
	lastUpdated    time.Time

	now func() time.Time
}

// New creates an empty Statistics whose uptime starts now
func New() *Statistics {
	return newWithClock(time.Now)
}

func newWithClock(now func() time.Time) *Statistics {
	t := now()
	return &Statistics{started: t, lastUpdated: t, now: now}
}

// Record counts one prediction
func (s *Statistics) Record(r *detector.PredictionResult) {
	if r == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	if r.IsAuthentic {
		s.authentic++
	} else {
		s.deepfake++
	}
	s.confidenceSum += r.Confidence
	s.processingTime += r.ProcessingTime
	s.lastUpdated = s.now()
}

// Observe lets Statistics be attached to a detector
func (s *Statistics) Observe(_ context.Context, r *detector.PredictionResult) {
	s.Record(r)
}

// Reset zeroes all counters and restarts the uptime clock
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now()
	s.total, s.authentic, s.deepfake = 0, 0, 0
	s.confidenceSum, s.processingTime = 0, 0
	s.started, s.lastUpdated = t, t
}

// Snapshot returns the current counters. Ratios are 0 when nothing has
// been recorded.
func (s *Statistics) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	uptime := s.now().Sub(s.started).Seconds()
	snap := Snapshot{
		TotalPredictions:    s.total,
		AuthenticCount:      s.authentic,
		DeepfakeCount:       s.deepfake,
		ProcessingTimeTotal: round(s.processingTime, 2),
		UptimeSeconds:       round(uptime, 1),
		LastUpdated:         s.lastUpdated.UTC().Format(time.RFC3339),
	}
	if s.total > 0 {
		n := float64(s.total)
		snap.AuthenticPercentage = round(float64(s.authentic)/n*100, 1)
		snap.DeepfakePercentage = round(float64(s.deepfake)/n*100, 1)
		snap.AverageConfidence = round(s.confidenceSum/n, 3)
		snap.AverageProcessingTime = round(s.processingTime/n, 2)
	}
	if uptime > 0 {
		snap.FilesPerHour = round(float64(s.total)/(uptime/3600), 1)
	}
	return snap
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
