package stats

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kartoza/deepfake-detection/internal/detector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func result(authentic bool, confidence, took float64) *detector.PredictionResult {
	label := detector.LabelDeepfake
	if authentic {
		label = detector.LabelAuthentic
	}
	return &detector.PredictionResult{
		Prediction:     label,
		IsAuthentic:    authentic,
		Confidence:     confidence,
		ProcessingTime: took,
	}
}

func TestEmptySnapshot(t *testing.T) {
	s := New()
	snap := s.Snapshot()

	assert.Zero(t, snap.TotalPredictions)
	assert.Zero(t, snap.AuthenticPercentage)
	assert.Zero(t, snap.DeepfakePercentage)
	assert.Zero(t, snap.AverageConfidence)
	assert.Zero(t, snap.AverageProcessingTime)
	assert.NotEmpty(t, snap.LastUpdated)
}

func TestRecordAndSnapshot(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := newWithClock(clock.now)

	s.Record(result(true, 0.9, 2.0))
	s.Record(result(true, 0.8, 3.0))
	s.Record(result(false, 0.7, 1.0))
	s.Record(nil)

	clock.t = clock.t.Add(30 * time.Minute)
	snap := s.Snapshot()

	assert.Equal(t, 3, snap.TotalPredictions)
	assert.Equal(t, 2, snap.AuthenticCount)
	assert.Equal(t, 1, snap.DeepfakeCount)
	assert.Equal(t, 66.7, snap.AuthenticPercentage)
	assert.Equal(t, 33.3, snap.DeepfakePercentage)
	assert.Equal(t, 0.8, snap.AverageConfidence)
	assert.Equal(t, 6.0, snap.ProcessingTimeTotal)
	assert.Equal(t, 2.0, snap.AverageProcessingTime)
	assert.Equal(t, 1800.0, snap.UptimeSeconds)
	assert.Equal(t, 6.0, snap.FilesPerHour)
}

func TestReset(t *testing.T) {
	s := New()
	s.Observe(context.Background(), result(false, 0.6, 1.5))
	require.Equal(t, 1, s.Snapshot().TotalPredictions)

	s.Reset()
	snap := s.Snapshot()
	assert.Zero(t, snap.TotalPredictions)
	assert.Zero(t, snap.DeepfakeCount)
	assert.Zero(t, snap.ProcessingTimeTotal)
}

func TestConcurrentRecord(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				s.Record(result(i%2 == 0, 0.5, 1))
			}
		}(i)
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Equal(t, 1000, snap.TotalPredictions)
	assert.Equal(t, 500, snap.AuthenticCount)
	assert.Equal(t, 500, snap.DeepfakeCount)
}

func TestObservedDetectorFeedsStatistics(t *testing.T) {
	s := New()
	d := detector.Observed(detector.NewSyntheticDetector(1, detector.NoiseUniform), s)

	for i := 0; i < 25; i++ {
		_, err := d.Analyze(context.Background(), detector.Request{})
		require.NoError(t, err)
	}

	snap := s.Snapshot()
	assert.Equal(t, 25, snap.TotalPredictions)
	assert.Equal(t, 25, snap.AuthenticCount+snap.DeepfakeCount)
	assert.InDelta(t, 100, snap.AuthenticPercentage+snap.DeepfakePercentage, 0.2)
}
