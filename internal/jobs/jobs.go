// Package jobs tracks uploaded files through analysis.
package jobs

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kartoza/deepfake-detection/internal/detector"
	"github.com/kartoza/deepfake-detection/internal/media"
)

// Status is the lifecycle state of a job
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

var (
	ErrJobNotFound   = errors.New("job not found")
	ErrJobNotPending = errors.New("job is not pending")
)

// Job is one analysis request
type Job struct {
	ID          string                     `json:"job_id"`
	Filename    string                     `json:"filename"`
	FileType    media.Kind                 `json:"file_type"`
	FileSize    int64                      `json:"file_size"`
	SniffedKind media.Kind                 `json:"sniffed_kind,omitempty"`
	SniffedMIME string                     `json:"sniffed_mime,omitempty"`
	Status      Status                     `json:"status"`
	CreatedAt   string                     `json:"created_at"`
	StartedAt   string                     `json:"started_at,omitempty"`
	CompletedAt string                     `json:"completed_at,omitempty"`
	Result      *detector.PredictionResult `json:"result,omitempty"`
	Error       string                     `json:"error,omitempty"`

	// Path is where the upload is stored on disk
	Path string `json:"-"`

	created time.Time
}

// Upload describes the stored file a job analyses
type Upload struct {
	Filename    string
	Path        string
	Kind        media.Kind
	Size        int64
	SniffedKind media.Kind
	SniffedMIME string
}

// Filter selects a page of jobs
type Filter struct {
	Status Status
	Limit  int
	Offset int
}

// Counts holds the number of jobs per status
type Counts struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// Store is an in-memory job table. It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	now  func() time.Time
}

// NewStore creates an empty job store
func NewStore() *Store {
	return &Store{jobs: make(map[string]*Job), now: time.Now}
}

// Create registers a pending job
func (s *Store) Create(u Upload) *Job {
	now := s.now()
	job := &Job{
		ID:          uuid.New().String(),
		Filename:    u.Filename,
		FileType:    u.Kind,
		FileSize:    u.Size,
		SniffedKind: u.SniffedKind,
		SniffedMIME: u.SniffedMIME,
		Status:      StatusPending,
		CreatedAt:   now.UTC().Format(time.RFC3339),
		Path:        u.Path,
		created:     now,
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	return job.clone()
}

// Get returns a copy of a job
func (s *Store) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return job.clone(), nil
}

// Start moves a pending job to processing
func (s *Store) Start(id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if job.Status != StatusPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrJobNotPending, id, job.Status)
	}
	job.Status = StatusProcessing
	job.StartedAt = s.now().UTC().Format(time.RFC3339)
	return job.clone(), nil
}

// Complete stores the result of a processing job
func (s *Store) Complete(id string, result *detector.PredictionResult) (*Job, error) {
	return s.finish(id, func(job *Job) {
		job.Status = StatusCompleted
		job.Result = result
	})
}

// Fail marks a job as failed
func (s *Store) Fail(id string, cause error) (*Job, error) {
	return s.finish(id, func(job *Job) {
		job.Status = StatusFailed
		if cause != nil {
			job.Error = cause.Error()
		}
	})
}

func (s *Store) finish(id string, apply func(*Job)) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	apply(job)
	job.CompletedAt = s.now().UTC().Format(time.RFC3339)
	return job.clone(), nil
}

// List returns the jobs matching f, newest first, plus the number of
// matches before pagination
func (s *Store) List(f Filter) ([]*Job, int) {
	f.Limit, f.Offset = NormalizePage(f.Limit, f.Offset)

	s.mu.RLock()
	matched := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if f.Status == "" || job.Status == f.Status {
			matched = append(matched, job.clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].created.Equal(matched[j].created) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].created.After(matched[j].created)
	})

	total := len(matched)
	if f.Offset >= total {
		return []*Job{}, total
	}
	end := f.Offset + f.Limit
	if end > total {
		end = total
	}
	return matched[f.Offset:end], total
}

// Counts tallies jobs by status
func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := Counts{Total: len(s.jobs)}
	for _, job := range s.jobs {
		switch job.Status {
		case StatusPending:
			c.Pending++
		case StatusProcessing:
			c.Processing++
		case StatusCompleted:
			c.Completed++
		case StatusFailed:
			c.Failed++
		}
	}
	return c
}

// Reset removes every job
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = make(map[string]*Job)
}

// NormalizePage applies the default and maximum page size
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ParseStatus validates a status filter. The empty string means any.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case "", StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

func (j *Job) clone() *Job {
	c := *j
	return &c
}
