// Package janitor periodically removes stale uploads and expired shares.
package janitor

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// UploadPruner deletes uploads older than a given age
type UploadPruner interface {
	PruneOlderThan(age time.Duration) (int, error)
}

// SharePurger deletes expired shares
type SharePurger interface {
	PurgeExpired() (int, error)
}

// Report is the outcome of one cleanup run
type Report struct {
	UploadsRemoved int
	SharesPurged   int
}

// Janitor runs cleanup on a cron schedule
type Janitor struct {
	uploads   UploadPruner
	shares    SharePurger
	retention time.Duration
	schedule  string
	cron      *cron.Cron
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// New validates the schedule. The schedule is a standard 5-field cron
// expression; an empty schedule yields a janitor that never runs.
// Either dependency may be nil.
func New(schedule string, retention time.Duration, uploads UploadPruner, shares SharePurger) (*Janitor, error) {
	schedule = strings.TrimSpace(schedule)
	j := &Janitor{
		uploads:   uploads,
		shares:    shares,
		retention: retention,
		schedule:  schedule,
	}
	if schedule == "" {
		return j, nil
	}

	if _, err := parser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	j.cron = cron.New(cron.WithParser(parser))
	if _, err := j.cron.AddFunc(schedule, func() { j.RunOnce() }); err != nil {
		return nil, fmt.Errorf("failed to schedule cleanup: %w", err)
	}
	return j, nil
}

// Start begins the schedule in the background
func (j *Janitor) Start() {
	if j.cron == nil {
		log.Println("Cleanup disabled (cleanup_schedule not set)")
		return
	}
	log.Printf("Cleanup scheduled (cron: %s, upload retention: %s)", j.schedule, j.retention)
	j.cron.Start()
}

// Stop halts the schedule. The returned context is done once any running
// cleanup has finished.
func (j *Janitor) Stop() context.Context {
	if j.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return j.cron.Stop()
}

// RunOnce performs one cleanup pass immediately
func (j *Janitor) RunOnce() Report {
	var report Report

	if j.uploads != nil && j.retention > 0 {
		n, err := j.uploads.PruneOlderThan(j.retention)
		if err != nil {
			log.Printf("Warning: upload cleanup failed: %v", err)
		}
		report.UploadsRemoved = n
	}
	if j.shares != nil {
		n, err := j.shares.PurgeExpired()
		if err != nil {
			log.Printf("Warning: share cleanup failed: %v", err)
		}
		report.SharesPurged = n
	}

	if report.UploadsRemoved > 0 || report.SharesPurged > 0 {
		log.Printf("Cleanup removed %d uploads and %d expired shares", report.UploadsRemoved, report.SharesPurged)
	}
	return report
}
