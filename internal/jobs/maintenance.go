package jobs

import (
	"context"
	"time"
)

// Maintainer is the maintenance work the scheduler drives.
type Maintainer interface {
	FailStaleDocuments(ctx context.Context) (int64, error)
	CleanupTempFiles(ctx context.Context) (int, error)
}

const (
	TagStaleDocuments = "stale-documents"
	TagTempCleanup    = "temp-cleanup"
)

// RegisterMaintenance schedules both maintenance jobs every interval.
func RegisterMaintenance(s *Scheduler, m Maintainer, interval time.Duration) error {
	if err := s.ScheduleInterval(TagStaleDocuments, interval, func(ctx context.Context) error {
		_, err := m.FailStaleDocuments(ctx)
		return err
	}); err != nil {
		return err
	}
	return s.ScheduleInterval(TagTempCleanup, interval, func(ctx context.Context) error {
		_, err := m.CleanupTempFiles(ctx)
		return err
	})
}
