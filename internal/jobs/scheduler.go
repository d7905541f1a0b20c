// Package jobs runs periodic maintenance work inside the API process.
package jobs

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"lms-ai-backend/internal/logger"
)

// Job is one unit of periodic work. It should return promptly once ctx is done.
type Job func(ctx context.Context) error

type Scheduler struct {
	scheduler *gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
	timeout   time.Duration
}

// NewScheduler creates a scheduler whose jobs each run with at most timeout.
func NewScheduler(timeout time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	s.SingletonModeAll()

	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Scheduler{scheduler: s, ctx: ctx, cancel: cancel, timeout: timeout}
}

func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop waits for running jobs and cancels their context.
func (s *Scheduler) Stop() {
	s.cancel()
	s.scheduler.Stop()
}

// ScheduleInterval runs job now and then every interval. A run still going when
// the next one is due is not overlapped.
func (s *Scheduler) ScheduleInterval(tag string, interval time.Duration, job Job) error {
	_, err := s.scheduler.Every(interval).Tag(tag).Do(s.run, tag, job)
	return err
}

func (s *Scheduler) run(tag string, job Job) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	if err := job(ctx); err != nil {
		logger.Error("Scheduled job failed", "job", tag, "error", err, "duration", time.Since(start).String())
		return
	}
	logger.Debug("Scheduled job finished", "job", tag, "duration", time.Since(start).String())
}

func (s *Scheduler) RemoveJob(tag string) error {
	return s.scheduler.RemoveByTag(tag)
}

// Tags lists the tags of all scheduled jobs.
func (s *Scheduler) Tags() []string {
	var tags []string
	for _, j := range s.scheduler.Jobs() {
		tags = append(tags, j.Tags()...)
	}
	return tags
}
