// services/scheduler.go
package services

import (
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartScoreStalenessScheduler flags projects whose resilience score
// snapshot has gone stale. It never touches bounty status — lifecycle
// transitions are strictly caller-driven.
func (s *ProjectService) StartScoreStalenessScheduler(window time.Duration) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: sweep for stale score snapshots
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			s.markStaleScores(window)
		}),
	)
}
