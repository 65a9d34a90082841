package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"remindcal/internal/repository"
	"remindcal/internal/timeutil"
)

// SweepResult reports what a sweep removed. Failed is set when either
// delete errored; the counts then cover only what succeeded.
type SweepResult struct {
	TasksDeleted  int64
	EventsDeleted int64
	Failed        bool
}

// CleanupService purges expired, non-repeating items. Registered triggers
// of swept items are left alone.
type CleanupService struct {
	taskRepo  *repository.TaskRepository
	eventRepo *repository.EventRepository
	log       *zap.Logger
}

func NewCleanupService(taskRepo *repository.TaskRepository, eventRepo *repository.EventRepository, log *zap.Logger) *CleanupService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CleanupService{taskRepo: taskRepo, eventRepo: eventRepo, log: log}
}

// Sweep deletes items whose effective end is before now. It never fails:
// errors are logged and the next sweep picks up what is left.
func (s *CleanupService) Sweep(ctx context.Context, now time.Time) SweepResult {
	date := timeutil.FormatDate(now)
	clock := timeutil.FormatClock(now)

	var res SweepResult
	n, err := s.taskRepo.DeleteExpired(ctx, date, clock)
	if err != nil {
		s.log.Error("sweep tasks failed", zap.Error(err))
		res.Failed = true
	}
	res.TasksDeleted = n

	n, err = s.eventRepo.DeleteExpired(ctx, date, clock)
	if err != nil {
		s.log.Error("sweep events failed", zap.Error(err))
		res.Failed = true
	}
	res.EventsDeleted = n

	s.log.Info("sweep finished",
		zap.String("date", date),
		zap.String("time", clock),
		zap.Int64("tasks_deleted", res.TasksDeleted),
		zap.Int64("events_deleted", res.EventsDeleted),
		zap.Bool("failed", res.Failed),
	)
	return res
}
