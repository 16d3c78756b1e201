package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/jobs"
)

// JobTypeConflictSweep tags sweep jobs on the queue.
const JobTypeConflictSweep = "conflict_sweep"

// SweepJobStatus tracks an asynchronous sweep.
type SweepJobStatus string

const (
	SweepJobQueued   SweepJobStatus = "QUEUED"
	SweepJobRunning  SweepJobStatus = "RUNNING"
	SweepJobFinished SweepJobStatus = "FINISHED"
	SweepJobFailed   SweepJobStatus = "FAILED"
)

// SweepJob is the externally visible state of a queued sweep.
type SweepJob struct {
	ID             string         `json:"id"`
	AcademicPeriod string         `json:"academic_period"`
	Status         SweepJobStatus `json:"status"`
	Attempt        int            `json:"attempt"`
	Error          string         `json:"error,omitempty"`
	Result         *SweepResult   `json:"result,omitempty"`
	EnqueuedAt     time.Time      `json:"enqueued_at"`
	FinishedAt     *time.Time     `json:"finished_at,omitempty"`
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type ledgerSweeper interface {
	Sweep(ctx context.Context, period string) (*SweepResult, error)
}

// SweepJobService queues period sweeps and remembers their outcome for a while.
type SweepJobService struct {
	queue    jobDispatcher
	sweeper  ledgerSweeper
	statuses *gocache.Cache
	logger   *zap.Logger
}

// NewSweepJobService constructs the service. Job state is kept for retention.
func NewSweepJobService(queue jobDispatcher, sweeper ledgerSweeper, retention time.Duration, logger *zap.Logger) *SweepJobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retention <= 0 {
		retention = time.Hour
	}
	return &SweepJobService{
		queue:    queue,
		sweeper:  sweeper,
		statuses: gocache.New(retention, retention*2),
		logger:   logger,
	}
}

// SetQueue binds the dispatcher once the queue is built around Handle.
func (s *SweepJobService) SetQueue(queue jobDispatcher) {
	s.queue = queue
}

// Enqueue schedules a sweep. A sweep already pending for the period yields Conflict.
func (s *SweepJobService) Enqueue(period string) (*SweepJob, error) {
	period = strings.TrimSpace(period)
	if period == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "academic period is required")
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "sweep queue not configured")
	}
	job := &SweepJob{
		ID:             uuid.NewString(),
		AcademicPeriod: period,
		Status:         SweepJobQueued,
		EnqueuedAt:     time.Now().UTC(),
	}
	s.store(job)

	err := s.queue.Enqueue(jobs.Job{ID: job.ID, Key: "sweep:" + period, Type: JobTypeConflictSweep, Payload: period})
	if err != nil {
		s.statuses.Delete(job.ID)
		if errors.Is(err, jobs.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a sweep for this period is already pending")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue sweep")
	}
	return job, nil
}

// Get returns the state of a queued sweep.
func (s *SweepJobService) Get(id string) (*SweepJob, error) {
	raw, ok := s.statuses.Get(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "sweep job not found")
	}
	job := *raw.(*SweepJob)
	return &job, nil
}

// Handle runs a queued sweep.
func (s *SweepJobService) Handle(ctx context.Context, job jobs.Job) error {
	period, _ := job.Payload.(string)
	state := s.lookup(job)
	state.Status = SweepJobRunning
	state.Attempt = job.Attempt + 1
	s.store(state)

	result, err := s.sweeper.Sweep(ctx, period)
	if err != nil {
		state.Status = SweepJobFailed
		state.Error = err.Error()
		s.store(state)
		return err
	}
	now := time.Now().UTC()
	state.Status = SweepJobFinished
	state.Error = ""
	state.Result = result
	state.FinishedAt = &now
	s.store(state)
	return nil
}

// Schedule registers a cron entry that queues a sweep per period. An empty spec disables it.
func (s *SweepJobService) Schedule(spec string, periods []string) (*cron.Cron, error) {
	if strings.TrimSpace(spec) == "" || len(periods) == 0 {
		return nil, nil
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(spec, func() {
		for _, period := range periods {
			if _, err := s.Enqueue(period); err != nil {
				s.logger.Warn("scheduled sweep not queued", zap.String("period", period), zap.Error(err))
			}
		}
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("conflict sweep scheduled", zap.String("cron", spec), zap.Strings("periods", periods))
	return c, nil
}

func (s *SweepJobService) lookup(job jobs.Job) *SweepJob {
	if raw, ok := s.statuses.Get(job.ID); ok {
		state := *raw.(*SweepJob)
		return &state
	}
	period, _ := job.Payload.(string)
	return &SweepJob{ID: job.ID, AcademicPeriod: period, EnqueuedAt: job.Enqueued}
}

func (s *SweepJobService) store(job *SweepJob) {
	copied := *job
	s.statuses.Set(job.ID, &copied, gocache.DefaultExpiration)
}
