package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/jobs"
)

type dispatcherStub struct {
	jobs []jobs.Job
	err  error
}

func (d *dispatcherStub) Enqueue(job jobs.Job) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type ledgerSweeperStub struct {
	result *SweepResult
	err    error
}

func (s ledgerSweeperStub) Sweep(ctx context.Context, period string) (*SweepResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	res := *s.result
	res.AcademicPeriod = period
	return &res, nil
}

func TestSweepJobServiceLifecycle(t *testing.T) {
	dispatcher := &dispatcherStub{}
	svc := NewSweepJobService(dispatcher, ledgerSweeperStub{result: &SweepResult{Created: 2}}, 0, nil)

	job, err := svc.Enqueue(" 2024.1 ")
	require.NoError(t, err)
	assert.Equal(t, SweepJobQueued, job.Status)
	require.Len(t, dispatcher.jobs, 1)
	assert.Equal(t, "sweep:2024.1", dispatcher.jobs[0].Key)
	assert.Equal(t, JobTypeConflictSweep, dispatcher.jobs[0].Type)

	require.NoError(t, svc.Handle(context.Background(), dispatcher.jobs[0]))
	state, err := svc.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, SweepJobFinished, state.Status)
	require.NotNil(t, state.Result)
	assert.Equal(t, 2, state.Result.Created)
	assert.NotNil(t, state.FinishedAt)
}

func TestSweepJobServiceFailureAndDuplicates(t *testing.T) {
	dispatcher := &dispatcherStub{}
	svc := NewSweepJobService(dispatcher, ledgerSweeperStub{err: errors.New("db down")}, 0, nil)

	job, err := svc.Enqueue("2024.1")
	require.NoError(t, err)
	assert.Error(t, svc.Handle(context.Background(), dispatcher.jobs[0]))
	state, err := svc.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, SweepJobFailed, state.Status)
	assert.Equal(t, "db down", state.Error)

	dispatcher.err = jobs.ErrDuplicate
	_, err = svc.Enqueue("2024.1")
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	_, err = svc.Enqueue("")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = svc.Get("unknown")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestSweepJobServiceSchedule(t *testing.T) {
	svc := NewSweepJobService(&dispatcherStub{}, ledgerSweeperStub{result: &SweepResult{}}, 0, nil)

	c, err := svc.Schedule("", []string{"2024.1"})
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = svc.Schedule("not a cron", []string{"2024.1"})
	assert.Error(t, err)

	c, err = svc.Schedule("@every 1h", []string{"2024.1"})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Len(t, c.Entries(), 1)
}
