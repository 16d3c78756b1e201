package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/internal/service"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

type conflictServiceMock struct {
	filter     models.ConflictFilter
	resolveReq *service.ResolveConflictRequest
	resolved   map[string]bool
	swept      []string
}

func (m *conflictServiceMock) List(ctx context.Context, filter models.ConflictFilter) ([]models.ConflictRecord, *models.Pagination, error) {
	m.filter = filter
	return []models.ConflictRecord{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (m *conflictServiceMock) Get(ctx context.Context, id string) (*models.ConflictRecord, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "conflict not found")
}

func (m *conflictServiceMock) Resolve(ctx context.Context, id string, req service.ResolveConflictRequest) (*models.ConflictRecord, error) {
	m.resolveReq = &req
	if m.resolved == nil {
		m.resolved = map[string]bool{}
	}
	if m.resolved[id] {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "conflict already resolved")
	}
	m.resolved[id] = true
	return &models.ConflictRecord{ID: id, Resolved: true}, nil
}

func (m *conflictServiceMock) Sweep(ctx context.Context, period string) (*service.SweepResult, error) {
	if period == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "academic period is required")
	}
	m.swept = append(m.swept, period)
	return &service.SweepResult{AcademicPeriod: period, Created: 1}, nil
}

type sweepJobServiceMock struct {
	enqueued []string
	err      error
}

func (m *sweepJobServiceMock) Enqueue(period string) (*service.SweepJob, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.enqueued = append(m.enqueued, period)
	return &service.SweepJob{ID: "job-1", AcademicPeriod: period, Status: service.SweepJobQueued}, nil
}

func (m *sweepJobServiceMock) Get(id string) (*service.SweepJob, error) {
	if id != "job-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "sweep job not found")
	}
	return &service.SweepJob{ID: id, Status: service.SweepJobFinished}, nil
}

func conflictRouter(svc *conflictServiceMock, jobs sweepJobService) http.Handler {
	h := NewConflictHandler(svc, jobs)
	r := newTestRouter()
	r.GET("/conflicts", h.List)
	r.POST("/conflicts/sweep", h.Sweep)
	r.GET("/conflicts/sweeps/:id", h.SweepStatus)
	r.GET("/conflicts/:id", h.Get)
	r.POST("/conflicts/:id/resolve", h.Resolve)
	return r
}

func TestConflictHandlerResolveTwice(t *testing.T) {
	svc := &conflictServiceMock{}
	r := conflictRouter(svc, nil)

	w := performRequest(r, http.MethodPost, "/conflicts/c1/resolve", []byte(`{"note":"moved to B-204"}`))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.resolveReq.Note)
	assert.Equal(t, "moved to B-204", *svc.resolveReq.Note)

	w = performRequest(r, http.MethodPost, "/conflicts/c1/resolve", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = performRequest(r, http.MethodPost, "/conflicts/c2/resolve", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestConflictHandlerListAndGet(t *testing.T) {
	svc := &conflictServiceMock{}
	r := conflictRouter(svc, nil)

	w := performRequest(r, http.MethodGet, "/conflicts?type=room_overlap&resolved=false&period=2024.1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ConflictRoomOverlap, svc.filter.Type)
	require.NotNil(t, svc.filter.Resolved)
	assert.False(t, *svc.filter.Resolved)

	w = performRequest(r, http.MethodGet, "/conflicts/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConflictHandlerSweepSync(t *testing.T) {
	svc := &conflictServiceMock{}
	r := conflictRouter(svc, nil)

	w := performRequest(r, http.MethodPost, "/conflicts/sweep?period=2024.1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"2024.1"}, svc.swept)

	w = performRequest(r, http.MethodPost, "/conflicts/sweep", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(r, http.MethodPost, "/conflicts/sweep?period=2024.1&async=true", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestConflictHandlerSweepAsync(t *testing.T) {
	svc := &conflictServiceMock{}
	jobs := &sweepJobServiceMock{}
	r := conflictRouter(svc, jobs)

	w := performRequest(r, http.MethodPost, "/conflicts/sweep?period=2024.1&async=true", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"2024.1"}, jobs.enqueued)
	assert.Empty(t, svc.swept)
	assert.Contains(t, w.Body.String(), `"status":"QUEUED"`)
	assert.Regexp(t, `^/conflicts/sweeps/.+`, w.Header().Get("Location"))

	w = performRequest(r, http.MethodGet, "/conflicts/sweeps/job-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"FINISHED"`)

	w = performRequest(r, http.MethodGet, "/conflicts/sweeps/job-9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	jobs.err = appErrors.Clone(appErrors.ErrConflict, "a sweep for this period is already queued")
	w = performRequest(r, http.MethodPost, "/conflicts/sweep?period=2024.1&async=1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	jobs.err = errors.New("queue stopped")
	w = performRequest(r, http.MethodPost, "/conflicts/sweep?period=2024.1&async=true", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
