package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/internal/service"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/response"
)

type conflictService interface {
	List(ctx context.Context, filter models.ConflictFilter) ([]models.ConflictRecord, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.ConflictRecord, error)
	Resolve(ctx context.Context, id string, req service.ResolveConflictRequest) (*models.ConflictRecord, error)
	Sweep(ctx context.Context, period string) (*service.SweepResult, error)
}

type sweepJobService interface {
	Enqueue(period string) (*service.SweepJob, error)
	Get(id string) (*service.SweepJob, error)
}

// ConflictHandler exposes the conflict ledger.
type ConflictHandler struct {
	service conflictService
	jobs    sweepJobService
}

// NewConflictHandler constructs the handler. jobs may be nil, in which case
// async sweeps are refused.
func NewConflictHandler(svc conflictService, jobs sweepJobService) *ConflictHandler {
	return &ConflictHandler{service: svc, jobs: jobs}
}

// List godoc
// @Summary List conflict records
// @Tags Conflicts
// @Produce json
// @Param type query string false "Conflict type"
// @Param resolved query bool false "Resolution state"
// @Param professor_id query string false "Professor ID"
// @Param room_id query string false "Classroom ID"
// @Param period query string false "Academic period"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /conflicts [get]
func (h *ConflictHandler) List(c *gin.Context) {
	resolved, err := boolQuery(c, "resolved")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.ConflictFilter{
		Resolved:       resolved,
		ProfessorID:    strings.TrimSpace(c.Query("professor_id")),
		RoomID:         strings.TrimSpace(c.Query("room_id")),
		AcademicPeriod: strings.TrimSpace(c.Query("period")),
	}
	if raw := c.Query("type"); raw != "" {
		filter.Type = models.NormalizeConflictType(raw)
	}
	filter.Page, filter.PageSize = pageQuery(c)

	records, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Get godoc
// @Summary Get conflict record
// @Tags Conflicts
// @Produce json
// @Param id path string true "Conflict ID"
// @Success 200 {object} response.Envelope
// @Router /conflicts/{id} [get]
func (h *ConflictHandler) Get(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Resolve godoc
// @Summary Mark a conflict as resolved
// @Description Resolving an already resolved record fails with 422.
// @Tags Conflicts
// @Accept json
// @Produce json
// @Param id path string true "Conflict ID"
// @Param payload body service.ResolveConflictRequest false "Resolution note"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /conflicts/{id}/resolve [post]
func (h *ConflictHandler) Resolve(c *gin.Context) {
	var req service.ResolveConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, invalidPayload(err))
		return
	}
	record, err := h.service.Resolve(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Sweep godoc
// @Summary Sweep a period for conflicts
// @Description With async=true the sweep is queued and a job handle is returned with 202.
// @Tags Conflicts
// @Produce json
// @Param period query string true "Academic period"
// @Param async query bool false "Run in background"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /conflicts/sweep [post]
func (h *ConflictHandler) Sweep(c *gin.Context) {
	period := strings.TrimSpace(c.Query("period"))
	async, err := boolQuery(c, "async")
	if err != nil {
		response.Error(c, err)
		return
	}
	if async != nil && *async {
		if h.jobs == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrInvalidState, "background sweeps are disabled"))
			return
		}
		job, err := h.jobs.Enqueue(period)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Accepted(c, job, path.Join(path.Dir(c.Request.URL.Path), "sweeps", job.ID))
		return
	}

	result, err := h.service.Sweep(c.Request.Context(), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SweepStatus godoc
// @Summary Background sweep status
// @Tags Conflicts
// @Produce json
// @Param id path string true "Sweep job ID"
// @Success 200 {object} response.Envelope
// @Router /conflicts/sweeps/{id} [get]
func (h *ConflictHandler) SweepStatus(c *gin.Context) {
	if h.jobs == nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	job, err := h.jobs.Get(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}
