package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-timetable-api/internal/middleware"
	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/internal/service"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/export"
	"github.com/noah-isme/campus-timetable-api/pkg/response"
)

type scheduleService interface {
	List(ctx context.Context, filter models.ScheduleEntryFilter) ([]models.ScheduleEntry, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.ScheduleEntry, error)
	Create(ctx context.Context, req service.CreateScheduleEntryRequest) (*models.ScheduleEntry, error)
	CreateBulk(ctx context.Context, req service.BulkCreateScheduleRequest) ([]models.ScheduleEntry, error)
	Update(ctx context.Context, id string, req service.UpdateScheduleEntryRequest) (*models.ScheduleEntry, error)
	SetActive(ctx context.Context, id string, req service.SetActiveRequest) (*models.ScheduleEntry, error)
	Delete(ctx context.Context, id string) error
}

type gridViewService interface {
	WeeklyGrid(ctx context.Context, filter models.ViewFilter) (*models.WeeklyGrid, error)
	ExportWeeklyGrid(ctx context.Context, filter models.ViewFilter, format export.Format) (*service.ExportFile, error)
}

// ScheduleHandler exposes schedule entry endpoints and the weekly grid.
type ScheduleHandler struct {
	service scheduleService
	views   gridViewService
}

// NewScheduleHandler constructs a schedule handler.
func NewScheduleHandler(svc scheduleService, views gridViewService) *ScheduleHandler {
	return &ScheduleHandler{service: svc, views: views}
}

// List godoc
// @Summary List schedule entries
// @Tags Schedules
// @Produce json
// @Param subject_id query string false "Subject ID"
// @Param professor_id query string false "Professor ID"
// @Param room_id query string false "Classroom ID"
// @Param weekday query string false "Weekday token (SUN..SAT)"
// @Param period query string false "Academic period"
// @Param active query bool false "Active flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	day, err := weekdayQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	active, err := boolQuery(c, "active")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.ScheduleEntryFilter{
		SubjectID:      strings.TrimSpace(c.Query("subject_id")),
		ProfessorID:    strings.TrimSpace(c.Query("professor_id")),
		RoomID:         strings.TrimSpace(c.Query("room_id")),
		Weekday:        day,
		AcademicPeriod: strings.TrimSpace(c.Query("period")),
		Active:         active,
		Search:         strings.TrimSpace(c.Query("search")),
	}
	filter.Page, filter.PageSize = pageQuery(c)

	entries, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Get godoc
// @Summary Get schedule entry
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule entry ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	entry, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Create godoc
// @Summary Create schedule entry
// @Description Rejected with 409 when the professor or room is already booked in an overlapping slot.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.CreateScheduleEntryRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req service.CreateScheduleEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	entry, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// BulkCreate godoc
// @Summary Create several meetings atomically
// @Description Every slot is validated first; nothing is stored unless all slots pass.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.BulkCreateScheduleRequest true "Bulk payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/bulk [post]
func (h *ScheduleHandler) BulkCreate(c *gin.Context) {
	var req service.BulkCreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	entries, err := h.service.CreateBulk(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, entries, nil, map[string]interface{}{"created": len(entries)})
}

// Update godoc
// @Summary Update schedule entry
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule entry ID"
// @Param payload body service.UpdateScheduleEntryRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req service.UpdateScheduleEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	entry, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// SetActive godoc
// @Summary Activate or deactivate a schedule entry
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule entry ID"
// @Param payload body service.SetActiveRequest true "Active flag"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/active [patch]
func (h *ScheduleHandler) SetActive(c *gin.Context) {
	var req service.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	entry, err := h.service.SetActive(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Delete godoc
// @Summary Delete schedule entry
// @Tags Schedules
// @Param id path string true "Schedule entry ID"
// @Success 204
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Grid godoc
// @Summary Weekly timetable grid
// @Tags Schedules
// @Produce json
// @Param professor_id query string false "Professor ID"
// @Param room_id query string false "Classroom ID"
// @Param period query string false "Academic period"
// @Param weekday query string false "Weekday token (SUN..SAT)"
// @Success 200 {object} response.Envelope
// @Router /schedules/grid [get]
func (h *ScheduleHandler) Grid(c *gin.Context) {
	filter, err := viewFilterQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	grid, err := h.views.WeeklyGrid(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, nil, middleware.ExtractMeta(c))
}

// ExportGrid godoc
// @Summary Export the weekly grid
// @Tags Schedules
// @Produce octet-stream
// @Param format query string false "csv, pdf or xlsx" default(csv)
// @Param professor_id query string false "Professor ID"
// @Param room_id query string false "Classroom ID"
// @Param period query string false "Academic period"
// @Success 200 {file} file
// @Router /schedules/grid/export [get]
func (h *ScheduleHandler) ExportGrid(c *gin.Context) {
	filter, err := viewFilterQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	file, err := h.views.ExportWeeklyGrid(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
