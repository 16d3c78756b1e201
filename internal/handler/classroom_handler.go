package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/internal/service"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/response"
)

type classroomService interface {
	List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Classroom, error)
	Create(ctx context.Context, req service.CreateClassroomRequest) (*models.Classroom, error)
	Update(ctx context.Context, id string, req service.UpdateClassroomRequest) (*models.Classroom, error)
	Delete(ctx context.Context, id string) error
}

type roomViewService interface {
	RoomAvailability(ctx context.Context, roomID string, date time.Time, period string) (*models.RoomAvailability, error)
	RoomOccupancy(ctx context.Context, roomID, period string) (*models.RoomOccupancy, error)
}

// ClassroomHandler exposes the classroom registry and per-room views.
type ClassroomHandler struct {
	service classroomService
	views   roomViewService
}

// NewClassroomHandler constructs a classroom handler.
func NewClassroomHandler(svc classroomService, views roomViewService) *ClassroomHandler {
	return &ClassroomHandler{service: svc, views: views}
}

// List godoc
// @Summary List classrooms
// @Tags Classrooms
// @Produce json
// @Param room_type query string false "Room type"
// @Param min_capacity query int false "Minimum capacity"
// @Param available query bool false "Availability flag"
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /classrooms [get]
func (h *ClassroomHandler) List(c *gin.Context) {
	var filter models.ClassroomFilter
	if raw := c.Query("room_type"); raw != "" {
		filter.RoomType = models.NormalizeRoomType(raw)
	}
	if raw := c.Query("min_capacity"); raw != "" {
		capacity, err := strconv.Atoi(raw)
		if err != nil || capacity < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "min_capacity must be a non-negative integer"))
			return
		}
		filter.MinCapacity = capacity
	}
	available, err := boolQuery(c, "available")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.Available = available
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Page, filter.PageSize = pageQuery(c)

	rooms, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, pagination)
}

// Get godoc
// @Summary Get classroom
// @Tags Classrooms
// @Produce json
// @Param id path string true "Classroom ID"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id} [get]
func (h *ClassroomHandler) Get(c *gin.Context) {
	room, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room, nil)
}

// Create godoc
// @Summary Register classroom
// @Tags Classrooms
// @Accept json
// @Produce json
// @Param payload body service.CreateClassroomRequest true "Classroom payload"
// @Success 201 {object} response.Envelope
// @Router /classrooms [post]
func (h *ClassroomHandler) Create(c *gin.Context) {
	var req service.CreateClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	room, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, room)
}

// Update godoc
// @Summary Update classroom
// @Tags Classrooms
// @Accept json
// @Produce json
// @Param id path string true "Classroom ID"
// @Param payload body service.UpdateClassroomRequest true "Classroom payload"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id} [put]
func (h *ClassroomHandler) Update(c *gin.Context) {
	var req service.UpdateClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	room, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room, nil)
}

// Delete godoc
// @Summary Delete classroom
// @Description Rejected with 409 while active schedule entries still reference the room.
// @Tags Classrooms
// @Param id path string true "Classroom ID"
// @Success 204
// @Router /classrooms/{id} [delete]
func (h *ClassroomHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Availability godoc
// @Summary Room availability timeline for a date
// @Tags Classrooms
// @Produce json
// @Param id path string true "Classroom ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param period query string false "Academic period"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/availability [get]
func (h *ClassroomHandler) Availability(c *gin.Context) {
	date, err := dateQuery(c, "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	if date == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date is required"))
		return
	}
	availability, err := h.views.RoomAvailability(c.Request.Context(), c.Param("id"), *date, strings.TrimSpace(c.Query("period")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availability, nil)
}

// Occupancy godoc
// @Summary Weekly occupancy ratio of a room
// @Tags Classrooms
// @Produce json
// @Param id path string true "Classroom ID"
// @Param period query string false "Academic period"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/occupancy [get]
func (h *ClassroomHandler) Occupancy(c *gin.Context) {
	occupancy, err := h.views.RoomOccupancy(c.Request.Context(), c.Param("id"), strings.TrimSpace(c.Query("period")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, occupancy, nil)
}
