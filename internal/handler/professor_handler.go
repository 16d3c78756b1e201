package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-timetable-api/internal/middleware"
	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/pkg/response"
)

type agendaService interface {
	ProfessorAgenda(ctx context.Context, professorID, period string) (*models.ProfessorAgenda, error)
}

// ProfessorHandler exposes the per-professor agenda.
type ProfessorHandler struct {
	views agendaService
}

// NewProfessorHandler constructs the handler.
func NewProfessorHandler(views agendaService) *ProfessorHandler {
	return &ProfessorHandler{views: views}
}

// Agenda godoc
// @Summary Professor weekly agenda
// @Description Entries grouped by subject with weekly hours and unresolved conflicts.
// @Tags Professors
// @Produce json
// @Param id path string true "Professor ID"
// @Param period query string false "Academic period"
// @Success 200 {object} response.Envelope
// @Router /professors/{id}/agenda [get]
func (h *ProfessorHandler) Agenda(c *gin.Context) {
	agenda, err := h.views.ProfessorAgenda(c.Request.Context(), c.Param("id"), strings.TrimSpace(c.Query("period")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, agenda, nil, middleware.ExtractMeta(c))
}
