package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
}

func pageQuery(c *gin.Context) (int, int) {
	page, size := 1, 20
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		size = v
	}
	return page, size
}

func boolQuery(c *gin.Context, key string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, key+" must be a boolean")
	}
	return &v, nil
}

func weekdayQuery(c *gin.Context) (*models.Weekday, error) {
	raw := strings.TrimSpace(c.Query("weekday"))
	if raw == "" {
		return nil, nil
	}
	day, err := models.ParseWeekday(raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "weekday must be one of SUN..SAT")
	}
	return &day, nil
}

func dateQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, key+" must be YYYY-MM-DD")
	}
	return &t, nil
}

func viewFilterQuery(c *gin.Context) (models.ViewFilter, error) {
	day, err := weekdayQuery(c)
	if err != nil {
		return models.ViewFilter{}, err
	}
	return models.ViewFilter{
		ProfessorID:    strings.TrimSpace(c.Query("professor_id")),
		RoomID:         strings.TrimSpace(c.Query("room_id")),
		AcademicPeriod: strings.TrimSpace(c.Query("period")),
		Weekday:        day,
	}, nil
}
