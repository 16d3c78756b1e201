package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/internal/repository"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

type classroomRepository interface {
	List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error)
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, room *models.Classroom) error
	Update(ctx context.Context, room *models.Classroom) error
	Delete(ctx context.Context, id string) error
}

type roomUsageCounter interface {
	CountActiveByRoom(ctx context.Context, roomID string) (int, error)
}

// CreateClassroomRequest is the payload for registering a room.
type CreateClassroomRequest struct {
	Name      string   `json:"name" validate:"required,max=120"`
	Capacity  int      `json:"capacity" validate:"required,gt=0"`
	RoomType  string   `json:"room_type" validate:"required,room_type"`
	Equipment []string `json:"equipment" validate:"omitempty,dive,required"`
	Available *bool    `json:"available"`
	Location  *string  `json:"location" validate:"omitempty,max=255"`
}

// UpdateClassroomRequest patches a room.
type UpdateClassroomRequest struct {
	Name      *string   `json:"name" validate:"omitempty,min=1,max=120"`
	Capacity  *int      `json:"capacity" validate:"omitempty,gt=0"`
	RoomType  *string   `json:"room_type" validate:"omitempty,room_type"`
	Equipment *[]string `json:"equipment"`
	Available *bool     `json:"available"`
	Location  *string   `json:"location" validate:"omitempty,max=255"`
}

// ClassroomService manages the classroom registry.
type ClassroomService struct {
	repo      classroomRepository
	usage     roomUsageCounter
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassroomService constructs the service.
func NewClassroomService(repo classroomRepository, usage roomUsageCounter, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ClassroomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	registerTimetableValidations(validate)
	return &ClassroomService{repo: repo, usage: usage, cache: cache, validator: validate, logger: logger}
}

// List returns rooms with pagination metadata.
func (s *ClassroomService) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, *models.Pagination, error) {
	if filter.RoomType != "" && !filter.RoomType.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown room type")
	}
	rooms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classrooms")
	}
	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	return rooms, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single room.
func (s *ClassroomService) Get(ctx context.Context, id string) (*models.Classroom, error) {
	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	return room, nil
}

// Create registers a room with a unique name.
func (s *ClassroomService) Create(ctx context.Context, req CreateClassroomRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid classroom payload")
	}
	name := strings.TrimSpace(req.Name)
	if err := s.ensureUniqueName(ctx, name, ""); err != nil {
		return nil, err
	}

	room := &models.Classroom{
		Name:      name,
		Capacity:  req.Capacity,
		RoomType:  models.NormalizeRoomType(req.RoomType),
		Equipment: normalizeEquipment(req.Equipment),
		Available: true,
		Location:  trimOptional(req.Location),
	}
	if req.Available != nil {
		room.Available = *req.Available
	}
	if err := s.repo.Create(ctx, room); err != nil {
		return nil, s.mapWriteError(err, "failed to create classroom")
	}
	s.logger.Info("classroom created", zap.String("classroom_id", room.ID), zap.String("name", room.Name))
	return room, nil
}

// Update applies a partial patch, re-checking name uniqueness when the name changes.
func (s *ClassroomService) Update(ctx context.Context, id string, req UpdateClassroomRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid classroom payload")
	}
	room, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if !strings.EqualFold(name, room.Name) {
			if err := s.ensureUniqueName(ctx, name, room.ID); err != nil {
				return nil, err
			}
		}
		room.Name = name
	}
	if req.Capacity != nil {
		room.Capacity = *req.Capacity
	}
	if req.RoomType != nil {
		room.RoomType = models.NormalizeRoomType(*req.RoomType)
	}
	if req.Equipment != nil {
		room.Equipment = normalizeEquipment(*req.Equipment)
	}
	if req.Available != nil {
		room.Available = *req.Available
	}
	if req.Location != nil {
		room.Location = trimOptional(req.Location)
	}

	if err := s.repo.Update(ctx, room); err != nil {
		return nil, s.mapWriteError(err, "failed to update classroom")
	}
	s.cache.InvalidateViews(ctx)
	return room, nil
}

// Delete removes a room unless active entries still reference it.
func (s *ClassroomService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	inUse, err := s.usage.CountActiveByRoom(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check classroom usage")
	}
	if inUse > 0 {
		return appErrors.WithDetails(appErrors.Clone(appErrors.ErrConflict, "classroom is referenced by active schedule entries"), map[string]int{"active_entries": inUse})
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete classroom")
	}
	s.cache.InvalidateViews(ctx)
	return nil
}

func (s *ClassroomService) ensureUniqueName(ctx context.Context, name, excludeID string) error {
	exists, err := s.repo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check classroom name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "classroom name already exists")
	}
	return nil
}

func (s *ClassroomService) mapWriteError(err error, message string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return appErrors.Clone(appErrors.ErrConflict, "classroom name already exists")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func normalizeEquipment(items []string) pq.StringArray {
	seen := make(map[string]struct{}, len(items))
	out := pq.StringArray{}
	for _, item := range items {
		trimmed := strings.ToLower(strings.TrimSpace(item))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	sort.Strings(out)
	return out
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
