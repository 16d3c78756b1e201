package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

type conflictRepository interface {
	List(ctx context.Context, filter models.ConflictFilter) ([]models.ConflictRecord, int, error)
	ListUnresolved(ctx context.Context, filter models.ConflictFilter) ([]models.ConflictRecord, error)
	FindByID(ctx context.Context, id string) (*models.ConflictRecord, error)
	CreateBatch(ctx context.Context, records []models.ConflictRecord) error
	Resolve(ctx context.Context, id string, resolvedAt time.Time, note *string) (bool, error)
}

type periodSweeper interface {
	SweepPeriod(ctx context.Context, period string) ([]models.ConflictRecord, error)
}

// ResolveConflictRequest closes a ledger record.
type ResolveConflictRequest struct {
	Note *string `json:"note" validate:"omitempty,max=1000"`
}

// SweepResult summarises one period sweep.
type SweepResult struct {
	AcademicPeriod string                  `json:"academic_period"`
	Records        []models.ConflictRecord `json:"records"`
	Created        int                     `json:"created"`
	AlreadyKnown   int                     `json:"already_known"`
	DurationMs     int64                   `json:"duration_ms"`
}

// ConflictService maintains the durable conflict ledger.
type ConflictService struct {
	repo      conflictRepository
	sweeper   periodSweeper
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewConflictService constructs the ledger service.
func NewConflictService(repo conflictRepository, sweeper periodSweeper, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ConflictService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{repo: repo, sweeper: sweeper, cache: cache, metrics: metrics, validator: validate, logger: logger, now: time.Now}
}

// List returns ledger records newest first.
func (s *ConflictService) List(ctx context.Context, filter models.ConflictFilter) ([]models.ConflictRecord, *models.Pagination, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown conflict type")
	}
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list conflicts")
	}
	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	return records, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Unresolved returns every open record matching the filter.
func (s *ConflictService) Unresolved(ctx context.Context, filter models.ConflictFilter) ([]models.ConflictRecord, error) {
	records, err := s.repo.ListUnresolved(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unresolved conflicts")
	}
	return records, nil
}

// Get returns a record.
func (s *ConflictService) Get(ctx context.Context, id string) (*models.ConflictRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "conflict not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conflict")
	}
	return record, nil
}

// Resolve marks a record resolved. A resolved record is immutable.
func (s *ConflictService) Resolve(ctx context.Context, id string, req ResolveConflictRequest) (*models.ConflictRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid resolve payload")
	}
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Resolved {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "conflict already resolved")
	}

	var note *string
	if req.Note != nil {
		if trimmed := strings.TrimSpace(*req.Note); trimmed != "" {
			note = &trimmed
		}
	}
	resolvedAt := s.now().UTC()
	ok, err := s.repo.Resolve(ctx, id, resolvedAt, note)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve conflict")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "conflict already resolved")
	}

	record.Resolved = true
	record.ResolvedAt = &resolvedAt
	record.ResolutionNote = note
	s.cache.InvalidateViews(ctx)
	s.logger.Info("conflict resolved", zap.String("conflict_id", id))
	return record, nil
}

// Sweep re-scans a period and records newly found conflicts. Collisions already
// tracked by an unresolved record are returned as-is instead of duplicated.
func (s *ConflictService) Sweep(ctx context.Context, period string) (*SweepResult, error) {
	period = strings.TrimSpace(period)
	if period == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "academic period is required")
	}
	start := time.Now()

	detected, err := s.sweeper.SweepPeriod(ctx, period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sweep period")
	}
	known, err := s.repo.ListUnresolved(ctx, models.ConflictFilter{AcademicPeriod: period})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unresolved conflicts")
	}
	knownByPair := make(map[string]models.ConflictRecord, len(known))
	for _, record := range known {
		knownByPair[record.PairKey()] = record
	}

	result := &SweepResult{AcademicPeriod: period, Records: make([]models.ConflictRecord, 0, len(detected))}
	var fresh []models.ConflictRecord
	seen := make(map[string]struct{}, len(detected))
	for _, record := range detected {
		key := record.PairKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if existing, ok := knownByPair[key]; ok {
			result.Records = append(result.Records, existing)
			result.AlreadyKnown++
			continue
		}
		fresh = append(fresh, record)
	}

	if err := s.repo.CreateBatch(ctx, fresh); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record conflicts")
	}
	for _, record := range fresh {
		s.metrics.RecordConflict(string(record.ConflictType), "sweep")
	}
	result.Records = append(result.Records, fresh...)
	result.Created = len(fresh)

	elapsed := time.Since(start)
	result.DurationMs = elapsed.Milliseconds()
	s.metrics.ObserveSweep(elapsed)
	if result.Created > 0 {
		s.cache.InvalidateViews(ctx)
	}
	s.logger.Info("conflict sweep finished", zap.String("period", period), zap.Int("created", result.Created), zap.Int("already_known", result.AlreadyKnown))
	return result, nil
}
