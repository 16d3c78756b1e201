package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/internal/repository"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/keylock"
	"github.com/noah-isme/campus-timetable-api/pkg/timerange"
)

type scheduleEntryRepository interface {
	List(ctx context.Context, filter models.ScheduleEntryFilter) ([]models.ScheduleEntry, int, error)
	FindByID(ctx context.Context, id string) (*models.ScheduleEntry, error)
	LockKeys(ctx context.Context, exec sqlx.ExecerContext, keys []string) error
	Create(ctx context.Context, exec sqlx.ExtContext, entry *models.ScheduleEntry) error
	BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, entries []models.ScheduleEntry) error
	Update(ctx context.Context, exec sqlx.ExtContext, entry *models.ScheduleEntry) error
	Delete(ctx context.Context, id string) error
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type classroomReader interface {
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
}

type teachingPeriodChecker interface {
	HasTeachingPeriod(ctx context.Context, period string) (bool, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// CreateScheduleEntryRequest describes payload for creating an entry.
type CreateScheduleEntryRequest struct {
	SubjectID      string  `json:"subject_id" validate:"required"`
	ProfessorID    string  `json:"professor_id" validate:"required"`
	RoomID         *string `json:"room_id"`
	Weekday        string  `json:"weekday" validate:"required,weekday"`
	StartTime      string  `json:"start_time" validate:"required,hhmm"`
	EndTime        string  `json:"end_time" validate:"required,hhmm"`
	AcademicPeriod string  `json:"academic_period" validate:"required"`
}

// UpdateScheduleEntryRequest patches an entry. Nil fields are left unchanged;
// an empty room_id clears the room.
type UpdateScheduleEntryRequest struct {
	SubjectID      *string `json:"subject_id" validate:"omitempty,min=1"`
	ProfessorID    *string `json:"professor_id" validate:"omitempty,min=1"`
	RoomID         *string `json:"room_id"`
	Weekday        *string `json:"weekday" validate:"omitempty,weekday"`
	StartTime      *string `json:"start_time" validate:"omitempty,hhmm"`
	EndTime        *string `json:"end_time" validate:"omitempty,hhmm"`
	AcademicPeriod *string `json:"academic_period" validate:"omitempty,min=1"`
	Active         *bool   `json:"active"`
}

// SetActiveRequest toggles soft invalidation.
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// ScheduleSlotRequest is one weekday/time slot of a bulk request.
type ScheduleSlotRequest struct {
	Weekday   string `json:"weekday"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// BulkCreateScheduleRequest creates several meetings for one subject/professor.
type BulkCreateScheduleRequest struct {
	SubjectID      string                `json:"subject_id" validate:"required"`
	ProfessorID    string                `json:"professor_id" validate:"required"`
	RoomID         *string               `json:"room_id"`
	AcademicPeriod string                `json:"academic_period" validate:"required"`
	Slots          []ScheduleSlotRequest `json:"slots" validate:"required,min=1"`
}

// ScheduleService enforces timetable policy and collision rules on every write.
type ScheduleService struct {
	repo      scheduleEntryRepository
	subjects  subjectReader
	users     userReader
	rooms     classroomReader
	calendar  teachingPeriodChecker
	detector  *ConflictDetector
	tx        txProvider
	locks     *keylock.Locker
	cache     *CacheService
	metrics   *MetricsService
	policy    TimetablePolicy
	validator *validator.Validate
	logger    *zap.Logger
}

// ScheduleServiceDeps bundles the collaborators of ScheduleService.
type ScheduleServiceDeps struct {
	Repo      scheduleEntryRepository
	Subjects  subjectReader
	Users     userReader
	Rooms     classroomReader
	Calendar  teachingPeriodChecker
	Detector  *ConflictDetector
	Tx        txProvider
	Locks     *keylock.Locker
	Cache     *CacheService
	Metrics   *MetricsService
	Policy    TimetablePolicy
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(deps ScheduleServiceDeps) *ScheduleService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Locks == nil {
		deps.Locks = keylock.New()
	}
	if deps.Policy.Day.Duration() == 0 {
		deps.Policy = DefaultTimetablePolicy()
	}
	registerTimetableValidations(deps.Validator)
	return &ScheduleService{
		repo:      deps.Repo,
		subjects:  deps.Subjects,
		users:     deps.Users,
		rooms:     deps.Rooms,
		calendar:  deps.Calendar,
		detector:  deps.Detector,
		tx:        deps.Tx,
		locks:     deps.Locks,
		cache:     deps.Cache,
		metrics:   deps.Metrics,
		policy:    deps.Policy,
		validator: deps.Validator,
		logger:    deps.Logger,
	}
}

// List returns entries with pagination metadata.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleEntryFilter) ([]models.ScheduleEntry, *models.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule entries")
	}
	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	return entries, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single entry.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule entry")
	}
	return entry, nil
}

// Create validates and stores a new entry.
func (s *ScheduleService) Create(ctx context.Context, req CreateScheduleEntryRequest) (entry *models.ScheduleEntry, err error) {
	defer func() { s.metrics.RecordScheduleWrite("create", err) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid schedule payload")
	}
	candidate := referenceEntry(req.SubjectID, req.ProfessorID, req.RoomID, req.AcademicPeriod)
	if err := s.checkReferences(ctx, candidate); err != nil {
		return nil, err
	}
	candidate, err = s.withSlot(candidate, req.Weekday, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if err := s.checkTeachingPeriod(ctx, candidate.AcademicPeriod); err != nil {
		return nil, err
	}

	err = s.writeLocked(ctx, candidate.LockKeys(), func(tx *sqlx.Tx) error {
		if err := s.ensureNoConflict(ctx, tx, candidate, ""); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, tx, &candidate); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule entry")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("schedule entry created", zap.String("entry_id", candidate.ID), zap.String("professor_id", candidate.ProfessorID), zap.String("weekday", candidate.Weekday.String()))
	return &candidate, nil
}

// Update merges the patch and re-runs every check against the merged shape.
func (s *ScheduleService) Update(ctx context.Context, id string, req UpdateScheduleEntryRequest) (entry *models.ScheduleEntry, err error) {
	defer func() { s.metrics.RecordScheduleWrite("update", err) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid schedule payload")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	subjectID := pick(req.SubjectID, current.SubjectID)
	professorID := pick(req.ProfessorID, current.ProfessorID)
	weekday := pick(req.Weekday, current.Weekday.String())
	start := pick(req.StartTime, timerange.Format(current.StartTime))
	end := pick(req.EndTime, timerange.Format(current.EndTime))
	period := pick(req.AcademicPeriod, current.AcademicPeriod)
	roomID := current.RoomID
	if req.RoomID != nil {
		roomID = req.RoomID
	}

	merged := referenceEntry(subjectID, professorID, roomID, period)
	merged.ID = current.ID
	merged.CreatedAt = current.CreatedAt
	merged.Active = current.Active
	if req.Active != nil {
		merged.Active = *req.Active
	}
	// inactive entries skip reference checks
	if merged.Active {
		if err := s.checkReferences(ctx, merged); err != nil {
			return nil, err
		}
	}
	merged, err = s.withSlot(merged, weekday, start, end)
	if err != nil {
		return nil, err
	}
	if merged.Active {
		if err := s.checkTeachingPeriod(ctx, merged.AcademicPeriod); err != nil {
			return nil, err
		}
	}

	keys := append(current.LockKeys(), merged.LockKeys()...)
	err = s.writeLocked(ctx, keys, func(tx *sqlx.Tx) error {
		if merged.Active {
			if err := s.ensureNoConflict(ctx, tx, merged, merged.ID); err != nil {
				return err
			}
		}
		if err := s.repo.Update(ctx, tx, &merged); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule entry")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &merged, nil
}

// SetActive soft-invalidates or reactivates an entry. Reactivation re-checks collisions.
func (s *ScheduleService) SetActive(ctx context.Context, id string, req SetActiveRequest) (entry *models.ScheduleEntry, err error) {
	defer func() { s.metrics.RecordScheduleWrite("set_active", err) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid active payload")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Active == *req.Active {
		return current, nil
	}
	updated := *current
	updated.Active = *req.Active

	err = s.writeLocked(ctx, updated.LockKeys(), func(tx *sqlx.Tx) error {
		if updated.Active {
			if err := s.ensureNoConflict(ctx, tx, updated, updated.ID); err != nil {
				return err
			}
		}
		if err := s.repo.Update(ctx, tx, &updated); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule entry")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete hard-deletes an entry. Ledger records referencing it are kept.
func (s *ScheduleService) Delete(ctx context.Context, id string) (err error) {
	defer func() { s.metrics.RecordScheduleWrite("delete", err) }()

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule entry")
	}
	s.cache.InvalidateViews(ctx)
	return nil
}

// CreateBulk validates every slot, reports all failures together and persists
// either every slot or none.
func (s *ScheduleService) CreateBulk(ctx context.Context, req BulkCreateScheduleRequest) (created []models.ScheduleEntry, err error) {
	defer func() { s.metrics.RecordScheduleWrite("bulk_create", err) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid bulk schedule payload")
	}
	reference := referenceEntry(req.SubjectID, req.ProfessorID, req.RoomID, req.AcademicPeriod)
	if err := s.checkReferences(ctx, reference); err != nil {
		return nil, err
	}
	if err := s.checkTeachingPeriod(ctx, reference.AcademicPeriod); err != nil {
		return nil, err
	}

	failures := make(map[int]*models.SlotFailure)
	fail := func(i int, code, reason string) *models.SlotFailure {
		f, ok := failures[i]
		if !ok {
			slot := req.Slots[i]
			f = &models.SlotFailure{Index: i, Weekday: slot.Weekday, StartTime: slot.StartTime, EndTime: slot.EndTime, Code: code, Reason: reason}
			failures[i] = f
		}
		return f
	}

	candidates := make([]models.ScheduleEntry, len(req.Slots))
	valid := make([]bool, len(req.Slots))
	var keys []string
	for i, slot := range req.Slots {
		entry, buildErr := s.withSlot(reference, slot.Weekday, slot.StartTime, slot.EndTime)
		if buildErr != nil {
			appErr := appErrors.FromError(buildErr)
			fail(i, appErr.Code, appErr.Message)
			continue
		}
		candidates[i] = entry
		valid[i] = true
		keys = append(keys, entry.LockKeys()...)
	}

	var validIdx []int
	var batch []models.ScheduleEntry
	for i := range candidates {
		if valid[i] {
			validIdx = append(validIdx, i)
			batch = append(batch, candidates[i])
		}
	}
	for _, clash := range s.detector.CheckCandidates(batch) {
		first, other := validIdx[clash.First], validIdx[clash.Other]
		s.recordBatchClash(fail(first, appErrors.ErrConflict.Code, "overlaps another slot in the request"), clash.Type, candidates[other], other)
		s.recordBatchClash(fail(other, appErrors.ErrConflict.Code, "overlaps another slot in the request"), clash.Type, candidates[first], first)
	}

	err = s.writeLocked(ctx, keys, func(tx *sqlx.Tx) error {
		for _, i := range validIdx {
			conflicts, checkErr := s.findConflicts(ctx, tx, candidates[i], "")
			if checkErr != nil {
				return checkErr
			}
			if len(conflicts) > 0 {
				f := fail(i, appErrors.ErrConflict.Code, "overlaps an existing schedule entry")
				f.Conflicts = append(f.Conflicts, conflicts...)
			}
		}
		if len(failures) > 0 {
			return bulkError(failures)
		}
		if err := s.repo.BulkCreateWithTx(ctx, tx, candidates); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule entries")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("schedule entries bulk created", zap.String("professor_id", req.ProfessorID), zap.Int("count", len(candidates)))
	return candidates, nil
}

func (s *ScheduleService) recordBatchClash(f *models.SlotFailure, kind models.ConflictType, other models.ScheduleEntry, otherIndex int) {
	idx := otherIndex
	conflict := models.NewScheduleConflict(kind, other)
	conflict.BatchIndex = &idx
	f.Conflicts = append(f.Conflicts, conflict)
}

func bulkError(failures map[int]*models.SlotFailure) error {
	indexes := make([]int, 0, len(failures))
	for i := range failures {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	detail := &models.BulkScheduleError{Failures: make([]models.SlotFailure, 0, len(failures))}
	code := appErrors.ErrValidation
	for _, i := range indexes {
		f := failures[i]
		detail.Failures = append(detail.Failures, *f)
		if f.Code == appErrors.ErrConflict.Code {
			code = appErrors.ErrConflict
		}
	}
	return appErrors.WithDetails(appErrors.Wrap(detail, code.Code, code.Status, detail.Error()), detail)
}

// writeLocked serialises writers on the given keys in process and in Postgres,
// then runs fn inside one transaction. Conflict details get their names only
// after the transaction and the key locks are released.
func (s *ScheduleService) writeLocked(ctx context.Context, keys []string, fn func(tx *sqlx.Tx) error) error {
	return s.nameConflicts(ctx, s.runLocked(ctx, keys, fn))
}

func (s *ScheduleService) runLocked(ctx context.Context, keys []string, fn func(tx *sqlx.Tx) error) (err error) {
	release, err := s.locks.Acquire(ctx, keys...)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire schedule lock")
	}
	defer release()

	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.repo.LockKeys(ctx, tx, keys); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock schedule keys")
		return err
	}
	if err = fn(tx); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			err = appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "schedule slot was taken concurrently")
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule transaction")
		return err
	}
	s.cache.InvalidateViews(ctx)
	return nil
}

// ensureNoConflict rejects the candidate on the first collision kind found,
// professor before room. exec is the write transaction.
func (s *ScheduleService) ensureNoConflict(ctx context.Context, exec sqlx.QueryerContext, candidate models.ScheduleEntry, excludeID string) error {
	defer s.observeQuery("conflict_check", time.Now())
	professorHits, err := s.detector.CheckProfessorConflicts(ctx, exec, candidate.ProfessorID, candidate.Weekday, candidate.Range(), candidate.AcademicPeriod, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check professor conflicts")
	}
	if len(professorHits) > 0 {
		return s.conflictError(models.ConflictProfessorOverlap, "professor already teaches at this time", professorHits)
	}
	roomHits, err := s.detector.CheckRoomConflicts(ctx, exec, candidate.Room(), candidate.Weekday, candidate.Range(), candidate.AcademicPeriod, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check room conflicts")
	}
	if len(roomHits) > 0 {
		return s.conflictError(models.ConflictRoomOverlap, "room is already booked at this time", roomHits)
	}
	return nil
}

// findConflicts collects both collision kinds for a bulk slot.
func (s *ScheduleService) findConflicts(ctx context.Context, exec sqlx.QueryerContext, candidate models.ScheduleEntry, excludeID string) ([]models.ScheduleConflict, error) {
	defer s.observeQuery("conflict_check", time.Now())
	professorHits, err := s.detector.CheckProfessorConflicts(ctx, exec, candidate.ProfessorID, candidate.Weekday, candidate.Range(), candidate.AcademicPeriod, excludeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check professor conflicts")
	}
	roomHits, err := s.detector.CheckRoomConflicts(ctx, exec, candidate.Room(), candidate.Weekday, candidate.Range(), candidate.AcademicPeriod, excludeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check room conflicts")
	}
	conflicts := toConflicts(models.ConflictProfessorOverlap, professorHits)
	return append(conflicts, toConflicts(models.ConflictRoomOverlap, roomHits)...), nil
}

func (s *ScheduleService) observeQuery(label string, started time.Time) {
	s.metrics.ObserveDBQuery(label, time.Since(started))
}

func (s *ScheduleService) conflictError(kind models.ConflictType, message string, hits []models.ScheduleEntry) error {
	for range hits {
		s.metrics.RecordConflict(string(kind), "write")
	}
	detail := &models.ScheduleConflictError{Type: kind, Message: message, Conflicts: toConflicts(kind, hits)}
	return appErrors.WithDetails(appErrors.Wrap(detail, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, message), detail)
}

func toConflicts(kind models.ConflictType, hits []models.ScheduleEntry) []models.ScheduleConflict {
	conflicts := make([]models.ScheduleConflict, 0, len(hits))
	for _, hit := range hits {
		conflicts = append(conflicts, models.NewScheduleConflict(kind, hit))
	}
	return conflicts
}

// nameConflicts resolves professor and room names in the conflict details
// carried by err. Lookup failures leave the names blank.
func (s *ScheduleService) nameConflicts(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	names := make(map[string]string)
	fill := func(conflicts []models.ScheduleConflict) {
		for i := range conflicts {
			s.nameConflict(ctx, names, &conflicts[i])
		}
	}
	var single *models.ScheduleConflictError
	var bulk *models.BulkScheduleError
	switch {
	case errors.As(err, &single):
		fill(single.Conflicts)
	case errors.As(err, &bulk):
		for i := range bulk.Failures {
			fill(bulk.Failures[i].Conflicts)
		}
	}
	return err
}

func (s *ScheduleService) nameConflict(ctx context.Context, names map[string]string, conflict *models.ScheduleConflict) {
	if name, ok := names["p:"+conflict.ProfessorID]; ok {
		conflict.ProfessorName = name
	} else if user, err := s.users.FindByID(ctx, conflict.ProfessorID); err == nil {
		names["p:"+conflict.ProfessorID] = user.FullName
		conflict.ProfessorName = user.FullName
	}
	if conflict.RoomID == "" {
		return
	}
	if name, ok := names["r:"+conflict.RoomID]; ok {
		conflict.RoomName = name
	} else if classroom, err := s.rooms.FindByID(ctx, conflict.RoomID); err == nil {
		names["r:"+conflict.RoomID] = classroom.Name
		conflict.RoomName = classroom.Name
	}
}

// referenceEntry carries the fields checkReferences needs, before any slot parsing.
func referenceEntry(subjectID, professorID string, roomID *string, period string) models.ScheduleEntry {
	return models.ScheduleEntry{
		SubjectID:      strings.TrimSpace(subjectID),
		ProfessorID:    strings.TrimSpace(professorID),
		RoomID:         normalizeRoom(roomID),
		AcademicPeriod: strings.TrimSpace(period),
		Active:         true,
	}
}

// withSlot parses the weekday and time range onto base and applies policy.
func (s *ScheduleService) withSlot(base models.ScheduleEntry, weekday, start, end string) (models.ScheduleEntry, error) {
	day, err := models.ParseWeekday(weekday)
	if err != nil {
		return models.ScheduleEntry{}, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	r, err := s.policy.ParseSlot(start, end)
	if err != nil {
		return models.ScheduleEntry{}, err
	}
	base.Weekday = day
	base.StartTime = r.Start
	base.EndTime = r.End
	return base, nil
}

// checkReferences verifies subject, professor and room in that order.
func (s *ScheduleService) checkReferences(ctx context.Context, entry models.ScheduleEntry) error {
	subject, err := s.subjects.FindByID(ctx, entry.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if !subject.Active {
		return appErrors.Clone(appErrors.ErrInvalidState, "subject is inactive")
	}

	professor, err := s.users.FindByID(ctx, entry.ProfessorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor")
	}
	if professor.Role != models.RoleProfessor {
		return appErrors.Clone(appErrors.ErrNotFound, "professor not found")
	}

	if room := entry.Room(); room != "" {
		classroom, err := s.rooms.FindByID(ctx, room)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
		}
		if !classroom.Available {
			return appErrors.Clone(appErrors.ErrInvalidState, "classroom is unavailable")
		}
	}

	return nil
}

// checkTeachingPeriod requires a TEACHING_PERIOD calendar event when the policy asks for one.
func (s *ScheduleService) checkTeachingPeriod(ctx context.Context, period string) error {
	if s.policy.RequireTeachingPeriod && s.calendar != nil {
		ok, err := s.calendar.HasTeachingPeriod(ctx, period)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check academic calendar")
		}
		if !ok {
			return appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("academic period %s has no teaching period", period))
		}
	}
	return nil
}

func normalizeRoom(roomID *string) *string {
	if roomID == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*roomID)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func pick(patch *string, current string) string {
	if patch == nil {
		return current
	}
	return *patch
}
