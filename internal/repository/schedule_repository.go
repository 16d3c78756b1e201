package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

const scheduleColumns = "e.id, e.subject_id, e.professor_id, e.room_id, e.weekday, e.start_minute, e.end_minute, e.academic_period, e.active, e.created_at, e.updated_at"

const insertScheduleEntry = `INSERT INTO schedule_entries (id, subject_id, professor_id, room_id, weekday, start_minute, end_minute, academic_period, active, created_at, updated_at) VALUES (:id, :subject_id, :professor_id, :room_id, :weekday, :start_minute, :end_minute, :academic_period, :active, :created_at, :updated_at)`

// ErrSlotTaken is returned when the overlap exclusion constraints reject a write.
var ErrSlotTaken = errors.New("schedule slot already taken")

// ScheduleRepository is the schedule entry store.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// List returns entries with optional filtering and pagination, ordered by weekday then start time.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleEntryFilter) ([]models.ScheduleEntry, int, error) {
	base := "FROM schedule_entries e"
	var conditions []string
	var args []interface{}

	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("e.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.ProfessorID != "" {
		conditions = append(conditions, fmt.Sprintf("e.professor_id = $%d", len(args)+1))
		args = append(args, filter.ProfessorID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("e.room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.Weekday != nil {
		conditions = append(conditions, fmt.Sprintf("e.weekday = $%d", len(args)+1))
		args = append(args, int(*filter.Weekday))
	}
	if filter.AcademicPeriod != "" {
		conditions = append(conditions, fmt.Sprintf("e.academic_period = $%d", len(args)+1))
		args = append(args, filter.AcademicPeriod)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("e.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		base += " LEFT JOIN subjects s ON s.id = e.subject_id LEFT JOIN users u ON u.id = e.professor_id LEFT JOIN classrooms c ON c.id = e.room_id"
		n := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(s.name ILIKE $%d OR s.code ILIKE $%d OR u.full_name ILIKE $%d OR c.name ILIKE $%d OR e.academic_period ILIKE $%d)", n, n, n, n, n))
		args = append(args, "%"+filter.Search+"%")
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s%s ORDER BY e.weekday ASC, e.start_minute ASC, e.id ASC LIMIT %d OFFSET %d", scheduleColumns, base, where, size, offset)
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedule entries: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s%s", base, where), args...); err != nil {
		return nil, 0, fmt.Errorf("count schedule entries: %w", err)
	}
	return entries, total, nil
}

// FindByID loads an entry by id.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	var entry models.ScheduleEntry
	if err := r.db.GetContext(ctx, &entry, fmt.Sprintf("SELECT %s FROM schedule_entries e WHERE e.id = $1", scheduleColumns), id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindOverlapping returns active entries on the same weekday/period whose range
// intersects [Start, End) and that share the professor or the room. Pass the write
// transaction as exec so the read sees its advisory locks; nil reads from the pool.
func (r *ScheduleRepository) FindOverlapping(ctx context.Context, exec sqlx.QueryerContext, q models.OverlapQuery) ([]models.ScheduleEntry, error) {
	if q.ProfessorID == "" && q.RoomID == "" {
		return nil, nil
	}
	conditions := []string{"e.active = TRUE", "e.weekday = $1", "e.academic_period = $2", "e.start_minute < $3", "e.end_minute > $4"}
	args := []interface{}{int(q.Weekday), q.AcademicPeriod, int(q.End), int(q.Start)}

	var owners []string
	if q.ProfessorID != "" {
		owners = append(owners, fmt.Sprintf("e.professor_id = $%d", len(args)+1))
		args = append(args, q.ProfessorID)
	}
	if q.RoomID != "" {
		owners = append(owners, fmt.Sprintf("e.room_id = $%d", len(args)+1))
		args = append(args, q.RoomID)
	}
	conditions = append(conditions, "("+strings.Join(owners, " OR ")+")")
	if q.ExcludeID != "" {
		conditions = append(conditions, fmt.Sprintf("e.id <> $%d", len(args)+1))
		args = append(args, q.ExcludeID)
	}

	query := fmt.Sprintf("SELECT %s FROM schedule_entries e WHERE %s ORDER BY e.start_minute ASC, e.id ASC", scheduleColumns, strings.Join(conditions, " AND "))
	if exec == nil {
		exec = r.db
	}
	var entries []models.ScheduleEntry
	if err := sqlx.SelectContext(ctx, exec, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("find overlapping schedule entries: %w", err)
	}
	return entries, nil
}

// ListActive returns every active entry matching the view filter, unpaginated.
func (r *ScheduleRepository) ListActive(ctx context.Context, filter models.ViewFilter) ([]models.ScheduleEntry, error) {
	conditions := []string{"e.active = TRUE"}
	var args []interface{}
	if filter.ProfessorID != "" {
		conditions = append(conditions, fmt.Sprintf("e.professor_id = $%d", len(args)+1))
		args = append(args, filter.ProfessorID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("e.room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.AcademicPeriod != "" {
		conditions = append(conditions, fmt.Sprintf("e.academic_period = $%d", len(args)+1))
		args = append(args, filter.AcademicPeriod)
	}
	if filter.Weekday != nil {
		conditions = append(conditions, fmt.Sprintf("e.weekday = $%d", len(args)+1))
		args = append(args, int(*filter.Weekday))
	}

	query := fmt.Sprintf("SELECT %s FROM schedule_entries e WHERE %s ORDER BY e.weekday ASC, e.start_minute ASC, e.id ASC", scheduleColumns, strings.Join(conditions, " AND "))
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list active schedule entries: %w", err)
	}
	return entries, nil
}

// CountActiveByRoom counts active entries referencing the room.
func (r *ScheduleRepository) CountActiveByRoom(ctx context.Context, roomID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM schedule_entries WHERE room_id = $1 AND active = TRUE`, roomID); err != nil {
		return 0, fmt.Errorf("count room schedule entries: %w", err)
	}
	return total, nil
}

// LockKeys takes transaction-scoped advisory locks for every key in sorted order.
// Concurrent writers touching the same professor or room slot block until commit.
func (r *ScheduleRepository) LockKeys(ctx context.Context, exec sqlx.ExecerContext, keys []string) error {
	ordered := append([]string(nil), keys...)
	sort.Strings(ordered)
	for i, key := range ordered {
		if key == "" || (i > 0 && ordered[i-1] == key) {
			continue
		}
		if _, err := exec.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
			return fmt.Errorf("advisory lock %s: %w", key, err)
		}
	}
	return nil
}

// Create stores a new entry using the provided executor.
func (r *ScheduleRepository) Create(ctx context.Context, exec sqlx.ExtContext, entry *models.ScheduleEntry) error {
	prepareInsert(entry, time.Now().UTC())
	if _, err := sqlx.NamedExecContext(ctx, exec, insertScheduleEntry, entry); err != nil {
		return mapExclusionViolation(err, "create schedule entry")
	}
	return nil
}

// BulkCreateWithTx inserts entries using an existing transaction.
func (r *ScheduleRepository) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, entries []models.ScheduleEntry) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	now := time.Now().UTC()
	for i := range entries {
		prepareInsert(&entries[i], now)
		if _, err := sqlx.NamedExecContext(ctx, tx, insertScheduleEntry, &entries[i]); err != nil {
			return mapExclusionViolation(err, "bulk insert schedule entry")
		}
	}
	return nil
}

// Update overwrites an entry using the provided executor.
func (r *ScheduleRepository) Update(ctx context.Context, exec sqlx.ExtContext, entry *models.ScheduleEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schedule_entries SET subject_id = :subject_id, professor_id = :professor_id, room_id = :room_id, weekday = :weekday, start_minute = :start_minute, end_minute = :end_minute, academic_period = :academic_period, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, entry); err != nil {
		return mapExclusionViolation(err, "update schedule entry")
	}
	return nil
}

// Delete removes an entry by id.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM schedule_entries WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule entry: %w", err)
	}
	return nil
}

func mapExclusionViolation(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23P01" {
		return fmt.Errorf("%s: %w", op, ErrSlotTaken)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func prepareInsert(entry *models.ScheduleEntry, now time.Time) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
}
