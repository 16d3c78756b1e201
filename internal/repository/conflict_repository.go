package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

const conflictColumns = "id, conflict_type, description, primary_entry_id, secondary_entry_id, professor_id, room_id, academic_period, weekday, detected_at, resolved, resolved_at, resolution_note"

// ConflictRepository persists conflict records.
type ConflictRepository struct {
	db *sqlx.DB
}

// NewConflictRepository constructs the ledger store.
func NewConflictRepository(db *sqlx.DB) *ConflictRepository {
	return &ConflictRepository{db: db}
}

// List returns conflict records newest first.
func (r *ConflictRepository) List(ctx context.Context, filter models.ConflictFilter) ([]models.ConflictRecord, int, error) {
	where, args := conflictConditions(filter)
	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM schedule_conflicts WHERE %s ORDER BY detected_at DESC, id ASC LIMIT %d OFFSET %d", conflictColumns, where, size, offset)
	var records []models.ConflictRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list conflicts: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM schedule_conflicts WHERE %s", where), args...); err != nil {
		return nil, 0, fmt.Errorf("count conflicts: %w", err)
	}
	return records, total, nil
}

// ListUnresolved returns every unresolved record matching the filter, unpaginated.
func (r *ConflictRepository) ListUnresolved(ctx context.Context, filter models.ConflictFilter) ([]models.ConflictRecord, error) {
	unresolved := false
	filter.Resolved = &unresolved
	where, args := conflictConditions(filter)

	query := fmt.Sprintf("SELECT %s FROM schedule_conflicts WHERE %s ORDER BY detected_at DESC, id ASC", conflictColumns, where)
	var records []models.ConflictRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list unresolved conflicts: %w", err)
	}
	return records, nil
}

func conflictConditions(filter models.ConflictFilter) (string, []interface{}) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("conflict_type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.Resolved != nil {
		conditions = append(conditions, fmt.Sprintf("resolved = $%d", len(args)+1))
		args = append(args, *filter.Resolved)
	}
	if filter.ProfessorID != "" {
		conditions = append(conditions, fmt.Sprintf("professor_id = $%d", len(args)+1))
		args = append(args, filter.ProfessorID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.AcademicPeriod != "" {
		conditions = append(conditions, fmt.Sprintf("academic_period = $%d", len(args)+1))
		args = append(args, filter.AcademicPeriod)
	}
	return strings.Join(conditions, " AND "), args
}

// FindByID loads a record by id.
func (r *ConflictRepository) FindByID(ctx context.Context, id string) (*models.ConflictRecord, error) {
	var record models.ConflictRecord
	if err := r.db.GetContext(ctx, &record, fmt.Sprintf("SELECT %s FROM schedule_conflicts WHERE id = $1", conflictColumns), id); err != nil {
		return nil, err
	}
	return &record, nil
}

// CreateBatch inserts records in one transaction.
func (r *ConflictRepository) CreateBatch(ctx context.Context, records []models.ConflictRecord) (err error) {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin conflict batch: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const query = `INSERT INTO schedule_conflicts (id, conflict_type, description, primary_entry_id, secondary_entry_id, professor_id, room_id, academic_period, weekday, detected_at, resolved, resolved_at, resolution_note) VALUES (:id, :conflict_type, :description, :primary_entry_id, :secondary_entry_id, :professor_id, :room_id, :academic_period, :weekday, :detected_at, :resolved, :resolved_at, :resolution_note)`
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
		}
		if records[i].DetectedAt.IsZero() {
			records[i].DetectedAt = now
		}
		if _, err = tx.NamedExecContext(ctx, query, &records[i]); err != nil {
			return fmt.Errorf("insert conflict: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit conflict batch: %w", err)
	}
	return nil
}

// Resolve marks an unresolved record as resolved. It reports false when the
// record was already resolved (or absent) so the caller can distinguish.
func (r *ConflictRepository) Resolve(ctx context.Context, id string, resolvedAt time.Time, note *string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE schedule_conflicts SET resolved = TRUE, resolved_at = $2, resolution_note = $3 WHERE id = $1 AND resolved = FALSE`, id, resolvedAt, note)
	if err != nil {
		return false, fmt.Errorf("resolve conflict: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve conflict rows: %w", err)
	}
	return affected > 0, nil
}
