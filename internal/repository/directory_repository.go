package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

// The tables read here belong to the course catalogue and the identity
// service. This engine never writes them.

// SubjectRepository reads subjects owned by the course catalogue.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new repository instance.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

const subjectColumns = "id, code, name, active"

// FindByID returns a subject by id. Missing rows surface as sql.ErrNoRows.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	var subject models.Subject
	query := fmt.Sprintf("SELECT %s FROM subjects WHERE id = $1", subjectColumns)
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("find subject: %w", err)
	}
	return &subject, nil
}

// ListByIDs loads several subjects in one round trip. Unknown ids are skipped.
func (r *SubjectRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Subject, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var subjects []models.Subject
	query := fmt.Sprintf("SELECT %s FROM subjects WHERE id = ANY($1) ORDER BY name ASC", subjectColumns)
	if err := r.db.SelectContext(ctx, &subjects, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list subjects by ids: %w", err)
	}
	return subjects, nil
}

// UserRepository reads users owned by the identity service.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = "id, full_name, role, active"

// FindByID fetches a user by identifier. Missing rows surface as sql.ErrNoRows.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// ListByIDs loads several users in one round trip. Unknown ids are skipped.
func (r *UserRepository) ListByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = ANY($1) ORDER BY full_name ASC", userColumns)
	if err := r.db.SelectContext(ctx, &users, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list users by ids: %w", err)
	}
	return users, nil
}

// EnrollmentRepository reads course enrollment counts.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// CountBySubjectPeriod counts active enrollments of a subject in a period.
// Dropped and completed enrollments do not occupy a seat.
func (r *EnrollmentRepository) CountBySubjectPeriod(ctx context.Context, subjectID, period string) (int, error) {
	var total int
	const query = `SELECT COUNT(*) FROM enrollments WHERE subject_id = $1 AND academic_period = $2 AND status = 'ACTIVE'`
	if err := r.db.GetContext(ctx, &total, query, subjectID, period); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return total, nil
}
