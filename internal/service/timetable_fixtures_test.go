package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/pkg/timerange"
)

// scheduleStoreStub keeps entries in memory and answers overlap queries the way the SQL does.
type scheduleStoreStub struct {
	mu      sync.Mutex
	entries []models.ScheduleEntry
	seq     int
	locked  [][]string
	// poolReads counts overlap reads made outside a transaction.
	poolReads int
}

func (s *scheduleStoreStub) seed(entries ...models.ScheduleEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if e.ID == "" {
			s.seq++
			e.ID = fmt.Sprintf("entry-%d", s.seq)
		}
		s.entries = append(s.entries, e)
	}
}

func (s *scheduleStoreStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *scheduleStoreStub) List(ctx context.Context, filter models.ScheduleEntryFilter) ([]models.ScheduleEntry, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ScheduleEntry
	for _, e := range s.entries {
		if filter.ProfessorID != "" && e.ProfessorID != filter.ProfessorID {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (s *scheduleStoreStub) FindByID(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			copied := e
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *scheduleStoreStub) LockKeys(ctx context.Context, exec sqlx.ExecerContext, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = append(s.locked, keys)
	return nil
}

func (s *scheduleStoreStub) Create(ctx context.Context, exec sqlx.ExtContext, entry *models.ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	entry.ID = fmt.Sprintf("entry-%d", s.seq)
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *scheduleStoreStub) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, entries []models.ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range entries {
		s.seq++
		entries[i].ID = fmt.Sprintf("entry-%d", s.seq)
		s.entries = append(s.entries, entries[i])
	}
	return nil
}

func (s *scheduleStoreStub) Update(ctx context.Context, exec sqlx.ExtContext, entry *models.ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == entry.ID {
			s.entries[i] = *entry
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *scheduleStoreStub) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *scheduleStoreStub) FindOverlapping(ctx context.Context, exec sqlx.QueryerContext, q models.OverlapQuery) ([]models.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if exec == nil {
		s.poolReads++
	}
	var out []models.ScheduleEntry
	for _, e := range s.entries {
		if !e.Active || e.Weekday != q.Weekday || e.AcademicPeriod != q.AcademicPeriod || e.ID == q.ExcludeID {
			continue
		}
		if q.ProfessorID != "" && e.ProfessorID != q.ProfessorID {
			continue
		}
		if q.RoomID != "" && e.Room() != q.RoomID {
			continue
		}
		if timerange.Overlaps(e.StartTime, e.EndTime, q.Start, q.End) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *scheduleStoreStub) ListActive(ctx context.Context, filter models.ViewFilter) ([]models.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ScheduleEntry
	for _, e := range s.entries {
		if !e.Active {
			continue
		}
		if filter.ProfessorID != "" && e.ProfessorID != filter.ProfessorID {
			continue
		}
		if filter.RoomID != "" && e.Room() != filter.RoomID {
			continue
		}
		if filter.AcademicPeriod != "" && e.AcademicPeriod != filter.AcademicPeriod {
			continue
		}
		if filter.Weekday != nil && e.Weekday != *filter.Weekday {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *scheduleStoreStub) CountActiveByRoom(ctx context.Context, roomID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.Active && e.Room() == roomID {
			n++
		}
	}
	return n, nil
}

type subjectStub map[string]*models.Subject

func (s subjectStub) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if subject, ok := s[id]; ok {
		return subject, nil
	}
	return nil, sql.ErrNoRows
}

func (s subjectStub) ListByIDs(ctx context.Context, ids []string) ([]models.Subject, error) {
	var out []models.Subject
	for _, id := range ids {
		if subject, ok := s[id]; ok {
			out = append(out, *subject)
		}
	}
	return out, nil
}

type userStub map[string]*models.User

func (s userStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := s[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (s userStub) ListByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	var out []models.User
	for _, id := range ids {
		if user, ok := s[id]; ok {
			out = append(out, *user)
		}
	}
	return out, nil
}

type roomStub map[string]*models.Classroom

func (s roomStub) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	if room, ok := s[id]; ok {
		copied := *room
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s roomStub) ListByIDs(ctx context.Context, ids []string) ([]models.Classroom, error) {
	var out []models.Classroom
	for _, id := range ids {
		if room, ok := s[id]; ok {
			out = append(out, *room)
		}
	}
	return out, nil
}

type enrollmentStub map[string]int

func (s enrollmentStub) CountBySubjectPeriod(ctx context.Context, subjectID, period string) (int, error) {
	return s[subjectID+"|"+period], nil
}

// conflictLedgerStub is an in-memory ledger.
type conflictLedgerStub struct {
	records []models.ConflictRecord
	seq     int
}

func (s *conflictLedgerStub) List(ctx context.Context, filter models.ConflictFilter) ([]models.ConflictRecord, int, error) {
	out := s.filter(filter)
	sort.SliceStable(out, func(i, j int) bool { return out[i].DetectedAt.After(out[j].DetectedAt) })
	return out, len(out), nil
}

func (s *conflictLedgerStub) ListUnresolved(ctx context.Context, filter models.ConflictFilter) ([]models.ConflictRecord, error) {
	unresolved := false
	filter.Resolved = &unresolved
	return s.filter(filter), nil
}

func (s *conflictLedgerStub) filter(filter models.ConflictFilter) []models.ConflictRecord {
	var out []models.ConflictRecord
	for _, r := range s.records {
		if filter.Resolved != nil && r.Resolved != *filter.Resolved {
			continue
		}
		if filter.Type != "" && r.ConflictType != filter.Type {
			continue
		}
		if filter.AcademicPeriod != "" && r.AcademicPeriod != filter.AcademicPeriod {
			continue
		}
		if filter.ProfessorID != "" && (r.ProfessorID == nil || *r.ProfessorID != filter.ProfessorID) {
			continue
		}
		if filter.RoomID != "" && (r.RoomID == nil || *r.RoomID != filter.RoomID) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (s *conflictLedgerStub) FindByID(ctx context.Context, id string) (*models.ConflictRecord, error) {
	for _, r := range s.records {
		if r.ID == id {
			copied := r
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *conflictLedgerStub) CreateBatch(ctx context.Context, records []models.ConflictRecord) error {
	for i := range records {
		s.seq++
		records[i].ID = fmt.Sprintf("conflict-%d", s.seq)
		s.records = append(s.records, records[i])
	}
	return nil
}

func (s *conflictLedgerStub) Resolve(ctx context.Context, id string, resolvedAt time.Time, note *string) (bool, error) {
	for i := range s.records {
		if s.records[i].ID == id && !s.records[i].Resolved {
			s.records[i].Resolved = true
			s.records[i].ResolvedAt = &resolvedAt
			s.records[i].ResolutionNote = note
			return true, nil
		}
	}
	return false, nil
}

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func strPtr(v string) *string { return &v }

func boolPtr(v bool) *bool { return &v }

func entryAt(id, professor, room string, day models.Weekday, start, end string) models.ScheduleEntry {
	e := models.ScheduleEntry{
		ID:             id,
		SubjectID:      "subj-1",
		ProfessorID:    professor,
		Weekday:        day,
		StartTime:      timerange.MustParse(start),
		EndTime:        timerange.MustParse(end),
		AcademicPeriod: "2024.1",
		Active:         true,
	}
	if room != "" {
		e.RoomID = strPtr(room)
	}
	return e
}

func timetableDirectory() (subjectStub, userStub, roomStub) {
	subjects := subjectStub{
		"subj-1": {ID: "subj-1", Code: "CS101", Name: "Algorithms", Active: true},
		"subj-2": {ID: "subj-2", Code: "CS102", Name: "Databases", Active: true},
		"subj-x": {ID: "subj-x", Code: "OLD", Name: "Retired", Active: false},
	}
	users := userStub{
		"prof-1":    {ID: "prof-1", FullName: "Ada Lovelace", Role: models.RoleProfessor, Active: true},
		"prof-2":    {ID: "prof-2", FullName: "Alan Turing", Role: models.RoleProfessor, Active: true},
		"student-1": {ID: "student-1", FullName: "Student", Role: models.RoleStudent, Active: true},
	}
	rooms := roomStub{
		"room-1": {ID: "room-1", Name: "A-101", Capacity: 30, RoomType: models.RoomTypeOrdinary, Available: true},
		"room-2": {ID: "room-2", Name: "Lab-2", Capacity: 10, RoomType: models.RoomTypeLab, Available: true},
		"room-x": {ID: "room-x", Name: "Closed", Capacity: 40, RoomType: models.RoomTypeOrdinary, Available: false},
	}
	return subjects, users, rooms
}
