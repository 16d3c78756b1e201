package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/campus-timetable-api/pkg/timerange"
)

// ScheduleEntry is one weekly recurring class meeting.
type ScheduleEntry struct {
	ID             string           `db:"id" json:"id"`
	SubjectID      string           `db:"subject_id" json:"subject_id"`
	ProfessorID    string           `db:"professor_id" json:"professor_id"`
	RoomID         *string          `db:"room_id" json:"room_id,omitempty"`
	Weekday        Weekday          `db:"weekday" json:"weekday"`
	StartTime      timerange.Minute `db:"start_minute" json:"start_time"`
	EndTime        timerange.Minute `db:"end_minute" json:"end_time"`
	AcademicPeriod string           `db:"academic_period" json:"academic_period"`
	Active         bool             `db:"active" json:"active"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// Range returns the entry's time range.
func (e ScheduleEntry) Range() timerange.Range {
	return timerange.Range{Start: e.StartTime, End: e.EndTime}
}

// Room returns the room id or "" when the entry is unassigned.
func (e ScheduleEntry) Room() string {
	if e.RoomID == nil {
		return ""
	}
	return *e.RoomID
}

// ProfessorLockKey identifies the (professor, weekday, period) serialisation key.
func ProfessorLockKey(professorID string, day Weekday, period string) string {
	return fmt.Sprintf("professor:%s:%s:%s", professorID, day, period)
}

// RoomLockKey identifies the (room, weekday, period) serialisation key.
func RoomLockKey(roomID string, day Weekday, period string) string {
	if roomID == "" {
		return ""
	}
	return fmt.Sprintf("room:%s:%s:%s", roomID, day, period)
}

// LockKeys returns every serialisation key the entry participates in.
func (e ScheduleEntry) LockKeys() []string {
	keys := []string{ProfessorLockKey(e.ProfessorID, e.Weekday, e.AcademicPeriod)}
	if room := RoomLockKey(e.Room(), e.Weekday, e.AcademicPeriod); room != "" {
		keys = append(keys, room)
	}
	return keys
}

// ScheduleEntryFilter describes list queries over entries.
type ScheduleEntryFilter struct {
	SubjectID      string
	ProfessorID    string
	RoomID         string
	Weekday        *Weekday
	AcademicPeriod string
	Active         *bool
	Search         string
	Page           int
	PageSize       int
}

// OverlapQuery selects active entries colliding with a candidate range.
type OverlapQuery struct {
	ProfessorID    string
	RoomID         string
	Weekday        Weekday
	AcademicPeriod string
	Start          timerange.Minute
	End            timerange.Minute
	ExcludeID      string
}

// ViewFilter narrows the entries feeding read-side views.
type ViewFilter struct {
	ProfessorID    string
	RoomID         string
	AcademicPeriod string
	Weekday        *Weekday
}

// CacheKey renders a stable key fragment for the filter.
func (f ViewFilter) CacheKey() string {
	day := "*"
	if f.Weekday != nil {
		day = f.Weekday.String()
	}
	return strings.Join([]string{orStar(f.ProfessorID), orStar(f.RoomID), orStar(f.AcademicPeriod), day}, ":")
}

func orStar(v string) string {
	if v == "" {
		return "*"
	}
	return v
}

// ScheduleConflict describes an existing entry that collides with a candidate.
type ScheduleConflict struct {
	Type           ConflictType `json:"type"`
	EntryID        string       `json:"entry_id,omitempty"`
	SubjectID      string       `json:"subject_id"`
	ProfessorID    string       `json:"professor_id"`
	ProfessorName  string       `json:"professor_name,omitempty"`
	RoomID         string       `json:"room_id,omitempty"`
	RoomName       string       `json:"room_name,omitempty"`
	Weekday        Weekday      `json:"weekday"`
	StartTime      string       `json:"start_time"`
	EndTime        string       `json:"end_time"`
	AcademicPeriod string       `json:"academic_period"`
	// BatchIndex points at a slot in the same bulk request when the collision is intra-batch.
	BatchIndex *int `json:"batch_index,omitempty"`
}

// NewScheduleConflict builds conflict detail from a colliding entry.
func NewScheduleConflict(kind ConflictType, entry ScheduleEntry) ScheduleConflict {
	return ScheduleConflict{
		Type:           kind,
		EntryID:        entry.ID,
		SubjectID:      entry.SubjectID,
		ProfessorID:    entry.ProfessorID,
		RoomID:         entry.Room(),
		Weekday:        entry.Weekday,
		StartTime:      timerange.Format(entry.StartTime),
		EndTime:        timerange.Format(entry.EndTime),
		AcademicPeriod: entry.AcademicPeriod,
	}
}

// ScheduleConflictError is returned when a candidate collides with existing entries.
type ScheduleConflictError struct {
	Type      ConflictType       `json:"type"`
	Message   string             `json:"message"`
	Conflicts []ScheduleConflict `json:"conflicts"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// SlotFailure reports why one slot of a bulk request was rejected.
type SlotFailure struct {
	Index     int                `json:"index"`
	Weekday   string             `json:"weekday"`
	StartTime string             `json:"start_time"`
	EndTime   string             `json:"end_time"`
	Code      string             `json:"code"`
	Reason    string             `json:"reason"`
	Conflicts []ScheduleConflict `json:"conflicts,omitempty"`
}

// BulkScheduleError aggregates every failing slot of a bulk request.
type BulkScheduleError struct {
	Failures []SlotFailure `json:"failures"`
}

// Error implements the error interface.
func (e *BulkScheduleError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%d schedule slot(s) rejected", len(e.Failures))
}
