package models

import (
	"strings"
	"time"
)

// ConflictType classifies a detected collision.
type ConflictType string

const (
	ConflictProfessorOverlap ConflictType = "PROFESSOR_OVERLAP"
	ConflictRoomOverlap      ConflictType = "ROOM_OVERLAP"
	ConflictCapacityExceeded ConflictType = "CAPACITY_EXCEEDED"
	ConflictRoomUnavailable  ConflictType = "ROOM_UNAVAILABLE"
)

// Valid reports whether the conflict type is known.
func (t ConflictType) Valid() bool {
	switch t {
	case ConflictProfessorOverlap, ConflictRoomOverlap, ConflictCapacityExceeded, ConflictRoomUnavailable:
		return true
	default:
		return false
	}
}

// NormalizeConflictType upper-cases raw input.
func NormalizeConflictType(raw string) ConflictType {
	return ConflictType(strings.ToUpper(strings.TrimSpace(raw)))
}

// ConflictRecord is durable evidence of a detected collision. It outlives the entries it references.
type ConflictRecord struct {
	ID               string       `db:"id" json:"id"`
	ConflictType     ConflictType `db:"conflict_type" json:"conflict_type"`
	Description      string       `db:"description" json:"description"`
	PrimaryEntryID   string       `db:"primary_entry_id" json:"primary_entry_id"`
	SecondaryEntryID *string      `db:"secondary_entry_id" json:"secondary_entry_id,omitempty"`
	ProfessorID      *string      `db:"professor_id" json:"professor_id,omitempty"`
	RoomID           *string      `db:"room_id" json:"room_id,omitempty"`
	AcademicPeriod   string       `db:"academic_period" json:"academic_period"`
	Weekday          *Weekday     `db:"weekday" json:"weekday,omitempty"`
	DetectedAt       time.Time    `db:"detected_at" json:"detected_at"`
	Resolved         bool         `db:"resolved" json:"resolved"`
	ResolvedAt       *time.Time   `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolutionNote   *string      `db:"resolution_note" json:"resolution_note,omitempty"`
}

// References reports whether the record points at the entry id.
func (r ConflictRecord) References(entryID string) bool {
	if r.PrimaryEntryID == entryID {
		return true
	}
	return r.SecondaryEntryID != nil && *r.SecondaryEntryID == entryID
}

// PairKey identifies a record by type and unordered entry pair.
func (r ConflictRecord) PairKey() string {
	secondary := ""
	if r.SecondaryEntryID != nil {
		secondary = *r.SecondaryEntryID
	}
	return ConflictPairKey(r.ConflictType, r.PrimaryEntryID, secondary)
}

// ConflictPairKey orders the pair so (a,b) and (b,a) collapse to one key.
func ConflictPairKey(kind ConflictType, a, b string) string {
	if b != "" && b < a {
		a, b = b, a
	}
	return string(kind) + "|" + a + "|" + b
}

// ConflictFilter narrows ledger listings.
type ConflictFilter struct {
	Type           ConflictType
	Resolved       *bool
	ProfessorID    string
	RoomID         string
	AcademicPeriod string
	Page           int
	PageSize       int
}
