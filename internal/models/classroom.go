package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// RoomType classifies a bookable space.
type RoomType string

const (
	RoomTypeOrdinary   RoomType = "ORDINARY"
	RoomTypeLab        RoomType = "LAB"
	RoomTypeAuditorium RoomType = "AUDITORIUM"
	RoomTypeLibrary    RoomType = "LIBRARY"
	RoomTypeConference RoomType = "CONFERENCE"
	RoomTypeGym        RoomType = "GYM"
)

// Valid reports whether the room type is known.
func (t RoomType) Valid() bool {
	switch t {
	case RoomTypeOrdinary, RoomTypeLab, RoomTypeAuditorium, RoomTypeLibrary, RoomTypeConference, RoomTypeGym:
		return true
	default:
		return false
	}
}

// NormalizeRoomType upper-cases raw input.
func NormalizeRoomType(raw string) RoomType {
	return RoomType(strings.ToUpper(strings.TrimSpace(raw)))
}

// Classroom is a physical or virtual bookable space.
type Classroom struct {
	ID        string         `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Capacity  int            `db:"capacity" json:"capacity"`
	RoomType  RoomType       `db:"room_type" json:"room_type"`
	Equipment pq.StringArray `db:"equipment" json:"equipment"`
	Available bool           `db:"available" json:"available"`
	Location  *string        `db:"location" json:"location,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// ClassroomFilter describes classroom list queries.
type ClassroomFilter struct {
	RoomType    RoomType
	MinCapacity int
	Available   *bool
	Search      string
	Page        int
	PageSize    int
}
