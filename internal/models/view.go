package models

import "time"

// GridSlot is one occupied range in a weekly grid column.
type GridSlot struct {
	StartTime string        `json:"start_time"`
	EndTime   string        `json:"end_time"`
	Available bool          `json:"available"`
	Entry     ScheduleEntry `json:"entry"`
}

// GridDay is one weekday column.
type GridDay struct {
	Weekday Weekday    `json:"weekday"`
	Slots   []GridSlot `json:"slots"`
}

// WeeklyGrid holds seven ordered day columns.
type WeeklyGrid struct {
	ProfessorID    string    `json:"professor_id,omitempty"`
	RoomID         string    `json:"room_id,omitempty"`
	AcademicPeriod string    `json:"academic_period,omitempty"`
	Days           []GridDay `json:"days"`
	TotalEntries   int       `json:"total_entries"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// AgendaSubject aggregates a professor's weekly meetings for one subject.
type AgendaSubject struct {
	SubjectID   string          `json:"subject_id"`
	SubjectName string          `json:"subject_name,omitempty"`
	WeeklyHours float64         `json:"weekly_hours"`
	Entries     []ScheduleEntry `json:"entries"`
}

// ProfessorAgenda is the full weekly load of a professor for a period.
type ProfessorAgenda struct {
	ProfessorID    string           `json:"professor_id"`
	ProfessorName  string           `json:"professor_name,omitempty"`
	AcademicPeriod string           `json:"academic_period"`
	Subjects       []AgendaSubject  `json:"subjects"`
	TotalHours     float64          `json:"total_hours"`
	Conflicts      []ConflictRecord `json:"conflicts"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

// RoomOccupancy reports how much of the weekly operating window a room is booked.
type RoomOccupancy struct {
	RoomID         string             `json:"room_id"`
	RoomName       string             `json:"room_name"`
	AcademicPeriod string             `json:"academic_period"`
	OccupiedHours  float64            `json:"occupied_hours"`
	OperatingHours float64            `json:"operating_hours"`
	OccupancyRatio float64            `json:"occupancy_ratio"`
	HoursByWeekday map[string]float64 `json:"hours_by_weekday"`
	ActiveEntries  int                `json:"active_entries"`
	Conflicts      []ConflictRecord   `json:"conflicts"`
	GeneratedAt    time.Time          `json:"generated_at"`
}

// AvailabilitySlot is a contiguous range on the availability timeline.
type AvailabilitySlot struct {
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Available bool    `json:"available"`
	Reason    string  `json:"reason,omitempty"`
	EntryID   *string `json:"entry_id,omitempty"`
}

// RoomAvailability is the timeline of a room for one calendar date.
type RoomAvailability struct {
	RoomID         string             `json:"room_id"`
	RoomName       string             `json:"room_name"`
	Date           string             `json:"date"`
	Weekday        Weekday            `json:"weekday"`
	AcademicPeriod string             `json:"academic_period,omitempty"`
	Entries        []ScheduleEntry    `json:"entries"`
	Timeline       []AvailabilitySlot `json:"timeline"`
	FreeMinutes    int                `json:"free_minutes"`
}
