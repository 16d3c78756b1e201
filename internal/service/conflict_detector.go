package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/pkg/timerange"
)

type overlapFinder interface {
	FindOverlapping(ctx context.Context, exec sqlx.QueryerContext, q models.OverlapQuery) ([]models.ScheduleEntry, error)
	ListActive(ctx context.Context, filter models.ViewFilter) ([]models.ScheduleEntry, error)
}

type detectorRoomReader interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.Classroom, error)
}

type enrollmentCounter interface {
	CountBySubjectPeriod(ctx context.Context, subjectID, period string) (int, error)
}

// CandidateClash pairs two not-yet-persisted slots of a batch.
type CandidateClash struct {
	Type  models.ConflictType
	First int
	Other int
}

// ConflictDetector finds professor and room collisions in the schedule store.
type ConflictDetector struct {
	entries     overlapFinder
	rooms       detectorRoomReader
	enrollments enrollmentCounter
	logger      *zap.Logger
	now         func() time.Time
}

// NewConflictDetector wires the detector. rooms and enrollments are optional;
// without them the sweep skips ROOM_UNAVAILABLE and CAPACITY_EXCEEDED checks.
func NewConflictDetector(entries overlapFinder, rooms detectorRoomReader, enrollments enrollmentCounter, logger *zap.Logger) *ConflictDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictDetector{entries: entries, rooms: rooms, enrollments: enrollments, logger: logger, now: time.Now}
}

// CheckProfessorConflicts returns active entries of the professor overlapping the range.
// exec is the caller's write transaction; nil reads from the pool.
func (d *ConflictDetector) CheckProfessorConflicts(ctx context.Context, exec sqlx.QueryerContext, professorID string, day models.Weekday, r timerange.Range, period, excludeID string) ([]models.ScheduleEntry, error) {
	if professorID == "" {
		return nil, nil
	}
	found, err := d.entries.FindOverlapping(ctx, exec, models.OverlapQuery{
		ProfessorID:    professorID,
		Weekday:        day,
		AcademicPeriod: period,
		Start:          r.Start,
		End:            r.End,
		ExcludeID:      excludeID,
	})
	if err != nil {
		return nil, err
	}
	return keepColliding(found, r, func(e models.ScheduleEntry) bool { return e.ProfessorID == professorID }), nil
}

// CheckRoomConflicts returns active entries in the room overlapping the range.
// An unassigned room never conflicts.
func (d *ConflictDetector) CheckRoomConflicts(ctx context.Context, exec sqlx.QueryerContext, roomID string, day models.Weekday, r timerange.Range, period, excludeID string) ([]models.ScheduleEntry, error) {
	if roomID == "" {
		return nil, nil
	}
	found, err := d.entries.FindOverlapping(ctx, exec, models.OverlapQuery{
		RoomID:         roomID,
		Weekday:        day,
		AcademicPeriod: period,
		Start:          r.Start,
		End:            r.End,
		ExcludeID:      excludeID,
	})
	if err != nil {
		return nil, err
	}
	return keepColliding(found, r, func(e models.ScheduleEntry) bool { return e.Room() == roomID }), nil
}

// keepColliding re-applies the overlap rule so store quirks never widen a conflict.
func keepColliding(entries []models.ScheduleEntry, r timerange.Range, owner func(models.ScheduleEntry) bool) []models.ScheduleEntry {
	var out []models.ScheduleEntry
	for _, e := range entries {
		if e.Active && owner(e) && r.Overlaps(e.Range()) {
			out = append(out, e)
		}
	}
	return out
}

// CheckCandidates compares batch slots pairwise. A pair sharing both professor
// and room yields two clashes.
func (d *ConflictDetector) CheckCandidates(batch []models.ScheduleEntry) []CandidateClash {
	var clashes []CandidateClash
	for i := 0; i < len(batch); i++ {
		for j := i + 1; j < len(batch); j++ {
			for _, kind := range pairConflictTypes(batch[i], batch[j]) {
				clashes = append(clashes, CandidateClash{Type: kind, First: i, Other: j})
			}
		}
	}
	return clashes
}

func pairConflictTypes(a, b models.ScheduleEntry) []models.ConflictType {
	if a.Weekday != b.Weekday || a.AcademicPeriod != b.AcademicPeriod || !a.Active || !b.Active {
		return nil
	}
	if !timerange.Overlaps(a.StartTime, a.EndTime, b.StartTime, b.EndTime) {
		return nil
	}
	var kinds []models.ConflictType
	if a.ProfessorID == b.ProfessorID {
		kinds = append(kinds, models.ConflictProfessorOverlap)
	}
	if a.Room() != "" && a.Room() == b.Room() {
		kinds = append(kinds, models.ConflictRoomOverlap)
	}
	return kinds
}

// SweepPeriod scans every active entry of the period and reports all collisions
// as unsaved ledger records.
func (d *ConflictDetector) SweepPeriod(ctx context.Context, period string) ([]models.ConflictRecord, error) {
	entries, err := d.entries.ListActive(ctx, models.ViewFilter{AcademicPeriod: period})
	if err != nil {
		return nil, fmt.Errorf("load active entries: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Weekday != entries[j].Weekday {
			return entries[i].Weekday < entries[j].Weekday
		}
		if entries[i].StartTime != entries[j].StartTime {
			return entries[i].StartTime < entries[j].StartTime
		}
		return entries[i].ID < entries[j].ID
	})

	detectedAt := d.now().UTC()
	var records []models.ConflictRecord
	for i := range entries {
		a := entries[i]
		for j := i + 1; j < len(entries); j++ {
			b := entries[j]
			// sorted by weekday then start: nothing further can overlap a
			if b.Weekday != a.Weekday || b.StartTime >= a.EndTime {
				break
			}
			for _, kind := range pairConflictTypes(a, b) {
				records = append(records, newConflictRecord(kind, a, &b, detectedAt))
			}
		}
	}

	roomRecords, err := d.sweepRooms(ctx, entries, detectedAt)
	if err != nil {
		return nil, err
	}
	records = append(records, roomRecords...)

	d.logger.Debug("period sweep complete", zap.String("period", period), zap.Int("entries", len(entries)), zap.Int("conflicts", len(records)))
	return records, nil
}

func (d *ConflictDetector) sweepRooms(ctx context.Context, entries []models.ScheduleEntry, detectedAt time.Time) ([]models.ConflictRecord, error) {
	if d.rooms == nil {
		return nil, nil
	}
	seen := make(map[string]struct{})
	var ids []string
	for _, e := range entries {
		if room := e.Room(); room != "" {
			if _, ok := seen[room]; !ok {
				seen[room] = struct{}{}
				ids = append(ids, room)
			}
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	rooms, err := d.rooms.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}
	byID := make(map[string]models.Classroom, len(rooms))
	for _, room := range rooms {
		byID[room.ID] = room
	}

	enrolled := make(map[string]int)
	var records []models.ConflictRecord
	for _, e := range entries {
		room, ok := byID[e.Room()]
		if !ok {
			continue
		}
		if !room.Available {
			records = append(records, newConflictRecord(models.ConflictRoomUnavailable, e, nil, detectedAt))
		}
		if d.enrollments == nil {
			continue
		}
		key := e.SubjectID + "|" + e.AcademicPeriod
		count, cached := enrolled[key]
		if !cached {
			count, err = d.enrollments.CountBySubjectPeriod(ctx, e.SubjectID, e.AcademicPeriod)
			if err != nil {
				return nil, fmt.Errorf("count enrollments: %w", err)
			}
			enrolled[key] = count
		}
		if count > room.Capacity {
			record := newConflictRecord(models.ConflictCapacityExceeded, e, nil, detectedAt)
			record.Description = fmt.Sprintf("%s (%d enrolled, capacity %d)", record.Description, count, room.Capacity)
			records = append(records, record)
		}
	}
	return records, nil
}

func newConflictRecord(kind models.ConflictType, primary models.ScheduleEntry, secondary *models.ScheduleEntry, detectedAt time.Time) models.ConflictRecord {
	day := primary.Weekday
	record := models.ConflictRecord{
		ConflictType:   kind,
		Description:    describeConflict(kind, primary, secondary),
		PrimaryEntryID: primary.ID,
		AcademicPeriod: primary.AcademicPeriod,
		Weekday:        &day,
		DetectedAt:     detectedAt,
	}
	if secondary != nil {
		id := secondary.ID
		record.SecondaryEntryID = &id
	}
	professor := primary.ProfessorID
	record.ProfessorID = &professor
	if room := primary.Room(); room != "" {
		record.RoomID = &room
	}
	return record
}

func describeConflict(kind models.ConflictType, a models.ScheduleEntry, b *models.ScheduleEntry) string {
	switch kind {
	case models.ConflictProfessorOverlap:
		return fmt.Sprintf("professor %s double-booked on %s: %s overlaps %s", a.ProfessorID, a.Weekday, a.Range(), b.Range())
	case models.ConflictRoomOverlap:
		return fmt.Sprintf("room %s double-booked on %s: %s overlaps %s", a.Room(), a.Weekday, a.Range(), b.Range())
	case models.ConflictRoomUnavailable:
		return fmt.Sprintf("room %s is unavailable but hosts %s %s", a.Room(), a.Weekday, a.Range())
	case models.ConflictCapacityExceeded:
		return fmt.Sprintf("subject %s exceeds capacity of room %s on %s %s", a.SubjectID, a.Room(), a.Weekday, a.Range())
	default:
		return string(kind)
	}
}
