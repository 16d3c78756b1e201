package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/export"
	"github.com/noah-isme/campus-timetable-api/pkg/timerange"
)

type activeEntryReader interface {
	ListActive(ctx context.Context, filter models.ViewFilter) ([]models.ScheduleEntry, error)
}

type unresolvedConflictReader interface {
	ListUnresolved(ctx context.Context, filter models.ConflictFilter) ([]models.ConflictRecord, error)
}

type closureReader interface {
	ClosureOn(ctx context.Context, date time.Time) (*models.AcademicCalendarEvent, error)
}

type subjectCatalog interface {
	subjectReader
	ListByIDs(ctx context.Context, ids []string) ([]models.Subject, error)
}

type userDirectory interface {
	userReader
	ListByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

type roomCatalog interface {
	classroomReader
	ListByIDs(ctx context.Context, ids []string) ([]models.Classroom, error)
}

// ExportFile is a rendered grid ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ScheduleViewService builds read-side timetable views.
type ScheduleViewService struct {
	entries   activeEntryReader
	rooms     roomCatalog
	subjects  subjectCatalog
	users     userDirectory
	conflicts unresolvedConflictReader
	calendar  closureReader
	cache     *CacheService
	policy    TimetablePolicy
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduleViewService constructs the view service. calendar may be nil.
func NewScheduleViewService(entries activeEntryReader, rooms roomCatalog, subjects subjectCatalog, users userDirectory, conflicts unresolvedConflictReader, calendar closureReader, cache *CacheService, policy TimetablePolicy, logger *zap.Logger) *ScheduleViewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.Day.Duration() == 0 {
		policy = DefaultTimetablePolicy()
	}
	return &ScheduleViewService{
		entries:   entries,
		rooms:     rooms,
		subjects:  subjects,
		users:     users,
		conflicts: conflicts,
		calendar:  calendar,
		cache:     cache,
		policy:    policy,
		logger:    logger,
		now:       time.Now,
	}
}

// WeeklyGrid returns seven ordered day columns SUN..SAT of active entries.
func (s *ScheduleViewService) WeeklyGrid(ctx context.Context, filter models.ViewFilter) (*models.WeeklyGrid, error) {
	filter.Weekday = nil
	key := "grid:" + filter.CacheKey()
	var cached models.WeeklyGrid
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	entries, err := s.entries.ListActive(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule entries")
	}
	sortEntries(entries)

	grid := &models.WeeklyGrid{
		ProfessorID:    filter.ProfessorID,
		RoomID:         filter.RoomID,
		AcademicPeriod: filter.AcademicPeriod,
		Days:           make([]models.GridDay, len(models.Weekdays)),
		TotalEntries:   len(entries),
		GeneratedAt:    s.now().UTC(),
	}
	for i, day := range models.Weekdays {
		grid.Days[i] = models.GridDay{Weekday: day, Slots: []models.GridSlot{}}
	}
	for _, entry := range entries {
		column := &grid.Days[int(entry.Weekday)]
		column.Slots = append(column.Slots, models.GridSlot{
			StartTime: timerange.Format(entry.StartTime),
			EndTime:   timerange.Format(entry.EndTime),
			Available: false,
			Entry:     entry,
		})
	}

	_ = s.cache.Set(ctx, key, grid, 0)
	return grid, nil
}

// ProfessorAgenda groups a professor's active entries by subject with weekly hours.
func (s *ScheduleViewService) ProfessorAgenda(ctx context.Context, professorID, period string) (*models.ProfessorAgenda, error) {
	key := fmt.Sprintf("agenda:%s:%s", professorID, orAll(period))
	var cached models.ProfessorAgenda
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	professor, err := s.users.FindByID(ctx, professorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor")
	}
	if professor.Role != models.RoleProfessor {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "professor not found")
	}

	entries, err := s.entries.ListActive(ctx, models.ViewFilter{ProfessorID: professorID, AcademicPeriod: period})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule entries")
	}
	sortEntries(entries)

	bySubject := make(map[string]*models.AgendaSubject)
	var order []string
	var totalMinutes int
	for _, entry := range entries {
		group, ok := bySubject[entry.SubjectID]
		if !ok {
			group = &models.AgendaSubject{SubjectID: entry.SubjectID}
			if subject, err := s.subjects.FindByID(ctx, entry.SubjectID); err == nil {
				group.SubjectName = subject.Name
			}
			bySubject[entry.SubjectID] = group
			order = append(order, entry.SubjectID)
		}
		minutes := int(entry.Range().Duration())
		group.Entries = append(group.Entries, entry)
		group.WeeklyHours += float64(minutes) / 60
		totalMinutes += minutes
	}

	agenda := &models.ProfessorAgenda{
		ProfessorID:    professorID,
		ProfessorName:  professor.FullName,
		AcademicPeriod: period,
		Subjects:       make([]models.AgendaSubject, 0, len(order)),
		TotalHours:     round(float64(totalMinutes)/60, 2),
		GeneratedAt:    s.now().UTC(),
	}
	for _, id := range order {
		group := bySubject[id]
		group.WeeklyHours = round(group.WeeklyHours, 2)
		agenda.Subjects = append(agenda.Subjects, *group)
	}
	sort.SliceStable(agenda.Subjects, func(i, j int) bool {
		return agenda.Subjects[i].SubjectName < agenda.Subjects[j].SubjectName
	})

	agenda.Conflicts, err = s.unresolved(ctx, models.ConflictFilter{ProfessorID: professorID, AcademicPeriod: period})
	if err != nil {
		return nil, err
	}

	_ = s.cache.Set(ctx, key, agenda, 0)
	return agenda, nil
}

// RoomOccupancy reports booked hours over the weekly operating window.
// Overlapping bookings are counted once.
func (s *ScheduleViewService) RoomOccupancy(ctx context.Context, roomID, period string) (*models.RoomOccupancy, error) {
	key := fmt.Sprintf("occupancy:%s:%s", roomID, orAll(period))
	var cached models.RoomOccupancy
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	entries, err := s.entries.ListActive(ctx, models.ViewFilter{RoomID: roomID, AcademicPeriod: period})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule entries")
	}

	busy := make(map[models.Weekday][]timerange.Range)
	for _, entry := range entries {
		busy[entry.Weekday] = append(busy[entry.Weekday], entry.Range())
	}

	occupancy := &models.RoomOccupancy{
		RoomID:         room.ID,
		RoomName:       room.Name,
		AcademicPeriod: period,
		HoursByWeekday: make(map[string]float64, len(s.policy.OperatingDays)),
		ActiveEntries:  len(entries),
		GeneratedAt:    s.now().UTC(),
	}
	dayMinutes := int(s.policy.Day.Duration())
	var occupied int
	for _, day := range s.policy.OperatingDays {
		free := 0
		for _, gap := range timerange.Gaps(s.policy.Day, busy[day]) {
			free += int(gap.Duration())
		}
		minutes := dayMinutes - free
		occupied += minutes
		occupancy.HoursByWeekday[day.String()] = round(float64(minutes)/60, 2)
	}

	operating := s.policy.OperatingMinutes()
	occupancy.OccupiedHours = round(float64(occupied)/60, 2)
	occupancy.OperatingHours = round(float64(operating)/60, 2)
	if operating > 0 {
		occupancy.OccupancyRatio = round(float64(occupied)/float64(operating), 4)
	}

	occupancy.Conflicts, err = s.unresolved(ctx, models.ConflictFilter{RoomID: roomID, AcademicPeriod: period})
	if err != nil {
		return nil, err
	}

	_ = s.cache.Set(ctx, key, occupancy, 0)
	return occupancy, nil
}

// RoomAvailability lays out occupied slots and free gaps for a room on a date.
func (s *ScheduleViewService) RoomAvailability(ctx context.Context, roomID string, date time.Time, period string) (*models.RoomAvailability, error) {
	date = toDate(date)
	key := fmt.Sprintf("availability:%s:%s:%s", roomID, date.Format(dateLayout), orAll(period))
	var cached models.RoomAvailability
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	day := models.WeekdayOf(date)
	entries, err := s.entries.ListActive(ctx, models.ViewFilter{RoomID: roomID, AcademicPeriod: period, Weekday: &day})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule entries")
	}
	sortEntries(entries)

	blockedReason := ""
	if !room.Available {
		blockedReason = "room unavailable"
	} else if s.calendar != nil {
		closure, err := s.calendar.ClosureOn(ctx, date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic calendar")
		}
		if closure != nil {
			blockedReason = fmt.Sprintf("%s: %s", strings.ToLower(string(closure.EventType)), closure.Title)
		}
	}

	var timeline []models.AvailabilitySlot
	var busy []timerange.Range
	for _, entry := range entries {
		clipped, ok := entry.Range().Clip(s.policy.Day)
		if !ok {
			continue
		}
		id := entry.ID
		busy = append(busy, clipped)
		timeline = append(timeline, models.AvailabilitySlot{
			StartTime: timerange.Format(clipped.Start),
			EndTime:   timerange.Format(clipped.End),
			Available: false,
			Reason:    "occupied",
			EntryID:   &id,
		})
	}

	free := 0
	for _, gap := range timerange.Gaps(s.policy.Day, busy) {
		slot := models.AvailabilitySlot{
			StartTime: timerange.Format(gap.Start),
			EndTime:   timerange.Format(gap.End),
			Available: blockedReason == "",
			Reason:    blockedReason,
		}
		if slot.Available {
			free += int(gap.Duration())
		}
		timeline = append(timeline, slot)
	}
	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].StartTime < timeline[j].StartTime
	})

	availability := &models.RoomAvailability{
		RoomID:         room.ID,
		RoomName:       room.Name,
		Date:           date.Format(dateLayout),
		Weekday:        day,
		AcademicPeriod: period,
		Entries:        entries,
		Timeline:       timeline,
		FreeMinutes:    free,
	}
	if availability.Entries == nil {
		availability.Entries = []models.ScheduleEntry{}
	}

	_ = s.cache.Set(ctx, key, availability, 0)
	return availability, nil
}

// ExportWeeklyGrid renders the grid as CSV, PDF or XLSX.
func (s *ScheduleViewService) ExportWeeklyGrid(ctx context.Context, filter models.ViewFilter, format export.Format) (*ExportFile, error) {
	renderer, err := export.ForFormat(format)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	grid, err := s.WeeklyGrid(ctx, filter)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Title:   gridTitle(filter),
		Headers: []string{"Weekday", "Start", "End", "Subject", "Professor", "Room", "Period"},
	}
	names := s.gridNames(ctx, grid)
	for _, day := range grid.Days {
		for _, slot := range day.Slots {
			entry := slot.Entry
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Weekday":   day.Weekday.String(),
				"Start":     slot.StartTime,
				"End":       slot.EndTime,
				"Subject":   names.subject(entry.SubjectID),
				"Professor": names.professor(entry.ProfessorID),
				"Room":      names.room(entry.Room()),
				"Period":    entry.AcademicPeriod,
			})
		}
	}

	data, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("timetable-%s.%s", orAll(filter.AcademicPeriod), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        data,
	}, nil
}

func (s *ScheduleViewService) loadRoom(ctx context.Context, roomID string) (*models.Classroom, error) {
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	return room, nil
}

func (s *ScheduleViewService) unresolved(ctx context.Context, filter models.ConflictFilter) ([]models.ConflictRecord, error) {
	if s.conflicts == nil {
		return []models.ConflictRecord{}, nil
	}
	records, err := s.conflicts.ListUnresolved(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conflicts")
	}
	if records == nil {
		records = []models.ConflictRecord{}
	}
	return records, nil
}

// nameIndex resolves ids to display names. Unknown ids render as themselves.
type nameIndex struct {
	subjects   map[string]string
	professors map[string]string
	rooms      map[string]string
}

func (n nameIndex) subject(id string) string { return lookupName(n.subjects, id) }
func (n nameIndex) professor(id string) string { return lookupName(n.professors, id) }
func (n nameIndex) room(id string) string {
	if id == "" {
		return ""
	}
	return lookupName(n.rooms, id)
}

func lookupName(names map[string]string, id string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return id
}

// gridNames batch-loads the subject, professor and room names a grid references.
func (s *ScheduleViewService) gridNames(ctx context.Context, grid *models.WeeklyGrid) nameIndex {
	var subjectIDs, professorIDs, roomIDs []string
	seen := make(map[string]struct{})
	collect := func(ids *[]string, kind, id string) {
		if id == "" {
			return
		}
		key := kind + ":" + id
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		*ids = append(*ids, id)
	}
	for _, day := range grid.Days {
		for _, slot := range day.Slots {
			collect(&subjectIDs, "s", slot.Entry.SubjectID)
			collect(&professorIDs, "p", slot.Entry.ProfessorID)
			collect(&roomIDs, "r", slot.Entry.Room())
		}
	}

	names := nameIndex{
		subjects:   make(map[string]string, len(subjectIDs)),
		professors: make(map[string]string, len(professorIDs)),
		rooms:      make(map[string]string, len(roomIDs)),
	}
	if subjects, err := s.subjects.ListByIDs(ctx, subjectIDs); err != nil {
		s.logger.Warn("failed to load subject names", zap.Error(err))
	} else {
		for _, subject := range subjects {
			names.subjects[subject.ID] = subject.Name
		}
	}
	if users, err := s.users.ListByIDs(ctx, professorIDs); err != nil {
		s.logger.Warn("failed to load professor names", zap.Error(err))
	} else {
		for _, user := range users {
			names.professors[user.ID] = user.FullName
		}
	}
	if rooms, err := s.rooms.ListByIDs(ctx, roomIDs); err != nil {
		s.logger.Warn("failed to load room names", zap.Error(err))
	} else {
		for _, room := range rooms {
			names.rooms[room.ID] = room.Name
		}
	}
	return names
}

func gridTitle(filter models.ViewFilter) string {
	parts := []string{"Weekly timetable"}
	if filter.AcademicPeriod != "" {
		parts = append(parts, filter.AcademicPeriod)
	}
	return strings.Join(parts, " ")
}

func sortEntries(entries []models.ScheduleEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Weekday != entries[j].Weekday {
			return entries[i].Weekday < entries[j].Weekday
		}
		if entries[i].StartTime != entries[j].StartTime {
			return entries[i].StartTime < entries[j].StartTime
		}
		return entries[i].ID < entries[j].ID
	})
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func orAll(v string) string {
	if v == "" {
		return "all"
	}
	return v
}
