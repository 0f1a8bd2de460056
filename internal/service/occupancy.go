package service

import (
	"math"
	"sort"
	"time"

	"github.com/noah-isme/training-center-api/internal/dto"
	"github.com/noah-isme/training-center-api/internal/models"
)

const dateLayout = "2006-01-02"

// SlotGrid describes the display slots of a day as offsets from local midnight.
type SlotGrid struct {
	DayStart  time.Duration
	DayEnd    time.Duration
	SlotWidth time.Duration
	Location  *time.Location
}

// DefaultSlotGrid is 30 minute slots from 08:00 to 17:00 in UTC.
func DefaultSlotGrid() SlotGrid {
	return SlotGrid{DayStart: 8 * time.Hour, DayEnd: 17 * time.Hour, SlotWidth: 30 * time.Minute, Location: time.UTC}
}

func (g SlotGrid) location() *time.Location {
	if g.Location == nil {
		return time.UTC
	}
	return g.Location
}

// Midnight returns the start of the local day containing t.
func (g SlotGrid) Midnight(t time.Time) time.Time {
	local := t.In(g.location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, g.location())
}

// Slots returns the slot boundaries of the day containing date. Offsets are read on the wall
// clock, so 08:00 stays 08:00 on days with a DST transition.
func (g SlotGrid) Slots(date time.Time) []time.Time {
	if g.SlotWidth <= 0 || g.DayEnd <= g.DayStart {
		return nil
	}
	year, month, day := g.Midnight(date).Date()
	var slots []time.Time
	for offset := g.DayStart; offset < g.DayEnd; offset += g.SlotWidth {
		slots = append(slots, time.Date(year, month, day,
			int(offset/time.Hour), int(offset%time.Hour/time.Minute), int(offset%time.Minute/time.Second),
			int(offset%time.Second), g.location()))
	}
	return slots
}

// clockOffset is the wall-clock time of day of t.
func clockOffset(t time.Time) time.Duration {
	hour, minute, second := t.Clock()
	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute +
		time.Duration(second)*time.Second + time.Duration(t.Nanosecond())
}

// IsOccupied returns the session holding the resource at now, if any. A session holds its
// resource on [start, end).
func IsOccupied(sessions []models.Session, kind models.ResourceKind, resourceID string, now time.Time) (*models.Session, bool) {
	for i := range sessions {
		session := sessions[i]
		if !usesResource(session, kind, resourceID) || !session.ActiveAt(now) {
			continue
		}
		return &session, true
	}
	return nil, false
}

// RemainingMinutes rounds the time left in session up to whole minutes.
// ok is false when the session is not running at now.
func RemainingMinutes(session models.Session, now time.Time) (int, bool) {
	if !session.ActiveAt(now) {
		return 0, false
	}
	remaining := session.EndTime.Sub(now)
	return int(math.Ceil(remaining.Minutes())), true
}

// DailySlotGrid bins sessions starting on date into the grid by nearest slot boundary.
// Halfway starts go to the later slot. Sessions whose nearest boundary falls outside the grid,
// or that start on another day, are returned as unslotted. The grid is a display aid only.
func DailySlotGrid(date time.Time, sessions []models.Session, grid SlotGrid) dto.DailyGrid {
	boundaries := grid.Slots(date)
	result := dto.DailyGrid{
		Date:      grid.Midnight(date).Format(dateLayout),
		Slots:     make([]dto.SlotSessions, len(boundaries)),
		Unslotted: []models.Session{},
	}
	for i, boundary := range boundaries {
		result.Slots[i] = dto.SlotSessions{Start: boundary, Label: boundary.Format("15:04"), Sessions: []models.Session{}}
	}

	midnight := grid.Midnight(date)
	nextMidnight := midnight.AddDate(0, 0, 1)
	ordered := sortedByStart(sessions)
	for _, session := range ordered {
		start := session.StartTime.In(grid.location())
		if start.Before(midnight) || !start.Before(nextMidnight) || len(boundaries) == 0 {
			result.Unslotted = append(result.Unslotted, session)
			continue
		}
		idx := nearestSlot(clockOffset(start)-grid.DayStart, grid.SlotWidth)
		if idx < 0 || idx >= len(boundaries) {
			result.Unslotted = append(result.Unslotted, session)
			continue
		}
		result.Slots[idx].Sessions = append(result.Slots[idx].Sessions, session)
	}
	return result
}

// nearestSlot rounds offset/width to the nearest integer, ties upward.
func nearestSlot(offset, width time.Duration) int {
	return int(math.Floor(float64(offset)/float64(width) + 0.5))
}

// Summarize counts busy rooms and teachers at now and the sessions starting on date. Only
// rooms in activeRooms count as occupied, so OccupiedRooms never exceeds TotalRooms.
func Summarize(date time.Time, sessions []models.Session, activeRooms []models.Room, totalTeachers int, now time.Time, grid SlotGrid) dto.OccupancySummary {
	midnight := grid.Midnight(date)
	nextMidnight := midnight.AddDate(0, 0, 1)
	busy, teachers := BusyResources(sessions, now)
	rooms := amongRooms(busy, activeRooms)

	today := 0
	for _, session := range sessions {
		if !session.StartTime.Before(midnight) && session.StartTime.Before(nextMidnight) {
			today++
		}
	}
	return dto.OccupancySummary{
		Date:             midnight.Format(dateLayout),
		At:               now,
		TotalRooms:       len(activeRooms),
		OccupiedRooms:    len(rooms),
		TotalTeachers:    totalTeachers,
		OccupiedTeachers: len(teachers),
		SessionsToday:    today,
	}
}

// BusyResources returns the sorted ids of rooms and teachers in session at now.
func BusyResources(sessions []models.Session, now time.Time) (rooms []string, teachers []string) {
	roomSet := make(map[string]struct{})
	teacherSet := make(map[string]struct{})
	for _, session := range sessions {
		if !session.ActiveAt(now) {
			continue
		}
		teacherSet[session.TeacherID] = struct{}{}
		if session.RoomID != nil {
			roomSet[*session.RoomID] = struct{}{}
		}
	}
	return sortedKeys(roomSet), sortedKeys(teacherSet)
}

// amongRooms keeps the ids that belong to rooms, preserving order.
func amongRooms(ids []string, rooms []models.Room) []string {
	known := make(map[string]struct{}, len(rooms))
	for _, room := range rooms {
		known[room.ID] = struct{}{}
	}
	kept := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := known[id]; ok {
			kept = append(kept, id)
		}
	}
	return kept
}

func usesResource(session models.Session, kind models.ResourceKind, resourceID string) bool {
	switch kind {
	case models.ResourceTeacher:
		return session.TeacherID == resourceID
	case models.ResourceRoom:
		return session.InRoom(resourceID)
	}
	return false
}

func sortedByStart(sessions []models.Session) []models.Session {
	ordered := append([]models.Session(nil), sessions...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].StartTime.Equal(ordered[j].StartTime) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].StartTime.Before(ordered[j].StartTime)
	})
	return ordered
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
