package dto

import (
	"time"

	"github.com/noah-isme/training-center-api/internal/models"
)

// SlotSessions lists the sessions binned to one display slot.
type SlotSessions struct {
	Start    time.Time        `json:"start"`
	Label    string           `json:"label"`
	Sessions []models.Session `json:"sessions"`
}

// DailyGrid is a day of display slots for one resource.
type DailyGrid struct {
	Date      string           `json:"date"`
	Slots     []SlotSessions   `json:"slots"`
	Unslotted []models.Session `json:"unslotted"`
}

// RoomGrid pairs a room with its slot grid.
type RoomGrid struct {
	Room models.Room `json:"room"`
	Grid DailyGrid   `json:"grid"`
}

// OccupancySummary counts busy resources at a reference instant.
type OccupancySummary struct {
	Date             string    `json:"date"`
	At               time.Time `json:"at"`
	TotalRooms       int       `json:"total_rooms"`
	OccupiedRooms    int       `json:"occupied_rooms"`
	TotalTeachers    int       `json:"total_teachers"`
	OccupiedTeachers int       `json:"occupied_teachers"`
	SessionsToday    int       `json:"sessions_today"`
}

// DailyRoomOverview is the payload of the daily room schedule.
type DailyRoomOverview struct {
	Date         string           `json:"date"`
	Rooms        []RoomGrid       `json:"rooms"`
	WithoutRoom  []models.Session `json:"without_room"`
	Summary      OccupancySummary `json:"summary"`
	BusyRooms    []string         `json:"busy_rooms"`
	BusyTeachers []string         `json:"busy_teachers"`
}

// ResourceOccupancy answers whether a room or teacher is busy at an instant.
type ResourceOccupancy struct {
	Resource         models.ResourceKind `json:"resource"`
	ResourceID       string              `json:"resource_id"`
	At               time.Time           `json:"at"`
	Occupied         bool                `json:"occupied"`
	Session          *models.Session     `json:"session,omitempty"`
	RemainingMinutes *int                `json:"remaining_minutes,omitempty"`
}
