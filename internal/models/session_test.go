package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 3, 4, hour, minute, 0, 0, time.UTC)
}

func TestSessionOverlapsHalfOpen(t *testing.T) {
	s := Session{StartTime: at(10, 0), EndTime: at(11, 0)}

	assert.True(t, s.Overlaps(at(10, 30), at(11, 30)))
	assert.True(t, s.Overlaps(at(9, 0), at(12, 0)))
	assert.True(t, s.Overlaps(at(10, 15), at(10, 45)))
	assert.False(t, s.Overlaps(at(11, 0), at(12, 0)))
	assert.False(t, s.Overlaps(at(9, 0), at(10, 0)))
}

func TestSessionActiveAt(t *testing.T) {
	s := Session{StartTime: at(9, 0), EndTime: at(10, 30)}

	assert.True(t, s.ActiveAt(at(9, 0)))
	assert.True(t, s.ActiveAt(at(9, 45)))
	assert.False(t, s.ActiveAt(at(10, 30)))
	assert.False(t, s.ActiveAt(at(8, 59)))
}

func TestGroupOccupancyNeverNegative(t *testing.T) {
	occ := NewGroupOccupancy(Group{MaxStudents: 2}, 3)
	assert.Equal(t, 0, occ.AvailableSeats)
	assert.Equal(t, 3, occ.Occupancy)
}
