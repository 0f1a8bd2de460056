package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/training-center-api/internal/dto"
	"github.com/noah-isme/training-center-api/internal/models"
	appErrors "github.com/noah-isme/training-center-api/pkg/errors"
)

type sessionLister interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]models.Session, error)
}

type occupancyReferenceReader interface {
	FindRoom(ctx context.Context, id string) (*models.Room, error)
	FindTeacher(ctx context.Context, id string) (*models.Teacher, error)
	ListActiveRooms(ctx context.Context) ([]models.Room, error)
	CountActiveTeachers(ctx context.Context) (int, error)
}

type dayCache interface {
	Generation(ctx context.Context, key string) (int64, error)
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// OccupancyService answers read-only occupancy questions from stored sessions and a clock.
type OccupancyService struct {
	sessions sessionLister
	refs     occupancyReferenceReader
	cache    dayCache
	grid     SlotGrid
	now      func() time.Time
	logger   *zap.Logger
}

// OccupancyOption customises the service.
type OccupancyOption func(*OccupancyService)

// WithOccupancyClock overrides the reference clock.
func WithOccupancyClock(now func() time.Time) OccupancyOption {
	return func(s *OccupancyService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewOccupancyService constructs the service. cache may be nil.
func NewOccupancyService(sessions sessionLister, refs occupancyReferenceReader, cache dayCache, grid SlotGrid, logger *zap.Logger, opts ...OccupancyOption) *OccupancyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &OccupancyService{
		sessions: sessions,
		refs:     refs,
		cache:    cache,
		grid:     grid,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// ParseDate reads a YYYY-MM-DD date in the grid's location. Empty means today.
func (s *OccupancyService) ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.grid.Midnight(s.now()), nil
	}
	date, err := time.ParseInLocation(dateLayout, raw, s.grid.location())
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must use YYYY-MM-DD")
	}
	return date, nil
}

// DailyRoomOverview builds the slot grid of every active room for date plus a summary at now.
func (s *OccupancyService) DailyRoomOverview(ctx context.Context, date time.Time) (*dto.DailyRoomOverview, error) {
	sessions, err := s.daySessions(ctx, date)
	if err != nil {
		return nil, err
	}
	rooms, err := s.refs.ListActiveRooms(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load rooms")
	}
	teachers, err := s.refs.CountActiveTeachers(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count teachers")
	}

	byRoom := make(map[string][]models.Session, len(rooms))
	withoutRoom := []models.Session{}
	for _, session := range sessions {
		if session.RoomID == nil {
			withoutRoom = append(withoutRoom, session)
			continue
		}
		byRoom[*session.RoomID] = append(byRoom[*session.RoomID], session)
	}

	now := s.now()
	overview := &dto.DailyRoomOverview{
		Date:        s.grid.Midnight(date).Format(dateLayout),
		Rooms:       make([]dto.RoomGrid, 0, len(rooms)),
		WithoutRoom: withoutRoom,
		Summary:     Summarize(date, sessions, rooms, teachers, now, s.grid),
	}
	for _, room := range rooms {
		overview.Rooms = append(overview.Rooms, dto.RoomGrid{Room: room, Grid: DailySlotGrid(date, byRoom[room.ID], s.grid)})
	}
	busyRooms, busyTeachers := BusyResources(sessions, now)
	overview.BusyRooms = amongRooms(busyRooms, rooms)
	overview.BusyTeachers = busyTeachers
	return overview, nil
}

// RoomOccupancy reports whether a room is in use at at (defaults to now).
func (s *OccupancyService) RoomOccupancy(ctx context.Context, roomID string, at *time.Time) (*dto.ResourceOccupancy, error) {
	if _, err := s.refs.FindRoom(ctx, roomID); err != nil {
		return nil, notFoundOrInternal(err, "room not found", "failed to load room")
	}
	return s.resourceOccupancy(ctx, models.ResourceRoom, roomID, at)
}

// TeacherOccupancy reports whether a teacher is teaching at at (defaults to now).
func (s *OccupancyService) TeacherOccupancy(ctx context.Context, teacherID string, at *time.Time) (*dto.ResourceOccupancy, error) {
	if _, err := s.refs.FindTeacher(ctx, teacherID); err != nil {
		return nil, notFoundOrInternal(err, "teacher not found", "failed to load teacher")
	}
	return s.resourceOccupancy(ctx, models.ResourceTeacher, teacherID, at)
}

func (s *OccupancyService) resourceOccupancy(ctx context.Context, kind models.ResourceKind, id string, at *time.Time) (*dto.ResourceOccupancy, error) {
	instant := s.now()
	if at != nil {
		instant = *at
	}
	sessions, err := s.daySessions(ctx, instant)
	if err != nil {
		return nil, err
	}
	result := &dto.ResourceOccupancy{Resource: kind, ResourceID: id, At: instant}
	if session, ok := IsOccupied(sessions, kind, id, instant); ok {
		remaining, _ := RemainingMinutes(*session, instant)
		result.Occupied = true
		result.Session = session
		result.RemainingMinutes = &remaining
	}
	return result, nil
}

// daySessions loads sessions overlapping the local day of date, through the cache when enabled.
// Lists are stored under the day's current generation and only when no session touching the
// day was created while the list was read.
func (s *OccupancyService) daySessions(ctx context.Context, date time.Time) ([]models.Session, error) {
	from := s.grid.Midnight(date)
	genKey := dayGenerationKey(from)

	cached := s.cache != nil
	var gen int64
	if cached {
		var err error
		if gen, err = s.cache.Generation(ctx, genKey); err != nil {
			s.logger.Warn("day schedule generation lookup failed", zap.String("key", genKey), zap.Error(err))
			cached = false
		}
	}

	key := dayListKey(from, gen)
	var sessions []models.Session
	if cached {
		hit, err := s.cache.Get(ctx, key, &sessions)
		if err != nil {
			s.logger.Warn("day schedule cache lookup failed", zap.String("key", key), zap.Error(err))
		}
		if hit {
			return sessions, nil
		}
	}

	sessions, err := s.sessions.ListBetween(ctx, from, from.AddDate(0, 0, 1))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []models.Session{}, nil
		}
		return nil, appErrors.Internal(err, "failed to load sessions")
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	if cached {
		current, err := s.cache.Generation(ctx, genKey)
		switch {
		case err != nil:
			s.logger.Warn("day schedule generation lookup failed", zap.String("key", genKey), zap.Error(err))
		case current != gen:
			s.logger.Debug("day schedule changed during read, not caching", zap.String("key", key))
		default:
			if err := s.cache.Set(ctx, key, sessions, 0); err != nil {
				s.logger.Warn("day schedule cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return sessions, nil
}
