package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/training-center-api/internal/models"
	"github.com/noah-isme/training-center-api/internal/repository"
)

// memoryStore is an in-memory stand-in for the relational store. WithinTransaction serializes
// units of work and restores the previous state when fn fails.
type memoryStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	enrollments map[string]models.Enrollment
	history     []models.RegistrationHistoryEntry
	groups      map[string]models.Group
	sessions    []models.Session
	courses     map[string]models.Course
	teachers    map[string]models.Teacher
	students    map[string]models.Student
	rooms       map[string]models.Room

	seq          int
	appendErr    error
	locked       [][]string
	listCalls    int
	overlapCheck bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		enrollments:  map[string]models.Enrollment{},
		groups:       map[string]models.Group{},
		courses:      map[string]models.Course{},
		teachers:     map[string]models.Teacher{},
		students:     map[string]models.Student{},
		rooms:        map[string]models.Room{},
		overlapCheck: true,
	}
}

type memorySnapshot struct {
	enrollments map[string]models.Enrollment
	history     []models.RegistrationHistoryEntry
	groups      map[string]models.Group
	sessions    []models.Session
}

func (m *memoryStore) snapshot() memorySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := memorySnapshot{
		enrollments: make(map[string]models.Enrollment, len(m.enrollments)),
		history:     append([]models.RegistrationHistoryEntry(nil), m.history...),
		groups:      make(map[string]models.Group, len(m.groups)),
		sessions:    append([]models.Session(nil), m.sessions...),
	}
	for k, v := range m.enrollments {
		snap.enrollments[k] = v
	}
	for k, v := range m.groups {
		snap.groups[k] = v
	}
	return snap
}

func (m *memoryStore) restore(snap memorySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrollments = snap.enrollments
	m.history = snap.history
	m.groups = snap.groups
	m.sessions = snap.sessions
}

func (m *memoryStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	snap := m.snapshot()
	if err := fn(ctx); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memoryStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

// seeding helpers

func (m *memoryStore) addStudent(id string) {
	m.students[id] = models.Student{ID: id, FullName: id}
}

func (m *memoryStore) addCourse(id string) {
	m.courses[id] = models.Course{ID: id, Name: id}
}

func (m *memoryStore) addTeacher(id string) {
	m.teachers[id] = models.Teacher{ID: id, FullName: id, Active: true}
}

func (m *memoryStore) addRoom(id string, active bool) {
	m.rooms[id] = models.Room{ID: id, Name: id, Active: active}
}

func (m *memoryStore) addGroup(id, courseID string, max int, status models.GroupStatus) {
	m.groups[id] = models.Group{ID: id, CourseID: courseID, Name: id, MaxStudents: max, Status: status}
}

func (m *memoryStore) addEnrollment(id, studentID, courseID string, status models.EnrollmentStatus) {
	m.enrollments[id] = models.Enrollment{ID: id, StudentID: studentID, CourseID: courseID, Status: status}
}

func (m *memoryStore) addSession(s models.Session) {
	m.sessions = append(m.sessions, s)
}

func (m *memoryStore) historyOf(enrollmentID string) []models.RegistrationHistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RegistrationHistoryEntry
	for _, entry := range m.history {
		if entry.EnrollmentID == enrollmentID {
			out = append(out, entry)
		}
	}
	return out
}

// enrollment store

func (m *memoryStore) Create(ctx context.Context, enrollment *models.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.enrollments {
		if existing.StudentID == enrollment.StudentID && existing.CourseID == enrollment.CourseID {
			return fmt.Errorf("create enrollment: %w", repository.ErrDuplicate)
		}
	}
	if enrollment.ID == "" {
		enrollment.ID = m.nextID("enr")
	}
	enrollment.EnrolledAt = time.Now().UTC()
	m.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (m *memoryStore) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	enrollment, ok := m.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &enrollment, nil
}

func (m *memoryStore) FindByIDForUpdate(ctx context.Context, id string) (*models.Enrollment, error) {
	return m.FindByID(ctx, id)
}

func (m *memoryStore) UpdateStatus(ctx context.Context, id string, from, to models.EnrollmentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	enrollment, ok := m.enrollments[id]
	if !ok || enrollment.Status != from {
		return repository.ErrStaleStatus
	}
	enrollment.Status = to
	m.enrollments[id] = enrollment
	return nil
}

func (m *memoryStore) FindByStudentAndCourseForUpdate(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, enrollment := range m.enrollments {
		if enrollment.StudentID == studentID && enrollment.CourseID == courseID {
			e := enrollment
			return &e, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryStore) SetGroup(ctx context.Context, id string, groupID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	enrollment, ok := m.enrollments[id]
	if !ok {
		return sql.ErrNoRows
	}
	if groupID != nil {
		value := *groupID
		groupID = &value
	}
	enrollment.GroupID = groupID
	m.enrollments[id] = enrollment
	return nil
}

func (m *memoryStore) CountByGroup(ctx context.Context, groupID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, enrollment := range m.enrollments {
		if enrollment.InGroup(groupID) {
			total++
		}
	}
	return total, nil
}

// history store

func (m *memoryStore) Append(ctx context.Context, entry *models.RegistrationHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	if entry.ID == "" {
		entry.ID = m.nextID("hist")
	}
	m.history = append(m.history, *entry)
	return nil
}

func (m *memoryStore) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.RegistrationHistoryEntry, error) {
	return m.historyOf(enrollmentID), nil
}

// reference reader

func (m *memoryStore) FindStudent(ctx context.Context, id string) (*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	student, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &student, nil
}

func (m *memoryStore) FindCourse(ctx context.Context, id string) (*models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	course, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &course, nil
}

func (m *memoryStore) FindTeacher(ctx context.Context, id string) (*models.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	teacher, ok := m.teachers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &teacher, nil
}

func (m *memoryStore) FindRoom(ctx context.Context, id string) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &room, nil
}

func (m *memoryStore) ListActiveRooms(ctx context.Context) ([]models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rooms []models.Room
	for _, room := range m.rooms {
		if room.Active {
			rooms = append(rooms, room)
		}
	}
	sortRooms(rooms)
	return rooms, nil
}

func (m *memoryStore) CountActiveTeachers(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, teacher := range m.teachers {
		if teacher.Active {
			total++
		}
	}
	return total, nil
}

// group store, exposed separately because FindByID collides with the enrollment store.

type memoryGroups struct{ m *memoryStore }

func (g memoryGroups) FindByID(ctx context.Context, id string) (*models.Group, error) {
	g.m.mu.Lock()
	defer g.m.mu.Unlock()
	group, ok := g.m.groups[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &group, nil
}

func (g memoryGroups) FindByIDForUpdate(ctx context.Context, id string) (*models.Group, error) {
	return g.FindByID(ctx, id)
}

func (g memoryGroups) UpdateStatus(ctx context.Context, id string, status models.GroupStatus) error {
	g.m.mu.Lock()
	defer g.m.mu.Unlock()
	group := g.m.groups[id]
	group.Status = status
	g.m.groups[id] = group
	return nil
}

// session store, exposed separately because Create collides with the enrollment store.

type memorySessions struct{ m *memoryStore }

func (s memorySessions) LockResources(ctx context.Context, keys ...string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.locked = append(s.m.locked, append([]string(nil), keys...))
	return nil
}

func (s memorySessions) FindOverlapping(ctx context.Context, teacherID string, roomID *string, start, end time.Time) ([]models.Session, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []models.Session
	for _, session := range s.m.sessions {
		shares := session.TeacherID == teacherID || (roomID != nil && session.InRoom(*roomID))
		if shares && session.Overlaps(start, end) {
			out = append(out, session)
		}
	}
	return out, nil
}

// Create mirrors the exclusion constraints when overlapCheck is on.
func (s memorySessions) Create(ctx context.Context, session *models.Session) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.m.overlapCheck {
		for _, existing := range s.m.sessions {
			if existing.TeacherID == session.TeacherID && existing.Overlaps(session.StartTime, session.EndTime) {
				return fmt.Errorf("create session: %w: sessions_teacher_no_overlap", repository.ErrOverlap)
			}
			if session.RoomID != nil && existing.InRoom(*session.RoomID) && existing.Overlaps(session.StartTime, session.EndTime) {
				return fmt.Errorf("create session: %w: sessions_room_no_overlap", repository.ErrOverlap)
			}
		}
	}
	if session.ID == "" {
		session.ID = s.m.nextID("ses")
	}
	s.m.sessions = append(s.m.sessions, *session)
	return nil
}

func (s memorySessions) ListBetween(ctx context.Context, from, to time.Time) ([]models.Session, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.listCalls++
	var out []models.Session
	for _, session := range s.m.sessions {
		if session.Overlaps(from, to) {
			out = append(out, session)
		}
	}
	return out, nil
}

func sortRooms(rooms []models.Room) {
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })
}
