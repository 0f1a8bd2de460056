package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/training-center-api/internal/models"
	appErrors "github.com/noah-isme/training-center-api/pkg/errors"
)

func newGroupFixture(t *testing.T, students int) (*GroupService, *memoryStore) {
	t.Helper()
	store := newMemoryStore()
	store.addCourse("course-1")
	store.addGroup("grp-a", "course-1", 2, models.GroupStatusOpen)
	store.addGroup("grp-b", "course-1", 2, models.GroupStatusOpen)
	for i := 1; i <= students; i++ {
		id := fmt.Sprintf("stu-%d", i)
		store.addStudent(id)
		store.addEnrollment("enr-"+id, id, "course-1", models.EnrollmentStatusValidated)
	}
	svc := NewGroupService(store, memoryGroups{store}, store, store, NewMetricsService(), nil)
	return svc, store
}

func TestGroupServiceAssignFillsGroup(t *testing.T) {
	svc, store := newGroupFixture(t, 3)
	ctx := context.Background()

	first, err := svc.AssignStudent(ctx, "grp-a", "stu-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Group.Occupancy)
	assert.Equal(t, 1, first.Group.AvailableSeats)
	assert.True(t, first.Enrollment.InGroup("grp-a"))

	second, err := svc.AssignStudent(ctx, "grp-a", "stu-2", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.GroupStatusFull, second.Group.Status)
	assert.Equal(t, 0, second.Group.AvailableSeats)

	_, err = svc.AssignStudent(ctx, "grp-a", "stu-3", "admin-1")
	assert.ErrorIs(t, err, appErrors.ErrGroupFull)

	count, _ := store.CountByGroup(ctx, "grp-a")
	assert.Equal(t, 2, count)
}

func TestGroupServiceAssignErrors(t *testing.T) {
	svc, store := newGroupFixture(t, 2)
	store.addStudent("stu-no-enrollment")
	store.addStudent("stu-rejected")
	store.addEnrollment("enr-rejected", "stu-rejected", "course-1", models.EnrollmentStatusRejected)
	store.addGroup("grp-closed", "course-1", 5, models.GroupStatusClosed)
	ctx := context.Background()

	_, err := svc.AssignStudent(ctx, "grp-a", "stu-1", "admin-1")
	require.NoError(t, err)

	tests := []struct {
		name    string
		group   string
		student string
		want    *appErrors.Error
	}{
		{name: "unknown group", group: "missing", student: "stu-1", want: appErrors.ErrNotFound},
		{name: "unknown student", group: "grp-a", student: "ghost", want: appErrors.ErrNotFound},
		{name: "not enrolled in course", group: "grp-a", student: "stu-no-enrollment", want: appErrors.ErrNotFound},
		{name: "rejected enrollment", group: "grp-a", student: "stu-rejected", want: appErrors.ErrInvalidTransition},
		{name: "already assigned", group: "grp-a", student: "stu-1", want: appErrors.ErrAlreadyAssigned},
		{name: "in another group", group: "grp-b", student: "stu-1", want: appErrors.ErrAlreadyInAnotherGroup},
		{name: "closed group", group: "grp-closed", student: "stu-2", want: appErrors.ErrGroupClosed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AssignStudent(ctx, tc.group, tc.student, "admin-1")
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestGroupServiceMoveBetweenGroups(t *testing.T) {
	svc, _ := newGroupFixture(t, 1)
	ctx := context.Background()

	_, err := svc.AssignStudent(ctx, "grp-a", "stu-1", "admin-1")
	require.NoError(t, err)

	_, err = svc.AssignStudent(ctx, "grp-b", "stu-1", "admin-1")
	assert.ErrorIs(t, err, appErrors.ErrAlreadyInAnotherGroup)

	removed, err := svc.RemoveStudent(ctx, "grp-a", "stu-1", "admin-1")
	require.NoError(t, err)
	assert.Nil(t, removed.Enrollment.GroupID)
	assert.Equal(t, 0, removed.Group.Occupancy)

	moved, err := svc.AssignStudent(ctx, "grp-b", "stu-1", "admin-1")
	require.NoError(t, err)
	assert.True(t, moved.Enrollment.InGroup("grp-b"))
}

func TestGroupServiceRemoveReopensFullGroup(t *testing.T) {
	svc, _ := newGroupFixture(t, 2)
	ctx := context.Background()

	for _, student := range []string{"stu-1", "stu-2"} {
		_, err := svc.AssignStudent(ctx, "grp-a", student, "admin-1")
		require.NoError(t, err)
	}

	removed, err := svc.RemoveStudent(ctx, "grp-a", "stu-2", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.GroupStatusOpen, removed.Group.Status)
	assert.Equal(t, 1, removed.Group.Occupancy)

	group, err := svc.Get(ctx, "grp-a")
	require.NoError(t, err)
	assert.Equal(t, models.GroupStatusOpen, group.Status)
	assert.Equal(t, 1, group.Occupancy)
}

func TestGroupServiceRemoveErrors(t *testing.T) {
	svc, store := newGroupFixture(t, 2)
	store.addStudent("stu-no-enrollment")
	ctx := context.Background()

	_, err := svc.AssignStudent(ctx, "grp-a", "stu-1", "admin-1")
	require.NoError(t, err)

	_, err = svc.RemoveStudent(ctx, "grp-b", "stu-1", "admin-1")
	assert.ErrorIs(t, err, appErrors.ErrNotAssigned)

	_, err = svc.RemoveStudent(ctx, "grp-a", "stu-2", "admin-1")
	assert.ErrorIs(t, err, appErrors.ErrNotAssigned)

	_, err = svc.RemoveStudent(ctx, "grp-a", "stu-no-enrollment", "admin-1")
	assert.ErrorIs(t, err, appErrors.ErrNotAssigned)

	_, err = svc.RemoveStudent(ctx, "missing", "stu-1", "admin-1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.RemoveStudent(ctx, "grp-a", "ghost", "admin-1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestGroupServiceConcurrentAssignNeverExceedsCapacity(t *testing.T) {
	svc, store := newGroupFixture(t, 10)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, full := 0, 0
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		go func(student string) {
			defer wg.Done()
			_, err := svc.AssignStudent(ctx, "grp-a", student, "admin-1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, appErrors.ErrGroupFull):
				full++
			}
		}(fmt.Sprintf("stu-%d", i))
	}
	wg.Wait()

	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 8, full)
	count, _ := store.CountByGroup(ctx, "grp-a")
	assert.Equal(t, 2, count)
}
