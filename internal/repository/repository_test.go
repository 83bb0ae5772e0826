package repository_test

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekplan/backend/internal/db"
	"weekplan/backend/internal/model"
	"weekplan/backend/internal/persist"
	"weekplan/backend/internal/repository"
)

func openTestDB(t *testing.T) (*repository.UserRepository, *repository.EventRepository, *repository.WorkTimeRepository) {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "repo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	_, currentFile, _, ok := runtime.Caller(0)
	require.True(t, ok, "resolve caller path")
	migrationsDir := filepath.Join(filepath.Dir(currentFile), "../../migrations")
	_, err = db.RunMigrations(database, migrationsDir)
	require.NoError(t, err)

	return repository.NewUserRepository(database),
		repository.NewEventRepository(database),
		repository.NewWorkTimeRepository(database)
}

func createUser(t *testing.T, users *repository.UserRepository, id string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, users.Create(context.Background(), &model.User{
		ID: id, Email: id + "@example.com", PasswordHash: "x", CreatedAt: now, UpdatedAt: now,
	}))
}

func event(id string, start time.Time, d time.Duration) model.Event {
	return model.Event{
		ID:             id,
		UserID:         "u1",
		Start:          start,
		End:            start.Add(d),
		Top:            576,
		Height:         64,
		OriginalHeight: 64,
		Classification: model.Classification{Subject: "review", ProjectCode: "P-1"},
		CreatedAt:      time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestUserRepository_NotFound(t *testing.T) {
	users, _, _ := openTestDB(t)
	createUser(t, users, "u1")

	got, err := users.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", got.Email)

	_, err = users.GetByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestEventRepository_SaveWeekMirrorsCollection(t *testing.T) {
	users, events, _ := openTestDB(t)
	createUser(t, users, "u1")
	ctx := context.Background()
	key := persist.WeekKey{Year: 2024, Week: 10, UserID: "u1"}
	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	a := event("a", monday.Add(9*time.Hour), time.Hour)
	b := event("b", monday.AddDate(0, 0, 2).Add(14*time.Hour), 100*time.Minute)
	require.NoError(t, events.SaveWeek(ctx, key, []model.Event{b, a}))

	got, err := events.LoadWeek(ctx, key)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, a.Start, got[0].Start)
	assert.Equal(t, a.End, got[0].End)
	assert.Equal(t, "P-1", got[0].ProjectCode)
	assert.Equal(t, 100*time.Minute, got[1].Duration())

	moved := a
	moved.End = moved.End.Add(40 * time.Minute)
	require.NoError(t, events.SaveWeek(ctx, key, []model.Event{moved}))

	got, err = events.LoadWeek(ctx, key)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, moved.End, got[0].End)
}

func TestEventRepository_WeeksAndUsersAreIsolated(t *testing.T) {
	users, events, _ := openTestDB(t)
	createUser(t, users, "u1")
	createUser(t, users, "u2")
	ctx := context.Background()
	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	w10 := persist.WeekKey{Year: 2024, Week: 10, UserID: "u1"}
	w11 := persist.WeekKey{Year: 2024, Week: 11, UserID: "u1"}
	require.NoError(t, events.SaveWeek(ctx, w10, []model.Event{event("a", monday.Add(9*time.Hour), time.Hour)}))
	require.NoError(t, events.SaveWeek(ctx, w11, []model.Event{event("b", monday.AddDate(0, 0, 7).Add(9*time.Hour), time.Hour)}))

	// Saving an empty week 11 must not touch week 10.
	require.NoError(t, events.SaveWeek(ctx, w11, nil))
	got, err := events.LoadWeek(ctx, w10)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	other, err := events.LoadWeek(ctx, persist.WeekKey{Year: 2024, Week: 10, UserID: "u2"})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestEventRepository_DeleteEventIdempotent(t *testing.T) {
	users, events, _ := openTestDB(t)
	createUser(t, users, "u1")
	ctx := context.Background()
	key := persist.WeekKey{Year: 2024, Week: 10, UserID: "u1"}
	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	require.NoError(t, events.SaveWeek(ctx, key, []model.Event{event("a", monday.Add(9*time.Hour), time.Hour)}))
	require.NoError(t, events.DeleteEvent(ctx, "u1", "a"))
	require.NoError(t, events.DeleteEvent(ctx, "u1", "a"))

	got, err := events.LoadWeek(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEventRepository_EventExistsAcrossWeeks(t *testing.T) {
	users, events, _ := openTestDB(t)
	createUser(t, users, "u1")
	createUser(t, users, "u2")
	ctx := context.Background()
	week11 := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

	require.NoError(t, events.SaveWeek(ctx, persist.WeekKey{Year: 2024, Week: 11, UserID: "u1"},
		[]model.Event{event("u1_202403010815", week11, time.Hour)}))

	found, err := events.EventExists(ctx, "u1", "u1_202403010815")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = events.EventExists(ctx, "u2", "u1_202403010815")
	require.NoError(t, err)
	assert.False(t, found)

	found, err = events.EventExists(ctx, "u1", "u1_202403010816")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEventRepository_InvalidWeek(t *testing.T) {
	_, events, _ := openTestDB(t)
	_, err := events.LoadWeek(context.Background(), persist.WeekKey{Year: 2024, Week: 60, UserID: "u1"})
	assert.Error(t, err)
}

func TestWorkTimeRepository_UpsertAndRange(t *testing.T) {
	users, _, worktimes := openTestDB(t)
	createUser(t, users, "u1")
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, worktimes.Upsert(ctx, &model.WorkTime{UserID: "u1", Date: "2024-03-04", Start: "08:00", End: "16:30", UpdatedAt: now}))
	require.NoError(t, worktimes.Upsert(ctx, &model.WorkTime{UserID: "u1", Date: "2024-03-04", Start: "09:00", End: "17:00", UpdatedAt: now}))
	require.NoError(t, worktimes.Upsert(ctx, &model.WorkTime{UserID: "u1", Date: "2024-03-12", Start: "09:00", End: "17:00", UpdatedAt: now}))

	got, err := worktimes.ListRange(ctx, "u1", "2024-03-04", "2024-03-10")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "09:00", got[0].Start)
	assert.Equal(t, "17:00", got[0].End)
}
