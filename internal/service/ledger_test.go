package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p42rthicle/shoku/internal/model"
	"github.com/p42rthicle/shoku/internal/service"
)

func TestEntriesForDateOrderedByMeal(t *testing.T) {
	t.Parallel()
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	d := day(t, "2024-03-01")

	logFood(t, repo, model.LoggedEntry{FoodName: "Dal", Quantity: 1, Calories: 150, ProteinG: 9, Date: d, Meal: model.MealDinner})
	logFood(t, repo, model.LoggedEntry{FoodName: "Poha", Quantity: 1, Calories: 250, ProteinG: 5, Date: d, Meal: model.MealBreakfast})
	logFood(t, repo, model.LoggedEntry{FoodName: "Chips", Quantity: 1, Calories: 160, ProteinG: 2, Date: d, Meal: model.MealSnacks})
	logFood(t, repo, model.LoggedEntry{FoodName: "Rajma", Quantity: 1, Calories: 300, ProteinG: 12, Date: d, Meal: "Lunch"})
	logFood(t, repo, model.LoggedEntry{FoodName: "Tea", Quantity: 1, Calories: 60, ProteinG: 1, Date: d, Meal: model.MealBreakfast})
	logFood(t, repo, model.LoggedEntry{FoodName: "Toast", Quantity: 1, Calories: 90, ProteinG: 3, Date: day(t, "2024-03-02")})

	entries, err := repo.EntriesForDate(ctx, d)
	require.NoError(t, err)
	got := make([]string, 0, len(entries))
	for _, e := range entries {
		got = append(got, e.FoodName)
	}
	assert.Equal(t, []string{"Poha", "Tea", "Rajma", "Dal", "Chips"}, got)
	assert.Equal(t, model.MealLunch, entries[2].Meal)

	calories, protein, err := repo.TotalsForDate(ctx, d)
	require.NoError(t, err)
	assert.InDelta(t, 920, calories, 1e-9)
	assert.InDelta(t, 29, protein, 1e-9)
}

func TestAllEntriesNewestFirst(t *testing.T) {
	t.Parallel()
	repo, _ := newTestRepo(t)

	first := logFood(t, repo, model.LoggedEntry{FoodName: "A1", Quantity: 1, Calories: 1, Date: day(t, "2024-01-01")})
	second := logFood(t, repo, model.LoggedEntry{FoodName: "B1", Quantity: 1, Calories: 1, Date: day(t, "2024-01-03")})
	third := logFood(t, repo, model.LoggedEntry{FoodName: "C1", Quantity: 1, Calories: 1, Date: day(t, "2024-01-01")})

	entries, err := repo.AllEntries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []int64{second, third, first}, []int64{entries[0].ID, entries[1].ID, entries[2].ID})
}

func TestUpdateAndDeleteLeaveFrequencyUnchanged(t *testing.T) {
	t.Parallel()
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	id := logFood(t, repo, model.LoggedEntry{FoodName: "Upma", Quantity: 1, Unit: "katori", Calories: 200, ProteinG: 5, Date: day(t, "2024-04-01")})

	entry, found, err := repo.EntryByID(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	entry.Quantity = 2
	entry.Calories = 400
	entry.Notes = "  extra ghee "
	require.NoError(t, repo.UpdateEntry(ctx, entry))

	updated, _, err := repo.EntryByID(ctx, id)
	require.NoError(t, err)
	assert.InDelta(t, 400, updated.Calories, 0)
	assert.Equal(t, "extra ghee", updated.Notes)

	require.NoError(t, repo.DeleteEntry(ctx, id))
	_, found, err = repo.EntryByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, found)

	item, found, err := repo.Catalog().ByName(ctx, "Upma")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, item.Frequency)
	assert.InDelta(t, 200, item.Calories, 0)
}

func TestUpdateAndDeleteMissingEntry(t *testing.T) {
	t.Parallel()
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	err := repo.UpdateEntry(ctx, model.LoggedEntry{ID: 42, FoodName: "Ghost", Quantity: 1, Meal: model.MealLunch})
	assert.True(t, errors.Is(err, service.ErrNotFound), "got %v", err)

	err = repo.DeleteEntry(ctx, 42)
	assert.True(t, errors.Is(err, service.ErrNotFound), "got %v", err)

	err = repo.DeleteEntry(ctx, 0)
	assert.True(t, service.IsValidation(err))
}

func TestLogEntryValidationMutatesNothing(t *testing.T) {
	t.Parallel()
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		entry model.LoggedEntry
		field string
	}{
		{"blank name", model.LoggedEntry{FoodName: " ", Quantity: 1, Meal: model.MealLunch}, "food name"},
		{"zero quantity", model.LoggedEntry{FoodName: "Tea", Quantity: 0, Meal: model.MealLunch}, "quantity"},
		{"negative calories", model.LoggedEntry{FoodName: "Tea", Quantity: 1, Calories: -1, Meal: model.MealLunch}, "calories"},
		{"unknown meal", model.LoggedEntry{FoodName: "Tea", Quantity: 1, Meal: "brunch"}, "meal"},
	}
	for _, tt := range tests {
		_, err := repo.LogEntry(ctx, tt.entry)
		var ve *service.ValidationError
		require.True(t, errors.As(err, &ve), "%s: got %v", tt.name, err)
		assert.Equal(t, tt.field, ve.Field, tt.name)
	}

	items, err := repo.Catalog().All(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
	entries, err := repo.AllEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLogEntryDefaultsDateToClock(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 5, 6, 23, 30, 0, 0, time.UTC)
	repo, _ := newTestRepo(t, service.WithClock(func() time.Time { return now }))

	id := logFood(t, repo, model.LoggedEntry{FoodName: "Khichdi", Quantity: 1, Unit: " Katoris ", Calories: 220, ProteinG: 8})
	entry, found, err := repo.EntryByID(context.Background(), id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2024-05-06", entry.DateString())
	assert.Equal(t, "katori", entry.Unit)
	require.NotNil(t, entry.FoodItemID)
}
