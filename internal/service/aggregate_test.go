package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p42rthicle/shoku/internal/model"
	"github.com/p42rthicle/shoku/internal/service"
)

func TestSummariesByDate(t *testing.T) {
	t.Parallel()
	entries := []model.LoggedEntry{
		{FoodName: "Poha", Calories: 500, ProteinG: 10, Date: day(t, "2024-01-01")},
		{FoodName: "Tea", Calories: 200, ProteinG: 2, Date: day(t, "2024-01-02")},
		{FoodName: "Dal", Calories: 300, ProteinG: 15, Date: day(t, "2024-01-01")},
	}

	got := service.SummariesByDate(entries)
	assert.Equal(t, []model.DailySummary{
		{Date: day(t, "2024-01-02"), TotalCalories: 200, TotalProteinG: 2},
		{Date: day(t, "2024-01-01"), TotalCalories: 800, TotalProteinG: 25},
	}, got)

	assert.Empty(t, service.SummariesByDate(nil))
}

func TestTotalsForDateIgnoresOtherDays(t *testing.T) {
	t.Parallel()
	entries := []model.LoggedEntry{
		{Calories: 100, ProteinG: 1, Date: day(t, "2024-01-01")},
		{Calories: 50, ProteinG: 4, Date: day(t, "2024-01-02")},
	}
	calories, protein := service.TotalsForDate(entries, day(t, "2024-01-02"))
	assert.InDelta(t, 50, calories, 0)
	assert.InDelta(t, 4, protein, 0)

	calories, protein = service.TotalsForDate(entries, day(t, "2024-01-03"))
	assert.Zero(t, calories)
	assert.Zero(t, protein)
}

func TestRepositorySummaries(t *testing.T) {
	t.Parallel()
	repo, _ := newTestRepo(t)
	logFood(t, repo, model.LoggedEntry{FoodName: "Poha", Quantity: 1, Calories: 500, ProteinG: 10, Date: day(t, "2024-01-01")})
	logFood(t, repo, model.LoggedEntry{FoodName: "Dal", Quantity: 1, Calories: 300, ProteinG: 15, Date: day(t, "2024-01-01")})
	logFood(t, repo, model.LoggedEntry{FoodName: "Tea", Quantity: 1, Calories: 200, ProteinG: 2, Date: day(t, "2024-01-02")})

	got, err := repo.Summaries(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-01-02", got[0].Date.Format(model.DateLayout))
	assert.InDelta(t, 200, got[0].TotalCalories, 0)
	assert.InDelta(t, 800, got[1].TotalCalories, 0)
}
