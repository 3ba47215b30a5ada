package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p42rthicle/shoku/internal/model"
	"github.com/p42rthicle/shoku/internal/service"
)

func TestWatchEntriesForDateSeesMutations(t *testing.T) {
	t.Parallel()
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	d := day(t, "2024-07-01")

	sub := repo.WatchEntriesForDate(ctx, d)
	defer sub.Close()

	initial := nextSnapshot(t, sub, func([]model.LoggedEntry) bool { return true })
	assert.Empty(t, initial)

	id := logFood(t, repo, model.LoggedEntry{FoodName: "Dosa", Quantity: 1, Unit: "pc", Calories: 170, ProteinG: 4, Date: d})
	got := nextSnapshot(t, sub, func(v []model.LoggedEntry) bool { return len(v) == 1 })
	assert.Equal(t, "Dosa", got[0].FoodName)

	require.NoError(t, repo.DeleteEntry(ctx, id))
	nextSnapshot(t, sub, func(v []model.LoggedEntry) bool { return len(v) == 0 })
}

func TestWatchSummariesAndSuggestions(t *testing.T) {
	t.Parallel()
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	summaries := repo.WatchSummaries(ctx)
	defer summaries.Close()
	suggestions := repo.WatchSuggestions(ctx, "Ch")
	defer suggestions.Close()

	logFood(t, repo, model.LoggedEntry{FoodName: "Chole", Quantity: 1, Calories: 280, ProteinG: 11, Date: day(t, "2024-07-02")})
	logFood(t, repo, model.LoggedEntry{FoodName: "Chai", Quantity: 1, Calories: 80, ProteinG: 2, Date: day(t, "2024-07-02")})
	logFood(t, repo, model.LoggedEntry{FoodName: "Chai", Quantity: 1, Calories: 80, ProteinG: 2, Date: day(t, "2024-07-03")})

	got := nextSnapshot(t, summaries, func(v []model.DailySummary) bool { return len(v) == 2 })
	assert.InDelta(t, 80, got[0].TotalCalories, 0)
	assert.InDelta(t, 360, got[1].TotalCalories, 0)

	items := nextSnapshot(t, suggestions, func(v []model.FoodItem) bool {
		return len(v) == 2 && v[0].Frequency == 2
	})
	assert.Equal(t, []string{"Chai", "Chole"}, names(items))
}

func TestSubscriptionCloseReleasesListener(t *testing.T) {
	t.Parallel()
	repo, _ := newTestRepo(t)

	sub := repo.WatchAllEntries(context.Background())
	nextSnapshot(t, sub, func([]model.LoggedEntry) bool { return true })
	require.Equal(t, 1, repo.Hub().Len())

	sub.Close()
	for range sub.C() {
	}
	assert.Equal(t, 0, repo.Hub().Len())
	assert.NoError(t, sub.Err())

	// Closing twice is harmless.
	sub.Close()
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	t.Parallel()
	repo, _ := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())

	sub := repo.Ledger().WatchAll(ctx)
	nextSnapshot(t, sub, func([]model.LoggedEntry) bool { return true })
	cancel()

	require.Eventually(t, func() bool { return repo.Hub().Len() == 0 }, 2*time.Second, 5*time.Millisecond)
	for range sub.C() {
	}
	sub.Close()
}

func TestSubscriptionReportsLoadFailure(t *testing.T) {
	t.Parallel()
	repo, sqldb := newTestRepo(t)

	sub := repo.WatchAllEntries(context.Background())
	defer sub.Close()
	nextSnapshot(t, sub, func([]model.LoggedEntry) bool { return true })

	_, err := sqldb.Exec(`DROP TABLE logged_entries`)
	require.NoError(t, err)
	repo.Hub().Publish(service.TopicLedger)

	for range sub.C() {
	}
	var storageErr *service.StorageError
	assert.ErrorAs(t, sub.Err(), &storageErr)
}

func TestPublishIgnoresUnrelatedTopics(t *testing.T) {
	t.Parallel()
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	sub := repo.WatchSuggestions(ctx, "")
	defer sub.Close()
	nextSnapshot(t, sub, func([]model.FoodItem) bool { return true })

	repo.Hub().Publish(service.TopicLedger)
	select {
	case v := <-sub.C():
		t.Fatalf("unexpected snapshot %+v", v)
	case <-time.After(50 * time.Millisecond):
	}
}
