package service

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/p42rthicle/shoku/internal/model"
)

// Repository is the single entry point for logging food and reading derived views.
type Repository struct {
	catalog  *Catalog
	ledger   *Ledger
	settings SettingsStore
	hub      *Hub
	logger   *slog.Logger
}

// NewRepository wires a catalog and ledger over db. Settings default to the
// app_config table when store is nil.
func NewRepository(db *sql.DB, store SettingsStore, opts ...Option) *Repository {
	o := buildOptions(opts)
	hub := NewHub()
	if store == nil {
		store = NewSQLSettings(db)
	}
	return &Repository{
		catalog:  NewCatalog(db, hub, opts...),
		ledger:   NewLedger(db, hub, opts...),
		settings: store,
		hub:      hub,
		logger:   o.logger.With("component", "repository"),
	}
}

func (r *Repository) Catalog() *Catalog { return r.catalog }

func (r *Repository) Ledger() *Ledger { return r.ledger }

func (r *Repository) Hub() *Hub { return r.hub }

// LogEntry records e in the catalog, then appends it to the ledger linked to its
// catalog row. A ledger failure leaves the catalog update in place.
func (r *Repository) LogEntry(ctx context.Context, e model.LoggedEntry) (int64, error) {
	e = r.ledger.normalize(e)
	if err := validateEntry(e); err != nil {
		return 0, err
	}

	foodID, err := r.catalog.UpsertFromLoggedEntry(ctx, UpsertFoodInput{
		Name:     e.FoodName,
		Quantity: e.Quantity,
		Calories: e.Calories,
		ProteinG: e.ProteinG,
		Unit:     e.Unit,
	})
	if err != nil {
		r.logger.Warn("catalog upsert failed", "food", e.FoodName, "error", err)
		return 0, err
	}

	e.ID = 0
	e.FoodItemID = &foodID
	id, err := r.ledger.Insert(ctx, e)
	if err != nil {
		r.logger.Warn("ledger insert failed after catalog upsert", "food", e.FoodName, "food_item_id", foodID, "error", err)
		return 0, err
	}
	return id, nil
}

// UpdateEntry edits a logged entry in place. Catalog frequencies are left unchanged.
func (r *Repository) UpdateEntry(ctx context.Context, e model.LoggedEntry) error {
	return r.ledger.Update(ctx, e)
}

// DeleteEntry removes a logged entry. Catalog frequencies are left unchanged.
func (r *Repository) DeleteEntry(ctx context.Context, id int64) error {
	return r.ledger.Delete(ctx, id)
}

func (r *Repository) EntryByID(ctx context.Context, id int64) (model.LoggedEntry, bool, error) {
	return r.ledger.EntryByID(ctx, id)
}

func (r *Repository) SuggestionsFor(ctx context.Context, prefix string) ([]model.FoodItem, error) {
	return r.catalog.Suggestions(ctx, prefix)
}

func (r *Repository) WatchSuggestions(ctx context.Context, prefix string) *Subscription[[]model.FoodItem] {
	return r.catalog.WatchSuggestions(ctx, prefix)
}

func (r *Repository) EntriesForDate(ctx context.Context, date time.Time) ([]model.LoggedEntry, error) {
	return r.ledger.EntriesForDate(ctx, date)
}

func (r *Repository) WatchEntriesForDate(ctx context.Context, date time.Time) *Subscription[[]model.LoggedEntry] {
	return r.ledger.WatchEntriesForDate(ctx, date)
}

func (r *Repository) AllEntries(ctx context.Context) ([]model.LoggedEntry, error) {
	return r.ledger.All(ctx)
}

func (r *Repository) WatchAllEntries(ctx context.Context) *Subscription[[]model.LoggedEntry] {
	return r.ledger.WatchAll(ctx)
}

// Summaries returns per-day totals over the whole ledger, newest first.
func (r *Repository) Summaries(ctx context.Context) ([]model.DailySummary, error) {
	entries, err := r.ledger.All(ctx)
	if err != nil {
		return nil, err
	}
	return SummariesByDate(entries), nil
}

func (r *Repository) WatchSummaries(ctx context.Context) *Subscription[[]model.DailySummary] {
	return watch(ctx, r.hub, r.logger, r.Summaries, TopicLedger)
}

func (r *Repository) TotalsForDate(ctx context.Context, date time.Time) (calories, protein float64, err error) {
	entries, err := r.ledger.EntriesForDate(ctx, date)
	if err != nil {
		return 0, 0, err
	}
	calories, protein = TotalsForDate(entries, date)
	return calories, protein, nil
}

// DayStatus combines one day's entries and totals with the daily targets.
func (r *Repository) DayStatus(ctx context.Context, date time.Time) (model.DayStatus, error) {
	var (
		entries []model.LoggedEntry
		targets model.Targets
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = r.ledger.EntriesForDate(gctx, date)
		return err
	})
	g.Go(func() error {
		var err error
		targets, err = LoadTargets(gctx, r.settings)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.DayStatus{}, err
	}
	return buildDayStatus(date, entries, targets), nil
}

func (r *Repository) Targets(ctx context.Context) (model.Targets, error) {
	return LoadTargets(ctx, r.settings)
}

func (r *Repository) SetCalorieTarget(ctx context.Context, kcal float64) error {
	return SaveTarget(ctx, r.settings, SettingCalorieTarget, kcal)
}

func (r *Repository) SetProteinTarget(ctx context.Context, grams float64) error {
	return SaveTarget(ctx, r.settings, SettingProteinTarget, grams)
}
