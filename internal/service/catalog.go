package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/p42rthicle/shoku/internal/model"
)

// UpsertFoodInput describes a logged entry as seen by the catalog.
// Calories and ProteinG are totals for Quantity.
type UpsertFoodInput struct {
	Name     string
	Quantity float64
	Calories float64
	ProteinG float64
	Unit     string
}

// Catalog owns the deduplicated food catalog and its usage frequencies.
type Catalog struct {
	db     *sql.DB
	hub    *Hub
	logger *slog.Logger
	limit  int

	cache      *cache.Cache
	flights    singleflight.Group
	generation atomic.Uint64
}

func NewCatalog(db *sql.DB, hub *Hub, opts ...Option) *Catalog {
	o := buildOptions(opts)
	// No janitor goroutine: every mutation flushes the cache, so expired keys never pile up.
	return &Catalog{
		db:     db,
		hub:    hub,
		logger: o.logger.With("component", "catalog"),
		limit:  o.suggestionLimit,
		cache:  cache.New(o.cacheTTL, 0),
	}
}

// UpsertFromLoggedEntry records one use of the named food and returns its catalog id.
// Known names only gain frequency; the first log fixes the per-unit nutrition.
func (c *Catalog) UpsertFromLoggedEntry(ctx context.Context, in UpsertFoodInput) (int64, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return 0, invalid("food name", "is required")
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("begin catalog upsert", err)
	}
	id, created, err := upsertFoodItem(ctx, tx, name, in)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit catalog upsert", err)
	}

	c.changed()
	if created {
		c.logger.Debug("catalog entry created", "id", id, "name", name)
	} else {
		c.logger.Debug("catalog frequency incremented", "id", id, "name", name)
	}
	return id, nil
}

func upsertFoodItem(ctx context.Context, tx *sql.Tx, name string, in UpsertFoodInput) (int64, bool, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM food_items WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, false, incrementFrequency(ctx, tx, id)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, storageErr(fmt.Sprintf("lookup food item %q", name), err)
	}

	res, err := tx.ExecContext(ctx, `
INSERT INTO food_items(name, calories, protein, default_unit, frequency)
VALUES(?, ?, ?, ?, 1)
ON CONFLICT(name) DO NOTHING
`, name, perUnit(in.Calories, in.Quantity), perUnit(in.ProteinG, in.Quantity), nullableString(in.Unit))
	if err != nil {
		return 0, false, storageErr(fmt.Sprintf("insert food item %q", name), err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, storageErr("read rows affected for food item insert", err)
	}
	if affected == 1 {
		id, err = res.LastInsertId()
		if err != nil {
			return 0, false, storageErr("resolve food item id", err)
		}
		return id, true, nil
	}

	// Another writer inserted the same name between lookup and insert.
	if err := tx.QueryRowContext(ctx, `SELECT id FROM food_items WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, false, storageErr(fmt.Sprintf("re-read food item %q after conflict", name), err)
	}
	return id, false, incrementFrequency(ctx, tx, id)
}

func incrementFrequency(ctx context.Context, tx *sql.Tx, id int64) error {
	if _, err := tx.ExecContext(ctx, `UPDATE food_items SET frequency = frequency + 1 WHERE id = ?`, id); err != nil {
		return storageErr(fmt.Sprintf("increment frequency for food item %d", id), err)
	}
	return nil
}

// Suggestions returns catalog entries whose name starts with prefix (case-sensitive),
// most frequently used first, ties by name.
func (c *Catalog) Suggestions(ctx context.Context, prefix string) ([]model.FoodItem, error) {
	gen := c.generation.Load()
	key := fmt.Sprintf("%d:%s", gen, prefix)
	if v, ok := c.cache.Get(key); ok {
		return slices.Clone(v.([]model.FoodItem)), nil
	}

	ch := c.flights.DoChan(key, func() (any, error) {
		items, err := c.querySuggestions(context.WithoutCancel(ctx), prefix)
		if err != nil {
			return nil, err
		}
		if c.generation.Load() == gen {
			c.cache.SetDefault(key, items)
		}
		return items, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]model.FoodItem)), nil
	}
}

func (c *Catalog) querySuggestions(ctx context.Context, prefix string) ([]model.FoodItem, error) {
	rows, err := c.db.QueryContext(ctx, foodItemSelect+`
WHERE substr(name, 1, length(?)) = ?
ORDER BY frequency DESC, name ASC
LIMIT ?
`, prefix, prefix, c.limit)
	if err != nil {
		return nil, storageErr(fmt.Sprintf("query suggestions for %q", prefix), err)
	}
	return collectFoodItems(rows)
}

// WatchSuggestions streams the suggestion list for prefix, refreshed on every catalog change.
func (c *Catalog) WatchSuggestions(ctx context.Context, prefix string) *Subscription[[]model.FoodItem] {
	return watch(ctx, c.hub, c.logger, func(ctx context.Context) ([]model.FoodItem, error) {
		return c.Suggestions(ctx, prefix)
	}, TopicCatalog)
}

// All lists the whole catalog in suggestion order.
func (c *Catalog) All(ctx context.Context) ([]model.FoodItem, error) {
	rows, err := c.db.QueryContext(ctx, foodItemSelect+` ORDER BY frequency DESC, name ASC`)
	if err != nil {
		return nil, storageErr("list food items", err)
	}
	return collectFoodItems(rows)
}

func (c *Catalog) ByName(ctx context.Context, name string) (model.FoodItem, bool, error) {
	name = strings.TrimSpace(name)
	return c.one(ctx, foodItemSelect+` WHERE name = ?`, name)
}

func (c *Catalog) ByID(ctx context.Context, id int64) (model.FoodItem, bool, error) {
	return c.one(ctx, foodItemSelect+` WHERE id = ?`, id)
}

func (c *Catalog) one(ctx context.Context, query string, arg any) (model.FoodItem, bool, error) {
	item, err := scanFoodItem(c.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return model.FoodItem{}, false, nil
	}
	if err != nil {
		return model.FoodItem{}, false, storageErr(fmt.Sprintf("lookup food item %v", arg), err)
	}
	return item, true, nil
}

// Remove deletes a catalog entry. Ledger rows that referenced it keep their
// values and lose only the reference.
func (c *Catalog) Remove(ctx context.Context, id int64) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin catalog remove", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE logged_entries SET food_item_id = NULL WHERE food_item_id = ?`, id); err != nil {
		return storageErr(fmt.Sprintf("detach entries from food item %d", id), err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM food_items WHERE id = ?`, id)
	if err != nil {
		return storageErr(fmt.Sprintf("delete food item %d", id), err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storageErr(fmt.Sprintf("read rows affected for food item %d", id), err)
	}
	if affected == 0 {
		return fmt.Errorf("food item %d: %w", id, ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit catalog remove", err)
	}

	c.changed(TopicLedger)
	c.logger.Debug("catalog entry removed", "id", id)
	return nil
}

// changed drops cached suggestions and wakes subscribers.
func (c *Catalog) changed(extra ...Topic) {
	c.generation.Add(1)
	c.cache.Flush()
	c.hub.Publish(append([]Topic{TopicCatalog}, extra...)...)
}

const foodItemSelect = `
SELECT id, name, calories, protein, IFNULL(default_unit, ''), frequency
FROM food_items`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFoodItem(row rowScanner) (model.FoodItem, error) {
	var item model.FoodItem
	err := row.Scan(&item.ID, &item.Name, &item.Calories, &item.ProteinG, &item.DefaultUnit, &item.Frequency)
	return item, err
}

func collectFoodItems(rows *sql.Rows) ([]model.FoodItem, error) {
	defer rows.Close()
	items := make([]model.FoodItem, 0)
	for rows.Next() {
		item, err := scanFoodItem(rows)
		if err != nil {
			return nil, storageErr("scan food item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate food items", err)
	}
	return items, nil
}

func nullableString(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}
