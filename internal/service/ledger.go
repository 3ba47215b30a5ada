package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/p42rthicle/shoku/internal/model"
)

// Ledger owns the log of consumption events. It never touches catalog frequencies.
type Ledger struct {
	db     *sql.DB
	hub    *Hub
	logger *slog.Logger
	now    func() time.Time
}

func NewLedger(db *sql.DB, hub *Hub, opts ...Option) *Ledger {
	o := buildOptions(opts)
	return &Ledger{
		db:     db,
		hub:    hub,
		logger: o.logger.With("component", "ledger"),
		now:    o.now,
	}
}

func (l *Ledger) Insert(ctx context.Context, e model.LoggedEntry) (int64, error) {
	e = l.normalize(e)
	if err := validateEntry(e); err != nil {
		return 0, err
	}
	res, err := l.db.ExecContext(ctx, `
INSERT INTO logged_entries(food_name, quantity, unit, calories, protein, date, meal, notes, food_item_id)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
`, e.FoodName, e.Quantity, e.Unit, e.Calories, e.ProteinG, e.DateString(), string(e.Meal), nullableString(e.Notes), e.FoodItemID)
	if err != nil {
		return 0, storageErr("insert logged entry", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("resolve inserted entry id", err)
	}
	l.hub.Publish(TopicLedger)
	l.logger.Debug("entry inserted", "id", id, "food", e.FoodName, "date", e.DateString())
	return id, nil
}

func (l *Ledger) Update(ctx context.Context, e model.LoggedEntry) error {
	if e.ID <= 0 {
		return invalid("entry id", "must be > 0")
	}
	e = l.normalize(e)
	if err := validateEntry(e); err != nil {
		return err
	}
	res, err := l.db.ExecContext(ctx, `
UPDATE logged_entries
SET food_name = ?, quantity = ?, unit = ?, calories = ?, protein = ?, date = ?, meal = ?, notes = ?, food_item_id = ?
WHERE id = ?
`, e.FoodName, e.Quantity, e.Unit, e.Calories, e.ProteinG, e.DateString(), string(e.Meal), nullableString(e.Notes), e.FoodItemID, e.ID)
	if err != nil {
		return storageErr(fmt.Sprintf("update entry %d", e.ID), err)
	}
	if err := requireAffected(res, e.ID); err != nil {
		return err
	}
	l.hub.Publish(TopicLedger)
	l.logger.Debug("entry updated", "id", e.ID)
	return nil
}

func (l *Ledger) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return invalid("entry id", "must be > 0")
	}
	res, err := l.db.ExecContext(ctx, `DELETE FROM logged_entries WHERE id = ?`, id)
	if err != nil {
		return storageErr(fmt.Sprintf("delete entry %d", id), err)
	}
	if err := requireAffected(res, id); err != nil {
		return err
	}
	l.hub.Publish(TopicLedger)
	l.logger.Debug("entry deleted", "id", id)
	return nil
}

func (l *Ledger) EntryByID(ctx context.Context, id int64) (model.LoggedEntry, bool, error) {
	e, err := scanLoggedEntry(l.db.QueryRowContext(ctx, loggedEntrySelect+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.LoggedEntry{}, false, nil
	}
	if err != nil {
		return model.LoggedEntry{}, false, storageErr(fmt.Sprintf("get entry %d", id), err)
	}
	return e, true, nil
}

// EntriesForDate lists one day's entries by meal (breakfast first), then insertion order.
func (l *Ledger) EntriesForDate(ctx context.Context, date time.Time) ([]model.LoggedEntry, error) {
	day := date.Format(model.DateLayout)
	rows, err := l.db.QueryContext(ctx, loggedEntrySelect+`
WHERE date = ?
ORDER BY CASE meal WHEN 'breakfast' THEN 0 WHEN 'lunch' THEN 1 WHEN 'dinner' THEN 2 ELSE 3 END, id ASC
`, day)
	if err != nil {
		return nil, storageErr(fmt.Sprintf("list entries for %s", day), err)
	}
	return collectLoggedEntries(rows)
}

// All lists every entry, most recent date first.
func (l *Ledger) All(ctx context.Context) ([]model.LoggedEntry, error) {
	rows, err := l.db.QueryContext(ctx, loggedEntrySelect+` ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, storageErr("list entries", err)
	}
	return collectLoggedEntries(rows)
}

func (l *Ledger) WatchEntriesForDate(ctx context.Context, date time.Time) *Subscription[[]model.LoggedEntry] {
	return watch(ctx, l.hub, l.logger, func(ctx context.Context) ([]model.LoggedEntry, error) {
		return l.EntriesForDate(ctx, date)
	}, TopicLedger)
}

func (l *Ledger) WatchAll(ctx context.Context) *Subscription[[]model.LoggedEntry] {
	return watch(ctx, l.hub, l.logger, l.All, TopicLedger)
}

func (l *Ledger) normalize(e model.LoggedEntry) model.LoggedEntry {
	e.FoodName = strings.TrimSpace(e.FoodName)
	e.Unit = NormalizeUnit(e.Unit)
	e.Notes = strings.TrimSpace(e.Notes)
	if meal, err := model.ParseMeal(string(e.Meal)); err == nil {
		e.Meal = meal
	}
	if e.Date.IsZero() {
		e.Date = l.now()
	}
	e.Date = model.DateOf(e.Date)
	return e
}

func requireAffected(res sql.Result, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return storageErr(fmt.Sprintf("read rows affected for entry %d", id), err)
	}
	if affected == 0 {
		return fmt.Errorf("entry %d: %w", id, ErrNotFound)
	}
	return nil
}

const loggedEntrySelect = `
SELECT id, food_name, quantity, unit, calories, protein, date, meal, IFNULL(notes, ''), food_item_id
FROM logged_entries`

func scanLoggedEntry(row rowScanner) (model.LoggedEntry, error) {
	var (
		e       model.LoggedEntry
		dateRaw string
		meal    string
		foodID  sql.NullInt64
	)
	if err := row.Scan(&e.ID, &e.FoodName, &e.Quantity, &e.Unit, &e.Calories, &e.ProteinG, &dateRaw, &meal, &e.Notes, &foodID); err != nil {
		return e, err
	}
	date, err := model.ParseDate(dateRaw)
	if err != nil {
		return e, fmt.Errorf("parse date for entry %d: %w", e.ID, err)
	}
	e.Date = date
	e.Meal = model.Meal(meal)
	if foodID.Valid {
		v := foodID.Int64
		e.FoodItemID = &v
	}
	return e, nil
}

func collectLoggedEntries(rows *sql.Rows) ([]model.LoggedEntry, error) {
	defer rows.Close()
	entries := make([]model.LoggedEntry, 0)
	for rows.Next() {
		e, err := scanLoggedEntry(rows)
		if err != nil {
			return nil, storageErr("scan entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate entries", err)
	}
	return entries, nil
}
