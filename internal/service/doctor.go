package service

import (
	"context"
	"database/sql"
)

type DoctorReport struct {
	DanglingFoodRefs    int `json:"dangling_food_refs"`
	NonPositiveQuantity int `json:"non_positive_quantity"`
	UnusedFoodItems     int `json:"unused_food_items"`
	FixedFoodRefs       int `json:"fixed_food_refs,omitempty"`
}

// Issues reports whether the check found anything that needs attention.
// Unused catalog rows are expected and do not count.
func (r DoctorReport) Issues() bool {
	return r.DanglingFoodRefs > 0 || r.NonPositiveQuantity > 0
}

// RunDoctor checks ledger rows against the catalog. With fix, references to
// removed catalog rows are cleared.
func RunDoctor(ctx context.Context, db *sql.DB, fix bool) (DoctorReport, error) {
	report := DoctorReport{}
	if err := db.QueryRowContext(ctx, `
SELECT COUNT(1) FROM logged_entries e
LEFT JOIN food_items f ON f.id = e.food_item_id
WHERE e.food_item_id IS NOT NULL AND f.id IS NULL
`).Scan(&report.DanglingFoodRefs); err != nil {
		return report, storageErr("doctor dangling reference check", err)
	}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(1) FROM logged_entries WHERE quantity <= 0`).Scan(&report.NonPositiveQuantity); err != nil {
		return report, storageErr("doctor quantity check", err)
	}
	if err := db.QueryRowContext(ctx, `
SELECT COUNT(1) FROM food_items f
WHERE NOT EXISTS (SELECT 1 FROM logged_entries e WHERE e.food_item_id = f.id)
`).Scan(&report.UnusedFoodItems); err != nil {
		return report, storageErr("doctor unused food check", err)
	}

	if fix && report.DanglingFoodRefs > 0 {
		res, err := db.ExecContext(ctx, `
UPDATE logged_entries SET food_item_id = NULL
WHERE food_item_id IS NOT NULL AND food_item_id NOT IN (SELECT id FROM food_items)
`)
		if err != nil {
			return report, storageErr("doctor fix dangling references", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return report, storageErr("doctor fix rows affected", err)
		}
		report.FixedFoodRefs = int(n)
	}
	return report, nil
}
