package shoku

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/p42rthicle/shoku/internal/app"
	"github.com/p42rthicle/shoku/internal/db"
	"github.com/p42rthicle/shoku/internal/model"
	"github.com/p42rthicle/shoku/internal/service"
)

func resolveDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	if cfg != nil && cfg.DBPath != "" {
		return cfg.DBPath, nil
	}
	return app.DefaultDBPath()
}

func withDB(run func(*sql.DB) error) error {
	path, err := resolveDBPath()
	if err != nil {
		return err
	}
	if err := app.EnsureDBDir(path); err != nil {
		return err
	}
	sqldb, err := db.Open(path)
	if err != nil {
		return err
	}
	defer sqldb.Close()

	if err := db.ApplyMigrations(sqldb); err != nil {
		return err
	}
	return run(sqldb)
}

func withRepo(cmd *cobra.Command, run func(context.Context, *service.Repository) error) error {
	return withDB(func(sqldb *sql.DB) error {
		store, err := app.OpenSettings(cfg, sqldb)
		if err != nil {
			return err
		}
		repo := service.NewRepository(sqldb, store,
			service.WithLogger(logger),
			service.WithSuggestionLimit(cfg.Suggest.Limit),
		)
		return run(cmd.Context(), repo)
	})
}

func parseInt64Arg(name, value string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, value)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be > 0", name)
	}
	return v, nil
}

// parseDateOrToday reads --date, defaulting to the local calendar date.
func parseDateOrToday(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return model.DateOf(time.Now()), nil
	}
	d, err := model.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q (expected YYYY-MM-DD)", value)
	}
	return d, nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func printEntries(cmd *cobra.Command, entries []model.LoggedEntry) {
	fmt.Fprintln(cmd.OutOrStdout(), "ID\tDATE\tMEAL\tNAME\tQTY\tKCAL\tP")
	for _, e := range entries {
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\t%s %s\t%.0f\t%.1f\n",
			e.ID, e.DateString(), e.Meal, e.FoodName, formatAmount(e.Quantity), e.Unit, e.Calories, e.ProteinG)
	}
}

func printFoodItems(cmd *cobra.Command, items []model.FoodItem) {
	fmt.Fprintln(cmd.OutOrStdout(), "ID\tNAME\tKCAL/UNIT\tP/UNIT\tUNIT\tUSES")
	for _, item := range items {
		unit := item.DefaultUnit
		if unit == "" {
			unit = "-"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%.1f\t%.1f\t%s\t%d\n",
			item.ID, item.Name, item.Calories, item.ProteinG, unit, item.Frequency)
	}
}
