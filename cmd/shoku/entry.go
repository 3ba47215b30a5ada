package shoku

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/p42rthicle/shoku/internal/model"
	"github.com/p42rthicle/shoku/internal/service"
)

var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Inspect and edit logged entries",
}

var listDate string

var entryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List one day's entries by meal",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDateOrToday(listDate)
		if err != nil {
			return err
		}
		return withRepo(cmd, func(ctx context.Context, repo *service.Repository) error {
			entries, err := repo.EntriesForDate(ctx, date)
			if err != nil {
				return err
			}
			printEntries(cmd, entries)
			return nil
		})
	},
}

var entryAllCmd = &cobra.Command{
	Use:   "all",
	Short: "List every entry, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepo(cmd, func(ctx context.Context, repo *service.Repository) error {
			entries, err := repo.AllEntries(ctx)
			if err != nil {
				return err
			}
			printEntries(cmd, entries)
			return nil
		})
	},
}

var entryShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("entry id", args[0])
		if err != nil {
			return err
		}
		return withRepo(cmd, func(ctx context.Context, repo *service.Repository) error {
			e, found, err := repo.EntryByID(ctx, id)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("entry %d: %w", id, service.ErrNotFound)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID: %d\n", e.ID)
			fmt.Fprintf(out, "Date: %s\n", e.DateString())
			fmt.Fprintf(out, "Meal: %s\n", e.Meal)
			fmt.Fprintf(out, "Name: %s\n", e.FoodName)
			fmt.Fprintf(out, "Quantity: %s %s\n", formatAmount(e.Quantity), e.Unit)
			fmt.Fprintf(out, "Calories: %s\n", formatAmount(e.Calories))
			fmt.Fprintf(out, "Protein: %.1f\n", e.ProteinG)
			if e.FoodItemID != nil {
				fmt.Fprintf(out, "Catalog ID: %d\n", *e.FoodItemID)
			}
			fmt.Fprintf(out, "Notes: %s\n", e.Notes)
			return nil
		})
	},
}

var (
	updateName     string
	updateQuantity float64
	updateUnit     string
	updateCalories float64
	updateProtein  float64
	updateMeal     string
	updateDate     string
	updateNotes    string
)

var entryUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update fields of an entry (catalog usage counts are not changed)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("entry id", args[0])
		if err != nil {
			return err
		}
		return withRepo(cmd, func(ctx context.Context, repo *service.Repository) error {
			e, found, err := repo.EntryByID(ctx, id)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("entry %d: %w", id, service.ErrNotFound)
			}
			if err := applyEntryUpdates(cmd, &e); err != nil {
				return err
			}
			if err := repo.UpdateEntry(ctx, e); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated entry %d\n", id)
			return nil
		})
	},
}

func applyEntryUpdates(cmd *cobra.Command, e *model.LoggedEntry) error {
	flags := cmd.Flags()
	changed := 0
	if flags.Changed("name") {
		e.FoodName = updateName
		changed++
	}
	if flags.Changed("qty") {
		e.Quantity = updateQuantity
		changed++
	}
	if flags.Changed("unit") {
		e.Unit = updateUnit
		changed++
	}
	if flags.Changed("calories") {
		e.Calories = updateCalories
		changed++
	}
	if flags.Changed("protein") {
		e.ProteinG = updateProtein
		changed++
	}
	if flags.Changed("meal") {
		meal, err := model.ParseMeal(updateMeal)
		if err != nil {
			return err
		}
		e.Meal = meal
		changed++
	}
	if flags.Changed("date") {
		d, err := model.ParseDate(updateDate)
		if err != nil {
			return err
		}
		e.Date = d
		changed++
	}
	if flags.Changed("notes") {
		e.Notes = updateNotes
		changed++
	}
	if changed == 0 {
		return fmt.Errorf("nothing to update; pass at least one field flag")
	}
	return nil
}

var entryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an entry (catalog usage counts are not changed)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("entry id", args[0])
		if err != nil {
			return err
		}
		return withRepo(cmd, func(ctx context.Context, repo *service.Repository) error {
			if err := repo.DeleteEntry(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted entry %s\n", strconv.FormatInt(id, 10))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(entryCmd)
	entryCmd.AddCommand(entryListCmd, entryAllCmd, entryShowCmd, entryUpdateCmd, entryDeleteCmd)

	entryListCmd.Flags().StringVar(&listDate, "date", "", "Date YYYY-MM-DD (default today)")

	entryUpdateCmd.Flags().StringVar(&updateName, "name", "", "Food name")
	entryUpdateCmd.Flags().Float64Var(&updateQuantity, "qty", 0, "Quantity")
	entryUpdateCmd.Flags().StringVar(&updateUnit, "unit", "", "Unit: "+strings.Join(service.AvailableUnits, ", "))
	entryUpdateCmd.Flags().Float64Var(&updateCalories, "calories", 0, "Total calories")
	entryUpdateCmd.Flags().Float64Var(&updateProtein, "protein", 0, "Total protein grams")
	entryUpdateCmd.Flags().StringVar(&updateMeal, "meal", "", "Meal: breakfast, lunch, dinner, snacks")
	entryUpdateCmd.Flags().StringVar(&updateDate, "date", "", "Date YYYY-MM-DD")
	entryUpdateCmd.Flags().StringVar(&updateNotes, "notes", "", "Notes")
}
