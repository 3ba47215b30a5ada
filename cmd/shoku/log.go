package shoku

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/p42rthicle/shoku/internal/entryform"
	"github.com/p42rthicle/shoku/internal/model"
	"github.com/p42rthicle/shoku/internal/service"
)

var (
	logQuantity string
	logUnit     string
	logCalories string
	logProtein  string
	logMeal     string
	logDate     string
	logNotes    string
)

var logCmd = &cobra.Command{
	Use:   "log <food name>",
	Short: "Log a food you ate",
	Long: `Log a food you ate. Calories and protein are totals for the quantity.

When the food is already in your catalog and --calories/--protein are omitted,
they are scaled from the catalog's per-unit values (only in the catalog's unit).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDateOrToday(logDate)
		if err != nil {
			return err
		}
		name := strings.Join(args, " ")
		return withRepo(cmd, func(ctx context.Context, repo *service.Repository) error {
			form, err := fillLogForm(ctx, cmd, repo, name)
			if err != nil {
				return err
			}
			entry, err := form.Entry(date)
			if err != nil {
				return err
			}
			id, err := repo.LogEntry(ctx, entry)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged entry %d: %s %s %s (%.0f kcal, %.1fg protein)\n",
				id, formatAmount(entry.Quantity), entry.Unit, entry.FoodName, entry.Calories, entry.ProteinG)
			return nil
		})
	},
}

func fillLogForm(ctx context.Context, cmd *cobra.Command, repo *service.Repository, name string) (*entryform.Form, error) {
	flags := cmd.Flags()
	form := entryform.New()
	form.SetName(name)

	nutritionGiven := flags.Changed("calories") || flags.Changed("protein")
	catalogUnit := ""
	if !nutritionGiven {
		item, found, err := repo.Catalog().ByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("%q is not in your catalog yet; pass --calories and --protein", strings.TrimSpace(name))
		}
		form.Select(item)
		catalogUnit = form.Fields().Unit
	}

	if flags.Changed("unit") {
		form.SetUnit(service.NormalizeUnit(logUnit))
	}
	form.SetQuantity(logQuantity)
	if !nutritionGiven {
		b, ok := form.Baseline()
		if !ok {
			return nil, fmt.Errorf("catalog values for %q are per %s; pass --calories and --protein for other units", strings.TrimSpace(name), catalogUnit)
		}
		logger.Debug("scaled nutrition from catalog", "food", name, "unit", b.Unit, "quantity", logQuantity)
	} else {
		form.SetCalories(logCalories)
		form.SetProtein(logProtein)
	}

	meal, err := model.ParseMeal(logMeal)
	if err != nil {
		return nil, err
	}
	form.SetMeal(meal)
	form.SetNotes(logNotes)
	return form, nil
}

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.Flags().StringVar(&logQuantity, "qty", "1", "Quantity eaten")
	logCmd.Flags().StringVar(&logUnit, "unit", service.DefaultUnit, "Unit: "+strings.Join(service.AvailableUnits, ", "))
	logCmd.Flags().StringVar(&logCalories, "calories", "0", "Total calories for the quantity")
	logCmd.Flags().StringVar(&logProtein, "protein", "0", "Total protein grams for the quantity")
	logCmd.Flags().StringVar(&logMeal, "meal", string(model.MealBreakfast), "Meal: breakfast, lunch, dinner, snacks")
	logCmd.Flags().StringVar(&logDate, "date", "", "Date YYYY-MM-DD (default today)")
	logCmd.Flags().StringVar(&logNotes, "notes", "", "Optional notes")
}
