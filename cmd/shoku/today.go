package shoku

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/p42rthicle/shoku/internal/service"
)

var todayDate string

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show the day's entries, totals, and remaining targets",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDateOrToday(todayDate)
		if err != nil {
			return err
		}
		return withRepo(cmd, func(ctx context.Context, repo *service.Repository) error {
			status, err := repo.DayStatus(ctx, date)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Date: %s\n", status.Date)
			fmt.Fprintf(out, "Intake: %.0f kcal | P %.1fg\n", status.TotalCalories, status.TotalProteinG)
			fmt.Fprintf(out, "Target: %.0f kcal | P %.1fg\n", status.Targets.Calories, status.Targets.ProteinG)
			fmt.Fprintf(out, "Remaining: %.0f kcal | P %.1fg\n", status.RemainingCalories, status.RemainingProteinG)
			if len(status.Entries) > 0 {
				fmt.Fprintln(out)
				printEntries(cmd, status.Entries)
			}
			return nil
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show daily totals, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepo(cmd, func(ctx context.Context, repo *service.Repository) error {
			summaries, err := repo.Summaries(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "DATE\tKCAL\tP")
			for _, s := range summaries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.0f\t%.1f\n", s.Date.Format("2006-01-02"), s.TotalCalories, s.TotalProteinG)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(todayCmd, historyCmd)
	todayCmd.Flags().StringVar(&todayDate, "date", "", "Date YYYY-MM-DD (default today)")
}
