package shoku

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/p42rthicle/shoku/internal/service"
)

var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "Manage daily calorie and protein targets",
}

var targetGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show daily targets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepo(cmd, func(ctx context.Context, repo *service.Repository) error {
			targets, err := repo.Targets(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Calories: %s\n", formatAmount(targets.Calories))
			fmt.Fprintf(cmd.OutOrStdout(), "Protein: %s\n", formatAmount(targets.ProteinG))
			return nil
		})
	},
}

var (
	targetCalories float64
	targetProtein  float64
)

var targetSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set daily targets",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if !flags.Changed("calories") && !flags.Changed("protein") {
			return fmt.Errorf("pass --calories and/or --protein")
		}
		return withRepo(cmd, func(ctx context.Context, repo *service.Repository) error {
			if flags.Changed("calories") {
				if err := repo.SetCalorieTarget(ctx, targetCalories); err != nil {
					return err
				}
			}
			if flags.Changed("protein") {
				if err := repo.SetProteinTarget(ctx, targetProtein); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Targets saved")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(targetCmd)
	targetCmd.AddCommand(targetGetCmd, targetSetCmd)
	targetSetCmd.Flags().Float64Var(&targetCalories, "calories", 0, "Daily calorie target (> 0)")
	targetSetCmd.Flags().Float64Var(&targetProtein, "protein", 0, "Daily protein target in grams (> 0)")
}
