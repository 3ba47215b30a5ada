package shoku

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/p42rthicle/shoku/internal/service"
)

var doctorFix bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run data integrity checks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			report, err := service.RunDoctor(cmd.Context(), sqldb, doctorFix)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dangling catalog references: %d\n", report.DanglingFoodRefs)
			fmt.Fprintf(cmd.OutOrStdout(), "Non-positive quantities: %d\n", report.NonPositiveQuantity)
			fmt.Fprintf(cmd.OutOrStdout(), "Unused catalog foods: %d\n", report.UnusedFoodItems)
			if doctorFix {
				fmt.Fprintf(cmd.OutOrStdout(), "Fixed catalog references: %d\n", report.FixedFoodRefs)
				// Re-check after fixes so exit status reflects final state.
				report, err = service.RunDoctor(cmd.Context(), sqldb, false)
				if err != nil {
					return err
				}
			}
			if report.Issues() {
				return fmt.Errorf("doctor found integrity issues")
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Attempt safe auto-fixes")
}
