package shoku

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize local shoku database",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveDBPath()
		if err != nil {
			return err
		}
		return withDB(func(*sql.DB) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized shoku database at %s\n", path)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
