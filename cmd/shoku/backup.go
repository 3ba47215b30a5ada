package shoku

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/p42rthicle/shoku/internal/service"
)

var (
	backupOut    string
	backupDir    string
	restoreForce bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot and restore the food ledger",
}

// backupDirectory defaults to a backups/ folder next to the active database.
func backupDirectory() (string, error) {
	if backupDir != "" {
		return backupDir, nil
	}
	path, err := resolveDBPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(path), "backups"), nil
}

func describeBackup(info service.BackupInfo) string {
	return fmt.Sprintf("schema v%d, %d foods, %d entries", info.SchemaVersion, info.FoodItems, info.Entries)
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Write a snapshot of the ledger and catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := backupOut
		if out == "" {
			dir, err := backupDirectory()
			if err != nil {
				return err
			}
			out = filepath.Join(dir, "shoku-"+time.Now().Format("20060102-150405")+".db")
		}
		return withDB(func(sqldb *sql.DB) error {
			info, err := service.CreateBackup(cmd.Context(), sqldb, out)
			if err != nil {
				return err
			}
			logger.Debug("backup created", "path", info.Path, "entries", info.Entries)
			fmt.Fprintf(cmd.OutOrStdout(), "Created backup: %s (%s)\n", info.Path, describeBackup(info))
			fmt.Fprintf(cmd.OutOrStdout(), "sha256 %s\n", info.Checksum)
			return nil
		})
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots and whether each can be restored",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := backupDirectory()
		if err != nil {
			return err
		}
		items, err := service.ListBackups(cmd.Context(), dir)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(items) == 0 {
			fmt.Fprintf(w, "No backups in %s\n", dir)
			return nil
		}
		fmt.Fprintln(w, "CREATED\tFILE\tCONTENTS")
		for _, it := range items {
			contents := describeBackup(it)
			if it.Problem != "" {
				contents = "unusable: " + it.Problem
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", it.CreatedAt.Format("2006-01-02 15:04"), it.Path, contents)
		}
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <backup.db>",
	Short: "Replace the database with a validated snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := resolveDBPath()
		if err != nil {
			return err
		}
		info, err := service.RestoreBackup(cmd.Context(), args[0], target, restoreForce)
		if err != nil {
			return err
		}
		logger.Debug("backup restored", "from", info.Path, "to", target, "schema", info.SchemaVersion)
		fmt.Fprintf(cmd.OutOrStdout(), "Restored %s into %s (%s)\n", info.Path, target, describeBackup(info))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupCreateCmd, backupListCmd, backupRestoreCmd)

	backupCmd.PersistentFlags().StringVar(&backupDir, "dir", "", "Backup directory (default: backups/ next to the database)")
	backupCreateCmd.Flags().StringVarP(&backupOut, "out", "o", "", "Snapshot file path (overrides --dir)")
	backupRestoreCmd.Flags().BoolVar(&restoreForce, "force", false, "Overwrite an existing database")
}
