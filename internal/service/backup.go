package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/p42rthicle/shoku/internal/db"
)

// BackupInfo describes a snapshot file and the ledger it holds.
type BackupInfo struct {
	Path          string    `json:"path"`
	Checksum      string    `json:"checksum"`
	CreatedAt     time.Time `json:"created_at"`
	SizeBytes     int64     `json:"size_bytes"`
	SchemaVersion int       `json:"schema_version"`
	FoodItems     int       `json:"food_items"`
	Entries       int       `json:"entries"`
	// Problem is set by ListBackups for files that could not be restored.
	Problem string `json:"problem,omitempty"`
}

var backupTables = []string{"food_items", "logged_entries"}

// CreateBackup writes a consistent snapshot of sqldb to outPath with a .sha256 sidecar.
func CreateBackup(ctx context.Context, sqldb *sql.DB, outPath string) (BackupInfo, error) {
	if strings.TrimSpace(outPath) == "" {
		return BackupInfo{}, invalid("backup output path", "is required")
	}
	if _, err := os.Stat(outPath); err == nil {
		return BackupInfo{}, fmt.Errorf("backup %s already exists", outPath)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return BackupInfo{}, fmt.Errorf("create backup directory: %w", err)
	}
	if _, err := sqldb.ExecContext(ctx, `VACUUM INTO ?`, outPath); err != nil {
		return BackupInfo{}, storageErr("snapshot database", err)
	}
	sum, err := checksum(outPath)
	if err != nil {
		return BackupInfo{}, err
	}
	if err := os.WriteFile(outPath+".sha256", []byte(sum+"\n"), 0o644); err != nil {
		return BackupInfo{}, fmt.Errorf("write checksum file: %w", err)
	}
	return InspectBackup(ctx, outPath)
}

// InspectBackup opens path as a shoku database and reports its contents. Files
// whose sidecar checksum disagrees, that are not SQLite, that lack the ledger
// tables or that carry a schema newer than this build are rejected with
// ErrIncompatibleBackup.
func InspectBackup(ctx context.Context, path string) (BackupInfo, error) {
	if strings.TrimSpace(path) == "" {
		return BackupInfo{}, invalid("backup path", "is required")
	}
	st, err := os.Stat(path)
	if err != nil {
		return BackupInfo{}, fmt.Errorf("stat backup: %w", err)
	}
	if st.IsDir() {
		return BackupInfo{}, fmt.Errorf("%w: %s is a directory", ErrIncompatibleBackup, path)
	}
	info := BackupInfo{Path: path, CreatedAt: st.ModTime(), SizeBytes: st.Size()}

	if info.Checksum, err = verifySidecar(path); err != nil {
		return info, err
	}

	candidate, err := db.Open(path)
	if err != nil {
		return info, fmt.Errorf("%w: %v", ErrIncompatibleBackup, err)
	}
	defer candidate.Close()

	if err := readBackupContents(ctx, candidate, &info); err != nil {
		return info, err
	}
	return info, nil
}

func readBackupContents(ctx context.Context, candidate *sql.DB, info *BackupInfo) error {
	present := map[string]bool{}
	rows, err := candidate.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIncompatibleBackup, err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("%w: %v", ErrIncompatibleBackup, err)
		}
		present[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrIncompatibleBackup, err)
	}

	if !present["schema_migrations"] {
		return fmt.Errorf("%w: no schema version recorded", ErrIncompatibleBackup)
	}
	for _, table := range backupTables {
		if !present[table] {
			return fmt.Errorf("%w: missing table %s", ErrIncompatibleBackup, table)
		}
	}

	version, err := db.SchemaVersion(candidate)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIncompatibleBackup, err)
	}
	if version < 1 || version > db.LatestVersion() {
		return fmt.Errorf("%w: schema version %d, this build supports up to %d", ErrIncompatibleBackup, version, db.LatestVersion())
	}
	info.SchemaVersion = version

	if err := candidate.QueryRowContext(ctx, `SELECT COUNT(1) FROM food_items`).Scan(&info.FoodItems); err != nil {
		return fmt.Errorf("%w: count food items: %v", ErrIncompatibleBackup, err)
	}
	if err := candidate.QueryRowContext(ctx, `SELECT COUNT(1) FROM logged_entries`).Scan(&info.Entries); err != nil {
		return fmt.Errorf("%w: count entries: %v", ErrIncompatibleBackup, err)
	}
	return nil
}

// RestoreBackup replaces the database at dbPath with the snapshot at backupPath.
// The snapshot is validated first and rewritten through a live handle, so the
// target only changes once a complete copy exists. Older schemas are migrated
// to the current version after the swap.
func RestoreBackup(ctx context.Context, backupPath, dbPath string, force bool) (BackupInfo, error) {
	if strings.TrimSpace(backupPath) == "" || strings.TrimSpace(dbPath) == "" {
		return BackupInfo{}, invalid("", "backup path and db path are required")
	}
	if filepath.Clean(backupPath) == filepath.Clean(dbPath) {
		return BackupInfo{}, invalid("", "backup and target database are the same file")
	}
	if !force {
		if _, err := os.Stat(dbPath); err == nil {
			return BackupInfo{}, fmt.Errorf("target db already exists; use --force to overwrite")
		}
	}

	info, err := InspectBackup(ctx, backupPath)
	if err != nil {
		return info, err
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return info, fmt.Errorf("create db directory: %w", err)
	}
	staged, err := stageRestore(ctx, backupPath, filepath.Dir(dbPath))
	if err != nil {
		return info, err
	}
	if err := os.Rename(staged, dbPath); err != nil {
		_ = os.Remove(staged)
		return info, fmt.Errorf("replace database: %w", err)
	}

	restored, err := db.Open(dbPath)
	if err != nil {
		return info, err
	}
	defer restored.Close()
	if err := db.ApplyMigrations(restored); err != nil {
		return info, fmt.Errorf("migrate restored database: %w", err)
	}
	return info, nil
}

// stageRestore copies the snapshot into a fresh file next to the target.
func stageRestore(ctx context.Context, backupPath, dir string) (string, error) {
	tmp, err := os.CreateTemp(dir, ".shoku-restore-*.db")
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}
	staged := tmp.Name()
	_ = tmp.Close()

	candidate, err := db.Open(backupPath)
	if err != nil {
		_ = os.Remove(staged)
		return "", err
	}
	defer candidate.Close()
	// VACUUM INTO accepts an existing file only when it is empty.
	if _, err := candidate.ExecContext(ctx, `VACUUM INTO ?`, staged); err != nil {
		_ = os.Remove(staged)
		return "", storageErr("stage restored database", err)
	}
	return staged, nil
}

// ListBackups inspects every .db file in dir, newest first. Files that cannot
// be restored are listed with Problem set instead of failing the listing.
func ListBackups(ctx context.Context, dir string) ([]BackupInfo, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}
	out := make([]BackupInfo, 0, len(files))
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".db" {
			continue
		}
		info, err := InspectBackup(ctx, filepath.Join(dir, f.Name()))
		if err != nil {
			if !errors.Is(err, ErrIncompatibleBackup) {
				return nil, err
			}
			info.Problem = err.Error()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// verifySidecar returns the file's checksum, comparing it to path.sha256 when that exists.
func verifySidecar(path string) (string, error) {
	sum, err := checksum(path)
	if err != nil {
		return "", err
	}
	want, err := os.ReadFile(path + ".sha256")
	if errors.Is(err, os.ErrNotExist) {
		return sum, nil
	}
	if err != nil {
		return "", fmt.Errorf("read checksum file: %w", err)
	}
	if strings.TrimSpace(string(want)) != sum {
		return sum, fmt.Errorf("%w: checksum mismatch", ErrIncompatibleBackup)
	}
	return sum, nil
}

func checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for checksum: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
