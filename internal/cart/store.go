// Package cart implements the selection store: the persistent set of packages
// the operator has claimed for deployment. Membership here is the single
// source of truth for derived claim state on candidates.
package cart

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fleetdeck/fleetdeck/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store implements service.SelectionStore on SQLite so the selection survives
// across CLI invocations.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	dbPath string
}

// NewStore opens (or creates) the selection store at the given path. Use
// ":memory:" for an ephemeral store.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("store path cannot be empty")
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}

	return &Store{
		db:     db,
		dbPath: dbPath,
		logger: slog.Default().With("component", "cart"),
	}, nil
}

// Migrate creates the schema if needed.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS selections (
			identity TEXT PRIMARY KEY,
			package_id TEXT NOT NULL,
			display_name TEXT NOT NULL,
			device_count INTEGER DEFAULT 0,
			added_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("failed to migrate selection store: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_selections_package ON selections(package_id)`)
	if err != nil {
		return fmt.Errorf("failed to create selection index: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add inserts an item and announces it at info level. Inserts are idempotent
// by identity, so re-claiming an item can never create a duplicate.
func (s *Store) Add(ctx context.Context, item service.SelectionItem) error {
	if err := s.insert(ctx, item); err != nil {
		return err
	}
	s.logger.Info("added to selection",
		"identity", item.Identity,
		"package", item.PackageID,
		"name", item.DisplayName)
	return nil
}

// AddSilently inserts an item without user-visible logging. Batch paths use
// this so a 200-item run doesn't produce 200 notifications.
func (s *Store) AddSilently(ctx context.Context, item service.SelectionItem) error {
	if err := s.insert(ctx, item); err != nil {
		return err
	}
	s.logger.Debug("added to selection silently", "identity", item.Identity)
	return nil
}

func (s *Store) insert(ctx context.Context, item service.SelectionItem) error {
	if item.Identity == "" {
		return fmt.Errorf("selection item identity cannot be empty")
	}
	addedAt := item.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO selections (identity, package_id, display_name, device_count, added_at)
		VALUES (?, ?, ?, ?, ?)`,
		item.Identity, item.PackageID, item.DisplayName, item.DeviceCount, addedAt)
	if err != nil {
		return fmt.Errorf("failed to insert selection: %w", err)
	}
	return nil
}

// Contains reports whether an identity is in the selection.
func (s *Store) Contains(ctx context.Context, identity string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM selections WHERE identity = ? OR package_id = ?`,
		identity, identity).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query selection: %w", err)
	}
	return count > 0, nil
}

// Snapshot returns current membership keyed by both identity and package id,
// for use by the claimed projection.
func (s *Store) Snapshot(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT identity, package_id FROM selections`)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot selection: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn("failed to close rows", "error", closeErr)
		}
	}()

	snapshot := make(map[string]struct{})
	for rows.Next() {
		var identity, packageID string
		if err := rows.Scan(&identity, &packageID); err != nil {
			return nil, fmt.Errorf("failed to scan selection row: %w", err)
		}
		snapshot[identity] = struct{}{}
		if packageID != "" {
			snapshot[packageID] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate selection rows: %w", err)
	}
	return snapshot, nil
}

// List returns all items ordered by insertion time.
func (s *Store) List(ctx context.Context) ([]service.SelectionItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identity, package_id, display_name, device_count, added_at
		FROM selections ORDER BY added_at, identity`)
	if err != nil {
		return nil, fmt.Errorf("failed to list selection: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn("failed to close rows", "error", closeErr)
		}
	}()

	var items []service.SelectionItem
	for rows.Next() {
		var item service.SelectionItem
		if err := rows.Scan(&item.Identity, &item.PackageID, &item.DisplayName, &item.DeviceCount, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan selection row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate selection rows: %w", err)
	}
	return items, nil
}

// Remove deletes an item by identity.
func (s *Store) Remove(ctx context.Context, identity string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM selections WHERE identity = ?`, identity)
	if err != nil {
		return fmt.Errorf("failed to remove selection: %w", err)
	}
	return nil
}

// Clear deletes all items.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM selections`)
	if err != nil {
		return fmt.Errorf("failed to clear selection: %w", err)
	}
	return nil
}

// Ensure Store implements the SelectionStore interface.
var _ service.SelectionStore = (*Store)(nil)
