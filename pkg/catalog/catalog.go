// Package catalog persists chain-device records in SQLite so devices
// survive across command invocations and ids are never reused.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/bootchain/loopbackx/pkg/errors"
	_ "modernc.org/sqlite"
)

// Catalog provides database operations for device records.
type Catalog struct {
	db *sql.DB
}

// Open opens (creating if needed) the catalog database at dbPath.
func Open(dbPath string) (*Catalog, error) {
	slog.Info("catalog_init", "db_path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		slog.Error("catalog_open_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to open catalog")
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		slog.Error("catalog_schema_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to create schema")
	}

	slog.Info("catalog_ready", "db_path", dbPath)
	return &Catalog{db: db}, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Create inserts a device record under its pre-allocated id.
func (c *Catalog) Create(dev *Device) error {
	slog.Info("catalog_create_device", "name", dev.Name, "device_id", dev.ID)

	if len(dev.Sources) == 0 || len(dev.Sources) > 4 {
		return fmt.Errorf("invalid source count: %d", len(dev.Sources))
	}

	srcs := make([]sql.NullString, 4)
	for i, s := range dev.Sources {
		srcs[i] = sql.NullString{String: s, Valid: true}
	}

	query := `
		INSERT INTO devices (id, name, source1, source2, source3, source4)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := c.db.Exec(query, dev.ID, dev.Name, srcs[0], srcs[1], srcs[2], srcs[3])
	if err != nil {
		slog.Error("catalog_insert_failed", "name", dev.Name, "error", err)
		return errors.Wrap(err, "failed to insert device")
	}

	slog.Info("catalog_device_created", "name", dev.Name, "device_id", dev.ID)
	return nil
}

// GetByName retrieves a device record by name. A missing name returns
// (nil, nil).
func (c *Catalog) GetByName(name string) (*Device, error) {
	query := `
		SELECT id, name, source1, source2, source3, source4, created_at
		FROM devices WHERE name = ?
	`
	dev, err := scanDevice(c.db.QueryRow(query, name))
	if err == sql.ErrNoRows {
		slog.Info("catalog_device_not_found", "name", name)
		return nil, nil
	}
	if err != nil {
		slog.Error("catalog_query_failed", "name", name, "error", err)
		return nil, errors.Wrap(err, "failed to query device")
	}
	return dev, nil
}

// List retrieves every device record in id order.
func (c *Catalog) List() ([]*Device, error) {
	query := `
		SELECT id, name, source1, source2, source3, source4, created_at
		FROM devices ORDER BY id
	`
	rows, err := c.db.Query(query)
	if err != nil {
		slog.Error("catalog_list_failed", "error", err)
		return nil, errors.Wrap(err, "failed to list devices")
	}
	defer rows.Close()

	var devices []*Device
	for rows.Next() {
		dev, err := scanDevice(rows)
		if err != nil {
			slog.Error("catalog_scan_failed", "error", err)
			return nil, errors.Wrap(err, "failed to scan row")
		}
		devices = append(devices, dev)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}

	slog.Info("catalog_list_complete", "device_count", len(devices))
	return devices, nil
}

// Delete removes a device record by name.
func (c *Catalog) Delete(name string) error {
	slog.Info("catalog_delete_device", "name", name)

	result, err := c.db.Exec(`DELETE FROM devices WHERE name = ?`, name)
	if err != nil {
		slog.Error("catalog_delete_failed", "name", name, "error", err)
		return errors.Wrap(err, "failed to delete device")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return fmt.Errorf("device not found: %s", name)
	}

	slog.Info("catalog_device_deleted", "name", name)
	return nil
}

// AllocateNextDeviceID hands out the next identity and advances the
// sequence. Ids are strictly increasing for the lifetime of the catalog.
func (c *Catalog) AllocateNextDeviceID(ctx context.Context) (uint64, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("catalog_begin_tx_failed", "error", err)
		return 0, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var nextID uint64
	err = tx.QueryRowContext(ctx, "SELECT next_device_id FROM device_sequence WHERE id = 1").Scan(&nextID)
	if err != nil {
		slog.Error("catalog_sequence_query_failed", "error", err)
		return 0, errors.Wrap(err, "failed to query device sequence")
	}

	_, err = tx.ExecContext(ctx, "UPDATE device_sequence SET next_device_id = ? WHERE id = 1", nextID+1)
	if err != nil {
		slog.Error("catalog_sequence_update_failed", "error", err)
		return 0, errors.Wrap(err, "failed to update device sequence")
	}

	if err := tx.Commit(); err != nil {
		slog.Error("catalog_commit_failed", "error", err)
		return 0, errors.Wrap(err, "failed to commit transaction")
	}

	slog.Info("catalog_allocated_device_id", "device_id", nextID, "next_available", nextID+1)
	return nextID, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*Device, error) {
	var dev Device
	var srcs [4]sql.NullString

	err := row.Scan(&dev.ID, &dev.Name, &srcs[0], &srcs[1], &srcs[2], &srcs[3], &dev.CreatedAt)
	if err != nil {
		return nil, err
	}

	for _, s := range srcs {
		if s.Valid {
			dev.Sources = append(dev.Sources, s.String)
		}
	}
	return &dev, nil
}
