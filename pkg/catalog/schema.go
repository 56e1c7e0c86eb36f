package catalog

// Schema defines the SQLite schema for the device catalog. Devices carry
// their id explicitly (allocated from device_sequence, never AUTOINCREMENT)
// so identities stay strictly increasing across process lifetimes and are
// never reused after deletion.
const Schema = `
CREATE TABLE IF NOT EXISTS devices (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    source1 TEXT NOT NULL,
    source2 TEXT,
    source3 TEXT,
    source4 TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_devices_name ON devices(name);

CREATE TABLE IF NOT EXISTS device_sequence (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    next_device_id INTEGER NOT NULL DEFAULT 0
);

INSERT OR IGNORE INTO device_sequence (id, next_device_id) VALUES (1, 0);
`

// Device is one persisted chain-device record.
type Device struct {
	ID        uint64
	Name      string
	Sources   []string
	CreatedAt string
}
