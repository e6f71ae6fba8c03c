package infra

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/focusd/site_mon/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.ErrBusy

const eventsDBName = "events.db"

// EncryptedEventLog implements domain.EventReporter using a SQLCipher
// encrypted SQLite database. Ignored-block events are private by nature
// (they are a browsing trail), hence the encryption at rest.
type EncryptedEventLog struct {
	db     *sql.DB
	dbPath string
}

// NewEncryptedEventLog opens (or creates) the encrypted event database.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewEncryptedEventLog(dataDir string, key []byte) (*EncryptedEventLog, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, eventsDBName)
	keyHex := hex.EncodeToString(key)

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	log := &EncryptedEventLog{db: db, dbPath: dbPath}
	if err := log.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return log, nil
}

func (l *EncryptedEventLog) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ignored_blocks (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		message TEXT NOT NULL,
		occurred_at INTEGER NOT NULL
	);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Report persists one ignored-block event. Best-effort contract: callers
// ignore the returned error.
func (l *EncryptedEventLog) Report(ev domain.IgnoredBlockEvent) error {
	_, err := l.db.Exec(`
		INSERT OR REPLACE INTO ignored_blocks (id, url, message, occurred_at)
		VALUES (?, ?, ?, ?)`,
		ev.ID, ev.URL, ev.Message, ev.OccurredAt.Unix(),
	)
	return err
}

// Recent returns up to limit most recent events, newest first.
func (l *EncryptedEventLog) Recent(limit int) ([]domain.IgnoredBlockEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := l.db.Query(`
		SELECT id, url, message, occurred_at
		FROM ignored_blocks
		ORDER BY occurred_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.IgnoredBlockEvent
	for rows.Next() {
		var ev domain.IgnoredBlockEvent
		var ts int64
		if err := rows.Scan(&ev.ID, &ev.URL, &ev.Message, &ts); err != nil {
			return nil, err
		}
		ev.OccurredAt = time.Unix(ts, 0)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Close releases the database connection.
func (l *EncryptedEventLog) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// Path returns the database file path (for tests).
func (l *EncryptedEventLog) Path() string { return l.dbPath }

// Ensure EncryptedEventLog implements domain.EventReporter.
var _ domain.EventReporter = (*EncryptedEventLog)(nil)
