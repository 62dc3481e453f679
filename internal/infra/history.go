package infra

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/netmon/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.ErrBusy

const historyDBName = "history.db"

// EncryptedHistory implements domain.HistoryStore using a SQLCipher
// encrypted SQLite database. Status messages can carry the account name,
// so the file is not kept in clear text.
type EncryptedHistory struct {
	db     *sql.DB
	dbPath string
}

// NewEncryptedHistory opens (or creates) the history database in dataDir.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewEncryptedHistory(dataDir string, key []byte) (*EncryptedHistory, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, historyDBName)
	keyHex := hex.EncodeToString(key)

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}

	// A wrong key only shows up on first access
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	h := &EncryptedHistory{db: db, dbPath: dbPath}
	if err := h.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return h, nil
}

// OpenHistory opens the history in dataDir, generating the key file on first use.
func OpenHistory(dataDir string) (*EncryptedHistory, error) {
	key, err := EnsureKey(NewFileKeyProvider(dataDir))
	if err != nil {
		return nil, fmt.Errorf("history key: %w", err)
	}
	return NewEncryptedHistory(dataDir, key)
}

func (h *EncryptedHistory) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS status_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at INTEGER NOT NULL,
		message TEXT NOT NULL
	);
	`
	_, err := h.db.Exec(schema)
	return err
}

// Append stores one event.
func (h *EncryptedHistory) Append(event domain.StatusEvent) error {
	at := event.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := h.db.Exec(`INSERT INTO status_events (at, message) VALUES (?, ?)`,
		at.UnixNano(), event.Message)
	return err
}

// Recent returns up to limit most recent events, oldest first.
func (h *EncryptedHistory) Recent(limit int) ([]domain.StatusEvent, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := h.db.Query(`
		SELECT at, message FROM (
			SELECT id, at, message FROM status_events ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.StatusEvent
	for rows.Next() {
		var at int64
		var msg string
		if err := rows.Scan(&at, &msg); err != nil {
			return nil, err
		}
		events = append(events, domain.StatusEvent{At: time.Unix(0, at), Message: msg})
	}
	return events, rows.Err()
}

// Prune keeps only the newest keep events.
func (h *EncryptedHistory) Prune(keep int) error {
	_, err := h.db.Exec(`
		DELETE FROM status_events WHERE id NOT IN (
			SELECT id FROM status_events ORDER BY id DESC LIMIT ?
		)`, keep)
	return err
}

// Path returns the database file path.
func (h *EncryptedHistory) Path() string {
	return h.dbPath
}

// Close releases the database connection.
func (h *EncryptedHistory) Close() error {
	if h.db != nil {
		return h.db.Close()
	}
	return nil
}

// Ensure EncryptedHistory implements domain.HistoryStore.
var _ domain.HistoryStore = (*EncryptedHistory)(nil)
