package infra

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.ErrBusy

const (
	storeDBName   = "shield.db"
	schemaVersion = "1"
)

// EncryptedStore implements domain.KeyValueStore using a SQLCipher encrypted
// SQLite database. It is the external source the snapshot keys live in.
type EncryptedStore struct {
	db     *sql.DB
	dbPath string
}

// NewEncryptedStore opens (or creates) the encrypted store in dataDir.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewEncryptedStore(dataDir string, key []byte) (*EncryptedStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, storeDBName)
	keyHex := hex.EncodeToString(key)

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096&_busy_timeout=5000", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}

	// Ping does not touch pages, so a wrong key only surfaces on the first query.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	s := &EncryptedStore{db: db, dbPath: dbPath}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables (wrong key?): %w", err)
	}
	return s, nil
}

func (s *EncryptedStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', ?)`, schemaVersion)
	return err
}

// Get returns the value for key and whether it exists.
func (s *EncryptedStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores a value.
func (s *EncryptedStore) Set(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO kv (key, value, updated_at) VALUES (?, ?, ?)`,
		key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

// UpdatedAt returns when key was last written, or the zero time if absent.
func (s *EncryptedStore) UpdatedAt(key string) (time.Time, error) {
	var unix int64
	err := s.db.QueryRow(`SELECT updated_at FROM kv WHERE key = ?`, key).Scan(&unix)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(unix, 0), nil
}

// Path returns the database file path.
func (s *EncryptedStore) Path() string {
	return s.dbPath
}

// Close releases the database connection.
func (s *EncryptedStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// OpenStore resolves the key for dataDir and opens the encrypted store.
func OpenStore(dataDir string) (*EncryptedStore, error) {
	key, err := EnsureKey(ResolveKeyProvider(dataDir))
	if err != nil {
		return nil, fmt.Errorf("failed to get store key: %w", err)
	}
	return NewEncryptedStore(dataDir, key)
}

var _ domain.KeyValueStore = (*EncryptedStore)(nil)
