// Package auth holds the API-key store backed by SQLite and the request
// middleware that enforces it.
package auth

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DefaultKey is seeded when the users table is empty so a fresh deployment
// is usable before any real keys are issued.
const DefaultKey = "12345"

var tableNameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Store wraps the credential and audit database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the SQLite database under dataDir,
// applies the schema, and seeds the default key when no users exist.
func Open(dataDir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", filepath.Join(dataDir, "auth.db"))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// WAL and a busy timeout keep concurrent request logging from erroring.
	if _, err := db.Exec(`
		PRAGMA busy_timeout = 5000;
		PRAGMA journal_mode = WAL;
	`); err != nil {
		logger.Warn("sqlite pragma setup failed", slog.String("error", err.Error()))
	}

	s := &Store{db: db, logger: logger}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY,
		api_key TEXT UNIQUE,
		created_at TEXT,
		is_active INTEGER
	);

	CREATE TABLE IF NOT EXISTS access_logs (
		id INTEGER PRIMARY KEY,
		api_key TEXT,
		ip_address TEXT,
		endpoint TEXT,
		model_used TEXT,
		timestamp TEXT
	);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	var count int
	if err := s.db.QueryRow(`SELECT count(*) FROM users`).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		if _, err := s.db.Exec(
			`INSERT INTO users (api_key, created_at, is_active) VALUES (?, ?, 1)`,
			DefaultKey, time.Now().Format(time.RFC3339),
		); err != nil {
			return err
		}
		s.logger.Warn("no API keys found, created default key", slog.String("key", DefaultKey))
	}
	return nil
}

// ValidateKey reports whether key belongs to an active user.
func (s *Store) ValidateKey(ctx context.Context, key string) (bool, error) {
	var id int
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE api_key = ? AND is_active = 1`, key).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// CreateKey inserts and returns a fresh active API key.
func (s *Store) CreateKey(ctx context.Context) (string, error) {
	key := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (api_key, created_at, is_active) VALUES (?, ?, 1)`,
		key, time.Now().Format(time.RFC3339))
	if err != nil {
		return "", err
	}
	return key, nil
}

// LogAccess records one authenticated request in the audit table. Failures
// are logged but never surfaced; auditing must not block a download.
func (s *Store) LogAccess(ctx context.Context, key, ip, endpoint, model string) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO access_logs (api_key, ip_address, endpoint, model_used, timestamp) VALUES (?, ?, ?, ?, ?)`,
		key, ip, endpoint, model, time.Now().Format(time.RFC3339))
	if err != nil {
		s.logger.Error("access log insert failed", slog.String("error", err.Error()))
	}
}

// ListTables returns the names of all tables in the database.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// TableDump is the full contents of one table.
type TableDump struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// ErrBadTableName rejects table names outside [a-zA-Z0-9_]+.
var ErrBadTableName = fmt.Errorf("invalid table name")

// QueryTable dumps every row of the named table. The name is validated
// against an identifier pattern because it is interpolated into the query.
func (s *Store) QueryTable(ctx context.Context, table string) (*TableDump, error) {
	if !tableNameRe.MatchString(table) {
		return nil, ErrBadTableName
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %s`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	dump := &TableDump{Columns: cols, Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
			} else {
				row[c] = values[i]
			}
		}
		dump.Rows = append(dump.Rows, row)
	}
	return dump, rows.Err()
}

// DeleteRow removes one row by id from the named table.
func (s *Store) DeleteRow(ctx context.Context, table string, id int64) error {
	if !tableNameRe.MatchString(table) {
		return ErrBadTableName
	}
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table), id)
	return err
}
