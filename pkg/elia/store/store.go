// Package store provides the durable record store for Elia.
// A single elia.db SQLite file holds runtime configuration, content
// filters, per-user memory facts, the admin allow-list, and the
// append-only exchange log. Rolling conversation history is in-memory
// and deliberately not stored here.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver.
)

// Required configuration keys. Absence of any of these is a
// configuration fault, never silently defaulted at read time.
const (
	KeyPersonality = "personality"
	KeyReplyChance = "reply_chance"
	KeyModelID     = "model_id"
)

// Filter rule directions.
const (
	DirectionInput  = "input"
	DirectionOutput = "output"
)

// ErrKeyNotFound is returned when a configuration key has no row.
var ErrKeyNotFound = errors.New("config key not found")

// timeLayout is the fixed-width UTC timestamp format for stored rows.
// Every field is zero-padded, so the lexicographic ordering SQLite
// applies to TEXT columns is exactly chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

// schema is the DDL executed on every startup (idempotent via IF NOT EXISTS).
const schema = `
-- Runtime configuration (mutated by the dashboard, read per message).
CREATE TABLE IF NOT EXISTS config (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- Content filter patterns (direction: 'input' or 'output').
CREATE TABLE IF NOT EXISTS filters (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    pattern   TEXT NOT NULL,
    direction TEXT NOT NULL DEFAULT 'input'
);

-- Long-term facts per user, injected into every prompt for that user.
CREATE TABLE IF NOT EXISTS user_memory (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id    TEXT NOT NULL,
    fact       TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_user_memory_uid ON user_memory(user_id);

-- Users allowed to run privileged chat commands.
CREATE TABLE IF NOT EXISTS admins (
    user_id  TEXT PRIMARY KEY,
    added_at TEXT NOT NULL
);

-- Exchange log (append-only, one row per completed reply).
CREATE TABLE IF NOT EXISTS logs (
    id         TEXT PRIMARY KEY,
    speaker    TEXT NOT NULL,
    input      TEXT NOT NULL,
    output     TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_logs_created ON logs(created_at);
`

// seedDefaults are inserted only when the key does not exist yet, so a
// fresh database starts valid without masking later misconfiguration.
var seedDefaults = map[string]string{
	KeyPersonality: "You are Elia, a friendly chat companion. Keep replies short and conversational.",
	KeyReplyChance: "0.05",
	KeyModelID:     "llama3-70b-8192",
}

// FilterRule is a single content filter pattern.
type FilterRule struct {
	ID        int64
	Pattern   string
	Direction string
}

// MemoryFact is a durable per-user fact.
type MemoryFact struct {
	ID        int64
	UserID    string
	Fact      string
	CreatedAt time.Time
}

// ExchangeEntry is one row of the append-only exchange log.
type ExchangeEntry struct {
	ID        string
	Speaker   string
	Input     string
	Output    string
	CreatedAt time.Time
}

// Store wraps the SQLite database with the operations the orchestrator
// and the dashboard need. All reads observe fully-written values; the
// database is the sole arbiter of durability.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the database at the given path, enables WAL
// mode for concurrent read performance, creates the schema and seeds
// the required configuration keys on first run.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		path = "./data/elia.db"
	}
	if logger == nil {
		logger = slog.Default()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory %q: %w", dir, err)
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{db: db, logger: logger.With("component", "store")}
	if err := s.seed(); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed config defaults: %w", err)
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying connection for callers that need raw access.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) seed() error {
	for key, value := range seedDefaults {
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO config (key, value) VALUES (?, ?)`, key, value); err != nil {
			return err
		}
	}
	return nil
}

// ---------- Configuration ----------

// GetConfig returns the value for a configuration key.
// Returns ErrKeyNotFound when the key has no row.
func (s *Store) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("read config %q: %w", key, err)
	}
	return value, nil
}

// SetConfig replaces the value for a configuration key. The write is
// visible to the next read; message evaluation never caches it.
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO config (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("write config %q: %w", key, err)
	}
	return nil
}

// AllConfig returns the full configuration map for display.
func (s *Store) AllConfig(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM config ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list config: %w", err)
	}
	defer rows.Close()

	cfg := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		cfg[k] = v
	}
	return cfg, rows.Err()
}

// ---------- Filter rules ----------

// AddFilter inserts a filter pattern for the given direction.
// Duplicates are allowed; they are harmless but wasteful.
func (s *Store) AddFilter(ctx context.Context, pattern, direction string) error {
	if direction != DirectionInput && direction != DirectionOutput {
		return fmt.Errorf("invalid filter direction %q", direction)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO filters (pattern, direction) VALUES (?, ?)`, pattern, direction)
	if err != nil {
		return fmt.Errorf("add filter: %w", err)
	}
	return nil
}

// DeleteFilter removes a filter rule by id.
func (s *Store) DeleteFilter(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM filters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete filter %d: %w", id, err)
	}
	return nil
}

// DeleteFilterByPattern removes every rule matching pattern+direction.
// Used by the /filter remove chat command, which has no ids to offer.
func (s *Store) DeleteFilterByPattern(ctx context.Context, pattern, direction string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM filters WHERE pattern = ? AND direction = ?`, pattern, direction)
	if err != nil {
		return 0, fmt.Errorf("delete filter %q: %w", pattern, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Filters returns the patterns for one direction, read fresh per message.
func (s *Store) Filters(ctx context.Context, direction string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pattern FROM filters WHERE direction = ?`, direction)
	if err != nil {
		return nil, fmt.Errorf("list %s filters: %w", direction, err)
	}
	defer rows.Close()

	var patterns []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// AllFilters returns every rule for the dashboard.
func (s *Store) AllFilters(ctx context.Context) ([]FilterRule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, pattern, direction FROM filters ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list filters: %w", err)
	}
	defer rows.Close()

	var rules []FilterRule
	for rows.Next() {
		var r FilterRule
		if err := rows.Scan(&r.ID, &r.Pattern, &r.Direction); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// ---------- Memory facts ----------

// AddFact appends a memory fact for a user.
func (s *Store) AddFact(ctx context.Context, userID, fact string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_memory (user_id, fact, created_at) VALUES (?, ?, ?)`,
		userID, fact, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("add fact: %w", err)
	}
	return nil
}

// Facts returns all facts for a user in insertion order.
func (s *Store) Facts(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT fact FROM user_memory WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list facts for %q: %w", userID, err)
	}
	defer rows.Close()

	var facts []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// AllFacts returns every stored fact for the dashboard memory view.
func (s *Store) AllFacts(ctx context.Context) ([]MemoryFact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, fact, created_at FROM user_memory ORDER BY user_id, id`)
	if err != nil {
		return nil, fmt.Errorf("list facts: %w", err)
	}
	defer rows.Close()

	var facts []MemoryFact
	for rows.Next() {
		var f MemoryFact
		var created string
		if err := rows.Scan(&f.ID, &f.UserID, &f.Fact, &created); err != nil {
			return nil, err
		}
		f.CreatedAt = parseTime(created)
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// ---------- Admin allow-list ----------

// AddAdmin grants a user privileged command access.
func (s *Store) AddAdmin(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO admins (user_id, added_at) VALUES (?, ?)`,
		userID, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("add admin: %w", err)
	}
	return nil
}

// RemoveAdmin revokes privileged command access.
func (s *Store) RemoveAdmin(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM admins WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("remove admin: %w", err)
	}
	return nil
}

// IsAdmin reports whether a user may run privileged commands.
func (s *Store) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM admins WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check admin %q: %w", userID, err)
	}
	return n > 0, nil
}

// Admins returns the full allow-list.
func (s *Store) Admins(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM admins ORDER BY added_at`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ---------- Exchange log ----------

// AppendExchange writes one exchange log entry. Entries are never
// mutated or deleted by the message pipeline.
func (s *Store) AppendExchange(ctx context.Context, speaker, input, output string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (id, speaker, input, output, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), speaker, input, output, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("append exchange: %w", err)
	}
	return nil
}

// RecentExchanges returns the newest entries first, up to limit.
func (s *Store) RecentExchanges(ctx context.Context, limit int) ([]ExchangeEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, speaker, input, output, created_at FROM logs
		 ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list exchanges: %w", err)
	}
	defer rows.Close()

	var entries []ExchangeEntry
	for rows.Next() {
		var e ExchangeEntry
		var created string
		if err := rows.Scan(&e.ID, &e.Speaker, &e.Input, &e.Output, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTime(created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountExchanges returns the total number of log rows.
func (s *Store) CountExchanges(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM logs`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count exchanges: %w", err)
	}
	return n, nil
}

// PruneExchanges deletes log entries older than the cutoff and returns
// the number of rows removed. Called by the retention job, never by the
// message pipeline.
func (s *Store) PruneExchanges(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM logs WHERE created_at < ?`, formatTime(olderThan))
	if err != nil {
		return 0, fmt.Errorf("prune exchanges: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
