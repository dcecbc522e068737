package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"voicenav/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS scopes (
	scope      TEXT PRIMARY KEY,
	active     INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS activation_log (
	id     TEXT PRIMARY KEY,
	scope  TEXT NOT NULL,
	active INTEGER NOT NULL,
	at     TEXT NOT NULL
);
`

// Store persists per-scope activation in sqlite and answers reads from
// an in-memory cache. The initial cache load runs in the background;
// every accessor waits for it, so a read that races startup blocks
// instead of reporting a scope inactive before the rows arrived.
type Store struct {
	db    *sql.DB
	ready chan struct{}

	mu      sync.RWMutex
	active  map[string]bool
	loadErr error
}

// Open opens (creating if needed) the store at path and starts the
// background load.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	// Single writer keeps sqlite happy under concurrent goroutines.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create session schema: %w", err)
	}

	s := &Store{
		db:     db,
		ready:  make(chan struct{}),
		active: make(map[string]bool),
	}
	go s.load()
	return s, nil
}

// load populates the cache from disk and opens the ready gate.
func (s *Store) load() {
	defer close(s.ready)

	rows, err := s.db.Query(`SELECT scope, active FROM scopes`)
	if err != nil {
		s.mu.Lock()
		s.loadErr = fmt.Errorf("load scopes: %w", err)
		s.mu.Unlock()
		return
	}
	defer rows.Close()

	loaded := 0
	for rows.Next() {
		var scope string
		var active int
		if err := rows.Scan(&scope, &active); err != nil {
			s.mu.Lock()
			s.loadErr = fmt.Errorf("scan scope row: %w", err)
			s.mu.Unlock()
			return
		}
		if active != 0 {
			s.mu.Lock()
			s.active[scope] = true
			s.mu.Unlock()
			loaded++
		}
	}
	if err := rows.Err(); err != nil {
		s.mu.Lock()
		s.loadErr = fmt.Errorf("iterate scope rows: %w", err)
		s.mu.Unlock()
		return
	}
	logging.Session("loaded %d active scopes", loaded)
}

// await blocks until the initial load finished or ctx is done.
func (s *Store) await(ctx context.Context) error {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// IsActive reports whether voice control is on for the scope.
func (s *Store) IsActive(ctx context.Context, scope string) (bool, error) {
	if err := s.await(ctx); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active[scope], nil
}

// SetActive switches a scope on or off, durably.
func (s *Store) SetActive(ctx context.Context, scope string, active bool) error {
	if err := s.await(ctx); err != nil {
		return err
	}
	if scope == "" {
		return fmt.Errorf("empty scope")
	}

	now := time.Now().UTC().Format(time.RFC3339)
	val := 0
	if active {
		val = 1
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scopes (scope, active, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(scope) DO UPDATE SET active = excluded.active, updated_at = excluded.updated_at`,
		scope, val, now); err != nil {
		return fmt.Errorf("upsert scope: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO activation_log (id, scope, active, at) VALUES (?, ?, ?, ?)`,
		uuid.New().String(), scope, val, now); err != nil {
		return fmt.Errorf("log activation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.mu.Lock()
	if active {
		s.active[scope] = true
	} else {
		delete(s.active, scope)
	}
	s.mu.Unlock()

	logging.Session("scope %q active=%t", scope, active)
	return nil
}

// ActiveScopes returns every active scope, sorted.
func (s *Store) ActiveScopes(ctx context.Context) ([]string, error) {
	if err := s.await(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	scopes := make([]string, 0, len(s.active))
	for scope := range s.active {
		scopes = append(scopes, scope)
	}
	s.mu.RUnlock()
	sort.Strings(scopes)
	return scopes, nil
}

// Close closes the database. Callers should be done with the store.
func (s *Store) Close() error {
	return s.db.Close()
}
