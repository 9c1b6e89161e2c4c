// Package history persists launches so frequently used entries can be
// offered again and ranked higher.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite"

	"github.com/ck-zhang/runner/internal/entry"
)

const schema = `
CREATE TABLE IF NOT EXISTS launches (
    grp TEXT NOT NULL,
    id TEXT NOT NULL,
    name TEXT NOT NULL,
    command TEXT NOT NULL,
    icon TEXT NOT NULL DEFAULT '',
    terminal INTEGER NOT NULL DEFAULT 0,
    container TEXT NOT NULL DEFAULT '',
    env TEXT NOT NULL DEFAULT '',
    count INTEGER NOT NULL DEFAULT 0,
    last_used INTEGER NOT NULL,
    PRIMARY KEY (grp, id)
);

CREATE INDEX IF NOT EXISTS idx_launches_rank ON launches(grp, count DESC, last_used DESC);
`

// DefaultPath is $XDG_DATA_HOME/runner/history.db.
func DefaultPath() string {
	return filepath.Join(xdg.DataHome, "runner", "history.db")
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("history path required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record bumps the launch count of e within group, inserting it on first use.
func (s *Store) Record(ctx context.Context, group string, e entry.Entry) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("history store not initialized")
	}
	if e.ID == "" {
		return fmt.Errorf("entry id required")
	}
	env := ""
	if len(e.Env) > 0 {
		b, err := json.Marshal(e.Env)
		if err != nil {
			return fmt.Errorf("encode env: %w", err)
		}
		env = string(b)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO launches (grp, id, name, command, icon, terminal, container, env, count, last_used)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(grp, id) DO UPDATE SET
			name = excluded.name,
			command = excluded.command,
			icon = excluded.icon,
			terminal = excluded.terminal,
			container = excluded.container,
			env = excluded.env,
			count = launches.count + 1,
			last_used = excluded.last_used
	`,
		group, e.ID, e.Name, e.Command, e.Icon, boolInt(e.Terminal), e.Container, env, s.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record launch %q: %w", e.ID, err)
	}
	return nil
}

// Top returns up to limit history entries for group, most used first.
func (s *Store) Top(ctx context.Context, group string, limit int) ([]entry.Entry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("history store not initialized")
	}
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, command, icon, terminal, container, env, count
		FROM launches
		WHERE grp = ?
		ORDER BY count DESC, last_used DESC, id
		LIMIT ?
	`, group, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []entry.Entry
	for rows.Next() {
		var (
			e        entry.Entry
			terminal int
			env      string
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Command, &e.Icon, &terminal, &e.Container, &env, &e.Uses); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if env != "" {
			if err := json.Unmarshal([]byte(env), &e.Env); err != nil {
				return nil, fmt.Errorf("decode env for %q: %w", e.ID, err)
			}
		}
		e.Terminal = terminal != 0
		e.Kind = entry.KindHistory
		e.Group = group
		e.Seq = len(out)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune keeps the keep most used entries of group and deletes the rest.
func (s *Store) Prune(ctx context.Context, group string, keep int) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("history store not initialized")
	}
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM launches
		WHERE grp = ? AND id NOT IN (
			SELECT id FROM launches WHERE grp = ?
			ORDER BY count DESC, last_used DESC, id
			LIMIT ?
		)
	`, group, group, keep)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}

// Uses returns the launch count of every recorded id in group.
func (s *Store) Uses(ctx context.Context, group string) (map[string]int, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("history store not initialized")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, count FROM launches WHERE grp = ?`, group)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		out[id] = n
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
