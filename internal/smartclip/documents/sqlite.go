package documents

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Liu-design-beep/smartclip/common/retry"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const activeKey = "active_doc_title"

// SQLiteStore keeps documents in a SQLite database. Lines are stored as a
// JSON array per document.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at dbPath, applies pending
// migrations and seeds the default document when the store is empty.
func OpenSQLite(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("documents: open %s: %w", dbPath, err)
	}
	// One connection: SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("documents: %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.seed(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

type migration struct {
	version     int
	description string
	file        string
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     INTEGER PRIMARY KEY,
			applied_at  TIMESTAMP NOT NULL,
			description TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("documents: create schema_migrations: %w", err)
	}

	var current int
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("documents: read schema version: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("documents: list migrations: %w", err)
	}
	var pending []migration
	seen := make(map[int]string)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		num, desc, ok := strings.Cut(strings.TrimSuffix(name, ".sql"), "_")
		if !ok {
			continue
		}
		v, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		if prev, dup := seen[v]; dup {
			return fmt.Errorf("documents: duplicate migration version %04d: %s and %s", v, prev, name)
		}
		seen[v] = name
		if v > current {
			pending = append(pending, migration{version: v, description: desc, file: name})
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].version < pending[j].version })

	for _, m := range pending {
		body, err := migrationsFS.ReadFile(path.Join("migrations", m.file))
		if err != nil {
			return fmt.Errorf("documents: read migration %s: %w", m.file, err)
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("documents: begin migration %d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			tx.Rollback()
			return fmt.Errorf("documents: apply migration %d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, applied_at, description) VALUES (?, ?, ?)",
			m.version, time.Now().UTC(), m.description); err != nil {
			tx.Rollback()
			return fmt.Errorf("documents: record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("documents: commit migration %d: %w", m.version, err)
		}
		slog.Info("documents: applied migration", "version", fmt.Sprintf("%04d", m.version), "description", m.description)
	}
	return nil
}

func (s *SQLiteStore) seed(ctx context.Context) error {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n); err != nil {
		return fmt.Errorf("documents: count: %w", err)
	}
	if n > 0 {
		return nil
	}
	return s.write(ctx, "seed", func(tx *sql.Tx) error {
		if err := upsertLines(ctx, tx, DefaultTitle, []string{defaultLine}); err != nil {
			return err
		}
		return setActive(ctx, tx, DefaultTitle)
	})
}

// write runs fn in a transaction, retrying while the database is locked.
func (s *SQLiteStore) write(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	p := retry.Storage
	p.Retryable = isConflict
	return retry.Do(ctx, p, "documents."+op, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

func (s *SQLiteStore) AddContent(ctx context.Context, title, content, position string) (Placement, error) {
	if strings.TrimSpace(title) == "" {
		return Placement{}, ErrEmptyTitle
	}
	var p Placement
	err := s.write(ctx, "add", func(tx *sql.Tx) error {
		lines, ok, err := readLines(ctx, tx, title)
		if err != nil {
			return err
		}
		var out []string
		out, p = Insert(lines, content, position)
		p.Created = !ok
		return upsertLines(ctx, tx, title, out)
	})
	if err != nil {
		return Placement{}, fmt.Errorf("documents: add to %q: %w", title, err)
	}
	return p, nil
}

func (s *SQLiteStore) ClearDocument(ctx context.Context, title string) (bool, error) {
	var found bool
	err := s.write(ctx, "clear", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE documents SET lines = '[]', updated_at = CURRENT_TIMESTAMP WHERE title = ?", title)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		found = n > 0
		return err
	})
	if err != nil {
		return false, fmt.Errorf("documents: clear %q: %w", title, err)
	}
	return found, nil
}

func (s *SQLiteStore) SetActiveDocument(ctx context.Context, title string) (bool, error) {
	var found bool
	err := s.write(ctx, "activate", func(tx *sql.Tx) error {
		_, ok, err := readLines(ctx, tx, title)
		if err != nil || !ok {
			return err
		}
		found = true
		return setActive(ctx, tx, title)
	})
	if err != nil {
		return false, fmt.Errorf("documents: activate %q: %w", title, err)
	}
	return found, nil
}

func (s *SQLiteStore) Lines(ctx context.Context, title string) ([]string, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT lines FROM documents WHERE title = ?", title).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("documents: read %q: %w", title, err)
	}
	lines, err := decodeLines(raw)
	if err != nil {
		return nil, false, fmt.Errorf("documents: read %q: %w", title, err)
	}
	return lines, true, nil
}

func (s *SQLiteStore) Titles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT title FROM documents ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("documents: list titles: %w", err)
	}
	defer rows.Close()
	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("documents: list titles: %w", err)
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

// ActiveTitle returns the stored active title, or the oldest document when
// the stored one has gone.
func (s *SQLiteStore) ActiveTitle(ctx context.Context) (string, error) {
	var title string
	err := s.db.QueryRowContext(ctx, `
		SELECT d.title FROM settings st JOIN documents d ON d.title = st.value
		WHERE st.key = ?`, activeKey).Scan(&title)
	if err == nil {
		return title, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("documents: active title: %w", err)
	}
	err = s.db.QueryRowContext(ctx, "SELECT title FROM documents ORDER BY seq LIMIT 1").Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultTitle, nil
	}
	if err != nil {
		return "", fmt.Errorf("documents: active title: %w", err)
	}
	return title, nil
}

func readLines(ctx context.Context, tx *sql.Tx, title string) ([]string, bool, error) {
	var raw string
	err := tx.QueryRowContext(ctx, "SELECT lines FROM documents WHERE title = ?", title).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	lines, err := decodeLines(raw)
	return lines, err == nil, err
}

func upsertLines(ctx context.Context, tx *sql.Tx, title string, lines []string) error {
	if lines == nil {
		lines = []string{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (title, lines) VALUES (?, ?)
		ON CONFLICT(title) DO UPDATE SET lines = excluded.lines, updated_at = CURRENT_TIMESTAMP`,
		title, string(raw))
	return err
}

func setActive(ctx context.Context, tx *sql.Tx, title string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, activeKey, title)
	return err
}

func decodeLines(raw string) ([]string, error) {
	var lines []string
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, fmt.Errorf("decode lines: %w", err)
	}
	return lines, nil
}

// isConflict reports SQLITE_BUSY and "database is locked" errors.
func isConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
