package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Entry is one recorded top-level input and what it produced.
type Entry struct {
	ID        int64
	Session   string
	Origin    string // file name, "-e" or "<repl>"
	Source    string
	Digest    string // BLAKE3 of Source, filled in by Record when empty
	Output    string
	Error     string
	CreatedAt time.Time
}

type dialect struct {
	schema   string
	numbered bool // $1, $2 placeholders instead of ?
}

var dialects = map[string]dialect{
	"sqlite3": {schema: `CREATE TABLE IF NOT EXISTS transcript (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session TEXT NOT NULL,
	origin TEXT NOT NULL,
	source TEXT NOT NULL,
	digest TEXT NOT NULL,
	output TEXT NOT NULL,
	error TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
)`},
	"mysql": {schema: `CREATE TABLE IF NOT EXISTS transcript (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	session VARCHAR(64) NOT NULL,
	origin VARCHAR(255) NOT NULL,
	source TEXT NOT NULL,
	digest CHAR(64) NOT NULL,
	output TEXT NOT NULL,
	error TEXT NOT NULL,
	created_at DATETIME(6) NOT NULL
)`},
	"postgres": {schema: `CREATE TABLE IF NOT EXISTS transcript (
	id BIGSERIAL PRIMARY KEY,
	session TEXT NOT NULL,
	origin TEXT NOT NULL,
	source TEXT NOT NULL,
	digest TEXT NOT NULL,
	output TEXT NOT NULL,
	error TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`, numbered: true},
}

// Drivers lists the supported database/sql driver names.
func Drivers() []string {
	return []string{"sqlite3", "mysql", "postgres"}
}

type Store struct {
	db      *sql.DB
	driver  string
	dialect dialect
}

// Open connects to the database and creates the transcript table if it
// does not exist yet.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("transcript: unsupported driver %q (want one of %s)",
			driver, strings.Join(Drivers(), ", "))
	}

	if driver == "mysql" {
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("transcript: %w", err)
		}
		cfg.ParseTime = true
		dsn = cfg.FormatDSN()
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("transcript: failed to open connection: %w", err)
	}
	if driver == "sqlite3" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("transcript: failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("transcript: create table: %w", err)
	}

	slog.Debug("transcript store opened", "driver", driver)
	return &Store{db: db, driver: driver, dialect: d}, nil
}

// rebind rewrites ? placeholders for drivers that number them.
func (s *Store) rebind(query string) string {
	if !s.dialect.numbered {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Record stores e and returns it with its ID, digest and timestamp set.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.Digest == "" {
		e.Digest = Digest(e.Source)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	const insert = `INSERT INTO transcript (session, origin, source, digest, output, error, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	args := []any{e.Session, e.Origin, e.Source, e.Digest, e.Output, e.Error, e.CreatedAt}

	if s.dialect.numbered {
		// lib/pq does not report LastInsertId
		err := s.db.QueryRowContext(ctx, s.rebind(insert)+" RETURNING id", args...).Scan(&e.ID)
		if err != nil {
			return e, fmt.Errorf("transcript: record: %w", err)
		}
	} else {
		result, err := s.db.ExecContext(ctx, insert, args...)
		if err != nil {
			return e, fmt.Errorf("transcript: record: %w", err)
		}
		if e.ID, err = result.LastInsertId(); err != nil {
			return e, fmt.Errorf("transcript: record: %w", err)
		}
	}

	slog.Debug("transcript entry recorded", "id", e.ID, "session", e.Session, "digest", e.Digest)
	return e, nil
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	const query = `SELECT id, session, origin, source, digest, output, error, created_at
FROM transcript ORDER BY id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), n)
	if err != nil {
		return nil, fmt.Errorf("transcript: query: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Session, &e.Origin, &e.Source, &e.Digest,
			&e.Output, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("transcript: scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transcript: query: %w", err)
	}
	return entries, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
