// Package sqlite stores markers, user history and votes in a local SQLite
// file. It is the storage of choice when running outside Google Cloud.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/gtonic/resumebot/pkg/database/sqlite/migrations"
	"github.com/gtonic/resumebot/pkg/history"
	"github.com/gtonic/resumebot/pkg/marker"
	"github.com/gtonic/resumebot/pkg/vote"
)

var (
	_ marker.Provider  = &Database{}
	_ history.Provider = &Database{}
	_ vote.Provider    = &Database{}
)

const markerKey = "last_resume_update"

type Database struct {
	db   *sql.DB
	path string
}

func New(path string) (*Database, error) {
	if path == "" {
		return nil, errors.New("missing database path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")

	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	d := &Database{
		db:   db,
		path: path,
	}

	if err := d.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) migrate(fsys fs.FS) error {
	if _, err := d.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int

	if err := d.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")

	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}

	var files []string

	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}

	sort.Strings(files)

	for _, name := range files {
		var version int

		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		if version <= current {
			continue
		}

		data, err := fs.ReadFile(fsys, name)

		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := d.db.Begin()

		if err != nil {
			return err
		}

		if _, err := tx.Exec(string(data)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %s: %w", name, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}

		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

func (d *Database) Get(ctx context.Context) (*time.Time, error) {
	var value sql.NullString

	err := d.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", markerKey).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading marker: %w", err)
	}

	if !value.Valid {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339Nano, value.String)

	if err != nil {
		return nil, fmt.Errorf("parsing marker: %w", err)
	}

	return &t, nil
}

func (d *Database) Set(ctx context.Context, t time.Time) (time.Time, error) {
	t = t.UTC()

	_, err := d.db.ExecContext(ctx, `INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, markerKey, t.Format(time.RFC3339Nano))

	if err != nil {
		return time.Time{}, fmt.Errorf("writing marker: %w", err)
	}

	return t, nil
}

func (d *Database) Clear(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, `INSERT INTO config (key, value) VALUES (?, NULL)
		ON CONFLICT(key) DO UPDATE SET value = NULL`, markerKey)

	if err != nil {
		return fmt.Errorf("clearing marker: %w", err)
	}

	return nil
}

func (d *Database) Record(ctx context.Context, userID string, interaction history.Interaction) error {
	if interaction.ID == "" {
		interaction.ID = uuid.NewString()
	}

	if interaction.Timestamp.IsZero() {
		interaction.Timestamp = time.Now()
	}

	ts := interaction.Timestamp.UTC().Format(time.RFC3339Nano)

	tx, err := d.db.BeginTx(ctx, nil)

	if err != nil {
		return err
	}

	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO users (id, first_login) VALUES (?, ?)", userID, ts); err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO interactions (id, user_id, backend, question, answer, failed, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		interaction.ID, userID, interaction.Backend, interaction.Question, interaction.Answer, interaction.Failed, ts); err != nil {
		return fmt.Errorf("saving interaction: %w", err)
	}

	return tx.Commit()
}

func (d *Database) User(ctx context.Context, userID string) (*history.User, error) {
	var firstLogin string

	err := d.db.QueryRowContext(ctx, "SELECT first_login FROM users WHERE id = ?", userID).Scan(&firstLogin)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, history.ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	u := &history.User{
		ID: userID,
	}

	if u.FirstLogin, err = time.Parse(time.RFC3339Nano, firstLogin); err != nil {
		return nil, fmt.Errorf("parsing first login of %s: %w", userID, err)
	}

	rows, err := d.db.QueryContext(ctx, `SELECT id, backend, question, answer, failed, timestamp
		FROM interactions WHERE user_id = ? ORDER BY timestamp`, userID)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var i history.Interaction
		var ts string

		if err := rows.Scan(&i.ID, &i.Backend, &i.Question, &i.Answer, &i.Failed, &ts); err != nil {
			return nil, err
		}

		if i.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parsing interaction %s: %w", i.ID, err)
		}

		u.Interactions = append(u.Interactions, i)
	}

	return u, rows.Err()
}

func (d *Database) Submit(ctx context.Context, v vote.Vote) error {
	if v.Timestamp.IsZero() {
		v.Timestamp = time.Now()
	}

	up, down := 0, 0

	if v.Upvoted {
		up = 1
	} else {
		down = -1
	}

	tx, err := d.db.BeginTx(ctx, nil)

	if err != nil {
		return err
	}

	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO votes (backend, up, down) VALUES (?, ?, ?)
		ON CONFLICT(backend) DO UPDATE SET up = up + excluded.up, down = down + excluded.down`, v.Backend, up, down); err != nil {
		return fmt.Errorf("updating votes: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO vote_submissions (backend, user_id, question, answer, upvoted, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		v.Backend, v.UserID, v.Question, v.Answer, v.Upvoted, v.Timestamp.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("saving submission: %w", err)
	}

	return tx.Commit()
}

func (d *Database) Stats(ctx context.Context) ([]vote.Stats, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT backend, up, down FROM votes ORDER BY backend")

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var result []vote.Stats

	for rows.Next() {
		var s vote.Stats

		if err := rows.Scan(&s.Backend, &s.Up, &s.Down); err != nil {
			return nil, err
		}

		result = append(result, s)
	}

	return result, rows.Err()
}
