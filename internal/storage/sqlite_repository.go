package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteTimeLayout = time.RFC3339Nano

// SQLiteRepository keeps every checklist record as one row of a local
// SQLite database.
type SQLiteRepository struct {
	db *sqlx.DB
}

type checklistRow struct {
	Name      string         `db:"name"`
	NextReset sql.NullString `db:"next_reset"`
	Tasks     string         `db:"tasks"`
}

func NewSQLiteRepository(db *sqlx.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// OpenSQLite opens (or creates) the database at path, enables WAL mode and
// applies migrations.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps writes serialized and makes :memory: usable.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if err := MigrateUp(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) Load(ctx context.Context, name string) (Record, error) {
	var row checklistRow
	err := r.db.GetContext(ctx, &row, `SELECT name, next_reset, tasks FROM checklists WHERE name = ?`, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return row.record()
}

func (r *SQLiteRepository) Save(ctx context.Context, in Record) error {
	if err := in.Validate(); err != nil {
		return err
	}
	tasks, err := json.Marshal(in.Tasks)
	if err != nil {
		return fmt.Errorf("encode tasks for %s: %w", in.Name, err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO checklists (name, next_reset, tasks, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			next_reset = excluded.next_reset,
			tasks = excluded.tasks,
			updated_at = excluded.updated_at`,
		in.Name, nullTime(in.NextReset), string(tasks), mustTime(time.Now()),
	)
	return err
}

func (r *SQLiteRepository) List(ctx context.Context) ([]Record, error) {
	rows := make([]checklistRow, 0)
	if err := r.db.SelectContext(ctx, &rows, `SELECT name, next_reset, tasks FROM checklists ORDER BY name ASC`); err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (row checklistRow) record() (Record, error) {
	next, err := parseNullableTime(row.NextReset)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %s next_reset: %v", ErrCorruptRecord, row.Name, err)
	}
	tasks := make(map[string]bool)
	if err := json.Unmarshal([]byte(row.Tasks), &tasks); err != nil {
		return Record{}, fmt.Errorf("%w: %s tasks: %v", ErrCorruptRecord, row.Name, err)
	}
	if tasks == nil {
		tasks = make(map[string]bool)
	}
	return Record{Name: row.Name, NextReset: next, Tasks: tasks}, nil
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(sqliteTimeLayout)
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(sqliteTimeLayout, v.String)
	if err != nil {
		return nil, err
	}
	tm = tm.UTC()
	return &tm, nil
}
