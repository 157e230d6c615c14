package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/mrshanahan/notes-service/internal/apierr"
	"github.com/mrshanahan/notes-service/pkg/notes"
)

//go:embed files/create_notes_table.sql
var createNotesTableSQL string

// SQLiteStore provides note persistence in a local SQLite database.
// Conditional semantics come from the database itself: inserts rely
// on the primary key constraint, and update/delete run inside a
// transaction keyed on the row's existence.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(createNotesTableSQL); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) InsertIfAbsent(ctx context.Context, note *notes.Note) (*notes.Note, error) {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO notes (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)",
		note.ID, note.Name, formatTime(note.CreatedAt), formatTime(note.UpdatedAt))
	if err != nil {
		var sqlErr sqlite3.Error
		if errors.As(err, &sqlErr) && sqlErr.Code == sqlite3.ErrConstraint {
			return nil, apierr.NewConflict(fmt.Sprintf("note already exists with id: %s", note.ID))
		}
		return nil, apierr.NewInternal(err)
	}

	stored := *note
	return &stored, nil
}

func (s *SQLiteStore) UpdateIfPresent(ctx context.Context, id string, patch Patch) (*notes.Note, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierr.NewInternal(err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"UPDATE notes SET name = ?, updated_at = ? WHERE id = ?",
		patch.Name, formatTime(patch.UpdatedAt), id)
	if err != nil {
		return nil, apierr.NewInternal(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, apierr.NewInternal(err)
	}
	if affected == 0 {
		return nil, apierr.NewNotFound(fmt.Sprintf("no note with id: %s", id))
	}

	note, err := scanNote(tx.QueryRowContext(ctx,
		"SELECT id, name, created_at, updated_at FROM notes WHERE id = ?", id))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, apierr.NewInternal(err)
	}
	return note, nil
}

func (s *SQLiteStore) DeleteIfPresent(ctx context.Context, id string) (*notes.Note, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierr.NewInternal(err)
	}
	defer tx.Rollback()

	note, err := scanNote(tx.QueryRowContext(ctx,
		"SELECT id, name, created_at, updated_at FROM notes WHERE id = ?", id))
	if err != nil {
		var apiErr *apierr.Error
		if errors.As(err, &apiErr) && apiErr.Code == apierr.CodeNotFound {
			return nil, apierr.NewNotFound(fmt.Sprintf("no note with id: %s", id))
		}
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id); err != nil {
		return nil, apierr.NewInternal(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apierr.NewInternal(err)
	}
	return note, nil
}

func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*notes.Note, error) {
	note, err := scanNote(s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at, updated_at FROM notes WHERE id = ?", id))
	if err != nil {
		var apiErr *apierr.Error
		if errors.As(err, &apiErr) && apiErr.Code == apierr.CodeNotFound {
			return nil, nil
		}
		return nil, err
	}
	return note, nil
}

func (s *SQLiteStore) ScanAll(ctx context.Context) (*ScanResult, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, created_at, updated_at FROM notes")
	if err != nil {
		return nil, apierr.NewInternal(err)
	}
	defer rows.Close()

	items := []*notes.Note{}
	for rows.Next() {
		note := &notes.Note{}
		var createdAt, updatedAt string
		if err := rows.Scan(&note.ID, &note.Name, &createdAt, &updatedAt); err != nil {
			return nil, apierr.NewInternal(err)
		}
		if note.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, apierr.NewInternal(err)
		}
		if note.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, apierr.NewInternal(err)
		}
		items = append(items, note)
	}
	if err := rows.Err(); err != nil {
		return nil, apierr.NewInternal(err)
	}

	return &ScanResult{
		Items:        items,
		Count:        len(items),
		ScannedCount: len(items),
	}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Private

func scanNote(row *sql.Row) (*notes.Note, error) {
	note := &notes.Note{}
	var createdAt, updatedAt string
	err := row.Scan(&note.ID, &note.Name, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierr.NewNotFound("note not found")
	} else if err != nil {
		return nil, apierr.NewInternal(err)
	}

	if note.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, apierr.NewInternal(err)
	}
	if note.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, apierr.NewInternal(err)
	}
	return note, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
