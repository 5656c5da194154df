package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/lorekeep/internal/apperr"
	"github.com/starford/lorekeep/internal/models"
)

const entryColumns = `id, title, description, category, tags, synonyms`

// AddEntry inserts a new entry and returns its id. The ID field is ignored.
func (db *DB) AddEntry(e models.Entry) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO entries (title, description, category, tags, synonyms)
		VALUES (?, ?, ?, ?, ?)
	`, e.Title, e.Description, e.Category, e.Tags, e.Synonyms)
	if err != nil {
		return 0, fmt.Errorf("store: add entry: %w", err)
	}
	return res.LastInsertId()
}

// GetEntry returns the entry with the given id or apperr.ErrNotFound.
func (db *DB) GetEntry(id int64) (*models.Entry, error) {
	row := db.conn.QueryRow(`SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get entry %d: %w", id, err)
	}
	return e, nil
}

// AllEntries returns every entry ordered by id.
func (db *DB) AllEntries() ([]models.Entry, error) {
	rows, err := db.conn.Query(`SELECT ` + entryColumns + ` FROM entries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: all entries: %w", err)
	}
	defer rows.Close()

	var out []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// UpdateEntry overwrites every mutable field of an existing entry.
func (db *DB) UpdateEntry(e models.Entry) error {
	res, err := db.conn.Exec(`
		UPDATE entries
		SET title = ?, description = ?, category = ?, tags = ?, synonyms = ?
		WHERE id = ?
	`, e.Title, e.Description, e.Category, e.Tags, e.Synonyms, e.ID)
	if err != nil {
		return fmt.Errorf("store: update entry %d: %w", e.ID, err)
	}
	return requireAffected(res)
}

// DeleteEntry removes an entry and every relationship referencing it.
func (db *DB) DeleteEntry(id int64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM relationships WHERE entry_a = ? OR entry_b = ?`, id, id); err != nil {
		return fmt.Errorf("store: delete relationships of %d: %w", id, err)
	}
	res, err := tx.Exec(`DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete entry %d: %w", id, err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.Entry, error) {
	var e models.Entry
	if err := s.Scan(&e.ID, &e.Title, &e.Description, &e.Category, &e.Tags, &e.Synonyms); err != nil {
		return nil, err
	}
	return &e, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
