package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/lorekeep/internal/apperr"
	"github.com/starford/lorekeep/internal/models"
)

const relationshipColumns = `id, entry_a, entry_b, type`

// AddRelationship links entry a to entry b. Both endpoints must exist;
// otherwise apperr.ErrInvalidReference is returned and nothing is written.
func (db *DB) AddRelationship(a, b int64, relType string) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var n int
	if err := tx.QueryRow(`SELECT count(*) FROM entries WHERE id IN (?, ?)`, a, b).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: check endpoints: %w", err)
	}
	want := 2
	if a == b {
		want = 1
	}
	if n != want {
		return 0, fmt.Errorf("store: relationship %d->%d: %w", a, b, apperr.ErrInvalidReference)
	}

	res, err := tx.Exec(`INSERT INTO relationships (entry_a, entry_b, type) VALUES (?, ?, ?)`, a, b, relType)
	if err != nil {
		return 0, fmt.Errorf("store: add relationship: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: last insert id: %w", err)
	}
	return id, tx.Commit()
}

// GetRelationship returns one relationship or apperr.ErrNotFound.
func (db *DB) GetRelationship(id int64) (*models.Relationship, error) {
	row := db.conn.QueryRow(`SELECT `+relationshipColumns+` FROM relationships WHERE id = ?`, id)
	var r models.Relationship
	err := row.Scan(&r.ID, &r.EntryA, &r.EntryB, &r.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get relationship %d: %w", id, err)
	}
	return &r, nil
}

// RelationshipsForEntry returns relationships where id is either endpoint.
func (db *DB) RelationshipsForEntry(id int64) ([]models.Relationship, error) {
	return db.queryRelationships(`
		SELECT `+relationshipColumns+` FROM relationships
		WHERE entry_a = ? OR entry_b = ?
		ORDER BY id
	`, id, id)
}

// AllRelationships returns every relationship ordered by id.
func (db *DB) AllRelationships() ([]models.Relationship, error) {
	return db.queryRelationships(`SELECT ` + relationshipColumns + ` FROM relationships ORDER BY id`)
}

// DeleteRelationship removes one relationship.
func (db *DB) DeleteRelationship(id int64) error {
	res, err := db.conn.Exec(`DELETE FROM relationships WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete relationship %d: %w", id, err)
	}
	return requireAffected(res)
}

func (db *DB) queryRelationships(query string, args ...any) ([]models.Relationship, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query relationships: %w", err)
	}
	defer rows.Close()

	var out []models.Relationship
	for rows.Next() {
		var r models.Relationship
		if err := rows.Scan(&r.ID, &r.EntryA, &r.EntryB, &r.Type); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
