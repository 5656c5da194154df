package store

import "github.com/starford/lorekeep/internal/models"

// RecordStore defines the record-store operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type RecordStore interface {
	AddEntry(e models.Entry) (int64, error)
	GetEntry(id int64) (*models.Entry, error)
	AllEntries() ([]models.Entry, error)
	UpdateEntry(e models.Entry) error
	DeleteEntry(id int64) error

	AddRelationship(a, b int64, relType string) (int64, error)
	GetRelationship(id int64) (*models.Relationship, error)
	RelationshipsForEntry(id int64) ([]models.Relationship, error)
	AllRelationships() ([]models.Relationship, error)
	DeleteRelationship(id int64) error

	Close() error
}

// Verify *DB satisfies RecordStore at compile time.
var _ RecordStore = (*DB)(nil)
