// Package vault mirrors the record store into a directory of Markdown files
// and imports edits made to those files back.
//
// Each entry lives at entries/<id>.md: a YAML header with id, title,
// category, tags, synonyms and outgoing relationships, then the description.
// The store stays authoritative; deleting a file does not delete an entry.
package vault

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/starford/lorekeep/internal/checksum"
	"github.com/starford/lorekeep/internal/models"
)

const entriesDir = "entries"

// Mirror writes entries to an FS and remembers what it wrote so the watcher
// can tell its own writes from external edits.
type Mirror struct {
	fs  *FS
	log *slog.Logger

	mu  sync.Mutex
	own map[string]string // rel path -> checksum of our last write
}

// Open prepares a mirror rooted at dir.
func Open(dir string, logger *slog.Logger) (*Mirror, error) {
	fsys, err := NewFS(dir)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{fs: fsys, log: logger, own: make(map[string]string)}, nil
}

// Root is the absolute mirror directory.
func (m *Mirror) Root() string { return m.fs.Root() }

// EntryPath returns the mirror-relative path of an entry file.
func EntryPath(id int64) string {
	return filepath.Join(entriesDir, strconv.FormatInt(id, 10)+".md")
}

// IDFromPath extracts the entry id from a mirror-relative path.
func IDFromPath(rel string) (int64, bool) {
	if filepath.Dir(rel) != entriesDir {
		return 0, false
	}
	name := strings.TrimSuffix(filepath.Base(rel), ".md")
	id, err := strconv.ParseInt(name, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Put writes e with the relationships it originates.
func (m *Mirror) Put(e models.Entry, rels []models.Relationship) error {
	data, err := Encode(e, rels)
	if err != nil {
		return err
	}
	rel := EntryPath(e.ID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fs.Write(rel, data); err != nil {
		return err
	}
	m.own[rel] = checksum.Sum(data)
	return nil
}

// Remove deletes the file of entry id, if any.
func (m *Mirror) Remove(id int64) error {
	rel := EntryPath(id)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.own, rel)
	return m.fs.Delete(rel)
}

// Rebuild writes every entry and removes files of entries that no longer
// exist.
func (m *Mirror) Rebuild(entries []models.Entry, rels []models.Relationship) error {
	byEntry := make(map[int64][]models.Relationship)
	for _, r := range rels {
		byEntry[r.EntryA] = append(byEntry[r.EntryA], r)
	}
	keep := make(map[string]bool, len(entries))
	for _, e := range entries {
		if err := m.Put(e, byEntry[e.ID]); err != nil {
			return err
		}
		keep[EntryPath(e.ID)] = true
	}

	files, err := m.fs.List(entriesDir)
	if err != nil {
		return err
	}
	for _, f := range files {
		if _, ok := IDFromPath(f.Path); !ok || keep[f.Path] {
			continue
		}
		if err := m.fs.Delete(f.Path); err != nil {
			return err
		}
		m.log.Debug("vault: removed stale", slog.String("path", f.Path))
	}
	m.log.Info("vault: rebuilt", slog.Int("entries", len(entries)))
	return nil
}

// Load reads and decodes a mirrored file. The id comes from the file name;
// a conflicting id in the header is an error.
func (m *Mirror) Load(rel string) (models.Entry, error) {
	id, ok := IDFromPath(rel)
	if !ok {
		return models.Entry{}, fmt.Errorf("vault: not an entry file: %s", rel)
	}
	data, err := m.fs.Read(rel)
	if err != nil {
		return models.Entry{}, err
	}
	e, _, err := Decode(data)
	if err != nil {
		return models.Entry{}, err
	}
	if e.ID != 0 && e.ID != id {
		return models.Entry{}, fmt.Errorf("vault: %s declares id %d", rel, e.ID)
	}
	e.ID = id
	return e, nil
}

// external reports whether data at rel differs from what the mirror last
// wrote there.
func (m *Mirror) external(rel string, data []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.own[rel] != checksum.Sum(data)
}
