// Package search ranks entries against a free-text query.
package search

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/starford/lorekeep/internal/models"
)

// DefaultLimit caps the number of hits when the caller passes a non-positive limit.
const DefaultLimit = 20

// Hit is one ranked match.
type Hit struct {
	EntryID int64 `json:"entry_id"`
	Score   int   `json:"score"`
}

type entrySource []models.Entry

func (s entrySource) String(i int) string { return s[i].SearchText() }
func (s entrySource) Len() int            { return len(s) }

// Rank returns entries matching query, best first. An empty query matches
// nothing.
func Rank(query string, entries []models.Entry, limit int) []Hit {
	query = strings.TrimSpace(query)
	if query == "" || len(entries) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	matches := fuzzy.FindFrom(query, entrySource(entries))
	if len(matches) > limit {
		matches = matches[:limit]
	}
	hits := make([]Hit, len(matches))
	for i, m := range matches {
		hits[i] = Hit{EntryID: entries[m.Index].ID, Score: m.Score}
	}
	return hits
}
