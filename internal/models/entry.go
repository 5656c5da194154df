// Package models defines the domain types for lorekeep.
package models

import "strings"

// Conventional entry categories. The store does not enforce them.
const (
	CategoryCharacter = "Character"
	CategoryLocation  = "Location"
	CategoryItem      = "Item"
	CategoryEvent     = "Event"
	CategoryDefault   = "default"
)

// DefaultEntryTitle is used when an entry is created without a title.
const DefaultEntryTitle = "New Entry"

// Entry is a user-authored record describing a story element.
type Entry struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Tags        string `json:"tags"`     // comma-delimited
	Synonyms    string `json:"synonyms"` // comma-delimited
}

// TagList returns the trimmed, non-empty tags.
func (e Entry) TagList() []string { return splitList(e.Tags) }

// SynonymList returns the trimmed, non-empty synonyms.
func (e Entry) SynonymList() []string { return splitList(e.Synonyms) }

// SearchText is the combined text used for fuzzy matching.
func (e Entry) SearchText() string {
	return strings.Join([]string{e.Title, e.Description, e.Category, e.Tags, e.Synonyms}, " ")
}

// Relationship is a directed, typed link from EntryA to EntryB.
type Relationship struct {
	ID     int64  `json:"id"`
	EntryA int64  `json:"entry_a"`
	EntryB int64  `json:"entry_b"`
	Type   string `json:"type"`
}

// Other returns the endpoint opposite to id. The editor treats relationships
// symmetrically, so either endpoint may be passed.
func (r Relationship) Other(id int64) int64 {
	if r.EntryA == id {
		return r.EntryB
	}
	return r.EntryA
}

// JoinList is the inverse of TagList/SynonymList.
func JoinList(items []string) string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, ", ")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
