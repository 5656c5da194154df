package api

import (
	"github.com/starford/lorekeep/internal/entryservice"
	"github.com/starford/lorekeep/internal/models"
)

// EntryRequest is the body of POST /entries and PUT /entries/{id}.
type EntryRequest struct {
	Title       string `json:"title" example:"Aria"`
	Description string `json:"description" example:"A wandering bard"`
	Category    string `json:"category" example:"Character"`
	Tags        string `json:"tags" example:"music, travel"`
	Synonyms    string `json:"synonyms" example:"The Songbird"`
}

func (r EntryRequest) entry(id int64) models.Entry {
	return models.Entry{
		ID:          id,
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Tags:        r.Tags,
		Synonyms:    r.Synonyms,
	}
}

// RelationshipRequest is the body of POST /entries/{id}/relationships.
type RelationshipRequest struct {
	To   int64  `json:"to" example:"2"`
	Type string `json:"type" example:"lives in"`
}

// EntryDetail is the full entry response type (aliased from the domain layer).
type EntryDetail = entryservice.EntryDetail

// EntryListResponse wraps entry listings.
type EntryListResponse struct {
	Entries []models.Entry `json:"entries"`
	Total   int            `json:"total"`
}

// RelationshipListResponse wraps the relationships of one entry.
type RelationshipListResponse struct {
	Relationships []models.Relationship `json:"relationships"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []entryservice.SearchResult `json:"results"`
}
