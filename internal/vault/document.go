package vault

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/starford/lorekeep/internal/models"
)

// ErrNoFrontmatter is returned by Decode for a file without a YAML header.
var ErrNoFrontmatter = errors.New("vault: missing frontmatter")

// Link is an outgoing relationship as listed in a mirrored file.
type Link struct {
	ID   int64  `yaml:"id"`
	To   int64  `yaml:"to"`
	Type string `yaml:"type"`
}

// frontmatter is the YAML header of a mirrored entry.
type frontmatter struct {
	ID            int64     `yaml:"id"`
	Title         string    `yaml:"title"`
	Category      string    `yaml:"category,omitempty"`
	Tags          commaList `yaml:"tags,omitempty"`
	Synonyms      commaList `yaml:"synonyms,omitempty"`
	Relationships []Link    `yaml:"relationships,omitempty"`
}

// commaList is written as the stored comma-delimited string, byte for byte.
// A hand-written YAML sequence is accepted too and joined on read.
type commaList string

func (c *commaList) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.SequenceNode {
		var items []string
		if err := n.Decode(&items); err != nil {
			return err
		}
		*c = commaList(models.JoinList(items))
		return nil
	}
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	*c = commaList(s)
	return nil
}

const delim = "---"

// Encode renders an entry and its outgoing relationships as Markdown with a
// YAML header. The description is the body.
func Encode(e models.Entry, outgoing []models.Relationship) ([]byte, error) {
	fm := frontmatter{
		ID:       e.ID,
		Title:    e.Title,
		Category: e.Category,
		Tags:     commaList(e.Tags),
		Synonyms: commaList(e.Synonyms),
	}
	for _, r := range outgoing {
		if r.EntryA != e.ID {
			continue
		}
		fm.Relationships = append(fm.Relationships, Link{ID: r.ID, To: r.EntryB, Type: r.Type})
	}

	head, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("vault: encode %d: %w", e.ID, err)
	}
	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	buf.Write(head)
	buf.WriteString(delim + "\n")
	// One blank separator line, then the description verbatim.
	buf.WriteString("\n")
	buf.WriteString(e.Description)
	return buf.Bytes(), nil
}

// Decode parses a mirrored file back into an entry. Relationships listed in
// the header are returned as-is; callers decide what to do with them.
func Decode(data []byte) (models.Entry, []Link, error) {
	head, body, ok := split(data)
	if !ok {
		return models.Entry{}, nil, ErrNoFrontmatter
	}
	var fm frontmatter
	if err := yaml.Unmarshal(head, &fm); err != nil {
		return models.Entry{}, nil, fmt.Errorf("vault: decode frontmatter: %w", err)
	}
	e := models.Entry{
		ID:          fm.ID,
		Title:       fm.Title,
		Description: body,
		Category:    fm.Category,
		Tags:        string(fm.Tags),
		Synonyms:    string(fm.Synonyms),
	}
	return e, fm.Relationships, nil
}

// split separates the YAML block between leading --- lines from the body.
// The line break ending the closing --- and one blank separator line are
// dropped; everything after that is the body, untouched.
func split(data []byte) (head []byte, body string, ok bool) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, "", false
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, "", false
	}
	head = rest[:idx]
	after := rest[idx+1+len(delim):]
	after = dropLineBreak(after)
	after = dropLineBreak(after)
	return head, string(after), true
}

func dropLineBreak(b []byte) []byte {
	if bytes.HasPrefix(b, []byte("\r\n")) {
		return b[2:]
	}
	return bytes.TrimPrefix(b, []byte("\n"))
}
