package mcpserver

// CategoryContract describes the entry conventions that LLM consumers
// should follow when creating entries and relationships.
const CategoryContract = `# Lorekeep Entry Conventions

Every entry in Lorekeep is a named record with free-text metadata.

## Fields

| field       | notes                                                   |
|-------------|---------------------------------------------------------|
| title       | Display name. Empty titles become "New Entry".          |
| description | Free text. Shown in search and in the mirrored file.    |
| category    | One of the categories below; decides the map colour.    |
| tags        | Comma-delimited, e.g. ` + "`" + `music, travel` + "`" + `.                   |
| synonyms    | Comma-delimited alternative names, searched like tags.  |

## Categories

- **Character**: people, creatures, gods.
- **Location**: places of any scale, from a tavern to a continent.
- **Item**: objects, artefacts, documents.
- **Event**: battles, festivals, eras.

Any other value (including an empty one) is drawn with the default colour.
Categories compare case-insensitively when listing.

## Relationships

A relationship is a directed, typed link from one entry to another, for
example ` + "`" + `Aria --lives in--> Harbor` + "`" + `. Both entries must exist before
they are linked. The type is free text and is drawn as the edge label.
Deleting an entry removes every relationship that touches it.

## Maps

` + "`" + `render_map` + "`" + ` lays the graph out as a tree (needs a root entry) or with a
force-directed layout, optionally highlighting one entry and its direct
neighbours. Use ` + "`" + `format: json` + "`" + ` for positions, ` + "`" + `png` + "`" + ` or ` + "`" + `svg` + "`" + ` for an image.
`
