// Package xray defines the structured analysis snapshot extracted from a
// book and the merge rules that fold per-chunk provider output into it.
package xray

import "encoding/json"

// FormatVersion tags persisted snapshots. A mismatched version on load
// invalidates the snapshot (treated as a cache miss, not an error).
const FormatVersion = 3

// RolePlaceholder marks a character whose role the provider did not name.
const RolePlaceholder = "unknown"

// Snapshot is the accumulated extraction result after processing zero or
// more chunks. AnalysisProgress records how far into the source text, as
// a 0-100 percentage, the snapshot represents.
type Snapshot struct {
	FormatVersion     int                `json:"format_version"`
	BookTitle         string             `json:"book_title"`
	Author            string             `json:"author"`
	AuthorBio         string             `json:"author_bio,omitempty"`
	Summary           string             `json:"summary,omitempty"`
	Characters        []Character        `json:"characters,omitempty"`
	Locations         []Location         `json:"locations,omitempty"`
	Themes            []string           `json:"themes,omitempty"`
	Timeline          []TimelineEvent    `json:"timeline,omitempty"`
	HistoricalFigures []HistoricalFigure `json:"historical_figures,omitempty"`
	AnalysisProgress  int                `json:"analysis_progress"`
}

// NewSnapshot creates an empty snapshot for a book.
func NewSnapshot(title, author string) *Snapshot {
	return &Snapshot{
		FormatVersion: FormatVersion,
		BookTitle:     title,
		Author:        author,
	}
}

// Empty reports whether the snapshot carries no extracted entities at
// all. Safety-blocked chunks legitimately produce empty snapshots, which
// must not be treated as usable resume points.
func (s *Snapshot) Empty() bool {
	return len(s.Characters) == 0 &&
		len(s.Locations) == 0 &&
		len(s.Themes) == 0 &&
		len(s.Timeline) == 0 &&
		len(s.HistoricalFigures) == 0
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	c.Characters = append([]Character(nil), s.Characters...)
	for i := range c.Characters {
		c.Characters[i].Occupations = append([]string(nil), s.Characters[i].Occupations...)
	}
	c.Locations = append([]Location(nil), s.Locations...)
	c.Themes = append([]string(nil), s.Themes...)
	c.Timeline = append([]TimelineEvent(nil), s.Timeline...)
	for i := range c.Timeline {
		c.Timeline[i].Characters = append([]string(nil), s.Timeline[i].Characters...)
	}
	c.HistoricalFigures = append([]HistoricalFigure(nil), s.HistoricalFigures...)
	return &c
}

// Character is a person appearing in the narrative.
type Character struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Role        string   `json:"role,omitempty"`
	Description string   `json:"description,omitempty"`
	Gender      string   `json:"gender,omitempty"`
	Occupations []string `json:"occupations,omitempty"`
	Importance  string   `json:"importance,omitempty"`
}

// Location is a place appearing in the narrative.
type Location struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Importance  string `json:"importance,omitempty"`
}

// HistoricalFigure is a real person referenced by the text.
type HistoricalFigure struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Biography   string `json:"biography,omitempty"`
	Importance  string `json:"importance,omitempty"`
}

// TimelineEvent is a narrative moment. Events are append-only across
// chunks; they are never deduplicated because each represents a distinct
// point in the story.
type TimelineEvent struct {
	Sequence    int      `json:"sequence"`
	Event       string   `json:"event"`
	Chapter     string   `json:"chapter,omitempty"`
	Importance  string   `json:"importance,omitempty"`
	Characters  []string `json:"characters,omitempty"`
	PositionPct int      `json:"book_position_pct,omitempty"`
}

// Extraction is the raw result of one provider call for one chunk. Its
// shapes tolerate provider variance (locations as map or list, events as
// strings or objects); the merger resolves everything into the canonical
// Snapshot form so no downstream component sees the raw shape.
type Extraction struct {
	BookTitle         string             `json:"book_title,omitempty"`
	Author            string             `json:"author,omitempty"`
	AuthorBio         string             `json:"author_bio,omitempty"`
	Summary           string             `json:"summary,omitempty"`
	Characters        []ExtractedEntity  `json:"characters,omitempty"`
	Locations         ExtractedLocations `json:"locations,omitempty"`
	Themes            []string           `json:"themes,omitempty"`
	Events            ExtractedEvents    `json:"events,omitempty"`
	Timeline          ExtractedEvents    `json:"timeline,omitempty"`
	HistoricalFigures []ExtractedEntity  `json:"historical_figures,omitempty"`

	// Blocked marks an empty-but-valid extraction produced when the
	// provider's content-safety policy refused the chunk.
	Blocked bool `json:"-"`
}

// Empty reports whether the extraction carries nothing to merge.
func (e *Extraction) Empty() bool {
	return len(e.Characters) == 0 && len(e.Locations) == 0 &&
		len(e.Themes) == 0 && len(e.Events) == 0 && len(e.Timeline) == 0 &&
		len(e.HistoricalFigures) == 0 && e.Summary == "" &&
		e.BookTitle == "" && e.Author == "" && e.AuthorBio == ""
}

// ExtractedEntity is a provider-shaped character or historical figure.
type ExtractedEntity struct {
	Name        string   `json:"name"`
	Role        string   `json:"role,omitempty"`
	Description string   `json:"description,omitempty"`
	Gender      string   `json:"gender,omitempty"`
	Occupations []string `json:"occupations,omitempty"`
	Biography   string   `json:"biography,omitempty"`
	Importance  string   `json:"importance,omitempty"`
}

// ExtractedLocation is a provider-shaped location.
type ExtractedLocation struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Importance  string `json:"importance,omitempty"`
}

// ExtractedLocations accepts either an array of location objects or a
// name-to-description map, normalizing both to an ordered list. Map
// entries are ordered by name so decoding is deterministic.
type ExtractedLocations []ExtractedLocation

// ExtractedEvent is a provider-shaped timeline event.
type ExtractedEvent struct {
	Sequence    int      `json:"sequence,omitempty"`
	Event       string   `json:"event"`
	Chapter     string   `json:"chapter,omitempty"`
	Importance  string   `json:"importance,omitempty"`
	Characters  []string `json:"characters,omitempty"`
	PositionPct int      `json:"book_position_pct,omitempty"`
}

// ExtractedEvents accepts events either as plain strings or as objects.
type ExtractedEvents []ExtractedEvent

// ParseExtraction decodes a provider JSON payload into an Extraction.
func ParseExtraction(raw json.RawMessage) (*Extraction, error) {
	var ext Extraction
	if err := json.Unmarshal(raw, &ext); err != nil {
		return nil, err
	}
	return &ext, nil
}
