package xray

import (
	"strings"
	"unicode/utf8"
)

// descProbeLen is how many leading runes of an incoming description are
// checked against the existing text before appending. Providers restate
// earlier descriptions chunk after chunk; without this check they would
// accumulate without bound.
const descProbeLen = 50

// Merge folds one chunk's extraction into the running snapshot. It is
// deterministic, preserves first-occurrence order, and merging an empty
// extraction leaves the snapshot unchanged.
func Merge(snap *Snapshot, ext *Extraction) {
	if snap == nil || ext == nil {
		return
	}

	if t := strings.TrimSpace(ext.BookTitle); t != "" {
		snap.BookTitle = t
	}
	if a := strings.TrimSpace(ext.Author); a != "" {
		snap.Author = a
	}
	if b := SanitizeText(ext.AuthorBio); b != "" {
		snap.AuthorBio = appendDescription(snap.AuthorBio, b)
	}
	if s := NormalizeDescription(ext.Summary); s != "" {
		snap.Summary = appendDescription(snap.Summary, s)
	}

	mergeCharacters(snap, ext.Characters)
	mergeLocations(snap, ext.Locations)
	mergeThemes(snap, ext.Themes)
	mergeTimeline(snap, ext.Events)
	mergeTimeline(snap, ext.Timeline)
	mergeHistoricalFigures(snap, ext.HistoricalFigures)
}

func mergeCharacters(snap *Snapshot, raw []ExtractedEntity) {
	idx := make(map[string]int, len(snap.Characters))
	for i, c := range snap.Characters {
		idx[CanonicalName(c.Name)] = i
	}

	for _, r := range raw {
		name := strings.TrimSpace(r.Name)
		key := CanonicalName(name)
		if key == "" {
			continue
		}
		desc := NormalizeDescription(r.Description)

		if i, ok := idx[key]; ok {
			c := &snap.Characters[i]
			c.Name = shorterName(c.Name, name)
			if c.Role == "" || c.Role == RolePlaceholder {
				if role := strings.TrimSpace(r.Role); role != "" {
					c.Role = role
				}
			}
			c.Description = appendDescription(c.Description, desc)
			c.Occupations = unionStrings(c.Occupations, r.Occupations)
			if c.Gender == "" {
				c.Gender = strings.TrimSpace(r.Gender)
			}
			if c.Importance == "" {
				c.Importance = SanitizeText(r.Importance)
			}
			continue
		}

		c := Character{
			ID:          EntityID("char", name),
			Name:        name,
			Role:        strings.TrimSpace(r.Role),
			Description: desc,
			Gender:      strings.TrimSpace(r.Gender),
			Occupations: unionStrings(nil, r.Occupations),
			Importance:  SanitizeText(r.Importance),
		}
		if c.Role == "" {
			c.Role = RolePlaceholder
		}
		snap.Characters = append(snap.Characters, c)
		idx[key] = len(snap.Characters) - 1
	}
}

func mergeLocations(snap *Snapshot, raw ExtractedLocations) {
	idx := make(map[string]int, len(snap.Locations))
	for i, l := range snap.Locations {
		idx[CanonicalName(l.Name)] = i
	}

	for _, r := range raw {
		name := strings.TrimSpace(r.Name)
		key := CanonicalName(name)
		if key == "" {
			continue
		}
		desc := NormalizeDescription(r.Description)

		if i, ok := idx[key]; ok {
			l := &snap.Locations[i]
			l.Name = shorterName(l.Name, name)
			l.Description = appendDescription(l.Description, desc)
			if l.Importance == "" {
				l.Importance = SanitizeText(r.Importance)
			}
			continue
		}

		snap.Locations = append(snap.Locations, Location{
			ID:          EntityID("loc", name),
			Name:        name,
			Description: desc,
			Importance:  SanitizeText(r.Importance),
		})
		idx[key] = len(snap.Locations) - 1
	}
}

func mergeHistoricalFigures(snap *Snapshot, raw []ExtractedEntity) {
	idx := make(map[string]int, len(snap.HistoricalFigures))
	for i, f := range snap.HistoricalFigures {
		idx[CanonicalName(f.Name)] = i
	}

	for _, r := range raw {
		name := strings.TrimSpace(r.Name)
		key := CanonicalName(name)
		if key == "" {
			continue
		}
		desc := NormalizeDescription(r.Description)
		bio := NormalizeDescription(r.Biography)

		if i, ok := idx[key]; ok {
			f := &snap.HistoricalFigures[i]
			f.Name = shorterName(f.Name, name)
			f.Description = appendDescription(f.Description, desc)
			f.Biography = appendDescription(f.Biography, bio)
			if f.Importance == "" {
				f.Importance = SanitizeText(r.Importance)
			}
			continue
		}

		snap.HistoricalFigures = append(snap.HistoricalFigures, HistoricalFigure{
			ID:          EntityID("fig", name),
			Name:        name,
			Description: desc,
			Biography:   bio,
			Importance:  SanitizeText(r.Importance),
		})
		idx[key] = len(snap.HistoricalFigures) - 1
	}
}

func mergeThemes(snap *Snapshot, themes []string) {
	seen := make(map[string]struct{}, len(snap.Themes))
	for _, t := range snap.Themes {
		seen[t] = struct{}{}
	}
	for _, t := range themes {
		t = strings.TrimSpace(t)
		if t == "" || isMetaTheme(t) {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		snap.Themes = append(snap.Themes, t)
	}
}

func mergeTimeline(snap *Snapshot, events ExtractedEvents) {
	for _, ev := range events {
		text := SanitizeText(ev.Event)
		if text == "" {
			continue
		}
		seq := ev.Sequence
		if seq <= 0 {
			seq = len(snap.Timeline) + 1
		}
		snap.Timeline = append(snap.Timeline, TimelineEvent{
			Sequence:    seq,
			Event:       text,
			Chapter:     strings.TrimSpace(ev.Chapter),
			Importance:  SanitizeText(ev.Importance),
			Characters:  unionStrings(nil, ev.Characters),
			PositionPct: ev.PositionPct,
		})
	}
}

// shorterName prefers the strictly shorter of two display names: shorter
// usually means fewer honorifics and parentheticals.
func shorterName(existing, incoming string) string {
	if incoming == "" {
		return existing
	}
	if utf8.RuneCountInString(incoming) < utf8.RuneCountInString(existing) {
		return incoming
	}
	return existing
}

// appendDescription appends incoming to existing unless the first
// descProbeLen runes of incoming already appear in existing.
func appendDescription(existing, incoming string) string {
	if incoming == "" {
		return existing
	}
	if existing == "" {
		return incoming
	}
	probe := incoming
	if runes := []rune(incoming); len(runes) > descProbeLen {
		probe = string(runes[:descProbeLen])
	}
	if strings.Contains(existing, probe) {
		return existing
	}
	return existing + " " + incoming
}

// unionStrings merges incoming into existing by case-insensitive
// equality, preserving first-seen order.
func unionStrings(existing, incoming []string) []string {
	if len(incoming) == 0 {
		return existing
	}
	seen := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		seen[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	out := existing
	for _, s := range incoming {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		k := strings.ToLower(s)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}
