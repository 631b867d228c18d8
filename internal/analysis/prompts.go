package analysis

import (
	"fmt"
	"strings"

	"github.com/inkbound/xray/internal/xray"
)

// systemPrompt fixes the provider's role and output contract for every
// chunk call.
const systemPrompt = `You are a literary analyst building an X-Ray companion for a book.
You receive one passage of the book at a time and return ONLY a JSON object, no prose, with any of these keys:
  "book_title", "author", "author_bio", "summary" (strings),
  "characters", "historical_figures" (arrays of {"name","role","description","gender","occupations","importance"}),
  "locations" (array of {"name","description","importance"}),
  "themes" (array of strings),
  "events" (array of {"event","chapter","importance","characters","book_position_pct"}).
"book_position_pct" is the reading-progress percent (integer 0-100) where the event occurs.
Omit keys you have nothing for. Never invent entities not present in the passage.
Write descriptions in the language of the book. Do not refer to "this passage", "this fragment" or the analysis process itself.`

// buildChunkPrompt assembles the user prompt for one chunk. The
// accumulated snapshot rides along as known-entity context so new
// chunks extend earlier findings instead of contradicting them.
func buildChunkPrompt(snap *xray.Snapshot, chunkText string, pct, index, total int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Book: %s\nAuthor: %s\nReading progress: %d%% (passage %d of %d)\n",
		snap.BookTitle, snap.Author, pct, index, total)

	if names := characterNames(snap); len(names) > 0 {
		fmt.Fprintf(&b, "Known characters: %s\n", strings.Join(names, ", "))
	}
	if names := locationNames(snap); len(names) > 0 {
		fmt.Fprintf(&b, "Known locations: %s\n", strings.Join(names, ", "))
	}
	if len(snap.Themes) > 0 {
		fmt.Fprintf(&b, "Known themes: %s\n", strings.Join(snap.Themes, ", "))
	}
	if snap.Summary != "" {
		fmt.Fprintf(&b, "Story so far: %s\n", snap.Summary)
	}

	b.WriteString("\nReuse the exact known names when the same entity reappears. Analyze the passage below.\n\n")
	b.WriteString(chunkText)
	return b.String()
}

func characterNames(snap *xray.Snapshot) []string {
	names := make([]string, 0, len(snap.Characters))
	for _, c := range snap.Characters {
		names = append(names, c.Name)
	}
	return names
}

func locationNames(snap *xray.Snapshot) []string {
	names := make([]string, 0, len(snap.Locations))
	for _, l := range snap.Locations {
		names = append(names, l.Name)
	}
	return names
}
