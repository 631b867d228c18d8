package xray

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase and trim", "  John Smith  ", "john smith"},
		{"ascii parenthetical", "John (narrator)", "john"},
		{"fullwidth parenthetical", "胡安娜（帕拉太太）", "胡安娜"},
		{"collapse whitespace", "Mary   Jane\tWatson", "mary jane watson"},
		{"cjk name", "约翰 (旁白者)", "约翰"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalName(tt.in); got != tt.want {
				t.Errorf("CanonicalName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEntityID(t *testing.T) {
	a := EntityID("char", "约翰")
	b := EntityID("char", "约翰")
	if a != b {
		t.Errorf("id not stable: %q vs %q", a, b)
	}
	if len(a) != len("char_")+8 {
		t.Errorf("unexpected id shape: %q", a)
	}
	if c := EntityID("loc", "约翰"); c == a {
		t.Error("prefix should participate in the id")
	}
}

func TestMerge_DeduplicatesByCanonicalName(t *testing.T) {
	snap := NewSnapshot("book", "author")

	Merge(snap, &Extraction{Characters: []ExtractedEntity{
		{Name: "约翰 (旁白者)", Description: "故事的讲述者。"},
	}})
	Merge(snap, &Extraction{Characters: []ExtractedEntity{
		{Name: "约翰", Description: "他回到了庄园。"},
	}})

	if len(snap.Characters) != 1 {
		t.Fatalf("expected 1 character, got %d", len(snap.Characters))
	}
	c := snap.Characters[0]
	if c.Name != "约翰" {
		t.Errorf("expected shorter display name 约翰, got %q", c.Name)
	}
	if c.Description != "故事的讲述者。 他回到了庄园。" {
		t.Errorf("unexpected merged description: %q", c.Description)
	}
}

func TestMerge_EmptyExtractionIsIdentity(t *testing.T) {
	snap := NewSnapshot("book", "author")
	Merge(snap, &Extraction{
		Characters: []ExtractedEntity{{Name: "Ada", Role: "protagonist", Description: "A thinker."}},
		Themes:     []string{"memory"},
		Events:     ExtractedEvents{{Event: "Ada arrives."}},
	})

	before := snap.Clone()
	Merge(snap, &Extraction{})

	if !reflect.DeepEqual(before, snap) {
		t.Errorf("merging empty extraction changed the snapshot:\nbefore %+v\nafter  %+v", before, snap)
	}
}

func TestMerge_RoleAdoptedOnlyOverPlaceholder(t *testing.T) {
	snap := NewSnapshot("book", "author")
	Merge(snap, &Extraction{Characters: []ExtractedEntity{{Name: "Ada"}}})
	if snap.Characters[0].Role != RolePlaceholder {
		t.Fatalf("expected placeholder role, got %q", snap.Characters[0].Role)
	}

	Merge(snap, &Extraction{Characters: []ExtractedEntity{{Name: "Ada", Role: "protagonist"}}})
	if snap.Characters[0].Role != "protagonist" {
		t.Errorf("placeholder role should be replaced, got %q", snap.Characters[0].Role)
	}

	Merge(snap, &Extraction{Characters: []ExtractedEntity{{Name: "Ada", Role: "villain"}}})
	if snap.Characters[0].Role != "protagonist" {
		t.Errorf("established role should not be replaced, got %q", snap.Characters[0].Role)
	}
}

func TestMerge_DescriptionPrefixDedup(t *testing.T) {
	long := "She grew up in the northern mountains and learned to read from her grandmother's almanac collection."

	snap := NewSnapshot("book", "author")
	Merge(snap, &Extraction{Characters: []ExtractedEntity{{Name: "Ada", Description: long}}})
	Merge(snap, &Extraction{Characters: []ExtractedEntity{{Name: "Ada", Description: long}}})

	if snap.Characters[0].Description != long {
		t.Errorf("near-duplicate description was appended: %q", snap.Characters[0].Description)
	}

	Merge(snap, &Extraction{Characters: []ExtractedEntity{{Name: "Ada", Description: "Later she moved to the capital."}}})
	want := long + " Later she moved to the capital."
	if snap.Characters[0].Description != want {
		t.Errorf("new description should be appended, got %q", snap.Characters[0].Description)
	}
}

func TestMerge_OccupationUnion(t *testing.T) {
	snap := NewSnapshot("book", "author")
	Merge(snap, &Extraction{Characters: []ExtractedEntity{
		{Name: "Ada", Occupations: []string{"Teacher", "scribe"}},
	}})
	Merge(snap, &Extraction{Characters: []ExtractedEntity{
		{Name: "Ada", Occupations: []string{"teacher", "Cartographer"}},
	}})

	want := []string{"Teacher", "scribe", "Cartographer"}
	if !reflect.DeepEqual(snap.Characters[0].Occupations, want) {
		t.Errorf("Occupations = %v, want %v", snap.Characters[0].Occupations, want)
	}
}

func TestMerge_ThemesDedupAndMetaFilter(t *testing.T) {
	snap := NewSnapshot("book", "author")
	Merge(snap, &Extraction{Themes: []string{"记忆", "叙事结构", "", "记忆", "家族"}})

	want := []string{"记忆", "家族"}
	if !reflect.DeepEqual(snap.Themes, want) {
		t.Errorf("Themes = %v, want %v", snap.Themes, want)
	}
}

func TestMerge_TimelineAppendOnly(t *testing.T) {
	snap := NewSnapshot("book", "author")
	Merge(snap, &Extraction{Events: ExtractedEvents{{Event: "The house burns."}}})
	Merge(snap, &Extraction{Events: ExtractedEvents{{Event: "The house burns."}, {Event: "A letter arrives.", Sequence: 9}}})

	if len(snap.Timeline) != 3 {
		t.Fatalf("timeline should be append-only, got %d events", len(snap.Timeline))
	}
	if snap.Timeline[0].Sequence != 1 || snap.Timeline[1].Sequence != 2 {
		t.Errorf("positional sequences wrong: %d, %d", snap.Timeline[0].Sequence, snap.Timeline[1].Sequence)
	}
	if snap.Timeline[2].Sequence != 9 {
		t.Errorf("explicit sequence should be kept, got %d", snap.Timeline[2].Sequence)
	}
}

func TestMerge_SanitizesIncrementalMarkers(t *testing.T) {
	snap := NewSnapshot("book", "author")
	Merge(snap, &Extraction{
		Summary: "本片段中主人公回到庄园。",
		Events:  ExtractedEvents{{Event: "在新文本中，信件被烧毁。"}},
	})

	if snap.Summary != "主人公回到庄园。" {
		t.Errorf("Summary = %q", snap.Summary)
	}
	if snap.Timeline[0].Event != "信件被烧毁。" {
		t.Errorf("Event = %q", snap.Timeline[0].Event)
	}
}

func TestExtractedLocations_MapOrList(t *testing.T) {
	t.Run("array form", func(t *testing.T) {
		var ext Extraction
		raw := `{"locations":[{"name":"庄园","description":"主人公的故居"}]}`
		if err := json.Unmarshal([]byte(raw), &ext); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(ext.Locations) != 1 || ext.Locations[0].Name != "庄园" {
			t.Errorf("Locations = %+v", ext.Locations)
		}
	})

	t.Run("map form", func(t *testing.T) {
		var ext Extraction
		raw := `{"locations":{"庄园":"主人公的故居","灯塔":{"description":"海边的灯塔","importance":"高"}}}`
		if err := json.Unmarshal([]byte(raw), &ext); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(ext.Locations) != 2 {
			t.Fatalf("expected 2 locations, got %d", len(ext.Locations))
		}
		// Map entries are ordered by name for determinism.
		if ext.Locations[0].Name != "庄园" || ext.Locations[1].Name != "灯塔" {
			t.Errorf("order = %q, %q", ext.Locations[0].Name, ext.Locations[1].Name)
		}
		if ext.Locations[1].Importance != "高" {
			t.Errorf("importance not carried: %+v", ext.Locations[1])
		}
	})
}

func TestExtractedEvents_StringOrObject(t *testing.T) {
	var ext Extraction
	raw := `{"events":["大火烧毁了庄园",{"event":"信件送达","chapter":"第三章"},"", {"event":"  "}]}`
	if err := json.Unmarshal([]byte(raw), &ext); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(ext.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(ext.Events))
	}
	if ext.Events[1].Chapter != "第三章" {
		t.Errorf("chapter = %q", ext.Events[1].Chapter)
	}
}

func TestSnapshot_Empty(t *testing.T) {
	snap := NewSnapshot("book", "author")
	if !snap.Empty() {
		t.Error("fresh snapshot should be empty")
	}
	Merge(snap, &Extraction{Themes: []string{"memory"}})
	if snap.Empty() {
		t.Error("snapshot with a theme is not empty")
	}
}
