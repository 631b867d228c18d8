package xray

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// UnmarshalJSON resolves the map-or-list shape providers use for
// locations. A JSON object is treated as name -> description (or
// name -> {description, importance}); an array decodes element-wise.
func (l *ExtractedLocations) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*l = nil
		return nil
	}

	if trimmed[0] == '[' {
		var list []ExtractedLocation
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return err
		}
		*l = list
		return nil
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return err
	}

	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ExtractedLocation, 0, len(m))
	for _, name := range names {
		val := bytes.TrimSpace(m[name])
		loc := ExtractedLocation{Name: name}
		if len(val) > 0 && val[0] == '{' {
			var obj struct {
				Description string `json:"description"`
				Importance  string `json:"importance"`
			}
			if err := json.Unmarshal(val, &obj); err != nil {
				return err
			}
			loc.Description = obj.Description
			loc.Importance = obj.Importance
		} else {
			var desc string
			if err := json.Unmarshal(val, &desc); err != nil {
				return err
			}
			loc.Description = desc
		}
		out = append(out, loc)
	}
	*l = out
	return nil
}

// UnmarshalJSON accepts timeline events as plain strings or objects.
func (e *ExtractedEvents) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*e = nil
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return err
	}

	out := make([]ExtractedEvent, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 {
			continue
		}
		if item[0] == '"' {
			var text string
			if err := json.Unmarshal(item, &text); err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				continue
			}
			out = append(out, ExtractedEvent{Event: strings.TrimSpace(text)})
			continue
		}
		var ev ExtractedEvent
		if err := json.Unmarshal(item, &ev); err != nil {
			return err
		}
		if strings.TrimSpace(ev.Event) == "" {
			continue
		}
		out = append(out, ev)
	}
	*e = out
	return nil
}
