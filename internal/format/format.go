// Package format renders tool results as JSON or Markdown text and
// enforces the response size ceiling.
package format

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Mode selects the output rendering.
type Mode string

const (
	ModeJSON     Mode = "json"
	ModeMarkdown Mode = "markdown"
)

// ParseMode maps a tool argument to a Mode, defaulting to JSON.
func ParseMode(s string) Mode {
	if strings.EqualFold(s, string(ModeMarkdown)) {
		return ModeMarkdown
	}
	return ModeJSON
}

// Formatter renders results and truncates anything over Limit runes.
type Formatter struct {
	Limit int
}

// New creates a formatter with the given character limit.
func New(limit int) *Formatter {
	return &Formatter{Limit: limit}
}

// Format renders data in the given mode and applies the size ceiling.
// Strings pass through unrendered in markdown mode; everything else goes
// through a JSON round trip so renderings are independent of Go types.
func (f *Formatter) Format(data interface{}, mode Mode) (string, error) {
	var result string

	switch mode {
	case ModeMarkdown:
		v, err := normalize(data)
		if err != nil {
			return "", err
		}
		result = toMarkdown(v)
	default:
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode response: %w", err)
		}
		result = string(out)
	}

	return f.truncate(result), nil
}

// truncate cuts result at the limit and appends a notice telling the
// caller how to narrow the request.
func (f *Formatter) truncate(result string) string {
	if f.Limit <= 0 {
		return result
	}
	runes := []rune(result)
	if len(runes) <= f.Limit {
		return result
	}
	return fmt.Sprintf("%s\n\n[Response truncated at %d characters. Use filters or pagination to get more specific results.]",
		string(runes[:f.Limit]), f.Limit)
}

// normalize reduces arbitrary values to the JSON data model so the
// markdown walker only sees maps, slices, and scalars.
func normalize(data interface{}) (interface{}, error) {
	switch data.(type) {
	case string, nil:
		return data, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func toMarkdown(v interface{}) string {
	switch val := v.(type) {
	case map[string]interface{}:
		return mapToMarkdown(val, 0)
	case []interface{}:
		return listToMarkdown(val)
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// mapToMarkdown renders keys in sorted order so output is deterministic.
func mapToMarkdown(data map[string]interface{}, level int) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	indent := strings.Repeat("  ", level)
	var lines []string
	for _, key := range keys {
		switch val := data[key].(type) {
		case map[string]interface{}:
			lines = append(lines, fmt.Sprintf("%s**%s:**", indent, key))
			lines = append(lines, mapToMarkdown(val, level+1))
		case []interface{}:
			lines = append(lines, fmt.Sprintf("%s**%s:**", indent, key))
			lines = append(lines, listItems(val, indent, level)...)
		default:
			lines = append(lines, fmt.Sprintf("%s**%s:** %s", indent, key, scalar(val)))
		}
	}
	return strings.Join(lines, "\n")
}

func listItems(items []interface{}, indent string, level int) []string {
	var lines []string
	for i, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			lines = append(lines, fmt.Sprintf("%s  %d.", indent, i+1))
			lines = append(lines, mapToMarkdown(m, level+2))
		} else {
			lines = append(lines, fmt.Sprintf("%s  - %s", indent, scalar(item)))
		}
	}
	return lines
}

func listToMarkdown(items []interface{}) string {
	if len(items) == 0 {
		return "No items found."
	}
	var lines []string
	if _, ok := items[0].(map[string]interface{}); ok {
		for i, item := range items {
			lines = append(lines, fmt.Sprintf("\n### Item %d", i+1))
			if m, ok := item.(map[string]interface{}); ok {
				lines = append(lines, mapToMarkdown(m, 0))
			}
		}
	} else {
		for _, item := range items {
			lines = append(lines, fmt.Sprintf("- %s", scalar(item)))
		}
	}
	return strings.Join(lines, "\n")
}

// scalar renders a leaf value. JSON numbers arrive as float64; integral
// values print without a decimal point.
func scalar(v interface{}) string {
	switch val := v.(type) {
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", val)
	}
}
