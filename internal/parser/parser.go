// Package parser turns raw model output into a field map. Parse is total:
// any input yields a usable result.
package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"briefing/internal/textutil"
)

const (
	// RawTextLimit bounds the raw text carried by a degraded result.
	RawTextLimit = 1500

	DegradedImagePrompt = "A simple infographic summarizing the key points"
	EmptyRawText        = "Processing error occurred."
)

var (
	leadingFenceRe  = regexp.MustCompile("^```(?:json)?\\s*")
	trailingFenceRe = regexp.MustCompile("\\s*```$")
	firstObjectRe   = regexp.MustCompile(`\{[\s\S]*?\}`)
)

// Parsed is the outcome of Parse. Degraded results carry page-shaped
// placeholder fields built from the raw text.
type Parsed struct {
	Fields   map[string]any
	Degraded bool
}

// Parse strips markdown fences, decodes the JSON object and falls back to
// the first embedded object. contextID is stored as page_number.
func Parse(raw string, contextID int) Parsed {
	cleaned := strings.TrimSpace(raw)
	cleaned = leadingFenceRe.ReplaceAllString(cleaned, "")
	cleaned = trailingFenceRe.ReplaceAllString(cleaned, "")

	for _, candidate := range candidates(raw, cleaned) {
		if fields, ok := decodeObject(candidate); ok {
			fields["page_number"] = contextID
			return Parsed{Fields: fields}
		}
	}
	return degraded(raw, contextID)
}

func candidates(raw, cleaned string) []string {
	out := []string{cleaned}
	if m := firstObjectRe.FindString(raw); m != "" {
		out = append(out, m)
	}
	if i, j := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); i >= 0 && j > i {
		out = append(out, raw[i:j+1])
	}
	return out
}

func decodeObject(s string) (map[string]any, bool) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(s), &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

func degraded(raw string, contextID int) Parsed {
	text := textutil.Truncate(raw, RawTextLimit)
	if strings.TrimSpace(raw) == "" {
		text = EmptyRawText
	}
	return Parsed{
		Degraded: true,
		Fields: map[string]any{
			"page_number":     contextID,
			"title":           fmt.Sprintf("Section %d", contextID),
			"simplified_text": text,
			"image_prompt":    DegradedImagePrompt,
		},
	}
}

// Has reports whether key is present.
func (p Parsed) Has(key string) bool {
	_, ok := p.Fields[key]
	return ok
}

// String returns the field as text. Non-string scalars are formatted.
func (p Parsed) String(key string) string {
	switch v := p.Fields[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64, bool:
		return fmt.Sprint(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Int returns a numeric field and whether it was present as a number.
func (p Parsed) Int(key string) (int, bool) {
	switch v := p.Fields[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// Strings returns a list field, skipping non-string entries.
func (p Parsed) Strings(key string) []string {
	items, _ := p.Fields[key].([]any)
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Objects returns a list field of objects, skipping anything else.
func (p Parsed) Objects(key string) []Parsed {
	items, _ := p.Fields[key].([]any)
	out := make([]Parsed, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, Parsed{Fields: m})
		}
	}
	return out
}
