// Package parse turns raw model output back into per-ticket results.
// Model output is untrusted: replies arrive fenced in markdown, wrapped in
// prose, partially filled, or not as JSON at all. ParseBatch absorbs all of
// that and degrades to incomplete results instead of returning errors.
package parse

import (
	"encoding/json"
	"fmt"
	"strings"

	"triago/internal/analysis"
	"triago/internal/models"
)

// ParseBatch extracts one AnalysisResult per ticket in the batch from raw
// model output, keyed by ticket identifier. It never fails: tickets the
// reply does not cover, fields it does not fill, and values outside a closed
// answer set all surface as incomplete results with the affected keys in the
// missing list.
func ParseBatch(raw string, batch models.Batch, defs []analysis.Definition, explanations bool) map[string]models.AnalysisResult {
	objects := decodeObjects(raw)

	byID := make(map[string]map[string]any, len(objects))
	for _, obj := range objects {
		id := objectID(obj)
		if id == "" {
			continue
		}
		if _, dup := byID[id]; dup {
			continue
		}
		byID[id] = obj
	}

	// A bare object without a ticket_id is attributed to the only ticket of
	// a single-ticket batch.
	if len(byID) == 0 && len(objects) == 1 && len(batch.Tickets) == 1 {
		byID[batch.Tickets[0].ID] = objects[0]
	}

	results := make(map[string]models.AnalysisResult, len(batch.Tickets))
	for _, tk := range batch.Tickets {
		results[tk.ID] = ticketResult(tk.ID, byID[tk.ID], defs, explanations)
	}
	return results
}

func ticketResult(id string, obj map[string]any, defs []analysis.Definition, explanations bool) models.AnalysisResult {
	res := models.AnalysisResult{
		TicketID: id,
		Fields:   make(map[string]string, len(defs)*2),
		Status:   models.ResultStatusComplete,
	}

	for _, d := range defs {
		value, found := fieldValue(obj, d.Key())
		switch {
		case !found:
			res.Fields[d.Key()] = "N/A"
			res.Missing = append(res.Missing, d.Key())
		case !d.ValidAnswer(value):
			res.Fields[d.Key()] = value
			res.Missing = append(res.Missing, d.Key())
		default:
			res.Fields[d.Key()] = value
		}

		if !explanations {
			continue
		}
		expl, found := fieldValue(obj, d.ExplanationKey())
		if !found {
			res.Fields[d.ExplanationKey()] = ""
			res.Missing = append(res.Missing, d.ExplanationKey())
			continue
		}
		res.Fields[d.ExplanationKey()] = expl
	}

	if len(res.Missing) > 0 {
		res.Status = models.ResultStatusIncomplete
	}
	return res
}

// decodeObjects pulls JSON objects out of raw model text. It tries the whole
// reply first, then the outermost bracketed array, then the outermost braced
// object, after discarding markdown code fences.
func decodeObjects(raw string) []map[string]any {
	text := stripFences(raw)
	for _, candidate := range jsonCandidates(text) {
		if objs, ok := tryDecode(candidate); ok {
			return objs
		}
	}
	return nil
}

func stripFences(raw string) string {
	text := strings.ReplaceAll(raw, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

func jsonCandidates(text string) []string {
	out := []string{text}
	if i, j := strings.Index(text, "["), strings.LastIndex(text, "]"); i >= 0 && j > i {
		out = append(out, text[i:j+1])
	}
	if i, j := strings.Index(text, "{"), strings.LastIndex(text, "}"); i >= 0 && j > i {
		out = append(out, text[i:j+1])
	}
	return out
}

func tryDecode(s string) ([]map[string]any, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	switch s[0] {
	case '[':
		var arr []any
		if err := json.Unmarshal([]byte(s), &arr); err != nil {
			return nil, false
		}
		objs := make([]map[string]any, 0, len(arr))
		for _, el := range arr {
			if m, ok := el.(map[string]any); ok {
				objs = append(objs, m)
			}
		}
		return objs, len(objs) > 0
	case '{':
		var m map[string]any
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return nil, false
		}
		return []map[string]any{m}, true
	}
	return nil, false
}

func objectID(obj map[string]any) string {
	v, found := lookupKey(obj, "ticket_id")
	if !found {
		return ""
	}
	return stringify(v)
}

// fieldValue resolves one requested key inside a decoded object, falling back
// to the lowercased, underscore-normalized form of the model's keys. An empty
// value counts as absent.
func fieldValue(obj map[string]any, key string) (string, bool) {
	v, found := lookupKey(obj, key)
	if !found {
		return "", false
	}
	s := stringify(v)
	if s == "" {
		return "", false
	}
	return s, true
}

func lookupKey(obj map[string]any, key string) (any, bool) {
	if v, ok := obj[key]; ok {
		return v, true
	}
	want := normalizeKey(key)
	for k, v := range obj {
		if normalizeKey(k) == want {
			return v, true
		}
	}
	return nil, false
}

func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), " ", "_")
}

// stringify flattens a decoded JSON value to the string written into the
// output table. Structured values are re-encoded as compact JSON.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}
