package generate

import (
	"encoding/json"
	"strings"
)

// Result is the structured shape the generator is asked to return.
type Result struct {
	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	Insights        []string `json:"insights"`
	Recommendations []string `json:"recommendations"`
	DataQuality     string   `json:"dataQuality"`
}

// Outcome is the tagged result of parsing generated text. When Degraded is
// set, structured parsing failed and Result holds a fallback built from the
// raw text, with data quality marked limited.
type Outcome struct {
	Result   Result
	Raw      string
	Degraded bool
}

const degradedTitle = "Business Analysis"

// Parse extracts the structured result from generated text, tolerating
// markdown code fences around the JSON. Malformed output never fails the
// call; it degrades to a single raw-text insight.
func Parse(text string) Outcome {
	raw := strings.TrimSpace(text)
	candidate := stripFences(raw)

	var res Result
	if err := json.Unmarshal([]byte(candidate), &res); err == nil && res.Title != "" && len(res.Insights) > 0 {
		if res.DataQuality == "" {
			res.DataQuality = "fair"
		}
		return Outcome{Result: res, Raw: raw}
	}

	return Outcome{
		Result: Result{
			Title:       degradedTitle,
			Insights:    []string{raw},
			DataQuality: "limited",
		},
		Raw:      raw,
		Degraded: true,
	}
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := s
	if idx := strings.IndexByte(body, '\n'); idx >= 0 {
		body = body[idx+1:]
	} else {
		return s
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}
