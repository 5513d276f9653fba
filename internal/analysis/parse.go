package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Parse decodes a model response into a Result. Every field must be present
// and non-null, matchScore must be an integer in [0,100], and each suggestion
// needs both a title and a description. Markdown code fences around the body
// are tolerated. Unknown keys are ignored.
func Parse(raw []byte) (Result, error) {
	body := []byte(cleanJSON(string(raw)))

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	for _, key := range fieldOrder {
		value, ok := fields[key]
		if !ok || isNull(value) {
			return Result{}, fmt.Errorf("%w: missing field %q", ErrMalformedResponse, key)
		}
	}

	score, err := parseScore(fields["matchScore"])
	if err != nil {
		return Result{}, err
	}

	var rawSuggestions []map[string]json.RawMessage
	if err := json.Unmarshal(fields["suggestions"], &rawSuggestions); err != nil {
		return Result{}, fmt.Errorf("%w: suggestions: %v", ErrMalformedResponse, err)
	}
	for i, item := range rawSuggestions {
		for _, key := range []string{"title", "description"} {
			if v, ok := item[key]; !ok || isNull(v) {
				return Result{}, fmt.Errorf("%w: suggestions[%d] missing %q", ErrMalformedResponse, i, key)
			}
		}
	}

	var out struct {
		JobTitle           string       `json:"jobTitle"`
		Summary            string       `json:"summary"`
		MatchingKeywords   []string     `json:"matchingKeywords"`
		MissingKeywords    []string     `json:"missingKeywords"`
		Suggestions        []Suggestion `json:"suggestions"`
		OriginalResumeText string       `json:"originalResumeText"`
		ImprovedResumeText string       `json:"improvedResumeText"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return Result{
		JobTitle:           out.JobTitle,
		MatchScore:         score,
		Summary:            out.Summary,
		MatchingKeywords:   nonNil(out.MatchingKeywords),
		MissingKeywords:    nonNil(out.MissingKeywords),
		Suggestions:        nonNilSuggestions(out.Suggestions),
		OriginalResumeText: out.OriginalResumeText,
		ImprovedResumeText: out.ImprovedResumeText,
	}, nil
}

func parseScore(raw json.RawMessage) (int, error) {
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] == '"' {
		return 0, fmt.Errorf("%w: matchScore is not a number", ErrMalformedResponse)
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return 0, fmt.Errorf("%w: matchScore is not a number", ErrMalformedResponse)
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: matchScore %s is not an integer", ErrMalformedResponse, n)
	}
	if f < 0 || f > 100 {
		return 0, fmt.Errorf("%w: matchScore %s out of range", ErrMalformedResponse, n)
	}
	return int(f), nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func nonNilSuggestions(in []Suggestion) []Suggestion {
	if in == nil {
		return []Suggestion{}
	}
	return in
}

// cleanJSON strips a surrounding markdown code fence.
func cleanJSON(input string) string {
	clean := strings.TrimSpace(input)
	if strings.HasPrefix(clean, "```json") {
		clean = strings.TrimPrefix(clean, "```json")
	} else if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
	}
	clean = strings.TrimLeft(clean, "\r\n")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}
