// Package share encodes analysis results into URL fragments so a report can
// be shared without server-side storage.
package share

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"

	"resume-match/internal/analysis"
	"resume-match/internal/shared/telemetry"
)

// FragmentPrefix starts every share fragment.
const FragmentPrefix = "#report="

// Encode serializes result as compact JSON, base64url encodes it and appends
// it to pageURL's origin and path. Any query or fragment on pageURL is
// dropped.
func Encode(result analysis.Result, pageURL string) (string, error) {
	base, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	page := url.URL{Scheme: base.Scheme, Host: base.Host, Path: base.Path}
	return page.String() + FragmentPrefix + base64.RawURLEncoding.EncodeToString(payload), nil
}

// Decode reverses Encode. It accepts a bare fragment or a full URL, in
// base64url or standard base64. It succeeds only when the payload is JSON
// with a numeric matchScore; any failure is logged and reported as false.
func Decode(fragmentOrURL string) (analysis.Result, bool) {
	result, err := decode(fragmentOrURL)
	if err != nil {
		telemetry.Warn("share.decode_failed", map[string]any{"error": err})
		return analysis.Result{}, false
	}
	return result, true
}

// HasFragment reports whether s carries a share fragment.
func HasFragment(s string) bool {
	return strings.Contains(s, FragmentPrefix)
}

var errNoFragment = errors.New("no report fragment")

func decode(s string) (analysis.Result, error) {
	idx := strings.Index(s, FragmentPrefix)
	if idx < 0 {
		return analysis.Result{}, errNoFragment
	}
	data := strings.TrimSpace(s[idx+len(FragmentPrefix):])
	if strings.Contains(data, "%") {
		unescaped, err := url.PathUnescape(data)
		if err != nil {
			return analysis.Result{}, fmt.Errorf("unescape: %w", err)
		}
		data = unescaped
	}

	payload, err := decodeBase64(data)
	if err != nil {
		return analysis.Result{}, err
	}

	// Keys are matched exactly.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return analysis.Result{}, fmt.Errorf("parse json: %w", err)
	}
	score, err := numericScore(fields["matchScore"])
	if err != nil {
		return analysis.Result{}, err
	}

	out := analysis.Result{MatchScore: score}
	targets := []struct {
		key string
		dst any
	}{
		{"jobTitle", &out.JobTitle},
		{"summary", &out.Summary},
		{"matchingKeywords", &out.MatchingKeywords},
		{"missingKeywords", &out.MissingKeywords},
		{"suggestions", &out.Suggestions},
		{"originalResumeText", &out.OriginalResumeText},
		{"improvedResumeText", &out.ImprovedResumeText},
	}
	for _, t := range targets {
		raw, ok := fields[t.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, t.dst); err != nil {
			return analysis.Result{}, fmt.Errorf("field %s: %w", t.key, err)
		}
	}
	return out, nil
}

// numericScore requires a JSON number and rounds it into [0,100], since
// shared links are untrusted input.
func numericScore(raw json.RawMessage) (int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0, errors.New("matchScore missing")
	}
	if trimmed[0] == '"' {
		return 0, errors.New("matchScore is not a number")
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return 0, errors.New("matchScore is not a number")
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) {
		return 0, errors.New("matchScore is not a number")
	}
	return analysis.ClampScore(int(math.Round(math.Max(-1, math.Min(f, 101))))), nil
}

func decodeBase64(data string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	}
	for _, enc := range encodings {
		if payload, err := enc.DecodeString(data); err == nil {
			return payload, nil
		}
	}
	return nil, errors.New("invalid base64 payload")
}

// StripFragment removes the fragment from a URL so reloading does not decode
// the same report again.
func StripFragment(rawURL string) string {
	if idx := strings.Index(rawURL, "#"); idx >= 0 {
		return rawURL[:idx]
	}
	return rawURL
}
