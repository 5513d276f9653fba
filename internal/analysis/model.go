package analysis

// Suggestion is one actionable improvement to the resume.
type Suggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Result is the structured match assessment returned by the model. It is
// treated as immutable once received.
type Result struct {
	JobTitle           string       `json:"jobTitle"`
	MatchScore         int          `json:"matchScore"`
	Summary            string       `json:"summary"`
	MatchingKeywords   []string     `json:"matchingKeywords"`
	MissingKeywords    []string     `json:"missingKeywords"`
	Suggestions        []Suggestion `json:"suggestions"`
	OriginalResumeText string       `json:"originalResumeText"`
	ImprovedResumeText string       `json:"improvedResumeText"`
}

// Clone returns a deep copy so callers never share slices.
func (r Result) Clone() Result {
	out := r
	out.MatchingKeywords = cloneStrings(r.MatchingKeywords)
	out.MissingKeywords = cloneStrings(r.MissingKeywords)
	if r.Suggestions != nil {
		out.Suggestions = append([]Suggestion(nil), r.Suggestions...)
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

// UploadedFile is a resume file held in memory for one submission. Data is
// base64 encoded.
type UploadedFile struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// ResumeSource carries either pasted text or an uploaded file.
type ResumeSource struct {
	Text string
	File *UploadedFile
}

// Empty reports whether neither source carries content.
func (s ResumeSource) Empty() bool {
	if s.File != nil {
		return s.File.Data == ""
	}
	return s.Text == ""
}

// Score bands used by the view to colour the match score.
const (
	BandLow    = "low"
	BandMedium = "medium"
	BandHigh   = "high"
)

// ScoreBand clamps score into [0,100] and buckets it.
func ScoreBand(score int) string {
	switch {
	case ClampScore(score) >= 75:
		return BandHigh
	case ClampScore(score) >= 50:
		return BandMedium
	default:
		return BandLow
	}
}

// ClampScore pins a score into [0,100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
