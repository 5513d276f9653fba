package reports

import (
	"time"

	"resume-match/internal/analysis"
)

// SavedReport is an analysis result persisted to a user's history. It is
// never mutated after creation.
type SavedReport struct {
	analysis.Result
	ID      string    `json:"id"`
	UserID  string    `json:"userId"`
	SavedAt time.Time `json:"savedAt"`
}
