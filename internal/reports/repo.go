package reports

import (
	"context"
	"errors"

	"resume-match/internal/analysis"
)

var ErrNotFound = errors.New("report not found")

// Repo is the report collection. Save assigns the id and savedAt; ListByUser
// returns reports newest first.
type Repo interface {
	Save(ctx context.Context, userID string, result analysis.Result) (SavedReport, error)
	ListByUser(ctx context.Context, userID string) ([]SavedReport, error)
	GetByID(ctx context.Context, reportID string) (SavedReport, error)
	Delete(ctx context.Context, reportID string) error
}
