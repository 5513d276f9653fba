package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"resume-match/internal/analysis"
)

type PGRepo struct {
	DB *sql.DB
}

const selectColumns = `id, user_id, saved_at, job_title, match_score, summary,
  matching_keywords, missing_keywords, suggestions,
  original_resume_text, improved_resume_text`

func (r *PGRepo) Save(ctx context.Context, userID string, result analysis.Result) (SavedReport, error) {
	matching, err := marshalJSON(result.MatchingKeywords)
	if err != nil {
		return SavedReport{}, err
	}
	missing, err := marshalJSON(result.MissingKeywords)
	if err != nil {
		return SavedReport{}, err
	}
	suggestions, err := marshalJSON(result.Suggestions)
	if err != nil {
		return SavedReport{}, err
	}

	const query = `
INSERT INTO reports (id, user_id, saved_at, job_title, match_score, summary,
  matching_keywords, missing_keywords, suggestions,
  original_resume_text, improved_resume_text)
VALUES ($1, $2, now(), $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING saved_at`
	report := SavedReport{Result: result.Clone(), ID: uuid.NewString(), UserID: userID}
	err = r.DB.QueryRowContext(ctx, query,
		report.ID,
		userID,
		result.JobTitle,
		result.MatchScore,
		result.Summary,
		matching,
		missing,
		suggestions,
		result.OriginalResumeText,
		result.ImprovedResumeText,
	).Scan(&report.SavedAt)
	if err != nil {
		return SavedReport{}, err
	}
	return report, nil
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]SavedReport, error) {
	query := `
SELECT ` + selectColumns + `
FROM reports
WHERE user_id = $1
ORDER BY saved_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]SavedReport, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, report)
	}
	return out, rows.Err()
}

func (r *PGRepo) GetByID(ctx context.Context, reportID string) (SavedReport, error) {
	query := `
SELECT ` + selectColumns + `
FROM reports
WHERE id = $1
LIMIT 1`
	report, err := scanReport(r.DB.QueryRowContext(ctx, query, reportID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SavedReport{}, ErrNotFound
		}
		return SavedReport{}, err
	}
	return report, nil
}

func (r *PGRepo) Delete(ctx context.Context, reportID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM reports WHERE id = $1`, reportID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (SavedReport, error) {
	var report SavedReport
	var matching, missing, suggestions []byte
	err := row.Scan(
		&report.ID,
		&report.UserID,
		&report.SavedAt,
		&report.JobTitle,
		&report.MatchScore,
		&report.Summary,
		&matching,
		&missing,
		&suggestions,
		&report.OriginalResumeText,
		&report.ImprovedResumeText,
	)
	if err != nil {
		return SavedReport{}, err
	}
	if err := json.Unmarshal(matching, &report.MatchingKeywords); err != nil {
		return SavedReport{}, err
	}
	if err := json.Unmarshal(missing, &report.MissingKeywords); err != nil {
		return SavedReport{}, err
	}
	if err := json.Unmarshal(suggestions, &report.Suggestions); err != nil {
		return SavedReport{}, err
	}
	return report, nil
}

func marshalJSON(value any) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return []byte("[]"), nil
	}
	return raw, nil
}
