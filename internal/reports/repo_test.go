package reports

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-match/internal/analysis"
)

func sampleResult(title string) analysis.Result {
	return analysis.Result{
		JobTitle:           title,
		MatchScore:         64,
		Summary:            "Solid match.",
		MatchingKeywords:   []string{"Go"},
		MissingKeywords:    []string{"Kubernetes"},
		Suggestions:        []analysis.Suggestion{{Title: "Add k8s", Description: "Mention cluster work."}},
		OriginalResumeText: "orig",
		ImprovedResumeText: "better",
	}
}

func TestMemoryRepoListsNewestFirstPerUser(t *testing.T) {
	repo := NewMemoryRepo()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	ctx := context.Background()

	first, err := repo.Save(ctx, "alice", sampleResult("first"))
	require.NoError(t, err)
	_, err = repo.Save(ctx, "bob", sampleResult("other"))
	require.NoError(t, err)
	second, err := repo.Save(ctx, "alice", sampleResult("second"))
	require.NoError(t, err)

	list, err := repo.ListByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.True(t, list[0].SavedAt.After(list[1].SavedAt))
}

func TestMemoryRepoSameInstantKeepsInsertionOrder(t *testing.T) {
	repo := NewMemoryRepo()
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }
	ctx := context.Background()

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		report, err := repo.Save(ctx, "alice", sampleResult("r"))
		require.NoError(t, err)
		ids = append(ids, report.ID)
	}
	list, err := repo.ListByUser(ctx, "alice")
	require.NoError(t, err)
	for i, report := range list {
		assert.Equal(t, ids[len(ids)-1-i], report.ID)
	}
}

func TestMemoryRepoSaveDoesNotAliasInput(t *testing.T) {
	repo := NewMemoryRepo()
	result := sampleResult("x")
	saved, err := repo.Save(context.Background(), "alice", result)
	require.NoError(t, err)

	result.MatchingKeywords[0] = "mutated"
	got, err := repo.GetByID(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go", got.MatchingKeywords[0])
}

func TestMemoryRepoDelete(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	saved, err := repo.Save(ctx, "alice", sampleResult("x"))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, saved.ID))
	assert.True(t, errors.Is(repo.Delete(ctx, saved.ID), ErrNotFound))
}

func TestPGRepoSaveUsesStoreTimestamp(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGRepo{DB: db}

	savedAt := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO reports").
		WithArgs(
			sqlmock.AnyArg(),
			"alice",
			"Backend",
			64,
			"Solid match.",
			[]byte(`["Go"]`),
			[]byte(`["Kubernetes"]`),
			[]byte(`[{"title":"Add k8s","description":"Mention cluster work."}]`),
			"orig",
			"better",
		).
		WillReturnRows(sqlmock.NewRows([]string{"saved_at"}).AddRow(savedAt))

	report, err := repo.Save(context.Background(), "alice", sampleResult("Backend"))
	require.NoError(t, err)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, savedAt, report.SavedAt)
	assert.Equal(t, "alice", report.UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoListByUserDecodesJSONColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGRepo{DB: db}

	newer := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)
	cols := []string{"id", "user_id", "saved_at", "job_title", "match_score", "summary",
		"matching_keywords", "missing_keywords", "suggestions", "original_resume_text", "improved_resume_text"}
	mock.ExpectQuery("FROM reports WHERE user_id = \\$1 ORDER BY saved_at DESC").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("r2", "alice", newer, "Staff", 80, "s", []byte(`["Go"]`), []byte(`[]`), []byte(`[]`), "o", "i").
			AddRow("r1", "alice", older, "Senior", 55, "s", []byte(`[]`), []byte(`["Rust"]`), []byte(`[{"title":"t","description":"d"}]`), "o", "i"))

	list, err := repo.ListByUser(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r2", list[0].ID)
	assert.Equal(t, []string{"Go"}, list[0].MatchingKeywords)
	assert.Equal(t, []string{"Rust"}, list[1].MissingKeywords)
	assert.Equal(t, "t", list[1].Suggestions[0].Title)
}

func TestSavedReportJSONIsFlat(t *testing.T) {
	report := SavedReport{Result: sampleResult("Backend"), ID: "r1", UserID: "alice", SavedAt: time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)}
	raw, err := json.Marshal(report)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "Backend", fields["jobTitle"])
	assert.Equal(t, "r1", fields["id"])
	assert.Equal(t, "alice", fields["userId"])
	assert.Equal(t, "2024-03-09T12:00:00Z", fields["savedAt"])
}
