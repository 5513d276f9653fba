package reports

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"resume-match/internal/analysis"
)

type memoryEntry struct {
	report SavedReport
	seq    uint64
}

type MemoryRepo struct {
	mu      sync.RWMutex
	reports map[string]memoryEntry
	seq     uint64
	now     func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		reports: make(map[string]memoryEntry),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepo) Save(ctx context.Context, userID string, result analysis.Result) (SavedReport, error) {
	if err := ctx.Err(); err != nil {
		return SavedReport{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	report := SavedReport{
		Result:  result.Clone(),
		ID:      uuid.NewString(),
		UserID:  userID,
		SavedAt: r.now(),
	}
	r.reports[report.ID] = memoryEntry{report: report, seq: r.seq}
	return report, nil
}

// ListByUser orders by savedAt descending; saves within the same clock tick
// fall back to insertion order.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string) ([]SavedReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	entries := make([]memoryEntry, 0)
	for _, entry := range r.reports {
		if entry.report.UserID == userID {
			entries = append(entries, entry)
		}
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.report.SavedAt.Equal(b.report.SavedAt) {
			return a.seq > b.seq
		}
		return a.report.SavedAt.After(b.report.SavedAt)
	})
	out := make([]SavedReport, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.report)
	}
	return out, nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, reportID string) (SavedReport, error) {
	if err := ctx.Err(); err != nil {
		return SavedReport{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.reports[reportID]
	if !ok {
		return SavedReport{}, ErrNotFound
	}
	return entry.report, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, reportID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reports[reportID]; !ok {
		return ErrNotFound
	}
	delete(r.reports, reportID)
	return nil
}
