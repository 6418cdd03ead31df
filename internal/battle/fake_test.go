package battle

import (
	"context"
	"sync"

	"github.com/meur/eloforge/internal/models"
)

// ------------------------
// Fake Store
// ------------------------

type FakeStore struct {
	mu      sync.Mutex
	trace   []string
	written map[string]float64

	ListItemsFunc    func(ctx context.Context, listID string) ([]models.Item, error)
	UpdateRatingFunc func(ctx context.Context, itemID string, rating float64) error
}

func NewFakeStore(items []models.Item) *FakeStore {
	return &FakeStore{
		written: map[string]float64{},
		ListItemsFunc: func(ctx context.Context, listID string) ([]models.Item, error) {
			return items, nil
		},
	}
}

func (f *FakeStore) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

func (f *FakeStore) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.trace...)
}

func (f *FakeStore) Written() map[string]float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]float64, len(f.written))
	for k, v := range f.written {
		out[k] = v
	}
	return out
}

func (f *FakeStore) ListItems(ctx context.Context, listID string) ([]models.Item, error) {
	f.record("ListItems")
	if f.ListItemsFunc != nil {
		return f.ListItemsFunc(ctx, listID)
	}
	return nil, nil
}

func (f *FakeStore) UpdateRating(ctx context.Context, itemID string, rating float64) error {
	f.record("UpdateRating")
	if f.UpdateRatingFunc != nil {
		if err := f.UpdateRatingFunc(ctx, itemID, rating); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.written[itemID] = rating
	f.mu.Unlock()
	return nil
}

// ------------------------
// Fake Recorder
// ------------------------

type FakeRecorder struct {
	mu            sync.Mutex
	Comparisons   int
	WriteOK       int
	WriteFailed   int
	Selections    int
	Started       int
	ActiveReports []int
}

func (r *FakeRecorder) ComparisonRecorded() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Comparisons++
}

func (r *FakeRecorder) RatingWritten(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.WriteFailed++
		return
	}
	r.WriteOK++
}

func (r *FakeRecorder) PairSelected(fallback, repeat bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Selections++
}

func (r *FakeRecorder) SessionStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Started++
}

func (r *FakeRecorder) SessionsActive(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ActiveReports = append(r.ActiveReports, n)
}

func (r *FakeRecorder) snapshot() (comparisons, ok, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Comparisons, r.WriteOK, r.WriteFailed
}
