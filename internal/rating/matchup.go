package rating

import (
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/meur/eloforge/internal/models"
)

// Selector defaults
const (
	DefaultBucketWidth = 100.0
	DefaultMaxRetries  = 10
)

// ErrInsufficientItems is returned when fewer than two candidates are supplied
var ErrInsufficientItems = errors.New("at least 2 items are required for a matchup")

// Pair is an unordered pair of items shown together
type Pair [2]models.Item

// IsZero reports whether the pair is unset
func (p Pair) IsZero() bool {
	return p[0].ID == "" && p[1].ID == ""
}

// Contains reports whether the pair includes itemID
func (p Pair) Contains(itemID string) bool {
	return itemID != "" && (p[0].ID == itemID || p[1].ID == itemID)
}

// Overlaps reports whether the pairs share at least one item
func (p Pair) Overlaps(other Pair) bool {
	return other.Contains(p[0].ID) || other.Contains(p[1].ID)
}

// Opponent returns the other member of the pair
func (p Pair) Opponent(itemID string) (models.Item, bool) {
	switch itemID {
	case p[0].ID:
		return p[1], true
	case p[1].ID:
		return p[0], true
	}
	return models.Item{}, false
}

// Selection is the result of one Select call
type Selection struct {
	Pair Pair
	// Fallback is set when no rating group had two members and the pair was
	// drawn from the whole candidate set.
	Fallback bool
	// Repeat is set when the retry budget ran out and the pair still shares an
	// item with the previous one.
	Repeat   bool
	Attempts int
}

// Option configures a Selector
type Option func(*Selector)

// WithBucketWidth sets the rating span of one group
func WithBucketWidth(w float64) Option {
	return func(s *Selector) {
		if w > 0 {
			s.bucketWidth = w
		}
	}
}

// WithMaxRetries sets how many re-draws are tried to avoid repeating the previous pair
func WithMaxRetries(n int) Option {
	return func(s *Selector) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// Selector picks the next pair of items to compare. Items are bucketed by
// rating so that pairs are drawn from comparable items, and the previous pair
// is avoided within a bounded number of re-draws.
type Selector struct {
	mu          sync.Mutex
	rng         *rand.Rand
	bucketWidth float64
	maxRetries  int
}

// NewSelector creates a Selector drawing from rng; a nil rng uses a randomly seeded source
func NewSelector(rng *rand.Rand, opts ...Option) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	s := &Selector{
		rng:         rng,
		bucketWidth: DefaultBucketWidth,
		maxRetries:  DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BucketWidth returns the configured group width
func (s *Selector) BucketWidth() float64 {
	return s.bucketWidth
}

// GroupKey returns the rating group an item belongs to
func (s *Selector) GroupKey(r float64) int {
	return int(math.Floor(r / s.bucketWidth))
}

// Groups partitions items by rating group, keeping only groups with two or more members
func (s *Selector) Groups(items []models.Item) map[int][]models.Item {
	all := make(map[int][]models.Item)
	for _, item := range items {
		key := s.GroupKey(item.Rating)
		all[key] = append(all[key], item)
	}
	for key, group := range all {
		if len(group) < 2 {
			delete(all, key)
		}
	}
	return all
}

// Select chooses the next pair from items, avoiding previous when possible
func (s *Selector) Select(items []models.Item, previous Pair) (Selection, error) {
	if len(items) < 2 {
		return Selection{}, ErrInsufficientItems
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	groups := s.Groups(items)
	if len(groups) == 0 {
		return Selection{Pair: s.draw(items), Fallback: true, Attempts: 1}, nil
	}

	// Map order is random; sort keys so a seeded source stays deterministic.
	keys := make([]int, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	group := groups[keys[s.rng.IntN(len(keys))]]

	sel := Selection{Pair: s.draw(group), Attempts: 1}
	if previous.IsZero() {
		return sel, nil
	}
	for sel.Pair.Overlaps(previous) && sel.Attempts <= s.maxRetries {
		sel.Pair = s.draw(group)
		sel.Attempts++
	}
	sel.Repeat = sel.Pair.Overlaps(previous)
	return sel, nil
}

// draw picks two distinct items uniformly at random
func (s *Selector) draw(items []models.Item) Pair {
	n := len(items)
	i := s.rng.IntN(n)
	j := s.rng.IntN(n - 1)
	if j >= i {
		j++
	}
	return Pair{items[i], items[j]}
}
