package rating

// DefaultStreakWeight is the K bonus per consecutive win
const DefaultStreakWeight = 0.1

// Streaks tracks consecutive wins per item for one battle session and derives
// the sensitivity factor from them. It is not safe for concurrent use.
type Streaks struct {
	BaseK  float64
	Weight float64
	counts map[string]int
}

// NewStreaks creates an empty tracker
func NewStreaks(baseK, weight float64) *Streaks {
	return &Streaks{
		BaseK:  baseK,
		Weight: weight,
		counts: make(map[string]int),
	}
}

// Get returns the current streak of an item; unseen items are at 0
func (s *Streaks) Get(itemID string) int {
	return s.counts[itemID]
}

// Record registers a win and returns the K to apply to it
func (s *Streaks) Record(winnerID, loserID string) float64 {
	s.counts[winnerID]++
	s.counts[loserID] = 0
	return s.K(s.counts[winnerID])
}

// K returns baseK scaled by the given streak length
func (s *Streaks) K(streak int) float64 {
	return s.BaseK * (1 + float64(streak)*s.Weight)
}

// Snapshot copies the non-zero streaks
func (s *Streaks) Snapshot() map[string]int {
	out := make(map[string]int, len(s.counts))
	for id, n := range s.counts {
		if n > 0 {
			out[id] = n
		}
	}
	return out
}
