package battle

import (
	"context"
	"sync"
)

// writeGroup counts in-flight rating writes and refuses new ones once closed
type writeGroup struct {
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// add reserves one pending comparison; false after close
func (g *writeGroup) add() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.wg.Add(1)
	return true
}

func (g *writeGroup) done() {
	g.wg.Done()
}

func (g *writeGroup) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

func (g *writeGroup) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

func (g *writeGroup) wait() {
	g.wg.Wait()
}

type ratingUpdate struct {
	itemID string
	rating float64
}

// writeBatch holds the rating updates of one comparison
type writeBatch struct {
	ctx     context.Context
	updates []ratingUpdate
}

// enqueue appends a batch and starts the drainer if none is running.
// Callers hold s.mu.
func (s *Session) enqueue(b writeBatch) {
	s.queue = append(s.queue, b)
	if !s.draining {
		s.draining = true
		go s.drain()
	}
}

// drain persists queued batches one at a time in comparison order
func (s *Session) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		b := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		for _, u := range b.updates {
			s.persist(b.ctx, u.itemID, u.rating)
		}
		s.writes.done()
	}
}
