package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/kartscore/internal/domain/model"
)

// MemoryStore is a fixed-size, in-memory Store. Slots are reserved up front so
// concurrent writers never reorder results.
type MemoryStore struct {
	mu     sync.RWMutex
	slots  []model.SessionScore
	filled []bool
	count  int
}

// NewMemoryStore creates a store with size slots.
func NewMemoryStore(size int) *MemoryStore {
	if size < 0 {
		size = 0
	}
	return &MemoryStore{
		slots:  make([]model.SessionScore, size),
		filled: make([]bool, size),
	}
}

// Size returns the number of reserved slots.
func (s *MemoryStore) Size() int { return len(s.slots) }

// Put stores score in slot.
func (s *MemoryStore) Put(ctx context.Context, slot int, score model.SessionScore) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if slot < 0 || slot >= len(s.slots) {
		return fmt.Errorf("%w: %d of %d", ErrSlotOutOfRange, slot, len(s.slots))
	}
	if s.filled[slot] {
		return fmt.Errorf("%w: %d holds session %d", ErrSlotTaken, slot, s.slots[slot].SessionID)
	}
	s.slots[slot] = score
	s.filled[slot] = true
	s.count++
	return nil
}

// All returns the filled slots in slot order.
func (s *MemoryStore) All(_ context.Context) []model.SessionScore {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.SessionScore, 0, s.count)
	for i, ok := range s.filled {
		if ok {
			out = append(out, s.slots[i])
		}
	}
	return out
}

// Ordered returns the filled slots arranged by o.
func (s *MemoryStore) Ordered(ctx context.Context, o Order) ([]model.SessionScore, error) {
	less, err := lessFor(o)
	if err != nil {
		return nil, err
	}
	out := s.All(ctx)
	if less != nil {
		sort.SliceStable(out, func(i, j int) bool { return less(&out[i], &out[j]) })
	}
	return out, nil
}

// Count returns the number of filled slots.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// lessFor returns the comparator of o, or nil for appearance order.
func lessFor(o Order) (func(a, b *model.SessionScore) bool, error) {
	switch o {
	case ByAppearance, "":
		return nil, nil
	case BySession:
		return func(a, b *model.SessionScore) bool { return a.SessionID < b.SessionID }, nil
	case ByTrack:
		return func(a, b *model.SessionScore) bool { return a.Track < b.Track }, nil
	case ByDifficulty:
		return func(a, b *model.SessionScore) bool { return a.Difficulty < b.Difficulty }, nil
	case ByScore:
		return func(a, b *model.SessionScore) bool { return a.FrustrationScore > b.FrustrationScore }, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOrder, string(o))
	}
}
