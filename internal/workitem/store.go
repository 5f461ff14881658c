package workitem

import (
	"github.com/krugerplant/linesim/internal/core"
)

// counterKey scopes a completed/defective counter to a line or a shop.
// Line-scoped keys are {shop}-{line}; shop-scoped keys are the shop name
// alone.
type counterKey = string

// Store owns every WorkItem in a slab keyed by id; stations and buffers
// carry ids only. It also maintains the O(1) completed/defective
// counters the status surfaces read every tick instead of re-scanning
// all items.
type Store struct {
	items map[string]*WorkItem
	seq   *core.SequenceCounter

	completedByLine map[counterKey]int64
	completedByShop map[counterKey]int64
	defectiveByLine map[counterKey]int64
	defectiveByShop map[counterKey]int64
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		items:           make(map[string]*WorkItem),
		seq:             &core.SequenceCounter{},
		completedByLine: make(map[counterKey]int64),
		completedByShop: make(map[counterKey]int64),
		defectiveByLine: make(map[counterKey]int64),
		defectiveByShop: make(map[counterKey]int64),
	}
}

// Reset clears all owned state; Clock.Stop's full memory reset calls
// this.
func (s *Store) Reset() {
	s.items = make(map[string]*WorkItem)
	s.seq = &core.SequenceCounter{}
	s.completedByLine = make(map[counterKey]int64)
	s.completedByShop = make(map[counterKey]int64)
	s.defectiveByLine = make(map[counterKey]int64)
	s.defectiveByShop = make(map[counterKey]int64)
}

// NextSequence returns the next strictly-increasing sequence number.
func (s *Store) NextSequence() int64 {
	return s.seq.Next()
}

// PeekNextSequence returns the sequence number the next NewCar/NewPart
// call will assign, without consuming it. Safe only because the engine
// is single-threaded per session: nothing else can consume a sequence
// number between the peek and the subsequent create call.
func (s *Store) PeekNextSequence() int64 {
	return s.seq.Peek() + 1
}

// NewCar allocates and stores a new car WorkItem. The caller has already
// decided model, colors, and hasDefect (scheduler owns that policy; see
// internal/scheduler/create.go).
func (s *Store) NewCar(model string, colors []string, hasDefect bool, now int64) *WorkItem {
	n := s.seq.Next()
	w := &WorkItem{
		ID:             core.CarID(n),
		SequenceNumber: n,
		Model:          model,
		Colors:         colors,
		CreatedAt:      now,
		HasDefect:      hasDefect,
	}
	s.items[w.ID] = w
	return w
}

// NewPart allocates and stores a new part WorkItem.
func (s *Store) NewPart(partType, model string, now int64) *WorkItem {
	n := s.seq.Next()
	w := &WorkItem{
		ID:             core.PartID(partType, n),
		SequenceNumber: n,
		Model:          model,
		CreatedAt:      now,
		IsPart:         true,
		PartName:       partType,
	}
	s.items[w.ID] = w
	return w
}

// Get looks up an item by id.
func (s *Store) Get(id string) (*WorkItem, bool) {
	w, ok := s.items[id]
	return w, ok
}

// MarkCompleted finalizes an item and increments the line/shop completed
// counters. Idempotent: calling twice for the same item has no
// additional effect on the counters.
func (s *Store) MarkCompleted(w *WorkItem, shop, lineKey string, now int64) {
	if w.CompletedAt != 0 {
		return
	}
	w.Complete(now)
	s.completedByLine[lineKey]++
	s.completedByShop[shop]++
	if w.HasDefect {
		s.defectiveByLine[lineKey]++
		s.defectiveByShop[shop]++
	}
}

// CompletedByLine returns the O(1) completed counter for a line key.
func (s *Store) CompletedByLine(lineKey string) int64 { return s.completedByLine[lineKey] }

// CompletedByShop returns the O(1) completed counter for a shop.
func (s *Store) CompletedByShop(shop string) int64 { return s.completedByShop[shop] }

// DefectiveByLine returns the O(1) defective counter for a line key.
func (s *Store) DefectiveByLine(lineKey string) int64 { return s.defectiveByLine[lineKey] }

// DefectiveByShop returns the O(1) defective counter for a shop.
func (s *Store) DefectiveByShop(shop string) int64 { return s.defectiveByShop[shop] }

// ClearCompletedCollection resets the completed-cars counters at shift
// start. Items themselves and their traces are untouched; only the
// rolling per-shift counters reset.
func (s *Store) ClearCompletedCollection(lineKeys []string, shops []string) {
	for _, lk := range lineKeys {
		s.completedByLine[lk] = 0
		s.defectiveByLine[lk] = 0
	}
	for _, sh := range shops {
		s.completedByShop[sh] = 0
		s.defectiveByShop[sh] = 0
	}
}

// All returns every item currently owned by the store. Order is
// unspecified; callers that need determinism should sort by
// SequenceNumber.
func (s *Store) All() []*WorkItem {
	out := make([]*WorkItem, 0, len(s.items))
	for _, w := range s.items {
		out = append(out, w)
	}
	return out
}
