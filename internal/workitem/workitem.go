// Package workitem owns every car and part moving through the plant. A
// WorkItem never appears in more than one place at once: stations and
// buffers hold only its id, never a pointer to the struct.
package workitem

// TraceEntry is one append-only record of a WorkItem's presence at a
// station. Leave is zero until the item pushes out.
type TraceEntry struct {
	Shop    string
	Line    string
	Station string
	Enter   int64 // core.Millis
	Leave   int64 // 0 until set
}

// ShopLeadtime records one open-or-closed interval the item spent in a
// shop, or in a specific shop+line. LineKey is empty for the shop-wide
// entry.
type ShopLeadtime struct {
	Shop       string
	LineKey    string // {shop}-{line}, empty for the shop-wide entry
	EnteredAt  int64
	ExitedAt   int64 // 0 while open
}

// Defect is one defect record appended when hasDefect routes a car to
// rework.
type Defect struct {
	ID        string
	AppliedAt int64
}

// WorkItem is a car or a part. Parts have IsPart=true, no Colors, and
// HasDefect is always false.
type WorkItem struct {
	ID             string
	SequenceNumber int64
	Model          string
	Colors         []string
	CreatedAt      int64
	CompletedAt    int64 // 0 while in flight

	Trace          []TraceEntry
	ShopLeadtimes  []ShopLeadtime

	HasDefect       bool
	InRework        bool
	ReworkEnteredAt int64 // 0 unless InRework
	Defects         []Defect

	IsPart   bool
	PartName string
}

// OpenTrace returns a pointer to the most recent trace entry if it is
// still open (Leave == 0), else nil.
func (w *WorkItem) OpenTrace() *TraceEntry {
	if len(w.Trace) == 0 {
		return nil
	}
	last := &w.Trace[len(w.Trace)-1]
	if last.Leave == 0 {
		return last
	}
	return nil
}

// EnterStation appends a new open trace entry. The previous entry, if
// any, must already be closed.
func (w *WorkItem) EnterStation(shop, line, station string, now int64) {
	w.Trace = append(w.Trace, TraceEntry{
		Shop: shop, Line: line, Station: station, Enter: now,
	})
}

// LeaveStation closes the current open trace entry.
func (w *WorkItem) LeaveStation(now int64) {
	if t := w.OpenTrace(); t != nil {
		t.Leave = now
	}
}

// openShopLeadtime returns the most recent open leadtime entry matching
// shop and lineKey, or nil.
func (w *WorkItem) openShopLeadtime(shop, lineKey string) *ShopLeadtime {
	for i := len(w.ShopLeadtimes) - 1; i >= 0; i-- {
		lt := &w.ShopLeadtimes[i]
		if lt.Shop == shop && lt.LineKey == lineKey && lt.ExitedAt == 0 {
			return lt
		}
	}
	return nil
}

// EnterShop opens a shop-wide leadtime interval if one is not already
// open for this shop.
func (w *WorkItem) EnterShop(shop string, now int64) {
	if w.openShopLeadtime(shop, "") == nil {
		w.ShopLeadtimes = append(w.ShopLeadtimes, ShopLeadtime{Shop: shop, EnteredAt: now})
	}
}

// EnterLine opens a shop+line leadtime interval if one is not already
// open for that line.
func (w *WorkItem) EnterLine(shop, lineKey string, now int64) {
	if w.openShopLeadtime(shop, lineKey) == nil {
		w.ShopLeadtimes = append(w.ShopLeadtimes, ShopLeadtime{Shop: shop, LineKey: lineKey, EnteredAt: now})
	}
}

// ExitLine closes the open shop+line leadtime interval; a closed
// interval is what counts the item toward the line's carsProduced.
func (w *WorkItem) ExitLine(shop, lineKey string, now int64) {
	if lt := w.openShopLeadtime(shop, lineKey); lt != nil {
		lt.ExitedAt = now
	}
}

// ExitShop closes the shop-wide leadtime interval.
func (w *WorkItem) ExitShop(shop string, now int64) {
	if lt := w.openShopLeadtime(shop, ""); lt != nil {
		lt.ExitedAt = now
	}
}

// ExitedLine reports whether this item has a closed leadtime entry for
// the given shop+line, i.e. whether it counts toward that line's
// carsProduced.
func (w *WorkItem) ExitedLine(shop, lineKey string) bool {
	return w.ExitedLineSince(shop, lineKey, 0)
}

// ExitedLineSince reports whether this item has a closed leadtime entry
// for the given shop+line with ExitedAt at or after sinceMs. KPI
// counting passes the shift-start timestamp so an exit from a previous
// shift never counts toward the current one; sinceMs=0 accepts any
// closed entry.
func (w *WorkItem) ExitedLineSince(shop, lineKey string, sinceMs int64) bool {
	for i := range w.ShopLeadtimes {
		lt := &w.ShopLeadtimes[i]
		if lt.Shop == shop && lt.LineKey == lineKey && lt.ExitedAt != 0 && lt.ExitedAt >= sinceMs {
			return true
		}
	}
	return false
}

// EnterRework marks the item as routed to a shop's rework buffer with a
// fresh defect record.
func (w *WorkItem) EnterRework(defectID string, now int64) {
	w.InRework = true
	w.ReworkEnteredAt = now
	w.Defects = append(w.Defects, Defect{ID: defectID, AppliedAt: now})
}

// ExitRework clears rework status. Callers must have already verified
// the time-gate (now - ReworkEnteredAt >= reworkTimeMs).
func (w *WorkItem) ExitRework() {
	w.InRework = false
	w.ReworkEnteredAt = 0
}

// Complete marks the item finished; idempotent.
func (w *WorkItem) Complete(now int64) {
	if w.CompletedAt == 0 {
		w.CompletedAt = now
	}
}
