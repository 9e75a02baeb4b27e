// Package ledger stores per-row heights for a virtualized list and answers
// cumulative-offset queries about them.
//
// Two modes:
//
//	fixed    — every row shares one configured height; offsets are plain
//	           arithmetic, O(1), no auxiliary structure is allocated.
//	variable — rows start at an estimated height and are promoted to a
//	           measured height as the renderer reports real values. Heights
//	           are indexed by a Fenwick (binary indexed) tree giving O(log n)
//	           prefix sums, O(log n) inverse lookup and O(log n) point
//	           updates. Row insertion/removal invalidates the tree, which is
//	           rebuilt lazily in O(n) on the next query — mutations are rare
//	           next to per-frame scroll queries, so the steady-state scroll
//	           path never pays more than O(log n).
//
// A Ledger belongs to exactly one list instance. It is not safe for
// concurrent use; the caller serializes access.
package ledger

import (
	"errors"
	"fmt"
	"math"
)

// ErrIndexOutOfRange is returned for queries or mutations that reference a
// row index outside the current row count. This is caller misuse, not a
// normal data-flow condition.
var ErrIndexOutOfRange = errors.New("row index out of range")

type entry struct {
	height   float64
	measured bool
}

// Ledger maps row index → height and exposes prefix-sum queries over it.
// The zero value is not usable; construct with New.
type Ledger struct {
	estimate float64 // seed height for rows that have never been measured
	variable bool

	count int

	// Variable mode only.
	entries []entry
	tree    []float64 // Fenwick tree, 1-based; tree[i] covers i&-i trailing entries
	dirty   bool      // tree no longer matches entries; rebuild before next query
}

// New returns an empty Ledger. estimate is the height assumed for rows that
// have not been measured yet (and the uniform height in fixed mode); it must
// be positive.
func New(estimate float64, variable bool) (*Ledger, error) {
	if math.IsNaN(estimate) || estimate <= 0 {
		return nil, fmt.Errorf("ledger: estimate height must be positive, got %v", estimate)
	}
	return &Ledger{estimate: estimate, variable: variable}, nil
}

// Len returns the current row count.
func (l *Ledger) Len() int { return l.count }

// Variable reports whether the ledger tracks per-row heights.
func (l *Ledger) Variable() bool { return l.variable }

// Estimate returns the configured default row height.
func (l *Ledger) Estimate() float64 { return l.estimate }

// TotalHeight returns the summed height of all rows. The host uses this to
// size the scrollable container.
func (l *Ledger) TotalHeight() float64 {
	if !l.variable {
		return float64(l.count) * l.estimate
	}
	l.ensureTree()
	return l.prefix(l.count)
}

// OffsetOf returns the cumulative offset of row i's top edge, i.e. the sum
// of the heights of all rows before it. i may equal Len(), in which case the
// total height is returned (the one-past-end edge).
func (l *Ledger) OffsetOf(i int) (float64, error) {
	if i < 0 || i > l.count {
		return 0, fmt.Errorf("%w: offset of %d with %d rows", ErrIndexOutOfRange, i, l.count)
	}
	if !l.variable {
		return float64(i) * l.estimate, nil
	}
	l.ensureTree()
	return l.prefix(i), nil
}

// HeightOf returns the current (measured or estimated) height of row i.
func (l *Ledger) HeightOf(i int) (float64, error) {
	if i < 0 || i >= l.count {
		return 0, fmt.Errorf("%w: height of %d with %d rows", ErrIndexOutOfRange, i, l.count)
	}
	if !l.variable {
		return l.estimate, nil
	}
	return l.entries[i].height, nil
}

// Measured reports whether row i carries a renderer-measured height rather
// than the estimate. Always false in fixed mode.
func (l *Ledger) Measured(i int) bool {
	if !l.variable || i < 0 || i >= l.count {
		return false
	}
	return l.entries[i].measured
}

// SpanHeight returns the summed height of rows [from, to).
func (l *Ledger) SpanHeight(from, to int) (float64, error) {
	if from < 0 || to > l.count || from > to {
		return 0, fmt.Errorf("%w: span [%d,%d) with %d rows", ErrIndexOutOfRange, from, to, l.count)
	}
	if !l.variable {
		return float64(to-from) * l.estimate, nil
	}
	l.ensureTree()
	return l.prefix(to) - l.prefix(from), nil
}

// Locate returns the index of the row whose [OffsetOf(i), OffsetOf(i+1))
// interval contains pixel y. Inputs are normalized rather than rejected:
// negative or NaN y locates row 0; y at or past the total height returns
// Len() (the one-past-end sentinel).
func (l *Ledger) Locate(y float64) int {
	if math.IsNaN(y) || y < 0 {
		return 0
	}
	if !l.variable {
		if y >= float64(l.count)*l.estimate {
			return l.count
		}
		return int(y / l.estimate)
	}
	l.ensureTree()
	if y >= l.prefix(l.count) {
		return l.count
	}
	// Fenwick bit descent: walk power-of-two strides, consuming whole
	// subtree sums while they fit under y. Lands on the greatest i with
	// prefix(i) <= y.
	pos := 0
	step := 1
	for step<<1 <= l.count {
		step <<= 1
	}
	for ; step > 0; step >>= 1 {
		next := pos + step
		if next <= l.count && l.tree[next] <= y {
			y -= l.tree[next]
			pos = next
		}
	}
	return pos
}

// SetHeight records a measured height for row i and reports whether the
// stored value changed. In fixed mode measurements are meaningless and the
// call is a no-op. h must be a positive finite number.
func (l *Ledger) SetHeight(i int, h float64) (bool, error) {
	if i < 0 || i >= l.count {
		return false, fmt.Errorf("%w: set height of %d with %d rows", ErrIndexOutOfRange, i, l.count)
	}
	if math.IsNaN(h) || math.IsInf(h, 0) || h <= 0 {
		return false, fmt.Errorf("ledger: height must be positive and finite, got %v", h)
	}
	if !l.variable {
		return false, nil
	}
	prev := l.entries[i].height
	l.entries[i] = entry{height: h, measured: true}
	if h == prev {
		return false, nil
	}
	if !l.dirty {
		l.add(i+1, h-prev)
	}
	return true, nil
}

// InsertRows inserts count rows before index at, seeded with the estimated
// height. All subsequent rows shift up by count.
func (l *Ledger) InsertRows(at, count int) error {
	if at < 0 || at > l.count {
		return fmt.Errorf("%w: insert at %d with %d rows", ErrIndexOutOfRange, at, l.count)
	}
	if count < 0 {
		return fmt.Errorf("ledger: insert count must be >= 0, got %d", count)
	}
	if count == 0 {
		return nil
	}
	if l.variable {
		seeded := make([]entry, count)
		for i := range seeded {
			seeded[i] = entry{height: l.estimate}
		}
		l.entries = append(l.entries[:at], append(seeded, l.entries[at:]...)...)
		l.dirty = true
	}
	l.count += count
	return nil
}

// RemoveRows removes rows [at, at+count). All subsequent rows shift down.
func (l *Ledger) RemoveRows(at, count int) error {
	if at < 0 || at+count > l.count {
		return fmt.Errorf("%w: remove [%d,%d) with %d rows", ErrIndexOutOfRange, at, at+count, l.count)
	}
	if count < 0 {
		return fmt.Errorf("ledger: remove count must be >= 0, got %d", count)
	}
	if count == 0 {
		return nil
	}
	if l.variable {
		l.entries = append(l.entries[:at], l.entries[at+count:]...)
		l.dirty = true
	}
	l.count -= count
	return nil
}

// Reset replaces the ledger contents with count fresh rows at the estimated
// height, discarding all measurements.
func (l *Ledger) Reset(count int) error {
	if count < 0 {
		return fmt.Errorf("ledger: row count must be >= 0, got %d", count)
	}
	l.count = count
	if l.variable {
		l.entries = make([]entry, count)
		for i := range l.entries {
			l.entries[i] = entry{height: l.estimate}
		}
		l.dirty = true
	}
	return nil
}

// ---------------------------------------------------------------------------
// Fenwick internals
// ---------------------------------------------------------------------------

// ensureTree rebuilds the Fenwick tree after a structural mutation. O(n),
// amortized across however many queries follow.
func (l *Ledger) ensureTree() {
	if !l.dirty && len(l.tree) == l.count+1 {
		return
	}
	l.tree = make([]float64, l.count+1)
	for i := 1; i <= l.count; i++ {
		l.tree[i] += l.entries[i-1].height
		if parent := i + (i & -i); parent <= l.count {
			l.tree[parent] += l.tree[i]
		}
	}
	l.dirty = false
}

// prefix returns the sum of the first i heights (1-based tree, 0 <= i <= count).
func (l *Ledger) prefix(i int) float64 {
	var sum float64
	for ; i > 0; i -= i & -i {
		sum += l.tree[i]
	}
	return sum
}

// add applies a point delta at 1-based index i.
func (l *Ledger) add(i int, delta float64) {
	for ; i <= l.count; i += i & -i {
		l.tree[i] += delta
	}
}
