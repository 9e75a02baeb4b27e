// Package window turns viewport geometry into the contiguous row range that
// must be materialized, plus the offset to position that range at.
package window

import (
	"math"

	"github.com/miosa/vscroll/ledger"
)

// Viewport is the host's read-only snapshot of the scrollable container:
// where it is scrolled to and how tall it is.
type Viewport struct {
	ScrollOffset float64
	Height       float64
}

// Window is the resolver's output: materialize rows [Start, End) and place
// the block at TopOffset from the top of the full (virtual) content.
type Window struct {
	Start     int
	End       int // exclusive
	TopOffset float64
}

// Empty reports whether the window contains no rows.
func (w Window) Empty() bool { return w.Start >= w.End }

// Len returns the number of rows in the window.
func (w Window) Len() int { return w.End - w.Start }

// Contains reports whether row i falls inside the window.
func (w Window) Contains(i int) bool { return i >= w.Start && i < w.End }

// Resolve computes the minimal row range covering the viewport, widened by
// overscan rows on each side and clamped to the list bounds. A row straddling
// either viewport edge is included. Malformed geometry is normalized, never
// rejected: NaN or negative scroll offsets clamp to 0 and a non-positive
// viewport height yields a zero-extent (but still valid) window.
//
// Cost is two Locate calls and one OffsetOf call on the ledger — O(log n)
// in variable mode, O(1) in fixed mode.
func Resolve(vp Viewport, lg *ledger.Ledger, overscan int) Window {
	n := lg.Len()
	if n == 0 {
		return Window{}
	}
	if overscan < 0 {
		// Guarded at configuration time; normalize here so a raw call can
		// never produce an inverted range.
		overscan = 0
	}

	top := vp.ScrollOffset
	if math.IsNaN(top) || top < 0 {
		top = 0
	}
	height := vp.Height
	if math.IsNaN(height) || height < 0 {
		height = 0
	}

	first := lg.Locate(top)
	last := lg.Locate(top + height)

	start := first - overscan
	if start < 0 {
		start = 0
	}
	end := last + overscan + 1
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}

	offset, err := lg.OffsetOf(start)
	if err != nil {
		// start is clamped to [0, n] above; the ledger cannot reject it.
		offset = 0
	}
	return Window{Start: start, End: end, TopOffset: offset}
}
