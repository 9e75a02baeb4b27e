package ledger

import (
	"errors"
	"math"
	"testing"
)

func mustNew(t *testing.T, estimate float64, variable bool) *Ledger {
	t.Helper()
	l, err := New(estimate, variable)
	if err != nil {
		t.Fatalf("New(%v, %v): %v", estimate, variable, err)
	}
	return l
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestNew_RejectsNonPositiveEstimate(t *testing.T) {
	for _, h := range []float64{0, -1, math.NaN()} {
		if _, err := New(h, true); err == nil {
			t.Errorf("New(%v) should fail", h)
		}
	}
}

// ---------------------------------------------------------------------------
// Fixed mode — constant-time arithmetic
// ---------------------------------------------------------------------------

func TestFixed_OffsetsAreArithmetic(t *testing.T) {
	l := mustNew(t, 32, false)
	if err := l.Reset(10000); err != nil {
		t.Fatal(err)
	}
	for _, i := range []int{0, 1, 100, 9999, 10000} {
		got, err := l.OffsetOf(i)
		if err != nil {
			t.Fatalf("OffsetOf(%d): %v", i, err)
		}
		if want := float64(i) * 32; got != want {
			t.Errorf("OffsetOf(%d) = %v, want %v", i, got, want)
		}
	}
	if got := l.TotalHeight(); got != 320000 {
		t.Errorf("TotalHeight = %v, want 320000", got)
	}
}

func TestFixed_Locate(t *testing.T) {
	l := mustNew(t, 32, false)
	l.Reset(100)
	cases := []struct {
		y    float64
		want int
	}{
		{0, 0},
		{31.9, 0},
		{32, 1},
		{3200, 100}, // total height → one-past-end sentinel
		{99999, 100},
		{-5, 0},
		{math.NaN(), 0},
	}
	for _, c := range cases {
		if got := l.Locate(c.y); got != c.want {
			t.Errorf("Locate(%v) = %d, want %d", c.y, got, c.want)
		}
	}
}

func TestFixed_SetHeightIsNoop(t *testing.T) {
	l := mustNew(t, 32, false)
	l.Reset(10)
	changed, err := l.SetHeight(3, 500)
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("fixed-mode SetHeight must report no change")
	}
	if got, _ := l.OffsetOf(4); got != 128 {
		t.Errorf("fixed-mode offsets must ignore measurements, OffsetOf(4) = %v", got)
	}
}

// ---------------------------------------------------------------------------
// Variable mode — Fenwick-backed queries
// ---------------------------------------------------------------------------

func TestVariable_EstimatedUntilMeasured(t *testing.T) {
	l := mustNew(t, 32, true)
	l.Reset(5)
	if l.Measured(2) {
		t.Error("fresh rows must not be marked measured")
	}
	if h, _ := l.HeightOf(2); h != 32 {
		t.Errorf("fresh row height = %v, want estimate 32", h)
	}
	if _, err := l.SetHeight(2, 48); err != nil {
		t.Fatal(err)
	}
	if !l.Measured(2) {
		t.Error("row should be marked measured after SetHeight")
	}
	if h, _ := l.HeightOf(2); h != 48 {
		t.Errorf("measured row height = %v, want 48", h)
	}
}

func TestVariable_SetHeightShiftsLaterOffsets(t *testing.T) {
	l := mustNew(t, 32, true)
	l.Reset(10)
	before, _ := l.OffsetOf(5)
	changed, err := l.SetHeight(0, 500)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Error("SetHeight with a new value must report a change")
	}
	after, _ := l.OffsetOf(5)
	if after != before+468 {
		t.Errorf("OffsetOf(5) = %v after growing row 0 by 468, want %v", after, before+468)
	}
	// Offsets at or below the changed row are untouched.
	if got, _ := l.OffsetOf(0); got != 0 {
		t.Errorf("OffsetOf(0) = %v, want 0", got)
	}
}

func TestVariable_LocateBoundaries(t *testing.T) {
	// Scenario: row 0 measured at 500, the rest estimated at 32.
	l := mustNew(t, 32, true)
	l.Reset(10)
	l.SetHeight(0, 500)
	if got := l.Locate(0); got != 0 {
		t.Errorf("Locate(0) = %d, want 0", got)
	}
	if got := l.Locate(499.9); got != 0 {
		t.Errorf("Locate(499.9) = %d, want 0", got)
	}
	// Boundary exactly at row 1's top edge.
	if got := l.Locate(500); got != 1 {
		t.Errorf("Locate(500) = %d, want 1", got)
	}
	if got := l.Locate(532); got != 2 {
		t.Errorf("Locate(532) = %d, want 2", got)
	}
	total := l.TotalHeight()
	if got := l.Locate(total); got != 10 {
		t.Errorf("Locate(total) = %d, want sentinel 10", got)
	}
}

func TestVariable_LocateOffsetInverse(t *testing.T) {
	// Property: OffsetOf(Locate(y)) <= y < OffsetOf(Locate(y)+1) for all y
	// within the content.
	l := mustNew(t, 10, true)
	l.Reset(50)
	heights := []float64{3, 17, 10, 42, 1, 8, 25, 10, 10, 64}
	for i, h := range heights {
		l.SetHeight(i*5, h)
	}
	total := l.TotalHeight()
	for y := 0.0; y < total; y += 0.7 {
		i := l.Locate(y)
		lo, err := l.OffsetOf(i)
		if err != nil {
			t.Fatalf("OffsetOf(%d): %v", i, err)
		}
		hi, err := l.OffsetOf(i + 1)
		if err != nil {
			t.Fatalf("OffsetOf(%d): %v", i+1, err)
		}
		if y < lo || y >= hi {
			t.Fatalf("Locate(%v) = %d but its interval is [%v,%v)", y, i, lo, hi)
		}
	}
}

// ---------------------------------------------------------------------------
// Mutations
// ---------------------------------------------------------------------------

func TestInsertRows_SeedsEstimatesAndShifts(t *testing.T) {
	l := mustNew(t, 32, true)
	l.Reset(4)
	l.SetHeight(2, 100)
	if err := l.InsertRows(1, 3); err != nil {
		t.Fatal(err)
	}
	if l.Len() != 7 {
		t.Fatalf("Len = %d, want 7", l.Len())
	}
	// The measured row shifted from index 2 to 5.
	if h, _ := l.HeightOf(5); h != 100 {
		t.Errorf("HeightOf(5) = %v, want shifted measured 100", h)
	}
	if l.Measured(2) {
		t.Error("inserted row must not be marked measured")
	}
	if h, _ := l.HeightOf(2); h != 32 {
		t.Errorf("inserted row height = %v, want estimate 32", h)
	}
}

func TestRemoveRows_ShiftsDown(t *testing.T) {
	l := mustNew(t, 32, true)
	l.Reset(10)
	l.SetHeight(7, 64)
	if err := l.RemoveRows(0, 5); err != nil {
		t.Fatal(err)
	}
	if l.Len() != 5 {
		t.Fatalf("Len = %d, want 5", l.Len())
	}
	if h, _ := l.HeightOf(2); h != 64 {
		t.Errorf("HeightOf(2) = %v, want shifted measured 64", h)
	}
	if got, _ := l.OffsetOf(5); got != l.TotalHeight() {
		t.Errorf("OffsetOf(Len) = %v, want total %v", got, l.TotalHeight())
	}
}

func TestSetHeight_AfterMutation_RebuildsLazily(t *testing.T) {
	// SetHeight between a structural mutation and the next query must not
	// corrupt the rebuilt tree.
	l := mustNew(t, 10, true)
	l.Reset(8)
	_ = l.TotalHeight() // force a build
	l.InsertRows(4, 2)  // invalidate
	l.SetHeight(0, 25)  // point update while dirty
	if got := l.TotalHeight(); got != 9*10+25 {
		t.Errorf("TotalHeight = %v, want %v", got, 9*10+25)
	}
	if got := l.Locate(24.9); got != 0 {
		t.Errorf("Locate(24.9) = %d, want 0", got)
	}
	if got := l.Locate(25); got != 1 {
		t.Errorf("Locate(25) = %d, want 1", got)
	}
}

func TestSpanHeight(t *testing.T) {
	l := mustNew(t, 32, true)
	l.Reset(10)
	l.SetHeight(1, 50)
	got, err := l.SpanHeight(0, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got != 32+50+32 {
		t.Errorf("SpanHeight(0,3) = %v, want 114", got)
	}
	if got, _ := l.SpanHeight(4, 4); got != 0 {
		t.Errorf("empty span = %v, want 0", got)
	}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func TestIndexOutOfRange(t *testing.T) {
	l := mustNew(t, 32, true)
	l.Reset(5)
	if _, err := l.OffsetOf(6); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("OffsetOf(6) err = %v, want ErrIndexOutOfRange", err)
	}
	if _, err := l.OffsetOf(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("OffsetOf(-1) err = %v, want ErrIndexOutOfRange", err)
	}
	if _, err := l.HeightOf(5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("HeightOf(5) err = %v, want ErrIndexOutOfRange", err)
	}
	if _, err := l.SetHeight(5, 10); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("SetHeight(5) err = %v, want ErrIndexOutOfRange", err)
	}
	if err := l.InsertRows(6, 1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("InsertRows(6) err = %v, want ErrIndexOutOfRange", err)
	}
	if err := l.RemoveRows(3, 3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("RemoveRows(3,3) err = %v, want ErrIndexOutOfRange", err)
	}
}

func TestSetHeight_RejectsBadValues(t *testing.T) {
	l := mustNew(t, 32, true)
	l.Reset(3)
	for _, h := range []float64{0, -4, math.NaN(), math.Inf(1)} {
		if _, err := l.SetHeight(1, h); err == nil {
			t.Errorf("SetHeight(1, %v) should fail", h)
		}
	}
}

// ---------------------------------------------------------------------------
// Stress
// ---------------------------------------------------------------------------

func TestMixedMutationsDoNotDesync(t *testing.T) {
	// Interleave mutations, measurements and queries; cross-check the Fenwick
	// answers against a naive sum after every step.
	l := mustNew(t, 7, true)
	l.Reset(1)
	naive := []float64{7}

	naiveOffset := func(i int) float64 {
		var s float64
		for _, h := range naive[:i] {
			s += h
		}
		return s
	}

	for step := 0; step < 300; step++ {
		switch step % 5 {
		case 0:
			at := step % (len(naive) + 1)
			l.InsertRows(at, 2)
			naive = append(naive[:at], append([]float64{7, 7}, naive[at:]...)...)
		case 1:
			i := step % len(naive)
			h := float64(step%40 + 1)
			l.SetHeight(i, h)
			naive[i] = h
		case 2:
			if len(naive) > 3 {
				at := step % (len(naive) - 1)
				l.RemoveRows(at, 1)
				naive = append(naive[:at], naive[at+1:]...)
			}
		}
		if l.Len() != len(naive) {
			t.Fatalf("step %d: Len=%d naive=%d", step, l.Len(), len(naive))
		}
		for _, i := range []int{0, len(naive) / 2, len(naive)} {
			got, err := l.OffsetOf(i)
			if err != nil {
				t.Fatalf("step %d: OffsetOf(%d): %v", step, i, err)
			}
			if want := naiveOffset(i); math.Abs(got-want) > 1e-9 {
				t.Fatalf("step %d: OffsetOf(%d)=%v want %v", step, i, got, want)
			}
		}
	}
}
