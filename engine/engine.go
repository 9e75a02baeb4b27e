// Package engine orchestrates window recomputation for a virtualized list.
//
// The controller is a three-phase machine:
//
//	Idle      — nothing to recompute.
//	Pending   — a recompute is scheduled; bursts of scroll events and
//	            mutations coalesce here, last viewport snapshot wins.
//	Resolving — Tick is computing a window and handing it to the host.
//
// Scroll events, list mutations and measurement reports all move the machine
// to Pending. The host drains it by calling Tick once per frame (or
// equivalent scheduling unit); Tick resolves against the latest consistent
// ledger snapshot. If a mutation lands while a window is being handed out —
// e.g. the host's materialization callback synchronously reports measured
// heights — the in-flight window is discarded and the machine returns to
// Pending, so a stale window is never committed.
//
// The engine is single-threaded and cooperative: no call blocks, no call
// spawns work, and the caller must serialize all entry points.
package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/miosa/vscroll/ledger"
	"github.com/miosa/vscroll/window"
)

// ErrInvalidConfiguration is returned by Config.Validate and New for
// configurations that can never be correct. Fails fast at setup; nothing in
// the steady-state scroll/measure loop returns it.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Phase identifies the controller's position in the recompute cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseResolving
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePending:
		return "pending"
	case PhaseResolving:
		return "resolving"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// DefaultOverscan is the extra-row margin used by DefaultConfig.
const DefaultOverscan = 3

// Config carries the recognized engine options.
type Config struct {
	// RowHeight is the uniform row height in fixed mode and the estimate
	// seeded for unmeasured rows in variable mode. Must be positive.
	RowHeight float64

	// Overscan is the number of rows materialized beyond each edge of the
	// strictly visible range. Must be >= 0.
	Overscan int

	// VariableHeight selects the measured-height ledger; when false every
	// row is RowHeight tall and measurements are ignored.
	VariableHeight bool

	// HeightEpsilon is the minimum difference between a reported measurement
	// and the stored height that triggers a recompute. Zero (the default)
	// means any difference counts.
	HeightEpsilon float64
}

// DefaultConfig returns a fixed-height configuration with a small overscan.
func DefaultConfig(rowHeight float64) Config {
	return Config{RowHeight: rowHeight, Overscan: DefaultOverscan}
}

// Validate reports whether the configuration is usable.
func (c Config) Validate() error {
	if math.IsNaN(c.RowHeight) || c.RowHeight <= 0 {
		return fmt.Errorf("%w: row height must be positive, got %v", ErrInvalidConfiguration, c.RowHeight)
	}
	if c.Overscan < 0 {
		return fmt.Errorf("%w: overscan must be >= 0, got %d", ErrInvalidConfiguration, c.Overscan)
	}
	if math.IsNaN(c.HeightEpsilon) || c.HeightEpsilon < 0 {
		return fmt.Errorf("%w: height epsilon must be >= 0, got %v", ErrInvalidConfiguration, c.HeightEpsilon)
	}
	return nil
}

// Controller coordinates the ledger and resolver against host events.
// Construct with New; one controller per list instance.
type Controller struct {
	cfg    Config
	ledger *ledger.Ledger

	phase       Phase
	viewport    window.Viewport
	hasViewport bool

	// win is the last committed window; subsequent anchor decisions are made
	// against it until the next commit shifts it.
	win window.Window

	// generation counts applied mutations and measurements. Tick snapshots
	// it before resolving; a mismatch afterwards means the resolved window
	// is stale and must be discarded.
	generation uint64

	// correction accumulates scroll-offset deltas owed to the host from
	// anchor preservation, drained by TakeScrollCorrection.
	correction float64

	// onWindow, when set, is invoked during the Resolving phase with each
	// window before it is committed. The host materializes rows here and may
	// synchronously report measurements back.
	onWindow func(window.Window)
}

// New validates cfg and returns an idle controller with an empty ledger.
func New(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lg, err := ledger.New(cfg.RowHeight, cfg.VariableHeight)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return &Controller{cfg: cfg, ledger: lg}, nil
}

// Ledger exposes the controller's height ledger, primarily so the host can
// report TotalHeight to the platform scrollbar.
func (c *Controller) Ledger() *ledger.Ledger { return c.ledger }

// Config returns the configuration the controller was built with.
func (c *Controller) Config() Config { return c.cfg }

// Phase returns the current machine phase.
func (c *Controller) Phase() Phase { return c.phase }

// Window returns the last committed window.
func (c *Controller) Window() window.Window { return c.win }

// TotalHeight returns the full virtual content height.
func (c *Controller) TotalHeight() float64 { return c.ledger.TotalHeight() }

// SetWindowHandler registers the host callback invoked by Tick while
// resolving. Pass nil to clear.
func (c *Controller) SetWindowHandler(fn func(window.Window)) { c.onWindow = fn }

// ---------------------------------------------------------------------------
// Event intake — every entry point below lands the machine in Pending
// ---------------------------------------------------------------------------

// OnViewport records a new viewport snapshot from the host (scroll event or
// resize) and schedules a recompute. Bursty calls coalesce: only the latest
// snapshot is resolved.
func (c *Controller) OnViewport(vp window.Viewport) {
	c.viewport = vp
	c.hasViewport = true
	c.generation++
	c.phase = PhasePending
}

// ResetRows replaces the whole list with n fresh rows, discarding all
// measurements.
func (c *Controller) ResetRows(n int) error {
	if err := c.ledger.Reset(n); err != nil {
		return err
	}
	c.win = window.Window{}
	c.generation++
	c.phase = PhasePending
	return nil
}

// InsertRows inserts count rows before index at. When the insertion lands
// above the committed window, the viewport's scroll offset is shifted by the
// inserted height so the visually anchored row does not jump; the host
// collects the same delta from TakeScrollCorrection and applies it to the
// platform scroll position.
func (c *Controller) InsertRows(at, count int) error {
	if err := c.ledger.InsertRows(at, count); err != nil {
		return err
	}
	if count > 0 && at < c.win.Start {
		// Fresh rows are seeded with the estimate, so the delta is exact.
		delta := float64(count) * c.cfg.RowHeight
		c.adjustAnchor(delta)
		c.win.Start += count
		c.win.End += count
		c.win.TopOffset += delta
	}
	c.generation++
	c.phase = PhasePending
	return nil
}

// RemoveRows removes rows [at, at+count), shifting the scroll offset down by
// the removed height when the removal lands above the committed window.
func (c *Controller) RemoveRows(at, count int) error {
	above := 0
	if at < c.win.Start {
		above = count
		if at+above > c.win.Start {
			above = c.win.Start - at
		}
	}
	var delta float64
	if above > 0 {
		// Heights must be read before the rows disappear.
		var err error
		delta, err = c.ledger.SpanHeight(at, at+above)
		if err != nil {
			return err
		}
	}
	if err := c.ledger.RemoveRows(at, count); err != nil {
		return err
	}
	if above > 0 {
		c.adjustAnchor(-delta)
		c.win.Start -= above
		c.win.End -= above
		c.win.TopOffset -= delta
	}
	c.generation++
	c.phase = PhasePending
	return nil
}

// ReportMeasuredHeight feeds a renderer measurement back into the ledger.
// Reports for rows that no longer exist (a race with a mutation), malformed
// values, and changes within the configured epsilon are dropped silently —
// this path runs on every frame and must never fail.
func (c *Controller) ReportMeasuredHeight(i int, h float64) {
	if !c.cfg.VariableHeight {
		return
	}
	if i < 0 || i >= c.ledger.Len() {
		return
	}
	if math.IsNaN(h) || math.IsInf(h, 0) || h <= 0 {
		return
	}
	prev, err := c.ledger.HeightOf(i)
	if err != nil {
		return
	}
	if math.Abs(h-prev) <= c.cfg.HeightEpsilon {
		return
	}
	if _, err := c.ledger.SetHeight(i, h); err != nil {
		return
	}
	c.generation++
	c.phase = PhasePending
}

// TakeScrollCorrection drains the accumulated anchor-preservation delta. The
// host adds the returned value to its platform scroll position.
func (c *Controller) TakeScrollCorrection() float64 {
	d := c.correction
	c.correction = 0
	return d
}

func (c *Controller) adjustAnchor(delta float64) {
	c.viewport.ScrollOffset += delta
	if c.viewport.ScrollOffset < 0 {
		c.viewport.ScrollOffset = 0
	}
	c.correction += delta
}

// ---------------------------------------------------------------------------
// Tick — Pending → Resolving → Idle
// ---------------------------------------------------------------------------

// Tick runs one recompute if one is pending. It resolves a window against
// the current ledger snapshot, hands it to the window handler, and commits
// it unless a mutation arrived while it was being handed out — in that case
// the stale window is discarded, the machine stays Pending, and the next
// Tick recomputes from scratch. Returns the committed window and whether a
// commit happened.
func (c *Controller) Tick() (window.Window, bool) {
	if c.phase != PhasePending || !c.hasViewport {
		return c.win, false
	}
	c.phase = PhaseResolving
	gen := c.generation
	w := window.Resolve(c.viewport, c.ledger, c.cfg.Overscan)
	if c.onWindow != nil {
		c.onWindow(w)
	}
	if c.generation != gen {
		// Superseded mid-resolve; never commit against a changed list.
		c.phase = PhasePending
		return c.win, false
	}
	c.win = w
	c.phase = PhaseIdle
	return w, true
}

// Settle runs Tick repeatedly until the machine reaches Idle or maxTicks is
// exhausted, returning the last committed window. Hosts that materialize and
// measure synchronously use this to converge within one frame.
func (c *Controller) Settle(maxTicks int) window.Window {
	for i := 0; i < maxTicks && c.phase == PhasePending; i++ {
		c.Tick()
	}
	return c.win
}
