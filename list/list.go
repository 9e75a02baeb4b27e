// Package list provides a virtualized, lazy-rendered scrollable list widget
// for Bubble Tea programs.
//
// Only the rows inside the resolved window — the visible range plus a small
// overscan margin — are ever rendered. Row heights start as estimates and
// are promoted to measured values the first time a row is materialized, so
// lists of tens of thousands of items stay cheap: the per-frame cost is the
// window resolution (logarithmic in the row count) plus rendering the
// handful of visible rows.
//
// Key properties:
//   - Per-item render cache keyed by item ID, invalidated on width or
//     content-version changes.
//   - Pixel-free line arithmetic: heights are terminal lines, offsets are
//     cumulative line counts maintained by the ledger.
//   - Mutations above the viewport (prepending history, deleting old rows)
//     preserve the scroll anchor — visible content does not jump.
package list

import (
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/miosa/vscroll/engine"
	"github.com/miosa/vscroll/window"
)

// Item is anything the list can render.
type Item interface {
	// ID returns a unique, stable identifier used for cache keying and
	// targeted cache invalidation.
	ID() string

	// ContentVersion returns a monotonically increasing integer. When this
	// value changes the cached render for this item is discarded.
	ContentVersion() int

	// Render returns the rendered string for the given width. The result
	// must be stable for the same (width, ContentVersion) pair.
	Render(width int) string
}

// wheelLines is how many lines one mouse-wheel notch scrolls.
const wheelLines = 3

// settleTicks bounds the resolve/measure iterations per View. Measurements
// taken while materializing can shift the window; each extra pass re-resolves
// against the updated ledger until the window is stable.
const settleTicks = 4

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Option is a functional option for New.
type Option func(*config)

type config struct {
	width, height int
	engine        engine.Config
}

// WithSize sets the initial viewport dimensions in terminal cells.
func WithSize(w, h int) Option {
	return func(c *config) { c.width, c.height = w, h }
}

// WithOverscan sets how many rows are rendered beyond each edge of the
// visible range. Negative values are rejected by New.
func WithOverscan(n int) Option {
	return func(c *config) { c.engine.Overscan = n }
}

// WithEstimatedHeight sets the line count assumed for rows that have not
// been rendered yet.
func WithEstimatedHeight(lines int) Option {
	return func(c *config) { c.engine.RowHeight = float64(lines) }
}

// WithFixedHeight declares every row to be exactly lines tall, enabling the
// constant-time windowing path. Rendered output taller than this is
// truncated to keep the layout honest.
func WithFixedHeight(lines int) Option {
	return func(c *config) {
		c.engine.RowHeight = float64(lines)
		c.engine.VariableHeight = false
	}
}

// ---------------------------------------------------------------------------
// Cache
// ---------------------------------------------------------------------------

type cachedRender struct {
	content string
	height  int
	width   int
	version int
}

// ---------------------------------------------------------------------------
// Model
// ---------------------------------------------------------------------------

// Model is a virtualized scrollable list. The zero value is not usable;
// construct with New.
type Model struct {
	items  []Item
	width  int
	height int

	// ctrl owns the height ledger and the recompute scheduling. Shared by
	// all copies of this Model.
	ctrl *engine.Controller

	// scroll is the viewport's top edge in lines from the top of the full
	// virtual content.
	scroll int

	fixed      bool
	fixedLines int

	// cache stores rendered output keyed by item ID.
	cache map[string]cachedRender
}

// New constructs a Model. The default configuration is variable-height rows
// estimated at one line, with a small overscan.
func New(opts ...Option) (Model, error) {
	cfg := config{
		engine: engine.Config{
			RowHeight:      1,
			Overscan:       engine.DefaultOverscan,
			VariableHeight: true,
		},
	}
	for _, o := range opts {
		o(&cfg)
	}
	ctrl, err := engine.New(cfg.engine)
	if err != nil {
		return Model{}, err
	}
	m := Model{
		width:      cfg.width,
		height:     cfg.height,
		ctrl:       ctrl,
		fixed:      !cfg.engine.VariableHeight,
		fixedLines: int(cfg.engine.RowHeight),
		cache:      make(map[string]cachedRender),
	}
	m.syncViewport()
	return m, nil
}

// Len returns the number of items.
func (m Model) Len() int { return len(m.items) }

// TotalHeight returns the full virtual content height in lines.
func (m Model) TotalHeight() int { return int(m.ctrl.TotalHeight()) }

// Window returns the most recently committed row window.
func (m Model) Window() window.Window { return m.ctrl.Window() }

// ScrollOffset returns the viewport's top edge in lines.
func (m Model) ScrollOffset() int { return m.scroll }

// ---------------------------------------------------------------------------
// Mutations
// ---------------------------------------------------------------------------

// SetSize updates the viewport dimensions. A width change invalidates the
// render cache and all height measurements, since every row reflows.
func (m *Model) SetSize(w, h int) {
	if w != m.width {
		m.cache = make(map[string]cachedRender)
		m.ctrl.ResetRows(len(m.items))
	}
	m.width = w
	m.height = h
	m.clampScroll()
	m.syncViewport()
}

// SetItems replaces the item slice wholesale. The render cache is preserved:
// items whose ID and version are unchanged are not re-rendered, though their
// heights are re-measured on the next View.
func (m *Model) SetItems(items []Item) {
	m.items = items
	m.ctrl.ResetRows(len(items))
	m.clampScroll()
	m.syncViewport()
}

// AppendItems adds items to the end of the list.
func (m *Model) AppendItems(items ...Item) {
	m.InsertItems(len(m.items), items...)
}

// PrependItems inserts items at the beginning of the list (loading history).
// The scroll position is adjusted so currently-visible content stays put.
func (m *Model) PrependItems(items ...Item) {
	m.InsertItems(0, items...)
}

// InsertItems inserts items before index at. Inserting above the viewport
// preserves the scroll anchor.
func (m *Model) InsertItems(at int, items ...Item) {
	if len(items) == 0 || at < 0 || at > len(m.items) {
		return
	}
	m.items = append(m.items[:at], append(append([]Item{}, items...), m.items[at:]...)...)
	m.ctrl.InsertRows(at, len(items))
	m.scroll += int(m.ctrl.TakeScrollCorrection())
	m.clampScroll()
	m.syncViewport()
}

// RemoveItems removes count items starting at index at, preserving the
// scroll anchor when the removal is above the viewport.
func (m *Model) RemoveItems(at, count int) {
	if at < 0 || count <= 0 || at+count > len(m.items) {
		return
	}
	for _, it := range m.items[at : at+count] {
		delete(m.cache, it.ID())
	}
	m.items = append(m.items[:at], m.items[at+count:]...)
	m.ctrl.RemoveRows(at, count)
	m.scroll += int(m.ctrl.TakeScrollCorrection())
	m.clampScroll()
	m.syncViewport()
}

// UpdateItem replaces the item with the given id in-place and evicts its
// cache entry. If the id is not found, the call is a no-op.
func (m *Model) UpdateItem(id string, item Item) {
	for i, existing := range m.items {
		if existing.ID() == id {
			m.items[i] = item
			delete(m.cache, id)
			m.syncViewport() // schedule a re-resolve; height settles on render
			return
		}
	}
}

// InvalidateCache forces all cached renders to be discarded.
func (m *Model) InvalidateCache() {
	m.cache = make(map[string]cachedRender)
	m.syncViewport()
}

// ---------------------------------------------------------------------------
// Scroll
// ---------------------------------------------------------------------------

// ScrollDown scrolls the content down by n lines (later rows come into view).
func (m *Model) ScrollDown(n int) { m.scrollBy(n) }

// ScrollUp scrolls the content up by n lines.
func (m *Model) ScrollUp(n int) { m.scrollBy(-n) }

// PageDown scrolls down by one full viewport height.
func (m *Model) PageDown() { m.scrollBy(m.height) }

// PageUp scrolls up by one full viewport height.
func (m *Model) PageUp() { m.scrollBy(-m.height) }

// HalfPageDown scrolls down by half the viewport height.
func (m *Model) HalfPageDown() { m.scrollBy(m.height / 2) }

// HalfPageUp scrolls up by half the viewport height.
func (m *Model) HalfPageUp() { m.scrollBy(-m.height / 2) }

// ScrollToTop positions the viewport at the very first row.
func (m *Model) ScrollToTop() {
	m.scroll = 0
	m.syncViewport()
}

// ScrollToBottom positions the viewport so the last row's last line is on
// the bottom viewport line (as far as current measurements know).
func (m *Model) ScrollToBottom() {
	m.scroll = m.maxScroll()
	m.syncViewport()
}

// AtBottom reports whether the viewport is showing the end of the list.
func (m Model) AtBottom() bool { return m.scroll >= m.maxScroll() }

// AtTop reports whether the viewport is at the very first line.
func (m Model) AtTop() bool { return m.scroll <= 0 }

func (m *Model) scrollBy(delta int) {
	if delta == 0 {
		return
	}
	m.scroll += delta
	m.clampScroll()
	m.syncViewport()
}

func (m *Model) clampScroll() {
	if max := m.maxScroll(); m.scroll > max {
		m.scroll = max
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
}

func (m Model) maxScroll() int {
	max := int(m.ctrl.TotalHeight()) - m.height
	if max < 0 {
		max = 0
	}
	return max
}

// syncViewport pushes the current geometry to the controller, scheduling a
// window recompute.
func (m *Model) syncViewport() {
	m.ctrl.OnViewport(window.Viewport{
		ScrollOffset: float64(m.scroll),
		Height:       float64(m.height),
	})
}

// ---------------------------------------------------------------------------
// Update (bubbletea)
// ---------------------------------------------------------------------------

// Update handles mouse wheel events for scrolling. Callers forward whichever
// tea.Msg events they want the list to respond to.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.MouseWheelMsg:
		switch msg.Button {
		case tea.MouseWheelUp:
			m.ScrollUp(wheelLines)
		case tea.MouseWheelDown:
			m.ScrollDown(wheelLines)
		}
	}
	return m, nil
}

// ---------------------------------------------------------------------------
// View
// ---------------------------------------------------------------------------

// View materializes the resolved window and returns the visible lines. Rows
// outside the window are never rendered. Rendering a row for the first time
// measures it; if the measurement moves the window, the window is resolved
// again before assembling output, so the frame the user sees is consistent
// with real heights.
func (m Model) View() string {
	if m.height <= 0 || m.width <= 0 || len(m.items) == 0 {
		return ""
	}

	w := m.materialize()

	var lines []string
	for i := w.Start; i < w.End && i < len(m.items); i++ {
		content, h := m.renderItem(m.items[i])
		rowLines := strings.SplitN(content, "\n", h+1)
		if len(rowLines) > h {
			rowLines = rowLines[:h]
		}
		for len(rowLines) < h {
			rowLines = append(rowLines, "")
		}
		lines = append(lines, rowLines...)
	}

	// The block starts w.TopOffset lines into the virtual content; clip it
	// to the viewport [scroll, scroll+height).
	skip := m.scroll - int(w.TopOffset)
	if skip < 0 {
		skip = 0
	}
	if skip > len(lines) {
		skip = len(lines)
	}
	visible := lines[skip:]
	if len(visible) > m.height {
		visible = visible[:m.height]
	}
	return strings.Join(visible, "\n")
}

// materialize settles the pending window resolution, feeding freshly
// measured row heights back in until the window is stable (bounded by
// settleTicks).
func (m Model) materialize() window.Window {
	w := m.ctrl.Window()
	for pass := 0; pass < settleTicks; pass++ {
		if resolved, ok := m.ctrl.Tick(); ok {
			w = resolved
		}
		for i := w.Start; i < w.End && i < len(m.items); i++ {
			_, h := m.renderItem(m.items[i])
			m.ctrl.ReportMeasuredHeight(i, float64(h))
		}
		if m.ctrl.Phase() != engine.PhasePending {
			break
		}
	}
	return w
}

// renderItem returns the cached or freshly rendered content for an item
// together with its height in lines. In fixed mode the height is the
// configured constant regardless of the rendered output.
func (m Model) renderItem(item Item) (string, int) {
	id := item.ID()
	ver := item.ContentVersion()
	if cr, ok := m.cache[id]; ok && cr.width == m.width && cr.version == ver {
		return cr.content, cr.height
	}
	rendered := item.Render(m.width)
	h := countLines(rendered)
	if m.fixed {
		h = m.fixedLines
	}
	m.cache[id] = cachedRender{content: rendered, height: h, width: m.width, version: ver}
	return rendered, h
}

// countLines counts rendered lines (number of \n + 1; empty renders still
// occupy one line).
func countLines(s string) int {
	return strings.Count(s, "\n") + 1
}
