package list

import "strings"

const (
	scrollTrackChar = "│"
	scrollThumbChar = "█"
)

// Scrollbar renders a vertical scrollbar column for the list's current
// scroll state. The thumb is positioned and sized proportionally to the
// visible region within the total virtual content. When the content fits
// within the viewport the returned string is empty.
func (m Model) Scrollbar() string {
	vh := m.height
	ch := m.TotalHeight()

	if vh <= 0 || ch <= vh {
		return ""
	}

	// Thumb height — at least 1 row.
	thumbH := vh * vh / ch
	if thumbH < 1 {
		thumbH = 1
	}
	if thumbH > vh {
		thumbH = vh
	}

	// Thumb position scales with the scroll offset; pin the end of the
	// track to the end of the content.
	maxTop := vh - thumbH
	thumbTop := 0
	if max := m.maxScroll(); max > 0 {
		thumbTop = m.scroll * maxTop / max
		if thumbTop > maxTop {
			thumbTop = maxTop
		}
	}

	var b strings.Builder
	for y := 0; y < vh; y++ {
		if y > 0 {
			b.WriteString("\n")
		}
		if y >= thumbTop && y < thumbTop+thumbH {
			b.WriteString(scrollThumbChar)
		} else {
			b.WriteString(scrollTrackChar)
		}
	}
	return b.String()
}
