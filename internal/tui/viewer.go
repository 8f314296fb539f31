package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/JohnDeved/surefine-cli/internal/card"
	"github.com/JohnDeved/surefine-cli/internal/render"
)

// viewerModel shows one rendered card in a scrollable viewport.
type viewerModel struct {
	card     *card.Card
	target   string
	expanded bool
	lines    []string
	guard    *render.Guard
	width    int
	offset   int
	height   int
	loading  bool
	err      error
}

func newViewerModel() viewerModel {
	return viewerModel{height: 20, guard: &render.Guard{}}
}

// setCard replaces the shown card. The scroll position is kept when the
// content is unchanged.
func (v *viewerModel) setCard(c card.Card) {
	v.loading = false
	v.err = nil
	if !v.guard.Changed(c.Hash()) && v.card != nil {
		return
	}
	if v.card == nil || v.card.PageURL != c.PageURL {
		v.offset = 0
	}
	v.card = &c
	v.rerender()
}

func (v *viewerModel) setError(err error) {
	v.loading = false
	v.err = err
}

func (v *viewerModel) setWidth(width int) {
	if width == v.width {
		return
	}
	v.width = width
	v.rerender()
}

func (v *viewerModel) toggleExpanded() {
	v.expanded = !v.expanded
	v.rerender()
}

func (v *viewerModel) rerender() {
	if v.card == nil {
		v.lines = nil
		return
	}
	out := render.TextString(*v.card, render.Options{
		Expanded: v.expanded,
		Color:    true,
		Width:    max(20, v.width-4),
	})
	v.lines = strings.Split(strings.TrimRight(out, "\n"), "\n")
	v.clamp()
}

func (v *viewerModel) maxOffset() int {
	return max(0, len(v.lines)-v.height)
}

func (v *viewerModel) clamp() {
	if v.offset > v.maxOffset() {
		v.offset = v.maxOffset()
	}
	if v.offset < 0 {
		v.offset = 0
	}
}

func (v *viewerModel) scroll(n int) {
	v.offset += n
	v.clamp()
}

func (v *viewerModel) pageUp()   { v.scroll(-v.height) }
func (v *viewerModel) pageDown() { v.scroll(v.height) }
func (v *viewerModel) goHome()   { v.offset = 0 }
func (v *viewerModel) goEnd()    { v.offset = v.maxOffset() }

func (v *viewerModel) hiddenMirrors() int {
	if v.card == nil {
		return 0
	}
	return v.card.Mirrors.OverflowLen()
}

func (v *viewerModel) view(width int, spin string) string {
	var sb strings.Builder

	if v.target != "" {
		sb.WriteString(padToWidth(urlStyle.Render("  "+truncateText(v.target, max(12, width-4))), width))
		sb.WriteString("\n")
	}

	if v.loading && v.card == nil {
		sb.WriteString(fmt.Sprintf("\n  %s Loading page...\n", spin))
		return sb.String()
	}
	if v.err != nil {
		sb.WriteString(errorStyle.Render(fmt.Sprintf("\n  Error: %v\n", v.err)))
		if v.card == nil {
			return sb.String()
		}
	}
	if v.card == nil {
		sb.WriteString(helpStyle.Render("\n  No page loaded. Pick one from History (2) or pass a URL.\n"))
		return sb.String()
	}

	end := min(v.offset+v.height, len(v.lines))
	for _, line := range v.lines[v.offset:end] {
		sb.WriteString("  ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	if len(v.lines) > v.height {
		pct := float64(v.offset) / float64(v.maxOffset()) * 100
		info := fmt.Sprintf("  lines %d-%d of %d (%.0f%%)", v.offset+1, end, len(v.lines), pct)
		if v.loading {
			info += "  " + spin + " refreshing"
		}
		sb.WriteString(helpStyle.Render(info))
		sb.WriteString("\n")
	}

	return sb.String()
}

func truncateText(s string, maxWidth int) string {
	if maxWidth < 4 {
		return s
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	r := []rune(s)
	if len(r) <= maxWidth {
		return s
	}
	return string(r[:maxWidth-3]) + "..."
}

func padToWidth(s string, width int) string {
	pad := width - lipgloss.Width(s)
	if pad <= 0 {
		return s
	}
	return s + strings.Repeat(" ", pad)
}

// truncatePath truncates a path from the left, keeping the rightmost part visible.
func truncatePath(path string, maxLen int) string {
	if maxLen < 4 || len(path) <= maxLen {
		return path
	}
	return "..." + path[len(path)-maxLen+3:]
}
