package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/JohnDeved/surefine-cli/internal/store"
)

// historyModel lists previously scraped pages and searches them.
type historyModel struct {
	input     textinput.Model
	records   []store.PageRecord
	cursor    int
	offset    int
	height    int
	searching bool
	err       error
	lastQuery string
}

func newHistoryModel() historyModel {
	ti := textinput.New()
	ti.Placeholder = "Search scraped pages..."
	ti.CharLimit = 256
	ti.Width = 60
	ti.Prompt = "History: "
	ti.PromptStyle = searchPromptStyle
	return historyModel{
		input:  ti,
		height: 20,
	}
}

func (h *historyModel) rows() int {
	return max(1, h.height-4)
}

func (h *historyModel) setRecords(records []store.PageRecord, query string) {
	h.records = records
	h.lastQuery = query
	h.cursor = 0
	h.offset = 0
	h.searching = false
	h.err = nil
}

func (h *historyModel) setError(err error) {
	h.err = err
	h.searching = false
}

func (h *historyModel) selected() *store.PageRecord {
	if h.cursor >= 0 && h.cursor < len(h.records) {
		return &h.records[h.cursor]
	}
	return nil
}

func (h *historyModel) moveUp() {
	if h.cursor > 0 {
		h.cursor--
		if h.cursor < h.offset {
			h.offset = h.cursor
		}
	}
}

func (h *historyModel) moveDown() {
	if h.cursor < len(h.records)-1 {
		h.cursor++
		if h.cursor >= h.offset+h.rows() {
			h.offset = h.cursor - h.rows() + 1
		}
	}
}

func (h *historyModel) pageUp() {
	for i := 0; i < h.rows(); i++ {
		h.moveUp()
	}
}

func (h *historyModel) pageDown() {
	for i := 0; i < h.rows(); i++ {
		h.moveDown()
	}
}

func (h *historyModel) view(width int, spin string) string {
	var sb strings.Builder

	sb.WriteString(padToWidth(h.input.View(), width))
	sb.WriteString("\n\n")

	if h.searching {
		sb.WriteString(fmt.Sprintf("  %s Searching...\n", spin))
		return sb.String()
	}
	if h.err != nil {
		sb.WriteString(errorStyle.Render(fmt.Sprintf("  Error: %v", h.err)))
		sb.WriteString("\n")
		return sb.String()
	}
	if len(h.records) == 0 {
		msg := "  No pages scraped yet. Run 'surefine card <url>' or open one here."
		if h.lastQuery != "" {
			msg = "  No results found."
		}
		sb.WriteString(helpStyle.Render(msg))
		sb.WriteString("\n")
		return sb.String()
	}

	header := "  Recent pages:"
	if h.lastQuery != "" {
		header = fmt.Sprintf("  %d results for %q:", len(h.records), h.lastQuery)
	}
	sb.WriteString(helpStyle.Render(header))
	sb.WriteString("\n")

	rowWidth := max(12, width-selectedStyle.GetHorizontalFrameSize())
	end := min(h.offset+h.rows(), len(h.records))
	for i := h.offset; i < end; i++ {
		r := h.records[i]
		hosts := strings.Join(r.PrimaryHosts, ", ")
		if hosts == "" {
			hosts = "no mirrors"
		}
		line := fmt.Sprintf("%s  %s  %s",
			truncateText(r.Title, max(12, rowWidth-45)),
			helpStyle.Render(fmt.Sprintf("%2d mirrors (%s)", r.MirrorCount, hosts)),
			helpStyle.Render(r.LastScraped.Local().Format("2006-01-02 15:04")),
		)
		if i == h.cursor {
			sb.WriteString(selectedStyle.Render(padToWidth(line, rowWidth)))
		} else {
			sb.WriteString(normalStyle.Render(padToWidth(line, rowWidth)))
		}
		sb.WriteString("\n")
	}

	if len(h.records) > h.rows() {
		sb.WriteString(helpStyle.Render(fmt.Sprintf("  %d/%d pages", h.cursor+1, len(h.records))))
		sb.WriteString("\n")
	}
	return sb.String()
}
