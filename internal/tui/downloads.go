package tui

import (
	"fmt"
	"strings"

	"github.com/JohnDeved/surefine-cli/internal/downloader"
)

// downloadsModel lists queued screenshot downloads.
type downloadsModel struct {
	items  []*downloader.Item
	cursor int
	offset int
	height int
}

func newDownloadsModel() downloadsModel {
	return downloadsModel{
		height: 20,
	}
}

func (d *downloadsModel) setItems(items []*downloader.Item) {
	d.items = items
	if d.cursor >= len(d.items) {
		d.cursor = max(0, len(d.items)-1)
	}
}

func (d *downloadsModel) rows() int {
	return max(1, (d.height-2)/2)
}

func (d *downloadsModel) moveUp() {
	if d.cursor > 0 {
		d.cursor--
		if d.cursor < d.offset {
			d.offset = d.cursor
		}
	}
}

func (d *downloadsModel) moveDown() {
	if d.cursor < len(d.items)-1 {
		d.cursor++
		if d.cursor >= d.offset+d.rows() {
			d.offset = d.cursor - d.rows() + 1
		}
	}
}

func (d *downloadsModel) view(width int) string {
	var sb strings.Builder

	if len(d.items) == 0 {
		sb.WriteString(helpStyle.Render("\n  No downloads. Press s on a card to save its screenshots.\n"))
		return sb.String()
	}

	active, queued, completed, failed := 0, 0, 0, 0
	for _, it := range d.items {
		status, _ := it.Snapshot()
		switch status {
		case downloader.StatusActive:
			active++
		case downloader.StatusQueued:
			queued++
		case downloader.StatusCompleted:
			completed++
		case downloader.StatusFailed:
			failed++
		}
	}

	stats := fmt.Sprintf("  Active: %d  Queued: %d  Completed: %d  Failed: %d",
		active, queued, completed, failed)
	sb.WriteString(helpStyle.Render(stats))
	sb.WriteString("\n\n")

	barWidth := 20
	if width > 100 {
		barWidth = 30
	}

	end := min(d.offset+d.rows(), len(d.items))
	for i := d.offset; i < end; i++ {
		it := d.items[i]
		status, errVal := it.Snapshot()
		done := it.DoneBytes.Load()

		var statusStr string
		switch status {
		case downloader.StatusQueued:
			statusStr = helpStyle.Render("[Queued]")
		case downloader.StatusActive:
			statusStr = successStyle.Render("[Saving]")
		case downloader.StatusCompleted:
			statusStr = successStyle.Render("[Done]")
		case downloader.StatusFailed:
			statusStr = errorStyle.Render("[Failed]")
		}

		line := fmt.Sprintf("  %s %s  %s  %s",
			statusStr, it.Name, renderProgressBar(it.Progress(), barWidth), downloader.FormatBytes(done))
		if errVal != nil {
			line += "  " + errorStyle.Render(errVal.Error())
		}
		if i == d.cursor {
			line = selectedStyle.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
		sb.WriteString(helpStyle.Render("    to: " + truncatePath(it.DestPath, max(20, width-10))))
		sb.WriteString("\n")
	}

	return sb.String()
}

func renderProgressBar(progress float64, width int) string {
	filled := min(int(progress*float64(width)), width)
	empty := width - filled

	bar := progressBarFilled.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", empty))

	return fmt.Sprintf("[%s] %3.0f%%", bar, progress*100)
}
