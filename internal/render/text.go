package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/JohnDeved/surefine-cli/internal/card"
	"github.com/JohnDeved/surefine-cli/internal/mirror"
)

// Options controls terminal rendering.
type Options struct {
	// Expanded shows the overflow mirrors instead of the toggle hint.
	Expanded bool
	// Color enables ANSI styling.
	Color bool
	// Width wraps the description when positive.
	Width int
}

// ToggleLabel returns the text of the overflow toggle for a state.
func ToggleLabel(expanded bool, hidden int) string {
	if expanded {
		return "Hide extra mirrors"
	}
	return fmt.Sprintf("Show all mirrors (%d more)", hidden)
}

// Text writes a card as styled terminal text.
func Text(w io.Writer, c card.Card, opts Options) error {
	_, err := io.WriteString(w, TextString(c, opts))
	return err
}

// TextString renders a card as styled terminal text.
func TextString(c card.Card, opts Options) string {
	st := newStyles(opts.Color)
	var b strings.Builder

	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}
	row := func(key, value string) {
		line("  %s %s", st.label.Render(fmt.Sprintf("%-13s", key)), st.value.Render(value))
	}

	line("%s", st.title.Render(c.Title))
	if c.PageURL != "" {
		line("%s", st.muted.Render(c.PageURL))
	}
	line("")

	line("%s", st.section.Render("Game info"))
	row("Release", c.Metadata.Release)
	row("Version", c.Metadata.Version)
	row("Scene group", c.Metadata.SceneGroup)

	if len(c.Requirements) > 0 {
		line("")
		line("%s", st.section.Render("System requirements"))
		for _, r := range c.Requirements {
			row(r.Key, r.Value)
		}
	}

	if !c.Mirrors.Empty() {
		line("")
		line("%s", st.section.Render("Download mirrors"))
		writeGroups(&b, st, c.Mirrors.Primary, st.link)
		if hidden := c.Mirrors.OverflowLen(); hidden > 0 {
			marker := "[+]"
			if opts.Expanded {
				marker = "[-]"
			}
			line("  %s", st.toggle.Render(marker+" "+ToggleLabel(opts.Expanded, hidden)))
			if opts.Expanded {
				writeGroups(&b, st, c.Mirrors.MergedOverflow(), st.linkDim)
			}
		}
	}

	line("")
	line("%s", st.section.Render("Trailer"))
	switch {
	case c.Trailer == nil:
		line("  %s", st.muted.Render("Looking up trailer..."))
	case c.Trailer.Fallback:
		line("  %s", st.trailer.Render("Search YouTube for "+c.Title))
		line("  %s", st.muted.Render(c.Trailer.SearchURL))
	default:
		line("  %s", st.trailer.Render(c.Trailer.WatchURL()))
		if c.Trailer.Query != "" {
			line("  %s", st.muted.Render("found with \""+c.Trailer.Query+"\""))
		}
	}

	line("")
	line("%s", st.section.Render("Description"))
	desc := c.Description
	if opts.Width > 4 {
		desc = lipgloss.NewStyle().Width(opts.Width - 2).Render(desc)
	}
	for _, l := range strings.Split(desc, "\n") {
		line("  %s", st.value.Render(strings.TrimRight(l, " ")))
	}

	if len(c.Screenshots) > 0 {
		line("")
		line("%s", st.section.Render("Screenshots"))
		for _, s := range c.Screenshots {
			line("  %s", st.linkDim.Render(s))
		}
	}

	if len(c.SearchLinks) > 0 {
		line("")
		line("%s", st.section.Render("Links"))
		for _, l := range c.SearchLinks {
			row(l.Name, l.URL)
		}
	}

	return b.String()
}

func writeGroups(b *strings.Builder, st styles, groups []mirror.Group, linkStyle lipgloss.Style) {
	for _, g := range groups {
		fmt.Fprintf(b, "  %s\n", st.host.Render(mirror.DisplayName(g.Provider)))
		for _, m := range g.Items {
			label := m.Label
			if label == "" {
				label = m.URL
			}
			fmt.Fprintf(b, "    %s  %s\n", linkStyle.Render(label), st.muted.Render(m.URL))
		}
	}
}
