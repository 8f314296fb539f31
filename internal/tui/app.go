package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/JohnDeved/surefine-cli/internal/card"
	"github.com/JohnDeved/surefine-cli/internal/downloader"
	"github.com/JohnDeved/surefine-cli/internal/render"
	"github.com/JohnDeved/surefine-cli/internal/store"
	"github.com/JohnDeved/surefine-cli/internal/trailer"
)

// Tab identifies the active view.
type Tab int

const (
	TabCard Tab = iota
	TabHistory
	TabDownloads
)

const historyLimit = 100

// Loader fetches pages and looks up trailers.
type Loader interface {
	LoadCard(ctx context.Context, target string) (card.Card, error)
	FindTrailer(ctx context.Context, title string) (trailer.Result, error)
}

// History searches previously scraped pages.
type History interface {
	SearchPages(query string, limit int) ([]store.PageRecord, error)
	RecentPages(limit int) ([]store.PageRecord, error)
}

// Messages
type cardLoadedMsg struct {
	target string
	card   card.Card
	err    error
}

type trailerMsg struct {
	pageURL string
	result  trailer.Result
	err     error
}

type historyMsg struct {
	records []store.PageRecord
	query   string
	err     error
}

type statusClearMsg struct{ id int }

type downloadUpdateMsg struct{}

// Model is the main Bubble Tea model.
type Model struct {
	loader      Loader
	hist        History
	dlManager   *downloader.Manager
	activeTab   Tab
	viewer      viewerModel
	history     historyModel
	downloads   downloadsModel
	spinner     spinner.Model
	width       int
	height      int
	showHelp    bool
	helpOffset  int
	statusMsg   string
	statusID    int
	quitConfirm bool
}

// NewModel creates the TUI model. With an empty target it opens on the
// history tab.
func NewModel(loader Loader, hist History, dlm *downloader.Manager, target string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	m := Model{
		loader:    loader,
		hist:      hist,
		dlManager: dlm,
		activeTab: TabCard,
		viewer:    newViewerModel(),
		history:   newHistoryModel(),
		downloads: newDownloadsModel(),
		spinner:   s,
	}
	m.viewer.target = target
	if target == "" {
		m.activeTab = TabHistory
	} else {
		m.viewer.loading = true
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.searchHistory("")}
	if m.viewer.target != "" {
		cmds = append(cmds, m.loadCard(m.viewer.target))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		viewHeight := m.height - 7 // header, tabs, rules, status bar
		m.viewer.height = max(1, viewHeight-2)
		m.viewer.setWidth(m.width)
		m.history.height = viewHeight
		m.downloads.height = viewHeight
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case cardLoadedMsg:
		if msg.target != m.viewer.target {
			return m, nil
		}
		if msg.err != nil {
			m.viewer.setError(msg.err)
			return m, nil
		}
		c := msg.card
		if prev := m.viewer.card; prev != nil && prev.Title == c.Title && prev.Trailer != nil {
			c.Trailer = prev.Trailer
		}
		m.viewer.setCard(c)
		if c.Trailer == nil {
			return m, tea.Batch(m.findTrailer(c), m.searchHistory(m.history.lastQuery))
		}
		return m, m.searchHistory(m.history.lastQuery)

	case trailerMsg:
		if m.viewer.card == nil || m.viewer.card.PageURL != msg.pageURL {
			return m, nil
		}
		c := *m.viewer.card
		res := msg.result
		if msg.err != nil {
			res = trailer.Result{Fallback: true, SearchURL: trailer.SearchURL(c.Title)}
		}
		c.Trailer = &res
		m.viewer.setCard(c)
		return m, nil

	case historyMsg:
		if msg.err != nil {
			m.history.setError(msg.err)
			return m, nil
		}
		m.history.setRecords(msg.records, msg.query)
		return m, nil

	case downloadUpdateMsg:
		m.downloads.setItems(m.dlManager.Items())
		return m, nil

	case statusClearMsg:
		if msg.id == m.statusID {
			m.statusMsg = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.activeTab == TabHistory {
		var cmd tea.Cmd
		m.history.input, cmd = m.history.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	inputFocused := m.activeTab == TabHistory && m.history.input.Focused()

	if m.showHelp {
		switch key {
		case "?", "esc":
			m.showHelp = false
			m.helpOffset = 0
			return m, nil
		case "up", "k":
			m.helpOffset = max(0, m.helpOffset-1)
			return m, nil
		case "down", "j":
			m.helpOffset++
			return m, nil
		}
	}

	if key == "ctrl+c" || (key == "q" && !inputFocused) {
		if m.quitConfirm || m.dlManager == nil {
			if m.dlManager != nil {
				m.dlManager.CancelAll()
			}
			return m, tea.Quit
		}
		if m.dlManager.ActiveCount() > 0 {
			m.quitConfirm = true
			return m, m.setStatus("Screenshots still saving. Press q again to cancel and quit, or Esc to stay")
		}
		return m, tea.Quit
	}

	if key == "esc" && m.quitConfirm {
		m.quitConfirm = false
		return m, m.setStatus("Quit canceled")
	}

	if !inputFocused {
		switch key {
		case "?":
			m.showHelp = !m.showHelp
			m.helpOffset = 0
			return m, nil
		case "1":
			m.activeTab = TabCard
			return m, nil
		case "2":
			m.activeTab = TabHistory
			return m, nil
		case "3":
			m.activeTab = TabDownloads
			if m.dlManager != nil {
				m.downloads.setItems(m.dlManager.Items())
			}
			return m, nil
		case "shift+tab":
			m.activeTab = (m.activeTab + 1) % 3
			m.history.input.Blur()
			return m, nil
		}
	}

	switch m.activeTab {
	case TabCard:
		return m.handleCardKey(key)
	case TabHistory:
		return m.handleHistoryKey(key, msg)
	case TabDownloads:
		return m.handleDownloadsKey(key)
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		switch m.activeTab {
		case TabCard:
			m.viewer.scroll(-3)
		case TabHistory:
			m.history.moveUp()
		case TabDownloads:
			m.downloads.moveUp()
		}
	case tea.MouseButtonWheelDown:
		switch m.activeTab {
		case TabCard:
			m.viewer.scroll(3)
		case TabHistory:
			m.history.moveDown()
		case TabDownloads:
			m.downloads.moveDown()
		}
	}
	return m, nil
}

func (m Model) handleCardKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "m", "tab":
		if m.viewer.hiddenMirrors() == 0 {
			return m, m.setStatus("No extra mirrors")
		}
		m.viewer.toggleExpanded()
		if m.viewer.expanded {
			return m, m.setStatus("Showing all mirrors")
		}
		return m, m.setStatus("Extra mirrors hidden")
	case "r":
		if m.viewer.target == "" {
			return m, nil
		}
		m.viewer.loading = true
		return m, tea.Batch(m.loadCard(m.viewer.target), m.setStatus("Refreshing..."))
	case "s":
		return m, m.queueScreenshots()
	case "up", "k":
		m.viewer.scroll(-1)
	case "down", "j":
		m.viewer.scroll(1)
	case "pgup", "ctrl+u":
		m.viewer.pageUp()
	case "pgdown", "ctrl+d", " ":
		m.viewer.pageDown()
	case "home", "g":
		m.viewer.goHome()
	case "end", "G":
		m.viewer.goEnd()
	}
	return m, nil
}

func (m Model) handleHistoryKey(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.history.input.Focused() {
		switch key {
		case "enter":
			m.history.input.Blur()
			m.history.searching = true
			return m, m.searchHistory(strings.TrimSpace(m.history.input.Value()))
		case "esc":
			m.history.input.Blur()
			return m, nil
		default:
			var cmd tea.Cmd
			m.history.input, cmd = m.history.input.Update(msg)
			return m, cmd
		}
	}

	switch key {
	case "up", "k":
		m.history.moveUp()
	case "down", "j":
		m.history.moveDown()
	case "pgup", "ctrl+u":
		m.history.pageUp()
	case "pgdown", "ctrl+d":
		m.history.pageDown()
	case "/", "i":
		m.history.input.Focus()
	case "enter", "o":
		if sel := m.history.selected(); sel != nil {
			return m.open(sel.URL)
		}
	}
	return m, nil
}

func (m Model) handleDownloadsKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		m.downloads.moveUp()
	case "down", "j":
		m.downloads.moveDown()
	case "r":
		if m.dlManager != nil {
			m.downloads.setItems(m.dlManager.Items())
		}
	}
	return m, nil
}

// open switches to the card tab and loads target.
func (m Model) open(target string) (Model, tea.Cmd) {
	m.activeTab = TabCard
	m.viewer.target = target
	m.viewer.loading = true
	m.viewer.expanded = false
	m.viewer.guard.Reset()
	return m, m.loadCard(target)
}

func (m *Model) queueScreenshots() tea.Cmd {
	c := m.viewer.card
	if c == nil || m.dlManager == nil {
		return nil
	}
	if len(c.Screenshots) == 0 {
		return m.setStatus("No screenshots on this page")
	}
	folder := card.Folder(c.Title)
	queued := 0
	for i, src := range c.Screenshots {
		name := filepath.Join(folder, downloader.FileName(i+1, src))
		if _, created := m.dlManager.Enqueue(name, src); created {
			queued++
		}
	}
	m.downloads.setItems(m.dlManager.Items())
	if queued == 0 {
		return m.setStatus("Screenshots already queued")
	}
	return m.setStatus(fmt.Sprintf("Queued %d screenshots", queued))
}

// Commands

func (m Model) loadCard(target string) tea.Cmd {
	loader := m.loader
	return func() tea.Msg {
		c, err := loader.LoadCard(context.Background(), target)
		return cardLoadedMsg{target: target, card: c, err: err}
	}
}

func (m Model) findTrailer(c card.Card) tea.Cmd {
	loader := m.loader
	return func() tea.Msg {
		res, err := loader.FindTrailer(context.Background(), c.Title)
		return trailerMsg{pageURL: c.PageURL, result: res, err: err}
	}
}

func (m Model) searchHistory(query string) tea.Cmd {
	hist := m.hist
	return func() tea.Msg {
		if hist == nil {
			return historyMsg{query: query}
		}
		var (
			records []store.PageRecord
			err     error
		)
		if query == "" {
			records, err = hist.RecentPages(historyLimit)
		} else {
			records, err = hist.SearchPages(query, historyLimit)
		}
		return historyMsg{records: records, query: query, err: err}
	}
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("  surefine  "))
	sb.WriteString("\n")

	tabs := []struct {
		name string
		tab  Tab
		key  string
	}{
		{"Card", TabCard, "1"},
		{"History", TabHistory, "2"},
		{"Screenshots", TabDownloads, "3"},
	}
	var tabLine strings.Builder
	for _, t := range tabs {
		label := fmt.Sprintf(" %s %s ", t.key, t.name)
		if m.activeTab == t.tab {
			tabLine.WriteString(tabActiveStyle.Render(label))
		} else {
			tabLine.WriteString(tabInactiveStyle.Render(label))
		}
		tabLine.WriteString(" ")
	}
	if m.dlManager != nil {
		if n := m.dlManager.ActiveCount(); n > 0 {
			tabLine.WriteString(badgeStyle.Render(fmt.Sprintf(" [%d saving]", n)))
		}
	}
	sb.WriteString(tabLine.String())
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", m.width))
	sb.WriteString("\n")

	if m.showHelp {
		sb.WriteString(m.helpView(m.height - 7))
	} else {
		switch m.activeTab {
		case TabCard:
			sb.WriteString(m.viewer.view(m.width, m.spinner.View()))
		case TabHistory:
			sb.WriteString(m.history.view(m.width, m.spinner.View()))
		case TabDownloads:
			sb.WriteString(m.downloads.view(m.width))
		}
	}

	statusLine := m.statusMsg
	if statusLine == "" {
		statusLine = m.defaultStatus()
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", m.width))
	sb.WriteString("\n")
	sb.WriteString(statusBarStyle.Width(m.width).Render(statusLine))

	return sb.String()
}

func (m Model) defaultStatus() string {
	switch m.activeTab {
	case TabCard:
		hint := "j/k:scroll  r:refresh  s:save screenshots  ?:help"
		if n := m.viewer.hiddenMirrors(); n > 0 {
			hint = "m:" + render.ToggleLabel(m.viewer.expanded, n) + "  " + hint
		}
		return hint
	case TabHistory:
		return "/:search  j/k:navigate  Enter:open  ?:help"
	case TabDownloads:
		return "j/k:navigate  r:refresh  ?:help"
	}
	return ""
}

func (m Model) helpView(maxLines int) string {
	lines := []string{
		"  Keyboard Shortcuts",
		"  ──────────────────",
		"",
		"  Global:",
		"    1-3 / Shift+Tab  Switch views",
		"    ?                Toggle help",
		"    q / Ctrl+C       Quit (double-press while screenshots save)",
		"",
		"  Card:",
		"    m / Tab          Show or hide extra mirrors",
		"    r                Refresh the page",
		"    s                Save screenshots",
		"    j/k / Up/Down    Scroll",
		"    PgUp / PgDn      Page up/down",
		"    g / G            Top/bottom",
		"",
		"  History:",
		"    / or i           Focus search input",
		"    Enter            Search (input focused) / open page",
		"    j/k              Navigate",
		"",
		"  Screenshots:",
		"    j/k              Navigate",
		"    r                Refresh list",
		"",
		"  Press ? or Esc to close help.",
	}

	maxLines = max(6, maxLines)
	maxOffset := max(0, len(lines)-maxLines)
	offset := min(max(0, m.helpOffset), maxOffset)
	end := min(offset+maxLines, len(lines))
	return helpStyle.Render(strings.Join(lines[offset:end], "\n"))
}

func (m *Model) setStatus(msg string) tea.Cmd {
	m.statusMsg = msg
	m.statusID++
	id := m.statusID
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return statusClearMsg{id: id}
	})
}

// Run starts the TUI.
func Run(loader Loader, hist History, dlm *downloader.Manager, target string) error {
	m := NewModel(loader, hist, dlm, target)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if dlm != nil {
		dlm.SetOnChange(func() {
			p.Send(downloadUpdateMsg{})
		})
	}

	_, err := p.Run()
	return err
}
