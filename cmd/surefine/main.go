package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/JohnDeved/surefine-cli/internal/card"
	"github.com/JohnDeved/surefine-cli/internal/config"
	"github.com/JohnDeved/surefine-cli/internal/downloader"
	"github.com/JohnDeved/surefine-cli/internal/mirror"
	"github.com/JohnDeved/surefine-cli/internal/render"
	"github.com/JohnDeved/surefine-cli/internal/scrape"
	"github.com/JohnDeved/surefine-cli/internal/store"
	"github.com/JohnDeved/surefine-cli/internal/tui"
	"github.com/JohnDeved/surefine-cli/internal/watch"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "surefine [url]",
		Short: "Info cards and download mirrors for SteamUnderground game pages",
		Long: `surefine - Turn a SteamUnderground game page into a compact info card:
release facts, system requirements, a trailer, screenshots and a ranked,
deduplicated list of download mirrors.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         runTUI,
	}
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output to stderr")

	// Card command
	cardCmd := &cobra.Command{
		Use:   "card <url|file>",
		Short: "Print the info card for a game page",
		Args:  cobra.ExactArgs(1),
		RunE:  runCard,
	}
	addCardFlags(cardCmd)

	// Mirrors command
	mirrorsCmd := &cobra.Command{
		Use:   "mirrors <url|file>",
		Short: "List the ranked download mirrors of a game page",
		Args:  cobra.ExactArgs(1),
		RunE:  runMirrors,
	}
	mirrorsCmd.Flags().Bool("json", false, "Output JSON")
	mirrorsCmd.Flags().Bool("all", false, "Also list the overflow mirrors")
	mirrorsCmd.Flags().Int("primary-hosts", 0, "Override how many host groups are primary")
	mirrorsCmd.Flags().Int("links-per-host", 0, "Override how many links per host are primary")
	mirrorsCmd.Flags().String("page-url", "", "Base URL for links in a local HTML file")

	// Trailer command
	trailerCmd := &cobra.Command{
		Use:   "trailer <title...>",
		Short: "Find a YouTube trailer or review for a game title",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runTrailer,
	}
	trailerCmd.Flags().Bool("json", false, "Output JSON")

	// Watch command
	watchCmd := &cobra.Command{
		Use:   "watch <url|file>",
		Short: "Re-render the card whenever the page content changes",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatch,
	}
	watchCmd.Flags().Duration("interval", 0, "Poll interval (default from config)")
	watchCmd.Flags().Duration("debounce", -1, "Debounce delay for changes (default from config)")
	watchCmd.Flags().String("html", "", "Rewrite this HTML file on every change instead of printing")
	watchCmd.Flags().String("page-url", "", "Base URL for links in a local HTML file")

	// Shots command
	shotsCmd := &cobra.Command{
		Use:   "shots <url|file>",
		Short: "Save a game page's screenshots",
		Args:  cobra.ExactArgs(1),
		RunE:  runShots,
	}
	shotsCmd.Flags().StringP("output", "o", "", "Output directory (default from config)")
	shotsCmd.Flags().Int("limit", 0, "Fallback screenshot count (default from config)")
	shotsCmd.Flags().String("page-url", "", "Base URL for links in a local HTML file")

	// History command
	historyCmd := &cobra.Command{
		Use:   "history [query]",
		Short: "List or search previously viewed pages",
		RunE:  runHistory,
	}
	historyCmd.Flags().Int("limit", 20, "Maximum number of pages")
	historyCmd.Flags().Bool("json", false, "Output JSON")

	// Stats command
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show history database statistics",
		RunE:  runStats,
	}
	statsCmd.Flags().Bool("json", false, "Output JSON")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the config file location and active settings",
		RunE:  runConfig,
	}

	rootCmd.AddCommand(cardCmd, mirrorsCmd, trailerCmd, watchCmd, shotsCmd, historyCmd, statsCmd, configCmd)
	addCardFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCardFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("json", false, "Output JSON")
	cmd.Flags().Bool("html", false, "Output a standalone HTML card")
	cmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	cmd.Flags().Bool("expanded", false, "Show all mirrors instead of the collapsed view")
	cmd.Flags().Bool("no-trailer", false, "Skip the trailer lookup")
	cmd.Flags().String("page-url", "", "Base URL for links in a local HTML file")
}

func runTUI(cmd *cobra.Command, args []string) error {
	jsonMode, _ := cmd.Flags().GetBool("json")
	htmlMode, _ := cmd.Flags().GetBool("html")
	output, _ := cmd.Flags().GetString("output")
	if len(args) > 0 && (jsonMode || htmlMode || output != "" || !isInteractiveTerminal()) {
		return runCard(cmd, args)
	}
	if !isInteractiveTerminal() {
		return errors.New("no page given and not running in a terminal; try 'surefine card <url>'")
	}

	// Logs would tear the alt screen.
	s, err := newSession(cmd, io.Discard)
	if err != nil {
		return err
	}
	defer s.Close()

	dlm := downloader.NewManager(s.client, s.cfg.ScreenshotDir, s.cfg.MaxConcurrentDownloads)
	defer dlm.CancelAll()

	target := ""
	if len(args) > 0 {
		target = args[0]
	}
	return tui.Run(s, s.history(), dlm, target)
}

func runCard(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	c, err := s.LoadCard(ctx, args[0])
	if err != nil {
		return err
	}
	if noTrailer, _ := cmd.Flags().GetBool("no-trailer"); !noTrailer {
		if err := s.attachTrailer(ctx, &c); err != nil {
			return err
		}
		s.record(c)
	}

	out, closeOut, err := openOutput(cmd)
	if err != nil {
		return err
	}
	defer closeOut()

	return writeCard(cmd, out, c)
}

// writeCard renders c in the format selected by the command's flags.
func writeCard(cmd *cobra.Command, w io.Writer, c card.Card) error {
	jsonMode, _ := cmd.Flags().GetBool("json")
	htmlMode, _ := cmd.Flags().GetBool("html")
	expanded, _ := cmd.Flags().GetBool("expanded")
	output, _ := cmd.Flags().GetString("output")

	switch {
	case jsonMode:
		return render.JSON(w, c)
	case htmlMode:
		return render.HTML(w, c)
	default:
		return render.Text(w, c, render.Options{
			Expanded: expanded,
			Color:    output == "" && isInteractiveTerminal(),
			Width:    80,
		})
	}
}

func openOutput(cmd *cobra.Command) (io.Writer, func(), error) {
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(output)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func runMirrors(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	page, err := s.loadPage(context.Background(), args[0])
	if err != nil {
		return err
	}

	opts := s.cfg.MirrorOptions()
	if cmd.Flags().Changed("primary-hosts") {
		opts.PrimaryHostLimit, _ = cmd.Flags().GetInt("primary-hosts")
	}
	if cmd.Flags().Changed("links-per-host") {
		opts.LinksPerHostLimit, _ = cmd.Flags().GetInt("links-per-host")
	}
	plan, stats := mirror.ExtractWithStats(page.Links, page.Origin, opts)
	s.logger.Debug("mirror extraction",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"internal", stats.Internal,
		"malformed", stats.Malformed,
		"duplicate", stats.Duplicate,
		"unlisted", stats.Unlisted,
	)

	jsonMode, _ := cmd.Flags().GetBool("json")
	if jsonMode {
		out := struct {
			URL   string       `json:"url"`
			Plan  mirror.Plan  `json:"plan"`
			Stats mirror.Stats `json:"stats"`
		}{
			URL:   page.URL,
			Plan:  plan,
			Stats: stats,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if plan.Empty() {
		fmt.Println("No download mirrors found.")
		return nil
	}

	printGroups(plan.Primary)
	all, _ := cmd.Flags().GetBool("all")
	switch {
	case all && plan.OverflowLen() > 0:
		fmt.Println()
		fmt.Println("More mirrors:")
		printGroups(plan.MergedOverflow())
	case plan.OverflowLen() > 0:
		fmt.Fprintf(os.Stderr, "\n%d more mirrors hidden (use --all).\n", plan.OverflowLen())
	}
	return nil
}

func printGroups(groups []mirror.Group) {
	for _, g := range groups {
		for _, m := range g.Items {
			label := m.Label
			if label == "" {
				label = mirror.DisplayName(g.Provider)
			}
			fmt.Printf("%-12s\t%-30s\t%s\n", g.Provider, label, m.URL)
		}
	}
}

func runTrailer(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	title := strings.Join(args, " ")
	res, err := s.FindTrailer(ctx, title)
	if err != nil {
		return err
	}

	jsonMode, _ := cmd.Flags().GetBool("json")
	if jsonMode {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if res.Fallback {
		fmt.Fprintf(os.Stderr, "No trailer found for %q.\n", title)
		fmt.Println(res.SearchURL)
		return nil
	}
	fmt.Println(res.WatchURL())
	if res.Query != "" {
		fmt.Fprintf(os.Stderr, "query: %s\n", res.Query)
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		interval = s.cfg.WatchInterval()
	}
	debounce, _ := cmd.Flags().GetDuration("debounce")
	if debounce < 0 {
		debounce = s.cfg.Debounce()
	}
	htmlPath, _ := cmd.Flags().GetString("html")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	target := args[0]
	var guard render.Guard
	onChange := func(page *scrape.Page) {
		c := card.Build(page, s.cfg.CardOptions())
		if err := s.attachTrailer(ctx, &c); err != nil {
			return
		}
		if !guard.Changed(c.Hash()) {
			s.logger.Debug("card unchanged, skipping redraw", "url", c.PageURL)
			return
		}
		s.record(c)
		if err := drawWatched(htmlPath, c); err != nil {
			s.logger.Warn("rendering card failed", "err", err)
			return
		}
		fmt.Fprintf(os.Stderr, "[%s] updated %s (%d mirrors)\n",
			time.Now().Format("15:04:05"), c.Title, c.Mirrors.Len())
	}

	w := watch.New(func(ctx context.Context) (*scrape.Page, error) {
		return s.loadPage(ctx, target)
	}, interval, debounce, onChange, s.logger)

	fmt.Fprintf(os.Stderr, "Watching %s every %s (Ctrl+C to stop)\n", target, interval)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func drawWatched(htmlPath string, c card.Card) error {
	if htmlPath == "" {
		return render.Text(os.Stdout, c, render.Options{Color: isInteractiveTerminal(), Width: 80})
	}
	tmp := htmlPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := render.HTML(f, c); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, htmlPath)
}

func runShots(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	if cmd.Flags().Changed("limit") {
		s.cfg.ScreenshotLimit, _ = cmd.Flags().GetInt("limit")
	}
	outDir, _ := cmd.Flags().GetString("output")
	if outDir == "" {
		outDir = s.cfg.ScreenshotDir
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	c, err := s.LoadCard(ctx, args[0])
	if err != nil {
		return err
	}
	if len(c.Screenshots) == 0 {
		fmt.Fprintln(os.Stderr, "No screenshots found on this page.")
		return nil
	}

	folder := card.Folder(c.Title)
	fmt.Fprintf(os.Stderr, "Saving %d screenshots of %s\n", len(c.Screenshots), c.Title)
	fmt.Fprintf(os.Stderr, "To: %s\n", filepath.Join(outDir, folder))

	dlm := downloader.NewManager(s.client, outDir, s.cfg.MaxConcurrentDownloads)
	for i, src := range c.Screenshots {
		dlm.Enqueue(filepath.Join(folder, downloader.FileName(i+1, src)), src)
	}

	go func() {
		<-ctx.Done()
		dlm.CancelAll()
	}()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	waitCtx, waitCancel := context.WithCancel(context.Background())
	defer waitCancel()
	finished := make(chan error, 1)
	go func() { finished <- dlm.Wait(waitCtx) }()

	for {
		select {
		case <-finished:
			done, failed, total := dlm.Counts()
			fmt.Fprintf(os.Stderr, "\rSaved %d/%d screenshots                    \n", done, total)
			for _, it := range dlm.Items() {
				if status, errVal := it.Snapshot(); status == downloader.StatusFailed {
					fmt.Fprintf(os.Stderr, "  failed: %s: %v\n", it.Name, errVal)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d screenshots failed", failed, total)
			}
			return nil
		case <-ticker.C:
			done, _, total := dlm.Counts()
			var saved int64
			for _, it := range dlm.Items() {
				saved += it.DoneBytes.Load()
			}
			fmt.Fprintf(os.Stderr, "\r  %d/%d (%s)    ", done, total, downloader.FormatBytes(saved))
		}
	}
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, err := store.OpenDB(config.DBPath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	query := strings.Join(args, " ")
	limit, _ := cmd.Flags().GetInt("limit")

	var pages []store.PageRecord
	if query == "" {
		pages, err = db.RecentPages(limit)
	} else {
		pages, err = db.SearchPages(query, limit)
	}
	if err != nil {
		return fmt.Errorf("history lookup failed: %w", err)
	}

	jsonMode, _ := cmd.Flags().GetBool("json")
	if jsonMode {
		if pages == nil {
			pages = []store.PageRecord{}
		}
		out := struct {
			Query string             `json:"query,omitempty"`
			Count int                `json:"count"`
			Pages []store.PageRecord `json:"pages"`
		}{
			Query: query,
			Count: len(pages),
			Pages: pages,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(pages) == 0 {
		fmt.Println("No pages found.")
		fmt.Println("Tip: Run 'surefine card <url>' to add one.")
		return nil
	}
	for _, p := range pages {
		fmt.Printf("%-40s  %2d mirrors  %-16s  %s\n",
			p.Title, p.MirrorCount, p.LastScraped.Local().Format("2006-01-02 15:04"), p.URL)
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	db, err := store.OpenDB(config.DBPath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	stats, err := db.GetStats()
	if err != nil {
		return err
	}

	jsonMode, _ := cmd.Flags().GetBool("json")
	if jsonMode {
		out := struct {
			store.Stats
			Database string `json:"database"`
		}{
			Stats:    stats,
			Database: config.DBPath(),
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("History Statistics:\n")
	fmt.Printf("  Pages:    %d\n", stats.Pages)
	fmt.Printf("  Mirrors:  %d\n", stats.Mirrors)
	fmt.Printf("  Trailers: %d\n", stats.Trailers)
	fmt.Printf("  Database: %s\n", config.DBPath())
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	fmt.Fprintf(os.Stderr, "# %s\n", config.ConfigPath())
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}

func isInteractiveTerminal() bool {
	inInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	outInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (inInfo.Mode()&os.ModeCharDevice) != 0 && (outInfo.Mode()&os.ModeCharDevice) != 0
}
