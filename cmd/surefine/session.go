package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JohnDeved/surefine-cli/internal/card"
	"github.com/JohnDeved/surefine-cli/internal/client"
	"github.com/JohnDeved/surefine-cli/internal/config"
	"github.com/JohnDeved/surefine-cli/internal/logging"
	"github.com/JohnDeved/surefine-cli/internal/scrape"
	"github.com/JohnDeved/surefine-cli/internal/store"
	"github.com/JohnDeved/surefine-cli/internal/trailer"
	"github.com/JohnDeved/surefine-cli/internal/tui"
)

// session holds what every command needs: config, HTTP client, history
// database and trailer finder.
type session struct {
	cfg     *config.Config
	client  *client.Client
	db      *store.DB
	finder  *trailer.Finder
	logger  *slog.Logger
	baseURL string
}

func newSession(cmd *cobra.Command, logOut io.Writer) (*session, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := logging.New(logOut, verbose)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	s := &session{
		cfg:     cfg,
		client:  client.New(cfg.RequestsPerSecond),
		logger:  logger,
		baseURL: strings.TrimRight(cfg.SiteOrigin, "/") + "/",
	}
	if cmd.Flags().Lookup("page-url") != nil {
		if base, _ := cmd.Flags().GetString("page-url"); base != "" {
			s.baseURL = base
		}
	}

	s.finder = trailer.NewFinder(s.client, cfg.TrailerQueries, logger)

	// History is optional; commands still work without it.
	db, err := store.OpenDB(config.DBPath())
	if err != nil {
		logger.Warn("history database unavailable", "path", config.DBPath(), "err", err)
	} else {
		db.SetTrailerTTL(cfg.TrailerTTL())
		s.db = db
		s.finder.SetCache(db)
	}
	return s, nil
}

func (s *session) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// history returns the database as a tui.History, or nil without one.
func (s *session) history() tui.History {
	if s.db == nil {
		return nil
	}
	return s.db
}

func isURL(target string) bool {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// loadPage fetches a URL or reads a saved HTML file and scrapes it.
func (s *session) loadPage(ctx context.Context, target string) (*scrape.Page, error) {
	if isURL(target) {
		body, err := s.client.FetchPage(ctx, target)
		if err != nil {
			return nil, err
		}
		return scrape.Parse(bytes.NewReader(body), target)
	}

	f, err := os.Open(target)
	if err != nil {
		return nil, fmt.Errorf("opening page: %w", err)
	}
	defer f.Close()
	return scrape.Parse(f, s.baseURL)
}

// LoadCard scrapes target, builds its card and records it in history.
func (s *session) LoadCard(ctx context.Context, target string) (card.Card, error) {
	page, err := s.loadPage(ctx, target)
	if err != nil {
		return card.Card{}, err
	}
	c := card.Build(page, s.cfg.CardOptions())
	s.logger.Debug("card built",
		"url", c.PageURL,
		"title", c.Title,
		"primary", c.Mirrors.Len()-c.Mirrors.OverflowLen(),
		"overflow", c.Mirrors.OverflowLen(),
		"unlisted", c.MirrorStats.Unlisted,
	)
	s.record(c)
	return c, nil
}

// FindTrailer looks up a trailer for title.
func (s *session) FindTrailer(ctx context.Context, title string) (trailer.Result, error) {
	return s.finder.Find(ctx, title)
}

// attachTrailer looks up the card's trailer and stores it on the card.
func (s *session) attachTrailer(ctx context.Context, c *card.Card) error {
	res, err := s.FindTrailer(ctx, c.Title)
	if err != nil {
		return err
	}
	c.Trailer = &res
	return nil
}

func (s *session) record(c card.Card) {
	if s.db == nil {
		return
	}
	if err := s.db.RecordPage(c); err != nil {
		s.logger.Warn("recording page failed", "url", c.PageURL, "err", err)
	}
}
