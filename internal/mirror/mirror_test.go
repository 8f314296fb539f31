package mirror

import (
	"fmt"
	"reflect"
	"testing"
)

const origin = "https://steamunderground.net"

var defaultHosts = []string{
	"datanodes", "torrent", "gofile", "akirabox", "mediafire", "pixeldrain",
	"megaup", "1fichier", "rapidgator", "hitfile", "nitroflare", "ddl",
}

func defaultOptions() Options {
	return Options{HostPriority: defaultHosts, PrimaryHostLimit: 3, LinksPerHostLimit: 1}
}

func TestExtract_DuplicateCanonicalKeyKeepsFirst(t *testing.T) {
	records := []LinkRecord{
		{Text: "Mirror 1", URL: "https://www.mediafire.com/file/abc"},
		{Text: "Download Now", URL: "https://www.mediafire.com/file/abc"},
	}

	plan, st := ExtractWithStats(records, origin, defaultOptions())
	items := plan.Items()
	if len(items) != 1 {
		t.Fatalf("expected 1 mirror, got %d: %+v", len(items), items)
	}
	if items[0].Label != "Mirror 1" {
		t.Fatalf("expected first record to win, got %q", items[0].Label)
	}
	if items[0].Host != "mediafire.com" {
		t.Fatalf("expected normalized host mediafire.com, got %q", items[0].Host)
	}
	if st.Duplicate != 1 {
		t.Fatalf("expected 1 duplicate, got %d", st.Duplicate)
	}
}

func TestExtract_DuplicateIgnoresWWWAndQuery(t *testing.T) {
	records := []LinkRecord{
		{Text: "Gofile", URL: "https://gofile.io/d/xyz?ref=1"},
		{Text: "Gofile again", URL: "https://WWW.gofile.io/d/xyz?ref=2"},
	}
	plan := Extract(records, origin, defaultOptions())
	if plan.Len() != 1 {
		t.Fatalf("expected www/query variants to collapse, got %d", plan.Len())
	}
}

func TestExtract_InternalLinkExcluded(t *testing.T) {
	records := []LinkRecord{
		{Text: "Mirror", URL: "https://steamunderground.net/out?= mediafire.com"},
	}
	plan, st := ExtractWithStats(records, origin, defaultOptions())
	if !plan.Empty() {
		t.Fatalf("expected internal redirect to be excluded, got %+v", plan)
	}
	if st.Internal != 1 {
		t.Fatalf("expected 1 internal record, got %d", st.Internal)
	}
}

func TestExtract_InternalTorrentLinkPassesFilter(t *testing.T) {
	records := []LinkRecord{
		{Text: "Torrent Download", URL: "https://steamunderground.net/torrents/game.torrent"},
	}
	_, st := ExtractWithStats(records, origin, defaultOptions())
	if st.Internal != 0 || st.Matched != 1 {
		t.Fatalf("expected torrent carve-out to keep the record, got %+v", st)
	}
	// The host is the site itself, which is not a listed provider.
	if st.Unlisted != 1 {
		t.Fatalf("expected site-hosted torrent to be dropped at grouping, got %+v", st)
	}
}

func TestExtract_OriginMatchIsExact(t *testing.T) {
	records := []LinkRecord{
		{Text: "Mirror", URL: "https://steamunderground.net.gofile.io/d/abc"},
	}
	plan := Extract(records, origin, defaultOptions())
	if plan.Len() != 1 {
		t.Fatalf("expected look-alike host to be external, got %d mirrors", plan.Len())
	}
}

func TestExtract_PrimaryHostLimitDemotesWholeGroup(t *testing.T) {
	records := []LinkRecord{
		{Text: "Gofile", URL: "https://gofile.io/d/one"},
		{Text: "Mediafire", URL: "https://www.mediafire.com/file/two"},
	}
	opts := Options{HostPriority: []string{"mediafire", "gofile"}, PrimaryHostLimit: 1, LinksPerHostLimit: 1}

	plan := Extract(records, origin, opts)
	if len(plan.Primary) != 1 || plan.Primary[0].Provider != "mediafire" {
		t.Fatalf("expected mediafire as the only primary group, got %+v", plan.Primary)
	}
	if len(plan.Overflow) != 1 || plan.Overflow[0].Provider != "gofile" {
		t.Fatalf("expected gofile wholly in overflow, got %+v", plan.Overflow)
	}
	if len(plan.Overflow[0].Items) != 1 || plan.Overflow[0].Items[0].URL != "https://gofile.io/d/one" {
		t.Fatalf("unexpected overflow items: %+v", plan.Overflow[0].Items)
	}
}

func TestExtract_UnlistedProviderDroppedAtGrouping(t *testing.T) {
	// The text mentions a provider, so the record passes filtering, but its
	// host is not in the priority list and the plan never renders it.
	records := []LinkRecord{
		{Text: "Mediafire mirror", URL: "https://files.example.org/abc"},
		{Text: "Pixeldrain", URL: "https://pixeldrain.com/u/abc"},
	}

	plan, st := ExtractWithStats(records, origin, defaultOptions())
	if st.Matched != 2 {
		t.Fatalf("expected both records to pass filtering, got %+v", st)
	}
	if st.Unlisted != 1 {
		t.Fatalf("expected 1 unlisted mirror, got %d", st.Unlisted)
	}
	for _, m := range plan.Items() {
		if m.Host == "files.example.org" {
			t.Fatalf("unlisted host leaked into plan: %+v", m)
		}
	}
	if plan.Len() != 1 {
		t.Fatalf("expected only the pixeldrain mirror, got %d", plan.Len())
	}
}

func TestExtract_ShorterLabelFirstWithinProvider(t *testing.T) {
	records := []LinkRecord{
		{Text: "Gofile - Part 1 (fast mirror)", URL: "https://gofile.io/d/long"},
		{Text: "Gofile", URL: "https://gofile.io/d/short"},
		{Text: "Gofile alt", URL: "https://gofile.io/d/mid"},
	}
	opts := Options{HostPriority: defaultHosts, PrimaryHostLimit: 3, LinksPerHostLimit: 3}

	plan := Extract(records, origin, opts)
	if len(plan.Primary) != 1 {
		t.Fatalf("expected 1 group, got %d", len(plan.Primary))
	}
	got := []string{}
	for _, m := range plan.Primary[0].Items {
		got = append(got, m.Label)
	}
	want := []string{"Gofile", "Gofile alt", "Gofile - Part 1 (fast mirror)"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected order: got %v want %v", got, want)
	}
}

func TestExtract_SubdomainRanksAfterBareProvider(t *testing.T) {
	// "store1.gofile.io" groups under gofile but its leftmost label is not a
	// provider token, so it sorts after the bare host despite a shorter label.
	records := []LinkRecord{
		{Text: "GF", URL: "https://store1.gofile.io/download/abc"},
		{Text: "Gofile link", URL: "https://gofile.io/d/abc"},
	}
	opts := Options{HostPriority: defaultHosts, PrimaryHostLimit: 3, LinksPerHostLimit: 2}

	plan := Extract(records, origin, opts)
	if len(plan.Primary) != 1 || len(plan.Primary[0].Items) != 2 {
		t.Fatalf("unexpected plan: %+v", plan)
	}
	if plan.Primary[0].Items[0].Host != "gofile.io" {
		t.Fatalf("expected bare provider first, got %+v", plan.Primary[0].Items)
	}
}

func TestExtract_GroupsFollowPriorityOrder(t *testing.T) {
	records := []LinkRecord{
		{Text: "Mediafire", URL: "https://www.mediafire.com/file/a"},
		{Text: "1fichier", URL: "https://1fichier.com/?abc"},
		{Text: "Datanodes", URL: "https://datanodes.to/abc"},
		{Text: "Gofile", URL: "https://gofile.io/d/a"},
	}
	plan := Extract(records, origin, defaultOptions())

	var providers []string
	for _, g := range plan.Primary {
		providers = append(providers, g.Provider)
	}
	for _, g := range plan.Overflow {
		providers = append(providers, g.Provider)
	}
	want := []string{"datanodes", "gofile", "mediafire", "1fichier"}
	if !reflect.DeepEqual(providers, want) {
		t.Fatalf("got %v want %v", providers, want)
	}
}

func TestExtract_CapacityAndConservation(t *testing.T) {
	hosts := []string{"datanodes", "gofile", "mediafire", "pixeldrain", "megaup"}
	var records []LinkRecord
	for _, h := range hosts {
		for i := 0; i < 2; i++ {
			records = append(records, LinkRecord{
				Text: fmt.Sprintf("%s %d", h, i),
				URL:  fmt.Sprintf("https://%s.com/file/%d", h, i),
			})
		}
	}
	// Duplicate and malformed noise.
	records = append(records,
		LinkRecord{Text: "dup", URL: "https://www.gofile.com/file/0"},
		LinkRecord{Text: "broken mediafire", URL: "https://mediafire.com/%zz"},
		LinkRecord{Text: "relative mediafire", URL: "/go/mediafire"},
	)

	opts := Options{HostPriority: defaultHosts, PrimaryHostLimit: 3, LinksPerHostLimit: 1}
	plan, st := ExtractWithStats(records, origin, opts)

	if len(plan.Primary) != 3 {
		t.Fatalf("expected 3 primary groups, got %d", len(plan.Primary))
	}
	for _, g := range plan.Primary {
		if len(g.Items) > opts.LinksPerHostLimit {
			t.Fatalf("group %s exceeds per-host limit: %d", g.Provider, len(g.Items))
		}
	}
	if st.Malformed != 2 || st.Duplicate != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}

	seen := map[string]bool{}
	for _, m := range plan.Items() {
		key, ok := CanonicalKey(m.URL)
		if !ok {
			t.Fatalf("plan contains non-absolute URL %q", m.URL)
		}
		if seen[key] {
			t.Fatalf("duplicate canonical key %q in plan", key)
		}
		seen[key] = true
	}
	if len(seen) != 10 {
		t.Fatalf("expected all 10 unique mirrors to survive, got %d", len(seen))
	}
	if plan.OverflowLen() != 7 {
		t.Fatalf("expected 7 overflow mirrors, got %d", plan.OverflowLen())
	}
}

func TestExtract_OverflowSplitsPrimaryGroupRemainder(t *testing.T) {
	records := []LinkRecord{
		{Text: "Mediafire", URL: "https://mediafire.com/file/1"},
		{Text: "Mediafire 2", URL: "https://mediafire.com/file/2"},
		{Text: "Mediafire 33", URL: "https://mediafire.com/file/3"},
	}
	plan := Extract(records, origin, Options{HostPriority: defaultHosts, PrimaryHostLimit: 3, LinksPerHostLimit: 1})

	if len(plan.Primary) != 1 || len(plan.Primary[0].Items) != 1 {
		t.Fatalf("unexpected primary: %+v", plan.Primary)
	}
	if len(plan.Overflow) != 1 || plan.Overflow[0].Provider != "mediafire" || len(plan.Overflow[0].Items) != 2 {
		t.Fatalf("unexpected overflow: %+v", plan.Overflow)
	}
}

func TestExtract_PrimaryItemsDoNotAliasOverflow(t *testing.T) {
	records := []LinkRecord{
		{Text: "Gofile", URL: "https://gofile.io/d/1"},
		{Text: "Gofile 2", URL: "https://gofile.io/d/2"},
	}
	plan := Extract(records, origin, Options{HostPriority: defaultHosts, PrimaryHostLimit: 3, LinksPerHostLimit: 1})
	if len(plan.Primary) != 1 || len(plan.Overflow) != 1 {
		t.Fatalf("unexpected plan: %+v", plan)
	}

	_ = append(plan.Primary[0].Items, Mirror{URL: "https://clobbered/"})
	if got := plan.Overflow[0].Items[0].URL; got != "https://gofile.io/d/2" {
		t.Fatalf("appending to primary items changed overflow: %q", got)
	}
}

func TestExtract_NonPositiveLimits(t *testing.T) {
	records := []LinkRecord{
		{Text: "Gofile", URL: "https://gofile.io/d/a"},
		{Text: "Mediafire", URL: "https://mediafire.com/file/a"},
	}
	plan := Extract(records, origin, Options{HostPriority: defaultHosts, PrimaryHostLimit: 0, LinksPerHostLimit: -2})
	if len(plan.Primary) != 0 {
		t.Fatalf("expected no primary groups, got %+v", plan.Primary)
	}
	if plan.OverflowLen() != 2 {
		t.Fatalf("expected every mirror in overflow, got %d", plan.OverflowLen())
	}
}

func TestExtract_EmptyInput(t *testing.T) {
	plan := Extract(nil, origin, defaultOptions())
	if !plan.Empty() || plan.Primary != nil || plan.Overflow != nil {
		t.Fatalf("expected empty plan, got %+v", plan)
	}
}

func TestExtract_Deterministic(t *testing.T) {
	records := []LinkRecord{
		{Text: "Mediafire", URL: "https://www.mediafire.com/file/a"},
		{Text: "MF", URL: "https://mediafire.com/file/b"},
		{Text: "Rapidgator", URL: "https://rapidgator.net/file/c"},
		{Text: "Gofile", URL: "https://gofile.io/d/a"},
		{Text: "Pixeldrain", URL: "https://pixeldrain.com/u/x"},
	}
	first := Extract(records, origin, defaultOptions())
	for i := 0; i < 20; i++ {
		again := Extract(records, origin, defaultOptions())
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %+v vs %+v", i, first, again)
		}
		if first.Hash() != again.Hash() {
			t.Fatalf("run %d hash differs", i)
		}
	}
}

func TestPlanHash_ChangesWithContent(t *testing.T) {
	a := Extract([]LinkRecord{{Text: "Gofile", URL: "https://gofile.io/d/a"}}, origin, defaultOptions())
	b := Extract([]LinkRecord{{Text: "Gofile", URL: "https://gofile.io/d/b"}}, origin, defaultOptions())
	if a.Hash() == b.Hash() {
		t.Fatal("expected different plans to hash differently")
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"mediafire": "Mediafire",
		"1fichier":  "1fichier",
		"":          "",
	}
	for in, want := range cases {
		if got := DisplayName(in); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", in, got, want)
		}
	}
}
