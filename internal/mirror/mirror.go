package mirror

import (
	"math"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"
)

// LinkRecord is a hyperlink scraped from a page's content region.
type LinkRecord struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Mirror is a deduplicated download link assigned to a provider.
type Mirror struct {
	Label string `json:"label"`
	URL   string `json:"url"`
	Host  string `json:"host"` // normalized hostname
}

// Group holds the mirrors of one provider in display order.
type Group struct {
	Provider string   `json:"provider"`
	Items    []Mirror `json:"items"`
}

// Plan is the result of an extraction: groups shown immediately and the
// groups (or group remainders) hidden behind the overflow toggle.
type Plan struct {
	Primary  []Group `json:"primary"`
	Overflow []Group `json:"overflow"`
}

// Options configures provider matching and display caps.
type Options struct {
	HostPriority      []string
	PrimaryHostLimit  int
	LinksPerHostLimit int
}

// Stats counts what happened to the records of one extraction.
type Stats struct {
	Scanned   int `json:"scanned"`
	Matched   int `json:"matched"`
	Internal  int `json:"internal"`
	Malformed int `json:"malformed"`
	Duplicate int `json:"duplicate"`
	Unlisted  int `json:"unlisted"`
}

type candidate struct {
	Mirror
	rank int
}

// Extract turns raw link records into a grouped, priority-ordered plan.
func Extract(records []LinkRecord, siteOrigin string, opts Options) Plan {
	plan, _ := ExtractWithStats(records, siteOrigin, opts)
	return plan
}

// ExtractWithStats is Extract plus per-stage drop counters.
func ExtractWithStats(records []LinkRecord, siteOrigin string, opts Options) (Plan, Stats) {
	var st Stats
	priority := normalizePriority(opts.HostPriority)
	origin := normalizeOrigin(siteOrigin)

	seen := make(map[string]struct{}, len(records))
	var unique []candidate
	for _, rec := range records {
		st.Scanned++
		href := strings.ToLower(strings.TrimSpace(rec.URL))
		text := strings.ToLower(rec.Text)

		if !containsAny(href, priority) && !containsAny(text, priority) {
			continue
		}
		if isInternal(href, text, origin) {
			st.Internal++
			continue
		}
		st.Matched++

		u, err := url.Parse(strings.TrimSpace(rec.URL))
		if err != nil || u.Scheme == "" || u.Hostname() == "" {
			st.Malformed++
			continue
		}
		host := HostKey(u)
		key := host + urlPath(u)
		if _, dup := seen[key]; dup {
			st.Duplicate++
			continue
		}
		seen[key] = struct{}{}

		unique = append(unique, candidate{
			Mirror: Mirror{
				Label: strings.TrimSpace(rec.Text),
				URL:   strings.TrimSpace(rec.URL),
				Host:  host,
			},
			rank: providerRank(host, priority),
		})
	}

	sort.SliceStable(unique, func(i, j int) bool {
		if unique[i].rank != unique[j].rank {
			return unique[i].rank < unique[j].rank
		}
		return utf8.RuneCountInString(unique[i].Label) < utf8.RuneCountInString(unique[j].Label)
	})

	perHost := make(map[string][]Mirror)
	for _, c := range unique {
		key := providerKey(c.Host, priority)
		perHost[key] = append(perHost[key], c.Mirror)
	}

	primaryLimit := max(opts.PrimaryHostLimit, 0)
	perHostLimit := max(opts.LinksPerHostLimit, 0)

	var plan Plan
	placed := 0
	visited := make(map[string]struct{}, len(priority))
	for _, provider := range priority {
		items, ok := perHost[provider]
		if !ok {
			continue
		}
		if _, done := visited[provider]; done {
			continue
		}
		visited[provider] = struct{}{}

		n := min(perHostLimit, len(items))
		head, rest := items[:n:n], items[n:]

		if placed < primaryLimit {
			placed++
			plan.Primary = append(plan.Primary, Group{Provider: provider, Items: head})
			if len(rest) > 0 {
				plan.Overflow = append(plan.Overflow, Group{Provider: provider, Items: rest})
			}
			continue
		}
		plan.Overflow = append(plan.Overflow, Group{Provider: provider, Items: items})
	}

	// Buckets keyed by a raw hostname are never rendered.
	for key, items := range perHost {
		if _, ok := visited[key]; !ok {
			st.Unlisted += len(items)
		}
	}

	return plan, st
}

// HostKey returns the lowercased hostname without a leading "www.".
func HostKey(u *url.URL) string {
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// CanonicalKey returns the deduplication key for a URL, or false when the
// URL is not absolute.
func CanonicalKey(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Hostname() == "" {
		return "", false
	}
	return HostKey(u) + urlPath(u), true
}

// DisplayName capitalizes a provider key for use as a group header.
func DisplayName(provider string) string {
	if provider == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(provider)
	return strings.ToUpper(string(r)) + provider[size:]
}

func urlPath(u *url.URL) string {
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

func normalizePriority(hosts []string) []string {
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		out = append(out, h)
	}
	return out
}

func normalizeOrigin(origin string) string {
	origin = strings.ToLower(strings.TrimSpace(origin))
	if u, err := url.Parse(origin); err == nil && u.Scheme != "" && u.Host != "" {
		return u.Scheme + "://" + u.Host
	}
	return strings.TrimRight(origin, "/")
}

// isInternal reports whether a lowercased href points back at the site,
// except for links whose text promises a torrent.
func isInternal(href, text, origin string) bool {
	if origin == "" || strings.Contains(text, "torrent") {
		return false
	}
	u, err := url.Parse(href)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.HasPrefix(href, origin)
	}
	return u.Scheme+"://"+u.Host == origin
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// providerRank positions a host by its leftmost label. Unknown providers
// rank after all known ones.
func providerRank(host string, priority []string) int {
	label, _, _ := strings.Cut(host, ".")
	for i, p := range priority {
		if p == label {
			return i
		}
	}
	return math.MaxInt
}

func providerKey(host string, priority []string) string {
	for _, p := range priority {
		if strings.Contains(host, p) {
			return p
		}
	}
	return host
}
