// Package card assembles the info card for a scraped game page.
package card

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/JohnDeved/surefine-cli/internal/mirror"
	"github.com/JohnDeved/surefine-cli/internal/scrape"
	"github.com/JohnDeved/surefine-cli/internal/trailer"
)

// Unknown is shown for metadata the page does not state.
const Unknown = "Unknown"

// NoDescription is shown when no paragraph qualifies as a description.
const NoDescription = "No description available."

// Metadata holds the release facts listed on a game page.
type Metadata struct {
	Release    string `json:"release"`
	Version    string `json:"version"`
	SceneGroup string `json:"scene_group"`
}

// Requirement is one "Key: Value" line of the system requirements block.
type Requirement struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Link is a named external link.
type Link struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Card is everything rendered for one game page.
type Card struct {
	Title        string          `json:"title"`
	PageURL      string          `json:"page_url"`
	Metadata     Metadata        `json:"metadata"`
	Requirements []Requirement   `json:"requirements"`
	Description  string          `json:"description"`
	Screenshots  []string        `json:"screenshots"`
	SearchLinks  []Link          `json:"search_links"`
	Mirrors      mirror.Plan     `json:"mirrors"`
	MirrorStats  mirror.Stats    `json:"mirror_stats"`
	Trailer      *trailer.Result `json:"trailer,omitempty"`
}

// Options controls card assembly.
type Options struct {
	StripWords      []string
	Mirrors         mirror.Options
	ScreenshotLimit int
}

// Build assembles a card from a scraped page. The trailer is looked up
// separately and attached by the caller.
func Build(page *scrape.Page, opts Options) Card {
	title := CleanTitle(page.Title, opts.StripWords)
	plan, stats := mirror.ExtractWithStats(page.Links, page.Origin, opts.Mirrors)
	return Card{
		Title:        title,
		PageURL:      page.URL,
		Metadata:     ParseMetadata(page.Text),
		Requirements: ParseRequirements(page.Text),
		Description:  PickDescription(page.Paragraphs),
		Screenshots:  PickScreenshots(page.Images, title, opts.ScreenshotLimit),
		SearchLinks:  SearchLinks(title),
		Mirrors:      plan,
		MirrorStats:  stats,
	}
}

// Hash returns a digest of the rendered content, used to skip redraws.
func (c Card) Hash() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

var (
	parenRe        = regexp.MustCompile(`\(.*?\)`)
	freeDownloadRe = regexp.MustCompile(`(?i)[-|–—]\s*free\s*download.*$`)
)

// CleanTitle strips release noise such as "(v1.2)" and "Free Download"
// from a page title. Runs of whitespace left behind by the removals are
// collapsed to single spaces.
func CleanTitle(raw string, stripWords []string) string {
	t := parenRe.ReplaceAllString(raw, "")
	for _, word := range stripWords {
		if word == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(word))
		t = re.ReplaceAllString(t, "")
	}
	t = freeDownloadRe.ReplaceAllString(t, "")
	return strings.Join(strings.Fields(t), " ")
}

var (
	releaseRe = regexp.MustCompile(`(?i)Release Date:\s*([^\n]+)`)
	versionRe = regexp.MustCompile(`(?i)Game Version:\s*([^\n]+)`)
	sceneRe   = regexp.MustCompile(`(?i)(Scene Group|Game Source):\s*([^\n]+)`)
)

// ParseMetadata reads release facts from the page text.
func ParseMetadata(text string) Metadata {
	get := func(re *regexp.Regexp, group int) string {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return Unknown
		}
		if v := strings.TrimSpace(m[group]); v != "" {
			return v
		}
		return Unknown
	}
	return Metadata{
		Release:    get(releaseRe, 1),
		Version:    get(versionRe, 1),
		SceneGroup: get(sceneRe, 2),
	}
}

var requirementsRe = regexp.MustCompile(`(?i)System requirements([\s\S]*?)(Support the game|Tags|Share on|Screenshots|Download)`)

// ParseRequirements extracts the "Key: Value" lines of the system
// requirements block. It returns nil when the page has no such block.
func ParseRequirements(text string) []Requirement {
	m := requirementsRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	var reqs []Requirement
	for _, line := range strings.Split(m[1], "\n") {
		line = strings.TrimSpace(line)
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		reqs = append(reqs, Requirement{
			Key:   strings.TrimSpace(key),
			Value: strings.TrimSpace(value),
		})
	}
	return reqs
}

var notDescriptionRe = regexp.MustCompile(`(?i)downloads?|requirements?|install|password|changelog`)

// PickDescription returns the longest paragraph that reads like prose
// about the game rather than download instructions.
func PickDescription(paragraphs []string) string {
	var picks []string
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if utf8.RuneCountInString(p) <= 80 || notDescriptionRe.MatchString(p) {
			continue
		}
		picks = append(picks, p)
	}
	if len(picks) == 0 {
		return NoDescription
	}
	sort.SliceStable(picks, func(i, j int) bool {
		return utf8.RuneCountInString(picks[i]) > utf8.RuneCountInString(picks[j])
	})
	return picks[0]
}

var (
	contentImageRe = regexp.MustCompile(`uploads|wp-content|images|content`)
	screenshotAlt  = regexp.MustCompile(`screenshot|screen|image`)
	slugRe         = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slug lowercases a title and joins its alphanumeric runs with dashes.
func Slug(title string) string {
	return slugRe.ReplaceAllString(strings.ToLower(title), "-")
}

// Folder returns a directory name for files saved from a title's page.
func Folder(title string) string {
	if f := strings.Trim(Slug(title), "-"); f != "" {
		return f
	}
	return "untitled"
}

// PickScreenshots selects content images that belong to the game. When
// none are recognisable it falls back to the first limit content images.
func PickScreenshots(images []scrape.Image, title string, limit int) []string {
	if limit <= 0 {
		limit = 6
	}
	slug := Slug(title)

	var inContent []string
	var shots []string
	seen := map[string]bool{}
	for _, img := range images {
		src := strings.ToLower(img.Src)
		alt := strings.ToLower(img.Alt)
		if !contentImageRe.MatchString(src) || seen[img.Src] {
			continue
		}
		seen[img.Src] = true
		inContent = append(inContent, img.Src)

		matches := screenshotAlt.MatchString(alt)
		if slug != "" && slug != "-" {
			matches = matches || strings.Contains(src, slug) || strings.Contains(alt, slug)
		}
		if matches {
			shots = append(shots, img.Src)
		}
	}
	if len(shots) > 0 {
		return shots
	}
	return inContent[:min(limit, len(inContent))]
}

// SearchLinks returns review and store search links for a title.
func SearchLinks(title string) []Link {
	return []Link{
		{Name: "Metacritic", URL: "https://www.metacritic.com/search/" + url.PathEscape(title) + "/results"},
		{Name: "SteamDB", URL: "https://steamdb.info/search/?a=app&q=" + url.QueryEscape(title)},
		{Name: "YouTube", URL: trailer.SearchURL(title)},
	}
}
