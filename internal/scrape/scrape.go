// Package scrape reads a game page into the plain data the info card is
// built from: title, rendered text, content links, paragraphs and images.
package scrape

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/JohnDeved/surefine-cli/internal/mirror"
)

// ContentSelector matches the region of a post that holds the download links.
// The first match wins; the body is used when nothing matches.
const ContentSelector = "article, .post, .entry-content, .post-content"

// Image is an <img> element with its source resolved against the page URL.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// Page is the scraped content of one game page.
type Page struct {
	URL         string
	Origin      string
	Title       string
	Text        string
	Links       []mirror.LinkRecord
	Paragraphs  []string
	Images      []Image
	ContentHash string
}

// Parse reads an HTML document fetched from pageURL.
func Parse(r io.Reader, pageURL string) (*Page, error) {
	base, err := url.Parse(pageURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid page URL %q", pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	page := &Page{
		URL:    base.String(),
		Origin: base.Scheme + "://" + base.Host,
	}

	if h1 := doc.Find("h1").First(); h1.Length() > 0 {
		page.Title = strings.TrimSpace(InnerText(h1.Get(0)))
	}
	if body := doc.Find("body").First(); body.Length() > 0 {
		page.Text = InnerText(body.Get(0))
	}

	content := doc.Find(ContentSelector).First()
	if content.Length() == 0 {
		content = doc.Find("body").First()
	}
	if outer, err := goquery.OuterHtml(content); err == nil {
		sum := sha256.Sum256([]byte(outer))
		page.ContentHash = hex.EncodeToString(sum[:])
	}

	content.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		abs, ok := resolveLink(base, href)
		if !ok {
			return
		}
		page.Links = append(page.Links, mirror.LinkRecord{
			Text: strings.Join(strings.Fields(s.Text()), " "),
			URL:  abs,
		})
	})

	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(InnerText(s.Get(0))); text != "" {
			page.Paragraphs = append(page.Paragraphs, text)
		}
	})

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := imageSource(s)
		if src == "" {
			return
		}
		abs, ok := resolveLink(base, src)
		if !ok {
			return
		}
		alt, _ := s.Attr("alt")
		page.Images = append(page.Images, Image{Src: abs, Alt: strings.TrimSpace(alt)})
	})

	return page, nil
}

// imageSource prefers lazy-load attributes when src is a placeholder.
func imageSource(s *goquery.Selection) string {
	src := strings.TrimSpace(s.AttrOr("src", ""))
	if src != "" && !strings.HasPrefix(src, "data:") {
		return src
	}
	for _, attr := range []string{"data-src", "data-lazy-src", "data-original"} {
		if v := strings.TrimSpace(s.AttrOr(attr, "")); v != "" {
			return v
		}
	}
	return ""
}

func resolveLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	lower := strings.ToLower(href)
	for _, scheme := range []string{"javascript:", "mailto:", "data:", "tel:"} {
		if strings.HasPrefix(lower, scheme) {
			return "", false
		}
	}
	ref, err := url.Parse(href)
	if err != nil {
		// Keep the raw href; the mirror extractor drops what it cannot parse.
		return href, true
	}
	return base.ResolveReference(ref).String(), true
}

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"dd": true, "div": true, "dl": true, "dt": true, "fieldset": true,
	"figcaption": true, "figure": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "table": true,
	"tr": true, "ul": true,
}

var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true, "head": true,
}

// InnerText renders a node's text roughly the way a browser's innerText
// does: block elements start new lines, whitespace inside text collapses
// and hidden elements are skipped.
func InnerText(n *html.Node) string {
	var sb strings.Builder
	space := func() {
		out := sb.String()
		if out == "" || strings.ContainsRune(" \t\n", rune(out[len(out)-1])) {
			return
		}
		sb.WriteString(" ")
	}
	var walk func(*html.Node, bool)
	walk = func(n *html.Node, pre bool) {
		switch n.Type {
		case html.TextNode:
			if pre {
				sb.WriteString(n.Data)
				return
			}
			text := strings.Join(strings.Fields(n.Data), " ")
			if text == "" {
				if n.Data != "" {
					space()
				}
				return
			}
			if startsWithSpace(n.Data) {
				space()
			}
			sb.WriteString(text)
			if endsWithSpace(n.Data) {
				space()
			}
			return
		case html.ElementNode:
			if skipTags[n.Data] {
				return
			}
			switch n.Data {
			case "br":
				sb.WriteString("\n")
				return
			case "td", "th":
				defer sb.WriteString("\t")
			}
			if blockTags[n.Data] {
				sb.WriteString("\n")
				defer sb.WriteString("\n")
			}
			pre = pre || n.Data == "pre"
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child, pre)
		}
	}
	walk(n, false)
	return tidyLines(sb.String())
}

func startsWithSpace(s string) bool {
	return s != "" && strings.ContainsRune(" \t\n\r\f", rune(s[0]))
}

func endsWithSpace(s string) bool {
	return s != "" && strings.ContainsRune(" \t\n\r\f", rune(s[len(s)-1]))
}

// tidyLines trims each line and collapses runs of blank lines.
func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
