package scrape

import (
	"strings"
	"testing"
)

const gamePage = `
<html><head><title>ignored</title><style>.x{}</style></head>
<body>
<nav><a href="https://steamunderground.net/">Home</a> <a href="https://gofile.io/d/nav">Gofile nav</a></nav>
<h1>Hollow Knight (v1.5) PC Game Free Download</h1>
<article class="post">
  <p>Release Date: 24 Feb, 2017<br>Game Version: v1.5.78<br>Scene Group: GOG</p>
  <p>Forge your own path in Hollow Knight! An epic action adventure through a vast ruined kingdom of insects and heroes.</p>
  <img src="data:image/gif;base64,R0lGOD" data-src="/wp-content/uploads/hollow-knight-1.jpg" alt="Hollow Knight screenshot">
  <img src="https://cdn.example.com/ad.png">
  <a href="https://www.mediafire.com/file/abc">  Mediafire
     Mirror </a>
  <a href="/go/torrent/123">Torrent</a>
  <a href="#comments">Comments</a>
  <a href="javascript:void(0)">Share</a>
  <script>var gofile = "https://gofile.io/d/script";</script>
</article>
</body></html>`

func TestParse_GamePage(t *testing.T) {
	page, err := Parse(strings.NewReader(gamePage), "https://steamunderground.net/hollow-knight/")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if page.Origin != "https://steamunderground.net" {
		t.Fatalf("unexpected origin %q", page.Origin)
	}
	if page.Title != "Hollow Knight (v1.5) PC Game Free Download" {
		t.Fatalf("unexpected title %q", page.Title)
	}

	if len(page.Links) != 2 {
		t.Fatalf("expected 2 content links, got %d: %+v", len(page.Links), page.Links)
	}
	if page.Links[0].Text != "Mediafire Mirror" || page.Links[0].URL != "https://www.mediafire.com/file/abc" {
		t.Fatalf("unexpected first link: %+v", page.Links[0])
	}
	if page.Links[1].URL != "https://steamunderground.net/go/torrent/123" {
		t.Fatalf("expected relative link to be resolved, got %q", page.Links[1].URL)
	}

	if len(page.Images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(page.Images))
	}
	if page.Images[0].Src != "https://steamunderground.net/wp-content/uploads/hollow-knight-1.jpg" {
		t.Fatalf("expected lazy source to be used, got %q", page.Images[0].Src)
	}

	if len(page.Paragraphs) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(page.Paragraphs))
	}
	if page.ContentHash == "" {
		t.Fatal("expected content hash")
	}
}

func TestParse_TextKeepsLineStructure(t *testing.T) {
	page, err := Parse(strings.NewReader(gamePage), "https://steamunderground.net/hollow-knight/")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	for _, line := range []string{"Release Date: 24 Feb, 2017", "Game Version: v1.5.78", "Scene Group: GOG"} {
		if !strings.Contains(page.Text, line+"\n") {
			t.Fatalf("expected %q on its own line in:\n%s", line, page.Text)
		}
	}
	if strings.Contains(page.Text, "var gofile") || strings.Contains(page.Text, ".x{}") {
		t.Fatalf("script or style leaked into text:\n%s", page.Text)
	}
}

func TestParse_FallsBackToBody(t *testing.T) {
	html := `<html><body><h1>Game</h1><a href="https://gofile.io/d/x">Gofile</a></body></html>`
	page, err := Parse(strings.NewReader(html), "https://steamunderground.net/game/")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(page.Links) != 1 {
		t.Fatalf("expected body links when no content region exists, got %d", len(page.Links))
	}
}

func TestParse_ContentHashTracksContentRegion(t *testing.T) {
	a, _ := Parse(strings.NewReader(`<body><nav>1</nav><article><a href="https://gofile.io/d/x">x</a></article></body>`), "https://site.test/")
	b, _ := Parse(strings.NewReader(`<body><nav>2</nav><article><a href="https://gofile.io/d/x">x</a></article></body>`), "https://site.test/")
	c, _ := Parse(strings.NewReader(`<body><nav>1</nav><article><a href="https://gofile.io/d/y">y</a></article></body>`), "https://site.test/")
	if a.ContentHash != b.ContentHash {
		t.Fatal("changes outside the content region should not change the hash")
	}
	if a.ContentHash == c.ContentHash {
		t.Fatal("changes inside the content region should change the hash")
	}
}

func TestParse_InvalidPageURL(t *testing.T) {
	if _, err := Parse(strings.NewReader("<html></html>"), "not a url"); err == nil {
		t.Fatal("expected error for relative page URL")
	}
}
