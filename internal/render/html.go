package render

import (
	"encoding/json"
	"html/template"
	"io"

	"github.com/JohnDeved/surefine-cli/internal/card"
	"github.com/JohnDeved/surefine-cli/internal/mirror"
)

// JSON writes a card as an indented JSON document.
func JSON(w io.Writer, c card.Card) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

var pageTemplate = template.Must(template.New("card").Funcs(template.FuncMap{
	"providerName": mirror.DisplayName,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body{background:#111;margin:0;padding:20px;font-family:system-ui,-apple-system,Segoe UI,Roboto,sans-serif}
.card{background:#1c1c1c;color:#eee;border-radius:8px;padding:15px;border:2px solid #444;max-width:1200px;margin:0 auto}
.row{display:flex;flex-wrap:wrap;gap:20px;align-items:flex-start}
.video{flex:1 1 60%;min-width:320px}
.side{flex:1 1 40%;min-width:280px;display:flex;flex-direction:column;gap:12px}
table{width:100%;border-collapse:collapse;background:#2a2a2a;border-radius:6px;overflow:hidden;font-size:14px;color:#ddd}
th{background:#333;color:#fff;text-align:left;padding:8px 10px}
td{padding:6px 10px;border-top:1px solid #444}
.host{font-weight:700;margin-top:6px}
.mirror{display:block;color:#4da6ff;font-weight:600;text-decoration:none}
.mirror.extra{color:#8fbfff;font-weight:400}
summary{margin-top:10px;padding:6px 10px;background:#444;color:#fff;border-radius:4px;cursor:pointer;display:inline-block}
.description{margin-top:18px;background:#202020;padding:12px;border-radius:6px}
.shots{display:grid;grid-template-columns:repeat(auto-fill,minmax(280px,1fr));gap:10px}
.shots img{width:100%;border-radius:6px}
.links a{margin-right:8px;padding:6px 10px;background:#444;color:#fff;text-decoration:none;border-radius:4px;font-size:14px}
.yt-search{display:inline-block;margin-top:6px;padding:8px 12px;background:#c4302b;color:#fff;font-weight:bold;text-decoration:none;border-radius:5px}
iframe{width:100%;max-width:640px;aspect-ratio:16/9;border:0}
</style>
</head>
<body>
<div class="card" data-hash="{{.Hash}}">
<h2>{{.Title}}</h2>
<div class="row">
  <div class="video">
  {{- with .Trailer}}
    {{- if .Fallback}}
    <a class="yt-search" href="{{.SearchURL}}" target="_blank">Search YouTube for {{$.Title}}</a>
    {{- else}}
    <iframe src="{{.EmbedURL}}" allow="accelerometer; autoplay; clipboard-write; encrypted-media; gyroscope; picture-in-picture" allowfullscreen></iframe>
    {{- end}}
  {{- end}}
  </div>
  <div class="side">
    <table>
      <tr><th colspan="2">Game info</th></tr>
      <tr><td>Release</td><td>{{.Metadata.Release}}</td></tr>
      <tr><td>Version</td><td>{{.Metadata.Version}}</td></tr>
      <tr><td>Scene group</td><td>{{.Metadata.SceneGroup}}</td></tr>
    </table>
    {{- if .Requirements}}
    <table>
      <tr><th colspan="2">System requirements</th></tr>
      {{- range .Requirements}}
      <tr><td>{{.Key}}</td><td>{{.Value}}</td></tr>
      {{- end}}
    </table>
    {{- end}}
    {{- if .Mirrors.Len}}
    <div class="downloads">
      <h3>Download mirrors</h3>
      {{- range .Mirrors.Primary}}
      <div class="host">{{providerName .Provider}}</div>
      <div>{{range .Items}}<a class="mirror" href="{{.URL}}" target="_blank">{{if .Label}}{{.Label}}{{else}}{{.URL}}{{end}}</a>{{end}}</div>
      {{- end}}
      {{- with .Mirrors.MergedOverflow}}
      <details>
        <summary>Show all mirrors</summary>
        {{- range .}}
        <div class="host">{{providerName .Provider}}</div>
        <div>{{range .Items}}<a class="mirror extra" href="{{.URL}}" target="_blank">{{if .Label}}{{.Label}}{{else}}{{.URL}}{{end}}</a>{{end}}</div>
        {{- end}}
      </details>
      {{- end}}
    </div>
    {{- end}}
  </div>
</div>
<div class="description">{{.Description}}</div>
{{- if .Screenshots}}
<div style="margin-top:18px">
  <h3>Screenshots</h3>
  <div class="shots">{{range .Screenshots}}<img src="{{.}}" loading="lazy" alt="">{{end}}</div>
</div>
{{- end}}
<div class="links" style="margin-top:12px">{{range .SearchLinks}}<a href="{{.URL}}" target="_blank">{{.Name}}</a>{{end}}</div>
</div>
</body>
</html>
`))

type htmlView struct {
	card.Card
	Hash string
}

// HTML writes a standalone info card page. Overflow mirrors sit behind a
// single collapsed toggle.
func HTML(w io.Writer, c card.Card) error {
	return pageTemplate.Execute(w, htmlView{Card: c, Hash: c.Hash()})
}
