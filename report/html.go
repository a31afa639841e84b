package report

import (
	"bytes"
	"html/template"
)

// Document is the renderable form of a report: a cover plus ordered
// sections, each with ordered text or image blocks.
type Document struct {
	CoverTitle    string
	CoverContent  string
	CoverImageURL string
	GeneratedAt   string
	Sections      []Section
}

// Section is one numbered heading of the document.
type Section struct {
	Code     string
	Title    string
	Level    string
	Contents []Content
}

// Content is one block inside a section.
type Content struct {
	Type     string
	Text     string
	ImageURL string
}

var documentTemplate = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.CoverTitle}}</title>
<style>
body { font-family: "Helvetica Neue", Arial, sans-serif; margin: 2.5cm; color: #1a1a1a; }
h1 { font-size: 26px; border-bottom: 2px solid #14532d; padding-bottom: 8px; }
h2 { font-size: 18px; margin-top: 28px; }
h3 { font-size: 15px; }
p { line-height: 1.5; }
img { max-width: 100%; }
.cover { page-break-after: always; }
.meta { color: #666; font-size: 12px; }
</style>
</head>
<body>
<div class="cover">
<h1>{{.CoverTitle}}</h1>
{{if .CoverImageURL}}<img src="{{.CoverImageURL}}" alt="">{{end}}
{{if .CoverContent}}<p>{{.CoverContent}}</p>{{end}}
<p class="meta">Generated {{.GeneratedAt}}</p>
</div>
{{range .Sections}}
{{if eq .Level "H1"}}<h1>{{if .Code}}{{.Code}} {{end}}{{.Title}}</h1>{{else if eq .Level "H3"}}<h3>{{if .Code}}{{.Code}} {{end}}{{.Title}}</h3>{{else}}<h2>{{if .Code}}{{.Code}} {{end}}{{.Title}}</h2>{{end}}
{{range .Contents}}
{{if eq .Type "IMAGE"}}{{if .ImageURL}}<img src="{{.ImageURL}}" alt="">{{end}}{{else}}<p>{{.Text}}</p>{{end}}
{{end}}
{{end}}
</body>
</html>`))

// BuildHTML renders a document to the HTML Gotenberg converts to PDF.
func BuildHTML(doc Document) (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}
