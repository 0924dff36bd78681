package assemble

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"dailybrief/internal/domain/entity"
)

// Display formats. The date headline follows the user's timezone. The
// footer shows the generation date in UTC at day granularity: a replay
// of the same inputs on the same day renders byte-identical bodies.
const (
	dateFormat      = "Monday, January 2, 2006"
	publishedFormat = "Jan 2, 2006"
	footerFormat    = "2006-01-02"
)

const emptyStateMessage = "No new reading matched your interests today."

// palette holds the colors and sizing the CSS builder interpolates.
// Values are inlined into a <style> block, so email clients that strip
// external stylesheets still render the digest correctly.
type palette struct {
	Header     string
	Background string
	Text       string
	Muted      string
	Link       string
	Border     string
	MaxWidth   string
	FontFamily string
}

func defaultPalette() palette {
	return palette{
		Header:     "#1d4ed8",
		Background: "#f8fafc",
		Text:       "#1e293b",
		Muted:      "#64748b",
		Link:       "#2563eb",
		Border:     "#e2e8f0",
		MaxWidth:   "640px",
		FontFamily: "system-ui, -apple-system, 'Segoe UI', Roboto, sans-serif",
	}
}

// digestCSS renders the inline stylesheet for the given palette.
func digestCSS(p palette) string {
	return fmt.Sprintf(`<style type="text/css">
  body, table, td, p, a, li {
    -webkit-text-size-adjust: 100%%;
    -ms-text-size-adjust: 100%%;
  }
  body {
    margin: 0 !important;
    padding: 0 !important;
    background-color: %s;
    font-family: %s;
    color: %s;
    line-height: 1.6;
  }
  .container {
    max-width: %s;
    margin: 0 auto;
    background-color: #ffffff;
    border: 1px solid %s;
    border-radius: 8px;
    overflow: hidden;
  }
  .header {
    background-color: %s;
    color: #ffffff;
    padding: 24px;
    text-align: center;
  }
  .header h1 { margin: 0; font-size: 24px; }
  .header .date { margin: 8px 0 0; font-size: 14px; opacity: 0.85; }
  .content { padding: 24px; }
  .group { border-bottom: 1px solid %s; padding: 16px 0; }
  .group:last-child { border-bottom: none; }
  .group h2 { margin: 0 0 4px; font-size: 18px; }
  .group h2 a { color: %s; text-decoration: none; }
  .meta { margin: 0 0 8px; font-size: 12px; color: %s; }
  .summary { margin: 0 0 8px; font-size: 14px; }
  .key-points { margin: 0 0 8px; padding-left: 20px; font-size: 14px; }
  .topics { margin: 0; }
  .topic {
    display: inline-block;
    background-color: %s;
    border-radius: 10px;
    padding: 2px 10px;
    margin: 0 4px 4px 0;
    font-size: 11px;
    color: %s;
  }
  .related-label { margin: 8px 0 4px; font-size: 12px; color: %s; text-transform: uppercase; }
  .related { margin: 0; padding-left: 20px; font-size: 13px; }
  .related a { color: %s; }
  .empty { text-align: center; color: %s; padding: 32px 0; }
  .footer { padding: 16px 24px; font-size: 11px; color: %s; text-align: center; }
</style>`,
		p.Background, p.FontFamily, p.Text,
		p.MaxWidth, p.Border,
		p.Header,
		p.Border,
		p.Link,
		p.Muted,
		p.Background, p.Muted,
		p.Muted,
		p.Link,
		p.Muted,
		p.Muted,
	)
}

const digestTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Daily Brief - {{.Date}}</title>
{{.CSS}}
</head>
<body>
<table role="presentation" cellspacing="0" cellpadding="0" border="0" width="100%">
<tr><td align="center">
<div class="container">
  <div class="header">
    <h1>Daily Brief</h1>
    <p class="date">{{.Date}}</p>
  </div>
  <div class="content">
{{- if not .Groups}}
    <p class="empty">{{.Empty}}</p>
{{- end}}
{{- range .Groups}}
    <div class="group">
      <h2><a href="{{.Primary.URL}}">{{.Primary.Title}}</a></h2>
      {{- if .Primary.Meta}}
      <p class="meta">{{.Primary.Meta}}</p>
      {{- end}}
      {{- if .Primary.Summary}}
      <p class="summary">{{.Primary.Summary}}</p>
      {{- end}}
      {{- if .Primary.KeyPoints}}
      <ul class="key-points">
        {{- range .Primary.KeyPoints}}
        <li>{{.}}</li>
        {{- end}}
      </ul>
      {{- end}}
      {{- if .Topics}}
      <p class="topics">{{range .Topics}}<span class="topic">{{.}}</span>{{end}}</p>
      {{- end}}
      {{- if .Related}}
      <p class="related-label">Related coverage</p>
      <ul class="related">
        {{- range .Related}}
        <li><a href="{{.URL}}">{{.Title}}</a>{{if .Meta}} <span class="meta">{{.Meta}}</span>{{end}}</li>
        {{- end}}
      </ul>
      {{- end}}
    </div>
{{- end}}
  </div>
  <div class="footer">
    <p>Generated on {{.GeneratedAt}}</p>
  </div>
</div>
</td></tr>
</table>
</body>
</html>
`

// renderer holds the parsed template and prebuilt stylesheet.
type renderer struct {
	tmpl *template.Template
	css  template.HTML
}

func newRenderer(p palette) *renderer {
	return &renderer{
		tmpl: template.Must(template.New("digest").Parse(digestTemplate)),
		css:  template.HTML(digestCSS(p)),
	}
}

type digestView struct {
	Date        string
	GeneratedAt string
	Empty       string
	Groups      []groupView
	CSS         template.HTML
}

type groupView struct {
	Primary articleView
	Related []articleView
	Topics  []string
}

type articleView struct {
	Title     string
	URL       string
	Meta      string
	Summary   string
	KeyPoints []string
}

// renderHTML renders the digest body. local carries the user-timezone
// instant used for the date headline.
func (r *renderer) renderHTML(groups []entity.ArticleGroup, local, generatedAt time.Time) (string, error) {
	view := digestView{
		Date:        local.Format(dateFormat),
		GeneratedAt: generatedAt.UTC().Format(footerFormat),
		Empty:       emptyStateMessage,
		Groups:      buildGroupViews(groups, local.Location()),
		CSS:         r.css,
	}

	var buf strings.Builder
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// renderText renders the plain-text alternative to the HTML body.
func (r *renderer) renderText(groups []entity.ArticleGroup, local, generatedAt time.Time) string {
	views := buildGroupViews(groups, local.Location())

	var b strings.Builder
	b.WriteString("DAILY BRIEF\n")
	b.WriteString(local.Format(dateFormat))
	b.WriteString("\n\n")

	if len(views) == 0 {
		b.WriteString(emptyStateMessage)
		b.WriteString("\n")
	}
	for i, g := range views {
		fmt.Fprintf(&b, "%d. %s\n", i+1, g.Primary.Title)
		fmt.Fprintf(&b, "   %s\n", g.Primary.URL)
		if g.Primary.Meta != "" {
			fmt.Fprintf(&b, "   %s\n", g.Primary.Meta)
		}
		if g.Primary.Summary != "" {
			fmt.Fprintf(&b, "   %s\n", g.Primary.Summary)
		}
		for _, kp := range g.Primary.KeyPoints {
			fmt.Fprintf(&b, "   * %s\n", kp)
		}
		if len(g.Topics) > 0 {
			fmt.Fprintf(&b, "   Topics: %s\n", strings.Join(g.Topics, ", "))
		}
		if len(g.Related) > 0 {
			b.WriteString("   Related coverage:\n")
			for _, rel := range g.Related {
				fmt.Fprintf(&b, "   - %s (%s)\n", rel.Title, rel.URL)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("--\nGenerated on ")
	b.WriteString(generatedAt.UTC().Format(footerFormat))
	b.WriteString("\n")
	return b.String()
}

// buildGroupViews flattens ordered groups into template values. The
// first member is the primary by construction; the rest render as
// related links.
func buildGroupViews(groups []entity.ArticleGroup, loc *time.Location) []groupView {
	views := make([]groupView, 0, len(groups))
	for _, g := range groups {
		gv := groupView{
			Primary: buildArticleView(g.Primary, loc),
			Topics:  g.AggregatedTopics,
		}
		for _, m := range g.Members {
			if m.URL == g.Primary.URL {
				continue
			}
			gv.Related = append(gv.Related, buildArticleView(m, loc))
		}
		views = append(views, gv)
	}
	return views
}

func buildArticleView(a entity.Article, loc *time.Location) articleView {
	var meta []string
	if a.Author != "" {
		meta = append(meta, a.Author)
	}
	if !a.PublishedAt.IsZero() {
		meta = append(meta, a.PublishedAt.In(loc).Format(publishedFormat))
	}
	return articleView{
		Title:     a.Title,
		URL:       a.URL,
		Meta:      strings.Join(meta, " · "),
		Summary:   a.Summary,
		KeyPoints: summaryKeyPoints(a),
	}
}

// summaryKeyPoints reads the key-point annotation the summarize stage
// leaves in article metadata. Entries arriving through a JSON round
// trip decode as []any, so both shapes are accepted.
func summaryKeyPoints(a entity.Article) []string {
	v, ok := a.Metadata[entity.MetaSummaryKeyPoints]
	if !ok {
		return nil
	}
	switch pts := v.(type) {
	case []string:
		return pts
	case []any:
		out := make([]string, 0, len(pts))
		for _, p := range pts {
			if s, ok := p.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
