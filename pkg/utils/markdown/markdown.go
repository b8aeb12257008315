package markdown

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

// Markdown wraps markdown source code and renders it to sanitized HTML.
type Markdown struct {
	// Source is the markdown source code.
	Source string
	// renderedHTML caches the HTML content rendered from the markdown source.
	renderedHTML *template.HTML
}

var (
	bfRenderer = blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.Safelink | blackfriday.NofollowLinks | blackfriday.HrefTargetBlank | blackfriday.Smartypants | blackfriday.SmartypantsFractions | blackfriday.SmartypantsDashes,
	})
	bfExtensions = blackfriday.NoIntraEmphasis | blackfriday.FencedCode | blackfriday.Autolink | blackfriday.Strikethrough | blackfriday.SpaceHeadings | blackfriday.NoEmptyLineBeforeBlock
	policy       = bluemonday.UGCPolicy()
)

func NewMarkdown(source string) *Markdown {
	return &Markdown{Source: source}
}

// Render converts the Markdown Source into sanitized HTML.
func (m *Markdown) Render() template.HTML {
	if m.renderedHTML != nil {
		return *m.renderedHTML
	}

	unsafe := blackfriday.Run([]byte(m.Source),
		blackfriday.WithRenderer(bfRenderer),
		blackfriday.WithExtensions(bfExtensions),
	)
	safe := policy.SanitizeBytes(unsafe)
	html := template.HTML(bytes.TrimSpace(safe))
	m.renderedHTML = &html
	return html
}

// Recipe lays a recipe out as a heading, a bullet list of ingredients and a
// numbered list of steps. Item text is escaped so it renders literally.
func Recipe(title string, ingredients, instructions []string) *Markdown {
	var b strings.Builder
	if strings.TrimSpace(title) == "" {
		title = "Untitled recipe"
	}
	fmt.Fprintf(&b, "# %s\n\n", escapeInline(title))

	b.WriteString("## Ingredients\n\n")
	for _, ing := range ingredients {
		fmt.Fprintf(&b, "- %s\n", escapeInline(ing))
	}

	b.WriteString("\n## Instructions\n\n")
	for i, step := range instructions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, escapeInline(step))
	}
	return NewMarkdown(b.String())
}

var inlineEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	`*`, `\*`,
	`_`, `\_`,
	`[`, `\[`,
	`]`, `\]`,
	`#`, `\#`,
	`<`, `&lt;`,
	`>`, `&gt;`,
	"\n", " ",
)

func escapeInline(s string) string {
	return inlineEscaper.Replace(strings.TrimSpace(s))
}

// Link is one entry of a LinkList.
type Link struct {
	Text string
	Href string
}

// LinkList lays out a heading followed by a bullet list of links. An empty
// list renders the empty text instead.
func LinkList(heading string, links []Link, empty string) *Markdown {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escapeInline(heading))
	if len(links) == 0 {
		fmt.Fprintf(&b, "%s\n", escapeInline(empty))
		return NewMarkdown(b.String())
	}
	for _, l := range links {
		fmt.Fprintf(&b, "- [%s](%s)\n", escapeInline(l.Text), l.Href)
	}
	return NewMarkdown(b.String())
}
