// Package templates holds the server-rendered HTML components.
package templates

import (
	"context"
	"html/template"
	"io"

	"github.com/a-h/templ"
)

// Page wraps sanitized body HTML in the site layout. The title is escaped;
// body is written as is and must already be safe.
func Page(title string, body template.HTML) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		head := `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>` + templ.EscapeString(title) + `</title>
</head>
<body>
<main>
`
		if _, err := io.WriteString(w, head); err != nil {
			return err
		}
		if err := templ.Raw(body).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</main>\n</body>\n</html>\n")
		return err
	})
}

// RecipePage renders one recipe document.
func RecipePage(title string, body template.HTML) templ.Component {
	if title == "" {
		title = "Recipe"
	}
	return Page(title, body)
}
