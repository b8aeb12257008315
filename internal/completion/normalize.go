package completion

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Recipe is the canonical shape every protocol converges on.
type Recipe struct {
	Title        string   `json:"title"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
}

// Normalize decodes model output into recipes. It accepts a bare array or an
// object with a "recipes" array, with or without a Markdown code fence.
// Strings are kept as plain text: entities are decoded and the text is NFC
// normalized, but anything that looks like markup is left for the renderer to
// escape.
func Normalize(content string) ([]Recipe, error) {
	text := trimCodeFence(content)
	if text == "" {
		return nil, &ShapeError{Stage: "normalize recipes", Err: errors.New("empty model output")}
	}

	recipes, err := decodeRecipes(text)
	if err != nil {
		// Models sometimes wrap the JSON in prose; retry on the outermost fragment.
		if frag := extractJSONFragment(text); frag != "" && frag != text {
			if r, ferr := decodeRecipes(frag); ferr == nil {
				recipes, err = r, nil
			}
		}
	}
	if err != nil {
		return nil, &ShapeError{Stage: "normalize recipes", Err: err}
	}

	out := make([]Recipe, 0, len(recipes))
	for _, r := range recipes {
		r = clean(r)
		if r.Title == "" && len(r.Ingredients) == 0 && len(r.Instructions) == 0 {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func decodeRecipes(text string) ([]Recipe, error) {
	trimmed := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(trimmed, "["):
		var list []Recipe
		if err := json.Unmarshal([]byte(trimmed), &list); err != nil {
			return nil, fmt.Errorf("decode recipe array: %w", err)
		}
		return list, nil
	case strings.HasPrefix(trimmed, "{"):
		var wrapped struct {
			Recipes *[]Recipe `json:"recipes"`
		}
		if err := json.Unmarshal([]byte(trimmed), &wrapped); err != nil {
			return nil, fmt.Errorf("decode recipe object: %w", err)
		}
		if wrapped.Recipes == nil {
			return nil, errors.New(`object has no "recipes" array`)
		}
		return *wrapped.Recipes, nil
	default:
		return nil, errors.New("expected a JSON array or object")
	}
}

func clean(r Recipe) Recipe {
	return Recipe{
		Title:        cleanString(r.Title),
		Ingredients:  cleanList(r.Ingredients),
		Instructions: cleanList(r.Instructions),
	}
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = cleanString(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func cleanString(s string) string {
	s = html.UnescapeString(s)
	s = norm.NFC.String(s)
	return strings.TrimSpace(s)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	// Drop the info string (json, JSON, javascript, ...).
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		if info := strings.TrimSpace(trimmed[:idx]); !strings.ContainsAny(info, "[{") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

func extractJSONFragment(text string) string {
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		return strings.TrimSpace(text[start : end+1])
	}
	return ""
}
