package pipeline

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"text/template"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

const defaultPromptName = "extract_recipes.tmpl"

// PromptData is what the extraction template can reference.
type PromptData struct {
	Caption    string
	Transcript string
}

type PromptTemplate struct {
	tmpl *template.Template
}

func DefaultPromptTemplate() *PromptTemplate {
	t := template.Must(template.New(defaultPromptName).Option("missingkey=error").ParseFS(promptFS, "prompts/"+defaultPromptName))
	return &PromptTemplate{tmpl: t}
}

// LoadPromptTemplate reads a template from path, or returns the built-in one
// when path is empty.
func LoadPromptTemplate(path string) (*PromptTemplate, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPromptTemplate(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt template: %w", err)
	}
	return ParsePromptTemplate(path, string(b))
}

func ParsePromptTemplate(name, text string) (*PromptTemplate, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
	}
	return &PromptTemplate{tmpl: t}, nil
}

func (p *PromptTemplate) Render(d PromptData) (string, error) {
	var b strings.Builder
	if err := p.tmpl.Execute(&b, d); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return strings.TrimSpace(b.String()), nil
}
