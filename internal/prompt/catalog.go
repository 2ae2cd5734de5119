package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/phrazzld/coursegen/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

var (
	// ErrInvalidCatalog is returned when a catalog cannot be parsed or is
	// missing a template for a content type.
	ErrInvalidCatalog = errors.New("invalid prompt catalog")

	// ErrNoTemplate is returned when no template exists for a content type.
	ErrNoTemplate = errors.New("no prompt template for content type")
)

// Settings are the per-entry values a template may override.
type Settings struct {
	SystemPrompt string   `yaml:"system_prompt"`
	Temperature  *float64 `yaml:"temperature"`
	MaxTokens    *int     `yaml:"max_tokens"`
}

type entry struct {
	Settings `yaml:",inline"`
	Template string `yaml:"template"`
}

type catalogFile struct {
	Version   int              `yaml:"version"`
	Defaults  Settings         `yaml:"defaults"`
	Templates map[string]entry `yaml:"templates"`
}

// TemplateData is the value templates are executed against.
type TemplateData struct {
	Title          string
	ContentType    domain.ContentType
	Specifications domain.Specifications
}

// Prompt is an assembled prompt ready to be turned into a provider request.
type Prompt struct {
	System      string
	User        string
	Temperature *float64
	MaxTokens   *int
}

type compiled struct {
	settings Settings
	tmpl     *template.Template
}

// Catalog holds compiled templates keyed by content type.
type Catalog struct {
	entries map[domain.ContentType]compiled
}

// Default returns the catalog built into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from path, or returns the built-in catalog when path
// is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse compiles a YAML catalog. Every supported content type must have a
// template.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	c := &Catalog{entries: make(map[domain.ContentType]compiled, len(file.Templates))}
	for name, e := range file.Templates {
		ct := domain.ContentType(name)
		if !domain.IsValidContentType(ct) {
			return nil, fmt.Errorf("%w: unknown content type %q", ErrInvalidCatalog, name)
		}
		if strings.TrimSpace(e.Template) == "" {
			return nil, fmt.Errorf("%w: empty template for %q", ErrInvalidCatalog, name)
		}
		tmpl, err := template.New(name).Option("missingkey=zero").Parse(e.Template)
		if err != nil {
			return nil, fmt.Errorf("%w: template %q: %v", ErrInvalidCatalog, name, err)
		}
		c.entries[ct] = compiled{settings: merge(file.Defaults, e.Settings), tmpl: tmpl}
	}

	for _, ct := range []domain.ContentType{
		domain.ContentTypeCourse, domain.ContentTypeExerciseSheet, domain.ContentTypeExam,
	} {
		if _, ok := c.entries[ct]; !ok {
			return nil, fmt.Errorf("%w: %w %q", ErrInvalidCatalog, ErrNoTemplate, ct)
		}
	}
	return c, nil
}

func merge(defaults, override Settings) Settings {
	out := defaults
	if strings.TrimSpace(override.SystemPrompt) != "" {
		out.SystemPrompt = override.SystemPrompt
	}
	if override.Temperature != nil {
		out.Temperature = override.Temperature
	}
	if override.MaxTokens != nil {
		out.MaxTokens = override.MaxTokens
	}
	return out
}

// Build renders the prompt for item. The constraints, if any, are appended
// to the rendered text.
func (c *Catalog) Build(item domain.ContentItem, constraints string) (Prompt, error) {
	e, ok := c.entries[item.ContentType]
	if !ok {
		return Prompt{}, fmt.Errorf("%w %q", ErrNoTemplate, item.ContentType)
	}

	var b strings.Builder
	err := e.tmpl.Execute(&b, TemplateData{
		Title:          item.Title,
		ContentType:    item.ContentType,
		Specifications: item.Specifications,
	})
	if err != nil {
		return Prompt{}, fmt.Errorf("failed to render %s prompt: %w", item.ContentType, err)
	}

	return Prompt{
		System:      strings.TrimSpace(e.settings.SystemPrompt),
		User:        WithConstraints(strings.TrimSpace(b.String()), constraints),
		Temperature: e.settings.Temperature,
		MaxTokens:   e.settings.MaxTokens,
	}, nil
}

// System returns the system prompt configured for a content type.
func (c *Catalog) System(ct domain.ContentType) string {
	return strings.TrimSpace(c.entries[ct].settings.SystemPrompt)
}

// WithConstraints appends extra user constraints to prompt as plain text.
func WithConstraints(prompt, constraints string) string {
	constraints = strings.TrimSpace(constraints)
	if constraints == "" {
		return prompt
	}
	return prompt + "\n\nAdditional constraints:\n" + constraints
}
