package demo

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/sunabot/internal/core/catalog"
	"github.com/kirillkom/sunabot/internal/core/domain"
)

//go:embed answers.yaml
var embeddedAnswers []byte

const messagePlaceholder = "{{consulta}}"

// linkPlaceholder names a catalog link by label, e.g. {{link:Portal SOL}}.
var linkPlaceholder = regexp.MustCompile(`\{\{link:([^}]+)\}\}`)

type topic struct {
	Triggers []string `yaml:"triggers"`
	Text     string   `yaml:"text"`
}

type categoryAnswers struct {
	Definition string  `yaml:"definition"`
	Topics     []topic `yaml:"topics"`
	Default    string  `yaml:"default"`
}

type answersFile struct {
	Notice      string                     `yaml:"notice"`
	Definitions map[string]string          `yaml:"definitions"`
	Categories  map[string]categoryAnswers `yaml:"categories"`
}

// Provider returns canned specialized answers. It backs predetermined mode,
// the demo mode and the degraded path.
type Provider struct {
	answers           answersFile
	definitionPhrases []string
}

// New loads the embedded answers and resolves their link placeholders
// against c, so canned answers follow catalog overrides.
func New(c *catalog.Catalog) (*Provider, error) {
	return newFromData(c, embeddedAnswers)
}

func newFromData(c *catalog.Catalog, data []byte) (*Provider, error) {
	if c == nil {
		c = catalog.Default()
	}
	var answers answersFile
	if err := yaml.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("decode demo answers: %w", err)
	}

	r := linkResolver{urls: catalogURLs(c)}
	answers.Notice = r.resolve(answers.Notice)
	for name, text := range answers.Definitions {
		answers.Definitions[name] = r.resolve(text)
	}
	for _, category := range domain.Categories() {
		entry, ok := answers.Categories[category.String()]
		if !ok || strings.TrimSpace(entry.Default) == "" {
			return nil, fmt.Errorf("demo answers: category %q has no default answer", category)
		}
	}
	for name, entry := range answers.Categories {
		entry.Definition = r.resolve(entry.Definition)
		entry.Default = r.resolve(entry.Default)
		for i := range entry.Topics {
			entry.Topics[i].Text = r.resolve(entry.Topics[i].Text)
			for j, trigger := range entry.Topics[i].Triggers {
				entry.Topics[i].Triggers[j] = strings.ToLower(trigger)
			}
		}
		answers.Categories[name] = entry
	}
	if len(r.missing) > 0 {
		return nil, fmt.Errorf("demo answers: unknown catalog links %s", strings.Join(r.missing, ", "))
	}
	return &Provider{answers: answers, definitionPhrases: c.DefinitionPhrases()}, nil
}

// catalogURLs maps link labels to urls. The first category in priority
// order wins when a label repeats.
func catalogURLs(c *catalog.Catalog) map[string]string {
	urls := make(map[string]string)
	for _, info := range c.Describe() {
		for _, link := range info.Links {
			if _, ok := urls[link.Label]; !ok {
				urls[link.Label] = link.URL
			}
		}
	}
	return urls
}

type linkResolver struct {
	urls    map[string]string
	missing []string
}

func (r *linkResolver) resolve(text string) string {
	return linkPlaceholder.ReplaceAllStringFunc(text, func(match string) string {
		label := strings.TrimSpace(linkPlaceholder.FindStringSubmatch(match)[1])
		if url, ok := r.urls[label]; ok {
			return url
		}
		r.missing = append(r.missing, label)
		return match
	})
}

// Respond picks the soft-intent definition, then a category definition for
// definitional questions, then the first sub-topic whose trigger appears in
// the message, then the category default.
func (p *Provider) Respond(message string, intent domain.Intent) string {
	if intent.Soft != domain.SoftIntentNone && intent.Category() == intent.Soft.Category() {
		if text, ok := p.answers.Definitions[string(intent.Soft)]; ok {
			return text
		}
	}

	lower := strings.ToLower(message)
	entry := p.categoryAnswers(intent.Category())
	if entry.Definition != "" && p.isDefinition(lower) {
		return entry.Definition
	}
	for _, t := range entry.Topics {
		for _, trigger := range t.Triggers {
			if strings.Contains(lower, trigger) {
				return t.Text
			}
		}
	}
	return entry.Default
}

// Demo echoes the message escaped, since response text is rendered as HTML.
func (p *Provider) Demo(message string) string {
	return strings.ReplaceAll(p.answers.Notice, messagePlaceholder, html.EscapeString(strings.TrimSpace(message)))
}

func (p *Provider) categoryAnswers(category domain.Category) categoryAnswers {
	if entry, ok := p.answers.Categories[category.String()]; ok {
		return entry
	}
	return p.answers.Categories[domain.CategoryOtros.String()]
}

func (p *Provider) isDefinition(lower string) bool {
	for _, phrase := range p.definitionPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
