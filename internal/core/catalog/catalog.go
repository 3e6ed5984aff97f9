package catalog

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/sunabot/internal/core/domain"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

type categoryFile struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description"`
	Topic       string                 `yaml:"topic"`
	Keywords    []string               `yaml:"keywords"`
	Links       []domain.ReferenceLink `yaml:"links"`
}

type catalogFile struct {
	Categories        []categoryFile `yaml:"categories"`
	RelevanceKeywords []string       `yaml:"relevance_keywords"`
	DefinitionPhrases []string       `yaml:"definition_phrases"`
	Renta4taPhrases   []string       `yaml:"renta_4ta_phrases"`
	Renta5taPhrases   []string       `yaml:"renta_5ta_phrases"`
}

// Catalog holds the keyword tables and reference links of every category.
// It is immutable once loaded; accessors return copies.
type Catalog struct {
	entries           []domain.CategoryInfo
	byName            map[domain.Category]int
	relevanceKeywords []string
	definitionPhrases []string
	renta4taPhrases   []string
	renta5taPhrases   []string
}

var loadDefault = sync.OnceValues(func() (*Catalog, error) {
	return Parse(embeddedCatalog)
})

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	c, err := loadDefault()
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// LoadFile reads a catalog from disk, replacing the embedded tables.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var raw catalogFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{
		byName:            make(map[domain.Category]int, len(raw.Categories)),
		relevanceKeywords: lowerAll(raw.RelevanceKeywords),
		definitionPhrases: lowerAll(raw.DefinitionPhrases),
		renta4taPhrases:   lowerAll(raw.Renta4taPhrases),
		renta5taPhrases:   lowerAll(raw.Renta5taPhrases),
	}

	for _, item := range raw.Categories {
		name := domain.Category(item.Name)
		if !name.Valid() {
			return nil, fmt.Errorf("catalog: unknown category %q", item.Name)
		}
		if _, dup := c.byName[name]; dup {
			return nil, fmt.Errorf("catalog: duplicate category %q", item.Name)
		}
		keywords := lowerAll(item.Keywords)
		if name != domain.CategoryOtros && len(keywords) == 0 {
			return nil, fmt.Errorf("catalog: category %q has no keywords", item.Name)
		}
		if len(item.Links) == 0 {
			return nil, fmt.Errorf("catalog: category %q has no links", item.Name)
		}
		for _, link := range item.Links {
			if err := validateLink(link); err != nil {
				return nil, fmt.Errorf("catalog: category %q: %w", item.Name, err)
			}
		}
		topic := strings.TrimSpace(item.Topic)
		if topic == "" {
			topic = item.Name
		}

		c.byName[name] = len(c.entries)
		c.entries = append(c.entries, domain.CategoryInfo{
			Name:        name,
			Description: strings.TrimSpace(item.Description),
			Topic:       topic,
			Keywords:    keywords,
			Links:       append([]domain.ReferenceLink(nil), item.Links...),
		})
	}

	for _, category := range domain.Categories() {
		if _, ok := c.byName[category]; !ok {
			return nil, fmt.Errorf("catalog: missing category %q", category)
		}
	}
	if len(c.relevanceKeywords) == 0 {
		return nil, fmt.Errorf("catalog: relevance_keywords is empty")
	}
	if len(c.definitionPhrases) == 0 {
		return nil, fmt.Errorf("catalog: definition_phrases is empty")
	}
	return c, nil
}

func validateLink(link domain.ReferenceLink) error {
	if strings.TrimSpace(link.Label) == "" {
		return fmt.Errorf("link %q has no label", link.URL)
	}
	parsed, err := url.Parse(link.URL)
	if err != nil {
		return fmt.Errorf("link %q: %w", link.URL, err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" || parsed.Host == "" {
		return fmt.Errorf("link %q is not an absolute http(s) url", link.URL)
	}
	return nil
}

// Describe lists categories in classification priority order. Otros is last.
func (c *Catalog) Describe() []domain.CategoryInfo {
	out := make([]domain.CategoryInfo, 0, len(c.entries))
	for _, category := range domain.Categories() {
		out = append(out, c.Info(category))
	}
	return out
}

// Info returns one entry. Unknown categories resolve to Otros.
func (c *Catalog) Info(category domain.Category) domain.CategoryInfo {
	idx, ok := c.byName[category]
	if !ok {
		idx = c.byName[domain.CategoryOtros]
	}
	entry := c.entries[idx]
	entry.Keywords = append([]string(nil), entry.Keywords...)
	entry.Links = append([]domain.ReferenceLink(nil), entry.Links...)
	return entry
}

// Keywords returns the match set of a category in catalog order.
func (c *Catalog) Keywords(category domain.Category) []string {
	return c.Info(category).Keywords
}

func (c *Catalog) Links(category domain.Category) []domain.ReferenceLink {
	return c.Info(category).Links
}

// LinkURLs returns the recommended urls of a category.
func (c *Catalog) LinkURLs(category domain.Category) []string {
	links := c.Links(category)
	out := make([]string, 0, len(links))
	for _, link := range links {
		out = append(out, link.URL)
	}
	return out
}

// AllLinks is the union of every category's links, deduplicated by URL in
// priority order.
func (c *Catalog) AllLinks() []domain.ReferenceLink {
	seen := make(map[string]struct{})
	out := make([]domain.ReferenceLink, 0, 8)
	for _, category := range domain.Categories() {
		for _, link := range c.entries[c.byName[category]].Links {
			if _, ok := seen[link.URL]; ok {
				continue
			}
			seen[link.URL] = struct{}{}
			out = append(out, link)
		}
	}
	return out
}

func (c *Catalog) RelevanceKeywords() []string {
	return append([]string(nil), c.relevanceKeywords...)
}

func (c *Catalog) DefinitionPhrases() []string {
	return append([]string(nil), c.definitionPhrases...)
}

func (c *Catalog) Renta4taPhrases() []string {
	return append([]string(nil), c.renta4taPhrases...)
}

func (c *Catalog) Renta5taPhrases() []string {
	return append([]string(nil), c.renta5taPhrases...)
}

func lowerAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
