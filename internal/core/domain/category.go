package domain

import (
	"fmt"
	"strings"
)

// Category is one of the six closed tax topics a query is routed to.
type Category string

const (
	CategoryRUC           Category = "RUC"
	CategoryDeclaraciones Category = "Declaraciones"
	CategoryFacturacion   Category = "Facturación"
	CategoryClaveSOL      Category = "Clave SOL"
	CategoryRegimenes     Category = "Regímenes"
	CategoryOtros         Category = "Otros"
)

// Categories returns the closed set in classification priority order.
func Categories() []Category {
	return []Category{
		CategoryRUC,
		CategoryDeclaraciones,
		CategoryFacturacion,
		CategoryClaveSOL,
		CategoryRegimenes,
		CategoryOtros,
	}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryRUC, CategoryDeclaraciones, CategoryFacturacion, CategoryClaveSOL, CategoryRegimenes, CategoryOtros:
		return true
	default:
		return false
	}
}

func (c Category) String() string {
	return string(c)
}

var categoryAliases = map[string]Category{
	"ruc":           CategoryRUC,
	"declaraciones": CategoryDeclaraciones,
	"declaracion":   CategoryDeclaraciones,
	"facturacion":   CategoryFacturacion,
	"clave sol":     CategoryClaveSOL,
	"clavesol":      CategoryClaveSOL,
	"regimenes":     CategoryRegimenes,
	"regimen":       CategoryRegimenes,
	"otros":         CategoryOtros,
}

// ParseCategory accepts the six closed values and their unaccented or
// snake_case spellings. Anything else is rejected.
func ParseCategory(raw string) (Category, error) {
	key := normalizeCategoryKey(raw)
	if category, ok := categoryAliases[key]; ok {
		return category, nil
	}
	return "", WrapError(ErrInvalidInput, "parse category", fmt.Errorf("unknown category %q", raw))
}

func normalizeCategoryKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer(
		"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u",
		"_", " ", "-", " ",
	).Replace(key)
	return strings.Join(strings.Fields(key), " ")
}

// SoftIntent labels definitional sub-intents. They only steer prompt
// selection and must be mapped through Category before leaving the core.
type SoftIntent string

const (
	SoftIntentNone               SoftIntent = ""
	SoftIntentDefinitionSUNAT    SoftIntent = "Definición SUNAT"
	SoftIntentSUNATGeneral       SoftIntent = "SUNAT General"
	SoftIntentDefinitionRenta4ta SoftIntent = "Definición Renta 4ta"
	SoftIntentDefinitionRenta5ta SoftIntent = "Definición Renta 5ta"
)

// Category maps a soft label back to its closed category.
func (s SoftIntent) Category() Category {
	switch s {
	case SoftIntentDefinitionRenta4ta, SoftIntentDefinitionRenta5ta:
		return CategoryDeclaraciones
	default:
		return CategoryOtros
	}
}

// Intent pairs the strict classification with an optional soft label.
type Intent struct {
	Classification ClassificationResult
	Soft           SoftIntent
}

// Category is the closed value reported to callers. A soft label only
// overrides the strict result when the keyword tables found nothing.
func (i Intent) Category() Category {
	if i.Soft != SoftIntentNone && i.Classification.Category == CategoryOtros {
		return i.Soft.Category()
	}
	return i.Classification.Category
}

// ReferenceLink is a labelled official URL from the category catalog.
type ReferenceLink struct {
	Label string `json:"label" yaml:"label"`
	URL   string `json:"url" yaml:"url"`
}

// CategoryInfo describes one closed category for listings and prompts.
type CategoryInfo struct {
	Name        Category        `json:"name"`
	Description string          `json:"description"`
	Topic       string          `json:"-"`
	Keywords    []string        `json:"keywords,omitempty"`
	Links       []ReferenceLink `json:"links"`
}
