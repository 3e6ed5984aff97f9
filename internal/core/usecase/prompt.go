package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/sunabot/internal/core/catalog"
	"github.com/kirillkom/sunabot/internal/core/domain"
)

type PromptMode string

const (
	PromptModeCategory PromptMode = "category"
	PromptModeGeneral  PromptMode = "general"
)

const (
	categoryCue     = "### Respuesta especializada de SUNABOT:"
	generalCue      = "### RESPUESTA CONCISA DE SUNABOT:"
	definitionCue   = "### Definición de SUNABOT:"
	continuationCue = "### Continuación de SUNABOT:"
)

var softIntentTopics = map[domain.SoftIntent]string{
	domain.SoftIntentDefinitionSUNAT:    "qué es la SUNAT y cuáles son sus funciones",
	domain.SoftIntentSUNATGeneral:       "los servicios generales que ofrece la SUNAT",
	domain.SoftIntentDefinitionRenta4ta: "la renta de cuarta categoría (trabajo independiente)",
	domain.SoftIntentDefinitionRenta5ta: "la renta de quinta categoría (trabajo dependiente)",
}

// PromptBuilder renders the deterministic prompt templates. Links always
// come from the catalog.
type PromptBuilder struct {
	catalog *catalog.Catalog
}

func NewPromptBuilder(c *catalog.Catalog) *PromptBuilder {
	if c == nil {
		c = catalog.Default()
	}
	return &PromptBuilder{catalog: c}
}

// StopSequences returns the role markers passed to every generation call.
func StopSequences() []string {
	return domain.DefaultStopSequences()
}

func (b *PromptBuilder) BuildPrompt(message string, category *domain.Category, mode PromptMode) (string, error) {
	switch mode {
	case PromptModeCategory:
		if category == nil {
			return "", domain.WrapError(domain.ErrInvalidInput, "build prompt", fmt.Errorf("category mode requires a category"))
		}
		return b.categoryPrompt(message, *category), nil
	case PromptModeGeneral, "":
		return b.chainOfThoughtPrompt(message), nil
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "build prompt", fmt.Errorf("unknown prompt mode %q", mode))
	}
}

func (b *PromptBuilder) categoryPrompt(message string, category domain.Category) string {
	info := b.catalog.Info(category)
	header := info.Name.String()
	if info.Name == domain.CategoryOtros {
		header = "General"
	}

	return fmt.Sprintf(`### SUNABOT - Especialista %s
INSTRUCCIONES: Respuesta DIRECTA y CONCISA sobre %s. Máximo 2-3 párrafos. Ve directo al grano.

LINKS ÚTILES PARA INCLUIR:
%s

### Consulta del usuario sobre %s:
%s

%s`, header, info.Topic, renderLinks(info.Links, "- "), info.Name, message, categoryCue)
}

func (b *PromptBuilder) chainOfThoughtPrompt(message string) string {
	return fmt.Sprintf(`### SUNABOT - RESPUESTA DIRECTA Y CONCISA

Consulta: "%s"

INSTRUCCIONES ESPECIALES:
- Responde de forma DIRECTA y CONCISA
- Máximo 2-3 párrafos por respuesta
- Ve directo al punto sin rodeos
- Usa **negritas** solo para lo más importante
- Si hay pasos, máximo 3-4 puntos clave
- INCLUYE LINKS ÚTILES cuando sea relevante:
%s

%s`, message, renderLinks(b.catalog.AllLinks(), "  * "), generalCue)
}

// BuildDefinitionPrompt renders the explanatory template used for soft
// intents.
func (b *PromptBuilder) BuildDefinitionPrompt(message string, soft domain.SoftIntent) (string, error) {
	topic, ok := softIntentTopics[soft]
	if !ok {
		return "", domain.WrapError(domain.ErrInvalidInput, "build definition prompt", fmt.Errorf("no definition template for %q", soft))
	}
	info := b.catalog.Info(soft.Category())

	return fmt.Sprintf(`### SUNABOT - Definiciones tributarias
INSTRUCCIONES: El usuario quiere entender %s.
- Explica el concepto con lenguaje sencillo y preciso
- Máximo 3 párrafos
- Usa **negritas** para los términos clave
- Si aplica, indica quiénes están comprendidos y sus obligaciones principales
- Cierra con los enlaces oficiales pertinentes

LINKS ÚTILES PARA INCLUIR:
%s

### Consulta del usuario:
%s

%s`, topic, renderLinks(info.Links, "- "), message, definitionCue), nil
}

func (b *PromptBuilder) BuildContinuationPrompt(context, message string, category domain.Category) string {
	if !category.Valid() {
		category = domain.CategoryOtros
	}
	return fmt.Sprintf(`### CONTINUACIÓN DE RESPUESTA SUNAT
Tema: %s

Contexto previo de la conversación:
%s

Solicitud adicional del usuario:
%s

Continúa proporcionando información adicional y detallada sobre el tema, manteniendo el formato estructurado:
- Usa **negritas** para títulos
- Usa numeración para pasos
- Usa guiones para listas
- Proporciona información completa y útil

%s`, category, strings.TrimSpace(context), message, continuationCue)
}

func renderLinks(links []domain.ReferenceLink, bullet string) string {
	lines := make([]string, 0, len(links))
	for _, link := range links {
		lines = append(lines, bullet+link.Label+": "+link.URL)
	}
	return strings.Join(lines, "\n")
}
