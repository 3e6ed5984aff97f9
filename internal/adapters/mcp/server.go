package mcpadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/sunabot/internal/core/domain"
	"github.com/kirillkom/sunabot/internal/core/ports"
)

const (
	ToolClassify   = "clasificar_consulta"
	ToolConsult    = "consultar_sunabot"
	ToolCategories = "listar_categorias"
)

const serverInstructions = "Herramientas de SUNABOT para consultas tributarias sobre SUNAT (Perú). " +
	"Usa clasificar_consulta para conocer la categoría de una pregunta y consultar_sunabot para obtener una respuesta con enlaces oficiales."

type tools struct {
	consult    ports.ConsultationService
	pipeline   ports.PipelineService
	categories ports.CategoryDirectory
	logger     *slog.Logger
}

// NewServer exposes the consultation use cases as MCP tools.
func NewServer(
	version string,
	consult ports.ConsultationService,
	pipeline ports.PipelineService,
	categories ports.CategoryDirectory,
	logger *slog.Logger,
) *server.MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	t := &tools{consult: consult, pipeline: pipeline, categories: categories, logger: logger}

	s := server.NewMCPServer("sunabot", version,
		server.WithToolCapabilities(false),
		server.WithInstructions(serverInstructions),
	)

	s.AddTool(mcp.NewTool(ToolClassify,
		mcp.WithDescription("Clasifica una consulta en una de las seis categorías tributarias y valida si es relevante."),
		mcp.WithString("mensaje", mcp.Required(), mcp.Description("Consulta del usuario en español.")),
	), t.classify)

	s.AddTool(mcp.NewTool(ToolConsult,
		mcp.WithDescription("Responde una consulta tributaria sobre SUNAT con enlaces oficiales."),
		mcp.WithString("mensaje", mcp.Required(), mcp.Description("Consulta del usuario en español.")),
		mcp.WithString("categoria", mcp.Description("Categoría explícita: RUC, Declaraciones, Facturación, Clave SOL, Regímenes u Otros.")),
		mcp.WithString("tipo", mcp.Enum(string(domain.ModeGeneral), string(domain.ModeCategory), string(domain.ModePredetermined))),
		mcp.WithNumber("max_length", mcp.Min(0), mcp.Max(domain.MaxMaxLength), mcp.Description("Tokens máximos de la respuesta; 0 usa el valor por defecto.")),
		mcp.WithBoolean("pipeline", mcp.Description("Valida la consulta y ejecuta el análisis paralelo antes de generar.")),
	), t.consultTool)

	s.AddTool(mcp.NewTool(ToolCategories,
		mcp.WithDescription("Lista las categorías con su descripción y enlaces oficiales."),
	), t.listCategories)

	return s
}

func (t *tools) classify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := req.RequireString("mensaje")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	analysis, err := t.consult.Classify(ctx, message)
	if err != nil {
		return t.toolError(ctx, ToolClassify, err), nil
	}
	return jsonResult(analysis)
}

func (t *tools) consultTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := req.RequireString("mensaje")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode, ok := domain.ParseMode(req.GetString("tipo", ""))
	if !ok {
		return mcp.NewToolResultError("tipo must be general, categoria or predeterminada"), nil
	}
	input := domain.ConsultaInput{
		Message:   message,
		Mode:      mode,
		MaxLength: req.GetInt("max_length", 0),
	}
	if raw := strings.TrimSpace(req.GetString("categoria", "")); raw != "" {
		category, err := domain.ParseCategory(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		input.Category = &category
	}

	var resp *domain.StructuredResponse
	if req.GetBool("pipeline", false) {
		resp, err = t.pipeline.Run(ctx, input)
	} else {
		resp, err = t.consult.Answer(ctx, input)
	}
	if err != nil {
		return t.toolError(ctx, ToolConsult, err), nil
	}
	return jsonResult(resp)
}

func (t *tools) listCategories(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{"categorias": t.categories.Describe()})
}

// toolError reports use case failures inside the result so the client model
// can read them. Validation failures list the checks that did not pass.
func (t *tools) toolError(ctx context.Context, tool string, err error) *mcp.CallToolResult {
	t.logger.WarnContext(ctx, "mcp_tool_failed", "tool", tool, "error", err)
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return mcp.NewToolResultError(fmt.Sprintf("consulta no válida; checks fallidos: %s",
			strings.Join(validationErr.Result.FailedChecks(), ", ")))
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return result, nil
}
