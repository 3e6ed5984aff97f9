package main

import (
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/sunabot/internal/adapters/mcp"
	"github.com/kirillkom/sunabot/internal/bootstrap"
	"github.com/kirillkom/sunabot/internal/config"
	"github.com/kirillkom/sunabot/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	app, err := bootstrap.New(cfg, "mcp", logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	s := mcpadapter.NewServer(cfg.AppVersion, app.Consult, app.Pipeline, app.Catalog, logger)
	logger.Info("mcp_serving_stdio", "backend", app.Backend)
	if err := server.ServeStdio(s); err != nil {
		logger.Error("mcp_server_failed", "error", err)
	}
}
