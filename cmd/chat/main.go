package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kirillkom/sunabot/internal/config"
	"github.com/kirillkom/sunabot/internal/tui"
)

func main() {
	cfg := config.Load()
	app := tui.NewApp(tui.NewClient(cfg.SunabotAPIURL))
	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "chat: %v\n", err)
		os.Exit(1)
	}
}
