package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kirillkom/sunabot/internal/core/domain"
)

const requestTimeout = 120 * time.Second

const helpText = "/categoria <nombre> fija la categoría · /modo <general|categoria|predeterminada> · /mas <texto> continúa la última respuesta · /salir"

type role int

const (
	roleUser role = iota
	roleAssistant
	roleSystem
	roleError
)

type entry struct {
	role    role
	content string
	meta    string
}

type answerMsg struct {
	resp *domain.StructuredResponse
}

type errorMsg struct {
	err error
}

// App is the bubbletea model of the terminal chat.
type App struct {
	client asker

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	history    []entry
	category   string
	mode       domain.Mode
	lastAnswer *domain.StructuredResponse
	waiting    bool

	width  int
	height int
}

type asker interface {
	Ask(ctx context.Context, message, category, mode string) (*domain.StructuredResponse, error)
	Continue(ctx context.Context, message, previous string, category domain.Category) (*domain.StructuredResponse, error)
}

func NewApp(client asker) *App {
	input := textinput.New()
	input.Placeholder = "Escribe tu consulta tributaria..."
	input.CharLimit = 1000
	input.Focus()

	return &App{
		client:   client,
		input:    input,
		viewport: viewport.New(80, 20),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		mode:     domain.ModeGeneral,
		history: []entry{{
			role:    roleSystem,
			content: "Bienvenido a SUNABOT. Pregunta sobre RUC, declaraciones, facturación, Clave SOL o regímenes.",
		}},
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(tea.WindowSize(), textinput.Blink)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Enter):
			if !a.waiting {
				cmds = append(cmds, a.handleInput())
			}
		case key.Matches(msg, keys.PageUp), key.Matches(msg, keys.PageDown):
			var cmd tea.Cmd
			a.viewport, cmd = a.viewport.Update(msg)
			return a, cmd
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.viewport.Width = msg.Width
		a.viewport.Height = max(3, msg.Height-7)
		a.input.Width = max(10, msg.Width-8)
		a.refresh()

	case answerMsg:
		a.waiting = false
		a.lastAnswer = msg.resp
		a.history = append(a.history, entry{
			role:    roleAssistant,
			content: PlainText(msg.resp.ResponseText),
			meta:    answerMeta(msg.resp),
		})
		a.refresh()

	case errorMsg:
		a.waiting = false
		a.history = append(a.history, entry{role: roleError, content: msg.err.Error()})
		a.refresh()

	case spinner.TickMsg:
		if a.waiting {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

func (a *App) handleInput() tea.Cmd {
	text := strings.TrimSpace(a.input.Value())
	if text == "" {
		return nil
	}
	a.input.Reset()

	if strings.HasPrefix(text, "/") {
		return a.handleCommand(text)
	}

	category, mode := a.category, string(a.mode)
	a.history = append(a.history, entry{role: roleUser, content: text})
	a.refresh()
	return a.send(func(ctx context.Context) (*domain.StructuredResponse, error) {
		return a.client.Ask(ctx, text, category, mode)
	})
}

func (a *App) handleCommand(text string) tea.Cmd {
	name, arg, _ := strings.Cut(text, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "/salir", "/q":
		return tea.Quit
	case "/ayuda", "/h":
		a.notice(helpText)
	case "/categoria":
		if arg == "" {
			a.category = ""
			a.notice("Categoría automática.")
			break
		}
		category, err := domain.ParseCategory(arg)
		if err != nil {
			a.fail(err)
			break
		}
		a.category = category.String()
		a.notice("Categoría fijada: " + a.category)
	case "/modo":
		mode, ok := domain.ParseMode(arg)
		if !ok {
			a.fail(fmt.Errorf("modo desconocido %q", arg))
			break
		}
		a.mode = mode
		a.notice("Modo: " + string(mode))
	case "/mas":
		if a.lastAnswer == nil {
			a.fail(fmt.Errorf("no hay una respuesta previa para continuar"))
			break
		}
		if arg == "" {
			arg = "Amplía la información anterior"
		}
		previous := PlainText(a.lastAnswer.ResponseText)
		category := a.lastAnswer.Category
		a.history = append(a.history, entry{role: roleUser, content: arg})
		a.refresh()
		return a.send(func(ctx context.Context) (*domain.StructuredResponse, error) {
			return a.client.Continue(ctx, arg, previous, category)
		})
	default:
		a.fail(fmt.Errorf("comando desconocido %s", name))
	}
	return nil
}

func (a *App) send(call func(context.Context) (*domain.StructuredResponse, error)) tea.Cmd {
	a.waiting = true
	request := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		resp, err := call(ctx)
		if err != nil {
			return errorMsg{err}
		}
		return answerMsg{resp}
	}
	return tea.Batch(request, a.spinner.Tick)
}

func (a *App) notice(text string) {
	a.history = append(a.history, entry{role: roleSystem, content: text})
	a.refresh()
}

func (a *App) fail(err error) {
	a.history = append(a.history, entry{role: roleError, content: err.Error()})
	a.refresh()
}

func answerMeta(resp *domain.StructuredResponse) string {
	parts := []string{string(resp.Category), resp.TechniqueLabel, resp.ProcessingType}
	if !resp.IsAIGenerated {
		parts = append(parts, "sin IA")
	}
	if resp.ErrorDetail != "" {
		parts = append(parts, "degradada")
	}
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " · ")
}

func (a *App) refresh() {
	width := max(20, a.viewport.Width-2)
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	for _, e := range a.history {
		switch e.role {
		case roleUser:
			b.WriteString(styleUser.Render(wrap.Render("> " + e.content)))
		case roleAssistant:
			b.WriteString(styleAssistant.Render(wrap.Render(e.content)))
			if e.meta != "" {
				b.WriteString("\n" + styleMeta.Render(e.meta))
			}
		case roleError:
			b.WriteString(styleError.Render(wrap.Render("! " + e.content)))
		default:
			b.WriteString(styleSubtitle.Render(wrap.Render(e.content)))
		}
		b.WriteString("\n\n")
	}
	a.viewport.SetContent(b.String())
	a.viewport.GotoBottom()
}

func (a *App) View() string {
	var b strings.Builder

	subtitle := "Asistente tributario SUNAT"
	if a.category != "" {
		subtitle += " · " + a.category
	}
	if a.mode != domain.ModeGeneral {
		subtitle += " · " + string(a.mode)
	}
	b.WriteString(styleLogo.Render("SUNABOT") + "  " + styleSubtitle.Render(subtitle) + "\n\n")
	b.WriteString(a.viewport.View() + "\n")

	if a.waiting {
		b.WriteString(a.spinner.View() + " Consultando...\n")
	} else {
		b.WriteString(styleInputBox.Render(a.input.View()) + "\n")
	}
	b.WriteString(styleStatusBar.Render("enter enviar · esc salir · /ayuda comandos"))
	return b.String()
}
