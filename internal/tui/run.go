package tui

import (
	"io"
	"os"

	osc52 "github.com/aymanbagabas/go-osc52/v2"
	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the TUI on app.
func Run(app *App) error {
	m := &model{app: app, clipboard: os.Stderr}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

type model struct {
	app       *App
	clipboard io.Writer
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.app.Width = msg.Width
		m.app.Height = msg.Height
		return m, nil
	case tea.KeyMsg:
		m.app.Message = ""
		switch m.app.InputMode {
		case InputModeNormal:
			m.handleNormal(msg)
		case InputModeSearch:
			m.handleSearch(msg)
		case InputModeFamilyPopup:
			m.handleFamilyPopup(msg)
		}
		if m.app.ShouldQuit {
			return m, tea.Quit
		}
		return m, nil
	}
	return m, nil
}

func (m *model) handleNormal(msg tea.KeyMsg) {
	switch msg.String() {
	case "q", "esc":
		if m.app.ShowDetail {
			m.app.ShowDetail = false
		} else {
			m.app.ShouldQuit = true
		}
	case "ctrl+c":
		m.app.ShouldQuit = true
	case "up", "k":
		m.app.MoveUp()
	case "down", "j":
		m.app.MoveDown()
	case "pgup":
		m.app.PageUp()
	case "pgdown":
		m.app.PageDown()
	case "home", "g":
		m.app.Home()
	case "end", "G":
		m.app.End()
	case "/":
		m.app.EnterSearch()
	case "f":
		m.app.CycleStatusFilter()
	case "m":
		m.app.OpenFamilyPopup()
	case "tab", "right", "l":
		m.app.CycleQuant(1)
	case "shift+tab", "left", "h":
		m.app.CycleQuant(-1)
	case "+", "=":
		m.app.AdjustGPUMemory(1)
	case "-", "_":
		m.app.AdjustGPUMemory(-1)
	case "]":
		m.app.AdjustGPUMemory(8)
	case "[":
		m.app.AdjustGPUMemory(-8)
	case "a":
		m.app.UseDetectedGPUMemory()
	case "t":
		m.app.ToggleTheme()
	case "L":
		m.app.ToggleLanguage()
	case "s":
		m.app.CycleSort()
	case "r":
		m.app.ToggleSortOrder()
	case "c", "y":
		m.copyPullCommand()
	case "enter":
		m.app.ToggleDetail()
	}
}

// copyPullCommand puts the selected row's ollama command on the clipboard via an OSC 52 escape.
func (m *model) copyPullCommand() {
	cmd := m.app.PullCommand()
	if cmd == "" {
		return
	}
	seq := osc52.New(cmd)
	if os.Getenv("TMUX") != "" {
		seq = seq.Tmux()
	}
	_, err := seq.WriteTo(m.clipboard)
	m.app.SetCopyResult(cmd, err)
}

func (m *model) handleSearch(msg tea.KeyMsg) {
	switch msg.String() {
	case "esc", "enter":
		m.app.ExitSearch()
	case "backspace":
		m.app.SearchBackspace()
	case "ctrl+u":
		m.app.ClearSearch()
	case "up":
		m.app.MoveUp()
	case "down":
		m.app.MoveDown()
	default:
		if len(msg.Runes) == 1 {
			m.app.SearchInput(msg.Runes[0])
		}
	}
}

func (m *model) handleFamilyPopup(msg tea.KeyMsg) {
	switch msg.String() {
	case "esc", "m", "q":
		m.app.CloseFamilyPopup()
	case "up", "k":
		m.app.FamilyPopupUp()
	case "down", "j":
		m.app.FamilyPopupDown()
	case " ", "enter":
		m.app.FamilyPopupToggle()
	case "a":
		m.app.FamilyPopupSelectAll()
	}
}

func (m *model) View() string {
	return Render(m.app)
}
