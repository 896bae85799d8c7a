// Package pager shows a finished report in a scrollable viewport.
package pager

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/exp/charmtone"
)

type model struct {
	viewport viewport.Model
	title    string
	lines    int
	width    int
	ready    bool
}

func newModel(title, content string) model {
	vp := viewport.New()
	content = strings.TrimSuffix(content, "\n")
	vp.SetContent(content)
	return model{
		viewport: vp,
		title:    title,
		lines:    strings.Count(content, "\n") + 1,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.SetWidth(msg.Width)
		m.viewport.SetHeight(max(msg.Height-1, 1))
		m.ready = true

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "g", "home":
			m.viewport.GotoTop()
			return m, nil
		case "G", "end":
			m.viewport.GotoBottom()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if !m.ready {
		return ""
	}
	status := fmt.Sprintf(" %s • %d lines • %3.f%% • q: quit ",
		m.title, m.lines, m.viewport.ScrollPercent()*100)

	bar := lipgloss.NewStyle().
		Background(charmtone.Pepper).
		Foreground(charmtone.Smoke).
		Width(m.width)

	return m.viewport.View() + "\n" + bar.Render(status)
}

// Run pages content on the terminal until the user quits.
func Run(ctx context.Context, title, content string) error {
	program := tea.NewProgram(
		newModel(title, content),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("pager: %w", err)
	}
	return nil
}
