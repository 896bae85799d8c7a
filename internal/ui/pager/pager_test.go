package pager

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/stretchr/testify/assert"
)

func TestViewAfterResize(t *testing.T) {
	m := newModel("fn main", "line one\nline two\n")
	assert.Equal(t, 2, m.lines)
	assert.Empty(t, m.View())

	next, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	view := next.(model).View()
	assert.Contains(t, view, "line one")
	assert.Contains(t, view, "fn main")
	assert.Contains(t, view, "2 lines")
}
