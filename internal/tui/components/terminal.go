package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Terminal is the scrolling traffic view shared by the listen and
// connect commands.
type Terminal struct {
	viewport  viewport.Model
	formatter *DataFormatter
	chunks    []ChunkMsg
}

func NewTerminal(width, height int) *Terminal {
	return &Terminal{
		viewport:  viewport.New(width, height),
		formatter: NewDataFormatter(true, true),
		chunks:    make([]ChunkMsg, 0),
	}
}

func (t *Terminal) SetSize(width, height int) {
	t.viewport.Width = width
	t.viewport.Height = height
	t.refresh()
}

func (t *Terminal) Formatter() *DataFormatter {
	return t.formatter
}

func (t *Terminal) AddChunk(msg ChunkMsg) {
	t.chunks = append(t.chunks, msg)
	t.refresh()
}

func (t *Terminal) Clear() {
	t.chunks = t.chunks[:0]
	t.viewport.SetContent("")
}

func (t *Terminal) ToggleHex() {
	t.formatter.ToggleHex()
	t.refresh()
}

func (t *Terminal) ToggleASCII() {
	t.formatter.ToggleASCII()
	t.refresh()
}

func (t *Terminal) refresh() {
	t.viewport.SetContent(strings.Join(t.formatter.FormatChunks(t.chunks), "\n"))
	t.viewport.GotoBottom()
}

func (t *Terminal) Update(msg tea.Msg) (viewport.Model, tea.Cmd) {
	// Key messages are handled by the parent model; only sizing reaches
	// the viewport so it never swallows our bindings.
	switch msg.(type) {
	case tea.WindowSizeMsg:
		return t.viewport.Update(msg)
	default:
		return t.viewport, nil
	}
}

func (t *Terminal) View() string {
	return t.viewport.View()
}
