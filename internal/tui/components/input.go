package components

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/allbin/go-ch341/internal/tui/styles"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// SendMode selects how typed input is turned into bytes.
type SendMode int

const (
	SendModeText SendMode = iota
	SendModeHex
)

func (m SendMode) String() string {
	if m == SendModeHex {
		return "HEX"
	}
	return "TEXT"
}

// Input is the send box of the connect command.
type Input struct {
	textinput textinput.Model
	mode      SendMode
}

func NewInput(placeholder string) *Input {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 512
	return &Input{textinput: ti}
}

func (i *Input) SetWidth(width int) {
	// Account for the rounded border and padding.
	i.textinput.Width = width - 5
}

func (i *Input) Focus() tea.Cmd {
	return i.textinput.Focus()
}

func (i *Input) Blur() {
	i.textinput.Blur()
}

func (i *Input) Focused() bool {
	return i.textinput.Focused()
}

func (i *Input) Value() string {
	return i.textinput.Value()
}

func (i *Input) Reset() {
	i.textinput.Reset()
}

func (i *Input) Mode() SendMode {
	return i.mode
}

func (i *Input) ToggleMode() {
	if i.mode == SendModeText {
		i.mode = SendModeHex
	} else {
		i.mode = SendModeText
	}
}

// Bytes converts the current value per the send mode. Text mode appends
// CR LF the way a serial terminal would.
func (i *Input) Bytes() ([]byte, error) {
	value := i.textinput.Value()
	if i.mode == SendModeHex {
		return ParseHex(value)
	}
	return []byte(value + "\r\n"), nil
}

func (i *Input) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	i.textinput, cmd = i.textinput.Update(msg)
	return cmd
}

func (i *Input) View() string {
	return styles.InputStyle.Render(i.textinput.View())
}

// ParseHex converts hex strings to bytes, accepting both space-separated
// ("48 65 6C") and continuous ("48656C") forms.
func ParseHex(s string) ([]byte, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if len(clean) == 0 {
		return nil, fmt.Errorf("empty input")
	}
	if len(clean)%2 != 0 {
		return nil, fmt.Errorf("hex string must have even number of digits (got %d)", len(clean))
	}

	out := make([]byte, 0, len(clean)/2)
	for i := 0; i < len(clean); i += 2 {
		b, err := strconv.ParseUint(clean[i:i+2], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex byte %q", clean[i:i+2])
		}
		out = append(out, byte(b))
	}
	return out, nil
}
