package components

import (
	"fmt"

	"github.com/allbin/go-ch341/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
)

// LinkInfo is the link state shown in the status bar.
type LinkInfo struct {
	BaudRate int
	DTR      bool
	RTS      bool
}

type StatusBar struct {
	title  string
	device string
	status string
	err    error
	width  int
	link   *LinkInfo
}

func NewStatusBar(title, device string) *StatusBar {
	return &StatusBar{
		title:  title,
		device: device,
		status: "Initializing...",
	}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetLinkInfo(link *LinkInfo) {
	sb.link = link
}

func (sb *StatusBar) SetOpening() {
	sb.status = "Opening..."
	sb.err = nil
}

func (sb *StatusBar) SetReady() {
	sb.status = "Ready"
	sb.err = nil
}

func (sb *StatusBar) SetDisconnected(err error) {
	if err != nil {
		sb.status = "Failed"
		sb.err = err
	} else {
		sb.status = "Disconnected"
		sb.err = nil
	}
}

func lineState(on bool) string {
	if on {
		return "+"
	}
	return "-"
}

// View renders a single-line status bar: mode, device, link indicator on
// the left; baud and control lines with a timestamp on the right.
func (sb *StatusBar) View(inputMode, sendMode, timestamp string) string {
	width := sb.width
	if width <= 0 {
		width = 80
	}

	modeStyle := lipgloss.NewStyle().
		Foreground(styles.Base).
		Background(styles.Blue).
		Bold(true).
		Padding(0, 1)
	if inputMode == "INSERT" {
		modeStyle = modeStyle.Background(styles.Green)
	}
	mode := modeStyle.Render(inputMode)

	device := lipgloss.NewStyle().
		Foreground(styles.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(sb.device)

	var indicator string
	switch {
	case sb.err != nil:
		indicator = lipgloss.NewStyle().Foreground(styles.Red).Render("✗")
	case sb.status == "Ready":
		indicator = lipgloss.NewStyle().Foreground(styles.Green).Render("●")
	case sb.status == "Opening...":
		indicator = lipgloss.NewStyle().Foreground(styles.Yellow).Render("○")
	default:
		indicator = lipgloss.NewStyle().Foreground(styles.Red).Render("○")
	}

	var sendInfo string
	if inputMode == "INSERT" && sendMode != "" {
		sendInfo = lipgloss.NewStyle().
			Foreground(styles.Peach).
			Bold(true).
			Padding(0, 1).
			Render(fmt.Sprintf("[%s] Tab to toggle", sendMode))
	}

	var linkInfo string
	if sb.link != nil {
		linkInfo = fmt.Sprintf("⚡ %d baud 8N1 DTR%s RTS%s",
			sb.link.BaudRate, lineState(sb.link.DTR), lineState(sb.link.RTS))
	} else {
		linkInfo = "⚡ ch340"
	}
	link := lipgloss.NewStyle().
		Foreground(styles.Subtext0).
		Padding(0, 1).
		Render(linkInfo)

	divider := lipgloss.NewStyle().
		Foreground(styles.Surface2).
		Padding(0, 1).
		Render("│")

	clock := lipgloss.NewStyle().
		Foreground(styles.Subtext1).
		Padding(0, 1).
		Render(timestamp)

	left := lipgloss.JoinHorizontal(lipgloss.Left, mode, device, indicator)
	if sendInfo != "" {
		left = lipgloss.JoinHorizontal(lipgloss.Left, left, sendInfo)
	}
	right := lipgloss.JoinHorizontal(lipgloss.Left, link, divider, clock)

	spacerWidth := width - lipgloss.Width(left) - lipgloss.Width(right)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	bar := lipgloss.NewStyle().
		Foreground(styles.Text).
		Background(styles.Surface0).
		Width(width)
	return bar.Render(lipgloss.JoinHorizontal(lipgloss.Left, left, spacer, right))
}
