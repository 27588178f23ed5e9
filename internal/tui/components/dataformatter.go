package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/allbin/go-ch341/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
)

// ChunkMsg is one received or transmitted chunk flowing through the TUI.
type ChunkMsg struct {
	Timestamp time.Time
	Data      []byte
	TX        bool
	Status    string // TX only: "WRITTEN" or "ERROR"
}

type DisplayMode struct {
	ShowHex   bool
	ShowASCII bool
}

type DataFormatter struct {
	mode           DisplayMode
	showTimestamps bool
}

func NewDataFormatter(showHex, showASCII bool) *DataFormatter {
	return &DataFormatter{
		mode:           DisplayMode{ShowHex: showHex, ShowASCII: showASCII},
		showTimestamps: true,
	}
}

func (df *DataFormatter) SetShowTimestamps(show bool) {
	df.showTimestamps = show
}

func (df *DataFormatter) GetDisplayMode() DisplayMode {
	return df.mode
}

func (df *DataFormatter) ToggleHex() {
	df.mode.ShowHex = !df.mode.ShowHex
}

func (df *DataFormatter) ToggleASCII() {
	df.mode.ShowASCII = !df.mode.ShowASCII
}

// ChunkMsg statuses recognized by the formatter.
const (
	StatusWritten = "WRITTEN"
	StatusError   = "ERROR"
)

func (df *DataFormatter) FormatChunk(msg ChunkMsg) string {
	var indicator string
	if msg.TX {
		color := styles.Peach
		text := "TX"
		switch msg.Status {
		case StatusWritten:
			color = styles.Green
			text = "TX ✓"
		case StatusError:
			color = styles.Red
			text = "TX ✗"
		}
		indicator = lipgloss.NewStyle().Foreground(color).Bold(true).Render("↗ " + text)
	} else {
		indicator = lipgloss.NewStyle().Foreground(styles.Sky).Bold(true).Render("↙ RX")
	}

	var parts []string
	if df.mode.ShowHex {
		parts = append(parts, fmt.Sprintf("HEX: % X", msg.Data))
	}
	if df.mode.ShowASCII {
		parts = append(parts, "ASCII: "+printable(msg.Data))
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("BYTES: %d", len(msg.Data)))
	}

	line := fmt.Sprintf("%s: %s", indicator, strings.Join(parts, "  "))
	if df.showTimestamps {
		ts := lipgloss.NewStyle().
			Foreground(styles.Subtext0).
			Render(fmt.Sprintf("[%s]", msg.Timestamp.Format("15:04:05.000")))
		line = ts + " " + line
	}
	return line
}

func (df *DataFormatter) FormatChunks(msgs []ChunkMsg) []string {
	formatted := make([]string, len(msgs))
	for i, msg := range msgs {
		formatted[i] = df.FormatChunk(msg)
	}
	return formatted
}

// printable replaces non-printable bytes with dots so terminal control
// sequences never leak into the viewport.
func printable(data []byte) string {
	var b strings.Builder
	for _, c := range data {
		if c >= 32 && c <= 126 {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}
