/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	ch341 "github.com/allbin/go-ch341"
	"github.com/allbin/go-ch341/internal/tui/components"
	"github.com/allbin/go-ch341/internal/tui/keys"
	"github.com/allbin/go-ch341/internal/tui/models"
	"github.com/allbin/go-ch341/internal/tui/styles"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Listen for data with a real-time display",
	Long: `Listen for incoming data on the first attached CH340/CH341 bridge
with a real-time TUI display.

Features include:
- Real-time data streaming with timestamps
- ASCII and hex display modes
- Link status indicators
- DTR/RTS toggling from the keyboard

Example usage:
  ch341 listen
  ch341 listen --baud 9600
  ch341 listen --no-timestamps`,
	Run: func(cmd *cobra.Command, args []string) {
		noTimestamps, _ := cmd.Flags().GetBool("no-timestamps")

		if err := runListenTUI(cmd, noTimestamps); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().IntP("baud", "b", 115200, "Baud rate")
	listenCmd.Flags().Bool("no-timestamps", false, "Hide timestamps from output")
}

// listenModel represents the Bubble Tea model for the listen command
type listenModel struct {
	session   *models.Session
	terminal  *components.Terminal
	statusBar *components.StatusBar
	help      help.Model
	keys      keys.SessionKeys
	sized     bool
}

func runListenTUI(cmd *cobra.Command, noTimestamps bool) error {
	baudRate := baudOrDefault(cmd)

	terminal := components.NewTerminal(80, 20)
	terminal.Formatter().SetShowTimestamps(!noTimestamps)

	m := listenModel{
		session:   models.NewSession(),
		terminal:  terminal,
		statusBar: components.NewStatusBar("CH341 Listen", "usb"),
		help:      help.New(),
		keys:      keys.NewSessionKeys(),
	}
	m.statusBar.SetOpening()
	m.statusBar.SetLinkInfo(&components.LinkInfo{BaudRate: baudRate})

	p := tea.NewProgram(&m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	go func() {
		drv, err := newDriver(cmd, ch341.WithBaudRate(baudRate))
		if err != nil {
			p.Send(models.OpenFailedMsg{Err: err})
			return
		}
		m.session.SetDriver(drv)

		if err := drv.Open(); err != nil {
			p.Send(models.OpenFailedMsg{Err: err})
			return
		}

		models.PumpEvents(p, drv)
	}()

	_, err := p.Run()
	m.session.Close()
	return err
}

func (m *listenModel) Init() tea.Cmd {
	return nil
}

func (m *listenModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		statusBarHeight := 1
		m.terminal.SetSize(msg.Width, msg.Height-statusBarHeight)
		m.statusBar.SetWidth(msg.Width)
		m.sized = true

	case models.ReadyMsg:
		m.session.SetReady(true)
		m.statusBar.SetReady()
		m.refreshLinkInfo()

	case models.DisconnectedMsg:
		m.session.SetReady(false)
		m.statusBar.SetDisconnected(nil)

	case models.OpenFailedMsg:
		m.session.SetReady(false)
		m.statusBar.SetDisconnected(msg.Err)

	case components.ChunkMsg:
		m.terminal.AddChunk(msg)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.session.Close()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Clear):
			m.terminal.Clear()

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll

		case key.Matches(msg, m.keys.ToggleHex):
			m.terminal.ToggleHex()

		case key.Matches(msg, m.keys.ToggleASCII):
			m.terminal.ToggleASCII()

		case key.Matches(msg, m.keys.ToggleDTR):
			if drv := m.session.Driver(); drv != nil {
				drv.SetDTR(!drv.DTR())
				m.refreshLinkInfo()
			}

		case key.Matches(msg, m.keys.ToggleRTS):
			if drv := m.session.Driver(); drv != nil {
				drv.SetRTS(!drv.RTS())
				m.refreshLinkInfo()
			}
		}
	}

	var cmd tea.Cmd
	switch msg.(type) {
	case tea.WindowSizeMsg:
		_, cmd = m.terminal.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *listenModel) refreshLinkInfo() {
	drv := m.session.Driver()
	if drv == nil {
		return
	}
	m.statusBar.SetLinkInfo(&components.LinkInfo{
		BaudRate: drv.BaudRate(),
		DTR:      drv.DTR(),
		RTS:      drv.RTS(),
	})
}

func (m *listenModel) View() string {
	var content string
	if m.sized {
		content = m.terminal.View()
	} else {
		content = "Initializing..."
	}

	timestamp := time.Now().Format("15:04:05")
	statusBar := m.statusBar.View("NORMAL", "LISTEN", timestamp)

	contentWithBorder := styles.ContentBorderStyle.Render(content)

	if m.help.ShowAll {
		helpView := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(styles.Surface2).
			Padding(1, 2).
			Margin(1, 0).
			Render(m.help.View(m.keys))

		return lipgloss.JoinVertical(
			lipgloss.Left,
			contentWithBorder,
			helpView,
			statusBar,
		)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		contentWithBorder,
		statusBar,
	)
}
