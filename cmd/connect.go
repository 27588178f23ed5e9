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

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to the bridge with bidirectional communication",
	Long: `Connect to the first attached CH340/CH341 bridge with an interactive
bidirectional terminal interface.

Features include:
- Real-time data streaming with timestamps
- Input field for sending data (text or hex)
- ASCII and hex display modes
- DTR/RTS toggling from the keyboard
- vim-like normal/insert modes

Press 'i' to enter insert mode and type a message, Enter to send,
Esc to return to normal mode, 'q' to quit.

Example usage:
  ch341 connect
  ch341 connect --baud 9600
  ch341 connect --dtr --rts`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runConnectTUI(cmd); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().IntP("baud", "b", 115200, "Baud rate")
	connectCmd.Flags().Bool("dtr", false, "Assert DTR on open")
	connectCmd.Flags().Bool("rts", false, "Assert RTS on open")
}

// connectModel represents the Bubble Tea model for the connect command
type connectModel struct {
	session   *models.Session
	terminal  *components.Terminal
	statusBar *components.StatusBar
	input     *components.Input
	help      help.Model
	keys      keys.SessionKeys
	sized     bool
}

func runConnectTUI(cmd *cobra.Command) error {
	baudRate := baudOrDefault(cmd)
	initialDTR, _ := cmd.Flags().GetBool("dtr")
	initialRTS, _ := cmd.Flags().GetBool("rts")

	m := connectModel{
		session:   models.NewSession(),
		terminal:  components.NewTerminal(0, 0),
		statusBar: components.NewStatusBar("CH341 Connect", "usb"),
		input:     components.NewInput("Type message and press Enter to send..."),
		help:      help.New(),
		keys:      keys.NewSessionKeys(),
	}
	m.statusBar.SetOpening()
	m.statusBar.SetLinkInfo(&components.LinkInfo{
		BaudRate: baudRate,
		DTR:      initialDTR,
		RTS:      initialRTS,
	})

	p := tea.NewProgram(&m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	go func() {
		drv, err := newDriver(cmd,
			ch341.WithBaudRate(baudRate),
			ch341.WithInitialDTR(initialDTR),
			ch341.WithInitialRTS(initialRTS),
		)
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

func (m *connectModel) Init() tea.Cmd {
	return nil
}

func (m *connectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		inputHeight := 3
		statusBarHeight := 1
		m.terminal.SetSize(msg.Width, msg.Height-inputHeight-statusBarHeight)
		m.input.SetWidth(msg.Width)
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
		if m.session.InputMode() == models.InputModeInsert {
			switch {
			case key.Matches(msg, m.keys.Escape):
				m.session.SetInputMode(models.InputModeNormal)
				m.input.Blur()
				return m, tea.Batch(cmds...)

			case key.Matches(msg, m.keys.Enter):
				m.sendInput()
				return m, tea.Batch(cmds...)

			case key.Matches(msg, m.keys.SendMode):
				m.input.ToggleMode()
				return m, tea.Batch(cmds...)
			}
		} else {
			switch {
			case key.Matches(msg, m.keys.Quit):
				m.session.Close()
				return m, tea.Quit

			case key.Matches(msg, m.keys.InsertMode):
				m.session.SetInputMode(models.InputModeInsert)
				cmds = append(cmds, m.input.Focus())
				return m, tea.Batch(cmds...)

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

			case key.Matches(msg, m.keys.SendMode):
				m.input.ToggleMode()
			}
		}
	}

	if m.session.InputMode() == models.InputModeInsert {
		cmds = append(cmds, m.input.Update(msg))
	}

	var cmd tea.Cmd
	switch msg.(type) {
	case tea.WindowSizeMsg:
		_, cmd = m.terminal.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// sendInput writes the input field contents to the device and echoes
// the transmitted bytes into the terminal with a TX marker.
func (m *connectModel) sendInput() {
	drv := m.session.Driver()
	if drv == nil || m.input.Value() == "" {
		return
	}

	payload, err := m.input.Bytes()
	if err != nil {
		m.terminal.AddChunk(components.ChunkMsg{
			Timestamp: time.Now(),
			Data:      []byte(fmt.Sprintf("invalid hex input: %v", err)),
			Status:    components.StatusError,
		})
		return
	}

	status := components.StatusWritten
	if _, err := drv.Write(payload); err != nil {
		status = components.StatusError
	}

	m.terminal.AddChunk(components.ChunkMsg{
		Timestamp: time.Now(),
		Data:      payload,
		TX:        true,
		Status:    status,
	})
	m.input.Reset()
}

func (m *connectModel) refreshLinkInfo() {
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

func (m *connectModel) View() string {
	var content string
	if m.sized {
		content = m.terminal.View()
	} else {
		content = "Initializing..."
	}

	inputMode := m.session.InputMode().String()
	timestamp := time.Now().Format("15:04:05")

	input := m.input.View()
	statusBar := m.statusBar.View(inputMode, m.input.Mode().String(), timestamp)
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
			input,
			statusBar,
		)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		contentWithBorder,
		input,
		statusBar,
	)
}
