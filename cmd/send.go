/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	ch341 "github.com/allbin/go-ch341"
	"github.com/allbin/go-ch341/internal/tui/components"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [data]",
	Short: "Send data to the attached bridge",
	Long: `Send data to the first attached CH340/CH341 bridge.

Data can be provided as:
- Command line argument: ch341 send "Hello World"
- From stdin (pipe): echo "test data" | ch341 send
- Interactive mode: ch341 send (prompts for input)

Example usage:
  ch341 send "Hello World"
  ch341 send "AT+GMR" --newline
  ch341 send "48656c6c6f" --hex
  echo "test" | ch341 send --baud 9600`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var data string

		if len(args) == 1 {
			data = args[0]
		} else {
			stat, err := os.Stdin.Stat()
			if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
				data = promptForData()
			} else {
				stdinData, err := io.ReadAll(os.Stdin)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error reading from stdin: %v\n", err)
					os.Exit(1)
				}
				data = strings.TrimRight(string(stdinData), "\r\n")
			}
		}

		addNewline, _ := cmd.Flags().GetBool("newline")
		hexMode, _ := cmd.Flags().GetBool("hex")

		var payload []byte
		if hexMode {
			parsed, err := components.ParseHex(data)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid hex data: %v\n", err)
				os.Exit(1)
			}
			payload = parsed
		} else {
			payload = []byte(data)
			if addNewline {
				payload = append(payload, '\n')
			}
		}

		if err := sendData(cmd, payload); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().IntP("baud", "b", 115200, "Baud rate")
	sendCmd.Flags().BoolP("newline", "n", false, "Add newline character to the end of data")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '48656c6c6f' for 'Hello')")
}

func promptForData() string {
	promptStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99"))

	fmt.Print(promptStyle.Render("Enter data to send: "))

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}

func sendData(cmd *cobra.Command, payload []byte) error {
	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		Bold(true)

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("40")).
		Bold(true)

	fmt.Printf("%s Opening device...\n", infoStyle.Render("⚡"))

	drv, err := newDriver(cmd, ch341.WithBaudRate(baudOrDefault(cmd)))
	if err != nil {
		return err
	}
	defer drv.Close()

	if err := drv.Open(); err != nil {
		return err
	}

	fmt.Printf("%s Connected at %d baud\n", successStyle.Render("✓"), drv.BaudRate())

	n, err := drv.Write(payload)
	if err != nil {
		return fmt.Errorf("failed to send data: %w", err)
	}

	fmt.Printf("%s Successfully sent %d bytes\n", successStyle.Render("✓"), n)

	preview := string(payload)
	if len(preview) > 50 {
		preview = preview[:50] + "..."
	}
	preview = strings.Map(func(r rune) rune {
		if r < 32 || r > 126 {
			return '·'
		}
		return r
	}, preview)

	fmt.Printf("%s Data: %s\n", infoStyle.Render("📋"), preview)

	return nil
}
