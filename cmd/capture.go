/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	ch341 "github.com/allbin/go-ch341"
	"github.com/spf13/cobra"
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:   "capture <output-file>",
	Short: "Capture incoming serial data to a file",
	Long: `Capture incoming serial data to a file for later parsing.

Reads data from the first attached CH340/CH341 bridge and writes it
directly to the output file. Runs continuously until interrupted
(Ctrl+C) or the device is unplugged.

The output file is opened in append mode, allowing you to resume
captures without overwriting existing data.

Example usage:
  ch341 capture data.log
  ch341 capture output.txt --baud 9600
  ch341 capture capture.log --console`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		outputPath := args[0]
		showConsole, _ := cmd.Flags().GetBool("console")

		if err := runCapture(cmd, outputPath, showConsole); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().IntP("baud", "b", 115200, "Baud rate")
	captureCmd.Flags().BoolP("console", "c", false, "Display incoming data on console while capturing")
}

func runCapture(cmd *cobra.Command, outputPath string, showConsole bool) error {
	drv, err := newDriver(cmd, ch341.WithBaudRate(baudOrDefault(cmd)))
	if err != nil {
		return fmt.Errorf("failed to open device: %w", err)
	}
	defer drv.Close()

	if err := drv.Open(); err != nil {
		return fmt.Errorf("failed to initialize device: %w", err)
	}

	file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer file.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	fmt.Fprintf(os.Stderr, "Capturing data at %d baud to %s\n", drv.BaudRate(), outputPath)
	if showConsole {
		fmt.Fprintf(os.Stderr, "Console display enabled\n")
	}
	fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop\n\n")

	bytesWritten := int64(0)
	startTime := time.Now()

	finish := func() {
		duration := time.Since(startTime)
		fmt.Fprintf(os.Stderr, "\nCapture complete: %d bytes written in %v\n",
			bytesWritten, duration.Round(time.Millisecond))
	}

	for {
		select {
		case <-sigChan:
			fmt.Fprintf(os.Stderr, "\nReceived interrupt signal, shutting down...\n")
			finish()
			return nil

		case ev := <-drv.Events():
			switch ev.Type {
			case ch341.EventData:
				written, err := file.Write(ev.Data)
				if err != nil {
					return fmt.Errorf("write error: %w", err)
				}
				bytesWritten += int64(written)

				if showConsole {
					os.Stdout.Write(ev.Data)
				}

			case ch341.EventDisconnected:
				fmt.Fprintf(os.Stderr, "\nDevice disconnected\n")
				finish()
				return nil

			case ch341.EventError:
				return fmt.Errorf("device error: %w", ev.Err)
			}
		}
	}
}
