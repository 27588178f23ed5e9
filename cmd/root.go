/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	ch341 "github.com/allbin/go-ch341"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ch341",
	Short: "Talk to CH340/CH341 USB-to-serial bridges",
	Long: `A command-line tool for CH340/CH341 USB-to-serial bridge chips.

Unlike a regular serial terminal this tool speaks to the bridge directly
over USB (via libusb), so it works without the kernel ch341 tty driver
and exposes the chip's vendor protocol: baud rate programming, DTR/RTS
control lines, and the raw bulk data stream.

Most commands operate on the first attached bridge. Use "ch341 list" to
see what is connected.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ch341.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log protocol diagnostics to stderr")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".ch341")
	}

	viper.SetEnvPrefix("ch341")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// baudOrDefault resolves the effective baud rate: an explicitly set
// --baud flag wins, then the config file / CH341_BAUD environment, then
// 115200.
func baudOrDefault(cmd *cobra.Command) int {
	if cmd.Flags().Changed("baud") {
		baud, _ := cmd.Flags().GetInt("baud")
		return baud
	}
	if baud := viper.GetInt("baud"); baud > 0 {
		return baud
	}
	return 115200
}

// newDriver locates the first attached bridge and builds a driver over it
func newDriver(cmd *cobra.Command, opts ...ch341.Option) (*ch341.Driver, error) {
	transport, err := ch341.OpenFirst()
	if err != nil {
		return nil, err
	}

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		opts = append(opts, ch341.WithLogger(newStderrLogger()))
	}

	drv, err := ch341.New(transport, opts...)
	if err != nil {
		transport.Close()
		return nil, err
	}
	return drv, nil
}

func newStderrLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

