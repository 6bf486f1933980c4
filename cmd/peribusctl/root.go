package main

import (
	"errors"

	"github.com/arloliu/go-peribus/config"
	"github.com/arloliu/go-peribus/logger"
	"github.com/spf13/cobra"
)

var (
	portName   string
	baudRate   int
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "peribusctl",
	Short: "Peripheral bus command tool",
	Long: `peribusctl talks to peripheral controllers sharing a half-duplex serial bus.

Settings come from the YAML file given with --config; --port, --baud and
--log-level override the file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

var errNoPort = errors.New("no serial port given, use --port or set port in the config file")

// resolveConfig loads the configuration file, applies the flags the user
// set explicitly and configures the global logger.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Defaults()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = portName
	}
	if flags.Changed("baud") {
		cfg.Baud = baudRate
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, _ := cfg.Level()
	logger.SetLevel(level)

	return cfg, nil
}
