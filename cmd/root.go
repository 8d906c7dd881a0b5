package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmizin/computer-inventory/internal/model"
)

var (
	cfgFile string
	debug   bool
	trace   bool
)

var rootCmd = &cobra.Command{
	Use:   "inventory",
	Short: "computer asset inventory service with vault credential mirroring",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func logLevel() int {
	switch {
	case trace:
		return model.LogLevelTrace
	case debug:
		return model.LogLevelDebug
	default:
		return model.LogLevelInfo
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration YAML file")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&trace, "trace", "t", false, "Enable trace logging")
}
