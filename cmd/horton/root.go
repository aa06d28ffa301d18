// Package cmd implements the CLI: run, teardown, and validate
// subcommands over a Dispatcher configured from a YAML file.
//
// Grounded on the teacher's cmd/conduktr.go (cobra root command +
// persistent --config flag + viper-backed initConfig, run/validate
// subcommands) almost structurally verbatim in control flow, entirely
// rewritten in content: no workflow-YAML loading, no dashboards —
// Dispatcher lifecycle instead.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "horton",
	Short: "Change data capture for PostgreSQL-compatible databases",
	Long:  "horton watches tables for row changes via triggers and LISTEN/NOTIFY and delivers them to in-process handlers exactly once.",
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "horton.yaml", "path to the horton configuration file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(teardownCmd)
	rootCmd.AddCommand(validateCmd)
}

func initConfig() {
	viper.SetConfigFile(cfgFile)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	var err error
	logger, err = zap.NewProduction()
	if err != nil {
		panic(err)
	}
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}
