package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/logimos/horton/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file without connecting to the database",
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Printf("config is valid\n")
	fmt.Printf("  prefix: %s\n", cfg.Connection.Prefix)
	fmt.Printf("  table listeners: %d\n", len(cfg.TableListeners))
	for table, listener := range cfg.TableListeners {
		fmt.Printf("    %s: %v\n", table, listener.Operations)
	}

	return nil
}
