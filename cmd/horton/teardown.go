package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	horton "github.com/logimos/horton"
	"github.com/logimos/horton/internal/config"
)

var teardownCmd = &cobra.Command{
	Use:   "teardown",
	Short: "Drop every installed listener trigger and the queue table",
	RunE:  runTeardown,
}

func runTeardown(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	d, err := horton.New(horton.Config{
		Connection:      cfg.Connection,
		TableListeners:  cfg.TableListeners,
		EventQueue:      cfg.EventQueue,
		LivenessChecker: cfg.LivenessChecker,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("construct dispatcher: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := d.ConnectGatewayOnly(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	if err := d.Teardown(ctx); err != nil {
		return fmt.Errorf("teardown: %w", err)
	}

	fmt.Println("horton: teardown complete")
	return nil
}
