package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	horton "github.com/logimos/horton"
	"github.com/logimos/horton/internal/adminapi"
	"github.com/logimos/horton/internal/audit"
	"github.com/logimos/horton/internal/config"
)

var (
	adminAddr string
	auditDir  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to the database and start dispatching row changes",
	RunE:  runDaemon,
}

func init() {
	runCmd.Flags().StringVar(&adminAddr, "admin-addr", "", "address for the optional admin HTTP API (disabled if empty)")
	runCmd.Flags().StringVar(&auditDir, "audit-dir", "", "directory for the optional JSON delivery audit trail (disabled if empty)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
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

	var admin *adminapi.Server
	if adminAddr != "" {
		admin = adminapi.New(adminAddr, logger)
		d.OnHealth(admin.ObserveHealth)
		admin.Start()
	}

	if auditDir != "" {
		trail, err := audit.New(auditDir)
		if err != nil {
			return fmt.Errorf("construct audit trail: %w", err)
		}
		for table := range cfg.TableListeners {
			d.OnAny(table, trail.Handler())
		}
	}

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer connectCancel()

	if err := d.Connect(connectCtx, true); err != nil {
		return fmt.Errorf("connect dispatcher: %w", err)
	}

	logger.Info("horton daemon started", zap.Int("tables", len(cfg.TableListeners)))

	pollCtx, pollCancel := context.WithCancel(context.Background())
	defer pollCancel()
	if admin != nil {
		go pollQueueDepth(pollCtx, d, admin)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down horton daemon...")
	pollCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if admin != nil {
		if err := admin.Stop(shutdownCtx); err != nil {
			logger.Warn("admin api shutdown failed", zap.Error(err))
		}
	}

	return d.Disconnect(shutdownCtx, 5*time.Second)
}

// pollQueueDepth periodically reports the Event Queue's row count to
// the admin API until ctx is cancelled.
func pollQueueDepth(ctx context.Context, d *horton.Dispatcher, admin *adminapi.Server) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			depth, err := d.QueueDepth(ctx)
			if err != nil {
				logger.Warn("admin api: queue depth poll failed", zap.Error(err))
				continue
			}
			admin.ObserveQueueStats(adminapi.QueueStats{PendingRows: depth, AsOf: time.Now()})
		}
	}
}
