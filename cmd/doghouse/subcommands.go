package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/3cpo-dev/doghouse/internal/config"
	"github.com/3cpo-dev/doghouse/internal/daemon"
	"github.com/3cpo-dev/doghouse/internal/history"
	"github.com/3cpo-dev/doghouse/internal/probe"
)

// Load config and build the daemon
func resolveDaemon(cmd *cobra.Command) (*daemon.Daemon, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return daemon.New(cfg, probe.NewRegistry(), log.Logger)
}

// Run the supervision loop
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Supervise the configured watchdogs until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolveDaemon(cmd)
			if err != nil {
				return err
			}
			defer d.Close()
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := d.Run(ctx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}
}

// Run one probe pass and one sweep
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Probe and sweep once; exit 1 if a watchdog starved",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolveDaemon(cmd)
			if err != nil {
				return err
			}
			defer d.Close()
			if barking := d.CheckOnce(cmd.Context()); barking != nil {
				return fmt.Errorf("watchdog %s has starved", barking.Name())
			}
			fmt.Println("all watchdogs healthy")
			return nil
		},
	}
}

// Print the bark journal
func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent watchdog starvations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if cfg.History == "" {
				return fmt.Errorf("no history path configured")
			}
			limit, _ := cmd.Flags().GetInt("limit")
			s, err := history.Open(cfg.History)
			if err != nil {
				return err
			}
			defer s.Close()
			events, err := s.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, e := range events {
				recovered := "unrecovered"
				if e.Recovered {
					recovered = "recovered"
				}
				fmt.Printf("%s\t%s\t%s\t%s\n", e.BarkedAt.Local().Format("2006-01-02 15:04:05"), e.Dog, e.Kind, recovered)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "maximum number of events to show")
	return cmd
}
