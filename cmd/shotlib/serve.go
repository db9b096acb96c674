package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gorkemtikic/shotlib/internal/analytics"
	"github.com/gorkemtikic/shotlib/internal/daemon"
	"github.com/gorkemtikic/shotlib/internal/dashboard"
	"github.com/gorkemtikic/shotlib/internal/ui"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "service",
	Short:   "Run the watch daemon and local dashboard (foreground)",
	Long: `Run the background services in the foreground:

  1. Seed the working copy from the remote library
  2. Watch the working copy and push edits with debouncing
  3. Refresh the local view from the raw host periodically
  4. Serve the dashboard (stats + live events) on localhost

Press Ctrl+C to stop. For unattended use, run under a process manager
and set log_file in the config so output rotates.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		dcfg := daemon.DefaultConfig()
		dcfg.RefreshInterval = a.cfg.Daemon.Refresh()
		dcfg.DebounceInterval = a.cfg.Daemon.Debounce()
		dcfg.LogFile = a.cfg.LogFile
		if a.cfg.LogFile != "" {
			dcfg.Logger = nil // route through the rotated file
		} else if verbose {
			dcfg.Logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
		}

		srv, err := dashboard.NewServer(&dashboard.Config{
			Port:   a.cfg.Dashboard.Port,
			Logger: a.logger,
			Stats: func() analytics.LibraryStats {
				interactions, _ := a.analytics.FetchInteractionStats(ctx)
				return analytics.ComputeLibraryStats(a.store.Items(), a.store.Feedbacks(), interactions)
			},
		})
		if err != nil {
			return err
		}

		dcfg.Events = dashboard.NewNotifier(srv)
		d, err := daemon.New(a.coord, a.store, a.cfg.WorkingDataPath(), a.cfg.WorkingFeedbacksPath(), dcfg)
		if err != nil {
			return err
		}

		if err := a.load(ctx); err != nil {
			return err
		}
		if err := d.WriteWorkingCopy(); err != nil {
			return err
		}

		if err := srv.Start(); err != nil {
			return err
		}
		defer func() {
			if err := srv.Stop(); err != nil {
				fmt.Fprintf(os.Stderr, "Dashboard shutdown: %v\n", err)
			}
		}()

		fmt.Printf("%s Watching %s\n", ui.RenderAccent("▶"), a.cfg.Paths.WorkingDir)
		fmt.Printf("%s Dashboard at http://%s\n", ui.RenderAccent("▶"), srv.GetAddr())
		fmt.Printf("\nPress Ctrl+C to stop\n\n")

		runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		start := time.Now()
		err = d.Start(runCtx)
		fmt.Printf("%s Stopped after %v\n", ui.RenderDim("■"), time.Since(start).Round(time.Second))
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
