package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/dock108/scrolldown/internal/replay"
	"github.com/dock108/scrolldown/pkg/logger"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Drive a running server with concurrent sessions and verify every timeline",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.Init(); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg := &replay.Config{}
		flags := cmd.Flags()
		cfg.BaseURL, _ = flags.GetString("url")
		cfg.Moments, _ = flags.GetInt("moments")
		cfg.Sessions, _ = flags.GetInt("sessions")
		cfg.Prefetch, _ = flags.GetBool("prefetch")
		cfg.Timeout, _ = flags.GetDuration("timeout")
		cfg.Verbose, _ = flags.GetBool("verbose")
		if cfg.Moments < 1 || cfg.Sessions < 1 {
			return fmt.Errorf("moments and sessions must be positive")
		}

		stats, err := replay.Run(ctx, cfg)
		if stats != nil {
			printReplayStats(stats)
		}
		return err
	},
}

func init() {
	replayCmd.Flags().String("url", "http://localhost:8080", "base URL of the service")
	replayCmd.Flags().Int("moments", 200, "number of distinct moments to load")
	replayCmd.Flags().Int("sessions", runtime.NumCPU()*2, "number of concurrent sessions")
	replayCmd.Flags().Bool("prefetch", true, "prefetch each moment before loading it")
	replayCmd.Flags().Duration("timeout", 30*time.Second, "HTTP request timeout")
	replayCmd.Flags().Bool("verbose", false, "log every verified moment")
	rootCmd.AddCommand(replayCmd)
}

func printReplayStats(s *replay.Stats) {
	perSecond := 0.0
	if s.Duration > 0 {
		perSecond = float64(s.Loaded) / s.Duration.Seconds()
	}
	fmt.Fprintf(os.Stdout, "moments=%d loaded=%d failed=%d prefetched=%d duplicate=%d events=%d violations=%d duration=%s rate=%.1f/s\n",
		s.MomentsRequested, s.Loaded, s.LoadFailed, s.Prefetched, s.PrefetchDup,
		s.EventsReceived, s.Violations, s.Duration.Round(time.Millisecond), perSecond)
}

