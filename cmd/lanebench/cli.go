// ============================================================================
// lanebench - a demonstration harness for the Blocking Lane Core
// ============================================================================
//
// lanebench builds a Lane from a YAML config, fires a burst of synthetic
// jobs at it, and prints the resulting metrics snapshot. It is not part of
// the core's public surface; it exists the way the teacher's cmd/demo and
// internal/cli existed, as the ambient entry point every derived repo
// carries (spec.md §9's Non-goals exclude CLI entry points from the core's
// *subject*, not from its ambient texture).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ChuLiYu/lanecore/internal/abandoning"
	"github.com/ChuLiYu/lanecore/internal/threads"
	"github.com/ChuLiYu/lanecore/pkg/lane"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configFile string

func buildCLI() *cobra.Command {
	root := &cobra.Command{
		Use:     "lanebench",
		Short:   "Synthetic load generator for the Blocking Lane Core",
		Version: "0.1.0",
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "config file path")
	root.AddCommand(buildBenchCommand())
	return root
}

func buildBenchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bench",
		Short: "Build a lane from config and fire a burst of synthetic jobs at it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench()
		},
	}
}

func buildLane(cfg *Config) (lane.Lane, error) {
	strategy := lane.StrategyWait
	if cfg.Lane.Strategy == "failFast" {
		strategy = lane.StrategyFailFast
	}
	scheduling := lane.SchedulingFIFO
	if cfg.Lane.Scheduling == "lifo" {
		scheduling = lane.SchedulingLIFO
	}

	switch cfg.Lane.Kind {
	case "abandoning":
		return lane.Abandoning(abandoning.Options{
			WorkersInitial:             cfg.Lane.Workers,
			WorkersMax:                 cfg.Lane.WorkersMax,
			ExecutionTimeout:           cfg.Lane.ExecutionTimeout,
			LaneQueueLimit:             cfg.Lane.QueueLimit,
			LaneAcceptanceWaitersLimit: cfg.Lane.WaitersLimit,
			Strategy:                   strategy,
			Scheduling:                 scheduling,
		}), nil
	case "threads", "":
		return lane.Threads(threads.Options{
			Workers:                    cfg.Lane.Workers,
			LaneQueueLimit:             cfg.Lane.QueueLimit,
			LaneAcceptanceWaitersLimit: cfg.Lane.WaitersLimit,
			Strategy:                   threads.Strategy(strategy),
			Scheduling:                 threads.Scheduling(scheduling),
		}), nil
	default:
		return lane.Lane{}, fmt.Errorf("unknown lane kind %q", cfg.Lane.Kind)
	}
}

func runBench() error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	logger := log.With().Str("component", "lanebench").Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	l, err := buildLane(cfg)
	if err != nil {
		return err
	}
	defer l.Shutdown()

	if cfg.Metrics.Enabled {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
			logger.Info().Str("addr", addr).Msg("metrics server listening")
			if err := http.ListenAndServe(addr, nil); err != nil {
				logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	logger.Info().
		Str("kind", cfg.Lane.Kind).
		Int("jobs", cfg.Bench.Jobs).
		Msg("starting burst")

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < cfg.Bench.Jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = lane.RunValue(context.Background(), l, lane.NoDeadline, func() int {
				if cfg.Bench.JobDuration > 0 {
					time.Sleep(cfg.Bench.JobDuration)
				}
				return 0
			})
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	printSummary(cfg, l, elapsed)

	if cfg.Metrics.Enabled {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		logger.Info().Msg("bench complete; metrics server still running, ctrl-C to exit")
		<-sigCh
	}
	return nil
}

func printSummary(cfg *Config, l lane.Lane, elapsed time.Duration) {
	snap := l.Metrics()
	fmt.Println()
	fmt.Println("=== lanebench summary ===")
	fmt.Printf("lane kind:          %s\n", cfg.Lane.Kind)
	fmt.Printf("jobs submitted:     %d\n", cfg.Bench.Jobs)
	fmt.Printf("wall time:          %s\n", elapsed)
	fmt.Printf("enqueued total:     %d\n", snap.EnqueuedTotal)
	fmt.Printf("completed total:    %d\n", snap.CompletedTotal)
	fmt.Printf("fail-fast total:    %d\n", snap.FailFastTotal)
	fmt.Printf("overloaded total:   %d\n", snap.OverloadedTotal)
	fmt.Printf("cancelled total:    %d\n", snap.CancelledTotal)
	fmt.Printf("timed-out total:    %d\n", snap.TimedOutTotal)
	if snap.Execution.Count > 0 {
		avg := time.Duration(snap.Execution.SumNs / snap.Execution.Count)
		fmt.Printf("execution avg/min/max: %s / %s / %s\n",
			avg, time.Duration(snap.Execution.MinNs), time.Duration(snap.Execution.MaxNs))
	}
	if snap.WorkersSpawned > 0 {
		fmt.Printf("workers spawned/active/abandoned: %d / %d / %d\n",
			snap.WorkersSpawned, snap.WorkersActive, snap.WorkersAbandoned)
	}
}
