// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianPlan/pkg/logging"
	"github.com/AleutianAI/AleutianPlan/planner"
	"github.com/AleutianAI/AleutianPlan/telemetry"
)

// --- Global Command Variables ---
var (
	cfgPath string
	offline bool
	quiet   bool
	verbose bool

	// Search overrides shared by the plan and tree commands. Only flags
	// the user actually set are folded over the loaded configuration.
	searchSimulations int
	searchMaxDepth    int
	searchExploration float64
	searchMaxSubgoals int

	// cfg is loaded in the root PersistentPreRun, before any command runs.
	cfg planner.Config

	appLogger         *logging.Logger
	telemetryShutdown func(context.Context) error

	rootCmd = &cobra.Command{
		Use:   "aleutianplan",
		Short: "Hierarchical planning from the command line",
		Long: `AleutianPlan decomposes goals into candidate subgoals with a pluggable
oracle (a local Ollama model, an OpenAI-compatible endpoint, or a
deterministic fallback table) and refines them into ordered plans with
Monte Carlo tree search.`,
		Version:           "1.0.0",
		PersistentPreRun:  setupCommand,
		PersistentPostRun: teardownCommand,
	}
)

// init wires the global flags and the command tree. Per-command flags
// live next to their command definitions in the cmd_*.go files.
func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "",
		"Path to a YAML or JSON config file (defaults plus PLANNER_* env vars apply either way)")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false,
		"Skip the remote oracle backend and answer from the deterministic fallback table")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"Only log errors on stderr")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(historyCmd)
}

// setupCommand runs before every command: logging first, then
// configuration, then telemetry. Results go to stdout and logs to
// stderr, so piped output stays clean.
func setupCommand(cmd *cobra.Command, args []string) {
	level := logging.LevelInfo
	if verbose {
		level = logging.LevelDebug
	}
	if quiet {
		level = logging.LevelError
	}
	appLogger = logging.New(logging.Config{
		Level:   level,
		Service: "aleutianplan",
	})
	// Library packages default to slog.Default when no logger is injected.
	slog.SetDefault(appLogger.Slog())

	var err error
	cfg, err = planner.LoadConfig(cfgPath)
	if err != nil {
		fatalf("Invalid configuration: %v", err)
	}
	if offline {
		cfg.Oracle.Backend = ""
	}

	// Exporters default to "none"; OTEL_TRACES_EXPORTER / OTEL_METRICS_EXPORTER
	// environment variables turn them on.
	shutdown, err := telemetry.Init(cmd.Context(), telemetry.DefaultConfig())
	if err != nil {
		appLogger.Warn("telemetry init failed, continuing without exporters", "error", err)
		return
	}
	telemetryShutdown = shutdown
}

// teardownCommand flushes telemetry and the log file after a command
// completes. Commands that exit through fatalf skip it, which is fine:
// nothing buffered matters on an error path.
func teardownCommand(cmd *cobra.Command, args []string) {
	if telemetryShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetryShutdown(ctx); err != nil {
			appLogger.Warn("telemetry shutdown failed", "error", err)
		}
	}
	if appLogger != nil {
		appLogger.Close()
	}
}

// applySearchOverrides folds the search flags the user set over the
// loaded configuration. Out-of-range values are caught by the planner's
// fail-fast validation, not here.
func applySearchOverrides(cmd *cobra.Command) {
	if cmd.Flags().Changed("simulations") {
		cfg.MCTSSimulations = searchSimulations
	}
	if cmd.Flags().Changed("max-depth") {
		cfg.MaxDepth = searchMaxDepth
	}
	if cmd.Flags().Changed("exploration") {
		cfg.ExplorationConstant = searchExploration
	}
	if cmd.Flags().Changed("max-subgoals") {
		cfg.SubgoalGeneration.MaxSubgoals = searchMaxSubgoals
	}
}

// registerSearchFlags adds the shared search flags to a command.
func registerSearchFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&searchSimulations, "simulations", 100,
		"MCTS iteration budget per search")
	cmd.Flags().IntVar(&searchMaxDepth, "max-depth", 10,
		"Maximum search tree depth")
	cmd.Flags().Float64Var(&searchExploration, "exploration", 1.0,
		"UCB1 exploration constant (0 = pure exploitation)")
	cmd.Flags().IntVar(&searchMaxSubgoals, "max-subgoals", 5,
		"Cap on candidate subgoals handed to the search")
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fatalf("Failed to encode JSON: %v", err)
	}
}

// fatalf prints an error to stderr and exits non-zero. Command results
// print to stdout; diagnostics stay on stderr.
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
