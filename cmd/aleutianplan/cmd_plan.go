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
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianPlan/journal"
	"github.com/AleutianAI/AleutianPlan/pkg/validation"
	"github.com/AleutianAI/AleutianPlan/planner"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	planObservation string // Opaque state snapshot forwarded to the oracle
	planSession     string // Journal session ID to record the plan under
	planJSONOutput  bool   // Output as JSON
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// planCmd generates one plan for a goal.
//
// # Description
//
// Builds a planner from the loaded configuration, asks the oracle to
// decompose the goal, refines the candidates with MCTS, and prints the
// resulting action sequence. With --offline (or no configured backend)
// the subgoals come from the deterministic fallback table, so the
// command works without any model server running.
//
// # Examples
//
//	aleutianplan plan "defeat zombie" --offline
//	aleutianplan plan "collect wood" --simulations 200 --max-depth 5
//	aleutianplan plan "survive" -o "health=3, night, no shelter" --json
//	aleutianplan plan "explore" --session demo   # journal under session "demo"
var planCmd = &cobra.Command{
	Use:   "plan [goal]",
	Short: "Decompose a goal into subgoals and refine them into an ordered plan",
	Long: `Generates an ordered action plan for a goal.

The oracle proposes candidate subgoals (from the configured backend, or
from the built-in fallback table with --offline), and a Monte Carlo tree
search refines them into the sequence with the strongest visit statistics.

Exits non-zero when no plan could be produced (planning disabled, or the
goal yielded no subgoals).`,
	Args: cobra.MinimumNArgs(1),
	Run:  runPlanCommand,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	planCmd.Flags().StringVarP(&planObservation, "observation", "o", "",
		"Opaque state snapshot appended to the oracle prompt (never interpreted)")
	planCmd.Flags().StringVar(&planSession, "session", "",
		"Record the plan in the journal under this session ID (requires journal.path)")
	planCmd.Flags().BoolVar(&planJSONOutput, "json", false,
		"Output as JSON for scripting")
	registerSearchFlags(planCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runPlanCommand(cmd *cobra.Command, args []string) {
	goal := strings.Join(args, " ")
	applySearchOverrides(cmd)

	opts := []planner.Option{planner.WithLogger(appLogger.Slog())}

	if planSession != "" {
		jnl := openSessionJournal(planSession)
		defer jnl.Close()
		opts = append(opts, planner.WithJournal(jnl))
	}

	p, err := planner.New(cfg, opts...)
	if err != nil {
		fatalf("Failed to build planner: %v", err)
	}
	defer p.Close()

	var observation any
	if planObservation != "" {
		observation = planObservation
	}

	plan := p.Plan(cmd.Context(), observation, goal)

	if planJSONOutput {
		printJSON(planOutput{Goal: goal, Plan: plan, Steps: len(plan)})
	} else {
		fmt.Print(formatPlan(goal, plan))
	}

	// Exit non-zero when planning degenerated to no plan.
	if len(plan) == 0 {
		os.Exit(1)
	}
}

// openSessionJournal opens the configured journal under an explicit
// session ID so repeated invocations append to one history.
func openSessionJournal(session string) *journal.BadgerJournal {
	if cfg.Journal.Path == "" && !cfg.Journal.InMemory {
		fatalf("--session requires journal.path in the configuration (or PLANNER_JOURNAL_PATH)")
	}

	session, err := validation.SanitizeSessionID(session)
	if err != nil {
		fatalf("Invalid --session value: %v", err)
	}

	jcfg := journal.DefaultConfig()
	jcfg.Path = cfg.Journal.Path
	jcfg.SessionID = session
	jcfg.InMemory = cfg.Journal.InMemory
	jcfg.AllowDegraded = true
	jcfg.Logger = appLogger.Slog()

	jnl, err := journal.NewBadgerJournal(jcfg)
	if err != nil {
		fatalf("Failed to open journal: %v", err)
	}
	return jnl
}

// =============================================================================
// OUTPUT FORMATTING
// =============================================================================

// planOutput is the JSON shape of one issued plan.
type planOutput struct {
	Goal  string   `json:"goal"`
	Plan  []string `json:"plan"`
	Steps int      `json:"steps"`
}

// formatPlan renders a plan as a numbered list for terminal output.
func formatPlan(goal string, plan []string) string {
	if len(plan) == 0 {
		return fmt.Sprintf("No plan available for %q.\n", goal)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Plan for %q (%d steps):\n", goal, len(plan))
	for i, action := range plan {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, action)
	}
	return sb.String()
}
