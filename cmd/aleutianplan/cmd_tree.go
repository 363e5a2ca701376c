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
	"math/rand"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianPlan/mcts"
	"github.com/AleutianAI/AleutianPlan/planner"
)

var (
	treeObservation string
	treeSeed        int64
)

// treeCmd runs one search and dumps the resulting tree. It composes the
// same oracle and engine the planner uses, but keeps the frozen tree
// around for inspection instead of discarding it with the search call.
//
// With --seed the expansion order is reproducible, which makes the dump
// useful for comparing exploration constants:
//
//	aleutianplan tree "defeat zombie" --offline --seed 7 --exploration 0.5
//	aleutianplan tree "defeat zombie" --offline --seed 7 --exploration 2.0
var treeCmd = &cobra.Command{
	Use:   "tree [goal]",
	Short: "Run one search for a goal and dump the visit statistics tree",
	Args:  cobra.MinimumNArgs(1),
	Run:   runTreeCommand,
}

func init() {
	treeCmd.Flags().StringVarP(&treeObservation, "observation", "o", "",
		"Opaque state snapshot appended to the oracle prompt (never interpreted)")
	treeCmd.Flags().Int64Var(&treeSeed, "seed", 0,
		"Seed for expansion randomness (reproducible trees)")
	registerSearchFlags(treeCmd)
}

func runTreeCommand(cmd *cobra.Command, args []string) {
	goal := strings.Join(args, " ")
	applySearchOverrides(cmd)

	logger := appLogger.Slog()

	var observation any
	if treeObservation != "" {
		observation = treeObservation
	}

	subgoals := planner.NewOracle(cfg, logger).GenerateSubgoals(cmd.Context(), goal, observation)
	if max := cfg.SubgoalGeneration.MaxSubgoals; len(subgoals) > max {
		subgoals = subgoals[:max]
	}
	if len(subgoals) == 0 {
		fatalf("No subgoals produced for goal %q", goal)
	}

	engineOpts := []mcts.EngineOption{mcts.WithLogger(logger)}
	if cmd.Flags().Changed("seed") {
		engineOpts = append(engineOpts, mcts.WithRand(rand.New(rand.NewSource(treeSeed))))
	}
	engine, err := mcts.NewEngine(cfg.SearchConfig(), engineOpts...)
	if err != nil {
		fatalf("Failed to build search engine: %v", err)
	}

	result := engine.Search(cmd.Context(), observation, subgoals)

	fmt.Printf("Goal:    %s\n", goal)
	fmt.Printf("Actions: %s\n\n", strings.Join(subgoals, ", "))
	fmt.Print(result.Tree.Format())
	fmt.Printf("\nPlan (%d steps, best value %.2f, %v):\n",
		len(result.Plan), result.BestValue, result.Elapsed.Round(time.Millisecond))
	for i, action := range result.Plan {
		fmt.Printf("  %d. %s\n", i+1, action)
	}
}
