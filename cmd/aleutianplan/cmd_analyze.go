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
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianPlan/planner"
)

var analyzeJSONOutput bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze [task]",
	Short: "Estimate a task's complexity and step count",
	Long: `Asks the oracle to analyze a task and prints the structured result:
a rationale, a complexity class (simple/medium/complex), and an estimated
step count. With --offline the fixed fallback analysis is returned.`,
	Args: cobra.MinimumNArgs(1),
	Run:  runAnalyzeCommand,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSONOutput, "json", false,
		"Output as JSON for scripting")
}

func runAnalyzeCommand(cmd *cobra.Command, args []string) {
	task := strings.Join(args, " ")

	analysis := planner.NewOracle(cfg, appLogger.Slog()).AnalyzeTask(cmd.Context(), task)

	if analyzeJSONOutput {
		printJSON(analysis)
		return
	}

	fmt.Printf("Task:       %s\n", analysis.Task)
	fmt.Printf("Complexity: %s\n", analysis.Complexity)
	fmt.Printf("Steps:      %d\n", analysis.EstimatedSteps)
	fmt.Printf("Rationale:  %s\n", analysis.Rationale)
}
