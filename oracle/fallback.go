// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package oracle

import (
	"context"
	"strings"
)

// fallbackRule pairs a goal keyword with its canned decomposition.
type fallbackRule struct {
	keyword  string
	subgoals []string
}

// fallbackRules is matched top to bottom; the first keyword contained in
// the goal (case-insensitive) wins. Keywords must stay lowercase.
var fallbackRules = []fallbackRule{
	{"survive", []string{"find food", "find shelter", "avoid enemies", "maintain health"}},
	{"collect wood", []string{"find trees", "chop wood", "gather resources", "return to base"}},
	{"make wood_pickaxe", []string{"collect wood", "find workbench", "craft pickaxe", "test tool"}},
	{"place furnace", []string{"collect stone", "find location", "place building", "verify placement"}},
	{"defeat zombie", []string{"find weapon", "approach enemy", "attack", "retreat if needed"}},
	{"explore", []string{"move around", "map area", "find resources", "avoid danger"}},
}

// defaultSubgoals is returned when no rule matches the goal.
var defaultSubgoals = []string{"explore environment", "gather resources", "avoid danger", "complete objective"}

// FallbackOracle answers every request from a fixed rule table. It is the
// last line of the fail-closed contract: pure, deterministic, and unable
// to fail. RemoteOracle routes here whenever its backend lets it down,
// and the planner uses it directly when subgoal generation is disabled.
//
// Thread Safety: safe for concurrent use; it holds no mutable state.
type FallbackOracle struct{}

// NewFallbackOracle creates the rule-table oracle.
func NewFallbackOracle() *FallbackOracle {
	return &FallbackOracle{}
}

// GenerateSubgoals returns the fixed list for the first rule whose
// keyword appears in goal, or the generic default when none matches.
// The result is a fresh copy; callers may keep or mutate it.
func (o *FallbackOracle) GenerateSubgoals(_ context.Context, goal string, _ any) []string {
	needle := strings.ToLower(goal)
	for _, rule := range fallbackRules {
		if strings.Contains(needle, rule.keyword) {
			return append([]string(nil), rule.subgoals...)
		}
	}
	return append([]string(nil), defaultSubgoals...)
}

// AnalyzeTask returns the fixed medium-complexity analysis.
func (o *FallbackOracle) AnalyzeTask(_ context.Context, task string) TaskAnalysis {
	return TaskAnalysis{
		Task:           task,
		Rationale:      "Basic task analysis",
		Complexity:     ComplexityMedium,
		EstimatedSteps: 3,
	}
}

var _ Oracle = (*FallbackOracle)(nil)
