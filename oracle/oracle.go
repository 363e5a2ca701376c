// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package oracle decomposes goals into candidate subgoals and performs
// lightweight task analysis. Two interchangeable variants implement the
// capability: RemoteOracle asks a text-generation backend and degrades
// gracefully, FallbackOracle answers from a fixed rule table.
//
// The contract is fail-closed: no method returns an error, and no backend
// failure is ever surfaced to callers. Whatever goes wrong, the caller
// gets a deterministic local answer and planning proceeds.
package oracle

import "context"

// MaxSubgoals caps every subgoal list an oracle produces. Backend output
// is truncated to this many entries and the fallback table never exceeds
// it either.
const MaxSubgoals = 5

// Complexity is a coarse difficulty classification for a task.
type Complexity string

const (
	// ComplexitySimple covers tasks with short, direct rationales.
	ComplexitySimple Complexity = "simple"

	// ComplexityMedium covers tasks needing a handful of steps.
	ComplexityMedium Complexity = "medium"

	// ComplexityComplex covers tasks with long multi-step rationales.
	ComplexityComplex Complexity = "complex"
)

// TaskAnalysis is the structured result of analyzing a single task.
type TaskAnalysis struct {
	// Task echoes the analyzed task text.
	Task string `json:"task"`

	// Rationale is the free-text reasoning behind the estimates.
	Rationale string `json:"rationale"`

	// Complexity classifies the task by the length of its rationale.
	Complexity Complexity `json:"complexity"`

	// EstimatedSteps is the predicted number of actions, in [2, 6].
	EstimatedSteps int `json:"estimated_steps"`
}

// Oracle converts a goal description into an ordered list of subgoal
// strings and analyzes tasks into a TaskAnalysis.
//
// Implementations MUST NOT propagate failures: on backend errors,
// timeouts, or unusable responses they return a deterministic local
// result instead. The planner depends on this to never fail a planning
// call on oracle trouble.
//
// Thread Safety: implementations must document whether they are safe
// for concurrent use; the planner shares one instance across calls.
type Oracle interface {
	// GenerateSubgoals returns at most MaxSubgoals ordered subgoal
	// descriptions for goal. state is an opaque snapshot that a variant
	// may render into its prompt; it is never interpreted or mutated.
	GenerateSubgoals(ctx context.Context, goal string, state any) []string

	// AnalyzeTask returns a structured estimate of what task requires.
	AnalyzeTask(ctx context.Context, task string) TaskAnalysis
}
