// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mcts

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Evaluator estimates the long-term value of a node's state during the
// simulation phase. It is the one injection point for domain knowledge:
// a deployment plugs in an environment simulator or a learned value
// model here without touching the search loop.
//
// The context is the one passed to Search; the engine never cancels the
// search itself, but an evaluator doing real I/O should honor ctx.
//
// Thread Safety: implementations must be safe for concurrent use.
type Evaluator interface {
	Evaluate(ctx context.Context, state any) float64
}

// EvaluatorFunc adapts a plain function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, state any) float64

// Evaluate implements Evaluator.
func (f EvaluatorFunc) Evaluate(ctx context.Context, state any) float64 {
	return f(ctx, state)
}

// DefaultRolloutSteps is the length of the default random rollout.
const DefaultRolloutSteps = 10

// RolloutEvaluator is the default evaluator: a fixed-length rollout
// that sums standard normal draws. It carries no domain knowledge and
// exists so a search runs end to end before a real estimator is
// plugged in; with it, extraction is driven purely by visit counts.
//
// Thread Safety: safe for concurrent use.
type RolloutEvaluator struct {
	steps int

	// rand.Rand is not thread-safe
	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewRolloutEvaluator creates a rollout evaluator. steps <= 0 selects
// DefaultRolloutSteps.
func NewRolloutEvaluator(steps int) *RolloutEvaluator {
	if steps <= 0 {
		steps = DefaultRolloutSteps
	}
	return &RolloutEvaluator{
		steps: steps,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Evaluate implements Evaluator. The state is ignored; the rollout is a
// pure random surrogate.
func (r *RolloutEvaluator) Evaluate(ctx context.Context, state any) float64 {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()

	var total float64
	for i := 0; i < r.steps; i++ {
		total += r.rng.NormFloat64()
	}
	return total
}

var (
	_ Evaluator = (*RolloutEvaluator)(nil)
	_ Evaluator = EvaluatorFunc(nil)
)
