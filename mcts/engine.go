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
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// SearchConfig bounds a single Monte Carlo tree search.
//
// Thread Safety: immutable after validation; safe to share.
type SearchConfig struct {
	// Simulations is the exact number of select/expand/simulate/
	// backpropagate iterations to run. The budget is fixed: a search
	// never stops early and never runs longer.
	Simulations int `json:"simulations" yaml:"simulations"`

	// MaxDepth caps expansion. Nodes at MaxDepth still participate in
	// selection and backpropagation but never grow children.
	MaxDepth int `json:"max_depth" yaml:"max_depth"`

	// ExplorationConstant is the C in UCB1. Zero is legal and means
	// pure exploitation.
	ExplorationConstant float64 `json:"exploration_constant" yaml:"exploration_constant"`
}

// DefaultSearchConfig returns the defaults used when no explicit
// configuration is supplied.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Simulations:         100,
		MaxDepth:            10,
		ExplorationConstant: 1.0,
	}
}

// Validate checks that the configuration is usable.
func (c SearchConfig) Validate() error {
	if c.Simulations < 1 {
		return fmt.Errorf("%w: mcts_simulations must be >= 1, got %d", ErrInvalidConfig, c.Simulations)
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("%w: max_depth must be >= 1, got %d", ErrInvalidConfig, c.MaxDepth)
	}
	if c.ExplorationConstant < 0 {
		return fmt.Errorf("%w: exploration_constant must be >= 0, got %g", ErrInvalidConfig, c.ExplorationConstant)
	}
	return nil
}

// Engine runs Monte Carlo tree search over an opaque root state and a
// caller-supplied candidate action set.
//
// The engine performs the classic MCTS loop:
//  1. SELECT: descend via the selection policy to a node that is not
//     fully expanded against the candidate set
//  2. EXPAND: attach one uniformly chosen unrepresented action
//  3. SIMULATE: score the node via the injected evaluator
//  4. BACKPROPAGATE: update visits and value up to the root
//
// Thread Safety: safe for concurrent use. Every Search call owns a
// private Tree, and the shared expansion RNG is mutex-guarded.
type Engine struct {
	config    SearchConfig
	policy    SelectionPolicy
	evaluator Evaluator
	logger    *slog.Logger

	// rand.Rand is not thread-safe
	rngMu sync.Mutex
	rng   *rand.Rand
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithEvaluator replaces the default random-rollout evaluator.
func WithEvaluator(evaluator Evaluator) EngineOption {
	return func(e *Engine) {
		e.evaluator = evaluator
	}
}

// WithSelectionPolicy replaces the default UCB1 policy.
func WithSelectionPolicy(policy SelectionPolicy) EngineOption {
	return func(e *Engine) {
		e.policy = policy
	}
}

// WithRand sets the RNG used to pick expansion actions. Tests pass a
// seeded source for reproducible trees.
func WithRand(rng *rand.Rand) EngineOption {
	return func(e *Engine) {
		e.rng = rng
	}
}

// NewEngine validates cfg and builds an engine.
//
// Invalid configuration fails here, at construction, never later at
// search time.
func NewEngine(cfg SearchConfig, opts ...EngineOption) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		config: cfg,
		logger: slog.Default(),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.policy == nil {
		e.policy = NewUCB1Policy(cfg.ExplorationConstant)
	}
	if e.evaluator == nil {
		e.evaluator = NewRolloutEvaluator(DefaultRolloutSteps)
	}

	if err := initMetrics(); err != nil {
		e.logger.Warn("mcts metrics unavailable", slog.String("error", err.Error()))
	}

	return e, nil
}

// Config returns the engine's search configuration.
func (e *Engine) Config() SearchConfig {
	return e.config
}

// Result is the outcome of one Search call.
type Result struct {
	// Plan is the extracted action sequence. When the root never grew a
	// child, Plan falls back to the candidate list unmodified.
	Plan []string

	// Simulations is the number of iterations run.
	Simulations int

	// Nodes is the final tree size, root included.
	Nodes int

	// RootVisits is the root's visit count. The root sits on every
	// backpropagation path, so this always equals Simulations.
	RootVisits int

	// BestValue is the average value of the first plan step, or 0 when
	// the tree is degenerate.
	BestValue float64

	// Elapsed is the wall-clock search time.
	Elapsed time.Duration

	// Tree is the frozen search tree, kept for inspection and dumps.
	Tree *Tree
}

// Search runs the full MCTS loop against rootState with actions as the
// candidate action set and extracts the most-visited path as the plan.
//
// The loop runs exactly Simulations iterations; ctx never stops the
// search early and is only forwarded to the evaluator. Textually
// identical candidate actions collapse to one action for the duration
// of the search.
func (e *Engine) Search(ctx context.Context, rootState any, actions []string) Result {
	ctx, span := tracer.Start(ctx, "Engine.Search")
	defer span.End()
	span.SetAttributes(
		attribute.Int("mcts.simulations", e.config.Simulations),
		attribute.Int("mcts.max_depth", e.config.MaxDepth),
		attribute.Int("mcts.actions", len(actions)),
	)

	start := time.Now()
	candidates := dedupeActions(actions)
	tree := NewTree(rootState)

	for i := 0; i < e.config.Simulations; i++ {
		e.runIteration(ctx, tree, candidates)
	}

	plan := tree.MostVisitedPath()
	if tree.Node(tree.Root()).IsLeaf() {
		// The root never expanded (empty action set). Hand back the
		// caller's candidates untouched rather than an empty plan.
		plan = append([]string(nil), actions...)
	}

	root := tree.Node(tree.Root())
	result := Result{
		Plan:        plan,
		Simulations: e.config.Simulations,
		Nodes:       tree.Len(),
		RootVisits:  root.Visits,
		BestValue:   bestChildValue(tree),
		Elapsed:     time.Since(start),
		Tree:        tree,
	}

	recordSearch(ctx, result, tree.MaxDepth())
	span.SetAttributes(attribute.Int("mcts.nodes", result.Nodes))
	e.logger.Info("search complete",
		slog.Int("simulations", result.Simulations),
		slog.Int("nodes", result.Nodes),
		slog.Int("plan_len", len(result.Plan)),
		slog.Float64("best_value", result.BestValue),
		slog.Duration("elapsed", result.Elapsed))

	return result
}

// runIteration performs one SELECT, EXPAND, SIMULATE, BACKPROPAGATE pass.
func (e *Engine) runIteration(ctx context.Context, tree *Tree, actions []string) {
	// 1. SELECT: descend while the node has children and is fully
	// expanded against the current candidate set. The check always uses
	// the true action set, so a node with children but untried actions
	// stops the descent and gets expanded first.
	nodeID := tree.Root()
	for {
		node := tree.Node(nodeID)
		if node.IsLeaf() {
			break
		}
		if len(tree.UnrepresentedActions(nodeID, actions)) > 0 {
			break
		}
		next, ok := e.policy.Select(tree, nodeID)
		if !ok {
			break
		}
		nodeID = next
	}

	// 2. EXPAND: attach one uniformly chosen untried action, unless the
	// depth cap or an exhausted action set forbids it. The child reuses
	// the parent's state unchanged.
	if tree.Node(nodeID).Depth < e.config.MaxDepth {
		if unrep := tree.UnrepresentedActions(nodeID, actions); len(unrep) > 0 {
			e.rngMu.Lock()
			action := unrep[e.rng.Intn(len(unrep))]
			e.rngMu.Unlock()
			nodeID = tree.AddChild(nodeID, action)
		}
	}

	// 3. SIMULATE
	value := e.evaluator.Evaluate(ctx, tree.Node(nodeID).State)

	// 4. BACKPROPAGATE: walk the parent chain up to the sentinel; the
	// root is always credited.
	for id := nodeID; id != NoParent; id = tree.Node(id).Parent {
		node := tree.Node(id)
		node.Visits++
		node.Value += value
	}
}

// bestChildValue returns the average value of the root's most-visited
// child, 0 when the root has none.
func bestChildValue(tree *Tree) float64 {
	child, ok := tree.MostVisitedChild(tree.Root())
	if !ok {
		return 0
	}
	return tree.Node(child).AvgValue()
}

// dedupeActions collapses textually identical actions, keeping first
// occurrence order.
func dedupeActions(actions []string) []string {
	if len(actions) < 2 {
		return actions
	}
	seen := make(map[string]struct{}, len(actions))
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
