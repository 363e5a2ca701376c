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
	"errors"
	"math/rand"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
)

func TestNewEngine_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  SearchConfig
	}{
		{
			name: "zero simulations",
			cfg:  SearchConfig{Simulations: 0, MaxDepth: 3, ExplorationConstant: 1.0},
		},
		{
			name: "negative simulations",
			cfg:  SearchConfig{Simulations: -5, MaxDepth: 3, ExplorationConstant: 1.0},
		},
		{
			name: "zero max depth",
			cfg:  SearchConfig{Simulations: 10, MaxDepth: 0, ExplorationConstant: 1.0},
		},
		{
			name: "negative exploration constant",
			cfg:  SearchConfig{Simulations: 10, MaxDepth: 3, ExplorationConstant: -0.1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(tt.cfg)
			if err == nil {
				t.Fatal("NewEngine should reject invalid config")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestNewEngine_ZeroExplorationConstantIsValid(t *testing.T) {
	engine, err := NewEngine(SearchConfig{Simulations: 1, MaxDepth: 1, ExplorationConstant: 0})
	if err != nil {
		t.Fatalf("NewEngine rejected C=0: %v", err)
	}
	if engine == nil {
		t.Fatal("NewEngine returned nil engine")
	}
}

func TestDefaultSearchConfig(t *testing.T) {
	cfg := DefaultSearchConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got: %v", err)
	}
	if cfg.Simulations != 100 {
		t.Errorf("Simulations = %d, want 100", cfg.Simulations)
	}
	if cfg.MaxDepth != 10 {
		t.Errorf("MaxDepth = %d, want 10", cfg.MaxDepth)
	}
	if cfg.ExplorationConstant != 1.0 {
		t.Errorf("ExplorationConstant = %f, want 1.0", cfg.ExplorationConstant)
	}
}

func TestSearch_VisitConservation(t *testing.T) {
	engine, err := NewEngine(SearchConfig{Simulations: 50, MaxDepth: 3, ExplorationConstant: 1.0})
	if err != nil {
		t.Fatal(err)
	}

	result := engine.Search(context.Background(), "state", []string{"find weapon", "approach enemy", "attack"})

	// The root sits on every backpropagation path.
	if result.RootVisits != 50 {
		t.Errorf("RootVisits = %d, want 50", result.RootVisits)
	}
	if got := result.Tree.Node(result.Tree.Root()).Visits; got != 50 {
		t.Errorf("root visits in tree = %d, want 50", got)
	}
	if result.Simulations != 50 {
		t.Errorf("Simulations = %d, want 50", result.Simulations)
	}
}

func TestSearch_PlanDrawnFromActionSet(t *testing.T) {
	engine, err := NewEngine(SearchConfig{Simulations: 50, MaxDepth: 3, ExplorationConstant: 1.0})
	if err != nil {
		t.Fatal(err)
	}

	actions := []string{"find weapon", "approach enemy", "attack"}
	allowed := map[string]bool{}
	for _, a := range actions {
		allowed[a] = true
	}

	result := engine.Search(context.Background(), nil, actions)

	if len(result.Plan) == 0 {
		t.Fatal("plan should not be empty for a non-empty action set")
	}
	if len(result.Plan) > 3 {
		t.Errorf("plan length = %d, want <= max_depth 3", len(result.Plan))
	}
	for _, step := range result.Plan {
		if !allowed[step] {
			t.Errorf("plan step %q is not in the action set", step)
		}
	}
}

func TestSearch_EmptyActionsFallsBackToCandidates(t *testing.T) {
	engine, err := NewEngine(SearchConfig{Simulations: 10, MaxDepth: 3, ExplorationConstant: 1.0})
	if err != nil {
		t.Fatal(err)
	}

	result := engine.Search(context.Background(), nil, nil)

	if len(result.Plan) != 0 {
		t.Errorf("Plan = %v, want the empty candidate list back", result.Plan)
	}
	if result.Nodes != 1 {
		t.Errorf("Nodes = %d, want 1 (root only)", result.Nodes)
	}
	// Simulations still ran against the bare root.
	if result.RootVisits != 10 {
		t.Errorf("RootVisits = %d, want 10", result.RootVisits)
	}
}

func TestSearch_DepthCap(t *testing.T) {
	engine, err := NewEngine(SearchConfig{Simulations: 40, MaxDepth: 1, ExplorationConstant: 1.0})
	if err != nil {
		t.Fatal(err)
	}

	result := engine.Search(context.Background(), nil, []string{"a", "b"})

	if got := result.Tree.MaxDepth(); got != 1 {
		t.Errorf("tree MaxDepth = %d, want 1 (expansion capped)", got)
	}
	if len(result.Plan) != 1 {
		t.Errorf("plan length = %d, want 1", len(result.Plan))
	}
}

func TestSearch_DepthInvariantHolds(t *testing.T) {
	engine, err := NewEngine(SearchConfig{Simulations: 60, MaxDepth: 4, ExplorationConstant: 1.4})
	if err != nil {
		t.Fatal(err)
	}

	tree := engine.Search(context.Background(), nil, []string{"a", "b", "c"}).Tree
	for id := NodeID(0); int(id) < tree.Len(); id++ {
		node := tree.Node(id)
		if node.Parent == NoParent {
			if node.Depth != 0 {
				t.Errorf("node %d: root depth = %d, want 0", id, node.Depth)
			}
			continue
		}
		if want := tree.Node(node.Parent).Depth + 1; node.Depth != want {
			t.Errorf("node %d: depth = %d, want %d", id, node.Depth, want)
		}
	}
}

func TestSearch_ExactIterationsIgnoresCancelledContext(t *testing.T) {
	var calls atomic.Int64
	counting := EvaluatorFunc(func(ctx context.Context, state any) float64 {
		calls.Add(1)
		return 0
	})

	engine, err := NewEngine(
		SearchConfig{Simulations: 25, MaxDepth: 3, ExplorationConstant: 1.0},
		WithEvaluator(counting),
	)
	if err != nil {
		t.Fatal(err)
	}

	// A cancelled context must not shorten the fixed budget; it is only
	// forwarded to the evaluator.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := engine.Search(ctx, nil, []string{"a", "b"})

	if calls.Load() != 25 {
		t.Errorf("evaluator calls = %d, want exactly 25", calls.Load())
	}
	if result.RootVisits != 25 {
		t.Errorf("RootVisits = %d, want 25", result.RootVisits)
	}
}

func TestSearch_DuplicateActionsCollapse(t *testing.T) {
	engine, err := NewEngine(SearchConfig{Simulations: 30, MaxDepth: 2, ExplorationConstant: 1.0})
	if err != nil {
		t.Fatal(err)
	}

	result := engine.Search(context.Background(), nil, []string{"gather", "gather", "fight"})

	root := result.Tree.Node(result.Tree.Root())
	if len(root.Children) > 2 {
		t.Errorf("root grew %d children, want <= 2 distinct actions", len(root.Children))
	}
	seen := map[string]bool{}
	for _, c := range root.Children {
		action := result.Tree.Node(c).Action
		if seen[action] {
			t.Errorf("action %q represented twice under root", action)
		}
		seen[action] = true
	}
}

func TestSearch_Deterministic(t *testing.T) {
	constant := EvaluatorFunc(func(ctx context.Context, state any) float64 { return 1.0 })

	run := func() []string {
		engine, err := NewEngine(
			SearchConfig{Simulations: 40, MaxDepth: 3, ExplorationConstant: 1.0},
			WithEvaluator(constant),
			WithRand(rand.New(rand.NewSource(42))),
		)
		if err != nil {
			t.Fatal(err)
		}
		return engine.Search(context.Background(), nil, []string{"a", "b", "c"}).Plan
	}

	first := run()
	for i := 0; i < 5; i++ {
		if got := run(); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: plan %v differs from first run %v", i, got, first)
		}
	}
}

func TestSearch_StateForwardedOpaquely(t *testing.T) {
	type observation struct{ step int }
	state := &observation{step: 7}

	var sawState any
	recording := EvaluatorFunc(func(ctx context.Context, s any) float64 {
		sawState = s
		return 0
	})

	engine, err := NewEngine(
		SearchConfig{Simulations: 5, MaxDepth: 2, ExplorationConstant: 1.0},
		WithEvaluator(recording),
	)
	if err != nil {
		t.Fatal(err)
	}

	engine.Search(context.Background(), state, []string{"a"})

	if sawState != state {
		t.Errorf("evaluator saw %v, want the exact root state pointer", sawState)
	}
}

func TestEngine_ConcurrentSearches(t *testing.T) {
	engine, err := NewEngine(SearchConfig{Simulations: 20, MaxDepth: 3, ExplorationConstant: 1.0})
	if err != nil {
		t.Fatal(err)
	}

	const numGoroutines = 16
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make([]Result, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			defer wg.Done()
			results[i] = engine.Search(context.Background(), i, []string{"a", "b", "c"})
		}(i)
	}
	wg.Wait()

	for i, result := range results {
		if result.RootVisits != 20 {
			t.Errorf("search %d: RootVisits = %d, want 20", i, result.RootVisits)
		}
		if len(result.Plan) == 0 {
			t.Errorf("search %d: empty plan", i)
		}
	}
}
