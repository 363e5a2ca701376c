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
	"sync"
	"testing"
)

func TestNewRolloutEvaluator_DefaultSteps(t *testing.T) {
	if got := NewRolloutEvaluator(0).steps; got != DefaultRolloutSteps {
		t.Errorf("steps = %d, want %d", got, DefaultRolloutSteps)
	}
	if got := NewRolloutEvaluator(-3).steps; got != DefaultRolloutSteps {
		t.Errorf("steps = %d, want %d", got, DefaultRolloutSteps)
	}
	if got := NewRolloutEvaluator(25).steps; got != 25 {
		t.Errorf("steps = %d, want 25", got)
	}
}

func TestRolloutEvaluator_ConcurrentUse(t *testing.T) {
	evaluator := NewRolloutEvaluator(10)

	const numGoroutines = 32
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				evaluator.Evaluate(context.Background(), nil)
			}
		}()
	}
	wg.Wait()
}

func TestEvaluatorFunc(t *testing.T) {
	f := EvaluatorFunc(func(ctx context.Context, state any) float64 {
		return 42.0
	})
	if got := f.Evaluate(context.Background(), "anything"); got != 42.0 {
		t.Errorf("Evaluate = %f, want 42.0", got)
	}
}
