//go:build ignore

// Test script to exercise the full planning pipeline.
// Run with: go run scripts/test_planner.go
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/AleutianAI/AleutianPlan/journal"
	"github.com/AleutianAI/AleutianPlan/mcts"
	"github.com/AleutianAI/AleutianPlan/oracle"
	"github.com/AleutianAI/AleutianPlan/planner"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Println("╔══════════════════════════════════════════════════════════════════╗")
	fmt.Println("║              PLANNING PIPELINE INTEGRATION TEST                   ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════════╝")

	// 1. Fallback oracle (no model server required)
	fmt.Println("\n┌─────────────────────────────────────────────────────────────────┐")
	fmt.Println("│ Step 1: Fallback Oracle (deterministic rule table)              │")
	fmt.Println("└─────────────────────────────────────────────────────────────────┘")
	fb := oracle.NewFallbackOracle()

	analysis := fb.AnalyzeTask(ctx, "defeat zombie")
	fmt.Printf("  ✓ Task analysis: complexity=%s steps=%d\n", analysis.Complexity, analysis.EstimatedSteps)

	subgoals := fb.GenerateSubgoals(ctx, "defeat zombie", nil)
	fmt.Printf("  ✓ Subgoals (%d):\n", len(subgoals))
	for i, sg := range subgoals {
		fmt.Printf("    %d. %s\n", i+1, sg)
	}

	// 2. Seeded MCTS search over the subgoals
	fmt.Println("\n┌─────────────────────────────────────────────────────────────────┐")
	fmt.Println("│ Step 2: MCTS Search (seeded, reproducible)                      │")
	fmt.Println("└─────────────────────────────────────────────────────────────────┘")
	engine, err := mcts.NewEngine(mcts.SearchConfig{
		Simulations:         60,
		MaxDepth:            3,
		ExplorationConstant: 1.0,
	}, mcts.WithRand(rand.New(rand.NewSource(42))))
	if err != nil {
		log.Fatalf("  ✗ NewEngine failed: %v", err)
	}

	result := engine.Search(ctx, nil, subgoals)
	fmt.Printf("  ✓ Simulations: %d\n", result.Simulations)
	fmt.Printf("  ✓ Tree nodes: %d\n", result.Nodes)
	fmt.Printf("  ✓ Root visits: %d\n", result.RootVisits)
	fmt.Printf("  ✓ Best value: %.3f\n", result.BestValue)
	fmt.Printf("  ✓ Elapsed: %v\n", result.Elapsed.Round(time.Microsecond))
	fmt.Printf("  ✓ Plan: %v\n", result.Plan)

	// 3. Tree inspection
	fmt.Println("\n┌─────────────────────────────────────────────────────────────────┐")
	fmt.Println("│ Step 3: Search Tree Dump                                        │")
	fmt.Println("└─────────────────────────────────────────────────────────────────┘")
	fmt.Print(result.Tree.Format())

	// 4. Full planner with an in-memory journal
	fmt.Println("\n┌─────────────────────────────────────────────────────────────────┐")
	fmt.Println("│ Step 4: Planner with Journal (plan / replan cycle)              │")
	fmt.Println("└─────────────────────────────────────────────────────────────────┘")
	jcfg := journal.DefaultConfig()
	jcfg.SessionID = "pipeline-test"
	jcfg.InMemory = true
	jcfg.SyncWrites = false
	jnl, err := journal.NewBadgerJournal(jcfg)
	if err != nil {
		log.Fatalf("  ✗ NewBadgerJournal failed: %v", err)
	}

	cfg := planner.DefaultConfig()
	cfg.Oracle.Backend = "" // force the fallback table
	cfg.MCTSSimulations = 60
	cfg.MaxDepth = 3

	p, err := planner.New(cfg, planner.WithJournal(jnl))
	if err != nil {
		log.Fatalf("  ✗ planner.New failed: %v", err)
	}

	plan := p.Plan(ctx, nil, "collect wood")
	if len(plan) == 0 {
		log.Fatalf("  ✗ Plan returned no steps")
	}
	fmt.Printf("  ✓ Initial plan (%d steps): %v\n", len(plan), plan)

	replanned := p.UpdatePlan(ctx, nil, plan[0], -1.0)
	if len(replanned) == 0 {
		log.Fatalf("  ✗ UpdatePlan did not replan on negative reward")
	}
	fmt.Printf("  ✓ Negative reward on %q → replanned (%d steps): %v\n", plan[0], len(replanned), replanned)

	kept := p.UpdatePlan(ctx, nil, replanned[0], 1.0)
	fmt.Printf("  ✓ Positive reward on %q → plan kept: %v\n", replanned[0], kept == nil)

	if err := p.Close(); err != nil {
		log.Fatalf("  ✗ planner.Close failed: %v", err)
	}

	// 5. Journal replay
	fmt.Println("\n┌─────────────────────────────────────────────────────────────────┐")
	fmt.Println("│ Step 5: Journal Replay (audit trail)                            │")
	fmt.Println("└─────────────────────────────────────────────────────────────────┘")
	records, err := jnl.Replay(ctx)
	if err != nil {
		log.Fatalf("  ✗ Replay failed: %v", err)
	}
	fmt.Printf("  ✓ Records: %d\n", len(records))
	for _, rec := range records {
		switch r := rec.(type) {
		case *journal.PlanRecord:
			fmt.Printf("    - plan   trigger=%-7s goal=%q steps=%d\n", r.Trigger, r.Goal, len(r.Plan))
		case *journal.RewardRecord:
			fmt.Printf("    - reward action=%q reward=%+.1f replanned=%v\n", r.Action, r.Reward, r.Replanned)
		}
	}
	if err := jnl.Close(); err != nil {
		log.Fatalf("  ✗ journal.Close failed: %v", err)
	}

	// Summary
	fmt.Println("\n╔══════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                    TEST SUMMARY                                   ║")
	fmt.Println("╠══════════════════════════════════════════════════════════════════╣")
	fmt.Println("║  Fallback Oracle:  ✓ Working                                      ║")
	fmt.Println("║  MCTS Engine:      ✓ Working                                      ║")
	fmt.Println("║  Tree Inspection:  ✓ Working                                      ║")
	fmt.Println("║  Planner:          ✓ Plan / replan cycle working                  ║")
	fmt.Println("║  Journal:          ✓ Append and replay working                    ║")
	fmt.Println("╠══════════════════════════════════════════════════════════════════╣")
	fmt.Println("║  Planning Pipeline: ✓ FULLY OPERATIONAL                           ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════════╝")
}
