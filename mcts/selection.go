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

import "math"

// SelectionPolicy determines which child to descend into during the
// selection phase of a search.
//
// Thread Safety: implementations must be safe for concurrent use; one
// policy instance may serve parallel Search calls.
type SelectionPolicy interface {
	// Select returns the child of parent to explore next, or false if
	// parent has no children.
	Select(tree *Tree, parent NodeID) (NodeID, bool)
}

// UCB1Policy implements the Upper Confidence Bound 1 selection rule:
//
//	UCB1(child) = child.Value/child.Visits + C * sqrt(ln(parent.Visits) / child.Visits)
//
// A child with zero visits scores +Inf and always beats any visited
// sibling. Ties break toward the earlier-inserted child, which keeps
// repeated searches over identical statistics deterministic.
//
// Thread Safety: safe for concurrent use; the policy is stateless.
type UCB1Policy struct {
	// ExplorationConstant is the C in the formula. Higher values favor
	// under-visited children; zero means pure exploitation. Validation
	// of the range belongs to SearchConfig, not the policy.
	ExplorationConstant float64
}

// NewUCB1Policy creates a UCB1 selection policy with the given constant.
func NewUCB1Policy(explorationConstant float64) *UCB1Policy {
	return &UCB1Policy{ExplorationConstant: explorationConstant}
}

// Select implements SelectionPolicy.
func (p *UCB1Policy) Select(tree *Tree, parent NodeID) (NodeID, bool) {
	node := tree.Node(parent)
	if len(node.Children) == 0 {
		return NoParent, false
	}

	parentVisits := float64(node.Visits)
	if parentVisits < 1 {
		parentVisits = 1 // avoid log(0)
	}

	best := node.Children[0]
	bestScore := math.Inf(-1)

	for _, child := range node.Children {
		// Unvisited children win outright; scanning in insertion order
		// makes the first one the winner.
		if tree.Node(child).Visits == 0 {
			return child, true
		}

		score := UCB1Score(tree.Node(child), parentVisits, p.ExplorationConstant)
		if score > bestScore {
			bestScore = score
			best = child
		}
	}

	return best, true
}

// UCB1Score calculates the UCB1 score for a node.
// Returns +Inf for unvisited nodes.
func UCB1Score(node *Node, parentVisits, c float64) float64 {
	if node.Visits == 0 {
		return math.Inf(1)
	}
	if parentVisits < 1 {
		parentVisits = 1
	}
	return node.AvgValue() + c*math.Sqrt(math.Log(parentVisits)/float64(node.Visits))
}

var _ SelectionPolicy = (*UCB1Policy)(nil)
