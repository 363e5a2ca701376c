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

// NodeID indexes a node within its owning Tree's arena.
type NodeID int32

// NoParent marks the root's parent slot. Backpropagation walks the
// parent chain until it reaches this sentinel.
const NoParent NodeID = -1

// Node is a single entry in a search tree arena.
//
// Nodes are plain data. Parent and child links are arena indices rather
// than pointers, so a tree has no ownership cycles and can be dropped
// wholesale when its search call returns. All lifecycle rules (one tree
// per search, no mutation after extraction) live in the Engine.
type Node struct {
	// State is the opaque payload carried by this node. The engine
	// forwards it to the evaluator and never inspects it.
	State any `json:"-"`

	// Action is the action that produced this node from its parent.
	// Empty for the root, which no action produced.
	Action string `json:"action,omitempty"`

	// Parent is the arena index of the parent node, NoParent for the root.
	Parent NodeID `json:"parent"`

	// Children holds arena indices in insertion order. Insertion order is
	// the tie-break order for selection and extraction.
	Children []NodeID `json:"children,omitempty"`

	// Visits counts backpropagation passes through this node.
	Visits int `json:"visits"`

	// Value accumulates simulated returns, any sign.
	Value float64 `json:"value"`

	// Depth is 0 for the root, parent depth + 1 otherwise.
	Depth int `json:"depth"`
}

// AvgValue returns Value/Visits, or 0 for an unvisited node.
func (n *Node) AvgValue() float64 {
	if n.Visits == 0 {
		return 0
	}
	return n.Value / float64(n.Visits)
}

// IsRoot reports whether this node has no parent.
func (n *Node) IsRoot() bool {
	return n.Parent == NoParent
}

// IsLeaf reports whether this node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}
