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
	"fmt"
	"strings"
)

// Tree is an arena-backed search tree.
//
// Nodes live in one dense slice and refer to each other by NodeID, so
// the whole tree is a single allocation chain with no pointer cycles.
// Exactly one Search call owns a Tree: the call builds it, extracts the
// plan, and returns it frozen. Trees are never shared between searches
// or reused across planning calls.
//
// Thread Safety: NOT safe for concurrent mutation. Confinement to the
// searching goroutine is the Engine's responsibility.
type Tree struct {
	nodes []Node
}

// NewTree creates a tree holding only a root node carrying state.
func NewTree(state any) *Tree {
	return &Tree{
		nodes: []Node{{
			State:  state,
			Parent: NoParent,
		}},
	}
}

// Root returns the root node's ID. The root always occupies slot 0.
func (t *Tree) Root() NodeID {
	return 0
}

// Node returns the node stored at id. The pointer is only valid until
// the next AddChild call grows the arena.
func (t *Tree) Node(id NodeID) *Node {
	return &t.nodes[id]
}

// Len returns the number of nodes in the tree, root included.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// AddChild appends a new child of parent produced by action and returns
// its ID. The child inherits the parent's state unchanged; the engine
// never computes transition dynamics, so a caller that needs real
// successor states must bake them into its evaluator.
func (t *Tree) AddChild(parent NodeID, action string) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, Node{
		State:  t.nodes[parent].State,
		Action: action,
		Parent: parent,
		Depth:  t.nodes[parent].Depth + 1,
	})
	t.nodes[parent].Children = append(t.nodes[parent].Children, id)
	return id
}

// UnrepresentedActions returns, preserving input order, the actions in
// candidates that no child of id was produced by. A node is fully
// expanded against a candidate set exactly when this returns nothing.
func (t *Tree) UnrepresentedActions(id NodeID, candidates []string) []string {
	node := &t.nodes[id]
	if len(node.Children) == 0 {
		return candidates
	}
	represented := make(map[string]struct{}, len(node.Children))
	for _, c := range node.Children {
		represented[t.nodes[c].Action] = struct{}{}
	}
	var unrep []string
	for _, a := range candidates {
		if _, ok := represented[a]; !ok {
			unrep = append(unrep, a)
		}
	}
	return unrep
}

// MostVisitedChild returns the child of id with the highest visit
// count. Ties break toward the earlier-inserted child. Returns false
// when id has no children.
func (t *Tree) MostVisitedChild(id NodeID) (NodeID, bool) {
	children := t.nodes[id].Children
	if len(children) == 0 {
		return NoParent, false
	}
	best := children[0]
	for _, c := range children[1:] {
		if t.nodes[c].Visits > t.nodes[best].Visits {
			best = c
		}
	}
	return best, true
}

// MostVisitedPath walks from the root along most-visited children until
// it reaches a leaf and returns the actions traversed. An empty slice
// means the root never grew a child.
func (t *Tree) MostVisitedPath() []string {
	var plan []string
	id := t.Root()
	for {
		child, ok := t.MostVisitedChild(id)
		if !ok {
			return plan
		}
		plan = append(plan, t.nodes[child].Action)
		id = child
	}
}

// MaxDepth returns the depth of the deepest node in the tree.
func (t *Tree) MaxDepth() int {
	maxDepth := 0
	for i := range t.nodes {
		if t.nodes[i].Depth > maxDepth {
			maxDepth = t.nodes[i].Depth
		}
	}
	return maxDepth
}

// Format returns an indented dump of the tree for logs and debugging.
func (t *Tree) Format() string {
	var sb strings.Builder
	root := t.Node(t.Root())
	sb.WriteString(fmt.Sprintf("Nodes: %d, Max Depth: %d\n", t.Len(), t.MaxDepth()))
	sb.WriteString(fmt.Sprintf("root (value: %.2f, visits: %d)\n", root.AvgValue(), root.Visits))
	for i, child := range root.Children {
		t.formatNode(&sb, child, "", i == len(root.Children)-1)
	}
	return sb.String()
}

func (t *Tree) formatNode(sb *strings.Builder, id NodeID, prefix string, isLast bool) {
	branch := "├── "
	if isLast {
		branch = "└── "
	}

	node := t.Node(id)
	sb.WriteString(fmt.Sprintf("%s%s%s (value: %.2f, visits: %d)\n",
		prefix, branch, truncate(node.Action, 40), node.AvgValue(), node.Visits))

	childPrefix := prefix
	if isLast {
		childPrefix += "    "
	} else {
		childPrefix += "│   "
	}

	for i, child := range node.Children {
		t.formatNode(sb, child, childPrefix, i == len(node.Children)-1)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
