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
	"strings"
	"testing"
)

func TestNewTree(t *testing.T) {
	tree := NewTree("observation")

	if tree.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tree.Len())
	}

	root := tree.Node(tree.Root())
	if root.Parent != NoParent {
		t.Errorf("root.Parent = %d, want NoParent", root.Parent)
	}
	if root.Depth != 0 {
		t.Errorf("root.Depth = %d, want 0", root.Depth)
	}
	if root.Action != "" {
		t.Errorf("root.Action = %q, want empty", root.Action)
	}
	if root.State != "observation" {
		t.Errorf("root.State = %v, want 'observation'", root.State)
	}
	if !root.IsRoot() || !root.IsLeaf() {
		t.Error("fresh root should be both root and leaf")
	}
}

func TestTree_AddChild(t *testing.T) {
	tree := NewTree("obs")

	c1 := tree.AddChild(tree.Root(), "find trees")
	c2 := tree.AddChild(tree.Root(), "chop wood")
	g1 := tree.AddChild(c1, "gather resources")

	if tree.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", tree.Len())
	}

	root := tree.Node(tree.Root())
	if len(root.Children) != 2 || root.Children[0] != c1 || root.Children[1] != c2 {
		t.Errorf("root.Children = %v, want [%d %d] in insertion order", root.Children, c1, c2)
	}

	child := tree.Node(c1)
	if child.Depth != 1 {
		t.Errorf("child.Depth = %d, want 1", child.Depth)
	}
	if child.Parent != tree.Root() {
		t.Errorf("child.Parent = %d, want root", child.Parent)
	}
	if child.State != "obs" {
		t.Errorf("child.State = %v, want parent's state unchanged", child.State)
	}

	grandchild := tree.Node(g1)
	if grandchild.Depth != 2 {
		t.Errorf("grandchild.Depth = %d, want 2", grandchild.Depth)
	}
}

func TestTree_DepthInvariant(t *testing.T) {
	tree := NewTree(nil)
	a := tree.AddChild(tree.Root(), "a")
	b := tree.AddChild(tree.Root(), "b")
	tree.AddChild(a, "c")
	tree.AddChild(a, "d")
	tree.AddChild(b, "e")

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

func TestTree_UnrepresentedActions(t *testing.T) {
	tree := NewTree(nil)
	actions := []string{"find weapon", "approach enemy", "attack"}

	got := tree.UnrepresentedActions(tree.Root(), actions)
	if len(got) != 3 {
		t.Fatalf("fresh root should have all actions untried, got %v", got)
	}

	tree.AddChild(tree.Root(), "approach enemy")
	got = tree.UnrepresentedActions(tree.Root(), actions)
	if len(got) != 2 || got[0] != "find weapon" || got[1] != "attack" {
		t.Errorf("UnrepresentedActions = %v, want [find weapon attack]", got)
	}

	tree.AddChild(tree.Root(), "find weapon")
	tree.AddChild(tree.Root(), "attack")
	if got := tree.UnrepresentedActions(tree.Root(), actions); len(got) != 0 {
		t.Errorf("fully expanded root should have none untried, got %v", got)
	}
}

func TestTree_MostVisitedChild_TieBreak(t *testing.T) {
	tree := NewTree(nil)
	first := tree.AddChild(tree.Root(), "first")
	second := tree.AddChild(tree.Root(), "second")
	tree.Node(first).Visits = 7
	tree.Node(second).Visits = 7

	// Equal visits must resolve to the first-inserted child, every time.
	for i := 0; i < 100; i++ {
		got, ok := tree.MostVisitedChild(tree.Root())
		if !ok {
			t.Fatal("MostVisitedChild returned no child")
		}
		if got != first {
			t.Fatalf("run %d: tie resolved to %d, want first-inserted %d", i, got, first)
		}
	}
}

func TestTree_MostVisitedPath(t *testing.T) {
	tree := NewTree(nil)
	a := tree.AddChild(tree.Root(), "find weapon")
	b := tree.AddChild(tree.Root(), "attack")
	tree.Node(a).Visits = 10
	tree.Node(b).Visits = 3

	deep := tree.AddChild(a, "approach enemy")
	tree.Node(deep).Visits = 5

	plan := tree.MostVisitedPath()
	if len(plan) != 2 || plan[0] != "find weapon" || plan[1] != "approach enemy" {
		t.Errorf("MostVisitedPath = %v, want [find weapon, approach enemy]", plan)
	}
}

func TestTree_MostVisitedPath_EmptyForChildlessRoot(t *testing.T) {
	tree := NewTree(nil)
	if plan := tree.MostVisitedPath(); len(plan) != 0 {
		t.Errorf("MostVisitedPath on childless root = %v, want empty", plan)
	}
}

func TestTree_MaxDepth(t *testing.T) {
	tree := NewTree(nil)
	if tree.MaxDepth() != 0 {
		t.Errorf("MaxDepth of root-only tree = %d, want 0", tree.MaxDepth())
	}
	a := tree.AddChild(tree.Root(), "a")
	b := tree.AddChild(a, "b")
	tree.AddChild(b, "c")
	if tree.MaxDepth() != 3 {
		t.Errorf("MaxDepth = %d, want 3", tree.MaxDepth())
	}
}

func TestTree_Format(t *testing.T) {
	tree := NewTree(nil)
	a := tree.AddChild(tree.Root(), "find weapon")
	tree.AddChild(tree.Root(), "attack")
	tree.AddChild(a, "approach enemy")

	out := tree.Format()
	for _, want := range []string{"Nodes: 4", "find weapon", "attack", "approach enemy"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
}

func TestNode_AvgValue(t *testing.T) {
	n := &Node{}
	if n.AvgValue() != 0 {
		t.Errorf("AvgValue of unvisited node = %f, want 0", n.AvgValue())
	}
	n.Visits = 4
	n.Value = 6
	if n.AvgValue() != 1.5 {
		t.Errorf("AvgValue = %f, want 1.5", n.AvgValue())
	}
}
