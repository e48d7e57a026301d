// Copyright (c) 2025, the authproof authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package graph

import (
	"reflect"
	"testing"
)

func TestShortestPath(t *testing.T) {
	g := New()
	g.AddEdge("a", "b", 0)
	g.AddEdge("b", "c", 1)
	g.AddEdge("a", "c", 2)
	g.AddEdge("c", "d", 3)

	path := g.ShortestPath("a", "d")
	want := []Edge{
		{From: "a", To: "c", Payload: 2},
		{From: "c", To: "d", Payload: 3},
	}
	if !reflect.DeepEqual(path, want) {
		t.Errorf("got %v, want %v", path, want)
	}
}

func TestShortestPathTieBreak(t *testing.T) {
	// Two shortest paths a->d; the one through the earlier-inserted edge
	// wins.
	g := New()
	g.AddEdge("a", "b", 0)
	g.AddEdge("a", "c", 1)
	g.AddEdge("b", "d", 2)
	g.AddEdge("c", "d", 3)

	path := g.ShortestPath("a", "d")
	want := []Edge{
		{From: "a", To: "b", Payload: 0},
		{From: "b", To: "d", Payload: 2},
	}
	if !reflect.DeepEqual(path, want) {
		t.Errorf("got %v, want %v", path, want)
	}
}

func TestShortestPathUnreachable(t *testing.T) {
	g := New()
	g.AddEdge("a", "b", 0)
	g.AddNode("c")

	if path := g.ShortestPath("a", "c"); path != nil {
		t.Errorf("got %v, want nil", path)
	}
	// Edges are directed.
	if path := g.ShortestPath("b", "a"); path != nil {
		t.Errorf("got %v, want nil", path)
	}
	if path := g.ShortestPath("missing", "a"); path != nil {
		t.Errorf("got %v, want nil", path)
	}
	if g.Reachable("a", "c") {
		t.Error("unreachable node reported reachable")
	}
}

func TestShortestPathSelf(t *testing.T) {
	g := New()
	g.AddNode("a")
	path := g.ShortestPath("a", "a")
	if path == nil || len(path) != 0 {
		t.Errorf("got %v, want empty non-nil path", path)
	}
	if !g.Reachable("a", "a") {
		t.Error("node not reachable from itself")
	}
}

func TestNodesAndEdgesOrder(t *testing.T) {
	g := New()
	g.AddEdge("b", "a", 0)
	g.AddEdge("b", "c", 1)
	g.AddNode("d")

	if got, want := g.Nodes(), []string{"b", "a", "c", "d"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Nodes() = %v, want %v", got, want)
	}
	edges := g.Edges("b")
	if len(edges) != 2 || edges[0].Payload != 0 || edges[1].Payload != 1 {
		t.Errorf("Edges(b) = %v", edges)
	}
}
