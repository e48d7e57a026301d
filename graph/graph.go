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

// Package graph provides a small directed graph with breadth-first path
// search. Nodes are identified by strings; each edge carries an integer
// payload that callers use to index back into their own edge metadata.
package graph

// Edge is a directed edge with a caller-defined payload index.
type Edge struct {
	From    string
	To      string
	Payload int
}

// Graph is a directed graph. The zero value is not usable; call New.
type Graph struct {
	adj   map[string][]Edge
	nodes []string
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{adj: make(map[string][]Edge)}
}

// AddNode ensures the node exists, even with no edges.
func (g *Graph) AddNode(id string) {
	if _, ok := g.adj[id]; !ok {
		g.adj[id] = nil
		g.nodes = append(g.nodes, id)
	}
}

// AddEdge adds a directed edge. Nodes are created as needed. Parallel edges
// with distinct payloads are allowed.
func (g *Graph) AddEdge(from, to string, payload int) {
	g.AddNode(from)
	g.AddNode(to)
	g.adj[from] = append(g.adj[from], Edge{From: from, To: to, Payload: payload})
}

// Nodes returns the node ids in insertion order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns the out-edges of a node in insertion order.
func (g *Graph) Edges(from string) []Edge {
	out := make([]Edge, len(g.adj[from]))
	copy(out, g.adj[from])
	return out
}

// ShortestPath returns a minimum-hop path from one node to the other as the
// sequence of edges traversed, or nil when the destination is unreachable.
// A path from a node to itself is empty but non-nil. Ties are broken by edge
// insertion order, so the result is deterministic.
func (g *Graph) ShortestPath(from, to string) []Edge {
	if _, ok := g.adj[from]; !ok {
		return nil
	}
	if from == to {
		return []Edge{}
	}
	prev := make(map[string]Edge)
	visited := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range g.adj[cur] {
			if visited[e.To] {
				continue
			}
			visited[e.To] = true
			prev[e.To] = e
			if e.To == to {
				return g.unwind(prev, from, to)
			}
			queue = append(queue, e.To)
		}
	}
	return nil
}

// Reachable reports whether a path exists between the nodes.
func (g *Graph) Reachable(from, to string) bool {
	return g.ShortestPath(from, to) != nil
}

func (g *Graph) unwind(prev map[string]Edge, from, to string) []Edge {
	var rev []Edge
	for cur := to; cur != from; {
		e := prev[cur]
		rev = append(rev, e)
		cur = e.From
	}
	path := make([]Edge, len(rev))
	for i, e := range rev {
		path[len(rev)-1-i] = e
	}
	return path
}
