package network

import (
	"errors"
	"fmt"
)

// Graph is an undirected adjacency list over bus IDs.
type Graph struct {
	nodes         []int
	adjacencyList map[int][]int
}

// NewGraph returns an empty Graph.
func NewGraph() Graph {
	return Graph{
		nodes:         make([]int, 0),
		adjacencyList: make(map[int][]int),
	}
}

// AddNode inserts a bus into the graph.
func (g *Graph) AddNode(n int) error {
	if _, exists := g.adjacencyList[n]; exists {
		err := fmt.Sprintf("node %d already exists in graph.", n)
		return errors.New(err)
	}
	g.nodes = append(g.nodes, n)
	g.adjacencyList[n] = make([]int, 0)
	return nil
}

// AddEdge links n1 and n2 in both directions.
func (g *Graph) AddEdge(n1 int, n2 int) error {
	edges1, exists := g.adjacencyList[n1]
	if !exists {
		err := fmt.Sprintf("start node %d does not exist in graph.", n1)
		return errors.New(err)
	}

	edges2, exists := g.adjacencyList[n2]
	if !exists {
		err := fmt.Sprintf("end node %d does not exist in graph.", n2)
		return errors.New(err)
	}

	g.adjacencyList[n1] = append(edges1, n2)
	g.adjacencyList[n2] = append(edges2, n1)
	return nil
}

// Edges returns the neighbours of n, or an empty slice if n is unknown.
func (g Graph) Edges(n int) []int {
	if edges, exists := g.adjacencyList[n]; exists {
		return edges
	}
	return make([]int, 0)
}

// Islands returns the connected components of the graph. Components are
// discovered in node insertion order with an iterative DFS.
func (g Graph) Islands() [][]int {
	visited := make(map[int]bool, len(g.nodes))
	islands := make([][]int, 0)

	for _, n := range g.nodes {
		if visited[n] {
			continue
		}
		stack := []int{n}
		island := make([]int, 0)

		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[v] {
				continue
			}
			visited[v] = true
			island = append(island, v)
			for _, nei := range g.adjacencyList[v] {
				if !visited[nei] {
					stack = append(stack, nei)
				}
			}
		}
		islands = append(islands, island)
	}
	return islands
}
