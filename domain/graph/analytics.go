package graph

// DegreeCentrality computes the degree centrality of every node,
// normalized by the maximum possible degree. Overlay layers use this to
// drive centrality heat maps.
func (s *Snapshot) DegreeCentrality() map[string]float64 {
	centrality := make(map[string]float64, len(s.Nodes))
	for _, node := range s.Nodes {
		centrality[node.ID] = 0
	}

	for _, edge := range s.Edges {
		centrality[edge.Source]++
		centrality[edge.Target]++
	}

	if len(s.Nodes) > 1 {
		max := float64(len(s.Nodes) - 1)
		for id, degree := range centrality {
			centrality[id] = degree / max
		}
	}

	return centrality
}

// Clusters identifies connected components, treating edges as
// undirected. Overlay layers use the result to draw cluster boundaries.
func (s *Snapshot) Clusters() [][]string {
	adjacency := make(map[string][]string, len(s.Nodes))
	for _, edge := range s.Edges {
		adjacency[edge.Source] = append(adjacency[edge.Source], edge.Target)
		adjacency[edge.Target] = append(adjacency[edge.Target], edge.Source)
	}

	visited := make(map[string]bool, len(s.Nodes))
	var clusters [][]string

	for _, node := range s.Nodes {
		if visited[node.ID] {
			continue
		}

		// Iterative DFS keeps large components off the call stack
		cluster := []string{}
		stack := []string{node.ID}
		visited[node.ID] = true
		for len(stack) > 0 {
			current := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cluster = append(cluster, current)
			for _, next := range adjacency[current] {
				if !visited[next] {
					visited[next] = true
					stack = append(stack, next)
				}
			}
		}
		clusters = append(clusters, cluster)
	}

	return clusters
}
