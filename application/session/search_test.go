package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapcore/domain/graph"
)

func buildIndex(limit int, nodes ...graph.Node) *Index {
	idx := NewIndex(limit)
	idx.Rebuild(&graph.Snapshot{Nodes: nodes})
	return idx
}

func labels(nodes []graph.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Label
	}
	return out
}

func TestIndex_ScoringOrder(t *testing.T) {
	idx := buildIndex(10,
		graph.Node{ID: "1", Label: "Alpha Team", Type: graph.NodeTypeTeam},
		graph.Node{ID: "2", Label: "Team Beta", Type: graph.NodeTypeTeam},
		graph.Node{ID: "3", Label: "Gamma", Type: graph.NodeTypeTeam},
	)

	results := idx.Search("team", nil)

	// Start-of-label beats word-boundary; Gamma excluded
	assert.Equal(t, []string{"Team Beta", "Alpha Team"}, labels(results))
}

func TestIndex_Tiers(t *testing.T) {
	tests := []struct {
		name  string
		label string
		query string
		score int
	}{
		{"exact case-insensitive", "Platform", "platform", scoreExact},
		{"prefix", "Platform Team", "plat", scorePrefix},
		{"contains", "Core Platform Team", "platform t", scoreContains},
		{"contains via word prefix", "Core Platform", "plat", scoreContains},
		{"fuzzy subsequence", "Knowledge Base", "kwb", scoreFuzzy},
		{"no match", "Roadmap", "xyz", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := buildIndex(10, graph.Node{ID: "n", Label: tt.label, Type: graph.NodeTypeProject})
			results := idx.Search(tt.query, nil)
			if tt.score == 0 {
				assert.Empty(t, results)
			} else {
				require.Len(t, results, 1)
			}
		})
	}
}

func TestIndex_TieBreakByOriginalOrder(t *testing.T) {
	idx := buildIndex(10,
		graph.Node{ID: "1", Label: "Team One", Type: graph.NodeTypeTeam},
		graph.Node{ID: "2", Label: "Team Two", Type: graph.NodeTypeTeam},
		graph.Node{ID: "3", Label: "Team Three", Type: graph.NodeTypeTeam},
	)

	results := idx.Search("team", nil)
	assert.Equal(t, []string{"Team One", "Team Two", "Team Three"}, labels(results))
}

func TestIndex_TypeFilterExcludesBeforeScoring(t *testing.T) {
	idx := buildIndex(10,
		graph.Node{ID: "1", Label: "Atlas", Type: graph.NodeTypeProject},
		graph.Node{ID: "2", Label: "Atlas Guild", Type: graph.NodeTypeTeam},
	)

	results := idx.Search("atlas", []graph.NodeType{graph.NodeTypeTeam})
	require.Len(t, results, 1)
	assert.Equal(t, "Atlas Guild", results[0].Label)
}

func TestIndex_EmptyQuery(t *testing.T) {
	idx := buildIndex(10, graph.Node{ID: "1", Label: "Anything", Type: graph.NodeTypeGoal})

	assert.Empty(t, idx.Search("", nil))
	assert.Empty(t, idx.Search("   ", nil))
}

func TestIndex_ResultCap(t *testing.T) {
	nodes := make([]graph.Node, 0, 15)
	for i := 0; i < 15; i++ {
		nodes = append(nodes, graph.Node{
			ID:    string(rune('a' + i)),
			Label: "Team " + string(rune('A'+i)),
			Type:  graph.NodeTypeTeam,
		})
	}
	idx := buildIndex(10, nodes...)

	assert.Len(t, idx.Search("team", nil), 10)

	idx.SetLimit(3)
	assert.Len(t, idx.Search("team", nil), 3)
}

func TestIndex_RebuildReplacesContents(t *testing.T) {
	idx := buildIndex(10, graph.Node{ID: "1", Label: "Old Node", Type: graph.NodeTypeUser})
	require.Len(t, idx.Search("old", nil), 1)

	idx.Rebuild(&graph.Snapshot{Nodes: []graph.Node{
		{ID: "2", Label: "New Node", Type: graph.NodeTypeUser},
	}})

	assert.Empty(t, idx.Search("old", nil))
	assert.Len(t, idx.Search("new", nil), 1)
}
