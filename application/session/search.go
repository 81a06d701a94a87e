package session

import (
	"sort"
	"strings"
	"sync"

	"mapcore/domain/graph"
)

// Match tier scores. The tiers are strict: a label matching a higher
// tier never competes with lower-tier matches on anything but order.
const (
	scoreExact      = 100
	scorePrefix     = 80
	scoreContains   = 60
	scoreWordPrefix = 40
	scoreFuzzy      = 20
)

// Index provides rank-ordered substring and fuzzy matching over the
// currently loaded node set. It is rebuilt wholesale on every snapshot
// replacement.
type Index struct {
	mu      sync.RWMutex
	entries []indexEntry
	limit   int
}

type indexEntry struct {
	node       graph.Node
	labelLower string
	words      []string
}

// NewIndex creates an index with the given result cap
func NewIndex(limit int) *Index {
	if limit < 1 {
		limit = 10
	}
	return &Index{limit: limit}
}

// SetLimit replaces the result cap
func (idx *Index) SetLimit(limit int) {
	if limit < 1 {
		return
	}
	idx.mu.Lock()
	idx.limit = limit
	idx.mu.Unlock()
}

// Rebuild replaces the index contents from a snapshot
func (idx *Index) Rebuild(s *graph.Snapshot) {
	entries := make([]indexEntry, 0, len(s.Nodes))
	for _, node := range s.Nodes {
		lower := strings.ToLower(node.Label)
		entries = append(entries, indexEntry{
			node:       node,
			labelLower: lower,
			words:      strings.Fields(lower),
		})
	}

	idx.mu.Lock()
	idx.entries = entries
	idx.mu.Unlock()
}

// Search returns matching nodes ordered by score descending, ties broken
// by original node order. An empty query yields an empty result, not all
// nodes. The type filter excludes nodes before scoring.
func (idx *Index) Search(query string, types []graph.NodeType) []graph.Node {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var typeFilter map[graph.NodeType]struct{}
	if len(types) > 0 {
		typeFilter = make(map[graph.NodeType]struct{}, len(types))
		for _, t := range types {
			typeFilter[t] = struct{}{}
		}
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	type scored struct {
		node  graph.Node
		score int
	}
	matches := make([]scored, 0, len(idx.entries))

	for _, e := range idx.entries {
		if typeFilter != nil {
			if _, ok := typeFilter[e.node.Type]; !ok {
				continue
			}
		}
		if s := scoreLabel(e, q); s > 0 {
			matches = append(matches, scored{node: e.node, score: s})
		}
	}

	// Stable sort keeps original node order within a score tier
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	limit := idx.limit
	if len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]graph.Node, len(matches))
	for i, m := range matches {
		results[i] = m.node
	}
	return results
}

// scoreLabel assigns the highest applicable tier score, or 0 for no match
func scoreLabel(e indexEntry, q string) int {
	switch {
	case e.labelLower == q:
		return scoreExact
	case strings.HasPrefix(e.labelLower, q):
		return scorePrefix
	case strings.Contains(e.labelLower, q):
		return scoreContains
	}

	for _, word := range e.words {
		if strings.HasPrefix(word, q) {
			return scoreWordPrefix
		}
	}

	if subsequenceMatch(e.labelLower, q) {
		return scoreFuzzy
	}
	return 0
}

// subsequenceMatch reports whether all characters of q appear in label in
// order, not necessarily contiguously
func subsequenceMatch(label, q string) bool {
	want := []rune(q)
	qi := 0
	for _, r := range label {
		if qi < len(want) && r == want[qi] {
			qi++
		}
	}
	return qi == len(want)
}
