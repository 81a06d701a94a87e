// Package layout computes 2D node positions for graph snapshots, either
// synchronously on the calling goroutine or on a background worker pool.
package layout

import (
	"context"
	"hash/fnv"
	"math"

	"mapcore/domain/graph"
)

// Config configures layout parameters
type Config struct {
	Width      float64 // Canvas width
	Height     float64 // Canvas height
	Iterations int     // Number of iterations for iterative algorithms
	Padding    float64 // Padding from edges
}

// DefaultConfig returns the canvas geometry used when callers do not care
func DefaultConfig() Config {
	return Config{Width: 1000, Height: 1000, Iterations: 60, Padding: 50}
}

// Engine computes a position for every node in a snapshot. An engine must
// never drop nodes: the returned map has exactly one entry per node.
type Engine interface {
	Name() string
	Compute(ctx context.Context, s *graph.Snapshot, cfg Config) (map[string]graph.Position, error)
}

// ForceDirected implements a Fruchterman-Reingold style force simulation:
// nodes repel each other, edges pull their endpoints together, and a weak
// gravity keeps disconnected components near the center.
type ForceDirected struct{}

// NewForceDirected creates a force-directed engine
func NewForceDirected() *ForceDirected {
	return &ForceDirected{}
}

// Name returns the engine identifier
func (f *ForceDirected) Name() string { return "force_directed" }

// Compute runs the simulation. Initial placement is a deterministic
// function of node IDs so repeated layouts of the same snapshot agree.
func (f *ForceDirected) Compute(ctx context.Context, s *graph.Snapshot, cfg Config) (map[string]graph.Position, error) {
	n := len(s.Nodes)
	positions := make(map[string]graph.Position, n)
	if n == 0 {
		return positions, nil
	}

	cx, cy := cfg.Width/2, cfg.Height/2
	radius := math.Min(cfg.Width, cfg.Height)/2 - cfg.Padding

	// Seed on a circle, angle derived from the node ID hash
	ids := make([]string, n)
	xs := make([]float64, n)
	ys := make([]float64, n)
	index := make(map[string]int, n)
	for i, node := range s.Nodes {
		angle := 2 * math.Pi * float64(hashID(node.ID)%360) / 360
		// Spread hash collisions with the node's snapshot position
		angle += 2 * math.Pi * float64(i) / float64(n) / 7
		ids[i] = node.ID
		xs[i] = cx + radius*0.5*math.Cos(angle)
		ys[i] = cy + radius*0.5*math.Sin(angle)
		index[node.ID] = i
	}

	area := cfg.Width * cfg.Height
	k := math.Sqrt(area / float64(n)) // ideal pairwise distance
	temperature := cfg.Width / 10
	cooling := temperature / float64(cfg.Iterations+1)

	dx := make([]float64, n)
	dy := make([]float64, n)

	for iter := 0; iter < cfg.Iterations; iter++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		for i := range dx {
			dx[i], dy[i] = 0, 0
		}

		// Repulsion between every pair
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				ddx, ddy := xs[i]-xs[j], ys[i]-ys[j]
				dist := math.Hypot(ddx, ddy)
				if dist < 0.01 {
					dist = 0.01
					ddx, ddy = 0.01, 0.01
				}
				force := k * k / dist
				dx[i] += ddx / dist * force
				dy[i] += ddy / dist * force
				dx[j] -= ddx / dist * force
				dy[j] -= ddy / dist * force
			}
		}

		// Attraction along edges
		for _, edge := range s.Edges {
			si, sOK := index[edge.Source]
			ti, tOK := index[edge.Target]
			if !sOK || !tOK {
				continue
			}
			ddx, ddy := xs[si]-xs[ti], ys[si]-ys[ti]
			dist := math.Hypot(ddx, ddy)
			if dist < 0.01 {
				dist = 0.01
			}
			force := dist * dist / k
			dx[si] -= ddx / dist * force
			dy[si] -= ddy / dist * force
			dx[ti] += ddx / dist * force
			dy[ti] += ddy / dist * force
		}

		// Gravity toward the canvas center
		for i := 0; i < n; i++ {
			dx[i] += (cx - xs[i]) * 0.05
			dy[i] += (cy - ys[i]) * 0.05
		}

		// Apply displacement capped by temperature
		for i := 0; i < n; i++ {
			disp := math.Hypot(dx[i], dy[i])
			if disp < 0.01 {
				continue
			}
			limited := math.Min(disp, temperature)
			xs[i] += dx[i] / disp * limited
			ys[i] += dy[i] / disp * limited

			xs[i] = clamp(xs[i], cfg.Padding, cfg.Width-cfg.Padding)
			ys[i] = clamp(ys[i], cfg.Padding, cfg.Height-cfg.Padding)
		}

		temperature -= cooling
		if temperature < 0.01 {
			break
		}
	}

	for i, id := range ids {
		positions[id] = graph.Position{X: xs[i], Y: ys[i]}
	}
	return positions, nil
}

// Circular places nodes evenly on a circle, in snapshot order
type Circular struct{}

// NewCircular creates a circular engine
func NewCircular() *Circular { return &Circular{} }

// Name returns the engine identifier
func (c *Circular) Name() string { return "circular" }

// Compute places every node on the circle
func (c *Circular) Compute(_ context.Context, s *graph.Snapshot, cfg Config) (map[string]graph.Position, error) {
	n := len(s.Nodes)
	positions := make(map[string]graph.Position, n)
	if n == 0 {
		return positions, nil
	}

	cx, cy := cfg.Width/2, cfg.Height/2
	radius := math.Min(cfg.Width, cfg.Height)/2 - cfg.Padding

	for i, node := range s.Nodes {
		angle := 2 * math.Pi * float64(i) / float64(n)
		positions[node.ID] = graph.Position{
			X: cx + radius*math.Cos(angle),
			Y: cy + radius*math.Sin(angle),
		}
	}
	return positions, nil
}

// Grid places nodes on a square grid, in snapshot order
type Grid struct{}

// NewGrid creates a grid engine
func NewGrid() *Grid { return &Grid{} }

// Name returns the engine identifier
func (g *Grid) Name() string { return "grid" }

// Compute places every node on the grid
func (g *Grid) Compute(_ context.Context, s *graph.Snapshot, cfg Config) (map[string]graph.Position, error) {
	n := len(s.Nodes)
	positions := make(map[string]graph.Position, n)
	if n == 0 {
		return positions, nil
	}

	cols := int(math.Ceil(math.Sqrt(float64(n))))
	cellW := (cfg.Width - 2*cfg.Padding) / float64(cols)
	rows := int(math.Ceil(float64(n) / float64(cols)))
	cellH := (cfg.Height - 2*cfg.Padding) / float64(rows)

	for i, node := range s.Nodes {
		col := i % cols
		row := i / cols
		positions[node.ID] = graph.Position{
			X: cfg.Padding + cellW*(float64(col)+0.5),
			Y: cfg.Padding + cellH*(float64(row)+0.5),
		}
	}
	return positions, nil
}

func hashID(id string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(id))
	return h.Sum32()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
