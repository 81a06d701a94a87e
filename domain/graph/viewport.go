package graph

// Viewport is the camera pan/zoom state used for rendering and,
// optionally, for biasing server-side queries
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// DefaultViewport is the canonical reset state: centered, ratio 1
func DefaultViewport() Viewport {
	return Viewport{X: 0, Y: 0, Zoom: 1}
}
