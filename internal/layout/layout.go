// Package layout computes 2D node coordinates for a relationship graph.
//
// Two strategies are provided: a rooted breadth-first tree and a
// Fruchterman-Reingold spring embedder. Both return a complete Positions map
// in an abstract plane centred near the origin.
package layout

import (
	"errors"
	"fmt"

	"github.com/starford/lorekeep/internal/graph"
)

// ErrNoRoot is returned by Tree when the requested root is not a node.
var ErrNoRoot = errors.New("layout: no valid root")

// Strategy names a layout algorithm.
type Strategy string

const (
	StrategyTree  Strategy = "tree"
	StrategyForce Strategy = "force"
)

// ParseStrategy maps a user-supplied name to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyTree, StrategyForce:
		return Strategy(s), nil
	case "":
		return StrategyTree, nil
	}
	return "", fmt.Errorf("layout: unknown strategy %q", s)
}

// Position is a 2D coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Positions maps node id to coordinate.
type Positions map[int64]Position

// Clone returns an independent copy.
func (p Positions) Clone() Positions {
	out := make(Positions, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Config holds the tunable constants of both strategies.
type Config struct {
	VerticalGap   float64 `yaml:"vertical_gap"`
	HorizontalGap float64 `yaml:"horizontal_gap"`

	K          float64 `yaml:"k"`          // optimal spring length in unit space
	Iterations int     `yaml:"iterations"` // spring embedder iterations
	Scale      float64 `yaml:"scale"`      // unit space -> screen units
	Seed       int64   `yaml:"seed"`
}

// DefaultConfig returns the reference constants.
func DefaultConfig() Config {
	return Config{
		VerticalGap:   170,
		HorizontalGap: 150,
		K:             1.2,
		Iterations:    70,
		Scale:         320,
		Seed:          1,
	}
}

// Compute runs the requested strategy. A tree request without a valid root
// falls back to the force layout; the strategy actually used is returned.
func Compute(g *graph.Graph, s Strategy, root int64, cfg Config) (Positions, Strategy) {
	if s == StrategyTree {
		pos, err := Tree(g, root, cfg)
		if err == nil {
			return pos, StrategyTree
		}
	}
	return Force(g, cfg), StrategyForce
}
