package layout

import (
	"math"
	"math/rand"

	"github.com/starford/lorekeep/internal/graph"
)

const (
	minDistance = 0.01
	threshold   = 1e-4
)

// Force runs a Fruchterman-Reingold spring embedder over the whole graph,
// rescales the result to [-1, 1] and multiplies it by cfg.Scale.
// Positions are reproducible for a fixed cfg.Seed.
func Force(g *graph.Graph, cfg Config) Positions {
	ids := g.NodeIDs()
	n := len(ids)
	out := make(Positions, n)
	if n == 0 {
		return out
	}
	if n == 1 {
		out[ids[0]] = Position{}
		return out
	}

	index := make(map[int64]int, n)
	for i, id := range ids {
		index[id] = i
	}
	adj := make([][]bool, n)
	ug := g.Undirected()
	for i, id := range ids {
		adj[i] = make([]bool, n)
		for _, nb := range ug.Neighbors(id) {
			if nb != id {
				adj[i][index[nb]] = true
			}
		}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range ids {
		xs[i] = rng.Float64()
		ys[i] = rng.Float64()
	}

	k := cfg.K
	if k <= 0 {
		k = math.Sqrt(1 / float64(n))
	}
	t := 0.1 * math.Max(spread(xs), spread(ys))
	dt := t / float64(cfg.Iterations+1)

	dx := make([]float64, n)
	dy := make([]float64, n)
	for iter := 0; iter < cfg.Iterations; iter++ {
		for i := 0; i < n; i++ {
			var fx, fy float64
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				ddx := xs[i] - xs[j]
				ddy := ys[i] - ys[j]
				dist := math.Max(math.Hypot(ddx, ddy), minDistance)
				f := k * k / (dist * dist)
				if adj[i][j] {
					f -= dist / k
				}
				fx += ddx * f
				fy += ddy * f
			}
			length := math.Max(math.Hypot(fx, fy), minDistance)
			dx[i] = fx * t / length
			dy[i] = fy * t / length
		}

		var moved float64
		for i := 0; i < n; i++ {
			xs[i] += dx[i]
			ys[i] += dy[i]
			moved += math.Hypot(dx[i], dy[i])
		}
		t -= dt
		if moved/float64(n) < threshold {
			break
		}
	}

	rescale(xs, ys)
	for i, id := range ids {
		out[id] = Position{X: xs[i] * cfg.Scale, Y: ys[i] * cfg.Scale}
	}
	return out
}

func spread(v []float64) float64 {
	lo, hi := v[0], v[0]
	for _, x := range v[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return hi - lo
}

// rescale centres the coordinates on their mean and scales them so the
// largest absolute coordinate is 1.
func rescale(xs, ys []float64) {
	n := float64(len(xs))
	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= n
	my /= n

	var lim float64
	for i := range xs {
		xs[i] -= mx
		ys[i] -= my
		lim = math.Max(lim, math.Max(math.Abs(xs[i]), math.Abs(ys[i])))
	}
	if lim == 0 {
		return
	}
	for i := range xs {
		xs[i] /= lim
		ys[i] /= lim
	}
}
