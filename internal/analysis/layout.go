package analysis

import (
	"math"
	"math/rand/v2"
)

const (
	defaultLayoutWidth      = 1000.0
	defaultLayoutHeight     = 1000.0
	defaultLayoutIterations = 50
	minDistance             = 0.01
)

// LayoutOptions controls the force-directed placement.
type LayoutOptions struct {
	Width      float64
	Height     float64
	Iterations int
	Seed       uint64
}

func (o LayoutOptions) withDefaults() LayoutOptions {
	if o.Width <= 0 {
		o.Width = defaultLayoutWidth
	}
	if o.Height <= 0 {
		o.Height = defaultLayoutHeight
	}
	if o.Iterations <= 0 {
		o.Iterations = defaultLayoutIterations
	}
	return o
}

type vec struct{ x, y float64 }

// Layout returns a copy of g with node positions computed by the
// Fruchterman-Reingold algorithm. Positions lie within a Width x Height frame
// centred on the origin. The same seed always yields the same layout.
func Layout(g Graph, opts LayoutOptions) Graph {
	opts = opts.withDefaults()
	out := Graph{
		Nodes: append([]GraphNode(nil), g.Nodes...),
		Edges: append([]GraphEdge(nil), g.Edges...),
	}
	n := len(out.Nodes)
	if n == 0 {
		return out
	}

	halfW, halfH := opts.Width/2, opts.Height/2
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	pos := make([]vec, n)
	for i := range pos {
		pos[i] = vec{x: (rng.Float64()*2 - 1) * halfW, y: (rng.Float64()*2 - 1) * halfH}
	}

	index := make(map[string]int, n)
	for i, node := range out.Nodes {
		index[node.ID] = i
	}
	maxWeight := 0
	for _, e := range out.Edges {
		if e.Weight > maxWeight {
			maxWeight = e.Weight
		}
	}

	k := math.Sqrt(opts.Width * opts.Height / float64(n))
	t0 := opts.Width / 10
	temp := t0
	disp := make([]vec, n)

	for iter := 0; iter < opts.Iterations; iter++ {
		for i := range disp {
			disp[i] = vec{}
		}

		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				dx, dy := pos[i].x-pos[j].x, pos[i].y-pos[j].y
				d := math.Max(math.Hypot(dx, dy), minDistance)
				f := k * k / d
				disp[i].x += dx / d * f
				disp[i].y += dy / d * f
				disp[j].x -= dx / d * f
				disp[j].y -= dy / d * f
			}
		}

		for _, e := range out.Edges {
			u, okU := index[e.Source]
			v, okV := index[e.Target]
			if !okU || !okV || u == v {
				continue
			}
			dx, dy := pos[u].x-pos[v].x, pos[u].y-pos[v].y
			d := math.Max(math.Hypot(dx, dy), minDistance)
			w := 1.0
			if maxWeight > 0 {
				w = float64(e.Weight) / float64(maxWeight)
			}
			f := w * d * d / k
			disp[u].x -= dx / d * f
			disp[u].y -= dy / d * f
			disp[v].x += dx / d * f
			disp[v].y += dy / d * f
		}

		for i := range pos {
			l := math.Hypot(disp[i].x, disp[i].y)
			if l > 0 {
				step := math.Min(l, temp)
				pos[i].x += disp[i].x / l * step
				pos[i].y += disp[i].y / l * step
			}
			pos[i].x = clamp(pos[i].x, -halfW, halfW)
			pos[i].y = clamp(pos[i].y, -halfH, halfH)
		}

		temp = t0 * (1 - float64(iter+1)/float64(opts.Iterations))
	}

	for i := range out.Nodes {
		out.Nodes[i].X = pos[i].x
		out.Nodes[i].Y = pos[i].y
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
