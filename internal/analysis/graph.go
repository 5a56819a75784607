package analysis

import (
	"sort"

	"github.com/samvad-hq/yt-bias-miner/internal/domain"
)

// GraphNode is a channel in the recommendation graph.
type GraphNode struct {
	ID     string      `json:"id"`
	Name   string      `json:"name,omitempty"`
	Bias   domain.Bias `json:"bias"`
	Weight int         `json:"weight"`
	X      float64     `json:"x"`
	Y      float64     `json:"y"`
}

// GraphEdge links two channels; Weight counts recommendations in either direction.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Weight int    `json:"weight"`
}

// Graph is an undirected channel graph built from recommendations.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

type edgeKey struct{ a, b string }

func newEdgeKey(a, b string) edgeKey {
	if b < a {
		a, b = b, a
	}
	return edgeKey{a: a, b: b}
}

// BuildGraph connects every seed channel to the channels recommended from it.
// Self loops are dropped. Recommended channels outside the registry are only
// kept when includeUnclassified is set.
func BuildGraph(data map[string]domain.ChannelRecommendations, lookup Lookup, includeUnclassified bool) Graph {
	namer, _ := lookup.(Namer)
	nodes := make(map[string]*GraphNode)
	edges := make(map[edgeKey]int)

	addNode := func(id, name string, bias domain.Bias) *GraphNode {
		n, ok := nodes[id]
		if !ok {
			n = &GraphNode{ID: id, Bias: bias}
			if namer != nil {
				n.Name, _ = namer.Name(id)
			}
			nodes[id] = n
		}
		if n.Name == "" {
			n.Name = name
		}
		return n
	}

	for _, channelID := range sortedKeys(data) {
		source, ok := sourceBias(channelID, lookup)
		if !ok {
			continue
		}
		for _, list := range data[channelID] {
			for _, rec := range list {
				if rec.ChannelID == "" || rec.ChannelID == channelID {
					continue
				}
				target := Classify(rec, lookup)
				if target == domain.BiasUnclassified && !includeUnclassified {
					continue
				}
				addNode(channelID, "", source).Weight++
				addNode(rec.ChannelID, rec.ChannelName, target).Weight++
				edges[newEdgeKey(channelID, rec.ChannelID)]++
			}
		}
	}

	g := Graph{}
	for _, id := range sortedKeys(nodes) {
		g.Nodes = append(g.Nodes, *nodes[id])
	}
	for key, w := range edges {
		g.Edges = append(g.Edges, GraphEdge{Source: key.a, Target: key.b, Weight: w})
	}
	sort.Slice(g.Edges, func(i, j int) bool {
		if g.Edges[i].Source != g.Edges[j].Source {
			return g.Edges[i].Source < g.Edges[j].Source
		}
		return g.Edges[i].Target < g.Edges[j].Target
	})
	return g
}
