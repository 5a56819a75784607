package analysis

import "github.com/samvad-hq/yt-bias-miner/internal/domain"

// SankeyNode is one column entry of the chart.
type SankeyNode struct {
	ID    string      `json:"id"`
	Label string      `json:"label"`
	Bias  domain.Bias `json:"bias"`
	Side  string      `json:"side"`
	Value int         `json:"value"`
}

// SankeyLink connects a source node to a target node by index.
type SankeyLink struct {
	Source int `json:"source"`
	Target int `json:"target"`
	Value  int `json:"value"`
}

// SankeyChart is a flow diagram from seed-channel bias to recommended-channel bias.
type SankeyChart struct {
	Nodes []SankeyNode `json:"nodes"`
	Links []SankeyLink `json:"links"`
}

// Sankey lays the report out as source and target columns. Nodes without
// any flow are left out.
func Sankey(r Report) SankeyChart {
	chart := SankeyChart{}
	sourceIdx := make(map[domain.Bias]int)
	targetIdx := make(map[domain.Bias]int)

	for _, b := range orderedBiases() {
		total := 0
		for _, n := range r.Flows[b] {
			total += n
		}
		if total == 0 {
			continue
		}
		sourceIdx[b] = len(chart.Nodes)
		chart.Nodes = append(chart.Nodes, SankeyNode{
			ID: "source:" + string(b), Label: string(b), Bias: b, Side: "source", Value: total,
		})
	}
	for _, b := range orderedBiases() {
		if r.TargetTotals[b] == 0 {
			continue
		}
		targetIdx[b] = len(chart.Nodes)
		chart.Nodes = append(chart.Nodes, SankeyNode{
			ID: "target:" + string(b), Label: string(b), Bias: b, Side: "target", Value: r.TargetTotals[b],
		})
	}

	for _, src := range orderedBiases() {
		si, ok := sourceIdx[src]
		if !ok {
			continue
		}
		for _, dst := range orderedBiases() {
			n := r.Flows[src][dst]
			if n <= 0 {
				continue
			}
			chart.Links = append(chart.Links, SankeyLink{Source: si, Target: targetIdx[dst], Value: n})
		}
	}
	return chart
}
