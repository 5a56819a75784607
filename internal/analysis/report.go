// Package analysis aggregates mined recommendations into bias flows, Sankey
// charts and force-directed channel graphs.
package analysis

import (
	"sort"
	"time"

	"github.com/samvad-hq/yt-bias-miner/internal/domain"
)

// Lookup resolves the bias of a channel.
type Lookup interface {
	Bias(channelID string) (domain.Bias, bool)
}

// Namer optionally resolves display names for channels.
type Namer interface {
	Name(channelID string) (string, bool)
}

// Classify returns the bias of the channel a recommendation points to, or
// Unclassified when the channel is not in the registry.
func Classify(rec domain.Recommendation, lookup Lookup) domain.Bias {
	if lookup == nil || rec.ChannelID == "" {
		return domain.BiasUnclassified
	}
	if b, ok := lookup.Bias(rec.ChannelID); ok && b.Valid() {
		return b
	}
	return domain.BiasUnclassified
}

// Report summarises where recommendations lead, per bias of the seed channel.
type Report struct {
	GeneratedAt     time.Time                               `json:"generated_at"`
	Total           int                                     `json:"total"`
	SameChannel     int                                     `json:"same_channel"`
	Flows           map[domain.Bias]map[domain.Bias]int     `json:"flows"`
	TargetTotals    map[domain.Bias]int                     `json:"target_totals"`
	Shares          map[domain.Bias]float64                 `json:"shares"`
	SourceShares    map[domain.Bias]map[domain.Bias]float64 `json:"source_shares"`
	Channels        []ChannelSummary                        `json:"channels"`
	SkippedChannels []string                                `json:"skipped_channels,omitempty"`
}

// ChannelSummary is the per-seed-channel breakdown.
type ChannelSummary struct {
	ChannelID       string              `json:"channel_id"`
	Name            string              `json:"name,omitempty"`
	Bias            domain.Bias         `json:"bias"`
	Videos          int                 `json:"videos"`
	Recommendations int                 `json:"recommendations"`
	SameChannel     int                 `json:"same_channel"`
	Targets         map[domain.Bias]int `json:"targets"`
}

// BuildReport counts recommendation flows between bias classes. Seed channels
// without a known bias are listed in SkippedChannels and not counted.
func BuildReport(data map[string]domain.ChannelRecommendations, lookup Lookup) Report {
	r := Report{
		GeneratedAt:  time.Now().UTC(),
		Flows:        make(map[domain.Bias]map[domain.Bias]int),
		TargetTotals: make(map[domain.Bias]int),
		Shares:       make(map[domain.Bias]float64),
		SourceShares: make(map[domain.Bias]map[domain.Bias]float64),
	}
	namer, _ := lookup.(Namer)

	for _, channelID := range sortedKeys(data) {
		source, ok := sourceBias(channelID, lookup)
		if !ok {
			r.SkippedChannels = append(r.SkippedChannels, channelID)
			continue
		}

		recs := data[channelID]
		summary := ChannelSummary{
			ChannelID: channelID,
			Bias:      source,
			Videos:    recs.VideoCount(),
			Targets:   make(map[domain.Bias]int),
		}
		if namer != nil {
			summary.Name, _ = namer.Name(channelID)
		}

		flows := r.Flows[source]
		if flows == nil {
			flows = make(map[domain.Bias]int)
			r.Flows[source] = flows
		}
		for _, list := range recs {
			for _, rec := range list {
				target := Classify(rec, lookup)
				flows[target]++
				r.TargetTotals[target]++
				summary.Targets[target]++
				summary.Recommendations++
				r.Total++
				if rec.ChannelID == channelID {
					summary.SameChannel++
					r.SameChannel++
				}
			}
		}
		r.Channels = append(r.Channels, summary)
	}

	if r.Total > 0 {
		for target, n := range r.TargetTotals {
			r.Shares[target] = float64(n) / float64(r.Total)
		}
	}
	for source, flows := range r.Flows {
		out := 0
		for _, n := range flows {
			out += n
		}
		if out == 0 {
			continue
		}
		shares := make(map[domain.Bias]float64, len(flows))
		for target, n := range flows {
			shares[target] = float64(n) / float64(out)
		}
		r.SourceShares[source] = shares
	}
	return r
}

// Share returns the fraction of all recommendations that lead to target.
func (r Report) Share(target domain.Bias) float64 {
	return r.Shares[target]
}

func sourceBias(channelID string, lookup Lookup) (domain.Bias, bool) {
	if lookup == nil {
		return "", false
	}
	b, ok := lookup.Bias(channelID)
	if !ok || !b.Valid() {
		return "", false
	}
	return b, true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// orderedBiases returns every bias class left to right, Unclassified last.
func orderedBiases() []domain.Bias {
	return append(domain.Biases(), domain.BiasUnclassified)
}
