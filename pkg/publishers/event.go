package publishers

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/samvad-hq/yt-bias-miner/internal/domain"
)

const (
	// maxEventTargets caps the per-channel target list carried by an Event.
	maxEventTargets = 1000
	// maxQueueMessageBytes is the SQS and SNS message size limit.
	maxQueueMessageBytes = 256 << 10
)

// TargetCount is the number of recommendations pointing at one channel.
type TargetCount struct {
	ChannelID string `json:"channel_id"`
	Count     int    `json:"count"`
}

// Event is published once a channel's recommendations have been mined. It
// carries a summary rather than the raw recommendation map so its size stays
// bounded no matter how many videos were mined.
type Event struct {
	ChannelID       string        `json:"channel_id"`
	ChannelName     string        `json:"channel_name"`
	Bias            domain.Bias   `json:"bias"`
	Videos          int           `json:"videos"`
	Recommendations int           `json:"recommendations"`
	TargetChannels  int           `json:"target_channels"`
	Targets         []TargetCount `json:"targets"`
	Truncated       bool          `json:"truncated,omitempty"`
	CollectedAt     time.Time     `json:"collected_at"`
}

// NewEvent constructs an Event for the given outlet and mined recommendations.
// Targets are ordered by count, highest first, and cut at maxEventTargets.
func NewEvent(outlet domain.Outlet, recs domain.ChannelRecommendations) Event {
	counts := make(map[string]int)
	for _, list := range recs {
		for _, rec := range list {
			if rec.ChannelID == "" {
				continue
			}
			counts[rec.ChannelID]++
		}
	}
	targets := make([]TargetCount, 0, len(counts))
	for id, n := range counts {
		targets = append(targets, TargetCount{ChannelID: id, Count: n})
	}
	sort.Slice(targets, func(i, j int) bool {
		if targets[i].Count != targets[j].Count {
			return targets[i].Count > targets[j].Count
		}
		return targets[i].ChannelID < targets[j].ChannelID
	})
	truncated := false
	if len(targets) > maxEventTargets {
		targets = targets[:maxEventTargets]
		truncated = true
	}
	return Event{
		ChannelID:       outlet.ChannelID,
		ChannelName:     outlet.Name,
		Bias:            outlet.Bias,
		Videos:          recs.VideoCount(),
		Recommendations: recs.Count(),
		TargetChannels:  len(counts),
		Targets:         targets,
		Truncated:       truncated,
		CollectedAt:     time.Now().UTC(),
	}
}

// attributes returns the routing attributes attached to queue messages.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"channel_id": e.ChannelID,
		"bias":       string(e.Bias),
	}
}

// queuePayload encodes the event for SQS or SNS and rejects bodies the
// services would refuse.
func queuePayload(evt Event) ([]byte, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	if len(payload) > maxQueueMessageBytes {
		return nil, fmt.Errorf("event payload is %d bytes, limit %d", len(payload), maxQueueMessageBytes)
	}
	return payload, nil
}
