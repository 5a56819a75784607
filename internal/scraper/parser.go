package scraper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samvad-hq/yt-bias-miner/internal/domain"
)

const initialDataMarker = "var ytInitialData ="

// extractInitialData returns the JSON assigned to ytInitialData in the first
// script that declares it.
func extractInitialData(html []byte) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var raw string
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		idx := strings.Index(text, initialDataMarker)
		if idx < 0 {
			return true
		}
		start := idx + len(initialDataMarker)
		end := strings.LastIndex(text, ";")
		if end < start {
			// Unterminated assignment, the payload is likely truncated.
			return true
		}
		raw = strings.TrimSpace(text[start:end])
		return false
	})

	if raw == "" {
		return nil, ErrInitialDataNotFound
	}
	return []byte(raw), nil
}

type watchNextData struct {
	Contents *struct {
		TwoColumnWatchNextResults *struct {
			SecondaryResults *struct {
				SecondaryResults *struct {
					Results *[]resultItem `json:"results"`
				} `json:"secondaryResults"`
			} `json:"secondaryResults"`
		} `json:"twoColumnWatchNextResults"`
	} `json:"contents"`
}

type resultItem struct {
	CompactVideoRenderer *compactVideoRenderer `json:"compactVideoRenderer"`
}

type compactVideoRenderer struct {
	VideoID string `json:"videoId"`
	Title   struct {
		SimpleText string `json:"simpleText"`
	} `json:"title"`
	LongBylineText struct {
		Runs []bylineRun `json:"runs"`
	} `json:"longBylineText"`
}

type bylineRun struct {
	Text               string `json:"text"`
	NavigationEndpoint struct {
		BrowseEndpoint struct {
			BrowseID string `json:"browseId"`
		} `json:"browseEndpoint"`
	} `json:"navigationEndpoint"`
}

// parseRecommendations walks contents.twoColumnWatchNextResults.secondaryResults
// and keeps every compactVideoRenderer in page order.
func parseRecommendations(data []byte) ([]domain.Recommendation, error) {
	var root watchNextData
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode ytInitialData: %w", err)
	}

	c := root.Contents
	if c == nil || c.TwoColumnWatchNextResults == nil ||
		c.TwoColumnWatchNextResults.SecondaryResults == nil ||
		c.TwoColumnWatchNextResults.SecondaryResults.SecondaryResults == nil ||
		c.TwoColumnWatchNextResults.SecondaryResults.SecondaryResults.Results == nil {
		return nil, ErrUnexpectedLayout
	}
	items := *c.TwoColumnWatchNextResults.SecondaryResults.SecondaryResults.Results

	recs := make([]domain.Recommendation, 0, len(items))
	for _, item := range items {
		r := item.CompactVideoRenderer
		if r == nil {
			continue
		}
		rec := domain.Recommendation{
			VideoID: r.VideoID,
			Title:   r.Title.SimpleText,
		}
		if len(r.LongBylineText.Runs) > 0 {
			run := r.LongBylineText.Runs[0]
			rec.ChannelName = run.Text
			rec.ChannelID = run.NavigationEndpoint.BrowseEndpoint.BrowseID
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
