package app

import (
	"context"
	"fmt"

	"github.com/samvad-hq/yt-bias-miner/internal/analysis"
	"github.com/samvad-hq/yt-bias-miner/internal/config"
	"github.com/samvad-hq/yt-bias-miner/internal/logger"
	"github.com/samvad-hq/yt-bias-miner/internal/storage"
)

const (
	reportFile = "report.json"
	sankeyFile = "sankey.json"
	graphFile  = "graph.json"
)

// ReportOptions controls the report artefacts.
type ReportOptions struct {
	Dir                 string
	IncludeUnclassified bool
	Layout              analysis.LayoutOptions
}

// ReportPaths lists the written files.
type ReportPaths struct {
	Report string
	Sankey string
	Graph  string
}

// Report builds the report from the configured store without touching the
// YouTube API.
func Report(ctx context.Context, cfg *config.Config, log logger.Logger, opts ReportOptions) (ReportPaths, error) {
	if cfg == nil {
		return ReportPaths{}, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if opts.Dir == "" {
		opts.Dir = cfg.ReportDir
	}

	registry, err := LoadOutlets(cfg, log)
	if err != nil {
		return ReportPaths{}, err
	}
	store, err := openStore(cfg, log)
	if err != nil {
		return ReportPaths{}, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.ErrorObj("storage close failed", "error", err)
		}
	}()
	return writeReports(ctx, store, registry, opts, log)
}

func writeReports(ctx context.Context, store storage.Store, lookup analysis.Lookup, opts ReportOptions, log logger.Logger) (ReportPaths, error) {
	data, err := store.AllRecommendations(ctx)
	if err != nil {
		return ReportPaths{}, fmt.Errorf("load recommendations: %w", err)
	}

	report := analysis.BuildReport(data, lookup)
	graph := analysis.Layout(analysis.BuildGraph(data, lookup, opts.IncludeUnclassified), opts.Layout)

	var paths ReportPaths
	if paths.Report, err = analysis.WriteJSON(opts.Dir, reportFile, report); err != nil {
		return ReportPaths{}, err
	}
	if paths.Sankey, err = analysis.WriteJSON(opts.Dir, sankeyFile, analysis.Sankey(report)); err != nil {
		return ReportPaths{}, err
	}
	if paths.Graph, err = analysis.WriteJSON(opts.Dir, graphFile, graph); err != nil {
		return ReportPaths{}, err
	}

	log.InfoObj("report written", "report_meta", map[string]any{
		"dir":              opts.Dir,
		"channels":         len(report.Channels),
		"skipped_channels": len(report.SkippedChannels),
		"recommendations":  report.Total,
		"graph_nodes":      len(graph.Nodes),
		"graph_edges":      len(graph.Edges),
	})
	return paths, nil
}
