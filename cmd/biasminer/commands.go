package main

import (
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/yt-bias-miner/internal/analysis"
	"github.com/samvad-hq/yt-bias-miner/internal/app"
	"github.com/samvad-hq/yt-bias-miner/internal/domain"
	"github.com/samvad-hq/yt-bias-miner/internal/miner"
	"github.com/samvad-hq/yt-bias-miner/pkg/youtube"
)

const channelLastVideos = 5

var timeNow = time.Now

func newMineCmd(e *env) *cobra.Command {
	var (
		days       int
		start, end string
		refresh    bool
	)

	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Mine uploads and recommendations once",
		Long:  "Collect uploads of every outlet within the window, then sample the recommendations shown next to each video.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			window, err := mineWindow(days, start, end, e.cfg.WindowDays)
			if err != nil {
				return err
			}

			m, err := app.NewMiner(cmd.Context(), e.cfg, e.log, app.Options{Refresh: refresh})
			if err != nil {
				return err
			}
			defer m.Close()

			if err := m.MineOnce(cmd.Context(), window); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "mined window %s\n", window)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "mine the last N days (defaults to WINDOW_DAYS)")
	cmd.Flags().StringVar(&start, "start", "", "first day to mine (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "last day to mine (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached results")
	cmd.MarkFlagsRequiredTogether("start", "end")
	cmd.MarkFlagsMutuallyExclusive("days", "start")
	return cmd
}

// mineWindow resolves the CLI flags into a window.
func mineWindow(days int, start, end string, defaultDays int) (miner.Window, error) {
	if start != "" || end != "" {
		return miner.ParseWindow(start, end)
	}
	if days < 0 {
		return miner.Window{}, fmt.Errorf("invalid --days %d (must be positive)", days)
	}
	if days == 0 {
		days = defaultDays
	}
	return miner.LastDays(days, timeNow()), nil
}

func newRunCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Mine on every MINE_INTERVAL until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := app.NewMiner(cmd.Context(), e.cfg, e.log, app.Options{})
			if err != nil {
				return err
			}
			defer m.Close()
			return m.Run(cmd.Context())
		},
	}
}

func newReportCmd(e *env) *cobra.Command {
	var (
		opts       app.ReportOptions
		iterations int
		seed       uint64
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write report, Sankey and graph JSON from stored results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Layout = analysis.LayoutOptions{Iterations: iterations, Seed: seed}
			paths, err := app.Report(cmd.Context(), e.cfg, e.log, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, paths.Report)
			fmt.Fprintln(out, paths.Sankey)
			fmt.Fprintln(out, paths.Graph)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "out", "", "output directory (defaults to REPORT_DIR)")
	cmd.Flags().BoolVar(&opts.IncludeUnclassified, "include-unclassified", false, "keep channels missing from the outlet registry in the graph")
	cmd.Flags().IntVar(&iterations, "iterations", 50, "force-directed layout iterations")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "layout random seed")
	return cmd
}

func newOutletsCmd(e *env) *cobra.Command {
	var bias string

	cmd := &cobra.Command{
		Use:   "outlets",
		Short: "List classified outlets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := app.LoadOutlets(e.cfg, e.log)
			if err != nil {
				return err
			}

			list := registry.All()
			if bias != "" {
				b, err := domain.ParseBias(bias)
				if err != nil {
					return err
				}
				list = list[:0]
				for _, id := range registry.OutletsByBias(b) {
					o, _ := registry.Outlet(id)
					list = append(list, o)
				}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CHANNEL ID\tNAME\tBIAS")
			for _, o := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", o.ChannelID, o.Name, o.Bias)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&bias, "bias", "", "only list outlets with this bias")
	return cmd
}

func newRecommendationsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "recommendations VIDEO_ID",
		Short: "Print the recommendations shown next to a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := app.NewRecommendationSource(e.cfg)
			if err != nil {
				return err
			}
			recs, err := source.Recommendations(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "VIDEO ID\tCHANNEL ID\tCHANNEL\tTITLE")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.VideoID, r.ChannelID, r.ChannelName, r.Title)
			}
			return tw.Flush()
		},
	}
}

func newChannelCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "channel CHANNEL_ID",
		Short: "Show Data API details and the latest uploads of a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			channelID := args[0]
			out := cmd.OutOrStdout()

			client, err := app.NewYouTubeClient(ctx, e.cfg, e.log)
			if err != nil {
				return err
			}

			deleted, err := client.IsChannelDeleted(ctx, channelID)
			if err != nil {
				return err
			}
			if deleted {
				fmt.Fprintf(out, "channel %s is deleted\n", channelID)
				return nil
			}

			info, err := client.ChannelInformation(ctx, channelID)
			if errors.Is(err, youtube.ErrChannelNotFound) {
				fmt.Fprintf(out, "channel %s not found\n", channelID)
				return nil
			}
			if err != nil {
				return err
			}
			countries, err := client.CountryCodes(ctx, []string{channelID})
			if err != nil {
				return err
			}
			subs, err := client.SubscriberCounts(ctx, []string{channelID})
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "title\t%s\n", info.Title)
			fmt.Fprintf(tw, "country\t%s\n", orDash(countries[channelID]))
			if n, ok := subs[channelID]; ok {
				fmt.Fprintf(tw, "subscribers\t%d\n", n)
			} else {
				fmt.Fprintln(tw, "subscribers\thidden")
			}
			fmt.Fprintf(tw, "views\t%d\n", info.ViewCount)
			fmt.Fprintf(tw, "videos\t%d\n", info.VideoCount)
			if !info.PublishedAt.IsZero() {
				fmt.Fprintf(tw, "created\t%s\n", info.PublishedAt.Format("2006-01-02"))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			videos, err := client.LastVideos(ctx, channelID, channelLastVideos)
			if err != nil {
				return err
			}
			if len(videos) == 0 {
				return nil
			}
			ids := domain.VideoIDs(videos)
			views, err := client.VideoViews(ctx, ids)
			if err != nil {
				return err
			}
			engagement, err := client.LikesAndComments(ctx, ids)
			if err != nil {
				return err
			}

			sort.SliceStable(videos, func(i, j int) bool { return videos[i].PublishedAt.After(videos[j].PublishedAt) })
			fmt.Fprintln(out)
			tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PUBLISHED\tVIDEO ID\tVIEWS\tLIKES\tCOMMENTS\tTITLE")
			for _, v := range videos {
				eng := engagement[v.ID]
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
					v.PublishedAt.Format("2006-01-02"), v.ID, views[v.ID], eng.Likes, eng.Comments, v.Title)
			}
			return tw.Flush()
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
