package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"fishbox/internal/config"
	"fishbox/internal/core"
	"fishbox/internal/stats"
)

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summary and species distribution for one angler",
		Example: `  fishboxctl stats --user anna
  fishboxctl stats --user anna --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			catches, err := repo.ListByOwner(cmd.Context(), user)
			if err != nil {
				return err
			}
			report := statsReport{
				Summary: stats.Summarize(catches, 0),
				Species: stats.SpeciesDistribution(catches),
			}
			if opts.json {
				return opts.printJSON(report)
			}
			return report.print(opts)
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "Angler user id (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

type statsReport struct {
	Summary stats.Summary        `json:"summary"`
	Species []stats.SpeciesCount `json:"species"`
}

func (r statsReport) print(opts *rootOptions) error {
	s := r.Summary
	tw := tabwriter.NewWriter(opts.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Catches\t%d\n", s.Total)
	fmt.Fprintf(tw, "Average length\t%.1f cm\n", s.AverageLength)
	fmt.Fprintf(tw, "Longest\t%d cm\n", s.MaxLength)
	if s.WeightedCount > 0 {
		fmt.Fprintf(tw, "Average weight\t%.0f g (%d weighed)\n", s.AverageWeight, s.WeightedCount)
		fmt.Fprintf(tw, "Heaviest\t%d g\n", s.MaxWeight)
	}
	if s.TopSpecies != "" {
		fmt.Fprintf(tw, "Top species\t%s (%d)\n", s.TopSpecies, s.TopSpeciesCount)
	}
	if s.TopBait != "" {
		fmt.Fprintf(tw, "Top bait\t%s (%d)\n", s.TopBait, s.TopBaitCount)
	}
	if len(r.Species) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "SPECIES\tCOUNT")
		for _, sp := range r.Species {
			fmt.Fprintf(tw, "%s\t%d\n", sp.Species, sp.Count)
		}
	}
	return tw.Flush()
}

func newLeaderboardCmd(opts *rootOptions) *cobra.Command {
	var (
		window string
		metric string
		limit  int
	)
	cmd := &cobra.Command{
		Use:     "leaderboard",
		Short:   "Ranking of public catches",
		Example: `  fishboxctl leaderboard --window week --metric size`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, ok := stats.ParseWindow(window)
			if !ok {
				return fmt.Errorf("invalid --window %q: must be week, month or all", window)
			}
			m, ok := stats.ParseMetric(metric)
			if !ok {
				return fmt.Errorf("invalid --metric %q: must be catches, weight, size or species", metric)
			}

			repo, err := opts.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			entries, err := leaderboard(cmd.Context(), repo, w, m, limit, time.Now())
			if err != nil {
				return err
			}
			if opts.json {
				return opts.printJSON(entries)
			}
			tw := tabwriter.NewWriter(opts.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tANGLER\tCATCHES\tWEIGHT (g)\tLONGEST (cm)\tSPECIES")
			for _, e := range entries {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\n", e.Rank, e.OwnerID, e.Catches, e.TotalWeight, e.MaxLength, e.SpeciesCount)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&window, "window", "all", "Time window: week, month or all")
	cmd.Flags().StringVar(&metric, "metric", "catches", "Metric: catches, weight, size or species")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries")
	return cmd
}

type publicLister interface {
	ListPublicSince(ctx context.Context, since time.Time) ([]core.Catch, error)
}

func leaderboard(ctx context.Context, repo publicLister, w stats.Window, m stats.Metric, limit int, now time.Time) ([]stats.LeaderboardEntry, error) {
	since, _ := w.Since(now)
	public, err := repo.ListPublicSince(ctx, since)
	if err != nil {
		return nil, err
	}
	return stats.Leaderboard(public, stats.LeaderboardOptions{Window: w, Metric: m, Now: now, Limit: limit}), nil
}

func newSpotsCmd(opts *rootOptions) *cobra.Command {
	var (
		user      string
		precision int
		sortBy    string
	)
	cmd := &cobra.Command{
		Use:     "spots",
		Short:   "Fishing spots of one angler",
		Example: `  fishboxctl spots --user anna --precision 4 --sort last`,
		RunE: func(cmd *cobra.Command, args []string) error {
			order, ok := stats.ParseSpotSort(sortBy)
			if !ok {
				return fmt.Errorf("invalid --sort %q: must be count, species or last", sortBy)
			}

			repo, err := opts.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			catches, err := repo.ListByOwner(cmd.Context(), user)
			if err != nil {
				return err
			}
			spots := stats.Spots(catches, stats.SpotOptions{Precision: precision, SortBy: order})
			if opts.json {
				return opts.printJSON(spots)
			}
			tw := tabwriter.NewWriter(opts.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SPOT\tCATCHES\tSPECIES\tLAST CATCH\tLOCATION")
			for _, s := range spots {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", s.Key, s.Count, len(s.Species), s.LastCatch.Format("2006-01-02"), s.Location)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "Angler user id (required)")
	cmd.Flags().IntVar(&precision, "precision", config.Load().SpotPrecision, "Decimal places used to group coordinates (1-8)")
	cmd.Flags().StringVar(&sortBy, "sort", "count", "Sort by count, species or last")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
