package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/citation"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/cli"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/temporal"
)

func trendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trends <file-id>",
		Short: "Show the period-over-period trends of a file",
		Long: `Compare every dated value of a file with the nearest earlier value of the same
metric, and look for a seasonal pattern in each metric.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx, appConfig)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			file, err := store.GetFile(ctx, args[0])
			if err != nil {
				return err
			}
			fragments, err := store.GetFragmentsByFile(ctx, file.ID)
			if err != nil {
				return err
			}

			engine := temporal.NewEngine(appConfig.TemporalEngine())
			return writeTrends(cmd.OutOrStdout(), file, fragments, engine)
		},
	}
}

func writeTrends(w io.Writer, file *model.File, fragments []model.Fragment, engine *temporal.Engine) error {
	contexts := engine.Compute(fragments)
	fmt.Fprintln(w, cli.FormatTitle("Trends of "+file.FileName))

	if len(contexts) == 0 {
		fmt.Fprintln(w, cli.InfoStyle.Render("No value has an earlier period to compare with."))
	} else {
		fmt.Fprintln(w, renderTrends(fragments, contexts))
	}

	index := temporal.NewIndex(fragments)
	for _, metric := range index.Metrics() {
		if s := temporal.DetectSeasonality(index.Series(metric)); s != nil {
			fmt.Fprintln(w, cli.FormatInfo(fmt.Sprintf("%s: %s", metric, s.Description)))
		}
	}

	if summary := file.TemporalSummary; summary != nil && summary.LeadTimes != nil {
		lt := summary.LeadTimes
		fmt.Fprintln(w, cli.FormatInfo(fmt.Sprintf(
			"lead times: %d values, mean %.1f days, median %.1f, min %s, max %s",
			lt.Count, lt.Mean, lt.Median, citation.FormatPercent(lt.Min), citation.FormatPercent(lt.Max))))
	}
	return nil
}

func renderTrends(fragments []model.Fragment, contexts map[model.FragmentKey]model.TemporalContext) string {
	byKey := make(map[model.FragmentKey]*model.Fragment, len(fragments))
	for i := range fragments {
		byKey[fragments[i].Key()] = &fragments[i]
	}

	keys := make([]model.FragmentKey, 0, len(contexts))
	for k := range contexts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := byKey[keys[i]], byKey[keys[j]]
		if a.MetricKey != b.MetricKey {
			return a.MetricKey < b.MetricKey
		}
		if !a.ExtractedDate.Equal(*b.ExtractedDate) {
			return a.ExtractedDate.Before(*b.ExtractedDate)
		}
		return a.ID < b.ID
	})

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		f, tc := byKey[k], contexts[k]
		delta := "n/a"
		if tc.DeltaPct != nil {
			delta = citation.FormatPercent(*tc.DeltaPct) + "%"
		}
		rows = append(rows, []string{
			f.MetricKey,
			temporal.FormatDateFR(*f.ExtractedDate),
			citation.FormatPercent(*f.NumericValue),
			cli.FormatDirection(tc.Direction),
			delta,
			tc.ReferenceFragmentID,
		})
	}
	return cli.RenderTable([]string{"METRIC", "DATE", "VALUE", "TREND", "DELTA", "REFERENCE"}, rows)
}
