package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/cli"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/processing"
)

func detectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect [file-id...]",
		Short: "Run anomaly detection over stored files",
		Long: `Re-run anomaly detection over files that are already stored.

Alerts are append-only: a condition that was already reported for a file is
not reported again, so running detect twice is harmless. Pass file ids, or
--conversation to process every file of a conversation.`,
		RunE: runDetect,
	}

	cmd.Flags().String("conversation", "", "process every file of this conversation")
	cmd.Flags().Bool("no-progress", false, "disable the progress bar")

	return cmd
}

func runDetect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	conversationID, _ := cmd.Flags().GetString("conversation")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	store, err := initStorage(ctx, appConfig)
	if err != nil {
		return err
	}
	defer closeStorage(store)

	fileIDs := append([]string(nil), args...)
	if conversationID != "" {
		files, err := store.ListConversationFiles(ctx, conversationID)
		if err != nil {
			return fmt.Errorf("failed to list conversation files: %w", err)
		}
		for _, f := range files {
			fileIDs = append(fileIDs, f.ID)
		}
	}
	if len(fileIDs) == 0 {
		return fmt.Errorf("no files to process: pass file ids or --conversation")
	}

	proc, err := newProcessor(appConfig, store)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	if !noProgress {
		bar = newProgressBar(cmd.ErrOrStderr(), len(fileIDs))
	}

	results, err := proc.ProcessFiles(ctx, fileIDs, func(processing.Result) {
		if bar != nil {
			if addErr := bar.Add(1); addErr != nil {
				slog.Debug("Failed to update progress bar", "error", addErr)
			}
		}
	})

	fmt.Fprintln(cmd.OutOrStdout(), renderResults(results))
	return err
}

func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Detecting anomalies...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}

func renderResults(results []processing.Result) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			rows = append(rows, []string{r.FileID, "-", "-", "-", cli.StyleError(r.Err.Error())})
			continue
		}
		rows = append(rows, []string{
			r.FileID,
			strconv.Itoa(r.FragmentCount),
			strconv.Itoa(r.Detected),
			strconv.Itoa(r.Inserted),
			cli.SuccessStyle.Render(cli.SuccessIcon),
		})
	}
	return cli.RenderTable([]string{"FILE", "FRAGMENTS", "ALERTS", "NEW", "STATUS"}, rows)
}
