package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/cli"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/prompt"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/temporal"
)

func contextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context <question>",
		Short: "Build the grounding context for a question",
		Long: `Build the context block sent to the model with a user's question: the current
date, citations of the retrieved fragments with their trends, alerts of the
conversation's files, and the date instruction.

When retrieval is disabled or fails, the context falls back to the current
date and the instruction.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runContext,
	}

	cmd.Flags().String("user", "", "user asking the question (required)")
	cmd.Flags().String("conversation", "", "conversation the question belongs to (required)")
	cmd.Flags().String("now", "", "current date as YYYY-MM-DD (default: today)")
	cmd.Flags().Int("top-k", 0, "number of fragments to retrieve (default: retrieval.top_k)")
	cmd.Flags().Bool("system", false, "print the full system message instead of the context block")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("conversation")

	return cmd
}

func runContext(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	userID, _ := cmd.Flags().GetString("user")
	conversationID, _ := cmd.Flags().GetString("conversation")
	nowFlag, _ := cmd.Flags().GetString("now")
	topK, _ := cmd.Flags().GetInt("top-k")
	system, _ := cmd.Flags().GetBool("system")

	now, err := parseDay(nowFlag, time.Now())
	if err != nil {
		return err
	}

	store, err := initStorage(ctx, appConfig)
	if err != nil {
		return err
	}
	defer closeStorage(store)

	gateway, err := newGateway(appConfig)
	if err != nil {
		return err
	}

	pipeline, err := prompt.NewPipeline(prompt.Deps{
		Gateway:   gateway,
		Files:     store,
		Alerts:    store,
		Assembler: prompt.NewAssembler(temporal.NewEngine(appConfig.TemporalEngine())),
	}, appConfig.Retrieval.Timeout)
	if err != nil {
		return err
	}

	pc, err := pipeline.Build(ctx, prompt.Query{
		Now:            now,
		Text:           strings.Join(args, " "),
		UserID:         userID,
		ConversationID: conversationID,
		TopK:           topK,
	})
	if err != nil {
		return fmt.Errorf("failed to build context: %w", err)
	}

	out := cmd.OutOrStdout()
	if pc.Degraded {
		slog.Warn("Context is degraded", "reasons", pc.DegradedReasons)
		fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatWarning("Temporal-only grounding: "+strings.Join(pc.DegradedReasons, "; ")))
	}

	if system {
		msg, err := prompt.RenderSystemMessage(pc)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, msg)
		return nil
	}

	fmt.Fprintln(out, pc.Render())
	return nil
}
