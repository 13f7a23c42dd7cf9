package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/cli"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/common"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/processing"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/service"
)

type ingestOptions struct {
	UserID         string
	ConversationID string
	FileID         string
	FileName       string
}

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <fragments.json>",
		Short: "Store an extracted file and detect its anomalies",
		Long: `Store the fragments extracted from one uploaded file and run anomaly detection on it.

The input is a JSON array of fragments as produced by the extraction step.
Use "-" to read from stdin. Fragments without an id get one. Without
--conversation a new conversation is created for the user.`,
		Args: cobra.ExactArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().String("user", "", "owner of the file (required)")
	cmd.Flags().String("conversation", "", "conversation to attach the file to")
	cmd.Flags().String("file-id", "", "file id (default: generated)")
	cmd.Flags().String("file-name", "", "original file name (default: input file name)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	opts := ingestOptions{}
	opts.UserID, _ = cmd.Flags().GetString("user")
	opts.ConversationID, _ = cmd.Flags().GetString("conversation")
	opts.FileID, _ = cmd.Flags().GetString("file-id")
	opts.FileName, _ = cmd.Flags().GetString("file-name")

	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer func() { _ = f.Close() }()
		in = f
		if opts.FileName == "" {
			opts.FileName = filepath.Base(args[0])
		}
	}

	fragments, err := decodeFragments(in)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx, appConfig)
	if err != nil {
		return err
	}
	defer closeStorage(store)

	proc, err := newProcessor(appConfig, store)
	if err != nil {
		return err
	}

	res, err := ingest(ctx, store, proc, opts, fragments)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
		"Ingested %s: %d fragments, %d alerts (%d new)",
		res.FileID, res.FragmentCount, res.Detected, res.Inserted)))
	return nil
}

// decodeFragments reads a JSON array of fragments, giving an id to those without one.
func decodeFragments(r io.Reader) ([]model.Fragment, error) {
	var fragments []model.Fragment
	if err := json.NewDecoder(r).Decode(&fragments); err != nil {
		return nil, fmt.Errorf("failed to decode fragments: %w", err)
	}
	for i := range fragments {
		if fragments[i].ID == "" {
			fragments[i].ID = uuid.NewString()
		}
	}
	return fragments, nil
}

// ingest resolves the conversation, creating it when needed, and hands the file to the
// processor.
func ingest(ctx context.Context, files service.FileStore, proc *processing.Processor, opts ingestOptions, fragments []model.Fragment) (*processing.Result, error) {
	if opts.UserID == "" {
		return nil, common.NewUserError("a user is required", nil)
	}

	if opts.ConversationID == "" {
		opts.ConversationID = uuid.NewString()
	}
	conv, err := files.GetConversation(ctx, opts.ConversationID)
	switch {
	case errors.Is(err, common.ErrNotFound):
		conv = &model.Conversation{ID: opts.ConversationID, UserID: opts.UserID}
		if err := files.SaveConversation(ctx, conv); err != nil {
			return nil, fmt.Errorf("failed to create conversation: %w", err)
		}
	case err != nil:
		return nil, err
	case conv.UserID != opts.UserID:
		return nil, common.NewUserError(fmt.Sprintf("conversation %s belongs to another user", conv.ID), nil)
	}

	if opts.FileID == "" {
		opts.FileID = uuid.NewString()
	}
	if opts.FileName == "" {
		opts.FileName = opts.FileID
	}

	file := &model.File{
		ID:             opts.FileID,
		UserID:         opts.UserID,
		ConversationID: &conv.ID,
		FileName:       opts.FileName,
	}
	return proc.Ingest(ctx, file, fragments)
}
