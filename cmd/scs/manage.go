package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/cli"
)

func filesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Manage stored files",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <file-id>",
		Short: "Delete a file with its fragments and alerts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx, appConfig)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if err := store.DeleteFile(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete file: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted file "+args[0]))
			return nil
		},
	})

	return cmd
}

func conversationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conversations",
		Short: "Manage conversations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <conversation-id>",
		Short: "Delete a conversation with its files, fragments and alerts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx, appConfig)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if err := store.DeleteConversation(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete conversation: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted conversation "+args[0]))
			return nil
		},
	})

	return cmd
}
