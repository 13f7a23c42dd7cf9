package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/cli"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/service"
)

func alertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Inspect detected anomalies",
	}

	cmd.AddCommand(alertsListCmd())
	cmd.AddCommand(alertsStatsCmd())

	return cmd
}

type alertScope struct {
	FileID         string
	ConversationID string
	UserID         string
}

func alertsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts of a file, conversation or user",
		Long: `List alerts, most severe first. Exactly one of --file, --conversation or --user
selects the alerts to show.`,
		RunE: runAlertsList,
	}

	cmd.Flags().String("file", "", "alerts of one file")
	cmd.Flags().String("conversation", "", "alerts of every file in a conversation")
	cmd.Flags().String("user", "", "alerts of every file of a user")
	cmd.Flags().String("severity", "", "only this severity (critical, warning, info)")
	cmd.Flags().Int("limit", 0, "maximum number of alerts (0 means all)")

	return cmd
}

func runAlertsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	var scope alertScope
	scope.FileID, _ = cmd.Flags().GetString("file")
	scope.ConversationID, _ = cmd.Flags().GetString("conversation")
	scope.UserID, _ = cmd.Flags().GetString("user")
	severity, _ := cmd.Flags().GetString("severity")
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := initStorage(ctx, appConfig)
	if err != nil {
		return err
	}
	defer closeStorage(store)

	alerts, err := listAlerts(ctx, store, scope, service.AlertFilter{Severity: model.Severity(severity), Limit: limit})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(alerts) == 0 {
		fmt.Fprintln(out, cli.InfoStyle.Render("No alerts found."))
		return nil
	}
	fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("Alerts (%d)", len(alerts))))
	fmt.Fprintln(out, renderAlerts(alerts))
	return nil
}

func listAlerts(ctx context.Context, alerts service.AlertStore, scope alertScope, filter service.AlertFilter) ([]model.Alert, error) {
	set := 0
	for _, v := range []string{scope.FileID, scope.ConversationID, scope.UserID} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("exactly one of --file, --conversation or --user is required")
	}

	switch {
	case scope.FileID != "":
		return alerts.ListAlertsByFile(ctx, scope.FileID, filter)
	case scope.ConversationID != "":
		return alerts.ListAlertsByConversation(ctx, scope.ConversationID, filter)
	default:
		return alerts.ListAlertsByUser(ctx, scope.UserID, filter)
	}
}

func renderAlerts(alerts []model.Alert) string {
	rows := make([][]string, 0, len(alerts))
	for _, a := range alerts {
		rows = append(rows, []string{
			cli.FormatSeverity(a.Severity),
			string(a.Type),
			a.FileID,
			a.Message,
			a.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	return cli.RenderTable([]string{"SEVERITY", "TYPE", "FILE", "MESSAGE", "DETECTED"}, rows)
}

func alertsStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Count a user's alerts by severity and type",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			userID, _ := cmd.Flags().GetString("user")

			store, err := initStorage(ctx, appConfig)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			stats, err := store.AlertStats(ctx, userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderStats(stats))
			return nil
		},
	}

	cmd.Flags().String("user", "", "user whose alerts are counted (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func renderStats(stats model.AlertStats) string {
	rows := make([][]string, 0, len(stats.BySeverity)+len(stats.ByType)+1)
	for _, sev := range model.Severities {
		rows = append(rows, []string{cli.FormatSeverity(sev), strconv.Itoa(stats.BySeverity[sev])})
	}

	for _, t := range model.AlertTypes {
		rows = append(rows, []string{string(t), strconv.Itoa(stats.ByType[t])})
	}
	rows = append(rows, []string{cli.BoldStyle.Render("total"), strconv.Itoa(stats.Total)})

	return cli.RenderBox("Alert statistics", cli.RenderTable([]string{"", "COUNT"}, rows))
}
