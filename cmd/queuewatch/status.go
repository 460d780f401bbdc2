package main

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/notifyhub/queue-watch/internal/domain"
	"github.com/notifyhub/queue-watch/internal/statussource"
)

var (
	labelStyle  = lipgloss.NewStyle().Faint(true)
	calledStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#DC2626"))
	waitStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2563EB"))
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <queueId>",
		Short: "Fetch the current status of a queue entry once",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().Bool("json", false, "Output the raw status snapshot as JSON")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		id, err := domain.ParseQueueID(args[0])
		if err != nil {
			return err
		}
		src, err := statussource.NewHTTPSource(cfg.StatusSourceBaseURL, cfg.StatusRequestTimeout)
		if err != nil {
			return err
		}

		snap, err := src.FetchStatus(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to fetch status: %w", err)
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), renderStatus(snap))
		return err
	}
	return cmd
}

func renderStatus(snap *domain.StatusSnapshot) string {
	state := waitStyle.Render("waiting")
	if snap.IsCalled {
		state = calledStyle.Render("CALLED")
	}

	number := snap.QueueNumber
	if snap.DepartmentPrefix != "" {
		number = snap.DepartmentPrefix + "-" + number
	}

	lines := []string{
		labelStyle.Render("queue   ") + string(snap.QueueID),
		labelStyle.Render("state   ") + state,
	}
	if number != "" {
		lines = append(lines, labelStyle.Render("number  ")+number)
	}
	if snap.Status.Text != "" {
		lines = append(lines, labelStyle.Render("status  ")+snap.Status.Text)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
