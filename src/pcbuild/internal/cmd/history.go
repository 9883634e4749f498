package cmd

import (
	"fmt"
	"time"

	"github.com/pycoreos/pcforge/src/common/output"
	"github.com/pycoreos/pcforge/src/forge/journal"
	"github.com/pycoreos/pcforge/src/forge/settings"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent pipeline runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum number of runs to show (0 = all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	cfg := settings.JournalConfig()
	if !cfg.Enabled {
		return fmt.Errorf("run journal is disabled (journal.enabled=false)")
	}
	db, err := journal.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := journal.NewRunRepository(db).List(cmd.Context(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputFormat == output.FormatJSON {
		return output.PrintJSON(out, runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		duration := "-"
		if d := r.Duration(); d > 0 {
			duration = d.Round(100 * time.Millisecond).String()
		}
		detail := r.Artifact
		if r.Error != "" {
			detail = r.Error
		}
		rows = append(rows, []string{
			shortID(r.ID),
			r.Target,
			r.Status,
			r.Stage,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			duration,
			detail,
		})
	}
	output.PrintTable(out, []string{"ID", "TARGET", "STATUS", "STAGE", "STARTED", "DURATION", "DETAIL"}, rows)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
