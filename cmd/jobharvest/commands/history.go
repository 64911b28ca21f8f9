package commands

import (
	"fmt"
	"io"
	"jobharvest/lib/runlog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Only show the last n runs, 0 shows every run.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--limit n]",
	Short: "Lists the recorded runs, most recent last.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig(configPath)
		if err != nil {
			return err
		}
		entries, err := cfg.historyLog().Load()
		if err != nil {
			return fmt.Errorf("load run history: %w", err)
		}
		renderHistory(cmd.OutOrStdout(), lastEntries(entries, historyLimit))
		return nil
	},
}

func lastEntries(entries []runlog.Entry, limit int) []runlog.Entry {
	if limit <= 0 || len(entries) <= limit {
		return entries
	}
	return entries[len(entries)-limit:]
}

func renderHistory(w io.Writer, entries []runlog.Entry) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Timestamp", "Status", "Records", "Error"})
	for _, e := range entries {
		errText := ""
		if e.Error != nil {
			errText = *e.Error
		}
		t.AppendRow(table.Row{e.Timestamp, e.Status, e.RecordsScraped, errText})
	}
	t.AppendFooter(table.Row{"", "", "Runs", len(entries)})
	t.Render()
}
