package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/watzon/autoimport/internal/database"
	"github.com/watzon/autoimport/internal/executions"
)

var (
	historyConfiguration string
	historyTimeID        int
	historyStatus        string
	historyRunID         string
	historySince         time.Duration
	historyLimit         int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded action executions",
	Long: `List executed actions from the history database, newest first.

  autoimport history --configuration orders --status failed
  autoimport history --since 24h --limit 100`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyConfiguration, "configuration", "", "only show this configuration")
	historyCmd.Flags().IntVar(&historyTimeID, "time-id", 0, "only show this run scheme time id")
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "only show this status (success, failed, canceled)")
	historyCmd.Flags().StringVar(&historyRunID, "run", "", "only show this run id")
	historyCmd.Flags().DurationVar(&historySince, "since", 0, "only show executions started within this duration")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "maximum number of entries")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, err := database.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("opening history database: %w", err)
	}
	defer db.Close()

	filter := executions.Filter{
		Configuration: historyConfiguration,
		RunID:         historyRunID,
		Status:        executions.ExecutionStatus(historyStatus),
		Limit:         historyLimit,
	}
	if cmd.Flags().Changed("time-id") {
		id := historyTimeID
		filter.TimeID = &id
	}
	if historySince > 0 {
		filter.Since = time.Now().Add(-historySince)
	}

	switch filter.Status {
	case "", executions.ExecutionStatusSuccess, executions.ExecutionStatusFailed, executions.ExecutionStatusCanceled:
	default:
		return fmt.Errorf("unknown status %q", historyStatus)
	}

	logs, err := executions.NewStore(db).List(context.Background(), filter)
	if err != nil {
		return err
	}

	return printHistory(cmd.OutOrStdout(), logs)
}

func printHistory(out io.Writer, logs []*executions.ExecutionLog) error {
	if len(logs) == 0 {
		fmt.Fprintln(out, "No executions recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tCONFIGURATION\tTIME ID\tORDER\tKIND\tSTATUS\tDURATION\tRUN\tERROR")
	for _, l := range logs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			l.StartedAt.Local().Format(time.DateTime),
			l.Configuration,
			l.TimeID,
			l.Order,
			l.Kind,
			l.Status,
			time.Duration(l.DurationMs)*time.Millisecond,
			shortID(l.RunID),
			l.Error,
		)
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
