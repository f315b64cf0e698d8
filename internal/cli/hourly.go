package cli

import (
	"context"
	"fmt"

	"github.com/engramhq/engram/internal/agent"
	"github.com/spf13/cobra"
)

var (
	hourlySummaryHours          int
	hourlySummaryMarkSuperseded bool
)

var hourlySummaryCmd = &cobra.Command{
	Use:   "hourly-summary",
	Short: "Summarize recent episodes into a single summary episode",
	RunE:  runHourlySummary,
}

func init() {
	hourlySummaryCmd.Flags().IntVar(&hourlySummaryHours, "hours", 1, "lookback window")
	hourlySummaryCmd.Flags().BoolVar(&hourlySummaryMarkSuperseded, "mark-superseded", false, "mark summarized episodes as superseded by the summary")
}

func runHourlySummary(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	summary, err := mem.HourlySummary(ctx, agent.HourlySummaryOptions{
		Hours:          hourlySummaryHours,
		MarkSuperseded: hourlySummaryMarkSuperseded,
	})
	if err != nil {
		exitOnErr(err)
		return nil
	}
	fmt.Println(theme.successStyle().Render("Created summary " + summary.ID))
	fmt.Println(summary.Text)
	return nil
}
