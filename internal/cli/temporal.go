package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var temporalLimit int

var temporalCmd = &cobra.Command{
	Use:   "temporal <query>",
	Short: "Recall episodes with a time phrase parsed out of the query",
	Long: `Recognizes a leading or embedded time phrase (today, yesterday, this
week, last week, this month, last month) and filters to that window.
Remaining text, if any, is used as a relevance query within the window.

Examples:
  engram temporal "what happened yesterday"
  engram temporal "trades from last week"`,
	Args: cobra.ExactArgs(1),
	RunE: runTemporal,
}

func init() {
	temporalCmd.Flags().IntVarP(&temporalLimit, "limit", "n", 10, "max results")
}

func runTemporal(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	opts := searchOptions(temporalLimit, nil, "")
	opts.Now = time.Now().UnixMilli()
	results, err := mem.Temporal(ctx, args[0], opts)
	if err != nil {
		exitOnErr(err)
		return nil
	}
	printScored(results)
	return nil
}
