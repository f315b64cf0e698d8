package cli

import (
	"context"
	"fmt"

	"github.com/engramhq/engram/internal/agent"
	"github.com/spf13/cobra"
)

var (
	pruneKeep          int
	pruneMaxAgeDays    float64
	pruneMinImportance float64
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Forget low-ranked or stale episodes",
	RunE:  runPrune,
}

func init() {
	defaults := agent.DefaultPruneOptions()
	pruneCmd.Flags().IntVar(&pruneKeep, "keep", defaults.Keep, "number of top-ranked episodes to retain")
	pruneCmd.Flags().Float64Var(&pruneMaxAgeDays, "max-age-days", defaults.MaxAgeDays, "forget candidates older than this")
	pruneCmd.Flags().Float64Var(&pruneMinImportance, "min-importance", defaults.MinImportance, "forget candidates below this effective importance")
}

func runPrune(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	result, err := mem.Prune(ctx, agent.PruneOptions{
		Keep:          pruneKeep,
		MaxAgeDays:    pruneMaxAgeDays,
		MinImportance: pruneMinImportance,
	})
	if err != nil {
		exitOnErr(err)
		return nil
	}
	fmt.Println(theme.successStyle().Render(fmt.Sprintf("Pruned %d, kept %d", result.Pruned, result.Remaining)))
	return nil
}
