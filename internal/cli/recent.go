package cli

import (
	"context"
	"fmt"

	"github.com/engramhq/engram/internal/models"
	"github.com/spf13/cobra"
)

var recentLimit int

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the most recently created episodes",
	RunE:  runRecent,
}

func init() {
	recentCmd.Flags().IntVarP(&recentLimit, "limit", "n", 10, "max results")
}

func runRecent(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	episodes, err := mem.GetRecent(ctx, recentLimit)
	if err != nil {
		exitOnErr(err)
		return nil
	}
	printEpisodes(episodes)
	return nil
}

func printEpisodes(episodes []*models.Episode) {
	if len(episodes) == 0 {
		fmt.Println(theme.hintStyle().Render("No episodes found."))
		return
	}
	fmt.Printf("%d episode(s):\n\n", len(episodes))
	for i, ep := range episodes {
		fmt.Printf("%d. [%s] %s\n", i+1, ep.Type, ep.ID)
		fmt.Printf("   %s\n", truncateLine(ep.Text, 120))
		if verbose {
			fmt.Printf("   tags=%v importance=%.2f\n", ep.Tags, ep.Importance)
		}
	}
}
