package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/engramhq/engram/internal/models"
	"github.com/engramhq/engram/internal/query"
	"github.com/spf13/cobra"
)

var (
	recallLimit int
	recallTags  []string
	recallType  string
)

var recallCmd = &cobra.Command{
	Use:   "recall <query>",
	Short: "Search episodes by BM25 + recency relevance",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecall,
}

func init() {
	recallCmd.Flags().IntVarP(&recallLimit, "limit", "n", 10, "max results")
	recallCmd.Flags().StringSliceVar(&recallTags, "tags", nil, "require these tags")
	recallCmd.Flags().StringVar(&recallType, "type", "", "filter by episode type")
}

func searchOptions(limit int, tags []string, epType string) query.Options {
	opts := query.DefaultOptions(time.Now().UnixMilli())
	opts.Limit = limit
	opts.Filters.Tags = tags
	opts.Filters.Type = epType
	return opts
}

func runRecall(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	results, err := mem.Recall(ctx, args[0], searchOptions(recallLimit, recallTags, recallType))
	if err != nil {
		exitOnErr(err)
		return nil
	}
	printScored(results)
	return nil
}

func printScored(results []*models.ScoredEpisode) {
	if len(results) == 0 {
		fmt.Println(theme.hintStyle().Render("No results found."))
		return
	}
	fmt.Printf("Found %d result(s):\n\n", len(results))
	for i, ep := range results {
		fmt.Printf("%d. [%s] %s  (score %.3f)\n", i+1, ep.Type, ep.ID, ep.Score)
		fmt.Printf("   %s\n", truncateLine(ep.Text, 120))
		if verbose {
			fmt.Printf("   tags=%v importance=%.2f bm25=%.3f recency=%.3f\n", ep.Tags, ep.Importance, ep.BM25, ep.Recency)
		}
	}
}

func truncateLine(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
