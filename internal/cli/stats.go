package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show storage, index and runtime counters",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	s, err := mem.Stats(ctx)
	if err != nil {
		exitOnErr(err)
		return nil
	}

	fmt.Println(theme.statusStyle().Render("Storage"))
	fmt.Printf("  episodes: %d\n", s.Storage.EpisodeCount)
	fmt.Printf("  bytes:    %d\n", s.Storage.BytesUsed)
	fmt.Printf("  path:     %s\n", s.Storage.Path)

	fmt.Println()
	fmt.Println(theme.statusStyle().Render("Index"))
	fmt.Printf("  indexed docs: %d\n", s.EpisodeCount)
	fmt.Printf("  vocabulary:   %d terms\n", s.TotalTerms)
	fmt.Printf("  avg doc len:  %.1f tokens\n", s.AvgDocLength)

	if len(s.Operations) > 0 {
		fmt.Println()
		fmt.Println(theme.statusStyle().Render("Operations"))
		for _, op := range s.Operations {
			fmt.Printf("  %-20s calls=%-6d avg=%.2fms min=%s max=%s\n",
				op.Name, op.Count, op.AvgTimeMs, op.MinTime, op.MaxTime)
		}
	}
	return nil
}
