package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Build and anchor a Merkle snapshot over the whole store",
	RunE:  runSnapshot,
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	snap, err := mem.Snapshot(ctx)
	if err != nil {
		exitOnErr(err)
		return nil
	}
	fmt.Println(theme.successStyle().Render("root " + snap.Root))
	fmt.Printf("episodes: %d\n", snap.EpisodeCount)
	fmt.Printf("timestamp: %d\n", snap.Timestamp)
	return nil
}
