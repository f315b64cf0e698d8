package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var chainCmd = &cobra.Command{
	Use:   "chain <id>",
	Short: "Show the supersession chain rooted at an episode's earliest ancestor",
	Args:  cobra.ExactArgs(1),
	RunE:  runChain,
}

func runChain(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	chain, err := mem.Chain(ctx, args[0])
	if err != nil {
		exitOnErr(err)
		return nil
	}
	for i, ep := range chain {
		marker := " "
		if i == len(chain)-1 {
			marker = "*"
		}
		fmt.Printf("%s %s  %s\n", marker, ep.ID, truncateLine(ep.Text, 80))
	}
	return nil
}
