package cli

import (
	"context"
	"fmt"

	"github.com/engramhq/engram/internal/agent"
	"github.com/spf13/cobra"
)

var contextMaxTokens int

var contextCmd = &cobra.Command{
	Use:   "context <query>",
	Short: "Build a prompt-ready context block from the top recall results",
	Args:  cobra.ExactArgs(1),
	RunE:  runContext,
}

func init() {
	contextCmd.Flags().IntVar(&contextMaxTokens, "max-tokens", 500, "token budget")
}

func runContext(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	text, err := mem.BuildContext(ctx, args[0], contextMaxTokens)
	if err != nil {
		exitOnErr(err)
		return nil
	}
	fmt.Print(text)
	return nil
}

var (
	injectExcludeTags  []string
	injectPriorityTags []string
	injectRecentN      int
	injectMaxTokens    int
)

var injectCmd = &cobra.Command{
	Use:   "inject <query>",
	Short: "Build a two-section context block: relevant + recent memories",
	Args:  cobra.ExactArgs(1),
	RunE:  runInject,
}

func init() {
	injectCmd.Flags().StringSliceVar(&injectExcludeTags, "exclude-tags", nil, "drop episodes carrying any of these tags")
	injectCmd.Flags().StringSliceVar(&injectPriorityTags, "priority-tags", nil, "boost relevance for episodes carrying these tags")
	injectCmd.Flags().IntVar(&injectRecentN, "recent", 5, "how many recent episodes to include")
	injectCmd.Flags().IntVar(&injectMaxTokens, "max-tokens", 800, "token budget")
}

func runInject(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	text, err := mem.InjectContext(ctx, args[0], agent.InjectOptions{
		ExcludeTags:  injectExcludeTags,
		PriorityTags: injectPriorityTags,
		RecentN:      injectRecentN,
		MaxTokens:    injectMaxTokens,
	})
	if err != nil {
		exitOnErr(err)
		return nil
	}
	fmt.Print(text)
	return nil
}
