package cli

import (
	"context"
	"fmt"

	"github.com/engramhq/engram/internal/agent"
	"github.com/engramhq/engram/internal/analyzer"
	"github.com/spf13/cobra"
)

var (
	rememberType       string
	rememberTags       []string
	rememberImportance float64
	rememberSupersedes []string
	rememberChunkMode  string
	rememberMaxTokens  int
)

var rememberCmd = &cobra.Command{
	Use:   "remember <text>",
	Short: "Store a new episode",
	Long: `Store text as one or more chunked episodes.

Examples:
  engram remember "User prefers dark mode for the interface" --type fact --tags preferences,ui
  engram remember "Fact v2" --supersedes ep_default_1700000000000_ab12cd34`,
	Args: cobra.ExactArgs(1),
	RunE: runRemember,
}

func init() {
	rememberCmd.Flags().StringVarP(&rememberType, "type", "t", "fact", "episode type")
	rememberCmd.Flags().StringSliceVarP(&rememberTags, "tags", "g", nil, "tags")
	rememberCmd.Flags().Float64VarP(&rememberImportance, "importance", "i", 0.5, "importance, 0-1")
	rememberCmd.Flags().StringSliceVar(&rememberSupersedes, "supersedes", nil, "episode ids this chunk supersedes")
	rememberCmd.Flags().StringVar(&rememberChunkMode, "chunk-mode", "sentence", "chunk mode: sentence, paragraph, fixed")
	rememberCmd.Flags().IntVar(&rememberMaxTokens, "max-tokens", 200, "max tokens per chunk")
}

func runRemember(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	opts := agent.DefaultRememberOptions()
	opts.Type = rememberType
	opts.Tags = rememberTags
	opts.Importance = &rememberImportance
	opts.Supersedes = rememberSupersedes
	opts.MaxTokens = rememberMaxTokens
	switch rememberChunkMode {
	case "paragraph":
		opts.ChunkMode = analyzer.ChunkParagraph
	case "fixed":
		opts.ChunkMode = analyzer.ChunkFixed
	default:
		opts.ChunkMode = analyzer.ChunkSentence
	}

	episodes, err := mem.Remember(ctx, args[0], opts)
	if err != nil {
		exitOnErr(err)
		return nil
	}

	fmt.Println(theme.successStyle().Render(fmt.Sprintf("Remembered %d episode(s)", len(episodes))))
	for _, ep := range episodes {
		fmt.Printf("  %s\n", ep.ID)
		if verbose {
			fmt.Printf("    type=%s tags=%v importance=%.2f\n", ep.Type, ep.Tags, ep.Importance)
		}
	}
	return nil
}
