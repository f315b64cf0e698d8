package cli

import (
	"context"
	"fmt"

	"github.com/engramhq/engram/internal/engramerr"
	"github.com/spf13/cobra"
)

var verifyRoot string

var verifyCmd = &cobra.Command{
	Use:   "verify <id>",
	Short: "Check an episode's inclusion proof against a snapshot root",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyRoot, "root", "", "snapshot root hash (required)")
	verifyCmd.MarkFlagRequired("root")
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ok, err := mem.Verify(ctx, verifyRoot, args[0])
	if err != nil {
		exitOnErr(err)
		return nil
	}
	if !ok {
		exitOnErr(engramerr.Wrapf(engramerr.ErrIntegrity, "episode %s does not verify against root %s", args[0], verifyRoot))
		return nil
	}
	fmt.Println(theme.successStyle().Render("verified"))
	return nil
}
