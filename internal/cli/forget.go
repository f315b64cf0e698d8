package cli

import (
	"context"
	"fmt"

	"github.com/engramhq/engram/internal/engramerr"
	"github.com/spf13/cobra"
)

var forgetCmd = &cobra.Command{
	Use:   "forget <id>",
	Short: "Delete a single episode by id",
	Args:  cobra.ExactArgs(1),
	RunE:  runForget,
}

func runForget(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	deleted, err := mem.Forget(ctx, args[0])
	if err != nil {
		exitOnErr(err)
		return nil
	}
	if !deleted {
		exitOnErr(engramerr.Wrapf(engramerr.ErrNotFound, "%s", args[0]))
		return nil
	}
	fmt.Println(theme.successStyle().Render("Forgot " + args[0]))
	return nil
}
