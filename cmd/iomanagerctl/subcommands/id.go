package subcommands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eser/iomanager/pkg/ajan/lib"
)

// CmdID generates one or more ULIDs, handy for minting session or request
// identifiers when scripting against the directory server.
func CmdID() *cobra.Command {
	var flagCount int

	idCmd := &cobra.Command{ //nolint:exhaustruct
		Use:   "id",
		Short: "Generates id",
		Long:  "Generates id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execID(cmd.Context(), flagCount)
		},
	}

	idCmd.Flags().IntVarP(&flagCount, "count", "n", 1, "count of ids will be generated")

	return idCmd
}

func execID(_ context.Context, count int) error {
	for range count {
		id := lib.IDsGenerateUnique()

		fmt.Println(id) //nolint:forbidigo
	}

	return nil
}
