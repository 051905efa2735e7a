package subcommands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eser/iomanager/pkg/ajan/httpclient"
	"github.com/eser/iomanager/pkg/iomanager/directory"
)

// CmdResolve queries a directory server's /getconnection endpoint and
// prints the matching connection infos as JSON, grounded on
// directory.Client.Resolve's request/response shapes.
func CmdResolve() *cobra.Command {
	var (
		flagDirectoryURL string
		flagPartition    string
		flagSession      string
		flagUIDRegex     string
		flagDataType     string
	)

	resolveCmd := &cobra.Command{ //nolint:exhaustruct
		Use:   "resolve",
		Short: "Resolves connections against a directory server",
		Long:  "Resolves connections against a directory server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execResolve(cmd.Context(), flagDirectoryURL, flagPartition, flagSession, flagUIDRegex, flagDataType)
		},
	}

	resolveCmd.Flags().StringVar(&flagDirectoryURL, "directory-url", "http://localhost:5000", "directory server base URL")
	resolveCmd.Flags().StringVar(&flagPartition, "partition", "", "DAQ partition name (required)")
	resolveCmd.Flags().StringVar(&flagSession, "session", "", "session name (optional)")
	resolveCmd.Flags().StringVar(&flagUIDRegex, "uid-regex", ".*", "uid regex to query")
	resolveCmd.Flags().StringVar(&flagDataType, "data-type", "", "data type to query (required)")

	_ = resolveCmd.MarkFlagRequired("partition")
	_ = resolveCmd.MarkFlagRequired("data-type")

	return resolveCmd
}

func execResolve(ctx context.Context, directoryURL, partition, session, uidRegex, dataType string) error {
	client := httpclient.NewClient()

	path := fmt.Sprintf("/getconnection/%s", partition)
	if session != "" {
		path = fmt.Sprintf("/getconnection/%s/%s", partition, session)
	}

	var infos []directory.Info

	req := directory.Request{UIDRegex: uidRegex, DataType: dataType}

	if err := postDirectory(ctx, client, directoryURL, path, req, &infos); err != nil {
		return err
	}

	out, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDirectoryRequestFailed, err)
	}

	fmt.Println(string(out)) //nolint:forbidigo

	return nil
}
