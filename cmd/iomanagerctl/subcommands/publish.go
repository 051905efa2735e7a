package subcommands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eser/iomanager/pkg/ajan/httpclient"
	"github.com/eser/iomanager/pkg/iomanager/directory"
)

// CmdPublish registers one connection with a directory server over
// /publish, grounded on directory.Client.flush's request shape but issued
// as a single one-shot call instead of a background republish loop.
func CmdPublish() *cobra.Command {
	var (
		flagDirectoryURL string
		flagPartition    string
		flagUID          string
		flagDataType     string
		flagURI          string
		flagKind         string
	)

	publishCmd := &cobra.Command{ //nolint:exhaustruct
		Use:   "publish",
		Short: "Publishes a connection endpoint to the directory server",
		Long:  "Publishes a connection endpoint to the directory server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execPublish(cmd.Context(), flagDirectoryURL, flagPartition, flagUID, flagDataType, flagURI, flagKind)
		},
	}

	publishCmd.Flags().StringVar(&flagDirectoryURL, "directory-url", "http://localhost:5000", "directory server base URL")
	publishCmd.Flags().StringVar(&flagPartition, "partition", "", "DAQ partition name (required)")
	publishCmd.Flags().StringVar(&flagUID, "uid", "", "connection uid (required)")
	publishCmd.Flags().StringVar(&flagDataType, "data-type", "", "connection data type (required)")
	publishCmd.Flags().StringVar(&flagURI, "uri", "", "connection URI (required)")
	publishCmd.Flags().StringVar(&flagKind, "kind", "send_recv", "connection kind: send_recv or pub_sub")

	for _, name := range []string{"partition", "uid", "data-type", "uri"} {
		_ = publishCmd.MarkFlagRequired(name)
	}

	return publishCmd
}

func execPublish(ctx context.Context, directoryURL, partition, uid, dataType, uri, kind string) error {
	client := httpclient.NewClient()

	body := publishBody{
		Partition: partition,
		Connections: []directory.Registration{
			{UID: uid, DataType: dataType, URI: uri, Kind: kind, RegisteredAt: ""},
		},
	}

	if err := postDirectory(ctx, client, directoryURL, "/publish", body, nil); err != nil {
		return err
	}

	fmt.Printf("published uid=%q data_type=%q uri=%q kind=%q to partition=%q\n", //nolint:forbidigo
		uid, dataType, uri, kind, partition)

	return nil
}
