package subcommands

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/eser/iomanager/pkg/iomanager"
	"github.com/eser/iomanager/pkg/iomanager/codec"
	"github.com/eser/iomanager/pkg/iomanager/codec/jsoncodec"
	"github.com/eser/iomanager/pkg/iomanager/transport"
	"github.com/eser/iomanager/pkg/iomanager/transport/amqp"
	"github.com/eser/iomanager/pkg/iomanager/transport/inproc"
	"github.com/eser/iomanager/pkg/iomanager/transport/rstream"
	"github.com/eser/iomanager/pkg/iomanager/transport/zmq"
)

// CmdPubSubStress publishes to a pub-sub connection while N independent
// subscribers drain it, reporting each subscriber's delivered count. The
// transport plugin is picked from uri's scheme (inproc, zmq/tcp/ipc, amqp,
// rstream/redis), the same way the network package's pluginNameForURI does.
func CmdPubSubStress() *cobra.Command {
	var (
		flagUID         string
		flagURI         string
		flagSubscribers int
		flagCount       int
		flagTimeout     time.Duration
	)

	cmd := &cobra.Command{ //nolint:exhaustruct
		Use:   "pubsub-stress",
		Short: "Stress-tests a pub-sub connection's fan-out",
		Long:  "Stress-tests a pub-sub connection's fan-out across several subscribers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execPubSubStress(cmd.Context(), flagUID, flagURI, flagSubscribers, flagCount, flagTimeout)
		},
	}

	cmd.Flags().StringVar(&flagUID, "uid", "stress-pub", "publisher connection uid")
	cmd.Flags().StringVar(&flagURI, "uri", "inproc://pubsub-stress", "connection URI")
	cmd.Flags().IntVar(&flagSubscribers, "subscribers", 3, "number of independent subscribers")
	cmd.Flags().IntVar(&flagCount, "count", 1000, "number of messages to publish")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", 5*time.Second, "per-operation timeout")

	return cmd
}

func execPubSubStress(ctx context.Context, uid, uri string, subscribers, count int, timeout time.Duration) error {
	pubID := iomanager.NewConnectionId(uid, "Sample", "")

	codecs := codec.NewRegistry()
	codecs.Register(jsoncodec.New())

	factory := transport.NewDefaultMultiFactory(inproc.Register, zmq.Register, amqp.Register, rstream.Register)

	m := iomanager.New(nil, factory, codecs)
	defer m.Reset()

	if err := m.Configure(ctx, iomanager.Config{ //nolint:exhaustruct
		Connections: []iomanager.ConnectionConfig{
			{ID: pubID, URI: uri, Kind: iomanager.ConnectionKindPubSub},
		},
	}); err != nil {
		return fmt.Errorf("pubsub-stress: configure: %w", err)
	}

	counts := make([]int, subscribers)

	var wg sync.WaitGroup

	for i := range subscribers {
		// See iomanager_test.go's TestIOManager_PubSubFanout for why this
		// regex gives each subscriber its own cache entry while still
		// matching the single publisher uid.
		subID := iomanager.NewConnectionId(fmt.Sprintf("%s(#%d)?", uid, i), "Sample", "")

		receiver, err := iomanager.GetReceiver[int](m, subID)
		if err != nil {
			return fmt.Errorf("pubsub-stress: subscriber %d: %w", i, err)
		}

		idx := i

		wg.Add(1)

		go func() {
			defer wg.Done()

			for range count {
				if _, ok := receiver.TryReceive(ctx, timeout); ok {
					counts[idx]++
				}
			}
		}()
	}

	sender, err := iomanager.GetSender[int](m, pubID)
	if err != nil {
		return fmt.Errorf("pubsub-stress: %w", err)
	}

	time.Sleep(50 * time.Millisecond) // let subscribers connect before the first publish

	for i := range count {
		if err := sender.Send(ctx, i, timeout); err != nil {
			return fmt.Errorf("pubsub-stress: send #%d: %w", i, err)
		}
	}

	wg.Wait()

	for i, got := range counts {
		fmt.Printf("pubsub-stress: subscriber %d received %d/%d\n", i, got, count) //nolint:forbidigo
	}

	return nil
}
