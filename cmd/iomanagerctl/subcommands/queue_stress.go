package subcommands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/eser/iomanager/pkg/iomanager"
	"github.com/eser/iomanager/pkg/iomanager/codec"
	"github.com/eser/iomanager/pkg/iomanager/codec/jsoncodec"
	"github.com/eser/iomanager/pkg/iomanager/transport"
)

// CmdQueueStress drives a single queue-backed connection with a producer and
// a consumer goroutine, reporting throughput. It exercises the same
// GetSender/GetReceiver path real components use, without any network
// transport involved.
func CmdQueueStress() *cobra.Command {
	var (
		flagUID      string
		flagVariant  string
		flagCapacity int
		flagCount    int
		flagTimeout  time.Duration
	)

	cmd := &cobra.Command{ //nolint:exhaustruct
		Use:   "queue-stress",
		Short: "Stress-tests a local queue connection",
		Long:  "Stress-tests a local queue connection with a producer/consumer pair",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execQueueStress(cmd.Context(), flagUID, flagVariant, flagCapacity, flagCount, flagTimeout)
		},
	}

	cmd.Flags().StringVar(&flagUID, "uid", "stress-queue", "connection uid")
	cmd.Flags().StringVar(&flagVariant, "variant", "spsc", "queue variant: deque, spsc, or mpmc")
	cmd.Flags().IntVar(&flagCapacity, "capacity", 1024, "queue capacity")
	cmd.Flags().IntVar(&flagCount, "count", 100_000, "number of messages to push/pop")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", 5*time.Second, "per-operation timeout")

	return cmd
}

func execQueueStress(ctx context.Context, uid, variantName string, capacity, count int, timeout time.Duration) error {
	variant, err := iomanager.ParseQueueVariant(variantName)
	if err != nil {
		return fmt.Errorf("queue-stress: %w", err)
	}

	id := iomanager.NewConnectionId(uid, "int", "")

	codecs := codec.NewRegistry()
	codecs.Register(jsoncodec.New())

	m := iomanager.New(nil, transport.NewDefaultMultiFactory(), codecs)
	defer m.Reset()

	if err := m.Configure(ctx, iomanager.Config{ //nolint:exhaustruct
		Queues: []iomanager.QueueConfig{
			{ID: id, Variant: variant, Capacity: uint32(capacity)}, //nolint:gosec
		},
	}); err != nil {
		return fmt.Errorf("queue-stress: configure: %w", err)
	}

	sender, err := iomanager.GetSender[int](m, id)
	if err != nil {
		return fmt.Errorf("queue-stress: %w", err)
	}

	receiver, err := iomanager.GetReceiver[int](m, id)
	if err != nil {
		return fmt.Errorf("queue-stress: %w", err)
	}

	start := time.Now()

	errs := make(chan error, 1)

	go func() {
		for i := range count {
			if err := sender.Send(ctx, i, timeout); err != nil {
				errs <- fmt.Errorf("queue-stress: send #%d: %w", i, err)

				return
			}
		}

		errs <- nil
	}()

	received := 0

	for received < count {
		if _, err := receiver.Receive(ctx, timeout); err != nil {
			return fmt.Errorf("queue-stress: receive #%d: %w", received, err)
		}

		received++
	}

	if err := <-errs; err != nil {
		return err
	}

	elapsed := time.Since(start)

	fmt.Printf("queue-stress: %d messages in %s (%.0f msg/s)\n", //nolint:forbidigo
		count, elapsed, float64(count)/elapsed.Seconds())

	return nil
}
