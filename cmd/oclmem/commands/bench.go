package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gitter-badger/ocl/internal/buffer"
	"github.com/gitter-badger/ocl/internal/gpu"
	"github.com/gitter-badger/ocl/internal/logging"
	"github.com/gitter-badger/ocl/internal/system"
)

var benchLog = logging.WithComponent("bench")

type benchOptions struct {
	queues int
	length int
	iters  int
}

type benchResult struct {
	bytes int64
	maps  int
}

func newBenchCommand() *cobra.Command {
	opts := &benchOptions{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run concurrent buffer round trips",
		Long: `Create one queue and one buffer per worker, then repeatedly write,
read back and map each buffer concurrently. Every round trip is verified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.queues, "queues", 4, "number of concurrent queues")
	cmd.Flags().IntVar(&opts.length, "len", 1<<20, "elements per buffer")
	cmd.Flags().IntVar(&opts.iters, "iters", 10, "round trips per queue")
	return cmd
}

func runBench(cmd *cobra.Command, opts *benchOptions) error {
	if opts.queues < 1 || opts.length < 1 || opts.iters < 1 {
		return fmt.Errorf("--queues, --len and --iters must be positive")
	}

	// Device buffer plus two host slices per queue
	need := int64(opts.queues) * int64(opts.length) * 4 * 3
	if !system.FitsInRAM(need) {
		return fmt.Errorf("benchmark needs %s, more than available RAM", system.FormatBytes(need))
	}

	rt, err := gpu.OpenRuntime(cfg.RuntimeOptions())
	if err != nil {
		return fmt.Errorf("opening %s runtime: %w", cfg.Runtime.Backend, err)
	}
	defer rt.Close()

	results := make([]benchResult, opts.queues)
	start := time.Now()

	g, ctx := errgroup.WithContext(cmd.Context())
	for i := 0; i < opts.queues; i++ {
		i := i
		g.Go(func() error {
			return benchQueue(ctx, rt, i, opts, &results[i])
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	var total benchResult
	for _, r := range results {
		total.bytes += r.bytes
		total.maps += r.maps
	}
	rate := int64(float64(total.bytes) / elapsed.Seconds())

	fmt.Fprintln(cmd.OutOrStdout(), section("Benchmark", [][2]string{
		row("Device", "%s", rt.Name()),
		row("Queues", "%d", opts.queues),
		row("Elements", "%d", opts.length),
		row("Iterations", "%d", opts.iters),
		row("Transferred", "%s", system.FormatBytes(total.bytes)),
		row("Maps", "%d", total.maps),
		row("Elapsed", "%s", elapsed.Round(time.Millisecond)),
		row("Throughput", "%s/s", system.FormatBytes(rate)),
	}))
	return nil
}

// benchQueue runs the round trips of one worker on its own queue
func benchQueue(ctx context.Context, rt gpu.Runtime, worker int, opts *benchOptions, res *benchResult) error {
	q, err := gpu.NewQueue(rt, 0)
	if err != nil {
		return err
	}
	defer q.Release()

	buf, err := buffer.New[float32](q, nil, gpu.Dims1(opts.length), nil)
	if err != nil {
		return fmt.Errorf("worker %d: %w", worker, err)
	}
	defer buf.Release()

	src := make([]float32, opts.length)
	dst := make([]float32, opts.length)
	size := int64(opts.length) * 4

	for iter := 0; iter < opts.iters; iter++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		mark := float32(worker*opts.iters + iter)
		for i := range src {
			src[i] = mark
		}

		if err := buf.Write(src).Enq(); err != nil {
			return fmt.Errorf("worker %d write: %w", worker, err)
		}
		if err := buf.Read(dst).Enq(); err != nil {
			return fmt.Errorf("worker %d read: %w", worker, err)
		}
		if dst[0] != mark || dst[len(dst)-1] != mark {
			return fmt.Errorf("worker %d iteration %d: read back %v, want %v", worker, iter, dst[0], mark)
		}

		mm, err := buf.Cmd().Map(buffer.Some(gpu.MapRead), nil).EnqMap()
		if err != nil {
			return fmt.Errorf("worker %d map: %w", worker, err)
		}
		got := mm.Slice()[len(dst)/2]
		if err := mm.Release(); err != nil {
			return fmt.Errorf("worker %d unmap: %w", worker, err)
		}
		if got != mark {
			return fmt.Errorf("worker %d iteration %d: mapped %v, want %v", worker, iter, got, mark)
		}

		res.bytes += 2 * size
		res.maps++
	}

	benchLog.WithField("worker", worker).Debug("Worker finished")
	return nil
}
