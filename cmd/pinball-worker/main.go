// The pinball-worker binary runs the claim loop: it claims runnable job
// tokens from the Master, executes their payloads as subprocesses, posts
// completion events downstream, and optionally runs the archival janitor.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/pinball-run/pinball/cmd/flag"
	"github.com/pinball-run/pinball/pkg/build"
	"github.com/pinball-run/pinball/pkg/master/client"
	"github.com/pinball-run/pinball/pkg/master/janitor"
	"github.com/pinball-run/pinball/pkg/worker"
)

func main() {
	ctx, done := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM)
	defer done()

	if err := Execute(ctx, os.Args[1:]); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "%s\n", err.Error())
		os.Exit(1)
	}
}

func Execute(ctx context.Context, args []string) error {
	globals := &flag.GlobalConfig{}
	wc := &flag.WorkerConfig{
		MasterAddr:          "127.0.0.1:42200",
		LeaseDuration:       30 * time.Second,
		PollInterval:        2 * time.Second,
		JanitorPollInterval: 30 * time.Second,
		MetricsAddr:         netip.IPv4Unspecified(),
	}

	fs := &flag.Set{FlagSet: ff.NewFlagSet("pinball-worker")}
	flag.RegisterGlobal(fs, globals)
	flag.RegisterWorkerFlags(fs, wc)

	if err := ff.Parse(fs.FlagSet, args, ff.WithEnvVarPrefix("PINBALL")); err != nil {
		if errors.Is(err, ff.ErrHelp) {
			fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs.FlagSet))
			return nil
		}
		return err
	}

	log := getLogger(globals.LogLevel).WithName("pinball-worker")

	identity := wc.Identity
	if identity == "" {
		host, _ := os.Hostname()
		identity = fmt.Sprintf("%s-%s-g%d", host, ulid.Make().String(), wc.Generation)
	}
	log.Info("starting", "version", build.Version(), "gitRev", build.GitRevision(), "identity", identity, "generation", wc.Generation)

	conn, err := grpc.NewClient(wc.MasterAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dialing master at %s: %w", wc.MasterAddr, err)
	}
	defer conn.Close()
	mc := client.New(conn)

	w := worker.New(worker.Config{
		Client:        mc,
		Executor:      &commandExecutor{Logger: log.WithName("exec")},
		Logger:        log,
		Identity:      identity,
		Generation:    wc.Generation,
		ClaimPrefixes: wc.ClaimPrefixes,
		LeaseDuration: wc.LeaseDuration,
		PollInterval:  wc.PollInterval,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := w.Run(ctx)
		if errors.Is(err, worker.ErrExitSignaled) {
			log.Info("worker exiting on EXIT signal")
			return nil
		}
		return err
	})
	if wc.EnableJanitor {
		j := janitor.New(janitor.Config{
			Client:       mc,
			Logger:       log.WithName("janitor"),
			PollInterval: wc.JanitorPollInterval,
		})
		g.Go(func() error {
			return j.Run(ctx)
		})
	}
	if wc.MetricsPort > 0 {
		g.Go(func() error {
			return serveMetrics(ctx, log, netip.AddrPortFrom(wc.MetricsAddr, wc.MetricsPort))
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
