// The pinball-scheduler binary runs the time-driven side of the runtime:
// it claims due schedule tokens, checks overrun policies, renders workflow
// definitions, and bootstraps new workflow instances via the Master.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/pinball-run/pinball/cmd/flag"
	"github.com/pinball-run/pinball/pkg/build"
	"github.com/pinball-run/pinball/pkg/master/client"
	"github.com/pinball-run/pinball/pkg/parser"
	"github.com/pinball-run/pinball/pkg/scheduler"
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
	sc := &flag.SchedulerConfig{
		MasterAddr:     "127.0.0.1:42200",
		DefinitionsDir: "/etc/pinball/workflows",
		PollInterval:   10 * time.Second,
		RetryDelay:     30 * time.Second,
	}

	fs := &flag.Set{FlagSet: ff.NewFlagSet("pinball-scheduler")}
	flag.RegisterGlobal(fs, globals)
	flag.RegisterSchedulerFlags(fs, sc)

	if err := ff.Parse(fs.FlagSet, args, ff.WithEnvVarPrefix("PINBALL")); err != nil {
		if errors.Is(err, ff.ErrHelp) {
			fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs.FlagSet))
			return nil
		}
		return err
	}

	log := getLogger(globals.LogLevel).WithName("pinball-scheduler")
	log.Info("starting", "version", build.Version(), "gitRev", build.GitRevision(), "definitionsDir", sc.DefinitionsDir)

	defs, err := scheduler.LoadDefinitions(sc.DefinitionsDir, log.WithName("definitions"))
	if err != nil {
		return err
	}

	conn, err := grpc.NewClient(sc.MasterAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dialing master at %s: %w", sc.MasterAddr, err)
	}
	defer conn.Close()

	s := scheduler.New(scheduler.Config{
		Client:       client.New(conn),
		Parser:       parser.New(),
		Definitions:  defs,
		Logger:       log,
		Identity:     sc.Identity,
		PollInterval: sc.PollInterval,
		RetryDelay:   sc.RetryDelay,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Run(ctx)
	})
	g.Go(func() error {
		return defs.Watch(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
