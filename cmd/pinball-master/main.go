// The pinball-master binary runs the Token Master: recovery from
// PostgreSQL, the five-operation gRPC service, metrics/health endpoints,
// and optionally the read-only UI HTTP service against the same store.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"golang.org/x/sync/errgroup"

	"github.com/pinball-run/pinball/cmd/flag"
	"github.com/pinball-run/pinball/internal/masterserver"
	"github.com/pinball-run/pinball/pkg/build"
	"github.com/pinball-run/pinball/pkg/persistence/postgres"
	"github.com/pinball-run/pinball/pkg/uiread"
)

const (
	defaultGRPCPort   = 42200
	defaultHealthPort = 42201
	defaultUIPort     = 42202
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
	mc := &flag.MasterConfig{
		Config:     masterserver.NewConfig(),
		BindAddr:   netip.IPv4Unspecified(),
		BindPort:   defaultGRPCPort,
		HealthAddr: netip.IPv4Unspecified(),
		HealthPort: defaultHealthPort,
		UIBindAddr: netip.IPv4Unspecified(),
		UIBindPort: defaultUIPort,
	}

	fs := &flag.Set{FlagSet: ff.NewFlagSet("pinball-master")}
	flag.RegisterGlobal(fs, globals)
	flag.RegisterMasterFlags(fs, mc)

	if err := ff.Parse(fs.FlagSet, args, ff.WithEnvVarPrefix("PINBALL")); err != nil {
		if errors.Is(err, ff.ErrHelp) {
			fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs.FlagSet))
			return nil
		}
		return err
	}
	mc.Convert()

	log := getLogger(globals.LogLevel).WithName("pinball-master")
	log.Info("starting", "version", build.Version(), "gitRev", build.GitRevision())

	if mc.PostgresURI == "" {
		return errors.New("--postgres-uri is required")
	}
	store, err := postgres.Open(ctx, mc.PostgresURI)
	if err != nil {
		return err
	}
	defer store.Close()
	mc.Config.Store = store

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return mc.Config.Start(ctx, log)
	})
	if mc.EnableUIRead {
		g.Go(func() error {
			cfg := mc.UIReadConfig()
			cfg.Store = store
			cfg.Logger = log.WithName("uiread")
			svc, err := uiread.New(cfg)
			if err != nil {
				return err
			}
			return svc.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
