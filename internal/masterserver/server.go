// Package masterserver wires the Token Master behind its gRPC surface and
// its metrics/health HTTP endpoints: recovery from the persistence store,
// the gRPC server with tracing and Prometheus interceptors, reflection,
// and graceful shutdown.
package masterserver

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/go-logr/logr"
	grpcprometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/reflection"

	"github.com/pinball-run/pinball/pkg/http/handler"
	"github.com/pinball-run/pinball/pkg/http/middleware"
	"github.com/pinball-run/pinball/pkg/http/server"
	"github.com/pinball-run/pinball/pkg/master"
	grpcinternal "github.com/pinball-run/pinball/pkg/master/grpc"
	"github.com/pinball-run/pinball/pkg/persistence"
	"github.com/pinball-run/pinball/pkg/proto"
)

type Config struct {
	Store persistence.Store

	BindAddrPort netip.AddrPort
	// HealthBindAddrPort serves /metrics and /healthz. Zero disables it.
	HealthBindAddrPort netip.AddrPort
	Logger             logr.Logger
	TLS                TLS
}

type TLS struct {
	CertFile string
	KeyFile  string
}

// Option is a functional option type.
type Option func(*Config)

// WithStore sets the persistence store backing the Master.
func WithStore(s persistence.Store) Option {
	return func(c *Config) {
		c.Store = s
	}
}

// WithBindAddrPort sets the gRPC bind address and port.
func WithBindAddrPort(addrPort netip.AddrPort) Option {
	return func(c *Config) {
		c.BindAddrPort = addrPort
	}
}

// WithHealthBindAddrPort sets the metrics/health HTTP bind address and port.
func WithHealthBindAddrPort(addrPort netip.AddrPort) Option {
	return func(c *Config) {
		c.HealthBindAddrPort = addrPort
	}
}

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithTLSCertFile sets the TLS certificate file for the gRPC server.
func WithTLSCertFile(certFile string) Option {
	return func(c *Config) {
		c.TLS.CertFile = certFile
	}
}

// WithTLSKeyFile sets the TLS key file for the gRPC server.
func WithTLSKeyFile(keyFile string) Option {
	return func(c *Config) {
		c.TLS.KeyFile = keyFile
	}
}

func NewConfig(opts ...Option) *Config {
	c := &Config{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start recovers the Master from the store and serves until ctx is
// cancelled. Recovery happens before the listener opens; a Master that
// hasn't finished recovering answers nothing at all, and
// clients retry on connection errors the same way they retry Unavailable.
func (c *Config) Start(ctx context.Context, log logr.Logger) error {
	m := master.New(c.Store, master.WithLogger(log))
	if err := m.Recover(ctx); err != nil {
		return fmt.Errorf("recovering master state: %w", err)
	}

	h := &grpcinternal.Handler{
		Logger: log,
		Master: m,
	}

	params := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(grpcprometheus.UnaryServerInterceptor),
		grpc.StreamInterceptor(grpcprometheus.StreamServerInterceptor),
	}
	if c.TLS.CertFile != "" && c.TLS.KeyFile != "" {
		creds, err := credentials.NewServerTLSFromFile(c.TLS.CertFile, c.TLS.KeyFile)
		if err != nil {
			return fmt.Errorf("failed to load TLS credentials: %w", err)
		}
		params = append(params, grpc.Creds(creds))
	}

	gs := grpc.NewServer(params...)
	proto.RegisterMasterServer(gs, h)
	reflection.Register(gs)
	grpcprometheus.Register(gs)

	n := net.ListenConfig{}
	lis, err := n.Listen(ctx, "tcp", c.BindAddrPort.String())
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	if c.HealthBindAddrPort.IsValid() {
		ready := func() bool { return m.State() == master.StateServing }
		go func() {
			if err := c.serveHealth(ctx, log, ready); err != nil && ctx.Err() == nil {
				log.Error(err, "metrics/health server exited")
			}
		}()
	}

	go func() {
		<-ctx.Done()
		log.Info("Initiating graceful shutdown")
		timer := time.AfterFunc(5*time.Second, func() {
			log.Info("Server couldn't stop gracefully in time, doing force stop")
			gs.Stop()
		})
		defer timer.Stop()
		// Graceful stop lets the single in-flight handler finish
		// persisting before the process exits.
		gs.GracefulStop()
		log.Info("Server stopped")
	}()

	log.Info("starting gRPC server", "bindAddr", c.BindAddrPort.String())
	if err := gs.Serve(lis); err != nil {
		log.Error(err, "failed to serve")
		return err
	}

	return nil
}

// serveHealth runs the /metrics, /healthz, and /readyz HTTP endpoints.
func (c *Config) serveHealth(ctx context.Context, log logr.Logger, ready func() bool) error {
	routes := server.Routes{}
	routes.Register("GET /metrics", promhttp.Handler(), "Prometheus metrics")
	routes.Register("GET /healthz",
		middleware.WithLogLevel(middleware.LogLevelNever, handler.HealthCheck(log, time.Now())),
		"liveness and build info")
	routes.Register("GET /readyz",
		middleware.WithLogLevel(middleware.LogLevelNever, handler.Ready(ready)),
		"readiness: token snapshot recovered and serving")

	chain := middleware.SourceIP()(
		middleware.Recovery(log)(
			middleware.Logging(log)(
				middleware.OTel("pinball-master-health")(
					middleware.RequestMetrics()(routes.Mux(log))))))

	cfg := server.NewConfig()
	cfg.BindAddr = c.HealthBindAddrPort.Addr().String()
	cfg.BindPort = int(c.HealthBindAddrPort.Port())
	return cfg.Serve(ctx, log.WithValues("server", "health"), chain)
}
