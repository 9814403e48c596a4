package main

import (
	"context"
	"net/netip"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pinball-run/pinball/pkg/http/handler"
	"github.com/pinball-run/pinball/pkg/http/middleware"
	"github.com/pinball-run/pinball/pkg/http/server"
)

// serveMetrics exposes the worker's claim/completion counters and a
// healthcheck on a small HTTP endpoint.
func serveMetrics(ctx context.Context, log logr.Logger, addrPort netip.AddrPort) error {
	routes := server.Routes{}
	routes.Register("GET /metrics", promhttp.Handler(), "Prometheus metrics")
	routes.Register("GET /healthz",
		middleware.WithLogLevel(middleware.LogLevelNever, handler.HealthCheck(log, time.Now())),
		"liveness and build info")

	chain := middleware.SourceIP()(
		middleware.Recovery(log)(
			middleware.Logging(log)(routes.Mux(log))))

	cfg := server.NewConfig()
	cfg.BindAddr = addrPort.Addr().String()
	cfg.BindPort = int(addrPort.Port())
	return cfg.Serve(ctx, log.WithValues("server", "metrics"), chain)
}
