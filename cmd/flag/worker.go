package flag

import (
	"net/netip"
	"time"

	"github.com/peterbourgon/ff/v4/ffval"

	ntip "github.com/pinball-run/pinball/pkg/flag/netip"
	"github.com/pinball-run/pinball/pkg/flag/prefixlist"
)

type WorkerConfig struct {
	MasterAddr string

	Identity   string
	Generation int64

	ClaimPrefixes []string

	LeaseDuration time.Duration
	PollInterval  time.Duration

	EnableJanitor       bool
	JanitorPollInterval time.Duration

	MetricsAddr netip.Addr
	MetricsPort uint16
}

func RegisterWorkerFlags(fs *Set, w *WorkerConfig) {
	fs.Register(WorkerMasterAddr, ffval.NewValueDefault(&w.MasterAddr, w.MasterAddr))
	fs.Register(WorkerIdentity, ffval.NewValueDefault(&w.Identity, w.Identity))
	fs.Register(WorkerGeneration, ffval.NewValueDefault(&w.Generation, w.Generation))
	fs.Register(WorkerClaimPrefixes, prefixlist.New(&w.ClaimPrefixes))
	fs.Register(WorkerLeaseDuration, ffval.NewValueDefault(&w.LeaseDuration, w.LeaseDuration))
	fs.Register(WorkerPollInterval, ffval.NewValueDefault(&w.PollInterval, w.PollInterval))
	fs.Register(WorkerEnableJanitor, ffval.NewValueDefault(&w.EnableJanitor, w.EnableJanitor))
	fs.Register(WorkerJanitorPollInterval, ffval.NewValueDefault(&w.JanitorPollInterval, w.JanitorPollInterval))
	fs.Register(WorkerMetricsAddr, &ntip.Addr{Addr: &w.MetricsAddr})
	fs.Register(WorkerMetricsPort, ffval.NewValueDefault(&w.MetricsPort, w.MetricsPort))
}

var WorkerMasterAddr = Config{
	Name:  "master-addr",
	Usage: "host:port of the Master gRPC server",
}

var WorkerIdentity = Config{
	Name:  "identity",
	Usage: "stable worker identity used as token owner; generated when empty",
}

var WorkerGeneration = Config{
	Name:  "generation",
	Usage: "worker cohort generation, used for rolling-upgrade EXIT signaling",
}

var WorkerClaimPrefixes = Config{
	Name:  "claim-prefixes",
	Usage: "comma-separated name prefixes to claim runnable jobs under",
}

var WorkerLeaseDuration = Config{
	Name:  "lease-duration",
	Usage: "how long a claimed job stays owned before the lease must be extended",
}

var WorkerPollInterval = Config{
	Name:  "poll-interval",
	Usage: "base sleep between unsuccessful claim attempts (jittered)",
}

var WorkerEnableJanitor = Config{
	Name:  "enable-janitor",
	Usage: "also run the archival janitor loop in this worker process",
}

var WorkerJanitorPollInterval = Config{
	Name:  "janitor-poll-interval",
	Usage: "how often the janitor sweeps for terminal workflow instances",
}

var WorkerMetricsAddr = Config{
	Name:  "metrics-bind-addr",
	Usage: "ip address for the metrics/health HTTP endpoints",
}

var WorkerMetricsPort = Config{
	Name:  "metrics-bind-port",
	Usage: "port for the metrics/health HTTP endpoints; 0 disables them",
}
