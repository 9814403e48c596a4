package flag

import (
	"time"

	"github.com/peterbourgon/ff/v4/ffval"
)

type SchedulerConfig struct {
	MasterAddr string

	Identity       string
	DefinitionsDir string

	PollInterval time.Duration
	RetryDelay   time.Duration
}

func RegisterSchedulerFlags(fs *Set, s *SchedulerConfig) {
	fs.Register(SchedulerMasterAddr, ffval.NewValueDefault(&s.MasterAddr, s.MasterAddr))
	fs.Register(SchedulerIdentity, ffval.NewValueDefault(&s.Identity, s.Identity))
	fs.Register(SchedulerDefinitionsDir, ffval.NewValueDefault(&s.DefinitionsDir, s.DefinitionsDir))
	fs.Register(SchedulerPollInterval, ffval.NewValueDefault(&s.PollInterval, s.PollInterval))
	fs.Register(SchedulerRetryDelay, ffval.NewValueDefault(&s.RetryDelay, s.RetryDelay))
}

var SchedulerMasterAddr = Config{
	Name:  "master-addr",
	Usage: "host:port of the Master gRPC server",
}

var SchedulerIdentity = Config{
	Name:  "identity",
	Usage: "stable scheduler identity used as token owner; generated when empty",
}

var SchedulerDefinitionsDir = Config{
	Name:  "definitions-dir",
	Usage: "directory of workflow definition templates (*.yaml), hot-reloaded on change",
}

var SchedulerPollInterval = Config{
	Name:  "poll-interval",
	Usage: "base sleep between schedule sweeps (jittered)",
}

var SchedulerRetryDelay = Config{
	Name:  "retry-delay",
	Usage: "how long DELAY-policy occurrences wait before being retried",
}
