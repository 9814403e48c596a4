package flag

import (
	"github.com/peterbourgon/ff/v4/ffval"
)

// GlobalConfig holds the flags every pinball binary shares.
type GlobalConfig struct {
	LogLevel int
}

func RegisterGlobal(fs *Set, gc *GlobalConfig) {
	fs.Register(LogLevelConfig, ffval.NewValueDefault(&gc.LogLevel, gc.LogLevel))
}

var LogLevelConfig = Config{
	Name:  "log-level",
	Usage: "the higher the number the more verbose",
}
