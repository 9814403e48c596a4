package flag

import (
	"net/netip"

	"github.com/peterbourgon/ff/v4/ffval"

	"github.com/pinball-run/pinball/internal/masterserver"
	ntip "github.com/pinball-run/pinball/pkg/flag/netip"
	"github.com/pinball-run/pinball/pkg/uiread"
)

type MasterConfig struct {
	Config *masterserver.Config

	BindAddr   netip.Addr
	BindPort   uint16
	HealthAddr netip.Addr
	HealthPort uint16

	PostgresURI string

	TLSCertFile string
	TLSKeyFile  string

	EnableUIRead bool
	UIBindAddr   netip.Addr
	UIBindPort   uint16
}

func RegisterMasterFlags(fs *Set, m *MasterConfig) {
	fs.Register(MasterBindAddr, &ntip.Addr{Addr: &m.BindAddr})
	fs.Register(MasterBindPort, ffval.NewValueDefault(&m.BindPort, m.BindPort))
	fs.Register(MasterHealthAddr, &ntip.Addr{Addr: &m.HealthAddr})
	fs.Register(MasterHealthPort, ffval.NewValueDefault(&m.HealthPort, m.HealthPort))
	fs.Register(MasterPostgresURI, ffval.NewValueDefault(&m.PostgresURI, m.PostgresURI))
	fs.Register(MasterTLSCert, ffval.NewValueDefault(&m.TLSCertFile, m.TLSCertFile))
	fs.Register(MasterTLSKey, ffval.NewValueDefault(&m.TLSKeyFile, m.TLSKeyFile))
	fs.Register(MasterEnableUIRead, ffval.NewValueDefault(&m.EnableUIRead, m.EnableUIRead))
	fs.Register(MasterUIBindAddr, &ntip.Addr{Addr: &m.UIBindAddr})
	fs.Register(MasterUIBindPort, ffval.NewValueDefault(&m.UIBindPort, m.UIBindPort))
}

// Convert MasterConfig data types to masterserver.Config data types.
func (m *MasterConfig) Convert() {
	m.Config.BindAddrPort = netip.AddrPortFrom(m.BindAddr, m.BindPort)
	m.Config.HealthBindAddrPort = netip.AddrPortFrom(m.HealthAddr, m.HealthPort)
	m.Config.TLS = masterserver.TLS{CertFile: m.TLSCertFile, KeyFile: m.TLSKeyFile}
}

// UIReadConfig builds the UI read service config from the parsed flags.
func (m *MasterConfig) UIReadConfig() uiread.Config {
	return uiread.Config{
		BindAddr: m.UIBindAddr.String(),
		BindPort: int(m.UIBindPort),
	}
}

var MasterBindAddr = Config{
	Name:  "bind-addr",
	Usage: "ip address on which the Master gRPC server will listen",
}

var MasterBindPort = Config{
	Name:  "bind-port",
	Usage: "port on which the Master gRPC server will listen",
}

var MasterHealthAddr = Config{
	Name:  "health-bind-addr",
	Usage: "ip address for the metrics/health HTTP endpoints",
}

var MasterHealthPort = Config{
	Name:  "health-bind-port",
	Usage: "port for the metrics/health HTTP endpoints",
}

var MasterPostgresURI = Config{
	Name:  "postgres-uri",
	Usage: "PostgreSQL connection URI for the persistence store",
}

var MasterTLSCert = Config{
	Name:  "tls-cert",
	Usage: "path to the TLS certificate file for the gRPC server",
}

var MasterTLSKey = Config{
	Name:  "tls-key",
	Usage: "path to the TLS key file for the gRPC server",
}

var MasterEnableUIRead = Config{
	Name:  "enable-ui-read",
	Usage: "serve the read-only UI HTTP endpoints against the persistence store",
}

var MasterUIBindAddr = Config{
	Name:  "ui-bind-addr",
	Usage: "ip address for the read-only UI HTTP endpoints",
}

var MasterUIBindPort = Config{
	Name:  "ui-bind-port",
	Usage: "port for the read-only UI HTTP endpoints",
}
