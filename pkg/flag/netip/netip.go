// Package netip wraps net/netip.Addr as a flag.Value, used by the pinball
// binaries' bind-address flags (gRPC, metrics/health, and UI read
// listeners).
package netip

import (
	"fmt"
	"net/netip"
)

// Addr wraps a netip.Addr so a bind address can be registered directly as
// a command line flag.
type Addr struct{ *netip.Addr }

// Set implements the flag.Value interface. An empty input leaves the
// current (default) address in place.
func (a *Addr) Set(s string) error {
	if a == nil || a.Addr == nil {
		return fmt.Errorf("Addr is nil")
	}
	if s == "" {
		return nil
	}
	ip, err := netip.ParseAddr(s)
	if err != nil || !ip.IsValid() {
		return fmt.Errorf("failed to parse address: %q", s)
	}
	*a.Addr = ip
	return nil
}

// Reset sets the address back to its zero value.
func (a *Addr) Reset() error {
	if a == nil || a.Addr == nil {
		return fmt.Errorf("Addr is nil")
	}
	*a.Addr = netip.Addr{}
	return nil
}

// Type implements the flag.Value interface.
func (a *Addr) Type() string {
	return "addr"
}

// String returns the address, or an empty string when unset.
func (a *Addr) String() string {
	if a == nil || a.Addr == nil || !a.IsValid() {
		return ""
	}
	return a.Addr.String()
}
