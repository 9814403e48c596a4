package netip

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetParsesBindAddr(t *testing.T) {
	addr := netip.IPv4Unspecified()
	v := &Addr{Addr: &addr}

	require.NoError(t, v.Set("127.0.0.1"))
	assert.Equal(t, "127.0.0.1", v.String())

	require.NoError(t, v.Set("::1"))
	assert.Equal(t, "::1", v.String())
}

func TestSetEmptyKeepsDefault(t *testing.T) {
	addr := netip.IPv4Unspecified()
	v := &Addr{Addr: &addr}
	require.NoError(t, v.Set(""))
	assert.Equal(t, "0.0.0.0", v.String(), "an empty flag value keeps the default bind address")
}

func TestSetRejectsGarbage(t *testing.T) {
	addr := netip.Addr{}
	v := &Addr{Addr: &addr}
	assert.Error(t, v.Set("not-an-ip"))
	assert.Error(t, v.Set("127.0.0.1:8080"), "addresses must not carry a port")
}

func TestNilGuards(t *testing.T) {
	var v *Addr
	assert.Error(t, v.Set("127.0.0.1"))
	assert.Equal(t, "", v.String())

	empty := &Addr{}
	assert.Error(t, empty.Set("127.0.0.1"))
	assert.Error(t, empty.Reset())
}

func TestReset(t *testing.T) {
	addr := netip.MustParseAddr("10.0.0.1")
	v := &Addr{Addr: &addr}
	require.NoError(t, v.Reset())
	assert.Equal(t, "", v.String())
}
