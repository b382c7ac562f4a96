package link_test

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/hop/internal/core"
	"firestige.xyz/hop/internal/link"
	"firestige.xyz/hop/internal/link/linktest"
)

func testInterfaces() link.Interfaces {
	return link.Interfaces{
		linktest.NewInterface("r1-eth0", 2, core.MAC{0x02, 0, 0, 0, 1, 0}, "10.0.0.1"),
		linktest.NewInterface("r1-eth1", 3, core.MAC{0x02, 0, 0, 0, 1, 1}, "10.1.0.1"),
	}
}

func TestInterfacesLookup(t *testing.T) {
	ifaces := testInterfaces()

	i, ok := ifaces.ByName("r1-eth1")
	require.True(t, ok)
	assert.Equal(t, 3, i.Index)

	i, ok = ifaces.ByIP(netip.MustParseAddr("10.0.0.1"))
	require.True(t, ok)
	assert.Equal(t, "r1-eth0", i.Name)

	assert.True(t, ifaces.IsLocal(netip.MustParseAddr("10.1.0.1")))
	assert.False(t, ifaces.IsLocal(netip.MustParseAddr("10.1.0.2")))

	_, err := ifaces.Lookup("r1-eth7")
	assert.True(t, errors.Is(err, core.ErrInterfaceNotFound))
}

func TestInterfaceSendWrapsError(t *testing.T) {
	ifaces := testInterfaces()
	sock := linktest.SocketOf(ifaces[0])
	sock.SendErr = errors.New("network is down")

	err := ifaces[0].Send([]byte{1, 2, 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "r1-eth0")

	sock.SendErr = nil
	require.NoError(t, ifaces[0].Send([]byte{1, 2, 3}))
	assert.Len(t, sock.Sent, 1)
}

func TestInterfacesCloseAll(t *testing.T) {
	ifaces := testInterfaces()
	require.NoError(t, ifaces.Close())
	for _, i := range ifaces {
		assert.True(t, linktest.SocketOf(i).Closed, i.Name)
	}
}

func TestSimulatedPoller(t *testing.T) {
	ifaces := testInterfaces()
	p := &linktest.Poller{Ifaces: ifaces}

	ready, err := p.Wait(0)
	require.NoError(t, err)
	assert.Empty(t, ready)

	linktest.SocketOf(ifaces[1]).Push([]byte{0xde, 0xad})
	ready, err = p.Wait(0)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ready)
}
