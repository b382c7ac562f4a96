package arp

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"

	"firestige.xyz/hop/internal/core"
)

func TestMapCache(t *testing.T) {
	c := NewMapCache()
	_, ok := c.Lookup(netip.MustParseAddr("10.0.2.2"))
	assert.False(t, ok)

	c.Store(Neighbor{IP: netip.MustParseAddr("10.0.2.2"), MAC: core.MAC{2}, Interface: "r1-eth2"})
	c.Store(Neighbor{IP: netip.MustParseAddr("10.0.1.9"), MAC: core.MAC{1}, Interface: "r1-eth1"})
	c.Store(Neighbor{IP: netip.MustParseAddr("10.0.2.2"), MAC: core.MAC{3}, Interface: "r1-eth2"})

	assert.Equal(t, 2, c.Len())
	n, ok := c.Lookup(netip.MustParseAddr("10.0.2.2"))
	assert.True(t, ok)
	assert.Equal(t, core.MAC{3}, n.MAC)

	entries := c.Entries()
	assert.Equal(t, "10.0.1.9", entries[0].IP.String())
	assert.Equal(t, "10.0.2.2", entries[1].IP.String())
}
