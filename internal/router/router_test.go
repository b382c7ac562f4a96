package router

import (
	"context"
	"errors"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/hop/internal/arp"
	"firestige.xyz/hop/internal/core"
	"firestige.xyz/hop/internal/core/wire"
	"firestige.xyz/hop/internal/link"
	"firestige.xyz/hop/internal/link/linktest"
	"firestige.xyz/hop/internal/route"
)

var (
	eth1MAC = core.MAC{0x02, 0, 0, 0, 0x01, 0x01}
	eth2MAC = core.MAC{0x02, 0, 0, 0, 0x01, 0x02}
	h1MAC   = core.MAC{0x02, 0, 0, 0, 0x0a, 0x05}
	r2MAC   = core.MAC{0x02, 0, 0, 0, 0x02, 0x02}
)

type testbed struct {
	router     *Router
	poller     *linktest.Poller
	eth1, eth2 *link.Interface
	h1, r2     linktest.Endpoint
}

func newTestbed(t *testing.T) *testbed {
	t.Helper()
	tb := &testbed{
		eth1: linktest.NewInterface("r1-eth1", 2, eth1MAC, "10.0.1.1"),
		eth2: linktest.NewInterface("r1-eth2", 3, eth2MAC, "10.0.2.1"),
		h1:   linktest.Host(h1MAC, "10.0.1.5"),
		r2:   linktest.Host(r2MAC, "10.0.2.2"),
	}
	for _, iface := range []*link.Interface{tb.eth1, tb.eth2} {
		linktest.SocketOf(iface).Loopback = true
	}
	linktest.SocketOf(tb.eth2).OnSend = linktest.Neighbors(tb.r2)

	table, err := route.Parse(strings.NewReader(`
10.0.1.0/24 -        r1-eth1
10.0.2.0/24 -        r1-eth2
10.0.3.0/24 10.0.2.2 r1-eth2
`))
	require.NoError(t, err)

	ifaces := link.Interfaces{tb.eth1, tb.eth2}
	tb.poller = &linktest.Poller{Ifaces: ifaces}
	tb.router, err = New(ifaces, table, Options{
		PollTimeout: 200 * time.Microsecond,
		ARPTimeout:  10 * time.Millisecond,
		Poller:      tb.poller,
	})
	require.NoError(t, err)
	return tb
}

// drain polls until no socket has input left.
func (tb *testbed) drain(t *testing.T) {
	t.Helper()
	for i := 0; i < 100; i++ {
		ready, _ := tb.poller.Wait(0)
		if len(ready) == 0 {
			return
		}
		require.NoError(t, tb.router.Poll())
	}
	t.Fatal("sockets never drained")
}

func decodeIP(t *testing.T, frame []byte) (*layers.IPv4, *layers.ICMPv4) {
	t.Helper()
	p := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default)
	ip, _ := p.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	icmp, _ := p.Layer(layers.LayerTypeICMPv4).(*layers.ICMPv4)
	require.NotNil(t, ip)
	return ip, icmp
}

func TestNewSetsReceiveTimeouts(t *testing.T) {
	tb := newTestbed(t)
	assert.Equal(t, 200*time.Microsecond, linktest.SocketOf(tb.eth1).RecvTimeout)
	assert.Equal(t, 200*time.Microsecond, linktest.SocketOf(tb.eth2).RecvTimeout)
}

func TestNewWithoutInterfaces(t *testing.T) {
	_, err := New(nil, route.NewTable(), Options{Poller: &linktest.Poller{}})
	assert.True(t, errors.Is(err, core.ErrNoInterfaces))
}

func TestScenarioTTLExpires(t *testing.T) {
	tb := newTestbed(t)
	linktest.SocketOf(tb.eth1).Push(linktest.EchoRequest(tb.h1, eth1MAC, netip.MustParseAddr("10.0.3.9"), 1))

	tb.drain(t)

	replies := linktest.SocketOf(tb.eth1).TakeSent()
	require.Len(t, replies, 1)
	ip, icmp := decodeIP(t, replies[0])
	assert.Equal(t, "10.0.1.5", ip.DstIP.String())
	require.NotNil(t, icmp)
	assert.Equal(t, layers.CreateICMPv4TypeCode(layers.ICMPv4TypeTimeExceeded, 0), icmp.TypeCode)
	assert.Empty(t, linktest.SocketOf(tb.eth2).TakeSent(), "zero forwarded frames")

	s := tb.router.Stats()
	assert.Equal(t, uint64(1), s.ICMPErrors)
	assert.Equal(t, uint64(1), s.Outgoing, "looped back reply discarded")
}

func TestScenarioNoRoute(t *testing.T) {
	tb := newTestbed(t)
	linktest.SocketOf(tb.eth1).Push(linktest.EchoRequest(tb.h1, eth1MAC, netip.MustParseAddr("198.51.100.1"), 64))

	tb.drain(t)

	replies := linktest.SocketOf(tb.eth1).TakeSent()
	require.Len(t, replies, 1)
	_, icmp := decodeIP(t, replies[0])
	require.NotNil(t, icmp)
	assert.Equal(t, layers.CreateICMPv4TypeCode(layers.ICMPv4TypeDestinationUnreachable, 0), icmp.TypeCode)
	assert.Empty(t, linktest.SocketOf(tb.eth2).TakeSent())
}

func TestScenarioForwardTwiceOneExchange(t *testing.T) {
	tb := newTestbed(t)
	in := linktest.SocketOf(tb.eth1)
	in.Push(linktest.EchoRequest(tb.h1, eth1MAC, netip.MustParseAddr("10.0.3.9"), 64))
	in.Push(linktest.EchoRequest(tb.h1, eth1MAC, netip.MustParseAddr("10.0.3.10"), 64))

	tb.drain(t)

	var arpFrames, forwarded int
	for _, f := range linktest.SocketOf(tb.eth2).TakeSent() {
		et, err := wire.EtherType(f)
		require.NoError(t, err)
		switch et {
		case wire.EtherTypeARP:
			arpFrames++
		case wire.EtherTypeIPv4:
			forwarded++
			ip, _ := decodeIP(t, f)
			assert.Equal(t, uint8(63), ip.TTL)
			assert.True(t, wire.ValidIPv4Checksum(f[wire.EthernetHeaderLen:]))
		}
	}
	assert.Equal(t, 1, arpFrames)
	assert.Equal(t, 2, forwarded)
	assert.Equal(t, 1, tb.router.Cache().Len())
	assert.Equal(t, uint64(2), tb.router.Stats().Forwarded)
}

func TestScenarioARPRequestAnswered(t *testing.T) {
	tb := newTestbed(t)
	linktest.SocketOf(tb.eth2).Push(linktest.ARPRequest(tb.r2, tb.eth2.IP))

	tb.drain(t)

	sent := linktest.SocketOf(tb.eth2).TakeSent()
	require.Len(t, sent, 1)
	f, err := wire.DecodeARPFrame(sent[0])
	require.NoError(t, err)
	assert.Equal(t, uint16(wire.ARPOpReply), f.ARP.Op)
	assert.Equal(t, eth2MAC, f.ARP.SenderMAC)
	assert.Equal(t, tb.eth2.IP, f.ARP.SenderIP)
	assert.Equal(t, r2MAC, f.ARP.TargetMAC)
	assert.Equal(t, tb.r2.IP, f.ARP.TargetIP)
}

func TestScenarioEchoReply(t *testing.T) {
	tb := newTestbed(t)
	linktest.SocketOf(tb.eth1).Push(linktest.EchoRequest(tb.h1, eth1MAC, tb.eth2.IP, 64))

	tb.drain(t)

	sent := linktest.SocketOf(tb.eth1).TakeSent()
	require.Len(t, sent, 1)
	ip, icmp := decodeIP(t, sent[0])
	assert.Equal(t, "10.0.2.1", ip.SrcIP.String())
	assert.Equal(t, "10.0.1.5", ip.DstIP.String())
	require.NotNil(t, icmp)
	assert.Equal(t, uint8(layers.ICMPv4TypeEchoReply), icmp.TypeCode.Type())
	assert.Equal(t, uint64(1), tb.router.Stats().EchoReplies)
}

func TestDispatchDropsOtherEtherTypes(t *testing.T) {
	tb := newTestbed(t)
	frame := linktest.EchoRequest(tb.h1, eth1MAC, tb.eth1.IP, 64)
	frame[12], frame[13] = 0x86, 0xdd

	tb.router.Dispatch(frame, tb.eth1)
	tb.router.Dispatch([]byte{0x01}, tb.eth1)

	assert.Empty(t, linktest.SocketOf(tb.eth1).TakeSent())
	assert.Equal(t, uint64(2), tb.router.Stats().Unsupported)
}

func TestOutgoingFramesIgnored(t *testing.T) {
	tb := newTestbed(t)
	sock := linktest.SocketOf(tb.eth1)
	sock.Inbox = append(sock.Inbox, linktest.Frame{
		Data:     linktest.EchoRequest(tb.h1, eth1MAC, tb.eth1.IP, 64),
		Outgoing: true,
	})

	tb.drain(t)

	assert.Empty(t, sock.TakeSent())
	assert.Equal(t, uint64(1), tb.router.Stats().Outgoing)
	assert.Zero(t, tb.router.Stats().Received)
}

func TestSendErrorDoesNotStopLoop(t *testing.T) {
	tb := newTestbed(t)
	sock := linktest.SocketOf(tb.eth1)
	sock.SendErr = errors.New("link down")
	sock.Push(linktest.EchoRequest(tb.h1, eth1MAC, tb.eth1.IP, 64))
	sock.Push(linktest.ARPRequest(tb.h1, tb.eth1.IP))

	tb.drain(t)

	s := tb.router.Stats()
	assert.Equal(t, uint64(2), s.Received)
	assert.Equal(t, uint64(2), s.SendErrors)
}

type cancellingPoller struct {
	inner  link.Poller
	cancel context.CancelFunc
	after  int
	waits  int
}

func (p *cancellingPoller) Wait(d time.Duration) ([]int, error) {
	p.waits++
	if p.waits >= p.after {
		p.cancel()
	}
	return p.inner.Wait(d)
}

func TestRunStopsOnCancel(t *testing.T) {
	eth1 := linktest.NewInterface("r1-eth1", 2, eth1MAC, "10.0.1.1")
	ifaces := link.Interfaces{eth1}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller := &cancellingPoller{inner: &linktest.Poller{Ifaces: ifaces}, cancel: cancel, after: 3}
	r, err := New(ifaces, route.NewTable(), Options{Poller: poller})
	require.NoError(t, err)

	linktest.SocketOf(eth1).Push(linktest.ARPRequest(linktest.Host(h1MAC, "10.0.1.5"), eth1.IP))
	require.NoError(t, r.Run(ctx))
	assert.Equal(t, 3, poller.waits)
	assert.Len(t, linktest.SocketOf(eth1).TakeSent(), 1)

	require.NoError(t, r.Close())
	assert.True(t, linktest.SocketOf(eth1).Closed)
}

type failingPoller struct{}

func (failingPoller) Wait(time.Duration) ([]int, error) {
	return nil, errors.New("ebadf")
}

func TestRunReturnsPollerError(t *testing.T) {
	eth1 := linktest.NewInterface("r1-eth1", 2, eth1MAC, "10.0.1.1")
	r, err := New(link.Interfaces{eth1}, route.NewTable(), Options{Poller: failingPoller{}})
	require.NoError(t, err)
	assert.Error(t, r.Run(context.Background()))
}

func TestInjectedCache(t *testing.T) {
	cache := arp.NewMapCache()
	cache.Store(arp.Neighbor{IP: netip.MustParseAddr("10.0.2.2"), MAC: r2MAC, Interface: "r1-eth2"})

	eth1 := linktest.NewInterface("r1-eth1", 2, eth1MAC, "10.0.1.1")
	eth2 := linktest.NewInterface("r1-eth2", 3, eth2MAC, "10.0.2.1")
	ifaces := link.Interfaces{eth1, eth2}
	table := route.NewTable(route.Route{
		Prefix:    netip.MustParsePrefix("10.0.3.0/24"),
		NextHop:   netip.MustParseAddr("10.0.2.2"),
		Interface: "r1-eth2",
	})
	r, err := New(ifaces, table, Options{Cache: cache, Poller: &linktest.Poller{Ifaces: ifaces}})
	require.NoError(t, err)

	r.Dispatch(linktest.EchoRequest(linktest.Host(h1MAC, "10.0.1.5"), eth1MAC, netip.MustParseAddr("10.0.3.3"), 64), eth1)

	sent := linktest.SocketOf(eth2).TakeSent()
	require.Len(t, sent, 1, "cached neighbor, no arp request")
	assert.Equal(t, r2MAC[:], sent[0][0:6])
}

func TestSummary(t *testing.T) {
	h1 := linktest.Host(h1MAC, "10.0.1.5")
	s := Summary(linktest.EchoRequest(h1, eth1MAC, netip.MustParseAddr("10.0.2.7"), 64))
	assert.Contains(t, s, "Ethernet/IPv4/ICMPv4")
	assert.Contains(t, s, "10.0.1.5->10.0.2.7 ttl=64")
	assert.Contains(t, s, "len=98")

	s = Summary(linktest.ARPRequest(h1, netip.MustParseAddr("10.0.1.1")))
	assert.Contains(t, s, "Ethernet/ARP op=1 10.0.1.5->10.0.1.1")
}
