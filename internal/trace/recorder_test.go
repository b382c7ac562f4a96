package trace

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/hop/internal/core"
	"firestige.xyz/hop/internal/link"
	"firestige.xyz/hop/internal/link/linktest"
)

func readAll(t *testing.T, r io.Reader) [][]byte {
	t.Helper()
	pr, err := pcapgo.NewReader(r)
	require.NoError(t, err)
	assert.Equal(t, layers.LinkTypeEthernet, pr.LinkType())

	var frames [][]byte
	for {
		data, _, err := pr.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return frames
		}
		require.NoError(t, err)
		frames = append(frames, data)
	}
}

func TestRecorderWritesPcap(t *testing.T) {
	var buf bytes.Buffer
	rec, err := NewRecorder(&buf)
	require.NoError(t, err)
	rec.now = func() time.Time { return time.Unix(1700000000, 0) }

	require.NoError(t, rec.Record([]byte{1, 2, 3}))
	require.NoError(t, rec.Record(make([]byte, 2000)))
	require.NoError(t, rec.Close())

	frames := readAll(t, &buf)
	require.Len(t, frames, 2)
	assert.Equal(t, []byte{1, 2, 3}, frames[0])
	assert.Len(t, frames[1], snapLen)
}

func TestAttachRecordsTraffic(t *testing.T) {
	var buf bytes.Buffer
	rec, err := NewRecorder(&buf)
	require.NoError(t, err)

	mac := core.MAC{0x02, 0, 0, 0, 1, 1}
	iface := linktest.NewInterface("r1-eth1", 2, mac, "10.0.1.1")
	sim := linktest.SocketOf(iface)
	sim.Loopback = true
	Attach(link.Interfaces{iface}, rec)

	host := linktest.Host(core.MAC{0x02, 0, 0, 0, 9, 9}, "10.0.1.5")
	in := linktest.ARPRequest(host, iface.IP)
	sim.Push(in)

	frame := make([]byte, 1514)
	n, outgoing, err := iface.Socket.Recv(frame)
	require.NoError(t, err)
	assert.False(t, outgoing)
	require.NoError(t, iface.Send(frame[:n]))

	_, outgoing, err = iface.Socket.Recv(frame)
	require.NoError(t, err)
	assert.True(t, outgoing, "looped back copy")

	frames := readAll(t, &buf)
	require.Len(t, frames, 2, "inbound and transmitted, loopback skipped")
	assert.Equal(t, in, frames[0])
	assert.Equal(t, in, frames[1])
}

func TestCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "trace.pcap")
	rec, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, rec.Record([]byte{0xde, 0xad}))
	require.NoError(t, rec.Close())
	assert.NoError(t, rec.Close())
}
