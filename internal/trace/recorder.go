// Package trace records every frame the router receives and transmits into a
// pcap file readable by Wireshark or tcpdump.
package trace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/hop/internal/link"
)

// snapLen is the largest frame the router ever reads or writes.
const snapLen = 1514

// Recorder appends frames to a pcap stream.
type Recorder struct {
	mu     sync.Mutex
	w      *pcapgo.Writer
	closer io.Closer
	now    func() time.Time
}

// NewRecorder writes the pcap file header to w.
func NewRecorder(w io.Writer) (*Recorder, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("write pcap header: %w", err)
	}
	r := &Recorder{w: pw, now: time.Now}
	if c, ok := w.(io.Closer); ok {
		r.closer = c
	}
	return r, nil
}

// Create truncates path and records into it.
func Create(path string) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create trace directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trace file: %w", err)
	}
	r, err := NewRecorder(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// Record appends one frame.
func (r *Recorder) Record(frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ci := gopacket.CaptureInfo{
		Timestamp:     r.now(),
		CaptureLength: len(frame),
		Length:        len(frame),
	}
	if ci.CaptureLength > snapLen {
		ci.CaptureLength = snapLen
		frame = frame[:snapLen]
	}
	return r.w.WritePacket(ci, frame)
}

// Close closes the underlying file, if any.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// socket records inbound frames and every transmit of the wrapped socket.
// Locally-originated frames looped back by the capture are not recorded
// twice.
type socket struct {
	link.Socket
	rec  *Recorder
	name string
}

func (s *socket) Recv(buf []byte) (int, bool, error) {
	n, outgoing, err := s.Socket.Recv(buf)
	if err == nil && !outgoing {
		s.record(buf[:n])
	}
	return n, outgoing, err
}

func (s *socket) Send(frame []byte) error {
	if err := s.Socket.Send(frame); err != nil {
		return err
	}
	s.record(frame)
	return nil
}

func (s *socket) record(frame []byte) {
	if err := s.rec.Record(frame); err != nil {
		logger().WithField("iface", s.name).WithError(err).Warn("trace write failed")
	}
}

// Attach wraps the socket of every interface so its traffic is recorded.
// It must run before the router starts.
func Attach(ifaces link.Interfaces, rec *Recorder) {
	for _, iface := range ifaces {
		if iface.Socket == nil {
			continue
		}
		iface.Socket = &socket{Socket: iface.Socket, rec: rec, name: iface.Name}
	}
}
