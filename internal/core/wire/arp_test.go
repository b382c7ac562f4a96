package wire

import (
	"net/netip"
	"testing"

	"firestige.xyz/hop/internal/core"
)

func TestDecodeARPRequest(t *testing.T) {
	frame := []byte{
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, // Dst MAC: broadcast
		0x02, 0x00, 0x00, 0x00, 0x00, 0x0a, // Src MAC
		0x08, 0x06, // EtherType: ARP
		0x00, 0x01, // HTYPE: Ethernet
		0x08, 0x00, // PTYPE: IPv4
		0x06, 0x04, // HLEN, PLEN
		0x00, 0x01, // Op: request
		0x02, 0x00, 0x00, 0x00, 0x00, 0x0a, // SHA
		10, 0, 0, 1, // SPA
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // THA
		10, 0, 0, 254, // TPA
	}

	f, err := DecodeARPFrame(frame)
	if err != nil {
		t.Fatalf("DecodeARPFrame failed: %v", err)
	}

	if !f.Ethernet.DstMAC.IsBroadcast() {
		t.Errorf("Expected broadcast DstMAC, got %v", f.Ethernet.DstMAC)
	}
	if f.ARP.Op != ARPOpRequest {
		t.Errorf("Expected op 1, got %d", f.ARP.Op)
	}
	if !IsEthernetIPv4(f.ARP) {
		t.Error("Expected Ethernet/IPv4 ARP")
	}
	if f.ARP.SenderIP != netip.MustParseAddr("10.0.0.1") {
		t.Errorf("Expected SPA 10.0.0.1, got %v", f.ARP.SenderIP)
	}
	if f.ARP.TargetIP != netip.MustParseAddr("10.0.0.254") {
		t.Errorf("Expected TPA 10.0.0.254, got %v", f.ARP.TargetIP)
	}
	expectedSHA := core.MAC{0x02, 0x00, 0x00, 0x00, 0x00, 0x0a}
	if f.ARP.SenderMAC != expectedSHA {
		t.Errorf("Expected SHA %v, got %v", expectedSHA, f.ARP.SenderMAC)
	}
}

func TestDecodeARPErrors(t *testing.T) {
	if _, err := DecodeARP(make([]byte, ARPLen-1)); err != core.ErrPacketTooShort {
		t.Errorf("short body: expected ErrPacketTooShort, got %v", err)
	}

	ipFrame := make([]byte, 60)
	ipFrame[12], ipFrame[13] = 0x08, 0x00
	if _, err := DecodeARPFrame(ipFrame); err != core.ErrUnsupportedProto {
		t.Errorf("IPv4 frame: expected ErrUnsupportedProto, got %v", err)
	}
}

func TestEncodeARPFrame(t *testing.T) {
	in := core.ARPFrame{
		Ethernet: core.EthernetHeader{
			DstMAC:    core.MAC{0x02, 0, 0, 0, 0, 0x0a},
			SrcMAC:    core.MAC{0x02, 0, 0, 0, 0, 0x01},
			EtherType: EtherTypeARP,
		},
		ARP: core.ARPMessage{
			HardwareType: ARPHardwareEthernet,
			ProtocolType: EtherTypeIPv4,
			HardwareLen:  6,
			ProtocolLen:  4,
			Op:           ARPOpReply,
			SenderMAC:    core.MAC{0x02, 0, 0, 0, 0, 0x01},
			SenderIP:     netip.MustParseAddr("10.0.0.254"),
			TargetMAC:    core.MAC{0x02, 0, 0, 0, 0, 0x0a},
			TargetIP:     netip.MustParseAddr("10.0.0.1"),
		},
	}

	buf, err := EncodeARPFrame(in)
	if err != nil {
		t.Fatalf("EncodeARPFrame failed: %v", err)
	}
	if len(buf) != 42 {
		t.Fatalf("Expected 42-byte frame, got %d", len(buf))
	}

	out, err := DecodeARPFrame(buf)
	if err != nil {
		t.Fatalf("DecodeARPFrame failed: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
}

func TestPutARPRejectsNonIPv4(t *testing.T) {
	m := core.ARPMessage{
		SenderIP: netip.MustParseAddr("2001:db8::1"),
		TargetIP: netip.MustParseAddr("10.0.0.1"),
	}
	if err := PutARP(make([]byte, ARPLen), m); err != core.ErrMalformedHeader {
		t.Errorf("Expected ErrMalformedHeader, got %v", err)
	}
	if err := PutARP(make([]byte, 4), m); err != core.ErrPacketTooShort {
		t.Errorf("Expected ErrPacketTooShort, got %v", err)
	}
}
