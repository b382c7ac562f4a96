package wire

import (
	"testing"

	"firestige.xyz/hop/internal/core"
)

func TestDecodeEthernetBasic(t *testing.T) {
	// Simple Ethernet frame: Dst MAC, Src MAC, EtherType
	data := []byte{
		0x00, 0x11, 0x22, 0x33, 0x44, 0x55, // Dst MAC
		0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, // Src MAC
		0x08, 0x00, // EtherType: IPv4
		0x45, 0x00, // Payload (start of IP header)
	}

	eth, payload, err := DecodeEthernet(data)
	if err != nil {
		t.Fatalf("DecodeEthernet failed: %v", err)
	}

	// Check Dst MAC
	expectedDstMAC := core.MAC{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	if eth.DstMAC != expectedDstMAC {
		t.Errorf("Expected DstMAC %v, got %v", expectedDstMAC, eth.DstMAC)
	}

	// Check Src MAC
	expectedSrcMAC := core.MAC{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	if eth.SrcMAC != expectedSrcMAC {
		t.Errorf("Expected SrcMAC %v, got %v", expectedSrcMAC, eth.SrcMAC)
	}

	// Check EtherType
	if eth.EtherType != EtherTypeIPv4 {
		t.Errorf("Expected EtherType 0x0800, got 0x%04x", eth.EtherType)
	}

	// Check payload
	if len(payload) != 2 {
		t.Errorf("Expected payload length 2, got %d", len(payload))
	}
}

func TestDecodeEthernetTooShort(t *testing.T) {
	data := []byte{0x00, 0x11, 0x22} // Too short

	_, _, err := DecodeEthernet(data)
	if err != core.ErrPacketTooShort {
		t.Errorf("Expected ErrPacketTooShort, got %v", err)
	}

	if _, err := EtherType(data); err != core.ErrPacketTooShort {
		t.Errorf("EtherType: expected ErrPacketTooShort, got %v", err)
	}
}

func TestPutEthernetRoundTrip(t *testing.T) {
	buf := make([]byte, 20)
	want := core.EthernetHeader{
		DstMAC:    core.BroadcastMAC,
		SrcMAC:    core.MAC{0x02, 0, 0, 0, 0, 0x01},
		EtherType: EtherTypeARP,
	}
	if err := PutEthernet(buf, want); err != nil {
		t.Fatalf("PutEthernet failed: %v", err)
	}

	et, err := EtherType(buf)
	if err != nil || et != EtherTypeARP {
		t.Fatalf("EtherType = 0x%04x, %v", et, err)
	}

	got, _, err := DecodeEthernet(buf)
	if err != nil {
		t.Fatalf("DecodeEthernet failed: %v", err)
	}
	if got != want {
		t.Errorf("round trip mismatch: got %+v want %+v", got, want)
	}

	if err := PutEthernet(buf[:10], want); err != core.ErrPacketTooShort {
		t.Errorf("Expected ErrPacketTooShort, got %v", err)
	}
}
