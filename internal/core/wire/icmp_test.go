package wire

import (
	"testing"

	"firestige.xyz/hop/internal/core"
)

func TestPutICMPEchoReply(t *testing.T) {
	msg := []byte{
		0x08, 0x00, 0xAB, 0xCD, // echo request with stale checksum
		0x00, 0x07, 0x00, 0x02, // id, seq
		'p', 'i', 'n', 'g', 0x01,
	}

	if err := PutICMP(msg, core.ICMPHeader{Type: ICMPTypeEchoReply}); err != nil {
		t.Fatalf("PutICMP failed: %v", err)
	}

	h, err := DecodeICMP(msg)
	if err != nil {
		t.Fatalf("DecodeICMP failed: %v", err)
	}
	if h.Type != ICMPTypeEchoReply || h.Code != 0 {
		t.Errorf("Expected type 0 code 0, got %d/%d", h.Type, h.Code)
	}
	if Checksum(msg) != 0 {
		t.Errorf("ICMP checksum does not verify (0x%04x)", Checksum(msg))
	}
	// Identifier and sequence untouched
	if msg[5] != 0x07 || msg[7] != 0x02 {
		t.Errorf("echo id/seq changed: % x", msg[4:8])
	}
}

func TestICMPTooShort(t *testing.T) {
	if _, err := DecodeICMP([]byte{0x03}); err != core.ErrPacketTooShort {
		t.Errorf("Expected ErrPacketTooShort, got %v", err)
	}
	if err := PutICMP([]byte{0x03, 0x00}, core.ICMPHeader{Type: 3}); err != core.ErrPacketTooShort {
		t.Errorf("Expected ErrPacketTooShort, got %v", err)
	}
}
