package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/bpf"
)

func TestFilterAcceptsARPAndIPv4Only(t *testing.T) {
	raw, err := CompileFilter()
	require.NoError(t, err)
	require.Len(t, raw, 5)

	vm, err := bpf.NewVM(filterProgram())
	require.NoError(t, err)

	frame := func(ethertype uint16) []byte {
		b := make([]byte, 60)
		b[12] = byte(ethertype >> 8)
		b[13] = byte(ethertype)
		return b
	}

	tests := []struct {
		name      string
		ethertype uint16
		accept    bool
	}{
		{"arp", 0x0806, true},
		{"ipv4", 0x0800, true},
		{"ipv6", 0x86DD, false},
		{"vlan", 0x8100, false},
		{"lldp", 0x88CC, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := vm.Run(frame(tt.ethertype))
			require.NoError(t, err)
			assert.Equal(t, tt.accept, n > 0)
		})
	}
}
