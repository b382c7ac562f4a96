package link

import (
	"fmt"

	"golang.org/x/net/bpf"

	"firestige.xyz/hop/internal/core/wire"
)

// filterProgram accepts ARP and IPv4 frames and drops everything else in the
// kernel before it reaches the event loop.
func filterProgram() []bpf.Instruction {
	return []bpf.Instruction{
		bpf.LoadAbsolute{Off: 12, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: wire.EtherTypeARP, SkipTrue: 1},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: wire.EtherTypeIPv4, SkipFalse: 1},
		bpf.RetConstant{Val: 0x40000},
		bpf.RetConstant{Val: 0},
	}
}

// CompileFilter assembles the ARP/IPv4 socket filter.
func CompileFilter() ([]bpf.RawInstruction, error) {
	raw, err := bpf.Assemble(filterProgram())
	if err != nil {
		return nil, fmt.Errorf("failed to assemble BPF filter: %w", err)
	}
	return raw, nil
}
