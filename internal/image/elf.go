package image

import (
	"bytes"
	"debug/elf"
	"fmt"
)

// parseELF extracts PT_LOAD segments with non-zero file size and
// flattens them relative to the lowest load address, spec.md §4.E.
//
// debug/elf is standard library; no pack example or ecosystem library
// parses ELF PT_LOAD segments more directly than the stdlib reader
// already does, so this is the one case where stdlib is the idiomatic
// choice rather than a gap — see DESIGN.md.
func parseELF(raw []byte) (base uint32, data []byte, err error) {
	f, err := elf.NewFile(bytes.NewReader(raw))
	if err != nil {
		return 0, nil, fmt.Errorf("not a valid ELF: %w", err)
	}
	defer f.Close()

	type loadable struct {
		addr uint64
		data []byte
	}
	var segs []loadable
	var lowest uint64 = ^uint64(0)
	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD || p.Filesz == 0 {
			continue
		}
		buf := make([]byte, p.Filesz)
		if _, err := p.ReadAt(buf, 0); err != nil {
			return 0, nil, fmt.Errorf("reading PT_LOAD at 0x%x: %w", p.Vaddr, err)
		}
		segs = append(segs, loadable{addr: p.Vaddr, data: buf})
		if p.Vaddr < lowest {
			lowest = p.Vaddr
		}
	}
	if len(segs) == 0 {
		return 0, nil, fmt.Errorf("no PT_LOAD segments with file content")
	}

	var maxEnd uint64
	for _, s := range segs {
		if end := s.addr - lowest + uint64(len(s.data)); end > maxEnd {
			maxEnd = end
		}
	}
	out := make([]byte, maxEnd)
	for i := range out {
		out[i] = PadByte
	}
	for _, s := range segs {
		copy(out[s.addr-lowest:], s.data)
	}
	return uint32(lowest), out, nil
}
