// Package image is the firmware-image loader of spec.md §4.E: a thin
// producer of contiguous byte ranges feeding the flashing orchestrator.
// It normalizes raw binary, Intel HEX, and ELF inputs into one flat,
// block-padded byte vector; it never talks to a Transport.
package image

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

// BlockSize is the chip block size images are padded to, spec.md §4.E.
const BlockSize = 64

// PadByte is the fill value for unwritten bytes within the loaded range,
// matching the worked ihex example of spec.md §8 ("padded to 64 bytes
// with 0xFF") rather than the zero-fill prose elsewhere in §4.E — see
// SPEC_FULL.md's Open Question resolution.
const PadByte = 0xFF

// Segment is one contiguous run of bytes at a load address, the shape
// ImageLoader produces and Flashing consumes.
type Segment struct {
	Address uint32
	Data    []byte
}

// Source is the narrow capability Flashing depends on: a sequence of
// segments plus the total span they cover.
type Source interface {
	Segments() []Segment
	Len() int
}

// FormatError means bin/hex/ELF parsing failed, spec.md §7 ImageFormat.
type FormatError struct {
	Path   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("image: %s: %s", e.Path, e.Reason)
}

// TooLargeError means the flattened image exceeds the chip's flash
// window, spec.md §7 ImageTooLarge.
type TooLargeError struct {
	Size      int
	FlashSize uint32
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("image: %d bytes exceeds flash size %d", e.Size, e.FlashSize)
}

// flat is the in-memory Source: one coalesced byte range starting at
// base (0 for raw and Intel HEX input, the lowest PT_LOAD address for
// ELF), already collapsed from whatever segments the loader saw.
type flat struct {
	base uint32
	data []byte
}

func (f *flat) Segments() []Segment { return []Segment{{Address: f.base, Data: f.data}} }
func (f *flat) Len() int            { return len(f.data) }

// Load sniffs path's extension (falling back to content sniffing for
// extensionless files) and dispatches to the matching parser, then pads
// the result to a BlockSize multiple and checks it against flashSize.
func Load(path string, raw []byte, flashSize uint32) (Source, error) {
	var (
		base uint32
		data []byte
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); {
	case ext == ".hex" || ext == ".ihex":
		base, data, err = parseIHex(raw)
	case ext == ".elf" || looksLikeELF(raw):
		base, data, err = parseELF(raw)
	case ext == ".bin":
		base, data = 0, raw
	default:
		if looksLikeIHex(raw) {
			base, data, err = parseIHex(raw)
		} else {
			base, data = 0, raw
		}
	}
	if err != nil {
		return nil, &FormatError{Path: path, Reason: err.Error()}
	}
	padded := padTo(data, BlockSize, PadByte)
	if flashSize > 0 && uint32(len(padded)) > flashSize {
		return nil, &TooLargeError{Size: len(padded), FlashSize: flashSize}
	}
	return &flat{base: base, data: padded}, nil
}

func padTo(data []byte, block int, fill byte) []byte {
	rem := len(data) % block
	if rem == 0 {
		if len(data) == 0 {
			return data
		}
		return data
	}
	pad := block - rem
	out := make([]byte, len(data)+pad)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = fill
	}
	return out
}

func looksLikeIHex(raw []byte) bool {
	return len(raw) > 0 && raw[0] == ':'
}

func looksLikeELF(raw []byte) bool {
	return bytes.HasPrefix(raw, []byte{0x7F, 'E', 'L', 'F'})
}
