// Package configregs is the bit-field decoder/encoder of spec.md §4.D,
// driven by the chip database: it turns a raw register blob into a
// human-readable dump and computes the default-reset and enable-debug
// payloads used by ConfigOps.
package configregs

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"

	"github.com/wchisp/wchisp/internal/chipdb"
)

// ErrNotSupported is returned by EnableDebugPayload when the chip's spec
// carries no enable_debug override for any register, spec.md §4.D/§7. The
// flashing package's EEPROM operations also return it for chips without
// EEPROM.
var ErrNotSupported = errors.New("configregs: operation not supported on this chip")

// FieldDump is one rendered field within RegisterDump.
type FieldDump struct {
	Name   string
	Value  uint32
	Binary string
	Hex    string
	Label  string
}

// RegisterDump is one rendered configuration register.
type RegisterDump struct {
	Name   string
	Offset uint32
	Hex    string
	Fields []FieldDump
}

// Decode parses raw (length == 4*len(info.ConfigRegisters), little-endian)
// into a human-readable dump, spec.md §4.D.
func Decode(info *chipdb.ChipInfo, raw []byte) ([]RegisterDump, error) {
	n := len(info.ConfigRegisters)
	if len(raw) != 4*n {
		return nil, fmt.Errorf("configregs: expected %d bytes for %d registers, got %d", 4*n, n, len(raw))
	}
	dumps := make([]RegisterDump, 0, n)
	for i, spec := range info.ConfigRegisters {
		word := binary.LittleEndian.Uint32(raw[4*i : 4*i+4])
		dump := RegisterDump{
			Name:   spec.Name,
			Offset: spec.Offset,
			Hex:    fmt.Sprintf("%08X", word),
		}
		for _, f := range spec.Fields {
			v := f.Value(word)
			width := int(f.BitRange[0]) - int(f.BitRange[1]) + 1
			dump.Fields = append(dump.Fields, FieldDump{
				Name:   f.Name,
				Value:  v,
				Binary: fmt.Sprintf("%0*b", width, v),
				Hex:    strconv.FormatUint(uint64(v), 16),
				Label:  f.Label(v),
			})
		}
		dumps = append(dumps, dump)
	}
	return dumps, nil
}

// Render turns a dump into the text report printed by `wchisp config info`.
func Render(dumps []RegisterDump) string {
	out := ""
	for _, d := range dumps {
		out += fmt.Sprintf("%s (offset 0x%02X) = 0x%s\n", d.Name, d.Offset, d.Hex)
		for _, f := range d.Fields {
			out += fmt.Sprintf("  %-16s = 0b%s (0x%s) %s\n", f.Name, f.Binary, f.Hex, f.Label)
		}
	}
	return out
}

// ResetPayload concatenates each register's reset value, little-endian, in
// declared order — spec.md §4.D / §8 item 5: always exactly 4*n bytes.
func ResetPayload(info *chipdb.ChipInfo) []byte {
	out := make([]byte, 4*len(info.ConfigRegisters))
	for i, spec := range info.ConfigRegisters {
		binary.LittleEndian.PutUint32(out[4*i:4*i+4], spec.Reset)
	}
	return out
}

// EnableDebugPayload is ResetPayload with enable_debug substituted wherever
// a register specifies one. Returns ErrNotSupported if no register in the
// chip's spec carries an enable_debug override.
func EnableDebugPayload(info *chipdb.ChipInfo) ([]byte, error) {
	supported := false
	out := make([]byte, 4*len(info.ConfigRegisters))
	for i, spec := range info.ConfigRegisters {
		v := spec.Reset
		if spec.EnableDebug != nil {
			v = *spec.EnableDebug
			supported = true
		}
		binary.LittleEndian.PutUint32(out[4*i:4*i+4], v)
	}
	if !supported {
		return nil, ErrNotSupported
	}
	return out, nil
}

// PresentMask computes the A7/A8 register-selection mask: bit i set means
// the chip's spec declares a register at index i, spec.md §4.D "Writing
// extracts the mask of 'present' registers from the spec offsets".
func PresentMask(info *chipdb.ChipInfo) uint16 {
	var mask uint16
	for i := range info.ConfigRegisters {
		if i >= 16 {
			break
		}
		mask |= 1 << uint(i)
	}
	return mask
}
