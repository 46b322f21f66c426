// Package chipdb is the declarative chip catalogue of spec.md §4.C: it
// loads embedded per-family documents once at process start and resolves
// a probed (device_type, chip_id) pair to the flattened ChipInfo the rest
// of the tool needs.
package chipdb

// FieldSpec describes one bit-field within a 32-bit configuration
// register, spec.md §3.
type FieldSpec struct {
	Name        string         `yaml:"name"`
	BitRange    [2]uint8       `yaml:"bit_range"` // [hi, lo]
	Description string         `yaml:"description,omitempty"`
	Explanation map[string]string `yaml:"explaination"`
}

// Mask returns the bitmask covering this field's range.
func (f FieldSpec) Mask() uint32 {
	hi, lo := f.BitRange[0], f.BitRange[1]
	width := uint(hi-lo) + 1
	if width >= 32 {
		return ^uint32(0) << lo
	}
	return ((uint32(1) << width) - 1) << lo
}

// Value extracts this field's value out of a raw register word.
func (f FieldSpec) Value(reg uint32) uint32 {
	return (reg & f.Mask()) >> f.BitRange[1]
}

// Label renders value's human-readable explanation, falling back to the
// "_" catch-all, else blank — spec.md §4.D / §8 item 6.
func (f FieldSpec) Label(value uint32) string {
	if s, ok := f.Explanation[formatExplanationKey(value)]; ok {
		return s
	}
	if s, ok := f.Explanation["_"]; ok {
		return s
	}
	return ""
}

func formatExplanationKey(v uint32) string {
	// Keys are matched as decimal text. Load does not normalize them, so
	// a key written in hex in a family document never matches.
	return decimalString(v)
}

// ConfigRegisterSpec describes one non-volatile configuration register,
// spec.md §3.
type ConfigRegisterSpec struct {
	Offset      uint32      `yaml:"offset"`
	Name        string      `yaml:"name"`
	Reset       uint32      `yaml:"reset"`
	EnableDebug *uint32     `yaml:"enable_debug,omitempty"`
	Fields      []FieldSpec `yaml:"fields"`
}

// Capabilities are the transport-support flags of spec.md §3.
type Capabilities struct {
	SupportUSB    bool `yaml:"support_usb"`
	SupportSerial bool `yaml:"support_serial"`
	SupportNet    bool `yaml:"support_net"`
}

// ChipVariant is a concrete part number within a family, spec.md §3.
type ChipVariant struct {
	Name            string                `yaml:"name"`
	ChipID          uint8                 `yaml:"chip_id"`
	AltChipIDs      []uint8               `yaml:"alt_chip_ids,omitempty"`
	FlashSizeRaw    string                `yaml:"flash_size"`
	EEPROMSizeRaw   string                `yaml:"eeprom_size,omitempty"`
	EEPROMStartAddr *uint32               `yaml:"eeprom_start_addr,omitempty"`
	ConfigRegisters []ConfigRegisterSpec  `yaml:"config_registers,omitempty"`
	Capabilities    *Capabilities         `yaml:"capabilities,omitempty"`
}

// ChipFamily is an immutable family record, spec.md §3.
type ChipFamily struct {
	Name            string                `yaml:"name"`
	MCUType         uint8                 `yaml:"mcu_type"`
	DeviceType      uint8                 `yaml:"device_type"`
	Capabilities    Capabilities          `yaml:"capabilities"`
	MinEraseSectors uint32                `yaml:"min_erase_sectors,omitempty"`
	ConfigRegisters []ConfigRegisterSpec  `yaml:"config_registers,omitempty"`
	Variants        []ChipVariant         `yaml:"variants"`
}

// ChipInfo is the flattened family ∪ variant record the protocol engine
// drives against, spec.md §3. It is computed once at probe time and is
// immutable afterwards.
type ChipInfo struct {
	FamilyName      string
	VariantName     string
	MCUType         uint8
	DeviceType      uint8
	ChipID          uint8
	FlashSize       uint32
	EEPROMSize      uint32
	EEPROMStartAddr uint32
	HasEEPROM       bool
	MinEraseSectors uint32
	Capabilities    Capabilities
	ConfigRegisters []ConfigRegisterSpec

	// Populated during the identify/key-negotiation handshake, not at
	// probe time; zero until Flashing fills them in.
	BTVER [2]byte
	UID   [8]byte
}

// DefaultMinEraseSectors is the Open-Question default of spec.md §9: 8
// sectors of 1KiB each, overridable per family.
const DefaultMinEraseSectors = 8
