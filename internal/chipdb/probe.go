package chipdb

import "fmt"

// UnknownFamilyError means no loaded family claims the probed device_type.
type UnknownFamilyError struct{ DeviceType uint8 }

func (e *UnknownFamilyError) Error() string {
	return fmt.Sprintf("chipdb: unknown family for device_type 0x%02x", e.DeviceType)
}

// UnknownVariantError means the family was found but no variant (nor any
// of its alt_chip_ids) matches the probed chip_id.
type UnknownVariantError struct {
	DeviceType uint8
	ChipID     uint8
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("chipdb: unknown variant chip_id 0x%02x in device_type 0x%02x", e.ChipID, e.DeviceType)
}

// Probe resolves a (device_type, chip_id) pair reported by the bootloader's
// Identify response to a flattened ChipInfo, spec.md §4.C.
func (db *Database) Probe(deviceType, chipID uint8) (*ChipInfo, error) {
	for _, fam := range db.families {
		if fam.DeviceType != deviceType {
			continue
		}
		for _, v := range fam.Variants {
			if v.ChipID != chipID && !containsID(v.AltChipIDs, chipID) {
				continue
			}
			return flatten(fam, v)
		}
		return nil, &UnknownVariantError{DeviceType: deviceType, ChipID: chipID}
	}
	return nil, &UnknownFamilyError{DeviceType: deviceType}
}

func containsID(ids []uint8, id uint8) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func flatten(fam ChipFamily, v ChipVariant) (*ChipInfo, error) {
	flashSize, err := parseSize(v.FlashSizeRaw)
	if err != nil {
		return nil, err
	}
	info := &ChipInfo{
		FamilyName:      fam.Name,
		VariantName:     v.Name,
		MCUType:         fam.MCUType,
		DeviceType:      fam.DeviceType,
		ChipID:          v.ChipID,
		FlashSize:       flashSize,
		MinEraseSectors: fam.MinEraseSectors,
		Capabilities:    fam.Capabilities,
	}
	if v.Capabilities != nil {
		info.Capabilities = *v.Capabilities
	}
	if v.EEPROMSizeRaw != "" {
		eepromSize, err := parseSize(v.EEPROMSizeRaw)
		if err != nil {
			return nil, err
		}
		info.EEPROMSize = eepromSize
		info.HasEEPROM = true
		if v.EEPROMStartAddr != nil {
			info.EEPROMStartAddr = *v.EEPROMStartAddr
		}
	}
	regs := v.ConfigRegisters
	if regs == nil {
		regs = fam.ConfigRegisters
	}
	info.ConfigRegisters = regs
	return info, nil
}
