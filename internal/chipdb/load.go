package chipdb

import (
	"embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed families/*.yaml
var familyFiles embed.FS

// Database is the immutable, load-once chip catalogue of spec.md §4.C
// ("the database is loaded once at process start, read-only thereafter").
type Database struct {
	families []ChipFamily
}

// Load reads and validates every embedded family document. Load-time
// validation failures (duplicate chip_id, misaligned offsets, overlapping
// bit ranges) are returned as a single wrapped error; Load never returns a
// partially valid Database.
func Load() (*Database, error) {
	entries, err := familyFiles.ReadDir("families")
	if err != nil {
		return nil, fmt.Errorf("chipdb: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	db := &Database{}
	for _, e := range entries {
		data, err := familyFiles.ReadFile("families/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("chipdb: read %s: %w", e.Name(), err)
		}
		var fam ChipFamily
		if err := yaml.Unmarshal(data, &fam); err != nil {
			return nil, fmt.Errorf("chipdb: parse %s: %w", e.Name(), err)
		}
		if fam.MinEraseSectors == 0 {
			fam.MinEraseSectors = DefaultMinEraseSectors
		}
		db.families = append(db.families, fam)
	}
	if err := db.validate(); err != nil {
		return nil, err
	}
	return db, nil
}

// validate enforces spec.md §4.C's load-time checks and §8 property 1.
func (db *Database) validate() error {
	seenDeviceType := map[uint8]string{}
	for _, fam := range db.families {
		if owner, ok := seenDeviceType[fam.DeviceType]; ok {
			return fmt.Errorf("chipdb: device_type 0x%02x claimed by both %q and %q", fam.DeviceType, owner, fam.Name)
		}
		seenDeviceType[fam.DeviceType] = fam.Name

		seenChipID := map[uint8]string{}
		for _, v := range fam.Variants {
			ids := append([]uint8{v.ChipID}, v.AltChipIDs...)
			for _, id := range ids {
				if owner, ok := seenChipID[id]; ok {
					return fmt.Errorf("chipdb: family %s: chip_id 0x%02x claimed by both %q and %q", fam.Name, id, owner, v.Name)
				}
				seenChipID[id] = v.Name
			}
			regs := v.ConfigRegisters
			if regs == nil {
				regs = fam.ConfigRegisters
			}
			if err := validateRegisters(fam.Name, v.Name, regs); err != nil {
				return err
			}
			if _, err := parseSize(v.FlashSizeRaw); err != nil {
				return fmt.Errorf("chipdb: family %s variant %s: %w", fam.Name, v.Name, err)
			}
			if v.EEPROMSizeRaw != "" {
				eepromSize, err := parseSize(v.EEPROMSizeRaw)
				if err != nil {
					return fmt.Errorf("chipdb: family %s variant %s: %w", fam.Name, v.Name, err)
				}
				if v.EEPROMStartAddr != nil {
					start := uint64(*v.EEPROMStartAddr)
					if start+uint64(eepromSize) > 1<<32 {
						return fmt.Errorf("chipdb: family %s variant %s: eeprom_start_addr+eeprom_size overflows 32 bits", fam.Name, v.Name)
					}
				}
			}
		}
	}
	return nil
}

func validateRegisters(famName, variantName string, regs []ConfigRegisterSpec) error {
	for _, reg := range regs {
		if reg.Offset%4 != 0 {
			return fmt.Errorf("chipdb: family %s variant %s: register %s offset 0x%x not 4-aligned", famName, variantName, reg.Name, reg.Offset)
		}
		var used uint32
		for _, f := range reg.Fields {
			hi, lo := f.BitRange[0], f.BitRange[1]
			if hi > 31 || lo > hi {
				return fmt.Errorf("chipdb: family %s variant %s: register %s field %s has invalid bit range [%d,%d]", famName, variantName, reg.Name, f.Name, hi, lo)
			}
			mask := f.Mask()
			if used&mask != 0 {
				return fmt.Errorf("chipdb: family %s variant %s: register %s field %s overlaps a prior field", famName, variantName, reg.Name, f.Name)
			}
			used |= mask
		}
	}
	return nil
}

// Families returns every loaded family, for `probe --check-db` and tests.
func (db *Database) Families() []ChipFamily {
	return db.families
}
