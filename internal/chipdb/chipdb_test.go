package chipdb

import "testing"

func TestLoadWellFormed(t *testing.T) {
	db, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(db.Families()) == 0 {
		t.Fatal("expected at least one family")
	}
}

func TestProbeKnownVariant(t *testing.T) {
	db, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// spec.md §8 "Identify success": device_type=0x70, chip_id=0x17.
	info, err := db.Probe(0x70, 0x17)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if info.VariantName != "CH32V307VCT6" {
		t.Fatalf("variant = %q", info.VariantName)
	}
	if info.FlashSize != 256*1024 {
		t.Fatalf("flash size = %d", info.FlashSize)
	}
	if !info.HasEEPROM || info.EEPROMSize != 4*1024 {
		t.Fatalf("eeprom = %+v", info)
	}
}

func TestProbeAltChipID(t *testing.T) {
	db, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	info, err := db.Probe(0x70, 0x19)
	if err != nil {
		t.Fatalf("Probe via alt_chip_ids: %v", err)
	}
	if info.VariantName != "CH32V307RCT6" {
		t.Fatalf("variant = %q", info.VariantName)
	}
}

func TestProbeUnknownFamily(t *testing.T) {
	db, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, err = db.Probe(0xEE, 0x00)
	if _, ok := err.(*UnknownFamilyError); !ok {
		t.Fatalf("got %T: %v", err, err)
	}
}

func TestProbeUnknownVariant(t *testing.T) {
	db, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, err = db.Probe(0x70, 0xFE)
	if _, ok := err.(*UnknownVariantError); !ok {
		t.Fatalf("got %T: %v", err, err)
	}
}

func TestFieldMaskAndValue(t *testing.T) {
	f := FieldSpec{BitRange: [2]uint8{9, 8}}
	reg := uint32(0b11_00000000)
	if got := f.Value(reg); got != 0b11 {
		t.Fatalf("value = %d", got)
	}
}

func TestParseSizeVariants(t *testing.T) {
	cases := map[string]uint32{
		"256K":   256 * 1024,
		"4KiB":   4 * 1024,
		"1024":   1024,
		"":       0,
	}
	for in, want := range cases {
		got, err := parseSize(in)
		if err != nil {
			t.Fatalf("parseSize(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("parseSize(%q) = %d, want %d", in, got, want)
		}
	}
}
