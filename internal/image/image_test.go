package image

import "testing"

func TestLoadRawBinaryPadding(t *testing.T) {
	raw := make([]byte, 130)
	for i := range raw {
		raw[i] = byte(i)
	}
	src, err := Load("fw.bin", raw, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if src.Len() != 192 { // ceil(130/64)*64
		t.Fatalf("Len = %d, want 192", src.Len())
	}
	segs := src.Segments()
	if len(segs) != 1 || segs[0].Address != 0 {
		t.Fatalf("segments = %+v", segs)
	}
	data := segs[0].Data
	for i := 0; i < 130; i++ {
		if data[i] != byte(i) {
			t.Fatalf("data[%d] = %d, want %d", i, data[i], i)
		}
	}
	for i := 130; i < 192; i++ {
		if data[i] != PadByte {
			t.Fatalf("pad byte at %d = 0x%02x, want 0xFF", i, data[i])
		}
	}
}

func TestLoadExactMultipleNoExtraPad(t *testing.T) {
	raw := make([]byte, 128)
	src, err := Load("fw.bin", raw, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if src.Len() != 128 {
		t.Fatalf("Len = %d, want 128", src.Len())
	}
}

func TestLoadTooLarge(t *testing.T) {
	raw := make([]byte, 128)
	_, err := Load("fw.bin", raw, 64)
	if _, ok := err.(*TooLargeError); !ok {
		t.Fatalf("got %T: %v", err, err)
	}
}

func TestLoadIHexTwoRecords(t *testing.T) {
	// spec.md §8 "ihex load": records at 0x0000 (DE AD) and 0x0004 (BE EF)
	// -> [DE, AD, FF, FF, BE, EF], padded to 64 bytes with 0xFF.
	hexDoc := ":02000000DEAD73\n" +
		":02000400BEEF4D\n" +
		":00000001FF\n"
	src, err := Load("fw.hex", []byte(hexDoc), 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if src.Len() != BlockSize {
		t.Fatalf("Len = %d, want %d", src.Len(), BlockSize)
	}
	data := src.Segments()[0].Data
	want := []byte{0xDE, 0xAD, 0xFF, 0xFF, 0xBE, 0xEF}
	for i, b := range want {
		if data[i] != b {
			t.Fatalf("data[%d] = 0x%02x, want 0x%02x", i, data[i], b)
		}
	}
	for i := len(want); i < BlockSize; i++ {
		if data[i] != PadByte {
			t.Fatalf("pad byte at %d = 0x%02x", i, data[i])
		}
	}
}

func TestLoadIHexBadChecksum(t *testing.T) {
	hexDoc := ":02000000DEAD00\n:00000001FF\n" // wrong checksum (should be 0x73)
	if _, err := Load("fw.hex", []byte(hexDoc), 0); err == nil {
		t.Fatal("expected checksum error")
	} else if _, ok := err.(*FormatError); !ok {
		t.Fatalf("got %T: %v", err, err)
	}
}
