package configregs

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/wchisp/wchisp/internal/chipdb"
)

func ch582Info(t *testing.T) *chipdb.ChipInfo {
	t.Helper()
	db, err := chipdb.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	info, err := db.Probe(0x41, 0x82)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	return info
}

func TestResetPayloadCH582(t *testing.T) {
	// spec.md §8 "Config reset on CH582": resets 0xFFFFFFFF, 0xFFFFFFFF,
	// 0xD50FFF4F -> FF FF FF FF FF FF FF FF 4F FF 0F D5.
	info := ch582Info(t)
	got := ResetPayload(info)
	want := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x4F, 0xFF, 0x0F, 0xD5}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestResetPayloadLength(t *testing.T) {
	info := ch582Info(t)
	got := ResetPayload(info)
	if len(got) != 4*len(info.ConfigRegisters) {
		t.Fatalf("len = %d, want %d", len(got), 4*len(info.ConfigRegisters))
	}
}

func TestEnableDebugPayloadSupported(t *testing.T) {
	info := ch582Info(t)
	payload, err := EnableDebugPayload(info)
	if err != nil {
		t.Fatalf("EnableDebugPayload: %v", err)
	}
	// Register 0 (BOOT_CONFIG) substitutes enable_debug=0xFFFFFFFB (DEBUG_EN,
	// bit 2, cleared); the other two registers keep their plain reset values.
	if got := binary.LittleEndian.Uint32(payload[0:4]); got != 0xFFFFFFFB {
		t.Fatalf("register 0 = 0x%08x, want 0xFFFFFFFB", got)
	}
	if got := binary.LittleEndian.Uint32(payload[8:12]); got != 0xD50FFF4F {
		t.Fatalf("register 2 = 0x%08x, want 0xD50FFF4F", got)
	}
}

func TestDecodeLabelFallback(t *testing.T) {
	info := ch582Info(t)
	raw := ResetPayload(info) // all-Fs registers except PROTECT
	dumps, err := Decode(info, raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(dumps) != 3 {
		t.Fatalf("got %d registers, want 3", len(dumps))
	}
	// BOOT_SOURCE field of an all-Fs register reads 0b11 -> "user flash".
	boot := dumps[0]
	if boot.Fields[0].Label != "user flash" {
		t.Fatalf("label = %q", boot.Fields[0].Label)
	}
	// RESERVED register's field has only a "_" fallback label.
	reserved := dumps[1]
	if reserved.Fields[0].Label != "reserved, leave at reset value" {
		t.Fatalf("label = %q", reserved.Fields[0].Label)
	}
}

func TestDecodeWrongLength(t *testing.T) {
	info := ch582Info(t)
	if _, err := Decode(info, []byte{0x00}); err == nil {
		t.Fatal("expected error for wrong-length blob")
	}
}

func TestPresentMask(t *testing.T) {
	info := ch582Info(t)
	if got := PresentMask(info); got != 0b111 {
		t.Fatalf("mask = %03b, want 111", got)
	}
}
