package flashing

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/wchisp/wchisp/internal/configregs"
	"github.com/wchisp/wchisp/internal/transport"
)

func scriptedCH582Identify() [][]byte {
	uid := []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88}
	btver := []byte{0x01, 0x30}
	return [][]byte{
		encodeResp(0xA1, 0x00, []byte{0x82, 0x41}), // chip_id=0x82, device_type=0x41
		encodeResp(0xA1, 0x00, append(append([]byte{}, uid...), btver...)),
		encodeResp(0xA3, 0x00, nil),
	}
}

func TestConfigResetCH582(t *testing.T) {
	db := loadDB(t)
	mock := &transport.MockTransport{}
	replies := scriptedCH582Identify()
	replies = append(replies, encodeResp(0xA8, 0x00, nil))
	mock.Replies = replies

	info, err := ConfigReset(mock, db, Retry{})
	if err != nil {
		t.Fatalf("ConfigReset: %v", err)
	}
	if info.VariantName != "CH582F" {
		t.Fatalf("variant = %q", info.VariantName)
	}

	got := mock.SentCommands()
	want := []byte{0xA1, 0xA1, 0xA3, 0xA8}
	if len(got) != len(want) {
		t.Fatalf("commands = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("command[%d] = 0x%02x, want 0x%02x", i, got[i], want[i])
		}
	}

	// The A8 payload is mask:u16 | reset_payload, spec.md §4.G/§8 "Config
	// reset on CH582": FF FF FF FF FF FF FF FF 4F FF 0F D5.
	sent := mock.Sent[3]
	frame := sent[3:] // skip cmd|size:u16le
	mask := binary.LittleEndian.Uint16(frame[0:2])
	if mask != 0b111 {
		t.Fatalf("mask = %03b, want 111", mask)
	}
	wantPayload := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x4F, 0xFF, 0x0F, 0xD5}
	if !bytes.Equal(frame[2:], wantPayload) {
		t.Fatalf("payload = % x, want % x", frame[2:], wantPayload)
	}
}

func TestConfigInfoCH582(t *testing.T) {
	db := loadDB(t)
	mock := &transport.MockTransport{}
	replies := scriptedCH582Identify()
	raw := []byte{
		0xFF, 0xFF, 0xFF, 0xFF,
		0xFF, 0xFF, 0xFF, 0xFF,
		0x4F, 0xFF, 0x0F, 0xD5,
	}
	replies = append(replies, encodeResp(0xA7, 0x00, raw))
	mock.Replies = replies

	_, dumps, err := ConfigInfo(mock, db, Retry{})
	if err != nil {
		t.Fatalf("ConfigInfo: %v", err)
	}
	if len(dumps) != 3 {
		t.Fatalf("got %d registers", len(dumps))
	}
	if dumps[0].Fields[0].Label != "user flash" {
		t.Fatalf("label = %q", dumps[0].Fields[0].Label)
	}
}

func TestSetDebugNotSupported(t *testing.T) {
	// CH549 has no enable_debug override anywhere in its spec.
	db := loadDB(t)
	mock := &transport.MockTransport{}
	replies := [][]byte{
		encodeResp(0xA1, 0x00, []byte{0x49, 0x49}),
		encodeResp(0xA1, 0x00, append(make([]byte, 8), 0x00, 0x00)),
		encodeResp(0xA3, 0x00, nil),
	}
	mock.Replies = replies

	_, err := SetDebug(mock, db, Retry{}, true)
	if err != configregs.ErrNotSupported {
		t.Fatalf("got %v, want ErrNotSupported", err)
	}
}
