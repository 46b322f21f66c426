package flashing

import (
	"encoding/binary"
	"testing"

	"github.com/wchisp/wchisp/internal/chipdb"
	"github.com/wchisp/wchisp/internal/image"
	"github.com/wchisp/wchisp/internal/transport"
)

func encodeResp(cmd byte, status byte, data []byte) []byte {
	size := uint16(2 + len(data))
	raw := make([]byte, 4+len(data)+2)
	raw[0] = cmd
	raw[1] = 0x00
	binary.LittleEndian.PutUint16(raw[2:4], size)
	raw[4] = status
	raw[5] = 0x00
	copy(raw[6:], data)
	return raw
}

func loadDB(t *testing.T) *chipdb.Database {
	t.Helper()
	db, err := chipdb.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return db
}

// scriptedIdentify returns the replies a CH32V307 bootloader gives for
// the identify/UID/set-key handshake, spec.md §8 "Identify success"/"UID
// read".
func scriptedIdentify() [][]byte {
	uid := []byte{0x30, 0x78, 0x3E, 0x26, 0x3B, 0x38, 0xA9, 0xD6}
	btver := []byte{0x02, 0x60}
	return [][]byte{
		encodeResp(0xA1, 0x00, []byte{0x17, 0x70}),   // plain identify: chip_id, device_type
		encodeResp(0xA1, 0x00, append(append([]byte{}, uid...), btver...)), // UID query
		encodeResp(0xA3, 0x00, nil),                  // set key
	}
}

func TestFlashProtocolOrdering(t *testing.T) {
	// spec.md §8 property 7: a full flash observes A1, A1(UID), A3, A4,
	// A5*, A6*, A2.
	db := loadDB(t)
	raw := make([]byte, 200)
	src, err := image.Load("fw.bin", raw, 0)
	if err != nil {
		t.Fatalf("image.Load: %v", err)
	}
	numChunks := (src.Len() + maxChunk - 1) / maxChunk

	mock := &transport.MockTransport{}
	replies := scriptedIdentify()
	replies = append(replies, encodeResp(0xA4, 0x00, nil)) // erase
	for i := 0; i < numChunks; i++ {
		replies = append(replies, encodeResp(0xA5, 0x00, nil))
	}
	for i := 0; i < numChunks; i++ {
		replies = append(replies, encodeResp(0xA6, 0x00, nil))
	}
	replies = append(replies, encodeResp(0xA2, 0x00, nil))
	mock.Replies = replies

	info, err := Flash(mock, db, src, Options{})
	if err != nil {
		t.Fatalf("Flash: %v", err)
	}
	if info.VariantName != "CH32V307VCT6" {
		t.Fatalf("variant = %q", info.VariantName)
	}

	got := mock.SentCommands()
	want := []byte{0xA1, 0xA1, 0xA3, 0xA4}
	for i := 0; i < numChunks; i++ {
		want = append(want, 0xA5)
	}
	for i := 0; i < numChunks; i++ {
		want = append(want, 0xA6)
	}
	want = append(want, 0xA2)
	if len(got) != len(want) {
		t.Fatalf("got %d commands %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("command[%d] = 0x%02x, want 0x%02x (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestFlashVerifyMismatch(t *testing.T) {
	db := loadDB(t)
	raw := make([]byte, 64)
	src, err := image.Load("fw.bin", raw, 0)
	if err != nil {
		t.Fatalf("image.Load: %v", err)
	}
	numChunks := (src.Len() + maxChunk - 1) / maxChunk

	mock := &transport.MockTransport{}
	replies := scriptedIdentify()
	replies = append(replies, encodeResp(0xA4, 0x00, nil))
	for i := 0; i < numChunks; i++ {
		replies = append(replies, encodeResp(0xA5, 0x00, nil))
	}
	replies = append(replies, encodeResp(0xA6, 0xF5, nil)) // first verify chunk rejected

	mock.Replies = replies

	_, err = Flash(mock, db, src, Options{})
	mismatch, ok := err.(*VerifyMismatchError)
	if !ok {
		t.Fatalf("got %T: %v", err, err)
	}
	if mismatch.Offset != 0 {
		t.Fatalf("offset = 0x%x, want 0", mismatch.Offset)
	}
}

func TestFlashNoEraseNoReset(t *testing.T) {
	db := loadDB(t)
	raw := make([]byte, 64)
	src, err := image.Load("fw.bin", raw, 0)
	if err != nil {
		t.Fatalf("image.Load: %v", err)
	}
	numChunks := (src.Len() + maxChunk - 1) / maxChunk

	mock := &transport.MockTransport{}
	replies := scriptedIdentify()
	for i := 0; i < numChunks; i++ {
		replies = append(replies, encodeResp(0xA5, 0x00, nil))
	}
	for i := 0; i < numChunks; i++ {
		replies = append(replies, encodeResp(0xA6, 0x00, nil))
	}
	mock.Replies = replies

	_, err = Flash(mock, db, src, Options{NoErase: true, NoReset: true})
	if err != nil {
		t.Fatalf("Flash: %v", err)
	}
	got := mock.SentCommands()
	want := []byte{0xA1, 0xA1, 0xA3}
	for i := 0; i < numChunks; i++ {
		want = append(want, 0xA5)
	}
	for i := 0; i < numChunks; i++ {
		want = append(want, 0xA6)
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("command[%d] = 0x%02x, want 0x%02x", i, got[i], want[i])
		}
	}
}
