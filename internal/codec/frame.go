// Package codec implements the ISP wire frame format of spec.md §4.B: a
// small request/response command set shared by both transports (USB and
// serial alike), plus the session-key/XOR-key derivation in session.go.
// Codec never touches a Transport; it only turns byte strings into typed
// requests and responses and back.
package codec

import (
	"encoding/binary"
	"fmt"
)

// Command codes, spec.md §4.B.
type Command uint8

const (
	CmdIdentify     Command = 0xA1
	CmdEnd          Command = 0xA2
	CmdSetKey       Command = 0xA3
	CmdErase        Command = 0xA4
	CmdWriteCode    Command = 0xA5
	CmdVerifyCode   Command = 0xA6
	CmdReadConfig   Command = 0xA7
	CmdWriteConfig  Command = 0xA8
	CmdDataRead     Command = 0xA9
	CmdDataWrite    Command = 0xAA
	CmdDataErase    Command = 0xAB
)

func (c Command) String() string {
	if n, ok := commandNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Cmd(0x%02X)", uint8(c))
}

var commandNames = map[Command]string{
	CmdIdentify:    "Identify",
	CmdEnd:         "End",
	CmdSetKey:      "SetKey",
	CmdErase:       "Erase",
	CmdWriteCode:   "WriteCode",
	CmdVerifyCode:  "VerifyCode",
	CmdReadConfig:  "ReadConfig",
	CmdWriteConfig: "WriteConfig",
	CmdDataRead:    "DataRead",
	CmdDataWrite:   "DataWrite",
	CmdDataErase:   "DataErase",
}

// StatusOK is the single success status byte; anything else is a
// command-specific chip-reported error.
const StatusOK = 0x00

// identifyMagic is the fixed ability string trailing an Identify request.
const identifyMagic = "MCU ISP & WCH.CN"

// EncodeRequest renders cmd|size:u16le|payload, spec.md §4.B.
func EncodeRequest(cmd Command, payload []byte) []byte {
	frame := make([]byte, 3+len(payload))
	frame[0] = uint8(cmd)
	binary.LittleEndian.PutUint16(frame[1:3], uint16(len(payload)))
	copy(frame[3:], payload)
	return frame
}

// IdentifyPayload builds the Identify (A1) request payload. uidQuery
// selects the distinguished "read chip UID" variant (ability 0x01) versus
// the plain chip-id/device-type query (ability 0x00).
func IdentifyPayload(uidQuery bool) []byte {
	ability := byte(0x00)
	if uidQuery {
		ability = 0x01
	}
	payload := make([]byte, 2+len(identifyMagic))
	payload[0] = ability
	payload[1] = 0x00
	copy(payload[2:], identifyMagic)
	return payload
}

// EndPayload builds the End/reset (A2) request payload. jumpToApp selects
// reason 0x01 (jump to application); false stays in the bootloader.
func EndPayload(jumpToApp bool) []byte {
	if jumpToApp {
		return []byte{0x01}
	}
	return []byte{0x00}
}

// ErasePayload builds the Erase (A4) request payload.
func ErasePayload(sectors uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, sectors)
	return b
}

// CodeChunkPayload builds the A5/A6 request payload: addr|pad|chunk, chunk
// already XOR-obfuscated by the caller (codec does not own session state).
func CodeChunkPayload(addr uint32, chunk []byte) []byte {
	b := make([]byte, 5+len(chunk))
	binary.LittleEndian.PutUint32(b[0:4], addr)
	b[4] = 0
	copy(b[5:], chunk)
	return b
}

// DataChunkPayload builds the AA (EEPROM write) request payload: same
// shape as CodeChunkPayload, addr|pad|chunk.
func DataChunkPayload(addr uint32, chunk []byte) []byte {
	return CodeChunkPayload(addr, chunk)
}

// DataReadPayload builds the A9 (EEPROM read) request payload.
func DataReadPayload(addr uint32, length uint8) []byte {
	b := make([]byte, 5)
	binary.LittleEndian.PutUint32(b[0:4], addr)
	b[4] = length
	return b
}

// DataErasePayload builds the AB (EEPROM erase) request payload.
func DataErasePayload(addr, length uint32) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b[0:4], addr)
	binary.LittleEndian.PutUint32(b[4:8], length)
	return b
}

// ReadConfigPayload builds the A7 (read config) request payload.
func ReadConfigPayload(mask uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, mask)
	return b
}

// WriteConfigPayload builds the A8 (write config) request payload.
func WriteConfigPayload(mask uint16, payload []byte) []byte {
	b := make([]byte, 2+len(payload))
	binary.LittleEndian.PutUint16(b[0:2], mask)
	copy(b[2:], payload)
	return b
}

// Response is the decoded shape of cmd|0x00|size:u16le|status|reserved|data,
// spec.md §4.B.
type Response struct {
	Cmd    Command
	Status uint8
	Data   []byte
}

// DecodeResponse parses one complete response frame. A status other than
// StatusOK is surfaced as *ProtocolStatusError, not as a separate return
// value. The decoded *Response is still returned alongside that error, so
// callers that want to inspect Data on a non-OK response read it there.
func DecodeResponse(raw []byte) (*Response, error) {
	if len(raw) < 6 {
		return nil, fmt.Errorf("codec: short response (%d bytes)", len(raw))
	}
	cmd := Command(raw[0])
	if raw[1] != 0x00 {
		return nil, fmt.Errorf("codec: malformed response header byte1=0x%02x", raw[1])
	}
	size := binary.LittleEndian.Uint16(raw[2:4])
	if int(size) < 2 || len(raw) < 4+int(size) {
		return nil, fmt.Errorf("codec: response size mismatch (declared %d, have %d)", size, len(raw)-4)
	}
	status := raw[4]
	data := raw[6 : 4+size]
	resp := &Response{Cmd: cmd, Status: status, Data: data}
	if status != StatusOK {
		return resp, &ProtocolStatusError{Cmd: cmd, Status: status}
	}
	return resp, nil
}

// ParseIdentify extracts chip_id/device_type from a successful Identify
// response's data section.
func ParseIdentify(resp *Response) (chipID, deviceType uint8, err error) {
	if len(resp.Data) < 2 {
		return 0, 0, fmt.Errorf("codec: identify response too short")
	}
	return resp.Data[0], resp.Data[1], nil
}

// ParseUIDResponse extracts the 8-byte UID and 2-byte BTVER from the
// distinguished UID-query Identify response.
func ParseUIDResponse(resp *Response) (uid [8]byte, btver [2]byte, err error) {
	if len(resp.Data) < 10 {
		return uid, btver, fmt.Errorf("codec: uid response too short")
	}
	copy(uid[:], resp.Data[0:8])
	copy(btver[:], resp.Data[8:10])
	return uid, btver, nil
}

// FormatBTVER renders the two BCD bytes as e.g. "02.60".
func FormatBTVER(btver [2]byte) string {
	return fmt.Sprintf("%02x.%02x", btver[0], btver[1])
}

// FormatUID renders the 8-byte UID as lowercase dash-separated hex, e.g.
// "30-78-3e-26-3b-38-a9-d6".
func FormatUID(uid [8]byte) string {
	out := make([]byte, 0, 8*3-1)
	for i, b := range uid {
		if i > 0 {
			out = append(out, '-')
		}
		out = append(out, hexDigits[b>>4], hexDigits[b&0xF])
	}
	return string(out)
}

const hexDigits = "0123456789abcdef"

// ProtocolStatusError is a chip-reported command rejection, spec.md §7.
type ProtocolStatusError struct {
	Cmd    Command
	Status uint8
}

func (e *ProtocolStatusError) Error() string {
	return fmt.Sprintf("%s rejected: status=0x%02x", e.Cmd, e.Status)
}
