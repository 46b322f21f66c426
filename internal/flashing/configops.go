package flashing

import (
	"github.com/wchisp/wchisp/internal/chipdb"
	"github.com/wchisp/wchisp/internal/codec"
	"github.com/wchisp/wchisp/internal/configregs"
	"github.com/wchisp/wchisp/internal/transport"
)

// ConfigInfo implements `config info`, spec.md §4.G: read every present
// register and decode it.
func ConfigInfo(tr transport.Transport, db *chipdb.Database, retry Retry) (*chipdb.ChipInfo, []configregs.RegisterDump, error) {
	sess, err := establish(tr, db, retry)
	if err != nil {
		return nil, nil, err
	}
	defer sess.Close()

	mask := configregs.PresentMask(sess.Info)
	raw, err := readConfig(tr, mask, 4*len(sess.Info.ConfigRegisters))
	if err != nil {
		return sess.Info, nil, err
	}
	dumps, err := configregs.Decode(sess.Info, raw)
	return sess.Info, dumps, err
}

// ConfigReset implements `config reset`: write back every register's
// declared reset value.
func ConfigReset(tr transport.Transport, db *chipdb.Database, retry Retry) (*chipdb.ChipInfo, error) {
	sess, err := establish(tr, db, retry)
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	payload := configregs.ResetPayload(sess.Info)
	mask := configregs.PresentMask(sess.Info)
	err = sendSimple(tr, codec.CmdWriteConfig, codec.WriteConfigPayload(mask, payload))
	return sess.Info, err
}

// SetDebug implements `enable-debug`/`disable-debug`. enable selects the
// per-register enable_debug override; disable writes back the plain
// reset payload. Returns configregs.ErrNotSupported (spec.md §7
// NotSupported) when enabling and no register in the chip's spec carries
// an override.
func SetDebug(tr transport.Transport, db *chipdb.Database, retry Retry, enable bool) (*chipdb.ChipInfo, error) {
	sess, err := establish(tr, db, retry)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	var payload []byte
	if enable {
		payload, err = configregs.EnableDebugPayload(sess.Info)
		if err != nil {
			return sess.Info, err
		}
	} else {
		payload = configregs.ResetPayload(sess.Info)
	}
	mask := configregs.PresentMask(sess.Info)
	err = sendSimple(tr, codec.CmdWriteConfig, codec.WriteConfigPayload(mask, payload))
	return sess.Info, err
}

// EEPROMDump implements `eeprom dump`: reads length bytes starting at the
// chip's eeprom_start_addr, unobfuscated (reads are never XORed, §4.G).
func EEPROMDump(tr transport.Transport, db *chipdb.Database, retry Retry, length uint32) (*chipdb.ChipInfo, []byte, error) {
	sess, err := establish(tr, db, retry)
	if err != nil {
		return nil, nil, err
	}
	defer sess.Close()
	if !sess.Info.HasEEPROM {
		return sess.Info, nil, configregs.ErrNotSupported
	}
	if length == 0 {
		length = sess.Info.EEPROMSize
	}

	out := make([]byte, 0, length)
	addr := sess.Info.EEPROMStartAddr
	for uint32(len(out)) < length {
		chunk := length - uint32(len(out))
		if chunk > 255 {
			chunk = 255
		}
		req := codec.EncodeRequest(codec.CmdDataRead, codec.DataReadPayload(addr, uint8(chunk)))
		if err := tr.SendRaw(req); err != nil {
			return sess.Info, nil, err
		}
		raw, err := tr.RecvRaw(transport.DefaultTimeout)
		if err != nil {
			return sess.Info, nil, err
		}
		resp, err := codec.DecodeResponse(raw)
		if err != nil {
			return sess.Info, nil, err
		}
		out = append(out, resp.Data...)
		addr += uint32(len(resp.Data))
		if len(resp.Data) == 0 {
			break
		}
	}
	return sess.Info, out, nil
}

// EEPROMErase implements `eeprom erase`.
func EEPROMErase(tr transport.Transport, db *chipdb.Database, retry Retry) (*chipdb.ChipInfo, error) {
	sess, err := establish(tr, db, retry)
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	if !sess.Info.HasEEPROM {
		return sess.Info, configregs.ErrNotSupported
	}
	payload := codec.DataErasePayload(sess.Info.EEPROMStartAddr, sess.Info.EEPROMSize)
	err = sendSimple(tr, codec.CmdDataErase, payload)
	return sess.Info, err
}

// EEPROMWrite implements `eeprom write`: chunk data into ≤56-byte
// transfers and XOR-obfuscate each against the session key, as code
// writes are (§4.G "Writes XOR the chunk bytes with xor_key").
func EEPROMWrite(tr transport.Transport, db *chipdb.Database, retry Retry, data []byte) (*chipdb.ChipInfo, error) {
	sess, err := establish(tr, db, retry)
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	if !sess.Info.HasEEPROM {
		return sess.Info, configregs.ErrNotSupported
	}

	base := sess.Info.EEPROMStartAddr
	offset := 0
	for offset < len(data) {
		end := offset + maxChunk
		if end > len(data) {
			end = len(data)
		}
		chunk := codec.XOR(data[offset:end], sess.XORKey)
		payload := codec.DataChunkPayload(base+uint32(offset), chunk)
		if err := sendSimple(tr, codec.CmdDataWrite, payload); err != nil {
			return sess.Info, err
		}
		offset = end
	}
	return sess.Info, nil
}

func readConfig(tr transport.Transport, mask uint16, wantLen int) ([]byte, error) {
	req := codec.EncodeRequest(codec.CmdReadConfig, codec.ReadConfigPayload(mask))
	if err := tr.SendRaw(req); err != nil {
		return nil, err
	}
	raw, err := tr.RecvRaw(transport.DefaultTimeout)
	if err != nil {
		return nil, err
	}
	resp, err := codec.DecodeResponse(raw)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) < wantLen {
		return nil, &transport.ProtocolFramingError{Reason: "short config-read response"}
	}
	return resp.Data[:wantLen], nil
}
