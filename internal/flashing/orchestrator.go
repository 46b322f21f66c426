package flashing

import (
	"log"

	"github.com/wchisp/wchisp/internal/chipdb"
	"github.com/wchisp/wchisp/internal/codec"
	"github.com/wchisp/wchisp/internal/image"
	"github.com/wchisp/wchisp/internal/transport"
)

// maxChunk is the largest code/EEPROM write chunk per frame, spec.md §4.B
// "A5 ... chunk:bytes(≤56)".
const maxChunk = 56

const sectorSize = 1024

// Options configures one flash(image) run, spec.md §4.F and §6's CLI flags.
type Options struct {
	NoErase  bool
	NoVerify bool
	NoReset  bool
	Retry    Retry

	// Progress, if set, is called after each written or verified chunk.
	Progress func(stage string, offset, total int)
}

func (o Options) progress(stage string, offset, total int) {
	if o.Progress != nil {
		o.Progress(stage, offset, total)
	}
}

// Flash runs the master sequence of spec.md §4.F: identify, read UID,
// negotiate key, erase, write, verify, reset. The transport is always
// closed on return, success or failure.
func Flash(tr transport.Transport, db *chipdb.Database, img image.Source, opts Options) (*chipdb.ChipInfo, error) {
	sess, err := establish(tr, db, opts.Retry)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	total := img.Len()
	if !opts.NoErase {
		sectors := uint32((total + sectorSize - 1) / sectorSize)
		minSectors := sess.Info.MinEraseSectors
		if minSectors == 0 {
			minSectors = chipdb.DefaultMinEraseSectors
		}
		if sectors < minSectors {
			sectors = minSectors
		}
		if err := sendSimple(tr, codec.CmdErase, codec.ErasePayload(sectors)); err != nil {
			sess.State = StateFailed
			return sess.Info, err
		}
		sess.State = StateErased
	}

	sess.State = StateWriting
	if err := writeChunks(tr, codec.CmdWriteCode, img, sess.XORKey, func(end int) {
		opts.progress("write", end, total)
	}); err != nil {
		sess.State = StateFailed
		if mismatch, ok := err.(*offsetError); ok {
			return sess.Info, mismatch.err
		}
		return sess.Info, err
	}

	if !opts.NoVerify {
		err := writeChunks(tr, codec.CmdVerifyCode, img, sess.XORKey, func(end int) {
			opts.progress("verify", end, total)
		})
		if err != nil {
			sess.State = StateFailed
			if mismatch, ok := err.(*offsetError); ok {
				return sess.Info, &VerifyMismatchError{Offset: mismatch.addr}
			}
			return sess.Info, err
		}
		sess.State = StateVerified
	}

	if !opts.NoReset {
		req := codec.EncodeRequest(codec.CmdEnd, codec.EndPayload(true))
		if err := tr.SendRaw(req); err != nil {
			log.Printf("flashing: reset command failed to send: %v", err)
		} else if raw, err := tr.RecvRaw(transport.DefaultTimeout); err != nil {
			log.Printf("flashing: no reset acknowledgement: %v", err)
		} else if _, err := codec.DecodeResponse(raw); err != nil {
			// spec.md §4.F item 8 / §7: reset-step protocol errors are
			// logged, not surfaced — the chip may already have jumped.
			log.Printf("flashing: reset acknowledged with error (ignored): %v", err)
		}
		sess.State = StateReset
	}
	return sess.Info, nil
}

// Identify runs just the identify/UID/set-key handshake (the `info` CLI
// command): establish, then tear down without touching flash contents.
func Identify(tr transport.Transport, db *chipdb.Database, retry Retry) (*chipdb.ChipInfo, error) {
	sess, err := establish(tr, db, retry)
	if err != nil {
		return nil, err
	}
	sess.Close()
	return sess.Info, nil
}

// Erase runs a standalone erase (the `erase` CLI command), not gated by
// an image: it erases exactly the chip's minimum erase unit.
func Erase(tr transport.Transport, db *chipdb.Database, retry Retry) (*chipdb.ChipInfo, error) {
	sess, err := establish(tr, db, retry)
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	minSectors := sess.Info.MinEraseSectors
	if minSectors == 0 {
		minSectors = chipdb.DefaultMinEraseSectors
	}
	if err := sendSimple(tr, codec.CmdErase, codec.ErasePayload(minSectors)); err != nil {
		sess.State = StateFailed
		return sess.Info, err
	}
	sess.State = StateErased
	return sess.Info, nil
}

// offsetError carries the address of a failed chunk back out of
// writeChunks so the caller can decide how to wrap it (plain error for a
// write, VerifyMismatchError for a verify).
type offsetError struct {
	addr uint32
	err  error
}

func (e *offsetError) Error() string { return e.err.Error() }
func (e *offsetError) Unwrap() error  { return e.err }

// writeChunks splits img into ≤maxChunk-byte pieces at contiguous
// offsets, XOR-obfuscates each against key, and sends it as cmd
// (CmdWriteCode or CmdVerifyCode — both share the addr|pad|chunk shape).
func writeChunks(tr transport.Transport, cmd codec.Command, img image.Source, key uint8, onChunk func(end int)) error {
	for _, seg := range img.Segments() {
		offset := 0
		for offset < len(seg.Data) {
			end := offset + maxChunk
			if end > len(seg.Data) {
				end = len(seg.Data)
			}
			obfuscated := codec.XOR(seg.Data[offset:end], key)
			addr := seg.Address + uint32(offset)
			payload := codec.CodeChunkPayload(addr, obfuscated)
			if err := sendSimple(tr, cmd, payload); err != nil {
				return &offsetError{addr: addr, err: err}
			}
			onChunk(end)
			offset = end
		}
	}
	return nil
}

// sendSimple sends one request and discards the response data, surfacing
// only the status (*codec.ProtocolStatusError on rejection).
func sendSimple(tr transport.Transport, cmd codec.Command, payload []byte) error {
	req := codec.EncodeRequest(cmd, payload)
	if err := tr.SendRaw(req); err != nil {
		return err
	}
	raw, err := tr.RecvRaw(transport.DefaultTimeout)
	if err != nil {
		return err
	}
	_, err = codec.DecodeResponse(raw)
	return err
}
