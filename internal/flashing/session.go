// Package flashing is the orchestrator of spec.md §4.F/§4.G: it drives a
// bootloader session end to end (identify, key negotiation, erase, write,
// verify, reset) and layers the config-register operations of ConfigOps
// on top of the same session setup.
package flashing

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/wchisp/wchisp/internal/chipdb"
	"github.com/wchisp/wchisp/internal/codec"
	"github.com/wchisp/wchisp/internal/transport"
)

// State is one stage of the per-command session lifecycle, spec.md §4.F.
type State int

const (
	StateIdle State = iota
	StateIdentified
	StateKeyed
	StateErased
	StateWriting
	StateVerified
	StateReset
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateIdentified:
		return "Identified"
	case StateKeyed:
		return "Keyed"
	case StateErased:
		return "Erased"
	case StateWriting:
		return "Writing"
	case StateVerified:
		return "Verified"
	case StateReset:
		return "Reset"
	case StateClosed:
		return "Closed"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session holds everything scoped to one command, spec.md §3 "Session
// state". It is created on command entry and torn down, with best-effort
// transport close, on every exit path.
type Session struct {
	Transport transport.Transport
	Info      *chipdb.ChipInfo
	UID       [8]byte
	BTVER     [2]byte
	XORKey    uint8
	State     State
}

// Retry controls the identify/set-key retry budget, spec.md §4.F.
type Retry struct {
	Attempts int           // default 0: no retries
	Backoff  time.Duration // default 200ms
}

func (r Retry) attempts() int {
	if r.Attempts < 0 {
		return 0
	}
	return r.Attempts
}

func (r Retry) backoff() time.Duration {
	if r.Backoff <= 0 {
		return 200 * time.Millisecond
	}
	return r.Backoff
}

// establish opens tr, runs the identify/UID/set-key handshake, and
// returns a Session ready for erase/write or config operations. On any
// failure the transport is closed and the error is returned; the caller
// never needs to clean up a partially-established session.
func establish(tr transport.Transport, db *chipdb.Database, retry Retry) (*Session, error) {
	if err := tr.Open(); err != nil {
		return nil, err
	}
	sess := &Session{Transport: tr, State: StateIdle}

	chipID, deviceType, err := withRetry(retry, func() (uint8, uint8, error) {
		return doIdentify(tr, false)
	})
	if err != nil {
		tr.Close()
		return nil, err
	}
	info, err := db.Probe(deviceType, chipID)
	if err != nil {
		tr.Close()
		return nil, err
	}
	sess.Info = info
	sess.State = StateIdentified

	uid, btver, err := withRetryUID(retry, func() ([8]byte, [2]byte, error) {
		return doIdentifyUID(tr)
	})
	if err != nil {
		tr.Close()
		return nil, err
	}
	sess.UID, sess.BTVER = uid, btver
	info.UID, info.BTVER = uid, btver

	xorKey, err := withRetryByte(retry, func() (uint8, error) {
		return doSetKey(tr, uid)
	})
	if err != nil {
		tr.Close()
		return nil, err
	}
	sess.XORKey = xorKey
	sess.State = StateKeyed
	return sess, nil
}

// Close tears down the session's transport, best-effort, spec.md §3
// "Lifecycle" and §5 "Concurrency & Resource Model".
func (s *Session) Close() {
	s.Transport.Close()
	s.State = StateClosed
}

func doIdentify(tr transport.Transport, uidQuery bool) (chipID, deviceType uint8, err error) {
	req := codec.EncodeRequest(codec.CmdIdentify, codec.IdentifyPayload(uidQuery))
	if err := tr.SendRaw(req); err != nil {
		return 0, 0, err
	}
	raw, err := tr.RecvRaw(transport.DefaultTimeout)
	if err != nil {
		return 0, 0, err
	}
	resp, err := codec.DecodeResponse(raw)
	if err != nil {
		return 0, 0, err
	}
	return codec.ParseIdentify(resp)
}

func doIdentifyUID(tr transport.Transport) (uid [8]byte, btver [2]byte, err error) {
	req := codec.EncodeRequest(codec.CmdIdentify, codec.IdentifyPayload(true))
	if err := tr.SendRaw(req); err != nil {
		return uid, btver, err
	}
	raw, err := tr.RecvRaw(transport.DefaultTimeout)
	if err != nil {
		return uid, btver, err
	}
	resp, err := codec.DecodeResponse(raw)
	if err != nil {
		return uid, btver, err
	}
	return codec.ParseUIDResponse(resp)
}

func doSetKey(tr transport.Transport, uid [8]byte) (uint8, error) {
	var seed [codec.SeedSize]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return 0, fmt.Errorf("flashing: generating session seed: %w", err)
	}
	payload := codec.BuildSetKeyPayload(uid, seed)
	req := codec.EncodeRequest(codec.CmdSetKey, payload)
	if err := tr.SendRaw(req); err != nil {
		return 0, err
	}
	raw, err := tr.RecvRaw(transport.DefaultTimeout)
	if err != nil {
		return 0, err
	}
	if _, err := codec.DecodeResponse(raw); err != nil {
		return 0, err
	}
	return codec.DeriveXORKey(uid, seed), nil
}

func withRetry(r Retry, fn func() (uint8, uint8, error)) (a, b uint8, err error) {
	for attempt := 0; ; attempt++ {
		a, b, err = fn()
		if err == nil || attempt >= r.attempts() {
			return a, b, err
		}
		time.Sleep(r.backoff())
	}
}

func withRetryUID(r Retry, fn func() ([8]byte, [2]byte, error)) (a [8]byte, b [2]byte, err error) {
	for attempt := 0; ; attempt++ {
		a, b, err = fn()
		if err == nil || attempt >= r.attempts() {
			return a, b, err
		}
		time.Sleep(r.backoff())
	}
}

func withRetryByte(r Retry, fn func() (uint8, error)) (a uint8, err error) {
	for attempt := 0; ; attempt++ {
		a, err = fn()
		if err == nil || attempt >= r.attempts() {
			return a, err
		}
		time.Sleep(r.backoff())
	}
}
