// Package transport implements the narrow link capability the ISP engine
// drives: open a device, exchange one raw frame at a time, close it again.
// It never interprets ISP payloads — that is internal/codec's job.
package transport

import (
	"errors"
	"fmt"
	"time"
)

// Transport is the capability consumed by the flashing orchestrator. It is a
// closed sum over two concrete link kinds (USB, Serial); dispatch happens
// through this interface rather than a type hierarchy, the same way
// usbhost.Device exposes Ctrl/Bulk without caring how the fd got opened.
type Transport interface {
	// Open claims the device behind the given candidate and prepares it
	// for use. Open is idempotent-unsafe: calling it twice on an already
	// open Transport is an error.
	Open() error

	// SendRaw writes one complete frame. It does not wait for a reply.
	SendRaw(frame []byte) error

	// RecvRaw blocks for one complete response frame or returns a
	// TimeoutError once timeout elapses.
	RecvRaw(timeout time.Duration) ([]byte, error)

	// Close releases the underlying handle. Close must be safe to call
	// more than once and after a failed Open.
	Close() error
}

// Candidate describes one enumerated device a Transport could be opened
// against, independent of whether it ends up being USB or serial.
type Candidate struct {
	Index       int
	Description string
}

// Error kinds, per spec.md §7. These are concrete types rather than
// sentinel strings so callers can recover structured fields with errors.As,
// matching the teacher's preference for typed values over bare strings
// (usbfs.go propagates syscall.Errno rather than wrapping it in text).
type (
	// TransportOpenError is returned when a device cannot be claimed at
	// all: not present, permission denied, already busy.
	TransportOpenError struct {
		Candidate string
		Err       error
	}

	// TransportIOError wraps a USB/serial failure or mid-session
	// disconnection.
	TransportIOError struct {
		Op  string
		Err error
	}

	// TimeoutError means a response was not received within the bound
	// passed to RecvRaw (see DefaultTimeout).
	TimeoutError struct {
		Waited time.Duration
	}

	// ProtocolFramingError means a malformed frame header, bad checksum
	// (serial), or short read.
	ProtocolFramingError struct {
		Reason string
	}
)

func (e *TransportOpenError) Error() string {
	return fmt.Sprintf("open %s: %s", e.Candidate, e.Err)
}
func (e *TransportOpenError) Unwrap() error { return e.Err }

func (e *TransportIOError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}
func (e *TransportIOError) Unwrap() error { return e.Err }

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s", e.Waited)
}

func (e *ProtocolFramingError) Error() string {
	return fmt.Sprintf("protocol framing: %s", e.Reason)
}

// ErrAlreadyOpen is returned by Open when called on a Transport that is
// already open, mirroring usbhost.Device.Open's "device already open" guard.
var ErrAlreadyOpen = errors.New("transport: already open")

// ErrNotOpen is returned by SendRaw/RecvRaw when called before Open.
var ErrNotOpen = errors.New("transport: not open")

// DefaultTimeout is the response timeout used for every ISP round-trip. It
// is fixed; nothing adjusts it per command or per chip.
const DefaultTimeout = 5 * time.Second
