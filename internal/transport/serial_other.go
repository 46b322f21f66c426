//go:build !linux

package transport

import (
	"errors"
	"io"
)

var errSerialUnsupportedPlatform = errors.New("serial transport: no termios backend for this platform")

// NewSerialTransport is unimplemented outside Linux; see usb_other.go for
// the matching USB-side note.
func NewSerialTransport(path string) *SerialTransport {
	return &SerialTransport{opener: func() (io.ReadWriteCloser, error) {
		return nil, errSerialUnsupportedPlatform
	}}
}
