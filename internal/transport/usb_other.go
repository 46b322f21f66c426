//go:build !linux

package transport

import (
	"errors"
	"time"
)

// errUnsupportedPlatform is returned on platforms where no usbfs-equivalent
// backend is wired in. spec.md §4.A permits a vendor-DLL backend on Windows;
// that backend is an external collaborator (a cgo/DLL binding), not part of
// this core, so only the build-tag seam is provided here.
var errUnsupportedPlatform = errors.New("usb transport: no backend for this platform")

type USBTransport struct{}

func EnumerateCandidates() ([]Candidate, error) { return nil, errUnsupportedPlatform }

func NewUSBTransport(idx int) (*USBTransport, error) { return nil, errUnsupportedPlatform }

func (t *USBTransport) Open() error                                { return errUnsupportedPlatform }
func (t *USBTransport) SendRaw(frame []byte) error                 { return errUnsupportedPlatform }
func (t *USBTransport) RecvRaw(time.Duration) ([]byte, error)      { return nil, errUnsupportedPlatform }
func (t *USBTransport) Close() error                               { return nil }
