//go:build linux

package transport

import (
	"errors"
	"fmt"
	"syscall"
	"time"

	"github.com/wchisp/wchisp/internal/usbhost"
)

// USB VID/PID and endpoint addresses, per spec.md §4.A / §6.
const (
	VendorID      = 0x4348
	ProductID     = 0x55E0
	EndpointOut   = 0x02
	EndpointIn    = 0x82
	interfaceNum  = 0
	maxCommandLen = 64
)

// USBTransport drives the vendor ISP endpoint pair over the raw usbfs
// ioctl interface in internal/usbhost, the same layering the teacher uses
// for its own control/bulk helpers (Device.Ctrl, Device.Bulk).
type USBTransport struct {
	device *usbhost.Device
	opened bool
}

// EnumerateCandidates lists every attached device matching the ISP VID/PID,
// in the order the CLI's `-d <idx>` selector indexes into.
func EnumerateCandidates() ([]Candidate, error) {
	devices, err := usbhost.FindDevices(isISPDevice)
	if err != nil {
		return nil, &TransportIOError{Op: "enumerate", Err: err}
	}
	out := make([]Candidate, 0, len(devices))
	for i, d := range devices {
		desc := d.GetDeviceDescriptor()
		description := fmt.Sprintf("usb bus=%03d dev=%03d vid=%04x pid=%04x class=%s",
			d.BusNumber, d.DeviceNumber, desc.IDVendor, desc.IDProduct, desc.BDeviceClass)
		// Best-effort only: a device need not implement string descriptors
		// at all, and reading them requires a fresh open/close around the
		// enumeration the caller didn't ask for.
		if err := d.Open(); err == nil {
			if product, err := d.GetStringDescriptor(desc.IProduct); err == nil && product != "" {
				description += fmt.Sprintf(" product=%q", product)
			}
			d.Close()
		}
		out = append(out, Candidate{Index: i, Description: description})
	}
	return out, nil
}

// isISPDevice matches the ISP tool's fixed VID/PID, plus a sanity check
// that the device reports itself vendor-specific at the device level (as
// wchisp's bootloaders do) rather than delegating class to its interfaces.
func isISPDevice(d *usbhost.Device) bool {
	desc := d.GetDeviceDescriptor()
	return desc.IDVendor == VendorID && desc.IDProduct == ProductID &&
		desc.BDeviceClass == usbhost.ClassCodeVendorSpecific
}

// NewUSBTransport selects the idx'th enumerated ISP-capable USB device.
func NewUSBTransport(idx int) (*USBTransport, error) {
	devices, err := usbhost.FindDevices(isISPDevice)
	if err != nil {
		return nil, &TransportIOError{Op: "enumerate", Err: err}
	}
	if idx < 0 || idx >= len(devices) {
		return nil, &TransportOpenError{
			Candidate: fmt.Sprintf("usb#%d", idx),
			Err:       fmt.Errorf("no such device (found %d)", len(devices)),
		}
	}
	return &USBTransport{device: devices[idx]}, nil
}

func (t *USBTransport) Open() error {
	if t.opened {
		return ErrAlreadyOpen
	}
	if err := t.device.Open(); err != nil {
		return &TransportOpenError{Candidate: "usb", Err: err}
	}
	// Detach whatever kernel driver, if any, is bound to interface 0 — this
	// is best-effort, absence of a bound driver is not an error — then claim
	// it for exclusive vendor-transfer use, spec.md §6's "Claim interface 0".
	_ = t.device.DetachKernel(interfaceNum)
	if err := t.device.ClaimInterface(interfaceNum); err != nil {
		t.device.Close()
		return &TransportOpenError{Candidate: "usb", Err: fmt.Errorf("claim interface %d: %w", interfaceNum, err)}
	}
	t.opened = true
	return nil
}

func (t *USBTransport) SendRaw(frame []byte) error {
	if !t.opened {
		return ErrNotOpen
	}
	_, err := t.device.BulkTimeout(EndpointOut, frame, uint32(DefaultTimeout/time.Millisecond))
	if err != nil {
		return &TransportIOError{Op: "bulk-out", Err: err}
	}
	return nil
}

func (t *USBTransport) RecvRaw(timeout time.Duration) ([]byte, error) {
	if !t.opened {
		return nil, ErrNotOpen
	}
	buf := make([]byte, 64)
	n, err := t.device.BulkTimeout(EndpointIn, buf, uint32(timeout/time.Millisecond))
	if err != nil {
		if isTimeoutErrno(err) {
			return nil, &TimeoutError{Waited: timeout}
		}
		return nil, &TransportIOError{Op: "bulk-in", Err: err}
	}
	return buf[:n], nil
}

func isTimeoutErrno(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ETIMEDOUT
	}
	return false
}

func (t *USBTransport) Close() error {
	if !t.opened {
		return nil
	}
	t.opened = false
	_ = t.device.ReleaseInterface(interfaceNum)
	if err := t.device.Close(); err != nil {
		return &TransportIOError{Op: "close", Err: err}
	}
	return nil
}
