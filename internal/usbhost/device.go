// Package usbhost is a narrow Linux usbdevfs binding: just enough to find
// one vendor/product-matched device, claim its single bulk interface, and
// move bytes across a fixed pair of endpoints. It is a collaborator the ISP
// protocol consumes through internal/transport's Transport interface, not a
// general-purpose USB stack — it carries no configuration/interface
// descriptor model, no BOS/capability parsing, and no control-request
// surface beyond the one request (GET_DESCRIPTOR) the tool actually issues.
package usbhost

import (
	"fmt"
	"syscall"
	"unicode/utf16"

	"github.com/wchisp/wchisp/internal/usbhost/usbfs"
)

// usEnglishLangID is the USB-IF LANGID used when no other language has
// been negotiated; every string-capable device accepts it.
const usEnglishLangID = 0x0409

// reqGetDescriptor is the standard GET_DESCRIPTOR device request, the only
// control request this package ever issues.
const reqGetDescriptor = 0x06

// descriptorTypeString is the standard descriptor type code for a USB
// string descriptor; it is the only descriptor type this package names,
// since device/string descriptors are all it ever requests.
const descriptorTypeString = 3

const (
	requestDirectionIn     = 0b10000000
	requestTypeStandard    = 0b00000000
	requestRecipientDevice = 0b00000000
)

// DeviceDescriptor holds the fields of a standard device descriptor that the
// tool actually reads: identity (for VID/PID matching), class (for the
// vendor-specific sanity check in isISPDevice), and the string-descriptor
// indices needed to look up a product name.
type DeviceDescriptor struct {
	BDeviceClass  ClassCode
	IDVendor      uint16
	IDProduct     uint16
	IManufacturer uint8
	IProduct      uint8
}

// ClassCode is the USB-IF device class code, spec.md's ISP devices report
// ClassCodeVendorSpecific (0xFF) at the device level.
type ClassCode uint8

const (
	ClassCodeUseInterfaceDescriptors = ClassCode(0x00)
	ClassCodeVendorSpecific          = ClassCode(0xFF)
)

func (c ClassCode) String() string {
	switch c {
	case ClassCodeUseInterfaceDescriptors:
		return "UseInterfaceDescriptors"
	case ClassCodeVendorSpecific:
		return "VendorSpecific"
	default:
		return fmt.Sprintf("Class(0x%02X)", uint8(c))
	}
}

// Device is one enumerated USB device, identified by its devfs bus/device
// address, with its descriptor read but its devfs node not yet opened.
type Device struct {
	fd           int
	BusNumber    int
	DeviceNumber int
	Descriptor   DeviceDescriptor
}

func (d *Device) GetDeviceDescriptor() *DeviceDescriptor {
	return &d.Descriptor
}

func (d *Device) Open() error {
	if d.fd != -1 {
		return fmt.Errorf("device already open")
	}
	fd, err := usbfs.OpenDevice(d.BusNumber, d.DeviceNumber)
	if err != nil {
		return err
	}
	d.fd = fd
	return nil
}

// DetachKernel disconnects whatever kernel driver, if any, is bound to
// iface so the tool can claim it for exclusive vendor-transfer use.
func (d *Device) DetachKernel(iface uint32) error {
	return usbfs.Disconnect(d.fd, iface)
}

// ClaimInterface claims iface for exclusive use by this process, spec.md
// §6's "claim interface 0".
func (d *Device) ClaimInterface(iface uint32) error {
	return usbfs.ClaimInterface(d.fd, int(iface))
}

func (d *Device) ReleaseInterface(iface uint32) error {
	return usbfs.ReleaseInterface(d.fd, int(iface))
}

func (d *Device) Ctrl(requestType uint8, req uint8, value uint16, index uint16, payload []byte) (int, error) {
	return usbfs.ControlTransfer(d.fd, requestType, req, value, index, 1000, payload)
}

func (d *Device) BulkTimeout(ep uint8, data []byte, timeout uint32) (int, error) {
	return usbfs.BulkTransfer(d.fd, uint32(ep)&0xFF, timeout, data)
}

// GetStringDescriptor reads and UTF-16LE-decodes string descriptor idx,
// used by probe output to show a device's product string. idx 0 yields an
// empty string rather than an error, matching "a device may omit all
// string descriptors".
func (d *Device) GetStringDescriptor(idx uint8) (string, error) {
	if idx == 0 {
		return "", nil
	}
	buff := make([]byte, 256)
	n, err := d.Ctrl(requestDirectionIn|requestTypeStandard|requestRecipientDevice,
		reqGetDescriptor, (uint16(descriptorTypeString)<<8)|uint16(idx), usEnglishLangID, buff)
	if err != nil {
		return "", err
	}
	if n <= 2 {
		return "", nil
	}
	body := buff[2:n]
	units := make([]uint16, len(body)/2)
	for i := range units {
		units[i] = uint16(body[2*i]) | uint16(body[2*i+1])<<8
	}
	return string(utf16.Decode(units)), nil
}

func (d *Device) Close() error {
	e := syscall.Close(d.fd)
	d.fd = -1
	return e
}
