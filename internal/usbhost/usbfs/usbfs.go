package usbfs

import (
	"fmt"
	"syscall"
	"unsafe"
)

func ClaimInterface(fd, iface int) error {
	ifnum := uint32(iface)
	_, _, e := syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), USBDEVFS_CLAIMINTERFACE, uintptr(unsafe.Pointer(&ifnum)))
	if e == syscall.Errno(0) {
		return nil
	}
	return e
}

func ReleaseInterface(fd, iface int) error {
	ifnum := uint32(iface)
	_, _, e := syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), USBDEVFS_RELEASEINTERFACE, uintptr(unsafe.Pointer(&ifnum)))
	if e == syscall.Errno(0) {
		return nil
	}
	return e
}

func Disconnect(fd int, iface uint32) error {
	data := usbdevfs_ioctl{
		Interface: iface,
		IoctlCode: uint32(USBDEVFS_DISCONNECT),
		Data:      0,
	}
	_, _, e := syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), USBDEVFS_IOCTL, uintptr(unsafe.Pointer(&data)))
	if e == syscall.Errno(0) {
		return nil
	}
	return e
}

func ControlTransfer(fd int, typ uint8, request uint8, value uint16, index uint16, timeout uint32, payload []byte) (int, error) {
	data := &usbdevfs_ctrltransfer{
		RequestType: typ,
		Request:     request,
		Value:       value,
		Index:       index,
		Timeout:     timeout,
	}
	if payload != nil {
		data.Length = uint16(len(payload))
		data.Data = slicePtr(payload)
	}
	x, _, e := syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), USBDEVFS_CONTROL, uintptr(unsafe.Pointer(data)))
	if e == syscall.Errno(0) {
		return int(x), nil
	}
	return int(x), e
}

func BulkTransfer(fd int, endpoint uint32, timeout uint32, payload []byte) (int, error) {
	data := &usbdevfs_bulktransfer{
		Endpoint: endpoint,
		Timeout:  timeout,
	}
	if payload != nil {
		data.Length = uint32(len(payload))
		data.Data = slicePtr(payload)
	}
	x, _, e := syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), USBDEVFS_BULK, uintptr(unsafe.Pointer(data)))
	if e == syscall.Errno(0) {
		return int(x), nil
	}
	return int(x), e
}

func OpenDevice(busNumber, deviceNumber int) (int, error) {
	devPath := fmt.Sprintf("%s/%.3d/%.3d", usbDevPath, busNumber, deviceNumber)
	fd, err := syscall.Open(devPath, syscall.O_RDWR, 0)
	if err != nil {
		return -1, err
	}
	return fd, nil
}
