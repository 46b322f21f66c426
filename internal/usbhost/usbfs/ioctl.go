package usbfs

// From /usr/include/linux/usbdevice_fs.h — only the request numbers this
// narrow binding actually issues: control transfers, bulk transfers,
// interface claim/release, and the generic ioctl used to detach a bound
// kernel driver.

import (
	ioctl "github.com/daedaluz/goioctl"
	"unsafe"
)

// Ioctl request numbers, built the same way daedaluz/goserial builds its
// termios request numbers: IOC macros over the matching kernel struct size.
var (
	USBDEVFS_CONTROL          = ioctl.IOWR('U', 0, unsafe.Sizeof(usbdevfs_ctrltransfer{}))
	USBDEVFS_BULK             = ioctl.IOWR('U', 2, unsafe.Sizeof(usbdevfs_bulktransfer{}))
	USBDEVFS_CLAIMINTERFACE   = ioctl.IOR('U', 15, unsafe.Sizeof(uint32(0)))
	USBDEVFS_RELEASEINTERFACE = ioctl.IOR('U', 16, unsafe.Sizeof(uint32(0)))
	USBDEVFS_IOCTL            = ioctl.IOWR('U', 18, unsafe.Sizeof(usbdevfs_ioctl{}))
	USBDEVFS_DISCONNECT       = ioctl.IO('U', 22)
)
