package usbhost

import (
	"encoding/binary"
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"strings"
)

const sysfsDeviceDir = "/sys/bus/usb/devices"

// rawDeviceDescriptor mirrors the 18-byte standard USB device descriptor,
// the only descriptor this package ever parses out of a device's sysfs
// "descriptors" attribute (which begins with it on every device).
type rawDeviceDescriptor struct {
	BLength            uint8
	BDescriptorType    uint8
	BcdUSB             uint16
	BDeviceClass       uint8
	BDeviceSubClass    uint8
	BDeviceProtocol    uint8
	BMaxPacketSize0    uint8
	IDVendor           uint16
	IDProduct          uint16
	BcdDevice          uint16
	IManufacturer      uint8
	IProduct           uint8
	ISerialNumber      uint8
	BNumConfigurations uint8
}

func readSysfsAttrInt(devName, attrName string) (int, error) {
	fileName := fmt.Sprintf("%s/%s/%s", sysfsDeviceDir, devName, attrName)
	data, err := ioutil.ReadFile(fileName)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseInt(strings.Trim(string(data), "\n"), 10, 64)
	if err != nil {
		return 0, err
	}
	return int(value), nil
}

func getDeviceAddress(devName string) (int, int, error) {
	busNum, err := readSysfsAttrInt(devName, "busnum")
	if err != nil {
		return 0, 0, err
	}
	devNum, err := readSysfsAttrInt(devName, "devnum")
	if err != nil {
		return 0, 0, err
	}
	return busNum, devNum, nil
}

// readDeviceDescriptor reads just the leading device descriptor out of a
// device's sysfs "descriptors" attribute; configuration, interface, and
// endpoint descriptors that follow are left unread since nothing in this
// tool consults them (the ISP transport's endpoints are fixed constants).
func readDeviceDescriptor(devName string) (DeviceDescriptor, error) {
	fileName := fmt.Sprintf("%s/%s/descriptors", sysfsDeviceDir, devName)
	f, err := os.Open(fileName)
	if err != nil {
		return DeviceDescriptor{}, err
	}
	defer f.Close()

	var raw rawDeviceDescriptor
	if err := binary.Read(f, binary.LittleEndian, &raw); err != nil {
		return DeviceDescriptor{}, err
	}
	return DeviceDescriptor{
		BDeviceClass:  ClassCode(raw.BDeviceClass),
		IDVendor:      raw.IDVendor,
		IDProduct:     raw.IDProduct,
		IManufacturer: raw.IManufacturer,
		IProduct:      raw.IProduct,
	}, nil
}

func EnumerateDevices() ([]*Device, error) {
	dirs, err := ioutil.ReadDir(sysfsDeviceDir)
	if err != nil {
		return nil, err
	}

	res := make([]*Device, 0, 10)
	for _, dir := range dirs {
		name := dir.Name()
		if strings.HasPrefix(name, "usb") || strings.Contains(name, ":") {
			continue
		}
		desc, err := readDeviceDescriptor(name)
		if err != nil {
			return nil, err
		}
		busNum, devNum, err := getDeviceAddress(name)
		if err != nil {
			return nil, err
		}
		res = append(res, &Device{
			BusNumber:    busNum,
			DeviceNumber: devNum,
			Descriptor:   desc,
			fd:           -1,
		})
	}
	return res, nil
}

func FindDevices(filter func(device *Device) bool) ([]*Device, error) {
	allDevices, err := EnumerateDevices()
	if err != nil {
		return nil, err
	}
	res := make([]*Device, 0, len(allDevices))
	for _, dev := range allDevices {
		if filter(dev) {
			res = append(res, dev)
		}
	}
	return res, nil
}
