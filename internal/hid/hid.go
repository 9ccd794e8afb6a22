package hid

import "time"

// Device represents an opened HID interface capable of report I/O.
// Writes carry the report ID in byte 0; reads return the raw input
// report including the report ID.
type Device interface {
	Write([]byte) (int, error)
	ReadTimeout([]byte, time.Duration) (int, error) // returns 0 bytes when the wait budget elapses
	Close() error
}

// Info represents one enumerated HID interface. Devices exposing
// several logical interfaces under one VID/PID are told apart by
// usage page and usage.
type Info struct {
	Path         string
	VendorID     uint16
	ProductID    uint16
	UsagePage    uint16
	Usage        uint16
	Product      string
	Manufacturer string
}

// Manager enumerates and opens HID interfaces.
type Manager interface {
	Enumerate(vendorID, productID uint16) ([]Info, error)
	OpenPath(path string) (Device, error)
}

// NewManager returns the hidapi-backed HID manager.
func NewManager() (Manager, error) {
	return newManager()
}
