package hid

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// FakeManager is a scriptable in-memory Manager for tests. It mimics
// the platform constraint the real device imposes: opening a second
// interface while another one is open fails with a busy error.
type FakeManager struct {
	mu        sync.Mutex
	infos     []Info
	failNext  map[string]int
	devices   map[string]*FakeDevice
	openCalls []string
}

func NewFakeManager(infos ...Info) *FakeManager {
	return &FakeManager{
		infos:    infos,
		failNext: make(map[string]int),
		devices:  make(map[string]*FakeDevice),
	}
}

// FailOpens makes the next n opens of path fail before one succeeds.
func (m *FakeManager) FailOpens(path string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext[path] = n
}

// OpenCalls returns every attempted path open, including failed ones.
func (m *FakeManager) OpenCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.openCalls...)
}

// Device returns the fake behind a path, creating it if needed. The
// device object persists across open/close cycles so recorded writes
// survive for later assertions.
func (m *FakeManager) Device(path string) *FakeDevice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.device(path)
}

func (m *FakeManager) device(path string) *FakeDevice {
	d, ok := m.devices[path]
	if !ok {
		d = &FakeDevice{path: path}
		m.devices[path] = d
	}
	return d
}

func (m *FakeManager) Enumerate(vendorID, productID uint16) ([]Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Info
	for _, info := range m.infos {
		if info.VendorID == vendorID && info.ProductID == productID {
			out = append(out, info)
		}
	}
	return out, nil
}

func (m *FakeManager) OpenPath(path string) (Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openCalls = append(m.openCalls, path)

	if n := m.failNext[path]; n > 0 {
		m.failNext[path] = n - 1
		return nil, fmt.Errorf("open %s: resource temporarily unavailable", path)
	}
	for p, d := range m.devices {
		if p != path && d.isOpen() {
			return nil, fmt.Errorf("open %s: device busy (%s is open)", path, p)
		}
	}

	d := m.device(path)
	if d.isOpen() {
		return nil, fmt.Errorf("open %s: already open", path)
	}
	d.setOpen(true)
	return d, nil
}

// FakeDevice records writes and serves queued input reports.
type FakeDevice struct {
	path string

	mu       sync.Mutex
	open     bool
	writes   [][]byte
	reads    [][]byte
	writeErr error
}

var errClosed = errors.New("hid: device closed")

func (d *FakeDevice) isOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

func (d *FakeDevice) setOpen(open bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = open
}

// FailWrites makes every subsequent Write return err.
func (d *FakeDevice) FailWrites(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeErr = err
}

// QueueRead appends one input report to be returned by ReadTimeout.
func (d *FakeDevice) QueueRead(report []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reads = append(d.reads, append([]byte(nil), report...))
}

// Writes returns every report written so far, across open/close cycles.
func (d *FakeDevice) Writes() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]byte(nil), d.writes...)
}

func (d *FakeDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return 0, errClosed
	}
	if d.writeErr != nil {
		return 0, d.writeErr
	}
	d.writes = append(d.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (d *FakeDevice) ReadTimeout(p []byte, _ time.Duration) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return 0, errClosed
	}
	if len(d.reads) == 0 {
		return 0, nil
	}
	r := d.reads[0]
	d.reads = d.reads[1:]
	return copy(p, r), nil
}

func (d *FakeDevice) Close() error {
	d.setOpen(false)
	return nil
}
