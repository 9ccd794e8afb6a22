package k1pro

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/seagrayinc/k1pro/internal/hid"
)

// Endpoint identifies one of the deck's two logical HID interfaces.
type Endpoint int

const (
	EndpointNone Endpoint = iota
	EndpointControl
	EndpointEvent
)

func (e Endpoint) String() string {
	switch e {
	case EndpointControl:
		return "control"
	case EndpointEvent:
		return "event"
	default:
		return "none"
	}
}

// Identity pins down one connected deck: its ids and the resolved paths
// of the two endpoints. Immutable once resolved.
type Identity struct {
	VendorID    uint16
	ProductID   uint16
	ControlPath string
	EventPath   string
}

// ResolveIdentity enumerates matching HID interfaces and picks the
// control and event paths by usage.
func ResolveIdentity(mgr hid.Manager, cfg Config) (Identity, error) {
	infos, err := mgr.Enumerate(cfg.VendorID, cfg.ProductID)
	if err != nil {
		return Identity{}, fmt.Errorf("enumerate: %w", err)
	}

	id := Identity{VendorID: cfg.VendorID, ProductID: cfg.ProductID}
	for _, info := range infos {
		if info.UsagePage != cfg.UsagePage {
			continue
		}
		switch info.Usage {
		case cfg.ControlUsage:
			id.ControlPath = info.Path
		case cfg.EventUsage:
			id.EventPath = info.Path
		}
	}
	if id.ControlPath == "" || id.EventPath == "" {
		return Identity{}, fmt.Errorf("%w (vid 0x%04x pid 0x%04x)", ErrDeviceNotFound, cfg.VendorID, cfg.ProductID)
	}
	return id, nil
}

// Session is the sole gatekeeper of endpoint exclusivity. The device's
// driver layer refuses concurrent open handles to its two interfaces,
// so at most one endpoint is open at any instant; callers must release
// one endpoint before acquiring the other.
type Session struct {
	cfg      Config
	mgr      hid.Manager
	identity Identity

	mu   sync.Mutex
	open Endpoint
}

func NewSession(mgr hid.Manager, identity Identity, cfg Config) *Session {
	return &Session{cfg: cfg, mgr: mgr, identity: identity}
}

// Handle is a scoped grant of one endpoint. Release must run on every
// exit path of the operation that acquired it.
type Handle struct {
	s        *Session
	endpoint Endpoint
	dev      hid.Device
	released bool
}

// Acquire opens the given endpoint. It fails with ErrEndpointBusy when
// the session already holds an endpoint: the close -> open ordering is
// the caller's to make explicit, never silently serialized here. Opens
// are retried a bounded number of times because the OS releases a
// freshly closed HID handle with a delay.
func (s *Session) Acquire(ctx context.Context, endpoint Endpoint) (*Handle, error) {
	if endpoint != EndpointControl && endpoint != EndpointEvent {
		return nil, fmt.Errorf("k1pro: cannot acquire endpoint %q", endpoint)
	}

	s.mu.Lock()
	if s.open != EndpointNone {
		held := s.open
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s endpoint is open", ErrEndpointBusy, held)
	}
	// Reserve before the (slow) open so a concurrent caller sees busy
	// instead of racing the OS open.
	s.open = endpoint
	s.mu.Unlock()

	dev, err := s.openWithRetry(ctx, s.path(endpoint))
	if err != nil {
		s.mu.Lock()
		s.open = EndpointNone
		s.mu.Unlock()
		return nil, err
	}

	return &Handle{s: s, endpoint: endpoint, dev: dev}, nil
}

// Held reports which endpoint the session currently has open.
func (s *Session) Held() Endpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *Session) path(endpoint Endpoint) string {
	if endpoint == EndpointControl {
		return s.identity.ControlPath
	}
	return s.identity.EventPath
}

func (s *Session) openWithRetry(ctx context.Context, path string) (hid.Device, error) {
	attempts := s.cfg.OpenRetries
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if serr := sleep(ctx, s.cfg.OpenRetryDelay); serr != nil {
				return nil, serr
			}
		}

		var dev hid.Device
		dev, err = s.mgr.OpenPath(path)
		if err == nil {
			return dev, nil
		}
		slog.Debug("open attempt failed",
			slog.String("path", path),
			slog.Int("attempt", attempt),
			slog.Any("error", err))
	}
	return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrOpenFailed, path, attempts, err)
}

// Endpoint reports which endpoint the handle holds.
func (h *Handle) Endpoint() Endpoint {
	return h.endpoint
}

// Write sends one report verbatim. The session does not buffer or
// retry writes.
func (h *Handle) Write(p []byte) error {
	_, err := h.dev.Write(p)
	return err
}

// ReadTimeout reads one report with a bounded wait. A zero count means
// the budget elapsed without data.
func (h *Handle) ReadTimeout(p []byte, timeout time.Duration) (int, error) {
	return h.dev.ReadTimeout(p, timeout)
}

// Release closes the endpoint and clears session state. Safe to call
// more than once.
func (h *Handle) Release() error {
	h.s.mu.Lock()
	if h.released {
		h.s.mu.Unlock()
		return nil
	}
	h.released = true
	h.s.open = EndpointNone
	h.s.mu.Unlock()
	return h.dev.Close()
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
