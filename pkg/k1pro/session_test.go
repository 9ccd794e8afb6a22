package k1pro

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seagrayinc/k1pro/internal/hid"
)

const (
	testControlPath = "fake/control"
	testEventPath   = "fake/event"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.InterCommandDelay = 0
	cfg.SettleDelay = 0
	cfg.PacketDelay = 0
	cfg.PollTimeout = time.Millisecond
	cfg.OpenRetryDelay = time.Millisecond
	return cfg
}

func testManager(cfg Config) *hid.FakeManager {
	return hid.NewFakeManager(
		hid.Info{
			Path:      testControlPath,
			VendorID:  cfg.VendorID,
			ProductID: cfg.ProductID,
			UsagePage: cfg.UsagePage,
			Usage:     cfg.ControlUsage,
		},
		hid.Info{
			Path:      testEventPath,
			VendorID:  cfg.VendorID,
			ProductID: cfg.ProductID,
			UsagePage: cfg.UsagePage,
			Usage:     cfg.EventUsage,
		},
	)
}

func testSession(t *testing.T, cfg Config) (*Session, *hid.FakeManager) {
	t.Helper()
	mgr := testManager(cfg)
	identity, err := ResolveIdentity(mgr, cfg)
	require.NoError(t, err)
	return NewSession(mgr, identity, cfg), mgr
}

func TestResolveIdentity(t *testing.T) {
	cfg := testConfig()
	mgr := testManager(cfg)

	identity, err := ResolveIdentity(mgr, cfg)
	require.NoError(t, err)
	assert.Equal(t, testControlPath, identity.ControlPath)
	assert.Equal(t, testEventPath, identity.EventPath)
	assert.Equal(t, cfg.VendorID, identity.VendorID)
	assert.Equal(t, cfg.ProductID, identity.ProductID)
}

func TestResolveIdentityMissingEndpoint(t *testing.T) {
	cfg := testConfig()
	mgr := hid.NewFakeManager(
		hid.Info{
			Path:      testControlPath,
			VendorID:  cfg.VendorID,
			ProductID: cfg.ProductID,
			UsagePage: cfg.UsagePage,
			Usage:     cfg.ControlUsage,
		},
		// Same VID/PID but a foreign usage page, e.g. the plain
		// keyboard interface. Must not be picked up.
		hid.Info{
			Path:      "fake/keyboard",
			VendorID:  cfg.VendorID,
			ProductID: cfg.ProductID,
			UsagePage: 0x0001,
			Usage:     cfg.EventUsage,
		},
	)

	_, err := ResolveIdentity(mgr, cfg)
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestAcquireExclusive(t *testing.T) {
	ctx := context.Background()
	s, _ := testSession(t, testConfig())

	h, err := s.Acquire(ctx, EndpointControl)
	require.NoError(t, err)
	assert.Equal(t, EndpointControl, s.Held())

	_, err = s.Acquire(ctx, EndpointEvent)
	assert.ErrorIs(t, err, ErrEndpointBusy)
	_, err = s.Acquire(ctx, EndpointControl)
	assert.ErrorIs(t, err, ErrEndpointBusy)

	require.NoError(t, h.Release())
	assert.Equal(t, EndpointNone, s.Held())

	h, err = s.Acquire(ctx, EndpointEvent)
	require.NoError(t, err)
	_, err = s.Acquire(ctx, EndpointControl)
	assert.ErrorIs(t, err, ErrEndpointBusy)
	require.NoError(t, h.Release())
}

func TestAcquireReleaseInterleaved(t *testing.T) {
	ctx := context.Background()
	s, _ := testSession(t, testConfig())

	endpoints := []Endpoint{
		EndpointControl, EndpointEvent, EndpointEvent,
		EndpointControl, EndpointEvent, EndpointControl,
	}
	for _, ep := range endpoints {
		h, err := s.Acquire(ctx, ep)
		require.NoError(t, err)

		for _, other := range []Endpoint{EndpointControl, EndpointEvent} {
			_, err := s.Acquire(ctx, other)
			assert.ErrorIs(t, err, ErrEndpointBusy)
		}

		require.NoError(t, h.Release())
		assert.Equal(t, EndpointNone, s.Held())
	}
}

func TestAcquireRetriesOpen(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	s, mgr := testSession(t, cfg)
	mgr.FailOpens(testControlPath, 2)

	h, err := s.Acquire(ctx, EndpointControl)
	require.NoError(t, err)
	defer h.Release()

	assert.Len(t, mgr.OpenCalls(), 3)
}

func TestAcquireRetryExhaustion(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	s, mgr := testSession(t, cfg)
	mgr.FailOpens(testControlPath, cfg.OpenRetries+1)

	_, err := s.Acquire(ctx, EndpointControl)
	assert.ErrorIs(t, err, ErrOpenFailed)
	assert.Len(t, mgr.OpenCalls(), cfg.OpenRetries)

	// Exhaustion must leave the session clean for a later attempt.
	assert.Equal(t, EndpointNone, s.Held())
	h, err := s.Acquire(ctx, EndpointControl)
	require.NoError(t, err)
	require.NoError(t, h.Release())
}

func TestReleaseIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := testSession(t, testConfig())

	h, err := s.Acquire(ctx, EndpointEvent)
	require.NoError(t, err)
	require.NoError(t, h.Release())
	require.NoError(t, h.Release())
	assert.Equal(t, EndpointNone, s.Held())
}

func TestHandleDelegatesIO(t *testing.T) {
	ctx := context.Background()
	s, mgr := testSession(t, testConfig())

	h, err := s.Acquire(ctx, EndpointEvent)
	require.NoError(t, err)
	defer h.Release()

	require.NoError(t, h.Write([]byte{0x04, 0xAA}))
	writes := mgr.Device(testEventPath).Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, []byte{0x04, 0xAA}, writes[0])

	mgr.Device(testEventPath).QueueRead([]byte{0x04, 0x01, 0x02})
	buf := make([]byte, 16)
	n, err := h.ReadTimeout(buf, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0x01, 0x02}, buf[:n])

	n, err = h.ReadTimeout(buf, time.Millisecond)
	require.NoError(t, err)
	assert.Zero(t, n)
}
