package k1pro

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/seagrayinc/k1pro/pkg/crt"
)

// KeepaliveState tracks the scheduler lifecycle.
type KeepaliveState int

const (
	KeepaliveIdle KeepaliveState = iota
	KeepaliveRunning
	KeepaliveStopped
)

// Keepalive keeps the device in its active display mode: the deck drops
// back to its plain keyboard mode unless every button image is re-sent
// on a short period and a CONNECT heartbeat on a long one.
//
// The scheduler is deliberately passive. Ticks run on the caller's poll
// loop between event reads; a background goroutine driving the control
// endpoint races the event endpoint under the OS's single-open
// constraint and fails opens with busy errors.
type Keepalive struct {
	cfg        Config
	controller *Controller

	mu            sync.Mutex
	state         KeepaliveState
	images        [crt.NumButtons][]byte
	lastHeartbeat time.Time
	lastRefresh   time.Time

	now func() time.Time
}

func NewKeepalive(controller *Controller, cfg Config) *Keepalive {
	return &Keepalive{
		cfg:        cfg,
		controller: controller,
		state:      KeepaliveIdle,
		now:        time.Now,
	}
}

// Start arms both timers. The first heartbeat and refresh run one full
// period after Start, since the handshake and the initial uploads have
// just touched the device.
func (k *Keepalive) Start() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.state == KeepaliveRunning {
		return
	}
	k.state = KeepaliveRunning
	now := k.now()
	k.lastHeartbeat = now
	k.lastRefresh = now
}

// Stop prevents any further ticks from touching the device. A tick in
// flight always completes; stopping only suppresses the next one.
func (k *Keepalive) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.state == KeepaliveRunning {
		k.state = KeepaliveStopped
	}
}

func (k *Keepalive) State() KeepaliveState {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.state
}

// SetImage registers (or replaces) the cached bytes for one button
// slot. The swap is atomic with respect to ticks: a refresh sends
// either the old or the new image, never a mix.
func (k *Keepalive) SetImage(index int, img []byte) error {
	if index < 0 || index >= crt.NumButtons {
		return fmt.Errorf("%w: button index %d outside 0..%d", crt.ErrEncoding, index, crt.NumButtons-1)
	}
	cp := append([]byte(nil), img...)
	k.mu.Lock()
	k.images[index] = cp
	k.mu.Unlock()
	return nil
}

// Due reports whether the next Tick would touch the device.
func (k *Keepalive) Due() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.state != KeepaliveRunning {
		return false
	}
	now := k.now()
	if now.Sub(k.lastHeartbeat) >= k.cfg.HeartbeatPeriod {
		return true
	}
	return k.hasImages() && now.Sub(k.lastRefresh) >= k.cfg.RefreshPeriod
}

// Tick performs at most one keepalive action: the heartbeat when its
// period has elapsed, otherwise a full image refresh when due,
// otherwise nothing. Call it only while no event handle is held, since
// both actions acquire the control endpoint.
func (k *Keepalive) Tick(ctx context.Context) error {
	k.mu.Lock()
	if k.state != KeepaliveRunning {
		k.mu.Unlock()
		return nil
	}

	now := k.now()
	switch {
	case now.Sub(k.lastHeartbeat) >= k.cfg.HeartbeatPeriod:
		k.lastHeartbeat = now
		k.mu.Unlock()
		return k.controller.Heartbeat(ctx)

	case k.hasImages() && now.Sub(k.lastRefresh) >= k.cfg.RefreshPeriod:
		images := make([][]byte, crt.NumButtons)
		copy(images, k.images[:])
		k.lastRefresh = now
		k.mu.Unlock()
		return k.controller.RefreshAll(ctx, images)

	default:
		k.mu.Unlock()
		return nil
	}
}

// hasImages reports whether any slot is cached. Callers hold k.mu.
func (k *Keepalive) hasImages() bool {
	for _, img := range k.images {
		if img != nil {
			return true
		}
	}
	return false
}
