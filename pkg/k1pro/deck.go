// Package k1pro drives the vsdinside k1-pro deck: six image-backed
// buttons and three rotary knobs behind the CRT report protocol
// implemented in pkg/crt.
package k1pro

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/seagrayinc/k1pro/internal/hid"
	"github.com/seagrayinc/k1pro/pkg/crt"
)

// Deck is the top-level handle on one connected k1-pro.
type Deck struct {
	cfg        Config
	session    *Session
	controller *Controller
	keepalive  *Keepalive

	pendingMu sync.Mutex
	pending   map[int][]byte
}

// Connect resolves the device, runs the initialization handshake and
// returns a ready Deck.
func Connect(ctx context.Context, cfg Config) (*Deck, error) {
	mgr, err := hid.NewManager()
	if err != nil {
		return nil, fmt.Errorf("hid manager: %w", err)
	}
	return connect(ctx, mgr, cfg)
}

func connect(ctx context.Context, mgr hid.Manager, cfg Config) (*Deck, error) {
	identity, err := ResolveIdentity(mgr, cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("k1-pro found",
		slog.String("control", identity.ControlPath),
		slog.String("event", identity.EventPath))

	session := NewSession(mgr, identity, cfg)
	controller := NewController(session, cfg)
	if err := controller.Initialize(ctx); err != nil {
		return nil, err
	}

	return &Deck{
		cfg:        cfg,
		session:    session,
		controller: controller,
		keepalive:  NewKeepalive(controller, cfg),
	}, nil
}

// SetButtonImage uploads an encoded image to a button and registers it
// with the keepalive cache so refreshes keep it on screen. It must not
// be called from inside a Run event handler; use QueueButtonImage
// there.
func (d *Deck) SetButtonImage(ctx context.Context, index int, img []byte) error {
	if err := d.controller.UpdateButton(ctx, index, img); err != nil {
		return err
	}
	return d.keepalive.SetImage(index, img)
}

// QueueButtonImage schedules an image upload from inside an event
// handler. Uploads need the control endpoint, which cannot be opened
// while the loop holds the event endpoint; the loop applies queued
// updates in its next release window.
func (d *Deck) QueueButtonImage(index int, img []byte) error {
	if _, err := crt.ButtonID(index); err != nil {
		return err
	}
	cp := append([]byte(nil), img...)
	d.pendingMu.Lock()
	if d.pending == nil {
		d.pending = make(map[int][]byte)
	}
	d.pending[index] = cp
	d.pendingMu.Unlock()
	return nil
}

func (d *Deck) takePending() map[int][]byte {
	d.pendingMu.Lock()
	p := d.pending
	d.pending = nil
	d.pendingMu.Unlock()
	return p
}

// Run owns the cooperative device loop: it polls the event endpoint
// with a bounded timeout and, whenever control traffic is pending
// (queued uploads or a due keepalive tick), releases the event handle,
// performs that traffic, and reopens the event handle. The
// close -> open -> send -> close -> reopen sequence is strict; nothing
// else interleaves with it. Run returns when ctx is done, with the
// event endpoint released.
func (d *Deck) Run(ctx context.Context, fn func(crt.Event)) error {
	d.keepalive.Start()
	defer d.keepalive.Stop()

	h, err := d.session.Acquire(ctx, EndpointEvent)
	if err != nil {
		return err
	}
	defer func() {
		if h != nil {
			_ = h.Release()
		}
	}()

	for ctx.Err() == nil {
		ev, err := d.controller.PollEvents(h, d.cfg.PollTimeout)
		if err != nil {
			// Benign on a non-blocking descriptor; the next poll
			// usually succeeds.
			slog.Warn("event read failed", slog.Any("error", err))
		}
		if ev != nil && fn != nil {
			fn(ev)
		}

		pending := d.takePending()
		if len(pending) == 0 && !d.keepalive.Due() {
			continue
		}

		if err := h.Release(); err != nil {
			slog.Warn("event release failed", slog.Any("error", err))
		}

		for index := 0; index < crt.NumButtons; index++ {
			img, ok := pending[index]
			if !ok {
				continue
			}
			if err := d.SetButtonImage(ctx, index, img); err != nil {
				slog.Warn("queued image upload failed",
					slog.Int("button", index),
					slog.Any("error", err))
			}
		}
		if err := d.keepalive.Tick(ctx); err != nil {
			slog.Warn("keepalive tick failed", slog.Any("error", err))
		}

		h, err = d.session.Acquire(ctx, EndpointEvent)
		if err != nil {
			return err
		}
	}
	return nil
}

// Close stops the keepalive scheduler. Any event handle held by a
// running loop is released by the loop itself on exit.
func (d *Deck) Close() error {
	d.keepalive.Stop()
	return nil
}
