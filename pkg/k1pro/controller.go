package k1pro

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/seagrayinc/k1pro/pkg/crt"
)

// Controller sequences command and image traffic on the control
// endpoint and decodes input reports from the event endpoint. Every
// control operation acquires the endpoint for its own duration and
// releases it on all exit paths.
type Controller struct {
	cfg     Config
	session *Session
}

func NewController(session *Session, cfg Config) *Controller {
	return &Controller{cfg: cfg, session: session}
}

type initStep struct {
	cmd   []byte
	delay time.Duration
}

// Initialize drives the device into its active display mode. The
// command order and delays mirror the vendor software's USB capture.
// A failure here is fatal to the session; the caller must reconnect
// from a clean closed state.
func (c *Controller) Initialize(ctx context.Context) error {
	steps := []initStep{
		{crt.DisplayOff(), c.cfg.InterCommandDelay},
		{crt.Wake(), c.cfg.InterCommandDelay},
		{crt.Light(), c.cfg.InterCommandDelay},
		{crt.QueryMode(), c.cfg.InterCommandDelay},
		{crt.CursorPosition('M'), c.cfg.SettleDelay},
		{crt.Light(), c.cfg.InterCommandDelay},
		{crt.Clear(), c.cfg.InterCommandDelay},
		{crt.Stop(), c.cfg.SettleDelay},
	}

	h, err := c.session.Acquire(ctx, EndpointControl)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	defer h.Release()

	for _, step := range steps {
		if err := c.writeCommand(h, step.cmd); err != nil {
			return fmt.Errorf("%w: %w", ErrInitialization, err)
		}
		if err := sleep(ctx, step.delay); err != nil {
			return fmt.Errorf("%w: %w", ErrInitialization, err)
		}
	}
	return nil
}

// UpdateButton uploads an encoded image to one button slot. The control
// endpoint is held for the whole packet sequence, so the event endpoint
// cannot be open for its duration.
func (c *Controller) UpdateButton(ctx context.Context, index int, img []byte) error {
	id, err := crt.ButtonID(index)
	if err != nil {
		return err
	}
	packets, err := crt.ImagePackets(id, img)
	if err != nil {
		return err
	}

	h, err := c.session.Acquire(ctx, EndpointControl)
	if err != nil {
		return err
	}
	defer h.Release()

	return c.sendPackets(ctx, h, packets)
}

// RefreshAll re-sends cached images in index order under a single
// control acquisition. Nil slots are skipped.
func (c *Controller) RefreshAll(ctx context.Context, images [][]byte) error {
	h, err := c.session.Acquire(ctx, EndpointControl)
	if err != nil {
		return err
	}
	defer h.Release()

	for index, img := range images {
		if img == nil {
			continue
		}
		id, err := crt.ButtonID(index)
		if err != nil {
			return err
		}
		packets, err := crt.ImagePackets(id, img)
		if err != nil {
			return err
		}
		if err := c.sendPackets(ctx, h, packets); err != nil {
			return err
		}
	}
	return nil
}

// Heartbeat sends the CONNECT command that keeps the device in its
// active display mode.
func (c *Controller) Heartbeat(ctx context.Context) error {
	h, err := c.session.Acquire(ctx, EndpointControl)
	if err != nil {
		return err
	}
	defer h.Release()
	return c.writeCommand(h, crt.Heartbeat())
}

// PollEvents reads one input report from an already-acquired event
// handle. Ownership of the handle stays with the caller's loop: it
// persists across many polls before being released for control
// traffic. No data within the timeout, or a report failing validation,
// yields (nil, nil): the event stream is expected to carry
// non-protocol noise.
func (c *Controller) PollEvents(h *Handle, timeout time.Duration) (crt.Event, error) {
	buf := make([]byte, crt.WriteSize)
	n, err := h.ReadTimeout(buf, timeout)
	if err != nil {
		return nil, fmt.Errorf("read input report: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	ev, ok := crt.DecodeReport(buf[:n])
	if !ok {
		slog.Debug("ignoring unrecognized report", slog.Int("len", n))
		return nil, nil
	}
	return ev, nil
}

func (c *Controller) writeCommand(h *Handle, cmd []byte) error {
	report, err := crt.Report(cmd)
	if err != nil {
		return err
	}
	return h.Write(report)
}

func (c *Controller) sendPackets(ctx context.Context, h *Handle, packets [][]byte) error {
	for _, p := range packets {
		if err := h.Write(p); err != nil {
			return fmt.Errorf("write image packet: %w", err)
		}
		// The device consumes roughly one packet per PacketDelay;
		// sending faster drops frames.
		if err := sleep(ctx, c.cfg.PacketDelay); err != nil {
			return err
		}
	}
	return nil
}
