package k1pro

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seagrayinc/k1pro/internal/hid"
	"github.com/seagrayinc/k1pro/pkg/crt"
)

func buttonPressReport(controlID, state byte) []byte {
	b := make([]byte, crt.WriteSize)
	b[0] = crt.ReportID
	copy(b[1:], []byte{'A', 'C', 'K', 0x00, 0x00, 'O', 'K', 0x00, 0x00})
	b[10] = controlID
	b[11] = state
	return b
}

func testDeck(t *testing.T, cfg Config) (*Deck, *hid.FakeManager) {
	t.Helper()
	mgr := testManager(cfg)
	deck, err := connect(context.Background(), mgr, cfg)
	require.NoError(t, err)
	return deck, mgr
}

func TestConnectRunsHandshake(t *testing.T) {
	_, mgr := testDeck(t, testConfig())
	writes := mgr.Device(testControlPath).Writes()
	require.Len(t, writes, 8)
	assert.True(t, isCommand(writes[0], crt.DisplayOff()))
	assert.True(t, isCommand(writes[len(writes)-1], crt.Stop()))
}

func TestConnectDeviceMissing(t *testing.T) {
	cfg := testConfig()
	_, err := connect(context.Background(), hid.NewFakeManager(), cfg)
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestSetButtonImageFeedsKeepaliveCache(t *testing.T) {
	ctx := context.Background()
	deck, mgr := testDeck(t, testConfig())

	require.NoError(t, deck.SetButtonImage(ctx, 1, []byte{0x77}))

	// Direct upload happened (index 1 -> id 3)...
	assert.Equal(t, []byte{3}, imageHeaderIDs(mgr.Device(testControlPath).Writes()))
	// ...and the slot is cached for refreshes.
	deck.keepalive.mu.Lock()
	cached := deck.keepalive.images[1]
	deck.keepalive.mu.Unlock()
	assert.Equal(t, []byte{0x77}, cached)
}

// TestRunCooperativeLoop drives the full loop against the fake manager,
// which rejects any overlapping open of the two endpoints the way the
// real driver layer does. Event delivery, keepalive refreshes and
// heartbeats all have to share the one loop without tripping that.
func TestRunCooperativeLoop(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshPeriod = 5 * time.Millisecond
	cfg.HeartbeatPeriod = 30 * time.Millisecond
	deck, mgr := testDeck(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	require.NoError(t, deck.SetButtonImage(ctx, 0, []byte{0x10}))
	mgr.Device(testEventPath).QueueRead(buttonPressReport(0x05, 1))
	mgr.Device(testEventPath).QueueRead(buttonPressReport(0x05, 0))

	var mu sync.Mutex
	var events []crt.Event
	err := deck.Run(ctx, func(ev crt.Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 2)
	assert.Equal(t, crt.ButtonEvent{Button: 0, Pressed: true}, events[0])
	assert.Equal(t, crt.ButtonEvent{Button: 0, Pressed: false}, events[1])

	writes := mgr.Device(testControlPath).Writes()
	assert.GreaterOrEqual(t, len(imageHeaderIDs(writes)), 2, "expected keepalive refreshes beyond the initial upload")
	assert.GreaterOrEqual(t, countCommands(writes, crt.Heartbeat()), 1)

	assert.Equal(t, EndpointNone, deck.session.Held(), "loop must exit with the event endpoint released")
	assert.Equal(t, KeepaliveStopped, deck.keepalive.State())
}

func TestRunAppliesQueuedUploads(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshPeriod = time.Hour
	cfg.HeartbeatPeriod = time.Hour
	deck, mgr := testDeck(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	mgr.Device(testEventPath).QueueRead(buttonPressReport(0x51, 1)) // knob 1 clockwise

	err := deck.Run(ctx, func(ev crt.Event) {
		if _, ok := ev.(crt.KnobTurnEvent); ok {
			require.NoError(t, deck.QueueButtonImage(2, []byte{0x42}))
		}
	})
	require.NoError(t, err)

	// Index 2 -> id 1, uploaded from the loop's release window.
	assert.Equal(t, []byte{1}, imageHeaderIDs(mgr.Device(testControlPath).Writes()))

	deck.keepalive.mu.Lock()
	cached := deck.keepalive.images[2]
	deck.keepalive.mu.Unlock()
	assert.Equal(t, []byte{0x42}, cached)
}

func TestQueueButtonImageInvalidIndex(t *testing.T) {
	deck, _ := testDeck(t, testConfig())
	assert.ErrorIs(t, deck.QueueButtonImage(9, []byte{1}), crt.ErrEncoding)
}
