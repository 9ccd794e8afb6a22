package k1pro

import "errors"

var (
	// ErrDeviceNotFound means enumeration did not yield both endpoints
	// of a connected deck.
	ErrDeviceNotFound = errors.New("k1pro: device not found")

	// ErrOpenFailed means an endpoint path could not be opened after
	// retry exhaustion. Fatal to the current session.
	ErrOpenFailed = errors.New("k1pro: open failed")

	// ErrEndpointBusy means a caller tried to acquire an endpoint while
	// the session already holds one. This is a caller contract
	// violation and is never retried internally.
	ErrEndpointBusy = errors.New("k1pro: endpoint busy")

	// ErrInitialization wraps any failure during the fixed handshake.
	// No partial-init recovery is attempted; reconnect from a clean
	// closed state.
	ErrInitialization = errors.New("k1pro: initialization failed")
)
