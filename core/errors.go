package core

import "errors"

var (
	// ErrNoRoute reports that the routing table has no usable path to the
	// destination. Only locally originated sends surface it; transit
	// frames without a route are dropped silently.
	ErrNoRoute = errors.New("no route to destination")
	// ErrDeliveryFailed reports that every send attempt timed out
	// waiting for an acknowledgement.
	ErrDeliveryFailed = errors.New("delivery failed")
	// ErrInvalidPayload reports a payload the line codec cannot carry
	// (too large, or containing a newline). Rejected before anything
	// reaches the wire.
	ErrInvalidPayload = errors.New("payload cannot be framed")
)
