// Package gpio drives the heater relay through the Linux GPIO character
// device. The fake allows testing without hardware.
package gpio

import "errors"

// Relay switches the heating element. On and Off are idempotent.
type Relay interface {
	On() error
	Off() error
	Close() error
}

// ErrClosed is returned after Close.
var ErrClosed = errors.New("gpio: relay closed")
