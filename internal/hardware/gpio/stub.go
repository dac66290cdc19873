//go:build !linux

package gpio

import "errors"

// RealRelay is not available on non-Linux platforms.
type RealRelay struct{}

// NewRealRelay returns an error on non-Linux platforms.
func NewRealRelay(chipName string, offset int, activeLow bool) (*RealRelay, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// On is not implemented on non-Linux platforms.
func (r *RealRelay) On() error { return errors.New("gpio: not supported") }

// Off is not implemented on non-Linux platforms.
func (r *RealRelay) Off() error { return errors.New("gpio: not supported") }

// Close is not implemented on non-Linux platforms.
func (r *RealRelay) Close() error { return nil }
