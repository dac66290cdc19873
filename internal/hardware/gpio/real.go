//go:build linux

package gpio

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// RealRelay drives one output line. The line is requested low (relay off).
type RealRelay struct {
	mu     sync.Mutex
	chip   *gpiocdev.Chip
	line   *gpiocdev.Line
	closed bool
}

// NewRealRelay requests offset on chipName as an output. activeLow inverts the
// line for relay boards that energise on a low level.
func NewRealRelay(chipName string, offset int, activeLow bool) (*RealRelay, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0), gpiocdev.WithConsumer("reflow-oven")}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	line, err := chip.RequestLine(offset, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request heater line %d: %w", offset, err)
	}

	return &RealRelay{chip: chip, line: line}, nil
}

// On energises the relay.
func (r *RealRelay) On() error { return r.set(1) }

// Off releases the relay.
func (r *RealRelay) Off() error { return r.set(0) }

func (r *RealRelay) set(v int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if err := r.line.SetValue(v); err != nil {
		return fmt.Errorf("set heater line: %w", err)
	}
	return nil
}

// Close drives the line off and releases it. The heater must never be left
// energised by a process exit.
func (r *RealRelay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	if err := r.line.SetValue(0); err != nil {
		errs = append(errs, fmt.Errorf("drive heater line off: %w", err))
	}
	if err := r.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close heater line: %w", err))
	}
	if err := r.chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
