package gpio

import "sync"

// FakeRelay records relay commands for tests.
type FakeRelay struct {
	mu sync.Mutex

	on       bool
	switches int
	closed   bool

	// OnError and OffError, if set, are returned by On and Off.
	OnError  error
	OffError error
}

// NewFakeRelay returns a released relay.
func NewFakeRelay() *FakeRelay { return &FakeRelay{} }

func (f *FakeRelay) On() error { return f.set(true, f.OnError) }

func (f *FakeRelay) Off() error { return f.set(false, f.OffError) }

func (f *FakeRelay) set(on bool, injected error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if injected != nil {
		return injected
	}
	if f.on != on {
		f.switches++
	}
	f.on = on
	return nil
}

// Close releases the relay.
func (f *FakeRelay) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.on = false
	f.closed = true
	return nil
}

// IsOn reports the commanded state.
func (f *FakeRelay) IsOn() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on
}

// Switches counts state changes.
func (f *FakeRelay) Switches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.switches
}

// Closed reports whether Close was called.
func (f *FakeRelay) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
