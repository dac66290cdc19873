package thermocouple

import "sync"

// FakeSensor returns a settable reading.
type FakeSensor struct {
	mu   sync.Mutex
	temp float64
	err  error
}

// NewFakeSensor starts at temp.
func NewFakeSensor(temp float64) *FakeSensor { return &FakeSensor{temp: temp} }

// Set changes the reading and clears any injected error.
func (f *FakeSensor) Set(temp float64) {
	f.mu.Lock()
	f.temp, f.err = temp, nil
	f.mu.Unlock()
}

// Fail makes every read return err until Set is called.
func (f *FakeSensor) Fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *FakeSensor) ReadTemperature() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.temp, f.err
}
