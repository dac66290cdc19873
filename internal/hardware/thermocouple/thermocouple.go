// Package thermocouple reads chamber temperature from a thermocouple
// amplifier that streams one reading per line over a serial port.
package thermocouple

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate matches the amplifier firmware.
	DefaultBaudRate = 115200
	// DefaultMaxAge is how long a reading stays valid without a newer one.
	DefaultMaxAge = 2 * time.Second
)

var (
	ErrNoReading = errors.New("thermocouple: no reading yet")
	ErrStale     = errors.New("thermocouple: reading is stale")
	ErrProbe     = errors.New("thermocouple: probe fault")
)

// ParseLine decodes one line. Accepted forms are "183.25", "T:183.25" and
// "FAULT" or "FAULT:<code>" for an open or shorted probe.
func ParseLine(line string) (float64, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, errors.New("empty line")
	}
	upper := strings.ToUpper(line)
	if strings.HasPrefix(upper, "FAULT") {
		code := strings.TrimPrefix(strings.TrimPrefix(upper, "FAULT"), ":")
		if code == "" {
			return 0, ErrProbe
		}
		return 0, fmt.Errorf("%w: %s", ErrProbe, code)
	}
	if strings.HasPrefix(upper, "T:") {
		line = strings.TrimSpace(line[2:])
	}
	v, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, fmt.Errorf("parse reading %q: %w", line, err)
	}
	return v, nil
}

// SerialSensor keeps the latest reading from the port. It implements
// controller.TemperatureSensor without blocking the control loop.
type SerialSensor struct {
	port     string
	baudRate int
	maxAge   time.Duration
	now      func() time.Time

	mu       sync.RWMutex
	conn     serial.Port
	latest   float64
	readAt   time.Time
	probeErr error
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSerialSensor creates a sensor for port. Zero baudRate or maxAge use the
// defaults.
func NewSerialSensor(port string, baudRate int, maxAge time.Duration) *SerialSensor {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if maxAge == 0 {
		maxAge = DefaultMaxAge
	}
	return &SerialSensor{
		port:     port,
		baudRate: baudRate,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Open opens the port and starts reading until ctx ends or Close is called.
func (s *SerialSensor) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return fmt.Errorf("already open")
	}
	conn, err := serial.Open(s.port, &serial.Mode{BaudRate: s.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.port, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.conn = conn
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.consume(ctx, conn)
	}()
	go func() {
		// Unblocks the scanner when the context ends.
		<-ctx.Done()
		_ = conn.Close()
	}()
	return nil
}

// consume scans lines from r until EOF, a read error or ctx ends.
func (s *SerialSensor) consume(ctx context.Context, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		v, err := ParseLine(scanner.Text())
		switch {
		case err == nil:
			s.store(v, nil)
		case errors.Is(err, ErrProbe):
			s.store(0, err)
		default:
			// Garbled lines are skipped; staleness catches a dead stream.
		}
	}
}

func (s *SerialSensor) store(v float64, probeErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = v
	s.probeErr = probeErr
	s.readAt = s.now()
}

// ReadTemperature returns the latest reading in °C.
func (s *SerialSensor) ReadTemperature() (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.readAt.IsZero() {
		return 0, ErrNoReading
	}
	if s.probeErr != nil {
		return 0, s.probeErr
	}
	if age := s.now().Sub(s.readAt); age > s.maxAge {
		return s.latest, fmt.Errorf("%w (%s old)", ErrStale, age.Truncate(time.Millisecond))
	}
	return s.latest, nil
}

// Close stops the reader and closes the port.
func (s *SerialSensor) Close() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.conn = nil
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}
