package service

import (
	"context"
	"sync"
	"time"

	"reflow_oven/internal/models"
	"reflow_oven/internal/repository"

	"github.com/google/uuid"
)

// ----------- Simulation constants -----------
const (
	AmbientC         = 25.0  // ambient temperature °C
	MaxSafeC         = 300.0 // overheat threshold °C
	HeatRateCPerSec  = 2.2   // °C per second with the element on
	CoolCoeffPerSec  = 0.012 // Newtonian cooling towards ambient, 1/s
	ElementLagPerSec = 0.5   // fraction of the element's heat reaching the chamber per second
)

// PlantParams parameterises the simulated oven. Zero fields use the defaults.
type PlantParams struct {
	AmbientC      float64
	HeatRateCPerS float64
	CoolCoeffPerS float64
	InitialC      float64
}

func (p PlantParams) withDefaults() PlantParams {
	if p.AmbientC == 0 {
		p.AmbientC = AmbientC
	}
	if p.HeatRateCPerS == 0 {
		p.HeatRateCPerS = HeatRateCPerSec
	}
	if p.CoolCoeffPerS == 0 {
		p.CoolCoeffPerS = CoolCoeffPerSec
	}
	if p.InitialC == 0 {
		p.InitialC = p.AmbientC
	}
	return p
}

// SimulatorService is a thermal model of the oven. It is both the
// temperature sensor and the heater actuator when no hardware is present.
type SimulatorService struct {
	eventRepo repository.EventRepo
	params    PlantParams

	mu         sync.Mutex
	tempC      float64
	elementC   float64 // heat stored in the element, released with lag
	heaterOn   bool
	overheated bool
	last       time.Time
}

// NewSimulatorService returns a plant at its initial temperature.
func NewSimulatorService(eventRepo repository.EventRepo, params PlantParams) *SimulatorService {
	params = params.withDefaults()
	return &SimulatorService{
		eventRepo: eventRepo,
		params:    params,
		tempC:     params.InitialC,
	}
}

// ReadTemperature returns the chamber temperature.
func (s *SimulatorService) ReadTemperature() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tempC, nil
}

// On switches the element on.
func (s *SimulatorService) On() error {
	s.mu.Lock()
	s.heaterOn = true
	s.mu.Unlock()
	return nil
}

// Off switches the element off.
func (s *SimulatorService) Off() error {
	s.mu.Lock()
	s.heaterOn = false
	s.mu.Unlock()
	return nil
}

// Run ticks at the given interval until ctx is canceled.
func (s *SimulatorService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.mu.Lock()
			if s.last.IsZero() {
				s.last = now
				s.mu.Unlock()
				continue
			}
			elapsed := now.Sub(s.last).Seconds()
			s.last = now
			s.advance(elapsed)
			overheat := s.checkOverheat()
			temp := s.tempC
			s.mu.Unlock()

			if overheat {
				s.logOverheat(ctx, temp, now)
			}
		}
	}
}

// advance integrates the model over elapsed seconds. Caller holds s.mu.
func (s *SimulatorService) advance(elapsed float64) {
	if elapsed <= 0 {
		return
	}
	if s.heaterOn {
		s.elementC += s.params.HeatRateCPerS * elapsed
	}
	released := s.elementC * minFloat(ElementLagPerSec*elapsed, 1)
	s.elementC -= released
	s.tempC += released

	loss := s.params.CoolCoeffPerS * (s.tempC - s.params.AmbientC) * elapsed
	s.tempC = maxFloat(s.tempC-loss, s.params.AmbientC)
}

// checkOverheat reports a newly crossed overheat threshold. Caller holds s.mu.
func (s *SimulatorService) checkOverheat() bool {
	if s.tempC > MaxSafeC {
		if !s.overheated {
			s.overheated = true
			return true
		}
		return false
	}
	s.overheated = false
	return false
}

// logOverheat appends an error event for a plant hotter than MaxSafeC.
func (s *SimulatorService) logOverheat(ctx context.Context, temp float64, now time.Time) {
	if s.eventRepo == nil {
		return
	}
	_ = s.eventRepo.Append(ctx, models.OvenEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  now.UTC(),
		Type:        models.EventError,
		Description: "Overheat detected",
		Metadata: map[string]any{
			"temp_c":   temp,
			"max_safe": MaxSafeC,
		},
	})
}

// helpers
func maxFloat(a, b float64) float64 {
	if a >= b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a <= b {
		return a
	}
	return b
}
