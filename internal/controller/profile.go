package controller

import (
	"fmt"
	"math"
)

// Point is a single (seconds, °C) vertex of a reflow profile.
type Point struct {
	TimeSeconds int     `json:"time_s" yaml:"time_s"`
	Temperature float64 `json:"temp_c" yaml:"temp_c"`
}

// Boundary is the point at which a stage is expected to begin.
type Boundary = Point

// StageBoundaries holds the begin point of each heating stage.
type StageBoundaries struct {
	Preheat Boundary `json:"preheat"`
	Soak    Boundary `json:"soak"`
	Reflow  Boundary `json:"reflow"`
	Cool    Boundary `json:"cool"`
}

// ChartRange bounds the temperatures worth charting.
type ChartRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Profile is a validated, immutable reflow profile.
type Profile struct {
	points []Point
	stages StageBoundaries
	chart  ChartRange
}

// NewProfile validates and copies the given profile data.
func NewProfile(points []Point, stages StageBoundaries, chart ChartRange) (*Profile, error) {
	if len(points) < 2 {
		return nil, &ProfileError{Reason: fmt.Sprintf("need at least 2 points, got %d", len(points))}
	}
	for i, p := range points {
		if p.TimeSeconds < 0 {
			return nil, &ProfileError{Reason: fmt.Sprintf("point %d has negative time %d", i, p.TimeSeconds)}
		}
		if math.IsNaN(p.Temperature) || math.IsInf(p.Temperature, 0) {
			return nil, &ProfileError{Reason: fmt.Sprintf("point %d has non-finite temperature", i)}
		}
		if i > 0 && p.TimeSeconds <= points[i-1].TimeSeconds {
			return nil, &ProfileError{Reason: fmt.Sprintf("point %d time %d is not after %d", i, p.TimeSeconds, points[i-1].TimeSeconds)}
		}
	}

	ordered := []struct {
		name string
		b    Boundary
	}{
		{"preheat", stages.Preheat},
		{"soak", stages.Soak},
		{"reflow", stages.Reflow},
		{"cool", stages.Cool},
	}
	for i, s := range ordered {
		if s.b.TimeSeconds < 0 {
			return nil, &ProfileError{Reason: fmt.Sprintf("stage %s has negative time", s.name)}
		}
		if i > 0 && s.b.TimeSeconds <= ordered[i-1].b.TimeSeconds {
			return nil, &ProfileError{Reason: fmt.Sprintf("stage %s must begin after stage %s", s.name, ordered[i-1].name)}
		}
	}
	if chart.High < chart.Low {
		return nil, &ProfileError{Reason: fmt.Sprintf("chart range high %.1f below low %.1f", chart.High, chart.Low)}
	}

	cp := make([]Point, len(points))
	copy(cp, points)
	return &Profile{points: cp, stages: stages, chart: chart}, nil
}

// LoadProfile reads and validates a profile from its provider.
func LoadProfile(p ProfileProvider) (*Profile, error) {
	if p == nil {
		return nil, &ProfileError{Reason: "no profile provider"}
	}
	return NewProfile(p.ProfilePoints(), p.StageBoundaries(), p.ChartRange())
}

// TemperatureAt returns the profile temperature at the given second.
// The segment value is floored, so 30 s into (0,30)→(60,150) yields exactly 90.
// Before the first point and at or after the last one it returns 0.
func (p *Profile) TemperatureAt(seconds int) float64 {
	for i := 1; i < len(p.points); i++ {
		x1, y1 := p.points[i-1].TimeSeconds, p.points[i-1].Temperature
		x2, y2 := p.points[i].TimeSeconds, p.points[i].Temperature
		if x1 <= seconds && seconds < x2 {
			return y1 + math.Floor((y2-y1)*float64(seconds-x1)/float64(x2-x1))
		}
	}
	return 0
}

// Points returns a copy of the profile vertices.
func (p *Profile) Points() []Point {
	cp := make([]Point, len(p.points))
	copy(cp, p.points)
	return cp
}

// Stages returns the stage boundaries.
func (p *Profile) Stages() StageBoundaries { return p.stages }

// Chart returns the chart range.
func (p *Profile) Chart() ChartRange { return p.chart }

// DurationSeconds is the time span covered by the profile.
func (p *Profile) DurationSeconds() int {
	return p.points[len(p.points)-1].TimeSeconds - p.points[0].TimeSeconds
}
