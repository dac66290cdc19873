// Package profile reads reflow profiles from YAML files.
package profile

import (
	"fmt"
	"os"

	"reflow_oven/internal/controller"

	"gopkg.in/yaml.v3"
)

// File is a reflow profile as stored on disk. It implements
// controller.ProfileProvider.
type File struct {
	Name   string             `yaml:"name" json:"name"`
	Alloy  string             `yaml:"alloy,omitempty" json:"alloy,omitempty"`
	Points []controller.Point `yaml:"points" json:"points"`
	Stages stagesYAML         `yaml:"stages" json:"stages"`
	Chart  chartYAML          `yaml:"temp_range" json:"temp_range"`
}

type stagesYAML struct {
	Preheat *controller.Point `yaml:"preheat" json:"preheat"`
	Soak    *controller.Point `yaml:"soak" json:"soak"`
	Reflow  *controller.Point `yaml:"reflow" json:"reflow"`
	Cool    *controller.Point `yaml:"cool" json:"cool"`
}

type chartYAML struct {
	Low  float64 `yaml:"low" json:"low"`
	High float64 `yaml:"high" json:"high"`
}

// Load reads and parses a profile file. The result has every stage present;
// ordering is checked by controller.NewProfile.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile %q: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", path, err)
	}
	return f, nil
}

// Parse decodes profile YAML.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &controller.ProfileError{Reason: "parse yaml: " + err.Error()}
	}
	for name, s := range map[string]*controller.Point{
		"preheat": f.Stages.Preheat,
		"soak":    f.Stages.Soak,
		"reflow":  f.Stages.Reflow,
		"cool":    f.Stages.Cool,
	} {
		if s == nil {
			return nil, &controller.ProfileError{Reason: "missing stage " + name}
		}
	}
	return &f, nil
}

// ProfilePoints returns the profile vertices.
func (f *File) ProfilePoints() []controller.Point { return f.Points }

// StageBoundaries returns the stage begin points.
func (f *File) StageBoundaries() controller.StageBoundaries {
	return controller.StageBoundaries{
		Preheat: *f.Stages.Preheat,
		Soak:    *f.Stages.Soak,
		Reflow:  *f.Stages.Reflow,
		Cool:    *f.Stages.Cool,
	}
}

// ChartRange returns the chart bounds.
func (f *File) ChartRange() controller.ChartRange {
	return controller.ChartRange{Low: f.Chart.Low, High: f.Chart.High}
}
