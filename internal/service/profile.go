package service

import "reflow_oven/internal/controller"

// curveStepSeconds is the resolution of the interpolated curve.
const curveStepSeconds = 5

// CurvePoint is one sample of the interpolated target curve.
type CurvePoint struct {
	TimeSeconds int     `json:"time_s"`
	Temperature float64 `json:"temp_c"`
}

// ProfileView is the loaded profile as served to operators.
type ProfileView struct {
	Name            string                     `json:"name,omitempty"`
	Points          []controller.Point         `json:"points"`
	Stages          controller.StageBoundaries `json:"stages"`
	Chart           controller.ChartRange      `json:"chart"`
	DurationSeconds int                        `json:"duration_s"`
	Curve           []CurvePoint               `json:"curve"`
}

type ProfileService struct {
	view ProfileView
}

// NewProfileService precomputes the view; the profile is immutable.
func NewProfileService(p *controller.Profile, name string) *ProfileService {
	if p == nil {
		return &ProfileService{view: ProfileView{Name: name}}
	}
	return &ProfileService{view: ProfileView{
		Name:            name,
		Points:          p.Points(),
		Stages:          p.Stages(),
		Chart:           p.Chart(),
		DurationSeconds: p.DurationSeconds(),
		Curve:           sampleCurve(p, curveStepSeconds),
	}}
}

func (s *ProfileService) GetProfile() ProfileView {
	v := s.view
	v.Points = append([]controller.Point(nil), s.view.Points...)
	v.Curve = append([]CurvePoint(nil), s.view.Curve...)
	return v
}

// sampleCurve evaluates the profile from its first point to its last, always
// including the final point.
func sampleCurve(p *controller.Profile, step int) []CurvePoint {
	pts := p.Points()
	first, last := pts[0].TimeSeconds, pts[len(pts)-1].TimeSeconds
	var out []CurvePoint
	for t := first; t < last; t += step {
		out = append(out, CurvePoint{TimeSeconds: t, Temperature: p.TemperatureAt(t)})
	}
	return append(out, CurvePoint{TimeSeconds: last, Temperature: pts[len(pts)-1].Temperature})
}
