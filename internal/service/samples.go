package service

import (
	"context"
	"strings"

	"reflow_oven/internal/models"
	"reflow_oven/internal/repository"
)

// RunSamples is the chart recorded for one run.
type RunSamples struct {
	RunID   string             `json:"run_id"`
	Count   int                `json:"count"`
	Samples []models.RunSample `json:"samples"`
}

type SamplesService struct {
	sampleRepo repository.SampleRepo
}

func NewSamplesService(sampleRepo repository.SampleRepo) *SamplesService {
	return &SamplesService{sampleRepo: sampleRepo}
}

// ListByRun returns the chart of runID, or of the most recent run when runID
// is empty. With no recorded runs the result is empty.
func (s *SamplesService) ListByRun(ctx context.Context, runID string) (RunSamples, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		latest, err := s.sampleRepo.LatestRunID(ctx)
		if err != nil {
			return RunSamples{}, err
		}
		if latest == "" {
			return RunSamples{Samples: []models.RunSample{}}, nil
		}
		runID = latest
	}
	samples, err := s.sampleRepo.ListByRun(ctx, runID)
	if err != nil {
		return RunSamples{}, err
	}
	if samples == nil {
		samples = []models.RunSample{}
	}
	return RunSamples{RunID: runID, Count: len(samples), Samples: samples}, nil
}
