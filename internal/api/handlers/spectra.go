package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/RMahshie/ramanspec/internal/synth"
	"github.com/RMahshie/ramanspec/pkg/models"
)

// SpectraHandler broadens lines posted in the request body
type SpectraHandler struct{}

// NewSpectraHandler creates a new spectra handler
func NewSpectraHandler() *SpectraHandler {
	return &SpectraHandler{}
}

// Synthesize returns the Lorentzian, Gaussian and blended spectra of the posted lines
func (h *SpectraHandler) Synthesize(ctx context.Context, req *models.SynthesizeRequest) (*models.SynthesizeResponse, error) {
	if len(req.Body.Lines) > models.MaxSynthesizeLines {
		return nil, huma.Error422UnprocessableEntity(fmt.Sprintf("At most %d lines per request", models.MaxSynthesizeLines))
	}
	table := models.LineTable{Lines: req.Body.Lines}
	set, err := synth.SynthesizeTable(synth.FromModel(req.Body.BroadeningParams), table)
	if errors.Is(err, synth.ErrInvalidBroadening) || errors.Is(err, synth.ErrDegenerateGrid) || errors.Is(err, synth.ErrGridTooLarge) {
		return nil, huma.Error422UnprocessableEntity(err.Error(), err)
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("Synthesis failed", err)
	}
	return &models.SynthesizeResponse{Body: *set}, nil
}
