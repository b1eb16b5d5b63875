package handlers

import (
	"context"

	"github.com/RMahshie/rfscope/pkg/models"
	"github.com/RMahshie/rfscope/pkg/planning"
	"github.com/rs/zerolog/log"
)

// PlanHandler exposes the capture and Welch planners
type PlanHandler struct {
	defaultPlanner string
}

// NewPlanHandler creates a plan handler. Requests that name no size planner
// use defaultPlanner.
func NewPlanHandler(defaultPlanner string) *PlanHandler {
	if defaultPlanner == "" {
		defaultPlanner = planning.DefaultSizePlanner
	}
	return &PlanHandler{defaultPlanner: defaultPlanner}
}

func (h *PlanHandler) request(body models.PlanRequestBody) planning.Request {
	sp := body.SizePlanner
	if sp == "" {
		sp = h.defaultPlanner
	}
	return planning.Request{
		RBWHz:       body.RBWHz,
		FsHz:        body.FsHz,
		BWHz:        body.BWHz,
		Window:      body.Window,
		Overlap:     body.Overlap,
		Segments:    body.K,
		SizePlanner: sp,
	}
}

// PlanCapture returns the acquisition budget for a measurement
func (h *PlanHandler) PlanCapture(ctx context.Context, req *models.PlanRequest) (*models.PlanCaptureResponse, error) {
	p, err := planning.PlanCaptureDetailed(h.request(req.Body))
	if err != nil {
		return nil, apiError("Invalid capture plan request", err)
	}

	log.Debug().Int("nfft", p.NFFT).Int("chunks", p.Chunks).Int("samples", p.TotalSamples).Msg("Capture planned")
	return &models.PlanCaptureResponse{
		Body: models.CapturePlanBody{
			SampleRate:      p.SampleRate,
			Samples:         p.TotalSamples,
			RBWEff:          p.RBWEff,
			Time:            p.TotalTime,
			NFFT:            p.NFFT,
			NOverlap:        p.NOverlap,
			Chunks:          p.Chunks,
			SamplesPerChunk: p.SamplesPerChunk,
		},
	}, nil
}

// PlanWelch returns Welch estimator parameters for a measurement
func (h *PlanHandler) PlanWelch(ctx context.Context, req *models.PlanRequest) (*models.PlanWelchResponse, error) {
	p, err := planning.PlanWelch(h.request(req.Body))
	if err != nil {
		return nil, apiError("Invalid Welch plan request", err)
	}
	return &models.PlanWelchResponse{
		Body: models.WelchParamsBody{
			Window:   p.Window,
			NPerSeg:  p.NPerSeg,
			NOverlap: p.NOverlap,
			NFFT:     p.NFFT,
			Scaling:  p.Scaling,
			Average:  p.Average,
		},
	}, nil
}

// FFTSize runs a single size planner
func (h *PlanHandler) FFTSize(ctx context.Context, req *models.FFTSizeRequest) (*models.FFTSizeResponse, error) {
	name := req.Planner
	if name == "" {
		name = h.defaultPlanner
	}
	fn, err := planning.SizePlanner(name)
	if err != nil {
		return nil, apiError("Unknown size planner", err)
	}
	n, err := fn(req.NMin)
	if err != nil {
		return nil, apiError("Invalid n_min", err)
	}

	resp := &models.FFTSizeResponse{}
	resp.Body.Planner = name
	resp.Body.NMin = req.NMin
	resp.Body.N = n
	return resp, nil
}
