package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/RMahshie/rfscope/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hannPlanRequest() *models.PlanRequest {
	return &models.PlanRequest{Body: models.PlanRequestBody{
		RBWHz:   1000,
		FsHz:    2e6,
		BWHz:    20e6,
		Window:  "hann",
		Overlap: 0.5,
		K:       8,
	}}
}

func TestPlanCapture(t *testing.T) {
	h := NewPlanHandler("")

	resp, err := h.PlanCapture(context.Background(), hannPlanRequest())
	require.NoError(t, err)

	b := resp.Body
	assert.Equal(t, 2e6, b.SampleRate)
	assert.Equal(t, 3000, b.NFFT)
	assert.Equal(t, 1500, b.NOverlap)
	assert.Equal(t, 10, b.Chunks)
	assert.Equal(t, 13500, b.SamplesPerChunk)
	assert.Equal(t, 135000, b.Samples)
	assert.InDelta(t, 1000.0, b.RBWEff, 1e-9)
	assert.InDelta(t, 0.0675, b.Time, 1e-12)
}

func TestPlanCapture_UsesConfiguredPlanner(t *testing.T) {
	resp, err := NewPlanHandler("next_pow2").PlanCapture(context.Background(), hannPlanRequest())
	require.NoError(t, err)
	assert.Equal(t, 4096, resp.Body.NFFT)

	req := hannPlanRequest()
	req.Body.SizePlanner = "next_5smooth"
	resp, err = NewPlanHandler("next_pow2").PlanCapture(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 3000, resp.Body.NFFT)
}

func TestPlanWelch(t *testing.T) {
	resp, err := NewPlanHandler("").PlanWelch(context.Background(), hannPlanRequest())
	require.NoError(t, err)
	assert.Equal(t, models.WelchParamsBody{
		Window:   "hann",
		NPerSeg:  3000,
		NOverlap: 1500,
		NFFT:     3000,
		Scaling:  "density",
		Average:  "mean",
	}, resp.Body)
}

func TestPlan_InvalidRequests(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *models.PlanRequestBody)
	}{
		{"unknown window", func(b *models.PlanRequestBody) { b.Window = "kaiser" }},
		{"overlap of one", func(b *models.PlanRequestBody) { b.Overlap = 1 }},
		{"zero segments", func(b *models.PlanRequestBody) { b.K = 0 }},
		{"negative rbw", func(b *models.PlanRequestBody) { b.RBWHz = -1 }},
		{"unknown planner", func(b *models.PlanRequestBody) { b.SizePlanner = "next_prime" }},
	}

	h := NewPlanHandler("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := hannPlanRequest()
			tt.mutate(&req.Body)

			_, err := h.PlanCapture(context.Background(), req)
			assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

			_, err = h.PlanWelch(context.Background(), req)
			assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
		})
	}
}

func TestFFTSize(t *testing.T) {
	h := NewPlanHandler("")

	resp, err := h.FFTSize(context.Background(), &models.FFTSizeRequest{NMin: 1000, Planner: "next_pow2"})
	require.NoError(t, err)
	assert.Equal(t, 1024, resp.Body.N)
	assert.Equal(t, "next_pow2", resp.Body.Planner)

	resp, err = h.FFTSize(context.Background(), &models.FFTSizeRequest{NMin: 4097})
	require.NoError(t, err)
	assert.Equal(t, 4320, resp.Body.N)
	assert.Equal(t, "next_5smooth", resp.Body.Planner)

	_, err = h.FFTSize(context.Background(), &models.FFTSizeRequest{NMin: 0})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = h.FFTSize(context.Background(), &models.FFTSizeRequest{NMin: 10, Planner: "fastest"})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}
