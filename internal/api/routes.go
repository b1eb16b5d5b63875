package api

import (
	"net/http"

	"github.com/RMahshie/rfscope/internal/api/handlers"
	"github.com/RMahshie/rfscope/internal/transport"
	"github.com/danielgtaylor/huma/v2"
)

// Handlers groups the handlers served by the API
type Handlers struct {
	Plans    *handlers.PlanHandler
	Captures *handlers.CaptureHandler
	Spectra  *handlers.SpectrumHandler
}

// RegisterRoutes sets up all API routes
func RegisterRoutes(api huma.API, h Handlers) {
	// Planning routes
	huma.Register(api, huma.Operation{
		OperationID: "planCapture",
		Method:      http.MethodPost,
		Path:        "/api/plans/capture",
		Summary:     "Plan a capture",
		Description: "Returns the sample and time budget needed to reach a target RBW over a bandwidth",
		Tags:        []string{"Planning"},
	}, h.Plans.PlanCapture)

	huma.Register(api, huma.Operation{
		OperationID: "planWelch",
		Method:      http.MethodPost,
		Path:        "/api/plans/welch",
		Summary:     "Plan Welch parameters",
		Description: "Returns window, segment length, overlap and FFT size for a target RBW",
		Tags:        []string{"Planning"},
	}, h.Plans.PlanWelch)

	huma.Register(api, huma.Operation{
		OperationID: "fftSize",
		Method:      http.MethodGet,
		Path:        "/api/fft-size",
		Summary:     "Choose an FFT size",
		Description: "Returns the smallest FFT length the named planner accepts for n_min",
		Tags:        []string{"Planning"},
	}, h.Plans.FFTSize)

	// Capture routes
	huma.Register(api, huma.Operation{
		OperationID: "createCapture",
		Method:      http.MethodPost,
		Path:        "/api/captures",
		Summary:     "Create a new capture",
		Description: "Registers an IQ capture and returns an upload URL",
		Tags:        []string{"Captures"},
	}, h.Captures.CreateCapture)

	huma.Register(api, huma.Operation{
		OperationID: "getCaptureStatus",
		Method:      http.MethodGet,
		Path:        "/api/captures/{id}/status",
		Summary:     "Get capture status",
		Description: "Returns the current status and progress of a capture",
		Tags:        []string{"Captures"},
	}, h.Captures.GetCaptureStatus)

	huma.Register(api, huma.Operation{
		OperationID: "startProcessing",
		Method:      http.MethodPost,
		Path:        "/api/captures/{id}/process",
		Summary:     "Start processing a capture",
		Description: "Starts Welch estimation of an uploaded capture",
		Tags:        []string{"Captures"},
	}, h.Captures.StartProcessing)

	huma.Register(api, huma.Operation{
		OperationID: "getSpectrum",
		Method:      http.MethodGet,
		Path:        "/api/captures/{id}/spectrum",
		Summary:     "Get capture spectrum",
		Description: "Returns the encoded spectrum of a completed capture, optionally limited to a band",
		Tags:        []string{"Captures"},
	}, h.Captures.GetSpectrum)

	// Signed ingest
	huma.Register(api, huma.Operation{
		OperationID: "ingestSpectrum",
		Method:      http.MethodPost,
		Path:        transport.SpectraPath,
		Summary:     "Ingest a signed spectrum",
		Description: "Stores a zlib+npy spectrum envelope signed with an authorized Ed25519 key",
		Tags:        []string{"Spectra"},
	}, h.Spectra.IngestSpectrum)
}
