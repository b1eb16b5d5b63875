package handlers

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/RMahshie/rfscope/internal/processing"
	"github.com/RMahshie/rfscope/internal/repository"
	"github.com/RMahshie/rfscope/internal/storage"
	"github.com/RMahshie/rfscope/pkg/codec"
	"github.com/RMahshie/rfscope/pkg/iqfile"
	"github.com/RMahshie/rfscope/pkg/models"
	"github.com/RMahshie/rfscope/pkg/planning"
	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// MaxCaptureSize caps a single IQ upload (64 Msamples of cf32).
	MaxCaptureSize = 512 << 20

	defaultImpedanceOhm = 50.0
	uploadExpiry        = 15 * time.Minute
)

// CaptureHandler handles capture-related HTTP requests
type CaptureHandler struct {
	repo           repository.CaptureRepository
	store          storage.ObjectStore
	processingSvc  processing.ProcessingService
	defaultPlanner string
	codecOpts      []codec.Option
}

// NewCaptureHandler creates a new capture handler. codecOpts are used when
// a band-limited spectrum has to be re-encoded.
func NewCaptureHandler(repo repository.CaptureRepository, store storage.ObjectStore, processingSvc processing.ProcessingService, defaultPlanner string, codecOpts ...codec.Option) *CaptureHandler {
	if defaultPlanner == "" {
		defaultPlanner = planning.DefaultSizePlanner
	}
	return &CaptureHandler{
		repo:           repo,
		store:          store,
		processingSvc:  processingSvc,
		defaultPlanner: defaultPlanner,
		codecOpts:      codecOpts,
	}
}

// CreateCapture registers a capture and returns an upload URL for its IQ samples
func (h *CaptureHandler) CreateCapture(ctx context.Context, req *models.CreateCaptureRequest) (*models.CreateCaptureResponse, error) {
	body := req.Body
	log.Info().Int64("fileSize", body.FileSize).Float64("fsHz", body.FsHz).Msg("Creating new capture")

	if body.ImpedanceOhm == 0 {
		body.ImpedanceOhm = defaultImpedanceOhm
	}
	if body.Blocks == 0 {
		body.Blocks = 1
	}
	if body.SizePlanner == "" {
		body.SizePlanner = h.defaultPlanner
	}

	if err := validateCaptureBody(body); err != nil {
		return nil, apiError("Invalid capture request", err)
	}

	// The whole recording is one chunk: Welch runs over fs of bandwidth.
	params, err := planning.PlanWelch(planning.Request{
		RBWHz:       body.RBWHz,
		FsHz:        body.FsHz,
		BWHz:        body.FsHz,
		Window:      body.Window,
		Overlap:     body.Overlap,
		Segments:    body.K,
		SizePlanner: body.SizePlanner,
	})
	if err != nil {
		return nil, apiError("Invalid capture request", err)
	}

	perBlock := body.FileSize / iqfile.BytesPerSample / int64(body.Blocks)
	if perBlock < int64(params.NPerSeg) {
		return nil, huma.Error400BadRequest(
			fmt.Sprintf("Capture too short. Each block needs at least %d samples for rbw_hz=%g.", params.NPerSeg, body.RBWHz))
	}

	captureID := uuid.New()
	iqKey := storage.IQKey(captureID.String())

	uploadURL, err := h.store.GenerateUploadURL(ctx, iqKey, storage.ContentTypeIQ)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to prepare upload. Please try again.", err)
	}

	now := time.Now()
	capture := &models.Capture{
		ID:           captureID.String(),
		SessionID:    body.SessionID,
		Status:       models.StatusPending,
		Progress:     0,
		FsHz:         body.FsHz,
		CenterFreqHz: body.CenterFreqHz,
		ImpedanceOhm: body.ImpedanceOhm,
		GainDB:       body.GainDB,
		Blocks:       body.Blocks,
		RBWHz:        body.RBWHz,
		Window:       body.Window,
		Overlap:      body.Overlap,
		Segments:     body.K,
		SizePlanner:  body.SizePlanner,
		IQKey:        &iqKey,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.repo.Create(ctx, capture); err != nil {
		return nil, huma.Error500InternalServerError("Failed to create capture", err)
	}

	log.Info().Str("captureID", capture.ID).Int("nfft", params.NFFT).Msg("Capture created, returning upload URL")
	return &models.CreateCaptureResponse{
		Body: models.CreateCaptureResponseBody{
			ID:        capture.ID,
			UploadURL: uploadURL,
			ExpiresIn: int(uploadExpiry.Seconds()),
		},
	}, nil
}

func validateCaptureBody(b models.CreateCaptureRequestBody) error {
	for _, v := range []struct {
		name string
		val  float64
	}{{"fs_hz", b.FsHz}, {"center_freq_hz", b.CenterFreqHz}, {"impedance_ohm", b.ImpedanceOhm}} {
		if !(v.val > 0) || math.IsInf(v.val, 0) {
			return fmt.Errorf("%w: %s must be positive and finite, got %v", models.ErrInvalidArgument, v.name, v.val)
		}
	}
	if b.GainDB != nil && (math.IsNaN(*b.GainDB) || math.IsInf(*b.GainDB, 0)) {
		return fmt.Errorf("%w: gain_db must be finite", models.ErrInvalidArgument)
	}
	if b.Blocks < 1 {
		return fmt.Errorf("%w: blocks must be >= 1, got %d", models.ErrInvalidArgument, b.Blocks)
	}
	if b.FileSize <= 0 || b.FileSize > MaxCaptureSize {
		return fmt.Errorf("%w: file_size must be in (0, %d], got %d", models.ErrInvalidArgument, MaxCaptureSize, b.FileSize)
	}
	if b.FileSize%(iqfile.BytesPerSample*int64(b.Blocks)) != 0 {
		return fmt.Errorf("%w: file_size %d is not a whole number of cf32 samples across %d blocks",
			models.ErrInvalidArgument, b.FileSize, b.Blocks)
	}
	return nil
}

// GetCaptureStatus returns the current status of a capture
func (h *CaptureHandler) GetCaptureStatus(ctx context.Context, req *models.CaptureIDRequest) (*models.GetCaptureStatusResponse, error) {
	captureID, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid capture ID", err)
	}

	capture, err := h.repo.GetByID(ctx, captureID)
	if err != nil {
		return nil, apiError("Capture not found", err)
	}

	var spectrumID *string
	if capture.Status == models.StatusCompleted {
		rec, err := h.repo.GetSpectrumByCapture(ctx, captureID)
		if err == nil && rec != nil {
			spectrumID = &rec.ID
		}
	}

	message := statusMessage(capture.Status, capture.Progress)
	if capture.Status == models.StatusFailed && capture.ErrorMsg != nil {
		message = *capture.ErrorMsg
	}

	return &models.GetCaptureStatusResponse{
		Body: models.GetCaptureStatusResponseBody{
			ID:         capture.ID,
			Status:     capture.Status,
			Progress:   capture.Progress,
			Message:    message,
			SpectrumID: spectrumID,
		},
	}, nil
}

// StartProcessing starts processing an uploaded capture
func (h *CaptureHandler) StartProcessing(ctx context.Context, req *models.CaptureIDRequest) (*models.StartProcessingResponse, error) {
	captureID, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid capture ID", err)
	}

	capture, err := h.repo.GetByID(ctx, captureID)
	if err != nil {
		return nil, apiError("Capture not found", err)
	}
	switch capture.Status {
	case models.StatusProcessing, models.StatusCompleted:
		return nil, huma.Error409Conflict(fmt.Sprintf("Capture is already %s", capture.Status))
	}

	// Start processing in background (don't wait for completion)
	log.Info().Str("captureID", capture.ID).Msg("Starting background processing goroutine")
	go func() {
		if err := h.processingSvc.ProcessCapture(context.Background(), captureID); err != nil {
			log.Error().Err(err).Str("captureID", captureID.String()).Msg("Capture processing failed")
		}
	}()

	resp := &models.StartProcessingResponse{}
	resp.Body.Message = "Processing started successfully"
	return resp, nil
}

// GetSpectrum returns the encoded spectrum of a completed capture, optionally
// limited to [f_low_hz, f_high_hz].
func (h *CaptureHandler) GetSpectrum(ctx context.Context, req *models.GetSpectrumRequest) (*models.GetSpectrumResponse, error) {
	captureID, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid capture ID", err)
	}

	capture, err := h.repo.GetByID(ctx, captureID)
	if err != nil {
		return nil, apiError("Capture not found", err)
	}
	if capture.Status != models.StatusCompleted {
		return nil, huma.Error409Conflict("Capture not yet processed",
			fmt.Errorf("capture status is %s", capture.Status))
	}

	rec, err := h.repo.GetSpectrumByCapture(ctx, captureID)
	if err != nil {
		return nil, apiError("Spectrum not found", err)
	}
	data, err := h.store.DownloadFile(ctx, rec.ObjectKey)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load spectrum", err)
	}

	envelope := string(data)
	bandRequested := req.FLowHz != 0 || req.FHighHz != 0

	var sf *models.SpectrumFrame
	if bandRequested || req.IncludePoints {
		if sf, err = codec.Decode(envelope); err != nil {
			return nil, huma.Error500InternalServerError("Stored spectrum is unreadable", err)
		}
	}
	if bandRequested {
		low, high := req.FLowHz, req.FHighHz
		if low == 0 {
			low = sf.FStartHz()
		}
		if high == 0 {
			high = sf.FStopHz()
		}
		if sf, err = sf.SliceBand(low, high); err != nil {
			return nil, apiError("Invalid band", err)
		}
		if envelope, err = codec.Encode(sf, h.codecOpts...); err != nil {
			return nil, apiError("Failed to encode spectrum", err)
		}
	}

	body := models.GetSpectrumResponseBody{
		ID:        rec.ID,
		CaptureID: capture.ID,
		NBins:     rec.NBins,
		RBWHz:     rec.RBWHz,
		FStartHz:  rec.FStartHz,
		FStopHz:   rec.FStopHz,
		Envelope:  envelope,
	}
	if sf != nil {
		body.NBins = sf.NBins()
		body.FStartHz = sf.FStartHz()
		body.FStopHz = sf.FStopHz()
	}
	if req.IncludePoints {
		body.Points = models.SpectrumPoints(sf)
	}

	if u, err := h.store.GenerateDownloadURL(ctx, rec.ObjectKey); err != nil {
		log.Warn().Err(err).Str("captureID", capture.ID).Msg("Failed to presign spectrum download")
	} else {
		body.DownloadURL = u
	}

	return &models.GetSpectrumResponse{Body: body}, nil
}

// statusMessage creates a human-readable status message
func statusMessage(status string, progress int) string {
	switch status {
	case models.StatusPending:
		return "Waiting for IQ upload..."
	case models.StatusProcessing:
		switch {
		case progress < 20:
			return "Planning estimator..."
		case progress < 50:
			return "Loading IQ samples..."
		case progress < 80:
			return "Estimating power spectral density..."
		default:
			return "Encoding spectrum..."
		}
	case models.StatusCompleted:
		return "Spectrum ready"
	case models.StatusFailed:
		return "Processing failed"
	}
	return "Unknown status"
}
