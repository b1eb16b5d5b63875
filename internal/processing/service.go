package processing

import (
	"context"
	"errors"
	"fmt"

	"github.com/RMahshie/rfscope/internal/analysis"
	"github.com/RMahshie/rfscope/internal/repository"
	"github.com/RMahshie/rfscope/internal/storage"
	"github.com/RMahshie/rfscope/internal/welch"
	"github.com/RMahshie/rfscope/pkg/codec"
	"github.com/RMahshie/rfscope/pkg/iqfile"
	"github.com/RMahshie/rfscope/pkg/models"
	"github.com/RMahshie/rfscope/pkg/planning"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type ProcessingService interface {
	ProcessCapture(ctx context.Context, captureID uuid.UUID) error
}

type processingService struct {
	store     storage.ObjectStore
	repo      repository.CaptureRepository
	analyzer  analysis.Analyzer
	codecOpts []codec.Option
}

// Option configures the processing service
type Option func(*processingService)

// WithAnalyzer sets the analytics used to annotate spectra. Defaults to
// analysis.Unavailable.
func WithAnalyzer(a analysis.Analyzer) Option {
	return func(s *processingService) { s.analyzer = a }
}

// WithCodecOptions sets the options used when encoding spectra
func WithCodecOptions(opts ...codec.Option) Option {
	return func(s *processingService) { s.codecOpts = opts }
}

func NewProcessingService(store storage.ObjectStore, repo repository.CaptureRepository, opts ...Option) ProcessingService {
	s := &processingService{
		store:    store,
		repo:     repo,
		analyzer: analysis.Unavailable{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessCapture turns an uploaded IQ capture into a stored spectrum.
// Failures after the capture is loaded are recorded on the capture with
// UpdateError before being returned.
func (s *processingService) ProcessCapture(ctx context.Context, captureID uuid.UUID) error {
	if err := s.repo.UpdateStatus(ctx, captureID, models.StatusProcessing, 10); err != nil {
		return err
	}

	capture, err := s.repo.GetByID(ctx, captureID)
	if err != nil {
		return err
	}

	sf, err := s.estimate(ctx, captureID, capture)
	if err != nil {
		return s.fail(ctx, captureID, err)
	}

	if err := s.repo.UpdateStatus(ctx, captureID, models.StatusProcessing, 80); err != nil {
		return err
	}
	encoded, err := codec.Encode(sf, s.codecOpts...)
	if err != nil {
		return s.fail(ctx, captureID, fmt.Errorf("failed to encode spectrum: %w", err))
	}

	key := storage.SpectrumKey(capture.ID)
	if err := s.store.UploadFile(ctx, key, []byte(encoded), storage.ContentTypeSpectrum); err != nil {
		return s.fail(ctx, captureID, err)
	}

	rec := models.NewSpectrumRecord(uuid.New().String(), key, sf)
	rec.CaptureID = &capture.ID
	if err := s.repo.StoreSpectrum(ctx, rec); err != nil {
		return s.fail(ctx, captureID, err)
	}

	if err := s.repo.UpdateStatus(ctx, captureID, models.StatusCompleted, 100); err != nil {
		return err
	}

	log.Info().
		Str("captureID", capture.ID).
		Str("spectrumID", rec.ID).
		Int("bins", sf.NBins()).
		Int("averages", sf.Averages()).
		Msg("Capture processed")
	return nil
}

func (s *processingService) estimate(ctx context.Context, captureID uuid.UUID, capture *models.Capture) (*models.SpectrumFrame, error) {
	if capture.IQKey == nil {
		return nil, errors.New("capture has no IQ object")
	}

	params, err := planning.PlanWelch(planning.Request{
		RBWHz:       capture.RBWHz,
		FsHz:        capture.FsHz,
		BWHz:        capture.FsHz,
		Window:      capture.Window,
		Overlap:     capture.Overlap,
		Segments:    capture.Segments,
		SizePlanner: capture.SizePlanner,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, captureID, models.StatusProcessing, 20); err != nil {
		return nil, err
	}
	data, err := s.store.DownloadFile(ctx, *capture.IQKey)
	if err != nil {
		return nil, err
	}

	opts := []models.IQOption{
		models.WithImpedance(capture.ImpedanceOhm),
		models.WithIQMetadata(map[string]any{"capture_id": capture.ID}),
	}
	if capture.GainDB != nil {
		opts = append(opts, models.WithGain(*capture.GainDB))
	}
	iq, err := iqfile.NewFrame(data, max(1, capture.Blocks), capture.FsHz, capture.CenterFreqHz, opts...)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, captureID, models.StatusProcessing, 50); err != nil {
		return nil, err
	}
	sf, err := welch.Estimate(iq, params)
	if err != nil {
		return nil, err
	}
	return s.annotate(sf), nil
}

// annotate attaches a noise floor estimate when the analyzer provides one.
func (s *processingService) annotate(sf *models.SpectrumFrame) *models.SpectrumFrame {
	nf, err := s.analyzer.EstimateNoiseFloor(sf)
	if errors.Is(err, analysis.ErrNotImplemented) {
		return sf
	}
	if err != nil {
		log.Warn().Err(err).Msg("Noise floor estimation failed")
		return sf
	}

	opts := []models.SpectrumOption{
		models.WithAverages(sf.Averages()),
		models.WithMetadata(sf.Metadata()),
		models.WithNoiseFloor(nf),
	}
	if w, ok := sf.Window(); ok {
		opts = append(opts, models.WithWindow(w))
	}
	if v, ok := sf.VBWHz(); ok {
		opts = append(opts, models.WithVBW(v))
	}
	annotated, err := models.NewSpectrumFrame(sf.PSDdBmPerHz(), sf.RBWHz(), sf.FStartHz(), opts...)
	if err != nil {
		log.Warn().Err(err).Msg("Discarding noise floor estimate")
		return sf
	}
	return annotated
}

func (s *processingService) fail(ctx context.Context, captureID uuid.UUID, cause error) error {
	if err := s.repo.UpdateError(ctx, captureID, cause.Error()); err != nil {
		log.Error().Err(err).Str("captureID", captureID.String()).Msg("Failed to record processing error")
	}
	return fmt.Errorf("processing capture %s: %w", captureID, cause)
}
