package handlers

import (
	"context"
	"errors"

	"github.com/RMahshie/rfscope/internal/repository"
	"github.com/RMahshie/rfscope/internal/storage"
	"github.com/RMahshie/rfscope/internal/transport"
	"github.com/RMahshie/rfscope/pkg/codec"
	"github.com/RMahshie/rfscope/pkg/models"
	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SpectrumHandler accepts spectra encoded and signed by remote sensors
type SpectrumHandler struct {
	repo             repository.SpectrumRepository
	store            storage.ObjectStore
	requireSignature bool
}

// NewSpectrumHandler creates a spectrum handler. With requireSignature set,
// requests that did not pass signature verification are rejected.
func NewSpectrumHandler(repo repository.SpectrumRepository, store storage.ObjectStore, requireSignature bool) *SpectrumHandler {
	return &SpectrumHandler{repo: repo, store: store, requireSignature: requireSignature}
}

// IngestSpectrum stores a codec envelope posted by a sensor
func (h *SpectrumHandler) IngestSpectrum(ctx context.Context, req *models.IngestSpectrumRequest) (*models.IngestSpectrumResponse, error) {
	keyID, signed := transport.KeyIDFromContext(ctx)
	if h.requireSignature && !signed {
		return nil, huma.Error401Unauthorized("Signed request required", errors.New("request carries no verified signature"))
	}

	sf, err := codec.Decode(string(req.RawBody))
	if err != nil {
		return nil, apiError("Invalid spectrum envelope", err)
	}

	id := uuid.New().String()
	key := storage.IngestKey(id)
	if err := h.store.UploadFile(ctx, key, req.RawBody, storage.ContentTypeSpectrum); err != nil {
		return nil, huma.Error500InternalServerError("Failed to store spectrum", err)
	}

	rec := models.NewSpectrumRecord(id, key, sf)
	if signed {
		rec.SignerKeyID = &keyID
	}
	if err := h.repo.StoreSpectrum(ctx, rec); err != nil {
		return nil, huma.Error500InternalServerError("Failed to record spectrum", err)
	}

	log.Info().Str("spectrumID", id).Str("keyID", keyID).Int("bins", sf.NBins()).Msg("Spectrum ingested")
	return &models.IngestSpectrumResponse{
		Body: models.IngestSpectrumResponseBody{
			ID:       id,
			KeyID:    keyID,
			NBins:    sf.NBins(),
			RBWHz:    sf.RBWHz(),
			FStartHz: sf.FStartHz(),
		},
	}, nil
}
