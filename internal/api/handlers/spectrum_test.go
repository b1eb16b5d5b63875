package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/RMahshie/rfscope/internal/transport"
	"github.com/RMahshie/rfscope/pkg/codec"
	"github.com/RMahshie/rfscope/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sensorEnvelope(t *testing.T) []byte {
	t.Helper()
	sf, err := models.NewSpectrumFrame([]float64{-160, -158, -131, -159}, 25, 433.9e6,
		models.WithMetadata(map[string]any{"sensor": "roof-2"}))
	require.NoError(t, err)
	env, err := codec.Encode(sf)
	require.NoError(t, err)
	return []byte(env)
}

func TestIngestSpectrum_Signed(t *testing.T) {
	repo := &MockCaptureRepository{}
	store := &MockObjectStore{}
	h := NewSpectrumHandler(repo, store, true)
	body := sensorEnvelope(t)

	var key string
	store.On("UploadFile", mock.Anything, mock.AnythingOfType("string"), body, "application/json").
		Run(func(args mock.Arguments) { key = args.String(1) }).
		Return(nil)

	var stored *models.SpectrumRecord
	repo.On("StoreSpectrum", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*models.SpectrumRecord) }).
		Return(nil)

	ctx := transport.ContextWithKeyID(context.Background(), "SHA256:abc")
	resp, err := h.IngestSpectrum(ctx, &models.IngestSpectrumRequest{RawBody: body})
	require.NoError(t, err)

	assert.Equal(t, "SHA256:abc", resp.Body.KeyID)
	assert.Equal(t, 4, resp.Body.NBins)
	assert.Equal(t, 25.0, resp.Body.RBWHz)
	assert.Equal(t, 433.9e6, resp.Body.FStartHz)
	assert.Equal(t, "spectra/"+resp.Body.ID+".json", key)

	require.NotNil(t, stored)
	assert.Equal(t, resp.Body.ID, stored.ID)
	assert.Equal(t, key, stored.ObjectKey)
	assert.Nil(t, stored.CaptureID)
	require.NotNil(t, stored.SignerKeyID)
	assert.Equal(t, "SHA256:abc", *stored.SignerKeyID)
}

func TestIngestSpectrum_Unsigned(t *testing.T) {
	repo := &MockCaptureRepository{}
	store := &MockObjectStore{}

	_, err := NewSpectrumHandler(repo, store, true).
		IngestSpectrum(context.Background(), &models.IngestSpectrumRequest{RawBody: sensorEnvelope(t)})
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	store.AssertNotCalled(t, "UploadFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	// Without signing configured the record simply carries no signer.
	store.On("UploadFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	repo.On("StoreSpectrum", mock.Anything, mock.MatchedBy(func(rec *models.SpectrumRecord) bool {
		return rec.SignerKeyID == nil
	})).Return(nil)

	resp, err := NewSpectrumHandler(repo, store, false).
		IngestSpectrum(context.Background(), &models.IngestSpectrumRequest{RawBody: sensorEnvelope(t)})
	require.NoError(t, err)
	assert.Empty(t, resp.Body.KeyID)
	repo.AssertExpectations(t)
}

func TestIngestSpectrum_BadEnvelope(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"not json", "hello", http.StatusUnprocessableEntity},
		{"wrong codec", `{"header":{"codec":"gzip+raw","version":1},"data":""}`, http.StatusUnprocessableEntity},
		{"empty", "", http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockObjectStore{}
			h := NewSpectrumHandler(&MockCaptureRepository{}, store, false)

			_, err := h.IngestSpectrum(context.Background(), &models.IngestSpectrumRequest{RawBody: []byte(tt.body)})
			assert.Equal(t, tt.wantCode, statusOf(t, err))
			store.AssertNotCalled(t, "UploadFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestIngestSpectrum_StorageFailure(t *testing.T) {
	store := &MockObjectStore{}
	store.On("UploadFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)
	repo := &MockCaptureRepository{}

	_, err := NewSpectrumHandler(repo, store, false).
		IngestSpectrum(context.Background(), &models.IngestSpectrumRequest{RawBody: sensorEnvelope(t)})
	assert.Equal(t, http.StatusInternalServerError, statusOf(t, err))
	repo.AssertNotCalled(t, "StoreSpectrum", mock.Anything, mock.Anything)
}
