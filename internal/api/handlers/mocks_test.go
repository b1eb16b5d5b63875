package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/RMahshie/rfscope/internal/processing"
	"github.com/RMahshie/rfscope/internal/repository"
	"github.com/RMahshie/rfscope/internal/storage"
	"github.com/RMahshie/rfscope/pkg/models"
	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCaptureRepository implements repository.CaptureRepository for testing
type MockCaptureRepository struct {
	mock.Mock
}

func (m *MockCaptureRepository) Create(ctx context.Context, c *models.Capture) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCaptureRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Capture, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*models.Capture)
	return c, args.Error(1)
}

func (m *MockCaptureRepository) GetBySessionID(ctx context.Context, sessionID string) ([]*models.Capture, error) {
	args := m.Called(ctx, sessionID)
	c, _ := args.Get(0).([]*models.Capture)
	return c, args.Error(1)
}

func (m *MockCaptureRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error {
	args := m.Called(ctx, id, status, progress)
	return args.Error(0)
}

func (m *MockCaptureRepository) UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error {
	args := m.Called(ctx, id, errorMsg)
	return args.Error(0)
}

func (m *MockCaptureRepository) StoreSpectrum(ctx context.Context, rec *models.SpectrumRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockCaptureRepository) GetSpectrum(ctx context.Context, id uuid.UUID) (*models.SpectrumRecord, error) {
	args := m.Called(ctx, id)
	rec, _ := args.Get(0).(*models.SpectrumRecord)
	return rec, args.Error(1)
}

func (m *MockCaptureRepository) GetSpectrumByCapture(ctx context.Context, captureID uuid.UUID) (*models.SpectrumRecord, error) {
	args := m.Called(ctx, captureID)
	rec, _ := args.Get(0).(*models.SpectrumRecord)
	return rec, args.Error(1)
}

// MockObjectStore implements storage.ObjectStore for testing
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error) {
	args := m.Called(ctx, key, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) UploadFile(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

func (m *MockObjectStore) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockObjectStore) DeleteFile(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockProcessingService implements processing.ProcessingService for testing
type MockProcessingService struct {
	mock.Mock
}

func (m *MockProcessingService) ProcessCapture(ctx context.Context, captureID uuid.UUID) error {
	args := m.Called(ctx, captureID)
	return args.Error(0)
}

var (
	_ repository.CaptureRepository = (*MockCaptureRepository)(nil)
	_ storage.ObjectStore          = (*MockObjectStore)(nil)
	_ processing.ProcessingService = (*MockProcessingService)(nil)
)

// statusOf extracts the HTTP status carried by a huma error.
func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	require.True(t, errors.As(err, &se), "expected a huma status error, got %v", err)
	return se.GetStatus()
}
