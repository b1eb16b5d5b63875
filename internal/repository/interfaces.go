package repository

import (
	"context"
	"errors"

	"github.com/RMahshie/rfscope/pkg/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// CaptureRepository defines the interface for capture data operations
type CaptureRepository interface {
	Create(ctx context.Context, capture *models.Capture) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Capture, error)
	GetBySessionID(ctx context.Context, sessionID string) ([]*models.Capture, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error
	UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error
	SpectrumRepository
}

// SpectrumRepository defines the interface for spectrum index operations
type SpectrumRepository interface {
	StoreSpectrum(ctx context.Context, rec *models.SpectrumRecord) error
	GetSpectrum(ctx context.Context, id uuid.UUID) (*models.SpectrumRecord, error)
	GetSpectrumByCapture(ctx context.Context, captureID uuid.UUID) (*models.SpectrumRecord, error)
}
