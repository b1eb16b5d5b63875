package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/RMahshie/rfscope/internal/repository"
	"github.com/RMahshie/rfscope/pkg/models"
	"github.com/google/uuid"
)

const spectrumColumns = `id, capture_id, object_key, rbw_hz, f_start_hz, f_stop_hz, n_bins, averages,
	window_name, noise_floor_dbm_per_hz, signer_key_id, created_at`

// StoreSpectrum indexes an encoded spectrum
func (r *PostgresCaptureRepository) StoreSpectrum(ctx context.Context, rec *models.SpectrumRecord) error {
	query := `
		INSERT INTO spectra (` + spectrumColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.CaptureID,
		rec.ObjectKey,
		rec.RBWHz,
		rec.FStartHz,
		rec.FStopHz,
		rec.NBins,
		rec.Averages,
		rec.Window,
		rec.NoiseFloorDBmPerHz,
		rec.SignerKeyID,
		rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert spectrum: %w", err)
	}
	return nil
}

// GetSpectrum retrieves a spectrum record by ID
func (r *PostgresCaptureRepository) GetSpectrum(ctx context.Context, id uuid.UUID) (*models.SpectrumRecord, error) {
	query := `SELECT ` + spectrumColumns + ` FROM spectra WHERE id = $1`
	return scanSpectrum(r.db.QueryRowContext(ctx, query, id))
}

// GetSpectrumByCapture retrieves the latest spectrum computed for a capture
func (r *PostgresCaptureRepository) GetSpectrumByCapture(ctx context.Context, captureID uuid.UUID) (*models.SpectrumRecord, error) {
	query := `SELECT ` + spectrumColumns + ` FROM spectra WHERE capture_id = $1 ORDER BY created_at DESC LIMIT 1`
	return scanSpectrum(r.db.QueryRowContext(ctx, query, captureID))
}

func scanSpectrum(row rowScanner) (*models.SpectrumRecord, error) {
	var rec models.SpectrumRecord
	var captureID, window, keyID sql.NullString
	var noiseFloor sql.NullFloat64

	err := row.Scan(
		&rec.ID,
		&captureID,
		&rec.ObjectKey,
		&rec.RBWHz,
		&rec.FStartHz,
		&rec.FStopHz,
		&rec.NBins,
		&rec.Averages,
		&window,
		&noiseFloor,
		&keyID,
		&rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if captureID.Valid {
		rec.CaptureID = &captureID.String
	}
	if window.Valid {
		rec.Window = &window.String
	}
	if noiseFloor.Valid {
		rec.NoiseFloorDBmPerHz = &noiseFloor.Float64
	}
	if keyID.Valid {
		rec.SignerKeyID = &keyID.String
	}
	return &rec, nil
}
