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

// PostgresCaptureRepository implements CaptureRepository for PostgreSQL
type PostgresCaptureRepository struct {
	db *sql.DB
}

// NewPostgresCaptureRepository creates a new PostgreSQL capture repository
func NewPostgresCaptureRepository(db *sql.DB) repository.CaptureRepository {
	return &PostgresCaptureRepository{db: db}
}

const captureColumns = `id, session_id, status, progress, fs_hz, center_freq_hz, impedance_ohm, gain_db,
	blocks, rbw_hz, window_name, overlap, segments, size_planner, iq_key, error_message,
	created_at, updated_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// Create inserts a new capture record
func (r *PostgresCaptureRepository) Create(ctx context.Context, c *models.Capture) error {
	query := `
		INSERT INTO captures (id, session_id, status, progress, fs_hz, center_freq_hz, impedance_ohm, gain_db,
			blocks, rbw_hz, window_name, overlap, segments, size_planner, iq_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.SessionID,
		c.Status,
		c.Progress,
		c.FsHz,
		c.CenterFreqHz,
		c.ImpedanceOhm,
		c.GainDB,
		c.Blocks,
		c.RBWHz,
		c.Window,
		c.Overlap,
		c.Segments,
		c.SizePlanner,
		c.IQKey,
		c.CreatedAt,
		c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert capture: %w", err)
	}
	return nil
}

// GetByID retrieves a capture by ID
func (r *PostgresCaptureRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Capture, error) {
	query := `SELECT ` + captureColumns + ` FROM captures WHERE id = $1`
	return scanCapture(r.db.QueryRowContext(ctx, query, id))
}

// GetBySessionID retrieves captures by session ID, newest first
func (r *PostgresCaptureRepository) GetBySessionID(ctx context.Context, sessionID string) ([]*models.Capture, error) {
	query := `SELECT ` + captureColumns + ` FROM captures WHERE session_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var captures []*models.Capture
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, err
		}
		captures = append(captures, c)
	}
	return captures, rows.Err()
}

func scanCapture(row rowScanner) (*models.Capture, error) {
	var c models.Capture
	var gain sql.NullFloat64
	var iqKey, errorMsg sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&c.ID,
		&c.SessionID,
		&c.Status,
		&c.Progress,
		&c.FsHz,
		&c.CenterFreqHz,
		&c.ImpedanceOhm,
		&gain,
		&c.Blocks,
		&c.RBWHz,
		&c.Window,
		&c.Overlap,
		&c.Segments,
		&c.SizePlanner,
		&iqKey,
		&errorMsg,
		&c.CreatedAt,
		&c.UpdatedAt,
		&completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if gain.Valid {
		c.GainDB = &gain.Float64
	}
	if iqKey.Valid {
		c.IQKey = &iqKey.String
	}
	if errorMsg.Valid {
		c.ErrorMsg = &errorMsg.String
	}
	if completedAt.Valid {
		c.CompletedAt = &completedAt.Time
	}
	return &c, nil
}

// UpdateStatus updates the status and progress of a capture
func (r *PostgresCaptureRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error {
	query := `
		UPDATE captures
		SET status = $1, progress = $2, updated_at = NOW(),
		    completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END
		WHERE id = $3`

	return r.execOne(ctx, query, status, progress, id)
}

// UpdateError marks a capture as failed with a message
func (r *PostgresCaptureRepository) UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error {
	query := `
		UPDATE captures
		SET status = 'failed', error_message = $1, updated_at = NOW()
		WHERE id = $2`

	return r.execOne(ctx, query, errorMsg, id)
}

func (r *PostgresCaptureRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
