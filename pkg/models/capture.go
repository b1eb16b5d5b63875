package models

import "time"

// Capture lifecycle states.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Capture is a registered IQ recording together with the Welch settings it
// is processed with.
type Capture struct {
	ID           string     `json:"id"`
	SessionID    string     `json:"session_id"`
	Status       string     `json:"status"`
	Progress     int        `json:"progress"`
	FsHz         float64    `json:"fs_hz"`
	CenterFreqHz float64    `json:"center_freq_hz"`
	ImpedanceOhm float64    `json:"impedance_ohm"`
	GainDB       *float64   `json:"gain_db,omitempty"`
	Blocks       int        `json:"blocks"` // equal-length blocks in the IQ object, 1 when flat
	RBWHz        float64    `json:"rbw_hz"`
	Window       string     `json:"window"`
	Overlap      float64    `json:"overlap"`
	Segments     int        `json:"k"`
	SizePlanner  string     `json:"size_planner"`
	IQKey        *string    `json:"iq_key,omitempty"`
	ErrorMsg     *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// SpectrumRecord indexes an encoded spectrum stored in object storage.
// CaptureID is nil for spectra ingested from signed clients.
type SpectrumRecord struct {
	ID                 string    `json:"id"`
	CaptureID          *string   `json:"capture_id,omitempty"`
	ObjectKey          string    `json:"object_key"`
	RBWHz              float64   `json:"rbw_hz"`
	FStartHz           float64   `json:"f_start_hz"`
	FStopHz            float64   `json:"f_stop_hz"`
	NBins              int       `json:"n_bins"`
	Averages           int       `json:"averages"`
	Window             *string   `json:"window,omitempty"`
	NoiseFloorDBmPerHz *float64  `json:"noise_floor_dbm_per_hz,omitempty"`
	SignerKeyID        *string   `json:"signer_key_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// NewSpectrumRecord summarises sf for the registry.
func NewSpectrumRecord(id, objectKey string, sf *SpectrumFrame) *SpectrumRecord {
	rec := &SpectrumRecord{
		ID:        id,
		ObjectKey: objectKey,
		RBWHz:     sf.RBWHz(),
		FStartHz:  sf.FStartHz(),
		FStopHz:   sf.FStopHz(),
		NBins:     sf.NBins(),
		Averages:  sf.Averages(),
		CreatedAt: time.Now(),
	}
	if w, ok := sf.Window(); ok {
		rec.Window = &w
	}
	if nf, ok := sf.NoiseFloorDBmPerHz(); ok {
		rec.NoiseFloorDBmPerHz = &nf
	}
	return rec
}
