package models

import (
	"time"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Body struct {
		Status  string    `json:"status" example:"healthy" doc:"Service health status"`
		Version string    `json:"version" example:"1.0.0" doc:"API version"`
		Time    time.Time `json:"time" doc:"Current server time"`
	}
}

// PlanRequestBody carries the planner inputs. Range checks are left to the
// planner so that violations surface as 400 responses.
type PlanRequestBody struct {
	RBWHz       float64 `json:"rbw_hz" example:"1000" doc:"Target resolution bandwidth in Hz"`
	FsHz        float64 `json:"fs_hz" example:"2000000" doc:"Sample rate in Hz"`
	BWHz        float64 `json:"bw_hz" example:"20000000" doc:"Total bandwidth to cover in Hz"`
	Window      string  `json:"window" example:"hann" doc:"Window: rect, hann, hamming or blackman"`
	Overlap     float64 `json:"overlap" example:"0.5" doc:"Fractional segment overlap in [0, 1)"`
	K           int     `json:"k" example:"8" doc:"Welch segments averaged per chunk"`
	SizePlanner string  `json:"size_planner,omitempty" example:"next_5smooth" doc:"FFT size strategy: next_pow2 or next_5smooth"`
}

// PlanRequest is the input of both planning operations
type PlanRequest struct {
	Body PlanRequestBody
}

// CapturePlanBody is the acquisition budget plus the intermediate sizing
type CapturePlanBody struct {
	SampleRate      float64 `json:"sample_rate" doc:"Sample rate in Hz"`
	Samples         int     `json:"samples" doc:"Total samples to acquire across all chunks"`
	RBWEff          float64 `json:"rbw_eff" doc:"Effective RBW in Hz"`
	Time            float64 `json:"time" doc:"Total acquisition time in seconds"`
	NFFT            int     `json:"nfft" doc:"FFT size"`
	NOverlap        int     `json:"noverlap" doc:"Overlapping samples between segments"`
	Chunks          int     `json:"chunks" doc:"Retune steps needed to cover bw_hz"`
	SamplesPerChunk int     `json:"samples_per_chunk" doc:"Samples acquired per chunk"`
}

// PlanCaptureResponse is returned by the capture planner
type PlanCaptureResponse struct {
	Body CapturePlanBody
}

// WelchParamsBody mirrors the Welch estimator configuration
type WelchParamsBody struct {
	Window   string `json:"window"`
	NPerSeg  int    `json:"nperseg"`
	NOverlap int    `json:"noverlap"`
	NFFT     int    `json:"nfft"`
	Scaling  string `json:"scaling"`
	Average  string `json:"average"`
}

// PlanWelchResponse is returned by the Welch planner
type PlanWelchResponse struct {
	Body WelchParamsBody
}

// FFTSizeRequest asks a size planner for the FFT length covering NMin
type FFTSizeRequest struct {
	NMin    float64 `query:"n_min" doc:"Minimum FFT size"`
	Planner string  `query:"planner" default:"next_5smooth" doc:"next_pow2 or next_5smooth"`
}

// FFTSizeResponse holds the chosen FFT length
type FFTSizeResponse struct {
	Body struct {
		Planner string  `json:"planner"`
		NMin    float64 `json:"n_min"`
		N       int     `json:"n"`
	}
}

// CreateCaptureRequestBody describes an IQ recording about to be uploaded
type CreateCaptureRequestBody struct {
	SessionID    string   `json:"session_id" minLength:"1" maxLength:"64" doc:"Client session identifier"`
	FileSize     int64    `json:"file_size" doc:"Size of the cf32le IQ object in bytes"`
	FsHz         float64  `json:"fs_hz" doc:"Sample rate in Hz"`
	CenterFreqHz float64  `json:"center_freq_hz" doc:"Tuned centre frequency in Hz"`
	ImpedanceOhm float64  `json:"impedance_ohm,omitempty" doc:"Reference impedance, defaults to 50 ohm"`
	GainDB       *float64 `json:"gain_db,omitempty" doc:"Front-end gain reported by the device"`
	Blocks       int      `json:"blocks,omitempty" doc:"Equal-length blocks in the upload, defaults to 1"`
	RBWHz        float64  `json:"rbw_hz" doc:"Target resolution bandwidth in Hz"`
	Window       string   `json:"window" doc:"Window: rect, hann, hamming or blackman"`
	Overlap      float64  `json:"overlap" doc:"Fractional segment overlap in [0, 1)"`
	K            int      `json:"k" doc:"Welch segments averaged per chunk"`
	SizePlanner  string   `json:"size_planner,omitempty" doc:"FFT size strategy"`
}

// CreateCaptureRequest registers a capture
type CreateCaptureRequest struct {
	Body CreateCaptureRequestBody
}

// CreateCaptureResponseBody is the body of the create capture response
type CreateCaptureResponseBody struct {
	ID        string `json:"id" doc:"Capture unique identifier"`
	UploadURL string `json:"upload_url" doc:"Pre-signed URL for the IQ upload"`
	ExpiresIn int    `json:"expires_in" doc:"URL expiration time in seconds"`
}

// CreateCaptureResponse is returned after registering a capture
type CreateCaptureResponse struct {
	Body CreateCaptureResponseBody
}

// CaptureIDRequest addresses a single capture
type CaptureIDRequest struct {
	ID string `path:"id" doc:"Capture ID"`
}

// GetCaptureStatusResponseBody is the body of the status response
type GetCaptureStatusResponseBody struct {
	ID         string  `json:"id" doc:"Capture ID"`
	Status     string  `json:"status" enum:"pending,processing,completed,failed" doc:"Processing status"`
	Progress   int     `json:"progress" minimum:"0" maximum:"100" doc:"Processing progress percentage"`
	Message    string  `json:"message,omitempty" doc:"Human-readable status message"`
	SpectrumID *string `json:"spectrum_id,omitempty" doc:"Spectrum ID once processing completes"`
}

// GetCaptureStatusResponse reports processing progress
type GetCaptureStatusResponse struct {
	Body GetCaptureStatusResponseBody
}

// StartProcessingResponse confirms that processing was queued
type StartProcessingResponse struct {
	Body struct {
		Message string `json:"message" doc:"Confirmation message"`
	}
}

// GetSpectrumRequest fetches a capture's spectrum, optionally limited to a
// band. The band applies when either bound is non-zero.
type GetSpectrumRequest struct {
	ID            string  `path:"id" doc:"Capture ID"`
	FLowHz        float64 `query:"f_low_hz" doc:"Lower band edge in Hz"`
	FHighHz       float64 `query:"f_high_hz" doc:"Upper band edge in Hz"`
	IncludePoints bool    `query:"points" doc:"Also return the spectrum as frequency/PSD points"`
}

// SpectrumPoint is a single bin of a spectrum
type SpectrumPoint struct {
	FrequencyHz float64 `json:"frequency_hz" yaml:"frequency_hz" doc:"Bin frequency in Hz"`
	PSDdBmPerHz float64 `json:"psd_dbm_per_hz" yaml:"psd_dbm_per_hz" doc:"Power spectral density in dBm/Hz"`
}

// GetSpectrumResponseBody carries the codec envelope and a summary
type GetSpectrumResponseBody struct {
	ID          string          `json:"id" doc:"Spectrum ID"`
	CaptureID   string          `json:"capture_id" doc:"Capture ID"`
	NBins       int             `json:"n_bins"`
	RBWHz       float64         `json:"rbw_hz"`
	FStartHz    float64         `json:"f_start_hz"`
	FStopHz     float64         `json:"f_stop_hz"`
	Envelope    string          `json:"envelope" doc:"zlib+npy codec envelope"`
	DownloadURL string          `json:"download_url,omitempty" doc:"Pre-signed URL of the full stored envelope"`
	Points      []SpectrumPoint `json:"points,omitempty"`
}

// GetSpectrumResponse returns a processed spectrum
type GetSpectrumResponse struct {
	Body GetSpectrumResponseBody
}

// IngestSpectrumRequest carries a signed codec envelope
type IngestSpectrumRequest struct {
	RawBody []byte
}

// IngestSpectrumResponseBody summarises an ingested spectrum
type IngestSpectrumResponseBody struct {
	ID       string  `json:"id" doc:"Spectrum ID"`
	KeyID    string  `json:"key_id" doc:"Fingerprint of the signing key"`
	NBins    int     `json:"n_bins"`
	RBWHz    float64 `json:"rbw_hz"`
	FStartHz float64 `json:"f_start_hz"`
}

// IngestSpectrumResponse is returned after storing a signed spectrum
type IngestSpectrumResponse struct {
	Body IngestSpectrumResponseBody
}

// SpectrumPoints pairs each bin of sf with its frequency.
func SpectrumPoints(sf *SpectrumFrame) []SpectrumPoint {
	out := make([]SpectrumPoint, sf.NBins())
	for i := range out {
		out[i] = SpectrumPoint{FrequencyHz: sf.frequencies[i], PSDdBmPerHz: sf.psd[i]}
	}
	return out
}
