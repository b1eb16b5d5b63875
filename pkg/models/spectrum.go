package models

import (
	"fmt"
	"maps"
	"math"
)

// SpectrumFrame is a power spectral density derived from IQ data.
//
// The frequency axis is computed once at construction as
// f_start_hz + rbw_hz*i and is guaranteed finite and strictly increasing.
// Frames are immutable; SliceBand returns a new frame.
type SpectrumFrame struct {
	psd         []float64 // dBm/Hz
	rbwHz       float64
	fStartHz    float64
	vbwHz       *float64
	window      *string
	averages    int
	noiseFloor  *float64
	metadata    map[string]any
	frequencies []float64
}

// SpectrumOption configures optional SpectrumFrame fields.
type SpectrumOption func(*SpectrumFrame)

// WithVBW sets the video bandwidth in Hz.
func WithVBW(hz float64) SpectrumOption {
	return func(s *SpectrumFrame) { s.vbwHz = &hz }
}

// WithWindow records the window used for PSD estimation.
func WithWindow(name string) SpectrumOption {
	return func(s *SpectrumFrame) { s.window = &name }
}

// WithAverages sets the number of averaged Welch segments. Defaults to 1.
func WithAverages(n int) SpectrumOption {
	return func(s *SpectrumFrame) { s.averages = n }
}

// WithNoiseFloor records a noise floor estimate in dBm/Hz.
func WithNoiseFloor(dbmPerHz float64) SpectrumOption {
	return func(s *SpectrumFrame) { s.noiseFloor = &dbmPerHz }
}

// WithMetadata attaches a copy of md to the frame.
func WithMetadata(md map[string]any) SpectrumOption {
	return func(s *SpectrumFrame) { s.metadata = maps.Clone(md) }
}

// NewSpectrumFrame validates the PSD and scalar fields and computes the
// frequency axis. It is the only way to obtain a SpectrumFrame.
func NewSpectrumFrame(psd []float64, rbwHz, fStartHz float64, opts ...SpectrumOption) (*SpectrumFrame, error) {
	s := &SpectrumFrame{
		rbwHz:    rbwHz,
		fStartHz: fStartHz,
		averages: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metadata == nil {
		s.metadata = map[string]any{}
	}

	if len(psd) == 0 {
		return nil, fmt.Errorf("%w: psd_dbm_per_hz must not be empty", ErrInvalidArgument)
	}
	for i, v := range psd {
		if !finite(v) {
			return nil, fmt.Errorf("%w: psd_dbm_per_hz must be finite (bin %d is %v)", ErrInvalidArgument, i, v)
		}
	}
	if !positiveFinite(s.rbwHz) {
		return nil, fmt.Errorf("%w: rbw_hz must be a positive finite float, got %v", ErrInvalidArgument, s.rbwHz)
	}
	if s.averages < 1 {
		return nil, fmt.Errorf("%w: averages must be >= 1, got %d", ErrInvalidArgument, s.averages)
	}
	if s.vbwHz != nil && !positiveFinite(*s.vbwHz) {
		return nil, fmt.Errorf("%w: vbw_hz, when provided, must be a positive finite float, got %v", ErrInvalidArgument, *s.vbwHz)
	}
	if s.noiseFloor != nil && !finite(*s.noiseFloor) {
		return nil, fmt.Errorf("%w: noise_floor_dbm_per_hz, when provided, must be finite, got %v", ErrInvalidArgument, *s.noiseFloor)
	}
	if !finite(s.fStartHz) {
		return nil, fmt.Errorf("%w: f_start_hz must be finite, got %v", ErrInvalidArgument, s.fStartHz)
	}

	freqs := make([]float64, len(psd))
	for i := range freqs {
		freqs[i] = s.fStartHz + s.rbwHz*float64(i)
		if !finite(freqs[i]) {
			return nil, fmt.Errorf("%w: computed frequencies_hz contain non-finite values", ErrInvalidArgument)
		}
		if i > 0 && !(freqs[i] > freqs[i-1]) {
			return nil, fmt.Errorf("%w: computed frequencies_hz must be strictly increasing (bin %d)", ErrInvalidArgument, i)
		}
	}

	s.psd = make([]float64, len(psd))
	copy(s.psd, psd)
	s.frequencies = freqs
	return s, nil
}

// PSDdBmPerHz returns a copy of the PSD values.
func (s *SpectrumFrame) PSDdBmPerHz() []float64 {
	out := make([]float64, len(s.psd))
	copy(out, s.psd)
	return out
}

// FrequenciesHz returns a copy of the frequency axis.
func (s *SpectrumFrame) FrequenciesHz() []float64 {
	out := make([]float64, len(s.frequencies))
	copy(out, s.frequencies)
	return out
}

func (s *SpectrumFrame) RBWHz() float64    { return s.rbwHz }
func (s *SpectrumFrame) FStartHz() float64 { return s.fStartHz }
func (s *SpectrumFrame) Averages() int     { return s.averages }

// VBWHz returns the video bandwidth and whether one was set.
func (s *SpectrumFrame) VBWHz() (float64, bool) { return deref(s.vbwHz) }

// NoiseFloorDBmPerHz returns the noise floor estimate and whether one was set.
func (s *SpectrumFrame) NoiseFloorDBmPerHz() (float64, bool) { return deref(s.noiseFloor) }

// Window returns the window name and whether one was set.
func (s *SpectrumFrame) Window() (string, bool) {
	if s.window == nil {
		return "", false
	}
	return *s.window, true
}

// Metadata returns a copy of the metadata bag.
func (s *SpectrumFrame) Metadata() map[string]any { return maps.Clone(s.metadata) }

// NBins is the number of frequency bins.
func (s *SpectrumFrame) NBins() int { return len(s.frequencies) }

// BinDfHz is the bin spacing used to build the axis.
func (s *SpectrumFrame) BinDfHz() float64 { return s.rbwHz }

// FStopHz is the frequency of the last bin.
func (s *SpectrumFrame) FStopHz() float64 { return s.frequencies[len(s.frequencies)-1] }

// FCenterHz is the midpoint of the first and last bin frequencies.
func (s *SpectrumFrame) FCenterHz() float64 {
	return 0.5 * (s.frequencies[0] + s.frequencies[len(s.frequencies)-1])
}

// SliceBand returns a new frame holding only the bins whose frequency lies in
// [lowHz, highHz]. Non-axis fields and metadata are copied.
func (s *SpectrumFrame) SliceBand(lowHz, highHz float64) (*SpectrumFrame, error) {
	if !finite(lowHz) || !finite(highHz) || lowHz >= highHz {
		return nil, fmt.Errorf("%w: invalid band limits [%v, %v]", ErrInvalidArgument, lowHz, highHz)
	}

	first, last := -1, -1
	for i, f := range s.frequencies {
		if f >= lowHz && f <= highHz {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return nil, fmt.Errorf("%w: requested band [%v, %v] has no bins in this spectrum", ErrInvalidArgument, lowHz, highHz)
	}

	opts := []SpectrumOption{
		WithAverages(s.averages),
		WithMetadata(s.metadata),
	}
	if s.vbwHz != nil {
		opts = append(opts, WithVBW(*s.vbwHz))
	}
	if s.window != nil {
		opts = append(opts, WithWindow(*s.window))
	}
	if s.noiseFloor != nil {
		opts = append(opts, WithNoiseFloor(*s.noiseFloor))
	}
	return NewSpectrumFrame(s.psd[first:last+1], s.rbwHz, s.frequencies[first], opts...)
}

// Equal compares PSD values with numpy allclose tolerances (rtol 1e-5,
// atol 1e-8) and every other field except metadata exactly.
func (s *SpectrumFrame) Equal(other *SpectrumFrame) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.psd) != len(other.psd) {
		return false
	}
	for i := range s.psd {
		if math.Abs(s.psd[i]-other.psd[i]) > 1e-8+1e-5*math.Abs(other.psd[i]) {
			return false
		}
	}
	return s.rbwHz == other.rbwHz &&
		s.fStartHz == other.fStartHz &&
		s.averages == other.averages &&
		equalPtr(s.vbwHz, other.vbwHz) &&
		equalPtr(s.window, other.window) &&
		equalPtr(s.noiseFloor, other.noiseFloor)
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
