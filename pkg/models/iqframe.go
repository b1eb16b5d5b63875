package models

import (
	"fmt"
	"maps"
	"math"
)

// DefaultImpedanceOhm is the reference impedance used when none is given.
const DefaultImpedanceOhm = 50.0

// IQFrame is a raw complex-baseband capture. Samples are held either as a
// single block of N samples (rank 1) or as K equally sized blocks (rank 2).
//
// An IQFrame is immutable: accessors return copies and downstream stages
// build new frames instead of editing an existing one.
type IQFrame struct {
	samples      []complex64 // row-major, len = channels*n
	channels     int
	n            int
	segmented    bool
	fsHz         float64
	centerFreqHz float64
	impedanceOhm float64
	gainDB       *float64
	metadata     map[string]any
}

// IQOption configures optional IQFrame fields.
type IQOption func(*IQFrame)

// WithImpedance sets the reference impedance in ohms.
func WithImpedance(ohm float64) IQOption {
	return func(f *IQFrame) { f.impedanceOhm = ohm }
}

// WithGain records the front-end gain reported by the device.
func WithGain(db float64) IQOption {
	return func(f *IQFrame) { f.gainDB = &db }
}

// WithIQMetadata attaches a copy of md to the frame.
func WithIQMetadata(md map[string]any) IQOption {
	return func(f *IQFrame) { f.metadata = maps.Clone(md) }
}

// NewIQFrame builds a rank-1 frame of shape (N,).
func NewIQFrame(samples []complex64, fsHz, centerFreqHz float64, opts ...IQOption) (*IQFrame, error) {
	buf := make([]complex64, len(samples))
	copy(buf, samples)

	f := &IQFrame{
		samples:  buf,
		channels: 1,
		n:        len(samples),
	}
	return f.finish(fsHz, centerFreqHz, opts)
}

// NewSegmentedIQFrame builds a rank-2 frame of shape (K, N). Every block must
// hold the same number of samples.
func NewSegmentedIQFrame(blocks [][]complex64, fsHz, centerFreqHz float64, opts ...IQOption) (*IQFrame, error) {
	n := 0
	if len(blocks) > 0 {
		n = len(blocks[0])
	}
	buf := make([]complex64, 0, len(blocks)*n)
	for i, b := range blocks {
		if len(b) != n {
			return nil, fmt.Errorf("%w: samples block %d has %d samples, want %d", ErrInvalidArgument, i, len(b), n)
		}
		buf = append(buf, b...)
	}

	f := &IQFrame{
		samples:   buf,
		channels:  len(blocks),
		n:         n,
		segmented: true,
	}
	return f.finish(fsHz, centerFreqHz, opts)
}

func (f *IQFrame) finish(fsHz, centerFreqHz float64, opts []IQOption) (*IQFrame, error) {
	f.fsHz = fsHz
	f.centerFreqHz = centerFreqHz
	f.impedanceOhm = DefaultImpedanceOhm
	f.metadata = map[string]any{}
	for _, opt := range opts {
		opt(f)
	}

	if !positiveFinite(f.fsHz) {
		return nil, fmt.Errorf("%w: fs_hz must be a positive finite float, got %v", ErrInvalidArgument, f.fsHz)
	}
	if !positiveFinite(f.centerFreqHz) {
		return nil, fmt.Errorf("%w: center_freq_hz must be a positive finite float, got %v", ErrInvalidArgument, f.centerFreqHz)
	}
	if !positiveFinite(f.impedanceOhm) {
		return nil, fmt.Errorf("%w: impedance_ohm must be a positive finite float (e.g., 50.0), got %v", ErrInvalidArgument, f.impedanceOhm)
	}
	if f.metadata == nil {
		f.metadata = map[string]any{}
	}
	return f, nil
}

// Shape returns (N,) for flat frames and (K, N) for segmented ones.
func (f *IQFrame) Shape() []int {
	if f.segmented {
		return []int{f.channels, f.n}
	}
	return []int{f.n}
}

// Rank is 1 for flat frames and 2 for segmented ones.
func (f *IQFrame) Rank() int { return len(f.Shape()) }

// NChannels is 1 for flat frames, K for segmented ones.
func (f *IQFrame) NChannels() int { return f.channels }

// NSamples is the number of samples per block.
func (f *IQFrame) NSamples() int { return f.n }

// DurationS is the capture duration of one block in seconds.
func (f *IQFrame) DurationS() float64 { return float64(f.n) / f.fsHz }

func (f *IQFrame) FsHz() float64         { return f.fsHz }
func (f *IQFrame) CenterFreqHz() float64 { return f.centerFreqHz }
func (f *IQFrame) ImpedanceOhm() float64 { return f.impedanceOhm }

// GainDB returns the reported gain and whether one was set.
func (f *IQFrame) GainDB() (float64, bool) {
	if f.gainDB == nil {
		return 0, false
	}
	return *f.gainDB, true
}

// Metadata returns a copy of the metadata bag.
func (f *IQFrame) Metadata() map[string]any { return maps.Clone(f.metadata) }

// Samples returns a copy of all samples in row-major order.
func (f *IQFrame) Samples() []complex64 {
	out := make([]complex64, len(f.samples))
	copy(out, f.samples)
	return out
}

// Block returns a copy of block i. Flat frames have a single block 0.
func (f *IQFrame) Block(i int) []complex64 {
	if i < 0 || i >= f.channels {
		return nil
	}
	out := make([]complex64, f.n)
	copy(out, f.samples[i*f.n:(i+1)*f.n])
	return out
}

// Blocks returns a copy of every block.
func (f *IQFrame) Blocks() [][]complex64 {
	out := make([][]complex64, f.channels)
	for i := range out {
		out[i] = f.Block(i)
	}
	return out
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
