package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSpectrumFrame_Axis(t *testing.T) {
	sf, err := NewSpectrumFrame([]float64{0, -10, -20}, 1.0, 100.0)
	require.NoError(t, err)

	assert.Equal(t, []float64{100, 101, 102}, sf.FrequenciesHz())
	assert.Equal(t, 3, sf.NBins())
	assert.Equal(t, 1.0, sf.BinDfHz())
	assert.Equal(t, 102.0, sf.FStopHz())
	assert.Equal(t, 101.0, sf.FCenterHz())
	assert.Equal(t, 1, sf.Averages())

	_, ok := sf.VBWHz()
	assert.False(t, ok)
	_, ok = sf.Window()
	assert.False(t, ok)
	_, ok = sf.NoiseFloorDBmPerHz()
	assert.False(t, ok)
}

func TestNewSpectrumFrame_Validation(t *testing.T) {
	tests := []struct {
		name  string
		psd   []float64
		rbw   float64
		start float64
		opts  []SpectrumOption
	}{
		{"empty psd", nil, 1, 0, nil},
		{"nan psd", []float64{0, math.NaN()}, 1, 0, nil},
		{"inf psd", []float64{math.Inf(-1)}, 1, 0, nil},
		{"zero rbw", []float64{0}, 0, 0, nil},
		{"negative rbw", []float64{0}, -1, 0, nil},
		{"inf rbw", []float64{0}, math.Inf(1), 0, nil},
		{"nan start", []float64{0}, 1, math.NaN(), nil},
		{"zero averages", []float64{0}, 1, 0, []SpectrumOption{WithAverages(0)}},
		{"negative vbw", []float64{0}, 1, 0, []SpectrumOption{WithVBW(-3)}},
		{"nan noise floor", []float64{0}, 1, 0, []SpectrumOption{WithNoiseFloor(math.NaN())}},
		{"inf noise floor", []float64{0}, 1, 0, []SpectrumOption{WithNoiseFloor(math.Inf(-1))}},
		{"axis not increasing", []float64{0, 0}, 1e-300, 1e300, nil},
		{"axis overflows", []float64{0, 0}, math.MaxFloat64, math.MaxFloat64, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sf, err := NewSpectrumFrame(tt.psd, tt.rbw, tt.start, tt.opts...)
			assert.ErrorIs(t, err, ErrInvalidArgument)
			assert.Nil(t, sf)
		})
	}
}

func TestSpectrumFrame_IsImmutable(t *testing.T) {
	psd := []float64{1, 2, 3}
	md := map[string]any{"note": "x"}
	sf, err := NewSpectrumFrame(psd, 1, 0, WithMetadata(md))
	require.NoError(t, err)

	psd[0] = 99
	md["note"] = "y"
	got := sf.PSDdBmPerHz()
	got[1] = 99
	sf.FrequenciesHz()[2] = 99

	assert.Equal(t, []float64{1, 2, 3}, sf.PSDdBmPerHz())
	assert.Equal(t, []float64{0, 1, 2}, sf.FrequenciesHz())
	assert.Equal(t, "x", sf.Metadata()["note"])
}

func TestSpectrumFrame_SliceBand(t *testing.T) {
	sf, err := NewSpectrumFrame(
		[]float64{-1, -2, -3, -4, -5, -6},
		10, 1000,
		WithVBW(3), WithWindow("hann"), WithAverages(4), WithNoiseFloor(-170),
		WithMetadata(map[string]any{"site": "roof"}),
	)
	require.NoError(t, err)

	sub, err := sf.SliceBand(1015, 1040)
	require.NoError(t, err)

	assert.Equal(t, []float64{-3, -4, -5}, sub.PSDdBmPerHz())
	assert.Equal(t, 1020.0, sub.FStartHz())
	for _, f := range sub.FrequenciesHz() {
		assert.GreaterOrEqual(t, f, 1015.0)
		assert.LessOrEqual(t, f, 1040.0)
	}
	vbw, _ := sub.VBWHz()
	assert.Equal(t, 3.0, vbw)
	window, _ := sub.Window()
	assert.Equal(t, "hann", window)
	nf, _ := sub.NoiseFloorDBmPerHz()
	assert.Equal(t, -170.0, nf)
	assert.Equal(t, 4, sub.Averages())
	assert.Equal(t, "roof", sub.Metadata()["site"])

	// Bounds are inclusive.
	edge, err := sf.SliceBand(1000, 1010)
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, -2}, edge.PSDdBmPerHz())

	// The source frame is untouched.
	assert.Equal(t, 6, sf.NBins())
}

func TestSpectrumFrame_SliceBandErrors(t *testing.T) {
	sf, err := NewSpectrumFrame([]float64{0, 0, 0}, 1, 0)
	require.NoError(t, err)

	for _, band := range [][2]float64{
		{2, 1},
		{1, 1},
		{math.NaN(), 1},
		{0, math.Inf(1)},
		{10, 20},
		{0.2, 0.8},
	} {
		_, err := sf.SliceBand(band[0], band[1])
		assert.ErrorIs(t, err, ErrInvalidArgument, "band %v", band)
	}
}

func TestSpectrumFrame_Equal(t *testing.T) {
	a, err := NewSpectrumFrame([]float64{-100, -90}, 1, 0, WithWindow("hann"))
	require.NoError(t, err)
	b, err := NewSpectrumFrame([]float64{-100.0000001, -90}, 1, 0, WithWindow("hann"), WithMetadata(map[string]any{"k": 1}))
	require.NoError(t, err)
	c, err := NewSpectrumFrame([]float64{-100, -90}, 1, 0)
	require.NoError(t, err)
	d, err := NewSpectrumFrame([]float64{-100, -80}, 1, 0, WithWindow("hann"))
	require.NoError(t, err)

	assert.True(t, a.Equal(b), "metadata and tiny PSD differences are ignored")
	assert.False(t, a.Equal(c), "window differs")
	assert.False(t, a.Equal(d), "psd differs")
	assert.False(t, a.Equal(nil))
}

func TestNewIQFrame(t *testing.T) {
	iq, err := NewIQFrame(make([]complex64, 2048), 2_048_000, 100e6, WithGain(20))
	require.NoError(t, err)

	assert.Equal(t, []int{2048}, iq.Shape())
	assert.Equal(t, 1, iq.Rank())
	assert.Equal(t, 1, iq.NChannels())
	assert.Equal(t, 2048, iq.NSamples())
	assert.InDelta(t, 0.001, iq.DurationS(), 1e-15)
	assert.Equal(t, DefaultImpedanceOhm, iq.ImpedanceOhm())
	gain, ok := iq.GainDB()
	assert.True(t, ok)
	assert.Equal(t, 20.0, gain)
}

func TestNewSegmentedIQFrame(t *testing.T) {
	blocks := [][]complex64{{1, 2, 3}, {4, 5, 6}}
	iq, err := NewSegmentedIQFrame(blocks, 1000, 1e6, WithImpedance(75))
	require.NoError(t, err)

	assert.Equal(t, []int{2, 3}, iq.Shape())
	assert.Equal(t, 2, iq.NChannels())
	assert.Equal(t, 3, iq.NSamples())
	assert.Equal(t, 0.003, iq.DurationS())
	assert.Equal(t, []complex64{4, 5, 6}, iq.Block(1))
	assert.Nil(t, iq.Block(2))
	assert.Equal(t, 75.0, iq.ImpedanceOhm())

	blocks[0][0] = 42
	assert.Equal(t, complex64(1), iq.Samples()[0])

	_, err = NewSegmentedIQFrame([][]complex64{{1, 2}, {3}}, 1000, 1e6)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNewIQFrame_Validation(t *testing.T) {
	tests := []struct {
		name   string
		fs     float64
		center float64
		opts   []IQOption
	}{
		{"zero fs", 0, 1e6, nil},
		{"inf fs", math.Inf(1), 1e6, nil},
		{"negative center", 1000, -1, nil},
		{"nan center", 1000, math.NaN(), nil},
		{"zero impedance", 1000, 1e6, []IQOption{WithImpedance(0)}},
		{"inf impedance", 1000, 1e6, []IQOption{WithImpedance(math.Inf(1))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIQFrame([]complex64{1}, tt.fs, tt.center, tt.opts...)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}
