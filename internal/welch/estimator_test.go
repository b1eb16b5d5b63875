package welch

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/rfscope/pkg/models"
	"github.com/RMahshie/rfscope/pkg/planning"
)

const (
	testFs     = 1000.0
	testCenter = 1e6
)

// tone returns n samples of a unit complex exponential sitting exactly on
// FFT bin k of an nfft-point transform.
func tone(n, k, nfft int) []complex64 {
	out := make([]complex64, n)
	for i := range out {
		out[i] = complex64(cmplx.Exp(complex(0, 2*math.Pi*float64(k*i)/float64(nfft))))
	}
	return out
}

func rectParams() planning.WelchParams {
	return planning.WelchParams{Window: "rect", NPerSeg: 100, NOverlap: 0, NFFT: 100, Scaling: "density", Average: "mean"}
}

func argmax(x []float64) int {
	best := 0
	for i, v := range x {
		if v > x[best] {
			best = i
		}
	}
	return best
}

func totalPowerW(sf *models.SpectrumFrame) float64 {
	var sum float64
	for _, v := range sf.PSDdBmPerHz() {
		sum += math.Pow(10, (v-30)/10)
	}
	return sum * sf.RBWHz()
}

func TestEstimate_ToneLandsOnExpectedBin(t *testing.T) {
	iq, err := models.NewIQFrame(tone(400, 10, 100), testFs, testCenter)
	require.NoError(t, err)

	sf, err := Estimate(iq, rectParams())
	require.NoError(t, err)

	assert.Equal(t, 100, sf.NBins())
	assert.Equal(t, 10.0, sf.RBWHz())
	assert.Equal(t, testCenter-500, sf.FStartHz())
	assert.Equal(t, 4, sf.Averages())

	psd := sf.PSDdBmPerHz()
	peak := argmax(psd)
	assert.Equal(t, 60, peak)
	assert.InDelta(t, testCenter+100, sf.FrequenciesHz()[peak], 1e-6)

	// |X|² = N², density scale 1/(fs*N), referred to 50 ohm.
	want := 10*math.Log10(100/testFs/50) + 30
	assert.InDelta(t, want, psd[peak], 1e-4)
	assert.InDelta(t, 1.0/50, totalPowerW(sf), 1e-6)

	w, ok := sf.Window()
	assert.True(t, ok)
	assert.Equal(t, "rect", w)
	md := sf.Metadata()
	assert.Equal(t, 10.0, md["rbw_eff_hz"])
	assert.Equal(t, 100, md["nfft"])
	assert.Equal(t, testCenter, md["center_freq_hz"])
}

func TestEstimate_SegmentedMatchesFlat(t *testing.T) {
	samples := tone(400, -7, 100)
	flat, err := models.NewIQFrame(samples, testFs, testCenter)
	require.NoError(t, err)
	seg, err := models.NewSegmentedIQFrame([][]complex64{samples[:200], samples[200:]}, testFs, testCenter)
	require.NoError(t, err)

	a, err := Estimate(flat, rectParams())
	require.NoError(t, err)
	b, err := Estimate(seg, rectParams())
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.Equal(t, 43, argmax(b.PSDdBmPerHz()))
}

func TestEstimate_OverlapCountsSegments(t *testing.T) {
	iq, err := models.NewIQFrame(tone(400, 5, 100), testFs, testCenter)
	require.NoError(t, err)

	p := rectParams()
	p.Window = "hann"
	p.NOverlap = 50

	sf, err := Estimate(iq, p)
	require.NoError(t, err)
	// starts at 0, 50, ..., 300
	assert.Equal(t, 7, sf.Averages())
	assert.Equal(t, 55, argmax(sf.PSDdBmPerHz()))
	assert.InDelta(t, 1.0/50, totalPowerW(sf), 1e-6)
	assert.Equal(t, 15.0, sf.Metadata()["rbw_eff_hz"])
}

func TestEstimate_SpectrumScalingGivesToneLevel(t *testing.T) {
	iq, err := models.NewIQFrame(tone(100, 3, 100), testFs, testCenter, models.WithImpedance(1))
	require.NoError(t, err)

	p := rectParams()
	p.Scaling = "spectrum"
	sf, err := Estimate(iq, p)
	require.NoError(t, err)

	psd := sf.PSDdBmPerHz()
	assert.InDelta(t, 30.0, psd[argmax(psd)], 1e-4) // 1 V² across 1 ohm
}

func TestEstimate_ZeroPaddedFFT(t *testing.T) {
	iq, err := models.NewIQFrame(tone(256, 0, 64), testFs, testCenter)
	require.NoError(t, err)

	p := planning.WelchParams{Window: "blackman", NPerSeg: 64, NOverlap: 32, NFFT: 128}
	sf, err := Estimate(iq, p)
	require.NoError(t, err)

	assert.Equal(t, 128, sf.NBins())
	assert.InDelta(t, testFs/128, sf.RBWHz(), 1e-12)
	for _, v := range sf.PSDdBmPerHz() {
		assert.False(t, math.IsInf(v, 0))
	}
}

func TestEstimate_Rejects(t *testing.T) {
	iq, err := models.NewIQFrame(tone(100, 1, 100), testFs, testCenter)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(p *planning.WelchParams)
	}{
		{"unknown window", func(p *planning.WelchParams) { p.Window = "kaiser" }},
		{"zero nperseg", func(p *planning.WelchParams) { p.NPerSeg = 0 }},
		{"nfft below nperseg", func(p *planning.WelchParams) { p.NFFT = 50 }},
		{"negative overlap", func(p *planning.WelchParams) { p.NOverlap = -1 }},
		{"overlap equals nperseg", func(p *planning.WelchParams) { p.NOverlap = 100 }},
		{"bad scaling", func(p *planning.WelchParams) { p.Scaling = "magnitude" }},
		{"median average", func(p *planning.WelchParams) { p.Average = "median" }},
		{"capture too short", func(p *planning.WelchParams) { p.NPerSeg, p.NFFT = 200, 200 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := rectParams()
			tt.mutate(&p)
			_, err := Estimate(iq, p)
			assert.ErrorIs(t, err, models.ErrInvalidArgument)
		})
	}

	_, err = Estimate(nil, rectParams())
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestPeriodicWindow(t *testing.T) {
	w := periodicWindow("hann", 4)
	require.Len(t, w, 4)
	assert.InDeltaSlice(t, []float64{0, 0.5, 1, 0.5}, w, 1e-12)

	r := periodicWindow("rect", 3)
	assert.Equal(t, []float64{1, 1, 1}, r)
}

func TestFFTShift(t *testing.T) {
	assert.Equal(t, []float64{2, 3, 0, 1}, fftShift([]float64{0, 1, 2, 3}))
	assert.Equal(t, []float64{3, 4, 0, 1, 2}, fftShift([]float64{0, 1, 2, 3, 4}))
}
