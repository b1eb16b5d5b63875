// Package welch estimates power spectral densities from IQ captures with
// Welch's averaged periodogram method.
package welch

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"

	"github.com/RMahshie/rfscope/pkg/models"
	"github.com/RMahshie/rfscope/pkg/planning"
	"github.com/RMahshie/rfscope/pkg/rfunits"
)

const (
	ScalingDensity  = "density"
	ScalingSpectrum = "spectrum"
	AverageMean     = "mean"

	// powerFloor keeps the dB conversion finite for empty bins.
	powerFloor = 1e-30
)

// Estimate computes the two-sided PSD of iq using params and returns it as
// a SpectrumFrame in dBm/Hz centred on the capture's centre frequency.
//
// Segments are taken from every block of iq and averaged together. Each
// segment is detrended by its mean, windowed with a periodic window and
// zero-padded to params.NFFT.
func Estimate(iq *models.IQFrame, params planning.WelchParams) (*models.SpectrumFrame, error) {
	if iq == nil {
		return nil, fmt.Errorf("%w: IQ frame is nil", models.ErrInvalidArgument)
	}
	enbw, ok := planning.ENBW(params.Window)
	if !ok {
		return nil, fmt.Errorf("%w: unknown window %q; options: %v", models.ErrInvalidArgument, params.Window, planning.Windows())
	}
	if params.NPerSeg < 1 || params.NFFT < params.NPerSeg {
		return nil, fmt.Errorf("%w: need 1 <= nperseg <= nfft (nperseg=%d, nfft=%d)", models.ErrInvalidArgument, params.NPerSeg, params.NFFT)
	}
	if params.NOverlap < 0 || params.NOverlap >= params.NPerSeg {
		return nil, fmt.Errorf("%w: noverlap must be in [0, nperseg), got %d", models.ErrInvalidArgument, params.NOverlap)
	}
	scaling := params.Scaling
	if scaling == "" {
		scaling = ScalingDensity
	}
	if scaling != ScalingDensity && scaling != ScalingSpectrum {
		return nil, fmt.Errorf("%w: scaling must be %q or %q, got %q", models.ErrInvalidArgument, ScalingDensity, ScalingSpectrum, params.Scaling)
	}
	if params.Average != "" && params.Average != AverageMean {
		return nil, fmt.Errorf("%w: only %q averaging is supported, got %q", models.ErrInvalidArgument, AverageMean, params.Average)
	}
	if iq.NSamples() < params.NPerSeg {
		return nil, fmt.Errorf("%w: capture holds %d samples per block, need at least nperseg=%d",
			models.ErrInvalidArgument, iq.NSamples(), params.NPerSeg)
	}

	win := periodicWindow(params.Window, params.NPerSeg)
	fs := iq.FsHz()
	var scale float64
	if scaling == ScalingDensity {
		scale = 1 / (fs * floats.Dot(win, win))
	} else {
		sum := floats.Sum(win)
		scale = 1 / (sum * sum)
	}

	fft := fourier.NewCmplxFFT(params.NFFT)
	buf := make([]complex128, params.NFFT)
	coeffs := make([]complex128, params.NFFT)
	power := make([]float64, params.NFFT)
	acc := make([]float64, params.NFFT)
	step := params.NPerSeg - params.NOverlap

	segments := 0
	for _, block := range iq.Blocks() {
		for start := 0; start+params.NPerSeg <= len(block); start += step {
			periodogram(block[start:start+params.NPerSeg], win, fft, buf, coeffs, power)
			floats.Add(acc, power)
			segments++
		}
	}
	floats.Scale(scale/float64(segments), acc)

	psd, err := rfunits.V2HzToDBmHzSlice(fftShift(acc), iq.ImpedanceOhm(), powerFloor)
	if err != nil {
		return nil, err
	}

	binHz := fs / float64(params.NFFT)
	fStart := iq.CenterFreqHz() - float64(params.NFFT/2)*binHz

	md := iq.Metadata()
	md["rbw_eff_hz"] = enbw * binHz
	md["enbw"] = enbw
	md["nperseg"] = params.NPerSeg
	md["noverlap"] = params.NOverlap
	md["nfft"] = params.NFFT
	md["scaling"] = scaling
	md["center_freq_hz"] = iq.CenterFreqHz()
	md["fs_hz"] = fs
	if g, ok := iq.GainDB(); ok {
		md["gain_db"] = g
	}

	return models.NewSpectrumFrame(psd, binHz, fStart,
		models.WithWindow(params.Window),
		models.WithAverages(segments),
		models.WithMetadata(md),
	)
}

// periodogram writes |FFT(detrended, windowed seg)|² into power.
func periodogram(seg []complex64, win []float64, fft *fourier.CmplxFFT, buf, coeffs []complex128, power []float64) {
	var mean complex128
	for _, s := range seg {
		mean += complex128(s)
	}
	mean /= complex(float64(len(seg)), 0)

	for i := range buf {
		if i < len(seg) {
			buf[i] = (complex128(seg[i]) - mean) * complex(win[i], 0)
		} else {
			buf[i] = 0
		}
	}
	fft.Coefficients(coeffs, buf)
	for i, c := range coeffs {
		a := cmplx.Abs(c)
		power[i] = a * a
	}
}

// periodicWindow returns the DFT-even form of the named window: the
// symmetric window of length n+1 without its last sample.
func periodicWindow(name string, n int) []float64 {
	var w []float64
	switch name {
	case "hann":
		w = window.Hann(n + 1)
	case "hamming":
		w = window.Hamming(n + 1)
	case "blackman":
		w = window.Blackman(n + 1)
	default:
		w = window.Rectangular(n + 1)
	}
	return w[:n]
}

// fftShift moves the zero-frequency bin to the centre so bins run from the
// most negative frequency upward.
func fftShift(x []float64) []float64 {
	n := len(x)
	out := make([]float64, n)
	for i := range out {
		out[i] = x[(i+n-n/2)%n]
	}
	return out
}
