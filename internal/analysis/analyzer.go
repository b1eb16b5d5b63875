// Package analysis defines the spectral analytics surface consumed by the
// processing pipeline. Concrete algorithms are plugged in behind Analyzer.
package analysis

import (
	"errors"

	"github.com/RMahshie/rfscope/pkg/models"
)

// ErrNotImplemented is returned by analytics that are not available.
var ErrNotImplemented = errors.New("analysis not implemented")

// Emission power metrics understood by MeasureEmissionPower.
const (
	MetricOBW = "obw"
	MetricXdB = "xdb"
)

// Analyzer measures emissions, noise and occupancy on a SpectrumFrame.
// Frequencies are in Hz, levels in dBm or dBm/Hz.
type Analyzer interface {
	// DetectEmissions returns the bin indices that carry relevant emissions.
	DetectEmissions(sf *models.SpectrumFrame) ([]int, error)
	// EstimateNoiseFloor returns a simple global noise floor estimate.
	EstimateNoiseFloor(sf *models.SpectrumFrame) (float64, error)
	// EstimateNoiseFloorRobust estimates the noise floor with a named
	// method such as "median", "percentile" or "histogram".
	EstimateNoiseFloorRobust(sf *models.SpectrumFrame, method string) (float64, error)
	DetectPeakBins(sf *models.SpectrumFrame) ([]int, error)
	MeasureEmissionPower(sf *models.SpectrumFrame, fCenterHz float64, metric string) (map[string]float64, error)
	// MeasureBandwidthXdB returns the width around peakIdx where the level
	// stays within xDB of the peak.
	MeasureBandwidthXdB(sf *models.SpectrumFrame, peakIdx int, xDB float64) (float64, error)
	// MeasureOBW returns the occupied bandwidth holding percentile percent
	// of the emission power.
	MeasureOBW(sf *models.SpectrumFrame, peakIdx int, percentile float64) (float64, error)
	MeasureChannelPower(sf *models.SpectrumFrame, fCenterHz, bwHz float64) (float64, error)
	// ComputeSNR maps each peak bin to its signal to noise ratio in dB.
	ComputeSNR(sf *models.SpectrumFrame, peaks []int) (map[int]float64, error)
	AdaptiveThreshold(sf *models.SpectrumFrame, nSigma float64) (float64, error)
}

// Unavailable is the Analyzer used until concrete algorithms are wired in.
// Every method returns ErrNotImplemented.
type Unavailable struct{}

var _ Analyzer = Unavailable{}

func (Unavailable) DetectEmissions(*models.SpectrumFrame) ([]int, error) {
	return nil, ErrNotImplemented
}

func (Unavailable) EstimateNoiseFloor(*models.SpectrumFrame) (float64, error) {
	return 0, ErrNotImplemented
}

func (Unavailable) EstimateNoiseFloorRobust(*models.SpectrumFrame, string) (float64, error) {
	return 0, ErrNotImplemented
}

func (Unavailable) DetectPeakBins(*models.SpectrumFrame) ([]int, error) {
	return nil, ErrNotImplemented
}

func (Unavailable) MeasureEmissionPower(*models.SpectrumFrame, float64, string) (map[string]float64, error) {
	return nil, ErrNotImplemented
}

func (Unavailable) MeasureBandwidthXdB(*models.SpectrumFrame, int, float64) (float64, error) {
	return 0, ErrNotImplemented
}

func (Unavailable) MeasureOBW(*models.SpectrumFrame, int, float64) (float64, error) {
	return 0, ErrNotImplemented
}

func (Unavailable) MeasureChannelPower(*models.SpectrumFrame, float64, float64) (float64, error) {
	return 0, ErrNotImplemented
}

func (Unavailable) ComputeSNR(*models.SpectrumFrame, []int) (map[int]float64, error) {
	return nil, ErrNotImplemented
}

func (Unavailable) AdaptiveThreshold(*models.SpectrumFrame, float64) (float64, error) {
	return 0, ErrNotImplemented
}
