// Package rfunits holds small RF unit conversions used when turning raw
// power spectral densities into reportable levels.
package rfunits

import (
	"fmt"
	"math"

	"github.com/RMahshie/rfscope/pkg/models"
)

// ReferPSDToIsotropic removes the antenna gain from a PSD level so that the
// result is referred to an isotropic radiator.
func ReferPSDToIsotropic(psdDBmPerHz, antGainDBi float64) float64 {
	return psdDBmPerHz - antGainDBi
}

// V2HzToDBmHz converts a voltage spectral density in V²/Hz across the given
// impedance to dBm/Hz. Zero density yields -Inf.
func V2HzToDBmHz(v2Hz, impedanceOhm float64) float64 {
	return 10*math.Log10(v2Hz/impedanceOhm) + 30
}

// V2HzToDBmHzSlice converts every value in v2Hz, clamping densities below
// floor so the result stays finite. A floor <= 0 disables clamping.
func V2HzToDBmHzSlice(v2Hz []float64, impedanceOhm, floor float64) ([]float64, error) {
	if !(impedanceOhm > 0) || math.IsInf(impedanceOhm, 1) {
		return nil, fmt.Errorf("%w: impedance_ohm must be a positive finite float, got %v", models.ErrInvalidArgument, impedanceOhm)
	}
	out := make([]float64, len(v2Hz))
	for i, v := range v2Hz {
		if v < 0 || math.IsNaN(v) {
			return nil, fmt.Errorf("%w: power density must be >= 0 (bin %d is %v)", models.ErrInvalidArgument, i, v)
		}
		if floor > 0 && v < floor {
			v = floor
		}
		out[i] = V2HzToDBmHz(v, impedanceOhm)
	}
	return out, nil
}
