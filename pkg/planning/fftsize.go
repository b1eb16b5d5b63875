package planning

import (
	"fmt"
	"math"
	"sort"

	"github.com/RMahshie/rfscope/pkg/models"
)

// SizeFunc picks an FFT length that is at least nMin.
type SizeFunc func(nMin float64) (int, error)

const (
	SizePlannerPow2    = "next_pow2"
	SizePlanner5Smooth = "next_5smooth"

	// DefaultSizePlanner is used when a request names no strategy.
	DefaultSizePlanner = SizePlanner5Smooth
)

// maxFFTSize bounds the search so candidates never overflow int.
const maxFFTSize = 1 << 52

var sizePlanners = map[string]SizeFunc{
	SizePlannerPow2:    NextPow2,
	SizePlanner5Smooth: Next5Smooth,
}

// SizePlanner resolves a strategy by name.
func SizePlanner(name string) (SizeFunc, error) {
	fn, ok := sizePlanners[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown size_planner %q; choose one of: %q, %q",
			models.ErrInvalidArgument, name, SizePlannerPow2, SizePlanner5Smooth)
	}
	return fn, nil
}

// SizePlanners lists the registered strategy names.
func SizePlanners() []string {
	names := make([]string, 0, len(sizePlanners))
	for name := range sizePlanners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NextPow2 returns the smallest power of two >= max(2, nMin).
func NextPow2(nMin float64) (int, error) {
	if err := validateMin(nMin); err != nil {
		return 0, err
	}
	target := math.Max(2, nMin)
	n := 2
	for float64(n) < target {
		n <<= 1
	}
	return n, nil
}

// Next5Smooth returns the smallest 2^a * 3^b * 5^c >= ceil(nMin), clamped to
// at least 1.
//
// The search walks every exponent triple up to log_base(target)+2, skipping a
// branch as soon as its partial product already exceeds the best candidate.
func Next5Smooth(nMin float64) (int, error) {
	if err := validateMin(nMin); err != nil {
		return 0, err
	}
	target := int(math.Max(1, math.Ceil(nMin)))

	maxExp2 := maxExponent(target, 2)
	maxExp3 := maxExponent(target, 3)
	maxExp5 := maxExponent(target, 5)

	best := 0
	pow2 := 1
	for a := 0; a <= maxExp2; a++ {
		if best != 0 && pow2 > best {
			break
		}
		pow3 := pow2
		for b := 0; b <= maxExp3; b++ {
			if best != 0 && pow3 > best {
				break
			}
			n := pow3
			for c := 0; c <= maxExp5; c++ {
				if n >= target {
					if best == 0 || n < best {
						best = n
					}
					break
				}
				n *= 5
			}
			pow3 *= 3
		}
		pow2 *= 2
	}
	return best, nil
}

func validateMin(nMin float64) error {
	if math.IsNaN(nMin) || nMin <= 0 {
		return fmt.Errorf("%w: n_min must be a positive number, got %v", models.ErrInvalidArgument, nMin)
	}
	if nMin > maxFFTSize {
		return fmt.Errorf("%w: n_min %v exceeds the largest supported FFT size %d", models.ErrInvalidArgument, nMin, maxFFTSize)
	}
	return nil
}

func maxExponent(target, base int) int {
	return int(math.Log(float64(target))/math.Log(float64(base))) + 2
}
