package planning

import "sort"

// enbw maps a window name to its equivalent noise bandwidth in bins.
var enbw = map[string]float64{
	"rect":     1.00,
	"hann":     1.50,
	"hamming":  1.36,
	"blackman": 1.73,
}

// ENBW returns the equivalent noise bandwidth factor for window.
func ENBW(window string) (float64, bool) {
	v, ok := enbw[window]
	return v, ok
}

// Windows lists the supported window names in sorted order.
func Windows() []string {
	names := make([]string, 0, len(enbw))
	for name := range enbw {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
