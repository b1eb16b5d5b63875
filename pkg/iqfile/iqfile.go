// Package iqfile reads and writes raw cf32le captures: interleaved
// little-endian float32 I/Q pairs with no header.
package iqfile

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/RMahshie/rfscope/pkg/models"
)

// BytesPerSample is the size of one complex sample on disk.
const BytesPerSample = 8

// Encode serialises samples as cf32le.
func Encode(samples []complex64) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*8:], math.Float32bits(real(s)))
		binary.LittleEndian.PutUint32(out[i*8+4:], math.Float32bits(imag(s)))
	}
	return out
}

// Decode splits a cf32le blob into the given number of equal blocks.
func Decode(data []byte, blocks int) ([][]complex64, error) {
	if blocks < 1 {
		return nil, fmt.Errorf("%w: blocks must be >= 1, got %d", models.ErrInvalidArgument, blocks)
	}
	if len(data) == 0 || len(data)%BytesPerSample != 0 {
		return nil, fmt.Errorf("%w: cf32le payload of %d bytes is not a whole number of samples", models.ErrInvalidFormat, len(data))
	}
	total := len(data) / BytesPerSample
	if total%blocks != 0 {
		return nil, fmt.Errorf("%w: %d samples do not split into %d equal blocks", models.ErrInvalidArgument, total, blocks)
	}

	n := total / blocks
	out := make([][]complex64, blocks)
	for b := range out {
		block := make([]complex64, n)
		for i := range block {
			off := (b*n + i) * BytesPerSample
			re := math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			im := math.Float32frombits(binary.LittleEndian.Uint32(data[off+4:]))
			block[i] = complex(re, im)
		}
		out[b] = block
	}
	return out, nil
}

// NewFrame decodes data into an IQFrame: flat when blocks is 1, segmented
// otherwise.
func NewFrame(data []byte, blocks int, fsHz, centerFreqHz float64, opts ...models.IQOption) (*models.IQFrame, error) {
	parts, err := Decode(data, blocks)
	if err != nil {
		return nil, err
	}
	if blocks == 1 {
		return models.NewIQFrame(parts[0], fsHz, centerFreqHz, opts...)
	}
	return models.NewSegmentedIQFrame(parts, fsHz, centerFreqHz, opts...)
}
