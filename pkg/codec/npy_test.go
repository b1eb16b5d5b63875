package codec

import (
	"encoding/binary"
	"testing"

	"github.com/RMahshie/rfscope/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteNPY_HeaderLayout(t *testing.T) {
	for _, n := range []int{0, 1, 3, 1000, 70000} {
		values := make([]float64, n)
		blob, err := writeNPY(values, Float32)
		require.NoError(t, err)

		assert.Equal(t, npyMagic, blob[:6])
		assert.Equal(t, []byte{1, 0}, blob[6:8])
		hlen := int(binary.LittleEndian.Uint16(blob[8:10]))
		assert.Zero(t, (10+hlen)%npyAlign, "data must start on a 64-byte boundary")
		assert.Equal(t, byte('\n'), blob[10+hlen-1])
		assert.Len(t, blob, 10+hlen+4*len(values))
	}
}

func TestWriteNPY_MatchesNumpyHeader(t *testing.T) {
	blob, err := writeNPY([]float64{1, 2, 3}, Float32)
	require.NoError(t, err)

	// numpy.save(np.zeros(3, dtype='<f4')) produces a 118 byte header.
	hlen := int(binary.LittleEndian.Uint16(blob[8:10]))
	assert.Equal(t, 118, hlen)
	assert.Contains(t, string(blob[10:10+hlen]), "{'descr': '<f4', 'fortran_order': False, 'shape': (3,), }")
}

func TestReadNPY_RoundTrip(t *testing.T) {
	in := []float64{-120, -3.5, 0, 17.25}
	for _, dt := range []DType{Float32, Float64} {
		blob, err := writeNPY(in, dt)
		require.NoError(t, err)

		out, gotType, err := readNPY(blob)
		require.NoError(t, err)
		assert.Equal(t, in, out)
		assert.Equal(t, dt, gotType)
	}
}

func TestReadNPY_Rejects(t *testing.T) {
	valid, err := writeNPY([]float64{1, 2}, Float64)
	require.NoError(t, err)

	withHeader := func(h string) []byte {
		b := append([]byte("\x93NUMPY\x01\x00"), byte(len(h)), 0)
		return append(b, h...)
	}

	tests := []struct {
		name string
		blob []byte
	}{
		{"empty", nil},
		{"bad magic", append([]byte("XNUMPY"), valid[6:]...)},
		{"unknown version", append(append([]byte{}, valid[:6]...), append([]byte{9, 0}, valid[8:]...)...)},
		{"truncated data", valid[:len(valid)-3]},
		{"trailing data", append(append([]byte{}, valid...), 0)},
		{"int dtype", withHeader("{'descr': '<i4', 'fortran_order': False, 'shape': (0,), }")},
		{"complex dtype", withHeader("{'descr': '<c8', 'fortran_order': False, 'shape': (0,), }")},
		{"two dimensional", withHeader("{'descr': '<f4', 'fortran_order': False, 'shape': (1, 1), }")},
		{"scalar", withHeader("{'descr': '<f4', 'fortran_order': False, 'shape': (), }")},
		{"shape overflows byte count", withHeader("{'descr': '<f8', 'fortran_order': False, 'shape': (2305843009213693952,), }")},
		{"shape larger than data", append(withHeader("{'descr': '<f4', 'fortran_order': False, 'shape': (3,), }"), 0, 0, 0, 0)},
		{"missing shape", withHeader("{'descr': '<f4', 'fortran_order': False, }")},
		{"not a dict", withHeader("descr <f4")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := readNPY(tt.blob)
			assert.Error(t, err)
		})
	}
}

func TestParseDType(t *testing.T) {
	for name, want := range map[string]DType{"float32": Float32, "f4": Float32, " Float64 ": Float64, "f8": Float64} {
		got, err := ParseDType(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
	}

	_, err := ParseDType("float16")
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}
