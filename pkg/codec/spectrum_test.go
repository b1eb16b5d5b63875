package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/rfscope/pkg/models"
)

func newFrame(t *testing.T, opts ...models.SpectrumOption) *models.SpectrumFrame {
	t.Helper()
	sf, err := models.NewSpectrumFrame([]float64{-120.5, -118.25, -99, -121.75}, 1000, 100e6, opts...)
	require.NoError(t, err)
	return sf
}

func decodeEnvelope(t *testing.T, s string) map[string]any {
	t.Helper()
	var env map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &env))
	return env
}

func reencode(t *testing.T, env map[string]any) string {
	t.Helper()
	b, err := json.Marshal(env)
	require.NoError(t, err)
	return string(b)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	sf := newFrame(t,
		models.WithVBW(300),
		models.WithWindow("hann"),
		models.WithAverages(8),
		models.WithNoiseFloor(-150),
		models.WithMetadata(map[string]any{"site": "roof", "run": 3, "gain": 12.5}),
	)

	encoded, err := Encode(sf)
	require.NoError(t, err)

	got, err := Decode(encoded)
	require.NoError(t, err)

	assert.True(t, sf.Equal(got))
	assert.Equal(t, sf.FrequenciesHz(), got.FrequenciesHz())
	vbw, ok := got.VBWHz()
	assert.True(t, ok)
	assert.Equal(t, 300.0, vbw)
	w, ok := got.Window()
	assert.True(t, ok)
	assert.Equal(t, "hann", w)
	assert.Equal(t, 8, got.Averages())
	assert.Equal(t, map[string]any{"site": "roof", "run": int64(3), "gain": 12.5}, got.Metadata())
}

func TestEncodeDecode_Float64IsExact(t *testing.T) {
	psd := []float64{-120.123456789012, -98.000000000001, -77.5}
	sf, err := models.NewSpectrumFrame(psd, 12.5, -50)
	require.NoError(t, err)

	encoded, err := Encode(sf, WithDType(Float64), WithLevel(9))
	require.NoError(t, err)

	got, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, psd, got.PSDdBmPerHz())

	h, err := DecodeHeader(encoded)
	require.NoError(t, err)
	assert.Equal(t, "float64", h.PSDDType)
}

func TestEncodeDecode_OptionalFieldsStayAbsent(t *testing.T) {
	encoded, err := Encode(newFrame(t))
	require.NoError(t, err)

	env := decodeEnvelope(t, encoded)
	header := env["header"].(map[string]any)
	assert.Contains(t, header, "vbw_hz")
	assert.Nil(t, header["vbw_hz"])
	assert.Nil(t, header["window"])
	assert.Nil(t, header["noise_floor_dbm_per_hz"])
	assert.Equal(t, Name, header["codec"])
	assert.Equal(t, float64(Version), header["version"])
	assert.Equal(t, "float32", header["psd_dtype"])

	got, err := Decode(encoded)
	require.NoError(t, err)
	_, ok := got.VBWHz()
	assert.False(t, ok)
	_, ok = got.Window()
	assert.False(t, ok)
	_, ok = got.NoiseFloorDBmPerHz()
	assert.False(t, ok)
	assert.Equal(t, 1, got.Averages())
}

func TestEncode_CompactJSON(t *testing.T) {
	encoded, err := Encode(newFrame(t))
	require.NoError(t, err)
	assert.NotContains(t, encoded, ": ")
	assert.NotContains(t, encoded, "\n")
	assert.True(t, strings.HasPrefix(encoded, `{"header":{"rbw_hz":1000,`))
}

func TestEncode_InvalidOptions(t *testing.T) {
	sf := newFrame(t)

	_, err := Encode(sf, WithLevel(10))
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = Encode(sf, WithLevel(-1))
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = Encode(sf, WithDType("int16"))
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = Encode(nil)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestEncode_MetadataIsMadeJSONSafe(t *testing.T) {
	sf := newFrame(t, models.WithMetadata(map[string]any{
		"nan":    math.NaN(),
		"inf":    math.Inf(1),
		"nested": map[string]any{"x": math.Inf(-1)},
		"list":   []float64{1, math.NaN()},
		"fn":     func() {},
	}))

	encoded, err := Encode(sf)
	require.NoError(t, err)

	got, err := Decode(encoded)
	require.NoError(t, err)
	md := got.Metadata()
	assert.Equal(t, "NaN", md["nan"])
	assert.Equal(t, "+Inf", md["inf"])
	assert.Equal(t, map[string]any{"x": "-Inf"}, md["nested"])
	assert.Equal(t, []any{int64(1), "NaN"}, md["list"])
	assert.IsType(t, "", md["fn"])
}

func TestDecode_Rejects(t *testing.T) {
	valid, err := Encode(newFrame(t))
	require.NoError(t, err)

	mutate := func(fn func(env, header map[string]any)) string {
		env := decodeEnvelope(t, valid)
		fn(env, env["header"].(map[string]any))
		return reencode(t, env)
	}

	tests := []struct {
		name  string
		input string
	}{
		{"not json", "not json"},
		{"json array", "[1,2,3]"},
		{"json null", "null"},
		{"missing header", mutate(func(env, _ map[string]any) { delete(env, "header") })},
		{"missing data", mutate(func(env, _ map[string]any) { delete(env, "data") })},
		{"header not object", mutate(func(env, _ map[string]any) { env["header"] = "x" })},
		{"missing rbw", mutate(func(_, h map[string]any) { delete(h, "rbw_hz") })},
		{"missing f_start", mutate(func(_, h map[string]any) { delete(h, "f_start_hz") })},
		{"missing averages", mutate(func(_, h map[string]any) { delete(h, "averages") })},
		{"wrong codec", mutate(func(_, h map[string]any) { h["codec"] = "gzip+npy" })},
		{"missing codec", mutate(func(_, h map[string]any) { delete(h, "codec") })},
		{"wrong version", mutate(func(_, h map[string]any) { h["version"] = 2 })},
		{"string version", mutate(func(_, h map[string]any) { h["version"] = "1" })},
		{"rbw not number", mutate(func(_, h map[string]any) { h["rbw_hz"] = "1000" })},
		{"rbw bool", mutate(func(_, h map[string]any) { h["rbw_hz"] = true })},
		{"averages float", mutate(func(_, h map[string]any) { h["averages"] = 1.5 })},
		{"vbw not number", mutate(func(_, h map[string]any) { h["vbw_hz"] = "wide" })},
		{"data not string", mutate(func(env, _ map[string]any) { env["data"] = 42 })},
		{"bad base64", mutate(func(env, _ map[string]any) { env["data"] = "!!!not-base64!!!" })},
		{"not zlib", mutate(func(env, _ map[string]any) {
			env["data"] = base64.StdEncoding.EncodeToString([]byte("plain bytes"))
		})},
		{"truncated zlib", mutate(func(env, _ map[string]any) {
			raw, _ := base64.StdEncoding.DecodeString(env["data"].(string))
			env["data"] = base64.StdEncoding.EncodeToString(raw[:len(raw)/2])
		})},
		{"not npy", mutate(func(env, _ map[string]any) {
			env["data"] = base64.StdEncoding.EncodeToString(deflate(t, []byte("definitely not npy")))
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.input)
			assert.ErrorIs(t, err, models.ErrInvalidFormat)
		})
	}
}

func TestDecode_AveragesWrittenAsFloatRejected(t *testing.T) {
	valid, err := Encode(newFrame(t))
	require.NoError(t, err)

	tampered := strings.Replace(valid, `"averages":1,`, `"averages":1.0,`, 1)
	require.NotEqual(t, valid, tampered)

	_, err = Decode(tampered)
	assert.ErrorIs(t, err, models.ErrInvalidFormat)
}

func TestDecode_ValidHeaderInvalidFrame(t *testing.T) {
	valid, err := Encode(newFrame(t))
	require.NoError(t, err)

	env := decodeEnvelope(t, valid)
	env["header"].(map[string]any)["rbw_hz"] = -1

	_, err = Decode(reencode(t, env))
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestDecode_AcceptsFloat64BigEndianPayload(t *testing.T) {
	header := "{'descr': '>f8', 'fortran_order': False, 'shape': (2,), }"
	blob := append([]byte("\x93NUMPY\x01\x00"), byte(len(header)), 0)
	blob = append(blob, header...)
	blob = append(blob, 0xC0, 0x59, 0, 0, 0, 0, 0, 0) // -100.0
	blob = append(blob, 0xC0, 0x58, 0, 0, 0, 0, 0, 0) // -96.0

	env := map[string]any{
		"header": map[string]any{
			"rbw_hz": 10, "f_start_hz": 0, "averages": 2,
			"codec": Name, "version": Version,
		},
		"data": base64.StdEncoding.EncodeToString(deflate(t, blob)),
	}

	got, err := Decode(reencode(t, env))
	require.NoError(t, err)
	assert.Equal(t, []float64{-100, -96}, got.PSDdBmPerHz())
	assert.Equal(t, []float64{0, 10}, got.FrequenciesHz())
	assert.Empty(t, got.Metadata())
}

func deflate(t *testing.T, b []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(b)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func envelopeWithPayload(t *testing.T, payload []byte) string {
	t.Helper()
	env := map[string]any{
		"header": map[string]any{
			"rbw_hz": 10, "f_start_hz": 0, "averages": 1,
			"codec": Name, "version": Version,
		},
		"data": base64.StdEncoding.EncodeToString(deflate(t, payload)),
	}
	return reencode(t, env)
}

func TestDecode_ShapeLargerThanPayload(t *testing.T) {
	header := "{'descr': '<f8', 'fortran_order': False, 'shape': (2305843009213693952,), }"
	blob := append([]byte("\x93NUMPY\x01\x00"), byte(len(header)), 0)
	blob = append(blob, header...)

	var err error
	require.NotPanics(t, func() { _, err = Decode(envelopeWithPayload(t, blob)) })
	assert.ErrorIs(t, err, models.ErrInvalidFormat)
}

func TestDecode_InflatedPayloadIsBounded(t *testing.T) {
	bomb := make([]byte, maxInflated+1)

	_, err := Decode(envelopeWithPayload(t, bomb))
	assert.ErrorIs(t, err, models.ErrInvalidFormat)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestInflate_Limit(t *testing.T) {
	comp := deflate(t, bytes.Repeat([]byte{0}, 100))

	raw, err := inflate(comp, 100)
	require.NoError(t, err)
	assert.Len(t, raw, 100)

	_, err = inflate(comp, 99)
	assert.Error(t, err)
}

func TestDecode_LargeAverages(t *testing.T) {
	valid, err := Encode(newFrame(t))
	require.NoError(t, err)

	big := strings.Replace(valid, `"averages":1,`, `"averages":3000000000,`, 1)
	sf, err := Decode(big)
	require.NoError(t, err)
	assert.EqualValues(t, int64(3000000000), sf.Averages())

	huge := strings.Replace(valid, `"averages":1,`, `"averages":99999999999999999999,`, 1)
	_, err = Decode(huge)
	assert.ErrorIs(t, err, models.ErrInvalidFormat)
	assert.Contains(t, err.Error(), "out of range")
}
