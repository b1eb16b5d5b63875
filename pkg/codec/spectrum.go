// Package codec serialises SpectrumFrame values to a compact, versioned JSON
// envelope for transport and storage.
//
// Round-trip format:
//
//	PSD -> NPY (float32 by default) -> zlib -> base64
//
// wrapped as {"header": {...}, "data": "<base64>"}. The header carries the
// scalar frame fields together with the codec identifier and format version,
// both of which are checked on decode.
package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/klauspost/compress/zlib"

	"github.com/RMahshie/rfscope/pkg/models"
)

const (
	// Name identifies the envelope layout.
	Name = "zlib+npy"
	// Version is the header version written and accepted by this package.
	Version = 1
	// DefaultLevel is the zlib compression level used when none is given.
	DefaultLevel = 6
	// MaxBins bounds the PSD length Decode will inflate.
	MaxBins = 1 << 22

	maxNPYHeader = 1 << 16
	maxInflated  = MaxBins*8 + maxNPYHeader
)

// Header is the JSON header of an encoded spectrum.
type Header struct {
	RBWHz              float64        `json:"rbw_hz" yaml:"rbw_hz"`
	FStartHz           float64        `json:"f_start_hz" yaml:"f_start_hz"`
	VBWHz              *float64       `json:"vbw_hz" yaml:"vbw_hz"`
	Window             *string        `json:"window" yaml:"window"`
	Averages           int            `json:"averages" yaml:"averages"`
	NoiseFloorDBmPerHz *float64       `json:"noise_floor_dbm_per_hz" yaml:"noise_floor_dbm_per_hz"`
	Metadata           map[string]any `json:"metadata" yaml:"metadata"`
	PSDDType           string         `json:"psd_dtype" yaml:"psd_dtype"`
	Codec              string         `json:"codec" yaml:"codec"`
	Version            int            `json:"version" yaml:"version"`
}

type envelope struct {
	Header Header `json:"header"`
	Data   string `json:"data"`
}

type options struct {
	level int
	dtype DType
}

// Option configures Encode.
type Option func(*options)

// WithLevel sets the zlib compression level (0-9).
func WithLevel(level int) Option {
	return func(o *options) { o.level = level }
}

// WithDType sets the storage width of PSD values.
func WithDType(dtype DType) Option {
	return func(o *options) { o.dtype = dtype }
}

// Encode serialises sf into a JSON envelope string.
func Encode(sf *models.SpectrumFrame, opts ...Option) (string, error) {
	o := options{level: DefaultLevel, dtype: Float32}
	for _, opt := range opts {
		opt(&o)
	}
	if sf == nil {
		return "", fmt.Errorf("%w: spectrum frame is nil", models.ErrInvalidArgument)
	}
	if o.level < 0 || o.level > 9 {
		return "", fmt.Errorf("%w: compression level must be in [0, 9], got %d", models.ErrInvalidArgument, o.level)
	}

	blob, err := writeNPY(sf.PSDdBmPerHz(), o.dtype)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidArgument, err)
	}

	var comp bytes.Buffer
	zw, err := zlib.NewWriterLevel(&comp, o.level)
	if err != nil {
		return "", fmt.Errorf("failed to create zlib writer: %w", err)
	}
	if _, err := zw.Write(blob); err != nil {
		return "", fmt.Errorf("failed to compress PSD: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to compress PSD: %w", err)
	}

	h := Header{
		RBWHz:    sf.RBWHz(),
		FStartHz: sf.FStartHz(),
		Averages: sf.Averages(),
		Metadata: JSONSafeMetadata(sf.Metadata()),
		PSDDType: string(o.dtype),
		Codec:    Name,
		Version:  Version,
	}
	if v, ok := sf.VBWHz(); ok {
		h.VBWHz = &v
	}
	if w, ok := sf.Window(); ok {
		h.Window = &w
	}
	if nf, ok := sf.NoiseFloorDBmPerHz(); ok {
		h.NoiseFloorDBmPerHz = &nf
	}

	out, err := json.Marshal(envelope{Header: h, Data: base64.StdEncoding.EncodeToString(comp.Bytes())})
	if err != nil {
		return "", fmt.Errorf("failed to marshal spectrum envelope: %w", err)
	}
	return string(out), nil
}

// Decode parses an envelope produced by Encode (or any compatible encoder)
// and rebuilds the frame through models.NewSpectrumFrame.
func Decode(s string) (*models.SpectrumFrame, error) {
	h, data, err := parseEnvelope(s)
	if err != nil {
		return nil, err
	}

	comp, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 PSD payload: %v", models.ErrInvalidFormat, err)
	}

	raw, err := inflate(comp, maxInflated)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid zlib-compressed PSD payload: %v", models.ErrInvalidFormat, err)
	}

	psd, _, err := readNPY(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid npy payload for PSD data: %v", models.ErrInvalidFormat, err)
	}

	opts := []models.SpectrumOption{
		models.WithAverages(h.Averages),
		models.WithMetadata(h.Metadata),
	}
	if h.VBWHz != nil {
		opts = append(opts, models.WithVBW(*h.VBWHz))
	}
	if h.Window != nil {
		opts = append(opts, models.WithWindow(*h.Window))
	}
	if h.NoiseFloorDBmPerHz != nil {
		opts = append(opts, models.WithNoiseFloor(*h.NoiseFloorDBmPerHz))
	}
	return models.NewSpectrumFrame(psd, h.RBWHz, h.FStartHz, opts...)
}

// inflate decompresses a zlib stream, failing once the output exceeds limit bytes.
func inflate(comp []byte, limit int64) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(comp))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	raw, err := io.ReadAll(io.LimitReader(zr, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > limit {
		return nil, fmt.Errorf("inflated payload exceeds %d bytes", limit)
	}
	return raw, nil
}

// DecodeHeader validates an envelope and returns its header without
// inflating the PSD payload.
func DecodeHeader(s string) (Header, error) {
	h, _, err := parseEnvelope(s)
	return h, err
}

func parseEnvelope(s string) (Header, string, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		return Header{}, "", fmt.Errorf("%w: invalid JSON; cannot parse spectrum payload: %v", models.ErrInvalidFormat, err)
	}
	if payload == nil {
		return Header{}, "", fmt.Errorf("%w: invalid payload; expected JSON object", models.ErrInvalidFormat)
	}

	rawHeader, ok := payload["header"]
	if !ok {
		return Header{}, "", fmt.Errorf("%w: missing required field in payload: %q", models.ErrInvalidFormat, "header")
	}
	rawData, ok := payload["data"]
	if !ok {
		return Header{}, "", fmt.Errorf("%w: missing required field in payload: %q", models.ErrInvalidFormat, "data")
	}

	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(rawHeader))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return Header{}, "", fmt.Errorf("%w: invalid header; expected object", models.ErrInvalidFormat)
	}
	h, err := validateHeader(fields)
	if err != nil {
		return Header{}, "", err
	}

	var data string
	if err := json.Unmarshal(rawData, &data); err != nil {
		return Header{}, "", fmt.Errorf("%w: field %q must be a base64 string", models.ErrInvalidFormat, "data")
	}
	return h, data, nil
}

// validateHeader checks required fields, codec identity, version and the
// numeric types of the scalar fields.
func validateHeader(fields map[string]any) (Header, error) {
	for _, key := range []string{"rbw_hz", "f_start_hz", "averages"} {
		if _, ok := fields[key]; !ok {
			return Header{}, fmt.Errorf("%w: header missing required field: %q", models.ErrInvalidFormat, key)
		}
	}

	codecName, _ := fields["codec"].(string)
	if codecName != Name {
		return Header{}, fmt.Errorf("%w: unsupported codec %v; expected %q", models.ErrInvalidFormat, fields["codec"], Name)
	}
	if v, ok := number(fields["version"]); !ok || v != Version {
		return Header{}, fmt.Errorf("%w: unsupported header version %v; expected %d", models.ErrInvalidFormat, fields["version"], Version)
	}

	h := Header{Codec: Name, Version: Version}
	var ok bool
	if h.RBWHz, ok = number(fields["rbw_hz"]); !ok {
		return Header{}, fmt.Errorf("%w: header field %q must be a number", models.ErrInvalidFormat, "rbw_hz")
	}
	if h.FStartHz, ok = number(fields["f_start_hz"]); !ok {
		return Header{}, fmt.Errorf("%w: header field %q must be a number", models.ErrInvalidFormat, "f_start_hz")
	}
	n, isNum := fields["averages"].(json.Number)
	averages, err := strconv.ParseInt(string(n), 10, strconv.IntSize)
	if isNum && errors.Is(err, strconv.ErrRange) {
		return Header{}, fmt.Errorf("%w: header field %q is out of range: %s", models.ErrInvalidFormat, "averages", n)
	}
	if !isNum || err != nil {
		return Header{}, fmt.Errorf("%w: header field %q must be an integer", models.ErrInvalidFormat, "averages")
	}
	h.Averages = int(averages)

	for key, dst := range map[string]**float64{
		"vbw_hz":                 &h.VBWHz,
		"noise_floor_dbm_per_hz": &h.NoiseFloorDBmPerHz,
	} {
		if fields[key] == nil {
			continue
		}
		v, ok := number(fields[key])
		if !ok {
			return Header{}, fmt.Errorf("%w: header field %q must be a number", models.ErrInvalidFormat, key)
		}
		*dst = &v
	}

	if w, ok := fields["window"].(string); ok {
		h.Window = &w
	}
	if dt, ok := fields["psd_dtype"].(string); ok {
		h.PSDDType = dt
	}
	if md, ok := fields["metadata"].(map[string]any); ok {
		h.Metadata = plainNumbers(md)
	} else {
		h.Metadata = map[string]any{}
	}
	return h, nil
}

func number(v any) (float64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

// plainNumbers turns json.Number values back into int64 or float64.
func plainNumbers(md map[string]any) map[string]any {
	out := make(map[string]any, len(md))
	for k, v := range md {
		out[k] = plainValue(v)
	}
	return out
}

func plainValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		return plainNumbers(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plainValue(e)
		}
		return out
	}
	return v
}
