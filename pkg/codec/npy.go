package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/RMahshie/rfscope/pkg/models"
)

// NPY array container, format version 1.0:
//
//	\x93NUMPY | major=1 minor=0 | uint16 LE header length | header | data
//
// The header is a python dict literal padded with spaces and terminated by
// '\n' so that the data starts on a 64-byte boundary.

var npyMagic = []byte("\x93NUMPY")

const (
	npyAlign = 64
	// numpy reserves room for the first axis to grow to this many digits.
	npyGrowthAxisDigits = 21
)

// DType is the floating-point width used to store PSD values.
type DType string

const (
	Float32 DType = "float32"
	Float64 DType = "float64"
)

// ParseDType resolves a dtype name. "f4" and "f8" are accepted as aliases.
func ParseDType(name string) (DType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "float32", "f4":
		return Float32, nil
	case "float64", "f8":
		return Float64, nil
	}
	return "", fmt.Errorf("%w: dtype must be float32 or float64, got %q", models.ErrInvalidArgument, name)
}

func (d DType) descr() (string, error) {
	switch d {
	case Float32:
		return "<f4", nil
	case Float64:
		return "<f8", nil
	}
	return "", fmt.Errorf("dtype must be a floating dtype (float32 or float64), got %q", string(d))
}

func (d DType) size() int {
	if d == Float32 {
		return 4
	}
	return 8
}

// writeNPY serialises a 1-D array as an NPY v1.0 blob.
func writeNPY(values []float64, dtype DType) ([]byte, error) {
	descr, err := dtype.descr()
	if err != nil {
		return nil, err
	}

	shape := strconv.Itoa(len(values))
	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%s,), }", descr, shape)
	header += strings.Repeat(" ", npyGrowthAxisDigits-len(shape))

	// magic + version + length field + header + '\n'
	unpadded := len(npyMagic) + 2 + 2 + len(header) + 1
	header += strings.Repeat(" ", npyAlign-unpadded%npyAlign) + "\n"

	var buf bytes.Buffer
	buf.Grow(len(npyMagic) + 4 + len(header) + len(values)*dtype.size())
	buf.Write(npyMagic)
	buf.Write([]byte{1, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)

	raw := make([]byte, dtype.size())
	for _, v := range values {
		if dtype == Float32 {
			binary.LittleEndian.PutUint32(raw, math.Float32bits(float32(v)))
		} else {
			binary.LittleEndian.PutUint64(raw, math.Float64bits(v))
		}
		buf.Write(raw)
	}
	return buf.Bytes(), nil
}

// npyHeader is the parsed subset of the header dict this codec supports.
type npyHeader struct {
	order    binary.ByteOrder
	itemSize int
	fortran  bool
	shape    []int
}

// readNPY parses an NPY blob holding a 1-D float32 or float64 array.
func readNPY(blob []byte) ([]float64, DType, error) {
	if len(blob) < len(npyMagic)+4 || !bytes.Equal(blob[:len(npyMagic)], npyMagic) {
		return nil, "", errors.New("missing NPY magic")
	}
	major := blob[len(npyMagic)]
	rest := blob[len(npyMagic)+2:]

	var hlen int
	switch major {
	case 1:
		hlen = int(binary.LittleEndian.Uint16(rest))
		rest = rest[2:]
	case 2, 3:
		if len(rest) < 4 {
			return nil, "", errors.New("truncated NPY header length")
		}
		hlen = int(binary.LittleEndian.Uint32(rest))
		rest = rest[4:]
	default:
		return nil, "", fmt.Errorf("unsupported NPY format version %d", major)
	}
	if hlen > len(rest) {
		return nil, "", errors.New("truncated NPY header")
	}

	h, err := parseNPYHeader(string(rest[:hlen]))
	if err != nil {
		return nil, "", err
	}
	if len(h.shape) != 1 {
		return nil, "", fmt.Errorf("PSD array must be 1-D, got shape %v", h.shape)
	}

	data := rest[hlen:]
	n := h.shape[0]
	if n > len(data)/h.itemSize || len(data) != n*h.itemSize {
		return nil, "", fmt.Errorf("NPY data holds %d bytes, want %d", len(data), n*h.itemSize)
	}

	out := make([]float64, n)
	for i := range out {
		chunk := data[i*h.itemSize : (i+1)*h.itemSize]
		if h.itemSize == 4 {
			out[i] = float64(math.Float32frombits(h.order.Uint32(chunk)))
		} else {
			out[i] = math.Float64frombits(h.order.Uint64(chunk))
		}
	}

	dtype := Float64
	if h.itemSize == 4 {
		dtype = Float32
	}
	return out, dtype, nil
}

// parseNPYHeader reads the 'descr', 'fortran_order' and 'shape' keys of a
// header dict literal such as {'descr': '<f4', 'fortran_order': False, 'shape': (3,), }.
func parseNPYHeader(s string) (npyHeader, error) {
	var h npyHeader
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return h, errors.New("NPY header is not a dict literal")
	}

	descr, err := dictValue(s, "descr")
	if err != nil {
		return h, err
	}
	descr = strings.Trim(descr, `'"`)
	if len(descr) != 3 || descr[1] != 'f' {
		return h, fmt.Errorf("unsupported NPY dtype %q", descr)
	}
	switch descr[0] {
	case '<', '|', '=':
		h.order = binary.LittleEndian
	case '>':
		h.order = binary.BigEndian
	default:
		return h, fmt.Errorf("unsupported NPY byte order in %q", descr)
	}
	switch descr[2] {
	case '4':
		h.itemSize = 4
	case '8':
		h.itemSize = 8
	default:
		return h, fmt.Errorf("unsupported NPY dtype %q", descr)
	}

	fortran, err := dictValue(s, "fortran_order")
	if err != nil {
		return h, err
	}
	switch fortran {
	case "False":
	case "True":
		h.fortran = true
	default:
		return h, fmt.Errorf("invalid fortran_order %q", fortran)
	}

	shape, err := dictValue(s, "shape")
	if err != nil {
		return h, err
	}
	if !strings.HasPrefix(shape, "(") || !strings.HasSuffix(shape, ")") {
		return h, fmt.Errorf("invalid shape %q", shape)
	}
	for _, dim := range strings.Split(strings.Trim(shape, "()"), ",") {
		dim = strings.TrimSpace(dim)
		if dim == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(dim, "L"))
		if err != nil || n < 0 {
			return h, fmt.Errorf("invalid shape dimension %q", dim)
		}
		h.shape = append(h.shape, n)
	}
	return h, nil
}

// dictValue returns the raw literal stored under key. Values are either a
// quoted string, a tuple, or a bare word.
func dictValue(dict, key string) (string, error) {
	idx := -1
	for _, q := range []string{"'", `"`} {
		if i := strings.Index(dict, q+key+q); i >= 0 {
			idx = i + len(key) + 2
			break
		}
	}
	if idx < 0 {
		return "", fmt.Errorf("NPY header missing %q", key)
	}
	rest := strings.TrimSpace(dict[idx:])
	if !strings.HasPrefix(rest, ":") {
		return "", fmt.Errorf("NPY header malformed near %q", key)
	}
	rest = strings.TrimSpace(rest[1:])

	var end int
	switch {
	case strings.HasPrefix(rest, "("):
		end = strings.Index(rest, ")") + 1
	case strings.HasPrefix(rest, "'"), strings.HasPrefix(rest, `"`):
		end = strings.Index(rest[1:], rest[:1]) + 2
	default:
		end = strings.IndexAny(rest, ",}")
	}
	if end <= 0 {
		return "", fmt.Errorf("NPY header malformed near %q", key)
	}
	return strings.TrimSpace(rest[:end]), nil
}
