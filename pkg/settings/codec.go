package settings

import (
	"encoding/json"
	"image/color"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Codec converts a typed value to and from its canonical string form.
// Canonical strings never depend on the process locale.
type Codec[T any] interface {
	// Name is the type name reported in TypeError.
	Name() string
	// Format renders v in canonical form.
	Format(v T) string
	// Parse reads a canonical string. On failure it returns the codec's
	// sentinel value and false.
	Parse(s string) (T, bool)
	// Sentinel is the value reported when nothing parses.
	Sentinel() T
}

// NewCodec builds a Codec from a format function and a parse function.
// sentinel is returned whenever parse reports an error.
func NewCodec[T any](name string, sentinel T, format func(T) string, parse func(string) (T, error)) Codec[T] {
	return funcCodec[T]{name: name, sentinel: sentinel, format: format, parse: parse}
}

type funcCodec[T any] struct {
	name     string
	sentinel T
	format   func(T) string
	parse    func(string) (T, error)
}

func (c funcCodec[T]) Name() string { return c.name }
func (c funcCodec[T]) Format(v T) string { return c.format(v) }
func (c funcCodec[T]) Sentinel() T { return c.sentinel }

func (c funcCodec[T]) Parse(s string) (T, bool) {
	v, err := c.parse(s)
	if err != nil {
		return c.sentinel, false
	}
	return v, true
}

type parseError string

func (e parseError) Error() string { return string(e) }

const (
	errFieldCount = parseError("wrong number of fields")
	errNotOneRune = parseError("not a single character")
	errNotBool    = parseError("not a boolean")
)

// Built-in codecs for every supported setting type.
var (
	Bool = NewCodec("bool", false, formatBool, parseBool)

	Byte = NewCodec("byte", uint8(math.MaxUint8),
		func(v uint8) string { return strconv.FormatUint(uint64(v), 10) },
		func(s string) (uint8, error) {
			n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8)
			return uint8(n), err
		})

	Int = NewCodec("int", int32(math.MaxInt32),
		func(v int32) string { return strconv.FormatInt(int64(v), 10) },
		func(s string) (int32, error) {
			n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
			return int32(n), err
		})

	Uint = NewCodec("uint", uint32(math.MaxUint32),
		func(v uint32) string { return strconv.FormatUint(uint64(v), 10) },
		func(s string) (uint32, error) {
			n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
			return uint32(n), err
		})

	Double = NewCodec("double", math.MaxFloat64, formatFloat, parseFloat)

	Char = NewCodec("char", rune(0),
		func(v rune) string { return string(v) },
		func(s string) (rune, error) {
			if utf8.RuneCountInString(s) != 1 {
				return 0, errNotOneRune
			}
			r, _ := utf8.DecodeRuneInString(s)
			return r, nil
		})

	String = NewCodec("string", "",
		func(v string) string { return v },
		func(s string) (string, error) { return s, nil })

	// Time uses RFC 3339 with nanoseconds, which round-trips exactly.
	Time = NewCodec("time", time.Time{},
		func(v time.Time) string { return v.Format(time.RFC3339Nano) },
		func(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, strings.TrimSpace(s)) })

	// Color is stored as A,R,G,B.
	Color = NewCodec("color", color.NRGBA{}, formatColor, parseColor)

	Point3dCodec = NewCodec("point3d", UnsetPoint3d,
		func(p Point3d) string { return joinFloats(p.X, p.Y, p.Z) },
		func(s string) (Point3d, error) {
			f, err := splitFloats(s, 3)
			if err != nil {
				return Point3d{}, err
			}
			return Point3d{X: f[0], Y: f[1], Z: f[2]}, nil
		})

	Point2dCodec = NewCodec("point2d", UnsetPoint2d,
		func(p Point2d) string { return joinFloats(p.X, p.Y) },
		func(s string) (Point2d, error) {
			f, err := splitFloats(s, 2)
			if err != nil {
				return Point2d{}, err
			}
			return Point2d{X: f[0], Y: f[1]}, nil
		})

	SizeCodec = NewCodec("size", Size{},
		func(v Size) string { return joinInts(v.Width, v.Height) },
		func(s string) (Size, error) {
			n, err := splitInts(s, 2)
			if err != nil {
				return Size{}, err
			}
			return Size{Width: n[0], Height: n[1]}, nil
		})

	RectangleCodec = NewCodec("rectangle", Rectangle{},
		func(r Rectangle) string { return joinInts(r.Left, r.Top, r.Width, r.Height) },
		func(s string) (Rectangle, error) {
			n, err := splitInts(s, 4)
			if err != nil {
				return Rectangle{}, err
			}
			return Rectangle{Left: n[0], Top: n[1], Width: n[2], Height: n[3]}, nil
		})

	GUID = NewCodec("guid", uuid.Nil,
		func(v uuid.UUID) string { return v.String() },
		func(s string) (uuid.UUID, error) { return uuid.Parse(strings.TrimSpace(s)) })

	// StringList is stored as a JSON array so items may contain commas.
	StringList = NewCodec[[]string]("string list", nil,
		func(v []string) string {
			if v == nil {
				v = []string{}
			}
			b, _ := json.Marshal(v)
			return string(b)
		},
		func(s string) ([]string, error) {
			var out []string
			if err := json.Unmarshal([]byte(s), &out); err != nil {
				return nil, err
			}
			return out, nil
		})
)

func formatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

func parseBool(s string) (bool, error) {
	switch t := strings.TrimSpace(s); {
	case strings.EqualFold(t, "true"):
		return true, nil
	case strings.EqualFold(t, "false"):
		return false, nil
	}
	return false, errNotBool
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func formatColor(c color.NRGBA) string {
	return joinInts(int(c.A), int(c.R), int(c.G), int(c.B))
}

func parseColor(s string) (color.NRGBA, error) {
	fields, err := splitFields(s, 4)
	if err != nil {
		return color.NRGBA{}, err
	}
	var argb [4]uint8
	for i, f := range fields {
		n, err := strconv.ParseUint(f, 10, 8)
		if err != nil {
			return color.NRGBA{}, err
		}
		argb[i] = uint8(n)
	}
	return color.NRGBA{A: argb[0], R: argb[1], G: argb[2], B: argb[3]}, nil
}

func splitFields(s string, n int) ([]string, error) {
	fields := strings.Split(s, ",")
	if len(fields) != n {
		return nil, errFieldCount
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields, nil
}

func splitFloats(s string, n int) ([]float64, error) {
	fields, err := splitFields(s, n)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i, f := range fields {
		if out[i], err = strconv.ParseFloat(f, 64); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func splitInts(s string, n int) ([]int, error) {
	fields, err := splitFields(s, n)
	if err != nil {
		return nil, err
	}
	out := make([]int, n)
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 32)
		if err != nil {
			return nil, err
		}
		out[i] = int(v)
	}
	return out, nil
}

func joinFloats(vs ...float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, ",")
}

func joinInts(vs ...int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
