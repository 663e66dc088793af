package expect

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

type builtin struct {
	info    TypeInfo
	aliases []string
}

func builtins() []builtin {
	return []builtin{
		{info: TypeInfo{Name: "int", Type: reflect.TypeOf(0), Construct: toInt}},
		{info: TypeInfo{Name: "float", Type: reflect.TypeOf(0.0), Construct: toFloat}},
		{info: TypeInfo{Name: "str", Type: reflect.TypeOf(""), Construct: toStr}, aliases: []string{"string"}},
		{info: TypeInfo{Name: "bool", Type: reflect.TypeOf(false), Construct: toBool}},
		{info: TypeInfo{Name: "bytes", Type: reflect.TypeOf([]byte(nil)), Construct: toBytes}},
		{info: TypeInfo{Name: "duration", Type: reflect.TypeOf(time.Duration(0)), Construct: toDuration}},
		{info: TypeInfo{Name: "timestamp", Type: reflect.TypeOf(time.Time{}), Construct: toTimestamp}},
		{info: TypeInfo{Name: "uuid", Type: reflect.TypeOf(uuid.UUID{}), Construct: toUUID}},
	}
}

var errUnsupported = errors.New("unsupported source type")

func unsupported(v any) error {
	return fmt.Errorf("%w %s", errUnsupported, TypeName(v))
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func floatToInt(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("cannot convert %v to int", f)
	}
	t := math.Trunc(f)
	if t >= math.MaxInt64 || t < math.MinInt64 {
		return 0, fmt.Errorf("%v overflows int", f)
	}
	return int(t), nil
}

func toInt(v any) (any, error) {
	rv := reflect.ValueOf(v)
	switch k := rv.Kind(); {
	case isInt(k):
		return int(rv.Int()), nil
	case isUint(k):
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("%d overflows int", u)
		}
		return int(u), nil
	case isFloat(k):
		return floatToInt(rv.Float())
	case k == reflect.Bool:
		if rv.Bool() {
			return 1, nil
		}
		return 0, nil
	case k == reflect.String:
		s := strings.TrimSpace(rv.String())
		n, err := strconv.Atoi(s)
		if err == nil {
			return n, nil
		}
		// "2.0" and "1e3" are whole numbers; "2.9" is not.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return nil, err
		}
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("%q is not a whole number", s)
		}
		return floatToInt(f)
	}
	return nil, unsupported(v)
}

func toFloat(v any) (any, error) {
	rv := reflect.ValueOf(v)
	switch k := rv.Kind(); {
	case isInt(k):
		return float64(rv.Int()), nil
	case isUint(k):
		return float64(rv.Uint()), nil
	case isFloat(k):
		return rv.Float(), nil
	case k == reflect.Bool:
		if rv.Bool() {
			return 1.0, nil
		}
		return 0.0, nil
	case k == reflect.String:
		return strconv.ParseFloat(strings.TrimSpace(rv.String()), 64)
	}
	return nil, unsupported(v)
}

func toStr(v any) (any, error) {
	switch x := v.(type) {
	case []byte:
		if !utf8.Valid(x) {
			return nil, errors.New("bytes are not valid UTF-8")
		}
		return string(x), nil
	case fmt.Stringer:
		return x.String(), nil
	}

	rv := reflect.ValueOf(v)
	switch k := rv.Kind(); {
	case k == reflect.String:
		return rv.String(), nil
	case isInt(k), isUint(k), isFloat(k), k == reflect.Bool:
		return fmt.Sprint(v), nil
	}
	return nil, unsupported(v)
}

func toBool(v any) (any, error) {
	rv := reflect.ValueOf(v)
	switch k := rv.Kind(); {
	case k == reflect.Bool:
		return rv.Bool(), nil
	case isInt(k):
		return rv.Int() != 0, nil
	case isUint(k):
		return rv.Uint() != 0, nil
	case isFloat(k):
		return rv.Float() != 0, nil
	case k == reflect.String:
		return strconv.ParseBool(strings.TrimSpace(rv.String()))
	}
	return nil, unsupported(v)
}

func toBytes(v any) (any, error) {
	rv := reflect.ValueOf(v)
	switch {
	case rv.Kind() == reflect.String:
		return []byte(rv.String()), nil
	case rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8:
		return append([]byte(nil), rv.Bytes()...), nil
	}
	return nil, unsupported(v)
}

func toDuration(v any) (any, error) {
	rv := reflect.ValueOf(v)
	switch k := rv.Kind(); {
	case k == reflect.String:
		return time.ParseDuration(strings.TrimSpace(rv.String()))
	case isInt(k):
		return time.Duration(rv.Int()), nil
	}
	return nil, unsupported(v)
}

func toTimestamp(v any) (any, error) {
	rv := reflect.ValueOf(v)
	switch k := rv.Kind(); {
	case k == reflect.String:
		return time.Parse(time.RFC3339Nano, strings.TrimSpace(rv.String()))
	case isInt(k):
		return time.Unix(rv.Int(), 0).UTC(), nil
	}
	return nil, unsupported(v)
}

func toUUID(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return uuid.Parse(strings.TrimSpace(x))
	case []byte:
		return uuid.FromBytes(x)
	case [16]byte:
		return uuid.UUID(x), nil
	case fmt.Stringer:
		return uuid.Parse(x.String())
	}
	return nil, unsupported(v)
}
