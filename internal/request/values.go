package request

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/fivetwenty-io/discovery-client/pkg/discovery"
)

// stringify turns a caller-supplied parameter value into its wire strings.
// Scalars yield one string, slices one string per element. A nil value
// yields nil.
func stringify(value interface{}) ([]string, bool, error) {
	switch v := value.(type) {
	case nil:
		return nil, false, nil
	case string:
		return []string{v}, false, nil
	case []string:
		return append([]string(nil), v...), true, nil
	case bool:
		return []string{strconv.FormatBool(v)}, false, nil
	case json.Number:
		return []string{v.String()}, false, nil
	case float64:
		return []string{strconv.FormatFloat(v, 'f', -1, 64)}, false, nil
	case float32:
		return []string{strconv.FormatFloat(float64(v), 'f', -1, 32)}, false, nil
	case fmt.Stringer:
		return []string{v.String()}, false, nil
	}

	rv := reflect.ValueOf(value)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return []string{strconv.FormatInt(rv.Int(), 10)}, false, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return []string{strconv.FormatUint(rv.Uint(), 10)}, false, nil
	case reflect.Slice, reflect.Array:
		values := make([]string, 0, rv.Len())

		for i := 0; i < rv.Len(); i++ {
			elem, nested, err := stringify(rv.Index(i).Interface())
			if err != nil {
				return nil, true, err
			}

			if nested {
				return nil, true, errNestedList
			}

			values = append(values, elem...)
		}

		return values, true, nil
	default:
		return nil, false, fmt.Errorf("%w: %T", errUnsupportedValue, value)
	}
}

// checkValue validates one wire string against the parameter's declared
// type, range, enum and pattern. It returns a message, or "" when valid.
func checkValue(param *discovery.Parameter, value string) string {
	switch param.Type {
	case discovery.TypeInteger:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Sprintf("expects an integer, got %q", value)
		}

		if msg := checkRange(param, float64(n)); msg != "" {
			return msg
		}
	case discovery.TypeNumber:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(f) {
			return fmt.Sprintf("expects a number, got %q", value)
		}

		if msg := checkRange(param, f); msg != "" {
			return msg
		}
	case discovery.TypeBoolean:
		if value != "true" && value != "false" {
			return fmt.Sprintf("expects true or false, got %q", value)
		}
	}

	if !param.AllowsEnumValue(value) {
		return fmt.Sprintf("value %q is not one of %v", value, param.Enum)
	}

	if !param.MatchesPattern(value) {
		return fmt.Sprintf("value %q does not match pattern %s", value, param.Pattern)
	}

	return ""
}

func checkRange(param *discovery.Parameter, n float64) string {
	if param.Minimum != "" {
		minimum, err := strconv.ParseFloat(param.Minimum, 64)
		if err == nil && n < minimum {
			return fmt.Sprintf("value %v is below the minimum %s", n, param.Minimum)
		}
	}

	if param.Maximum != "" {
		maximum, err := strconv.ParseFloat(param.Maximum, 64)
		if err == nil && n > maximum {
			return fmt.Sprintf("value %v is above the maximum %s", n, param.Maximum)
		}
	}

	return ""
}
