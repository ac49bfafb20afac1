package canon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Marshal produces the canonical byte encoding used for content-addressed
// identity computation and for every persisted brain document.
//
// Rules:
//  1. Object keys sorted by byte order of the exact key string, recursively
//  2. Array order preserved verbatim
//  3. No HTML escaping (< > & are NOT escaped)
//  4. Integers without exponent; floats in shortest round-trip form with
//     a mandatory fraction or exponent marker
//  5. NaN and infinities return an error
func Marshal(v any) ([]byte, error) {
	cv, err := FromAny(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := marshalCanonical(&buf, cv); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalCanonical(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case Null:
		buf.WriteString("null")
		return nil
	case Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
		return nil
	case Float:
		return marshalCanonicalFloat(buf, float64(val))
	case String:
		return marshalCanonicalString(buf, string(val))
	case Array:
		return marshalCanonicalArray(buf, val)
	case Object:
		return marshalCanonicalObject(buf, val)
	default:
		return fmt.Errorf("unsupported type for canonical encoding: %T", v)
	}
}

// marshalCanonicalFloat writes the shortest form that round-trips the
// float64 exactly. Integral floats get a ".0" suffix so that Float and
// Int encodings never collide ("2.0" vs "2").
func marshalCanonicalFloat(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("non-finite number not representable: %v", f)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	buf.WriteString(s)
	return nil
}

// marshalCanonicalString writes a JSON string with minimum escaping:
//   - No HTML escaping (<, >, & stay literal)
//   - U+2028 and U+2029 stay literal
//   - Only control characters (U+0000-U+001F), backslash, and quote escape
func marshalCanonicalString(buf *bytes.Buffer, s string) error {
	var sub bytes.Buffer
	enc := json.NewEncoder(&sub)
	enc.SetEscapeHTML(false) // <, >, & must NOT be escaped
	if err := enc.Encode(s); err != nil {
		return err
	}

	// json.Encoder adds a trailing newline, remove it.
	result := sub.Bytes()
	if len(result) > 0 && result[len(result)-1] == '\n' {
		result = result[:len(result)-1]
	}

	// Go's json.Encoder escapes U+2028/U+2029 for JavaScript compatibility.
	// Canonical encoding keeps them literal, so they are unescaped here.
	// A \u202x sequence preceded by an odd run of backslashes is literal
	// backslash text, not an escape, and must be left alone.
	result = unescapeU2028U2029(result)

	buf.Write(result)
	return nil
}

// unescapeU2028U2029 converts \u2028 and \u2029 escape sequences to
// literal characters, preserving sequences that are themselves escaped.
func unescapeU2028U2029(data []byte) []byte {
	// Fast path: nothing to do.
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	var result []byte
	i := 0
	for i < len(data) {
		if i+6 <= len(data) && data[i] == '\\' && data[i+1] == 'u' &&
			data[i+2] == '2' && data[i+3] == '0' && data[i+4] == '2' &&
			(data[i+5] == '8' || data[i+5] == '9') {
			// Count the backslashes immediately before this position in
			// the output built so far. An even count (including zero)
			// means this backslash starts a real \u202x escape.
			backslashes := 0
			if result == nil {
				for j := i - 1; j >= 0 && data[j] == '\\'; j-- {
					backslashes++
				}
			} else {
				for j := len(result) - 1; j >= 0 && result[j] == '\\'; j-- {
					backslashes++
				}
			}
			if backslashes%2 == 0 {
				if result == nil {
					result = make([]byte, 0, len(data))
					result = append(result, data[:i]...)
				}
				if data[i+5] == '8' {
					result = append(result, "\u2028"...)
				} else {
					result = append(result, "\u2029"...)
				}
				i += 6
				continue
			}
		}

		if result != nil {
			result = append(result, data[i])
		}
		i++
	}

	if result == nil {
		return data
	}
	return result
}

func marshalCanonicalArray(buf *bytes.Buffer, arr Array) error {
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := marshalCanonical(buf, elem); err != nil {
			return fmt.Errorf("array[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

func marshalCanonicalObject(buf *bytes.Buffer, obj Object) error {
	buf.WriteByte('{')
	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := marshalCanonicalString(buf, k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		buf.WriteByte(':')
		if err := marshalCanonical(buf, obj[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}
