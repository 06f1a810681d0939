// Package validation decodes request bodies and query strings into typed
// request structs and checks them against their validate tags, producing
// one client-facing message for the first problem found.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	isoDatePattern = `^\d{4}-\d{2}-\d{2}$`

	// maxSafeInteger is the largest integer a float64 holds exactly (2^53 - 1).
	maxSafeInteger = 1<<53 - 1
)

var isoDate = regexp.MustCompile(isoDatePattern)

// Error is a client-facing validation failure.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// ErrInvalidJSON is returned when a body cannot be parsed as a JSON object.
var ErrInvalidJSON = &Error{Message: "Invalid JSON body"}

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		return isoDate.MatchString(fl.Field().String())
	})
	return &Validator{validate: v}
}

type decodeOptions struct {
	lenient bool
}

type Option func(*decodeOptions)

// Lenient ignores unknown keys and treats null values as absent.
func Lenient() Option {
	return func(o *decodeOptions) { o.lenient = true }
}

// DecodeJSON fills dst, a pointer to a request struct, from a JSON object.
func (v *Validator) DecodeJSON(body []byte, dst any, opts ...Option) error {
	var o decodeOptions
	for _, opt := range opts {
		opt(&o)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return ErrInvalidJSON
	}

	return v.decode(dst, o, func(key string) (rawValue, bool) {
		msg, ok := raw[key]
		if !ok {
			return rawValue{}, false
		}
		trimmed := bytes.TrimSpace(msg)
		if bytes.Equal(trimmed, []byte("null")) {
			if o.lenient {
				return rawValue{}, false
			}
			return rawValue{null: true}, true
		}
		if len(trimmed) > 0 && trimmed[0] == '"' {
			var s string
			if err := json.Unmarshal(trimmed, &s); err != nil {
				return rawValue{invalid: true}, true
			}
			return rawValue{str: s, isString: true}, true
		}
		if n, err := strconv.ParseFloat(string(trimmed), 64); err == nil {
			return rawValue{num: n, isNumber: true}, true
		}
		return rawValue{invalid: true}, true
	}, keysOf(raw))
}

// DecodeQuery fills dst from query string values. Numeric fields accept numeric strings.
func (v *Validator) DecodeQuery(values url.Values, dst any) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}

	return v.decode(dst, decodeOptions{}, func(key string) (rawValue, bool) {
		vals, ok := values[key]
		if !ok {
			return rawValue{}, false
		}
		if len(vals) != 1 {
			return rawValue{invalid: true}, true
		}
		return rawValue{str: vals[0], isString: true}, true
	}, keys)
}

// rawValue is one input value before it is converted to its field type.
type rawValue struct {
	str      string
	num      float64
	isString bool
	isNumber bool
	null     bool
	invalid  bool
}

func keysOf(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func (v *Validator) decode(dst any, o decodeOptions, lookup func(string) (rawValue, bool), keys []string) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("validation: destination must be a pointer to a struct, got %T", dst)
	}
	sv := rv.Elem()
	st := sv.Type()

	known := make(map[string]bool, st.NumField())
	order := make(map[string]int, st.NumField())
	var (
		convErr   *Error
		convIndex = -1
	)

	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		name := strings.SplitN(sf.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			continue
		}
		known[name] = true
		order[sf.Name] = i

		val, ok := lookup(name)
		if !ok || convErr != nil {
			continue
		}
		if err := assign(sv.Field(i), sf, name, val); err != nil {
			var verr *Error
			if !errors.As(err, &verr) {
				return err
			}
			convErr, convIndex = verr, i
		}
	}

	var first *Error
	if err := v.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validation: %w", err)
		}
		if len(verrs) > 0 {
			fe := verrs[0]
			if idx, ok := order[fe.StructField()]; !ok || convErr == nil || idx < convIndex {
				first = &Error{Field: fe.Field(), Message: message(fe)}
			}
		}
	}
	if first == nil && convErr != nil {
		first = convErr
	}
	if first != nil {
		return first
	}

	if o.lenient {
		return nil
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !known[k] {
			return &Error{Field: k, Message: fmt.Sprintf(`"%s" is not allowed`, k)}
		}
	}
	return nil
}

// assign converts val to the type of field, which must be a pointer to string, int64 or float64.
// A field restricted by oneof reports any other value, whatever its type, against the allowed set.
func assign(field reflect.Value, sf reflect.StructField, name string, val rawValue) error {
	if field.Kind() != reflect.Pointer {
		return fmt.Errorf("validation: field %q must be a pointer", name)
	}
	elem := field.Type().Elem()

	switch elem.Kind() {
	case reflect.String:
		if !val.isString {
			if allowed, ok := oneOfParam(sf); ok {
				return &Error{Field: name, Message: oneOfMessage(name, allowed)}
			}
			return &Error{Field: name, Message: fmt.Sprintf("%q must be a string", name)}
		}
		p := reflect.New(elem)
		p.Elem().SetString(val.str)
		field.Set(p)

	case reflect.Float64, reflect.Int64:
		n, ok := toNumber(val)
		if !ok {
			return &Error{Field: name, Message: fmt.Sprintf("%q must be a number", name)}
		}
		if n > maxSafeInteger || n < -maxSafeInteger {
			return &Error{Field: name, Message: fmt.Sprintf("%q must be a safe number", name)}
		}
		p := reflect.New(elem)
		if elem.Kind() == reflect.Int64 {
			if n != math.Trunc(n) {
				return &Error{Field: name, Message: fmt.Sprintf("%q must be an integer", name)}
			}
			p.Elem().SetInt(int64(n))
		} else {
			p.Elem().SetFloat(n)
		}
		field.Set(p)

	default:
		return fmt.Errorf("validation: unsupported field type %s for %q", elem, name)
	}
	return nil
}

// oneOfParam returns the parameter of the oneof rule in the field's validate tag.
func oneOfParam(sf reflect.StructField) (string, bool) {
	for _, rule := range strings.Split(sf.Tag.Get("validate"), ",") {
		if param, ok := strings.CutPrefix(rule, "oneof="); ok {
			return param, true
		}
	}
	return "", false
}

func toNumber(val rawValue) (float64, bool) {
	var n float64
	switch {
	case val.isNumber:
		n = val.num
	case val.isString:
		s := strings.TrimSpace(val.str)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
