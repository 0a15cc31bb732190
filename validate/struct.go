package validate

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/devmarvs/digibank/apperr"
)

// FieldError describes a validation failure for a field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors holds multiple field errors.
type Errors struct {
	Fields []FieldError
}

// Error implements the error interface.
func (e *Errors) Error() string {
	return "validation failed"
}

// First returns the first field message, for forms that show one line.
func (e *Errors) First() string {
	if e == nil || len(e.Fields) == 0 {
		return ""
	}
	return e.Fields[0].Message
}

// Message returns the message to display for err: the first field message of
// a struct validation, the apperr message otherwise.
func Message(err error) string {
	if verr, ok := As(err); ok {
		return verr.First()
	}
	if appErr := apperr.As(err); appErr != nil {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// As extracts validation errors if present.
func As(err error) (*Errors, bool) {
	var verr *Errors
	if err != nil && errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// ValidatorFunc validates a field with an optional parameter.
type ValidatorFunc func(field string, value reflect.Value, param string) *FieldError

// field is one tagged struct field under validation.
type field struct {
	name   string
	value  reflect.Value
	parent reflect.Value
	param  string
}

func (f field) fail(message string) *FieldError {
	return &FieldError{Field: f.name, Message: f.name + " " + message}
}

type rule func(f field) *FieldError

var builtin = map[string]rule{
	"required": checkRequired,
	"email":    checkEmail,
	"password": checkPassword,
	"eqfield":  checkEqualField,
	"oneof":    checkOneOf,
	"decimal":  checkDecimal,
	"min":      func(f field) *FieldError { return checkBound(f, false) },
	"max":      func(f field) *FieldError { return checkBound(f, true) },
}

var (
	customMu sync.RWMutex
	custom   = map[string]ValidatorFunc{}
)

// Register adds a custom validator by name. Built-in rule names cannot be
// replaced.
func Register(name string, fn ValidatorFunc) {
	name = strings.TrimSpace(name)
	if name == "" || fn == nil || builtin[name] != nil {
		return
	}
	customMu.Lock()
	custom[name] = fn
	customMu.Unlock()
}

func lookup(name string) rule {
	if check, ok := builtin[name]; ok {
		return check
	}
	customMu.RLock()
	fn := custom[name]
	customMu.RUnlock()
	if fn == nil {
		return nil
	}
	return func(f field) *FieldError { return fn(f.name, f.value, f.param) }
}

// Struct validates exported fields by their `validate` tags, naming fields
// by their `label` tag, then their json name. Rules: required, email,
// password, min=N, max=N, oneof=a|b, decimal=N (a non-negative number with
// at most N fraction digits) and eqfield=Other.
func Struct(value any) error {
	rv := reflect.Indirect(reflect.ValueOf(value))
	if rv.Kind() != reflect.Struct {
		return nil
	}

	var failures []FieldError
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		tag := sf.Tag.Get("validate")
		if !sf.IsExported() || tag == "" {
			continue
		}
		failures = append(failures, checkField(sf, rv.Field(i), rv, strings.Split(tag, ","))...)
	}
	if len(failures) == 0 {
		return nil
	}

	verr := &Errors{Fields: failures}
	notify(value, verr)
	return apperr.Validation("validation failed", verr)
}

func checkField(sf reflect.StructField, value, parent reflect.Value, tags []string) []FieldError {
	f := field{name: fieldName(sf), value: value, parent: parent}
	if value.Kind() == reflect.Pointer {
		if value.IsNil() {
			for _, tag := range tags {
				if strings.TrimSpace(tag) == "required" {
					return []FieldError{*f.fail("is required")}
				}
			}
			return nil
		}
		f.value = value.Elem()
	}

	var failures []FieldError
	for _, tag := range tags {
		name, param, _ := strings.Cut(strings.TrimSpace(tag), "=")
		check := lookup(strings.TrimSpace(name))
		if check == nil {
			continue
		}
		f.param = strings.TrimSpace(param)
		if failure := check(f); failure != nil {
			failures = append(failures, *failure)
		}
	}
	return failures
}

func fieldName(sf reflect.StructField) string {
	if label := sf.Tag.Get("label"); label != "" {
		return label
	}
	if name, _, _ := strings.Cut(sf.Tag.Get("json"), ","); name != "" && name != "-" {
		return name
	}
	return sf.Name
}

// text returns the field as a non-empty string, or false when the field is
// not a string or is empty. Empty strings are left to required.
func (f field) text() (string, bool) {
	if f.value.Kind() != reflect.String || f.value.String() == "" {
		return "", false
	}
	return f.value.String(), true
}

func checkRequired(f field) *FieldError {
	if !f.value.IsValid() || f.value.IsZero() {
		return f.fail("is required")
	}
	return nil
}

func checkEmail(f field) *FieldError {
	if value, ok := f.text(); ok && !validEmail(value) {
		return f.fail("must be a valid email")
	}
	return nil
}

func checkPassword(f field) *FieldError {
	if value, ok := f.text(); ok && !StrongPassword(value) {
		return &FieldError{Field: f.name, Message: PasswordPolicyMessage}
	}
	return nil
}

func checkEqualField(f field) *FieldError {
	other := f.parent.FieldByName(f.param)
	if !other.IsValid() || !reflect.DeepEqual(other.Interface(), f.value.Interface()) {
		return &FieldError{Field: f.name, Message: PasswordMismatchMessage}
	}
	return nil
}

func checkOneOf(f field) *FieldError {
	value, ok := f.text()
	if !ok {
		return nil
	}
	options := strings.Split(f.param, "|")
	for _, option := range options {
		if value == option {
			return nil
		}
	}
	return f.fail("must be one of " + strings.Join(options, ", "))
}

func checkDecimal(f field) *FieldError {
	raw, ok := f.text()
	if !ok {
		return nil
	}
	places, err := strconv.Atoi(f.param)
	if err != nil {
		return f.fail("is invalid")
	}
	number, err := strconv.ParseFloat(raw, 64)
	switch {
	case err != nil || strings.ContainsAny(raw, "eEinfINFxX"):
		return f.fail("must be a number")
	case number < 0:
		return f.fail("must be greater than or equal to 0")
	}
	if _, fraction, found := strings.Cut(raw, "."); found && len(fraction) > places {
		return f.fail("must have at most " + f.param + " decimal places")
	}
	return nil
}

// checkBound enforces min (upper false) or max (upper true): a rune count
// for strings, a length for collections and a value for numbers. Empty
// strings are left to required.
func checkBound(f field, upper bool) *FieldError {
	limit, err := strconv.ParseFloat(f.param, 64)
	if err != nil {
		return f.fail("is invalid")
	}

	var size float64
	numeric := false
	switch f.value.Kind() {
	case reflect.String:
		value, ok := f.text()
		if !ok {
			return nil
		}
		size = float64(utf8.RuneCountInString(value))
	case reflect.Slice, reflect.Array, reflect.Map:
		size = float64(f.value.Len())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		size, numeric = float64(f.value.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		size, numeric = float64(f.value.Uint()), true
	case reflect.Float32, reflect.Float64:
		size, numeric = f.value.Float(), true
	default:
		return nil
	}

	switch {
	case !upper && size < limit && numeric:
		return f.fail("must be at least " + f.param)
	case !upper && size < limit:
		return f.fail("is too short")
	case upper && size > limit && numeric:
		return f.fail("must be at most " + f.param)
	case upper && size > limit:
		return f.fail("is too long")
	}
	return nil
}
