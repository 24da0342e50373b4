// Package coerce converts the text typed into a condition line into a value
// of the field's declared type.
package coerce

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rebeliceyang/lazysearch/internal/models"
)

// Input formats accepted for date and datetime values
const (
	DateFormat     = "%d/%m/%Y"
	DateTimeFormat = "%d/%m/%Y %H:%M:%S"

	dateLayout     = "2/1/2006"
	dateTimeLayout = "2/1/2006 15:04:05"
)

// ValueFormatError is returned when a raw value does not parse as the
// field's declared type
type ValueFormatError struct {
	Field  string
	Value  string
	Type   models.FieldType
	Format string
	Err    error
}

func (e *ValueFormatError) Error() string {
	switch e.Type {
	case models.TypeDate:
		return fmt.Sprintf("error building domain of type Date, please check the format: field '%s', value '%s', format '%s'",
			e.Field, e.Value, e.Format)
	case models.TypeDateTime, models.TypeTimestamp:
		return fmt.Sprintf("error building domain of type DateTime or Timestamp, please check the format: field '%s', value '%s', format '%s'",
			e.Field, e.Value, e.Format)
	default:
		return fmt.Sprintf("error building domain of type %s, please ensure you have put a number: field '%s', value '%s'",
			e.Type, e.Field, e.Value)
	}
}

func (e *ValueFormatError) Unwrap() error { return e.Err }

// UnsupportedFieldTypeError is returned for declared types without a coercion rule
type UnsupportedFieldTypeError struct {
	Field string
	Value string
	Type  models.FieldType
}

func (e *UnsupportedFieldTypeError) Error() string {
	return fmt.Sprintf("field '%s' of type %q is not implemented yet (value '%s')", e.Field, e.Type, e.Value)
}

// Coerce converts raw into a value typed after t.
//
// Booleans are true for any non-empty text, including "false".
func Coerce(field string, t models.FieldType, raw string) (any, error) {
	switch t {
	case models.TypeBoolean:
		return raw != "", nil
	case models.TypeInteger:
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, &ValueFormatError{Field: field, Value: raw, Type: t, Err: err}
		}
		return v, nil
	case models.TypeFloat:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, &ValueFormatError{Field: field, Value: raw, Type: t, Err: err}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &ValueFormatError{Field: field, Value: raw, Type: t, Err: ErrNotFinite}
		}
		return v, nil
	case models.TypeNumeric:
		return parseNumeric(field, raw)
	case models.TypeDate:
		v, err := time.Parse(dateLayout, strings.TrimSpace(raw))
		if err != nil {
			return nil, &ValueFormatError{Field: field, Value: raw, Type: t, Format: DateFormat, Err: err}
		}
		return models.DateOf(v), nil
	case models.TypeDateTime, models.TypeTimestamp:
		v, err := time.Parse(dateTimeLayout, strings.TrimSpace(raw))
		if err != nil {
			return nil, &ValueFormatError{Field: field, Value: raw, Type: t, Format: DateTimeFormat, Err: err}
		}
		return v, nil
	case models.TypeChar, models.TypeText, models.TypeSelection,
		models.TypeReference, models.TypeMany2One, models.TypeOne2Many:
		return raw, nil
	}
	return nil, &UnsupportedFieldTypeError{Field: field, Value: raw, Type: t}
}

// parseNumeric keeps the exact decimal digits of raw
func parseNumeric(field, raw string) (pgtype.Numeric, error) {
	n, err := ParseDecimal(raw)
	if err != nil {
		return pgtype.Numeric{}, &ValueFormatError{Field: field, Value: raw, Type: models.TypeNumeric, Err: err}
	}
	return n, nil
}

// Limits of a PostgreSQL numeric: digits before and after the decimal point
const (
	maxWeight = 131072
	maxScale  = 16383
)

// ErrNotFinite is returned for NaN and infinite values
var ErrNotFinite = errors.New("not a finite number")

// ParseDecimal parses decimal text such as "12.50", "-.5" or "2.5e-3" into
// an exact numeric. NaN and infinities are rejected.
func ParseDecimal(text string) (pgtype.Numeric, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return pgtype.Numeric{}, errors.New("empty value")
	}

	mantissa, exponent := text, ""
	if i := strings.IndexAny(text, "eE"); i >= 0 {
		mantissa, exponent = text[:i], text[i+1:]
		if exponent == "" {
			return pgtype.Numeric{}, fmt.Errorf("invalid decimal %q", text)
		}
	}

	sign := ""
	if mantissa != "" && (mantissa[0] == '-' || mantissa[0] == '+') {
		if mantissa[0] == '-' {
			sign = "-"
		}
		mantissa = mantissa[1:]
	}
	intPart, fracPart, _ := strings.Cut(mantissa, ".")
	digits := intPart + fracPart
	if digits == "" || strings.Trim(digits, "0123456789") != "" {
		switch strings.ToLower(mantissa) {
		case "nan", "inf", "infinity":
			return pgtype.Numeric{}, ErrNotFinite
		}
		return pgtype.Numeric{}, fmt.Errorf("invalid decimal %q", text)
	}

	exp := int64(0)
	if exponent != "" {
		e, err := strconv.ParseInt(exponent, 10, 32)
		if err != nil {
			return pgtype.Numeric{}, fmt.Errorf("invalid decimal exponent %q: %w", text, err)
		}
		exp = e
	}
	exp -= int64(len(fracPart))
	if exp < -maxScale || exp > maxWeight {
		return pgtype.Numeric{}, fmt.Errorf("decimal exponent out of range %q", text)
	}

	i, ok := new(big.Int).SetString(sign+digits, 10)
	if !ok {
		return pgtype.Numeric{}, fmt.Errorf("invalid decimal %q", text)
	}
	return pgtype.Numeric{Int: i, Exp: int32(exp), Valid: true}, nil
}
