package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rebeliceyang/lazysearch/internal/models"
)

// Encode serializes d for the presentation layer. Leaves become 3-element
// arrays; dates, datetimes and decimals become objects tagged with
// "__class__".
func Encode(d Domain) (string, error) {
	data, err := json.Marshal(encodeDomain(d))
	if err != nil {
		return "", fmt.Errorf("failed to encode filter: %w", err)
	}
	return string(data), nil
}

func encodeDomain(d Domain) []any {
	out := make([]any, 0, len(d))
	for _, term := range d {
		switch t := term.(type) {
		case Connective:
			out = append(out, string(t))
		case Leaf:
			out = append(out, []any{t.Path, string(t.Operator), encodeValue(t.Value)})
		case Domain:
			out = append(out, encodeDomain(t))
		}
	}
	return out
}

func encodeValue(v any) any {
	switch val := v.(type) {
	case models.Date:
		return map[string]any{
			"__class__": "date",
			"year":      val.Year,
			"month":     int(val.Month),
			"day":       val.Day,
		}
	case time.Time:
		return map[string]any{
			"__class__":   "datetime",
			"year":        val.Year(),
			"month":       int(val.Month()),
			"day":         val.Day(),
			"hour":        val.Hour(),
			"minute":      val.Minute(),
			"second":      val.Second(),
			"microsecond": val.Nanosecond() / int(time.Microsecond),
		}
	case pgtype.Numeric:
		return map[string]any{
			"__class__": "Decimal",
			"decimal":   NumericText(val),
		}
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = encodeValue(item)
		}
		return out
	}
	return v
}
