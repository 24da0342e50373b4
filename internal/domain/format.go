package domain

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rebeliceyang/lazysearch/internal/models"
)

// String renders d in the expression syntax accepted by Parse, so an
// attempted filter can be shown back to the user for editing.
func (d Domain) String() string {
	var b strings.Builder
	writeDomain(&b, d)
	return b.String()
}

func (l Leaf) String() string {
	var b strings.Builder
	writeLeaf(&b, l)
	return b.String()
}

func writeDomain(b *strings.Builder, d Domain) {
	b.WriteByte('[')
	for i, term := range d {
		if i > 0 {
			b.WriteString(", ")
		}
		switch t := term.(type) {
		case Connective:
			writeString(b, string(t))
		case Leaf:
			writeLeaf(b, t)
		case Domain:
			writeDomain(b, t)
		}
	}
	b.WriteByte(']')
}

func writeLeaf(b *strings.Builder, l Leaf) {
	b.WriteByte('(')
	writeString(b, l.Path)
	b.WriteString(", ")
	writeString(b, string(l.Operator))
	b.WriteString(", ")
	writeValue(b, l.Value)
	b.WriteByte(')')
}

func writeString(b *strings.Builder, s string) {
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
}

func writeValue(b *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
		b.WriteString("None")
	case bool:
		if val {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	case string:
		writeString(b, val)
	case int:
		b.WriteString(strconv.Itoa(val))
	case int64:
		b.WriteString(strconv.FormatInt(val, 10))
	case float64:
		b.WriteString(formatFloat(val))
	case pgtype.Numeric:
		b.WriteString("Decimal(")
		writeString(b, NumericText(val))
		b.WriteByte(')')
	case models.Date:
		fmt.Fprintf(b, "date(%d, %d, %d)", val.Year, int(val.Month), val.Day)
	case time.Time:
		fmt.Fprintf(b, "datetime(%d, %d, %d, %d, %d, %d)",
			val.Year(), int(val.Month()), val.Day(), val.Hour(), val.Minute(), val.Second())
	case []any:
		b.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				b.WriteString(", ")
			}
			writeValue(b, item)
		}
		b.WriteByte(']')
	default:
		writeString(b, fmt.Sprintf("%v", val))
	}
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// NumericText renders a finite numeric with its exact digits
func NumericText(n pgtype.Numeric) string {
	if !n.Valid || n.Int == nil {
		return "0"
	}
	digits := new(big.Int).Abs(n.Int).String()
	sign := ""
	if n.Int.Sign() < 0 {
		sign = "-"
	}

	if n.Exp >= 0 {
		return sign + digits + strings.Repeat("0", int(n.Exp))
	}

	scale := int(-n.Exp)
	if len(digits) <= scale {
		digits = strings.Repeat("0", scale-len(digits)+1) + digits
	}
	point := len(digits) - scale
	return sign + digits[:point] + "." + digits[point:]
}
