// Package ingest turns loosely structured spreadsheet grids into canonical
// actual and anticipated records: header discovery, fuzzy header correction,
// month column inference, row validation and type coercion.
package ingest

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
)

// squash lower-cases s and removes every whitespace rune.
func squash(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

// FindByKey looks a field up ignoring case and whitespace in both the key and
// the row labels. String values are trimmed and a lone "-" reads as nil.
// found is false only when no label matches. When several labels match, a
// label equal to name wins, then the lexically smallest one, so the result
// does not depend on map order and a rebuild reads rows the way the upload did.
func FindByKey(row domain.Row, name string) (value any, found bool) {
	want := squash(name)
	key := ""
	for k := range row {
		if squash(k) != want {
			continue
		}
		if k == name {
			key, found = k, true
			break
		}
		if !found || k < key {
			key, found = k, true
		}
	}
	if !found {
		return nil, false
	}

	v := row[key]
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "-" {
			return nil, true
		}
		return s, true
	}
	return v, true
}

// ParseAccountingNumber reads accounting-style amounts: "1,234.50",
// "(300)" for -300. nil reads as zero, as does an empty string.
// ok is false when the value is not a number.
func ParseAccountingNumber(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case nil:
		return decimal.Zero, true
	case decimal.Decimal:
		return n, true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt32(n), true
	case int64:
		return decimal.NewFromInt(n), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case bool:
		if n {
			return decimal.NewFromInt(1), true
		}
		return decimal.Zero, true
	}

	s := strings.TrimSpace(toText(v))
	s = strings.ReplaceAll(s, ",", "")
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") && len(s) >= 2 {
		s = "-" + s[1:len(s)-1]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// toText renders a cell value as text; nil renders empty.
func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case decimal.Decimal:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// toInt64 coerces an identifier cell to an integer.
func toInt64(v any) (int64, bool) {
	if v == nil {
		return 0, false
	}
	s := strings.TrimSpace(toText(v))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

// optionalText returns nil for absent, nil or empty values.
func optionalText(v any) *string {
	s := strings.TrimSpace(toText(v))
	if s == "" {
		return nil
	}
	return &s
}

// isBlankRow reports whether every value of the row is nil or blank text.
func isBlankRow(row domain.Row) bool {
	for _, v := range row {
		if v != nil && strings.TrimSpace(toText(v)) != "" {
			return false
		}
	}
	return true
}
