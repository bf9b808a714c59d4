package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Month identifies a calendar month independent of any display format.
type Month struct {
	Year  int
	Month time.Month
}

var monthAbbrev = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonthToken parses a "Mar-25" style token. Letters are case-insensitive
// and the two-digit year is read as 20YY.
func ParseMonthToken(s string) (Month, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 6 || s[3] != '-' {
		return Month{}, false
	}
	m, ok := monthAbbrev[strings.ToLower(s[:3])]
	if !ok {
		return Month{}, false
	}
	yy, err := strconv.Atoi(s[4:])
	if err != nil || yy < 0 {
		return Month{}, false
	}
	return Month{Year: 2000 + yy, Month: m}, true
}

// String renders the month as "Mar-25".
func (m Month) String() string {
	return fmt.Sprintf("%s-%02d", m.Month.String()[:3], m.Year%100)
}

// Before reports whether m is chronologically earlier than o.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Month) UnmarshalText(b []byte) error {
	parsed, ok := ParseMonthToken(string(b))
	if !ok {
		return fmt.Errorf("invalid month token %q", string(b))
	}
	*m = parsed
	return nil
}

// MonthAmount is one monthly amount of an anticipated line.
type MonthAmount struct {
	Month  Month
	Amount decimal.Decimal
}

// MonthAmounts is an ordered month -> amount mapping. It encodes as a JSON
// object whose keys keep chronological order.
type MonthAmounts []MonthAmount

// Set stores amount for month, replacing an existing entry.
func (ma *MonthAmounts) Set(month Month, amount decimal.Decimal) {
	for i := range *ma {
		if (*ma)[i].Month == month {
			(*ma)[i].Amount = amount
			return
		}
	}
	*ma = append(*ma, MonthAmount{Month: month, Amount: amount})
}

// Sort orders the entries chronologically.
func (ma MonthAmounts) Sort() {
	sort.Slice(ma, func(i, j int) bool { return ma[i].Month.Before(ma[j].Month) })
}

// Total sums every monthly amount.
func (ma MonthAmounts) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range ma {
		total = total.Add(e.Amount)
	}
	return total
}

func (ma MonthAmounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range ma {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(e.Month.String())
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(e.Amount)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (ma *MonthAmounts) UnmarshalJSON(b []byte) error {
	var raw map[Month]decimal.Decimal
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(MonthAmounts, 0, len(raw))
	for m, amount := range raw {
		out = append(out, MonthAmount{Month: m, Amount: amount})
	}
	out.Sort()
	*ma = out
	return nil
}
