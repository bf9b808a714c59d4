package ingest

import (
	"regexp"
	"strings"
	"time"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
)

var (
	monthTokenPattern = regexp.MustCompile(`^[A-Za-z]{3}-\d{2}$`)
	hyphenSpacing     = regexp.MustCompile(`\s*-\s*`)
)

// IsMonthToken reports whether s has the MMM-YY shape, e.g. "Mar-25".
func IsMonthToken(s string) bool {
	return monthTokenPattern.MatchString(s)
}

// NormalizeMonthKey trims k and collapses whitespace around its first
// hyphen: "Mar - 25" becomes "Mar-25".
func NormalizeMonthKey(k string) string {
	k = strings.TrimSpace(k)
	loc := hyphenSpacing.FindStringIndex(k)
	if loc == nil {
		return k
	}
	return k[:loc[0]] + "-" + k[loc[1]:]
}

// FormatMonthToken renders t as MMM-YY.
func FormatMonthToken(t time.Time) string {
	return domain.MonthOf(t).String()
}

// InferMonthHeader maps a raw header to its MMM-YY token when it denotes a
// month: canonical tokens pass through, spreadsheet serials and date text are
// reformatted. Anything else is returned trimmed and unchanged.
func InferMonthHeader(h string) string {
	trimmed := strings.TrimSpace(h)
	if trimmed == "" || IsMonthToken(trimmed) {
		return trimmed
	}
	if t, ok := parseSerial(trimmed); ok {
		return FormatMonthToken(t)
	}
	if t, ok := ParseDateString(trimmed); ok {
		return FormatMonthToken(t)
	}
	return trimmed
}

// MonthTokens infers every header and returns the distinct month tokens in
// column order.
func MonthTokens(headers []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, h := range headers {
		tok := InferMonthHeader(h)
		if !IsMonthToken(tok) || seen[strings.ToLower(tok)] {
			continue
		}
		seen[strings.ToLower(tok)] = true
		out = append(out, tok)
	}
	return out
}
