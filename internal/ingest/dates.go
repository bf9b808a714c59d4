package ingest

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Spreadsheet serial dates count days from 1899-12-30; 25569 is 1970-01-01.
const (
	serialUnixEpoch = 25569
	maxSerial       = 2958465 // 9999-12-31
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"01-02-2006",
	"01-02-06",
	"02-Jan-2006",
	"2-Jan-2006",
	"02-Jan-06",
	"2-Jan-06",
	"02 Jan 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"Jan 2006",
	"January 2006",
	"Jan-2006",
	"Mon Jan 2 2006",
	"Mon, 02 Jan 2006 15:04:05 MST",
}

// SerialToTime converts a spreadsheet serial day number to a UTC time.
func SerialToTime(serial float64) time.Time {
	secs := math.Round((serial - serialUnixEpoch) * 86400)
	return time.Unix(int64(secs), 0).UTC()
}

// parseSerial accepts numeric text within the spreadsheet date range.
func parseSerial(s string) (time.Time, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 1 || f > maxSerial {
		return time.Time{}, false
	}
	return SerialToTime(f), true
}

// ParseDateString parses s against the accepted date layouts.
func ParseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseDate reads a cell as a date: time values, serial numbers or date text.
func ParseDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t.UTC(), !t.IsZero()
	case float64:
		return parseSerial(strconv.FormatFloat(t, 'f', -1, 64))
	case int:
		return parseSerial(strconv.Itoa(t))
	case int64:
		return parseSerial(strconv.FormatInt(t, 10))
	case json.Number:
		return parseSerial(t.String())
	}
	s := strings.TrimSpace(toText(v))
	if t, ok := parseSerial(s); ok {
		return t, true
	}
	return ParseDateString(s)
}

// isNumeric reports whether v is a number or numeric text.
func isNumeric(v any) bool {
	switch v.(type) {
	case float64, float32, int, int32, int64, json.Number:
		return true
	}
	_, err := strconv.ParseFloat(strings.TrimSpace(toText(v)), 64)
	return err == nil
}
