package ingest

import "testing"

func TestToInt64(t *testing.T) {
	tests := []struct {
		in     any
		want   int64
		wantOK bool
	}{
		{"14152001", 14152001, true},
		{" 730007 ", 730007, true},
		{float64(14152003), 14152003, true},
		{"14152001.0", 14152001, true},
		{"12.5", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := toInt64(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("toInt64(%v) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
