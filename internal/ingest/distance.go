package ingest

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// headerDistance is the case-insensitive edit distance between two labels.
func headerDistance(a, b string) int {
	return levenshtein.ComputeDistance(strings.ToLower(a), strings.ToLower(b))
}
