package ingest

import (
	"fmt"
	"strings"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
)

// headerScanDepth bounds how many leading rows are considered as header rows.
const headerScanDepth = 5

// maxCorrectionDistance is the largest edit distance accepted as a typo.
const maxCorrectionDistance = 2

// Table is a grid projected onto its header row.
type Table struct {
	HeaderIndex int
	Confident   bool
	Headers     []string // non-empty labels, column order
	Rows        []domain.Row
	Expected    []string
}

// LocateHeaderRow returns the index of the row among the first five that
// contains the most expected headers, provided it holds at least half of
// them. When no row qualifies it returns 0 and confident=false.
func LocateHeaderRow(grid [][]string, expected []string) (index int, confident bool) {
	return locate(grid, func([]string) []string { return expected })
}

// locate scores every candidate row against its own expected set.
func locate(grid [][]string, expectedFor func(cells []string) []string) (int, bool) {
	best, bestScore := -1, -1
	for i := 0; i < min(headerScanDepth, len(grid)); i++ {
		cells := make(map[string]bool, len(grid[i]))
		for _, c := range grid[i] {
			cells[strings.ToLower(strings.TrimSpace(c))] = true
		}
		expected := expectedFor(grid[i])
		score := 0
		for _, e := range expected {
			if cells[strings.ToLower(e)] {
				score++
			}
		}
		if score > bestScore && float64(score) >= float64(len(expected))/2 {
			best, bestScore = i, score
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// project turns the rows after headerIndex into records keyed by labels.
// Columns with an empty label are skipped and empty cells read as nil.
func project(grid [][]string, headerIndex int, labels []string) ([]string, []domain.Row) {
	var headers []string
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if l != "" && !seen[l] {
			seen[l] = true
			headers = append(headers, l)
		}
	}
	if headerIndex+1 >= len(grid) {
		return headers, nil
	}
	rows := make([]domain.Row, 0, len(grid)-headerIndex-1)
	for _, cells := range grid[headerIndex+1:] {
		row := make(domain.Row, len(headers))
		for col, label := range labels {
			if label == "" {
				continue
			}
			var v any
			if col < len(cells) && cells[col] != "" {
				v = cells[col]
			}
			row[label] = v
		}
		rows = append(rows, row)
	}
	return headers, rows
}

func trimmedRow(grid [][]string, i int) []string {
	if i >= len(grid) {
		return nil
	}
	out := make([]string, len(grid[i]))
	for j, c := range grid[i] {
		out[j] = strings.TrimSpace(c)
	}
	return out
}

// NormalizeHeaders renames headers that are within two edits of an expected
// header across every row of the table and returns one note per rename.
// The closest expected header wins; ties go to the earliest in expected.
func NormalizeHeaders(t *Table, expected []string) []string {
	if len(t.Rows) == 0 || len(expected) == 0 {
		return nil
	}
	var corrections []string
	mapping := make(map[string]string)
	for _, original := range t.Headers {
		bestMatch, minDist := "", -1
		for _, e := range expected {
			d := headerDistance(original, e)
			if minDist == -1 || d < minDist {
				bestMatch, minDist = e, d
			}
		}
		if minDist > 0 && minDist <= maxCorrectionDistance && !strings.EqualFold(original, bestMatch) {
			mapping[original] = bestMatch
			corrections = append(corrections, fmt.Sprintf(`Corrected column header: "%s" was interpreted as "%s".`, original, bestMatch))
		}
	}
	if len(mapping) == 0 {
		return nil
	}

	originals := t.Headers
	t.Headers = make([]string, 0, len(originals))
	seen := make(map[string]bool, len(originals))
	for _, h := range originals {
		if to, ok := mapping[h]; ok {
			h = to
		}
		if !seen[h] {
			seen[h] = true
			t.Headers = append(t.Headers, h)
		}
	}
	for i, row := range t.Rows {
		renamed := make(domain.Row, len(row))
		for _, h := range originals {
			v, ok := row[h]
			if !ok {
				continue
			}
			if to, ok := mapping[h]; ok {
				h = to
			}
			renamed[h] = v
		}
		t.Rows[i] = renamed
	}
	return corrections
}
