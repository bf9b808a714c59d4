package ingest

import (
	"strings"

	"go.uber.org/zap"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
)

// Pipeline runs header resolution, correction, validation and coercion for
// both record kinds.
type Pipeline struct {
	logger *zap.Logger
}

// NewPipeline creates a pipeline that logs through logger.
func NewPipeline(logger *zap.Logger) *Pipeline {
	return &Pipeline{logger: logger}
}

// Prepared is a validated upload ready to be versioned.
type Prepared struct {
	Kind        domain.RecordKind
	Table       Table
	Corrections []string
}

// Rows returns the normalized rows stored in the version snapshot.
func (p *Prepared) Rows() []domain.Row {
	return p.Table.Rows
}

// Prepare resolves the header row of grid, applies fuzzy header correction
// and validates every row. A non-empty error list rejects the whole upload
// with *domain.ErrValidationFailed.
func (p *Pipeline) Prepare(kind domain.RecordKind, grid [][]string) (*Prepared, error) {
	var (
		table Table
		errs  []string
	)
	switch kind {
	case domain.KindActuals:
		table = p.resolve(grid, ActualHeaders)
	case domain.KindAnticipateds:
		table = p.resolveAnticipateds(grid)
		table.Rows = DropEmptyRows(table.Rows)
	default:
		_, err := domain.ParseRecordKind(string(kind))
		return nil, err
	}

	corrections := NormalizeHeaders(&table, table.Expected)
	if len(corrections) > 0 {
		p.logger.Info("corrected column headers",
			zap.String("kind", string(kind)),
			zap.Strings("corrections", corrections),
		)
	}

	switch kind {
	case domain.KindActuals:
		errs = ValidateActuals(table.Rows)
	case domain.KindAnticipateds:
		errs = ValidateAnticipateds(table.Rows)
	}
	if len(errs) > 0 {
		return nil, &domain.ErrValidationFailed{Kind: kind, Errors: errs}
	}

	if corrections == nil {
		corrections = []string{}
	}
	return &Prepared{Kind: kind, Table: table, Corrections: corrections}, nil
}

// resolve locates the header row against a fixed expected set and projects
// the data rows.
func (p *Pipeline) resolve(grid [][]string, expected []string) Table {
	idx, confident := LocateHeaderRow(grid, expected)
	p.logHeaderRow(idx, confident)
	headers, rows := project(grid, idx, trimmedRow(grid, idx))
	return Table{HeaderIndex: idx, Confident: confident, Headers: headers, Rows: rows, Expected: expected}
}

// resolveAnticipateds lets each candidate row contribute its own month
// columns to its expected set. Month tokens only count for a row that also
// names one of the fixed columns, which keeps numeric data rows from
// posing as headers.
func (p *Pipeline) resolveAnticipateds(grid [][]string) Table {
	candidates := make([][]string, min(headerScanDepth, len(grid)))
	for i := range candidates {
		candidates[i] = inferRow(grid[i])
	}

	idx, confident := locate(candidates, anticipatedExpected)
	p.logHeaderRow(idx, confident)

	var labels []string
	if idx < len(candidates) {
		labels = candidates[idx]
	}
	headers, rows := project(grid, idx, labels)
	expected := append(append([]string(nil), AnticipatedFixedHeaders...), MonthTokens(labels)...)
	return Table{HeaderIndex: idx, Confident: confident, Headers: headers, Rows: rows, Expected: expected}
}

func inferRow(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = InferMonthHeader(c)
	}
	return out
}

func anticipatedExpected(cells []string) []string {
	expected := append([]string(nil), AnticipatedFixedHeaders...)
	for _, c := range cells {
		for _, f := range AnticipatedFixedHeaders {
			if strings.EqualFold(c, f) {
				return append(expected, MonthTokens(cells)...)
			}
		}
	}
	return expected
}

func (p *Pipeline) logHeaderRow(idx int, confident bool) {
	if !confident {
		p.logger.Warn("could not confidently identify a header row, defaulting to first row")
		return
	}
	p.logger.Debug("header row identified", zap.Int("row", idx+1))
}

// Batch is the canonical output of one version's rows.
type Batch struct {
	Actuals      []domain.ActualRecord
	Anticipateds []domain.AnticipatedRecord
	Dropped      int
}

// Len is the number of records to insert.
func (b Batch) Len() int {
	return len(b.Actuals) + len(b.Anticipateds)
}

// Transform coerces the rows of one version into canonical records tagged
// with versionID.
func (p *Pipeline) Transform(kind domain.RecordKind, rows []domain.Row, versionID string) Batch {
	var b Batch
	switch kind {
	case domain.KindActuals:
		b.Actuals, b.Dropped = TransformActuals(rows, versionID)
	case domain.KindAnticipateds:
		var fixes []SpacingFix
		b.Anticipateds, b.Dropped, fixes = TransformAnticipateds(rows, versionID)
		for _, f := range fixes {
			p.logger.Debug("corrected month column spacing",
				zap.String("from", f.From),
				zap.String("to", f.To),
				zap.String("version_id", versionID),
			)
		}
	}
	if b.Dropped > 0 {
		p.logger.Warn("dropped rows without resolvable identifiers",
			zap.String("kind", string(kind)),
			zap.String("version_id", versionID),
			zap.Int("dropped", b.Dropped),
		)
	}
	return b
}
