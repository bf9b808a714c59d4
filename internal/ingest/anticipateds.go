package ingest

import (
	"sort"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
)

// AnticipatedFixedHeaders are the non-month columns of an anticipateds sheet.
var AnticipatedFixedHeaders = []string{"Account name", "MainAccount", "CostCenter"}

const (
	msgCostCenterMissing  = `The "CostCenter" value is required but is missing in this row.`
	msgMainAccountMissing = `The "MainAccount" value is required but is missing in this row`
	msgNoMonthData        = "Row contains no valid monthly amount data or invalid format."
)

// DropEmptyRows removes rows whose every value is nil or blank.
func DropEmptyRows(rows []domain.Row) []domain.Row {
	out := make([]domain.Row, 0, len(rows))
	for _, row := range rows {
		if !isBlankRow(row) {
			out = append(out, row)
		}
	}
	return out
}

// ValidateAnticipateds checks every row and returns all row errors.
func ValidateAnticipateds(rows []domain.Row) []string {
	var errs []string
	for i, row := range rows {
		var rowErrs []string
		if value(row, "CostCenter") == nil {
			rowErrs = append(rowErrs, msgCostCenterMissing)
		}
		if value(row, "MainAccount") == nil {
			rowErrs = append(rowErrs, msgMainAccountMissing)
		}
		hasMonth := false
		for k := range row {
			if IsMonthToken(NormalizeMonthKey(k)) {
				hasMonth = true
				break
			}
		}
		if !hasMonth {
			rowErrs = append(rowErrs, msgNoMonthData)
		}
		if len(rowErrs) > 0 {
			errs = append(errs, rowError(i, rowErrs))
		}
	}
	return errs
}

// SpacingFix records a month column whose hyphen spacing was collapsed.
type SpacingFix struct {
	From string
	To   string
}

// TransformAnticipated coerces one row. ok is false when CostCenter or
// MainAccount cannot be read as a number. Month columns whose token names no
// calendar month, or whose value is not a number, are left out.
func TransformAnticipated(row domain.Row) (domain.AnticipatedRecord, []SpacingFix, bool) {
	costCenter, ok := toInt64(value(row, "CostCenter"))
	if !ok {
		return domain.AnticipatedRecord{}, nil, false
	}
	mainAccount, ok := toInt64(value(row, "MainAccount"))
	if !ok {
		return domain.AnticipatedRecord{}, nil, false
	}

	rec := domain.AnticipatedRecord{
		AccountName: optionalText(value(row, "Account name")),
		MainAccount: mainAccount,
		CostCenter:  costCenter,
	}

	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var fixes []SpacingFix
	for _, k := range keys {
		norm := NormalizeMonthKey(k)
		if !IsMonthToken(norm) {
			continue
		}
		month, ok := domain.ParseMonthToken(norm)
		if !ok {
			continue
		}
		if norm != k {
			fixes = append(fixes, SpacingFix{From: k, To: norm})
		}
		amount, ok := ParseAccountingNumber(row[k])
		if !ok {
			continue
		}
		rec.Months.Set(month, amount)
	}
	rec.Months.Sort()
	return rec, fixes, true
}

// TransformAnticipateds coerces every row and counts the rows it had to drop.
func TransformAnticipateds(rows []domain.Row, versionID string) ([]domain.AnticipatedRecord, int, []SpacingFix) {
	out := make([]domain.AnticipatedRecord, 0, len(rows))
	var fixes []SpacingFix
	dropped := 0
	for _, row := range rows {
		rec, f, ok := TransformAnticipated(row)
		if !ok {
			dropped++
			continue
		}
		rec.VersionID = versionID
		fixes = append(fixes, f...)
		out = append(out, rec)
	}
	return out, dropped, fixes
}
