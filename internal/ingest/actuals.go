package ingest

import (
	"fmt"
	"strings"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
)

// ActualHeaders are the canonical columns of an actuals spreadsheet.
var ActualHeaders = []string{
	"Category",
	"Cost Center",
	"Date",
	"Account entry description",
	"Main Account",
	"Main Account Name",
	"Amount",
	"Party Name",
	"Document Description",
}

const (
	msgAmountType = "Mismatch in columns datatype. Expected datatype for column 'Amount' is Number, but the value could not be converted."
	msgDateType   = "Mismatch in columns datatype. Expected datatype for column 'Date' is a valid date format (e.g., YYYY-MM-DD), but the value could not be converted."
)

// rowError formats the errors of one data row; index is zero-based and the
// reported number accounts for the header row.
func rowError(index int, errs []string) string {
	return fmt.Sprintf("Row %d: %s", index+2, strings.Join(errs, "; "))
}

// ValidateActuals checks every row and returns all row errors.
func ValidateActuals(rows []domain.Row) []string {
	var errs []string
	for i, row := range rows {
		var rowErrs []string
		if amount, _ := FindByKey(row, "Amount"); amount != nil {
			if _, ok := ParseAccountingNumber(amount); !ok {
				rowErrs = append(rowErrs, msgAmountType)
			}
		}
		if date, _ := FindByKey(row, "Date"); date != nil {
			if _, ok := ParseDate(date); !ok && !isNumeric(date) {
				rowErrs = append(rowErrs, msgDateType)
			}
		}
		if len(rowErrs) > 0 {
			errs = append(errs, rowError(i, rowErrs))
		}
	}
	return errs
}

// TransformActual coerces one row. ok is false when the row has no
// resolvable Cost Center or Amount.
func TransformActual(row domain.Row) (domain.ActualRecord, bool) {
	costCenterRaw, _ := FindByKey(row, "Cost Center")
	costCenter, ok := toInt64(costCenterRaw)
	if !ok {
		return domain.ActualRecord{}, false
	}
	amountRaw, _ := FindByKey(row, "Amount")
	if amountRaw == nil {
		return domain.ActualRecord{}, false
	}
	amount, ok := ParseAccountingNumber(amountRaw)
	if !ok {
		return domain.ActualRecord{}, false
	}

	rec := domain.ActualRecord{
		CostCenter:  costCenter,
		Amount:      amount,
		MainAccount: strings.TrimSpace(toText(value(row, "Main Account"))),
	}
	if d, ok := ParseDate(value(row, "Date")); ok {
		rec.Date = &d
	}
	rec.Category = optionalText(value(row, "Category"))
	rec.AccountEntryDescription = optionalText(value(row, "Account entry description"))
	rec.MainAccountName = optionalText(value(row, "Main Account Name"))
	rec.PartyName = optionalText(value(row, "Party Name"))
	rec.DocumentDescription = optionalText(value(row, "Document Description"))
	return rec, true
}

// TransformActuals coerces every row and counts the rows it had to drop.
func TransformActuals(rows []domain.Row, versionID string) ([]domain.ActualRecord, int) {
	out := make([]domain.ActualRecord, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		rec, ok := TransformActual(row)
		if !ok {
			dropped++
			continue
		}
		rec.VersionID = versionID
		out = append(out, rec)
	}
	return out, dropped
}

func value(row domain.Row, name string) any {
	v, _ := FindByKey(row, name)
	return v
}

// ActualFromInput coerces a manually entered record keyed like a spreadsheet
// row. Cost Center and Amount are required; a present Date must parse.
func ActualFromInput(row domain.Row) (domain.ActualRecord, error) {
	if v, _ := FindByKey(row, "Cost Center"); v == nil {
		return domain.ActualRecord{}, &domain.ErrValidation{Field: "Cost Center", Message: "Cost Center is required"}
	} else if _, ok := toInt64(v); !ok {
		return domain.ActualRecord{}, &domain.ErrValidation{Field: "Cost Center", Message: "Cost Center must be a whole number"}
	}
	if v, _ := FindByKey(row, "Amount"); v == nil {
		return domain.ActualRecord{}, &domain.ErrValidation{Field: "Amount", Message: "Amount is required"}
	} else if _, ok := ParseAccountingNumber(v); !ok {
		return domain.ActualRecord{}, &domain.ErrValidation{Field: "Amount", Message: msgAmountType}
	}
	if v, _ := FindByKey(row, "Date"); v != nil {
		if _, ok := ParseDate(v); !ok {
			return domain.ActualRecord{}, &domain.ErrValidation{Field: "Date", Message: msgDateType}
		}
	}
	rec, _ := TransformActual(row)
	return rec, nil
}
