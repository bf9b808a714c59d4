package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Reference data
// ============================================================

// CostCenter is an organizational budget unit.
type CostCenter struct {
	CostCenter     int64  `json:"costCenter"`
	CostCenterName string `json:"costCenterName"`
}

// SpendType classifies a main account for bucketing.
type SpendType string

const (
	SpendTypePeople  SpendType = "people"
	SpendTypeProgram SpendType = "program"
)

// AccountSpendType maps a numeric main account to a display name and spend type.
type AccountSpendType struct {
	MainAccount     int64     `json:"mainAccount"`
	MainAccountName string    `json:"mainAccountName"`
	SpendType       SpendType `json:"spendType"`
}

// ============================================================
// Canonical records
// ============================================================

// ActualRecord is one recorded expenditure line.
// MainAccount is kept as text; lookups coerce it to a number.
type ActualRecord struct {
	ID                      string          `json:"id"`
	VersionID               string          `json:"versionId,omitempty"`
	Category                *string         `json:"category"`
	CostCenter              int64           `json:"costCenter"`
	Date                    *time.Time      `json:"date"`
	AccountEntryDescription *string         `json:"accountEntryDescription"`
	MainAccount             string          `json:"mainAccount"`
	MainAccountName         *string         `json:"mainAccountName"`
	Amount                  decimal.Decimal `json:"amount"`
	PartyName               *string         `json:"partyName"`
	DocumentDescription     *string         `json:"documentDescription"`
}

// AnticipatedRecord is one forecast line with its monthly amounts.
type AnticipatedRecord struct {
	ID          string       `json:"id"`
	VersionID   string       `json:"versionId,omitempty"`
	AccountName *string      `json:"accountName"`
	MainAccount int64        `json:"mainAccount"`
	CostCenter  int64        `json:"costCenter"`
	Months      MonthAmounts `json:"months"`
}
