package domain

import "github.com/shopspring/decimal"

// ============================================================
// Dashboard (GET /v1/budget)
// ============================================================

// SpendItem is one account-name bucket inside people or programs.
type SpendItem struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Value  int             `json:"value"`
}

// MonthSummary merges actual and anticipated amounts for one month.
type MonthSummary struct {
	Month       Month           `json:"month"`
	Actual      decimal.Decimal `json:"actual"`
	Anticipated decimal.Decimal `json:"anticipated"`
	Category    string          `json:"category"`
}

// CostCenterBudget is the dashboard view of one cost center.
type CostCenterBudget struct {
	TeamName       string         `json:"teamName"`
	People         []SpendItem    `json:"people"`
	Programs       []SpendItem    `json:"programs"`
	ActualPeople   []SpendItem    `json:"actualPeople"`
	ActualPrograms []SpendItem    `json:"actualPrograms"`
	Months         []MonthSummary `json:"months"`
	ActualItems    []ActualRecord `json:"actualItems"`
}

// BudgetReport is keyed by cost center id.
type BudgetReport map[int64]CostCenterBudget

// ============================================================
// Health & Metrics
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// IngestionMetrics is returned by GET /v1/metrics/ingestion.
type IngestionMetrics struct {
	Uploads           map[RecordKind]int64 `json:"uploads"`
	RejectedUploads   map[RecordKind]int64 `json:"rejectedUploads"`
	RowsIngested      map[RecordKind]int64 `json:"rowsIngested"`
	RowsDropped       map[RecordKind]int64 `json:"rowsDropped"`
	HeaderCorrections map[RecordKind]int64 `json:"headerCorrections"`
	Rebuilds          map[RecordKind]int64 `json:"rebuilds"`
	DropRate          float64              `json:"dropRate"`
	CacheHitRate      float64              `json:"cacheHitRate"`
	Period            string               `json:"period"`
}
