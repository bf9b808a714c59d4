package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
	"github.com/yolokazi-cloud/MarketingApp1/internal/port"
)

// DefaultCostCenters is the marketing organization's cost center table.
var DefaultCostCenters = []domain.CostCenter{
	{CostCenter: 14152001, CostCenterName: "Marketing Operations"},
	{CostCenter: 14152002, CostCenterName: "Communications - PR and Social"},
	{CostCenter: 14152003, CostCenterName: "Revenue Marketing"},
	{CostCenter: 14152004, CostCenterName: "Communications - Brand and Sponsorships"},
	{CostCenter: 14152005, CostCenterName: "Account Based Marketing"},
	{CostCenter: 14152006, CostCenterName: "Shared Services"},
	{CostCenter: 14152007, CostCenterName: "Customer Experience"},
	{CostCenter: 14152008, CostCenterName: "Communications - Employee Engagement"},
	{CostCenter: 14152009, CostCenterName: "Partner Marketing"},
	{CostCenter: 14152010, CostCenterName: "Marketing Projects"},
	{CostCenter: 14152011, CostCenterName: "Office of the CTO"},
	{CostCenter: 14152012, CostCenterName: "IT Services Marketing"},
}

// DefaultAccountSpendTypes maps the general ledger accounts in use.
var DefaultAccountSpendTypes = []domain.AccountSpendType{
	{MainAccount: 730007, MainAccountName: "Exp Consultancy Other", SpendType: domain.SpendTypeProgram},
	{MainAccount: 722014, MainAccountName: "Exp Content Creation", SpendType: domain.SpendTypeProgram},
	{MainAccount: 722008, MainAccountName: "Exp Customer Events", SpendType: domain.SpendTypeProgram},
	{MainAccount: 722002, MainAccountName: "Exp Corporate Events", SpendType: domain.SpendTypeProgram},
	{MainAccount: 722007, MainAccountName: "Exp Conferences and Seminars", SpendType: domain.SpendTypeProgram},
	{MainAccount: 710013, MainAccountName: "Exp Sponsorships", SpendType: domain.SpendTypeProgram},
	{MainAccount: 722012, MainAccountName: "Exp Website Maintenance", SpendType: domain.SpendTypeProgram},
	{MainAccount: 752001, MainAccountName: "Exp Licences Other", SpendType: domain.SpendTypeProgram},
	{MainAccount: 722011, MainAccountName: "Exp Paid Media", SpendType: domain.SpendTypeProgram},
	{MainAccount: 722006, MainAccountName: "Exp Catalogues, Promotions and Samples", SpendType: domain.SpendTypeProgram},
	{MainAccount: 710010, MainAccountName: "Exp Salaries Permanent", SpendType: domain.SpendTypePeople},
	{MainAccount: 710250, MainAccountName: "Exp Group Altron Pension Fund", SpendType: domain.SpendTypePeople},
	{MainAccount: 710291, MainAccountName: "Exp Company Contribution UIF", SpendType: domain.SpendTypePeople},
	{MainAccount: 710292, MainAccountName: "Exp Company Contribution Workmens Compensation", SpendType: domain.SpendTypePeople},
	{MainAccount: 710295, MainAccountName: "Exp Company Contribution Other", SpendType: domain.SpendTypePeople},
	{MainAccount: 784010, MainAccountName: "Exp SDL Levy", SpendType: domain.SpendTypePeople},
	{MainAccount: 792004, MainAccountName: "Exp Travelling Local", SpendType: domain.SpendTypePeople},
	{MainAccount: 790001, MainAccountName: "Exp ICT Costs", SpendType: domain.SpendTypeProgram},
	{MainAccount: 766001, MainAccountName: "Exp General Expenses", SpendType: domain.SpendTypeProgram},
	{MainAccount: 792001, MainAccountName: "Exp Entertaining", SpendType: domain.SpendTypeProgram},
	{MainAccount: 722005, MainAccountName: "Exp Gifts and Flowers", SpendType: domain.SpendTypeProgram},
	{MainAccount: 825202, MainAccountName: "Oth Forex Losses Unrealised", SpendType: domain.SpendTypeProgram},
	{MainAccount: 825101, MainAccountName: "Oth Forex Profits Realised", SpendType: domain.SpendTypeProgram},
}

// SeedReference upserts the default cost centers and account spend types.
func SeedReference(ctx context.Context, store port.ReferenceStore, logger *zap.Logger) error {
	if err := store.UpsertCostCenters(ctx, DefaultCostCenters); err != nil {
		return fmt.Errorf("seed cost centers: %w", err)
	}
	if err := store.UpsertAccountSpendTypes(ctx, DefaultAccountSpendTypes); err != nil {
		return fmt.Errorf("seed account spend types: %w", err)
	}
	logger.Info("seeded reference data",
		zap.Int("cost_centers", len(DefaultCostCenters)),
		zap.Int("accounts", len(DefaultAccountSpendTypes)),
	)
	return nil
}

// SeedSamples replaces all canonical records with a small demo data set.
// Upload versions are left untouched.
func SeedSamples(ctx context.Context, store port.Store, logger *zap.Logger) error {
	if err := store.DeleteAllActuals(ctx); err != nil {
		return fmt.Errorf("clear actuals: %w", err)
	}
	if err := store.DeleteAllAnticipateds(ctx); err != nil {
		return fmt.Errorf("clear anticipateds: %w", err)
	}

	anticipateds := []domain.AnticipatedRecord{
		sampleAnticipated("Exp Consultancy Other", 730007, 14152001,
			10000, 12000, 8000, 15000, 10000, 10000, 11000, 9000, 13000, 20000, 10000, 10000),
		sampleAnticipated("Exp Salaries Permanent", 710010, 14152006,
			50000, 50000, 50000, 50000, 52000, 52000, 52000, 52000, 52000, 55000, 52000, 52000),
	}
	actuals := []domain.ActualRecord{
		sampleActual("Consulting", 14152001, "2025-03-15", "Invoice for Q1 consulting", "730007",
			"Exp Consultancy Other", "9500.00", "Consulting Firm A", "INV-001"),
		sampleActual("Salaries", 14152006, "2025-03-25", "March Salaries", "710010",
			"Exp Salaries Permanent", "49850.50", "Payroll", "MAR-PAY"),
	}

	if err := store.InsertAnticipateds(ctx, anticipateds); err != nil {
		return fmt.Errorf("insert sample anticipateds: %w", err)
	}
	if err := store.InsertActuals(ctx, actuals); err != nil {
		return fmt.Errorf("insert sample actuals: %w", err)
	}
	logger.Info("seeded sample records",
		zap.Int("anticipateds", len(anticipateds)),
		zap.Int("actuals", len(actuals)),
	)
	return nil
}

// sampleAnticipated spreads amounts over the fiscal year starting Mar-25.
func sampleAnticipated(name string, account, costCenter int64, amounts ...int64) domain.AnticipatedRecord {
	rec := domain.AnticipatedRecord{
		ID:          uuid.NewString(),
		AccountName: &name,
		MainAccount: account,
		CostCenter:  costCenter,
	}
	m := domain.Month{Year: 2025, Month: time.March}
	for _, a := range amounts {
		rec.Months.Set(m, decimal.NewFromInt(a))
		m = domain.MonthOf(time.Date(m.Year, m.Month+1, 1, 0, 0, 0, 0, time.UTC))
	}
	return rec
}

func sampleActual(category string, costCenter int64, date, entry, account, accountName, amount, party, doc string) domain.ActualRecord {
	d, _ := time.Parse(time.DateOnly, date)
	return domain.ActualRecord{
		ID:                      uuid.NewString(),
		Category:                &category,
		CostCenter:              costCenter,
		Date:                    &d,
		AccountEntryDescription: &entry,
		MainAccount:             account,
		MainAccountName:         &accountName,
		Amount:                  decimal.RequireFromString(amount),
		PartyName:               &party,
		DocumentDescription:     &doc,
	}
}
