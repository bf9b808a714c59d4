package supabase

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
)

type costCenterRow struct {
	CostCenter     int64  `json:"cost_center"`
	CostCenterName string `json:"cost_center_name"`
}

type accountSpendTypeRow struct {
	MainAccount     int64  `json:"main_account"`
	MainAccountName string `json:"main_account_name"`
	SpendType       string `json:"spend_type"`
}

// ListCostCenters returns every cost center ordered by number.
func (c *Client) ListCostCenters(ctx context.Context) ([]domain.CostCenter, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListCostCenters")
	defer span.End()

	var out []domain.CostCenter
	err := c.guard(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, "cost_centers?select=cost_center,cost_center_name&order=cost_center.asc")
		if err != nil {
			return err
		}
		rows, err := decodeRows[costCenterRow](body)
		if err != nil {
			return err
		}
		out = make([]domain.CostCenter, 0, len(rows))
		for _, r := range rows {
			out = append(out, domain.CostCenter{CostCenter: r.CostCenter, CostCenterName: r.CostCenterName})
		}
		return nil
	})
	if err != nil {
		return nil, domain.AsPersistence("supabase/cost_centers", err)
	}
	span.SetAttributes(attribute.Int("rows", len(out)))
	return out, nil
}

// ListAccountSpendTypes returns every account mapping ordered by number.
func (c *Client) ListAccountSpendTypes(ctx context.Context) ([]domain.AccountSpendType, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListAccountSpendTypes")
	defer span.End()

	var out []domain.AccountSpendType
	err := c.guard(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, "account_spend_types?select=main_account,main_account_name,spend_type&order=main_account.asc")
		if err != nil {
			return err
		}
		rows, err := decodeRows[accountSpendTypeRow](body)
		if err != nil {
			return err
		}
		out = make([]domain.AccountSpendType, 0, len(rows))
		for _, r := range rows {
			out = append(out, domain.AccountSpendType{
				MainAccount:     r.MainAccount,
				MainAccountName: r.MainAccountName,
				SpendType:       domain.SpendType(r.SpendType),
			})
		}
		return nil
	})
	if err != nil {
		return nil, domain.AsPersistence("supabase/account_spend_types", err)
	}
	span.SetAttributes(attribute.Int("rows", len(out)))
	return out, nil
}

func (c *Client) UpsertCostCenters(ctx context.Context, centers []domain.CostCenter) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpsertCostCenters")
	defer span.End()

	rows := make([]costCenterRow, 0, len(centers))
	for _, cc := range centers {
		rows = append(rows, costCenterRow{CostCenter: cc.CostCenter, CostCenterName: cc.CostCenterName})
	}
	if len(rows) == 0 {
		return nil
	}
	err := c.guard(ctx, func() error {
		return c.doUpsert(ctx, "cost_centers?on_conflict=cost_center", rows)
	})
	return domain.AsPersistence("supabase/cost_centers", err)
}

func (c *Client) UpsertAccountSpendTypes(ctx context.Context, accounts []domain.AccountSpendType) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpsertAccountSpendTypes")
	defer span.End()

	rows := make([]accountSpendTypeRow, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, accountSpendTypeRow{
			MainAccount:     a.MainAccount,
			MainAccountName: a.MainAccountName,
			SpendType:       string(a.SpendType),
		})
	}
	if len(rows) == 0 {
		return nil
	}
	err := c.guard(ctx, func() error {
		return c.doUpsert(ctx, "account_spend_types?on_conflict=main_account", rows)
	})
	return domain.AsPersistence("supabase/account_spend_types", err)
}
