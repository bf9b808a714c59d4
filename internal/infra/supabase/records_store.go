package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
)

// actualRow maps the actuals table columns.
type actualRow struct {
	ID                      string          `json:"id"`
	VersionID               *string         `json:"version_id"`
	Category                *string         `json:"category"`
	CostCenter              int64           `json:"cost_center"`
	Date                    *time.Time      `json:"date"`
	AccountEntryDescription *string         `json:"account_entry_description"`
	MainAccount             string          `json:"main_account"`
	MainAccountName         *string         `json:"main_account_name"`
	Amount                  decimal.Decimal `json:"amount"`
	PartyName               *string         `json:"party_name"`
	DocumentDescription     *string         `json:"document_description"`
}

func toActualRow(a domain.ActualRecord) actualRow {
	r := actualRow{
		ID:                      a.ID,
		Category:                a.Category,
		CostCenter:              a.CostCenter,
		Date:                    a.Date,
		AccountEntryDescription: a.AccountEntryDescription,
		MainAccount:             a.MainAccount,
		MainAccountName:         a.MainAccountName,
		Amount:                  a.Amount,
		PartyName:               a.PartyName,
		DocumentDescription:     a.DocumentDescription,
	}
	if a.VersionID != "" {
		v := a.VersionID
		r.VersionID = &v
	}
	return r
}

func (r actualRow) toDomain() domain.ActualRecord {
	a := domain.ActualRecord{
		ID:                      r.ID,
		Category:                r.Category,
		CostCenter:              r.CostCenter,
		Date:                    r.Date,
		AccountEntryDescription: r.AccountEntryDescription,
		MainAccount:             r.MainAccount,
		MainAccountName:         r.MainAccountName,
		Amount:                  r.Amount,
		PartyName:               r.PartyName,
		DocumentDescription:     r.DocumentDescription,
	}
	if r.VersionID != nil {
		a.VersionID = *r.VersionID
	}
	return a
}

// anticipatedRow maps the anticipateds table; months is a jsonb object.
type anticipatedRow struct {
	ID          string              `json:"id"`
	VersionID   *string             `json:"version_id"`
	AccountName *string             `json:"account_name"`
	MainAccount int64               `json:"main_account"`
	CostCenter  int64               `json:"cost_center"`
	Months      domain.MonthAmounts `json:"months"`
}

func toAnticipatedRow(a domain.AnticipatedRecord) anticipatedRow {
	r := anticipatedRow{
		ID:          a.ID,
		AccountName: a.AccountName,
		MainAccount: a.MainAccount,
		CostCenter:  a.CostCenter,
		Months:      a.Months,
	}
	if a.VersionID != "" {
		v := a.VersionID
		r.VersionID = &v
	}
	if r.Months == nil {
		r.Months = domain.MonthAmounts{}
	}
	return r
}

func (r anticipatedRow) toDomain() domain.AnticipatedRecord {
	a := domain.AnticipatedRecord{
		ID:          r.ID,
		AccountName: r.AccountName,
		MainAccount: r.MainAccount,
		CostCenter:  r.CostCenter,
		Months:      r.Months,
	}
	if r.VersionID != nil {
		a.VersionID = *r.VersionID
	}
	return a
}

// --- Actuals ---

func (c *Client) ListActuals(ctx context.Context) ([]domain.ActualRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListActuals")
	defer span.End()

	var out []domain.ActualRecord
	err := c.guard(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, "actuals?select=*&order=date.asc.nullslast")
		if err != nil {
			return err
		}
		rows, err := decodeRows[actualRow](body)
		if err != nil {
			return err
		}
		out = make([]domain.ActualRecord, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, domain.AsPersistence("supabase/actuals", err)
	}
	span.SetAttributes(attribute.Int("rows", len(out)))
	return out, nil
}

func (c *Client) GetActual(ctx context.Context, id string) (*domain.ActualRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetActual")
	defer span.End()
	span.SetAttributes(attribute.String("actual.id", id))

	var rec *domain.ActualRecord
	err := c.guard(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("actuals?select=*&id=eq.%s&limit=1", url.QueryEscape(id)))
		if err != nil {
			return err
		}
		rows, err := decodeRows[actualRow](body)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "actual record", ID: id}
		}
		a := rows[0].toDomain()
		rec = &a
		return nil
	})
	if err != nil {
		return nil, domain.AsPersistence("supabase/actuals", err)
	}
	return rec, nil
}

func (c *Client) CreateActual(ctx context.Context, rec *domain.ActualRecord) error {
	ctx, span := tracer.Start(ctx, "Supabase.CreateActual")
	defer span.End()

	err := c.guard(ctx, func() error {
		return c.doPost(ctx, "actuals", toActualRow(*rec))
	})
	return domain.AsPersistence("supabase/actuals", err)
}

func (c *Client) UpdateActual(ctx context.Context, rec *domain.ActualRecord) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateActual")
	defer span.End()
	span.SetAttributes(attribute.String("actual.id", rec.ID))

	err := c.guard(ctx, func() error {
		n, err := c.doPatch(ctx, fmt.Sprintf("actuals?id=eq.%s", url.QueryEscape(rec.ID)), toActualRow(*rec))
		if err != nil {
			return err
		}
		if n == 0 {
			return &domain.ErrNotFound{Resource: "actual record", ID: rec.ID}
		}
		return nil
	})
	return domain.AsPersistence("supabase/actuals", err)
}

func (c *Client) DeleteActual(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteActual")
	defer span.End()
	span.SetAttributes(attribute.String("actual.id", id))

	err := c.guard(ctx, func() error {
		n, err := c.doDelete(ctx, fmt.Sprintf("actuals?id=eq.%s", url.QueryEscape(id)))
		if err != nil {
			return err
		}
		if n == 0 {
			return &domain.ErrNotFound{Resource: "actual record", ID: id}
		}
		return nil
	})
	return domain.AsPersistence("supabase/actuals", err)
}

func (c *Client) InsertActuals(ctx context.Context, recs []domain.ActualRecord) error {
	ctx, span := tracer.Start(ctx, "Supabase.InsertActuals")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(recs)))

	rows := make([]actualRow, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, toActualRow(r))
	}
	for _, chunk := range chunks(rows, insertChunk) {
		err := c.guard(ctx, func() error {
			return c.doPost(ctx, "actuals", chunk)
		})
		if err != nil {
			return domain.AsPersistence("supabase/actuals", err)
		}
	}
	return nil
}

func (c *Client) DeleteActualsByVersion(ctx context.Context, versionID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteActualsByVersion")
	defer span.End()

	err := c.guard(ctx, func() error {
		_, err := c.doDelete(ctx, fmt.Sprintf("actuals?version_id=eq.%s", url.QueryEscape(versionID)))
		return err
	})
	return domain.AsPersistence("supabase/actuals", err)
}

// DeleteAllActuals removes every actual, manual entries included.
// PostgREST refuses unfiltered deletes, hence the always-true filter.
func (c *Client) DeleteAllActuals(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteAllActuals")
	defer span.End()

	err := c.guard(ctx, func() error {
		_, err := c.doDelete(ctx, "actuals?id=not.is.null")
		return err
	})
	return domain.AsPersistence("supabase/actuals", err)
}

// --- Anticipateds ---

func (c *Client) ListAnticipateds(ctx context.Context) ([]domain.AnticipatedRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListAnticipateds")
	defer span.End()

	var out []domain.AnticipatedRecord
	err := c.guard(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, "anticipateds?select=*")
		if err != nil {
			return err
		}
		rows, err := decodeRows[anticipatedRow](body)
		if err != nil {
			return err
		}
		out = make([]domain.AnticipatedRecord, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, domain.AsPersistence("supabase/anticipateds", err)
	}
	span.SetAttributes(attribute.Int("rows", len(out)))
	return out, nil
}

func (c *Client) InsertAnticipateds(ctx context.Context, recs []domain.AnticipatedRecord) error {
	ctx, span := tracer.Start(ctx, "Supabase.InsertAnticipateds")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(recs)))

	rows := make([]anticipatedRow, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, toAnticipatedRow(r))
	}
	for _, chunk := range chunks(rows, insertChunk) {
		err := c.guard(ctx, func() error {
			return c.doPost(ctx, "anticipateds", chunk)
		})
		if err != nil {
			return domain.AsPersistence("supabase/anticipateds", err)
		}
	}
	return nil
}

func (c *Client) DeleteAnticipatedsByVersion(ctx context.Context, versionID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteAnticipatedsByVersion")
	defer span.End()

	err := c.guard(ctx, func() error {
		_, err := c.doDelete(ctx, fmt.Sprintf("anticipateds?version_id=eq.%s", url.QueryEscape(versionID)))
		return err
	})
	return domain.AsPersistence("supabase/anticipateds", err)
}

func (c *Client) DeleteAllAnticipateds(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteAllAnticipateds")
	defer span.End()

	err := c.guard(ctx, func() error {
		_, err := c.doDelete(ctx, "anticipateds?id=not.is.null")
		return err
	})
	return domain.AsPersistence("supabase/anticipateds", err)
}
