package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
)

const versionSummaryColumns = "id,kind,version_number,uploaded_at,file_name,archive_uri"

// versionRow maps the upload_versions table; data is the jsonb row snapshot.
type versionRow struct {
	ID            string       `json:"id"`
	Kind          string       `json:"kind"`
	VersionNumber int          `json:"version_number"`
	UploadedAt    time.Time    `json:"uploaded_at"`
	FileName      string       `json:"file_name"`
	ArchiveURI    string       `json:"archive_uri"`
	Data          []domain.Row `json:"data,omitempty"`
}

func (r versionRow) toDomain() domain.UploadVersion {
	return domain.UploadVersion{
		ID:            r.ID,
		Kind:          domain.RecordKind(r.Kind),
		VersionNumber: r.VersionNumber,
		UploadedAt:    r.UploadedAt,
		FileName:      r.FileName,
		ArchiveURI:    r.ArchiveURI,
		Rows:          r.Data,
	}
}

func (c *Client) LatestVersionNumber(ctx context.Context, kind domain.RecordKind) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.LatestVersionNumber")
	defer span.End()
	span.SetAttributes(attribute.String("kind", string(kind)))

	latest := 0
	err := c.guard(ctx, func() error {
		path := fmt.Sprintf("upload_versions?select=version_number&kind=eq.%s&order=version_number.desc&limit=1", kind)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		rows, err := decodeRows[versionRow](body)
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			latest = rows[0].VersionNumber
		}
		return nil
	})
	if err != nil {
		return 0, domain.AsPersistence("supabase/upload_versions", err)
	}
	return latest, nil
}

// CreateVersion relies on the unique (kind, version_number) constraint;
// a 409 from PostgREST surfaces as *domain.ErrDuplicate.
func (c *Client) CreateVersion(ctx context.Context, v *domain.UploadVersion) error {
	ctx, span := tracer.Start(ctx, "Supabase.CreateVersion")
	defer span.End()
	span.SetAttributes(
		attribute.String("kind", string(v.Kind)),
		attribute.Int("version", v.VersionNumber),
	)

	row := versionRow{
		ID:            v.ID,
		Kind:          string(v.Kind),
		VersionNumber: v.VersionNumber,
		UploadedAt:    v.UploadedAt,
		FileName:      v.FileName,
		ArchiveURI:    v.ArchiveURI,
		Data:          v.Rows,
	}
	if row.Data == nil {
		row.Data = []domain.Row{}
	}
	err := c.guard(ctx, func() error {
		return c.doPost(ctx, "upload_versions", row)
	})
	return domain.AsPersistence("supabase/upload_versions", err)
}

func (c *Client) ListVersions(ctx context.Context, kind domain.RecordKind, withRows bool) ([]domain.UploadVersion, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListVersions")
	defer span.End()
	span.SetAttributes(attribute.String("kind", string(kind)))

	columns := versionSummaryColumns
	if withRows {
		columns += ",data"
	}

	var out []domain.UploadVersion
	err := c.guard(ctx, func() error {
		path := fmt.Sprintf("upload_versions?select=%s&kind=eq.%s&order=version_number.asc", columns, kind)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		rows, err := decodeRows[versionRow](body)
		if err != nil {
			return err
		}
		out = make([]domain.UploadVersion, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, domain.AsPersistence("supabase/upload_versions", err)
	}
	return out, nil
}

func (c *Client) GetVersion(ctx context.Context, kind domain.RecordKind, id string) (*domain.UploadVersion, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetVersion")
	defer span.End()
	span.SetAttributes(attribute.String("kind", string(kind)), attribute.String("version.id", id))

	var version *domain.UploadVersion
	err := c.guard(ctx, func() error {
		path := fmt.Sprintf("upload_versions?select=%s,data&kind=eq.%s&id=eq.%s&limit=1", versionSummaryColumns, kind, url.QueryEscape(id))
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		rows, err := decodeRows[versionRow](body)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "version", ID: id}
		}
		v := rows[0].toDomain()
		version = &v
		return nil
	})
	if err != nil {
		return nil, domain.AsPersistence("supabase/upload_versions", err)
	}
	return version, nil
}

// UpdateVersionRow rewrites the whole snapshot with one row replaced.
// Callers serialize writers per kind.
func (c *Client) UpdateVersionRow(ctx context.Context, kind domain.RecordKind, id string, index int, row domain.Row) error {
	v, err := c.GetVersion(ctx, kind, id)
	if err != nil {
		return err
	}

	ctx, span := tracer.Start(ctx, "Supabase.UpdateVersionRow")
	defer span.End()
	span.SetAttributes(attribute.String("version.id", id), attribute.Int("index", index))

	if index < 0 || index >= len(v.Rows) {
		return &domain.ErrValidation{Field: "index", Message: "Invalid record index."}
	}
	v.Rows[index] = row.Clone()

	err = c.guard(ctx, func() error {
		path := fmt.Sprintf("upload_versions?kind=eq.%s&id=eq.%s", kind, url.QueryEscape(id))
		n, err := c.doPatch(ctx, path, map[string]any{"data": v.Rows})
		if err != nil {
			return err
		}
		if n == 0 {
			return &domain.ErrNotFound{Resource: "version", ID: id}
		}
		return nil
	})
	return domain.AsPersistence("supabase/upload_versions", err)
}

func (c *Client) DeleteVersion(ctx context.Context, kind domain.RecordKind, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteVersion")
	defer span.End()
	span.SetAttributes(attribute.String("kind", string(kind)), attribute.String("version.id", id))

	err := c.guard(ctx, func() error {
		path := fmt.Sprintf("upload_versions?kind=eq.%s&id=eq.%s", kind, url.QueryEscape(id))
		n, err := c.doDelete(ctx, path)
		if err != nil {
			return err
		}
		if n == 0 {
			return &domain.ErrNotFound{Resource: "version", ID: id}
		}
		return nil
	})
	return domain.AsPersistence("supabase/upload_versions", err)
}
