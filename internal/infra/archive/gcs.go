// Package archive keeps the raw bytes of uploaded spreadsheets.
package archive

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
)

var tracer = otel.Tracer("archive")

const uploadTimeout = 2 * time.Minute

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// writerFunc opens an object writer; swapped in tests.
type writerFunc func(ctx context.Context, bucket, object string) io.WriteCloser

// GCS archives uploads to a Cloud Storage bucket under
// uploads/<kind>/<versionID>/<fileName>.
type GCS struct {
	client    *storage.Client
	bucket    string
	newWriter writerFunc
	logger    *zap.Logger
}

// NewGCS creates a storage client using Application Default Credentials.
func NewGCS(ctx context.Context, bucket string, logger *zap.Logger) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	g := &GCS{client: client, bucket: bucket, logger: logger}
	g.newWriter = func(ctx context.Context, bucket, object string) io.WriteCloser {
		w := client.Bucket(bucket).Object(object).NewWriter(ctx)
		w.ContentType = xlsxContentType
		return w
	}
	return g, nil
}

// ObjectName is the object path for an archived upload.
func ObjectName(kind domain.RecordKind, versionID, fileName string) string {
	name := path.Base(fileName)
	if name == "." || name == "/" || name == "" {
		name = "upload.xlsx"
	}
	return path.Join("uploads", string(kind), versionID, name)
}

// Archive writes data and returns its gs:// URI.
func (g *GCS) Archive(ctx context.Context, kind domain.RecordKind, versionID, fileName string, data []byte) (string, error) {
	ctx, span := tracer.Start(ctx, "GCS.Archive")
	defer span.End()

	object := ObjectName(kind, versionID, fileName)
	span.SetAttributes(attribute.String("gcs.object", object), attribute.Int("bytes", len(data)))

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := g.newWriter(ctx, g.bucket, object)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write gs://%s/%s: %w", g.bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize gs://%s/%s: %w", g.bucket, object, err)
	}

	uri := fmt.Sprintf("gs://%s/%s", g.bucket, object)
	g.logger.Info("archived upload", zap.String("uri", uri), zap.Int("bytes", len(data)))
	return uri, nil
}

// Close releases the storage client.
func (g *GCS) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Noop keeps nothing and returns an empty URI.
type Noop struct{}

func (Noop) Archive(context.Context, domain.RecordKind, string, string, []byte) (string, error) {
	return "", nil
}
