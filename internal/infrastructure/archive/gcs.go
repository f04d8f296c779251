package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"

	"github.com/rezkam/hsewatch/internal/domain"
)

// GCSArchive writes run reports as JSON objects in a Cloud Storage bucket.
type GCSArchive struct {
	client *storage.Client
	bucket string
}

// NewGCSArchive creates a client from Application Default Credentials
// (e.g. GOOGLE_APPLICATION_CREDENTIALS).
func NewGCSArchive(ctx context.Context, bucket string) (*GCSArchive, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSArchive{client: client, bucket: bucket}, nil
}

// Close releases the underlying client.
func (a *GCSArchive) Close() error {
	return a.client.Close()
}

// SaveRunReport uploads the report, replacing an earlier one with the same key.
func (a *GCSArchive) SaveRunReport(ctx context.Context, report domain.RunReport) error {
	key, err := objectKey(report.Today, report.RunID)
	if err != nil {
		return err
	}
	data, err := encodeReport(report)
	if err != nil {
		return err
	}

	w := a.client.Bucket(a.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize object: %w", err)
	}
	return nil
}

// GetRunReport downloads one report.
func (a *GCSArchive) GetRunReport(ctx context.Context, day, runID string) (domain.RunReport, error) {
	key, err := objectKey(day, runID)
	if err != nil {
		return domain.RunReport{}, err
	}
	return a.read(ctx, key)
}

func (a *GCSArchive) read(ctx context.Context, key string) (domain.RunReport, error) {
	r, err := a.client.Bucket(a.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return domain.RunReport{}, fmt.Errorf("%w: run report %s", domain.ErrNotFound, key)
		}
		return domain.RunReport{}, fmt.Errorf("failed to read object: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return domain.RunReport{}, fmt.Errorf("failed to read object: %w", err)
	}
	return decodeReport(data)
}

// ListRunReports lists the day's prefix, then fetches the objects in parallel.
// Unreadable objects are logged and skipped.
func (a *GCSArchive) ListRunReports(ctx context.Context, day string) ([]domain.RunReport, error) {
	if _, err := ParseDay(day); err != nil {
		return nil, err
	}

	it := a.client.Bucket(a.bucket).Objects(ctx, &storage.Query{Prefix: day + "/"})

	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		if strings.HasSuffix(attrs.Name, ".json") {
			names = append(names, attrs.Name)
		}
	}

	var (
		mu      sync.Mutex
		reports = make([]domain.RunReport, 0, len(names))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)

	for _, name := range names {
		g.Go(func() error {
			report, err := a.read(gctx, name)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				slog.WarnContext(gctx, "skipping unreadable run report", "object", name, "error", err)
				return nil
			}
			mu.Lock()
			reports = append(reports, report)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortReports(reports)
	return reports, nil
}
