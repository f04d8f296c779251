package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rezkam/hsewatch/internal/domain"
)

// FSArchive writes run reports as JSON files below a base directory.
type FSArchive struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFSArchive creates the base directory if needed.
func NewFSArchive(baseDir string) (*FSArchive, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	return &FSArchive{baseDir: baseDir}, nil
}

// SaveRunReport writes the report, replacing an earlier one with the same key.
func (a *FSArchive) SaveRunReport(_ context.Context, report domain.RunReport) error {
	key, err := objectKey(report.Today, report.RunID)
	if err != nil {
		return err
	}
	data, err := encodeReport(report)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	path := filepath.Join(a.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	// Write through a temp file so readers never see a partial report.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move report into place: %w", err)
	}

	return nil
}

// GetRunReport reads one report.
func (a *FSArchive) GetRunReport(_ context.Context, day, runID string) (domain.RunReport, error) {
	key, err := objectKey(day, runID)
	if err != nil {
		return domain.RunReport{}, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(a.baseDir, filepath.FromSlash(key)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.RunReport{}, fmt.Errorf("%w: run report %s/%s", domain.ErrNotFound, day, runID)
		}
		return domain.RunReport{}, fmt.Errorf("failed to read file: %w", err)
	}
	return decodeReport(data)
}

// ListRunReports loads every report of one day in parallel.
// Unreadable files are logged and skipped.
func (a *FSArchive) ListRunReports(ctx context.Context, day string) ([]domain.RunReport, error) {
	if _, err := ParseDay(day); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	dir := filepath.Join(a.baseDir, day)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []domain.RunReport{}, nil
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var (
		mu      sync.Mutex
		reports = make([]domain.RunReport, 0, len(entries))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		name := entry.Name()
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				slog.WarnContext(gctx, "skipping unreadable run report", "file", name, "error", err)
				return nil
			}
			report, err := decodeReport(data)
			if err != nil {
				slog.WarnContext(gctx, "skipping malformed run report", "file", name, "error", err)
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
