// Package archive stores the JSON report of every reminder run so operators
// can audit who was notified on a given day.
//
// Reports are keyed "<today>/<run id>.json", where today is the reminder day
// in the configured time zone.
package archive

import (
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/rezkam/hsewatch/internal/application/notification"
	"github.com/rezkam/hsewatch/internal/domain"
)

// maxConcurrentReads bounds parallel report reads when listing a day.
const maxConcurrentReads = 20

var (
	_ notification.RunReporter = (*FSArchive)(nil)
	_ notification.RunReporter = (*GCSArchive)(nil)
)

// ParseDay validates a YYYY-MM-DD reminder day.
func ParseDay(day string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, day)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid report day %q: %w", day, err)
	}
	return t, nil
}

func objectKey(day, runID string) (string, error) {
	if _, err := ParseDay(day); err != nil {
		return "", err
	}
	if runID == "" || strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
		return "", fmt.Errorf("%w: invalid run id %q", domain.ErrNotFound, runID)
	}
	return path.Join(day, runID+".json"), nil
}

func encodeReport(report domain.RunReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run report: %w", err)
	}
	return data, nil
}

func decodeReport(data []byte) (domain.RunReport, error) {
	var report domain.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return domain.RunReport{}, fmt.Errorf("failed to unmarshal run report: %w", err)
	}
	return report, nil
}

// sortReports orders reports by start time, then run id.
func sortReports(reports []domain.RunReport) {
	slices.SortFunc(reports, func(a, b domain.RunReport) int {
		if c := a.StartedAt.Compare(b.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(a.RunID, b.RunID)
	})
}
