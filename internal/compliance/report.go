package compliance

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	id "drs/pkg/domain"
)

// ReportRow is one line of the compliance report.
type ReportRow struct {
	IMEI          string
	Status        string
	StolenStatus  string
	SeenOnNetwork bool
	BlockDate     string
	Reasons       string
}

var reportHeader = []string{"imei", "status", "stolen_status", "seen_on_network", "block_date", "inactivity_reasons"}

// userReportColumns drop the sensitive columns from the user-facing copy.
var userReportColumns = []int{0, 1, 5}

// ReportWriter writes the per-case TSV reports under the uploads directory.
type ReportWriter struct {
	uploadsDir string
}

func NewReportWriter(uploadsDir string) *ReportWriter {
	return &ReportWriter{uploadsDir: uploadsDir}
}

// Write stores the full report and the user-facing copy, returning the full
// report's file name. Row order follows the slice, which follows batch
// completion order.
func (w *ReportWriter) Write(trackingID id.TrackingID, rows []ReportRow) (string, error) {
	dir := filepath.Join(w.uploadsDir, trackingID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	name := fmt.Sprintf("compliant_report%s.tsv", uuid.NewString())
	if err := w.writeTSV(filepath.Join(dir, name), rows, nil); err != nil {
		return "", err
	}
	if err := w.writeTSV(filepath.Join(dir, "user_report-"+name), rows, userReportColumns); err != nil {
		return "", err
	}
	return name, nil
}

// WriteDuplicates stores the duplicate-IMEIs file produced when an approval
// is blocked, one normalized IMEI per line.
func (w *ReportWriter) WriteDuplicates(trackingID id.TrackingID, normalized []string) (string, error) {
	dir := filepath.Join(w.uploadsDir, trackingID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	name := "duplicate_imeis.txt"
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("create duplicates file: %w", err)
	}
	defer f.Close()

	for _, n := range normalized {
		if _, err := fmt.Fprintln(f, n); err != nil {
			return "", fmt.Errorf("write duplicates file: %w", err)
		}
	}
	return name, nil
}

func (w *ReportWriter) writeTSV(path string, rows []ReportRow, columns []int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	cw.Comma = '\t'

	if err := cw.Write(project(reportHeader, columns)); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.IMEI,
			row.Status,
			row.StolenStatus,
			strconv.FormatBool(row.SeenOnNetwork),
			row.BlockDate,
			row.Reasons,
		}
		if err := cw.Write(project(record, columns)); err != nil {
			return fmt.Errorf("write report row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// project keeps only the given column indexes, or the whole record when nil.
func project(record []string, columns []int) []string {
	if columns == nil {
		return record
	}
	out := make([]string, 0, len(columns))
	for _, i := range columns {
		out = append(out, record[i])
	}
	return out
}
