package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/LeanerCloud/rds-extended-support/internal/estimate"
)

// ReportHeaders are the report columns, in order
var ReportHeaders = []string{
	"DBInstanceIdentifier",
	"DBInstanceClass",
	"Engine",
	"EngineVersion",
	"DBInstanceStatus",
	"MultiAZ",
	"DBInstanceArn",
	"AccountId",
	"Region",
	"RegionName",
	"vCPUs per instance",
	"Total vCPUs (if MultiAZ)",
	"Year 1 Price",
	"Year 2 Price",
	"Year 3 Price",
}

// Writer handles CSV output for reports and list files
type Writer struct {
	delimiter rune
}

// NewWriter creates a new CSV writer with default settings
func NewWriter() *Writer {
	return &Writer{
		delimiter: ',',
	}
}

// NewWriterWithDelimiter creates a new CSV writer with a custom delimiter
func NewWriterWithDelimiter(delimiter rune) *Writer {
	return &Writer{
		delimiter: delimiter,
	}
}

// ReportFile streams priced records into a report file.
// Rows are flushed as they are written so a partial report survives a fatal error.
type ReportFile struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	rows   int
}

// CreateReport creates filename and writes the header row
func (w *Writer) CreateReport(filename string) (*ReportFile, error) {
	if filename == "" {
		return nil, fmt.Errorf("filename is required - CSV output to stdout is not supported")
	}

	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV file: %w", err)
	}

	writer := csv.NewWriter(file)
	writer.Comma = w.delimiter

	r := &ReportFile{file: file, writer: writer}
	if err := r.writeRow(ReportHeaders); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	return r, nil
}

// Write appends one record
func (r *ReportFile) Write(rec estimate.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.writeRow(RecordToRow(rec)); err != nil {
		return fmt.Errorf("failed to write CSV row: %w", err)
	}
	r.rows++
	return nil
}

func (r *ReportFile) writeRow(row []string) error {
	if err := r.writer.Write(row); err != nil {
		return err
	}
	r.writer.Flush()
	return r.writer.Error()
}

// Rows returns the number of records written, excluding the header
func (r *ReportFile) Rows() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows
}

// Name returns the report file path
func (r *ReportFile) Name() string {
	return r.file.Name()
}

// Close flushes and closes the file
func (r *ReportFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		r.file.Close()
		return fmt.Errorf("failed to flush CSV file: %w", err)
	}
	return r.file.Close()
}

// RecordToRow converts a record to report columns
func RecordToRow(rec estimate.Record) []string {
	return []string{
		rec.Identifier,
		rec.InstanceClass,
		rec.Engine,
		rec.EngineVersion,
		rec.Status,
		formatBool(rec.MultiAZ),
		rec.ARN,
		rec.AccountID,
		rec.Region,
		rec.RegionName,
		strconv.Itoa(rec.VCPUs),
		strconv.Itoa(rec.TotalVCPUs),
		FormatPrice(rec.Year1Price),
		FormatPrice(rec.Year2Price),
		FormatPrice(rec.Year3Price),
	}
}

// FormatPrice formats a USD amount as "$1,752.00"
func FormatPrice(v float64) string {
	if v < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -v)
	}
	return "$" + humanize.FormatFloat("#,###.##", v)
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// WriteList writes one value per row, without a header
func (w *Writer) WriteList(values []string, filename string) error {
	if filename == "" {
		return fmt.Errorf("filename is required - CSV output to stdout is not supported")
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	writer.Comma = w.delimiter

	for _, v := range values {
		if err := writer.Write([]string{v}); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV file: %w", err)
	}
	return nil
}
