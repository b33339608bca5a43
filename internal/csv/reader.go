// Package csv reads and writes the tool's CSV files.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/LeanerCloud/rds-extended-support/internal/common"
)

// Reader handles CSV input for account and region lists
type Reader struct {
	delimiter rune
}

// NewReader creates a new CSV reader with default settings
func NewReader() *Reader {
	return &Reader{
		delimiter: ',',
	}
}

// NewReaderWithDelimiter creates a new CSV reader with a custom delimiter
func NewReaderWithDelimiter(delimiter rune) *Reader {
	return &Reader{
		delimiter: delimiter,
	}
}

// ReadList reads the first column of every non-blank row
func (r *Reader) ReadList(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = r.delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	values := make([]string, 0)
	lineNum := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row at line %d: %w", lineNum, err)
		}
		if strings.TrimSpace(strings.Join(record, "")) == "" {
			continue
		}
		values = append(values, strings.TrimSpace(record[0]))
	}
	return values, nil
}

// ReadAccounts reads a list of 12 digit account IDs
func (r *Reader) ReadAccounts(filename string) ([]string, error) {
	values, err := r.ReadList(filename)
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		if !common.IsValidAccountID(v) {
			return nil, common.NewValidationError("invalid data in file %s: %q is not a %d digit AWS account ID", filename, v, common.AccountIDLength)
		}
	}
	return values, nil
}

// ReadRegions reads a list of region codes
func (r *Reader) ReadRegions(filename string) ([]string, error) {
	values, err := r.ReadList(filename)
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		if !common.IsRegionCode(v) {
			return nil, common.NewValidationError("invalid data in file %s: %q is not an AWS region code", filename, v)
		}
	}
	return values, nil
}
