package inventory

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// FileSource reads the snapshot from a CSV file, for development and
// air-gapped runs. Expected header:
// asset_id,asset_name,hostname,software_name,current_version,vendor,install_date
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Snapshot(ctx context.Context) ([]SoftwareRecord, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	// Rows may omit the trailing vendor/install_date columns.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %v", err)
	}
	if len(header) < 5 || strings.TrimSpace(header[0]) != "asset_id" {
		return nil, fmt.Errorf("invalid CSV header, expected 'asset_id,...'")
	}

	var records []SoftwareRecord

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %v", err)
		}
		if len(row) < 5 {
			continue // Skip invalid rows
		}

		record := SoftwareRecord{
			AssetID:        row[0],
			AssetName:      row[1],
			Hostname:       row[2],
			SoftwareName:   row[3],
			CurrentVersion: row[4],
		}
		if len(row) > 5 {
			record.Vendor = row[5]
		}
		if len(row) > 6 {
			record.InstallDate = row[6]
		}

		records = append(records, record)
	}

	return records, nil
}
