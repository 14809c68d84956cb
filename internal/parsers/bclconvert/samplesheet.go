package bclconvert

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"checkqc/pkg/domain"
)

// DataSection is the sample sheet section listing samples for BCL Convert.
const DataSection = "BCLConvert_Data"

// ParseSamplesheet reads a v2 sample sheet. Sections named "Data" or ending
// in "_Data" are tables with a header row; all other sections are key/value
// pairs.
func ParseSamplesheet(r io.Reader) (domain.Samplesheet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	sheet := domain.Samplesheet{
		Settings: map[string]map[string]string{},
		Data:     map[string][]map[string]string{},
	}
	var (
		section string
		header  []string
	)
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Samplesheet{}, fmt.Errorf("samplesheet: %w", err)
		}
		rec = trimRecord(rec)
		if len(rec) == 0 {
			continue
		}
		if name, ok := sectionName(rec[0]); ok {
			section, header = name, nil
			if tabular(section) {
				sheet.Data[section] = []map[string]string{}
			} else {
				sheet.Settings[section] = map[string]string{}
			}
			continue
		}
		if section == "" {
			return domain.Samplesheet{}, fmt.Errorf("samplesheet line %d: content before the first section", line)
		}
		if !tabular(section) {
			value := ""
			if len(rec) > 1 {
				value = rec[1]
			}
			sheet.Settings[section][rec[0]] = value
			continue
		}
		if header == nil {
			header = rec
			continue
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		sheet.Data[section] = append(sheet.Data[section], row)
	}
	return sheet, nil
}

func sectionName(field string) (string, bool) {
	field = strings.TrimPrefix(field, "\ufeff")
	if strings.HasPrefix(field, "[") && strings.HasSuffix(field, "]") {
		return field[1 : len(field)-1], true
	}
	return "", false
}

func tabular(section string) bool {
	return section == "Data" || strings.HasSuffix(section, "_Data")
}

// trimRecord trims fields and drops the trailing empty ones spreadsheet
// exports pad rows with.
func trimRecord(rec []string) []string {
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	end := len(rec)
	for end > 0 && rec[end-1] == "" {
		end--
	}
	return rec[:end]
}
