package domain

import "strconv"

// Samplesheet holds the sections of a sample sheet. Key/value sections such
// as [Header] are stored in Settings; tabular sections such as
// [BCLConvert_Data] are stored as rows keyed by column name.
type Samplesheet struct {
	Settings map[string]map[string]string   `json:"settings,omitempty"`
	Data     map[string][]map[string]string `json:"data,omitempty"`
}

// Section returns the rows of a tabular section.
func (s Samplesheet) Section(name string) []map[string]string {
	return s.Data[name]
}

// SamplesInLane counts the data rows assigned to a lane. Rows without a Lane
// column count for every lane.
func (s Samplesheet) SamplesInLane(section string, lane int) int {
	n := 0
	for _, row := range s.Data[section] {
		v, ok := row["Lane"]
		if !ok || v == "" {
			n++
			continue
		}
		if l, err := strconv.Atoi(v); err == nil && l == lane {
			n++
		}
	}
	return n
}
