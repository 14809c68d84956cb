package core

import "checkqc/pkg/domain"

// QCData is everything the handlers see about one run: the instrument and
// reagent key, the read length used for config lookup, the parsed sample
// sheet and the per-lane sequencing metrics.
type QCData struct {
	Instrument  string
	ReadLength  domain.ReadLength
	Samplesheet domain.Samplesheet
	Metrics     domain.SequencingMetrics
}

// NewQCData assembles a QCData value. Metrics are shared, not copied; the
// engine and its handlers only read them.
func NewQCData(instrument string, readLength domain.ReadLength, sheet domain.Samplesheet, metrics domain.SequencingMetrics) *QCData {
	if metrics == nil {
		metrics = domain.SequencingMetrics{}
	}
	return &QCData{
		Instrument:  instrument,
		ReadLength:  readLength,
		Samplesheet: sheet,
		Metrics:     metrics,
	}
}

// SetReadLength overrides the read length used for config lookup.
func (d *QCData) SetReadLength(rl domain.ReadLength) {
	d.ReadLength = rl
}
