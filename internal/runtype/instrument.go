package runtype

import (
	"fmt"
	"strings"
)

// Metadata gives instrument strategies read-only access to a run's documents.
type Metadata interface {
	RunInfo() *Node
	RunParameters() *Node
}

// Instrument derives the reagent or run-mode version for one instrument family.
type Instrument interface {
	Name() string
	ReagentVersion(m Metadata) (string, error)
}

// Instrument family names.
const (
	FamilyNovaSeq   = "novaseq"
	FamilyHiSeqX    = "hiseqx"
	FamilyMiSeq     = "miseq"
	FamilyHiSeq2500 = "hiseq2500"
)

type novaSeq struct{}

func (novaSeq) Name() string { return FamilyNovaSeq }

func (novaSeq) ReagentVersion(Metadata) (string, error) { return "v1", nil }

type hiSeqX struct{}

func (hiSeqX) Name() string { return FamilyHiSeqX }

func (hiSeqX) ReagentVersion(Metadata) (string, error) { return "v2", nil }

// miSeq runs come with several reagent kit versions, recorded as "Version3".
// Only a missing element is an error; an empty one yields an empty version.
type miSeq struct{}

func (miSeq) Name() string { return FamilyMiSeq }

func (miSeq) ReagentVersion(m Metadata) (string, error) {
	kit, ok := m.RunParameters().Value("RunParameters", "ReagentKitVersion")
	if !ok {
		return "", fmt.Errorf("%w: no ReagentKitVersion for %s", ErrReagentVersionUnknown, FamilyMiSeq)
	}
	return strings.ReplaceAll(kit, "Version", "v"), nil
}

// hiSeq2500 versions combine the run mode with the SBS kit version, e.g.
// "rapidhighoutput_v4" or "rapidrun_v2".
type hiSeq2500 struct{}

func (hiSeq2500) Name() string { return FamilyHiSeq2500 }

func (hiSeq2500) ReagentVersion(m Metadata) (string, error) {
	runMode, ok := m.RunParameters().Value("RunParameters", "Setup", "RunMode")
	if !ok || runMode == "" {
		return "", fmt.Errorf("%w: no Setup/RunMode for %s", ErrRunModeUnknown, FamilyHiSeq2500)
	}
	sbs, ok := m.RunParameters().Value("RunParameters", "Setup", "Sbs")
	fields := strings.Fields(sbs)
	if !ok || len(fields) == 0 {
		return "", fmt.Errorf("%w: no Setup/Sbs for %s run mode %s", ErrReagentVersionUnknown, FamilyHiSeq2500, runMode)
	}
	// "HiSeq SBS Kit v4" -> "v4"
	kit := fields[len(fields)-1]
	return strings.ToLower(runMode) + "_" + strings.ToLower(kit), nil
}

var instruments = map[string]Instrument{
	FamilyNovaSeq:   novaSeq{},
	FamilyHiSeqX:    hiSeqX{},
	FamilyMiSeq:     miSeq{},
	FamilyHiSeq2500: hiSeq2500{},
}

// NewInstrument returns the strategy for an instrument family name.
func NewInstrument(family string) (Instrument, error) {
	inst, ok := instruments[family]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInstrumentTypeUnknown, family)
	}
	return inst, nil
}

// instrumentPrefixes maps the leading characters of an instrument serial to
// its family.
var instrumentPrefixes = []struct {
	prefix string
	family string
}{
	{"ST", FamilyHiSeqX},
	{"M", FamilyMiSeq},
	{"D", FamilyHiSeq2500},
	{"A", FamilyNovaSeq},
}

// FamilyForInstrumentName maps an instrument serial such as "A00834" to its
// family. The longest matching prefix wins.
func FamilyForInstrumentName(name string) (string, error) {
	best := -1
	for i, p := range instrumentPrefixes {
		if !strings.HasPrefix(name, p.prefix) {
			continue
		}
		if best < 0 || len(p.prefix) > len(instrumentPrefixes[best].prefix) {
			best = i
		}
	}
	if best < 0 {
		return "", fmt.Errorf("%w: did not recognize instrument %q", ErrInstrumentTypeUnknown, name)
	}
	return instrumentPrefixes[best].family, nil
}
