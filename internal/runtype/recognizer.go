// Package runtype determines the instrument, reagent version and read length
// of a sequencing run from its RunInfo.xml and RunParameters.xml.
package runtype

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"checkqc/pkg/domain"
)

// Document names inside a run folder.
const (
	RunInfoFile          = "RunInfo.xml"
	RunParametersFile    = "RunParameters.xml"
	RunParametersFileAlt = "runParameters.xml"
)

// DocumentSource opens documents of a single run folder by file name.
type DocumentSource interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Recognizer holds the decoded metadata of one run folder. Documents are read
// once at construction and never touched again.
type Recognizer struct {
	runInfo       *Node
	runParameters *Node
}

// NewRecognizer reads RunInfo.xml and RunParameters.xml (or runParameters.xml)
// from src.
func NewRecognizer(ctx context.Context, src DocumentSource) (*Recognizer, error) {
	runInfo, err := readDocument(ctx, src, RunInfoFile)
	if err != nil {
		if errors.Is(err, errOpen) {
			return nil, fmt.Errorf("%w: %v", ErrRunInfoXMLNotFound, err)
		}
		return nil, err
	}
	var runParameters *Node
	for _, name := range []string{RunParametersFile, RunParametersFileAlt} {
		runParameters, err = readDocument(ctx, src, name)
		if err == nil {
			break
		}
		if !errors.Is(err, errOpen) {
			return nil, err
		}
	}
	if runParameters == nil {
		return nil, fmt.Errorf("%w: %v", ErrRunParametersNotFound, err)
	}
	return &Recognizer{runInfo: runInfo, runParameters: runParameters}, nil
}

// FromDocuments builds a recognizer from already decoded documents.
func FromDocuments(runInfo, runParameters *Node) *Recognizer {
	return &Recognizer{runInfo: runInfo, runParameters: runParameters}
}

var errOpen = errors.New("open document")

func readDocument(ctx context.Context, src DocumentSource, name string) (*Node, error) {
	rc, err := src.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", errOpen, name, err)
	}
	defer func() { _ = rc.Close() }()
	doc, err := Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return doc, nil
}

// RunInfo implements Metadata.
func (r *Recognizer) RunInfo() *Node { return r.runInfo }

// RunParameters implements Metadata.
func (r *Recognizer) RunParameters() *Node { return r.runParameters }

// InstrumentType returns the strategy for the instrument that produced the run.
func (r *Recognizer) InstrumentType() (Instrument, error) {
	name, ok := r.runInfo.Value("RunInfo", "Run", "Instrument")
	if !ok {
		return nil, fmt.Errorf("%w: no Run/Instrument in %s", ErrInstrumentTypeUnknown, RunInfoFile)
	}
	family, err := FamilyForInstrumentName(name)
	if err != nil {
		return nil, err
	}
	return NewInstrument(family)
}

// InstrumentAndReagentVersion returns e.g. "novaseq_v1" or "hiseq2500_rapidrun_v2".
func (r *Recognizer) InstrumentAndReagentVersion() (string, error) {
	inst, err := r.InstrumentType()
	if err != nil {
		return "", err
	}
	version, err := inst.ReagentVersion(r)
	if err != nil {
		return "", err
	}
	return inst.Name() + "_" + version, nil
}

// Read describes one read of the run in sequencing order.
type Read struct {
	Number  int
	Cycles  int
	IsIndex bool
}

// Reads returns every read, index reads included, in RunInfo.xml order.
func (r *Recognizer) Reads() ([]Read, error) {
	reads, _ := r.runInfo.Lookup("RunInfo", "Run", "Reads")
	var out []Read
	for i, read := range reads.All("Read") {
		raw, _ := read.Attr("NumCycles")
		cycles, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("read %s: invalid NumCycles %q: %w", readNumber(read), raw, err)
		}
		number := i + 1
		if n, err := strconv.Atoi(readNumber(read)); err == nil {
			number = n
		}
		indexed, _ := read.Attr("IsIndexedRead")
		out = append(out, Read{Number: number, Cycles: cycles, IsIndex: indexed == "Y"})
	}
	return out, nil
}

// ReadLength returns the length of the non-index reads. RunInfo.xml counts
// one more cycle than the documented read length (a 150bp read runs 151
// cycles), so one is subtracted from each.
func (r *Recognizer) ReadLength() (domain.ReadLength, error) {
	reads, err := r.Reads()
	if err != nil {
		return "", err
	}
	var lengths []int
	for _, read := range reads {
		if read.IsIndex {
			continue
		}
		lengths = append(lengths, read.Cycles-1)
	}
	if len(lengths) == 0 {
		return "", fmt.Errorf("%w: found no non-index reads in %s", ErrRunModeUnknown, RunInfoFile)
	}
	return domain.NewReadLength(lengths...), nil
}

func readNumber(read *Node) string {
	n, _ := read.Attr("Number")
	return n
}

// RunID returns the run identifier from RunInfo.xml.
func (r *Recognizer) RunID() string {
	run, ok := r.runInfo.Lookup("RunInfo", "Run")
	if !ok {
		return ""
	}
	id, _ := run.Attr("Id")
	return id
}

// Flowcell returns the flowcell identifier from RunInfo.xml.
func (r *Recognizer) Flowcell() string {
	fc, _ := r.runInfo.Value("RunInfo", "Run", "Flowcell")
	return fc
}
