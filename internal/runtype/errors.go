package runtype

import "errors"

// Errors returned while recognizing a run. They are wrapped with context, so
// compare with errors.Is.
var (
	ErrRunInfoXMLNotFound    = errors.New("could not find RunInfo.xml")
	ErrRunParametersNotFound = errors.New("could not find [R|r]unParameters.xml")
	ErrInstrumentTypeUnknown = errors.New("instrument type unknown")
	ErrReagentVersionUnknown = errors.New("reagent version unknown")
	ErrRunModeUnknown        = errors.New("run mode unknown")
)
