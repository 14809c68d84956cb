package domain

import (
	"fmt"
	"strings"
)

// ReadLengthNotFoundError is returned when no configuration entry matches the
// run's read length.
type ReadLengthNotFoundError struct {
	ReadLength ReadLength
	Closest    bool
}

func (e ReadLengthNotFoundError) Error() string {
	if e.Closest {
		return fmt.Sprintf("no handler configuration close to read length %s", e.ReadLength)
	}
	return fmt.Sprintf("no handler configuration for read length %s", e.ReadLength)
}

// ThresholdOrderError is returned when a handler is configured with an error
// threshold that does not lie beyond its warning threshold.
type ThresholdOrderError struct {
	Handler          string
	ErrorThreshold   float64
	WarningThreshold float64
}

func (e ThresholdOrderError) Error() string {
	return fmt.Sprintf("%s: error threshold %v must be greater than warning threshold %v", e.Handler, e.ErrorThreshold, e.WarningThreshold)
}

// ConfigError lists the problems found while validating a handler configuration.
type ConfigError struct {
	Problems []string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("invalid handler configuration:\n- %s", strings.Join(e.Problems, "\n- "))
}
