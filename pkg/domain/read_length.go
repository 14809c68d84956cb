package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ReadLength is the length of the non-index reads of a run: a single cycle
// count ("36") or the dash-joined lengths of two reads ("150-150").
type ReadLength string

// NewReadLength joins the given read lengths with "-".
func NewReadLength(lengths ...int) ReadLength {
	parts := make([]string, len(lengths))
	for i, l := range lengths {
		parts[i] = strconv.Itoa(l)
	}
	return ReadLength(strings.Join(parts, "-"))
}

// String implements fmt.Stringer.
func (r ReadLength) String() string { return string(r) }

// Lengths returns the individual read lengths.
func (r ReadLength) Lengths() ([]int, error) {
	if strings.TrimSpace(string(r)) == "" {
		return nil, fmt.Errorf("empty read length")
	}
	parts := strings.Split(string(r), "-")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("read length %q: %w", string(r), err)
		}
		out = append(out, n)
	}
	return out, nil
}

// Primary returns the length used for numeric comparisons against config
// keys: the first read's length.
func (r ReadLength) Primary() (int, error) {
	lengths, err := r.Lengths()
	if err != nil {
		return 0, err
	}
	return lengths[0], nil
}
