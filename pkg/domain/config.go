package domain

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// HandlerSpec is one configured handler invocation: the handler name, its
// thresholds and any handler-specific options.
type HandlerSpec struct {
	Name    string
	Error   *float64
	Warning *float64
	Options map[string]any
}

// Params returns the parameter bundle passed to the handler.
func (s HandlerSpec) Params() Params {
	return Params{Error: s.Error, Warning: s.Warning, Options: s.Options}
}

// ErrMissingThreshold is returned when a handler needs a threshold the config did not set.
var ErrMissingThreshold = errors.New("missing threshold")

// Params is the structured parameter bundle a handler receives.
type Params struct {
	Error   *float64
	Warning *float64
	Options map[string]any
}

// Thresholds returns the error and warning thresholds, failing when either is unset.
func (p Params) Thresholds(handler string) (errorAt, warningAt float64, err error) {
	if p.Error == nil {
		return 0, 0, fmt.Errorf("%s: %w: error", handler, ErrMissingThreshold)
	}
	if p.Warning == nil {
		return 0, 0, fmt.Errorf("%s: %w: warning", handler, ErrMissingThreshold)
	}
	return *p.Error, *p.Warning, nil
}

// Bool reads a boolean option, returning def when it is absent or not a bool.
func (p Params) Bool(key string, def bool) bool {
	v, ok := p.Options[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// Float reads a numeric option, returning def when it is absent or not numeric.
func (p Params) Float(key string, def float64) float64 {
	switch v := p.Options[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

// ReadLengthConfig is the configuration selected for one read-length key.
type ReadLengthConfig struct {
	View     string
	Handlers []HandlerSpec
}

// ReportConfig is the handler configuration for one instrument and reagent
// version, keyed by read length ("36") or inclusive read-length range ("37-39").
type ReportConfig struct {
	ReadLengths     map[string]ReadLengthConfig
	DefaultHandlers []HandlerSpec
}

// KeyRange is the inclusive numeric interval a read-length key covers.
type KeyRange struct {
	Key  string
	Low  int
	High int
}

// ParseKeyRange parses "36" into [36,36] and "37-39" into [37,39].
func ParseKeyRange(key string) (KeyRange, error) {
	parts := strings.Split(strings.TrimSpace(key), "-")
	switch len(parts) {
	case 1:
		n, err := strconv.Atoi(parts[0])
		if err != nil {
			return KeyRange{}, fmt.Errorf("read length key %q is not a number", key)
		}
		return KeyRange{Key: key, Low: n, High: n}, nil
	case 2:
		low, errLow := strconv.Atoi(strings.TrimSpace(parts[0]))
		high, errHigh := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errLow != nil || errHigh != nil {
			return KeyRange{}, fmt.Errorf("read length key %q is not a numeric range", key)
		}
		if low > high {
			return KeyRange{}, fmt.Errorf("read length key %q has low bound above high bound", key)
		}
		return KeyRange{Key: key, Low: low, High: high}, nil
	default:
		return KeyRange{}, fmt.Errorf("read length key %q has too many bounds", key)
	}
}

// Contains reports whether n falls inside the range.
func (k KeyRange) Contains(n int) bool {
	return k.Low <= n && n <= k.High
}

// Distance is zero inside the range and the gap to the nearest bound outside it.
func (k KeyRange) Distance(n int) int {
	switch {
	case n < k.Low:
		return k.Low - n
	case n > k.High:
		return n - k.High
	default:
		return 0
	}
}

func (k KeyRange) overlaps(o KeyRange) bool {
	return k.Low <= o.High && o.Low <= k.High
}

// Ranges returns the parseable keys sorted by lower bound, then upper bound.
func (c ReportConfig) Ranges() []KeyRange {
	out := make([]KeyRange, 0, len(c.ReadLengths))
	for key := range c.ReadLengths {
		r, err := ParseKeyRange(key)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Low != out[j].Low {
			return out[i].Low < out[j].Low
		}
		if out[i].High != out[j].High {
			return out[i].High < out[j].High
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Resolve selects the configuration entry for a read length. An exact key
// match wins, then a key whose range contains the read length. When
// useClosest is set and nothing matched, the key nearest to the read length
// is chosen; ties go to the key with the smaller bounds.
func (c ReportConfig) Resolve(readLength ReadLength, useClosest bool) (string, ReadLengthConfig, error) {
	if entry, ok := c.ReadLengths[string(readLength)]; ok {
		return string(readLength), entry, nil
	}
	notFound := ReadLengthNotFoundError{ReadLength: readLength, Closest: useClosest}
	n, err := readLength.Primary()
	if err != nil {
		return "", ReadLengthConfig{}, notFound
	}
	ranges := c.Ranges()
	for _, r := range ranges {
		if r.Contains(n) {
			return r.Key, c.ReadLengths[r.Key], nil
		}
	}
	if !useClosest || len(ranges) == 0 {
		return "", ReadLengthConfig{}, notFound
	}
	best := ranges[0]
	bestDist := best.Distance(n)
	for _, r := range ranges[1:] {
		if d := r.Distance(n); d < bestDist {
			best, bestDist = r, d
		}
	}
	return best.Key, c.ReadLengths[best.Key], nil
}

// Validate checks that every key parses, that no two keys overlap and that
// every handler spec names a handler.
func (c ReportConfig) Validate() error {
	var problems []string
	var ranges []KeyRange
	for key := range c.ReadLengths {
		r, err := ParseKeyRange(key)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		ranges = append(ranges, r)
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Low < ranges[j].Low })
	for i := 1; i < len(ranges); i++ {
		// widest earlier range reaching furthest right
		widest := ranges[0]
		for _, r := range ranges[1:i] {
			if r.High > widest.High {
				widest = r
			}
		}
		if widest.overlaps(ranges[i]) {
			problems = append(problems, fmt.Sprintf("read length keys %q and %q overlap", widest.Key, ranges[i].Key))
		}
	}
	for key, entry := range c.ReadLengths {
		for i, spec := range entry.Handlers {
			if strings.TrimSpace(spec.Name) == "" {
				problems = append(problems, fmt.Sprintf("read length %q: handler %d has no name", key, i))
			}
		}
	}
	for i, spec := range c.DefaultHandlers {
		if strings.TrimSpace(spec.Name) == "" {
			problems = append(problems, fmt.Sprintf("default handler %d has no name", i))
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return ConfigError{Problems: problems}
	}
	return nil
}
