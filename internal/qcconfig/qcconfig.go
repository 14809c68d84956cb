// Package qcconfig loads the YAML handler configuration and validates it once
// at load time.
//
// The file maps instrument/reagent keys (as produced by the run type
// recognizer, e.g. "novaseq_v1") to read-length keys, each carrying a view
// name and a list of handler specs. A top-level default_handlers list applies
// to every instrument.
package qcconfig

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"checkqc/internal/core"
	"checkqc/pkg/domain"
)

const defaultHandlersKey = "default_handlers"

// ErrUnknownInstrument is returned by ForInstrument when the file has no
// section for the requested key.
var ErrUnknownInstrument = errors.New("no handler configuration for instrument")

// Catalog is the view of the handler registry validation needs.
// *core.Registry satisfies it.
type Catalog interface {
	HasHandler(name string) bool
	HasView(name string) bool
	Direction(name string) (core.Direction, bool)
}

// ValidationError lists every problem found in a configuration file.
type ValidationError struct {
	Problems []string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid qc config:\n- %s", strings.Join(e.Problems, "\n- "))
}

// Instrument is the configuration section for one instrument/reagent key.
type Instrument struct {
	ReadLengths     map[string]domain.ReadLengthConfig
	DefaultHandlers []domain.HandlerSpec
}

// File is a parsed and validated handler configuration.
type File struct {
	DefaultHandlers []domain.HandlerSpec
	Instruments     map[string]Instrument
	// Digest identifies the exact bytes the file was parsed from.
	Digest string
	Path   string
}

// Load reads and parses the configuration at path. catalog may be nil, in
// which case handler and view names are not checked.
func Load(path string, catalog Catalog) (*File, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read qc config: %w", err)
	}
	file, err := Parse(data, catalog)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	file.Path = path
	return file, nil
}

// Parse decodes and validates a configuration document.
func Parse(data []byte, catalog Catalog) (*File, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode qc config: %w", err)
	}
	sum := sha256.Sum256(data)
	file := &File{
		Instruments: make(map[string]Instrument),
		Digest:      "sha256:" + hex.EncodeToString(sum[:]),
	}
	if len(root.Content) == 0 {
		return file, nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("decode qc config: line %d: top level must be a mapping", doc.Line)
	}

	var problems []string
	err := eachPair(doc, func(key string, value *yaml.Node) error {
		if key == defaultHandlersKey {
			specs, err := decodeSpecs(value)
			if err != nil {
				return fmt.Errorf("%s: %w", defaultHandlersKey, err)
			}
			file.DefaultHandlers = specs
			return nil
		}
		inst, err := decodeInstrument(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		file.Instruments[key] = inst
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode qc config: %w", err)
	}

	problems = append(problems, checkSpecs(defaultHandlersKey, file.DefaultHandlers, catalog)...)
	for key, inst := range file.Instruments {
		problems = append(problems, validateInstrument(key, inst, catalog)...)
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, ValidationError{Problems: problems}
	}
	return file, nil
}

// ForInstrument returns the report configuration for an instrument/reagent
// key. Top-level default handlers come before the instrument's own.
func (f *File) ForInstrument(key string) (domain.ReportConfig, error) {
	inst, ok := f.Instruments[key]
	if !ok {
		return domain.ReportConfig{}, fmt.Errorf("%w %q", ErrUnknownInstrument, key)
	}
	cfg := domain.ReportConfig{
		ReadLengths:     make(map[string]domain.ReadLengthConfig, len(inst.ReadLengths)),
		DefaultHandlers: make([]domain.HandlerSpec, 0, len(f.DefaultHandlers)+len(inst.DefaultHandlers)),
	}
	for k, v := range inst.ReadLengths {
		cfg.ReadLengths[k] = domain.ReadLengthConfig{View: v.View, Handlers: append([]domain.HandlerSpec(nil), v.Handlers...)}
	}
	cfg.DefaultHandlers = append(cfg.DefaultHandlers, f.DefaultHandlers...)
	cfg.DefaultHandlers = append(cfg.DefaultHandlers, inst.DefaultHandlers...)
	return cfg, nil
}

// InstrumentKeys returns the configured instrument keys in sorted order.
func (f *File) InstrumentKeys() []string {
	keys := make([]string, 0, len(f.Instruments))
	for k := range f.Instruments {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func validateInstrument(key string, inst Instrument, catalog Catalog) []string {
	var problems []string
	cfg := domain.ReportConfig{ReadLengths: inst.ReadLengths, DefaultHandlers: inst.DefaultHandlers}
	var cfgErr domain.ConfigError
	if err := cfg.Validate(); errors.As(err, &cfgErr) {
		for _, p := range cfgErr.Problems {
			problems = append(problems, key+": "+p)
		}
	}
	problems = append(problems, checkSpecs(key+"."+defaultHandlersKey, inst.DefaultHandlers, catalog)...)
	for rl, entry := range inst.ReadLengths {
		where := fmt.Sprintf("%s.%s", key, rl)
		problems = append(problems, checkSpecs(where, entry.Handlers, catalog)...)
		if catalog != nil && entry.View != "" && !catalog.HasView(entry.View) {
			problems = append(problems, fmt.Sprintf("%s: unknown view %q", where, entry.View))
		}
	}
	return problems
}

func checkSpecs(where string, specs []domain.HandlerSpec, catalog Catalog) []string {
	var problems []string
	for i, spec := range specs {
		if spec.Name == "" {
			// reported by ReportConfig.Validate for instrument sections
			if where == defaultHandlersKey {
				problems = append(problems, fmt.Sprintf("%s[%d]: handler has no name", where, i))
			}
			continue
		}
		if catalog == nil {
			continue
		}
		if !catalog.HasHandler(spec.Name) {
			problems = append(problems, fmt.Sprintf("%s[%d]: unknown handler %q", where, i, spec.Name))
			continue
		}
		if spec.Error == nil || spec.Warning == nil {
			continue
		}
		dir, ok := catalog.Direction(spec.Name)
		if !ok {
			continue
		}
		errAt, warnAt := *spec.Error, *spec.Warning
		switch {
		case dir == core.HigherIsWorse && !(errAt > warnAt):
			problems = append(problems, fmt.Sprintf("%s[%d]: %s error threshold %v must be greater than warning threshold %v",
				where, i, spec.Name, errAt, warnAt))
		case dir == core.LowerIsWorse && !(errAt < warnAt):
			problems = append(problems, fmt.Sprintf("%s[%d]: %s error threshold %v must be less than warning threshold %v",
				where, i, spec.Name, errAt, warnAt))
		}
	}
	return problems
}
