package core

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"checkqc/pkg/domain"
)

type namedHandler string

func (h namedHandler) Name() string { return string(h) }

func (namedHandler) Check(context.Context, *QCData, domain.Params) (domain.Result, error) {
	return domain.Result{}, nil
}

func TestRegistryRejectsDuplicateNormalizedNames(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterHandler(namedHandler("Q30Handler")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.RegisterHandler(namedHandler("q30_handler")); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if err := reg.RegisterHandler(nil); err == nil {
		t.Fatalf("expected nil handler error")
	}
	if err := reg.RegisterHandler(namedHandler(" _ ")); err == nil {
		t.Fatalf("expected empty name error")
	}
	if !reg.HasHandler("Q30_HANDLER") {
		t.Fatalf("expected case-insensitive lookup")
	}
	var unknown UnknownHandlerError
	if _, err := reg.Handler("Other"); !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownHandlerError, got %v", err)
	}
}

func TestRegistryBuiltins(t *testing.T) {
	reg := NewRegistry()
	if err := RegisterBuiltins(reg); err != nil {
		t.Fatalf("builtins: %v", err)
	}
	if diff := cmp.Diff([]string{ErrorRateHandlerName, YieldHandlerName}, reg.HandlerNames()); diff != "" {
		t.Fatalf("handler names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{IlluminaViewName, JSONViewName}, reg.ViewNames()); diff != "" {
		t.Fatalf("view names mismatch (-want +got):\n%s", diff)
	}
	if err := RegisterBuiltins(reg); err == nil {
		t.Fatalf("expected second registration to fail")
	}
	if d, ok := reg.Direction("ErrorRateHandler"); !ok || d != HigherIsWorse {
		t.Fatalf("expected error rate to be higher-is-worse")
	}
	if d, ok := reg.Direction("YieldHandler"); !ok || d != LowerIsWorse {
		t.Fatalf("expected yield to be lower-is-worse")
	}
	if err := reg.RegisterHandler(namedHandler("Plain")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, ok := reg.Direction("Plain"); ok {
		t.Fatalf("handlers without ordered thresholds have no direction")
	}
	if _, ok := reg.Direction("Missing"); ok {
		t.Fatalf("unknown handlers have no direction")
	}
	if _, err := reg.View("Illumina_View"); err != nil {
		t.Fatalf("expected loose view lookup: %v", err)
	}
}
