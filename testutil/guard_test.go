package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPredicates(t *testing.T) {
	cases := []struct {
		name string
		fn   func(string) bool
		in   string
		want bool
	}{
		{"stdlib", NonStdlibImport, "encoding/json", false},
		{"module", NonStdlibImport, "checkqc/internal/core", true},
		{"third party", NonStdlibImport, "gopkg.in/yaml.v3", true},
		{"internal", InternalImportForbidden, "checkqc/internal/core", true},
		{"public", InternalImportForbidden, "checkqc/pkg/domain", false},
		{"foreign internal", InternalImportForbidden, "example.com/mod/internal/x", false},
		{"under exact", ImportsUnder("internal/cli"), "checkqc/internal/cli", true},
		{"under sub", ImportsUnder("/internal/infra/"), "checkqc/internal/infra/blob/s3", true},
		{"under prefix only", ImportsUnder("internal/cli"), "checkqc/internal/client", false},
	}
	for _, c := range cases {
		if got := c.fn(c.in); got != c.want {
			t.Fatalf("%s: predicate(%q)=%v want %v", c.name, c.in, got, c.want)
		}
	}
}

type recordingT struct{ msg string }

func (r *recordingT) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func writeFile(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package tmp\nimport (\n\t\"fmt\"\n\t\"checkqc/internal/cli\"\n)\nvar _ = fmt.Sprint\n")
	writeFile(t, dir, "a_test.go", "package tmp\nimport \"checkqc/internal/qcconfig\"\n")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	viols, err := directImportViolations(dir, ImportsUnder("internal/cli", "internal/qcconfig"))
	if err != nil {
		t.Fatalf("directImportViolations: %v", err)
	}
	if len(viols) != 1 || !strings.HasPrefix(viols[0], "checkqc/internal/cli (in a.go)") {
		t.Fatalf("unexpected violations %v", viols)
	}

	rec := &recordingT{}
	failIf(rec, "forbidden direct imports detected", "layering", viols)
	if !strings.Contains(rec.msg, "layering") {
		t.Fatalf("expected failure message, got %q", rec.msg)
	}
}

func TestDirectImportViolationsErrors(t *testing.T) {
	if _, err := directImportViolations(filepath.Join(t.TempDir(), "missing"), NonStdlibImport); err == nil {
		t.Fatalf("expected error for missing dir")
	}
	dir := t.TempDir()
	writeFile(t, dir, "broken.go", "package tmp\nimport (\n")
	if _, err := directImportViolations(dir, NonStdlibImport); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestTransitiveDependencyViolations(t *testing.T) {
	orig := goListDeps
	t.Cleanup(func() { goListDeps = orig })

	goListDeps = func(string) ([]byte, error) {
		return []byte("fmt\ncheckqc/pkg/domain\ncheckqc/internal/core\n\n"), nil
	}
	viols, _, err := transitiveDependencyViolations("./...", InternalImportForbidden)
	if err != nil || len(viols) != 1 || viols[0] != "checkqc/internal/core" {
		t.Fatalf("unexpected result %v %v", viols, err)
	}

	goListDeps = func(string) ([]byte, error) { return []byte("boom"), errors.New("exit status 1") }
	if _, out, err := transitiveDependencyViolations(".", InternalImportForbidden); err == nil || string(out) != "boom" {
		t.Fatalf("expected go list failure to surface, got %v %q", err, out)
	}
}
