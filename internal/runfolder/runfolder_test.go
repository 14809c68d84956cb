package runfolder

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"checkqc/internal/blob"
	"checkqc/internal/runtype"
)

func seed(t *testing.T, files map[string]string) blob.Store {
	t.Helper()
	store := blob.NewMemory()
	for k, v := range files {
		if _, err := store.Put(context.Background(), k, strings.NewReader(v), blob.PutOptions{}); err != nil {
			t.Fatalf("seed %s: %v", k, err)
		}
	}
	return store
}

func TestFolderOpenAndExists(t *testing.T) {
	store := seed(t, map[string]string{
		"runs/200624_A00834_0183_BHMTFYDRXX/RunInfo.xml":                   "<RunInfo/>",
		"runs/200624_A00834_0183_BHMTFYDRXX/Reports/Demultiplex_Stats.csv": "Lane\n",
	})
	f, err := New(store, "/runs/200624_A00834_0183_BHMTFYDRXX/")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if f.Name() != "200624_A00834_0183_BHMTFYDRXX" || f.Path() != "runs/200624_A00834_0183_BHMTFYDRXX" {
		t.Fatalf("unexpected folder %q %q", f.Name(), f.Path())
	}
	rc, err := f.Open(context.Background(), runtype.RunInfoFile)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "<RunInfo/>" {
		t.Fatalf("unexpected body %q", b)
	}
	if _, err := f.Open(context.Background(), SampleSheet); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	ok, err := f.Exists(context.Background(), DemultiplexStats)
	if err != nil || !ok {
		t.Fatalf("expected demultiplex stats to exist: %v", err)
	}
	ok, err = f.Exists(context.Background(), TopUnknownBarcodes)
	if err != nil || ok {
		t.Fatalf("expected top unknown barcodes missing: %v", err)
	}
}

func TestFolderList(t *testing.T) {
	store := seed(t, map[string]string{
		"run1/Reports/Demultiplex_Stats.csv": "a",
		"run1/Reports/Quality_Metrics.csv":   "b",
		"run1/RunInfo.xml":                   "c",
		"run10/RunInfo.xml":                  "d",
	})
	f, _ := New(store, "run1")
	all, err := f.List(context.Background(), "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[2] != "RunInfo.xml" {
		t.Fatalf("expected sibling run10 excluded, got %v", all)
	}
	reports, err := f.List(context.Background(), "Reports/")
	if err != nil {
		t.Fatalf("list reports: %v", err)
	}
	if len(reports) != 2 || reports[0] != DemultiplexStats || reports[1] != QualityMetrics {
		t.Fatalf("unexpected reports %v", reports)
	}
}

func TestFolderArchiveCreateOnly(t *testing.T) {
	store := blob.NewMemory()
	f, _ := New(store, "run1")
	key, err := f.Archive(context.Background(), "report-1.json", []byte(`{}`), "application/json")
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if key != "run1/checkqc/report-1.json" {
		t.Fatalf("unexpected key %q", key)
	}
	if _, err := f.Archive(context.Background(), "report-1.json", []byte(`{}`), ""); err == nil {
		t.Fatalf("expected duplicate archive error")
	}
}

func TestFolderRootAndRecognizer(t *testing.T) {
	store := seed(t, map[string]string{
		runtype.RunInfoFile: `<RunInfo><Run Id="r1"><Instrument>M04560</Instrument><Reads>` +
			`<Read Number="1" NumCycles="301" IsIndexedRead="N"/></Reads></Run></RunInfo>`,
		runtype.RunParametersFileAlt: `<RunParameters><ReagentKitVersion>Version3</ReagentKitVersion></RunParameters>`,
	})
	f, _ := New(store, "")
	if f.Name() != "" {
		t.Fatalf("expected empty name for root folder")
	}
	rec, err := runtype.NewRecognizer(context.Background(), f)
	if err != nil {
		t.Fatalf("recognizer: %v", err)
	}
	version, err := rec.InstrumentAndReagentVersion()
	if err != nil || version != "miseq_v3" {
		t.Fatalf("expected miseq_v3, got %q %v", version, err)
	}
	if _, err := New(nil, "x"); err == nil {
		t.Fatalf("expected nil store error")
	}
}
