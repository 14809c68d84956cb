package bclconvert

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"checkqc/internal/blob"
	"checkqc/internal/runfolder"
	"checkqc/internal/runtype"
	"checkqc/pkg/domain"
)

const demultiplexStats = `Lane,SampleID,Sample_Project,Index,# Reads,# Perfect Index Reads,# One Mismatch Index Reads,# Two Mismatch Index Reads,% Reads,% Perfect Index Reads,% One Mismatch Index Reads,% Two Mismatch Index Reads
1,Sample_1,AB-1234,GAACTGAGCG-TCGTGGAGCG,1000,990,10,0,0.2500,0.9900,0.0100,0.0000
1,Sample_2,CD-5678,AGGTCAGATA-CTACAAGATA,2000,1990,10,0,0.5000,0.9950,0.0050,0.0000
1,Undetermined,,,1000,1000,0,0,0.2500,1.0000,0.0000,0.0000
2,Sample_1,AB-1234,GAACTGAGCG-TCGTGGAGCG,3000,2990,10,0,0.7500,0.9967,0.0033,0.0000
2,Undetermined,,,1000,1000,0,0,0.2500,1.0000,0.0000,0.0000
`

const qualityMetrics = `Lane,SampleID,index,index2,ReadNumber,Yield,YieldQ30,QualityScoreSum,Mean Quality Score (PF),% Q30
1,Sample_1,GAACTGAGCG,TCGTGGAGCG,1,36000,34000,1000000,35.00,0.94
1,Sample_1,GAACTGAGCG,TCGTGGAGCG,I1,10000,9000,300000,33.00,0.90
1,Sample_2,AGGTCAGATA,CTACAAGATA,1,72000,70000,2000000,35.00,0.97
1,Sample_2,AGGTCAGATA,CTACAAGATA,I1,20000,18000,600000,33.00,0.90
1,Undetermined,,,1,36000,30000,1000000,33.00,0.83
1,Undetermined,,,I1,10000,8000,300000,31.00,0.80
2,Sample_1,GAACTGAGCG,TCGTGGAGCG,1,108000,100000,3000000,35.00,0.93
2,Undetermined,,,1,36000,0,1000000,33.00,0.00
`

const topUnknown = `Lane,index,index2,# Reads,% of Unknown Barcodes,% of All Reads
1,ATATCTGCTT,TAGACAATCT,500,0.5000,0.1250
1,CACCTCTCTT,CTCGACTCCT,300,0.3000,0.0750
2,ATATCTGCTT,,700,0.7000,0.1750
`

const samplesheet = `[Header],,,
FileFormatVersion,2,,
RunName,TINY,,
,,,
[Reads],,,
Read1Cycles,37,,
Index1Cycles,10,,
[BCLConvert_Settings],,,
SoftwareVersion,3.9.3,,
[BCLConvert_Data],,,
Lane,Sample_ID,Index,Sample_Project
1,Sample_1,GAACTGAGCG,AB-1234
1,Sample_2,AGGTCAGATA,CD-5678
2,Sample_1,GAACTGAGCG,AB-1234
`

var layout = []runtype.Read{
	{Number: 1, Cycles: 37},
	{Number: 2, Cycles: 10, IsIndex: true},
}

func runFolder(t *testing.T, files map[string]string) *runfolder.Folder {
	t.Helper()
	store := blob.NewMemory()
	for name, body := range files {
		if _, err := store.Put(context.Background(), "run/"+name, strings.NewReader(body), blob.PutOptions{}); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}
	f, err := runfolder.New(store, "run")
	if err != nil {
		t.Fatalf("runfolder: %v", err)
	}
	return f
}

func fullRunFolder(t *testing.T) *runfolder.Folder {
	return runFolder(t, map[string]string{
		runfolder.DemultiplexStats:   demultiplexStats,
		runfolder.QualityMetrics:     qualityMetrics,
		runfolder.TopUnknownBarcodes: topUnknown,
		runfolder.SampleSheet:        samplesheet,
	})
}

func TestParseSequencingMetrics(t *testing.T) {
	reports, err := Parse(context.Background(), fullRunFolder(t), layout)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	nan := math.NaN()
	want := domain.SequencingMetrics{
		1: {
			TotalClusterPF:    4000,
			Yield:             144000,
			YieldUndetermined: 36000,
			TopUnknownBarcodes: []domain.UnknownBarcode{
				{Index: "ATATCTGCTT+TAGACAATCT", Count: 500},
				{Index: "CACCTCTCTT+CTCGACTCCT", Count: 300},
			},
			Reads: map[int]domain.ReadMetrics{
				1: {MeanErrorRate: nan, PercentQ30: 134000.0 / 144000.0 * 100, MeanPercentPhiXAligned: nan},
				2: {MeanErrorRate: nan, PercentQ30: 35000.0 / 40000.0 * 100, IsIndex: true, MeanPercentPhiXAligned: nan},
			},
		},
		2: {
			TotalClusterPF:     4000,
			Yield:              144000,
			YieldUndetermined:  36000,
			TopUnknownBarcodes: []domain.UnknownBarcode{{Index: "ATATCTGCTT", Count: 700}},
			Reads: map[int]domain.ReadMetrics{
				1: {MeanErrorRate: nan, PercentQ30: 100000.0 / 144000.0 * 100, MeanPercentPhiXAligned: nan},
			},
		},
	}
	if diff := cmp.Diff(want, reports.Metrics, cmpopts.EquateNaNs(), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("metrics mismatch (-want +got):\n%s", diff)
	}
	if got := reports.Metrics[1].PercentUndetermined(); math.Abs(got-25) > 1e-9 {
		t.Fatalf("expected 25%% undetermined, got %v", got)
	}
}

func TestParseSamplesheetSections(t *testing.T) {
	reports, err := Parse(context.Background(), fullRunFolder(t), layout)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sheet := reports.Samplesheet
	if sheet.Settings["Header"]["RunName"] != "TINY" || sheet.Settings["BCLConvert_Settings"]["SoftwareVersion"] != "3.9.3" {
		t.Fatalf("unexpected settings %+v", sheet.Settings)
	}
	want := []map[string]string{
		{"Lane": "1", "Sample_ID": "Sample_1", "Index": "GAACTGAGCG", "Sample_Project": "AB-1234"},
		{"Lane": "1", "Sample_ID": "Sample_2", "Index": "AGGTCAGATA", "Sample_Project": "CD-5678"},
		{"Lane": "2", "Sample_ID": "Sample_1", "Index": "GAACTGAGCG", "Sample_Project": "AB-1234"},
	}
	if diff := cmp.Diff(want, sheet.Section(DataSection)); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
	if sheet.SamplesInLane(DataSection, 1) != 2 || sheet.SamplesInLane(DataSection, 2) != 1 {
		t.Fatalf("unexpected samples per lane")
	}
}

func TestParseWithoutTopUnknownBarcodes(t *testing.T) {
	f := runFolder(t, map[string]string{
		runfolder.DemultiplexStats: demultiplexStats,
		runfolder.QualityMetrics:   qualityMetrics,
		runfolder.SampleSheet:      samplesheet,
	})
	reports, err := Parse(context.Background(), f, layout)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(reports.Metrics[1].TopUnknownBarcodes) != 0 {
		t.Fatalf("expected no unknown barcodes")
	}
}

func TestParseMissingRequiredReport(t *testing.T) {
	f := runFolder(t, map[string]string{
		runfolder.QualityMetrics: qualityMetrics,
		runfolder.SampleSheet:    samplesheet,
	})
	if _, err := Parse(context.Background(), f, layout); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected missing demultiplex stats error, got %v", err)
	}
}

func TestParseRejectsBadReports(t *testing.T) {
	cases := map[string]map[string]string{
		"missing column": {
			runfolder.DemultiplexStats: "Lane,SampleID\n1,S1\n",
		},
		"bad count": {
			runfolder.DemultiplexStats: "Lane,SampleID,# Reads\n1,S1,many\n",
		},
		"unknown read label": {
			runfolder.DemultiplexStats: demultiplexStats,
			runfolder.QualityMetrics:   "Lane,SampleID,ReadNumber,Yield,YieldQ30\n1,S1,3,10,10\n",
		},
		"empty report": {
			runfolder.DemultiplexStats: "",
		},
	}
	for name, files := range cases {
		t.Run(name, func(t *testing.T) {
			files[runfolder.SampleSheet] = samplesheet
			if _, err := Parse(context.Background(), runFolder(t, files), layout); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
	if _, err := Parse(context.Background(), fullRunFolder(t), nil); err == nil {
		t.Fatalf("expected empty layout error")
	}
}

func TestIntegerAcceptsFloatCounts(t *testing.T) {
	tbl, err := readTable("x.csv", strings.NewReader("Lane,# Reads\n1,1234.0\n"))
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	v, err := tbl.integer(2, tbl.rows[0], "# Reads")
	if err != nil || v != 1234 {
		t.Fatalf("expected 1234, got %d %v", v, err)
	}
}

func TestParseSamplesheetErrors(t *testing.T) {
	if _, err := ParseSamplesheet(strings.NewReader("Lane,Sample_ID\n1,S1\n")); err == nil {
		t.Fatalf("expected content before section error")
	}
	sheet, err := ParseSamplesheet(strings.NewReader("\ufeff[Data]\nSample_ID,Index\nS1\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rows := sheet.Section("Data")
	if len(rows) != 1 || rows[0]["Sample_ID"] != "S1" || rows[0]["Index"] != "" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}
