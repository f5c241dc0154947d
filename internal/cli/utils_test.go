package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/docindex/internal/models"
)

func sampleReport() *models.RunReport {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return &models.RunReport{
		RunID:      "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Files:      2,
		Records:    9,
		Anomalies:  1,
		Committed:  true,
		FileStats: []models.FileSummary{
			{Path: "/docs/a.md", RootID: "a.md:##DOC", Records: 4},
			{Path: "/docs/b.md", RootID: "b.md:##DOC", Records: 5, Anomalies: 1},
		},
		PathErrors: []models.PathError{{Path: "/missing", Error: "stat: no such file"}},
		Kinds:      map[string]int{"section": 3, "paragraph": 7},
	}
}

func TestWriteReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, sampleReport(), OutputJSON); err != nil {
		t.Fatalf("WriteReport(json): %v", err)
	}
	var decoded models.RunReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Files != 2 || decoded.Records != 9 || len(decoded.FileStats) != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteReport_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, sampleReport(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"run-1", "Files:", "Records:", "9", "COMMITTED", "/docs/b.md", "1 anomalies", "paragraph=7 section=3", "/missing"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteReport_TextNotCommitted(t *testing.T) {
	r := &models.RunReport{RunID: "r"}
	var buf bytes.Buffer
	if err := WriteReport(&buf, r, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "NOT COMMITTED") {
		t.Errorf("output = %s", buf.String())
	}
}

func TestWriteStatus(t *testing.T) {
	st := &Status{Records: 12, DatabasePath: "/var/db", DiskUsageBytes: 2048, LastRun: sampleReport()}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, st, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"12", "/var/db", "2.0 KiB", "2024-05-01 10:00:00", "committed"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := WriteStatus(&buf, &Status{}, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No runs recorded") {
		t.Errorf("empty status = %s", buf.String())
	}

	buf.Reset()
	if err := WriteStatus(&buf, st, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded Status
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Records != 12 || decoded.LastRun == nil {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
