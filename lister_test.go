package pigz

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"testing"
	"time"
)

func TestListGzipEntry(t *testing.T) {
	data := randomText(10000, 20)
	var src bytes.Buffer
	gw := gzip.NewWriter(&src)
	gw.Name = "report.log"
	gw.ModTime = time.Date(2022, time.May, 1, 0, 0, 0, 0, time.UTC)
	gw.Write(data)
	gw.Close()

	entries, err := List(bytes.NewReader(src.Bytes()), "fallback-name")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Name != "report.log" {
		t.Errorf("Name = %q, want %q", e.Name, "report.log")
	}
	if e.Method != "defla" {
		t.Errorf("Method = %q, want %q", e.Method, "defla")
	}
	if e.ULen != int64(len(data)) {
		t.Errorf("ULen = %d, want %d", e.ULen, len(data))
	}
	if e.CLen <= 0 || e.CLen >= e.ULen {
		t.Errorf("CLen = %d looks wrong relative to ULen = %d", e.CLen, e.ULen)
	}
}

func TestListFallsBackToGivenNameWhenHeaderHasNone(t *testing.T) {
	data := randomText(500, 21)
	var src bytes.Buffer
	gw := gzip.NewWriter(&src)
	gw.Write(data)
	gw.Close()

	entries, err := List(bytes.NewReader(src.Bytes()), "archive.gz")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if entries[0].Name != "archive.gz" {
		t.Errorf("Name = %q, want fallback %q", entries[0].Name, "archive.gz")
	}
}

func TestListZlibEntryHasNoLength(t *testing.T) {
	data := randomText(2000, 22)
	var src bytes.Buffer
	zw := zlib.NewWriter(&src)
	zw.Write(data)
	zw.Close()

	entries, err := List(bytes.NewReader(src.Bytes()), "stream.zz")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if entries[0].ULen != 0 {
		t.Errorf("zlib entry ULen = %d, want 0 (zlib carries no length)", entries[0].ULen)
	}
	if entries[0].ReductionPercent() != 0 {
		t.Errorf("ReductionPercent with ULen=0 = %v, want 0", entries[0].ReductionPercent())
	}
}

func TestListConcatenatedGzipMembers(t *testing.T) {
	var src bytes.Buffer
	for i := 0; i < 3; i++ {
		gw := gzip.NewWriter(&src)
		gw.Write(randomText(1000, int64(30+i)))
		gw.Close()
	}
	entries, err := List(bytes.NewReader(src.Bytes()), "multi.gz")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("entries = %d, want 3", len(entries))
	}
}

func TestListMatchesWriterOutput(t *testing.T) {
	data := randomText(200000, 23)
	cfg := Config{Format: FormatGzip, Name: "big.bin", Procs: 4, BlockSize: MinBlockSize}
	var src bytes.Buffer
	w, err := NewWriter(&src, cfg)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries, err := List(bytes.NewReader(src.Bytes()), "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].ULen != int64(len(data)) {
		t.Errorf("ULen = %d, want %d", entries[0].ULen, len(data))
	}
	if entries[0].Name != "big.bin" {
		t.Errorf("Name = %q, want %q", entries[0].Name, "big.bin")
	}
}

func TestAbbreviate(t *testing.T) {
	cases := []struct {
		name  string
		width int
		want  string
	}{
		{"short.txt", 20, "short.txt"},
		{"a-very-long-filename-indeed.tar.gz", 10, "a-very-..."},
		{"exact", 5, "exact"},
		{"ab", 2, "ab"},
		{"abcdef", 3, "abc"},
	}
	for _, c := range cases {
		if got := Abbreviate(c.name, c.width); got != c.want {
			t.Errorf("Abbreviate(%q, %d) = %q, want %q", c.name, c.width, got, c.want)
		}
	}
}

func TestFormatModTimeZero(t *testing.T) {
	got := FormatModTime(time.Time{}, time.Now())
	if len(got) != 12 {
		t.Errorf("FormatModTime(zero) = %q, want 12 spaces", got)
	}
}

func TestFormatModTimeCurrentVsOldYear(t *testing.T) {
	now := time.Date(2026, time.August, 3, 12, 0, 0, 0, time.UTC)
	thisYear := time.Date(2026, time.January, 2, 3, 4, 0, 0, time.UTC)
	lastYear := time.Date(2019, time.January, 2, 3, 4, 0, 0, time.UTC)

	got := FormatModTime(thisYear, now)
	if want := "Jan  2 03:04"; got != want {
		t.Errorf("current-year format = %q, want %q", got, want)
	}
	got = FormatModTime(lastYear, now)
	if want := "Jan  2  2019"; got != want {
		t.Errorf("old-year format = %q, want %q", got, want)
	}
}
