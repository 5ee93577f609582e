package pigz

import (
	"bufio"
	"bytes"
	"testing"
	"time"
)

func TestDosTimeRoundTrip(t *testing.T) {
	cases := []time.Time{
		time.Date(2020, time.March, 14, 15, 9, 26, 0, time.UTC),
		time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2107, time.December, 31, 23, 59, 58, 0, time.UTC),
	}
	for _, want := range cases {
		packed := dosTime(want)
		got := dosTimeToTime(packed)
		if !got.Equal(want) {
			t.Errorf("dosTime round trip: got %v, want %v (packed=%08x)", got, want, packed)
		}
	}
}

func TestDosTimeOddSecondRounds(t *testing.T) {
	// Odd seconds can't round-trip exactly (DOS time only stores
	// seconds/2), but the packed value must round up, matching the
	// reference packer's "(sec+1)>>1" rather than truncating down.
	odd := time.Date(2020, time.March, 14, 15, 9, 27, 0, time.UTC)
	even := time.Date(2020, time.March, 14, 15, 9, 26, 0, time.UTC)
	if got, want := dosTime(odd)&0x1f, uint32(14); got != want {
		t.Errorf("dosTime(sec=27)&0x1f = %d, want %d", got, want)
	}
	if got, want := dosTime(even)&0x1f, uint32(13); got != want {
		t.Errorf("dosTime(sec=26)&0x1f = %d, want %d", got, want)
	}
}

func TestDosTimeOutOfRangeIsZero(t *testing.T) {
	if got := dosTime(time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)); got != 0 {
		t.Errorf("year before 1980: dosTime = %08x, want 0", got)
	}
	if got := dosTime(time.Date(2200, time.January, 1, 0, 0, 0, 0, time.UTC)); got != 0 {
		t.Errorf("year after 2107: dosTime = %08x, want 0", got)
	}
}

func TestGzipHeaderRoundTrip(t *testing.T) {
	cfg := Config{Format: FormatGzip, Name: "hello.txt", ModTime: time.Unix(1600000000, 0), Level: 6}
	var buf bytes.Buffer
	n, err := writeGzipHeader(&buf, cfg)
	if err != nil {
		t.Fatalf("writeGzipHeader: %v", err)
	}
	if n != buf.Len() {
		t.Errorf("writeGzipHeader returned n=%d, wrote %d bytes", n, buf.Len())
	}

	br := bufio.NewReader(&buf)
	hdr, err := readHeader(br, true)
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if hdr.Format != FormatGzip {
		t.Errorf("Format = %v, want FormatGzip", hdr.Format)
	}
	if hdr.Name != "hello.txt" {
		t.Errorf("Name = %q, want %q", hdr.Name, "hello.txt")
	}
	if hdr.ModTime.Unix() != 1600000000 {
		t.Errorf("ModTime = %v, want unix 1600000000", hdr.ModTime)
	}
	if hdr.HeadLen != n {
		t.Errorf("HeadLen = %d, want %d", hdr.HeadLen, n)
	}
}

func TestGzipHeaderNoNameNoSaveMeta(t *testing.T) {
	cfg := Config{Format: FormatGzip}
	var buf bytes.Buffer
	if _, err := writeGzipHeader(&buf, cfg); err != nil {
		t.Fatalf("writeGzipHeader: %v", err)
	}
	br := bufio.NewReader(&buf)
	hdr, err := readHeader(br, false)
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if hdr.Name != "" {
		t.Errorf("Name = %q, want empty (saveMeta=false)", hdr.Name)
	}
}

func TestZlibHeaderChecksumMultipleOf31(t *testing.T) {
	for _, level := range []int{-1, 1, 4, 6, 9} {
		cfg := Config{Format: FormatZlib, Level: level}
		var buf bytes.Buffer
		if _, err := writeZlibHeader(&buf, cfg); err != nil {
			t.Fatalf("level %d: writeZlibHeader: %v", level, err)
		}
		b := buf.Bytes()
		check := uint16(b[0])<<8 | uint16(b[1])
		if check%31 != 0 {
			t.Errorf("level %d: header %02x%02x not a multiple of 31", level, b[0], b[1])
		}
		if b[0] != zlibCMFDeflate {
			t.Errorf("level %d: CMF = %02x, want %02x", level, b[0], zlibCMFDeflate)
		}
	}
}

func TestZlibHeaderRecognizedByReadHeader(t *testing.T) {
	var buf bytes.Buffer
	if _, err := writeZlibHeader(&buf, Config{Format: FormatZlib, Level: -1}); err != nil {
		t.Fatalf("writeZlibHeader: %v", err)
	}
	br := bufio.NewReader(&buf)
	hdr, err := readHeader(br, true)
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if hdr.Format != FormatZlib {
		t.Errorf("Format = %v, want FormatZlib", hdr.Format)
	}
}

func TestZipLocalHeaderAndTrailerRoundTrip(t *testing.T) {
	cfg := Config{Format: FormatZip, Name: "report.csv", ModTime: time.Date(2021, time.June, 5, 12, 0, 0, 0, time.UTC)}
	var buf bytes.Buffer
	headLen, err := writeZipLocalHeader(&buf, cfg)
	if err != nil {
		t.Fatalf("writeZipLocalHeader: %v", err)
	}

	br := bufio.NewReader(bytes.NewReader(buf.Bytes()))
	hdr, err := readHeader(br, true)
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if hdr.Format != FormatZip {
		t.Errorf("Format = %v, want FormatZip", hdr.Format)
	}
	if hdr.Name != "report.csv" {
		t.Errorf("Name = %q, want %q", hdr.Name, "report.csv")
	}
	if !hdr.ZipDescriptor {
		t.Error("ZipDescriptor = false, want true (writer always defers sizes)")
	}
	if hdr.HeadLen != headLen {
		t.Errorf("HeadLen = %d, want %d", hdr.HeadLen, headLen)
	}

	var trailer bytes.Buffer
	if err := writeZipTrailer(&trailer, cfg, 1234, 567, 0xdeadbeef, headLen); err != nil {
		t.Fatalf("writeZipTrailer: %v", err)
	}
	tb := trailer.Bytes()
	if got := leUint32(tb[0:4]); got != 0xdeadbeef {
		t.Errorf("descriptor CRC = %08x, want deadbeef", got)
	}
	if got := leUint32(tb[4:8]); got != 567 {
		t.Errorf("descriptor clen = %d, want 567", got)
	}
	if got := leUint32(tb[8:12]); got != 1234 {
		t.Errorf("descriptor ulen = %d, want 1234", got)
	}
	if got := leUint32(tb[12:16]); got != zipCentralSig {
		t.Errorf("central directory signature = %08x, want %08x", got, uint32(zipCentralSig))
	}
}

func TestLzwHeaderFlagsRoundTrip(t *testing.T) {
	buf := []byte{lzwMagic1, lzwMagic2, 0x90} // block-compress, max_bits=16
	br := bufio.NewReader(bytes.NewReader(buf))
	hdr, err := readHeader(br, false)
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if hdr.Method != lzwMethodSentinel {
		t.Errorf("Method = %d, want lzwMethodSentinel", hdr.Method)
	}
	if hdr.LzwMaxBits != 16 {
		t.Errorf("LzwMaxBits = %d, want 16", hdr.LzwMaxBits)
	}
	if !hdr.LzwBlockMode {
		t.Error("LzwBlockMode = false, want true")
	}
}

func TestLzwHeaderMaxBitsNineMeansTen(t *testing.T) {
	buf := []byte{lzwMagic1, lzwMagic2, 0x09}
	br := bufio.NewReader(bytes.NewReader(buf))
	hdr, err := readHeader(br, false)
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if hdr.LzwMaxBits != 10 {
		t.Errorf("LzwMaxBits = %d, want 10 (stored 9 quirk)", hdr.LzwMaxBits)
	}
}

func TestLzwHeaderRejectsReservedBits(t *testing.T) {
	buf := []byte{lzwMagic1, lzwMagic2, 0x30} // reserved bits 0x20 set
	br := bufio.NewReader(bytes.NewReader(buf))
	if _, err := readHeader(br, false); err == nil {
		t.Fatal("expected error for reserved LZW flag bits, got nil")
	}
}

func TestReadHeaderRejectsGarbage(t *testing.T) {
	br := bufio.NewReader(bytes.NewReader([]byte("not a compressed stream at all")))
	if _, err := readHeader(br, false); err == nil {
		t.Fatal("expected error for unrecognized magic, got nil")
	} else if !IsKind(err, KindNotCompressed) {
		t.Errorf("error kind = %v, want KindNotCompressed", err)
	}
}

func TestReadHeaderTruncated(t *testing.T) {
	br := bufio.NewReader(bytes.NewReader([]byte{gzipMagic1}))
	if _, err := readHeader(br, false); err == nil {
		t.Fatal("expected error for truncated input, got nil")
	}
}

func TestReadCString(t *testing.T) {
	br := bufio.NewReader(bytes.NewReader([]byte("hello\x00trailing")))
	s, err := readCString(br)
	if err != nil {
		t.Fatalf("readCString: %v", err)
	}
	if s != "hello" {
		t.Errorf("readCString = %q, want %q", s, "hello")
	}
	rest, _ := br.ReadString(0)
	if rest != "trailing" {
		t.Errorf("remaining reader content = %q, want %q", rest, "trailing")
	}
}
