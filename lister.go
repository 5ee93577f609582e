package pigz

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

// lister.go implements Lister: summarizing a compressed stream's header
// and trailer. Each body is inflated once, with the output discarded, to
// find where its trailer starts; grounded on the teacher's detect.go
// peek style and spec §4.8.

// Entry is one line of a listing: one source stream (one gzip/zlib
// member, the zip entry, or the whole of an LZW stream).
type Entry struct {
	Method  string // "defla" for gzip, zlib and zip entries, "lzw" for .Z
	Check   string // 8 hex digits, or "--------" when not recorded
	ModTime time.Time
	CLen    int64
	ULen    int64 // 0 sentinel: not recorded (zlib)
	Name    string
}

// ReductionPercent returns how much smaller the compressed form is than
// the original, or 0 when ULen is unknown.
func (e Entry) ReductionPercent() float64 {
	if e.ULen == 0 {
		return 0
	}
	return 100 * (1 - float64(e.CLen)/float64(e.ULen))
}

// List parses header(s) from src and locates each trailer, returning one
// Entry per source stream, without ever decompressing a block twice.
//
// DEFLATE carries no self-delimiting length, so finding a trailer always
// costs one forward inflate pass regardless of whether src is seekable;
// the output is discarded rather than written anywhere, which is the
// only saving available (spec §4.8's sliding-window-to-EOF scan describes
// the same cost for the non-seekable case).
func List(src io.Reader, name string) ([]Entry, error) {
	br := bufio.NewReaderSize(src, 4096)

	var entries []Entry
	for {
		hdr, err := readHeader(br, true)
		if err != nil {
			if len(entries) > 0 {
				break // trailing junk after at least one stream
			}
			return nil, err
		}

		e := Entry{Name: name, ModTime: hdr.ModTime}
		if hdr.Name != "" {
			e.Name = hdr.Name
		}

		switch {
		case hdr.Method == lzwMethodSentinel:
			e.Method = "lzw"
			e.Check = "--------"
			n, err := listLzwBody(br, hdr)
			if err != nil {
				return nil, err
			}
			e.ULen = n // compressed size isn't tracked for .Z: no block structure to measure against
		case hdr.Format == FormatZip:
			e.Method = "defla"
			if hdr.ZipDescriptor {
				e.Check = "--------"
				if err := skipDeflateBody(br); err != nil {
					return nil, err
				}
				crc, clen, ulen, err := readZipDescriptor(br, 0)
				if err != nil {
					return nil, err
				}
				e.Check = fmt.Sprintf("%08x", crc)
				e.CLen = int64(clen)
				e.ULen = int64(ulen)
			} else {
				e.Check = fmt.Sprintf("%08x", hdr.ZipCRC)
				e.CLen = int64(hdr.ZipCLen)
				e.ULen = int64(hdr.ZipULen)
				if err := skipDeflateBody(br); err != nil {
					return nil, err
				}
			}
		default:
			e.Method = "defla"
			clen, check, ulen, err := scanTrailer(br, hdr.Format)
			if err != nil {
				return nil, err
			}
			e.CLen = clen
			e.ULen = ulen
			if hdr.Format == FormatZlib {
				e.Check = fmt.Sprintf("%08x", check)
				e.ULen = 0 // zlib trailer carries no length
			} else {
				e.Check = fmt.Sprintf("%08x", check)
			}
		}

		entries = append(entries, e)
		if hdr.Format == FormatZip {
			break
		}
		if _, err := br.Peek(1); err != nil {
			break
		}
	}
	return entries, nil
}

// skipDeflateBody discards a raw DEFLATE stream by inflating it through
// flate.Reader and throwing the output away; DEFLATE
// has no self-delimiting length field, so there's no cheaper way to find
// its end when it isn't the last thing in the file.
func skipDeflateBody(br *bufio.Reader) error {
	_, err := deflateLength(br)
	return err
}

// listLzwBody discards an LZW body the same way: it has no length field
// either, so the decoder has to run to find the end.
func listLzwBody(br *bufio.Reader, hdr *parsedHeader) (int64, error) {
	d := &decoder{br: br, procs: 1}
	sr, err := d.decodeLzw(hdr, io.Discard, ModeTestOnly)
	if err != nil {
		return 0, err
	}
	return sr.ULen, nil
}

// scanTrailer locates and reads a gzip or zlib trailer that follows a
// DEFLATE body of unknown length: inflate to the end, discarding output,
// then read whatever bytes are left in br as the trailer.
func scanTrailer(br *bufio.Reader, format Format) (clen int64, check uint32, ulen int64, err error) {
	n, cerr := deflateLength(br)
	if cerr != nil {
		return 0, 0, 0, cerr
	}
	clen = n

	switch format {
	case FormatGzip:
		var trl [8]byte
		if _, err := io.ReadFull(br, trl[:]); err != nil {
			return 0, 0, 0, newError(KindCorruptTrailer, "scanTrailer", err)
		}
		check = leUint32(trl[0:4])
		ulen = int64(leUint32(trl[4:8]))
	case FormatZlib:
		var trl [4]byte
		if _, err := io.ReadFull(br, trl[:]); err != nil {
			return 0, 0, 0, newError(KindCorruptTrailer, "scanTrailer", err)
		}
		check = beUint32(trl[:])
	}
	return clen, check, ulen, nil
}

// deflateLength counts the compressed bytes consumed by one raw DEFLATE
// member without keeping the inflated output, used by both the list
// path and the skip-to-trailer helpers above.
func deflateLength(br *bufio.Reader) (clen int64, err error) {
	cr := &countingReader{r: br}
	fr := flateReaderFor(cr)
	defer fr.Close()
	if _, err := io.Copy(io.Discard, fr); err != nil {
		return 0, newError(KindCorruptDeflate, "deflateLength", err)
	}
	return cr.n, nil
}

// countingReader tracks bytes actually pulled through it, used to
// recover the compressed length of a member whose header carried no
// size field. It must implement io.ByteReader itself (delegating to the
// *bufio.Reader underneath): otherwise flate.NewReader would wrap it in
// another bufio.Reader of its own, which reads ahead past the end of the
// DEFLATE stream and strands the following trailer bytes in a buffer
// this function never sees again.
type countingReader struct {
	r *bufio.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.n++
	}
	return b, err
}

// Abbreviate truncates name to width, matching the Lister column widths
// spec §4.8 describes (48 chars at -v0, 16 at -v2+).
func Abbreviate(name string, width int) string {
	if len(name) <= width {
		return name
	}
	if width <= 3 {
		return name[:width]
	}
	return name[:width-3] + "..."
}

// FormatModTime renders t the way Lister does: 12 characters (month day
// hour:minute) when t falls within the current year, else month day
// year, matching ls -l's convention.
func FormatModTime(t, now time.Time) string {
	if t.IsZero() {
		return strings.Repeat(" ", 12)
	}
	if t.Year() == now.Year() {
		return t.Format("Jan _2 15:04")
	}
	return t.Format("Jan _2  2006")
}

// Line formats e the way the CLI's -l listing does: method, check,
// mod time, compressed/uncompressed sizes, reduction percentage and an
// abbreviated name.
func (e Entry) Line(now time.Time, nameWidth int) string {
	return fmt.Sprintf("%5s %8s %12s %12d %12d %5.1f%% %s",
		e.Method, e.Check, FormatModTime(e.ModTime, now), e.CLen, e.ULen,
		e.ReductionPercent(), Abbreviate(e.Name, nameWidth))
}
