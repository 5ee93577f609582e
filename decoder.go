package pigz

import (
	"bufio"
	"encoding/binary"
	"hash"
	"hash/adler32"
	"hash/crc32"
	"io"
	"time"

	"github.com/klauspost/compress/flate"
)

// Mode selects what the decoder does with decompressed bytes: write them
// out, discard them while still verifying the trailer (test), or never
// inflate at all (handled separately by Lister).
type Mode int

const (
	ModeWrite Mode = iota
	ModeTestOnly
)

// decodeChunkSize is the size of the buffer inflate output is collected
// into before being handed to the (optional) parallel check-fold
// goroutine and the destination writer, per spec §4.6.
const decodeChunkSize = 32 * 1024

// StreamResult reports what a single decoded member (one gzip/zlib
// member, or the zip entry) looked like.
type StreamResult struct {
	Format  Format
	Name    string
	ModTime time.Time
	ULen    int64
	CLen    int64
}

// Result is the outcome of decoding everything reachable from one input:
// one or more concatenated gzip/zlib members, or a single zip entry.
type Result struct {
	Streams      []StreamResult
	ULen         int64
	CLen         int64
	TrailingJunk bool
}

// decoder holds the buffered reader the decode path reads from and the
// worker count that enables the parallel check fold. The cumulative
// totals and the in-flight check are locals of each decodeOne call.
type decoder struct {
	br    *bufio.Reader
	procs int
}

func newDecoder(r io.Reader, procs int) *decoder {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReaderSize(r, decodeChunkSize)
	}
	if procs < 1 {
		procs = 1
	}
	return &decoder{br: br, procs: procs}
}

// decodeAll decodes everything from d.br into dst (or discards it, in
// ModeTestOnly), following concatenated gzip/zlib members until a
// non-header trailer is found, per spec §4.6.
func (d *decoder) decodeAll(dst io.Writer, mode Mode) (*Result, error) {
	res := &Result{}
	first := true
	for {
		hdr, err := readHeader(d.br, true)
		if err != nil {
			if !first {
				// A failure to parse a further header after at least one
				// successful stream is "trailing junk", not a hard error.
				res.TrailingJunk = true
				return res, nil
			}
			return nil, err
		}
		first = false

		sr, err := d.decodeOne(hdr, dst, mode)
		if err != nil {
			return nil, err
		}
		res.Streams = append(res.Streams, *sr)
		res.ULen += sr.ULen
		res.CLen += sr.CLen

		if hdr.Format == FormatZip {
			// Non-goal: multi-member zip archives (spec §1).
			return res, nil
		}
		if d.br.Buffered() == 0 {
			if _, err := d.br.Peek(1); err != nil {
				return res, nil // clean EOF, nothing left to concatenate
			}
		}
	}
}

// decodeOne decodes the body that follows an already-parsed header and
// verifies its trailer.
func (d *decoder) decodeOne(hdr *parsedHeader, dst io.Writer, mode Mode) (*StreamResult, error) {
	if hdr.Method == lzwMethodSentinel {
		return d.decodeLzw(hdr, dst, mode)
	}
	if hdr.Method != gzipMethod {
		return nil, newError(KindNotCompressed, "decodeOne", nil)
	}

	var h hash.Hash32
	if hdr.Format.usesCRC32() {
		h = crc32.NewIEEE()
	} else {
		h = adler32.New()
	}

	fr := flate.NewReader(d.br)
	defer fr.Close()

	var outTot int64
	buf := make([]byte, decodeChunkSize)
	for {
		n, rerr := io.ReadFull(fr, buf)
		if n > 0 {
			if err := d.sinkChunk(buf[:n], h, dst, mode); err != nil {
				return nil, err
			}
			outTot += int64(n)
		}
		if rerr == nil {
			continue
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		return nil, newError(KindCorruptDeflate, "decodeOne", rerr)
	}

	check := h.Sum32()
	sr := &StreamResult{Format: hdr.Format, Name: hdr.Name, ModTime: hdr.ModTime, ULen: outTot}

	switch hdr.Format {
	case FormatGzip:
		var trl [8]byte
		if _, err := io.ReadFull(d.br, trl[:]); err != nil {
			return nil, newError(KindCorruptTrailer, "decodeOne", err)
		}
		wantCheck := binary.LittleEndian.Uint32(trl[0:4])
		wantLen := binary.LittleEndian.Uint32(trl[4:8])
		if wantCheck != check || wantLen != uint32(uint64(outTot)) {
			return nil, newError(KindCorruptTrailer, "decodeOne", nil)
		}
	case FormatZlib:
		var trl [4]byte
		if _, err := io.ReadFull(d.br, trl[:]); err != nil {
			return nil, newError(KindCorruptTrailer, "decodeOne", err)
		}
		if binary.BigEndian.Uint32(trl[:]) != check {
			return nil, newError(KindCorruptTrailer, "decodeOne", nil)
		}
	case FormatZip:
		if hdr.ZipDescriptor {
			crc, clen, ulen, err := readZipDescriptor(d.br, check)
			if err != nil {
				return nil, err
			}
			if uint32(crc) != check {
				return nil, newError(KindCorruptTrailer, "decodeOne", nil)
			}
			// clen is the compressed size, which the streaming decoder
			// doesn't separately account for; ulen is checked against what
			// was actually produced, modulo 2^32. The descriptor's size
			// fields are read as 32-bit values only; a Zip64 descriptor
			// with 8-byte sizes is not recognized.
			_ = clen
			if (ulen & 0xffffffff) != (uint64(outTot) & 0xffffffff) {
				return nil, newError(KindCorruptTrailer, "decodeOne", nil)
			}
		} else {
			if hdr.ZipCRC != check {
				return nil, newError(KindCorruptTrailer, "decodeOne", nil)
			}
			if hdr.ZipULen&0xffffffff != uint64(uint32(outTot)) {
				return nil, newError(KindCorruptTrailer, "decodeOne", nil)
			}
		}
	}

	sr.CLen = 0 // compressed length of a single member isn't separately tracked by the decoder; callers needing it use Lister.
	return sr, nil
}

// sinkChunk folds chunk into the running check and, in ModeWrite, writes
// it to dst. When d.procs > 1 the fold runs concurrently with the write
// on a second goroutine, joined before the next chunk is requested (spec
// §4.6).
func (d *decoder) sinkChunk(chunk []byte, h hash.Hash32, dst io.Writer, mode Mode) error {
	if d.procs > 1 {
		done := make(chan struct{})
		go func() {
			h.Write(chunk)
			close(done)
		}()
		var err error
		if mode == ModeWrite {
			_, err = dst.Write(chunk)
		}
		<-done
		if err != nil {
			return newError(KindIoWrite, "sinkChunk", err)
		}
		return nil
	}

	h.Write(chunk)
	if mode == ModeWrite {
		if _, err := dst.Write(chunk); err != nil {
			return newError(KindIoWrite, "sinkChunk", err)
		}
	}
	return nil
}

// readZipDescriptor reads the trailer that follows a deflate-with-
// descriptor zip entry: three 32-bit little-endian values, optionally
// preceded by the signature PK\007\010. Per spec §9, when the first four
// bytes could be read either as the signature or as a CRC that happens to
// match, the Info-ZIP (no-signature) interpretation wins.
func readZipDescriptor(br *bufio.Reader, observedCRC uint32) (crc, clen, ulen uint64, err error) {
	var first [4]byte
	if _, err = io.ReadFull(br, first[:]); err != nil {
		return 0, 0, 0, newError(KindCorruptTrailer, "readZipDescriptor", err)
	}
	firstVal := binary.LittleEndian.Uint32(first[:])

	var crc32Bytes [4]byte
	if firstVal == zipDescriptSig && firstVal != observedCRC {
		if _, err = io.ReadFull(br, crc32Bytes[:]); err != nil {
			return 0, 0, 0, newError(KindCorruptTrailer, "readZipDescriptor", err)
		}
	} else {
		crc32Bytes = first
	}
	crcVal := binary.LittleEndian.Uint32(crc32Bytes[:])

	var sizes [8]byte
	if _, err = io.ReadFull(br, sizes[:]); err != nil {
		return 0, 0, 0, newError(KindCorruptTrailer, "readZipDescriptor", err)
	}
	clen32 := binary.LittleEndian.Uint32(sizes[0:4])
	ulen32 := binary.LittleEndian.Uint32(sizes[4:8])

	return uint64(crcVal), uint64(clen32), uint64(ulen32), nil
}
