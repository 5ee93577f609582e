package pigz

import (
	"bufio"
	"io"
)

// lzw.go implements LZWDecoder: decoding the legacy ".Z" (compress)
// format, grounded on original_source/pigz.c's lzw.c-derived unlzw()
// (see DESIGN.md). This is read-only; the package never produces new
// .Z output.

const (
	lzwInitBits = 9
	lzwMaxCode  = 1 << 16
)

// lzwReader turns the bit-packed variable-width code stream that follows
// a .Z header into decompressed bytes. It keeps its own bit buffer rather
// than going through a generic bitReader, so the byte-boundary flush
// quirk below stays a single, visible special case.
type lzwReader struct {
	br *bufio.Reader

	maxBits   int
	blockMode bool

	bits int // current code width
	mask int // (1 << bits) - 1
	end  int // highest code assigned so far

	prefix [lzwMaxCode]int
	suffix [lzwMaxCode]byte
	stack  [lzwMaxCode]byte

	prev  int
	first byte

	// bit-buffer state
	bitBuf uint32
	bitCnt int

	// chunk is bytes left before the input realigns to a byte boundary:
	// 8 codes of the current width always span exactly `bits` bytes, so
	// chunk counts down from bits to 0 once per row of 8 codes, and is
	// reloaded when the first byte of the next row is read. Growing
	// the code width or hitting an explicit clear code has to skip
	// whatever is left of the current row, not just the leftover bits of
	// the last byte read (see flushToBoundary).
	chunk int
}

func newLzwReader(br *bufio.Reader, hdr *parsedHeader) *lzwReader {
	l := &lzwReader{
		br:        br,
		maxBits:   hdr.LzwMaxBits,
		blockMode: hdr.LzwBlockMode,
		bits:      lzwInitBits,
	}
	l.mask = (1 << l.bits) - 1
	l.chunk = l.bits
	l.resetTable()
	return l
}

func (l *lzwReader) resetTable() {
	if l.blockMode {
		l.end = 255 + 1 // code 256 reserved as the clear code
	} else {
		l.end = 255
	}
}

// readCode reads the next code, exactly l.bits wide, LSB-first, matching
// the packing compress(1) itself uses.
func (l *lzwReader) readCode() (int, error) {
	for l.bitCnt < l.bits {
		b, err := l.br.ReadByte()
		if err != nil {
			return 0, err
		}
		l.bitBuf |= uint32(b) << uint(l.bitCnt)
		l.bitCnt += 8
		if l.chunk <= 0 {
			l.chunk = l.bits // this byte starts a new row
		}
		l.chunk--
	}
	code := int(l.bitBuf & uint32(l.mask))
	l.bitBuf >>= uint(l.bits)
	l.bitCnt -= l.bits
	return code, nil
}

// flushToBoundary discards any bits buffered short of a whole byte, then
// skips whatever is left of the current row of 8 codes: compress(1) pads
// the stream to a `bits`-byte boundary every time the code width grows or
// a clear code resets it, and those padding bytes have to be consumed
// rather than reinterpreted as codes at the new width. Callers must set
// l.bits (and l.mask) to the new width before calling this, since the
// chunk counter is reset for the row that starts after the boundary. A
// clean EOF while skipping is reported as (false, nil): the stream simply
// ended exactly at a row boundary, which is not an error.
func (l *lzwReader) flushToBoundary() (bool, error) {
	l.bitBuf = 0
	l.bitCnt = 0
	for l.chunk > 0 {
		if _, err := l.br.ReadByte(); err != nil {
			if err == io.EOF {
				return false, nil
			}
			return false, err
		}
		l.chunk--
	}
	l.chunk = l.bits
	return true, nil
}

// decodeLzw drives an lzwReader to completion, writing decompressed
// bytes to dst (or discarding them in ModeTestOnly). There is no
// trailer to verify: .Z carries neither a check value nor a length.
func (d *decoder) decodeLzw(hdr *parsedHeader, dst io.Writer, mode Mode) (*StreamResult, error) {
	l := newLzwReader(d.br, hdr)

	// The first symbol is read through the same bit-packed code reader
	// as every other code, not as a raw byte: the table starts out as
	// the identity map on 0-255, so the first code value doubles as the
	// first output byte.
	firstCode, err := l.readCode()
	if err != nil {
		if err == io.EOF {
			return &StreamResult{Format: FormatGzip}, nil
		}
		return nil, newError(KindIoRead, "decodeLzw", err)
	}
	if firstCode >= 256 {
		return nil, newError(KindInvalidLzw, "decodeLzw", nil)
	}
	first := byte(firstCode)

	out := make([]byte, 0, decodeChunkSize)
	var outTot int64
	emit := func(b byte) error {
		out = append(out, b)
		if len(out) == cap(out) {
			if mode == ModeWrite {
				if _, err := dst.Write(out); err != nil {
					return newError(KindIoWrite, "decodeLzw", err)
				}
			}
			out = out[:0]
		}
		return nil
	}

	if err := emit(first); err != nil {
		return nil, err
	}
	outTot++
	l.prev = int(first)
	l.first = first

	for {
		code, err := l.readCode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, newError(KindIoRead, "decodeLzw", err)
		}

		if l.blockMode && code == 256 {
			l.bits = lzwInitBits
			l.mask = (1 << l.bits) - 1
			ok, err := l.flushToBoundary()
			if err != nil {
				return nil, newError(KindIoRead, "decodeLzw", err)
			}
			l.resetTable()
			if !ok {
				break
			}
			// The next code starts a fresh dictionary; there is no
			// "previous" entry to extend until one more code arrives.
			nextCode, err := l.readCode()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, newError(KindIoRead, "decodeLzw", err)
			}
			if nextCode >= 256 {
				return nil, newError(KindInvalidLzw, "decodeLzw", nil)
			}
			if err := emit(byte(nextCode)); err != nil {
				return nil, err
			}
			outTot++
			l.prev = nextCode
			l.first = byte(nextCode)
			continue
		}

		var entry int
		sp := 0
		switch {
		case code > l.end+1:
			return nil, newError(KindInvalidLzw, "decodeLzw", nil)
		case code == l.end+1:
			// KwKwK: the code names an entry not yet in the table; it
			// must decode to prev followed by prev's own first byte.
			l.stack[sp] = l.first
			sp++
			entry = l.prev
		default:
			entry = code
		}

		for entry >= 256 {
			l.stack[sp] = l.suffix[entry]
			sp++
			entry = l.prefix[entry]
		}
		l.first = byte(entry)
		l.stack[sp] = l.first
		sp++

		for sp > 0 {
			sp--
			if err := emit(l.stack[sp]); err != nil {
				return nil, err
			}
			outTot++
		}

		if l.end < lzwMaxCode-1 {
			l.end++
			l.prefix[l.end] = l.prev
			l.suffix[l.end] = l.first
		}
		l.prev = code

		if l.end >= l.mask && l.bits < l.maxBits {
			l.bits++
			l.mask = (1 << l.bits) - 1
			ok, err := l.flushToBoundary()
			if err != nil {
				return nil, newError(KindIoRead, "decodeLzw", err)
			}
			if !ok {
				break
			}
		}
	}

	if len(out) > 0 && mode == ModeWrite {
		if _, err := dst.Write(out); err != nil {
			return nil, newError(KindIoWrite, "decodeLzw", err)
		}
	}

	return &StreamResult{Format: FormatGzip, ULen: outTot}, nil
}
