package pigz

import (
	"bufio"
	"io"
)

// Reader is the public decompressor. It recognizes gzip, zlib, zip
// (single entry) and legacy LZW input by magic, verifies trailers as
// they're reached, and follows concatenated gzip/zlib members the way
// compress/gzip's Multistream mode does.
//
// Non-goal: random access. Reader is forward-only, the same as its
// teacher's countReader-based scan was before seeking was layered on
// top; this package never needs that layer since the wire format here
// has no block index to seek by.
type Reader struct {
	pr     *io.PipeReader
	result *Result
	done   chan error
}

// NewReader starts decoding r. Procs enables the parallel check-fold
// goroutine described in spec §4.6 when greater than 1; 0 or 1 run the
// check inline with the write.
func NewReader(r io.Reader, procs int) (*Reader, error) {
	br := bufio.NewReaderSize(r, decodeChunkSize)
	if _, err := br.Peek(1); err != nil {
		return nil, newError(KindNotCompressed, "NewReader", err)
	}

	pr, pw := io.Pipe()
	rd := &Reader{pr: pr, done: make(chan error, 1)}
	d := newDecoder(br, procs)
	go func() {
		res, err := d.decodeAll(pw, ModeWrite)
		rd.result = res
		pw.CloseWithError(err)
		rd.done <- err
	}()
	return rd, nil
}

func (r *Reader) Read(p []byte) (int, error) {
	return r.pr.Read(p)
}

func (r *Reader) Close() error {
	r.pr.Close()
	return <-r.done
}

// Result returns the decode summary (streams found, totals, trailing
// junk). Only meaningful once Read has returned io.EOF or Close has been
// called.
func (r *Reader) Result() *Result {
	return r.result
}

// Test decodes src fully, discarding output, verifying every trailer
// along the way. It reports the first error encountered, or nil if the
// whole input checked out (trailing junk after a gzip/zlib stream is not
// an error).
func Test(src io.Reader, procs int) (*Result, error) {
	br := bufio.NewReaderSize(src, decodeChunkSize)
	d := newDecoder(br, procs)
	return d.decodeAll(io.Discard, ModeTestOnly)
}

// Decompress decodes all of src into dst, returning the decode summary.
func Decompress(src io.Reader, dst io.Writer, procs int) (*Result, error) {
	br := bufio.NewReaderSize(src, decodeChunkSize)
	d := newDecoder(br, procs)
	return d.decodeAll(dst, ModeWrite)
}
