package pigz

import (
	"hash"
	"hash/adler32"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
)

// singleCompressor is the non-threaded fallback selected when Config.Procs
// <= 1: read and deflate in one continuous loop (spec §4.5). Unlike the
// parallel pipeline it never hands a dictionary between goroutines — the
// DEFLATE engine's own window simply carries over from one Write call to
// the next, so "dictionary mode" here just means "don't flush it away".
type singleCompressor struct {
	cfg Config
	dst *countingWriter
}

func newSingleCompressor(cfg Config, dst io.Writer) *singleCompressor {
	return &singleCompressor{cfg: cfg, dst: &countingWriter{Writer: dst}}
}

func (c *singleCompressor) run(src io.Reader) (ulen, clen int64, err error) {
	headLen, err := writeHeader(c.dst, c.cfg)
	if err != nil {
		return 0, 0, err
	}
	bodyStart := c.dst.n

	var h hash.Hash32
	if c.cfg.Format.usesCRC32() {
		h = crc32.NewIEEE()
	} else {
		h = adler32.New()
	}

	deflate, err := flate.NewWriterDict(c.dst, c.cfg.Level, nil)
	if err != nil {
		return 0, 0, newError(KindOutOfMemory, "singleCompressor", err)
	}

	buf := make([]byte, c.cfg.BlockSize)
	for {
		n, last, rerr := readBlock(src, buf)
		if rerr != nil {
			return 0, 0, newError(KindIoRead, "singleCompressor.read", rerr)
		}
		data := buf[:n]

		h.Write(data)
		if _, err := deflate.Write(data); err != nil {
			return 0, 0, newError(KindIoWrite, "singleCompressor.write", err)
		}

		switch {
		case last:
			err = deflate.Close() // Z_FINISH: terminate the DEFLATE stream
		case c.cfg.Dictionary:
			// No-flush: let the window carry over so later blocks can
			// still back-reference this one.
		default:
			// Full-flush: each block becomes independently decodable,
			// at the cost of the cross-block back-references. Flush
			// byte-aligns the output; Reset then drops the window.
			if err = deflate.Flush(); err == nil {
				deflate.Reset(c.dst)
			}
		}
		if err != nil {
			return 0, 0, newError(KindIoWrite, "singleCompressor.flush", err)
		}

		ulen += int64(n)
		if last {
			break
		}
	}

	clen = c.dst.n - bodyStart
	check := h.Sum32()
	if err := writeTrailer(c.dst, c.cfg, ulen, clen, check, headLen); err != nil {
		return 0, 0, err
	}
	return ulen, clen, nil
}
