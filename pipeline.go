package pigz

import (
	"hash/adler32"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
)

// pipeline is the parallel compressor: one reader (the calling goroutine),
// N compressor workers racing ahead of it on a ring of work units, and one
// writer goroutine draining the ring in strict index order. See spec
// §4.4 and the §9 design note for the dictionary-handoff gating this
// implements.
type pipeline struct {
	cfg  Config
	pool *pool
	dst  io.Writer
}

func newPipeline(cfg Config, dst io.Writer) (*pipeline, error) {
	p, err := newPool(cfg.Procs, cfg.BlockSize, cfg.Level)
	if err != nil {
		return nil, err
	}
	return &pipeline{cfg: cfg, pool: p, dst: dst}, nil
}

// run streams src through the ring to completion, writing the full
// framed, trailered output to dst.
func (pl *pipeline) run(src io.Reader) (ulen, clen int64, err error) {
	writerErr := make(chan error, 1)
	totals := make(chan [2]int64, 1)
	go pl.writerLoop(writerErr, totals)

	if rerr := pl.readerLoop(src); rerr != nil {
		// Let the writer drain what's already dispatched, then report
		// the reader's error (it's the more specific one).
		<-writerErr
		return 0, 0, rerr
	}

	if werr := <-writerErr; werr != nil {
		return 0, 0, werr
	}
	t := <-totals
	return t[0], t[1], nil
}

// readerLoop is the reader protocol of spec §4.4: for each ring slot in
// turn, wait for the slot to be free and for the worker that will use it
// as a dictionary source to have already captured it, fill it, and
// dispatch a worker.
func (pl *pipeline) readerLoop(src io.Reader) error {
	p := pl.pool
	for k := 0; ; k = p.next(k) {
		unit := p.unit(k)
		next := p.unit(p.next(k))

		// The reformulated gate from spec §9: don't overwrite this
		// slot's input until the worker that will prime its dictionary
		// from it has already copied what it needs.
		next.waitDictCopied()
		unit.waitStatus(statusIdle)

		n, last, err := readBlock(src, unit.inBuf)
		if err != nil {
			return newError(KindIoRead, "pipeline.read", err)
		}
		unit.length = n
		unit.resetDictCopied()
		unit.setStatus(statusCompressing)

		done := make(chan error, 1)
		unit.done = done
		go pl.worker(k, last, done)

		if last {
			return nil
		}
	}
}

// readBlock fills buf as full as possible from src, treating a short read
// followed by io.EOF as "last block" rather than an error.
func readBlock(src io.Reader, buf []byte) (n int, last bool, err error) {
	for n < len(buf) {
		m, e := src.Read(buf[n:])
		n += m
		if e != nil {
			if e == io.EOF {
				return n, n < len(buf), nil
			}
			return n, false, e
		}
		if m == 0 {
			// Well-behaved readers shouldn't do this without an error,
			// but guard against a spin if one does.
			break
		}
	}
	return n, n < len(buf), nil
}

// worker is the compressor protocol of spec §4.4 step by step: copy the
// dictionary, checksum the block, deflate it with sync-flush (or finish on
// the last block), and signal completion.
func (pl *pipeline) worker(k int, last bool, done chan<- error) {
	p := pl.pool
	unit := p.unit(k)
	prev := p.unit(p.prev(k))

	unit.sink.Reset()

	unit.dictLen = 0
	if pl.cfg.Dictionary && prev.length > 0 {
		n := prev.length
		if n > maxDictSize {
			n = maxDictSize
		}
		copy(unit.dict[:n], prev.inBuf[prev.length-n:prev.length])
		unit.dictLen = n
	}
	unit.markDictCopied()

	data := unit.inBuf[:unit.length]
	if pl.cfg.Format.usesCRC32() {
		unit.check = crc32.ChecksumIEEE(data)
	} else {
		unit.check = adler32.Checksum(data)
	}

	var err error
	if unit.dictLen > 0 {
		// flate.Writer has no way to swap a new dictionary into an
		// existing writer (Reset replays the one it was built with), so
		// a block primed from the previous one needs a fresh writer.
		unit.deflate, err = flate.NewWriterDict(unit.sink, pl.cfg.Level, unit.dict[:unit.dictLen])
		if err != nil {
			done <- newError(KindOutOfMemory, "pipeline.worker", err)
			return
		}
	} else if unit.deflate == nil {
		unit.deflate, err = flate.NewWriterDict(unit.sink, pl.cfg.Level, nil)
		if err != nil {
			done <- newError(KindOutOfMemory, "pipeline.worker", err)
			return
		}
	} else {
		unit.deflate.Reset(unit.sink)
	}

	if _, err = unit.deflate.Write(data); err != nil {
		done <- newError(KindIoWrite, "pipeline.worker.write", err)
		return
	}
	if last {
		err = unit.deflate.Close() // finish: terminate the DEFLATE stream
	} else {
		err = unit.deflate.Flush() // sync-flush: byte-align without ending
	}
	if err != nil {
		done <- newError(KindIoWrite, "pipeline.worker.flush", err)
		return
	}

	unit.outLen = unit.sink.n
	done <- nil
}

// writerLoop is the writer protocol of spec §4.4: emit the header once,
// then for each ring slot in order, join its worker, append its bytes,
// fold its check into the running total, and release the slot.
func (pl *pipeline) writerLoop(result chan<- error, totals chan<- [2]int64) {
	p := pl.pool

	headLen, err := writeHeader(pl.dst, pl.cfg)
	if err != nil {
		result <- err
		return
	}

	var ulen, clen int64
	check := initialCheck(pl.cfg.Format)

	for k := 0; ; k = p.next(k) {
		if k == 0 && ulen > 0 && pl.cfg.Verbosity >= 2 {
			pl.cfg.ProgressWriter.Write([]byte{'.'})
		}

		unit := p.unit(k)
		unit.waitStatus(statusCompressing)

		werr := <-unit.done
		unit.setStatus(statusWritePending)

		if werr != nil {
			result <- werr
			return
		}

		if _, err := pl.dst.Write(unit.sink.Bytes()); err != nil {
			result <- newError(KindIoWrite, "pipeline.write", err)
			return
		}
		ulen += int64(unit.length)
		clen += int64(unit.outLen)
		if pl.cfg.Format.usesCRC32() {
			check = combineCRC32(check, unit.check, int64(unit.length))
		} else {
			check = combineAdler32(check, unit.check, int64(unit.length))
		}

		last := unit.length < pl.pool.blockSize
		unit.setStatus(statusIdle)

		if last {
			break
		}
	}

	if err := writeTrailer(pl.dst, pl.cfg, ulen, clen, check, headLen); err != nil {
		result <- err
		return
	}

	totals <- [2]int64{ulen, clen}
	result <- nil
}
