package pigz

import "io"

// Writer is the public compressor. It picks the parallel pipeline or the
// single-threaded fallback based on Config.Procs and streams everything
// written to it through to dst in the configured wire format.
//
// Writer buffers internally; callers don't need to chunk their writes to
// match BlockSize.
type Writer struct {
	cfg Config
	dst io.Writer

	started bool
	closed  bool

	ulen, clen int64

	pr     *io.PipeReader
	pw     *io.PipeWriter
	runErr chan error
}

// NewWriter returns a Writer that writes cfg's framing and compressed
// data to dst. Zero-valued fields in cfg are replaced by package
// defaults (spec §3).
func NewWriter(dst io.Writer, cfg Config) (*Writer, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	return &Writer{cfg: cfg, dst: dst}, nil
}

// start launches the compression engine reading from an internal pipe,
// deferred until the first Write so a Writer that's created and
// immediately Closed without writing anything still produces a valid,
// empty stream.
func (w *Writer) start() {
	w.pr, w.pw = io.Pipe()
	w.runErr = make(chan error, 1)
	go func() {
		var err error
		if w.cfg.Procs > 1 {
			pl, perr := newPipeline(w.cfg, w.dst)
			if perr != nil {
				err = perr
			} else {
				w.ulen, w.clen, err = pl.run(w.pr)
			}
		} else {
			sc := newSingleCompressor(w.cfg, w.dst)
			w.ulen, w.clen, err = sc.run(w.pr)
		}
		w.pr.CloseWithError(err)
		w.runErr <- err
	}()
	w.started = true
}

// Write implements io.Writer, feeding p through to the compression
// engine via an internal pipe.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, newError(KindIoWrite, "Writer.Write", errWriterClosed)
	}
	if !w.started {
		w.start()
	}
	n, err := w.pw.Write(p)
	if err != nil {
		return n, newError(KindIoWrite, "Writer.Write", err)
	}
	return n, nil
}

// Close finishes the stream: it signals end of input to the engine,
// waits for the trailer to be written, and reports the engine's error,
// if any.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if !w.started {
		w.start()
	}
	w.pw.Close()
	return <-w.runErr
}

// Sizes reports the uncompressed and compressed byte counts written so
// far. Valid after Close returns nil.
func (w *Writer) Sizes() (ulen, clen int64) {
	return w.ulen, w.clen
}
