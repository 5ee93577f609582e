package pigz

import (
	"math"
	"sync"

	"github.com/klauspost/compress/flate"
)

// status tracks a ring slot through its lifecycle. The writer is the only
// goroutine allowed to move a slot out of compressing or into idle; the
// reader is the only one allowed to move it into compressing.
type status int32

const (
	statusIdle status = iota
	statusCompressing
	statusWritePending
)

// blockSink is a fixed-capacity io.Writer over a preallocated buffer. The
// capacity is sized so that a single block's worst-case DEFLATE expansion
// always fits (spec §3: B + ceil(B/2048) + 10), so a write past the end is
// a programmer error, not a transient condition.
type blockSink struct {
	buf []byte
	n   int
}

func newBlockSink(capacity int) *blockSink {
	return &blockSink{buf: make([]byte, capacity)}
}

func (s *blockSink) Write(p []byte) (int, error) {
	if s.n+len(p) > len(s.buf) {
		return 0, newError(KindOutOfMemory, "blockSink.Write", errBufferFull)
	}
	copy(s.buf[s.n:], p)
	s.n += len(p)
	return len(p), nil
}

func (s *blockSink) Reset()        { s.n = 0 }
func (s *blockSink) Bytes() []byte { return s.buf[:s.n] }

// workUnit is one ring slot: an owned input buffer, an owned output
// buffer, a reusable DEFLATE engine, and the state needed to hand off a
// preset dictionary to the next slot without re-reading the input.
type workUnit struct {
	inBuf []byte // capacity B
	length int   // valid bytes in inBuf; length < cap marks the last block

	sink   *blockSink
	deflate *flate.Writer

	check  uint32 // per-block CRC-32 or Adler-32 of inBuf[:length]
	outLen int    // bytes written to sink for this block

	// dict is this slot's private copy of the preceding slot's trailing
	// window, captured before the reader is allowed to overwrite that
	// slot's inBuf (spec §9 reformulation).
	dict    [maxDictSize]byte
	dictLen int

	mu         sync.Mutex
	cond       *sync.Cond
	status     status
	dictCopied bool

	// done is recreated for each dispatch; the writer reads from it to
	// join the worker goroutine after observing status == compressing.
	done chan error
}

func newWorkUnit(blockSize, outCap int) *workUnit {
	u := &workUnit{
		inBuf:      make([]byte, blockSize),
		sink:       newBlockSink(outCap),
		status:     statusIdle,
		dictCopied: true, // vacuously true: nothing to protect before the first lap
	}
	u.cond = sync.NewCond(&u.mu)
	return u
}

func (u *workUnit) setStatus(s status) {
	u.mu.Lock()
	u.status = s
	u.cond.Broadcast()
	u.mu.Unlock()
}

func (u *workUnit) waitStatusNot(s status) {
	u.mu.Lock()
	for u.status == s {
		u.cond.Wait()
	}
	u.mu.Unlock()
}

func (u *workUnit) waitStatus(s status) {
	u.mu.Lock()
	for u.status != s {
		u.cond.Wait()
	}
	u.mu.Unlock()
}

func (u *workUnit) resetDictCopied() {
	u.mu.Lock()
	u.dictCopied = false
	u.mu.Unlock()
}

func (u *workUnit) markDictCopied() {
	u.mu.Lock()
	u.dictCopied = true
	u.cond.Broadcast()
	u.mu.Unlock()
}

func (u *workUnit) waitDictCopied() {
	u.mu.Lock()
	for !u.dictCopied {
		u.cond.Wait()
	}
	u.mu.Unlock()
}

// pool is the fixed-size ring of workUnits shared by the reader, the
// compressor workers and the writer. Slots are allocated lazily on first
// use and torn down in reverse index order, per spec §3/§4.3.
type pool struct {
	units     []*workUnit
	blockSize int
	outCap    int
	level     int
}

func newPool(n, blockSize, level int) (*pool, error) {
	outCap := blockSize + (blockSize+2047)/2048 + 10
	if outCap < blockSize || outCap > math.MaxInt32 {
		return nil, newError(KindConfigConflict, "newPool", errBlockSizeOverflow)
	}
	return &pool{
		units:     make([]*workUnit, n),
		blockSize: blockSize,
		outCap:    outCap,
		level:     level,
	}, nil
}

func (p *pool) size() int { return len(p.units) }

func (p *pool) next(i int) int { return (i + 1) % len(p.units) }
func (p *pool) prev(i int) int { return (i - 1 + len(p.units)) % len(p.units) }

// unit lazily allocates slot i the first time it's touched.
func (p *pool) unit(i int) *workUnit {
	if p.units[i] == nil {
		p.units[i] = newWorkUnit(p.blockSize, p.outCap)
	}
	return p.units[i]
}

// free tears the pool down in reverse index order, dropping references so
// the deflate engines and buffers can be collected.
func (p *pool) free() {
	for i := len(p.units) - 1; i >= 0; i-- {
		p.units[i] = nil
	}
}
