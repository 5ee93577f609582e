package pigz

import (
	"io"
	"math"
	"runtime"
	"time"
)

const (
	// MinBlockSize is the smallest block size the pipeline accepts.
	MinBlockSize = 32 * 1024
	// DefaultBlockSize balances worker parallelism against per-block
	// DEFLATE overhead.
	DefaultBlockSize = 128 * 1024
	// maxAutoProcs caps the CPU-count-derived default so a single huge
	// machine doesn't spin up an unreasonable number of workers.
	maxAutoProcs = 32
	// maxDictSize is the DEFLATE window: at most this many trailing
	// bytes of the previous block prime the next one.
	maxDictSize = 32 * 1024
)

// Config bundles every knob the pipeline needs, replacing what the
// original pigz kept as process-global mutable state (see DESIGN.md).
// Workers only ever see an immutable copy.
type Config struct {
	Format Format

	// BlockSize is B, the size of each ring slot's input buffer.
	BlockSize int
	// Procs is N, the number of compressor workers. Procs<=1 selects
	// the single-threaded Compressor path.
	Procs int
	// Level is the DEFLATE compression level, 0-9, or -1 for the
	// library default. 0 is a valid request (store, no compression),
	// distinct from "unset" — set LevelSet when Level is meaningfully 0
	// rather than the zero Config value.
	Level int
	// LevelSet distinguishes an explicit Level: 0 (store) from a
	// zero-value Config that never mentioned Level at all.
	LevelSet bool
	// Dictionary enables cross-block preset-dictionary priming. When
	// false, every block is compressed independently (full-flush on
	// the single compressor, no priming on the pipeline), trading
	// ratio for independently-decodable blocks.
	Dictionary bool

	// Name, ModTime are stored in the header when non-empty/non-zero.
	Name    string
	ModTime time.Time

	// Verbosity controls progress-dot emission; >=2 prints a dot each
	// time the writer wraps back to ring slot 0.
	Verbosity int
	// ProgressWriter receives progress dots. Defaults to io.Discard.
	ProgressWriter io.Writer
}

// withDefaults returns a copy of c with zero-valued fields replaced by
// package defaults, and validates the result.
func (c Config) withDefaults() (Config, error) {
	if c.BlockSize == 0 {
		c.BlockSize = DefaultBlockSize
	}
	if c.Procs == 0 {
		c.Procs = defaultProcs()
	}
	if c.Level == 0 && !c.LevelSet {
		c.Level = -1
	}
	if c.ProgressWriter == nil {
		c.ProgressWriter = io.Discard
	}
	if err := c.validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c Config) validate() error {
	if c.BlockSize < MinBlockSize {
		return newError(KindConfigConflict, "config", errBlockSizeTooSmall)
	}
	if c.Procs < 1 {
		return newError(KindConfigConflict, "config", errProcsTooSmall)
	}
	if c.Level < -1 || c.Level > 9 {
		return newError(KindConfigConflict, "config", errBadLevel)
	}
	// Guard the B + ceil(B/2048) + 10 expansion against overflow on the
	// platform's int width (spec §9 integer-width design note).
	expansion := c.BlockSize + (c.BlockSize+2047)/2048 + 10
	if expansion < c.BlockSize || expansion > math.MaxInt32 {
		return newError(KindConfigConflict, "config", errBlockSizeOverflow)
	}
	return nil
}

// defaultProcs mirrors what the CLI does when -p is not given: use the
// number of available CPUs, capped at maxAutoProcs.
func defaultProcs() int {
	n := runtime.NumCPU()
	if n > maxAutoProcs {
		n = maxAutoProcs
	}
	if n < 1 {
		n = 1
	}
	return n
}

// DefaultProcs reports the proc count the CLI uses when -p is not given:
// the number of available CPUs, capped at maxAutoProcs.
func DefaultProcs() int {
	return defaultProcs()
}
