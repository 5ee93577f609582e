// Command pigz is a gzip-compatible front end over the parallel
// compression core in package pigz, built the way
// rasky-multigz/cmd/multigz/multigz.go is built.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/djherbis/atime"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/ChunHungLiu/pigz"
)

const version = "1.0"

var (
	flagStdout     = pflag.BoolP("stdout", "c", false, "write on standard output, keep original files unchanged")
	flagDecompress = pflag.BoolP("decompress", "d", false, "decompress")
	flagForce      = pflag.BoolP("force", "f", false, "force overwrite of output file")
	flagHelp       = pflag.BoolP("help", "h", false, "give this help")
	flagKeep       = pflag.BoolP("keep", "k", false, "keep (don't delete) input files")
	flagList       = pflag.BoolP("list", "l", false, "list compressed file contents")
	flagTest       = pflag.BoolP("test", "t", false, "test compressed file integrity")
	flagRecurse    = pflag.BoolP("recursive", "r", false, "operate recursively on directories")
	flagQuiet      = pflag.BoolP("quiet", "q", false, "suppress all warnings")
	flagVersion    = pflag.BoolP("version", "V", false, "display version number")
	flagVerbose    = pflag.CountP("verbose", "v", "verbose mode (repeat for more)")

	flagBlockSize = pflag.IntP("blocksize", "b", 128, "set compression block size in KiB")
	flagProcs     = pflag.IntP("processes", "p", 0, "allow up to N compression threads")
	flagIndep     = pflag.BoolP("independent", "i", false, "compress blocks independently, no cross-block dictionary")
	flagSuffix    = pflag.StringP("suffix", "s", "", "use suffix .sfx instead of the format default")
	flagZlib      = pflag.BoolP("zlib", "z", false, "compress to zlib (RFC 1950) format")
	flagZip       = pflag.BoolP("zip", "K", false, "compress to zip (PKWare) format")

	flagName    = pflag.BoolP("name", "N", false, "save/restore file name and mod time")
	flagNoName  = pflag.BoolP("no-name", "n", false, "don't save/restore file name or mod time")
	flagNoTime  = pflag.BoolP("no-time", "T", false, "don't save/restore mod time")

	flagL0 = pflag.Bool("0", false, "")
	flagL1 = pflag.BoolP("fast", "1", false, "compress faster")
	flagL2 = pflag.Bool("2", false, "")
	flagL3 = pflag.Bool("3", false, "")
	flagL4 = pflag.Bool("4", false, "")
	flagL5 = pflag.Bool("5", false, "")
	flagL6 = pflag.Bool("6", false, "")
	flagL7 = pflag.Bool("7", false, "")
	flagL8 = pflag.Bool("8", false, "")
	flagL9 = pflag.BoolP("best", "9", false, "compress better")
)

const (
	modeCompress = iota
	modeDecompress
	modeTest
	modeList
)

var (
	runMode  = modeCompress
	level    = -1
	levelSet = false
	outFn    string

	isStdinTerm  = term.IsTerminal(0)
	isStdoutTerm = term.IsTerminal(1)
)

func main() {
	expandGzipEnv()
	pflag.Parse()

	if *flagHelp {
		usage()
		return
	}
	if *flagVersion {
		fmt.Println("pigz", version)
		return
	}

	switch {
	case *flagL0:
		level, levelSet = 0, true
	case *flagL1:
		level, levelSet = 1, true
	case *flagL2:
		level, levelSet = 2, true
	case *flagL3:
		level, levelSet = 3, true
	case *flagL4:
		level, levelSet = 4, true
	case *flagL5:
		level, levelSet = 5, true
	case *flagL6:
		level, levelSet = 6, true
	case *flagL7:
		level, levelSet = 7, true
	case *flagL8:
		level, levelSet = 8, true
	case *flagL9:
		level, levelSet = 9, true
	}

	switch {
	case *flagList:
		runMode = modeList
	case *flagTest:
		runMode = modeTest
	case *flagDecompress:
		runMode = modeDecompress
	}

	binname := filepath.Base(os.Args[0])
	if strings.Contains(binname, "gunzip") || strings.Contains(binname, "unpigz") {
		runMode = modeDecompress
	}
	if strings.Contains(binname, "zcat") {
		runMode = modeDecompress
		*flagStdout = true
	}

	files := pflag.Args()
	if len(files) == 0 {
		files = []string{"-"}
	}
	files, skipped := walkFiles(files, *flagRecurse)
	for _, d := range skipped {
		warn(d, "is a directory -- ignored (use -r to recurse)")
	}

	setSignalHandler()

	status := 0
	for _, fn := range files {
		if !processFile(fn) {
			status = 1
		}
	}
	os.Exit(status)
}

// expandGzipEnv prepends whitespace-separated options from $GZIP to
// os.Args, the way gzip(1) does, rejecting any bare (non-flag) token as
// a filename the environment is not allowed to name.
func expandGzipEnv() {
	env := strings.TrimSpace(os.Getenv("GZIP"))
	if env == "" {
		return
	}
	fields := strings.Fields(env)
	for _, f := range fields {
		if !strings.HasPrefix(f, "-") {
			fatal("GZIP environment variable may not contain a filename:", f)
			os.Exit(1)
		}
	}
	os.Args = append([]string{os.Args[0]}, append(fields, os.Args[1:]...)...)
}

func setSignalHandler() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-ch
		if outFn != "" {
			os.Remove(outFn)
		}
		os.Exit(1)
	}()
}

func fatal(args ...interface{}) {
	fmt.Fprint(os.Stderr, "pigz: ")
	fmt.Fprintln(os.Stderr, args...)
}

func warn(args ...interface{}) {
	if *flagQuiet {
		return
	}
	fatal(args...)
}

// copyStat mirrors the teacher's CopyStat: replicate mode, ownership and
// access/mod times from the source onto the freshly written output.
func copyStat(w, f *os.File) {
	fi, err := f.Stat()
	if err != nil {
		return
	}
	w.Chmod(fi.Mode())
	if sys, ok := fi.Sys().(*syscall.Stat_t); ok {
		w.Chown(int(sys.Uid), int(sys.Gid))
		os.Chtimes(w.Name(), atime.Get(fi), fi.ModTime())
	}
}

func configFromFlags(name string) pigz.Config {
	cfg := pigz.Config{
		Level:      level,
		LevelSet:   levelSet,
		BlockSize:  *flagBlockSize * 1024,
		Dictionary: !*flagIndep,
		Verbosity:  verbosity(),
	}
	if *flagProcs > 0 {
		cfg.Procs = *flagProcs
	}
	switch {
	case *flagZip:
		cfg.Format = pigz.FormatZip
	case *flagZlib:
		cfg.Format = pigz.FormatZlib
	default:
		cfg.Format = pigz.FormatGzip
	}
	if !*flagNoName {
		cfg.Name = name
	}
	cfg.ProgressWriter = os.Stderr
	return cfg
}

func verbosity() int {
	v := *flagVerbose
	if *flagQuiet {
		return 0
	}
	return v
}

// processFile compresses, decompresses, tests or lists fn, returning
// false on any failure for that file (the caller moves on to the next
// one rather than aborting the whole run, per spec §7).
func processFile(fn string) bool {
	var in *os.File
	var err error
	outStdout := *flagStdout

	if fn == "-" {
		in = os.Stdin
		outStdout = true
	} else {
		in, err = os.Open(fn)
		if err != nil {
			fatal(err)
			return false
		}
		defer in.Close()
	}

	if runMode == modeList {
		return listFile(in, fn)
	}

	var out *os.File
	if outStdout {
		if runMode == modeCompress && isStdoutTerm && !*flagForce {
			fatal("cannot write compressed data to a terminal (use -f to force)")
			return false
		}
		out = os.Stdout
	} else {
		name, ok := outputName(fn)
		if !ok {
			return true // unknown suffix on decompress: "ignored", not fatal
		}
		if !*flagForce {
			if _, err := os.Stat(name); err == nil {
				if !confirmOverwrite(name) {
					return true
				}
			}
		}
		out, err = os.Create(name)
		if err != nil {
			fatal(err)
			return false
		}
		outFn = name
		defer func() { outFn = "" }()
		defer out.Close()
	}

	var ok bool
	switch runMode {
	case modeCompress:
		ok = compressTo(in, out, fn)
	case modeDecompress, modeTest:
		ok = decompressTo(in, out, runMode == modeTest)
	}
	if !ok {
		if outFn != "" {
			os.Remove(outFn)
		}
		return false
	}

	if out != os.Stdout {
		copyStat(out, in)
	}
	if fn != "-" && !*flagKeep && runMode != modeTest && !outStdout {
		os.Remove(fn)
	}
	return true
}

func confirmOverwrite(name string) bool {
	fmt.Fprintf(os.Stderr, "pigz: %s already exists; do you wish to overwrite (y or n)? ", name)
	r := bufio.NewReader(os.Stdin)
	line, _ := r.ReadString('\n')
	if len(line) == 0 || (line[0] != 'y' && line[0] != 'Y') {
		fmt.Fprintln(os.Stderr, "\tnot overwritten")
		return false
	}
	return true
}

func outputName(fn string) (string, bool) {
	switch runMode {
	case modeCompress:
		cfg := configFromFlags("")
		sfx := outputSuffix(*flagSuffix, cfg.Format)
		return fn + sfx, true
	case modeDecompress:
		stripped, ok := stripKnownSuffix(fn)
		if !ok {
			warn(fn, "unknown suffix -- ignored")
			return "", false
		}
		return stripped, true
	case modeTest:
		return os.DevNull, true
	}
	return fn, true
}

func compressTo(in, out *os.File, fn string) bool {
	name := ""
	if fn != "-" {
		name = filepath.Base(fn)
	}
	cfg := configFromFlags(name)
	if fi, err := in.Stat(); err == nil && !*flagNoTime {
		cfg.ModTime = fi.ModTime()
	}

	w, err := pigz.NewWriter(out, cfg)
	if err != nil {
		fatal(err)
		return false
	}
	if _, err := io.Copy(w, in); err != nil {
		fatal(err)
		w.Close()
		return false
	}
	if err := w.Close(); err != nil {
		fatal(err)
		return false
	}
	return true
}

func decompressTo(in, out *os.File, testOnly bool) bool {
	procs := *flagProcs
	if procs == 0 {
		procs = pigz.DefaultProcs()
	}
	var dst io.Writer = out
	if testOnly {
		dst = io.Discard
	}
	res, err := pigz.Decompress(in, dst, procs)
	if err != nil {
		fatal(err)
		return false
	}
	if res.TrailingJunk {
		warn("trailing junk — ignored")
	}
	return true
}

func listFile(in *os.File, fn string) bool {
	entries, err := pigz.List(in, filepath.Base(fn))
	if err != nil {
		fatal(fn, err)
		return false
	}
	width := 48
	if *flagVerbose >= 2 {
		width = 16
	}
	now := time.Now()
	if *flagVerbose >= 1 {
		fmt.Printf("%5s %8s %12s %12s %12s %6s %s\n", "meth", "crc", "date time", "comp", "uncomp", "ratio", "name")
	}
	for _, e := range entries {
		fmt.Println(e.Line(now, width))
	}
	return true
}

func usage() {
	fmt.Println(`Usage: pigz [OPTION]... [FILE]...
Compress or uncompress FILEs (by default, compress FILES in-place).

  -0 .. -9            compression level, fastest to best
  -b, --blocksize=K   set block size to K KiB (default 128)
  -p, --processes=N   allow up to N compression threads
  -i, --independent   compress blocks independently (no dictionary priming)
  -c, --stdout        write on standard output, keep original files unchanged
  -d, --decompress    decompress
  -f, --force         force overwrite of output file
  -k, --keep          keep (don't delete) input files
  -l, --list          list compressed file contents
  -N, --name          save/restore file name and mod time
  -n, --no-name       don't save/restore file name or mod time
  -T, --no-time       don't save/restore mod time
  -r, --recursive     operate recursively on directories
  -s, --suffix=.sfx   use suffix .sfx instead of the format default
  -t, --test          test compressed file integrity
  -z, --zlib          compress to zlib format
  -K, --zip           compress to zip format
  -q, --quiet         suppress all warnings
  -v, --verbose       verbose mode (repeat for more)
  -V, --version       display version number
  -h, --help          give this help

With no FILE, or when FILE is -, read standard input.`)
}
