package pigz

import (
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/flate"
)

// countingWriter tracks how many bytes have passed through it, the same
// idiom as rasky-multigz's countWriter (blocks.go / rsyncable.go).
type countingWriter struct {
	io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.Writer.Write(p)
	cw.n += int64(n)
	return n, err
}

func flateReaderFor(r io.Reader) io.ReadCloser {
	return flate.NewReader(r)
}

func leUint32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func beUint32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }
