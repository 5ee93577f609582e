// Package pigz implements a parallel, streaming compressor and
// decompressor compatible on the wire with gzip, zlib, and single-entry
// PKWare zip, plus a decoder for the legacy LZW ("compress") format.
//
// Its distinguishing feature is a chunked-pipeline compression core: the
// input is partitioned into fixed-size blocks, compressed concurrently
// on a pool of worker goroutines while preserving cross-block dictionary
// continuity, and serialized in input order behind exactly one
// gzip/zlib/zip header and trailer.
//
// Use NewWriter to compress and NewReader (or the Decompress/Test/List
// package functions) to decompress, test, or summarize a stream:
//
//	w, err := pigz.NewWriter(dst, pigz.Config{Format: pigz.FormatGzip})
//	if err != nil {
//		log.Fatal(err)
//	}
//	io.Copy(w, src)
//	w.Close()
//
// Config.Procs controls parallelism; Procs <= 1 selects a single-thread
// fallback that produces the same wire format at lower memory cost.
package pigz
