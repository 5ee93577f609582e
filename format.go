package pigz

// Format selects the on-wire framing and, with it, the check algorithm:
// gzip and zip use CRC-32, zlib uses Adler-32.
type Format int

const (
	FormatGzip Format = iota
	FormatZlib
	FormatZip
	// FormatZipDescriptor is only meaningful to the decoder: it marks a
	// zip entry whose sizes were promised in a trailing data descriptor
	// rather than the local header. The writer always produces this
	// layout for FormatZip, since sizes aren't known until the stream
	// has been fully compressed.
	FormatZipDescriptor
)

func (f Format) String() string {
	switch f {
	case FormatGzip:
		return "gzip"
	case FormatZlib:
		return "zlib"
	case FormatZip, FormatZipDescriptor:
		return "zip"
	default:
		return "unknown"
	}
}

// usesCRC32 reports whether the format's whole-stream check is CRC-32
// (gzip, zip) as opposed to Adler-32 (zlib).
func (f Format) usesCRC32() bool {
	return f != FormatZlib
}

// DefaultSuffix returns the suffix this package appends when compressing
// with the given format.
func (f Format) DefaultSuffix() string {
	switch f {
	case FormatGzip:
		return ".gz"
	case FormatZlib:
		return ".zz"
	case FormatZip, FormatZipDescriptor:
		return ".zip"
	default:
		return ""
	}
}

// KnownSuffixes lists the suffixes this package recognizes on decode/list,
// independent of which format produced them.
var KnownSuffixes = []string{
	".gz", "-gz", ".zz", "-zz", ".z", "-z", "_z", ".Z", ".zip", ".ZIP",
}
