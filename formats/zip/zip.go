// Package zip provides the zip archive format on top of
// github.com/klauspost/compress/zip.
//
// Zip stores unix permissions in the external attributes, keeps extra
// fields per entry, and records per-entry compression methods. It does not
// store ownership; timestamps have two-second resolution.
package zip

import (
	"io"
	"time"

	kflate "github.com/klauspost/compress/flate"
	kzip "github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"

	"github.com/meigma/arkive"
)

// Granularity is the timestamp resolution of zip headers.
const Granularity = 2 * time.Second

// Compression methods understood by this package.
const (
	MethodStore   = kzip.Store
	MethodDeflate = kzip.Deflate
	MethodZstd    = uint16(zstd.ZipMethodWinZip)
)

const (
	creatorUnix    = 3
	dosDirAttr     = 0x10
	flagEncrypted  = 0x1
	flagUTF8       = 0x800
	defaultVersion = 20
)

// config holds zip format settings.
type config struct {
	level int
	skip  []SkipCompressionFunc
}

// Option configures the zip format.
type Option func(*config)

// WithLevel sets the deflate level for new entries
// (default flate.DefaultCompression).
func WithLevel(level int) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithSkipCompression sets predicates that select entries to store
// uncompressed. The default skips already-compressed file extensions.
func WithSkipCompression(fns ...SkipCompressionFunc) Option {
	return func(c *config) {
		c.skip = fns
	}
}

func newConfig(opts []Option) config {
	c := config{
		level: kflate.DefaultCompression,
		skip:  []SkipCompressionFunc{DefaultSkipCompression(0)},
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Format returns the zip format.
func Format(opts ...Option) arkive.Format {
	cfg := newConfig(opts)
	c := &codec{level: cfg.level}
	return arkive.Format{
		Codec:   c,
		Entries: &entryBuilder{skip: cfg.skip},
		Sets:    arkive.CodecSets{Codec: c},
	}
}

// Codec returns the zip codec.
func Codec(opts ...Option) arkive.FileCodec {
	cfg := newConfig(opts)
	return &codec{level: cfg.level}
}

type codec struct {
	level int
}

// interface guard
var _ arkive.FileCodec = (*codec)(nil)

func (*codec) Kind() arkive.Kind { return arkive.KindZip }

// methodSupported reports whether entries with method m can be read and written.
func methodSupported(m uint16) bool {
	switch m {
	case MethodStore, MethodDeflate, MethodZstd:
		return true
	}
	return false
}

func (c *codec) newZipWriter(w io.Writer) *kzip.Writer {
	zw := kzip.NewWriter(w)
	level := c.level
	zw.RegisterCompressor(MethodDeflate, func(out io.Writer) (io.WriteCloser, error) {
		return kflate.NewWriter(out, level)
	})
	zw.RegisterCompressor(MethodZstd, zstd.ZipCompressor(zstd.WithEncoderConcurrency(1)))
	return zw
}

func registerDecompressors(zr *kzip.Reader) {
	zr.RegisterDecompressor(MethodZstd, zstd.ZipDecompressor(zstd.WithDecoderConcurrency(1)))
}
