package compress

import (
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zlib"
	"github.com/mholt/archives"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

func builtin() []Format {
	return []Format{Gzip(), Bzip2(), Xz(), Deflate(), RawDeflate(), Lz4(), Snappy(), Zstd(), Brotli()}
}

// Gzip returns the gzip format. Concatenated members are supported.
func Gzip() Format {
	return &format{
		name:    "gzip",
		ext:     ".gz",
		aliases: []string{"gz"},
		concat:  true,
		newReader: func(r io.Reader, concatenated bool) (io.ReadCloser, error) {
			zr, err := gzip.NewReader(r)
			if err != nil {
				return nil, err
			}
			zr.Multistream(concatenated)
			return zr, nil
		},
		newWriter: func(w io.Writer) (io.WriteCloser, error) {
			return gzip.NewWriter(w), nil
		},
	}
}

// Bzip2 returns the bzip2 format.
func Bzip2() Format {
	bz := archives.Bz2{}
	return &format{
		name:    "bzip2",
		ext:     ".bz2",
		aliases: []string{"bz2"},
		newReader: func(r io.Reader, _ bool) (io.ReadCloser, error) {
			return bz.OpenReader(r)
		},
		newWriter: bz.OpenWriter,
	}
}

// Xz returns the xz format. Concatenated streams are supported.
func Xz() Format {
	return &format{
		name:   "xz",
		ext:    ".xz",
		concat: true,
		newReader: func(r io.Reader, concatenated bool) (io.ReadCloser, error) {
			xr, err := xz.ReaderConfig{SingleStream: !concatenated}.NewReader(r)
			if err != nil {
				return nil, err
			}
			return io.NopCloser(xr), nil
		},
		newWriter: func(w io.Writer) (io.WriteCloser, error) {
			return xz.NewWriter(w)
		},
	}
}

// Deflate returns the zlib-wrapped deflate format.
func Deflate() Format {
	return &format{
		name:    "deflate",
		ext:     ".zz",
		aliases: []string{"zlib"},
		newReader: func(r io.Reader, _ bool) (io.ReadCloser, error) {
			return zlib.NewReader(r)
		},
		newWriter: func(w io.Writer) (io.WriteCloser, error) {
			return zlib.NewWriter(w), nil
		},
	}
}

// RawDeflate returns deflate without the zlib header.
func RawDeflate() Format {
	return &format{
		name: "raw-deflate",
		ext:  ".deflate",
		newReader: func(r io.Reader, _ bool) (io.ReadCloser, error) {
			return flate.NewReader(r), nil
		},
		newWriter: func(w io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(w, flate.DefaultCompression)
		},
	}
}

// Lz4 returns the lz4 frame format.
func Lz4() Format {
	return &format{
		name: "lz4",
		ext:  ".lz4",
		newReader: func(r io.Reader, _ bool) (io.ReadCloser, error) {
			return io.NopCloser(lz4.NewReader(r)), nil
		},
		newWriter: func(w io.Writer) (io.WriteCloser, error) {
			return lz4.NewWriter(w), nil
		},
	}
}

// Snappy returns the snappy framing format.
func Snappy() Format {
	return &format{
		name:    "snappy",
		ext:     ".sz",
		aliases: []string{"sz"},
		newReader: func(r io.Reader, _ bool) (io.ReadCloser, error) {
			return io.NopCloser(s2.NewReader(r)), nil
		},
		newWriter: func(w io.Writer) (io.WriteCloser, error) {
			return s2.NewWriter(w, s2.WriterSnappyCompat()), nil
		},
	}
}

// Brotli returns the brotli format. It can only decompress.
func Brotli() Format {
	br := archives.Brotli{}
	return &format{
		name:    "brotli",
		ext:     ".br",
		aliases: []string{"br"},
		newReader: func(r io.Reader, _ bool) (io.ReadCloser, error) {
			return br.OpenReader(r)
		},
	}
}
