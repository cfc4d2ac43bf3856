package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/meigma/arkive"
	"github.com/meigma/arkive/compress"
	"github.com/meigma/arkive/formats"
)

// resolved is the archive and compression format of a path.
type resolved struct {
	format      arkive.Format
	compression compress.Format
}

// resolveFormats picks the formats of path. Explicit names win; otherwise
// the extension decides, so "app.tar.gz" resolves to tar inside gzip.
func resolveFormats(path, formatName, compressionName string) (resolved, error) {
	var res resolved
	var err error

	name := path
	switch compressionName {
	case "none":
	case "":
		if f, cerr := compress.ForPath(path); cerr == nil {
			res.compression = f
			name = compress.Strip(path, f)
		}
	default:
		if res.compression, err = compress.Lookup(compressionName); err != nil {
			return res, err
		}
		name = compress.Strip(path, res.compression)
	}

	if formatName != "" {
		res.format, err = formats.Lookup(formatName)
	} else {
		res.format, err = formats.ForPath(name)
	}
	if err != nil {
		return res, err
	}
	return res, nil
}

// scanPath returns a plain archive file for path, decompressing into a
// temporary file first when needed. The cleanup function removes it.
func scanPath(path string, compression compress.Format) (string, func(), error) {
	if compression == nil {
		return path, func() {}, nil
	}
	tmp, err := os.CreateTemp("", "arkive-list-*")
	if err != nil {
		return "", nil, err
	}
	tmpPath := tmp.Name()
	cleanup := func() { os.Remove(tmpPath) }

	src, err := compress.Target(arkive.File(path), compression).Open()
	if err != nil {
		tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("open %s: %w", path, err)
	}
	_, copyErr := tmp.ReadFrom(src)
	if err := errors.Join(copyErr, src.Close(), tmp.Close()); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("decompress %s: %w", path, err)
	}
	return tmpPath, cleanup, nil
}
