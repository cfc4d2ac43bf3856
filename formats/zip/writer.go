package zip

import (
	"errors"
	"io"

	kzip "github.com/klauspost/compress/zip"

	"github.com/meigma/arkive"
	"github.com/meigma/arkive/internal/textenc"
)

type writer struct {
	zw       *kzip.Writer
	cur      io.Writer
	encoding string
}

func (c *codec) NewWriter(w io.Writer, opts arkive.CodecOptions) (arkive.Writer, error) {
	if _, err := textenc.Lookup(opts.Encoding); err != nil {
		return nil, err
	}
	return &writer{zw: c.newZipWriter(w), encoding: opts.Encoding}, nil
}

func (w *writer) WriteHeader(e *arkive.Entry) error {
	dir := e.IsDir()
	fh := &kzip.FileHeader{
		Name:           e.Name,
		Modified:       e.ModTime,
		Method:         MethodDeflate,
		CreatorVersion: creatorUnix<<8 | defaultVersion,
		ExternalAttrs:  arkive.UnixMode(e.Perm(), dir) << 16,
	}
	if e.Zip != nil {
		fh.Method = e.Zip.Method
		fh.Extra = writableExtra(e.Zip.Extra)
	}
	symlink := e.Type() == arkive.ModeSymlink
	switch {
	case dir:
		fh.Method = MethodStore
		fh.ExternalAttrs |= dosDirAttr
	case symlink:
		fh.Method = MethodStore
		fh.ExternalAttrs = (arkive.ModeSymlink | e.Perm()) << 16
		fh.UncompressedSize64 = uint64(len(e.LinkName))
	case e.IsSpecial():
		return &arkive.EntryError{Op: "write header", Name: e.Name, Err: arkive.ErrSpecialUnsupported}
	default:
		fh.UncompressedSize64 = uint64(e.Size) //nolint:gosec // sizes are non-negative
	}
	if !methodSupported(fh.Method) {
		return &arkive.EntryError{Op: "write header", Name: e.Name, Err: errors.New("unsupported compression method")}
	}
	if !textenc.IsUTF8(w.encoding) {
		encoded, err := textenc.Encode(w.encoding, e.Name)
		if err != nil {
			return err
		}
		fh.Name = encoded
		fh.NonUTF8 = true
	}

	out, err := w.zw.CreateHeader(fh)
	if err != nil {
		return err
	}
	w.cur = out
	if symlink {
		// The link target is the entry content.
		if _, err := io.WriteString(out, e.LinkName); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) Write(p []byte) (int, error) {
	if w.cur == nil {
		return 0, errors.New("zip: write outside of an entry")
	}
	return w.cur.Write(p)
}

func (w *writer) CloseEntry() error {
	w.cur = nil
	return nil
}

func (w *writer) Close() error {
	w.cur = nil
	return w.zw.Close()
}

// writableExtra flattens carried extra fields into one payload per field.
// The zip writer emits its own zip64 and extended timestamp fields, so
// carried copies of those are dropped.
func writableExtra(fields []arkive.ExtraField) []byte {
	kept := make([]arkive.ExtraField, 0, len(fields))
	for _, f := range fields {
		switch f.HeaderID {
		case arkive.ExtraZip64, arkive.ExtraExtendedTime:
			continue
		}
		if f.LocalData == nil {
			f.LocalData = f.CentralData
		}
		kept = append(kept, f)
	}
	if len(kept) == 0 {
		return nil
	}
	return arkive.EncodeLocalExtra(kept)
}
