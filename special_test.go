package arkive_test

import (
	stdtar "archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	kzip "github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/arkive"
	"github.com/meigma/arkive/formats/tar"
	"github.com/meigma/arkive/formats/zip"
	"github.com/meigma/arkive/internal/testutil"
)

// writeRawTar writes headers with stdlib tar; regular headers get content.
func writeRawTar(t *testing.T, path string, hdrs []*stdtar.Header, content map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	tw := stdtar.NewWriter(&buf)
	for _, h := range hdrs {
		if h.Typeflag == stdtar.TypeReg {
			h.Size = int64(len(content[h.Name]))
		}
		require.NoError(t, tw.WriteHeader(h))
		if h.Typeflag == stdtar.TypeReg {
			_, err := io.WriteString(tw, content[h.Name])
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	testutil.Touch(t, path, testutil.Epoch)
}

func readRawTar(t *testing.T, path string) (map[string]*stdtar.Header, map[string]string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	hdrs := make(map[string]*stdtar.Header)
	content := make(map[string]string)
	tr := stdtar.NewReader(f)
	for {
		h, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		hdrs[h.Name] = h
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		content[h.Name] = string(data)
	}
	return hdrs, content
}

func linkHeaders() []*stdtar.Header {
	return []*stdtar.Header{
		{Name: "a", Typeflag: stdtar.TypeReg, Mode: 0o644, ModTime: testutil.Epoch, Format: stdtar.FormatPAX},
		{Name: "link", Typeflag: stdtar.TypeSymlink, Linkname: "a", Mode: 0o777, ModTime: testutil.Epoch, Format: stdtar.FormatPAX},
		{Name: "hard", Typeflag: stdtar.TypeLink, Linkname: "a", Mode: 0o644, ModTime: testutil.Epoch, Format: stdtar.FormatPAX},
		{Name: "pipe", Typeflag: stdtar.TypeFifo, Mode: 0o600, ModTime: testutil.Epoch, Format: stdtar.FormatPAX},
	}
}

func TestBuildUpdateKeepsSpecialEntries(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "links.tar")
	writeRawTar(t, dest, linkHeaders(), map[string]string{"a": "alpha"})

	src := t.TempDir()
	testutil.WriteTree(t, src, map[string]string{"c": "charlie"}, testutil.Epoch.Add(time.Hour))

	res, err := newBuilder(t, tar.Format(), arkive.BuildWithMode(arkive.ModeUpdate)).
		Build(context.Background(), arkive.File(dest), dirSource(src, arkive.CollectionFlags{}))
	require.NoError(t, err)
	assert.Equal(t, 5, res.Entries)

	hdrs, content := readRawTar(t, dest)
	require.Len(t, hdrs, 5)
	assert.Equal(t, "alpha", content["a"])
	assert.Equal(t, "charlie", content["c"])

	assert.Equal(t, byte(stdtar.TypeSymlink), hdrs["link"].Typeflag)
	assert.Equal(t, "a", hdrs["link"].Linkname)
	assert.Equal(t, byte(stdtar.TypeLink), hdrs["hard"].Typeflag)
	assert.Equal(t, "a", hdrs["hard"].Linkname)
	assert.Equal(t, byte(stdtar.TypeFifo), hdrs["pipe"].Typeflag)
	assert.Equal(t, int64(0o600), hdrs["pipe"].Mode&0o777)
	for _, name := range []string{"link", "hard", "pipe"} {
		assert.Empty(t, content[name], "%s carries no content", name)
	}
}

func TestBuildReplaceKeepsSymlink(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "links.tar")
	writeRawTar(t, dest, linkHeaders()[:2], map[string]string{"a": "alpha"})

	src := t.TempDir()
	testutil.WriteTree(t, src, map[string]string{"a": "new alpha"}, testutil.Epoch)
	_, err := newBuilder(t, tar.Format(), arkive.BuildWithMode(arkive.ModeForceReplace)).
		Build(context.Background(), arkive.File(dest), dirSource(src, arkive.CollectionFlags{}))
	require.NoError(t, err)

	hdrs, content := readRawTar(t, dest)
	assert.Equal(t, "new alpha", content["a"])
	require.Contains(t, hdrs, "link")
	assert.Equal(t, byte(stdtar.TypeSymlink), hdrs["link"].Typeflag)
	assert.Equal(t, "a", hdrs["link"].Linkname)
}

func TestBuildTarLinksIntoZip(t *testing.T) {
	t.Parallel()

	t.Run("symlink", func(t *testing.T) {
		t.Parallel()
		in := filepath.Join(t.TempDir(), "in.tar")
		writeRawTar(t, in, linkHeaders()[:2], map[string]string{"a": "alpha"})

		dest := filepath.Join(t.TempDir(), "out.zip")
		_, err := newBuilder(t, zip.Format()).Build(context.Background(), arkive.File(dest),
			arkive.Source{Collection: tar.Format().Sets.NewArchiveSet(in)})
		require.NoError(t, err)

		snap, err := arkive.Scan(context.Background(), dest, zip.Codec())
		require.NoError(t, err)
		require.Contains(t, snap.Files, "link")
		link := snap.Files["link"].Entry()
		assert.Equal(t, arkive.ModeSymlink, link.Type())
		assert.Equal(t, "a", link.LinkName)
		assert.Equal(t, "alpha", testutil.ReadAll(t, snap.Files["a"]))
	})

	t.Run("hard link", func(t *testing.T) {
		t.Parallel()
		in := filepath.Join(t.TempDir(), "in.tar")
		hdrs := linkHeaders()
		writeRawTar(t, in, []*stdtar.Header{hdrs[0], hdrs[2]}, map[string]string{"a": "alpha"})

		target := testutil.NewMemTarget("out.zip")
		_, err := newBuilder(t, zip.Format()).Build(context.Background(), target,
			arkive.Source{Collection: tar.Format().Sets.NewArchiveSet(in)})
		require.ErrorIs(t, err, arkive.ErrSpecialUnsupported)
		assert.Equal(t, 0, target.Commits())
	})
}

// writeOpaqueZip writes a zip holding one entry stored with a method the
// zip codec cannot decompress, next to a plain entry.
func writeOpaqueZip(t *testing.T, path string) {
	t.Helper()
	const methodBzip2 = 12
	var buf bytes.Buffer
	zw := kzip.NewWriter(&buf)
	zw.RegisterCompressor(methodBzip2, func(w io.Writer) (io.WriteCloser, error) {
		return nopWriteCloser{w}, nil
	})
	fw, err := zw.CreateHeader(&kzip.FileHeader{Name: "odd.bin", Method: methodBzip2, Modified: testutil.Epoch})
	require.NoError(t, err)
	_, err = fw.Write([]byte("opaque"))
	require.NoError(t, err)
	fw, err = zw.CreateHeader(&kzip.FileHeader{Name: "plain.txt", Method: kzip.Deflate, Modified: testutil.Epoch})
	require.NoError(t, err)
	_, err = fw.Write([]byte("plain"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func TestScanSkipUnreadable(t *testing.T) {
	t.Parallel()

	in := filepath.Join(t.TempDir(), "in.zip")
	writeOpaqueZip(t, in)

	snap, err := arkive.Scan(context.Background(), in, zip.Codec())
	require.NoError(t, err)
	require.Len(t, snap.Files, 2)
	assert.False(t, snap.Files["odd.bin"].Readable())
	assert.True(t, snap.Files["plain.txt"].Readable())

	logger, logs := testutil.Logger()
	snap, err = arkive.Scan(context.Background(), in, zip.Codec(),
		arkive.ScanWithSkipUnreadable(true), arkive.ScanWithLogger(logger))
	require.NoError(t, err)
	assert.NotContains(t, snap.Files, "odd.bin")
	assert.NotContains(t, snap.MatchedFiles, "odd.bin")
	assert.Contains(t, snap.MatchedFiles, "plain.txt")
	assert.Contains(t, logs.String(), "skipping unreadable entry")
	assert.Contains(t, logs.String(), "odd.bin")
}

func TestBuildSkipUnreadable(t *testing.T) {
	t.Parallel()

	in := filepath.Join(t.TempDir(), "in.zip")
	writeOpaqueZip(t, in)

	target := testutil.NewMemTarget("out.tar")
	_, err := newBuilder(t, tar.Format()).Build(context.Background(), target,
		arkive.Source{Collection: zip.Format().Sets.NewArchiveSet(in)})
	require.ErrorIs(t, err, arkive.ErrUnreadableEntry)
	assert.Equal(t, 0, target.Commits())

	logger, logs := testutil.Logger()
	dest := filepath.Join(t.TempDir(), "out.tar")
	res, err := newBuilder(t, tar.Format(), arkive.BuildWithSkipUnreadable(true), arkive.BuildWithLogger(logger)).
		Build(context.Background(), arkive.File(dest), arkive.Source{Collection: zip.Format().Sets.NewArchiveSet(in)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Entries)
	assert.Equal(t, []string{"plain.txt"}, entryNames(t, dest, tar.Format()))
	assert.Contains(t, logs.String(), "skipping unreadable entry")
}

func TestJobWithoutBuilder(t *testing.T) {
	t.Parallel()

	err := (&arkive.Job{}).Execute(context.Background(), testutil.NewMemTarget("x.tar"))
	assert.ErrorIs(t, err, arkive.ErrNoFormat)
}
