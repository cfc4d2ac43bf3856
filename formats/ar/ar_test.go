package ar

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/arkive"
)

var epoch = time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)

func TestCodecRoundTrip(t *testing.T) {
	t.Parallel()

	files := []struct {
		name    string
		content string
	}{
		{"odd.o", "abc"},
		{"even.o", "abcd"},
		{"empty.o", ""},
	}

	var buf bytes.Buffer
	w, err := Codec().NewWriter(&buf, arkive.CodecOptions{})
	require.NoError(t, err)
	for _, f := range files {
		require.NoError(t, w.WriteHeader(&arkive.Entry{
			Name:    f.name,
			Kind:    arkive.KindAr,
			Size:    int64(len(f.content)),
			ModTime: epoch,
			Mode:    arkive.Some(arkive.ModeRegular | 0o600),
			UID:     arkive.Some(42),
			GID:     arkive.Some(7),
		}))
		// Single-byte writes exercise the padding hold-back.
		_, err := io.Copy(w, iotest.OneByteReader(bytes.NewReader([]byte(f.content))))
		require.NoError(t, err)
		require.NoError(t, w.CloseEntry())
	}
	require.NoError(t, w.Close())
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("!<arch>\n")))

	r, err := Codec().NewReader(&buf, arkive.CodecOptions{})
	require.NoError(t, err)
	for _, f := range files {
		e, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, f.name, e.Name)
		assert.Equal(t, int64(len(f.content)), e.Size)
		assert.Equal(t, arkive.Some(arkive.ModeRegular|0o600), e.Mode)
		assert.Equal(t, arkive.Some(42), e.UID)
		assert.Equal(t, arkive.Some(7), e.GID)
		assert.True(t, epoch.Equal(e.ModTime))
		assert.True(t, r.CanReadData(e))

		got, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, f.content, string(got))
	}
	_, err = r.Next()
	assert.True(t, errors.Is(err, io.EOF))
}

func TestWriterShortAndLongWrites(t *testing.T) {
	t.Parallel()

	w, err := Codec().NewWriter(io.Discard, arkive.CodecOptions{})
	require.NoError(t, err)

	require.NoError(t, w.WriteHeader(&arkive.Entry{Name: "a", Size: 2, ModTime: epoch}))
	_, err = w.Write([]byte("abc"))
	assert.Error(t, err)

	_, err = w.Write([]byte("a"))
	require.NoError(t, err)
	assert.Error(t, w.CloseEntry())
}

func TestWriterRejects(t *testing.T) {
	t.Parallel()

	w, err := Codec().NewWriter(io.Discard, arkive.CodecOptions{})
	require.NoError(t, err)

	err = w.WriteHeader(&arkive.Entry{Name: "dir/"})
	assert.ErrorIs(t, err, arkive.ErrDirectoryUnsupported)

	err = w.WriteHeader(&arkive.Entry{Name: "a-very-long-member-name.o"})
	assert.ErrorIs(t, err, arkive.ErrNameTooLong)
	var ee *arkive.EntryError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "a-very-long-member-name.o", ee.Name)

	err = w.WriteHeader(&arkive.Entry{Name: "link", Mode: arkive.Some(arkive.ModeSymlink | 0o777), LinkName: "a.o"})
	assert.ErrorIs(t, err, arkive.ErrSpecialUnsupported)
}

func TestCodecEncoding(t *testing.T) {
	t.Parallel()

	opts := arkive.CodecOptions{Encoding: "ISO-8859-1"}
	var buf bytes.Buffer
	w, err := Codec().NewWriter(&buf, opts)
	require.NoError(t, err)
	require.NoError(t, w.WriteHeader(&arkive.Entry{Name: "café.o", Size: 2, ModTime: epoch, Mode: arkive.Some(arkive.ModeRegular | 0o644)}))
	_, err = w.Write([]byte("ok"))
	require.NoError(t, err)
	require.NoError(t, w.CloseEntry())
	require.NoError(t, w.Close())
	assert.True(t, bytes.Contains(buf.Bytes(), []byte("caf\xe9.o")), "name stored as latin-1")

	r, err := Codec().NewReader(bytes.NewReader(buf.Bytes()), opts)
	require.NoError(t, err)
	e, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "café.o", e.Name)

	_, err = Codec().NewReader(&buf, arkive.CodecOptions{Encoding: "no-such-charset"})
	assert.Error(t, err)
	_, err = Codec().NewWriter(io.Discard, arkive.CodecOptions{Encoding: "no-such-charset"})
	assert.Error(t, err)
}

func TestReaderSkipsSymbolTable(t *testing.T) {
	t.Parallel()

	archive := "!<arch>\n" +
		"__.SYMDEF       0           0     0     100644  4         `\n" +
		"\x00\x00\x00\x00" +
		"lib.o/          0           0     0     100644  2         `\n" +
		"hi"

	r, err := Codec().NewReader(bytes.NewReader([]byte(archive)), arkive.CodecOptions{})
	require.NoError(t, err)
	e, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "lib.o", e.Name)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(got))
}

func TestReaderMalformedMode(t *testing.T) {
	t.Parallel()

	archive := "!<arch>\n" +
		"/               0           0     0     0       4         `\n" +
		"\x00\x00\x00\x00"

	r, err := Codec().NewReader(bytes.NewReader([]byte(archive)), arkive.CodecOptions{})
	require.NoError(t, err)
	_, err = r.Next()
	assert.ErrorIs(t, err, arkive.ErrCorruptArchive)
}

func TestBuildEntry(t *testing.T) {
	t.Parallel()

	res := arkive.NewBytesResource("x", []byte("data"), epoch)
	tests := []struct {
		name    string
		item    arkive.Item
		wantErr error
	}{
		{"file", arkive.Item{Name: "x.o", Resource: res}, nil},
		{"max length", arkive.Item{Name: "sixteen-chars.oo", Resource: res}, nil},
		{"too long", arkive.Item{Name: "seventeen-chars.o", Resource: res}, arkive.ErrNameTooLong},
		{"directory", arkive.Item{Name: "d/"}, arkive.ErrDirectoryUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, err := BuildEntry(tt.item, arkive.EntryOptions{})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, arkive.KindAr, e.Kind)
			assert.Equal(t, int64(4), e.Size)
		})
	}
}

func TestBuildEntryDropsOwnerNames(t *testing.T) {
	t.Parallel()

	it := arkive.Item{
		Name:       "x.o",
		Resource:   arkive.NewBytesResource("x.o", nil, epoch),
		Collection: arkive.CollectionFlags{UID: arkive.Some(3), UserName: arkive.Some("u"), GroupName: arkive.Some("g")},
	}
	e, err := BuildEntry(it, arkive.EntryOptions{})
	require.NoError(t, err)
	assert.Equal(t, arkive.Some(3), e.UID)
	assert.False(t, e.UserName.IsSet())
	assert.False(t, e.GroupName.IsSet())
}
