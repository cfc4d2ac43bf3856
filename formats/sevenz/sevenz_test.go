package sevenz

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/arkive"
)

var fixtureTime = time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)

func TestOpenFile(t *testing.T) {
	t.Parallel()

	fr, err := Codec().OpenFile(filepath.Join("testdata", "sample.7z"), arkive.CodecOptions{})
	require.NoError(t, err)
	defer fr.Close()

	entries := fr.Entries()
	require.Len(t, entries, 2)

	byName := make(map[string]*arkive.Entry, len(entries))
	for _, e := range entries {
		byName[e.Name] = e
		assert.Equal(t, arkive.KindSevenZ, e.Kind)
		assert.True(t, fixtureTime.Equal(e.ModTime), "mod time of %s", e.Name)
	}

	dir := byName["docs/"]
	require.NotNil(t, dir)
	assert.True(t, dir.IsDir())
	assert.Equal(t, arkive.Some(arkive.ModeDir|0o750), dir.Mode)

	f := byName["docs/readme.txt"]
	require.NotNil(t, f)
	assert.Equal(t, int64(11), f.Size)
	assert.Equal(t, arkive.Some(arkive.ModeRegular|0o640), f.Mode)
	require.True(t, fr.CanReadData(f))

	rc, err := fr.Open(f)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello seven", string(got))

	assert.False(t, fr.CanReadData(&arkive.Entry{Name: "docs/readme.txt"}))
}

func TestNewReader(t *testing.T) {
	t.Parallel()

	data, err := os.ReadFile(filepath.Join("testdata", "sample.7z"))
	require.NoError(t, err)

	r, err := Codec().NewReader(bytes.NewReader(data), arkive.CodecOptions{})
	require.NoError(t, err)

	contents := map[string]string{}
	for {
		e, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if e.IsDir() {
			contents[e.Name] = ""
			continue
		}
		b, err := io.ReadAll(r)
		require.NoError(t, err)
		contents[e.Name] = string(b)
	}
	assert.Equal(t, map[string]string{"docs/": "", "docs/readme.txt": "hello seven"}, contents)
}

func TestCorrupt(t *testing.T) {
	t.Parallel()

	_, err := Codec().NewReader(bytes.NewReader([]byte("7z but not really")), arkive.CodecOptions{})
	assert.ErrorIs(t, err, arkive.ErrCorruptArchive)

	path := filepath.Join(t.TempDir(), "bad.7z")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0o600))
	_, err = Codec().OpenFile(path, arkive.CodecOptions{})
	assert.ErrorIs(t, err, arkive.ErrCorruptArchive)
}

func TestWriterReadOnly(t *testing.T) {
	t.Parallel()

	_, err := Codec().NewWriter(io.Discard, arkive.CodecOptions{})
	assert.ErrorIs(t, err, arkive.ErrReadOnlyFormat)
	assert.True(t, arkive.IsFileAware(Codec()))
}

func TestBuildEntryCarriesContentMethods(t *testing.T) {
	t.Parallel()

	it := arkive.Item{
		Name:     "x",
		Resource: arkive.NewBytesResource("x", []byte("abc"), fixtureTime.Add(150*time.Nanosecond)),
		Flags:    arkive.ResourceFlags{ContentMethods: arkive.Some([]string{"LZMA2"})},
	}
	e, err := BuildEntry(it, arkive.EntryOptions{RoundUp: true})
	require.NoError(t, err)
	require.NotNil(t, e.SevenZ)
	assert.Equal(t, []string{"LZMA2"}, e.SevenZ.ContentMethods)
	assert.True(t, fixtureTime.Add(200*time.Nanosecond).Equal(e.ModTime))
	assert.False(t, e.UID.IsSet())
}
