package arj

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/arkive"
)

// member describes one header of a hand-built ARJ archive.
type member struct {
	name     string
	hostOS   uint8
	flags    uint8
	method   uint8
	fileType uint8
	modified uint32
	mode     uint16
	data     []byte
	badCRC   bool
}

func (m member) encode() []byte {
	le := binary.LittleEndian
	basic := make([]byte, minFirstHeaderSize)
	basic[0] = minFirstHeaderSize
	basic[1] = 11
	basic[2] = 1
	basic[3] = m.hostOS
	basic[4] = m.flags
	basic[5] = m.method
	basic[6] = m.fileType
	le.PutUint32(basic[8:], m.modified)
	le.PutUint32(basic[12:], uint32(len(m.data)))
	le.PutUint32(basic[16:], uint32(len(m.data)))
	sum := crc32.ChecksumIEEE(m.data)
	if m.badCRC {
		sum++
	}
	le.PutUint32(basic[20:], sum)
	le.PutUint16(basic[26:], m.mode)
	basic = append(basic, m.name...)
	basic = append(basic, 0, 0)

	var buf bytes.Buffer
	buf.Write([]byte{magic0, magic1})
	_ = binary.Write(&buf, le, uint16(len(basic)))
	buf.Write(basic)
	_ = binary.Write(&buf, le, crc32.ChecksumIEEE(basic))
	_ = binary.Write(&buf, le, uint16(0))
	buf.Write(m.data)
	return buf.Bytes()
}

func archive(members ...member) []byte {
	var buf bytes.Buffer
	buf.Write(member{name: "test.arj", fileType: 2}.encode())
	for _, m := range members {
		buf.Write(m.encode())
	}
	buf.Write([]byte{magic0, magic1, 0, 0})
	return buf.Bytes()
}

func dosStamp(t time.Time) uint32 {
	d := uint32(t.Year()-1980)<<9 | uint32(t.Month())<<5 | uint32(t.Day())
	c := uint32(t.Hour())<<11 | uint32(t.Minute())<<5 | uint32(t.Second()/2)
	return d<<16 | c
}

func open(t *testing.T, data []byte) arkive.Reader {
	t.Helper()
	r, err := Codec().NewReader(bytes.NewReader(data), arkive.CodecOptions{})
	require.NoError(t, err)
	return r
}

func TestReaderStoredEntries(t *testing.T) {
	t.Parallel()

	unixTime := time.Date(2022, 2, 3, 4, 5, 6, 0, time.UTC)
	dosLocal := time.Date(2020, 3, 4, 5, 6, 8, 0, time.Local)

	r := open(t, archive(
		member{name: "docs", hostOS: hostUnix, fileType: typeDirectory, mode: 0o750, modified: uint32(unixTime.Unix())},
		member{name: "docs\\readme.txt", hostOS: hostUnix, mode: 0o640, modified: uint32(unixTime.Unix()), data: []byte("hello arj")},
		member{name: "DOS.TXT", modified: dosStamp(dosLocal), data: []byte("dos")},
	))

	dir, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "docs/", dir.Name)
	assert.Equal(t, arkive.Some(arkive.ModeDir|0o750), dir.Mode)
	assert.True(t, r.CanReadData(dir))

	f, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "docs/readme.txt", f.Name)
	assert.Equal(t, arkive.KindArj, f.Kind)
	assert.Equal(t, int64(9), f.Size)
	assert.Equal(t, arkive.Some(arkive.ModeRegular|0o640), f.Mode)
	assert.True(t, unixTime.Equal(f.ModTime))
	assert.True(t, r.CanReadData(f))
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello arj", string(got))

	dos, err := r.Next()
	require.NoError(t, err)
	assert.False(t, dos.Mode.IsSet(), "DOS hosts store no unix mode")
	assert.True(t, dosLocal.Equal(dos.ModTime))
	assert.False(t, dos.UID.IsSet())

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderUnreadableEntries(t *testing.T) {
	t.Parallel()

	r := open(t, archive(
		member{name: "packed.bin", method: 1, data: []byte("compressed bytes")},
		member{name: "secret.bin", flags: flagGarbled, data: []byte("garbled")},
		member{name: "label", fileType: 4, data: []byte("chapter")},
		member{name: "after.txt", data: []byte("ok")},
	))

	packed, err := r.Next()
	require.NoError(t, err)
	assert.False(t, r.CanReadData(packed))
	_, err = r.Read(make([]byte, 4))
	assert.ErrorIs(t, err, arkive.ErrUnreadableEntry)

	secret, err := r.Next()
	require.NoError(t, err)
	assert.False(t, r.CanReadData(secret))

	// The chapter label is skipped.
	after, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "after.txt", after.Name)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(got))
}

func TestReaderChecksums(t *testing.T) {
	t.Parallel()

	t.Run("data", func(t *testing.T) {
		t.Parallel()
		r := open(t, archive(member{name: "a", data: []byte("abc"), badCRC: true}))
		_, err := r.Next()
		require.NoError(t, err)
		_, err = io.ReadAll(r)
		assert.ErrorIs(t, err, arkive.ErrCorruptArchive)
	})

	t.Run("header", func(t *testing.T) {
		t.Parallel()
		data := archive(member{name: "a", data: []byte("abc")})
		lead := member{name: "test.arj", fileType: 2}.encode()
		data[len(lead)+10] ^= 0xff
		r := open(t, data)
		_, err := r.Next()
		assert.ErrorIs(t, err, arkive.ErrCorruptArchive)
	})

	t.Run("truncated", func(t *testing.T) {
		t.Parallel()
		data := archive(member{name: "a", data: []byte("abc")})
		r := open(t, data[:len(data)-6])
		_, err := r.Next()
		require.NoError(t, err)
		_, err = io.ReadAll(r)
		assert.Error(t, err)
	})
}

func TestNewReaderRejectsOtherData(t *testing.T) {
	t.Parallel()

	_, err := Codec().NewReader(bytes.NewReader([]byte("PK\x03\x04 definitely not arj")), arkive.CodecOptions{})
	assert.ErrorIs(t, err, arkive.ErrCorruptArchive)

	_, err = Codec().NewReader(bytes.NewReader([]byte{magic0, magic1, 0, 0}), arkive.CodecOptions{})
	assert.ErrorIs(t, err, arkive.ErrCorruptArchive)
}

func TestNameEncoding(t *testing.T) {
	t.Parallel()

	data := archive(member{name: "caf\x82.txt", data: []byte("x")})
	r, err := Codec().NewReader(bytes.NewReader(data), arkive.CodecOptions{Encoding: "IBM437"})
	require.NoError(t, err)
	e, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "café.txt", e.Name)
}

func TestWriterReadOnly(t *testing.T) {
	t.Parallel()

	_, err := Codec().NewWriter(io.Discard, arkive.CodecOptions{})
	assert.ErrorIs(t, err, arkive.ErrReadOnlyFormat)
}

func TestBuildEntry(t *testing.T) {
	t.Parallel()

	it := arkive.Item{
		Name:       "f",
		Resource:   arkive.NewBytesResource("f", []byte("abc"), time.Date(2021, 1, 1, 0, 0, 1, 0, time.UTC)),
		Collection: arkive.CollectionFlags{UID: arkive.Some(1)},
	}
	e, err := BuildEntry(it, arkive.EntryOptions{})
	require.NoError(t, err)
	assert.Equal(t, arkive.KindArj, e.Kind)
	assert.False(t, e.UID.IsSet())
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), e.ModTime.UTC())
}
