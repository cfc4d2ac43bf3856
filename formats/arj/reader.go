package arj

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"strings"
	"time"

	"github.com/meigma/arkive"
	"github.com/meigma/arkive/internal/textenc"
)

const (
	magic0 = 0x60
	magic1 = 0xEA

	maxBasicHeaderSize = 2600
	minFirstHeaderSize = 30

	flagGarbled = 0x01
	flagVolume  = 0x04

	methodStored = 0

	typeDirectory = 3

	hostUnix = 2
	hostNext = 8
)

// localHeader is the decoded basic header of one member.
type localHeader struct {
	hostOS         uint8
	flags          uint8
	method         uint8
	fileType       uint8
	modified       uint32
	compressedSize uint32
	originalSize   uint32
	crc            uint32
	accessMode     uint16
	name           string
}

func (h *localHeader) readable() bool {
	return h.method == methodStored && h.flags&(flagGarbled|flagVolume) == 0
}

func (h *localHeader) modTime() time.Time {
	if h.hostOS == hostUnix || h.hostOS == hostNext {
		return time.Unix(int64(h.modified), 0)
	}
	return dosTime(h.modified)
}

// dosTime decodes an MS-DOS date and time packed into one word pair.
func dosTime(v uint32) time.Time {
	d, t := v>>16, v&0xffff
	return time.Date(
		int(d>>9)+1980, time.Month(d>>5&0xf), int(d&0x1f),
		int(t>>11), int(t>>5&0x3f), int(t&0x1f)*2,
		0, time.Local,
	)
}

type reader struct {
	r        *bufio.Reader
	encoding string
	readable map[*arkive.Entry]bool

	cur     *localHeader
	data    *io.LimitedReader
	crc     hash.Hash32
	checked bool
}

func newReader(r io.Reader, encoding string) (*reader, error) {
	ar := &reader{
		r:        bufio.NewReader(r),
		encoding: encoding,
		readable: make(map[*arkive.Entry]bool),
	}
	// The first header describes the archive itself.
	main, err := ar.readHeader()
	if err != nil {
		return nil, err
	}
	if main == nil {
		return nil, fmt.Errorf("%w: missing ARJ main header", arkive.ErrCorruptArchive)
	}
	return ar, nil
}

func (r *reader) Next() (*arkive.Entry, error) {
	if r.data != nil {
		if _, err := io.Copy(io.Discard, r.data); err != nil {
			return nil, err
		}
		r.data = nil
	}
	r.cur = nil

	for {
		h, err := r.readHeader()
		if err != nil {
			return nil, err
		}
		if h == nil {
			return nil, io.EOF
		}
		r.cur = h
		r.data = &io.LimitedReader{R: r.r, N: int64(h.compressedSize)}
		r.crc = crc32.NewIEEE()
		r.checked = false
		if h.fileType > typeDirectory {
			// Chapter and volume labels carry no file content.
			if _, err := io.Copy(io.Discard, r.data); err != nil {
				return nil, err
			}
			continue
		}
		e, err := r.toEntry(h)
		if err != nil {
			return nil, err
		}
		r.readable[e] = h.readable()
		return e, nil
	}
}

func (r *reader) toEntry(h *localHeader) (*arkive.Entry, error) {
	name := h.name
	if !textenc.IsUTF8(r.encoding) {
		decoded, err := textenc.Decode(r.encoding, name)
		if err != nil {
			return nil, fmt.Errorf("decode name %q: %w", name, err)
		}
		name = decoded
	}
	name = strings.ReplaceAll(name, "\\", "/")

	e := &arkive.Entry{
		Name:    name,
		Kind:    arkive.KindArj,
		ModTime: h.modTime(),
	}
	dir := h.fileType == typeDirectory
	if dir {
		if !strings.HasSuffix(e.Name, "/") {
			e.Name += "/"
		}
	} else {
		e.Size = int64(h.originalSize)
	}
	if h.hostOS == hostUnix || h.hostOS == hostNext {
		e.Mode = arkive.Some(arkive.UnixMode(uint32(h.accessMode)&arkive.ModePermMask, dir))
	}
	return e, nil
}

func (r *reader) Read(p []byte) (int, error) {
	if r.cur == nil {
		return 0, errors.New("arj: read outside of an entry")
	}
	if !r.cur.readable() {
		return 0, &arkive.EntryError{Op: "read", Name: r.cur.name, Err: arkive.ErrUnreadableEntry}
	}
	n, err := r.data.Read(p)
	r.crc.Write(p[:n])
	if errors.Is(err, io.EOF) && !r.checked {
		r.checked = true
		if r.data.N > 0 {
			return n, io.ErrUnexpectedEOF
		}
		if r.crc.Sum32() != r.cur.crc {
			return n, fmt.Errorf("%w: checksum mismatch for %s", arkive.ErrCorruptArchive, r.cur.name)
		}
	}
	return n, err
}

func (r *reader) CanReadData(e *arkive.Entry) bool {
	return r.readable[e]
}

// readHeader reads the next basic header and its extended headers. It
// returns nil at the end-of-archive marker.
func (r *reader) readHeader() (*localHeader, error) {
	var id [2]byte
	if _, err := io.ReadFull(r.r, id[:]); err != nil {
		return nil, corrupt(err)
	}
	if id[0] != magic0 || id[1] != magic1 {
		return nil, fmt.Errorf("%w: bad ARJ header id %#x%02x", arkive.ErrCorruptArchive, id[0], id[1])
	}

	var size uint16
	if err := binary.Read(r.r, binary.LittleEndian, &size); err != nil {
		return nil, corrupt(err)
	}
	if size == 0 {
		return nil, nil
	}
	if size > maxBasicHeaderSize {
		return nil, fmt.Errorf("%w: ARJ header size %d", arkive.ErrCorruptArchive, size)
	}

	basic := make([]byte, size)
	if _, err := io.ReadFull(r.r, basic); err != nil {
		return nil, corrupt(err)
	}
	var sum uint32
	if err := binary.Read(r.r, binary.LittleEndian, &sum); err != nil {
		return nil, corrupt(err)
	}
	if crc32.ChecksumIEEE(basic) != sum {
		return nil, fmt.Errorf("%w: ARJ header checksum mismatch", arkive.ErrCorruptArchive)
	}

	h, err := parseBasicHeader(basic)
	if err != nil {
		return nil, err
	}

	for {
		var extSize uint16
		if err := binary.Read(r.r, binary.LittleEndian, &extSize); err != nil {
			return nil, corrupt(err)
		}
		if extSize == 0 {
			break
		}
		if _, err := io.CopyN(io.Discard, r.r, int64(extSize)+4); err != nil {
			return nil, corrupt(err)
		}
	}
	return h, nil
}

func parseBasicHeader(b []byte) (*localHeader, error) {
	if len(b) < minFirstHeaderSize {
		return nil, fmt.Errorf("%w: ARJ header too short", arkive.ErrCorruptArchive)
	}
	first := int(b[0])
	if first < minFirstHeaderSize || first > len(b) {
		return nil, fmt.Errorf("%w: ARJ first header size %d", arkive.ErrCorruptArchive, first)
	}
	le := binary.LittleEndian
	h := &localHeader{
		hostOS:         b[3],
		flags:          b[4],
		method:         b[5],
		fileType:       b[6],
		modified:       le.Uint32(b[8:]),
		compressedSize: le.Uint32(b[12:]),
		originalSize:   le.Uint32(b[16:]),
		crc:            le.Uint32(b[20:]),
		accessMode:     le.Uint16(b[26:]),
	}

	rest := b[first:]
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		return nil, fmt.Errorf("%w: unterminated ARJ file name", arkive.ErrCorruptArchive)
	}
	h.name = string(rest[:end])
	return h, nil
}

func corrupt(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated ARJ archive", arkive.ErrCorruptArchive)
	}
	return err
}
