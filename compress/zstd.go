package compress

import (
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Zstd returns the zstd format. Decoders are pooled across readers.
func Zstd() Format {
	return &format{
		name: "zstd",
		ext:  ".zst",
		newReader: func(r io.Reader, _ bool) (io.ReadCloser, error) {
			dec, release, err := defaultDecoders.get(r)
			if err != nil {
				return nil, err
			}
			return &pooledDecoder{Decoder: dec, release: release}, nil
		},
		newWriter: func(w io.Writer) (io.WriteCloser, error) {
			return zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
		},
	}
}

var defaultDecoders = newDecoderPool(0)

// decoderPool manages reusable zstd decoders to reduce allocation overhead.
type decoderPool struct {
	pool      sync.Pool
	maxMemory uint64
}

// newDecoderPool creates a pool for zstd decoders.
// If maxMemory is 0, no memory limit is applied to decoders.
func newDecoderPool(maxMemory uint64) *decoderPool {
	p := &decoderPool{maxMemory: maxMemory}
	p.pool.New = func() any {
		dec, err := p.newDecoder(nil)
		if err != nil {
			return nil
		}
		return dec
	}
	return p
}

// get returns a decoder reading from r and a function returning it to the pool.
func (p *decoderPool) get(r io.Reader) (*zstd.Decoder, func(), error) {
	dec, ok := p.pool.Get().(*zstd.Decoder)
	if !ok {
		// Pool's New function failed, try directly
		fresh, err := p.newDecoder(r)
		if err != nil {
			return nil, nil, err
		}
		return fresh, fresh.Close, nil
	}
	if err := dec.Reset(r); err != nil {
		dec.Close()
		fresh, err := p.newDecoder(r)
		if err != nil {
			return nil, nil, err
		}
		return fresh, fresh.Close, nil
	}
	return dec, func() {
		_ = dec.Reset(nil) //nolint:errcheck // clearing state before pool return
		p.pool.Put(dec)
	}, nil
}

func (p *decoderPool) newDecoder(r io.Reader) (*zstd.Decoder, error) {
	opts := []zstd.DOption{
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(false),
	}
	if p.maxMemory != 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(p.maxMemory))
	}
	return zstd.NewReader(r, opts...)
}

// pooledDecoder returns its decoder to the pool on Close.
type pooledDecoder struct {
	*zstd.Decoder
	release func()
	closed  bool
}

func (d *pooledDecoder) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.release()
	return nil
}
