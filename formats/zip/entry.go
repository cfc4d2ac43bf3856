package zip

import (
	"fmt"

	"github.com/meigma/arkive"
)

type entryBuilder struct {
	skip []SkipCompressionFunc
}

// BuildEntry builds a zip entry. Ownership is dropped because zip does not
// store it. The compression method is kept from a source archive when the
// collection asks for it, otherwise chosen by the skip predicates.
// Symbolic links are stored; hard links and device nodes are rejected.
func (b *entryBuilder) BuildEntry(it arkive.Item, opts arkive.EntryOptions) (*arkive.Entry, error) {
	e := arkive.BaseEntry(it, arkive.KindZip, Granularity, opts)
	if e.IsSpecial() && e.Type() != arkive.ModeSymlink {
		return nil, fmt.Errorf("%w: %s", arkive.ErrSpecialUnsupported, it.Name)
	}
	e.UID = arkive.None[int]()
	e.GID = arkive.None[int]()
	e.UserName = arkive.None[string]()
	e.GroupName = arkive.None[string]()

	method := MethodDeflate
	switch {
	case it.IsDir(), e.IsSpecial():
		method = MethodStore
	case it.Collection.KeepCompression && it.Flags.CompressionMethod.IsSet():
		if m, _ := it.Flags.CompressionMethod.Get(); methodSupported(m) {
			method = m
		}
	case ShouldSkip(it.Name, e.Size, b.skip):
		method = MethodStore
	}

	e.Zip = &arkive.ZipExtra{
		Method: method,
		Extra:  it.Flags.ZipExtra.OrElse(nil),
	}
	return e, nil
}
