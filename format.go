package arkive

import "fmt"

// Format bundles the three strategies the build engine needs for one
// container format.
type Format struct {
	// Codec reads and writes the archive bytes.
	Codec Codec

	// Entries converts build items into entries of this format.
	Entries EntryBuilder

	// Sets anchors archive-backed collections on files of this format.
	Sets SetBuilder
}

// Name returns the format name.
func (f Format) Name() string {
	if f.Codec == nil {
		return KindUnknown.String()
	}
	return f.Codec.Kind().String()
}

// Validate reports whether all three strategies are present.
func (f Format) Validate() error {
	switch {
	case f.Codec == nil:
		return fmt.Errorf("%w: missing codec", ErrNoFormat)
	case f.Entries == nil:
		return fmt.Errorf("%w: missing entry builder", ErrNoFormat)
	case f.Sets == nil:
		return fmt.Errorf("%w: missing set builder", ErrNoFormat)
	}
	return nil
}
