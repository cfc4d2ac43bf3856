// Package arkive treats archives of many container formats as uniform
// collections of entries, and builds new archives from resource
// collections under metadata and update policies.
//
// Formats plug in through [Format], a bundle of three strategies: a
// [Codec] that reads and writes the container bytes, an [EntryBuilder]
// that turns build items into entries of that format, and a [SetBuilder]
// that anchors archive-backed collections on a file. Ready-made formats
// live in the formats subpackages; single-stream compression (gzip, xz,
// zstd and friends) lives in the compress subpackage.
//
// # Building
//
//	b, err := arkive.NewBuilder(tar.Format(),
//	    arkive.BuildWithMode(arkive.ModeUpdate),
//	    arkive.BuildWithDuplicate(arkive.DuplicatePreserve),
//	)
//	if err != nil {
//	    return err
//	}
//	res, err := b.Build(ctx, arkive.File("out.tar"),
//	    arkive.Source{Collection: arkive.Dir("./src"), Flags: arkive.CollectionFlags{
//	        Prefix:   arkive.Some("app"),
//	        FileMode: arkive.Some(uint32(0o640)),
//	    }},
//	)
//
// A build gathers the sources, drops the archive root, applies the
// duplicate policy, compares the sources against the existing archive,
// keeps existing entries that no source replaces (update and replace
// modes), sorts everything by name, and writes the archive through a
// temporary file that replaces the destination on success.
//
// # Metadata precedence
//
// For each attribute, an explicit resource override wins over the
// collection default, which wins over the format default (0644 for files,
// 0755 for directories). Attributes a format cannot store are reported as
// unset, never as zero.
//
// # Scanning
//
// [Scan] classifies the entries of an archive file into files and
// directories, each split again by a [Selector]. Entries are lazy
// handles: content is read only when opened.
package arkive
