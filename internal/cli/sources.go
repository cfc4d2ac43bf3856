package cli

import (
	"fmt"
	"os"

	"github.com/meigma/arkive"
)

// collectSources turns each argument into a source: directories are
// walked, regular files that name a known archive format are read as
// archives.
func collectSources(paths []string, sel arkive.Selector, cf arkive.CollectionFlags, encoding string) ([]arkive.Source, error) {
	sources := make([]arkive.Source, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		var c arkive.Collection
		if info.IsDir() {
			c = &arkive.DirCollection{Root: p, Selector: sel}
		} else {
			res, err := resolveFormats(p, "", "none")
			if err != nil {
				return nil, fmt.Errorf("source %s: %w", p, err)
			}
			set := res.format.Sets.NewArchiveSet(p)
			set.Selector = sel
			set.Encoding = encoding
			c = set
		}
		sources = append(sources, arkive.Source{Collection: c, Flags: cf})
	}
	return sources, nil
}
