package arkive

import (
	"context"
	"io/fs"
	"path/filepath"
)

// Collection yields the resources of one source.
type Collection interface {
	Resources(ctx context.Context) ([]Resource, error)
}

// Source pairs a collection with the defaults applied to its resources.
type Source struct {
	Collection Collection
	Flags      CollectionFlags
}

// ResourceList is a fixed list of resources.
type ResourceList []Resource

// Resources returns the list.
func (l ResourceList) Resources(context.Context) ([]Resource, error) {
	return l, nil
}

// DirCollection yields the files and directories below a root directory.
//
// Symbolic links are not followed and are skipped, as are special files.
// The root itself is not included.
type DirCollection struct {
	Root     string
	Selector Selector
}

// Dir returns a collection over the tree rooted at root.
func Dir(root string) *DirCollection {
	return &DirCollection{Root: root}
}

// Resources walks the tree and returns its resources in walk order.
func (d *DirCollection) Resources(ctx context.Context) ([]Resource, error) {
	resources := make([]Resource, 0, 64)
	err := filepath.WalkDir(d.Root, func(path string, de fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(d.Root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !de.IsDir() && !de.Type().IsRegular() {
			return nil
		}
		if d.Selector != nil && !d.Selector.Match(rel) {
			return nil
		}
		resources = append(resources, NewFileResource(path, rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resources, nil
}
