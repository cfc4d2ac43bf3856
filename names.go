package arkive

import "strings"

// NormalizePath converts a user-provided path to archive entry form.
//
// It performs the following transformations:
//   - Converts backslashes to slashes: "a\b" → "a/b"
//   - Collapses consecutive slashes: "etc//nginx" → "etc/nginx"
//   - Strips leading slashes unless keepLeading: "/etc" → "etc"
//
// A trailing slash is preserved, since it marks a directory entry.
func NormalizePath(p string, keepLeading bool) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" {
		return ""
	}
	leading := strings.HasPrefix(p, "/")
	trailing := strings.HasSuffix(p, "/")

	parts := strings.Split(p, "/")
	result := parts[:0]
	for _, part := range parts {
		if part != "" {
			result = append(result, part)
		}
	}
	out := strings.Join(result, "/")
	if out == "" {
		if leading && keepLeading {
			return "/"
		}
		return ""
	}
	if leading && keepLeading {
		out = "/" + out
	}
	if trailing {
		out += "/"
	}
	return out
}

// OutputName computes the name a resource takes inside the archive.
//
// A collection FullPath replaces the name outright; otherwise the
// collection Prefix is prepended. The result is slash-normalized and ends
// in "/" exactly when dir is true. An empty result or a bare "/" denotes
// the archive root.
func OutputName(name string, dir bool, cf CollectionFlags, keepLeading bool) string {
	cf = cf.Normalized(keepLeading)
	if fp, ok := cf.FullPath.Get(); ok {
		name = fp
	} else if prefix, ok := cf.Prefix.Get(); ok {
		name = prefix + name
	}
	name = NormalizePath(name, keepLeading)
	name = strings.TrimSuffix(name, "/")
	if dir && name != "" {
		name += "/"
	}
	return name
}

// IsRootName reports whether name refers to the archive root itself.
func IsRootName(name string) bool {
	return name == "" || name == "/" || name == "./" || name == "."
}
