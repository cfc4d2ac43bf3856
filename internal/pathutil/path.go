// Package pathutil provides path manipulation for slash-separated archive paths.
package pathutil

import "strings"

// Parents returns the directory prefixes of path, shortest first, each
// ending in "/". "a/b/c.txt" yields "a/", "a/b/". A leading slash does not
// produce a root entry.
func Parents(path string) []string {
	trimmed := strings.TrimSuffix(path, "/")
	var dirs []string
	for i := 1; i < len(trimmed); i++ {
		if trimmed[i] == '/' {
			dirs = append(dirs, trimmed[:i+1])
		}
	}
	return dirs
}

// DirPrefix converts a directory name to the prefix matching its children.
// For "" returns "" (empty prefix matches all).
func DirPrefix(name string) string {
	if name == "" || strings.HasSuffix(name, "/") {
		return name
	}
	return name + "/"
}
