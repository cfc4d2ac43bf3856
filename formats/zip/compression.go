package zip

import (
	"path"
	"strings"
)

// SkipCompressionFunc returns true when an entry should be stored
// uncompressed. It is called once per entry and should be inexpensive.
type SkipCompressionFunc func(name string, size int64) bool

// DefaultSkipCompression returns a SkipCompressionFunc that skips entries
// smaller than minSize and known already-compressed extensions.
func DefaultSkipCompression(minSize int64) SkipCompressionFunc {
	return func(name string, size int64) bool {
		if minSize > 0 && size < minSize {
			return true
		}
		_, ok := skipCompressionExts[strings.ToLower(path.Ext(name))]
		return ok
	}
}

// ShouldSkip checks if any predicate returns true for the given entry.
func ShouldSkip(name string, size int64, predicates []SkipCompressionFunc) bool {
	for _, fn := range predicates {
		if fn != nil && fn(name, size) {
			return true
		}
	}
	return false
}

var skipCompressionExts = map[string]struct{}{
	".7z": {}, ".aac": {}, ".apk": {}, ".arj": {}, ".avif": {}, ".br": {},
	".bz2": {}, ".docx": {}, ".ear": {}, ".flac": {}, ".gif": {}, ".gz": {},
	".heic": {}, ".jar": {}, ".jpeg": {}, ".jpg": {}, ".lz4": {}, ".m4v": {},
	".mkv": {}, ".mov": {}, ".mp3": {}, ".mp4": {}, ".ogg": {}, ".opus": {},
	".png": {}, ".rar": {}, ".sz": {}, ".tgz": {}, ".txz": {}, ".war": {},
	".webm": {}, ".webp": {}, ".woff2": {}, ".xlsx": {}, ".xz": {}, ".zip": {},
	".zst": {},
}
