package arkive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		keepLeading bool
		want        string
	}{
		{"simple", "foo", false, "foo"},
		{"leading slash", "/etc/nginx", false, "etc/nginx"},
		{"leading slash kept", "/etc/nginx", true, "/etc/nginx"},
		{"trailing slash kept", "etc/nginx/", false, "etc/nginx/"},
		{"backslashes", `a\b\c`, false, "a/b/c"},
		{"internal double slashes", "etc//nginx", false, "etc/nginx"},
		{"multiple leading slashes", "///etc", false, "etc"},
		{"only slashes", "///", false, ""},
		{"only slashes kept", "///", true, "/"},
		{"empty", "", false, ""},
		{"dotdot preserved", "a/../b", false, "a/../b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePath(tt.input, tt.keepLeading))
		})
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		dir   bool
		flags CollectionFlags
		want  string
	}{
		{"bare name", "sub/file.txt", false, CollectionFlags{}, "sub/file.txt"},
		{"prefix", "sub/file.txt", false, CollectionFlags{Prefix: Some("out")}, "out/sub/file.txt"},
		{"prefix with slash", "file.txt", false, CollectionFlags{Prefix: Some("out/")}, "out/file.txt"},
		{"prefix leading slash stripped", "file.txt", false, CollectionFlags{Prefix: Some("/out")}, "out/file.txt"},
		{"fullpath", "sub/file.txt", false, CollectionFlags{FullPath: Some("renamed.bin")}, "renamed.bin"},
		{"fullpath wins over name depth", "a/b/c/d.txt", false, CollectionFlags{FullPath: Some("x/y.bin")}, "x/y.bin"},
		{"directory gains slash", "sub", true, CollectionFlags{}, "sub/"},
		{"file loses slash", "sub/", false, CollectionFlags{}, "sub"},
		{"backslash prefix", "f", false, CollectionFlags{Prefix: Some(`a\b`)}, "a/b/f"},
		{"root", "", true, CollectionFlags{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutputName(tt.input, tt.dir, tt.flags, false))
		})
	}
}

func TestOutputNamePreserveLeadingSlashes(t *testing.T) {
	t.Parallel()

	got := OutputName("file.txt", false, CollectionFlags{Prefix: Some("/opt/app")}, true)
	assert.Equal(t, "/opt/app/file.txt", got)
}

func TestIsRootName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "/", ".", "./"} {
		assert.True(t, IsRootName(name), name)
	}
	assert.False(t, IsRootName("a/"))
}
