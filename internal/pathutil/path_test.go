package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want []string
	}{
		{"file.txt", nil},
		{"a/b/c.txt", []string{"a/", "a/b/"}},
		{"a/b/", []string{"a/"}},
		{"/abs/file", []string{"/abs/"}},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Parents(tt.path), tt.path)
	}
}

func TestDirPrefix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", DirPrefix(""))
	assert.Equal(t, "a/", DirPrefix("a"))
	assert.Equal(t, "a/b/", DirPrefix("a/b/"))
}
