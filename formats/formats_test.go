package formats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/arkive"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		kind arkive.Kind
	}{
		{"zip", arkive.KindZip},
		{"TAR", arkive.KindTar},
		{"ar", arkive.KindAr},
		{"cpio", arkive.KindCpio},
		{"arj", arkive.KindArj},
		{"7z", arkive.KindSevenZ},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, err := Lookup(tt.name)
			require.NoError(t, err)
			require.NoError(t, f.Validate())
			assert.Equal(t, tt.kind, f.Codec.Kind())
		})
	}

	_, err := Lookup("rar")
	assert.ErrorIs(t, err, arkive.ErrUnsupportedFormat)
}

func TestForPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		kind arkive.Kind
	}{
		{"dist/app.jar", arkive.KindZip},
		{"BUNDLE.ZIP", arkive.KindZip},
		{"rootfs.tar", arkive.KindTar},
		{"pkg_1.0_amd64.deb", arkive.KindAr},
		{"libfoo.a", arkive.KindAr},
		{"initramfs.cpio", arkive.KindCpio},
		{"old.arj", arkive.KindArj},
		{"backup.7z", arkive.KindSevenZ},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			f, err := ForPath(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, f.Codec.Kind())
		})
	}

	_, err := ForPath("notes.txt")
	assert.ErrorIs(t, err, arkive.ErrUnsupportedFormat)
}

func TestAll(t *testing.T) {
	t.Parallel()

	all := All()
	require.Len(t, all, 6)
	names := make([]string, len(all))
	for i, info := range all {
		names[i] = info.Name
		assert.Equal(t, info.ReadOnly, info.Name == "arj" || info.Name == "7z", info.Name)
	}
	assert.Equal(t, []string{"7z", "ar", "arj", "cpio", "tar", "zip"}, names)
}
