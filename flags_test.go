package arkive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeAttributesPrecedence(t *testing.T) {
	tests := []struct {
		name string
		dir  bool
		rf   ResourceFlags
		cf   CollectionFlags
		zero bool
		want uint32
	}{
		{"file default", false, ResourceFlags{}, CollectionFlags{}, false, ModeRegular | 0o644},
		{"dir default", true, ResourceFlags{}, CollectionFlags{}, false, ModeDir | 0o755},
		{"collection file mode", false, ResourceFlags{}, CollectionFlags{FileMode: Some(uint32(0o600))}, false, ModeRegular | 0o600},
		{"collection dir mode for dirs", true, ResourceFlags{}, CollectionFlags{FileMode: Some(uint32(0o600)), DirMode: Some(uint32(0o700))}, false, ModeDir | 0o700},
		{"file ignores dir mode", false, ResourceFlags{}, CollectionFlags{DirMode: Some(uint32(0o700))}, false, ModeRegular | 0o644},
		{"resource wins", false, ResourceFlags{Mode: Some(uint32(0o755))}, CollectionFlags{FileMode: Some(uint32(0o600))}, false, ModeRegular | 0o755},
		{"zero resource mode ignored", false, ResourceFlags{Mode: Some(uint32(0))}, CollectionFlags{FileMode: Some(uint32(0o600))}, false, ModeRegular | 0o600},
		{"zero resource mode preserved", false, ResourceFlags{Mode: Some(uint32(0))}, CollectionFlags{FileMode: Some(uint32(0o600))}, true, ModeRegular},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeAttributes(tt.dir, tt.rf, tt.cf, tt.zero)
			assert.Equal(t, tt.want, got.Mode)
		})
	}
}

func TestMergeAttributesOwnership(t *testing.T) {
	t.Parallel()

	rf := ResourceFlags{UID: Some(0), UserName: Some("root")}
	cf := CollectionFlags{UID: Some(1000), GID: Some(100), UserName: Some("app"), GroupName: Some("users")}

	got := MergeAttributes(false, rf, cf, false)
	assert.Equal(t, Some(0), got.UID, "explicit zero uid wins")
	assert.Equal(t, Some(100), got.GID)
	assert.Equal(t, Some("root"), got.UserName)
	assert.Equal(t, Some("users"), got.GroupName)

	none := MergeAttributes(false, ResourceFlags{}, CollectionFlags{}, false)
	assert.False(t, none.UID.IsSet())
	assert.False(t, none.GID.IsSet())
	assert.False(t, none.UserName.IsSet())
}

func TestResourceFlagsOfArchiveEntries(t *testing.T) {
	t.Parallel()

	t.Run("zip has no ownership", func(t *testing.T) {
		e := &Entry{
			Name: "a.txt", Kind: KindZip, Mode: Some(ModeRegular | 0o640),
			UID: Some(5),
			Zip: &ZipExtra{Method: 8, Extra: []ExtraField{{HeaderID: 0xcafe, CentralData: []byte{1}}}},
		}
		f := ResourceFlagsOf(&ArchiveResource{entry: e})
		assert.Equal(t, Some(uint32(0o640)), f.Mode)
		assert.False(t, f.UID.IsSet())
		assert.Equal(t, Some(uint16(8)), f.CompressionMethod)
		extra, ok := f.ZipExtra.Get()
		require.True(t, ok)
		require.Len(t, extra, 1)
		assert.Equal(t, uint16(0xcafe), extra[0].HeaderID)

		extra[0].CentralData[0] = 9
		assert.Equal(t, byte(1), e.Zip.Extra[0].CentralData[0], "flags hold a copy")
	})

	t.Run("tar carries names", func(t *testing.T) {
		e := &Entry{
			Name: "a", Kind: KindTar, Mode: Some(ModeRegular | 0o600),
			UID: Some(1), GID: Some(2), UserName: Some("u"), GroupName: Some("g"),
		}
		f := ResourceFlagsOf(&ArchiveResource{entry: e})
		assert.Equal(t, Some(1), f.UID)
		assert.Equal(t, Some("g"), f.GroupName)
	})

	t.Run("ar carries ids only", func(t *testing.T) {
		e := &Entry{Name: "a", Kind: KindAr, UID: Some(1), GID: Some(2), UserName: Some("u")}
		f := ResourceFlagsOf(&ArchiveResource{entry: e})
		assert.Equal(t, Some(2), f.GID)
		assert.False(t, f.UserName.IsSet())
		assert.False(t, f.Mode.IsSet())
	})

	t.Run("arj reports nothing but mode", func(t *testing.T) {
		e := &Entry{Name: "a", Kind: KindArj, Mode: Some(ModeRegular | 0o644)}
		f := ResourceFlagsOf(&ArchiveResource{entry: e})
		assert.Equal(t, ResourceFlags{Mode: Some(uint32(0o644))}, f)
	})
}

func TestResourceFlagsOfFlaggedResource(t *testing.T) {
	t.Parallel()

	inner := &ArchiveResource{entry: &Entry{
		Name: "a", Kind: KindTar, Mode: Some(ModeRegular | 0o600), UID: Some(1), GID: Some(2),
	}}
	r := WithFlags(inner, ResourceFlags{UID: Some(42)})

	f := ResourceFlagsOf(r)
	assert.Equal(t, Some(42), f.UID)
	assert.Equal(t, Some(2), f.GID)
	assert.Equal(t, Some(uint32(0o600)), f.Mode)

	plain := ResourceFlagsOf(NewBytesResource("x", nil, time.Time{}))
	assert.Equal(t, ResourceFlags{}, plain)
}

func TestCollectionFlagsNormalized(t *testing.T) {
	t.Parallel()

	cf := CollectionFlags{Prefix: Some(`/a\b`), FullPath: Some("//x/y")}.Normalized(false)
	assert.Equal(t, Some("a/b/"), cf.Prefix)
	assert.Equal(t, Some("x/y"), cf.FullPath)

	kept := CollectionFlags{Prefix: Some("/a")}.Normalized(true)
	assert.Equal(t, Some("/a/"), kept.Prefix)
}
