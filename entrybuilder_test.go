package arkive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoundModTime(t *testing.T) {
	base := time.Date(2024, 5, 6, 7, 8, 10, 0, time.UTC)
	tests := []struct {
		name        string
		in          time.Time
		granularity time.Duration
		roundUp     bool
		want        time.Time
	}{
		{"on boundary kept", base, 2 * time.Second, true, base},
		{"odd second up", base.Add(time.Second), 2 * time.Second, true, base.Add(2 * time.Second)},
		{"sub-second up", base.Add(time.Millisecond), time.Second, true, base.Add(time.Second)},
		{"sub-second down", base.Add(999 * time.Millisecond), time.Second, false, base},
		{"odd second down", base.Add(time.Second), 2 * time.Second, false, base},
		{"zero granularity", base.Add(time.Nanosecond), 0, true, base.Add(time.Nanosecond)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundModTime(tt.in, tt.granularity, tt.roundUp)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
		})
	}
}

func TestBaseEntry(t *testing.T) {
	t.Parallel()

	mod := time.Date(2024, 1, 1, 0, 0, 0, 500, time.UTC)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	opts := EntryOptions{RoundUp: true, Now: now}

	t.Run("file", func(t *testing.T) {
		it := Item{
			Name:       "a/b.txt",
			Resource:   NewBytesResource("b.txt", []byte("hello"), mod),
			Collection: CollectionFlags{UID: Some(7)},
		}
		e := BaseEntry(it, KindTar, time.Second, opts)
		assert.Equal(t, "a/b.txt", e.Name)
		assert.Equal(t, int64(5), e.Size)
		assert.Equal(t, mod.Truncate(time.Second).Add(time.Second), e.ModTime)
		assert.Equal(t, Some(ModeRegular|0o644), e.Mode)
		assert.Equal(t, Some(7), e.UID)
	})

	t.Run("synthesized directory", func(t *testing.T) {
		it := Item{Name: "a/", Collection: CollectionFlags{DirMode: Some(uint32(0o700)), FileMode: Some(uint32(0o600))}}
		e := BaseEntry(it, KindTar, time.Second, opts)
		assert.Equal(t, int64(0), e.Size)
		assert.Equal(t, now, e.ModTime)
		assert.Equal(t, Some(ModeDir|0o700), e.Mode)
	})

	t.Run("archived symlink", func(t *testing.T) {
		src := &Entry{Name: "link", Size: 9, ModTime: mod, Mode: Some(ModeSymlink | 0o777), LinkName: "target"}
		it := Item{Name: "link", Resource: &ArchiveResource{archive: "in.tar", entry: src}}
		e := BaseEntry(it, KindTar, time.Second, opts)
		assert.Equal(t, ModeSymlink, e.Type())
		assert.Equal(t, "target", e.LinkName)
		assert.Zero(t, e.Size)
		assert.True(t, e.IsSpecial())
	})
}
