package arkive

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/meigma/arkive/internal/textenc"
)

// Mode selects how a build treats an existing destination.
type Mode uint8

const (
	// ModeCreate rebuilds the archive from the sources when any source is
	// newer than the archive.
	ModeCreate Mode = iota

	// ModeUpdate adds new and changed sources and keeps every other
	// existing entry.
	ModeUpdate

	// ModeReplace rewrites every source and keeps existing entries no
	// source replaces, when any source is out of date.
	ModeReplace

	// ModeForceCreate rebuilds from the sources unconditionally.
	ModeForceCreate

	// ModeForceReplace behaves like ModeReplace without the up-to-date check.
	ModeForceReplace
)

// String returns the option spelling of the mode.
func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeUpdate:
		return "update"
	case ModeReplace:
		return "replace"
	case ModeForceCreate:
		return "force-create"
	case ModeForceReplace:
		return "force-replace"
	default:
		return "unknown"
	}
}

// ParseMode parses the option spelling of a mode.
func ParseMode(s string) (Mode, error) {
	for m := ModeCreate; m <= ModeForceReplace; m++ {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: mode %q", ErrInvalidOption, s)
}

func (m Mode) valid() bool { return m <= ModeForceReplace }

// forced reports whether the up-to-date check is skipped.
func (m Mode) forced() bool { return m == ModeForceCreate || m == ModeForceReplace }

// creates reports whether existing entries are discarded.
func (m Mode) creates() bool { return m == ModeCreate || m == ModeForceCreate }

// Duplicate selects what happens when two sources map to one entry name.
type Duplicate uint8

const (
	// DuplicateFail aborts the build.
	DuplicateFail Duplicate = iota

	// DuplicateAdd writes both entries.
	DuplicateAdd

	// DuplicatePreserve keeps the first source and drops later ones.
	DuplicatePreserve
)

// String returns the option spelling of the policy.
func (d Duplicate) String() string {
	switch d {
	case DuplicateFail:
		return "fail"
	case DuplicateAdd:
		return "add"
	case DuplicatePreserve:
		return "preserve"
	default:
		return "unknown"
	}
}

// ParseDuplicate parses the option spelling of a duplicate policy.
func ParseDuplicate(s string) (Duplicate, error) {
	for d := DuplicateFail; d <= DuplicatePreserve; d++ {
		if strings.EqualFold(s, d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: duplicate %q", ErrInvalidOption, s)
}

// WhenEmpty selects what happens when no source qualifies.
type WhenEmpty uint8

const (
	// WhenEmptyFail aborts the build.
	WhenEmptyFail WhenEmpty = iota

	// WhenEmptySkip logs a warning and leaves the destination untouched.
	WhenEmptySkip

	// WhenEmptyCreate writes an archive with no entries.
	WhenEmptyCreate
)

// String returns the option spelling of the policy.
func (w WhenEmpty) String() string {
	switch w {
	case WhenEmptyFail:
		return "fail"
	case WhenEmptySkip:
		return "skip"
	case WhenEmptyCreate:
		return "create"
	default:
		return "unknown"
	}
}

// ParseWhenEmpty parses the option spelling of an empty-input policy.
func ParseWhenEmpty(s string) (WhenEmpty, error) {
	for w := WhenEmptyFail; w <= WhenEmptyCreate; w++ {
		if strings.EqualFold(s, w.String()) {
			return w, nil
		}
	}
	return 0, fmt.Errorf("%w: whenempty %q", ErrInvalidOption, s)
}

// buildConfig holds configuration for a build.
type buildConfig struct {
	mode                   Mode
	duplicate              Duplicate
	whenEmpty              WhenEmpty
	filesOnly              bool
	preserve0Permissions   bool
	roundUp                bool
	preserveLeadingSlashes bool
	encoding               string
	skipUnreadable         bool
	logger                 *slog.Logger
	progress               ProgressFunc
	now                    func() time.Time
}

func defaultBuildConfig() buildConfig {
	return buildConfig{
		mode:      ModeCreate,
		duplicate: DuplicateFail,
		whenEmpty: WhenEmptyFail,
		filesOnly: true,
		roundUp:   true,
		now:       time.Now,
	}
}

func (c *buildConfig) validate() error {
	if !c.mode.valid() {
		return fmt.Errorf("%w: mode %d", ErrInvalidOption, c.mode)
	}
	if c.duplicate > DuplicatePreserve {
		return fmt.Errorf("%w: duplicate %d", ErrInvalidOption, c.duplicate)
	}
	if c.whenEmpty > WhenEmptyCreate {
		return fmt.Errorf("%w: whenempty %d", ErrInvalidOption, c.whenEmpty)
	}
	if c.encoding != "" {
		if _, err := textenc.Lookup(c.encoding); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidOption, err)
		}
	}
	if c.now == nil {
		c.now = time.Now
	}
	return nil
}

// BuildOption configures a Builder.
type BuildOption func(*buildConfig)

// BuildWithMode sets how an existing destination is treated (default ModeCreate).
func BuildWithMode(m Mode) BuildOption {
	return func(c *buildConfig) {
		c.mode = m
	}
}

// BuildWithDuplicate sets the duplicate-name policy (default DuplicateFail).
func BuildWithDuplicate(d Duplicate) BuildOption {
	return func(c *buildConfig) {
		c.duplicate = d
	}
}

// BuildWithWhenEmpty sets the empty-input policy (default WhenEmptyFail).
func BuildWithWhenEmpty(w WhenEmpty) BuildOption {
	return func(c *buildConfig) {
		c.whenEmpty = w
	}
}

// BuildWithFilesOnly controls whether directory entries are written
// (default true: files only, no directory entries).
func BuildWithFilesOnly(filesOnly bool) BuildOption {
	return func(c *buildConfig) {
		c.filesOnly = filesOnly
	}
}

// BuildWithPreserve0Permissions keeps explicit zero modes read from
// source archives instead of replacing them with defaults.
func BuildWithPreserve0Permissions(preserve bool) BuildOption {
	return func(c *buildConfig) {
		c.preserve0Permissions = preserve
	}
}

// BuildWithRoundUp controls whether modification times are rounded up to
// the format's granularity (default true). Rounding down makes rebuilt
// archives look older than their sources.
//
// Rounding is a ceiling: a time already on a granularity boundary is
// stored unchanged. Tools that always add one full granularity step store
// such times one step later, so archives built here can differ from
// theirs by that step for boundary timestamps.
func BuildWithRoundUp(roundUp bool) BuildOption {
	return func(c *buildConfig) {
		c.roundUp = roundUp
	}
}

// BuildWithPreserveLeadingSlashes keeps leading slashes in entry names,
// prefixes, and full paths (default false).
func BuildWithPreserveLeadingSlashes(preserve bool) BuildOption {
	return func(c *buildConfig) {
		c.preserveLeadingSlashes = preserve
	}
}

// BuildWithEncoding sets the character set of entry names.
func BuildWithEncoding(enc string) BuildOption {
	return func(c *buildConfig) {
		c.encoding = enc
	}
}

// BuildWithSkipUnreadable skips entries of the existing destination and of
// archive sources whose data cannot be read, logging each one.
func BuildWithSkipUnreadable(skip bool) BuildOption {
	return func(c *buildConfig) {
		c.skipUnreadable = skip
	}
}

// BuildWithLogger sets the logger for build operations.
// If not set, logging is disabled.
func BuildWithLogger(logger *slog.Logger) BuildOption {
	return func(c *buildConfig) {
		c.logger = logger
	}
}

// BuildWithProgress sets a callback to receive progress updates.
func BuildWithProgress(fn ProgressFunc) BuildOption {
	return func(c *buildConfig) {
		c.progress = fn
	}
}

// BuildWithClock sets the clock used for synthesized directory entries.
func BuildWithClock(now func() time.Time) BuildOption {
	return func(c *buildConfig) {
		c.now = now
	}
}
