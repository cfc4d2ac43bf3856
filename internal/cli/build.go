package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/meigma/arkive"
	"github.com/meigma/arkive/compress"
)

type buildFlags struct {
	format      string
	compression string
	mode        string
	duplicate   string
	whenEmpty   string
	dirs        bool
	prefix      string
	fullPath    string
	fileMode    string
	dirMode     string
	uid         int
	gid         int
	user        string
	group       string
	include     []string
	exclude     []string
	encoding    string
	skipUnread  bool
	noRoundUp   bool
	keepSlashes bool
	keepZero    bool
	keepMethod  bool
}

func newBuildCmd() *cobra.Command {
	var f buildFlags
	cmd := &cobra.Command{
		Use:   "build DEST SOURCE_DIR...",
		Short: "Build an archive from directory trees",
		Long: `Build writes DEST from the files under each SOURCE_DIR. Source
directories may also be archives, in which case their entries are copied.

The archive format follows the extension of DEST unless --format is given.
A compression extension such as .gz wraps the archive in that format.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, f, args[0], args[1:])
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.format, "format", "", "archive format (default: from DEST extension)")
	fl.StringVar(&f.compression, "compression", "", `compression format, or "none" (default: from DEST extension)`)
	fl.StringVar(&f.mode, "mode", "create", "create, update, replace, force-create, or force-replace")
	fl.StringVar(&f.duplicate, "duplicate", "fail", "fail, add, or preserve")
	fl.StringVar(&f.whenEmpty, "when-empty", "fail", "fail, skip, or create")
	fl.BoolVar(&f.dirs, "dirs", false, "write directory entries")
	fl.StringVar(&f.prefix, "prefix", "", "prepend PREFIX/ to entry names")
	fl.StringVar(&f.fullPath, "fullpath", "", "entry name for a single-file source")
	fl.StringVar(&f.fileMode, "file-mode", "", "octal permissions for files")
	fl.StringVar(&f.dirMode, "dir-mode", "", "octal permissions for directories")
	fl.IntVar(&f.uid, "uid", -1, "numeric owner")
	fl.IntVar(&f.gid, "gid", -1, "numeric group")
	fl.StringVar(&f.user, "user", "", "owner name")
	fl.StringVar(&f.group, "group", "", "group name")
	fl.StringSliceVar(&f.include, "include", nil, "include patterns")
	fl.StringSliceVar(&f.exclude, "exclude", nil, "exclude patterns")
	fl.StringVar(&f.encoding, "encoding", "", "character set of entry names")
	fl.BoolVar(&f.skipUnread, "skip-unreadable", false, "skip archive entries whose data cannot be read")
	fl.BoolVar(&f.noRoundUp, "no-round-up", false, "truncate instead of rounding up modification times")
	fl.BoolVar(&f.keepSlashes, "preserve-leading-slashes", false, "keep leading slashes in entry names")
	fl.BoolVar(&f.keepZero, "preserve-zero-permissions", false, "keep zero modes read from archives")
	fl.BoolVar(&f.keepMethod, "keep-compression", false, "keep the compression method of zip entries copied from archives")
	return cmd
}

func runBuild(cmd *cobra.Command, f buildFlags, dest string, dirs []string) error {
	ctx := cmd.Context()
	log := logger(cmd)

	res, err := resolveFormats(dest, f.format, f.compression)
	if err != nil {
		return err
	}
	opts, err := f.buildOptions()
	if err != nil {
		return err
	}
	opts = append(opts, arkive.BuildWithLogger(log))
	b, err := arkive.NewBuilder(res.format, opts...)
	if err != nil {
		return err
	}

	cf, err := f.collectionFlags()
	if err != nil {
		return err
	}
	sel, err := arkive.Patterns(f.include, f.exclude)
	if err != nil {
		return err
	}
	sources, err := collectSources(dirs, sel, cf, f.encoding)
	if err != nil {
		return err
	}

	var target arkive.Target = arkive.File(dest)
	if res.compression != nil {
		p, err := compress.NewPacker(res.compression, compress.WithLogger(log))
		if err != nil {
			return err
		}
		target = p.Target(target)
	}

	result, err := b.Build(ctx, target, sources...)
	if err != nil {
		return err
	}
	switch {
	case result.UpToDate:
		fmt.Fprintf(cmd.OutOrStdout(), "%s is up to date\n", dest)
	case result.Skipped:
		fmt.Fprintf(cmd.OutOrStdout(), "%s skipped: nothing to archive\n", dest)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries (%s, %s)\n", dest, result.Entries, result.Mode, result.Digest)
	}
	return nil
}

func (f buildFlags) buildOptions() ([]arkive.BuildOption, error) {
	mode, err := arkive.ParseMode(f.mode)
	if err != nil {
		return nil, err
	}
	dup, err := arkive.ParseDuplicate(f.duplicate)
	if err != nil {
		return nil, err
	}
	empty, err := arkive.ParseWhenEmpty(f.whenEmpty)
	if err != nil {
		return nil, err
	}
	return []arkive.BuildOption{
		arkive.BuildWithMode(mode),
		arkive.BuildWithDuplicate(dup),
		arkive.BuildWithWhenEmpty(empty),
		arkive.BuildWithFilesOnly(!f.dirs),
		arkive.BuildWithRoundUp(!f.noRoundUp),
		arkive.BuildWithPreserveLeadingSlashes(f.keepSlashes),
		arkive.BuildWithPreserve0Permissions(f.keepZero),
		arkive.BuildWithEncoding(f.encoding),
		arkive.BuildWithSkipUnreadable(f.skipUnread),
	}, nil
}

func (f buildFlags) collectionFlags() (arkive.CollectionFlags, error) {
	cf := arkive.CollectionFlags{KeepCompression: f.keepMethod}
	if f.prefix != "" {
		cf.Prefix = arkive.Some(f.prefix)
	}
	if f.fullPath != "" {
		cf.FullPath = arkive.Some(f.fullPath)
	}
	if f.fileMode != "" {
		m, err := parseOctal(f.fileMode)
		if err != nil {
			return cf, err
		}
		cf.FileMode = arkive.Some(m)
	}
	if f.dirMode != "" {
		m, err := parseOctal(f.dirMode)
		if err != nil {
			return cf, err
		}
		cf.DirMode = arkive.Some(m)
	}
	if f.uid >= 0 {
		cf.UID = arkive.Some(f.uid)
	}
	if f.gid >= 0 {
		cf.GID = arkive.Some(f.gid)
	}
	if f.user != "" {
		cf.UserName = arkive.Some(f.user)
	}
	if f.group != "" {
		cf.GroupName = arkive.Some(f.group)
	}
	return cf, nil
}

func parseOctal(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: mode %q", arkive.ErrInvalidOption, s)
	}
	return uint32(v) & arkive.ModePermMask, nil
}
