package cli

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/meigma/arkive"
)

type listFlags struct {
	format      string
	compression string
	include     []string
	exclude     []string
	encoding    string
	skipUnread  bool
	matched     bool
}

func newListCmd() *cobra.Command {
	var f listFlags
	cmd := &cobra.Command{
		Use:     "list ARCHIVE",
		Aliases: []string{"ls"},
		Short:   "List the entries of an archive",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, f, args[0])
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.format, "format", "", "archive format (default: from extension)")
	fl.StringVar(&f.compression, "compression", "", `compression format, or "none" (default: from extension)`)
	fl.StringSliceVar(&f.include, "include", nil, "include patterns")
	fl.StringSliceVar(&f.exclude, "exclude", nil, "exclude patterns")
	fl.StringVar(&f.encoding, "encoding", "", "character set of entry names")
	fl.BoolVar(&f.skipUnread, "skip-unreadable", false, "omit entries whose data cannot be read")
	fl.BoolVarP(&f.matched, "matched", "m", false, "list only entries matching the patterns")
	return cmd
}

func runList(cmd *cobra.Command, f listFlags, path string) error {
	res, err := resolveFormats(path, f.format, f.compression)
	if err != nil {
		return err
	}
	sel, err := arkive.Patterns(f.include, f.exclude)
	if err != nil {
		return err
	}
	plain, cleanup, err := scanPath(path, res.compression)
	if err != nil {
		return err
	}
	defer cleanup()

	snap, err := arkive.Scan(cmd.Context(), plain, res.format.Codec,
		arkive.ScanWithSelector(sel),
		arkive.ScanWithEncoding(f.encoding),
		arkive.ScanWithSkipUnreadable(f.skipUnread),
		arkive.ScanWithLogger(logger(cmd)),
	)
	if err != nil {
		return err
	}

	files, dirs := snap.Files, snap.Dirs
	if f.matched || len(f.include) > 0 || len(f.exclude) > 0 {
		files, dirs = snap.MatchedFiles, snap.MatchedDirs
	}
	return printEntries(cmd.OutOrStdout(), files, dirs)
}

func printEntries(out io.Writer, maps ...map[string]*arkive.ArchiveResource) error {
	var all []*arkive.ArchiveResource
	for _, m := range maps {
		for _, r := range m {
			all = append(all, r)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Entry().Name < all[j].Entry().Name })

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, r := range all {
		e := r.Entry()
		mode := "-"
		if _, ok := e.Mode.Get(); ok {
			mode = e.FileMode().String()
		}
		owner := "-"
		if uid, ok := e.UID.Get(); ok {
			owner = fmt.Sprintf("%d:%d", uid, e.GID.OrElse(0))
		}
		if name, ok := e.UserName.Get(); ok {
			owner = name + "/" + e.GroupName.OrElse("")
		}
		flag := ""
		switch {
		case e.LinkName != "":
			flag = " -> " + e.LinkName
		case !r.Readable():
			flag = " (unreadable)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s%s\n",
			mode, owner, e.Size, e.ModTime.Format(time.DateTime), e.Name, flag)
	}
	return tw.Flush()
}
