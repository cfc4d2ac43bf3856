package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meigma/arkive"
	"github.com/meigma/arkive/compress"
	"github.com/meigma/arkive/formats"
)

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported archive and compression formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tKIND\tEXTENSIONS\tACCESS")
			for _, info := range formats.All() {
				access := "read-write"
				if info.ReadOnly {
					access = "read-only"
				}
				kind := "archive"
				if arkive.IsFileAware(info.New().Codec) {
					kind = "archive (random access)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.Name, kind, strings.Join(info.Extensions, " "), access)
			}
			for _, f := range compress.All() {
				access := "read-write"
				if compress.ReadOnly(f) {
					access = "read-only"
				}
				if f.SupportsConcatenated() {
					access += ", concatenated"
				}
				fmt.Fprintf(tw, "%s\tcompression\t%s\t%s\n", f.Name(), f.Extension(), access)
			}
			return tw.Flush()
		},
	}
}
