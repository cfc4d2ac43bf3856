package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/arkive"
	"github.com/meigma/arkive/compress"
)

func newPackCmd() *cobra.Command {
	var formatName string
	cmd := &cobra.Command{
		Use:   "pack SOURCE DEST",
		Short: "Compress a file",
		Long: `Pack compresses SOURCE into DEST with the format named by --format or,
by default, by the extension of DEST. Nothing is written when DEST is newer
than SOURCE.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := compressionFor(args[1], formatName)
			if err != nil {
				return err
			}
			p, err := compress.NewPacker(f, compress.WithLogger(logger(cmd)))
			if err != nil {
				return err
			}
			res, err := p.Pack(cmd.Context(), arkive.File(args[1]), arkive.NewFileResource(args[0], args[0]))
			if err != nil {
				return err
			}
			report(cmd, args[1], res)
			return nil
		},
	}
	cmd.Flags().StringVar(&formatName, "format", "", "compression format (default: from DEST extension)")
	return cmd
}

func newUnpackCmd() *cobra.Command {
	var (
		formatName   string
		output       string
		concatenated bool
		jobs         int
	)
	cmd := &cobra.Command{
		Use:   "unpack SOURCE...",
		Short: "Decompress files",
		Long: `Unpack decompresses each SOURCE next to itself, dropping its compression
extension. --output names the destination when a single SOURCE is given.
Nothing is written when a destination is newer than its source.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" && len(args) > 1 {
				return fmt.Errorf("%w: --output needs a single source", arkive.ErrInvalidOption)
			}
			if jobs < 1 {
				return fmt.Errorf("%w: --jobs must be positive", arkive.ErrInvalidOption)
			}
			type job struct {
				src, dest string
				unpacker  *compress.Unpacker
			}
			plan := make([]job, 0, len(args))
			for _, src := range args {
				f, err := compressionFor(src, formatName)
				if err != nil {
					return err
				}
				dest := compress.Strip(src, f)
				if output != "" {
					dest = output
				}
				if dest == src {
					return fmt.Errorf("%w: destination equals source %s", arkive.ErrConflictingSource, src)
				}
				u, err := compress.NewUnpacker(f,
					compress.WithConcatenated(concatenated),
					compress.WithLogger(logger(cmd)),
				)
				if err != nil {
					return err
				}
				plan = append(plan, job{src: src, dest: dest, unpacker: u})
			}

			results := make([]*compress.Result, len(plan))
			eg, ctx := errgroup.WithContext(cmd.Context())
			eg.SetLimit(jobs)
			for i, j := range plan {
				eg.Go(func() error {
					res, err := j.unpacker.Unpack(ctx, arkive.File(j.dest), arkive.NewFileResource(j.src, j.src))
					if err != nil {
						return fmt.Errorf("unpack %s: %w", j.src, err)
					}
					results[i] = res
					return nil
				})
			}
			if err := eg.Wait(); err != nil {
				return err
			}
			for i, res := range results {
				report(cmd, plan[i].dest, res)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&formatName, "format", "", "compression format (default: from SOURCE extension)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination for a single SOURCE")
	cmd.Flags().BoolVar(&concatenated, "concatenated", false, "decode every concatenated member")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "number of files decompressed at once")
	return cmd
}

func compressionFor(path, name string) (compress.Format, error) {
	if name != "" {
		return compress.Lookup(name)
	}
	return compress.ForPath(path)
}

func report(cmd *cobra.Command, dest string, res *compress.Result) {
	if res.UpToDate {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is up to date\n", dest)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d bytes (%s)\n", dest, res.Bytes, res.Digest)
}
