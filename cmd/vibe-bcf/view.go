package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-bcf/internal/bcf"
	"github.com/inodb/vibe-bcf/internal/output"
)

// openBCF opens path with the configured threads and lazy mode.
func (a *app) openBCF(path, samples, index string) (*bcf.File, error) {
	opts := []bcf.Option{
		bcf.WithLazy(a.cfg.GetBool("lazy")),
		bcf.WithThreads(a.cfg.GetInt("threads")),
		bcf.WithLogger(a.logger),
	}
	if samples != "" {
		opts = append(opts, bcf.WithSamples(bcf.SampleString(samples)))
	}
	if index != "" {
		opts = append(opts, bcf.WithIndex(index))
	}
	return bcf.Open(path, opts...)
}

func (a *app) newViewCmd() *cobra.Command {
	var (
		samples        string
		index          string
		outputFile     string
		split          bool
		info           bool
		normalizeChrom bool
		noHeader       bool
	)

	cmd := &cobra.Command{
		Use:   "view <input.bcf>",
		Short: "Print records as tab-delimited text",
		Long: `Print one line per record with CHROM, POS, ID, REF, ALT, QUAL, FILTER and
the variant class. Use '-' to read standard input.`,
		Example: `  vibe-bcf view input.bcf
  vibe-bcf view --split --info input.bcf
  vibe-bcf view --threads 4 -o out.tsv input.bcf`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.openBCF(args[0], samples, index)
			if err != nil {
				return err
			}
			defer f.Close()

			var out io.Writer = a.stdout
			if outputFile != "" {
				file, err := os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("creating output file: %w", err)
				}
				defer file.Close()
				out = file
			}

			var opts []output.TabOption
			if info {
				opts = append(opts, output.WithInfo())
			}
			if normalizeChrom {
				opts = append(opts, output.WithNormalizedChrom())
			}
			w := output.NewTabWriter(out, opts...)

			if !noHeader {
				if err := w.WriteHeader(); err != nil {
					return fmt.Errorf("writing header: %w", err)
				}
			}

			vr := bcf.NewVariantReader(f, split)
			var n int
			for {
				v, err := vr.Next()
				if err != nil {
					w.Flush()
					return fmt.Errorf("reading record %d: %w", vr.Records()+1, err)
				}
				if v == nil {
					break
				}
				if err := w.Write(v); err != nil {
					return fmt.Errorf("writing variant: %w", err)
				}
				n++
			}

			a.logger.Info("view complete",
				zap.String("input", args[0]),
				zap.Int("records", vr.Records()),
				zap.Int("rows", n),
			)
			return w.Flush()
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&samples, "samples", "s", "", "Comma-separated samples to keep ('^' prefix excludes, '-' keeps all)")
	fl.StringVar(&index, "index", "", "CSI or TBI index to open alongside the file")
	fl.StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	fl.BoolVar(&split, "split", false, "Write one row per ALT allele")
	fl.BoolVar(&info, "info", false, "Add an INFO column")
	fl.BoolVar(&normalizeChrom, "normalize-chrom", false, "Strip the 'chr' prefix from CHROM")
	fl.BoolVar(&noHeader, "no-header", false, "Do not write the column header line")

	return cmd
}

func (a *app) newHeaderCmd() *cobra.Command {
	var samples string

	cmd := &cobra.Command{
		Use:   "header <input.bcf>",
		Short: "Print the header as VCF text",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.openBCF(args[0], samples, "")
			if err != nil {
				return err
			}
			defer f.Close()

			_, err = io.WriteString(a.stdout, f.Header().String())
			return err
		},
	}
	cmd.Flags().StringVarP(&samples, "samples", "s", "", "Comma-separated samples to keep in the #CHROM line")
	return cmd
}

func (a *app) newSamplesCmd() *cobra.Command {
	var samples string

	cmd := &cobra.Command{
		Use:   "samples <input.bcf>",
		Short: "List the active sample names",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.openBCF(args[0], samples, "")
			if err != nil {
				return err
			}
			defer f.Close()

			for _, name := range f.Samples() {
				fmt.Fprintln(a.stdout, name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&samples, "samples", "s", "", "Comma-separated samples to keep")
	return cmd
}
