package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-bcf/internal/bcf"
	"github.com/inodb/vibe-bcf/internal/duckdb"
	"github.com/inodb/vibe-bcf/internal/output"
)

// dbPath returns the configured DuckDB path, defaulting to
// ~/.vibe-bcf/variants.duckdb.
func (a *app) dbPath() (string, error) {
	if p := a.cfg.GetString("duckdb.path"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, configName, "variants.duckdb"), nil
}

func (a *app) bindDBFlag(cmd *cobra.Command) {
	cmd.Flags().String("db", "", "DuckDB database path (default: ~/.vibe-bcf/variants.duckdb)")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("db") {
			db, _ := cmd.Flags().GetString("db")
			a.cfg.Set("duckdb.path", db)
		}
	}
}

func (a *app) newLoadCmd() *cobra.Command {
	var (
		split     bool
		force     bool
		batchSize int
	)

	cmd := &cobra.Command{
		Use:   "load <input.bcf>",
		Short: "Load records into DuckDB",
		Long: `Load records into a DuckDB table named "variants". A file that was
already loaded with the same size and modification time is skipped unless
--force is given.`,
		Example: `  vibe-bcf load input.bcf
  vibe-bcf load --db variants.duckdb --split input.bcf`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			dbPath, err := a.dbPath()
			if err != nil {
				return err
			}

			store, err := duckdb.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			fp := duckdb.FileFingerprint{Path: path}
			if path != "-" {
				if fp, err = duckdb.StatFile(path); err != nil {
					return fmt.Errorf("stat input: %w", err)
				}
				loaded, err := store.SourceLoaded(fp)
				if err != nil {
					return err
				}
				if loaded && !force {
					fmt.Fprintf(a.stdout, "%s already loaded into %s\n", path, dbPath)
					return nil
				}
			}
			if err := store.DeleteSource(path); err != nil {
				return err
			}

			f, err := a.openBCF(path, "", "")
			if err != nil {
				return err
			}
			vr := bcf.NewVariantReader(f, split)
			defer vr.Close()

			n, err := store.LoadVariants(path, vr, batchSize)
			if err != nil {
				return fmt.Errorf("loading %s: %w", path, err)
			}
			if path != "-" {
				if err := store.RecordSource(fp, int64(n)); err != nil {
					return err
				}
			}

			a.logger.Info("load complete",
				zap.String("input", path),
				zap.String("db", dbPath),
				zap.Int("records", vr.Records()),
				zap.Int("rows", n),
			)
			fmt.Fprintf(a.stdout, "Loaded %d variants from %s into %s\n", n, path, dbPath)
			return nil
		},
	}

	a.bindDBFlag(cmd)
	cmd.Flags().BoolVar(&split, "split", false, "Store one row per ALT allele")
	cmd.Flags().BoolVar(&force, "force", false, "Reload even if the file was already loaded")
	cmd.Flags().IntVar(&batchSize, "batch-size", duckdb.DefaultBatchSize, "Rows appended per flush")

	return cmd
}

func (a *app) newLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup <chrom:pos>",
		Short: "Print loaded variants at a position",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chrom, posStr, ok := strings.Cut(args[0], ":")
			pos, err := strconv.ParseInt(posStr, 10, 64)
			if !ok || err != nil {
				return &usageError{fmt.Errorf("invalid position %q, want chrom:pos", args[0])}
			}

			dbPath, err := a.dbPath()
			if err != nil {
				return err
			}
			store, err := duckdb.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			vs, err := store.LookupPosition(chrom, pos)
			if err != nil {
				return err
			}

			w := output.NewTabWriter(a.stdout)
			if err := w.WriteHeader(); err != nil {
				return err
			}
			for _, v := range vs {
				if err := w.Write(v); err != nil {
					return err
				}
			}
			return w.Flush()
		},
	}
	a.bindDBFlag(cmd)
	return cmd
}
