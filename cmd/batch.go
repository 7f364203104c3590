package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/insitu-cli/internal/collection"
	"github.com/KaramelBytes/insitu-cli/internal/parser"
	"github.com/KaramelBytes/insitu-cli/internal/utils"
)

var (
	batchOut     string
	batchWorkers int
	batchQuiet   bool
)

// expandInputs resolves globs, falling back to literal paths, and drops
// duplicates.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

var batchCmd = &cobra.Command{
	Use:   "batch <files...>",
	Short: "Parse many files concurrently and write one summary JSON per file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		opts, err := parseOptions(cmd)
		if err != nil {
			return err
		}
		conf, err := currentConfig()
		if err != nil {
			return err
		}
		outDir := batchOut
		if outDir == "" {
			outDir = conf.OutputDir
		}
		if outDir == "" {
			outDir = "."
		}
		if err := utils.EnsureDir(outDir); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		workers := conf.Workers
		if batchWorkers > 0 {
			workers = batchWorkers
		}

		// Output names are fixed up front so same-named inputs get distinct files.
		taken := map[string]bool{}
		outputs := make([]string, len(files))
		for i, path := range files {
			outputs[i] = utils.UniqueOutputPath(outDir, path, ".summary.json", taken)
		}

		var (
			mu     sync.Mutex
			failed []string
		)
		out := cmd.OutOrStdout()
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(workers)
		for i, path := range files {
			i, path := i, path
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				err := writeSummary(path, outputs[i], opts)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					log.Warn("skipping file", zap.String("file", path), zap.Error(err))
					failed = append(failed, path)
					return nil
				}
				if !batchQuiet {
					fmt.Fprintf(out, "✓ %s -> %s\n", filepath.Base(path), outputs[i])
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		sort.Strings(failed)
		if !batchQuiet {
			fmt.Fprintf(out, "Processed %d file(s), %d failed\n", len(files)-len(failed), len(failed))
			for _, f := range failed {
				fmt.Fprintf(out, "  ✗ %s\n", f)
			}
		}
		return nil
	},
}

func writeSummary(path, dest string, opts parser.Options) error {
	c, err := collection.FromCSV(path, opts)
	if err != nil {
		return err
	}
	b, err := utils.PrettyJSON(c.Report())
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(dest, b)
}

func init() {
	addParseFlags(batchCmd)
	batchCmd.Flags().StringVarP(&batchOut, "out", "o", "", "directory for summary files (default: config output_dir or .)")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "files parsed in parallel (overrides config)")
	batchCmd.Flags().BoolVar(&batchQuiet, "quiet", false, "suppress per-file progress output")
	rootCmd.AddCommand(batchCmd)
}
