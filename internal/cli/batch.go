package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/scope3-tracker/constants"
	"github.com/joseph-ayodele/scope3-tracker/internal/async"
	"github.com/joseph-ayodele/scope3-tracker/internal/export"
)

type batchOptions struct {
	dir       string
	outDir    string
	workers   int
	timeout   time.Duration
	recursive bool
}

type batchSummary struct {
	Processed        int      `json:"processed"`
	Failed           int      `json:"failed"`
	TotalEmissionsKg float64  `json:"total_emissions_kg"`
	Outputs          []string `json:"outputs"`
	Errors           []string `json:"errors,omitempty"`
}

func newBatchCmd() *cobra.Command {
	opts := &batchOptions{}

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Analyze every invoice in a directory, writing one JSON and one XLSX per invoice",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return runBatch(cmd.Context(), c, opts)
		},
	}
	cmd.Flags().StringVar(&opts.dir, "dir", "", "directory of invoices (required)")
	cmd.Flags().StringVar(&opts.outDir, "out", "", "output directory (default <dir>/out)")
	cmd.Flags().IntVar(&opts.workers, "workers", 4, "concurrent invoices")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 3*time.Minute, "per-invoice time limit")
	cmd.Flags().BoolVar(&opts.recursive, "recursive", false, "descend into subdirectories")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func runBatch(ctx context.Context, c *CLIContext, opts *batchOptions) error {
	paths, err := collectInvoices(opts.dir, opts.recursive)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no invoices found in %s", opts.dir)
	}
	if opts.outDir == "" {
		opts.outDir = filepath.Join(opts.dir, "out")
	}
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", opts.outDir, err)
	}

	a, err := openApp(ctx, c)
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		mu      sync.Mutex
		summary batchSummary
	)
	handle := func(r async.Result) {
		outputs, err := writeBatchOutputs(a.Export, opts.dir, opts.outDir, r)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", r.Job.Path, err))
			return
		}
		summary.Processed++
		summary.TotalEmissionsKg += r.Analysis.Summary.TotalEmissionsKg
		summary.Outputs = append(summary.Outputs, outputs...)
	}

	q := async.NewProcessorQueue(a.Processor, c.Logger,
		async.WithWorkers(opts.workers),
		async.WithQueueSize(len(paths)),
		async.WithProcessTimeout(opts.timeout),
		async.WithResultHandler(handle),
	)
	for _, p := range paths {
		if err := q.Enqueue(ctx, async.NewJob(p)); err != nil {
			q.Shutdown(context.Background())
			return err
		}
	}
	q.Shutdown(ctx)

	sort.Strings(summary.Outputs)
	sort.Strings(summary.Errors)
	c.Logger.Info("cli.batch.done", "processed", summary.Processed, "failed", summary.Failed, "out", opts.outDir)
	return writeJSON(c.Out, summary)
}

func writeBatchOutputs(svc *export.Service, dir, outDir string, r async.Result) ([]string, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	name := outputName(dir, r.Job.Path)
	jsonPath := filepath.Join(outDir, name+".json")
	if err := writeJSONFile(jsonPath, r.Analysis); err != nil {
		return nil, err
	}
	data, err := svc.AnalysisXLSX(r.Analysis)
	if err != nil {
		return nil, err
	}
	xlsxPath := filepath.Join(outDir, name+".xlsx")
	if err := os.WriteFile(xlsxPath, data, 0o644); err != nil {
		return nil, err
	}
	return []string{jsonPath, xlsxPath}, nil
}

// outputName flattens path relative to dir, keeping the extension, so
// a/inv.pdf, b/inv.pdf and inv.txt never share a report name.
func outputName(dir, path string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(path)
	}
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", "__")
}

// collectInvoices lists files with a known invoice extension, sorted by path.
func collectInvoices(dir string, recursive bool) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if constants.MapExtToFormat(filepath.Ext(path)) != "" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}
