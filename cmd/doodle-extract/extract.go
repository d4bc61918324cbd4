// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/doodlechat/doodle-gw/pkg/extractor"
)

var errFailed = errors.New("one or more files failed")

type options struct {
	concurrency int
	outputDir   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "doodle-extract [flags] FILE...",
		Short: "Extract plain text from documents",
		Long: `Extract plain text from PDF, Word, Excel and text documents.

Each file is printed under a "==> name <==" header in argument order, or
written to <name>.txt inside --output-dir. The exit status is non-zero when
any file fails.`,
		Args:          cobra.MinimumNArgs(1),
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.concurrency < 1 {
				return fmt.Errorf("--concurrency must be at least 1, got %d", opts.concurrency)
			}
			results := extractAll(cmd.Context(), extractor.New(), args, opts.concurrency)
			if report(cmd.OutOrStdout(), cmd.ErrOrStderr(), results, opts.outputDir) > 0 {
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", 4, "number of files extracted in parallel")
	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "write <name>.txt files here instead of stdout")
	return cmd
}

type result struct {
	path string
	text string
	err  error
}

// extractAll runs every path through ex. A failing file never cancels the
// others; results keep argument order.
func extractAll(ctx context.Context, ex *extractor.Extractor, paths []string, concurrency int) []result {
	if ctx == nil {
		ctx = context.Background()
	}
	results := make([]result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, path := range paths {
		results[i].path = path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].err = err
				return nil
			}
			content, err := os.ReadFile(path)
			if err != nil {
				results[i].err = err
				return nil
			}
			res, err := ex.Extract(extractor.File{Name: filepath.Base(path), Content: content})
			if err != nil {
				results[i].err = err
				return nil
			}
			results[i].text = res.Text
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// report prints or writes results and returns the number of failures.
func report(stdout, stderr io.Writer, results []result, outputDir string) int {
	red := color.New(color.FgRed)
	failed := 0
	for i, r := range results {
		if r.err != nil {
			failed++
			red.Fprintf(stderr, "%s: %v\n", r.path, r.err)
			continue
		}

		if outputDir != "" {
			dst := filepath.Join(outputDir, filepath.Base(r.path)+".txt")
			if err := os.WriteFile(dst, []byte(r.text), 0o644); err != nil {
				failed++
				red.Fprintf(stderr, "%s: %v\n", r.path, err)
				continue
			}
			fmt.Fprintf(stdout, "%s -> %s\n", r.path, dst)
			continue
		}

		if i > 0 {
			fmt.Fprintln(stdout)
		}
		fmt.Fprintf(stdout, "==> %s <==\n%s", r.path, r.text)
		if n := len(r.text); n > 0 && r.text[n-1] != '\n' {
			fmt.Fprintln(stdout)
		}
	}
	return failed
}
