package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"semanticportal/internal/adapter/fs"
	"semanticportal/internal/domain"
	"semanticportal/internal/logger"
)

var (
	ingestType  string
	ingestWatch bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path|glob>...",
	Short: "Ingest local files",
	Long: `Ingest files through the same pipeline as POST /ingest. Directories are walked
using the include and exclude globs from the config; glob arguments are expanded.
The media type is derived from the file extension unless --type is given.
With --watch, a single directory argument keeps being watched after the first
pass and every created or rewritten file is ingested again.

Examples:
  portal ingest notes.txt
  portal ingest ./docs
  portal ingest "scans/**/*.png" --type image/png
  portal ingest ./inbox --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVarP(&ingestType, "type", "t", "", "media type for every file (default from extension)")
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep watching the directory and ingest changed files")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	if ingestWatch {
		if len(args) != 1 {
			return fmt.Errorf("--watch takes exactly one directory")
		}
		if info, err := os.Stat(args[0]); err != nil || !info.IsDir() {
			return fmt.Errorf("--watch needs a directory: %s", args[0])
		}
	}

	walker := fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes)
	files, err := walker.Expand(args)
	if err != nil {
		return err
	}
	if len(files) == 0 && !ingestWatch {
		fmt.Println("No files to ingest.")
		return nil
	}

	a, err := newApp(cfg, GetRootDir())
	if err != nil {
		return err
	}
	defer a.Close()

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	start := time.Now()
	var ingested, chunks int
	var failures []string

	for _, f := range files {
		result, err := ingestFile(cmd.Context(), a, f.Path)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %s: %v", f.Path, domain.Kind(err), err))
		} else {
			ingested++
			chunks += result.Count
		}
		bar.Add(1)
	}

	fmt.Printf("\nIngest complete:\n")
	fmt.Printf("  Files ingested: %d\n", ingested)
	fmt.Printf("  Files failed:   %d\n", len(failures))
	fmt.Printf("  Chunks stored:  %d\n", chunks)
	fmt.Printf("  Duration:       %s\n", formatDuration(time.Since(start)))

	if len(failures) > 0 {
		fmt.Printf("\nFailures:\n")
		for _, f := range failures {
			fmt.Printf("  - %s\n", f)
		}
		if !ingestWatch {
			return fmt.Errorf("%d of %d files failed", len(failures), len(files))
		}
	}

	if ingestWatch {
		return watchIngest(cmd.Context(), a, walker, args[0])
	}
	return nil
}

func watchIngest(ctx context.Context, a *app, walker *fs.Walker, dir string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := fs.NewWatcher(walker, dir)
	if err != nil {
		return err
	}
	changes, err := watcher.Watch(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("\nWatching %s (Ctrl+C to stop)\n", dir)
	for path := range changes {
		result, err := ingestFile(ctx, a, path)
		if err != nil {
			logger.Warn("ingest failed", "path", path, "kind", domain.Kind(err), "err", err)
			continue
		}
		logger.Info("ingested", "path", path, "count", result.Count)
	}
	return nil
}

func ingestFile(ctx context.Context, a *app, path string) (*domain.IngestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return a.ingest.Ingest(ctx, domain.Document{
		Name:      filepath.Base(path),
		MediaType: fileMediaType(path),
		Data:      data,
	})
}

func fileMediaType(path string) string {
	if ingestType != "" {
		return ingestType
	}
	if mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); mt != "" {
		return mt
	}
	return "text/plain"
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
