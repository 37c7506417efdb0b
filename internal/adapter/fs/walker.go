package fs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"semanticportal/internal/port"
)

var _ port.FileWalker = (*Walker)(nil)

// Walker selects ingestible files under a directory by include and exclude
// globs matched against slash-separated relative paths.
type Walker struct {
	includes []string
	excludes []string
}

func NewWalker(includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &Walker{
		includes: includes,
		excludes: excludes,
	}
}

// Walk lists matching regular files under root in lexical order.
func (w *Walker) Walk(root string) ([]port.FileInfo, error) {
	var files []port.FileInfo

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if relPath != "." && w.shouldExclude(relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		if w.shouldInclude(relPath) && !w.shouldExclude(relPath) {
			info, err := d.Info()
			if err != nil {
				return err
			}
			files = append(files, port.FileInfo{
				Path:    path,
				ModTime: info.ModTime().Unix(),
				Size:    info.Size(),
			})
		}

		return nil
	})

	return files, err
}

// Expand resolves command line arguments into files. A directory is walked
// with the walker's globs, a glob pattern is expanded, and a plain file is
// taken as is. Duplicates are dropped.
func (w *Walker) Expand(args []string) ([]port.FileInfo, error) {
	var files []port.FileInfo
	seen := make(map[string]struct{})
	add := func(fi port.FileInfo) {
		if _, ok := seen[fi.Path]; ok {
			return
		}
		seen[fi.Path] = struct{}{}
		files = append(files, fi)
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		switch {
		case err == nil && info.IsDir():
			found, err := w.Walk(arg)
			if err != nil {
				return nil, fmt.Errorf("failed to walk %s: %w", arg, err)
			}
			for _, fi := range found {
				add(fi)
			}
		case err == nil:
			path, err := filepath.Abs(arg)
			if err != nil {
				return nil, err
			}
			add(port.FileInfo{Path: path, ModTime: info.ModTime().Unix(), Size: info.Size()})
		default:
			matches, globErr := doublestar.FilepathGlob(arg)
			if globErr != nil {
				return nil, fmt.Errorf("invalid pattern %s: %w", arg, globErr)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("no files match %s: %w", arg, err)
			}
			sort.Strings(matches)
			for _, m := range matches {
				mi, err := os.Stat(m)
				if err != nil {
					return nil, err
				}
				if mi.IsDir() {
					continue
				}
				path, err := filepath.Abs(m)
				if err != nil {
					return nil, err
				}
				add(port.FileInfo{Path: path, ModTime: mi.ModTime().Unix(), Size: mi.Size()})
			}
		}
	}

	return files, nil
}

func (w *Walker) shouldInclude(path string) bool {
	for _, pattern := range w.includes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (w *Walker) shouldExclude(path string) bool {
	for _, pattern := range w.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}
