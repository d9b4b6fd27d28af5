package gguf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// FileResult is the outcome of validating a single file.
type FileResult struct {
	Path   string
	Header HeaderSummary
	Err    error
}

type fileTask struct {
	idx  int
	path string
}

func fileWorkersFor(n int) int {
	workers := runtime.GOMAXPROCS(0)
	if n > 0 && workers > n {
		workers = n
	}
	if workers < 1 {
		return 1
	}
	return workers
}

// ValidateFiles validates every path independently and returns the results
// in input order. Each file is opened and closed by the worker that owns it.
// Paths not yet started when ctx is done get ctx.Err() as their result.
func (v Validator) ValidateFiles(ctx context.Context, paths []string) []FileResult {
	results := make([]FileResult, len(paths))
	if len(paths) == 0 {
		return results
	}

	workers := fileWorkersFor(len(paths))
	tasks := make(chan fileTask, workers*2)
	done := make(chan struct{}, workers)
	for range workers {
		go func() {
			for t := range tasks {
				res := FileResult{Path: t.path}
				if err := ctx.Err(); err != nil {
					res.Err = err
				} else {
					res.Header, res.Err = v.ValidateFile(t.path)
				}
				results[t.idx] = res
			}
			done <- struct{}{}
		}()
	}
	for i, p := range paths {
		tasks <- fileTask{idx: i, path: p}
	}
	close(tasks)
	for range workers {
		<-done
	}
	return results
}

// DiscoverFiles lists the *.gguf regular files directly inside dir, sorted.
func DiscoverFiles(dir string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("models directory is empty")
	}
	st, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("models path is not a directory: %s", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}
