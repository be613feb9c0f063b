package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/JonMunkholm/dataprep/internal/core"
)

// collectInputs expands the arguments into a file list. Directories are
// read one level deep with sub-directories ignored; every regular file is
// kept so unsupported ones are reported as skipped rather than silently
// dropped.
func collectInputs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("reading directory %s: %w", arg, err)
		}
		var found []string
		for _, e := range entries {
			if e.IsDir() || !e.Type().IsRegular() {
				continue
			}
			found = append(found, filepath.Join(arg, e.Name()))
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	return paths, nil
}

// loadFile reads one path into an UploadedFile. Oversized files are returned
// without data so the caller can report them per file.
func loadFile(path string, maxSize int64) (core.UploadedFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return core.UploadedFile{}, err
	}
	name := filepath.Base(path)
	if maxSize > 0 && info.Size() > maxSize {
		f := core.NewUploadedFile(name, nil)
		f.Size = info.Size()
		return f, fmt.Errorf("%w: %d bytes exceeds %d", core.ErrFileTooLarge, info.Size(), maxSize)
	}
	if !core.NewUploadedFile(name, nil).Supported() {
		// no need to read what will be skipped
		f := core.NewUploadedFile(name, nil)
		f.Size = info.Size()
		return f, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return core.UploadedFile{}, fmt.Errorf("read %s: %w", path, err)
	}
	return core.NewUploadedFile(name, data), nil
}

// outputPath picks a destination in dir that no earlier file of this run
// used: a.csv and a.xlsx both converting to CSV become a.csv and a-1.csv.
func outputPath(dir, name string, used map[string]bool) string {
	ext := filepath.Ext(name)
	stem := name[:len(name)-len(ext)]
	candidate := name
	for i := 1; used[candidate]; i++ {
		candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
	}
	used[candidate] = true
	return filepath.Join(dir, candidate)
}
