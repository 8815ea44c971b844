package scan

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Zuo-Peng/sesslog/internal/parse"
)

type FileInfo struct {
	Path  string
	Key   string // session key: path below the root, without extensions
	Mtime int64
	Size  int64
}

// ScanRoot walks root and returns the capture files whose extension is in
// exts (any file when exts is empty), sorted by path. skipDir, typically the
// export output directory, is not descended into. A missing root yields no
// files.
func ScanRoot(root string, exts []string, skipDir string) ([]FileInfo, error) {
	want := make(map[string]bool, len(exts))
	for _, e := range exts {
		want[strings.ToLower(e)] = true
	}
	skipDir = filepath.Clean(skipDir)

	var files []FileInfo
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			if path != root && (path == skipDir || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if len(want) > 0 && !want[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, FileInfo{
			Path:  path,
			Key:   parse.SessionKey(parse.RelKey(root, path)),
			Mtime: info.ModTime().Unix(),
			Size:  info.Size(),
		})
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// Stat describes a single file the way ScanRoot would.
func Stat(root, path string) (FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		Path:  path,
		Key:   parse.SessionKey(parse.RelKey(root, path)),
		Mtime: info.ModTime().Unix(),
		Size:  info.Size(),
	}, nil
}
