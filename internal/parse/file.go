package parse

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// DefaultMaxFileSize bounds the decompressed size of a single capture.
const DefaultMaxFileSize = 64 << 20

// ErrTooLarge is returned when a capture exceeds the configured size limit.
var ErrTooLarge = errors.New("session log too large")

// ReadFile reads a capture, transparently decompressing .gz and .zst files.
// maxSize <= 0 means DefaultMaxFileSize.
func ReadFile(path string, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("zstd %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}

	return readLimited(r, maxSize)
}

func readLimited(r io.Reader, maxSize int64) ([]byte, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, err
	}
	if n > maxSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxSize)
	}
	return buf.Bytes(), nil
}

// ParseFile parses the capture at filePath. The session key and the path
// metadata are derived from filePath relative to root.
func ParseFile(filePath, root string, opts Options, maxSize int64) (*ParseResult, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, err
	}

	raw, err := ReadFile(filePath, maxSize)
	if err != nil {
		return nil, err
	}

	key := RelKey(root, filePath)
	opts.Path = opts.Path.Merge(MetaFromKey(key))

	result := Session(raw, opts)
	result.Meta.SessionKey = SessionKey(key)
	result.Meta.FilePath = filePath
	result.Meta.Mtime = info.ModTime()
	result.Meta.Size = info.Size()
	return result, nil
}
