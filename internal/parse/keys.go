package parse

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/Zuo-Peng/sesslog/internal/enrich"
)

// RelKey returns filePath relative to root with forward slashes, the form
// object keys take in the log bucket.
func RelKey(root, filePath string) string {
	rel, err := filepath.Rel(root, filePath)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filePath
	}
	return filepath.ToSlash(rel)
}

// SessionKey is the object key without its extensions.
func SessionKey(key string) string {
	dir, base := path.Split(key)
	return dir + TrimExt(base)
}

// TrimExt strips the capture extension, including a compression suffix:
// "alice-0f1e.log.gz" becomes "alice-0f1e".
func TrimExt(base string) string {
	switch strings.ToLower(path.Ext(base)) {
	case ".gz", ".zst":
		base = strings.TrimSuffix(base, path.Ext(base))
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// MetaFromKey derives account, user and session id from an object key of the
// form "<account>/.../<user>-<session>.log". The account is the first path
// segment when it is all digits; the file name is split on its last hyphen.
// Fields that cannot be derived stay empty.
func MetaFromKey(key string) enrich.Metadata {
	var md enrich.Metadata

	parts := strings.Split(key, "/")
	if len(parts) > 1 && isDigits(parts[0]) {
		md.AccountID = parts[0]
	}

	base := TrimExt(path.Base(key))
	if i := strings.LastIndex(base, "-"); i >= 0 {
		md.User = base[:i]
		md.SessionID = base[i+1:]
	} else {
		md.User = base
	}
	return md
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
