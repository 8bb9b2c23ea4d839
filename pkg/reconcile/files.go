package reconcile

import (
	"path/filepath"
	"strings"
)

// AllowsFile reports whether the filename's extension is accepted. An empty
// allow-list accepts any extension.
func (a Assignment) AllowsFile(name string) bool {
	if len(a.AllowedFileTypes) == 0 {
		return true
	}
	ext := NormalizeExtension(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, allowed := range a.AllowedFileTypes {
		if NormalizeExtension(allowed) == ext {
			return true
		}
	}
	return false
}

// FitsSize reports whether size is within the assignment limit. A zero limit
// means unlimited.
func (a Assignment) FitsSize(size int64) bool {
	return a.MaxFileSize <= 0 || size <= a.MaxFileSize
}

// NormalizeExtension lower-cases an extension and strips the leading dot.
func NormalizeExtension(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}
