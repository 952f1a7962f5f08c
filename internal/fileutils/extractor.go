// Package fileutils splits file names and derives their collision variants.
package fileutils

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var ErrEmptyPath = errors.New("file path is required")

// ExtractFileParts extracts the prefix, file name, and extension (without
// the dot) from the path in the format <prefix_path>/<file_name>.<ext>.
// The extension is empty for dot-files and names without one.
func ExtractFileParts(filePath string) (prefix, fileName, fileExt string, err error) {
	if filePath == "" {
		err = ErrEmptyPath
		return
	}
	dir := filepath.Dir(filePath)
	fileName, fileExt = SplitName(filepath.Base(filePath))
	fileExt = strings.TrimPrefix(fileExt, ".")
	if dir != "." {
		prefix = dir
	}
	return
}

// SplitName splits name at its last dot. The extension keeps the dot and
// is empty for dot-files such as ".bashrc".
func SplitName(name string) (base, ext string) {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 {
		return name, ""
	}
	return name[:idx], name[idx:]
}

// CollisionName returns the n-th alternative of name, the number placed
// before the last extension: "photo.jpg" becomes "photo (n).jpg".
func CollisionName(name string, n int) string {
	base, ext := SplitName(name)
	return fmt.Sprintf("%s (%d)%s", base, n, ext)
}
