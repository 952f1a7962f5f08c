package protocutils

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// BuildURL joins base with the escaped segments of each element. Elements may
// contain slashes, every path segment is escaped on its own.
func BuildURL(base string, elems ...string) (u string, err error) {
	if base == "" {
		err = fmt.Errorf("base url is required")
		return
	}
	var parsed *url.URL
	if parsed, err = url.Parse(base); err != nil {
		return
	}
	joined := strings.TrimSuffix(parsed.Path, "/")
	for _, elem := range elems {
		for _, segment := range strings.Split(elem, "/") {
			if segment == "" {
				continue
			}
			joined += "/" + segment
		}
	}
	if joined == "" {
		joined = "/"
	}
	parsed.Path = joined
	parsed.RawPath = ""
	u = parsed.String()
	return
}

// ParentDir returns the parent of a slash separated remote path, "/" for
// entries at the root.
func ParentDir(remotePath string) string {
	return path.Dir(path.Clean("/" + remotePath))
}

// DirWithSlash returns the parent directory of remotePath with a trailing slash.
func DirWithSlash(remotePath string) string {
	dir := ParentDir(remotePath)
	if dir == "/" {
		return dir
	}
	return dir + "/"
}

// Ancestors lists the directories leading to dirPath, outermost first,
// dirPath included. The root itself is not listed.
func Ancestors(dirPath string) (dirs []string) {
	clean := path.Clean("/" + dirPath)
	if clean == "/" {
		return
	}
	current := ""
	for _, segment := range strings.Split(strings.TrimPrefix(clean, "/"), "/") {
		current += "/" + segment
		dirs = append(dirs, current)
	}
	return
}
