package builder

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Relativize rewrites p relative to root when p is absolute and lies under
// root. Anything else is returned unchanged.
func Relativize(root, p string) string {
	if p == "" || root == "" || !filepath.IsAbs(p) {
		return p
	}
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(p))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return rel
}

// ResolvePath returns the absolute form of p, resolving relative paths
// against root.
func ResolvePath(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// JobName is the canonical zero-padded job token.
func JobName(number int) string {
	return fmt.Sprintf("job%03d", number)
}

// OutputDir is the project-relative output directory of a job, always
// with a trailing separator: RELION writes manifests using the exact
// string it is given.
func OutputDir(stage string, number int) string {
	return stage + "/" + JobName(number) + "/"
}

func withTrailingSlash(dir string) string {
	if strings.HasSuffix(dir, "/") {
		return dir
	}
	return dir + "/"
}

func hasGlob(p string) bool {
	return strings.ContainsAny(p, "*?[")
}

func hasExt(p string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	lower := strings.ToLower(p)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
