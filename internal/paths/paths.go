// Package paths converts between the path forms symnav accepts from users
// and tools (absolute paths, file URIs, workspace-relative paths) and the
// slash-separated workspace-relative form used everywhere else.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.lsp.dev/uri"
)

// CanonicalizePath converts an absolute path to a workspace-relative
// canonical path. Symlinks are resolved and separators become forward
// slashes.
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		// If the file doesn't exist yet, use the path as-is
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if os.IsNotExist(err) {
			rootResolved = root
		} else {
			return "", err
		}
	}

	relativePath, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(relativePath), nil
}

// IsWithinRepo checks if a path is within the workspace root
func IsWithinRepo(path string, root string) bool {
	canonical, err := CanonicalizePath(path, root)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// NormalizePath converts OS separators to forward slashes.
func NormalizePath(path string) string {
	return filepath.ToSlash(path)
}

// JoinRepoPath joins a workspace root with a canonical path
func JoinRepoPath(root string, canonicalPath string) string {
	normalizedPath := strings.ReplaceAll(canonicalPath, "\\", "/")
	parts := strings.Split(normalizedPath, "/")
	return filepath.Join(append([]string{root}, parts...)...)
}

// WorkspaceFile converts a file argument to the workspace-relative form.
// It accepts file URIs, absolute paths inside root and relative paths,
// which are returned normalized but otherwise unchanged so they can still
// act as path suffixes.
func WorkspaceFile(arg string, root string) (string, error) {
	if arg == "" {
		return "", nil
	}
	if strings.HasPrefix(arg, string(uri.FileScheme)+"://") {
		arg = uri.New(arg).Filename()
	} else if strings.Contains(arg, "://") {
		return "", fmt.Errorf("unsupported URI %q: only file URIs are accepted", arg)
	}
	if !filepath.IsAbs(arg) {
		return NormalizePath(filepath.Clean(arg)), nil
	}
	if !IsWithinRepo(arg, root) {
		return "", fmt.Errorf("%s is outside the workspace %s", arg, root)
	}
	return CanonicalizePath(arg, root)
}

// FileURI returns the file URI of a workspace-relative path.
func FileURI(root string, canonicalPath string) string {
	return string(uri.File(JoinRepoPath(root, canonicalPath)))
}
