package index

import (
	"errors"
	"io/fs"
	"path/filepath"

	ignore "github.com/sabhiram/go-gitignore"
)

// Matcher reports whether a workspace-relative path is ignored.
type Matcher interface {
	MatchesPath(path string) bool
}

// LoadGitignore compiles root/.gitignore. A missing file yields (nil, nil).
func LoadGitignore(root string) (Matcher, error) {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return gi, nil
}
