package scip

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Snapshot is an immutable workspace backed by a SCIP index and the text of
// its documents. It implements analyzer.Workspace.
type Snapshot struct {
	root      string
	indexPath string
	index     *SCIPIndex
	texts     map[string]string
	lines     map[string][]string
	files     []string
	id        string
}

func newSnapshot(root, indexPath string, index *SCIPIndex, texts map[string]string) *Snapshot {
	s := &Snapshot{
		root:      root,
		indexPath: indexPath,
		index:     index,
		texts:     texts,
		lines:     make(map[string][]string, len(texts)),
		files:     make([]string, 0, len(index.Documents)),
	}
	for _, doc := range index.Documents {
		s.files = append(s.files, doc.RelativePath)
	}
	sort.Strings(s.files)

	h := xxhash.New()
	for _, f := range s.files {
		text, ok := texts[f]
		if !ok {
			continue
		}
		s.lines[f] = splitLines(text)
		_, _ = h.WriteString(f)
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(text)
		_, _ = h.Write([]byte{0})
	}
	s.id = strconv.FormatUint(h.Sum64(), 16)
	return s
}

// ID fingerprints the document texts.
func (s *Snapshot) ID() string { return s.id }

// Root is the absolute workspace directory.
func (s *Snapshot) Root() string { return s.root }

// Files lists the indexed documents in sorted order.
func (s *Snapshot) Files() []string {
	out := make([]string, len(s.files))
	copy(out, s.files)
	return out
}

// Text returns the content of a document.
func (s *Snapshot) Text(path string) (string, bool) {
	t, ok := s.texts[path]
	return t, ok
}

// Index exposes the underlying SCIP index. Callers must not modify it.
func (s *Snapshot) Index() *SCIPIndex { return s.index }

// IndexPath is where the index was loaded from.
func (s *Snapshot) IndexPath() string { return s.indexPath }

// line returns the 0-based line of a document without its line terminator.
func (s *Snapshot) line(path string, n int) (string, bool) {
	lines, ok := s.lines[path]
	if !ok || n < 0 || n >= len(lines) {
		return "", false
	}
	return strings.TrimSuffix(lines[n], "\r"), true
}
