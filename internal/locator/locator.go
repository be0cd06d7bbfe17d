// Package locator resolves free-text symbol queries against a declaration
// index.
package locator

import (
	"fmt"
	"sort"
	"strings"

	"symnav/internal/errors"
	"symnav/internal/index"

	"github.com/hbollon/go-edlib"
)

// minSimilarity is the Jaro-Winkler score a name needs to be suggested.
const minSimilarity = 0.75

// Query is a symbol name plus optional filters. Empty filters match anything.
type Query struct {
	Name string `json:"name"`
	// Kind is a case-insensitive kind name; unknown values do not filter.
	Kind string `json:"kind,omitempty"`
	// Namespace is the dotted path of the containing namespace.
	Namespace string `json:"namespace,omitempty"`
	// File matches the end of the declaring file's path.
	File string `json:"file,omitempty"`
}

func (q Query) String() string {
	var b strings.Builder
	b.WriteString(q.Name)
	if q.Kind != "" {
		fmt.Fprintf(&b, " kind=%s", q.Kind)
	}
	if q.Namespace != "" {
		fmt.Fprintf(&b, " namespace=%s", q.Namespace)
	}
	if q.File != "" {
		fmt.Fprintf(&b, " file=%s", q.File)
	}
	return b.String()
}

// Resolve returns every declaration whose name equals q.Name, ignoring case,
// and which passes each supplied filter, in index order. Matching is never
// fuzzy; an empty result means not found.
func Resolve(idx *index.Index, q Query) []*index.Declaration {
	name := strings.TrimSpace(q.Name)
	if idx == nil || name == "" {
		return nil
	}

	kind, filterKind := index.ParseKind(q.Kind)
	file := normalizePath(q.File)

	var out []*index.Declaration
	for _, d := range idx.ByName(name) {
		if filterKind && d.Kind != kind {
			continue
		}
		if q.Namespace != "" && !strings.EqualFold(d.Namespace, q.Namespace) {
			continue
		}
		if file != "" && !strings.HasSuffix(normalizePath(d.Location.Path), file) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Suggest returns up to n names similar to name, best first.
func Suggest(idx *index.Index, name string, n int) []string {
	if idx == nil || n <= 0 || name == "" {
		return nil
	}
	type scored struct {
		name  string
		score float32
	}
	needle := strings.ToLower(name)
	var candidates []scored
	for _, cand := range idx.Names() {
		lower := strings.ToLower(cand)
		if lower == needle {
			continue
		}
		score, err := edlib.StringsSimilarity(needle, lower, edlib.JaroWinkler)
		if err != nil || score < minSimilarity {
			continue
		}
		candidates = append(candidates, scored{cand, score})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].name < candidates[j].name
	})

	out := make([]string, 0, n)
	for _, c := range candidates {
		if len(out) == n {
			break
		}
		out = append(out, c.name)
	}
	return out
}

// NotFound builds the SYMBOL_NOT_FOUND error for q. When the name exists but
// the filters excluded it, the suggestions list the excluded declarations;
// otherwise they are similar names.
func NotFound(idx *index.Index, q Query) *errors.NavError {
	details := errors.NotFoundDetails{
		Query:     q.Name,
		Kind:      q.Kind,
		Namespace: q.Namespace,
		File:      q.File,
	}
	if idx != nil {
		if named := idx.ByName(q.Name); len(named) > 0 {
			for _, d := range named {
				details.Suggestions = append(details.Suggestions,
					fmt.Sprintf("%s %s (%s)", d.Kind, d.QualifiedName, d.Location.Path))
			}
		} else {
			details.Suggestions = Suggest(idx, q.Name, 5)
		}
	}

	msg := fmt.Sprintf("no declaration matches %q", q.String())
	if len(details.Suggestions) > 0 {
		msg += "; did you mean " + strings.Join(details.Suggestions, ", ") + "?"
	}
	return errors.Newf(errors.SymbolNotFound, "%s", msg).WithDetails(details)
}

// normalizePath lowercases and uses forward slashes.
func normalizePath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	return strings.ToLower(strings.TrimPrefix(p, "./"))
}
