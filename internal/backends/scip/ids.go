package scip

import (
	"fmt"
	"strings"
)

// DescriptorSuffix classifies one step of a SCIP descriptor path.
type DescriptorSuffix int

const (
	SuffixNamespace DescriptorSuffix = iota
	SuffixType
	SuffixTerm
	SuffixMethod
	SuffixTypeParameter
	SuffixParameter
	SuffixMeta
	SuffixMacro
)

// Descriptor is one step of a symbol path, e.g. Activate(). or UserService#.
type Descriptor struct {
	Name          string
	Disambiguator string
	Suffix        DescriptorSuffix
	// Text is the descriptor exactly as written in the symbol string.
	Text string
}

// SCIPIdentifier represents a parsed SCIP symbol identifier
// SCIP format: <scheme> <manager> <package> <version> <descriptors>
// Example: scip-dotnet nuget App 1.0.0 App/Services/UserService#Activate().
type SCIPIdentifier struct {
	Scheme      string
	Manager     string
	Package     string
	Version     string
	Descriptors []Descriptor
	Raw         string
	// prefixLen is the length of the scheme/package header including its trailing space.
	prefixLen int
}

// ParseSCIPIdentifier parses a SCIP symbol identifier. Double spaces inside the
// header fields escape a literal space; descriptor names may be backtick-quoted.
//
// Examples:
//
//	scip-dotnet nuget App 1.0.0 App/UserService#GetById().
//	scip-go gomod example.com/shop a6af7cfb2eff `example.com/shop/api`/NewServer().
//	scip-java maven com.google.guava guava 31.0 ImmutableList#
func ParseSCIPIdentifier(id string) (*SCIPIdentifier, error) {
	if id == "" {
		return nil, fmt.Errorf("empty SCIP identifier")
	}
	if IsLocalSymbol(id) {
		return nil, fmt.Errorf("local symbol has no descriptors: %s", id)
	}

	fields := make([]string, 0, 4)
	pos := 0
	for len(fields) < 4 {
		field, next, ok := readHeaderField(id, pos)
		if !ok {
			return nil, fmt.Errorf("invalid SCIP identifier format: %s", id)
		}
		fields = append(fields, field)
		pos = next
	}

	descs, err := parseDescriptors(id[pos:])
	if err != nil {
		return nil, fmt.Errorf("invalid SCIP identifier %q: %w", id, err)
	}

	return &SCIPIdentifier{
		Scheme:      fields[0],
		Manager:     unplaceholder(fields[1]),
		Package:     unplaceholder(fields[2]),
		Version:     unplaceholder(fields[3]),
		Descriptors: descs,
		Raw:         id,
		prefixLen:   pos,
	}, nil
}

// IsLocalSymbol reports whether id is document-local, e.g. "local 12".
func IsLocalSymbol(id string) bool {
	return strings.HasPrefix(id, "local ")
}

func readHeaderField(s string, pos int) (string, int, bool) {
	var b strings.Builder
	for i := pos; i < len(s); i++ {
		if s[i] != ' ' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == ' ' {
			b.WriteByte(' ')
			i++
			continue
		}
		return b.String(), i + 1, true
	}
	return "", 0, false
}

func unplaceholder(s string) string {
	if s == "." {
		return ""
	}
	return s
}

func parseDescriptors(s string) ([]Descriptor, error) {
	var out []Descriptor
	for i := 0; i < len(s); {
		start := i
		switch s[i] {
		case '[':
			name, j, err := readName(s, i+1)
			if err != nil {
				return nil, err
			}
			if j >= len(s) || s[j] != ']' {
				return nil, fmt.Errorf("unterminated type parameter at %d", i)
			}
			i = j + 1
			out = append(out, Descriptor{Name: name, Suffix: SuffixTypeParameter, Text: s[start:i]})
			continue
		case '(':
			name, j, err := readName(s, i+1)
			if err != nil {
				return nil, err
			}
			if j >= len(s) || s[j] != ')' {
				return nil, fmt.Errorf("unterminated parameter at %d", i)
			}
			i = j + 1
			out = append(out, Descriptor{Name: name, Suffix: SuffixParameter, Text: s[start:i]})
			continue
		}

		name, j, err := readName(s, i)
		if err != nil {
			return nil, err
		}
		if j >= len(s) {
			return nil, fmt.Errorf("descriptor %q has no suffix", name)
		}
		d := Descriptor{Name: name}
		switch s[j] {
		case '/':
			d.Suffix = SuffixNamespace
			j++
		case '#':
			d.Suffix = SuffixType
			j++
		case '.':
			d.Suffix = SuffixTerm
			j++
		case ':':
			d.Suffix = SuffixMeta
			j++
		case '!':
			d.Suffix = SuffixMacro
			j++
		case '(':
			end := strings.IndexByte(s[j:], ')')
			if end < 0 || j+end+1 >= len(s) || s[j+end+1] != '.' {
				return nil, fmt.Errorf("malformed method descriptor %q", name)
			}
			d.Suffix = SuffixMethod
			d.Disambiguator = s[j+1 : j+end]
			j += end + 2
		default:
			return nil, fmt.Errorf("unexpected %q after %q", s[j], name)
		}
		d.Text = s[start:j]
		out = append(out, d)
		i = j
	}
	return out, nil
}

// readName reads a simple or backtick-escaped name starting at i.
func readName(s string, i int) (string, int, error) {
	if i < len(s) && s[i] == '`' {
		var b strings.Builder
		for j := i + 1; j < len(s); j++ {
			if s[j] != '`' {
				b.WriteByte(s[j])
				continue
			}
			if j+1 < len(s) && s[j+1] == '`' {
				b.WriteByte('`')
				j++
				continue
			}
			return b.String(), j + 1, nil
		}
		return "", 0, fmt.Errorf("unterminated escaped name at %d", i)
	}
	j := i
	for j < len(s) && isSimpleNameChar(s[j]) {
		j++
	}
	return s[i:j], j, nil
}

func isSimpleNameChar(c byte) bool {
	return c == '_' || c == '+' || c == '-' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// Last returns the final descriptor, or nil when there is none.
func (s *SCIPIdentifier) Last() *Descriptor {
	if len(s.Descriptors) == 0 {
		return nil
	}
	return &s.Descriptors[len(s.Descriptors)-1]
}

// GetSimpleName extracts the simple name from the last descriptor
// Examples:
//   - "App/UserService#GetById()." -> "GetById"
//   - "`example.com/shop/api`/Server#" -> "Server"
func (s *SCIPIdentifier) GetSimpleName() string {
	if d := s.Last(); d != nil {
		return d.Name
	}
	return ""
}

// Namespace joins the leading namespace descriptors with dots.
// Go-style import paths (`a/b/c`) are kept whole.
func (s *SCIPIdentifier) Namespace() string {
	var parts []string
	for _, d := range s.Descriptors {
		if d.Suffix != SuffixNamespace {
			break
		}
		parts = append(parts, d.Name)
	}
	return strings.Join(parts, ".")
}

// Parent returns the symbol string of the enclosing symbol, "" at the top.
func (s *SCIPIdentifier) Parent() string {
	if len(s.Descriptors) <= 1 {
		return ""
	}
	last := s.Last()
	return s.Raw[:len(s.Raw)-len(last.Text)]
}

// WithLastName returns the symbol string with the final descriptor renamed.
func (s *SCIPIdentifier) WithLastName(name string) string {
	last := s.Last()
	if last == nil {
		return s.Raw
	}
	renamed := *last
	renamed.Name = name
	return s.Raw[:len(s.Raw)-len(last.Text)] + renamed.Format()
}

// Format renders the descriptor in SCIP syntax.
func (d Descriptor) Format() string {
	name := escapeName(d.Name)
	switch d.Suffix {
	case SuffixNamespace:
		return name + "/"
	case SuffixType:
		return name + "#"
	case SuffixTerm:
		return name + "."
	case SuffixMethod:
		return name + "(" + d.Disambiguator + ")."
	case SuffixTypeParameter:
		return "[" + name + "]"
	case SuffixParameter:
		return "(" + name + ")"
	case SuffixMeta:
		return name + ":"
	case SuffixMacro:
		return name + "!"
	}
	return name
}

func escapeName(name string) string {
	for i := 0; i < len(name); i++ {
		if !isSimpleNameChar(name[i]) {
			return "`" + strings.ReplaceAll(name, "`", "``") + "`"
		}
	}
	return name
}

// GetLanguage extracts the language from the SCIP scheme
// Examples: "scip-typescript" -> "typescript", "scip-go" -> "go"
func (s *SCIPIdentifier) GetLanguage() string {
	return strings.TrimPrefix(s.Scheme, "scip-")
}
