// Package testutil builds SCIP indexes for tests from annotated sources, so
// tests drive the real analyzer end to end without an external indexer.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/sourcegraph/scip/bindings/go/scip"
	"go.lsp.dev/uri"
	"google.golang.org/protobuf/proto"
)

// Project accumulates source files and their SCIP occurrences.
type Project struct {
	// Package is the package name used in symbol strings.
	Package string
	// Language is the SCIP document language, e.g. "csharp".
	Language string
	// EmbedText stores the sources inside the index instead of only on disk.
	EmbedText bool

	files    []*SourceFile
	external []*scip.SymbolInformation
}

// SourceFile is one document of a Project.
type SourceFile struct {
	project *Project
	path    string
	text    string
	lines   []string
	doc     *scip.Document
}

// SymbolInfo describes a defined symbol.
type SymbolInfo struct {
	Kind        scip.SymbolInformation_Kind
	DisplayName string
	// Signature is the declaration header, e.g. "public void Activate()".
	Signature string
	// Implements lists symbols this one implements, overrides or derives from.
	Implements []string
}

// NewProject creates an empty C# project whose symbols use the given package.
func NewProject(pkg string) *Project {
	return &Project{Package: pkg, Language: "csharp"}
}

// Symbol returns the full SCIP symbol for a descriptor path such as
// "App/Models/User#Activate().".
func (p *Project) Symbol(descriptors string) string {
	return "scip-dotnet nuget " + p.Package + " 1.0.0 " + descriptors
}

// File adds a source file. path uses forward slashes.
func (p *Project) File(path, text string) *SourceFile {
	f := &SourceFile{
		project: p,
		path:    path,
		text:    text,
		lines:   strings.Split(text, "\n"),
		doc: &scip.Document{
			RelativePath:     path,
			Language:         p.Language,
			PositionEncoding: scip.PositionEncoding_UTF16CodeUnitOffsetFromLineStart,
		},
	}
	p.files = append(p.files, f)
	return f
}

// External records information for a symbol defined outside the project.
func (p *Project) External(symbol string, info SymbolInfo) *Project {
	p.external = append(p.external, symbolInformation(symbol, info))
	return p
}

// Path returns the file's relative path.
func (f *SourceFile) Path() string { return f.path }

// Text returns the file's source text.
func (f *SourceFile) Text() string { return f.text }

// Def records the definition of symbol at the nth (1-based) whole-word
// occurrence of token. Callables and types get an enclosing range spanning
// their braces.
func (f *SourceFile) Def(symbol, token string, nth int, info SymbolInfo) *SourceFile {
	line, col := f.find(token, nth)
	occ := &scip.Occurrence{
		Range:       []int32{int32(line), int32(col), int32(col + len(token))},
		Symbol:      symbol,
		SymbolRoles: int32(scip.SymbolRole_Definition),
	}
	if hasBody(info.Kind) {
		occ.EnclosingRange = f.declarationRange(line, col+len(token))
	}
	f.doc.Occurrences = append(f.doc.Occurrences, occ)
	f.doc.Symbols = append(f.doc.Symbols, symbolInformation(symbol, info))
	return f
}

// Ref records a read reference to symbol at the nth occurrence of token.
func (f *SourceFile) Ref(symbol, token string, nth int) *SourceFile {
	return f.occurrence(symbol, token, nth, int32(scip.SymbolRole_ReadAccess))
}

// Write records a write reference to symbol at the nth occurrence of token.
func (f *SourceFile) Write(symbol, token string, nth int) *SourceFile {
	return f.occurrence(symbol, token, nth, int32(scip.SymbolRole_WriteAccess))
}

// Generated records a compiler-generated reference at the nth occurrence of token.
func (f *SourceFile) Generated(symbol, token string, nth int) *SourceFile {
	return f.occurrence(symbol, token, nth, int32(scip.SymbolRole_Generated))
}

// Diagnostic attaches a diagnostic to the occurrence starting at the nth
// occurrence of token. The occurrence must already be recorded.
func (f *SourceFile) Diagnostic(token string, nth int, severity scip.Severity, code, message string) *SourceFile {
	line, col := f.find(token, nth)
	for _, occ := range f.doc.Occurrences {
		if occ.Range[0] == int32(line) && occ.Range[1] == int32(col) {
			occ.Diagnostics = append(occ.Diagnostics, &scip.Diagnostic{
				Severity: severity,
				Code:     code,
				Message:  message,
				Source:   "roslyn",
			})
			return f
		}
	}
	panic(fmt.Sprintf("testutil: no occurrence at %q #%d in %s", token, nth, f.path))
}

func (f *SourceFile) occurrence(symbol, token string, nth int, roles int32) *SourceFile {
	line, col := f.find(token, nth)
	f.doc.Occurrences = append(f.doc.Occurrences, &scip.Occurrence{
		Range:       []int32{int32(line), int32(col), int32(col + len(token))},
		Symbol:      symbol,
		SymbolRoles: roles,
	})
	return f
}

// find locates the nth whole-word occurrence of token. Fixture sources are
// ASCII, so byte columns equal UTF-16 columns.
func (f *SourceFile) find(token string, nth int) (int, int) {
	seen := 0
	for line, text := range f.lines {
		for from := 0; ; {
			k := strings.Index(text[from:], token)
			if k < 0 {
				break
			}
			k += from
			end := k + len(token)
			if !isWordChar(text, k-1) && !isWordChar(text, end) {
				seen++
				if seen == nth {
					return line, k
				}
			}
			from = end
		}
	}
	panic(fmt.Sprintf("testutil: token %q #%d not found in %s", token, nth, f.path))
}

// declarationRange spans from the start of the declaring line to the brace
// closing the body, or to the terminating semicolon for bodiless members.
func (f *SourceFile) declarationRange(line, col int) []int32 {
	startCol := len(f.lines[line]) - len(strings.TrimLeft(f.lines[line], " \t"))
	depth := 0
	for l := line; l < len(f.lines); l++ {
		text := f.lines[l]
		from := 0
		if l == line {
			from = col
		}
		for c := from; c < len(text); c++ {
			switch text[c] {
			case ';':
				if depth == 0 {
					return []int32{int32(line), int32(startCol), int32(l), int32(c + 1)}
				}
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return []int32{int32(line), int32(startCol), int32(l), int32(c + 1)}
				}
			}
		}
	}
	return nil
}

func hasBody(kind scip.SymbolInformation_Kind) bool {
	switch kind {
	case scip.SymbolInformation_Method, scip.SymbolInformation_Constructor,
		scip.SymbolInformation_Class, scip.SymbolInformation_Interface, scip.SymbolInformation_Struct:
		return true
	}
	return false
}

func isWordChar(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return false
	}
	c := s[i]
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func symbolInformation(symbol string, info SymbolInfo) *scip.SymbolInformation {
	si := &scip.SymbolInformation{
		Symbol:      symbol,
		Kind:        info.Kind,
		DisplayName: info.DisplayName,
	}
	if info.Signature != "" {
		si.SignatureDocumentation = &scip.Document{Language: "csharp", Text: info.Signature}
	}
	for _, target := range info.Implements {
		si.Relationships = append(si.Relationships, &scip.Relationship{Symbol: target, IsImplementation: true})
	}
	return si
}

// Index assembles the SCIP index for a project rooted at root.
func (p *Project) Index(root string) *scip.Index {
	index := &scip.Index{
		Metadata: &scip.Metadata{
			Version:              scip.ProtocolVersion_UnspecifiedProtocolVersion,
			ToolInfo:             &scip.ToolInfo{Name: "scip-dotnet", Version: "0.2.12"},
			ProjectRoot:          string(uri.File(root)),
			TextDocumentEncoding: scip.TextEncoding_UTF8,
		},
		ExternalSymbols: p.external,
	}
	files := append([]*SourceFile(nil), p.files...)
	sort.Slice(files, func(i, j int) bool { return files[i].path < files[j].path })
	for _, f := range files {
		doc := proto.Clone(f.doc).(*scip.Document)
		if p.EmbedText {
			doc.Text = f.text
		}
		index.Documents = append(index.Documents, doc)
	}
	return index
}

// FixtureContext holds information about a project written to disk.
type FixtureContext struct {
	// Root is the absolute path to the workspace directory
	Root string

	// SCIPPath is the path to the SCIP index file
	SCIPPath string

	// Project is the project the fixture was written from
	Project *Project
}

// WriteProject writes the project's sources and its index under
// dir/.scip/index.scip, failing the test on error.
func WriteProject(t testing.TB, dir string, p *Project) *FixtureContext {
	t.Helper()

	for _, f := range p.files {
		path := filepath.Join(dir, filepath.FromSlash(f.path))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create source directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(f.text), 0o644); err != nil {
			t.Fatalf("Failed to write source %s: %v", f.path, err)
		}
	}

	data, err := proto.Marshal(p.Index(dir))
	if err != nil {
		t.Fatalf("Failed to marshal SCIP index: %v", err)
	}
	scipPath := filepath.Join(dir, ".scip", "index.scip")
	if err := os.MkdirAll(filepath.Dir(scipPath), 0o755); err != nil {
		t.Fatalf("Failed to create .scip directory: %v", err)
	}
	if err := os.WriteFile(scipPath, data, 0o644); err != nil {
		t.Fatalf("Failed to write SCIP index: %v", err)
	}

	return &FixtureContext{Root: dir, SCIPPath: scipPath, Project: p}
}

// ReadFile returns the current on-disk content of a workspace file.
func (f *FixtureContext) ReadFile(t testing.TB, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.Root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("Failed to read %s: %v", rel, err)
	}
	return string(data)
}

// Symbol is shorthand for f.Project.Symbol.
func (f *FixtureContext) Symbol(descriptors string) string {
	return f.Project.Symbol(descriptors)
}
