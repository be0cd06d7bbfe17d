// Package analyzer defines the boundary to the semantic analyzer that owns
// parsing, binding, and diagnostics. Everything above this package works in
// terms of these types and never touches a concrete backend.
package analyzer

import (
	"context"
	"fmt"
)

// SymbolID is the analyzer's stable identity for a symbol. Two declarations
// are the same entity iff their IDs are equal.
type SymbolID string

// Location is a 1-based source span. Path is workspace-relative with
// forward slashes.
type Location struct {
	Path      string `json:"path"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"endLine,omitempty"`
	EndColumn int    `json:"endColumn,omitempty"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.Path, l.Line, l.Column)
}

// Contains reports whether the 1-based position (line, col) lies inside l.
func (l Location) Contains(line, col int) bool {
	endLine, endCol := l.EndLine, l.EndColumn
	if endLine == 0 {
		endLine, endCol = l.Line, l.Column
	}
	if line < l.Line || line > endLine {
		return false
	}
	if line == l.Line && col < l.Column {
		return false
	}
	if line == endLine && col > endCol {
		return false
	}
	return true
}

// SymbolKind is the analyzer-level kind of a symbol.
type SymbolKind int

const (
	KindUnknown SymbolKind = iota
	KindNamespace
	KindClass
	KindInterface
	KindStruct
	KindEnum
	KindRecord
	KindDelegate
	KindMethod
	KindConstructor
	KindFunction
	KindProperty
	KindField
	KindEvent
	KindEnumMember
	KindParameter
	KindTypeParameter
	KindLocal
)

var kindNames = [...]string{
	KindUnknown:       "unknown",
	KindNamespace:     "namespace",
	KindClass:         "class",
	KindInterface:     "interface",
	KindStruct:        "struct",
	KindEnum:          "enum",
	KindRecord:        "record",
	KindDelegate:      "delegate",
	KindMethod:        "method",
	KindConstructor:   "constructor",
	KindFunction:      "function",
	KindProperty:      "property",
	KindField:         "field",
	KindEvent:         "event",
	KindEnumMember:    "enumMember",
	KindParameter:     "parameter",
	KindTypeParameter: "typeParameter",
	KindLocal:         "local",
}

func (k SymbolKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// IsType reports whether k names a type declaration.
func (k SymbolKind) IsType() bool {
	switch k {
	case KindClass, KindInterface, KindStruct, KindEnum, KindRecord, KindDelegate:
		return true
	}
	return false
}

// IsCallable reports whether k can appear as the target of a call.
func (k SymbolKind) IsCallable() bool {
	return k == KindMethod || k == KindConstructor || k == KindFunction
}

// RawSymbol is a symbol as reported by the analyzer, before indexing.
type RawSymbol struct {
	ID          SymbolID
	Name        string
	Kind        SymbolKind
	ContainerID SymbolID
	// Namespace is the dotted path of the enclosing namespace, "" for global.
	Namespace string
	// Visibility is the declared accessibility keyword(s), e.g. "protected internal".
	Visibility string
	Modifiers  []string
	Signature  string
	// BaseType is the immediate base class; Interfaces are declared interfaces.
	BaseType   SymbolID
	Interfaces []SymbolID
	// Location is nil for symbols with no source (metadata, synthesized).
	Location *Location
	Implicit bool
}

// HasModifier reports whether the symbol carries modifier m.
func (s *RawSymbol) HasModifier(m string) bool {
	for _, x := range s.Modifiers {
		if x == m {
			return true
		}
	}
	return false
}

// RawLocation is a reference site reported by the analyzer.
type RawLocation struct {
	Location Location
	Symbol   SymbolID
	Implicit bool
}

// Unit is one compilation unit of a workspace.
type Unit struct {
	Name  string
	Files []string
}

// Severity orders diagnostics; lower is more severe.
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInfo
	SeverityHint
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	case SeverityHint:
		return "hint"
	}
	return "unknown"
}

// ParseSeverity accepts error, warning, info, hint. ok is false otherwise.
func ParseSeverity(s string) (Severity, bool) {
	switch s {
	case "error":
		return SeverityError, true
	case "warning", "warn":
		return SeverityWarning, true
	case "info", "information":
		return SeverityInfo, true
	case "hint":
		return SeverityHint, true
	}
	return 0, false
}

// RawDiagnostic is an analyzer diagnostic.
type RawDiagnostic struct {
	Location Location `json:"location"`
	Severity Severity `json:"-"`
	Level    string   `json:"severity"`
	Code     string   `json:"code,omitempty"`
	Message  string   `json:"message"`
	Source   string   `json:"source,omitempty"`
}

// DiagnosticFilter narrows Diagnostics. Zero values mean no filter.
type DiagnosticFilter struct {
	// File matches by case-insensitive path suffix.
	File string
	// MinSeverity keeps diagnostics at least this severe.
	MinSeverity Severity
}

// Workspace is an immutable snapshot of the analyzed sources.
type Workspace interface {
	// ID fingerprints the snapshot contents. Equal IDs mean equal text.
	ID() string
	// Root is the absolute workspace directory.
	Root() string
	// Files lists workspace-relative paths in sorted order.
	Files() []string
	// Text returns the content of a workspace file.
	Text(path string) (string, bool)
}

// SyntaxNode is a node of a method body syntax tree.
type SyntaxNode interface {
	Type() string
	IsCall() bool
	Location() Location
	Children() []SyntaxNode
}

// Analyzer is the semantic model. All methods are safe for concurrent use
// with the same Workspace.
type Analyzer interface {
	LoadWorkspace(ctx context.Context, path string) (Workspace, error)
	CompilationUnits(ctx context.Context, ws Workspace) ([]Unit, error)
	DeclaredSymbols(ctx context.Context, ws Workspace, unit Unit) ([]RawSymbol, error)
	FindReferences(ctx context.Context, ws Workspace, symbol SymbolID) ([]RawLocation, error)
	FindCallers(ctx context.Context, ws Workspace, method SymbolID) ([]RawSymbol, error)
	FindImplementations(ctx context.Context, ws Workspace, typ SymbolID) ([]RawSymbol, error)
	// BodySyntax returns one body per declaration site of the method.
	BodySyntax(ctx context.Context, ws Workspace, method SymbolID) ([]SyntaxNode, error)
	// ResolveExpression binds a call expression; nil when it does not bind.
	ResolveExpression(ctx context.Context, ws Workspace, expr SyntaxNode) (*RawSymbol, error)
	// RenameSymbol is pure: ws is left untouched.
	RenameSymbol(ctx context.Context, ws Workspace, symbol SymbolID, newName string) (Workspace, error)
	Diagnostics(ctx context.Context, ws Workspace, filter DiagnosticFilter) ([]RawDiagnostic, error)
}

// Persister is implemented by analyzers that can write a derived workspace's
// semantic model back to disk, e.g. after a committed rename.
type Persister interface {
	Persist(ctx context.Context, ws Workspace) error
}

// FileMover is implemented by analyzers whose model records file paths and
// must follow files renamed on disk.
type FileMover interface {
	MoveFiles(ctx context.Context, ws Workspace, moves map[string]string) (Workspace, error)
}

// Walk calls fn for n and every descendant in depth-first pre-order.
func Walk(n SyntaxNode, fn func(SyntaxNode)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}
