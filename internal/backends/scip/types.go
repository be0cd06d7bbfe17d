package scip

// Metadata represents SCIP index metadata
type Metadata struct {
	// Version is the SCIP protocol version
	Version int32

	// ToolInfo contains information about the indexing tool
	ToolInfo *ToolInfo

	// ProjectRoot is the file:// URI of the project root
	ProjectRoot string
}

// ToolInfo contains information about the indexing tool
type ToolInfo struct {
	Name      string
	Version   string
	Arguments []string
}

// PositionEncoding is the unit SCIP columns are measured in.
type PositionEncoding int32

const (
	EncodingUnspecified PositionEncoding = 0
	EncodingUTF8        PositionEncoding = 1
	EncodingUTF16       PositionEncoding = 2
	EncodingUTF32       PositionEncoding = 3
)

// Document represents a source document in the SCIP index
type Document struct {
	// RelativePath is the path relative to the project root
	RelativePath string

	// Language is the programming language
	Language string

	// Text is the embedded source, empty when the indexer did not store it
	Text string

	// Encoding applies to every column in this document
	Encoding PositionEncoding

	// Occurrences are all symbol occurrences in this document
	Occurrences []*Occurrence

	// Symbols are symbol definitions in this document
	Symbols []*SymbolInformation
}

// Occurrence represents a single occurrence of a symbol in a document
type Occurrence struct {
	// Range is [startLine, startCol, endCol] or [startLine, startCol, endLine, endCol], 0-based
	Range []int32

	// Symbol is the SCIP symbol identifier
	Symbol string

	// SymbolRoles indicates the role(s) of this occurrence
	SymbolRoles int32

	// Diagnostics are associated diagnostics
	Diagnostics []*Diagnostic

	// EnclosingRange is the range of the enclosing declaration
	EnclosingRange []int32
}

// IsDefinition reports whether the occurrence defines its symbol.
func (o *Occurrence) IsDefinition() bool {
	return o.SymbolRoles&SymbolRoleDefinition != 0
}

// IsGenerated reports whether the occurrence was synthesized by the compiler.
func (o *Occurrence) IsGenerated() bool {
	return o.SymbolRoles&SymbolRoleGenerated != 0
}

// SymbolInformation contains detailed information about a symbol
type SymbolInformation struct {
	// Symbol is the SCIP symbol identifier
	Symbol string

	// Documentation is the doc comment, markdown
	Documentation []string

	// Relationships are relationships to other symbols
	Relationships []*Relationship

	// Kind is the SCIP kind enum value, 0 when the indexer leaves it unset
	Kind int32

	// DisplayName is the human-readable name
	DisplayName string

	// Signature is the declaration header text, e.g. "public void Activate()"
	Signature string

	// EnclosingSymbol is the containing symbol
	EnclosingSymbol string
}

// Relationship represents a relationship between symbols
type Relationship struct {
	Symbol           string
	IsReference      bool
	IsImplementation bool
	IsTypeDefinition bool
	IsDefinition     bool
}

// Diagnostic represents a diagnostic message
type Diagnostic struct {
	Severity int32
	Code     string
	Message  string
	Source   string
}

// SymbolRole constants (from SCIP protocol)
const (
	SymbolRoleDefinition        int32 = 1
	SymbolRoleImport            int32 = 2
	SymbolRoleWriteAccess       int32 = 4
	SymbolRoleReadAccess        int32 = 8
	SymbolRoleGenerated         int32 = 16
	SymbolRoleTest              int32 = 32
	SymbolRoleForwardDefinition int32 = 64
)

// span is a normalized 0-based occurrence range.
type span struct {
	startLine, startCol, endLine, endCol int
}

// parseRange normalizes a 3- or 4-element SCIP range. ok is false when the
// range is malformed.
func parseRange(r []int32) (span, bool) {
	switch len(r) {
	case 3:
		return span{int(r[0]), int(r[1]), int(r[0]), int(r[2])}, true
	case 4:
		return span{int(r[0]), int(r[1]), int(r[2]), int(r[3])}, true
	}
	return span{}, false
}

// contains reports whether (line, col) lies within s, end exclusive.
func (s span) contains(line, col int) bool {
	if line < s.startLine || line > s.endLine {
		return false
	}
	if line == s.startLine && col < s.startCol {
		return false
	}
	if line == s.endLine && col >= s.endCol {
		return false
	}
	return true
}

// encloses reports whether o lies entirely within s.
func (s span) encloses(o span) bool {
	if o.startLine < s.startLine || o.endLine > s.endLine {
		return false
	}
	if o.startLine == s.startLine && o.startCol < s.startCol {
		return false
	}
	if o.endLine == s.endLine && o.endCol > s.endCol {
		return false
	}
	return true
}

func (s span) lines() int {
	return s.endLine - s.startLine
}

func (s span) toRange() []int32 {
	if s.startLine == s.endLine {
		return []int32{int32(s.startLine), int32(s.startCol), int32(s.endCol)}
	}
	return []int32{int32(s.startLine), int32(s.startCol), int32(s.endLine), int32(s.endCol)}
}
