package scip

import (
	"fmt"
	"os"
	"sort"
	"time"

	"symnav/internal/errors"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"
)

// SCIPIndex represents a loaded SCIP index
type SCIPIndex struct {
	// Metadata contains index metadata
	Metadata *Metadata

	// Documents are all indexed documents, sorted by path
	Documents []*Document

	// Symbols maps symbol IDs to symbol information
	Symbols map[string]*SymbolInformation

	// External holds symbol information for symbols defined outside the project
	External map[string]*SymbolInformation

	// LoadedAt is when the index was loaded
	LoadedAt time.Time

	docsByPath   map[string]*Document
	definitions  map[string][]definition
	implementers map[string][]string
}

// definition locates the defining occurrence of a symbol.
type definition struct {
	doc *Document
	occ *Occurrence
}

// LoadSCIPIndex loads a SCIP index from the specified path
func LoadSCIPIndex(path string) (*SCIPIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.IndexMissing, fmt.Sprintf("SCIP index not found at %s", path), err)
		}
		return nil, errors.New(errors.AnalyzerUnavailable, fmt.Sprintf("read SCIP index %s", path), err)
	}

	var index scippb.Index
	if err := proto.Unmarshal(data, &index); err != nil {
		return nil, errors.New(errors.AnalyzerUnavailable, fmt.Sprintf("parse SCIP index %s", path), err).
			WithFixes(errors.FixAction{
				Type:        errors.RunCommand,
				Command:     "scip print --index=" + path,
				Safe:        true,
				Description: "Verify SCIP index is valid",
			})
	}

	return FromProto(&index), nil
}

// FromProto converts a protobuf index to the internal representation.
func FromProto(index *scippb.Index) *SCIPIndex {
	idx := &SCIPIndex{
		Metadata:  convertMetadata(index.Metadata),
		Documents: convertDocuments(index.Documents),
		Symbols:   make(map[string]*SymbolInformation),
		External:  make(map[string]*SymbolInformation),
		LoadedAt:  time.Now(),
	}
	for _, sym := range index.ExternalSymbols {
		info := convertSymbolInformation(sym)
		idx.External[info.Symbol] = info
	}
	idx.rebuild()
	return idx
}

// rebuild recomputes the lookup tables after Documents changed.
func (i *SCIPIndex) rebuild() {
	sort.SliceStable(i.Documents, func(a, b int) bool {
		return i.Documents[a].RelativePath < i.Documents[b].RelativePath
	})

	i.Symbols = make(map[string]*SymbolInformation)
	i.docsByPath = make(map[string]*Document, len(i.Documents))
	i.definitions = make(map[string][]definition)
	i.implementers = make(map[string][]string)

	for _, doc := range i.Documents {
		i.docsByPath[doc.RelativePath] = doc
		for _, sym := range doc.Symbols {
			i.Symbols[sym.Symbol] = sym
			for _, rel := range sym.Relationships {
				if rel.IsImplementation {
					i.implementers[rel.Symbol] = append(i.implementers[rel.Symbol], sym.Symbol)
				}
			}
		}
		for _, occ := range doc.Occurrences {
			if !occ.IsDefinition() {
				continue
			}
			i.definitions[occ.Symbol] = append(i.definitions[occ.Symbol], definition{doc: doc, occ: occ})
		}
	}
	for k := range i.implementers {
		sort.Strings(i.implementers[k])
	}
}

// GetDocument retrieves a document by its relative path
func (i *SCIPIndex) GetDocument(relativePath string) *Document {
	return i.docsByPath[relativePath]
}

// GetSymbol retrieves symbol information by ID, including external symbols
func (i *SCIPIndex) GetSymbol(symbolId string) *SymbolInformation {
	if s, ok := i.Symbols[symbolId]; ok {
		return s
	}
	return i.External[symbolId]
}

// Definition returns the first defining occurrence of a symbol, if it is in
// the project.
func (i *SCIPIndex) Definition(symbolId string) (*Document, *Occurrence, bool) {
	defs := i.definitions[symbolId]
	if len(defs) == 0 {
		return nil, nil, false
	}
	return defs[0].doc, defs[0].occ, true
}

// definitionSites returns every defining occurrence of a symbol in path order.
// Partial declarations have more than one.
func (i *SCIPIndex) definitionSites(symbolId string) []definition {
	return i.definitions[symbolId]
}

// Implementers returns symbols declaring an implementation relationship to symbolId.
func (i *SCIPIndex) Implementers(symbolId string) []string {
	return i.implementers[symbolId]
}

// ToProto converts the index back to its protobuf form.
func (i *SCIPIndex) ToProto() *scippb.Index {
	out := &scippb.Index{}
	if i.Metadata != nil {
		out.Metadata = &scippb.Metadata{
			Version:     scippb.ProtocolVersion(i.Metadata.Version),
			ProjectRoot: i.Metadata.ProjectRoot,
		}
		if i.Metadata.ToolInfo != nil {
			out.Metadata.ToolInfo = &scippb.ToolInfo{
				Name:      i.Metadata.ToolInfo.Name,
				Version:   i.Metadata.ToolInfo.Version,
				Arguments: i.Metadata.ToolInfo.Arguments,
			}
		}
	}
	for _, doc := range i.Documents {
		pd := &scippb.Document{
			RelativePath:     doc.RelativePath,
			Language:         doc.Language,
			Text:             doc.Text,
			PositionEncoding: scippb.PositionEncoding(doc.Encoding),
		}
		for _, occ := range doc.Occurrences {
			po := &scippb.Occurrence{
				Range:          occ.Range,
				Symbol:         occ.Symbol,
				SymbolRoles:    occ.SymbolRoles,
				EnclosingRange: occ.EnclosingRange,
			}
			for _, d := range occ.Diagnostics {
				po.Diagnostics = append(po.Diagnostics, &scippb.Diagnostic{
					Severity: scippb.Severity(d.Severity),
					Code:     d.Code,
					Message:  d.Message,
					Source:   d.Source,
				})
			}
			pd.Occurrences = append(pd.Occurrences, po)
		}
		for _, sym := range doc.Symbols {
			pd.Symbols = append(pd.Symbols, symbolToProto(sym))
		}
		out.Documents = append(out.Documents, pd)
	}
	ext := make([]string, 0, len(i.External))
	for k := range i.External {
		ext = append(ext, k)
	}
	sort.Strings(ext)
	for _, k := range ext {
		out.ExternalSymbols = append(out.ExternalSymbols, symbolToProto(i.External[k]))
	}
	return out
}

// WriteSCIPIndex serializes the index to path, replacing it atomically.
func (i *SCIPIndex) WriteSCIPIndex(path string) error {
	data, err := proto.Marshal(i.ToProto())
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func symbolToProto(sym *SymbolInformation) *scippb.SymbolInformation {
	ps := &scippb.SymbolInformation{
		Symbol:          sym.Symbol,
		Documentation:   sym.Documentation,
		Kind:            scippb.SymbolInformation_Kind(sym.Kind),
		DisplayName:     sym.DisplayName,
		EnclosingSymbol: sym.EnclosingSymbol,
	}
	if sym.Signature != "" {
		ps.SignatureDocumentation = &scippb.Document{Text: sym.Signature}
	}
	for _, rel := range sym.Relationships {
		ps.Relationships = append(ps.Relationships, &scippb.Relationship{
			Symbol:           rel.Symbol,
			IsReference:      rel.IsReference,
			IsImplementation: rel.IsImplementation,
			IsTypeDefinition: rel.IsTypeDefinition,
			IsDefinition:     rel.IsDefinition,
		})
	}
	return ps
}

// convertMetadata converts protobuf metadata to internal representation
func convertMetadata(meta *scippb.Metadata) *Metadata {
	if meta == nil {
		return nil
	}
	m := &Metadata{
		Version:     int32(meta.Version),
		ProjectRoot: meta.ProjectRoot,
	}
	if meta.ToolInfo != nil {
		m.ToolInfo = &ToolInfo{
			Name:      meta.ToolInfo.Name,
			Version:   meta.ToolInfo.Version,
			Arguments: meta.ToolInfo.Arguments,
		}
	}
	return m
}

// convertDocuments converts protobuf documents
func convertDocuments(docs []*scippb.Document) []*Document {
	result := make([]*Document, len(docs))
	for i, doc := range docs {
		result[i] = convertDocument(doc)
	}
	return result
}

func convertDocument(doc *scippb.Document) *Document {
	occurrences := make([]*Occurrence, len(doc.Occurrences))
	for i, occ := range doc.Occurrences {
		occurrences[i] = convertOccurrence(occ)
	}

	symbols := make([]*SymbolInformation, len(doc.Symbols))
	for i, sym := range doc.Symbols {
		symbols[i] = convertSymbolInformation(sym)
	}

	return &Document{
		RelativePath: doc.RelativePath,
		Language:     doc.Language,
		Text:         doc.Text,
		Encoding:     PositionEncoding(doc.PositionEncoding),
		Occurrences:  occurrences,
		Symbols:      symbols,
	}
}

// convertOccurrence converts a protobuf occurrence
func convertOccurrence(occ *scippb.Occurrence) *Occurrence {
	diagnostics := make([]*Diagnostic, len(occ.Diagnostics))
	for i, diag := range occ.Diagnostics {
		diagnostics[i] = &Diagnostic{
			Severity: int32(diag.Severity),
			Code:     diag.Code,
			Message:  diag.Message,
			Source:   diag.Source,
		}
	}

	return &Occurrence{
		Range:          occ.Range,
		Symbol:         occ.Symbol,
		SymbolRoles:    occ.SymbolRoles,
		Diagnostics:    diagnostics,
		EnclosingRange: occ.EnclosingRange,
	}
}

// convertSymbolInformation converts protobuf symbol information
func convertSymbolInformation(sym *scippb.SymbolInformation) *SymbolInformation {
	relationships := make([]*Relationship, len(sym.Relationships))
	for i, rel := range sym.Relationships {
		relationships[i] = &Relationship{
			Symbol:           rel.Symbol,
			IsReference:      rel.IsReference,
			IsImplementation: rel.IsImplementation,
			IsTypeDefinition: rel.IsTypeDefinition,
			IsDefinition:     rel.IsDefinition,
		}
	}

	info := &SymbolInformation{
		Symbol:          sym.Symbol,
		Documentation:   sym.Documentation,
		Relationships:   relationships,
		Kind:            int32(sym.Kind),
		DisplayName:     sym.DisplayName,
		EnclosingSymbol: sym.EnclosingSymbol,
	}
	if sym.SignatureDocumentation != nil {
		info.Signature = sym.SignatureDocumentation.Text
	}
	if info.Signature == "" {
		info.Signature = signatureFromDocs(sym.Documentation)
	}
	return info
}

// signatureFromDocs extracts the first line of the leading fenced code block,
// which is where scip-dotnet and scip-java put the declaration header.
func signatureFromDocs(docs []string) string {
	if len(docs) == 0 {
		return ""
	}
	text := docs[0]
	if len(text) < 3 || text[:3] != "```" {
		return ""
	}
	lines := splitLines(text)
	if len(lines) < 2 {
		return ""
	}
	return lines[1]
}
