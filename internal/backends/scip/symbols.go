package scip

import (
	"strings"

	"symnav/internal/analyzer"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
)

// mapSCIPKind maps SymbolInformation.Kind onto analyzer kinds.
func mapSCIPKind(kind int32) analyzer.SymbolKind {
	switch scippb.SymbolInformation_Kind(kind) {
	case scippb.SymbolInformation_Class:
		return analyzer.KindClass
	case scippb.SymbolInformation_Interface, scippb.SymbolInformation_Trait, scippb.SymbolInformation_Protocol:
		return analyzer.KindInterface
	case scippb.SymbolInformation_Struct, scippb.SymbolInformation_Union:
		return analyzer.KindStruct
	case scippb.SymbolInformation_Enum:
		return analyzer.KindEnum
	case scippb.SymbolInformation_Method, scippb.SymbolInformation_Getter, scippb.SymbolInformation_Setter:
		return analyzer.KindMethod
	case scippb.SymbolInformation_Constructor:
		return analyzer.KindConstructor
	case scippb.SymbolInformation_Function:
		return analyzer.KindFunction
	case scippb.SymbolInformation_Property:
		return analyzer.KindProperty
	case scippb.SymbolInformation_Field, scippb.SymbolInformation_Constant:
		return analyzer.KindField
	case scippb.SymbolInformation_Event:
		return analyzer.KindEvent
	case scippb.SymbolInformation_EnumMember:
		return analyzer.KindEnumMember
	case scippb.SymbolInformation_Namespace, scippb.SymbolInformation_Package, scippb.SymbolInformation_Module:
		return analyzer.KindNamespace
	case scippb.SymbolInformation_Parameter, scippb.SymbolInformation_SelfParameter:
		return analyzer.KindParameter
	case scippb.SymbolInformation_TypeParameter:
		return analyzer.KindTypeParameter
	case scippb.SymbolInformation_Variable:
		return analyzer.KindLocal
	}
	return analyzer.KindUnknown
}

// constructorNames are the descriptor names indexers give constructors.
var constructorNames = map[string]bool{".ctor": true, "<init>": true, "constructor": true, "__init__": true}

var accessKeywords = map[string]bool{"public": true, "private": true, "protected": true, "internal": true}

var modifierKeywords = map[string]bool{
	"static": true, "abstract": true, "virtual": true, "override": true, "sealed": true,
	"readonly": true, "async": true, "extern": true, "new": true, "partial": true,
	"const": true, "final": true, "open": true, "default": true,
}

// parseModifiers splits the leading keywords of a declaration header into
// access keywords and other modifiers.
func parseModifiers(signature string) (visibility string, modifiers []string) {
	var access []string
	for _, tok := range strings.Fields(signature) {
		switch {
		case accessKeywords[tok]:
			access = append(access, tok)
		case modifierKeywords[tok]:
			modifiers = append(modifiers, tok)
		default:
			return strings.Join(access, " "), modifiers
		}
	}
	return strings.Join(access, " "), modifiers
}

// refineTypeKind uses the declaration keyword when the indexer left Kind unset.
func refineTypeKind(signature string) analyzer.SymbolKind {
	for _, tok := range strings.Fields(signature) {
		switch tok {
		case "interface", "trait", "protocol":
			return analyzer.KindInterface
		case "struct":
			return analyzer.KindStruct
		case "enum":
			return analyzer.KindEnum
		case "record":
			return analyzer.KindRecord
		case "delegate":
			return analyzer.KindDelegate
		case "class", "object":
			return analyzer.KindClass
		}
	}
	return analyzer.KindClass
}

// kindOf determines the analyzer kind of a symbol from its information and
// descriptor shape.
func (i *SCIPIndex) kindOf(id *SCIPIdentifier, info *SymbolInformation) analyzer.SymbolKind {
	if info != nil {
		if k := mapSCIPKind(info.Kind); k != analyzer.KindUnknown {
			if k == analyzer.KindClass {
				return refineTypeKind(info.Signature)
			}
			return k
		}
	}
	if id == nil || id.Last() == nil {
		return analyzer.KindUnknown
	}
	sig := ""
	if info != nil {
		sig = info.Signature
	}
	last := id.Last()
	switch last.Suffix {
	case SuffixNamespace:
		return analyzer.KindNamespace
	case SuffixType:
		return refineTypeKind(sig)
	case SuffixMethod:
		if constructorNames[last.Name] {
			return analyzer.KindConstructor
		}
		if len(id.Descriptors) > 1 && id.Descriptors[len(id.Descriptors)-2].Suffix == SuffixType {
			return analyzer.KindMethod
		}
		return analyzer.KindFunction
	case SuffixTerm:
		parentIsType := len(id.Descriptors) > 1 && id.Descriptors[len(id.Descriptors)-2].Suffix == SuffixType
		switch {
		case strings.Contains(sig, " event "), strings.HasPrefix(sig, "event "):
			return analyzer.KindEvent
		case strings.Contains(sig, "{"):
			return analyzer.KindProperty
		case parentIsType:
			return analyzer.KindField
		}
		return analyzer.KindLocal
	case SuffixParameter:
		return analyzer.KindParameter
	case SuffixTypeParameter:
		return analyzer.KindTypeParameter
	}
	return analyzer.KindUnknown
}

// rawSymbol builds the analyzer view of a symbol. The second result is false
// for local symbols, which have no stable identity outside their document.
func (i *SCIPIndex) rawSymbol(symbol string) (analyzer.RawSymbol, bool) {
	if symbol == "" || IsLocalSymbol(symbol) {
		return analyzer.RawSymbol{}, false
	}
	info := i.GetSymbol(symbol)
	id, err := ParseSCIPIdentifier(symbol)
	if err != nil {
		id = nil
	}

	raw := analyzer.RawSymbol{ID: analyzer.SymbolID(symbol)}
	raw.Kind = i.kindOf(id, info)

	if id != nil {
		raw.Name = id.GetSimpleName()
		raw.Namespace = id.Namespace()
		raw.ContainerID = analyzer.SymbolID(id.Parent())
	}
	if info != nil {
		if info.DisplayName != "" && !constructorNames[info.DisplayName] {
			raw.Name = info.DisplayName
		}
		if info.EnclosingSymbol != "" {
			raw.ContainerID = analyzer.SymbolID(info.EnclosingSymbol)
		}
		raw.Signature = info.Signature
		raw.Visibility, raw.Modifiers = parseModifiers(info.Signature)
	}
	if raw.Kind == analyzer.KindConstructor && raw.ContainerID != "" {
		if cid, err := ParseSCIPIdentifier(string(raw.ContainerID)); err == nil {
			raw.Name = cid.GetSimpleName()
		}
	}
	if raw.Kind == analyzer.KindNamespace {
		raw.Namespace = parentNamespace(raw.Namespace)
	}

	if raw.Kind.IsType() && info != nil {
		raw.BaseType, raw.Interfaces = i.supertypes(info)
	}

	if doc, occ, ok := i.Definition(symbol); ok {
		if s, ok := parseRange(occ.Range); ok {
			loc := location(doc, s)
			raw.Location = &loc
		}
		raw.Implicit = occ.IsGenerated()
	} else {
		raw.Implicit = info == nil
	}
	return raw, true
}

func parentNamespace(ns string) string {
	if i := strings.LastIndex(ns, "."); i >= 0 {
		return ns[:i]
	}
	return ""
}

// supertypes splits implementation relationships of a type into the
// immediate base class and the declared interfaces.
func (i *SCIPIndex) supertypes(info *SymbolInformation) (analyzer.SymbolID, []analyzer.SymbolID) {
	var base analyzer.SymbolID
	var interfaces []analyzer.SymbolID
	for _, rel := range info.Relationships {
		if !rel.IsImplementation {
			continue
		}
		target, _ := ParseSCIPIdentifier(rel.Symbol)
		if target == nil || target.Last() == nil || target.Last().Suffix != SuffixType {
			continue
		}
		kind := i.kindOf(target, i.GetSymbol(rel.Symbol))
		if i.GetSymbol(rel.Symbol) == nil && looksLikeInterface(target.GetSimpleName()) {
			kind = analyzer.KindInterface
		}
		switch {
		case kind == analyzer.KindInterface:
			interfaces = append(interfaces, analyzer.SymbolID(rel.Symbol))
		case base == "":
			base = analyzer.SymbolID(rel.Symbol)
		}
	}
	return base, interfaces
}

// looksLikeInterface applies the .NET naming convention (IDisposable) to
// external types the index carries no kind for.
func looksLikeInterface(name string) bool {
	return len(name) > 2 && name[0] == 'I' && name[1] >= 'A' && name[1] <= 'Z' && name[2] >= 'a' && name[2] <= 'z'
}
