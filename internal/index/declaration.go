package index

import (
	"fmt"
	"strings"

	"symnav/internal/analyzer"
)

// Kind is the declaration kind. Every kind has exactly one Detail type.
type Kind int

const (
	KindType Kind = iota + 1
	KindMethod
	KindProperty
	KindField
	KindEvent
	KindNamespace
)

func (k Kind) String() string {
	switch k {
	case KindType:
		return "type"
	case KindMethod:
		return "method"
	case KindProperty:
		return "property"
	case KindField:
		return "field"
	case KindEvent:
		return "event"
	case KindNamespace:
		return "namespace"
	}
	return "unknown"
}

// MarshalText renders the kind as its lowercase name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKind translates a user-supplied kind filter. ok is false for unknown
// values, which callers treat as "no filter".
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "type", "class", "interface", "enum", "struct", "record", "delegate":
		return KindType, true
	case "method", "function", "constructor", "ctor":
		return KindMethod, true
	case "property":
		return KindProperty, true
	case "field":
		return KindField, true
	case "event":
		return KindEvent, true
	case "namespace", "package":
		return KindNamespace, true
	}
	return 0, false
}

// kindOf maps analyzer kinds onto declaration kinds. ok is false for symbols
// the index does not record.
func kindOf(k analyzer.SymbolKind) (Kind, bool) {
	switch k {
	case analyzer.KindClass, analyzer.KindInterface, analyzer.KindStruct, analyzer.KindEnum,
		analyzer.KindRecord, analyzer.KindDelegate:
		return KindType, true
	case analyzer.KindMethod, analyzer.KindConstructor, analyzer.KindFunction:
		return KindMethod, true
	case analyzer.KindProperty:
		return KindProperty, true
	case analyzer.KindField, analyzer.KindEnumMember:
		return KindField, true
	case analyzer.KindEvent:
		return KindEvent, true
	case analyzer.KindNamespace:
		return KindNamespace, true
	}
	return 0, false
}

// Visibility is the declared accessibility.
type Visibility int

const (
	VisibilityPublic Visibility = iota
	VisibilityPrivate
	VisibilityProtected
	VisibilityInternal
	VisibilityProtectedInternal
	VisibilityPrivateProtected
)

func (v Visibility) String() string {
	switch v {
	case VisibilityPublic:
		return "public"
	case VisibilityPrivate:
		return "private"
	case VisibilityProtected:
		return "protected"
	case VisibilityInternal:
		return "internal"
	case VisibilityProtectedInternal:
		return "protected internal"
	case VisibilityPrivateProtected:
		return "private protected"
	}
	return "unknown"
}

// MarshalText renders the visibility keyword(s).
func (v Visibility) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// parseVisibility reads the accessibility keywords. Without any, members of
// interfaces and namespaces are public, other types internal and other
// members private.
func parseVisibility(s string, kind Kind, inInterface bool) Visibility {
	words := strings.Fields(s)
	has := func(w string) bool {
		for _, x := range words {
			if x == w {
				return true
			}
		}
		return false
	}
	switch {
	case has("protected") && has("internal"):
		return VisibilityProtectedInternal
	case has("private") && has("protected"):
		return VisibilityPrivateProtected
	case has("public"):
		return VisibilityPublic
	case has("protected"):
		return VisibilityProtected
	case has("internal"):
		return VisibilityInternal
	case has("private"):
		return VisibilityPrivate
	}
	switch {
	case kind == KindNamespace, inInterface:
		return VisibilityPublic
	case kind == KindType:
		return VisibilityInternal
	}
	return VisibilityPrivate
}

// Detail is the kind-specific payload of a declaration.
type Detail interface {
	kind() Kind
}

// TypeDetail describes a type declaration.
type TypeDetail struct {
	// TypeKind is class, interface, struct, enum, record or delegate.
	TypeKind   string              `json:"typeKind"`
	BaseTypeID analyzer.SymbolID   `json:"baseTypeId,omitempty"`
	Interfaces []analyzer.SymbolID `json:"interfaces,omitempty"`
}

// MethodDetail describes a method, constructor or function.
type MethodDetail struct {
	Parameters    string `json:"parameters"`
	ReturnType    string `json:"returnType,omitempty"`
	IsConstructor bool   `json:"isConstructor,omitempty"`
}

// PropertyDetail describes a property.
type PropertyDetail struct {
	Type      string `json:"type,omitempty"`
	Accessors string `json:"accessors,omitempty"`
}

// FieldDetail describes a field, constant or enum member.
type FieldDetail struct {
	Type       string `json:"type,omitempty"`
	IsReadOnly bool   `json:"isReadOnly,omitempty"`
	IsConst    bool   `json:"isConst,omitempty"`
}

// EventDetail describes an event.
type EventDetail struct {
	Type string `json:"type,omitempty"`
}

// NamespaceDetail describes a namespace.
type NamespaceDetail struct {
	MemberCount int `json:"memberCount"`
}

func (TypeDetail) kind() Kind      { return KindType }
func (MethodDetail) kind() Kind    { return KindMethod }
func (PropertyDetail) kind() Kind  { return KindProperty }
func (FieldDetail) kind() Kind     { return KindField }
func (EventDetail) kind() Kind     { return KindEvent }
func (NamespaceDetail) kind() Kind { return KindNamespace }

// Declaration is one declared entity. Declarations are owned by the Index
// and must not be modified.
type Declaration struct {
	ID               analyzer.SymbolID `json:"id"`
	Name             string            `json:"name"`
	QualifiedName    string            `json:"qualifiedName"`
	Kind             Kind              `json:"kind"`
	ContainingTypeID analyzer.SymbolID `json:"containingTypeId,omitempty"`
	ContainingType   string            `json:"containingType,omitempty"`
	Namespace        string            `json:"namespace"`
	Visibility       Visibility        `json:"visibility"`
	IsStatic         bool              `json:"isStatic,omitempty"`
	IsAbstract       bool              `json:"isAbstract,omitempty"`
	IsVirtual        bool              `json:"isVirtual,omitempty"`
	IsOverride       bool              `json:"isOverride,omitempty"`
	Location         analyzer.Location `json:"location"`
	Signature        string            `json:"signature"`
	Detail           Detail            `json:"detail"`
}

// Derived reports whether d was synthesized by the index rather than
// reported by the analyzer. Derived declarations have no analyzer identity.
func (d *Declaration) Derived() bool {
	return strings.HasPrefix(string(d.ID), namespaceIDPrefix)
}

// TypeDetail returns the type payload, or nil when d is not a type.
func (d *Declaration) TypeDetail() *TypeDetail {
	if td, ok := d.Detail.(TypeDetail); ok {
		return &td
	}
	return nil
}

// BaseTypeID is the immediate base class of a type, "" otherwise.
func (d *Declaration) BaseTypeID() analyzer.SymbolID {
	if td := d.TypeDetail(); td != nil {
		return td.BaseTypeID
	}
	return ""
}

// IsInterface reports whether d declares an interface.
func (d *Declaration) IsInterface() bool {
	td := d.TypeDetail()
	return td != nil && td.TypeKind == analyzer.KindInterface.String()
}

func (d *Declaration) String() string {
	return fmt.Sprintf("%s %s (%s)", d.Kind, d.QualifiedName, d.Location)
}

// detailFor derives the kind-specific payload from the analyzer symbol.
func detailFor(kind Kind, raw *analyzer.RawSymbol) Detail {
	switch kind {
	case KindType:
		return TypeDetail{TypeKind: raw.Kind.String(), BaseTypeID: raw.BaseType, Interfaces: raw.Interfaces}
	case KindMethod:
		head, tail := splitAtName(raw.Signature, raw.Name)
		d := MethodDetail{IsConstructor: raw.Kind == analyzer.KindConstructor}
		d.Parameters, tail = balanced(tail, '(', ')')
		if d.Parameters == "" {
			d.Parameters = "()"
		}
		d.ReturnType = typeFrom(head)
		if d.ReturnType == "" && !d.IsConstructor {
			d.ReturnType = trailingType(tail)
		}
		if d.IsConstructor {
			d.ReturnType = ""
		}
		return d
	case KindProperty:
		head, tail := splitAtName(raw.Signature, raw.Name)
		accessors, _ := balanced(tail, '{', '}')
		return PropertyDetail{Type: typeFrom(head), Accessors: accessors}
	case KindField:
		head, _ := splitAtName(raw.Signature, raw.Name)
		return FieldDetail{
			Type:       typeFrom(head),
			IsReadOnly: raw.HasModifier("readonly"),
			IsConst:    raw.HasModifier("const"),
		}
	case KindEvent:
		head, _ := splitAtName(raw.Signature, raw.Name)
		return EventDetail{Type: typeFrom(strings.Replace(head, "event ", "", 1))}
	case KindNamespace:
		return NamespaceDetail{}
	}
	panic(fmt.Sprintf("index: unhandled kind %d", kind))
}

// renderSignature formats a declaration header from its payload.
func renderSignature(d *Declaration) string {
	if d.Detail == nil || d.Detail.kind() != d.Kind {
		panic(fmt.Sprintf("index: %s declaration %s carries %T", d.Kind, d.ID, d.Detail))
	}
	var parts []string
	if d.Kind != KindNamespace {
		parts = append(parts, d.Visibility.String())
	}
	if d.IsStatic {
		parts = append(parts, "static")
	}
	if d.IsAbstract {
		parts = append(parts, "abstract")
	}
	if d.IsVirtual {
		parts = append(parts, "virtual")
	}
	if d.IsOverride {
		parts = append(parts, "override")
	}

	switch det := d.Detail.(type) {
	case TypeDetail:
		parts = append(parts, det.TypeKind, d.Name)
	case MethodDetail:
		if det.ReturnType != "" {
			parts = append(parts, det.ReturnType)
		}
		parts = append(parts, d.Name+det.Parameters)
	case PropertyDetail:
		if det.Type != "" {
			parts = append(parts, det.Type)
		}
		parts = append(parts, d.Name)
		if det.Accessors != "" {
			parts = append(parts, det.Accessors)
		}
	case FieldDetail:
		if det.IsConst {
			parts = append(parts, "const")
		} else if det.IsReadOnly {
			parts = append(parts, "readonly")
		}
		if det.Type != "" {
			parts = append(parts, det.Type)
		}
		parts = append(parts, d.Name)
	case EventDetail:
		parts = append(parts, "event")
		if det.Type != "" {
			parts = append(parts, det.Type)
		}
		parts = append(parts, d.Name)
	case NamespaceDetail:
		parts = append(parts, "namespace", d.QualifiedName)
	default:
		panic(fmt.Sprintf("index: unhandled detail %T", d.Detail))
	}
	return strings.Join(parts, " ")
}

var declarationKeywords = map[string]bool{
	"public": true, "private": true, "protected": true, "internal": true,
	"static": true, "abstract": true, "virtual": true, "override": true, "sealed": true,
	"readonly": true, "async": true, "extern": true, "new": true, "partial": true,
	"const": true, "final": true, "open": true, "default": true, "unsafe": true, "volatile": true,
	"func": true, "fun": true, "def": true, "fn": true, "val": true, "var": true, "let": true,
}

// splitAtName splits a signature around the first whole-word occurrence of name.
func splitAtName(sig, name string) (string, string) {
	for from := 0; name != ""; {
		k := strings.Index(sig[from:], name)
		if k < 0 {
			break
		}
		k += from
		end := k + len(name)
		if !isIdentByte(sig, k-1) && !isIdentByte(sig, end) {
			return sig[:k], sig[end:]
		}
		from = end
	}
	return sig, ""
}

// typeFrom drops modifiers and receiver clauses from a signature head.
func typeFrom(head string) string {
	head = strings.TrimSpace(head)
	if strings.HasPrefix(head, "func (") {
		_, rest := balanced(head[len("func "):], '(', ')')
		head = "func " + rest
	}
	var kept []string
	for _, tok := range strings.Fields(head) {
		if !declarationKeywords[tok] {
			kept = append(kept, tok)
		}
	}
	return strings.TrimSuffix(strings.Join(kept, " "), ".")
}

// trailingType returns a type written after the parameter list, as in Go or
// Kotlin signatures.
func trailingType(tail string) string {
	t := strings.TrimSpace(tail)
	t = strings.TrimPrefix(t, ":")
	t = strings.TrimPrefix(t, "->")
	if i := strings.IndexAny(t, "{="); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

// balanced returns the leading open..close group of s (after spaces) and the
// remainder.
func balanced(s string, open, close byte) (string, string) {
	t := strings.TrimLeft(s, " \t")
	if t == "" || t[0] != open {
		return "", s
	}
	depth := 0
	for i := 0; i < len(t); i++ {
		switch t[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return t[:i+1], t[i+1:]
			}
		}
	}
	return t, ""
}

func isIdentByte(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return false
	}
	c := s[i]
	return c == '_' || c >= 0x80 || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
