package indexer

import (
	"github.com/cespare/xxhash/v2"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/char5742/groovy-lsp/internal/types"
)

// extractSymbols walks a parsed tree and produces the symbol set for one
// file, per the extraction rules of spec.md §4.4: class/interface/enum
// declarations become a container symbol whose members (methods, fields)
// carry a ContainerID back-reference; script-level declarations outside any
// class become top-level LOCAL symbols; package/import declarations and the
// two interpreted-but-unprocessed annotations become their own symbol kinds.
func extractSymbols(root *tree_sitter.Node, source []byte, file string) []types.Symbol {
	if root == nil {
		return nil
	}
	w := &extractWalk{source: source, file: file}
	w.walkTop(root)
	return w.symbols
}

type extractWalk struct {
	source  []byte
	file    string
	symbols []types.Symbol
}

// walkTop visits the compilation unit's direct children: package/import
// declarations, type declarations (which recurse into members), and any
// other top-level statement, which is treated as a script-level LOCAL
// declaration candidate.
func (w *extractWalk) walkTop(root *tree_sitter.Node) {
	count := int(root.ChildCount())
	for i := 0; i < count; i++ {
		child := root.Child(uint(i))
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "package_declaration":
			w.addPackage(child)
		case "import_declaration":
			w.addImport(child)
		case "class_declaration", "interface_declaration", "enum_declaration":
			w.addType(child)
		case "local_variable_declaration":
			w.addScriptLocals(child)
		default:
			w.scanForAnnotations(child, nil)
		}
	}
}

func (w *extractWalk) addPackage(n *tree_sitter.Node) {
	name := w.identifierText(n)
	if name == "" {
		return
	}
	w.symbols = append(w.symbols, w.newSymbol(name, types.SymbolPackage, n, false, 0))
}

func (w *extractWalk) addImport(n *tree_sitter.Node) {
	name := w.identifierText(n)
	if name == "" {
		return
	}
	w.symbols = append(w.symbols, w.newSymbol(name, types.SymbolImport, n, false, 0))
}

// addType records the CLASS/INTERFACE/ENUM declaration itself, then walks
// its body for members, passing the new symbol's id down as their
// container.
func (w *extractWalk) addType(n *tree_sitter.Node) {
	name := w.fieldIdentifierText(n, "name")
	if name == "" {
		return
	}
	kind := types.SymbolClass
	switch n.Kind() {
	case "interface_declaration":
		kind = types.SymbolInterface
	case "enum_declaration":
		kind = types.SymbolEnum
	}
	sym := w.newSymbol(name, kind, n, false, 0)
	w.symbols = append(w.symbols, sym)

	w.scanForAnnotations(n, &sym.ID)

	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	count := int(body.ChildCount())
	for i := 0; i < count; i++ {
		member := body.Child(uint(i))
		if member == nil {
			continue
		}
		w.addMember(member, sym.ID)
	}
}

func (w *extractWalk) addMember(n *tree_sitter.Node, containerID types.SymbolID) {
	switch n.Kind() {
	case "method_declaration", "constructor_declaration":
		name := w.fieldIdentifierText(n, "name")
		if name == "" {
			return
		}
		sym := w.newSymbol(name, types.SymbolMethod, n, true, containerID)
		w.symbols = append(w.symbols, sym)
		w.scanForAnnotations(n, &sym.ID)
	case "field_declaration":
		w.addFieldDeclarators(n, containerID)
		w.scanForAnnotations(n, &containerID)
	case "class_declaration", "interface_declaration", "enum_declaration":
		// Nested type: recorded as its own top-level-shaped declaration,
		// contained by the enclosing type.
		name := w.fieldIdentifierText(n, "name")
		if name == "" {
			return
		}
		kind := types.SymbolClass
		if n.Kind() == "interface_declaration" {
			kind = types.SymbolInterface
		} else if n.Kind() == "enum_declaration" {
			kind = types.SymbolEnum
		}
		sym := w.newSymbol(name, kind, n, true, containerID)
		w.symbols = append(w.symbols, sym)
		body := n.ChildByFieldName("body")
		if body != nil {
			c := int(body.ChildCount())
			for i := 0; i < c; i++ {
				if m := body.Child(uint(i)); m != nil {
					w.addMember(m, sym.ID)
				}
			}
		}
	}
}

// addFieldDeclarators handles Java's multi-declarator field syntax
// (`int a, b;`), which the spec's PROPERTY/FIELD split does not otherwise
// distinguish: every declarator in one field_declaration becomes its own
// FIELD symbol (Groovy property-style fields collapse to the same grammar
// production under the Java grammar).
func (w *extractWalk) addFieldDeclarators(n *tree_sitter.Node, containerID types.SymbolID) {
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		child := n.Child(uint(i))
		if child == nil || child.Kind() != "variable_declarator" {
			continue
		}
		name := w.fieldIdentifierText(child, "name")
		if name == "" {
			continue
		}
		w.symbols = append(w.symbols, w.newSymbol(name, types.SymbolField, child, true, containerID))
	}
}

// addScriptLocals records a top-level `def`/typed declaration as a LOCAL
// symbol (spec.md §4.4: "script-level def/typed variable declarations
// produce LOCAL symbols at top level").
func (w *extractWalk) addScriptLocals(n *tree_sitter.Node) {
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		child := n.Child(uint(i))
		if child == nil || child.Kind() != "variable_declarator" {
			continue
		}
		name := w.fieldIdentifierText(child, "name")
		if name == "" {
			continue
		}
		w.symbols = append(w.symbols, w.newSymbol(name, types.SymbolLocal, child, false, 0))
	}
}

// scanForAnnotations records only `@TypeChecked`/`@CompileStatic` as
// ANNOTATION symbols; every other annotation is left uninterpreted, per
// spec.md §4.4 ("not interpreted; recorded only as ANNOTATION symbols").
func (w *extractWalk) scanForAnnotations(n *tree_sitter.Node, containerID *types.SymbolID) {
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		child := n.Child(uint(i))
		if child == nil {
			continue
		}
		if child.Kind() == "modifiers" {
			w.scanForAnnotations(child, containerID)
			continue
		}
		if child.Kind() == "marker_annotation" || child.Kind() == "annotation" {
			name := w.identifierText(child)
			if name == "TypeChecked" || name == "CompileStatic" {
				hasContainer := containerID != nil
				var cid types.SymbolID
				if hasContainer {
					cid = *containerID
				}
				w.symbols = append(w.symbols, w.newSymbol(name, types.SymbolAnnotation, child, hasContainer, cid))
			}
		}
	}
}

// fieldIdentifierText reads the node's named field, falling back to a
// generic identifier scan if the grammar didn't label it (best-effort, per
// spec.md §1: the concrete Groovy grammar is out of scope).
func (w *extractWalk) fieldIdentifierText(n *tree_sitter.Node, field string) string {
	if target := n.ChildByFieldName(field); target != nil {
		return w.text(target)
	}
	return w.identifierText(n)
}

// identifierText returns the first identifier/scoped_identifier descendant's
// text, used for package/import names and as a fallback when a field name
// isn't present in the grammar's node shape.
func (w *extractWalk) identifierText(n *tree_sitter.Node) string {
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		child := n.Child(uint(i))
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "identifier", "scoped_identifier", "type_identifier":
			return w.text(child)
		}
	}
	return ""
}

func (w *extractWalk) text(n *tree_sitter.Node) string {
	txt, err := n.Utf8Text(w.source)
	if err != nil {
		return ""
	}
	return txt
}

func (w *extractWalk) newSymbol(name string, kind types.SymbolKind, n *tree_sitter.Node, hasContainer bool, containerID types.SymbolID) types.Symbol {
	start := n.StartPosition()
	line, col := int(start.Row), int(start.Column)
	return types.Symbol{
		ID:           symbolID(w.file, name, line, col),
		Name:         name,
		Kind:         kind,
		File:         w.file,
		Line:         line,
		Column:       col,
		HasContainer: hasContainer,
		ContainerID:  containerID,
	}
}

// symbolID derives a stable id from (file, name, line, column): the same
// declaration re-extracted at the same line and column gets the same id,
// so container references across a put_file survive (spec.md §3 Symbol
// invariant). An edit that moves the declaration changes its id.
func symbolID(file, name string, line, col int) types.SymbolID {
	h := xxhash.New()
	_, _ = h.WriteString(file)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(name)
	_, _ = h.Write([]byte{0})
	var buf [8]byte
	buf[0] = byte(line)
	buf[1] = byte(line >> 8)
	buf[2] = byte(line >> 16)
	buf[3] = byte(line >> 24)
	buf[4] = byte(col)
	buf[5] = byte(col >> 8)
	buf[6] = byte(col >> 16)
	buf[7] = byte(col >> 24)
	_, _ = h.Write(buf[:])
	return types.SymbolID(h.Sum64())
}
