package srcxml

import (
	"strings"

	"github.com/arl/conflictscout/internal/model"
)

// IsNamedUnit reports whether n is a named-unit node per spec.md §4.C's
// node-kind table, mirroring constants.py's NAMED_UNIT_QUERY.
func IsNamedUnit(n *Node) bool {
	switch n.Tag() {
	case TagConstructor, TagConstructorDecl, TagDestructor, TagDestructorDecl,
		TagStruct, TagStructDecl, TagEnum, TagTypedef, TagUnion:
		return true
	case TagFunction, TagFunctionDecl:
		return !hasOperatorType(n)
	case TagClass, TagClassDecl:
		return !n.HasAncestorTag(TagTemplate)
	case TagBlock:
		prev := n.PrecedingSibling()
		return prev != nil && prev.Tag() == TagMacro
	case TagDecl:
		return n.Parent != nil && n.Parent.Tag() == TagDeclStmt &&
			n.Parent.Parent != nil && n.Parent.Parent.Tag() == TagBlock &&
			n.Parent.Parent.Parent != nil && n.Parent.Parent.Parent.Tag() == TagNamespace
	}
	return false
}

func hasOperatorType(n *Node) bool {
	v, ok := n.Attr("", "type")
	return ok && v == "operator"
}

// NamedUnits returns every named-unit descendant of root, in document order.
func NamedUnits(root *Node) []*Node {
	return root.FindAll(IsNamedUnit)
}

// UnitNameResult is the outcome of extracting a named unit's name and
// the references gathered incidentally while rewriting it.
type UnitNameResult struct {
	Name       string
	References map[string]struct{}
}

func newUnitNameResult() UnitNameResult {
	return UnitNameResult{References: make(map[string]struct{})}
}

// UnitName extracts unit's name and any referenced names surfaced by
// the rewrite loop itself, per spec.md §4.C's normalization table and
// precompute.py's get_named_unit_name.
func UnitName(unit *Node) UnitNameResult {
	if unit.Tag() == TagBlock {
		// Macro body: the name is the preceding macro token's text.
		macro := unit.PrecedingSibling()
		res := newUnitNameResult()
		if macro != nil {
			res.Name = strings.TrimSpace(collectText(macro))
		}
		return res
	}

	nameChildren := directChildrenOf(unit, TagName)
	if len(nameChildren) == 0 {
		return newUnitNameResult()
	}
	nameUnit := nameChildren[0]
	return rewrite(nameUnit)
}

// directChildrenOf returns unit's immediate children with the given tag.
func directChildrenOf(unit *Node, tag string) []*Node {
	var out []*Node
	for _, c := range unit.Children {
		if c.Tag() == tag {
			out = append(out, c)
		}
	}
	return out
}

// rewrite implements precompute.py's get_named_unit_name rewrite loop
// starting from a <name> element.
func rewrite(nameUnit *Node) UnitNameResult {
	res := newUnitNameResult()

	units := nameUnit.Children
	// Single bare name, possibly with only a position child.
	if (len(units) == 0 || (len(units) == 1 && units[0].Tag() == TagPosition)) && nameUnit.Tag() == TagName {
		res.Name = nameUnit.Text
		return res
	}

	for {
		switch {
		case len(units) == 1 && units[0].Tag() == TagName:
			if strings.TrimSpace(units[0].Text) == "" {
				units = units[0].Children
				continue
			}
			res.Name = units[0].Text
			return res

		case len(units) >= 3 && units[1].Tag() == TagOperator &&
			(units[1].Text == "::" || units[1].Text == "->" || units[1].Text == "."):
			res.References[units[0].Text] = struct{}{}
			units = units[2:]

		case len(units) >= 2 && (units[1].Tag() == TagArgumentList || units[1].Tag() == TagIndex):
			for _, n := range units[1].FindAll(func(c *Node) bool { return c.Tag() == TagName }) {
				if n.Text != "" {
					res.References[n.Text] = struct{}{}
				}
			}
			units = append(append([]*Node{}, units[:1]...), units[2:]...)

		case len(units) >= 1 && (units[0].Tag() == TagOperator || units[0].Tag() == TagModifier):
			units = units[1:]

		case len(units) >= 1 && units[0].Tag() == TagTypename:
			// typenames are used locally and need not be considered.
			return newUnitNameResult()

		case hasComment(units):
			units = dropFirstComment(units)

		default:
			return res
		}
	}
}

func hasComment(units []*Node) bool {
	for _, u := range units {
		if u.Tag() == TagComment {
			return true
		}
	}
	return false
}

func dropFirstComment(units []*Node) []*Node {
	for i, u := range units {
		if u.Tag() == TagComment {
			out := append([]*Node{}, units[:i]...)
			return append(out, units[i+1:]...)
		}
	}
	return units
}

func collectText(n *Node) string {
	var sb strings.Builder
	n.Walk(func(c *Node) { sb.WriteString(c.Text) })
	return sb.String()
}

// BodyReferences returns the full set of names referenced by unit: the
// references surfaced during name extraction, every name found under a
// call or type element in unit's subtree, and unit's own name (the
// self-reference sentinel), per spec.md §4.C "Body references".
func BodyReferences(unit *Node, nameResult UnitNameResult) map[string]struct{} {
	refs := make(map[string]struct{}, len(nameResult.References)+1)
	for r := range nameResult.References {
		refs[r] = struct{}{}
	}
	for _, callOrType := range unit.FindAll(func(c *Node) bool {
		return c.Tag() == TagCall || c.Tag() == TagType
	}) {
		for _, n := range callOrType.FindAll(func(c *Node) bool { return c.Tag() == TagName }) {
			if n.Text != "" {
				refs[n.Text] = struct{}{}
			}
		}
	}
	if nameResult.Name != "" {
		refs[nameResult.Name] = struct{}{}
	}
	return refs
}

// MatchingUnits returns the named-unit descendants of root whose
// subtree contains at least one position line within any of ranges,
// per spec.md §4.F: "an XPath that matches any named-unit node whose
// subtree contains at least one element whose position line lies in
// any of the change ranges."
func MatchingUnits(root *Node, ranges []model.LineRange) []*Node {
	var out []*Node
	for _, unit := range NamedUnits(root) {
		for _, line := range unit.PositionLines() {
			if lineInRanges(line, ranges) {
				out = append(out, unit)
				break
			}
		}
	}
	return out
}

func lineInRanges(line int, ranges []model.LineRange) bool {
	for _, r := range ranges {
		if r.Contains(line) {
			return true
		}
	}
	return false
}

// Includes returns the header paths named by #include "..." directives
// under root, as they appear between quotes (cpp:include/cpp:file text).
func Includes(root *Node) []string {
	var out []string
	for _, inc := range root.FindAll(func(c *Node) bool { return c.Tag() == TagInclude }) {
		for _, file := range directChildrenOf(inc, TagIncludeFile) {
			text := collectText(file)
			// Only quote-delimited includes ("foo.h") are recorded; the
			// angle-bracket form (<foo.h>) is a system header and is not
			// part of the lexical join relation (spec.md §4.B/§3).
			if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
				out = append(out, text[1:len(text)-1])
			}
		}
	}
	return out
}
