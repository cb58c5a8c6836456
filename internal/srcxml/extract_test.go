package srcxml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arl/conflictscout/internal/model"
)

func TestIsNamedUnitFunctionVsOperator(t *testing.T) {
	fn := &Node{Local: "function", Space: NSSrc}
	assert.True(t, IsNamedUnit(fn))

	op := &Node{Local: "function", Space: NSSrc, Attrs: []Attr{{Local: "type", Value: "operator"}}}
	assert.False(t, IsNamedUnit(op))
}

func TestIsNamedUnitClassExcludesTemplateNested(t *testing.T) {
	tmpl := &Node{Local: "template", Space: NSSrc}
	cls := &Node{Local: "class", Space: NSSrc, Parent: tmpl}
	tmpl.Children = []*Node{cls}
	assert.False(t, IsNamedUnit(cls))

	bareCls := &Node{Local: "class", Space: NSSrc}
	assert.True(t, IsNamedUnit(bareCls))
}

func TestIsNamedUnitMacroBody(t *testing.T) {
	macro := &Node{Local: "macro", Space: NSSrc, Text: "MY_MACRO"}
	block := &Node{Local: "block", Space: NSSrc}
	parent := &Node{Children: []*Node{macro, block}}
	macro.Parent, block.Parent = parent, parent

	assert.True(t, IsNamedUnit(block))

	orphanBlock := &Node{Local: "block", Space: NSSrc}
	assert.False(t, IsNamedUnit(orphanBlock))
}

func TestIsNamedUnitNamespaceScopedDecl(t *testing.T) {
	ns := &Node{Local: "namespace", Space: NSSrc}
	block := &Node{Local: "block", Space: NSSrc, Parent: ns}
	ns.Children = []*Node{block}
	stmt := &Node{Local: "decl_stmt", Space: NSSrc, Parent: block}
	block.Children = []*Node{stmt}
	decl := &Node{Local: "decl", Space: NSSrc, Parent: stmt}
	stmt.Children = []*Node{decl}

	assert.True(t, IsNamedUnit(decl))

	looseDecl := &Node{Local: "decl", Space: NSSrc}
	assert.False(t, IsNamedUnit(looseDecl))
}

func nameNode(text string) *Node {
	return &Node{Local: "name", Space: NSSrc, Text: text}
}

func TestUnitNameBareName(t *testing.T) {
	unit := &Node{Local: "function", Space: NSSrc}
	n := nameNode("doThing")
	n.Parent = unit
	unit.Children = []*Node{n}

	res := UnitName(unit)
	assert.Equal(t, "doThing", res.Name)
}

func TestUnitNameQualifiedChainRecordsReferences(t *testing.T) {
	// Foo::Bar::baz  ->  name=baz, references={Foo, Bar}
	top := &Node{Local: "name", Space: NSSrc}
	a := nameNode("Foo")
	op1 := &Node{Local: "operator", Space: NSSrc, Text: "::"}
	b := nameNode("Bar")
	op2 := &Node{Local: "operator", Space: NSSrc, Text: "::"}
	c := nameNode("baz")
	top.Children = []*Node{a, op1, b, op2, c}
	for _, ch := range top.Children {
		ch.Parent = top
	}

	unit := &Node{Local: "function", Space: NSSrc}
	top.Parent = unit
	unit.Children = []*Node{top}

	res := UnitName(unit)
	assert.Equal(t, "baz", res.Name)
	assert.Contains(t, res.References, "Foo")
	assert.Contains(t, res.References, "Bar")
}

func TestUnitNameLeadingTypenameDiscardsUnit(t *testing.T) {
	top := &Node{Local: "name", Space: NSSrc}
	tn := &Node{Local: "typename", Space: NSSrc}
	rest := nameNode("ignored")
	top.Children = []*Node{tn, rest}
	tn.Parent, rest.Parent = top, top

	unit := &Node{Local: "decl", Space: NSSrc}
	top.Parent = unit
	unit.Children = []*Node{top}

	res := UnitName(unit)
	assert.Equal(t, "", res.Name)
}

func TestUnitNameArgumentListUnionsReferences(t *testing.T) {
	// head(argA, argB) -> name = head, references gathered from arg names
	top := &Node{Local: "name", Space: NSSrc}
	head := nameNode("head")
	argList := &Node{Local: "argument_list", Space: NSSrc}
	argA := nameNode("argA")
	argB := nameNode("argB")
	argList.Children = []*Node{argA, argB}
	argA.Parent, argB.Parent = argList, argList
	top.Children = []*Node{head, argList}
	head.Parent, argList.Parent = top, top

	unit := &Node{Local: "function", Space: NSSrc}
	top.Parent = unit
	unit.Children = []*Node{top}

	res := UnitName(unit)
	assert.Equal(t, "head", res.Name)
	assert.Contains(t, res.References, "argA")
	assert.Contains(t, res.References, "argB")
}

func TestBodyReferencesIncludesCallsTypesAndSelf(t *testing.T) {
	call := &Node{Local: "call", Space: NSSrc}
	calleeName := nameNode("helper")
	call.Children = []*Node{calleeName}
	calleeName.Parent = call

	unit := &Node{Local: "function", Space: NSSrc}
	call.Parent = unit
	unit.Children = []*Node{call}

	refs := BodyReferences(unit, UnitNameResult{Name: "caller", References: map[string]struct{}{}})
	assert.Contains(t, refs, "helper")
	assert.Contains(t, refs, "caller")
}

func TestIncludesOnlyQuoted(t *testing.T) {
	incQuoted := &Node{Local: "include", Space: NSCpp}
	fileQuoted := &Node{Local: "file", Space: NSCpp, Text: `"foo.h"`}
	fileQuoted.Parent = incQuoted
	incQuoted.Children = []*Node{fileQuoted}

	incAngle := &Node{Local: "include", Space: NSCpp}
	fileAngle := &Node{Local: "file", Space: NSCpp, Text: "<stdio.h>"}
	fileAngle.Parent = incAngle
	incAngle.Children = []*Node{fileAngle}

	root := &Node{Local: "unit", Space: NSSrc}
	incQuoted.Parent, incAngle.Parent = root, root
	root.Children = []*Node{incQuoted, incAngle}

	got := Includes(root)
	assert.Equal(t, []string{"foo.h"}, got)
}

func TestMatchingUnitsRestrictsToLineRanges(t *testing.T) {
	inRange := &Node{Local: "function", Space: NSSrc, Attrs: []Attr{{Space: NSPos, Local: "line", Value: "10"}}}
	outOfRange := &Node{Local: "function", Space: NSSrc, Attrs: []Attr{{Space: NSPos, Local: "line", Value: "99"}}}
	root := &Node{Local: "unit", Space: NSSrc, Children: []*Node{inRange, outOfRange}}
	inRange.Parent, outOfRange.Parent = root, root

	matches := MatchingUnits(root, []model.LineRange{{Start: 5, End: 15}})
	require.Len(t, matches, 1)
	assert.Same(t, inRange, matches[0])
}

func TestBuildRecordSortsIncludesAndReferences(t *testing.T) {
	root, err := Decode(strings.NewReader(sampleUnit))
	require.NoError(t, err)
	rec := BuildRecord(root, "foo.cpp")

	assert.Equal(t, []string{"foo.cpp", "foo.h"}, rec.Includes)

	refs, ok := rec.CallsNaive["bar"]
	require.True(t, ok)
	assert.Contains(t, refs, "bar")
	assert.Contains(t, refs, "foo")
	assert.Equal(t, []string{"bar", "foo", "void"}, refs)
}
