// Package srcxml drives the external srcml parser and extracts named
// units and their referenced names from its XML output, per spec.md
// §4.C.
package srcxml

import (
	"encoding/xml"
	"io"
	"strconv"
)

// Attr is a namespaced XML attribute.
type Attr struct {
	Space, Local, Value string
}

// Node is one element of a decoded srcML document. Text holds only the
// character data that is an immediate child of the node (not nested
// inside child elements), mirroring lxml's .text semantics closely
// enough for the name-extraction rules in precompute.py.
type Node struct {
	Space, Local string
	Attrs        []Attr
	Children     []*Node
	Text         string
	Parent       *Node
}

// Tag returns the Clark-notation tag ("{namespace}local") used
// throughout constants.py and mirrored by the Tag* constants below.
func (n *Node) Tag() string {
	if n.Space == "" {
		return n.Local
	}
	return "{" + n.Space + "}" + n.Local
}

// Attr returns the value of the attribute with the given namespace and
// local name, and whether it was present.
func (n *Node) Attr(space, local string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Space == space && a.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// PrecedingSibling returns the sibling immediately before n in its
// parent's child list, or nil if n is first or has no parent.
func (n *Node) PrecedingSibling() *Node {
	if n.Parent == nil {
		return nil
	}
	for i, c := range n.Parent.Children {
		if c == n {
			if i == 0 {
				return nil
			}
			return n.Parent.Children[i-1]
		}
	}
	return nil
}

// HasAncestorTag reports whether any ancestor of n (exclusive) has tag.
func (n *Node) HasAncestorTag(tag string) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Tag() == tag {
			return true
		}
	}
	return false
}

// Walk visits n and all its descendants in document order.
func (n *Node) Walk(visit func(*Node)) {
	visit(n)
	for _, c := range n.Children {
		c.Walk(visit)
	}
}

// FindAll returns every descendant-or-self node (in document order)
// for which match returns true.
func (n *Node) FindAll(match func(*Node) bool) []*Node {
	var out []*Node
	n.Walk(func(c *Node) {
		if match(c) {
			out = append(out, c)
		}
	})
	return out
}

// PositionLines returns every line number attached to n or a
// descendant, whether carried as a pos:line attribute directly on the
// element or on a nested pos:position element, used to test whether a
// node's extent intersects a change range.
func (n *Node) PositionLines() []int {
	var lines []int
	n.Walk(func(c *Node) {
		if v, ok := c.Attr(NSPos, "line"); ok {
			if line, err := strconv.Atoi(v); err == nil {
				lines = append(lines, line)
			}
		}
	})
	return lines
}

// Decode parses r into a Node tree. On malformed XML it returns the
// partial tree decoded up to the failure point along with the error,
// so callers can recover truncated documents per spec.md §4.C/§7.
func Decode(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	var root, cur *Node
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return root, nil
		}
		if err != nil {
			return root, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Space: t.Name.Space, Local: t.Name.Local, Parent: cur}
			for _, a := range t.Attr {
				n.Attrs = append(n.Attrs, Attr{Space: a.Name.Space, Local: a.Name.Local, Value: a.Value})
			}
			if cur != nil {
				cur.Children = append(cur.Children, n)
			} else {
				root = n
			}
			cur = n
		case xml.EndElement:
			if cur != nil {
				cur = cur.Parent
			}
		case xml.CharData:
			if cur != nil {
				cur.Text += string(t)
			}
		}
	}
}
