// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Level orders nodes by how much of the document they may span.
// A construct may only claim nodes opened at its own level or deeper.
// The zero Level is unset and means LevelCommand in a Command.
type Level int

const (
	LevelDocument      Level = -1 << 20
	LevelPart          Level = 1
	LevelChapter       Level = 2
	LevelSection       Level = 3
	LevelSubsection    Level = 4
	LevelSubsubsection Level = 5
	LevelParagraph     Level = 6
	LevelSubparagraph  Level = 7
	LevelPar           Level = 100
	LevelEnvironment   Level = 1000
	LevelCharacter     Level = 10000
	LevelCommand       Level = 10000
)

// NodeID addresses a node in a Document. The root is always 0.
type NodeID int

// NoNode is returned when there is no such node, e.g. the parent of the root.
const NoNode NodeID = -1

// NodeKind is the kind of a document node.
type NodeKind int

const (
	ElementNode NodeKind = iota
	TextNode
	FragmentNode
)

func (k NodeKind) String() string {
	switch k {
	case ElementNode:
		return "element"
	case TextNode:
		return "text"
	case FragmentNode:
		return "fragment"
	}
	return "NodeKind(" + strconv.Itoa(int(k)) + ")"
}

type node struct {
	kind     NodeKind
	name     string
	text     string
	level    Level
	attrs    map[string]any
	parent   NodeID
	children []NodeID
}

// Document is an arena of nodes. Nodes refer to each other by index, so
// moving a node is a matter of updating two child lists.
//
// Nodes are never freed. A node that is removed from the tree stays in the
// arena and may be appended again.
type Document struct {
	nodes []node
}

// NewDocument returns a document holding only the root element.
func NewDocument() *Document {
	d := &Document{}
	d.nodes = append(d.nodes, node{kind: ElementNode, name: "document", level: LevelDocument, parent: NoNode})
	return d
}

// Root returns the root element.
func (d *Document) Root() NodeID {
	return 0
}

// Len returns the number of nodes in the arena, attached or not.
func (d *Document) Len() int {
	return len(d.nodes)
}

func (d *Document) add(n node) NodeID {
	n.parent = NoNode
	d.nodes = append(d.nodes, n)
	return NodeID(len(d.nodes) - 1)
}

// CreateElement returns a new, detached element at the command level.
func (d *Document) CreateElement(name string) NodeID {
	return d.add(node{kind: ElementNode, name: name, level: LevelCommand})
}

// CreateText returns a new, detached text node.
func (d *Document) CreateText(text string) NodeID {
	return d.add(node{kind: TextNode, name: "#text", text: text, level: LevelCharacter})
}

// CreateFragment returns a new, detached fragment. Appending a fragment
// appends its children instead.
func (d *Document) CreateFragment() NodeID {
	return d.add(node{kind: FragmentNode, name: "#document-fragment", level: LevelCommand})
}

// Append moves child to the end of parent's children, detaching it
// from its current parent first.
func (d *Document) Append(parent, child NodeID) {
	if d.nodes[child].kind == FragmentNode {
		for _, grandchild := range d.Children(child) {
			d.Append(parent, grandchild)
		}
		return
	}
	d.Remove(child)
	d.nodes[parent].children = append(d.nodes[parent].children, child)
	d.nodes[child].parent = parent
}

// Remove detaches the node from its parent. The node keeps its children.
func (d *Document) Remove(id NodeID) {
	parent := d.nodes[id].parent
	if parent == NoNode {
		return
	}
	siblings := d.nodes[parent].children
	for i, sibling := range siblings {
		if sibling == id {
			d.nodes[parent].children = append(siblings[:i:i], siblings[i+1:]...)
			break
		}
	}
	d.nodes[id].parent = NoNode
}

// Children returns a copy of the node's child list.
func (d *Document) Children(id NodeID) []NodeID {
	return append([]NodeID(nil), d.nodes[id].children...)
}

// LastChild returns the last child of the node, or NoNode.
func (d *Document) LastChild(id NodeID) NodeID {
	children := d.nodes[id].children
	if len(children) == 0 {
		return NoNode
	}
	return children[len(children)-1]
}

func (d *Document) Parent(id NodeID) NodeID {
	return d.nodes[id].parent
}

func (d *Document) Kind(id NodeID) NodeKind {
	return d.nodes[id].kind
}

func (d *Document) Name(id NodeID) string {
	return d.nodes[id].name
}

func (d *Document) Text(id NodeID) string {
	return d.nodes[id].text
}

func (d *Document) SetText(id NodeID, text string) {
	d.nodes[id].text = text
}

func (d *Document) Level(id NodeID) Level {
	return d.nodes[id].level
}

func (d *Document) SetLevel(id NodeID, level Level) {
	d.nodes[id].level = level
}

// Attr returns the attribute and whether it is set.
func (d *Document) Attr(id NodeID, key string) (any, bool) {
	v, ok := d.nodes[id].attrs[key]
	return v, ok
}

func (d *Document) SetAttr(id NodeID, key string, value any) {
	if d.nodes[id].attrs == nil {
		d.nodes[id].attrs = make(map[string]any)
	}
	d.nodes[id].attrs[key] = value
}

// TextContent returns the text of the node and all of its descendants.
func (d *Document) TextContent(id NodeID) string {
	var sb strings.Builder
	d.textContent(&sb, id)
	return sb.String()
}

func (d *Document) textContent(sb *strings.Builder, id NodeID) {
	n := &d.nodes[id]
	if n.kind == TextNode {
		sb.WriteString(n.text)
		return
	}
	for _, child := range n.children {
		d.textContent(sb, child)
	}
}

// Outline returns the subtree as an S-expression, with elements written
// as (name children...) and text as a quoted string, e.g.
//
//	(document (par "a" (math "x")))
func (d *Document) Outline(id NodeID) string {
	var sb strings.Builder
	d.outline(&sb, id)
	return sb.String()
}

func (d *Document) outline(sb *strings.Builder, id NodeID) {
	n := &d.nodes[id]
	if n.kind == TextNode {
		sb.WriteString(strconv.Quote(n.text))
		return
	}
	sb.WriteByte('(')
	sb.WriteString(n.name)
	for _, child := range n.children {
		sb.WriteByte(' ')
		d.outline(sb, child)
	}
	sb.WriteByte(')')
}

// MarshalJSON writes the tree from the root.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.marshal(&buf, d.Root()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d *Document) marshal(buf *bytes.Buffer, id NodeID) error {
	n := &d.nodes[id]
	if n.kind == TextNode {
		text, err := json.Marshal(n.text)
		if err != nil {
			return err
		}
		buf.WriteString(`{"text":`)
		buf.Write(text)
		buf.WriteByte('}')
		return nil
	}
	name, err := json.Marshal(n.name)
	if err != nil {
		return err
	}
	buf.WriteString(`{"name":`)
	buf.Write(name)
	if len(n.attrs) != 0 {
		keys := make([]string, 0, len(n.attrs))
		for key := range n.attrs {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		buf.WriteString(`,"attrs":{`)
		for i, key := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(key)
			if err != nil {
				return err
			}
			v, err := json.Marshal(n.attrs[key])
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			buf.Write(v)
		}
		buf.WriteByte('}')
	}
	if len(n.children) != 0 {
		buf.WriteString(`,"children":[`)
		for i, child := range n.children {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := d.marshal(buf, child); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	}
	buf.WriteByte('}')
	return nil
}

// Count returns the number of nodes attached under id, including id.
func (d *Document) Count(id NodeID) int {
	n := 1
	for _, child := range d.nodes[id].children {
		n += d.Count(child)
	}
	return n
}
