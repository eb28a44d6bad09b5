// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest

import (
	"log/slog"
	"strings"
)

// Digester assembles items into the document tree.
//
// path is the cursor: the chain of open containers from the root to the
// current insertion point. Containers in block are the ones where inline
// content opens a paragraph, the root and block environments.
type Digester struct {
	s     *Session
	doc   *Document
	path  []NodeID
	block map[NodeID]bool
	pars  map[NodeID]bool
}

func newDigester(s *Session) *Digester {
	root := s.doc.Root()
	return &Digester{
		s:     s,
		doc:   s.doc,
		path:  []NodeID{root},
		block: map[NodeID]bool{root: true},
		pars:  make(map[NodeID]bool),
	}
}

// Document returns the document being built.
func (d *Digester) Document() *Document {
	return d.doc
}

// top returns the current insertion point.
func (d *Digester) top() NodeID {
	return d.path[len(d.path)-1]
}

// Top returns the current insertion point.
func (d *Digester) Top() NodeID {
	return d.top()
}

func (d *Digester) run() error {
	for {
		item, err := d.s.nextItem()
		if err != nil {
			return err
		}
		if item.Mode == ItemEndOfInput {
			d.closeAll()
			return nil
		}
		if err := d.digest(item); err != nil {
			return err
		}
	}
}

func (d *Digester) digest(item Item) error {
	switch item.Mode {
	case ItemParBreak:
		d.closePar()
	case ItemNode:
		if item.Digest != nil {
			if err := d.s.enter(item.Pos); err != nil {
				return err
			}
			defer d.s.leave()
			return item.Digest(d, item.Node)
		}
		d.place(item)
	case ItemBegin:
		d.place(item)
		d.path = append(d.path, item.Node)
		if item.Block {
			d.block[item.Node] = true
		}
	case ItemEnd:
		return d.close(item)
	}
	return nil
}

// place appends the item's node at the insertion point. Block nodes close
// the open paragraph. Inline nodes reaching a block container open one,
// except for text that is only whitespace, which is dropped.
func (d *Digester) place(item Item) {
	if item.Block || item.Level < LevelPar {
		d.closePar()
		d.doc.Append(d.top(), item.Node)
		return
	}
	if d.block[d.top()] {
		if d.doc.Kind(item.Node) == TextNode && isBlank(d.doc.Text(item.Node)) {
			return
		}
		d.openPar()
	}
	d.appendInline(d.top(), item.Node)
}

// appendInline appends node to parent, merging adjacent text nodes.
func (d *Digester) appendInline(parent, node NodeID) {
	if d.doc.Kind(node) == TextNode {
		if last := d.doc.LastChild(parent); last != NoNode && d.doc.Kind(last) == TextNode {
			d.doc.SetText(last, d.doc.Text(last)+d.doc.Text(node))
			return
		}
	}
	d.doc.Append(parent, node)
}

func (d *Digester) openPar() {
	par := d.doc.CreateElement("par")
	d.doc.SetLevel(par, LevelPar)
	d.doc.Append(d.top(), par)
	d.path = append(d.path, par)
	d.pars[par] = true
}

// closePar closes the current paragraph, if the insertion point is one.
// A paragraph holding only whitespace text is removed.
func (d *Digester) closePar() {
	par := d.top()
	if !d.pars[par] {
		return
	}
	d.path = d.path[:len(d.path)-1]
	for _, child := range d.doc.Children(par) {
		if d.doc.Kind(child) != TextNode || !isBlank(d.doc.Text(child)) {
			d.s.report(slog.LevelDebug, CodeParagraph, Position{Source: d.s.name}, "paragraph %d", par)
			return
		}
	}
	d.doc.Remove(par)
}

// close closes the container named by an end item.
func (d *Digester) close(item Item) error {
	d.closePar()
	top := d.top()
	if len(d.path) == 1 || d.doc.Name(top) != item.Name {
		return structural(ErrCodeMismatchedGroup, item.Pos, "end of %s while %s is open", item.Name, d.doc.Name(top))
	}
	d.path = d.path[:len(d.path)-1]
	return nil
}

func (d *Digester) closeAll() {
	for len(d.path) > 1 {
		d.closePar()
		if len(d.path) > 1 {
			d.path = d.path[:len(d.path)-1]
		}
	}
	d.closePar()
}

// Claim moves the children of the insertion point, other than except, to
// the end of container. It is used by constructs that take the content
// before them, like \over.
func (d *Digester) Claim(container, except NodeID) {
	for _, child := range d.doc.Children(d.top()) {
		if child != except {
			d.doc.Append(container, child)
		}
	}
}

// DigestInto makes container the insertion point and digests items into it
// until a paragraph break, an item below level, an end item or the end of
// input arrives while container is current. That item is put back.
// Items that open containers inside it are digested in place.
func (d *Digester) DigestInto(container NodeID, level Level) error {
	depth := len(d.path)
	d.path = append(d.path, container)
	for {
		item, err := d.s.nextItem()
		if err != nil {
			return err
		}
		stop := item.Mode == ItemEndOfInput
		if d.top() == container {
			switch item.Mode {
			case ItemEnd, ItemParBreak:
				stop = true
			case ItemNode, ItemBegin:
				stop = stop || item.Level < level
			}
		}
		if stop {
			d.s.unreadItem(item)
			break
		}
		if err := d.digest(item); err != nil {
			return err
		}
	}
	d.path = d.path[:depth]
	return nil
}

// Place places node at the insertion point as an inline node at level.
func (d *Digester) Place(node NodeID, level Level) {
	d.place(Item{Mode: ItemNode, Node: node, Level: level})
}

func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
