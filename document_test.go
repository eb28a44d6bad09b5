// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package texdigest_test

import (
	"encoding/json"
	"testing"

	"github.com/mdhender/texdigest"
)

func TestDocument_Tree(t *testing.T) {
	doc := texdigest.NewDocument()
	root := doc.Root()
	if got, want := doc.Outline(root), "(document)"; got != want {
		t.Errorf("empty: got %s, want %s", got, want)
	}
	if got := doc.Parent(root); got != texdigest.NoNode {
		t.Errorf("root parent: got %d, want NoNode", got)
	}

	par := doc.CreateElement("par")
	doc.Append(root, par)
	a := doc.CreateText("a")
	doc.Append(par, a)
	math := doc.CreateElement("math")
	doc.Append(par, math)
	doc.Append(math, doc.CreateText("x"))

	if got, want := doc.Outline(root), `(document (par "a" (math "x")))`; got != want {
		t.Errorf("outline: got %s, want %s", got, want)
	}
	if got, want := doc.TextContent(root), "ax"; got != want {
		t.Errorf("text: got %q, want %q", got, want)
	}
	if got, want := doc.Count(root), 5; got != want {
		t.Errorf("count: got %d, want %d", got, want)
	}
	if got := doc.LastChild(par); got != math {
		t.Errorf("last child: got %d, want %d", got, math)
	}
	if got := doc.LastChild(a); got != texdigest.NoNode {
		t.Errorf("last child of text: got %d, want NoNode", got)
	}
	if got := doc.Kind(a); got != texdigest.TextNode {
		t.Errorf("kind: got %s, want text", got)
	}

	// appending an attached node moves it
	doc.Append(root, math)
	if got, want := doc.Outline(root), `(document (par "a") (math "x"))`; got != want {
		t.Errorf("move: got %s, want %s", got, want)
	}
	if got := doc.Parent(math); got != root {
		t.Errorf("moved parent: got %d, want %d", got, root)
	}

	doc.Remove(par)
	if got, want := doc.Outline(root), `(document (math "x"))`; got != want {
		t.Errorf("remove: got %s, want %s", got, want)
	}
	// removed nodes stay in the arena with their children
	if got, want := doc.Outline(par), `(par "a")`; got != want {
		t.Errorf("removed: got %s, want %s", got, want)
	}
	if got, want := doc.Len(), 5; got != want {
		t.Errorf("len: got %d, want %d", got, want)
	}
}

func TestDocument_Fragment(t *testing.T) {
	doc := texdigest.NewDocument()
	frag := doc.CreateFragment()
	doc.Append(frag, doc.CreateText("a"))
	doc.Append(frag, doc.CreateElement("b"))
	doc.Append(doc.Root(), frag)
	if got, want := doc.Outline(doc.Root()), `(document "a" (b))`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if got := len(doc.Children(frag)); got != 0 {
		t.Errorf("fragment children: got %d, want 0", got)
	}
}

func TestDocument_MarshalJSON(t *testing.T) {
	doc := texdigest.NewDocument()
	sec := doc.CreateElement("section")
	doc.SetAttr(sec, "title", "Intro")
	doc.SetAttr(sec, "level", 3)
	doc.Append(doc.Root(), sec)
	doc.Append(sec, doc.CreateText("say \"hi\""))

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"name":"document","children":[{"name":"section","attrs":{"level":3,"title":"Intro"},"children":[{"text":"say \"hi\""}]}]}`
	if got := string(data); got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}

	if v, ok := doc.Attr(sec, "title"); !ok || v != "Intro" {
		t.Errorf("attr: got %v %v, want Intro true", v, ok)
	}
	if _, ok := doc.Attr(sec, "missing"); ok {
		t.Errorf("missing attr: got ok")
	}
}
