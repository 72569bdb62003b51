// Package dom is a small document layer over golang.org/x/net/html. It gives
// the table host and its plugins the handful of element operations they need
// (attributes, classes, text, tree edits) and renders the result back to HTML.
package dom

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML document.
type Document struct {
	root *html.Node
}

// Parse reads a full HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseString is Parse for in-memory markup.
func ParseString(markup string) (*Document, error) {
	return Parse(strings.NewReader(markup))
}

// GetElementByID returns the first element with the given id, or nil.
func (d *Document) GetElementByID(id string) *Element {
	if d == nil || d.root == nil || id == "" {
		return nil
	}
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && attr(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	return wrap(found)
}

// CreateElement returns a detached element with the given tag.
func (d *Document) CreateElement(tag string) *Element {
	return NewElement(tag)
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document, returning the markup.
func (d *Document) String() string {
	var b strings.Builder
	if err := d.Render(&b); err != nil {
		return ""
	}
	return b.String()
}

// Element wraps an element node.
type Element struct {
	node *html.Node
}

// NewElement creates a detached element.
func NewElement(tag string) *Element {
	a := atom.Lookup([]byte(tag))
	return &Element{node: &html.Node{Type: html.ElementNode, Data: tag, DataAtom: a}}
}

func wrap(n *html.Node) *Element {
	if n == nil {
		return nil
	}
	return &Element{node: n}
}

// Node exposes the underlying html node.
func (e *Element) Node() *html.Node { return e.node }

// Tag returns the lower-case tag name.
func (e *Element) Tag() string { return strings.ToLower(e.node.Data) }

// Is reports whether the element has the given tag atom.
func (e *Element) Is(a atom.Atom) bool {
	return e != nil && e.node.Type == html.ElementNode && e.node.DataAtom == a
}

// Same reports whether both wrappers point at the same node.
func (e *Element) Same(other *Element) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.node == other.node
}

// ID returns the id attribute.
func (e *Element) ID() string { return attr(e.node, "id") }

// Attr returns the attribute value and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// AttrOr returns the attribute value or fallback when absent.
func (e *Element) AttrOr(name, fallback string) string {
	if v, ok := e.Attr(name); ok {
		return v
	}
	return fallback
}

// HasAttr reports whether the attribute is present.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.Attr(name)
	return ok
}

// SetAttr sets or replaces an attribute.
func (e *Element) SetAttr(name, value string) {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

// RemoveAttr deletes an attribute if present.
func (e *Element) RemoveAttr(name string) {
	attrs := e.node.Attr[:0]
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		attrs = append(attrs, a)
	}
	e.node.Attr = attrs
}

// Classes returns the class list.
func (e *Element) Classes() []string {
	return strings.Fields(attr(e.node, "class"))
}

// HasClass reports whether the class list contains name.
func (e *Element) HasClass(name string) bool {
	for _, c := range e.Classes() {
		if c == name {
			return true
		}
	}
	return false
}

// AddClass appends name to the class list when missing.
func (e *Element) AddClass(name string) {
	if name == "" || e.HasClass(name) {
		return
	}
	e.SetAttr("class", strings.TrimSpace(attr(e.node, "class")+" "+name))
}

// RemoveClass removes name from the class list.
func (e *Element) RemoveClass(name string) {
	if !e.HasClass(name) {
		return
	}
	kept := make([]string, 0, 4)
	for _, c := range e.Classes() {
		if c != name {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		e.RemoveAttr("class")
		return
	}
	e.SetAttr("class", strings.Join(kept, " "))
}

// ToggleClass adds or removes name depending on on.
func (e *Element) ToggleClass(name string, on bool) {
	if on {
		e.AddClass(name)
	} else {
		e.RemoveClass(name)
	}
}

// SetStyle sets one CSS property in the style attribute.
func (e *Element) SetStyle(property, value string) {
	decls := parseStyle(attr(e.node, "style"))
	replaced := false
	for i := range decls {
		if decls[i][0] == property {
			decls[i][1] = value
			replaced = true
		}
	}
	if !replaced {
		decls = append(decls, [2]string{property, value})
	}
	e.writeStyle(decls)
}

// Style returns a CSS property from the style attribute.
func (e *Element) Style(property string) string {
	for _, d := range parseStyle(attr(e.node, "style")) {
		if d[0] == property {
			return d[1]
		}
	}
	return ""
}

// RemoveStyle deletes one CSS property.
func (e *Element) RemoveStyle(property string) {
	decls := parseStyle(attr(e.node, "style"))
	kept := decls[:0]
	for _, d := range decls {
		if d[0] != property {
			kept = append(kept, d)
		}
	}
	e.writeStyle(kept)
}

func (e *Element) writeStyle(decls [][2]string) {
	if len(decls) == 0 {
		e.RemoveAttr("style")
		return
	}
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d[0]+": "+d[1])
	}
	e.SetAttr("style", strings.Join(parts, "; "))
}

func parseStyle(s string) [][2]string {
	var out [][2]string
	for _, decl := range strings.Split(s, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, [2]string{name, strings.TrimSpace(value)})
	}
	return out
}

// Text returns the concatenated, trimmed text content.
func (e *Element) Text() string {
	var b strings.Builder
	walk(e.node, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		return true
	})
	return strings.TrimSpace(b.String())
}

// TextSkipping is Text but ignores element subtrees carrying the attribute.
func (e *Element) TextSkipping(skipAttr string) string {
	var b strings.Builder
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				b.WriteString(c.Data)
			case html.ElementNode:
				if _, skip := (&Element{node: c}).Attr(skipAttr); skip {
					continue
				}
				visit(c)
			}
		}
	}
	visit(e.node)
	return strings.TrimSpace(b.String())
}

// ReplaceText removes every child except element subtrees carrying keepAttr,
// then inserts text as the first child.
func (e *Element) ReplaceText(text, keepAttr string) {
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		keep := false
		if c.Type == html.ElementNode {
			_, keep = (&Element{node: c}).Attr(keepAttr)
		}
		if !keep {
			e.node.RemoveChild(c)
		}
		c = next
	}
	textNode := &html.Node{Type: html.TextNode, Data: text}
	if e.node.FirstChild == nil {
		e.node.AppendChild(textNode)
		return
	}
	e.node.InsertBefore(textNode, e.node.FirstChild)
}

// SetText replaces all children with a single text node.
func (e *Element) SetText(text string) {
	e.Clear()
	e.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// Clear removes all children.
func (e *Element) Clear() {
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.node.RemoveChild(c)
		c = next
	}
}

// Parent returns the parent element, or nil.
func (e *Element) Parent() *Element {
	if e.node.Parent == nil || e.node.Parent.Type != html.ElementNode {
		return nil
	}
	return wrap(e.node.Parent)
}

// Children returns direct element children.
func (e *Element) Children() []*Element {
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, wrap(c))
		}
	}
	return out
}

// ChildrenByTag returns direct element children with the given atom.
func (e *Element) ChildrenByTag(a atom.Atom) []*Element {
	var out []*Element
	for _, c := range e.Children() {
		if c.node.DataAtom == a {
			out = append(out, c)
		}
	}
	return out
}

// FirstChildByTag returns the first direct child with the given atom.
func (e *Element) FirstChildByTag(a atom.Atom) *Element {
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return wrap(c)
		}
	}
	return nil
}

// FindAll returns descendants with the given atom in document order.
func (e *Element) FindAll(a atom.Atom) []*Element {
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		walk(c, func(n *html.Node) bool {
			if n.Type == html.ElementNode && n.DataAtom == a {
				out = append(out, wrap(n))
			}
			return true
		})
	}
	return out
}

// FindByClass returns the first descendant carrying the class.
func (e *Element) FindByClass(class string) *Element {
	var found *html.Node
	for c := e.node.FirstChild; c != nil && found == nil; c = c.NextSibling {
		walk(c, func(n *html.Node) bool {
			if n.Type == html.ElementNode && hasClass(n, class) {
				found = n
				return false
			}
			return true
		})
	}
	return wrap(found)
}

// AppendChild appends child, detaching it from any previous parent.
func (e *Element) AppendChild(child *Element) {
	detach(child.node)
	e.node.AppendChild(child.node)
}

// PrependChild inserts child as the first child.
func (e *Element) PrependChild(child *Element) {
	detach(child.node)
	if e.node.FirstChild == nil {
		e.node.AppendChild(child.node)
		return
	}
	e.node.InsertBefore(child.node, e.node.FirstChild)
}

// InsertBefore inserts child before ref, which must be a child of e. A nil
// ref appends.
func (e *Element) InsertBefore(child, ref *Element) {
	detach(child.node)
	if ref == nil {
		e.node.AppendChild(child.node)
		return
	}
	e.node.InsertBefore(child.node, ref.node)
}

// Remove detaches the element from its parent.
func (e *Element) Remove() {
	detach(e.node)
}

// Attached reports whether the element still has a parent.
func (e *Element) Attached() bool {
	return e.node.Parent != nil
}

// Render writes the element subtree as HTML.
func (e *Element) Render(w io.Writer) error {
	return html.Render(w, e.node)
}

// HTML renders the element subtree, returning the markup.
func (e *Element) HTML() string {
	var b strings.Builder
	if err := e.Render(&b); err != nil {
		return ""
	}
	return b.String()
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// walk visits n and its descendants depth-first until fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}
