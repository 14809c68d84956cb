package runtype

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Node is one element of a decoded metadata document. Repeated child elements
// keep document order, so a single <Read> and a list of them look the same to
// callers using All.
type Node struct {
	Name     string
	Attrs    map[string]string
	Text     string
	Children []*Node
}

// Child returns the first child element with the given name.
func (n *Node) Child(name string) (*Node, bool) {
	if n == nil {
		return nil, false
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// All returns every child element with the given name.
func (n *Node) All(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Lookup walks the path of element names from n.
func (n *Node) Lookup(path ...string) (*Node, bool) {
	cur := n
	for _, name := range path {
		next, ok := cur.Child(name)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, cur != nil
}

// Value returns the trimmed text of the element at path.
func (n *Node) Value(path ...string) (string, bool) {
	node, ok := n.Lookup(path...)
	if !ok {
		return "", false
	}
	return node.Text, true
}

// Attr returns an attribute of the element.
func (n *Node) Attr(name string) (string, bool) {
	if n == nil {
		return "", false
	}
	v, ok := n.Attrs[name]
	return v, ok
}

// Decode parses an XML document into a tree rooted at a nameless document
// node, so the first path segment of a lookup is the root element name.
func Decode(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	doc := &Node{}
	stack := []*Node{doc}
	text := []*strings.Builder{new(strings.Builder)}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			node := &Node{Name: t.Name.Local}
			if len(t.Attr) > 0 {
				node.Attrs = make(map[string]string, len(t.Attr))
				for _, a := range t.Attr {
					node.Attrs[a.Name.Local] = a.Value
				}
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, node)
			stack = append(stack, node)
			text = append(text, new(strings.Builder))
		case xml.CharData:
			text[len(text)-1].Write(t)
		case xml.EndElement:
			node := stack[len(stack)-1]
			node.Text = strings.TrimSpace(text[len(text)-1].String())
			stack = stack[:len(stack)-1]
			text = text[:len(text)-1]
		}
	}
	if len(stack) != 1 {
		return nil, fmt.Errorf("decode xml: unbalanced document")
	}
	if len(doc.Children) == 0 {
		return nil, fmt.Errorf("decode xml: empty document")
	}
	return doc, nil
}
