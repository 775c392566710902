package extract

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// textContent returns the concatenated text of n and its descendants.
func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for _, t := range textNodes(n) {
		b.WriteString(t.Data)
	}
	return b.String()
}

// textNodes returns the text nodes under n in document order.
func textNodes(n *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// root returns the topmost ancestor of n.
func root(n *html.Node) *html.Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

// commonAncestor returns the deepest node containing both a and b (either may
// be the answer itself), or nil when they live in different trees.
func commonAncestor(a, b *html.Node) *html.Node {
	seen := make(map[*html.Node]bool)
	for n := a; n != nil; n = n.Parent {
		seen[n] = true
	}
	for n := b; n != nil; n = n.Parent {
		if seen[n] {
			return n
		}
	}
	return nil
}

// cursor addresses a rune within the flattened text of a tree.
type cursor struct {
	node   int // index into the text node list
	offset int // rune offset within that node
}

func (c cursor) before(o cursor) bool {
	return c.node < o.node || (c.node == o.node && c.offset < o.offset)
}

// flatText is the document-order text of a whole tree.
type flatText struct {
	nodes []*html.Node
	index map[*html.Node]int // text node -> position in nodes
	order map[*html.Node]int // every node -> preorder index
	last  map[*html.Node]int // every node -> preorder index of its last descendant
}

func flatten(top *html.Node) *flatText {
	f := &flatText{
		index: make(map[*html.Node]int),
		order: make(map[*html.Node]int),
		last:  make(map[*html.Node]int),
	}
	counter := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		f.order[n] = counter
		counter++
		if n.Type == html.TextNode {
			f.index[n] = len(f.nodes)
			f.nodes = append(f.nodes, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		f.last[n] = counter - 1
	}
	walk(top)
	return f
}

// cursorAt converts a boundary point to a cursor over the flattened text.
func (f *flatText) cursorAt(p Position) cursor {
	if p.Node.Type == html.TextNode {
		return cursor{
			node:   f.index[p.Node],
			offset: clamp(p.Offset, 0, utf8.RuneCountInString(p.Node.Data)),
		}
	}

	// Element boundary: the point before child[Offset], or after the last child
	target := f.last[p.Node] + 1
	i := 0
	for c := p.Node.FirstChild; c != nil; c = c.NextSibling {
		if i == p.Offset {
			target = f.order[c]
			break
		}
		i++
	}

	for idx, t := range f.nodes {
		if f.order[t] >= target {
			return cursor{node: idx}
		}
	}
	return cursor{node: len(f.nodes)}
}

// selectedText returns the raw text between the selection boundaries.
func selectedText(sel *Selection) string {
	top := root(sel.Start.Node)
	if root(sel.End.Node) != top {
		return ""
	}
	f := flatten(top)
	start, end := f.cursorAt(sel.Start), f.cursorAt(sel.End)
	if end.before(start) {
		start, end = end, start
	}

	var b strings.Builder
	for i := start.node; i <= end.node && i < len(f.nodes); i++ {
		r := []rune(f.nodes[i].Data)
		from, to := 0, len(r)
		if i == start.node {
			from = start.offset
		}
		if i == end.node {
			to = end.offset
		}
		if from < to {
			b.WriteString(string(r[from:to]))
		}
	}
	return b.String()
}

// SelectText returns a selection spanning the first occurrence of text within
// the flattened text of n. The selection may cross element boundaries.
func SelectText(n *html.Node, text string) (*Selection, bool) {
	if n == nil || text == "" {
		return nil, false
	}
	nodes := textNodes(n)

	var b strings.Builder
	starts := make([]int, len(nodes)) // rune offset of each node in the concatenation
	total := 0
	for i, t := range nodes {
		starts[i] = total
		b.WriteString(t.Data)
		total += utf8.RuneCountInString(t.Data)
	}

	full := b.String()
	idx := strings.Index(full, text)
	if idx < 0 {
		return nil, false
	}
	from := utf8.RuneCountInString(full[:idx])
	to := from + utf8.RuneCountInString(text)

	sel := &Selection{}
	for i, t := range nodes {
		length := utf8.RuneCountInString(t.Data)
		if sel.Start.Node == nil && from < starts[i]+length {
			sel.Start = Position{Node: t, Offset: from - starts[i]}
		}
		if to > starts[i] && to <= starts[i]+length {
			sel.End = Position{Node: t, Offset: to - starts[i]}
			break
		}
	}
	if !sel.Active() {
		return nil, false
	}
	return sel, true
}
