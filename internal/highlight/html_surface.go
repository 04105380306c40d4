package highlight

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultExcludeSelector matches regions that must never be highlighted.
const DefaultExcludeSelector = ".annotation-banner, [data-no-annotate]"

// skippedElements never contribute text leaves.
var skippedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Head:     true,
}

// HTMLSurface is a RenderSurface over a parsed HTML job description.
type HTMLSurface struct {
	doc     *goquery.Document
	exclude string
}

// SurfaceOption configures an HTMLSurface.
type SurfaceOption func(*HTMLSurface)

// WithExcludeSelector sets the CSS selector for non-annotatable regions.
func WithExcludeSelector(selector string) SurfaceOption {
	return func(s *HTMLSurface) { s.exclude = selector }
}

// NewHTMLSurface parses content, which may be a fragment or a full document.
func NewHTMLSurface(content string, opts ...SurfaceOption) (*HTMLSurface, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	s := &HTMLSurface{doc: doc, exclude: DefaultExcludeSelector}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// HTML renders the body contents, including any applied markers.
func (s *HTMLSurface) HTML() (string, error) {
	out, err := s.doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("failed to render HTML: %w", err)
	}
	return out, nil
}

// Text returns the visible text of the body.
func (s *HTMLSurface) Text() string {
	return s.doc.Find("body").Text()
}

// MarkedIDs returns the annotation ids of applied markers in document order.
func (s *HTMLSurface) MarkedIDs() []string {
	var ids []string
	s.doc.Find("mark." + MarkerClass).Each(func(_ int, sel *goquery.Selection) {
		if id, ok := sel.Attr("data-annotation-id"); ok {
			ids = append(ids, id)
		}
	})
	return ids
}

type htmlLeaf struct {
	node        *html.Node
	annotatable bool
}

func (l *htmlLeaf) Text() string { return l.node.Data }

func (l *htmlLeaf) InMarker() bool {
	for p := l.node.Parent; p != nil; p = p.Parent {
		if isMarker(p) {
			return true
		}
	}
	return false
}

func (l *htmlLeaf) Annotatable() bool { return l.annotatable }

// TextLeaves enumerates text nodes under body in document order.
func (s *HTMLSurface) TextLeaves() []TextLeaf {
	excluded := make(map[*html.Node]bool)
	if s.exclude != "" {
		for _, n := range s.doc.Find(s.exclude).Nodes {
			excluded[n] = true
		}
	}

	var leaves []TextLeaf
	var walk func(n *html.Node, annotatable bool)
	walk = func(n *html.Node, annotatable bool) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				leaves = append(leaves, &htmlLeaf{node: c, annotatable: annotatable})
			case html.ElementNode:
				if skippedElements[c.DataAtom] {
					continue
				}
				walk(c, annotatable && !excluded[c])
			}
		}
	}
	for _, body := range s.doc.Find("body").Nodes {
		walk(body, !excluded[body])
	}
	return leaves
}

// Split cuts a text leaf in two at a byte offset.
func (s *HTMLSurface) Split(leaf TextLeaf, offset int) (TextLeaf, TextLeaf, error) {
	l, err := s.own(leaf)
	if err != nil {
		return nil, nil, err
	}
	if offset <= 0 || offset >= len(l.node.Data) {
		return nil, nil, fmt.Errorf("split offset %d out of range for text of length %d", offset, len(l.node.Data))
	}

	tail := &html.Node{Type: html.TextNode, Data: l.node.Data[offset:]}
	l.node.Data = l.node.Data[:offset]
	l.node.Parent.InsertBefore(tail, l.node.NextSibling)

	return l, &htmlLeaf{node: tail, annotatable: l.annotatable}, nil
}

// Wrap moves leaf inside a new <mark> element.
func (s *HTMLSurface) Wrap(leaf TextLeaf, m Marker) error {
	l, err := s.own(leaf)
	if err != nil {
		return err
	}

	attrs := []html.Attribute{
		{Key: "class", Val: MarkerClass + " " + m.Class},
		{Key: "data-annotation-id", Val: m.AnnotationID},
	}
	if m.Relevance != "" {
		attrs = append(attrs, html.Attribute{Key: "data-relevance", Val: string(m.Relevance)})
	}
	if m.Label != "" {
		attrs = append(attrs, html.Attribute{Key: "title", Val: m.Label})
	}
	mark := &html.Node{Type: html.ElementNode, DataAtom: atom.Mark, Data: "mark", Attr: attrs}

	parent := l.node.Parent
	parent.InsertBefore(mark, l.node)
	parent.RemoveChild(l.node)
	mark.AppendChild(l.node)
	return nil
}

// ClearMarkers unwraps every highlight marker and merges the text it leaves behind.
func (s *HTMLSurface) ClearMarkers() error {
	s.doc.Find("mark." + MarkerClass).Each(func(_ int, sel *goquery.Selection) {
		mark := sel.Get(0)
		parent := mark.Parent
		if parent == nil {
			return
		}
		for c := mark.FirstChild; c != nil; {
			next := c.NextSibling
			mark.RemoveChild(c)
			parent.InsertBefore(c, mark)
			c = next
		}
		parent.RemoveChild(mark)
	})

	for _, n := range s.doc.Nodes {
		mergeAdjacentText(n)
	}
	return nil
}

func (s *HTMLSurface) own(leaf TextLeaf) (*htmlLeaf, error) {
	l, ok := leaf.(*htmlLeaf)
	if !ok || l.node.Parent == nil {
		return nil, fmt.Errorf("leaf does not belong to this surface")
	}
	return l, nil
}

func isMarker(n *html.Node) bool {
	if n.Type != html.ElementNode || n.DataAtom != atom.Mark {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == MarkerClass {
					return true
				}
			}
		}
	}
	return false
}

// mergeAdjacentText joins consecutive text siblings throughout the subtree rooted at n.
func mergeAdjacentText(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			for c.NextSibling != nil && c.NextSibling.Type == html.TextNode {
				next := c.NextSibling
				c.Data += next.Data
				n.RemoveChild(next)
			}
			continue
		}
		mergeAdjacentText(c)
	}
}
