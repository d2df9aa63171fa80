package dom

import "github.com/PuerkitoBio/goquery"

// Node is a generic element reference: the synthesized path plus the
// element's normalized text. Used for board-specific selectors (job cards,
// title/company/location regions, apply triggers) where no field or control
// semantics apply.
type Node struct {
	Path string
	Text string
}

// ScanNodes returns all visible elements matching selector in the document.
func ScanNodes(d Doc, selector string) []Node {
	root := parseScoped(d.HTML, "")
	if root == nil {
		return nil
	}
	var nodes []Node
	root.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if isHidden(s) {
			return
		}
		nodes = append(nodes, Node{
			Path: joinFramePath(d.FramePath, cssPath(s)),
			Text: CollapseWhitespace(s.Text()),
		})
	})
	return nodes
}

// Nodes scans all documents of the snapshot.
func (p *PageSnapshot) Nodes(selector string) []Node {
	var out []Node
	for _, d := range p.Docs {
		out = append(out, ScanNodes(d, selector)...)
	}
	return out
}

// FirstText returns the text of the first visible element matching selector,
// or "".
func (p *PageSnapshot) FirstText(selector string) string {
	nodes := p.Nodes(selector)
	if len(nodes) == 0 {
		return ""
	}
	return nodes[0].Text
}

// FirstNode returns the first visible element matching selector, or nil.
func (p *PageSnapshot) FirstNode(selector string) *Node {
	nodes := p.Nodes(selector)
	if len(nodes) == 0 {
		return nil
	}
	return &nodes[0]
}
