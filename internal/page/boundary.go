package page

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// BoundarySelector matches declarative shadow roots: isolated subtrees
// rendered by a host element. Both the standard and the legacy attribute
// name are recognised.
const BoundarySelector = "template[shadowrootmode], template[shadowroot]"

// Tables returns every <table> whose nearest enclosing rendering boundary
// is root. Tables inside nested boundaries belong to those boundaries, and
// tables inside plain (inert) templates belong to nobody.
func Tables(root *html.Node) []*html.Node {
	var out []*html.Node
	goquery.NewDocumentFromNode(root).Find("table").Each(func(_ int, s *goquery.Selection) {
		if ownedBy(s, root) {
			out = append(out, s.Get(0))
		}
	})
	return out
}

// Boundaries returns the rendering boundaries directly nested in root.
func Boundaries(root *html.Node) []*html.Node {
	var out []*html.Node
	goquery.NewDocumentFromNode(root).Find(BoundarySelector).Each(func(_ int, s *goquery.Selection) {
		if ownedBy(s.Parent(), root) {
			out = append(out, s.Get(0))
		}
	})
	return out
}

// IsBoundary reports whether n is a rendering boundary root.
func IsBoundary(n *html.Node) bool {
	return n != nil && goquery.NewDocumentFromNode(n).Is(BoundarySelector)
}

func ownedBy(s *goquery.Selection, root *html.Node) bool {
	owner := s.Closest("template")
	if owner.Length() == 0 {
		return root.Type == html.DocumentNode || !IsBoundary(root)
	}
	return owner.Get(0) == root
}
