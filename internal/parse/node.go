package parse

import (
	"bytes"
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"movers/internal/domain"
	"movers/internal/extract"
)

// NodeBackend walks the raw x/net/html tree for the first tbody anywhere in
// the document. It ignores selectors, so it still finds a table when the
// page layout no longer matches the primary backend's selector.
type NodeBackend struct{}

// Name returns the backend identifier.
func (NodeBackend) Name() string { return "html" }

// Locate parses doc and returns its first tbody element.
func (NodeBackend) Locate(doc []byte) (extract.TableBody, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	tbody := findElement(root, atom.Tbody)
	if tbody == nil {
		return nil, domain.ErrDocumentLocate
	}
	return nodeBody{n: tbody}, nil
}

type nodeBody struct{ n *html.Node }

func (b nodeBody) Rows() []extract.Row {
	trs := childElements(b.n, atom.Tr)
	rows := make([]extract.Row, len(trs))
	for i, tr := range trs {
		rows[i] = nodeRow{n: tr}
	}
	return rows
}

type nodeRow struct{ n *html.Node }

func (r nodeRow) Cells() []extract.Cell {
	tds := childElements(r.n, atom.Td)
	cells := make([]extract.Cell, len(tds))
	for i, td := range tds {
		cells[i] = nodeCell{n: td}
	}
	return cells
}

type nodeCell struct{ n *html.Node }

func (c nodeCell) HasGraphic() bool { return findElement(c.n, atom.Canvas) != nil }
func (c nodeCell) Text() string     { return nodeText(c.n) }
