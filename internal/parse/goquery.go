package parse

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"movers/internal/domain"
	"movers/internal/extract"
)

// DefaultTableSelector picks the body of the first table in the document.
const DefaultTableSelector = "table tbody"

// GoqueryBackend locates the table body with a CSS selector.
type GoqueryBackend struct {
	selector string
}

// NewGoqueryBackend returns a backend using selector, or
// DefaultTableSelector when selector is empty.
func NewGoqueryBackend(selector string) *GoqueryBackend {
	if selector == "" {
		selector = DefaultTableSelector
	}
	return &GoqueryBackend{selector: selector}
}

// Name returns the backend identifier.
func (b *GoqueryBackend) Name() string { return "goquery" }

// Locate parses doc and returns the first element matching the selector.
func (b *GoqueryBackend) Locate(doc []byte) (extract.TableBody, error) {
	d, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	sel := d.Find(b.selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: selector %q", domain.ErrDocumentLocate, b.selector)
	}
	return queryBody{sel: sel}, nil
}

type queryBody struct{ sel *goquery.Selection }

func (q queryBody) Rows() []extract.Row {
	var rows []extract.Row
	q.sel.ChildrenFiltered("tr").Each(func(_ int, s *goquery.Selection) {
		rows = append(rows, queryRow{sel: s})
	})
	return rows
}

type queryRow struct{ sel *goquery.Selection }

func (q queryRow) Cells() []extract.Cell {
	var cells []extract.Cell
	q.sel.ChildrenFiltered("td").Each(func(_ int, s *goquery.Selection) {
		cells = append(cells, queryCell{sel: s})
	})
	return cells
}

type queryCell struct{ sel *goquery.Selection }

func (q queryCell) HasGraphic() bool {
	return q.sel.Find("canvas").Length() > 0
}

func (q queryCell) Text() string {
	if q.sel.Length() == 0 {
		return ""
	}
	return nodeText(q.sel.Get(0))
}
