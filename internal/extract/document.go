// Package extract turns located table rows into normalized quote records.
//
// The pipeline runs per row: Tokenize yields one token per cell, Extract
// walks the tokens against a declarative Schema to produce RawFields,
// Normalize converts those strings into a domain.Record, and Assemble
// appends the record to the pass's table. ExtractAndNormalize sequences all
// four for a whole table body.
package extract

// Cell is one column value within a row.
type Cell interface {
	// HasGraphic reports whether the cell embeds a graphic element such as
	// a canvas chart.
	HasGraphic() bool
	// Text returns the cell's inner text. Separate text runs are joined by
	// newlines so stacked values survive as separate lines.
	Text() string
}

// Row is an ordered sequence of cells in document order.
type Row interface {
	Cells() []Cell
}

// TableBody is a located table body.
type TableBody interface {
	Rows() []Row
}
