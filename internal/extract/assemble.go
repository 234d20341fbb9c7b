package extract

import (
	"log/slog"
	"time"

	"movers/internal/domain"
)

// Assemble appends rec to table with RowIndex set to the table's current
// length, so indexes stay contiguous when earlier rows were dropped.
func Assemble(table domain.Table, rec domain.Record) domain.Table {
	rec.RowIndex = len(table)
	return append(table, rec)
}

// ExtractAndNormalize runs every row of body through the pipeline and
// returns the resulting table. Rows that fail extraction are logged and
// skipped. now is used as the capture time for every row of the pass.
func ExtractAndNormalize(body TableBody, schema Schema, now time.Time, log *slog.Logger) domain.Table {
	if log == nil {
		log = slog.Default()
	}
	if schema == nil {
		schema = DefaultSchema
	}

	rows := body.Rows()
	table := make(domain.Table, 0, len(rows))
	for i, row := range rows {
		raw, err := Extract(Tokenize(row), schema)
		if err != nil {
			log.Warn("dropping row", "row", i, "error", err)
			continue
		}
		table = Assemble(table, Normalize(raw, len(table), now, log))
	}

	log.Debug("extracted table", "rows", len(rows), "kept", len(table))
	return table
}
