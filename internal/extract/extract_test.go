package extract

import (
	"bytes"
	"errors"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movers/internal/domain"
	"movers/internal/snapshot"
)

type fakeCell struct {
	text    string
	graphic bool
}

func (c fakeCell) HasGraphic() bool { return c.graphic }
func (c fakeCell) Text() string     { return c.text }

type fakeRow []Cell

func (r fakeRow) Cells() []Cell { return r }

type fakeBody []Row

func (b fakeBody) Rows() []Row { return b }

func row(texts ...string) fakeRow {
	r := make(fakeRow, 0, len(texts))
	for _, t := range texts {
		if t == CanvasToken {
			r = append(r, fakeCell{graphic: true})
			continue
		}
		r = append(r, fakeCell{text: t})
	}
	return r
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func tokens(toks ...string) iter.Seq[string] {
	return slices.Values(toks)
}

// ---------------------------------------------------------------------------
// Tokenizer
// ---------------------------------------------------------------------------

func TestTokenizeCanvasAndStrippedText(t *testing.T) {
	r := fakeRow{
		fakeCell{text: "  NVDA "},
		fakeCell{text: "NVIDIA Corporation"},
		fakeCell{text: "ignored", graphic: true},
		fakeCell{text: "\t912.40\n"},
	}
	got := slices.Collect(Tokenize(r))
	require.Equal(t, []string{"NVDA", "NVIDIA Corporation", "canvas", "912.40"}, got)
}

func TestTokenizeMultiLineFirstCellOnly(t *testing.T) {
	r := fakeRow{
		fakeCell{text: "AAPL"},
		fakeCell{text: "+1.25\n(+0.8%)"},
		fakeCell{text: "(+0.8%)\n+1.25"},
	}
	got := slices.Collect(Tokenize(r))
	require.Equal(t, []string{"AAPL", "+1.25", "(+0.8%)"}, got)
}

func TestTokenizeSingleUse(t *testing.T) {
	seq := Tokenize(row("A", "B"))
	require.Len(t, slices.Collect(seq), 2)
	assert.Empty(t, slices.Collect(seq), "second pass should yield nothing")
}

func TestPickLinePriority(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{"numeric first", []string{"Apple", "+1.2", "1,234.50"}, "1,234.50"},
		{"delta before percent", []string{"Apple", "5.2%", "+1.2"}, "+1.2"},
		{"percent strips parens", []string{"Apple", "(5.2%)"}, "5.2%"},
		{"default first line", []string{"Apple", "Inc"}, "Apple"},
		{"lone dash is not numeric", []string{"-", "x"}, "-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pickLine(tt.lines))
		})
	}
}

// ---------------------------------------------------------------------------
// Extractor
// ---------------------------------------------------------------------------

func TestExtractRowShape(t *testing.T) {
	_, err := Extract(tokens("ONLY"), DefaultSchema)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRowShape))

	_, err = Extract(tokens("AAPL", "Apple", CanvasToken), DefaultSchema)
	var shape *domain.RowShapeError
	require.ErrorAs(t, err, &shape)
	assert.Equal(t, FieldPrice, shape.Field)
	assert.Equal(t, 3, shape.Tokens)

	raw, err := Extract(tokens("AAPL", "Apple", CanvasToken, "190.10"), DefaultSchema)
	require.NoError(t, err)
	assert.Equal(t, "190.10", raw.Text(FieldPrice))
}

func TestExtractDefaultsTrailingFields(t *testing.T) {
	raw, err := Extract(tokens("AAPL", "Apple", CanvasToken, "190.10", "+1.10", "+0.58%", "52.1M"), DefaultSchema)
	require.NoError(t, err)

	assert.Equal(t, "52.1M", raw.Text(FieldVolume))
	assert.Equal(t, "0", raw.Text(FieldAvgVolume))
	assert.Equal(t, "0", raw.Text(FieldMarketCap))
	assert.Equal(t, "N/A", raw.Text(FieldPERatio))
	assert.True(t, raw[FieldPERatio].Defaulted)
	assert.False(t, raw[FieldVolume].Defaulted)
}

func TestExtractDedicatedSignTokens(t *testing.T) {
	raw, err := Extract(tokens("XYZ", "Xyz Corp", CanvasToken, "4.10", "-", "1.23", "+", "(4.5%)", "1,000", "900", "2.3B", "12.5"), DefaultSchema)
	require.NoError(t, err)

	assert.Equal(t, RawValue{Text: "1.23", Sign: domain.SignMinus}, raw[FieldChange])
	assert.Equal(t, RawValue{Text: "4.5%", Sign: domain.SignPlus}, raw[FieldPct])
	assert.Equal(t, "1,000", raw.Text(FieldVolume))
	assert.Equal(t, "12.5", raw.Text(FieldPERatio))
}

func TestExtractSignTokenAtEndOfRow(t *testing.T) {
	raw, err := Extract(tokens("XYZ", "Xyz Corp", CanvasToken, "4.10", "-"), DefaultSchema)
	require.NoError(t, err)
	assert.Equal(t, domain.SignMinus, raw[FieldChange].Sign)
	assert.Equal(t, "0", raw.Text(FieldChange))
	assert.Equal(t, "0", raw.Text(FieldPct))
}

func TestSchemaValidate(t *testing.T) {
	require.NoError(t, DefaultSchema.Validate())

	bad := Schema{
		{Name: "a", Kind: KindText},
		{Name: "b", Kind: KindText},
		{Name: "c", Kind: KindText, Optional: true},
		{Name: "d", Kind: KindText},
	}
	assert.Error(t, bad.Validate())

	dup := Schema{{Name: "a"}, {Name: "a"}}
	assert.Error(t, dup.Validate())

	assert.Error(t, Schema{{Name: "a"}}.Validate())
}

// ---------------------------------------------------------------------------
// Normalizer
// ---------------------------------------------------------------------------

func normalizeTokens(t *testing.T, toks ...string) domain.Record {
	t.Helper()
	raw, err := Extract(tokens(toks...), DefaultSchema)
	require.NoError(t, err)
	return Normalize(raw, 0, time.Time{}, quietLogger())
}

func TestNormalizeChangeSign(t *testing.T) {
	split := normalizeTokens(t, "A", "A Co", CanvasToken, "10", "-", "1.23", "0%")
	assert.InDelta(t, -1.23, split.Change, 1e-9)

	embedded := normalizeTokens(t, "A", "A Co", CanvasToken, "10", "-1.23", "0%")
	assert.InDelta(t, -1.23, embedded.Change, 1e-9)

	ownWins := normalizeTokens(t, "A", "A Co", CanvasToken, "10", "+", "-1.23", "0%")
	assert.InDelta(t, -1.23, ownWins.Change, 1e-9)

	commas := normalizeTokens(t, "A", "A Co", CanvasToken, "10", "+1,020.50", "0%")
	assert.InDelta(t, 1020.5, commas.Change, 1e-9)
}

func TestNormalizePercentKeepsSign(t *testing.T) {
	tests := []struct {
		toks []string
		want float64
	}{
		{[]string{"+5.2%"}, 5.2},
		{[]string{"-1.1%"}, -1.1},
		{[]string{"(-3.40%)"}, -3.4},
		{[]string{"-", "7.5%"}, -7.5},
		{[]string{"+", "(2,100.0%)"}, 2100},
		{[]string{"N/A"}, 0},
		{[]string{"(N/A)"}, 0},
	}
	for _, tt := range tests {
		toks := append([]string{"A", "A Co", CanvasToken, "10", "0"}, tt.toks...)
		rec := normalizeTokens(t, toks...)
		assert.InDelta(t, tt.want, rec.PctChange, 1e-9, "pct tokens %v", tt.toks)
	}
}

func TestNormalizePriceThousands(t *testing.T) {
	rec := normalizeTokens(t, `"BRK"`, `'Berkshire'`, CanvasToken, "1,234.5")
	assert.Equal(t, 1234.5, rec.Price)
	assert.Equal(t, "BRK", rec.Symbol)
	assert.Equal(t, "Berkshire", rec.Name)

	plain := normalizeTokens(t, "BRK", "Berkshire", CanvasToken, "1234.5")
	assert.Equal(t, rec.Price, plain.Price)
}

func TestNormalizeMarketCap(t *testing.T) {
	tests := []struct {
		raw   string
		value float64
		scale domain.Scale
	}{
		{"2.3B", 2.3, domain.ScaleBillions},
		{"500M", 500, domain.ScaleMillions},
		{"3.1T", 3.1, domain.ScaleTrillions},
		{"42000", 42000, domain.ScaleUnknown},
		{"42,000", 42000, domain.ScaleUnknown},
		{"N/A", 0, domain.ScaleUnknown},
		{"--", 0, domain.ScaleUnknown},
		{"xB", 0, domain.ScaleUnknown},
	}
	for _, tt := range tests {
		rec := normalizeTokens(t, "A", "A Co", CanvasToken, "10", "0", "0%", "0", "0", tt.raw)
		assert.InDelta(t, tt.value, rec.MarketCap, 1e-9, "market cap %q", tt.raw)
		assert.Equal(t, tt.scale, rec.MarketCapScale, "market cap %q", tt.raw)
	}
}

func TestNormalizeVolumeAndPE(t *testing.T) {
	rec := normalizeTokens(t, "A", "A Co", CanvasToken, "10", "0", "0%", "70.250k", "61,447", "1B", "23.4")
	assert.InDelta(t, 70250, rec.Volume, 1e-6)
	assert.InDelta(t, 61447, rec.AvgVolume, 1e-6)
	require.NotNil(t, rec.PERatio)
	assert.InDelta(t, 23.4, *rec.PERatio, 1e-9)

	short := normalizeTokens(t, "A", "A Co", CanvasToken, "10")
	assert.Zero(t, short.Volume)
	assert.Nil(t, short.PERatio)
}

func TestNormalizeFallbackLogsWarning(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	raw, err := Extract(tokens("BAD", "Bad Data", CanvasToken, "n/a", "x", "abc%"), DefaultSchema)
	require.NoError(t, err)
	rec := Normalize(raw, 4, time.Time{}, log)

	assert.Zero(t, rec.Price)
	assert.Zero(t, rec.Change)
	assert.Zero(t, rec.PctChange)
	assert.Equal(t, 4, rec.RowIndex)

	out := buf.String()
	assert.Contains(t, out, "field=price")
	assert.Contains(t, out, "field=change")
	assert.Contains(t, out, "field=pct_change")
	assert.Equal(t, 3, strings.Count(out, "level=WARN"))
}

func TestNormalizeRejectsExponentValues(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	raw, err := Extract(tokens("HUGE", "Huge Corp", CanvasToken, "1e400", "+1E2", "-2.5e1%", "1e3", "5k", "1e309B", "1e2"), DefaultSchema)
	require.NoError(t, err)
	rec := Normalize(raw, 0, time.Time{}, log)

	assert.Zero(t, rec.Price)
	assert.Zero(t, rec.Change)
	assert.Zero(t, rec.PctChange)
	assert.Zero(t, rec.Volume)
	assert.InDelta(t, 5000, rec.AvgVolume, 1e-9)
	assert.Zero(t, rec.MarketCap)
	assert.Nil(t, rec.PERatio)

	out := buf.String()
	for _, field := range []string{"price", "change", "pct_change", "volume", "market_cap", "pe_ratio"} {
		assert.Contains(t, out, "field="+field)
	}
	assert.Contains(t, out, "exponent notation not accepted")
	assert.Equal(t, 6, strings.Count(out, "level=WARN"))
}

func TestParseDecimalRange(t *testing.T) {
	huge := "1" + strings.Repeat("0", 400)
	_, err := parseDecimal(huge)
	assert.ErrorIs(t, err, errOutOfRange)

	f, err := parseDecimal("1234.5")
	require.NoError(t, err)
	assert.InDelta(t, 1234.5, f, 1e-9)
}

// ---------------------------------------------------------------------------
// Assembler
// ---------------------------------------------------------------------------

func TestAssembleAssignsContiguousIndex(t *testing.T) {
	var table domain.Table
	table = Assemble(table, domain.Record{RowIndex: 7, Quote: domain.Quote{Symbol: "A"}})
	table = Assemble(table, domain.Record{RowIndex: 9, Quote: domain.Quote{Symbol: "A"}})

	require.Len(t, table, 2)
	assert.Equal(t, 0, table[0].RowIndex)
	assert.Equal(t, 1, table[1].RowIndex)
	assert.Equal(t, "A", table[1].Symbol, "duplicates are kept")
}

func TestExtractAndNormalizeDropsMalformedRows(t *testing.T) {
	body := fakeBody{
		row("UP", "Up Corp", CanvasToken, "12.00", "+0.59", "+5.2%", "1.2M", "800k", "2.3B", "N/A"),
		row("BAD", "Bad Row", CanvasToken),
		row("DOWN", "Down Inc", CanvasToken, "40.10", "-0.45", "-1.1%", "300k", "350k", "500M", "18.2"),
	}
	now := time.Date(2025, 3, 14, 10, 30, 0, 0, time.Local)

	table := ExtractAndNormalize(body, DefaultSchema, now, quietLogger())
	require.Len(t, table, 2)
	assert.Equal(t, 0, table[0].RowIndex)
	assert.Equal(t, "UP", table[0].Symbol)
	assert.Equal(t, 1, table[1].RowIndex)
	assert.Equal(t, "DOWN", table[1].Symbol)
	for _, r := range table {
		assert.Equal(t, now, r.CapturedAt)
	}

	ranked := snapshot.RankTop(table, len(table))
	require.Len(t, ranked, 2)
	assert.Equal(t, "UP", ranked[0].Symbol)
	assert.InDelta(t, 5.2, ranked[0].PctChange, 1e-9)
	assert.Equal(t, "DOWN", ranked[1].Symbol)
	assert.InDelta(t, -1.1, ranked[1].PctChange, 1e-9)
}

func TestExtractAndNormalizeEmptyBody(t *testing.T) {
	table := ExtractAndNormalize(fakeBody{}, nil, time.Now(), nil)
	assert.Empty(t, table)
}
