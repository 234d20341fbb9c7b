package extract

import (
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"movers/internal/domain"
)

var (
	errEmpty      = errors.New("empty value")
	errExponent   = errors.New("exponent notation not accepted")
	errOutOfRange = errors.New("value out of range")
)

// Normalize converts raw into a typed record. It never fails: a field that
// cannot be parsed falls back to its default and a warning is logged.
func Normalize(raw RawFields, rowIndex int, capturedAt time.Time, log *slog.Logger) domain.Record {
	if log == nil {
		log = slog.Default()
	}
	symbol := cleanText(raw.Text(FieldSymbol))
	n := normalizer{log: log, symbol: symbol, row: rowIndex}

	q := domain.Quote{
		Symbol:     symbol,
		Name:       cleanText(raw.Text(FieldName)),
		CapturedAt: capturedAt,
	}
	q.Price = n.price(raw)
	q.Change = n.change(raw)
	q.PctChange = n.percent(raw)
	q.Volume = n.volume(raw, FieldVolume)
	q.AvgVolume = n.volume(raw, FieldAvgVolume)
	q.MarketCap, q.MarketCapScale = n.marketCap(raw)
	q.PERatio = n.peRatio(raw)

	return domain.Record{RowIndex: rowIndex, Quote: q}
}

type normalizer struct {
	log    *slog.Logger
	symbol string
	row    int
}

func (n normalizer) warn(field, raw string, err error) {
	w := &domain.FieldParseWarning{Field: field, Raw: raw, Err: err}
	n.log.Warn("using default for unparseable field",
		"symbol", n.symbol, "row", n.row, "field", field, "raw", raw, "error", w)
}

func (n normalizer) price(raw RawFields) float64 {
	v, ok := raw[FieldPrice]
	if !ok {
		return 0
	}
	f, err := parseDecimal(strings.ReplaceAll(v.Text, ",", ""))
	if err != nil {
		n.warn(FieldPrice, v.Text, err)
		return 0
	}
	if f < 0 {
		n.warn(FieldPrice, v.Text, errors.New("negative price"))
		return 0
	}
	return f
}

// change applies the value's own leading sign if present, otherwise the
// dedicated sign token captured during extraction.
func (n normalizer) change(raw RawFields) float64 {
	v, ok := raw[FieldChange]
	if !ok {
		return 0
	}
	own, mag := splitSign(strings.ReplaceAll(v.Text, ",", ""))
	f, err := parseDecimal(mag)
	if err != nil {
		n.warn(FieldChange, v.Text, err)
		return 0
	}
	return pickSign(own, v.Sign).Apply(f)
}

func (n normalizer) percent(raw RawFields) float64 {
	v, ok := raw[FieldPct]
	if !ok {
		return 0
	}
	text := strings.TrimSpace(stripParens(strings.TrimSpace(v.Text)))
	if text == "N/A" {
		return 0
	}
	own, _ := splitSign(text)
	mag := percentStrip.Replace(text)
	f, err := parseDecimal(mag)
	if err != nil {
		n.warn(FieldPct, v.Text, err)
		return 0
	}
	return pickSign(own, v.Sign).Apply(f)
}

var percentStrip = strings.NewReplacer("%", "", "+", "", "-", "", ",", "")

var scaleSuffixes = []struct {
	letter string
	scale  domain.Scale
}{
	{"T", domain.ScaleTrillions},
	{"B", domain.ScaleBillions},
	{"M", domain.ScaleMillions},
}

// marketCap checks for a T, B or M suffix in that order. Unsuffixed values
// are parsed as plain numbers and tagged ScaleUnknown.
func (n normalizer) marketCap(raw RawFields) (float64, domain.Scale) {
	v, ok := raw[FieldMarketCap]
	if !ok {
		return 0, domain.ScaleUnknown
	}
	text := strings.ReplaceAll(strings.TrimSpace(v.Text), "N/A", "0")

	for _, s := range scaleSuffixes {
		if !strings.HasSuffix(text, s.letter) {
			continue
		}
		num := strings.ReplaceAll(strings.TrimSuffix(text, s.letter), ",", "")
		f, err := parseDecimal(num)
		if err != nil {
			n.warn(FieldMarketCap, v.Text, err)
			return 0, domain.ScaleUnknown
		}
		return f, s.scale
	}

	f, err := parseDecimal(strings.ReplaceAll(text, ",", ""))
	if err != nil {
		n.warn(FieldMarketCap, v.Text, err)
		return 0, domain.ScaleUnknown
	}
	return f, domain.ScaleUnknown
}

var volumeMultipliers = map[byte]float64{
	'k': 1e3,
	'K': 1e3,
	'M': 1e6,
	'B': 1e9,
	'T': 1e12,
}

// volume parses counts such as "61,447" or "70.250k" into plain units.
func (n normalizer) volume(raw RawFields, field string) float64 {
	v, ok := raw[field]
	if !ok {
		return 0
	}
	text := strings.ReplaceAll(strings.TrimSpace(v.Text), ",", "")
	if notAvailable(text) {
		return 0
	}
	mult := 1.0
	if m, ok := volumeMultipliers[text[len(text)-1]]; ok {
		mult = m
		text = text[:len(text)-1]
	}
	f, err := parseDecimal(text)
	if err != nil {
		n.warn(field, v.Text, err)
		return 0
	}
	return f * mult
}

func (n normalizer) peRatio(raw RawFields) *float64 {
	v, ok := raw[FieldPERatio]
	if !ok {
		return nil
	}
	text := strings.ReplaceAll(strings.TrimSpace(v.Text), ",", "")
	if notAvailable(text) {
		return nil
	}
	f, err := parseDecimal(text)
	if err != nil {
		n.warn(FieldPERatio, v.Text, err)
		return nil
	}
	return &f
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func parseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmpty
	}
	// Screener values never use exponent notation.
	if strings.ContainsAny(s, "eE") {
		return 0, errExponent
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, errOutOfRange
	}
	return f, nil
}

// splitSign separates a leading '+' or '-' from s.
func splitSign(s string) (domain.Sign, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.SignNone, s
	}
	switch s[0] {
	case '+':
		return domain.SignPlus, s[1:]
	case '-':
		return domain.SignMinus, s[1:]
	}
	return domain.SignNone, s
}

// pickSign prefers the sign carried by the value over a dedicated token.
func pickSign(own, token domain.Sign) domain.Sign {
	if own != domain.SignNone {
		return own
	}
	return token
}

func notAvailable(s string) bool {
	switch s {
	case "", "N/A", "-", "--":
		return true
	}
	return false
}

var quoteStrip = strings.NewReplacer(`"`, "", "'", "")

func cleanText(s string) string {
	return strings.TrimSpace(quoteStrip.Replace(s))
}
