package extract

import "fmt"

// Kind says how the extractor treats a field's token.
type Kind int

const (
	// KindText keeps the token as is.
	KindText Kind = iota
	// KindIgnored consumes a token that carries no data (e.g. a chart cell).
	KindIgnored
	// KindNumber is an unsigned numeric field.
	KindNumber
	// KindSigned may be split into a dedicated "+"/"-" token followed by
	// the magnitude.
	KindSigned
	// KindSignedPercent is KindSigned with an optional wrapping pair of
	// parentheses around the value.
	KindSignedPercent
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindIgnored:
		return "ignored"
	case KindNumber:
		return "number"
	case KindSigned:
		return "signed"
	case KindSignedPercent:
		return "signed-percent"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FieldSpec describes one positional field of a row.
type FieldSpec struct {
	Name     string
	Kind     Kind
	Optional bool
	Default  string // used when an optional field is missing
}

// Schema is the ordered row grammar.
type Schema []FieldSpec

// Field names used by DefaultSchema and Normalize.
const (
	FieldSymbol    = "symbol"
	FieldName      = "name"
	FieldChart     = "chart"
	FieldPrice     = "price"
	FieldChange    = "change"
	FieldPct       = "pct_change"
	FieldVolume    = "volume"
	FieldAvgVolume = "avg_volume"
	FieldMarketCap = "market_cap"
	FieldPERatio   = "pe_ratio"
)

// DefaultSchema is the screener row layout: symbol, name, chart, price are
// required; everything after may be missing on short rows.
var DefaultSchema = Schema{
	{Name: FieldSymbol, Kind: KindText},
	{Name: FieldName, Kind: KindText},
	{Name: FieldChart, Kind: KindIgnored},
	{Name: FieldPrice, Kind: KindNumber},
	{Name: FieldChange, Kind: KindSigned, Optional: true, Default: "0"},
	{Name: FieldPct, Kind: KindSignedPercent, Optional: true, Default: "0"},
	{Name: FieldVolume, Kind: KindNumber, Optional: true, Default: "0"},
	{Name: FieldAvgVolume, Kind: KindNumber, Optional: true, Default: "0"},
	{Name: FieldMarketCap, Kind: KindText, Optional: true, Default: "0"},
	{Name: FieldPERatio, Kind: KindText, Optional: true, Default: "N/A"},
}

// Validate checks that field names are unique, that symbol and name lead
// the schema as required fields, and that no required field follows an
// optional one.
func (s Schema) Validate() error {
	if len(s) < 2 {
		return fmt.Errorf("schema has %d fields, need at least 2", len(s))
	}
	seen := make(map[string]bool, len(s))
	optional := false
	for i, f := range s {
		if f.Name == "" {
			return fmt.Errorf("schema field %d has no name", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("schema field %q repeated", f.Name)
		}
		seen[f.Name] = true
		if i < 2 && f.Optional {
			return fmt.Errorf("schema field %q must be required", f.Name)
		}
		if f.Optional {
			optional = true
		} else if optional {
			return fmt.Errorf("required field %q follows an optional field", f.Name)
		}
	}
	return nil
}
