package extract

import (
	"iter"

	"movers/internal/domain"
)

// RawValue is the text captured for one field. Sign is set when the row
// carried a dedicated "+"/"-" token ahead of the value.
type RawValue struct {
	Text      string
	Sign      domain.Sign
	Defaulted bool
}

// RawFields maps schema field names to their captured text.
type RawFields map[string]RawValue

// Text returns the text captured for name, or "" when absent.
func (f RawFields) Text(name string) string {
	return f[name].Text
}

// Extract walks tokens against schema and captures one RawValue per field.
// It returns a *domain.RowShapeError when the stream ends before a required
// field. Missing optional fields take their schema default.
func Extract(tokens iter.Seq[string], schema Schema) (RawFields, error) {
	next, stop := iter.Pull(tokens)
	defer stop()

	fields := make(RawFields, len(schema))
	consumed := 0

	for i, field := range schema {
		tok, ok := next()
		if !ok {
			if !field.Optional {
				return nil, &domain.RowShapeError{Field: field.Name, Tokens: consumed}
			}
			fillDefaults(fields, schema[i:])
			return fields, nil
		}
		consumed++

		switch field.Kind {
		case KindSigned, KindSignedPercent:
			if field.Kind == KindSignedPercent {
				tok = stripParens(tok)
			}
			sign := signToken(tok)
			if sign == domain.SignNone {
				fields[field.Name] = RawValue{Text: tok}
				continue
			}
			mag, ok := next()
			if !ok {
				if !field.Optional {
					return nil, &domain.RowShapeError{Field: field.Name, Tokens: consumed}
				}
				fields[field.Name] = RawValue{Text: field.Default, Sign: sign, Defaulted: true}
				fillDefaults(fields, schema[i+1:])
				return fields, nil
			}
			consumed++
			if field.Kind == KindSignedPercent {
				mag = stripParens(mag)
			}
			fields[field.Name] = RawValue{Text: mag, Sign: sign}
		default:
			fields[field.Name] = RawValue{Text: tok}
		}
	}
	return fields, nil
}

func fillDefaults(fields RawFields, rest Schema) {
	for _, field := range rest {
		fields[field.Name] = RawValue{Text: field.Default, Defaulted: true}
	}
}

// signToken returns the sign for a token that is exactly "+" or "-".
func signToken(tok string) domain.Sign {
	switch tok {
	case "+":
		return domain.SignPlus
	case "-":
		return domain.SignMinus
	default:
		return domain.SignNone
	}
}
