package loader

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"tablero/internal/core"
)

// Field is a column of the typed idea schema.
type Field string

const (
	FieldDate        Field = "date"
	FieldArea        Field = "area"
	FieldFacilitator Field = "facilitator"
	FieldNames       Field = "names"
	FieldTitle       Field = "title"
	FieldImplemented Field = "implemented"
	FieldViability   Field = "viability"
	FieldFirstFilter Field = "first_filter"
)

// Fields lists every schema column.
var Fields = []Field{
	FieldDate, FieldArea, FieldFacilitator, FieldNames,
	FieldTitle, FieldImplemented, FieldViability, FieldFirstFilter,
}

// DefaultAliases maps normalized sheet headers onto schema fields.
var DefaultAliases = map[string]Field{
	"fecha":            FieldDate,
	"area":             FieldArea,
	"soporte procesos": FieldFacilitator,
	"facilitador":      FieldFacilitator,
	"nombre":           FieldNames,
	"nombres":          FieldNames,
	"titulo":           FieldTitle,
	"idea":             FieldTitle,
	"implementado":     FieldImplemented,
	"viabilidad":       FieldViability,
	"1er filtro":       FieldFirstFilter,
	"primer filtro":    FieldFirstFilter,
}

// NormalizeHeader folds a header cell so that "  ¿Implementado? " and
// "implementado" compare equal: accents removed, lower case, inverted and
// regular question marks dropped, inner whitespace collapsed.
func NormalizeHeader(h string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, h)
	if err != nil {
		folded = h
	}
	folded = strings.Map(func(r rune) rune {
		if r == '¿' || r == '?' {
			return -1
		}
		return unicode.ToLower(r)
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}

// Aliases builds the header alias table from the defaults plus overrides,
// where overrides map a raw header onto a field name. Every schema field
// also matches its own name.
func Aliases(overrides map[string]string) (map[string]Field, error) {
	out := make(map[string]Field, len(DefaultAliases)+len(Fields)+len(overrides))
	for k, v := range DefaultAliases {
		out[k] = v
	}
	for _, f := range Fields {
		out[NormalizeHeader(string(f))] = f
	}
	for header, name := range overrides {
		f, ok := lookupField(name)
		if !ok {
			return nil, fmt.Errorf("alias %q -> %q: %w", header, name, core.ErrUnknownColumn)
		}
		out[NormalizeHeader(header)] = f
	}
	return out, nil
}

func lookupField(name string) (Field, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, f := range Fields {
		if string(f) == n {
			return f, true
		}
	}
	return "", false
}

// columnMap is the resolved position of each schema field in a header row.
type columnMap struct {
	index   map[Field]int
	ignored []string
}

func resolveColumns(header []string, aliases map[string]Field) (columnMap, error) {
	cm := columnMap{index: make(map[Field]int)}
	for i, h := range header {
		f, ok := aliases[NormalizeHeader(h)]
		if !ok {
			if strings.TrimSpace(h) != "" {
				cm.ignored = append(cm.ignored, h)
			}
			continue
		}
		// First occurrence wins for duplicated headers.
		if _, dup := cm.index[f]; !dup {
			cm.index[f] = i
		}
	}
	if _, ok := cm.index[FieldDate]; !ok {
		return cm, fmt.Errorf("%w: %s", core.ErrMissingColumn, FieldDate)
	}
	return cm, nil
}

// cell returns the trimmed value of field f in row, or "" when the column
// is absent or the row is short.
func (cm columnMap) cell(row []string, f Field) string {
	i, ok := cm.index[f]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// raw is like cell but keeps inner line breaks untouched.
func (cm columnMap) raw(row []string, f Field) string {
	i, ok := cm.index[f]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
