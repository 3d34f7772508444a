package loader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tablero/internal/core"
	"tablero/internal/sheets/memory"
)

type failingSource struct{ err error }

func (f failingSource) ReadRows(context.Context) ([][]string, error) { return nil, f.err }
func (f failingSource) Identity(context.Context) (string, error)    { return "broken", nil }

func defaultAliases(t *testing.T) map[string]Field {
	t.Helper()
	a, err := Aliases(nil)
	require.NoError(t, err)
	return a
}

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]string{
		"Área":              "area",
		" ¿Implementado? ":  "implementado",
		"Soporte  procesos": "soporte procesos",
		"1er filtro":        "1er filtro",
		"TÍTULO":            "titulo",
		"":                  "",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizeHeader(in), "header %q", in)
	}
}

func TestAliasesOverrides(t *testing.T) {
	a, err := Aliases(map[string]string{"Responsable": "facilitator"})
	require.NoError(t, err)
	require.Equal(t, FieldFacilitator, a["responsable"])
	require.Equal(t, FieldDate, a["fecha"])
	require.Equal(t, FieldFirstFilter, a["first_filter"])

	_, err = Aliases(map[string]string{"Foo": "bar"})
	require.ErrorIs(t, err, core.ErrUnknownColumn)
}

func TestParseNormalizesRows(t *testing.T) {
	rows := [][]string{
		{" Fecha ", "Área", "Soporte procesos", "Nombre", "¿Implementado?", "Viabilidad", "1er filtro", "Comentarios"},
		{"2024-03-05", "IT", "Ana Silva", "Ana\nBeto", "verdadero", "Viable", "Aprobado", "x"},
		{"45292", "RRHH", "", "Carla", "FALSO", "No viable", "Rechazado"},
		{"no es fecha", "IT", "Juan Pérez", "", "tal vez", "", ""},
		{"", "", "", "", "", "", "", "only an ignored column"},
	}
	tbl, stats, err := Parse(rows, defaultAliases(t))
	require.NoError(t, err)
	require.Equal(t, 3, tbl.Len())
	require.Equal(t, 1, stats.Skipped)
	require.Equal(t, 1, tbl.Skipped)
	require.Equal(t, 1, stats.Undated)
	require.Equal(t, []string{"Comentarios"}, stats.Ignored)

	first := tbl.Ideas[0]
	require.Equal(t, "2024-03", first.Period)
	require.Equal(t, "Mar", first.MonthShort)
	require.Equal(t, core.True, first.Implemented)
	require.Equal(t, core.Viable, first.Viability)
	require.Equal(t, core.Approved, first.FirstFilter)
	require.Equal(t, []string{"Ana", "Beto"}, first.Authors)

	serial := tbl.Ideas[1]
	require.True(t, serial.HasDate)
	require.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), serial.Date)
	require.Equal(t, core.False, serial.Implemented)
	require.Equal(t, core.NotViable, serial.Viability)

	undated := tbl.Ideas[2]
	require.False(t, undated.HasDate)
	require.Equal(t, core.UnknownPeriod, undated.Period)
	require.Equal(t, core.Unknown, undated.Implemented)
	require.Empty(t, undated.Authors)

	require.Len(t, tbl.Authorships, 3)
}

func TestParseImplementedAlwaysTristate(t *testing.T) {
	rows := [][]string{{"Fecha", "¿Implementado?"}}
	for _, raw := range []string{"TRUE", "true", "True", "1", "FALSE", "falso", "0", "", "N/A", "sí"} {
		rows = append(rows, []string{"2024-01-01", raw})
	}
	tbl, _, err := Parse(rows, defaultAliases(t))
	require.NoError(t, err)
	for _, idea := range tbl.Ideas {
		require.Contains(t, []core.Tristate{core.True, core.False, core.Unknown}, idea.Implemented)
	}
	require.Equal(t, core.True, tbl.Ideas[2].Implemented)
	require.Equal(t, core.Unknown, tbl.Ideas[9].Implemented)
}

func TestParseShapeErrors(t *testing.T) {
	_, _, err := Parse(nil, defaultAliases(t))
	require.ErrorIs(t, err, core.ErrNoData)

	_, _, err = Parse([][]string{{"Área", "Nombre"}, {"IT", "Ana"}}, defaultAliases(t))
	require.ErrorIs(t, err, core.ErrMissingColumn)

	tbl, _, err := Parse([][]string{{"Fecha", "Área"}}, defaultAliases(t))
	require.NoError(t, err)
	require.Equal(t, 0, tbl.Len())
}

func TestParseShortRows(t *testing.T) {
	rows := [][]string{
		{"Fecha", "Área", "Viabilidad"},
		{"2024-01-01"},
	}
	tbl, _, err := Parse(rows, defaultAliases(t))
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	require.Equal(t, "", tbl.Ideas[0].Area)
	require.Equal(t, core.ViabilityEmpty, tbl.Ideas[0].Viability)
}

func TestParseDate(t *testing.T) {
	utcDay := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-02-29", utcDay(2024, 2, 29), true},
		{"2024-02-29 13:45:00", time.Date(2024, 2, 29, 13, 45, 0, 0, time.UTC), true},
		{"05/03/2024", utcDay(2024, 3, 5), true},
		{"5/3/2024", utcDay(2024, 3, 5), true},
		{"05-03-2024", utcDay(2024, 3, 5), true},
		{"45292", utcDay(2024, 1, 1), true},
		{"45292.75", utcDay(2024, 1, 1), true},
		{"61", utcDay(1900, 3, 1), true},
		{"0", time.Time{}, false},
		{"-3", time.Time{}, false},
		{"31/02/2024", time.Time{}, false},
		{"soon", time.Time{}, false},
		{"  ", time.Time{}, false},
	}
	for _, tc := range cases {
		got, ok := ParseDate(tc.in)
		require.Equal(t, tc.ok, ok, "input %q", tc.in)
		if tc.ok {
			require.True(t, tc.want.Equal(got), "input %q: want %v got %v", tc.in, tc.want, got)
		}
	}
}

func TestLoadFallsBackToSynthetic(t *testing.T) {
	l := New(failingSource{err: errors.New("file not found")}, Config{Seed: 7})
	tbl := l.Load(context.Background())
	require.True(t, tbl.Synthetic)
	require.Equal(t, SyntheticRows, tbl.Len())
	require.Equal(t, "broken", tbl.Source)
	require.Contains(t, tbl.Origin, "file not found")
	require.NotEmpty(t, tbl.Version)
}

func TestLoadFallsBackOnShapeError(t *testing.T) {
	src := memory.New([][]string{{"Área"}, {"IT"}})
	tbl := New(src, Config{}).Load(context.Background())
	require.True(t, tbl.Synthetic)
	require.Contains(t, tbl.Origin, core.ErrMissingColumn.Error())
}

func TestLoadFromSource(t *testing.T) {
	src := memory.New([][]string{
		{"Fecha", "Área", "Nombre"},
		{"2024-01-10", "IT", "Ana"},
	})
	l := New(src, Config{})
	a := l.Load(context.Background())
	require.False(t, a.Synthetic)
	require.Equal(t, 1, a.Len())
	require.Equal(t, "mem:1", a.Source)

	b := l.Load(context.Background())
	require.NotEqual(t, a.Version, b.Version, "each load is a new snapshot")
}

func TestLoadWithoutSource(t *testing.T) {
	tbl := New(nil, Config{}).Load(context.Background())
	require.True(t, tbl.Synthetic)
	require.Equal(t, "synthetic:42", tbl.Source)
}

func TestSyntheticIsDeterministic(t *testing.T) {
	a, b := Synthetic(1), Synthetic(1)
	require.Equal(t, a.Ideas, b.Ideas)
	require.NotEqual(t, Synthetic(2).Ideas, a.Ideas)

	require.Equal(t, SyntheticRows, a.Len())
	first, last, ok := a.DateBounds()
	require.True(t, ok)
	require.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), first)
	require.Equal(t, time.Date(2023, 7, 19, 0, 0, 0, 0, time.UTC), last)

	for _, idea := range a.Ideas {
		require.Contains(t, syntheticAreas, idea.Area)
		require.Contains(t, syntheticFacilitators, idea.Facilitator)
		require.Len(t, idea.Authors, 1)
		require.NotEqual(t, core.Unknown, idea.Implemented)
		require.NotEqual(t, core.FilterEmpty, idea.FirstFilter)
	}
}
