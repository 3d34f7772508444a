package loader

import (
	"math/rand"
	"strconv"
	"time"

	"tablero/internal/core"
)

// SyntheticRows is the size of the fallback dataset.
const SyntheticRows = 200

var (
	syntheticStart        = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	syntheticAreas        = []string{"Finanzas", "RRHH", "Operaciones", "IT", "Ventas", "Marketing", "Logística", "Legal"}
	syntheticFacilitators = []string{"Juan Pérez", "Maria Garcia", "Pedro Lopez", "Ana Silva"}
	syntheticNames        = []string{"Idea Innovadora A", "Optimización B", "Automatización C"}
	syntheticViability    = []weighted{{"Viable", 45}, {"No viable", 25}, {"", 30}}
	syntheticImplemented  = []weighted{{"TRUE", 30}, {"FALSE", 70}}
	syntheticFirstFilter  = []string{"Aprobado", "Rechazado"}
)

type weighted struct {
	value  string
	weight int
}

func pick(r *rand.Rand, choices []weighted) string {
	total := 0
	for _, c := range choices {
		total += c.weight
	}
	n := r.Intn(total)
	for _, c := range choices {
		if n < c.weight {
			return c.value
		}
		n -= c.weight
	}
	return choices[len(choices)-1].value
}

// SyntheticMatrix produces the fallback dataset as a raw sheet, header
// included: one idea per day from 2023-01-01. The same seed always yields
// the same matrix.
func SyntheticMatrix(seed int64) [][]string {
	r := rand.New(rand.NewSource(seed))
	rows := make([][]string, 0, SyntheticRows+1)
	rows = append(rows, []string{"Fecha", "Área", "Soporte procesos", "Nombre", "¿Implementado?", "Viabilidad", "1er filtro"})
	for i := 0; i < SyntheticRows; i++ {
		rows = append(rows, []string{
			syntheticStart.AddDate(0, 0, i).Format("2006-01-02"),
			syntheticAreas[r.Intn(len(syntheticAreas))],
			syntheticFacilitators[r.Intn(len(syntheticFacilitators))],
			syntheticNames[r.Intn(len(syntheticNames))],
			pick(r, syntheticImplemented),
			pick(r, syntheticViability),
			syntheticFirstFilter[r.Intn(len(syntheticFirstFilter))],
		})
	}
	return rows
}

// Synthetic returns the fallback dataset as a table marked Synthetic.
func Synthetic(seed int64) *core.Table {
	aliases, _ := Aliases(nil)
	tbl, _, err := Parse(SyntheticMatrix(seed), aliases)
	if err != nil {
		panic("synthetic dataset: " + err.Error())
	}
	tbl.Synthetic = true
	tbl.Source = "synthetic:" + strconv.FormatInt(seed, 10)
	return tbl
}
