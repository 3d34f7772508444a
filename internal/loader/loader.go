// Package loader turns the raw ideas sheet into an immutable core.Table.
package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tablero/internal/core"
	"tablero/internal/log"
	"tablero/internal/sheets"
)

// DefaultSeed drives the synthetic dataset when no seed is configured.
const DefaultSeed int64 = 42

type Config struct {
	Aliases map[string]Field // nil means DefaultAliases
	Seed    int64
	Logger  *log.Logger
}

// Loader reads a source and normalizes it. Load never fails: an unreadable
// or malformed source yields the synthetic dataset instead.
type Loader struct {
	src     sheets.RowReader
	aliases map[string]Field
	seed    int64
	logger  *log.Logger
	now     func() time.Time
}

func New(src sheets.RowReader, cfg Config) *Loader {
	aliases := cfg.Aliases
	if aliases == nil {
		aliases, _ = Aliases(nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = DefaultSeed
	}
	return &Loader{
		src:     src,
		aliases: aliases,
		seed:    seed,
		logger:  logger.WithComponent(log.ComponentLoader),
		now:     time.Now,
	}
}

// Identity reports the source identity, or "" when the source cannot tell.
func (l *Loader) Identity(ctx context.Context) string {
	id, ok := l.src.(sheets.Identifier)
	if !ok {
		return ""
	}
	s, err := id.Identity(ctx)
	if err != nil {
		l.logger.DebugContext(ctx, "Source identity unavailable", log.FieldError, err)
		return ""
	}
	return s
}

// Load reads and normalizes the source into a fresh table.
func (l *Loader) Load(ctx context.Context) *core.Table {
	identity := l.Identity(ctx)

	tbl, err := l.read(ctx)
	if err != nil {
		l.logger.WarnContext(ctx, "Source unavailable, falling back to synthetic dataset",
			log.FieldSource, identity,
			log.FieldError, err)
		tbl = Synthetic(l.seed)
		tbl.Origin = "synthetic fallback: " + err.Error()
	}
	if identity != "" {
		tbl.Source = identity
	}
	tbl.Version = uuid.NewString()
	tbl.LoadedAt = l.now()

	l.logger.InfoContext(ctx, "Table loaded",
		log.NewFields().WithSnapshot(tbl.Source, tbl.Version, tbl.Len(), tbl.Synthetic).ToSlice()...)
	return tbl
}

func (l *Loader) read(ctx context.Context) (*core.Table, error) {
	if l.src == nil {
		return nil, errors.New("no source configured")
	}
	rows, err := l.src.ReadRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tbl, stats, err := Parse(rows, l.aliases)
	if err != nil {
		return nil, err
	}
	if len(stats.Ignored) > 0 {
		l.logger.DebugContext(ctx, "Ignoring unknown columns", "columns", strings.Join(stats.Ignored, ", "))
	}
	if stats.Undated > 0 {
		l.logger.WarnContext(ctx, "Rows with unparseable dates kept as unknown",
			log.FieldUndated, stats.Undated,
			log.FieldRows, tbl.Len())
	}
	return tbl, nil
}

// ParseStats reports what Parse did with the raw matrix.
type ParseStats struct {
	Ignored []string // header cells that map to no field
	Undated int      // rows kept with an unknown date
	Skipped int      // rows dropped because every mapped cell was blank
}

// Parse converts a header row plus data rows into a table. A matrix
// without a header or without a date column is a shape error; a header
// with no data rows is a valid empty table.
func Parse(rows [][]string, aliases map[string]Field) (*core.Table, ParseStats, error) {
	var stats ParseStats
	if len(rows) == 0 {
		return nil, stats, core.ErrNoData
	}
	cm, err := resolveColumns(rows[0], aliases)
	if err != nil {
		return nil, stats, err
	}
	stats.Ignored = cm.ignored

	ideas := make([]core.Idea, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if cm.blank(row) {
			stats.Skipped++
			continue
		}
		idea := core.Idea{
			ID:             n + 1,
			Area:           cm.cell(row, FieldArea),
			Facilitator:    cm.cell(row, FieldFacilitator),
			Names:          cm.raw(row, FieldNames),
			Title:          cm.cell(row, FieldTitle),
			DateRaw:        cm.cell(row, FieldDate),
			ImplementedRaw: cm.cell(row, FieldImplemented),
			ViabilityRaw:   cm.cell(row, FieldViability),
			FirstFilterRaw: cm.cell(row, FieldFirstFilter),
		}
		idea.Implemented = core.ParseTristate(idea.ImplementedRaw)
		idea.Authors = core.SplitAuthors(idea.Names)
		idea.Viability = core.ParseViability(idea.ViabilityRaw)
		idea.FirstFilter = core.ParseFirstFilter(idea.FirstFilterRaw)

		d, ok := ParseDate(idea.DateRaw)
		if !ok {
			stats.Undated++
		}
		idea.SetDate(d)
		ideas = append(ideas, idea)
	}

	tbl := core.NewTable(ideas)
	tbl.Skipped = stats.Skipped
	return tbl, stats, nil
}

func (cm columnMap) blank(row []string) bool {
	for _, i := range cm.index {
		if i < len(row) && strings.TrimSpace(row[i]) != "" {
			return false
		}
	}
	return true
}
