package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"tablero/internal/core"
	"tablero/internal/loader"
	"tablero/internal/sheets"

	_ "modernc.org/sqlite"
)

// ErrNoImport is returned by readers before the first import.
var ErrNoImport = errors.New("no ideas imported yet")

// Import describes one replacement of the stored ideas.
type Import struct {
	ID         int64
	Version    string
	Source     string
	RowCount   int
	ImportedAt time.Time
}

// header is the canonical column order written by ReadRows.
var header = []string{
	string(loader.FieldDate),
	string(loader.FieldArea),
	string(loader.FieldFacilitator),
	string(loader.FieldNames),
	string(loader.FieldTitle),
	string(loader.FieldImplemented),
	string(loader.FieldViability),
	string(loader.FieldFirstFilter),
}

type SQLiteRepository struct {
	db   *sql.DB
	path string
}

var _ sheets.Source = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, path: dbPath}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ReplaceIdeas stores ideas as the new dataset in one transaction and
// records the import. Earlier imports stay listed but lose their rows.
func (r *SQLiteRepository) ReplaceIdeas(ctx context.Context, source string, ideas []core.Idea) (Import, error) {
	imp := Import{
		Version:    uuid.NewString(),
		Source:     source,
		RowCount:   len(ideas),
		ImportedAt: time.Now().UTC(),
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Import{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO imports (version, source, row_count, imported_at) VALUES (?, ?, ?, ?)`,
		imp.Version, imp.Source, imp.RowCount, imp.ImportedAt)
	if err != nil {
		return Import{}, fmt.Errorf("insert import: %w", err)
	}
	if imp.ID, err = res.LastInsertId(); err != nil {
		return Import{}, fmt.Errorf("import id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ideas WHERE import_id <> ?`, imp.ID); err != nil {
		return Import{}, fmt.Errorf("clear previous ideas: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO ideas
		(import_id, position, idea_date, idea_date_raw, area, facilitator, names, title,
		 implemented, implemented_raw, viability, first_filter)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Import{}, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for pos, idea := range ideas {
		var date sql.NullString
		if idea.HasDate {
			date = sql.NullString{String: idea.Date.Format("2006-01-02"), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			imp.ID, pos, date, idea.DateRaw, idea.Area, idea.Facilitator, idea.Names, idea.Title,
			tristateToNull(idea.Implemented), idea.ImplementedRaw, idea.ViabilityRaw, idea.FirstFilterRaw,
		); err != nil {
			return Import{}, fmt.Errorf("insert idea %d: %w", idea.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Import{}, fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Ideas imported to SQLite",
		"version", imp.Version,
		"source", imp.Source,
		"rows", imp.RowCount)
	return imp, nil
}

// LatestImport returns the most recent import or ErrNoImport.
func (r *SQLiteRepository) LatestImport(ctx context.Context) (Import, error) {
	var imp Import
	err := r.db.QueryRowContext(ctx,
		`SELECT id, version, source, row_count, imported_at FROM imports ORDER BY id DESC LIMIT 1`,
	).Scan(&imp.ID, &imp.Version, &imp.Source, &imp.RowCount, &imp.ImportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Import{}, ErrNoImport
	}
	if err != nil {
		return Import{}, fmt.Errorf("latest import: %w", err)
	}
	return imp, nil
}

// Imports lists past imports, newest first.
func (r *SQLiteRepository) Imports(ctx context.Context, limit int) ([]Import, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, version, source, row_count, imported_at FROM imports ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()

	var out []Import
	for rows.Next() {
		var imp Import
		if err := rows.Scan(&imp.ID, &imp.Version, &imp.Source, &imp.RowCount, &imp.ImportedAt); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		out = append(out, imp)
	}
	return out, rows.Err()
}

// ReadRows returns the ideas of the latest import as a sheet with
// canonical headers, in import order. Cells that did not parse on import
// come back as they were read, so the loader keeps those ideas.
func (r *SQLiteRepository) ReadRows(ctx context.Context) ([][]string, error) {
	imp, err := r.LatestImport(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT idea_date, idea_date_raw, area, facilitator, names, title,
		implemented, implemented_raw, viability, first_filter
		FROM ideas WHERE import_id = ? ORDER BY position`, imp.ID)
	if err != nil {
		return nil, fmt.Errorf("query ideas: %w", err)
	}
	defer rows.Close()

	out := [][]string{append([]string(nil), header...)}
	for rows.Next() {
		var date sql.NullString
		var implemented sql.NullInt64
		var dateRaw, area, facilitator, names, title, implementedRaw, viability, firstFilter string
		if err := rows.Scan(&date, &dateRaw, &area, &facilitator, &names, &title,
			&implemented, &implementedRaw, &viability, &firstFilter); err != nil {
			return nil, fmt.Errorf("scan idea: %w", err)
		}
		dateCell := date.String
		if !date.Valid {
			dateCell = dateRaw
		}
		implementedCell := nullToTristate(implemented)
		if !implemented.Valid {
			implementedCell = implementedRaw
		}
		out = append(out, []string{
			dateCell, area, facilitator, names, title,
			implementedCell, viability, firstFilter,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ideas: %w", err)
	}
	return out, nil
}

// Identity changes with every import.
func (r *SQLiteRepository) Identity(ctx context.Context) (string, error) {
	imp, err := r.LatestImport(ctx)
	if errors.Is(err, ErrNoImport) {
		return "sqlite:" + r.path + "#empty", nil
	}
	if err != nil {
		return "", err
	}
	return "sqlite:" + r.path + "#" + imp.Version, nil
}

func tristateToNull(t core.Tristate) sql.NullInt64 {
	switch t {
	case core.True:
		return sql.NullInt64{Int64: 1, Valid: true}
	case core.False:
		return sql.NullInt64{Int64: 0, Valid: true}
	default:
		return sql.NullInt64{}
	}
}

func nullToTristate(n sql.NullInt64) string {
	if !n.Valid {
		return ""
	}
	if n.Int64 != 0 {
		return "TRUE"
	}
	return "FALSE"
}
