package excel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	ports "tablero/internal/sheets"

	"github.com/xuri/excelize/v2"
)

// Reader loads the ideas sheet from a local .xlsx workbook.
type Reader struct {
	path  string
	sheet string
}

var _ ports.Source = (*Reader)(nil)

// New returns a reader for the workbook at path. An empty sheet selects the
// first sheet of the workbook.
func New(path, sheet string) *Reader {
	return &Reader{path: strings.TrimSpace(path), sheet: strings.TrimSpace(sheet)}
}

// ReadRows returns raw cell values so dates come back as serial numbers or
// ISO strings instead of locale dependent display text.
func (r *Reader) ReadRows(ctx context.Context) ([][]string, error) {
	if r.path == "" {
		return nil, errors.New("missing workbook path")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", r.path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.WarnContext(ctx, "Failed to close workbook", "path", r.path, "error", cerr)
		}
	}()

	sheet := r.sheet
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", r.path)
		}
		sheet = list[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	slog.DebugContext(ctx, "Workbook read", "path", r.path, "sheet", sheet, "rows", len(rows))
	return rows, nil
}

// Identity changes whenever the file is replaced or rewritten.
func (r *Reader) Identity(_ context.Context) (string, error) {
	info, err := os.Stat(r.path)
	if err != nil {
		return "", fmt.Errorf("stat workbook: %w", err)
	}
	abs, err := filepath.Abs(r.path)
	if err != nil {
		abs = r.path
	}
	return fmt.Sprintf("excel:%s#%s@%d:%d", abs, r.sheet, info.Size(), info.ModTime().UnixNano()), nil
}
